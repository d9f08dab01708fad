// Package stats は試合記録の成績集計を提供する。
package stats

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/pitchlog/internal/model"
)

// 期間フィルタの識別子
const (
	PeriodAllTime   = "all_time"
	PeriodSeason    = "season"
	Period12Months  = "12_months"
	Period6Months   = "6_months"
	Period3Months   = "3_months"
	PeriodLastMonth = "last_month"
)

// 試合結果の値
const (
	ResultWin  = "Win"
	ResultDraw = "Draw"
	ResultLoss = "Loss"
)

// カテゴリ別集計の対象ラベル
const (
	CategoryPreSeason = "Pre-Season"
	CategoryLeague    = "League"
)

// periodDays は期間フィルタごとの遡及日数。
// ここに載っていない期間は絞り込みなしとして扱う。
var periodDays = map[string]int{
	Period12Months:  365,
	Period6Months:   180,
	Period3Months:   90,
	PeriodLastMonth: 30,
}

// SeasonStats は全試合を対象とした集計結果。
type SeasonStats struct {
	Total   int `json:"total"`
	Wins    int `json:"wins"`
	Draws   int `json:"draws"`
	Losses  int `json:"losses"`
	Goals   int `json:"goals"`
	Assists int `json:"assists"`
	Minutes int `json:"minutes"`
}

// CategoryStats は特定カテゴリの試合のみを対象とした集計結果。
type CategoryStats struct {
	Total   int `json:"total"`
	Goals   int `json:"goals"`
	Assists int `json:"assists"`
	Minutes int `json:"minutes"`
}

// Summary は成績集計のレスポンス。
type Summary struct {
	Season    SeasonStats   `json:"season"`
	PreSeason CategoryStats `json:"pre_season"`
	League    CategoryStats `json:"league"`
}

// MatchSource は集計対象の試合一覧を取得するインターフェース。
type MatchSource interface {
	// List はアクティブユーザーの試合一覧を返す。
	List(ctx context.Context) ([]model.Record, error)
}

// Service は試合記録からの成績集計を行う。
type Service struct {
	matches MatchSource
	now     func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(matches MatchSource) *Service {
	return &Service{
		matches: matches,
		now:     time.Now,
	}
}

// Summarize はアクティブユーザーの試合記録を集計する。
// 予定のみの試合を除外し、期間フィルタを適用してから集計する。
func (s *Service) Summarize(ctx context.Context, period string) (*Summary, error) {
	records, err := s.matches.List(ctx)
	if err != nil {
		return nil, err
	}

	played := make([]model.Record, 0, len(records))
	for _, rec := range records {
		if rec.Bool("is_fixture") {
			continue
		}
		played = append(played, rec)
	}

	filtered := filterByPeriod(played, period, s.now())

	return &Summary{
		Season:    reduceSeason(filtered),
		PreSeason: reduceCategory(filtered, CategoryPreSeason),
		League:    reduceCategory(filtered, CategoryLeague),
	}, nil
}

// filterByPeriod は期間フィルタを適用する。
// 日付を解釈できないレコードは期間指定時の集計対象から外す。
func filterByPeriod(records []model.Record, period string, now time.Time) []model.Record {
	days, ok := periodDays[period]
	if !ok {
		return records
	}

	cutoff := now.AddDate(0, 0, -days)
	filtered := make([]model.Record, 0, len(records))
	for _, rec := range records {
		date, ok := parseMatchDate(rec.String("date"))
		if !ok {
			continue
		}
		if !date.Before(cutoff) {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

// monthIndex は表示用日付の3文字月名。
var monthIndex = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// parseMatchDate は "05 Mar 2024" 形式の表示用日付を解釈する。
// 解釈できない場合はfalseを返す。
func parseMatchDate(value string) (time.Time, bool) {
	parts := strings.Fields(value)
	if len(parts) != 3 {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	month, ok := monthIndex[parts[1]]
	if !ok {
		return time.Time{}, false
	}
	// 年は4桁のみ。"05 Mar 24" のような短縮形は解釈不能として扱う
	if len(parts[2]) != 4 {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, false
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

// reduceSeason は全試合の集計を行う。
func reduceSeason(records []model.Record) SeasonStats {
	var s SeasonStats
	for _, rec := range records {
		s.Total++
		switch rec.String("result") {
		case ResultWin:
			s.Wins++
		case ResultDraw:
			s.Draws++
		case ResultLoss:
			s.Losses++
		}
		s.Goals += rec.Int("brodie_goals")
		s.Assists += rec.Int("brodie_assists")
		s.Minutes += rec.Int("minutes_played")
	}
	return s
}

// reduceCategory はカテゴリが一致する試合のみの集計を行う。
func reduceCategory(records []model.Record, category string) CategoryStats {
	var s CategoryStats
	for _, rec := range records {
		if rec.String("category") != category {
			continue
		}
		s.Total++
		s.Goals += rec.Int("brodie_goals")
		s.Assists += rec.Int("brodie_assists")
		s.Minutes += rec.Int("minutes_played")
	}
	return s
}

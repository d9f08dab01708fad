// Package transfer はユーザーデータの一括エクスポートとインポートを提供する。
package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/pitchlog/internal/entity"
	"github.com/hitoshi/pitchlog/internal/model"
	"github.com/hitoshi/pitchlog/internal/schema"
)

// Service はエクスポート文書の生成と取り込みを行う。
//
// エクスポート文書は1ユーザー分の全データを1つのJSONオブジェクトに
// まとめたもの。インポートは文書のうちシーケンスコレクションと設定のみを
// 取り込み、ユーザーと購読状態は対象外とする。取り込みはトランザクションで
// 保護されないため、途中で失敗した場合はそれまでに保存したレコードが残る。
type Service struct {
	registry *entity.Registry
	identity entity.IdentityResolver
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(registry *entity.Registry, resolver entity.IdentityResolver) *Service {
	return &Service{
		registry: registry,
		identity: resolver,
		now:      time.Now,
	}
}

// ImportSummary はインポート結果の集計。
type ImportSummary struct {
	Imported map[string]int `json:"imported"`
	Skipped  int            `json:"skipped"`
	Settings bool           `json:"settings"`
}

// ExportAll はアクティブユーザーの全データをエクスポート文書にまとめる。
func (s *Service) ExportAll(ctx context.Context) (model.Record, error) {
	owner, err := s.identity.RequireActiveUser()
	if err != nil {
		return nil, err
	}
	return s.ExportFor(ctx, owner)
}

// ExportFor は指定した所有者の全データをエクスポート文書にまとめる。
// すべてのコレクションが文書に含まれ、レコードが存在しないコレクションは
// 空配列になる。
func (s *Service) ExportFor(ctx context.Context, ownerID string) (model.Record, error) {
	doc := model.Record{
		"exported_at":    s.now().UTC().Format(time.RFC3339),
		"schema_version": schema.Version,
	}

	for _, svc := range s.registry.Sequences() {
		records, err := svc.ListFor(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		doc[svc.Collection().Name] = records
	}

	settings, err := s.registry.Settings.GetFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	doc["settings"] = settings

	subscription, err := s.registry.Subscription.GetFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	doc["subscription"] = subscription

	user, err := s.registry.Users.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	doc["user"] = user

	return doc, nil
}

// ImportAll はエクスポート文書をアクティブユーザーのデータとして取り込む。
func (s *Service) ImportAll(ctx context.Context, doc model.Record) (*ImportSummary, error) {
	owner, err := s.identity.RequireActiveUser()
	if err != nil {
		return nil, err
	}
	return s.ImportFor(ctx, owner, doc)
}

// ImportFor はエクスポート文書を指定した所有者のデータとして取り込む。
// 文書内のuser_idは無視され、すべてのレコードが指定した所有者のものとして
// 保存される。既存レコードとIDが一致する場合は上書きされる。
func (s *Service) ImportFor(ctx context.Context, ownerID string, doc model.Record) (*ImportSummary, error) {
	if doc == nil {
		return nil, model.NewImportFormatError("文書がありません")
	}

	summary := &ImportSummary{Imported: make(map[string]int)}

	for _, svc := range s.registry.Sequences() {
		name := svc.Collection().Name
		value, ok := doc[name]
		if !ok || value == nil {
			continue
		}

		records, skipped, ok := asRecords(value)
		if !ok {
			return nil, model.NewImportFormatError(fmt.Sprintf("%sは配列である必要があります", name))
		}
		summary.Skipped += skipped

		for _, rec := range records {
			if _, err := svc.SaveFor(ctx, ownerID, rec); err != nil {
				return nil, err
			}
			summary.Imported[name]++
		}
	}

	if value, ok := doc["settings"]; ok && value != nil {
		rec, ok := asRecord(value)
		if !ok {
			return nil, model.NewImportFormatError("settingsはオブジェクトである必要があります")
		}
		if _, err := s.registry.Settings.SaveFor(ctx, ownerID, rec); err != nil {
			return nil, err
		}
		summary.Settings = true
	}

	return summary, nil
}

// ParseDocument はエクスポート文書のJSONを解釈する。
// オブジェクト以外のJSONはImportFormatエラーになる。
func ParseDocument(data []byte) (model.Record, error) {
	var doc model.Record
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, model.NewImportFormatError(err.Error())
	}
	if doc == nil {
		return nil, model.NewImportFormatError("文書はオブジェクトである必要があります")
	}
	return doc, nil
}

// asRecords は文書内の配列をレコードスライスに正規化する。
// JSONデコード直後の配列とエクスポート直後のレコードスライスの両方を受け取る。
// オブジェクトでない要素は読み飛ばして件数を返す。
func asRecords(value any) ([]model.Record, int, bool) {
	switch seq := value.(type) {
	case []model.Record:
		return seq, 0, true
	case []any:
		records := make([]model.Record, 0, len(seq))
		skipped := 0
		for _, elem := range seq {
			m, ok := elem.(map[string]any)
			if !ok {
				skipped++
				continue
			}
			records = append(records, model.Record(m))
		}
		return records, skipped, true
	default:
		return nil, 0, false
	}
}

// asRecord は文書内のオブジェクトをレコードに正規化する。
func asRecord(value any) (model.Record, bool) {
	switch m := value.(type) {
	case model.Record:
		return m, true
	case map[string]any:
		return model.Record(m), true
	default:
		return nil, false
	}
}

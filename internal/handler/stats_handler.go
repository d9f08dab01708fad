package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/pitchlog/internal/stats"
)

// StatsServiceInterface は成績集計ハンドラーが必要とするサービスインターフェース。
type StatsServiceInterface interface {
	// Summarize は指定期間の成績集計を返す。
	Summarize(ctx context.Context, period string) (*stats.Summary, error)
}

// StatsHandler は成績集計のHTTPハンドラー。
type StatsHandler struct {
	service StatsServiceInterface
}

// NewStatsHandler はStatsHandlerを生成する。
func NewStatsHandler(service StatsServiceInterface) *StatsHandler {
	return &StatsHandler{service: service}
}

// Summary は成績集計を返す。期間が未指定の場合は全期間を集計する。
// GET /stats?period=P
func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = stats.PeriodAllTime
	}

	summary, err := h.service.Summarize(r.Context(), period)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccessEnvelope(w, http.StatusOK, "stats", summary)
}

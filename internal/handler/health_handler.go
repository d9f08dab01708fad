package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/pitchlog/internal/model"
)

// HealthChecker はヘルスチェックが依存するデータストアの疎通確認インターフェース。
type HealthChecker interface {
	// Ping はデータストアへの疎通を確認する。
	Ping(ctx context.Context) error
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	checker HealthChecker
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Check はデータストアの疎通を確認して結果を返す。
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h.checker != nil {
		if err := h.checker.Ping(r.Context()); err != nil {
			writeAPIErrorResponse(w, http.StatusServiceUnavailable,
				model.NewStoreUnavailableError(err.Error()))
			return
		}
	}

	writeSuccessEnvelope(w, http.StatusOK, "status", "ok")
}

package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/pitchlog/internal/model"
)

// SettingsServiceInterface は設定ハンドラーが必要とするサービスインターフェース。
type SettingsServiceInterface interface {
	// Get はアクティブユーザーの設定を返す。未保存の場合は既定値を返す。
	Get(ctx context.Context) (model.Record, error)
	// Save はアクティブユーザーの設定を保存して保存後のレコードを返す。
	Save(ctx context.Context, rec model.Record) (model.Record, error)
}

// SettingsHandler はアプリ設定のHTTPハンドラー。
type SettingsHandler struct {
	service SettingsServiceInterface
}

// NewSettingsHandler はSettingsHandlerを生成する。
func NewSettingsHandler(service SettingsServiceInterface) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// Get は設定を取得する。未保存の場合は既定値を返す。
// GET /settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccessEnvelope(w, http.StatusOK, "settings", rec)
}

// Save は設定を保存する。
// POST /settings
func (h *SettingsHandler) Save(w http.ResponseWriter, r *http.Request) {
	rec, apiErr := decodeRecordBody(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	saved, err := h.service.Save(r.Context(), rec)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccessEnvelope(w, http.StatusOK, "settings", saved)
}

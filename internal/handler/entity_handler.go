package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/pitchlog/internal/model"
)

// EntityServiceInterface は汎用エンティティハンドラーが必要とするサービスインターフェース。
type EntityServiceInterface interface {
	// List はアクティブユーザーのレコード一覧を返す。
	List(ctx context.Context) ([]model.Record, error)
	// Save はレコードを保存して保存後のレコードを返す。
	Save(ctx context.Context, rec model.Record) (model.Record, error)
	// Delete はIDでレコードを削除する。
	Delete(ctx context.Context, id string) error
}

// EntityKinds は /api/{kind} で公開するリソース種別ごとのサービスを束ねる。
type EntityKinds struct {
	Achievements         EntityServiceInterface
	ClubHistory          EntityServiceInterface
	TrainingCamps        EntityServiceInterface
	PhysicalMetrics      EntityServiceInterface
	PhysicalMeasurements EntityServiceInterface
}

// kindBinding はURL上の種別名とサービス・ペイロード名の対応。
type kindBinding struct {
	service  EntityServiceInterface
	singular string
	plural   string
}

// EntityHandler は /api/{kind} 配下の汎用エンティティのHTTPハンドラー。
// 対応表に載らない種別へのリクエストはフォールバックハンドラーへ委譲する。
type EntityHandler struct {
	kinds    map[string]kindBinding
	fallback http.Handler
}

// NewEntityHandler はEntityHandlerを生成する。
func NewEntityHandler(kinds EntityKinds, fallback http.Handler) *EntityHandler {
	return &EntityHandler{
		kinds: map[string]kindBinding{
			"achievements":          {kinds.Achievements, "achievement", "achievements"},
			"club-history":          {kinds.ClubHistory, "club_history", "club_history"},
			"training-camps":        {kinds.TrainingCamps, "training_camp", "training_camps"},
			"physical-metrics":      {kinds.PhysicalMetrics, "physical_metric", "physical_metrics"},
			"physical-measurements": {kinds.PhysicalMeasurements, "physical_measurement", "physical_measurements"},
		},
		fallback: fallback,
	}
}

// List はレコード一覧を返す。
// GET /api/{kind}
func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	binding, ok := h.binding(r)
	if !ok {
		h.fallback.ServeHTTP(w, r)
		return
	}

	records, err := binding.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccessEnvelope(w, http.StatusOK, binding.plural, records)
}

// Create はレコードを登録する。
// POST /api/{kind}
func (h *EntityHandler) Create(w http.ResponseWriter, r *http.Request) {
	binding, ok := h.binding(r)
	if !ok {
		h.fallback.ServeHTTP(w, r)
		return
	}

	rec, apiErr := decodeRecordBody(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	saved, err := binding.service.Save(r.Context(), rec)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccessEnvelope(w, http.StatusCreated, binding.singular, saved)
}

// Update はレコードを更新する。ボディのidはURLのidで上書きされる。
// PUT /api/{kind}/{id}
func (h *EntityHandler) Update(w http.ResponseWriter, r *http.Request) {
	binding, ok := h.binding(r)
	if !ok {
		h.fallback.ServeHTTP(w, r)
		return
	}

	rec, apiErr := decodeRecordBody(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	rec["id"] = chi.URLParam(r, "id")

	saved, err := binding.service.Save(r.Context(), rec)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccessEnvelope(w, http.StatusOK, binding.singular, saved)
}

// Delete はレコードを削除する。存在しないIDに対しても成功を返す。
// DELETE /api/{kind}/{id}
func (h *EntityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	binding, ok := h.binding(r)
	if !ok {
		h.fallback.ServeHTTP(w, r)
		return
	}

	if err := binding.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccessEnvelope(w, http.StatusOK, "", nil)
}

// binding はURLの種別名から対応表を引く。
func (h *EntityHandler) binding(r *http.Request) (kindBinding, bool) {
	binding, ok := h.kinds[chi.URLParam(r, "kind")]
	return binding, ok
}

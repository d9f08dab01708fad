package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/pitchlog/internal/model"
)

// MatchServiceInterface は試合ハンドラーが必要とするサービスインターフェース。
type MatchServiceInterface interface {
	// List はアクティブユーザーの試合一覧を返す。
	List(ctx context.Context) ([]model.Record, error)
	// Get はIDで試合を取得する。見つからない場合はnilを返す。
	Get(ctx context.Context, id string) (model.Record, error)
	// Save は試合を保存して保存後のレコードを返す。
	Save(ctx context.Context, rec model.Record) (model.Record, error)
	// Delete はIDで試合を削除する。
	Delete(ctx context.Context, id string) error
}

// ActiveUserReader は所有者確認のためのインターフェース。
// repository層を介さず、識別コンテキストの読み出しのみを行う。
type ActiveUserReader interface {
	// ActiveUser はアクティブユーザーIDを返す。未設定の場合は空文字列を返す。
	ActiveUser() string
}

// MatchHandler は試合記録のHTTPハンドラー。
type MatchHandler struct {
	service  MatchServiceInterface
	identity ActiveUserReader
}

// NewMatchHandler はMatchHandlerを生成する。
func NewMatchHandler(service MatchServiceInterface, identity ActiveUserReader) *MatchHandler {
	return &MatchHandler{
		service:  service,
		identity: identity,
	}
}

// List は試合一覧を返す。
// GET /matches
func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccessEnvelope(w, http.StatusOK, "matches", records)
}

// Create は試合を登録する。
// POST /matches
func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	writeSuccessEnvelope(w, http.StatusCreated, "match", saved)
}

// Get は試合詳細を取得する。
// GET /matches/{id}
//
// レコードの取得後に所有者を確認し、他ユーザーの試合は存在しない場合と
// 同じ404を返す。
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	owner := h.identity.ActiveUser()
	if rec == nil || owner == "" || rec.OwnerID() != owner {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewRecordNotFoundError("matches", id))
		return
	}

	writeSuccessEnvelope(w, http.StatusOK, "match", rec)
}

// Update は試合を更新する。ボディのidはURLのidで上書きされる。
// PUT /matches/{id}
func (h *MatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, apiErr := decodeRecordBody(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	rec["id"] = id

	saved, err := h.service.Save(r.Context(), rec)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccessEnvelope(w, http.StatusOK, "match", saved)
}

// Delete は試合を削除する。存在しないIDに対しても成功を返す。
// DELETE /matches/{id}
func (h *MatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccessEnvelope(w, http.StatusOK, "", nil)
}

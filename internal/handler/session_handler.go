package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/pitchlog/internal/model"
)

// SessionManagerInterface はセッションハンドラーが必要とする識別コンテキストのインターフェース。
type SessionManagerInterface interface {
	// SetActiveUser はアクティブユーザーを設定する。
	SetActiveUser(id string) error
	// ActiveUser はアクティブユーザーIDを返す。未設定の場合は空文字列を返す。
	ActiveUser() string
	// Clear はアクティブユーザーを削除する。
	Clear() error
}

// UserRecorder はセッション開始時にユーザーレコードを記録するインターフェース。
type UserRecorder interface {
	// Touch はユーザーレコードの存在を保証し、更新時刻を進める。
	Touch(ctx context.Context, id string) (model.Record, error)
}

// SessionHandler はアクティブユーザーの設定と解除を行うHTTPハンドラー。
// 認証そのものは外部の認証基盤が行い、ここでは確定済みのユーザーIDを
// 受け取って識別コンテキストに反映するだけ。
type SessionHandler struct {
	session SessionManagerInterface
	users   UserRecorder
}

// NewSessionHandler はSessionHandlerを生成する。
// usersがnilでない場合、セッション開始時にユーザーレコードを記録する。
func NewSessionHandler(session SessionManagerInterface, users UserRecorder) *SessionHandler {
	return &SessionHandler{
		session: session,
		users:   users,
	}
}

// sessionRequest はセッション開始リクエストのボディ。
type sessionRequest struct {
	UserID string `json:"user_id"`
}

// sessionResponse はセッション状態のAPIレスポンス。
type sessionResponse struct {
	UserID string `json:"user_id"`
}

// Current は現在のセッション状態を返す。未設定の場合はuser_idが空になる。
// GET /session
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	writeSuccessEnvelope(w, http.StatusOK, "session", sessionResponse{
		UserID: h.session.ActiveUser(),
	})
}

// Start はアクティブユーザーを設定する。
// POST /session
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	if err := h.session.SetActiveUser(req.UserID); err != nil {
		handleServiceError(w, err)
		return
	}

	// ユーザーレコードの記録はベストエフォート。失敗してもセッションは成立する。
	if h.users != nil {
		if _, err := h.users.Touch(r.Context(), req.UserID); err != nil {
			slog.Warn("failed to record user",
				slog.String("user_id", req.UserID),
				slog.String("error", err.Error()),
			)
		}
	}

	writeSuccessEnvelope(w, http.StatusOK, "session", sessionResponse{UserID: req.UserID})
}

// End はアクティブユーザーを削除する。
// DELETE /session
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Clear(); err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccessEnvelope(w, http.StatusOK, "", nil)
}

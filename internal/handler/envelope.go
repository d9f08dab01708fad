// Package handler は互換APIのHTTPハンドラーを提供する。
//
// ルーティング表はリモートAPIと同じパスとメソッドの組を公開し、
// 各操作の結果をsuccessフィールド付きのエンベロープで返す。
// 表に載らないリクエストはフォールバックハンドラーへ委譲される。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/pitchlog/internal/model"
)

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Success  bool   `json:"success"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeSuccessEnvelope は成功エンベロープでレスポンスを書き込む。
// payloadFieldが空の場合はsuccessのみのエンベロープを返す。
func writeSuccessEnvelope(w http.ResponseWriter, statusCode int, payloadField string, payload any) {
	body := map[string]any{"success": true}
	if payloadField != "" {
		body[payloadField] = payload
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Success:  false,
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// エラーをユーザー向けメッセージへ変換するのはこの層だけの責務。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case model.ErrCodeRecordNotFound:
		return http.StatusNotFound
	case model.ErrCodeValidation, model.ErrCodeImportFormat:
		return http.StatusBadRequest
	case model.ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case model.ErrCodeStoreIO:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// decodeRecordBody はリクエストボディをレコードとして解釈する。
func decodeRecordBody(r *http.Request) (model.Record, *model.APIError) {
	var rec model.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		return nil, model.NewValidationError("リクエストボディの解析に失敗しました")
	}
	if rec == nil {
		return nil, model.NewValidationError("リクエストボディがありません")
	}
	return rec, nil
}

package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/hitoshi/pitchlog/internal/model"
	"github.com/hitoshi/pitchlog/internal/transfer"
)

// maxImportSize はインポート文書の最大サイズ（10MB）
const maxImportSize = 10 << 20

// TransferServiceInterface はエクスポート・インポートサービスのインターフェース。
type TransferServiceInterface interface {
	// ExportAll はアクティブユーザーの全データを1つの文書にまとめて返す。
	ExportAll(ctx context.Context) (model.Record, error)
	// ImportAll は文書内のシーケンスと設定をアクティブユーザーのデータとして取り込む。
	ImportAll(ctx context.Context, doc model.Record) (*transfer.ImportSummary, error)
}

// TransferHandler はデータのエクスポート・インポートを行うHTTPハンドラー。
type TransferHandler struct {
	service TransferServiceInterface
}

// NewTransferHandler はTransferHandlerを生成する。
func NewTransferHandler(service TransferServiceInterface) *TransferHandler {
	return &TransferHandler{service: service}
}

// Export はアクティブユーザーの全データをエクスポート文書として返す。
// GET /export
func (h *TransferHandler) Export(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.ExportAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccessEnvelope(w, http.StatusOK, "export", doc)
}

// Import はエクスポート文書を読み込み、アクティブユーザーのデータとして取り込む。
// POST /import
func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize+1))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("リクエストボディの読み取りに失敗しました"))
		return
	}

	// サイズ超過チェック
	if int64(len(body)) > maxImportSize {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("インポート文書が大きすぎます"))
		return
	}

	doc, err := transfer.ParseDocument(body)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	summary, err := h.service.ImportAll(r.Context(), doc)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccessEnvelope(w, http.StatusOK, "import", summary)
}

// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, store, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated  = "UNAUTHENTICATED"
	ErrCodeRecordNotFound   = "RECORD_NOT_FOUND"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrCodeStoreIO          = "STORE_IO_ERROR"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeImportFormat     = "IMPORT_FORMAT"
)

// NewUnauthenticatedError はアクティブユーザー未設定エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "アクティブユーザーが設定されていません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewRecordNotFoundError はレコード未検出エラーを生成する。
func NewRecordNotFoundError(collection, id string) *APIError {
	return &APIError{
		Code:     ErrCodeRecordNotFound,
		Message:  fmt.Sprintf("指定されたレコードが見つかりません: %s/%s", collection, id),
		Category: "store",
		Action:   "レコードIDを確認してください。",
	}
}

// NewStoreUnavailableError はデータストア初期化失敗エラーを生成する。
// 初期化の失敗は再試行しても回復しないため、アプリの再起動を促す。
func NewStoreUnavailableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  fmt.Sprintf("データストアを利用できません: %s", reason),
		Category: "store",
		Action:   "アプリを再起動してください。改善しない場合はデータファイルの破損が考えられます。",
	}
}

// NewStoreIOError はデータストア入出力失敗エラーを生成する。
// どのコレクションのどの操作で失敗したかをメッセージに含める。
func NewStoreIOError(collection, operation, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeStoreIO,
		Message:  fmt.Sprintf("データストアの読み書きに失敗しました (%s/%s): %s", collection, operation, reason),
		Category: "store",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容が正しくありません: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewImportFormatError はインポートデータ形式エラーを生成する。
func NewImportFormatError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeImportFormat,
		Message:  fmt.Sprintf("インポートデータの形式が不正です: %s", reason),
		Category: "validation",
		Action:   "エクスポート機能で出力したJSONファイルを指定してください。",
	}
}

// Package store はコレクションに対する汎用的なレコード永続化を定義する。
package store

import (
	"context"

	"github.com/hitoshi/pitchlog/internal/model"
	"github.com/hitoshi/pitchlog/internal/schema"
)

// Store はレコード永続化のインターフェース。
// コレクションはschemaパッケージで定義されたものだけを受け付ける。
type Store interface {
	// GetAll はコレクションの全レコードをキー順に返す。0件の場合は空スライスを返す。
	GetAll(ctx context.Context, col schema.Collection) ([]model.Record, error)

	// GetByKey は主キーでレコードを取得する。見つからない場合はnilを返す。
	GetByKey(ctx context.Context, col schema.Collection, key string) (model.Record, error)

	// GetByIndex はインデックス付きフィールドの値でレコードを検索する。
	// フィールドはコレクション定義のIndexesに列挙されたものに限り、
	// それ以外はValidationErrorを返す。
	// インデックスの照合結果はフィールド値の完全一致で再検証される。
	GetByIndex(ctx context.Context, col schema.Collection, field, value string) ([]model.Record, error)

	// Put はレコードを主キーで冪等に挿入・上書きする。
	// コレクションのキーフィールドが欠けている場合はValidationErrorを返す。
	Put(ctx context.Context, col schema.Collection, rec model.Record) error

	// Delete は主キーでレコードを削除する。存在しないキーに対してもエラーを返さない。
	Delete(ctx context.Context, col schema.Collection, key string) error
}

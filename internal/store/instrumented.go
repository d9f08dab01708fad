package store

import (
	"context"
	"time"

	"github.com/hitoshi/pitchlog/internal/model"
	"github.com/hitoshi/pitchlog/internal/schema"
)

// OperationRecorder はストア操作の実行結果を記録するインターフェース。
type OperationRecorder interface {
	RecordStoreOperation(collection, operation string, duration time.Duration, err error)
}

// InstrumentedStore はStoreをラップし、各操作の回数・レイテンシ・失敗を記録する。
type InstrumentedStore struct {
	inner    Store
	recorder OperationRecorder
}

// NewInstrumentedStore は計測付きストアを生成する。
func NewInstrumentedStore(inner Store, recorder OperationRecorder) *InstrumentedStore {
	return &InstrumentedStore{
		inner:    inner,
		recorder: recorder,
	}
}

// GetAll はコレクションの全レコードをキー順に返す。
func (s *InstrumentedStore) GetAll(ctx context.Context, col schema.Collection) ([]model.Record, error) {
	start := time.Now()
	records, err := s.inner.GetAll(ctx, col)
	s.recorder.RecordStoreOperation(col.Name, "getAll", time.Since(start), err)
	return records, err
}

// GetByKey は主キーでレコードを取得する。
func (s *InstrumentedStore) GetByKey(ctx context.Context, col schema.Collection, key string) (model.Record, error) {
	start := time.Now()
	rec, err := s.inner.GetByKey(ctx, col, key)
	s.recorder.RecordStoreOperation(col.Name, "getByKey", time.Since(start), err)
	return rec, err
}

// GetByIndex はインデックス付きフィールドの値でレコードを検索する。
func (s *InstrumentedStore) GetByIndex(ctx context.Context, col schema.Collection, field, value string) ([]model.Record, error) {
	start := time.Now()
	records, err := s.inner.GetByIndex(ctx, col, field, value)
	s.recorder.RecordStoreOperation(col.Name, "getByIndex", time.Since(start), err)
	return records, err
}

// Put はレコードを主キーで冪等に挿入・上書きする。
func (s *InstrumentedStore) Put(ctx context.Context, col schema.Collection, rec model.Record) error {
	start := time.Now()
	err := s.inner.Put(ctx, col, rec)
	s.recorder.RecordStoreOperation(col.Name, "put", time.Since(start), err)
	return err
}

// Delete は主キーでレコードを削除する。
func (s *InstrumentedStore) Delete(ctx context.Context, col schema.Collection, key string) error {
	start := time.Now()
	err := s.inner.Delete(ctx, col, key)
	s.recorder.RecordStoreOperation(col.Name, "delete", time.Since(start), err)
	return err
}

// インターフェース実装のコンパイル時チェック
var _ Store = (*InstrumentedStore)(nil)

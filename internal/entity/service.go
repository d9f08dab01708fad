package entity

import (
	"context"
	"time"

	"github.com/hitoshi/pitchlog/internal/model"
	"github.com/hitoshi/pitchlog/internal/schema"
	"github.com/hitoshi/pitchlog/internal/store"
)

// IdentityResolver はアクティブユーザーの解決インターフェース。
type IdentityResolver interface {
	// ActiveUser はアクティブユーザーIDを返す。未設定の場合は空文字列を返す。
	ActiveUser() string

	// RequireActiveUser はアクティブユーザーIDを返す。
	// 未設定の場合はUnauthenticatedエラーを返す。
	RequireActiveUser() (string, error)
}

// Service はシーケンスコレクションに対するエンティティ操作を提供する。
//
// 所有者はアクティブユーザーから導出され、保存時に呼び出し元が指定した
// user_idは常に上書きされる。管理用途で所有者を明示する場合は
// ListFor・SaveForを使用する。
type Service struct {
	store    store.Store
	ids      *Generator
	identity IdentityResolver
	col      schema.Collection
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(st store.Store, ids *Generator, resolver IdentityResolver, col schema.Collection) *Service {
	return &Service{
		store:    st,
		ids:      ids,
		identity: resolver,
		col:      col,
		now:      time.Now,
	}
}

// Collection はこのサービスが扱うコレクション定義を返す。
func (s *Service) Collection() schema.Collection {
	return s.col
}

// List はアクティブユーザーのレコード一覧を返す。0件の場合は空スライスを返す。
// アクティブユーザーが未設定の場合はストアへ問い合わせず空スライスを返す。
func (s *Service) List(ctx context.Context) ([]model.Record, error) {
	owner := s.identity.ActiveUser()
	if owner == "" {
		return []model.Record{}, nil
	}
	return s.ListFor(ctx, owner)
}

// ListFor は指定した所有者のレコード一覧を返す。
func (s *Service) ListFor(ctx context.Context, ownerID string) ([]model.Record, error) {
	return s.store.GetByIndex(ctx, s.col, "user_id", ownerID)
}

// Get はIDでレコードを取得する。見つからない場合はnilを返す。
func (s *Service) Get(ctx context.Context, id string) (model.Record, error) {
	return s.store.GetByKey(ctx, s.col, id)
}

// Save はレコードを保存して保存後のレコードを返す。
// IDが未設定の場合は採番する。コレクションがTimestampedの場合は
// created_atを初回のみ補完し、updated_atを常に更新する。
func (s *Service) Save(ctx context.Context, rec model.Record) (model.Record, error) {
	owner, err := s.identity.RequireActiveUser()
	if err != nil {
		return nil, err
	}
	return s.SaveFor(ctx, owner, rec)
}

// SaveFor は指定した所有者のレコードとして保存する。
// 呼び出し元が指定したuser_idは所有者で上書きされる。
func (s *Service) SaveFor(ctx context.Context, ownerID string, rec model.Record) (model.Record, error) {
	if rec == nil {
		return nil, model.NewValidationError("レコードは必須です")
	}

	stored := rec.Clone()
	stored["user_id"] = ownerID

	if stored.ID() == "" {
		stored["id"] = s.ids.NewID(s.col)
	}

	if s.col.Timestamped {
		now := s.now().UTC().Format(time.RFC3339)
		if stored.String("created_at") == "" {
			stored["created_at"] = now
		}
		stored["updated_at"] = now
	}

	if err := s.store.Put(ctx, s.col, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// Delete はIDでレコードを削除する。存在しないIDに対してもエラーを返さない。
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, s.col, id)
}

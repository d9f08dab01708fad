package entity

import (
	"context"
	"time"

	"github.com/hitoshi/pitchlog/internal/model"
	"github.com/hitoshi/pitchlog/internal/schema"
	"github.com/hitoshi/pitchlog/internal/store"
)

// UserService はユーザーオブジェクトを扱う。
// ユーザーオブジェクトはユーザー自身のidをキーとして保存され、
// 他のコレクションと異なり所有者スコープを持たない。
type UserService struct {
	store    store.Store
	identity IdentityResolver
	now      func() time.Time
}

// NewUserService はUserServiceの新しいインスタンスを生成する。
func NewUserService(st store.Store, resolver IdentityResolver) *UserService {
	return &UserService{store: st, identity: resolver, now: time.Now}
}

// Current はアクティブユーザーのユーザーオブジェクトを返す。
// 未保存の場合はnilを返す。
func (s *UserService) Current(ctx context.Context) (model.Record, error) {
	owner, err := s.identity.RequireActiveUser()
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, owner)
}

// Get はIDでユーザーオブジェクトを取得する。見つからない場合はnilを返す。
func (s *UserService) Get(ctx context.Context, id string) (model.Record, error) {
	return s.store.GetByKey(ctx, schema.Users, id)
}

// List は登録済みの全ユーザーオブジェクトを返す。
// 所有者スコープを持たない管理用の操作で、バックアップジョブが使用する。
func (s *UserService) List(ctx context.Context) ([]model.Record, error) {
	return s.store.GetAll(ctx, schema.Users)
}

// Save はユーザーオブジェクトを保存して保存後のレコードを返す。
// idフィールドは必須で、採番は行わない。
func (s *UserService) Save(ctx context.Context, rec model.Record) (model.Record, error) {
	if rec == nil || rec.ID() == "" {
		return nil, model.NewValidationError("ユーザーレコードにはidが必要です")
	}

	stored := rec.Clone()

	now := s.now().UTC().Format(time.RFC3339)
	if stored.String("created_at") == "" {
		stored["created_at"] = now
	}
	stored["updated_at"] = now

	if err := s.store.Put(ctx, schema.Users, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// Touch はユーザーレコードの存在を保証し、更新時刻を進める。
// 未登録の場合は最小限のレコードを作成し、登録済みの場合は既存の
// フィールドを保持したまま保存し直す。
func (s *UserService) Touch(ctx context.Context, id string) (model.Record, error) {
	if id == "" {
		return nil, model.NewValidationError("ユーザーIDは必須です")
	}

	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = model.Record{"id": id}
	}
	return s.Save(ctx, rec)
}

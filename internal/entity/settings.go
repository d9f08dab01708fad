package entity

import (
	"context"

	"github.com/hitoshi/pitchlog/internal/model"
	"github.com/hitoshi/pitchlog/internal/schema"
	"github.com/hitoshi/pitchlog/internal/store"
)

// SettingsService はユーザーごとのアプリ設定を扱う。
// 設定はuser_idをキーとする単一レコードとして保存される。
type SettingsService struct {
	store    store.Store
	identity IdentityResolver
}

// NewSettingsService はSettingsServiceの新しいインスタンスを生成する。
func NewSettingsService(st store.Store, resolver IdentityResolver) *SettingsService {
	return &SettingsService{store: st, identity: resolver}
}

// Get はアクティブユーザーの設定を返す。
// 未保存の場合は既定値を返す。既定値はこの時点では永続化しない。
func (s *SettingsService) Get(ctx context.Context) (model.Record, error) {
	owner, err := s.identity.RequireActiveUser()
	if err != nil {
		return nil, err
	}
	return s.GetFor(ctx, owner)
}

// GetFor は指定した所有者の設定を返す。未保存の場合は既定値を返す。
func (s *SettingsService) GetFor(ctx context.Context, ownerID string) (model.Record, error) {
	rec, err := s.store.GetByKey(ctx, schema.Settings, ownerID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return defaultSettings(ownerID), nil
	}
	return rec, nil
}

// Save はアクティブユーザーの設定を保存して保存後のレコードを返す。
func (s *SettingsService) Save(ctx context.Context, rec model.Record) (model.Record, error) {
	owner, err := s.identity.RequireActiveUser()
	if err != nil {
		return nil, err
	}
	return s.SaveFor(ctx, owner, rec)
}

// SaveFor は指定した所有者の設定として保存する。
// 呼び出し元が指定したuser_idは所有者で上書きされる。
func (s *SettingsService) SaveFor(ctx context.Context, ownerID string, rec model.Record) (model.Record, error) {
	if rec == nil {
		return nil, model.NewValidationError("設定レコードは必須です")
	}

	stored := rec.Clone()
	stored["user_id"] = ownerID

	if err := s.store.Put(ctx, schema.Settings, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// defaultSettings は未保存ユーザーに返す既定の設定を生成する。
func defaultSettings(ownerID string) model.Record {
	return model.Record{
		"user_id":               ownerID,
		"player_name":           "",
		"date_of_birth":         "",
		"current_club":          "",
		"current_season":        "",
		"dark_mode":             false,
		"notifications_enabled": false,
	}
}

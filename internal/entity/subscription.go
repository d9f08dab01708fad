package entity

import (
	"context"
	"time"

	"github.com/hitoshi/pitchlog/internal/model"
	"github.com/hitoshi/pitchlog/internal/schema"
	"github.com/hitoshi/pitchlog/internal/store"
)

// SubscriptionService はユーザーごとの購読状態を扱う。
// 購読状態はuser_idをキーとする単一レコードとして保存される。
// 設定と異なり既定値はなく、未保存の場合はnilを返す。
type SubscriptionService struct {
	store    store.Store
	identity IdentityResolver
	now      func() time.Time
}

// NewSubscriptionService はSubscriptionServiceの新しいインスタンスを生成する。
func NewSubscriptionService(st store.Store, resolver IdentityResolver) *SubscriptionService {
	return &SubscriptionService{store: st, identity: resolver, now: time.Now}
}

// Get はアクティブユーザーの購読状態を返す。未保存の場合はnilを返す。
func (s *SubscriptionService) Get(ctx context.Context) (model.Record, error) {
	owner, err := s.identity.RequireActiveUser()
	if err != nil {
		return nil, err
	}
	return s.GetFor(ctx, owner)
}

// GetFor は指定した所有者の購読状態を返す。未保存の場合はnilを返す。
func (s *SubscriptionService) GetFor(ctx context.Context, ownerID string) (model.Record, error) {
	return s.store.GetByKey(ctx, schema.Subscription, ownerID)
}

// FindByStripeID は外部決済サービスの購読IDから購読状態を検索する。
// Webhook処理で決済イベントをユーザーに対応づけるために使用する。
// 見つからない場合はnilを返す。
func (s *SubscriptionService) FindByStripeID(ctx context.Context, stripeID string) (model.Record, error) {
	if stripeID == "" {
		return nil, nil
	}

	records, err := s.store.GetByIndex(ctx, schema.Subscription, "stripe_subscription_id", stripeID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// Save はアクティブユーザーの購読状態を保存して保存後のレコードを返す。
// 呼び出し元が指定したuser_idは所有者で上書きされ、updated_atは常に更新される。
func (s *SubscriptionService) Save(ctx context.Context, rec model.Record) (model.Record, error) {
	owner, err := s.identity.RequireActiveUser()
	if err != nil {
		return nil, err
	}

	if rec == nil {
		return nil, model.NewValidationError("購読レコードは必須です")
	}

	stored := rec.Clone()
	stored["user_id"] = owner
	stored["updated_at"] = s.now().UTC().Format(time.RFC3339)

	if err := s.store.Put(ctx, schema.Subscription, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

package entity

import (
	"github.com/hitoshi/pitchlog/internal/schema"
	"github.com/hitoshi/pitchlog/internal/store"
)

// Registry は全コレクションのエンティティサービスを束ねる。
// コレクションの集合はスキーマ定義とともにコンパイル時に固定される。
type Registry struct {
	Matches              *Service
	PhysicalMeasurements *Service
	Achievements         *Service
	ClubHistory          *Service
	TrainingCamps        *Service
	PhysicalMetrics      *Service
	References           *Service
	Settings             *SettingsService
	Subscription         *SubscriptionService
	Users                *UserService
}

// NewRegistry は全エンティティサービスを生成して束ねる。
func NewRegistry(st store.Store, ids *Generator, resolver IdentityResolver) *Registry {
	return &Registry{
		Matches:              NewService(st, ids, resolver, schema.Matches),
		PhysicalMeasurements: NewService(st, ids, resolver, schema.PhysicalMeasurements),
		Achievements:         NewService(st, ids, resolver, schema.Achievements),
		ClubHistory:          NewService(st, ids, resolver, schema.ClubHistory),
		TrainingCamps:        NewService(st, ids, resolver, schema.TrainingCamps),
		PhysicalMetrics:      NewService(st, ids, resolver, schema.PhysicalMetrics),
		References:           NewService(st, ids, resolver, schema.References),
		Settings:             NewSettingsService(st, resolver),
		Subscription:         NewSubscriptionService(st, resolver),
		Users:                NewUserService(st, resolver),
	}
}

// Sequences はシーケンスコレクションのサービスをスキーマバージョン順に返す。
func (r *Registry) Sequences() []*Service {
	return []*Service{
		r.Matches,
		r.PhysicalMeasurements,
		r.Achievements,
		r.ClubHistory,
		r.TrainingCamps,
		r.PhysicalMetrics,
		r.References,
	}
}

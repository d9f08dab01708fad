// Package entity はコレクションごとのエンティティ操作を提供する。
package entity

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/pitchlog/internal/schema"
)

// Generator はコレクションごとのプレフィックス付きIDを採番する。
type Generator struct {
	now func() time.Time
}

// NewGenerator はGeneratorの新しいインスタンスを生成する。
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// NewID は <プレフィックス><ミリ秒時刻>_<ランダム8文字> 形式のIDを採番する。
// 時刻成分によりID順がおおむね作成順になり、ランダム成分が同一ミリ秒内の
// 衝突を防ぐ。
func (g *Generator) NewID(col schema.Collection) string {
	return col.IDPrefix + strconv.FormatInt(g.now().UnixMilli(), 10) + "_" + uuid.NewString()[:8]
}

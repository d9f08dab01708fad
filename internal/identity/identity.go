// Package identity はアクティブユーザーの保持と解決を提供する。
//
// アクティブユーザーIDは2つのスコープで保持される。短期スコープは
// TTL付きのインメモリキャッシュ、永続スコープは再起動後も残る
// ステートファイル。読み出しは短期スコープを優先し、失効していた場合は
// 永続スコープから読み直して短期スコープを温め直す。
package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/hitoshi/pitchlog/internal/model"
)

// DefaultTTL は短期スコープの既定の保持期間。
const DefaultTTL = 30 * time.Minute

const cacheKey = "active_user"

// stateFile は永続スコープのファイル形式。
type stateFile struct {
	ActiveUserID string    `json:"active_user_id"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Context はアクティブユーザーの保持と解決を行う。
type Context struct {
	cache *gocache.Cache
	path  string
	mu    sync.Mutex
}

// New はContextを生成する。pathは永続スコープのステートファイルのパス、
// ttlは短期スコープの保持期間を指定する。
func New(path string, ttl time.Duration) *Context {
	return &Context{
		cache: gocache.New(ttl, 10*time.Minute),
		path:  path,
	}
}

// SetActiveUser はアクティブユーザーを両スコープに保存する。
func (c *Context) SetActiveUser(id string) error {
	if id == "" {
		return model.NewValidationError("ユーザーIDは必須です")
	}

	c.cache.Set(cacheKey, id, gocache.DefaultExpiration)

	if err := c.writeState(stateFile{ActiveUserID: id, UpdatedAt: time.Now().UTC()}); err != nil {
		return model.NewStoreIOError("identity", "set", err.Error())
	}
	return nil
}

// ActiveUser は現在のアクティブユーザーIDを返す。
// 短期スコープが失効している場合は永続スコープから読み直し、
// 見つかれば短期スコープを温め直す。どちらにも存在しない場合は空文字列を返す。
func (c *Context) ActiveUser() string {
	if v, ok := c.cache.Get(cacheKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}

	id := c.readState().ActiveUserID
	if id != "" {
		c.cache.Set(cacheKey, id, gocache.DefaultExpiration)
	}
	return id
}

// RequireActiveUser はアクティブユーザーIDを返す。
// 未設定の場合はUnauthenticatedエラーを返す。
func (c *Context) RequireActiveUser() (string, error) {
	id := c.ActiveUser()
	if id == "" {
		return "", model.NewUnauthenticatedError()
	}
	return id, nil
}

// Clear はアクティブユーザーを両スコープから削除する。
func (c *Context) Clear() error {
	c.cache.Delete(cacheKey)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return model.NewStoreIOError("identity", "clear", err.Error())
	}
	return nil
}

// readState は永続スコープを読み出す。ファイルが存在しない場合や
// 壊れている場合は空の状態を返す。
func (c *Context) readState() stateFile {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		return stateFile{}
	}
	var state stateFile
	if err := json.Unmarshal(data, &state); err != nil {
		return stateFile{}
	}
	return state
}

// writeState は永続スコープへ書き込む。途中で落ちても壊れたファイルが
// 残らないよう、一時ファイルに書いてからリネームする。
func (c *Context) writeState(state stateFile) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode identity state: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write identity state: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to replace identity state: %w", err)
	}
	return nil
}

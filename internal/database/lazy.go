package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/hitoshi/pitchlog/internal/schema"
)

// Lazy は初回アクセス時に一度だけデータベースを開く遅延ハンドルを表す。
// 初期化にはマイグレーションの適用を含み、同時に複数のゴルーチンから
// 呼ばれても実行されるのは一度だけ。初期化に失敗した場合は結果が記録され、
// 以降の呼び出しは暗黙に再試行せず同じエラーを返し続ける。
type Lazy struct {
	path string
	once sync.Once

	// mu は初期化中のCloseとの競合からdbとerrを保護する。
	mu  sync.Mutex
	db  *sql.DB
	err error
}

// NewLazy は遅延ハンドルを生成する。この時点ではデータベースを開かない。
func NewLazy(path string) *Lazy {
	return &Lazy{path: path}
}

// DB はデータベース接続を返す。初回呼び出し時にマイグレーション適用込みで開く。
func (l *Lazy) DB() (*sql.DB, error) {
	l.once.Do(func() {
		db, err := openAndMigrate(l.path)
		l.mu.Lock()
		l.db, l.err = db, err
		l.mu.Unlock()
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return l.db, nil
}

// Ping はデータベースへの疎通を確認する。未初期化の場合は初期化も行う。
func (l *Lazy) Ping(ctx context.Context) error {
	db, err := l.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close は接続が開かれていれば閉じる。未初期化の場合は何もしない。
// 初回のDBと並行して呼ばれても安全で、初期化中の接続を閉じ損ねることはあっても
// 不整合な状態を読むことはない。
func (l *Lazy) Close() error {
	l.mu.Lock()
	db := l.db
	l.mu.Unlock()

	if db == nil {
		return nil
	}
	return db.Close()
}

// openAndMigrate はコードが要求するスキーマバージョンまでマイグレーションを
// 適用したうえでデータベースを開く。適用済みバージョンが要求以上の場合は
// スキーマに触れない。
func openAndMigrate(path string) (*sql.DB, error) {
	if err := MigrateTo(path, schema.Version); err != nil {
		return nil, err
	}

	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Data
	DataDir      string // データファイルを配置するディレクトリ
	DatabasePath string // SQLiteデータファイルのパス

	// Identity
	IdentityTTL time.Duration // アクティブユーザーの短期スコープの保持期間

	// Server
	ServerPort string

	// CORS
	// 許可するオリジン。カンマ区切りで複数指定できる。
	CORSAllowedOrigin string

	// Fallback
	// ルーティング表に載らないリクエストの転送先。空の場合は転送せず404を返す。
	RemoteAPIURL string

	// Rate Limit
	RateLimitGeneral int // API全般のレート（req/min）
	RateLimitImport  int // インポートのレート（req/min）

	// Backup
	BackupInterval  time.Duration // バックアップの実行間隔。0の場合は無効
	BackupRetention int           // 保持するバックアップファイル数
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envファイルがあれば先に読み込む。
// すべての項目に既定値があり、値が不正な場合のみエラーを返す。
func Load() (*Config, error) {
	// .envファイルは任意。存在しなくてもエラーにしない。
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.DataDir = getEnvString("PITCHLOG_DATA_DIR", "data")
	cfg.DatabasePath = getEnvString("PITCHLOG_DB_PATH", filepath.Join(cfg.DataDir, "pitchlog.db"))
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.IdentityTTL = getEnvDuration("IDENTITY_TTL", 30*time.Minute)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitImport = getEnvInt("RATE_LIMIT_IMPORT", 10)
	cfg.BackupInterval = getEnvDuration("BACKUP_INTERVAL", 24*time.Hour)
	cfg.BackupRetention = getEnvInt("BACKUP_RETENTION", 7)

	cfg.RemoteAPIURL = os.Getenv("REMOTE_API_URL")
	if cfg.RemoteAPIURL != "" {
		u, err := url.Parse(cfg.RemoteAPIURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("REMOTE_API_URL must be an absolute URL: %q", cfg.RemoteAPIURL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("REMOTE_API_URL scheme must be http or https: %q", cfg.RemoteAPIURL)
		}
	}

	if cfg.IdentityTTL <= 0 {
		return nil, fmt.Errorf("IDENTITY_TTL must be positive: %v", cfg.IdentityTTL)
	}
	if cfg.BackupRetention < 1 {
		return nil, fmt.Errorf("BACKUP_RETENTION must be at least 1: %d", cfg.BackupRetention)
	}

	return cfg, nil
}

// IdentityStatePath はアクティブユーザーの永続スコープのファイルパスを返す。
func (c *Config) IdentityStatePath() string {
	return filepath.Join(c.DataDir, "identity.json")
}

// BackupDir はバックアップファイルを配置するディレクトリを返す。
func (c *Config) BackupDir() string {
	return filepath.Join(c.DataDir, "backups")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

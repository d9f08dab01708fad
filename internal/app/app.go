// Package app はアプリケーションの初期化・起動・サブコマンド実行を提供する。
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/pitchlog/internal/config"
	"github.com/hitoshi/pitchlog/internal/database"
	"github.com/hitoshi/pitchlog/internal/entity"
	"github.com/hitoshi/pitchlog/internal/handler"
	"github.com/hitoshi/pitchlog/internal/identity"
	"github.com/hitoshi/pitchlog/internal/logger"
	"github.com/hitoshi/pitchlog/internal/metrics"
	"github.com/hitoshi/pitchlog/internal/middleware"
	"github.com/hitoshi/pitchlog/internal/stats"
	"github.com/hitoshi/pitchlog/internal/store"
	"github.com/hitoshi/pitchlog/internal/transfer"
	"github.com/hitoshi/pitchlog/internal/worker/backup"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数でConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting pitchlog",
		slog.String("command", string(cmd)),
		slog.String("data_dir", cfg.DataDir),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandExport:
		return runExport(cfg, args[1:])
	case CommandImport:
		return runImport(cfg, args[1:])
	case CommandBackup:
		return runBackup(cfg)
	default:
		return runServe(cfg)
	}
}

// services はサブコマンド間で共有するコアサービス群。
type services struct {
	lazy     *database.Lazy
	identity *identity.Context
	registry *entity.Registry
	stats    *stats.Service
	transfer *transfer.Service
}

// buildServices は遅延ストアハンドルの上に全サービスをワイヤリングする。
// collectorがnilでない場合はストア操作を計測する。この時点では
// データベースを開かず、最初のストアアクセスで初期化される。
func buildServices(cfg *config.Config, collector *metrics.Collector) *services {
	lazy := database.NewLazy(cfg.DatabasePath)
	idCtx := identity.New(cfg.IdentityStatePath(), cfg.IdentityTTL)

	var st store.Store = store.NewSQLiteStore(lazy)
	if collector != nil {
		st = store.NewInstrumentedStore(st, collector)
	}

	registry := entity.NewRegistry(st, entity.NewGenerator(), idCtx)

	return &services{
		lazy:     lazy,
		identity: idCtx,
		registry: registry,
		stats:    stats.NewService(registry.Matches),
		transfer: transfer.NewService(registry, idCtx),
	}
}

// runServe は互換APIサーバーモードで起動する。
// ストアを開いてマイグレーションを適用し、全依存関係をワイヤリングして
// HTTPサーバーを起動する。バックアップスケジューラも合わせて起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. フォールバック先の検証（サーバー起動前に設定エラーを検出する）
	var fallback http.Handler
	if cfg.RemoteAPIURL != "" {
		target, err := url.Parse(cfg.RemoteAPIURL)
		if err != nil {
			return fmt.Errorf("invalid remote API URL: %w", err)
		}
		fallback = handler.NewProxyFallback(target)
		slog.Info("fallback proxy enabled", slog.String("target", cfg.RemoteAPIURL))
	}

	// 2. メトリクスとサービス群のワイヤリング
	promRegistry := prometheus.NewRegistry()
	collector := metrics.NewCollector(promRegistry)

	svcs := buildServices(cfg, collector)
	defer svcs.lazy.Close()

	// 3. ストアを開く。マイグレーション適用を含み、開けない場合は
	//    致命的エラーとして起動を中止する（暗黙の再試行はしない）。
	if err := svcs.lazy.Ping(context.Background()); err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	slog.Info("store opened", slog.String("path", cfg.DatabasePath))

	// 4. レート制限（設定はreq/min単位、rate.Limitはreq/sec単位）
	rlCfg := middleware.DefaultRateLimiterConfig()
	rlCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rlCfg.GeneralBurst = cfg.RateLimitGeneral
	rlCfg.ImportRate = rate.Limit(float64(cfg.RateLimitImport) / 60.0)
	rlCfg.ImportBurst = cfg.RateLimitImport
	rateLimiter := middleware.NewRateLimiter(rlCfg)
	defer rateLimiter.Stop()

	// 5. ルーターの構築
	deps := &handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),

		Identity: svcs.identity,
		Session:  svcs.identity,
		Users:    svcs.registry.Users,

		Matches:  svcs.registry.Matches,
		Settings: svcs.registry.Settings,
		Kinds: handler.EntityKinds{
			Achievements:         svcs.registry.Achievements,
			ClubHistory:          svcs.registry.ClubHistory,
			TrainingCamps:        svcs.registry.TrainingCamps,
			PhysicalMetrics:      svcs.registry.PhysicalMetrics,
			PhysicalMeasurements: svcs.registry.PhysicalMeasurements,
		},

		Stats:    svcs.stats,
		Transfer: svcs.transfer,

		Health:         svcs.lazy,
		Metrics:        metrics.Handler(promRegistry),
		StatusRecorder: collector,

		Fallback: fallback,
	}

	router := handler.NewRouter(deps)

	// 6. バックアップスケジューラの起動
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.BackupInterval > 0 {
		job := backup.NewJob(svcs.transfer, svcs.registry.Users, slog.Default(), cfg.BackupDir())
		job.Retention = cfg.BackupRetention
		job.SetRecorder(collector)
		go job.Start(ctx, cfg.BackupInterval)

		slog.Info("backup scheduler started",
			slog.Duration("interval", cfg.BackupInterval),
			slog.Int("retention", cfg.BackupRetention),
		)
	}

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はストアのマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running store migrations", slog.String("path", cfg.DatabasePath))

	if err := database.RunMigrations(cfg.DatabasePath); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, err := database.CurrentVersion(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	slog.Info("store migrations completed successfully",
		slog.Uint64("version", uint64(version)),
	)
	return nil
}

// runExport は指定ユーザーの全データをエクスポート文書としてファイルに書き出す。
// 使い方: pitchlog export <user-id> <file>
func runExport(cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: pitchlog export <user-id> <file>")
	}
	userID, path := args[0], args[1]

	svcs := buildServices(cfg, nil)
	defer svcs.lazy.Close()

	doc, err := svcs.transfer.ExportFor(context.Background(), userID)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export document: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}

	slog.Info("export completed",
		slog.String("user_id", userID),
		slog.String("file", path),
	)
	return nil
}

// runImport はエクスポート文書を指定ユーザーのデータとして取り込む。
// 取り込みはトランザクションで保護されないため、途中で失敗した場合は
// それまでに保存したレコードが残る。
// 使い方: pitchlog import <user-id> <file>
func runImport(cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: pitchlog import <user-id> <file>")
	}
	userID, path := args[0], args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	doc, err := transfer.ParseDocument(data)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	svcs := buildServices(cfg, nil)
	defer svcs.lazy.Close()

	summary, err := svcs.transfer.ImportFor(context.Background(), userID, doc)
	if err != nil {
		return fmt.Errorf("import failed (records saved before the failure are kept): %w", err)
	}

	total := 0
	for _, n := range summary.Imported {
		total += n
	}
	slog.Info("import completed",
		slog.String("user_id", userID),
		slog.Int("records", total),
		slog.Int("skipped", summary.Skipped),
		slog.Bool("settings", summary.Settings),
	)
	return nil
}

// runBackup は全ユーザーのバックアップを1回実行する。
func runBackup(cfg *config.Config) error {
	svcs := buildServices(cfg, nil)
	defer svcs.lazy.Close()

	job := backup.NewJob(svcs.transfer, svcs.registry.Users, slog.Default(), cfg.BackupDir())
	job.Retention = cfg.BackupRetention

	return job.Run(context.Background())
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

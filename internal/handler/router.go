package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pitchlog/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 識別コンテキスト
	Identity ActiveUserReader
	Session  SessionManagerInterface
	Users    UserRecorder

	// エンティティサービス
	Matches  MatchServiceInterface
	Settings SettingsServiceInterface
	Kinds    EntityKinds

	// 統計・エクスポート
	Stats    StatsServiceInterface
	Transfer TransferServiceInterface

	// 運用系
	Health         HealthChecker
	Metrics        http.Handler
	StatusRecorder middleware.HTTPStatusRecorder

	// 表に載らないリクエストの委譲先。nilの場合はJSONの404を返す。
	Fallback http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics → RateLimit(GeneralMiddleware)
//
// ルーティング表に載らないパス・メソッドはすべてフォールバックハンドラーへ委譲する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	if deps.Logger != nil {
		activeUser := func() string { return "" }
		if deps.Identity != nil {
			activeUser = deps.Identity.ActiveUser
		}
		r.Use(middleware.NewLoggingMiddleware(deps.Logger, activeUser))
	}

	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}

	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.GeneralMiddleware())
	}

	fallback := deps.Fallback
	if fallback == nil {
		fallback = NotHandledFallback()
	}

	matchHandler := NewMatchHandler(deps.Matches, deps.Identity)
	settingsHandler := NewSettingsHandler(deps.Settings)
	entityHandler := NewEntityHandler(deps.Kinds, fallback)
	statsHandler := NewStatsHandler(deps.Stats)
	sessionHandler := NewSessionHandler(deps.Session, deps.Users)
	transferHandler := NewTransferHandler(deps.Transfer)
	healthHandler := NewHealthHandler(deps.Health)

	// 試合管理
	r.Route("/matches", func(r chi.Router) {
		r.Get("/", matchHandler.List)
		r.Post("/", matchHandler.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", matchHandler.Get)
			r.Put("/", matchHandler.Update)
			r.Delete("/", matchHandler.Delete)
		})
	})

	// 設定
	r.Route("/settings", func(r chi.Router) {
		r.Get("/", settingsHandler.Get)
		r.Post("/", settingsHandler.Save)
	})

	// 汎用エンティティ（achievements / club-history / training-camps /
	// physical-metrics / physical-measurements）
	r.Route("/api/{kind}", func(r chi.Router) {
		r.Get("/", entityHandler.List)
		r.Post("/", entityHandler.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Put("/", entityHandler.Update)
			r.Delete("/", entityHandler.Delete)
		})
	})

	// 統計
	r.Get("/stats", statsHandler.Summary)

	// エクスポート・インポート
	r.Get("/export", transferHandler.Export)
	if deps.RateLimiter != nil {
		r.With(deps.RateLimiter.ImportMiddleware()).Post("/import", transferHandler.Import)
	} else {
		r.Post("/import", transferHandler.Import)
	}

	// セッション（識別コンテキスト）
	r.Route("/session", func(r chi.Router) {
		r.Get("/", sessionHandler.Current)
		r.Post("/", sessionHandler.Start)
		r.Delete("/", sessionHandler.End)
	})

	// 運用系
	r.Get("/health", healthHandler.Check)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	// 表に載らないリクエストはフォールバックへ
	r.NotFound(fallback.ServeHTTP)
	r.MethodNotAllowed(fallback.ServeHTTP)

	return r
}

package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/pitchlog/internal/middleware"
	"github.com/hitoshi/pitchlog/internal/model"
)

// newTestRouterDeps は全ハンドラーにモックを割り当てたRouterDepsを生成する。
func newTestRouterDeps() *RouterDeps {
	entitySvc := &mockEntityService{
		listFn: func(ctx context.Context) ([]model.Record, error) {
			return []model.Record{{"id": "rec_1", "user_id": "user-1"}}, nil
		},
	}

	return &RouterDeps{
		CORSAllowedOrigin: "http://localhost:3000",
		Identity:          &mockActiveUserReader{userID: "user-1"},
		Session:           &mockSessionManager{userID: "user-1"},
		Users:             &mockUserRecorder{},
		Matches: &mockMatchService{
			listFn: func(ctx context.Context) ([]model.Record, error) {
				return []model.Record{{"id": "match_1", "user_id": "user-1"}}, nil
			},
			getFn: func(ctx context.Context, id string) (model.Record, error) {
				if id == "match_1" {
					return model.Record{"id": "match_1", "user_id": "user-1"}, nil
				}
				return nil, nil
			},
		},
		Settings: &mockSettingsService{},
		Kinds: EntityKinds{
			Achievements:         entitySvc,
			ClubHistory:          entitySvc,
			TrainingCamps:        entitySvc,
			PhysicalMetrics:      entitySvc,
			PhysicalMeasurements: entitySvc,
		},
		Stats:    &mockStatsService{},
		Transfer: &mockTransferService{},
		Health:   &mockHealthChecker{},
	}
}

// serveRequest はルーター経由でリクエストを処理するヘルパー。
func serveRequest(t *testing.T, router http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestRouter_DispatchTable はルーティング表の各エントリが対応する
// ハンドラーへ到達することを検証する。
func TestRouter_DispatchTable(t *testing.T) {
	router := NewRouter(newTestRouterDeps())

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantField  string
	}{
		{"list matches", http.MethodGet, "/matches", "", http.StatusOK, "matches"},
		{"create match", http.MethodPost, "/matches", `{"opposition": "Riverside FC"}`, http.StatusCreated, "match"},
		{"get match", http.MethodGet, "/matches/match_1", "", http.StatusOK, "match"},
		{"update match", http.MethodPut, "/matches/match_1", `{"opposition": "X"}`, http.StatusOK, "match"},
		{"delete match", http.MethodDelete, "/matches/match_1", "", http.StatusOK, ""},
		{"get settings", http.MethodGet, "/settings", "", http.StatusOK, "settings"},
		{"save settings", http.MethodPost, "/settings", `{"player_name": "Brodie"}`, http.StatusOK, "settings"},
		{"list achievements", http.MethodGet, "/api/achievements", "", http.StatusOK, "achievements"},
		{"create achievement", http.MethodPost, "/api/achievements", `{"title": "MOTM"}`, http.StatusCreated, "achievement"},
		{"list club history", http.MethodGet, "/api/club-history", "", http.StatusOK, "club_history"},
		{"update training camp", http.MethodPut, "/api/training-camps/camp_1", `{"location": "Alicante"}`, http.StatusOK, "training_camp"},
		{"delete physical metric", http.MethodDelete, "/api/physical-metrics/metric_1", "", http.StatusOK, ""},
		{"list physical measurements", http.MethodGet, "/api/physical-measurements", "", http.StatusOK, "physical_measurements"},
		{"stats", http.MethodGet, "/stats?period=all_time", "", http.StatusOK, "stats"},
		{"export", http.MethodGet, "/export", "", http.StatusOK, "export"},
		{"import", http.MethodPost, "/import", `{"matches": []}`, http.StatusOK, "import"},
		{"current session", http.MethodGet, "/session", "", http.StatusOK, "session"},
		{"start session", http.MethodPost, "/session", `{"user_id": "user-1"}`, http.StatusOK, "session"},
		{"end session", http.MethodDelete, "/session", "", http.StatusOK, ""},
		{"health", http.MethodGet, "/health", "", http.StatusOK, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveRequest(t, router, tt.method, tt.path, tt.body)

			if w.Result().StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body: %s)", w.Result().StatusCode, tt.wantStatus, w.Body.String())
			}

			body := parseEnvelope(t, w)
			if body["success"] != true {
				t.Errorf("success = %v, want true", body["success"])
			}
			if tt.wantField != "" {
				if _, ok := body[tt.wantField]; !ok {
					t.Errorf("expected %q field in response: %v", tt.wantField, body)
				}
			}
		})
	}
}

// TestRouter_UnhandledRequests_FallToFallback は表に載らないリクエストが
// フォールバックへ委譲されることを検証する。
func TestRouter_UnhandledRequests_FallToFallback(t *testing.T) {
	router := NewRouter(newTestRouterDeps())

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"unknown path", http.MethodGet, "/api/v2/teams/123/players"},
		{"unknown kind", http.MethodGet, "/api/transfers"},
		{"unsupported method on matches", http.MethodPatch, "/matches/match_1"},
		{"unsupported method on settings", http.MethodDelete, "/settings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveRequest(t, router, tt.method, tt.path, "")

			if w.Result().StatusCode != http.StatusNotFound {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
			}
			assertErrorEnvelope(t, w, "ROUTE_NOT_HANDLED")
		})
	}
}

// TestRouter_CustomFallback_ReceivesUnhandled はフォールバックハンドラーを
// 差し替えた場合に未対応リクエストがそこへ流れることを検証する。
func TestRouter_CustomFallback_ReceivesUnhandled(t *testing.T) {
	fallback := &recordingFallback{}
	deps := newTestRouterDeps()
	deps.Fallback = fallback
	router := NewRouter(deps)

	w := serveRequest(t, router, http.MethodGet, "/api/v2/anything", "")

	if !fallback.called {
		t.Error("expected fallback to be called")
	}
	if w.Result().StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want fallback status %d", w.Result().StatusCode, http.StatusBadGateway)
	}
}

// TestRouter_SecurityAndCORSHeaders はミドルウェアチェーンが全ルートに
// 適用されることをヘッダーで検証する。
func TestRouter_SecurityAndCORSHeaders(t *testing.T) {
	router := NewRouter(newTestRouterDeps())

	w := serveRequest(t, router, http.MethodGet, "/health", "")

	headers := w.Result().Header
	if got := headers.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", got, "nosniff")
	}
	if got := headers.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:3000")
	}
}

// TestRouter_PreflightRequest はOPTIONSプリフライトが204で応答されることを検証する。
func TestRouter_PreflightRequest(t *testing.T) {
	router := NewRouter(newTestRouterDeps())

	w := serveRequest(t, router, http.MethodOptions, "/matches", "")

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
}

// TestRouter_ImportRateLimit はインポート専用のレート制限が独立して
// 効くことを検証する。
func TestRouter_ImportRateLimit(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(1000),
		GeneralBurst:    1000,
		ImportRate:      rate.Limit(0.001),
		ImportBurst:     1,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	deps := newTestRouterDeps()
	deps.RateLimiter = rl
	router := NewRouter(deps)

	first := serveRequest(t, router, http.MethodPost, "/import", `{"matches": []}`)
	if first.Result().StatusCode != http.StatusOK {
		t.Fatalf("first import status = %d, want %d", first.Result().StatusCode, http.StatusOK)
	}

	second := serveRequest(t, router, http.MethodPost, "/import", `{"matches": []}`)
	if second.Result().StatusCode != http.StatusTooManyRequests {
		t.Errorf("second import status = %d, want %d", second.Result().StatusCode, http.StatusTooManyRequests)
	}
	if second.Result().Header.Get("Retry-After") == "" {
		t.Error("expected Retry-After header on rate limited response")
	}

	// インポート制限に達してもAPI全般は影響を受けない
	general := serveRequest(t, router, http.MethodGet, "/matches", "")
	if general.Result().StatusCode != http.StatusOK {
		t.Errorf("general request status = %d, want %d", general.Result().StatusCode, http.StatusOK)
	}
}

// TestRouter_MetricsRoute はメトリクスハンドラーが/metricsに
// マウントされることを検証する。
func TestRouter_MetricsRoute(t *testing.T) {
	deps := newTestRouterDeps()
	deps.Metrics = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("# HELP pitchlog_store_operations_total\n"))
	})
	router := NewRouter(deps)

	w := serveRequest(t, router, http.MethodGet, "/metrics", "")

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("pitchlog_store_operations_total")) {
		t.Errorf("body = %q, want metrics output", w.Body.String())
	}
}

// TestRouter_PanicRecovery はハンドラーのpanicが500エンベロープに
// 変換されることを検証する。
func TestRouter_PanicRecovery(t *testing.T) {
	deps := newTestRouterDeps()
	deps.Matches = &mockMatchService{
		listFn: func(ctx context.Context) ([]model.Record, error) {
			panic("unexpected state")
		},
	}
	router := NewRouter(deps)

	w := serveRequest(t, router, http.MethodGet, "/matches", "")

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}
	assertErrorEnvelope(t, w, "INTERNAL_ERROR")
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pitchlog/internal/model"
)

// --- モック定義 ---

// mockMatchService はMatchServiceInterfaceのモック実装。
type mockMatchService struct {
	listFn   func(ctx context.Context) ([]model.Record, error)
	getFn    func(ctx context.Context, id string) (model.Record, error)
	saveFn   func(ctx context.Context, rec model.Record) (model.Record, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockMatchService) List(ctx context.Context) ([]model.Record, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []model.Record{}, nil
}

func (m *mockMatchService) Get(ctx context.Context, id string) (model.Record, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

func (m *mockMatchService) Save(ctx context.Context, rec model.Record) (model.Record, error) {
	if m.saveFn != nil {
		return m.saveFn(ctx, rec)
	}
	return rec, nil
}

func (m *mockMatchService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockActiveUserReader はActiveUserReaderのモック実装。
type mockActiveUserReader struct {
	userID string
}

func (m *mockActiveUserReader) ActiveUser() string {
	return m.userID
}

// --- テストヘルパー ---

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseEnvelope はレスポンスボディをエンベロープとしてパースするヘルパー。
func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

// assertErrorEnvelope はエラーエンベロープの形式とコードを検証するヘルパー。
func assertErrorEnvelope(t *testing.T, w *httptest.ResponseRecorder, wantCode string) {
	t.Helper()
	body := parseEnvelope(t, w)
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
	if body["code"] != wantCode {
		t.Errorf("code = %v, want %q", body["code"], wantCode)
	}
	if body["category"] == "" || body["category"] == nil {
		t.Error("expected category in error response")
	}
	if body["action"] == "" || body["action"] == nil {
		t.Error("expected action in error response")
	}
}

// --- GET /matches テスト ---

func TestMatchHandler_List_Success(t *testing.T) {
	svc := &mockMatchService{
		listFn: func(ctx context.Context) ([]model.Record, error) {
			return []model.Record{
				{"id": "match_1", "opposition": "Riverside FC"},
				{"id": "match_2", "opposition": "Harbour United"},
			}, nil
		},
	}
	h := NewMatchHandler(svc, &mockActiveUserReader{userID: "user-1"})

	req := httptest.NewRequest(http.MethodGet, "/matches", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	body := parseEnvelope(t, w)
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	matches, ok := body["matches"].([]any)
	if !ok {
		t.Fatalf("matches is not an array: %T", body["matches"])
	}
	if len(matches) != 2 {
		t.Errorf("len(matches) = %d, want 2", len(matches))
	}
}

func TestMatchHandler_List_EmptyReturnsArray(t *testing.T) {
	h := NewMatchHandler(&mockMatchService{}, &mockActiveUserReader{})

	req := httptest.NewRequest(http.MethodGet, "/matches", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	// 空でもnullではなく[]を返す
	if got := w.Body.String(); !bytes.Contains([]byte(got), []byte(`"matches":[]`)) {
		t.Errorf("body = %s, want matches to be an empty array", got)
	}
}

func TestMatchHandler_List_StoreUnavailable_Returns503(t *testing.T) {
	svc := &mockMatchService{
		listFn: func(ctx context.Context) ([]model.Record, error) {
			return nil, model.NewStoreUnavailableError("database is locked")
		},
	}
	h := NewMatchHandler(svc, &mockActiveUserReader{userID: "user-1"})

	req := httptest.NewRequest(http.MethodGet, "/matches", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Result().StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusServiceUnavailable)
	}
	assertErrorEnvelope(t, w, model.ErrCodeStoreUnavailable)
}

// --- POST /matches テスト ---

func TestMatchHandler_Create_Success(t *testing.T) {
	svc := &mockMatchService{
		saveFn: func(ctx context.Context, rec model.Record) (model.Record, error) {
			if rec.String("opposition") != "Riverside FC" {
				t.Errorf("opposition = %q, want %q", rec.String("opposition"), "Riverside FC")
			}
			saved := rec.Clone()
			saved["id"] = "match_1700000000000_abcd1234"
			saved["user_id"] = "user-1"
			return saved, nil
		},
	}
	h := NewMatchHandler(svc, &mockActiveUserReader{userID: "user-1"})

	body := `{"opposition": "Riverside FC", "date": "05 Mar 2024"}`
	req := httptest.NewRequest(http.MethodPost, "/matches", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}

	respBody := parseEnvelope(t, w)
	if respBody["success"] != true {
		t.Errorf("success = %v, want true", respBody["success"])
	}
	match, ok := respBody["match"].(map[string]any)
	if !ok {
		t.Fatalf("match is not an object: %T", respBody["match"])
	}
	if match["id"] != "match_1700000000000_abcd1234" {
		t.Errorf("id = %v, want assigned id", match["id"])
	}
}

func TestMatchHandler_Create_InvalidJSON_ReturnsBadRequest(t *testing.T) {
	h := NewMatchHandler(&mockMatchService{}, &mockActiveUserReader{userID: "user-1"})

	req := httptest.NewRequest(http.MethodPost, "/matches", bytes.NewBufferString(`{invalid`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
	assertErrorEnvelope(t, w, model.ErrCodeValidation)
}

func TestMatchHandler_Create_Unauthenticated_Returns401(t *testing.T) {
	svc := &mockMatchService{
		saveFn: func(ctx context.Context, rec model.Record) (model.Record, error) {
			return nil, model.NewUnauthenticatedError()
		},
	}
	h := NewMatchHandler(svc, &mockActiveUserReader{})

	req := httptest.NewRequest(http.MethodPost, "/matches", bytes.NewBufferString(`{"opposition": "X"}`))
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
	assertErrorEnvelope(t, w, model.ErrCodeUnauthenticated)
}

// --- GET /matches/{id} テスト ---

func TestMatchHandler_Get_Owned_ReturnsMatch(t *testing.T) {
	svc := &mockMatchService{
		getFn: func(ctx context.Context, id string) (model.Record, error) {
			if id != "match_1" {
				t.Errorf("id = %q, want %q", id, "match_1")
			}
			return model.Record{"id": "match_1", "user_id": "user-1", "opposition": "Riverside FC"}, nil
		},
	}
	h := NewMatchHandler(svc, &mockActiveUserReader{userID: "user-1"})

	req := httptest.NewRequest(http.MethodGet, "/matches/match_1", nil)
	req = withChiURLParam(req, "id", "match_1")
	w := httptest.NewRecorder()

	h.Get(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	body := parseEnvelope(t, w)
	match, ok := body["match"].(map[string]any)
	if !ok {
		t.Fatalf("match is not an object: %T", body["match"])
	}
	if match["opposition"] != "Riverside FC" {
		t.Errorf("opposition = %v, want %q", match["opposition"], "Riverside FC")
	}
}

func TestMatchHandler_Get_Missing_Returns404(t *testing.T) {
	h := NewMatchHandler(&mockMatchService{}, &mockActiveUserReader{userID: "user-1"})

	req := httptest.NewRequest(http.MethodGet, "/matches/match_none", nil)
	req = withChiURLParam(req, "id", "match_none")
	w := httptest.NewRecorder()

	h.Get(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
	assertErrorEnvelope(t, w, model.ErrCodeRecordNotFound)
}

// 他ユーザーの試合は存在しない場合と区別できない404を返す。
func TestMatchHandler_Get_ForeignOwner_Returns404(t *testing.T) {
	svc := &mockMatchService{
		getFn: func(ctx context.Context, id string) (model.Record, error) {
			return model.Record{"id": "match_1", "user_id": "someone-else"}, nil
		},
	}
	h := NewMatchHandler(svc, &mockActiveUserReader{userID: "user-1"})

	req := httptest.NewRequest(http.MethodGet, "/matches/match_1", nil)
	req = withChiURLParam(req, "id", "match_1")
	w := httptest.NewRecorder()

	h.Get(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
	assertErrorEnvelope(t, w, model.ErrCodeRecordNotFound)
}

func TestMatchHandler_Get_NoIdentity_Returns404(t *testing.T) {
	svc := &mockMatchService{
		getFn: func(ctx context.Context, id string) (model.Record, error) {
			return model.Record{"id": "match_1", "user_id": "user-1"}, nil
		},
	}
	h := NewMatchHandler(svc, &mockActiveUserReader{})

	req := httptest.NewRequest(http.MethodGet, "/matches/match_1", nil)
	req = withChiURLParam(req, "id", "match_1")
	w := httptest.NewRecorder()

	h.Get(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

// --- PUT /matches/{id} テスト ---

func TestMatchHandler_Update_OverridesBodyID(t *testing.T) {
	var savedID string
	svc := &mockMatchService{
		saveFn: func(ctx context.Context, rec model.Record) (model.Record, error) {
			savedID = rec.ID()
			return rec, nil
		},
	}
	h := NewMatchHandler(svc, &mockActiveUserReader{userID: "user-1"})

	// ボディのidはURLのidで上書きされる
	body := `{"id": "match_other", "opposition": "Harbour United"}`
	req := httptest.NewRequest(http.MethodPut, "/matches/match_1", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "match_1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if savedID != "match_1" {
		t.Errorf("saved id = %q, want %q", savedID, "match_1")
	}
}

// --- DELETE /matches/{id} テスト ---

func TestMatchHandler_Delete_Success(t *testing.T) {
	var deletedID string
	svc := &mockMatchService{
		deleteFn: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	h := NewMatchHandler(svc, &mockActiveUserReader{userID: "user-1"})

	req := httptest.NewRequest(http.MethodDelete, "/matches/match_1", nil)
	req = withChiURLParam(req, "id", "match_1")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if deletedID != "match_1" {
		t.Errorf("deleted id = %q, want %q", deletedID, "match_1")
	}

	// DELETEの成功レスポンスはsuccessのみ
	body := parseEnvelope(t, w)
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if len(body) != 1 {
		t.Errorf("body has %d fields, want 1: %v", len(body), body)
	}
}

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"eagleeye/api/internal/config"
	"eagleeye/api/internal/rbac"
	"eagleeye/api/internal/store"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-password"
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:     "test-secret",
		AccessTTL:     time.Hour,
		CORSOrigin:    "*",
		DefaultState:  "GA",
		AdminEmail:    adminEmail,
		AdminPassword: adminPassword,
		ExportURLTTL:  time.Hour,
	}
}

func newSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	ctx := context.Background()
	db, err := store.OpenSQLite(ctx, "sqlite://"+filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s := store.NewSQLiteStore(db)
	if err := s.CreateSchema(ctx); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return s
}

// newTestService returns a bootstrapped service over a fresh SQLite database.
func newTestService(t *testing.T, deps Dependencies) (*Service, *store.SQLiteStore) {
	t.Helper()
	s := newSQLiteStore(t)
	svc := New(testConfig(), s, deps)
	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	return svc, s
}

func ensureUser(t *testing.T, svc *Service, email string, role rbac.Role) {
	t.Helper()
	if err := svc.passwords.EnsureUser(context.Background(), email, string(role), "password-123", role); err != nil {
		t.Fatalf("EnsureUser(%s) error = %v", email, err)
	}
}

func signIn(t *testing.T, handler http.Handler, email, password string) string {
	t.Helper()
	rr := doJSON(t, handler, http.MethodPost, "/api/auth/sign-in", "", map[string]string{"email": email, "password": password})
	if rr.Code != http.StatusOK {
		t.Fatalf("sign in %s: status %d body=%s", email, rr.Code, rr.Body.String())
	}
	payload := decodeMap(t, rr)
	token, _ := payload["accessToken"].(string)
	if token == "" {
		t.Fatalf("sign in %s: missing accessToken", email)
	}
	return token
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v body=%s", err, rr.Body.String())
	}
	return payload
}

func decodeItems(t *testing.T, rr *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var payload struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v body=%s", err, rr.Body.String())
	}
	return payload.Items
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d body=%s", want, rr.Code, rr.Body.String())
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

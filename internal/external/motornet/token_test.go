package motornet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/VMAzure/azurenet-engine/pkg/interfaces"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func (l nopLogger) WithFields(...interfaces.LogField) interfaces.LoggerPort { return l }
func (l nopLogger) WithField(string, interface{}) interfaces.LoggerPort     { return l }

func (nopLogger) Sync() error { return nil }

// tokenServer считает обмены по типам грантов
type tokenServer struct {
	srv           *httptest.Server
	passwordCalls int
	refreshCalls  int
	failRefresh   bool
}

func newTokenServer(t *testing.T) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}

		switch r.PostForm.Get("grant_type") {
		case "password":
			ts.passwordCalls++
		case "refresh_token":
			ts.refreshCalls++
			if ts.failRefresh {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
		default:
			t.Errorf("unexpected grant_type %q", r.PostForm.Get("grant_type"))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":       "access-" + r.PostForm.Get("grant_type"),
			"token_type":         "bearer",
			"expires_in":         300,
			"refresh_token":      "refresh-" + r.PostForm.Get("grant_type"),
			"refresh_expires_in": 1800,
		})
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func newTestTokenCache(ts *tokenServer) *TokenCache {
	return NewTokenCache(AuthConfig{
		TokenURL: ts.srv.URL,
		ClientID: "webservice",
		Username: "user",
		Password: "pass",
	}, ts.srv.Client(), nopLogger{})
}

func TestTokenLoginOnFirstUse(t *testing.T) {
	ts := newTokenServer(t)
	tc := newTestTokenCache(ts)

	token, err := tc.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token != "access-password" {
		t.Errorf("token = %q, want access-password", token)
	}
	if ts.passwordCalls != 1 || ts.refreshCalls != 0 {
		t.Errorf("calls = %d password / %d refresh, want 1/0", ts.passwordCalls, ts.refreshCalls)
	}
}

func TestTokenFastPathNoNetwork(t *testing.T) {
	ts := newTokenServer(t)
	tc := newTestTokenCache(ts)

	if _, err := tc.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}

	// Живой токен отдаётся без новых обменов
	for i := 0; i < 5; i++ {
		if _, err := tc.Token(context.Background()); err != nil {
			t.Fatalf("Token: %v", err)
		}
	}
	if ts.passwordCalls != 1 || ts.refreshCalls != 0 {
		t.Errorf("calls = %d password / %d refresh, want 1/0", ts.passwordCalls, ts.refreshCalls)
	}
}

func TestTokenRefreshOnAccessExpiry(t *testing.T) {
	ts := newTokenServer(t)
	tc := newTestTokenCache(ts)

	if _, err := tc.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}

	// Access token истёк, refresh ещё жив
	tc.now = func() time.Time { return time.Now().Add(400 * time.Second) }

	token, err := tc.Token(context.Background())
	if err != nil {
		t.Fatalf("Token after expiry: %v", err)
	}
	if token != "access-refresh_token" {
		t.Errorf("token = %q, want access-refresh_token", token)
	}
	if ts.passwordCalls != 1 || ts.refreshCalls != 1 {
		t.Errorf("calls = %d password / %d refresh, want 1/1", ts.passwordCalls, ts.refreshCalls)
	}
}

func TestTokenReloginWhenRefreshExpired(t *testing.T) {
	ts := newTokenServer(t)
	tc := newTestTokenCache(ts)

	if _, err := tc.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}

	// Истекли оба токена: рефреш невозможен, нужен полный login
	tc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := tc.Token(context.Background()); err != nil {
		t.Fatalf("Token after full expiry: %v", err)
	}
	if ts.passwordCalls != 2 || ts.refreshCalls != 0 {
		t.Errorf("calls = %d password / %d refresh, want 2/0", ts.passwordCalls, ts.refreshCalls)
	}
}

func TestTokenRefreshFailureFallsBackToLogin(t *testing.T) {
	ts := newTokenServer(t)
	tc := newTestTokenCache(ts)

	if _, err := tc.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}

	ts.failRefresh = true
	tc.now = func() time.Time { return time.Now().Add(400 * time.Second) }

	token, err := tc.Token(context.Background())
	if err != nil {
		t.Fatalf("Token with failing refresh: %v", err)
	}
	if token != "access-password" {
		t.Errorf("token = %q, want access-password from re-login", token)
	}
	if ts.passwordCalls != 2 {
		t.Errorf("password calls = %d, want 2", ts.passwordCalls)
	}
}

func TestForceRefreshDiscardsAccessToken(t *testing.T) {
	ts := newTokenServer(t)
	tc := newTestTokenCache(ts)

	if _, err := tc.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}

	// Access token формально жив, но отклонён сервером (401 у вызывающего)
	token, err := tc.ForceRefresh(context.Background())
	if err != nil {
		t.Fatalf("ForceRefresh: %v", err)
	}
	if token != "access-refresh_token" {
		t.Errorf("token = %q, want access-refresh_token", token)
	}
	if ts.refreshCalls != 1 {
		t.Errorf("refresh calls = %d, want 1", ts.refreshCalls)
	}
}

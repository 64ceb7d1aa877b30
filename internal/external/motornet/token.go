package motornet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/VMAzure/azurenet-engine/pkg/interfaces"
)

// expirySkew вычитается из заявленного провайдером срока жизни токена,
// чтобы не выдать токен за мгновение до его реального истечения
const expirySkew = 20 * time.Second

const defaultRefreshLifetime = 1800 * time.Second

// AuthConfig — параметры token endpoint Motornet (Keycloak, password grant)
type AuthConfig struct {
	TokenURL string
	ClientID string
	Username string
	Password string
}

// TokenCache владеет единственным на процесс токеном Motornet.
// Все переходы (login, refresh, re-login) сериализуются одним мьютексом;
// конкурентные вызовы никогда не порождают параллельные login-запросы.
// Токен не персистится: после рестарта процесса re-login дешёв и идемпотентен.
type TokenCache struct {
	cfg    *oauth2.Config
	auth   AuthConfig
	logger interfaces.LoggerPort

	httpClient *http.Client
	now        func() time.Time

	mu            sync.Mutex
	accessToken   string
	refreshToken  string
	accessExpiry  time.Time
	refreshExpiry time.Time
}

// NewTokenCache создает кэш токена. httpClient может быть nil (http.DefaultClient).
func NewTokenCache(auth AuthConfig, httpClient *http.Client, logger interfaces.LoggerPort) *TokenCache {
	return &TokenCache{
		cfg: &oauth2.Config{
			ClientID: auth.ClientID,
			Endpoint: oauth2.Endpoint{TokenURL: auth.TokenURL},
		},
		auth:       auth,
		logger:     logger,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Token возвращает валидный access token.
// Быстрый путь (токен жив) не делает сетевых вызовов.
func (t *TokenCache) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.accessToken != "" && t.now().Before(t.accessExpiry) {
		return t.accessToken, nil
	}

	if t.tryRefresh(ctx) {
		return t.accessToken, nil
	}

	if err := t.login(ctx); err != nil {
		return "", err
	}
	return t.accessToken, nil
}

// ForceRefresh сбрасывает кэшированный access token и получает новый
// (refresh, при неудаче — полный login). Вызывается клиентом после 401.
func (t *TokenCache) ForceRefresh(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.accessToken = ""

	if t.tryRefresh(ctx) {
		return t.accessToken, nil
	}
	if err := t.login(ctx); err != nil {
		return "", err
	}
	return t.accessToken, nil
}

// tryRefresh обновляет access token по refresh token.
// Неудача не фатальна: вызывающий падает в полный login.
// Вызывается только под мьютексом.
func (t *TokenCache) tryRefresh(ctx context.Context) bool {
	if t.refreshToken == "" || !t.now().Before(t.refreshExpiry) {
		return false
	}

	t.logger.Info("motornet: refresh token")

	tok, err := t.cfg.TokenSource(t.oauthContext(ctx), &oauth2.Token{
		RefreshToken: t.refreshToken,
		Expiry:       t.now().Add(-time.Minute), // форсируем grant_type=refresh_token
	}).Token()
	if err != nil {
		t.logger.Warn("motornet: refresh failed", interfaces.LogField{Key: "error", Value: err.Error()})
		return false
	}

	t.store(tok)
	return true
}

// login выполняет полный password grant и заполняет оба токена.
// Ошибка login фатальна для вызывающей операции.
// Вызывается только под мьютексом.
func (t *TokenCache) login(ctx context.Context) error {
	t.logger.Info("motornet: login (password grant)")

	tok, err := t.cfg.PasswordCredentialsToken(t.oauthContext(ctx), t.auth.Username, t.auth.Password)
	if err != nil {
		return fmt.Errorf("motornet login failed: %w", err)
	}

	t.store(tok)
	return nil
}

// store фиксирует токены и сроки их жизни с отрицательным skew
func (t *TokenCache) store(tok *oauth2.Token) {
	now := t.now()

	t.accessToken = tok.AccessToken
	t.accessExpiry = tok.Expiry.Add(-expirySkew)

	if tok.RefreshToken != "" {
		t.refreshToken = tok.RefreshToken
	}
	t.refreshExpiry = now.Add(refreshLifetime(tok) - expirySkew)
}

// refreshLifetime извлекает refresh_expires_in из сырого ответа Keycloak
func refreshLifetime(tok *oauth2.Token) time.Duration {
	switch v := tok.Extra("refresh_expires_in").(type) {
	case float64:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return defaultRefreshLifetime
}

// oauthContext подставляет кастомный HTTP-клиент для обменов токена
func (t *TokenCache) oauthContext(ctx context.Context) context.Context {
	if t.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, t.httpClient)
}

package motornet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/VMAzure/azurenet-engine/internal/retry"
	"github.com/VMAzure/azurenet-engine/pkg/interfaces"
)

// StatusError — терминальный не-2xx ответ webservice Motornet
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("motornet: GET %s failed [%d]: %s", e.URL, e.Status, e.Body)
}

// IsStatus сообщает, является ли ошибка ответом Motornet с данным HTTP-статусом
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}

// Client — устойчивый клиент webservice Motornet.
// 401 → принудительное обновление токена и один повтор;
// 429 → экспоненциальная пауза в рамках политики повторов;
// прочие не-2xx — терминальная ошибка.
type Client struct {
	tokens *TokenCache
	http   *http.Client
	policy retry.Policy
	logger interfaces.LoggerPort
}

// NewClient создает клиент Motornet поверх кэша токенов
func NewClient(tokens *TokenCache, policy retry.Policy, timeout time.Duration, logger interfaces.LoggerPort) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		tokens: tokens,
		http:   &http.Client{Timeout: timeout},
		policy: policy,
		logger: logger,
	}
}

// GetJSON выполняет авторизованный GET и декодирует ответ в out
func (c *Client) GetJSON(ctx context.Context, url string, out interface{}) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("motornet: decode %s: %w", url, err)
	}
	return nil
}

// Get выполняет авторизованный GET с политикой повторов
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	refreshed := false

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		status, body, err := c.doOnce(ctx, url, token)
		if err != nil {
			return nil, err
		}

		switch c.policy.ClassifyStatus(status) {
		case retry.ActionNone:
			return body, nil

		case retry.ActionRefreshAuth:
			// Второй 401 подряд — обычная терминальная ошибка
			if refreshed {
				return nil, &StatusError{URL: url, Status: status, Body: string(body)}
			}
			c.logger.Warn("motornet: 401, retry with refreshed token",
				interfaces.LogField{Key: "url", Value: url})
			token, err = c.tokens.ForceRefresh(ctx)
			if err != nil {
				return nil, err
			}
			refreshed = true

		case retry.ActionBackoff:
			if attempt == c.policy.MaxAttempts {
				return nil, fmt.Errorf("motornet: GET %s rate limited after %d attempts", url, attempt)
			}
			c.logger.Warn("motornet: 429, backing off",
				interfaces.LogField{Key: "url", Value: url},
				interfaces.LogField{Key: "attempt", Value: attempt},
			)
			if err := c.policy.Wait(ctx, attempt); err != nil {
				return nil, err
			}

		default:
			return nil, &StatusError{URL: url, Status: status, Body: string(body)}
		}
	}

	return nil, fmt.Errorf("motornet: GET %s: attempts exhausted", url)
}

func (c *Client) doOnce(ctx context.Context, url, token string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("motornet: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("motornet: GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("motornet: read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

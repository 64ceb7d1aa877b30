package autoscout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/VMAzure/azurenet-engine/pkg/interfaces"
)

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "azurenet_marketplace_request_duration_seconds",
	Help: "Длительность HTTP-вызовов AutoScout24 Listing API",
}, []string{"method"})

// Reason — структурированный код причины ошибки маркетплейса.
// Машина состояний матчится по этому полю, не по тексту ответа.
type Reason string

const (
	// ReasonListingNotFound — листинг не существует на стороне AS24 (дрейф)
	ReasonListingNotFound Reason = "listing_not_found"
	// ReasonUnknown — любая прочая терминальная ошибка
	ReasonUnknown Reason = "unknown"
)

// listingNotFoundMarker — маркер в теле ответа AS24.
// ВНИМАНИЕ: текстовый маркер хрупок к изменению формулировок upstream,
// точная строка зафиксирована тестами клиента.
const listingNotFoundMarker = "listing-does-not-exist"

// APIError — терминальная ошибка вызова AutoScout24 с телом ответа для диагностики
type APIError struct {
	Endpoint string
	Status   int
	Reason   Reason
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("autoscout: %s failed | HTTP %d | body=%s", e.Endpoint, e.Status, e.Body)
}

// IsListingNotFound сообщает, является ли ошибка дрейфом "листинг не существует"
func IsListingNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Reason == ReasonListingNotFound
}

func classifyReason(status int, body string) Reason {
	if strings.Contains(body, listingNotFoundMarker) {
		return ReasonListingNotFound
	}
	return ReasonUnknown
}

// Config — параметры доступа к AutoScout24 Listing API
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client — клиент AutoScout24 Listing Management API.
// Резолв customerId кэшируется в процессе (go-cache) и в общем кэше (CachePort),
// чтобы не сканировать /customers на каждом цикле движка.
type Client struct {
	cfg    Config
	http   *http.Client
	logger interfaces.LoggerPort

	cache     interfaces.CachePort // межпроцессный слой, может быть nil
	customers *gocache.Cache       // внутрипроцессный fast path
}

// NewClient создает клиент AutoScout24
func NewClient(cfg Config, cache interfaces.CachePort, logger interfaces.LoggerPort) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:       cfg,
		http:      &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
		cache:     cache,
		customers: gocache.New(30*time.Minute, 10*time.Minute),
	}
}

type customersResponse struct {
	Customers []struct {
		ID     string `json:"id"`
		SellID string `json:"sellId"`
	} `json:"customers"`
}

// ResolveCustomerID возвращает customers.id по известному дилеру sellId
func (c *Client) ResolveCustomerID(ctx context.Context, sellID string) (string, error) {
	if v, ok := c.customers.Get(sellID); ok {
		return v.(string), nil
	}

	cacheKey := "autoscout:customer:" + sellID
	if c.cache != nil {
		if b, err := c.cache.Get(ctx, cacheKey); err == nil && len(b) > 0 {
			id := string(b)
			c.customers.SetDefault(sellID, id)
			return id, nil
		}
	}

	body, err := c.do(ctx, http.MethodGet, "/customers", nil, "", false)
	if err != nil {
		return "", err
	}

	var data customersResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("autoscout: decode /customers: %w", err)
	}

	var matches []string
	for _, cust := range data.Customers {
		if cust.SellID == sellID {
			matches = append(matches, cust.ID)
		}
	}

	switch {
	case len(matches) == 0:
		return "", fmt.Errorf("autoscout: no customer found for sellId=%s", sellID)
	case len(matches) > 1:
		return "", fmt.Errorf("autoscout: multiple customers found for sellId=%s", sellID)
	case matches[0] == "":
		return "", fmt.Errorf("autoscout: customer found but id missing | sellId=%s", sellID)
	}

	id := matches[0]
	c.customers.SetDefault(sellID, id)
	if c.cache != nil {
		_ = c.cache.Set(ctx, cacheKey, []byte(id), 30*time.Minute)
	}

	c.logger.Info("resolved AS24 customer",
		interfaces.LogField{Key: "sell_id", Value: sellID},
		interfaces.LogField{Key: "customer_id", Value: id},
	)
	return id, nil
}

type listingResponse struct {
	ListingID string `json:"listingId"`
	ID        string `json:"id"`
}

// CreateListing создает листинг и возвращает его идентификатор
func (c *Client) CreateListing(ctx context.Context, customerID string, payload interface{}, testMode bool) (string, error) {
	endpoint := fmt.Sprintf("/customers/%s/listings", customerID)

	body, err := c.doJSON(ctx, http.MethodPost, endpoint, payload, testMode)
	if err != nil {
		return "", err
	}

	var data listingResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("autoscout: decode create listing response: %w", err)
	}

	id := data.ListingID
	if id == "" {
		id = data.ID
	}
	if id == "" {
		return "", fmt.Errorf("autoscout: listing created but id missing | body=%s", string(body))
	}
	return id, nil
}

// UpdateListing полностью обновляет существующий листинг
func (c *Client) UpdateListing(ctx context.Context, customerID, listingID string, payload interface{}, testMode bool) error {
	endpoint := fmt.Sprintf("/customers/%s/listings/%s", customerID, listingID)
	_, err := c.doJSON(ctx, http.MethodPut, endpoint, payload, testMode)
	return err
}

// DeleteListing окончательно удаляет листинг
func (c *Client) DeleteListing(ctx context.Context, customerID, listingID string, testMode bool) error {
	endpoint := fmt.Sprintf("/customers/%s/listings/%s", customerID, listingID)
	_, err := c.do(ctx, http.MethodDelete, endpoint, nil, "", testMode)
	return err
}

// UpdatePublicationStatus переключает статус публикации листинга.
// status: "Active" | "Inactive"
func (c *Client) UpdatePublicationStatus(ctx context.Context, customerID, listingID, status string, testMode bool) error {
	endpoint := fmt.Sprintf("/customers/%s/listings/%s", customerID, listingID)
	payload := map[string]interface{}{
		"publication": map[string]string{"status": status},
	}
	_, err := c.doJSON(ctx, http.MethodPut, endpoint, payload, testMode)
	return err
}

// UploadImage выполняет pre-upload изображения и возвращает imageId
func (c *Client) UploadImage(ctx context.Context, customerID string, image []byte, contentType string, testMode bool) (string, error) {
	endpoint := fmt.Sprintf("/customers/%s/images", customerID)

	body, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(image), contentType, testMode)
	if err != nil {
		return "", err
	}

	var data struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("autoscout: decode image upload response: %w", err)
	}
	if data.ID == "" {
		return "", fmt.Errorf("autoscout: image uploaded but id missing | body=%s", string(body))
	}
	return data.ID, nil
}

// MakeModel — одна модель внутри марки справочника AS24
type MakeModel struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	VehicleType string `json:"vehicleType"`
}

// Make — элемент официального справочника марок AS24
type Make struct {
	ID     int         `json:"id"`
	Name   string      `json:"name"`
	Models []MakeModel `json:"models"`
}

// GetMakes возвращает официальный каталог AS24 (марки + модели)
func (c *Client) GetMakes(ctx context.Context) ([]Make, error) {
	body, err := c.do(ctx, http.MethodGet, "/makes", nil, "", false)
	if err != nil {
		return nil, err
	}

	var data struct {
		Makes []Make `json:"makes"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("autoscout: decode /makes: %w", err)
	}
	return data.Makes, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload interface{}, testMode bool) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("autoscout: marshal payload: %w", err)
	}
	return c.do(ctx, method, endpoint, bytes.NewReader(raw), "application/json", testMode)
}

// do выполняет один вызов AS24. Любой статус вне 2xx — терминальная ошибка
// с телом ответа; повторы на этом уровне не делаются.
func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string, testMode bool) ([]byte, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + endpoint

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("autoscout: build request: %w", err)
	}

	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if method != http.MethodGet {
		if testMode {
			req.Header.Set("X-Testmode", "true")
		} else {
			req.Header.Set("X-Testmode", "false")
		}
	}

	c.logger.Debug("AS24 HTTP call",
		interfaces.LogField{Key: "method", Value: method},
		interfaces.LogField{Key: "url", Value: url},
		interfaces.LogField{Key: "test_mode", Value: testMode},
	)

	started := time.Now()
	resp, err := c.http.Do(req)
	requestDuration.WithLabelValues(method).Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, fmt.Errorf("autoscout: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("autoscout: read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			Endpoint: fmt.Sprintf("%s %s", method, endpoint),
			Status:   resp.StatusCode,
			Reason:   classifyReason(resp.StatusCode, string(respBody)),
			Body:     string(respBody),
		}
	}

	return respBody, nil
}

package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/VMAzure/azurenet-engine/internal/external/autoscout"
)

// MarketplacePort — операции AutoScout24, нужные движку.
// Продакшен-реализация — *autoscout.Client; тесты подставляют фейк.
type MarketplacePort interface {
	ResolveCustomerID(ctx context.Context, sellID string) (string, error)
	CreateListing(ctx context.Context, customerID string, payload interface{}, testMode bool) (string, error)
	UpdateListing(ctx context.Context, customerID, listingID string, payload interface{}, testMode bool) error
	DeleteListing(ctx context.Context, customerID, listingID string, testMode bool) error
	UpdatePublicationStatus(ctx context.Context, customerID, listingID, status string, testMode bool) error
	UploadImage(ctx context.Context, customerID string, image []byte, contentType string, testMode bool) (string, error)
	GetMakes(ctx context.Context) ([]autoscout.Make, error)
}

// ImageFetcher скачивает изображение витрины по публичному URL
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (data []byte, contentType string, err error)
}

// HTTPImageFetcher — реализация ImageFetcher поверх net/http
type HTTPImageFetcher struct {
	http *http.Client
}

// NewHTTPImageFetcher создает фетчер с собственным таймаутом
func NewHTTPImageFetcher(timeout time.Duration) *HTTPImageFetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HTTPImageFetcher{http: &http.Client{Timeout: timeout}}
}

// Fetch скачивает изображение и возвращает его вместе с Content-Type ответа
func (f *HTTPImageFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("image fetch: build request: %w", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("image fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image fetch %s: HTTP %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("image fetch %s: read body: %w", url, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

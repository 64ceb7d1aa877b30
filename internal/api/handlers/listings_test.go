package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/VMAzure/azurenet-engine/internal/adapters/storage"
	"github.com/VMAzure/azurenet-engine/internal/domain/models"
	"github.com/VMAzure/azurenet-engine/internal/domain/services"
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

// stubStorage отдаёт одну запись и один конфиг дилера; остальные методы
// порта не используются обработчиком публикации
type stubStorage struct {
	storage.ListingStoragePort
	rec    *models.ListingRecord
	dealer *models.DealerConfig
}

func (s *stubStorage) GetListing(_ context.Context, id string) (*models.ListingRecord, error) {
	if s.rec == nil || s.rec.ID != id {
		return nil, storage.ErrNotFound
	}
	return s.rec, nil
}

func (s *stubStorage) GetDealerConfig(_ context.Context, dealerID string) (*models.DealerConfig, error) {
	if s.dealer == nil || s.dealer.DealerID != dealerID {
		return nil, storage.ErrNotFound
	}
	return s.dealer, nil
}

type stubMarket struct {
	services.MarketplacePort
	publication map[string]string
	toggleErr   error
}

func (m *stubMarket) ResolveCustomerID(context.Context, string) (string, error) {
	return "cust-1", nil
}

func (m *stubMarket) UpdatePublicationStatus(_ context.Context, _ string, listingID, status string, _ bool) error {
	if m.toggleErr != nil {
		return m.toggleErr
	}
	m.publication[listingID] = status
	return nil
}

func publicationRouter(st *stubStorage, market *stubMarket) *chi.Mux {
	h := NewListingHandler(st, nil, market, nopLogger{})
	r := chi.NewRouter()
	r.Post("/listings/{id}/publication", h.Publication)
	return r
}

func togglePublication(r http.Handler, id, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/listings/"+id+"/publication", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPublicationToggle(t *testing.T) {
	remote := "as24-1"
	st := &stubStorage{
		rec: &models.ListingRecord{
			ID:              "l1",
			DealerID:        "dealer-1",
			Status:          models.StatusPublished,
			RemoteListingID: &remote,
		},
		dealer: &models.DealerConfig{DealerID: "dealer-1", SellID: "1001", Enabled: true},
	}
	market := &stubMarket{publication: make(map[string]string)}

	rec := togglePublication(publicationRouter(st, market), "l1", `{"status":"Inactive"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 | body=%s", rec.Code, rec.Body.String())
	}
	if market.publication[remote] != "Inactive" {
		t.Errorf("publication = %q, want Inactive", market.publication[remote])
	}
}

func TestPublicationRejectsBadStatus(t *testing.T) {
	st := &stubStorage{}
	market := &stubMarket{publication: make(map[string]string)}
	r := publicationRouter(st, market)

	for _, body := range []string{`{"status":"Hidden"}`, `{}`, `not json`} {
		rec := togglePublication(r, "l1", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestPublicationUnknownListing(t *testing.T) {
	st := &stubStorage{}
	market := &stubMarket{publication: make(map[string]string)}

	rec := togglePublication(publicationRouter(st, market), "missing", `{"status":"Active"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestPublicationRequiresRemoteListing(t *testing.T) {
	st := &stubStorage{
		rec: &models.ListingRecord{ID: "l1", DealerID: "dealer-1", Status: models.StatusPendingCreate},
	}
	market := &stubMarket{publication: make(map[string]string)}

	rec := togglePublication(publicationRouter(st, market), "l1", `{"status":"Active"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestPublicationDealerDisabled(t *testing.T) {
	remote := "as24-1"
	st := &stubStorage{
		rec: &models.ListingRecord{
			ID:              "l1",
			DealerID:        "dealer-1",
			Status:          models.StatusPublished,
			RemoteListingID: &remote,
		},
	}
	market := &stubMarket{publication: make(map[string]string)}

	rec := togglePublication(publicationRouter(st, market), "l1", `{"status":"Active"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/VMAzure/azurenet-engine/internal/adapters/storage"
	"github.com/VMAzure/azurenet-engine/internal/domain/models"
	"github.com/VMAzure/azurenet-engine/internal/external/autoscout"
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

type fuelMapping struct {
	primary  int
	category string
}

// fakeStorage — in-memory реализация ListingStoragePort для тестов сервисов
type fakeStorage struct {
	records map[string]*models.ListingRecord
	order   []string

	dealer    *models.DealerConfig
	view      *models.VehicleView
	tech      *models.TechDetails
	mapping   *models.ReferenceModel // make/model/vehicleType маппинг кода
	bodytypes map[string]int
	fuels     map[string]fuelMapping
	equipment []int
	media     []models.VehicleMedia

	lockDenied map[string]bool // имитация строк, захваченных другим воркером

	published map[string]string
	errored   map[string]string
	repaired  map[string]string
	deleted   []string
	requeued  map[string]models.Status

	candidates []models.EnrichmentCandidate
	legacyEuro map[string]string
	directives map[string]string

	refModels []models.ReferenceModel

	begun, committed, rolledBack int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		records:    make(map[string]*models.ListingRecord),
		bodytypes:  make(map[string]int),
		fuels:      make(map[string]fuelMapping),
		lockDenied: make(map[string]bool),
		published:  make(map[string]string),
		errored:    make(map[string]string),
		repaired:   make(map[string]string),
		requeued:   make(map[string]models.Status),
		legacyEuro: make(map[string]string),
		directives: make(map[string]string),
	}
}

func (f *fakeStorage) addRecord(rec *models.ListingRecord) {
	f.records[rec.ID] = rec
	f.order = append(f.order, rec.ID)
}

func (f *fakeStorage) BeginTx(ctx context.Context) (context.Context, error) {
	f.begun++
	return ctx, nil
}

func (f *fakeStorage) CommitTx(context.Context) error {
	f.committed++
	return nil
}

func (f *fakeStorage) RollbackTx(context.Context) error {
	f.rolledBack++
	return nil
}

func (f *fakeStorage) Close() error { return nil }

func (f *fakeStorage) ClaimCandidateIDs(_ context.Context, limit int) ([]string, error) {
	var ids []string
	for _, id := range f.order {
		if rec, ok := f.records[id]; ok && rec.Status.IsClaimable() {
			ids = append(ids, id)
		}
	}
	// отбор в порядке requested_at, как в реальном хранилище
	sort.SliceStable(ids, func(i, j int) bool {
		return f.records[ids[i]].RequestedAt.Before(f.records[ids[j]].RequestedAt)
	})
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeStorage) LockListing(_ context.Context, id string) (*models.ListingRecord, error) {
	if f.lockDenied[id] {
		return nil, nil
	}
	rec, ok := f.records[id]
	if !ok || !rec.Status.IsClaimable() {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStorage) GetDealerConfig(_ context.Context, dealerID string) (*models.DealerConfig, error) {
	if f.dealer == nil || f.dealer.DealerID != dealerID {
		return nil, storage.ErrNotFound
	}
	return f.dealer, nil
}

func (f *fakeStorage) GetVehicleView(_ context.Context, vehicleID string) (*models.VehicleView, error) {
	if f.view == nil || f.view.VehicleID != vehicleID {
		return nil, storage.ErrNotFound
	}
	cp := *f.view
	return &cp, nil
}

func (f *fakeStorage) GetTechDetails(_ context.Context, catalogCode string) (*models.TechDetails, error) {
	if f.tech == nil {
		return nil, storage.ErrNotFound
	}
	return f.tech, nil
}

func (f *fakeStorage) GetModelMapping(_ context.Context, catalogCode string) (int, int, string, error) {
	if f.mapping == nil {
		return 0, 0, "", storage.ErrNotFound
	}
	return f.mapping.MakeID, f.mapping.ModelID, f.mapping.VehicleType, nil
}

func (f *fakeStorage) GetBodyTypeID(_ context.Context, mnetTipo string) (int, error) {
	id, ok := f.bodytypes[mnetTipo]
	if !ok {
		return 0, storage.ErrNotFound
	}
	return id, nil
}

func (f *fakeStorage) GetFuelMapping(_ context.Context, fuel string) (int, string, error) {
	m, ok := f.fuels[fuel]
	if !ok {
		return 0, "", storage.ErrNotFound
	}
	return m.primary, m.category, nil
}

func (f *fakeStorage) GetEquipmentIDs(context.Context, string) ([]int, error) {
	return f.equipment, nil
}

func (f *fakeStorage) GetVehicleMedia(context.Context, string) ([]models.VehicleMedia, error) {
	return f.media, nil
}

func (f *fakeStorage) MarkPublished(_ context.Context, id, remoteListingID string) error {
	f.published[id] = remoteListingID
	if rec, ok := f.records[id]; ok {
		rec.Status = models.StatusPublished
		rec.RemoteListingID = &remoteListingID
		rec.RetryCount = 0
	}
	return nil
}

func (f *fakeStorage) DeleteListing(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.records, id)
	return nil
}

func (f *fakeStorage) MarkError(_ context.Context, id, message string) error {
	f.errored[id] = message
	if rec, ok := f.records[id]; ok {
		rec.Status = models.StatusError
		rec.RetryCount++
	}
	return nil
}

func (f *fakeStorage) ResetForRepair(_ context.Context, id, message string) error {
	f.repaired[id] = message
	if rec, ok := f.records[id]; ok {
		rec.Status = models.StatusPendingCreate
		rec.RemoteListingID = nil
		rec.RetryCount = 0
	}
	return nil
}

func (f *fakeStorage) GetListing(_ context.Context, id string) (*models.ListingRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStorage) ListErrored(context.Context, int, int) ([]*models.ListingRecord, int, error) {
	var out []*models.ListingRecord
	for _, id := range f.order {
		if rec, ok := f.records[id]; ok && rec.Status == models.StatusError {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (f *fakeStorage) RequeueListing(_ context.Context, id string, status models.Status) error {
	if _, ok := f.records[id]; !ok {
		return storage.ErrNotFound
	}
	f.requeued[id] = status
	f.records[id].Status = status
	f.records[id].RetryCount = 0
	return nil
}

func (f *fakeStorage) ClaimEnrichmentCandidates(_ context.Context, limit int) ([]models.EnrichmentCandidate, error) {
	if len(f.candidates) > limit {
		return f.candidates[:limit], nil
	}
	return f.candidates, nil
}

func (f *fakeStorage) GetLegacyEuro(_ context.Context, catalogCode string, _ bool) (string, error) {
	v, ok := f.legacyEuro[catalogCode]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (f *fakeStorage) SetEmissionDirective(_ context.Context, vehicleID, directive string) error {
	f.directives[vehicleID] = directive
	return nil
}

func (f *fakeStorage) UpsertReferenceModel(_ context.Context, m models.ReferenceModel) (bool, error) {
	for _, existing := range f.refModels {
		if existing.MakeID == m.MakeID && existing.ModelID == m.ModelID {
			return false, nil
		}
	}
	f.refModels = append(f.refModels, m)
	return true, nil
}

var _ storage.ListingStoragePort = (*fakeStorage)(nil)

// fakeMarketplace — управляемая реализация MarketplacePort
type fakeMarketplace struct {
	customerID string

	createErr error
	updateErr error
	deleteErr error

	nextListingID string

	created       []interface{}
	updated       map[string]interface{}
	deletedRemote []string
	publication   map[string]string
	uploaded      int
	uploadErr     error

	makes []autoscout.Make
}

func newFakeMarketplace() *fakeMarketplace {
	return &fakeMarketplace{
		customerID:    "cust-1",
		nextListingID: "as24-new",
		updated:       make(map[string]interface{}),
		publication:   make(map[string]string),
	}
}

func (m *fakeMarketplace) ResolveCustomerID(context.Context, string) (string, error) {
	return m.customerID, nil
}

func (m *fakeMarketplace) CreateListing(_ context.Context, _ string, payload interface{}, _ bool) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.created = append(m.created, payload)
	return m.nextListingID, nil
}

func (m *fakeMarketplace) UpdateListing(_ context.Context, _ string, listingID string, payload interface{}, _ bool) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated[listingID] = payload
	return nil
}

func (m *fakeMarketplace) DeleteListing(_ context.Context, _ string, listingID string, _ bool) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedRemote = append(m.deletedRemote, listingID)
	return nil
}

func (m *fakeMarketplace) UpdatePublicationStatus(_ context.Context, _ string, listingID, status string, _ bool) error {
	m.publication[listingID] = status
	return nil
}

func (m *fakeMarketplace) UploadImage(context.Context, string, []byte, string, bool) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	m.uploaded++
	return fmt.Sprintf("img-%d", m.uploaded), nil
}

func (m *fakeMarketplace) GetMakes(context.Context) ([]autoscout.Make, error) {
	return m.makes, nil
}

var _ MarketplacePort = (*fakeMarketplace)(nil)

// fakeFetcher отдаёт заранее заданные изображения по URL
type fakeFetcher struct {
	images map[string]struct {
		data        []byte
		contentType string
	}
	err error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	img, ok := f.images[url]
	if !ok {
		return nil, "", fmt.Errorf("no image for %s", url)
	}
	return img.data, img.contentType, nil
}

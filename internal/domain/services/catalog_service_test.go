package services

import (
	"context"
	"testing"

	"github.com/VMAzure/azurenet-engine/internal/external/autoscout"
)

func catalogFixture() []autoscout.Make {
	return []autoscout.Make{
		{
			ID:   9,
			Name: "BMW",
			Models: []autoscout.MakeModel{
				{ID: 1770, Name: "Serie 3", VehicleType: "C"},
				{ID: 1771, Name: "Serie 5", VehicleType: "C"},
				{ID: 1900, Name: "R 1250 GS", VehicleType: "B"}, // мотоциклы не поддерживаются
			},
		},
		{
			ID:   50,
			Name: "Fiat",
			Models: []autoscout.MakeModel{
				{ID: 2100, Name: "Ducato", VehicleType: "X"},
			},
		},
	}
}

func TestCatalogSyncUpsertsSupportedTypes(t *testing.T) {
	st := newFakeStorage()
	market := newFakeMarketplace()
	market.makes = catalogFixture()

	svc := NewCatalogService(st, market, nopLogger{})
	inserted, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if inserted != 3 {
		t.Fatalf("inserted = %d, want 3 (B-type model excluded)", inserted)
	}

	for _, m := range st.refModels {
		if m.VehicleType != "C" && m.VehicleType != "X" {
			t.Errorf("unsupported vehicle type %q persisted", m.VehicleType)
		}
	}
}

func TestCatalogSyncIsIdempotent(t *testing.T) {
	st := newFakeStorage()
	market := newFakeMarketplace()
	market.makes = catalogFixture()

	svc := NewCatalogService(st, market, nopLogger{})
	if _, err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("first RunOnce: %v", err)
	}

	inserted, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if inserted != 0 {
		t.Errorf("inserted on repeat = %d, want 0", inserted)
	}
	if len(st.refModels) != 3 {
		t.Errorf("reference models = %d, want 3", len(st.refModels))
	}
}

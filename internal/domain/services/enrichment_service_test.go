package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/VMAzure/azurenet-engine/internal/domain/models"
	"github.com/VMAzure/azurenet-engine/internal/external/motornet"
)

// fakeMotornet отвечает заранее заданными WLTP-записями по URL
type fakeMotornet struct {
	responses map[string]wltpResponse
	statusErr map[string]int
	calls     []string
}

func (f *fakeMotornet) GetJSON(_ context.Context, url string, out interface{}) error {
	f.calls = append(f.calls, url)
	if code, ok := f.statusErr[url]; ok {
		return &motornet.StatusError{URL: url, Status: code}
	}
	resp, ok := f.responses[url]
	if !ok {
		return &motornet.StatusError{URL: url, Status: http.StatusPreconditionFailed}
	}
	*(out.(*wltpResponse)) = resp
	return nil
}

func enrichmentConfig() EnrichmentConfig {
	return EnrichmentConfig{
		AutoWLTPURL: "https://mnet/auto/{codice}/wltp",
		VcomWLTPURL: "https://mnet/vcom/{codice}/wltp",
		BatchSize:   20,
	}
}

func TestNormalizeEUDirective(t *testing.T) {
	testCases := []struct {
		raw  string
		want string
	}{
		{"Euro 6d-TEMP", "EURO_6D_TEMP"},
		{"EURO 6 D FINAL", "EURO_6D"},
		{"Euro 6d", "EURO_6D"},
		{"Euro 6e", "EURO_6E"},
		{"Euro 6c", "EURO_6C"},
		{"Euro 6b", "EURO_6B"},
		{"Euro 6", "EURO_6"},
		{"EURO6", "EURO_6"},
		{"Euro 5", "EURO_5"},
		{"Euro 4", "EURO_4"},
		{"Euro 3", "EURO_3"},
		{"Euro 2", "EURO_2"},
		{"Euro 1", ""},
		{"", ""},
		{"n/d", ""},
	}

	for _, tc := range testCases {
		if got := normalizeEUDirective(tc.raw); got != tc.want {
			t.Errorf("normalizeEUDirective(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizeLegacyEuro(t *testing.T) {
	testCases := []struct {
		raw  string
		want string
	}{
		{"6", "EURO_6"},
		{" 5 ", "EURO_5"},
		{"2", "EURO_2"},
		{"1", ""},
		{"", ""},
		{"euro 6", ""},
	}

	for _, tc := range testCases {
		if got := normalizeLegacyEuro(tc.raw); got != tc.want {
			t.Errorf("normalizeLegacyEuro(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestResolveDirectiveFromWLTP(t *testing.T) {
	records := []wltpRecord{
		{ValidFrom: "2015-09-01", ValidTo: "2018-08-31", Directive: "Euro 6b"},
		{ValidFrom: "2018-09-01", ValidTo: "2020-12-31", Directive: "Euro 6d-TEMP"},
		{ValidFrom: "2021-01-01", ValidTo: "", Directive: "Euro 6d"},
	}

	testCases := []struct {
		name string
		year int
		want string
	}{
		{"first window", 2016, "EURO_6B"},
		{"middle window", 2019, "EURO_6D_TEMP"},
		{"open-ended window", 2024, "EURO_6D"},
		{"before any window", 2010, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolveDirectiveFromWLTP(records, tc.year); got != tc.want {
				t.Errorf("resolveDirectiveFromWLTP(%d) = %q, want %q", tc.year, got, tc.want)
			}
		})
	}
}

func TestResolveDirectiveSkipsMalformedRecords(t *testing.T) {
	records := []wltpRecord{
		{ValidFrom: "", Directive: "Euro 6"},
		{ValidFrom: "abcd-01-01", Directive: "Euro 6"},
		{ValidFrom: "2019-01-01", ValidTo: "xxxx-12-31", Directive: "Euro 6"},
		{ValidFrom: "2019-01-01", Directive: "Euro 5"},
	}

	if got := resolveDirectiveFromWLTP(records, 2020); got != "EURO_5" {
		t.Errorf("directive = %q, want EURO_5 from the only parseable record", got)
	}
}

func TestEnrichmentResolvesFromWLTP(t *testing.T) {
	st := newFakeStorage()
	st.candidates = []models.EnrichmentCandidate{
		{VehicleID: "veh-1", CatalogCode: "M100", RegistrationYear: 2022},
	}

	mn := &fakeMotornet{responses: map[string]wltpResponse{
		"https://mnet/auto/M100/wltp": {WLTP: []wltpRecord{
			{ValidFrom: "2021-01-01", Directive: "Euro 6d"},
		}},
	}}

	svc := NewEnrichmentService(st, mn, enrichmentConfig(), nopLogger{})
	enriched, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if enriched != 1 {
		t.Fatalf("enriched = %d, want 1", enriched)
	}
	if st.directives["veh-1"] != "EURO_6D" {
		t.Errorf("directive = %q, want EURO_6D", st.directives["veh-1"])
	}
	if st.committed != 1 {
		t.Errorf("commits = %d, want 1", st.committed)
	}
}

func TestEnrichmentVcomCodeUsesVcomEndpoint(t *testing.T) {
	st := newFakeStorage()
	st.candidates = []models.EnrichmentCandidate{
		{VehicleID: "veh-v", CatalogCode: "C0555", RegistrationYear: 2023},
	}

	mn := &fakeMotornet{responses: map[string]wltpResponse{
		"https://mnet/vcom/C0555/wltp": {WLTP: []wltpRecord{
			{ValidFrom: "2020-01-01", Directive: "Euro 6"},
		}},
	}}

	svc := NewEnrichmentService(st, mn, enrichmentConfig(), nopLogger{})
	if _, err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(mn.calls) != 1 || mn.calls[0] != "https://mnet/vcom/C0555/wltp" {
		t.Errorf("calls = %v, want vcom endpoint", mn.calls)
	}
	if st.directives["veh-v"] != "EURO_6" {
		t.Errorf("directive = %q, want EURO_6", st.directives["veh-v"])
	}
}

func TestEnrichmentFallsBackToLegacyOn412(t *testing.T) {
	st := newFakeStorage()
	st.candidates = []models.EnrichmentCandidate{
		{VehicleID: "veh-1", CatalogCode: "M100", RegistrationYear: 2015},
	}
	st.legacyEuro["M100"] = "5"

	// 412: у Motornet нет WLTP-записей для этого кода
	mn := &fakeMotornet{}

	svc := NewEnrichmentService(st, mn, enrichmentConfig(), nopLogger{})
	enriched, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if enriched != 1 {
		t.Fatalf("enriched = %d, want 1", enriched)
	}
	if st.directives["veh-1"] != "EURO_5" {
		t.Errorf("directive = %q, want EURO_5 from legacy", st.directives["veh-1"])
	}
}

func TestEnrichmentLegacyFallbackWhenNoWindowMatches(t *testing.T) {
	st := newFakeStorage()
	st.candidates = []models.EnrichmentCandidate{
		{VehicleID: "veh-1", CatalogCode: "M100", RegistrationYear: 2010},
	}
	st.legacyEuro["M100"] = "4"

	mn := &fakeMotornet{responses: map[string]wltpResponse{
		"https://mnet/auto/M100/wltp": {WLTP: []wltpRecord{
			{ValidFrom: "2021-01-01", Directive: "Euro 6d"},
		}},
	}}

	svc := NewEnrichmentService(st, mn, enrichmentConfig(), nopLogger{})
	if _, err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if st.directives["veh-1"] != "EURO_4" {
		t.Errorf("directive = %q, want EURO_4 from legacy", st.directives["veh-1"])
	}
}

func TestEnrichmentUnresolvableMarkedTerminal(t *testing.T) {
	st := newFakeStorage()
	st.candidates = []models.EnrichmentCandidate{
		{VehicleID: "veh-1", CatalogCode: "M100", RegistrationYear: 2015},
	}

	// Ни WLTP, ни legacy: терминальный маркер выводит запись из выборки
	mn := &fakeMotornet{}

	svc := NewEnrichmentService(st, mn, enrichmentConfig(), nopLogger{})
	enriched, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if enriched != 1 {
		t.Fatalf("enriched = %d, want 1", enriched)
	}
	if st.directives["veh-1"] != "ND" {
		t.Errorf("directive = %q, want ND", st.directives["veh-1"])
	}
}

func TestEnrichmentTransientErrorSkipsVehicle(t *testing.T) {
	st := newFakeStorage()
	st.candidates = []models.EnrichmentCandidate{
		{VehicleID: "veh-1", CatalogCode: "M100", RegistrationYear: 2022},
		{VehicleID: "veh-2", CatalogCode: "M200", RegistrationYear: 2022},
	}

	mn := &fakeMotornet{
		statusErr: map[string]int{"https://mnet/auto/M100/wltp": http.StatusInternalServerError},
		responses: map[string]wltpResponse{
			"https://mnet/auto/M200/wltp": {WLTP: []wltpRecord{
				{ValidFrom: "2021-01-01", Directive: "Euro 6d"},
			}},
		},
	}

	svc := NewEnrichmentService(st, mn, enrichmentConfig(), nopLogger{})
	enriched, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if enriched != 1 {
		t.Fatalf("enriched = %d, want 1 (transient failure skipped)", enriched)
	}
	if _, ok := st.directives["veh-1"]; ok {
		t.Error("directive written despite transient Motornet error")
	}
	if st.directives["veh-2"] != "EURO_6D" {
		t.Errorf("directive = %q, want EURO_6D", st.directives["veh-2"])
	}
	if st.committed != 1 {
		t.Errorf("commits = %d, want 1 (batch still committed)", st.committed)
	}
}

func TestEnrichmentEmptyBatchRollsBack(t *testing.T) {
	st := newFakeStorage()
	mn := &fakeMotornet{}

	svc := NewEnrichmentService(st, mn, enrichmentConfig(), nopLogger{})
	enriched, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if enriched != 0 {
		t.Fatalf("enriched = %d, want 0", enriched)
	}
	if st.rolledBack != 1 || st.committed != 0 {
		t.Errorf("tx = %d rollback / %d commit, want 1/0", st.rolledBack, st.committed)
	}
	if len(mn.calls) != 0 {
		t.Errorf("Motornet calls = %v, want none", mn.calls)
	}
}

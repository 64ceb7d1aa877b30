package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/VMAzure/azurenet-engine/internal/adapters/storage"
	"github.com/VMAzure/azurenet-engine/internal/domain/models"
	"github.com/VMAzure/azurenet-engine/internal/external/motornet"
	"github.com/VMAzure/azurenet-engine/pkg/interfaces"
)

// directiveUnavailable — терминальный маркер "директива неразрешима":
// автомобиль больше не попадает в выборку обогащения
const directiveUnavailable = "ND"

// MotornetGetter — устойчивый GET Motornet (продакшен — *motornet.Client)
type MotornetGetter interface {
	GetJSON(ctx context.Context, url string, out interface{}) error
}

// EnrichmentConfig — endpoints WLTP Motornet по каталогам
type EnrichmentConfig struct {
	AutoWLTPURL string // {codice} подставляется
	VcomWLTPURL string
	BatchSize   int
}

// EnrichmentService дообогащает автомобили директивой выбросов EU:
// первично из WLTP-записей Motornet по окну валидности года регистрации,
// при отсутствии — из legacy-словаря euro
type EnrichmentService struct {
	storage  storage.ListingStoragePort
	motornet MotornetGetter
	cfg      EnrichmentConfig
	logger   interfaces.LoggerPort
}

// NewEnrichmentService создает сервис WLTP-обогащения
func NewEnrichmentService(st storage.ListingStoragePort, mn MotornetGetter, cfg EnrichmentConfig, logger interfaces.LoggerPort) *EnrichmentService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	return &EnrichmentService{storage: st, motornet: mn, cfg: cfg, logger: logger}
}

// isVcomCode: коды коммерческого каталога Motornet начинаются с C0
func isVcomCode(code string) bool {
	return strings.HasPrefix(code, "C0")
}

func (s *EnrichmentService) wltpURL(code string) string {
	if isVcomCode(code) {
		return strings.ReplaceAll(s.cfg.VcomWLTPURL, "{codice}", code)
	}
	return strings.ReplaceAll(s.cfg.AutoWLTPURL, "{codice}", code)
}

type wltpRecord struct {
	ValidFrom string `json:"dataInizioValidita"`
	ValidTo   string `json:"dataFineValidita"`
	Directive string `json:"direttivaEuro"`
}

type wltpResponse struct {
	WLTP []wltpRecord `json:"wltp"`
}

// RunOnce обрабатывает один батч. Батч захватывается под SKIP LOCKED
// в одной транзакции; ошибка отдельного автомобиля не прерывает остальные.
func (s *EnrichmentService) RunOnce(ctx context.Context) (int, error) {
	txCtx, err := s.storage.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("enrichment cycle: %w", err)
	}

	candidates, err := s.storage.ClaimEnrichmentCandidates(txCtx, s.cfg.BatchSize)
	if err != nil {
		_ = s.storage.RollbackTx(txCtx)
		return 0, fmt.Errorf("enrichment cycle: %w", err)
	}
	if len(candidates) == 0 {
		_ = s.storage.RollbackTx(txCtx)
		return 0, nil
	}

	enriched := 0
	for _, c := range candidates {
		if ctx.Err() != nil {
			_ = s.storage.RollbackTx(txCtx)
			return enriched, ctx.Err()
		}
		if err := s.enrichOne(ctx, txCtx, c); err != nil {
			s.logger.Error("enrichment failed",
				interfaces.LogField{Key: "vehicle", Value: c.VehicleID},
				interfaces.LogField{Key: "codice", Value: c.CatalogCode},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
			continue
		}
		enriched++
		enrichedVehiclesTotal.Inc()
	}

	if err := s.storage.CommitTx(txCtx); err != nil {
		return 0, fmt.Errorf("enrichment cycle: commit: %w", err)
	}
	return enriched, nil
}

func (s *EnrichmentService) enrichOne(ctx, txCtx context.Context, c models.EnrichmentCandidate) error {
	var directive string

	var resp wltpResponse
	err := s.motornet.GetJSON(ctx, s.wltpURL(c.CatalogCode), &resp)
	switch {
	case err == nil:
		directive = resolveDirectiveFromWLTP(resp.WLTP, c.RegistrationYear)
	case motornet.IsStatus(err, http.StatusPreconditionFailed):
		// у Motornet нет WLTP-записей для кода (412) — идём в legacy
		s.logger.Debug("no WLTP records, falling back to legacy euro",
			interfaces.LogField{Key: "codice", Value: c.CatalogCode})
	default:
		return err
	}

	if directive == "" {
		legacy, err := s.storage.GetLegacyEuro(txCtx, c.CatalogCode, isVcomCode(c.CatalogCode))
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		directive = normalizeLegacyEuro(legacy)
	}

	if directive == "" {
		// неразрешимо ни по WLTP, ни по legacy
		directive = directiveUnavailable
	}

	if err := s.storage.SetEmissionDirective(txCtx, c.VehicleID, directive); err != nil {
		return err
	}

	s.logger.Info("emission directive resolved",
		interfaces.LogField{Key: "codice", Value: c.CatalogCode},
		interfaces.LogField{Key: "directive", Value: directive},
	)
	return nil
}

// resolveDirectiveFromWLTP выбирает запись, чьё окно валидности (по годам)
// накрывает год регистрации, и нормализует её директиву
func resolveDirectiveFromWLTP(records []wltpRecord, registrationYear int) string {
	for _, r := range records {
		if len(r.ValidFrom) < 4 {
			continue
		}
		startYear, err := strconv.Atoi(r.ValidFrom[:4])
		if err != nil {
			continue
		}

		endYear := 9999
		if len(r.ValidTo) >= 4 {
			if y, err := strconv.Atoi(r.ValidTo[:4]); err == nil {
				endYear = y
			} else {
				continue
			}
		}

		if startYear <= registrationYear && registrationYear <= endYear {
			return normalizeEUDirective(r.Directive)
		}
	}
	return ""
}

// normalizeEUDirective сводит свободные формулировки Motornet
// ("Euro 6d-TEMP", "EURO 6 D FINAL", ...) к канону AS24.
// Порядок проверок существенен: более специфичный префикс раньше общего.
func normalizeEUDirective(raw string) string {
	v := strings.ToUpper(raw)
	v = strings.ReplaceAll(v, " ", "")
	v = strings.ReplaceAll(v, "-", "")
	if v == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(v, "EURO6DTEMP"):
		return "EURO_6D_TEMP"
	case strings.HasPrefix(v, "EURO6DFINAL"), v == "EURO6D":
		return "EURO_6D"
	case strings.HasPrefix(v, "EURO6E"):
		return "EURO_6E"
	case strings.HasPrefix(v, "EURO6C"):
		return "EURO_6C"
	case strings.HasPrefix(v, "EURO6B"):
		return "EURO_6B"
	case strings.HasPrefix(v, "EURO6"):
		return "EURO_6"
	case strings.HasPrefix(v, "EURO5"):
		return "EURO_5"
	case strings.HasPrefix(v, "EURO4"):
		return "EURO_4"
	case strings.HasPrefix(v, "EURO3"):
		return "EURO_3"
	case strings.HasPrefix(v, "EURO2"):
		return "EURO_2"
	}
	return ""
}

// normalizeLegacyEuro: legacy-словарь хранит голую цифру класса
func normalizeLegacyEuro(value string) string {
	v := strings.TrimSpace(value)
	switch v {
	case "2", "3", "4", "5", "6":
		return "EURO_" + v
	}
	return ""
}

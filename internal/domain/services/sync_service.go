package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/VMAzure/azurenet-engine/internal/adapters/storage"
	"github.com/VMAzure/azurenet-engine/internal/domain/models"
	"github.com/VMAzure/azurenet-engine/internal/external/autoscout"
	"github.com/VMAzure/azurenet-engine/internal/mapper"
	"github.com/VMAzure/azurenet-engine/pkg/interfaces"
)

// allowedImageTypes — типы контента, принимаемые pre-upload AS24
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

const maxErrorLength = 500

// SyncService реализует машину состояний синхронизации листингов.
// Каждая запись обрабатывается в собственной транзакции под
// FOR UPDATE SKIP LOCKED: падение одной записи не трогает остальные.
type SyncService struct {
	storage storage.ListingStoragePort
	market  MarketplacePort
	images  ImageFetcher
	events  *eventEmitter
	logger  interfaces.LoggerPort

	batchSize int
}

// NewSyncService создает сервис синхронизации.
// publisher может быть nil — события тогда не публикуются.
func NewSyncService(
	st storage.ListingStoragePort,
	market MarketplacePort,
	images ImageFetcher,
	publisher interfaces.MessagingPort,
	eventsTopic string,
	batchSize int,
	logger interfaces.LoggerPort,
) *SyncService {
	if batchSize <= 0 {
		batchSize = 5
	}
	return &SyncService{
		storage:   st,
		market:    market,
		images:    images,
		events:    newEventEmitter(publisher, eventsTopic, logger),
		logger:    logger,
		batchSize: batchSize,
	}
}

// SyncStats — итог одного цикла синхронизации
type SyncStats struct {
	Claimed   int `json:"claimed"`
	Published int `json:"published"`
	Deleted   int `json:"deleted"`
	Repaired  int `json:"repaired"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// RunOnce выполняет один цикл: отбирает кандидатов в порядке requested_at
// и обрабатывает каждого в отдельной транзакции
func (s *SyncService) RunOnce(ctx context.Context) (SyncStats, error) {
	started := time.Now()
	defer func() {
		syncCyclesTotal.Inc()
		syncCycleDuration.Observe(time.Since(started).Seconds())
	}()

	var stats SyncStats

	ids, err := s.storage.ClaimCandidateIDs(ctx, s.batchSize)
	if err != nil {
		return stats, fmt.Errorf("sync cycle: %w", err)
	}
	stats.Claimed = len(ids)

	for _, id := range ids {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		switch s.processOne(ctx, id) {
		case outcomePublished:
			stats.Published++
		case outcomeDeleted:
			stats.Deleted++
		case outcomeRepaired:
			stats.Repaired++
		case outcomeFailed:
			stats.Failed++
		case outcomeSkipped:
			stats.Skipped++
		}
	}

	if stats.Claimed > 0 {
		s.logger.Info("sync cycle finished",
			interfaces.LogField{Key: "claimed", Value: stats.Claimed},
			interfaces.LogField{Key: "published", Value: stats.Published},
			interfaces.LogField{Key: "deleted", Value: stats.Deleted},
			interfaces.LogField{Key: "repaired", Value: stats.Repaired},
			interfaces.LogField{Key: "failed", Value: stats.Failed},
			interfaces.LogField{Key: "skipped", Value: stats.Skipped},
		)
	}
	return stats, nil
}

// processOne обрабатывает одну запись в собственной транзакции
// и возвращает исход для метрик
func (s *SyncService) processOne(ctx context.Context, id string) string {
	txCtx, err := s.storage.BeginTx(ctx)
	if err != nil {
		s.logger.Error("failed to begin transaction",
			interfaces.LogField{Key: "listing", Value: id},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
		listingsProcessedTotal.WithLabelValues(outcomeFailed).Inc()
		return outcomeFailed
	}

	rec, err := s.storage.LockListing(txCtx, id)
	if err != nil {
		_ = s.storage.RollbackTx(txCtx)
		s.logger.Error("failed to lock listing",
			interfaces.LogField{Key: "listing", Value: id},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
		listingsProcessedTotal.WithLabelValues(outcomeFailed).Inc()
		return outcomeFailed
	}
	if rec == nil {
		// запись захвачена другим воркером либо уже не претендует на обработку
		_ = s.storage.RollbackTx(txCtx)
		listingsProcessedTotal.WithLabelValues(outcomeSkipped).Inc()
		return outcomeSkipped
	}

	var eventType string
	var procErr error
	if rec.Status == models.StatusDeleteRequired {
		eventType, procErr = s.handleDelete(ctx, txCtx, rec)
	} else {
		eventType, procErr = s.handleUpsert(ctx, txCtx, rec)
	}

	if procErr != nil {
		// откат снимает блокировку; исход фиксируется отдельной операцией
		_ = s.storage.RollbackTx(txCtx)
		outcome := s.recordFailure(ctx, rec, procErr)
		listingsProcessedTotal.WithLabelValues(outcome).Inc()
		return outcome
	}

	if err := s.storage.CommitTx(txCtx); err != nil {
		s.logger.Error("failed to commit listing transaction",
			interfaces.LogField{Key: "listing", Value: id},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
		listingsProcessedTotal.WithLabelValues(outcomeFailed).Inc()
		return outcomeFailed
	}

	s.events.emit(ctx, eventType, rec.ID, rec.VehicleID, rec.DealerID, "")

	outcome := outcomePublished
	if eventType == EventListingDeleted {
		outcome = outcomeDeleted
	}
	listingsProcessedTotal.WithLabelValues(outcome).Inc()
	return outcome
}

// handleDelete снимает листинг с маркетплейса и удаляет локальную запись.
// Отсутствие листинга на стороне AS24 при удалении — успех: желаемое
// состояние уже достигнуто.
func (s *SyncService) handleDelete(ctx, txCtx context.Context, rec *models.ListingRecord) (string, error) {
	if rec.RemoteListingID != nil {
		cfg, err := s.storage.GetDealerConfig(txCtx, rec.DealerID)
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("dealer %s is not configured or disabled", rec.DealerID)
		}
		if err != nil {
			return "", err
		}

		customerID, err := s.market.ResolveCustomerID(ctx, cfg.SellID)
		if err != nil {
			return "", err
		}

		err = s.market.DeleteListing(ctx, customerID, *rec.RemoteListingID, cfg.TestMode)
		if err != nil && !autoscout.IsListingNotFound(err) {
			return "", err
		}
		if err != nil {
			s.logger.Info("listing already absent on marketplace",
				interfaces.LogField{Key: "listing", Value: rec.ID},
				interfaces.LogField{Key: "remote_id", Value: *rec.RemoteListingID},
			)
		}
	}

	if err := s.storage.DeleteListing(txCtx, rec.ID); err != nil {
		return "", err
	}
	return EventListingDeleted, nil
}

// handleUpsert собирает снимок автомобиля, строит payload и
// создает либо обновляет листинг на маркетплейсе
func (s *SyncService) handleUpsert(ctx, txCtx context.Context, rec *models.ListingRecord) (string, error) {
	cfg, err := s.storage.GetDealerConfig(txCtx, rec.DealerID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("dealer %s is not configured or disabled", rec.DealerID)
	}
	if err != nil {
		return "", err
	}

	view, err := s.storage.GetVehicleView(txCtx, rec.VehicleID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("vehicle %s: incomplete source data", rec.VehicleID)
	}
	if err != nil {
		return "", err
	}

	refs, err := s.buildCatalogRefs(txCtx, view)
	if err != nil {
		return "", err
	}

	payload, err := mapper.Build(view, cfg, refs)
	if err != nil {
		return "", err
	}

	customerID, err := s.market.ResolveCustomerID(ctx, cfg.SellID)
	if err != nil {
		return "", err
	}

	media, err := s.storage.GetVehicleMedia(txCtx, rec.VehicleID)
	if err != nil {
		return "", err
	}
	mapper.AttachImages(payload, s.uploadImages(ctx, customerID, media, cfg.TestMode))

	if rec.RemoteListingID == nil {
		remoteID, err := s.market.CreateListing(ctx, customerID, payload, cfg.TestMode)
		if err != nil {
			return "", err
		}
		if err := s.storage.MarkPublished(txCtx, rec.ID, remoteID); err != nil {
			return "", err
		}
		return EventListingCreated, nil
	}

	if err := s.market.UpdateListing(ctx, customerID, *rec.RemoteListingID, payload, cfg.TestMode); err != nil {
		return "", err
	}
	if err := s.storage.MarkPublished(txCtx, rec.ID, *rec.RemoteListingID); err != nil {
		return "", err
	}
	return EventListingUpdated, nil
}

// buildCatalogRefs резолвит контролируемые словари AS24 для автомобиля.
// Дыра в любом словаре (модель, каталог, топливо, заполненный tipo) —
// ошибка конфигурации, запись уходит в ERROR; только отсутствующий tipo
// деградирует в fallback по сегменту.
func (s *SyncService) buildCatalogRefs(txCtx context.Context, view *models.VehicleView) (*models.CatalogRefs, error) {
	makeID, modelID, vehicleType, err := s.storage.GetModelMapping(txCtx, view.CatalogCode)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("no AS24 model mapping for codice_motornet %s", view.CatalogCode)
	}
	if err != nil {
		return nil, err
	}

	// Тип AS24 обязан совпадать с каталогом-источником Motornet
	switch vehicleType {
	case models.VehicleTypeCar:
		if view.Catalog != "auto" {
			return nil, fmt.Errorf("model mapped as C but source catalog is %q", view.Catalog)
		}
	case models.VehicleTypeCommercial:
		if view.Catalog != "vic" {
			return nil, fmt.Errorf("model mapped as X but source catalog is %q", view.Catalog)
		}
	default:
		return nil, fmt.Errorf("unsupported AS24 vehicle type %q", vehicleType)
	}

	refs := &models.CatalogRefs{
		MakeID:      makeID,
		ModelID:     modelID,
		VehicleType: vehicleType,
	}

	if vehicleType == models.VehicleTypeCommercial {
		// У коммерческого транспорта нет технических деталей AUTO;
		// кузов всегда Altro
		refs.BodyTypeID = mapper.BodyTypeOther
	} else {
		tech, err := s.storage.GetTechDetails(txCtx, view.CatalogCode)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("no tech details for codice_motornet %s", view.CatalogCode)
		}
		if err != nil {
			return nil, err
		}
		view.Tech = tech

		refs.BodyTypeID, err = s.resolveBodyType(txCtx, tech)
		if err != nil {
			return nil, err
		}

		if tech.Fuel != nil {
			primary, category, err := s.storage.GetFuelMapping(txCtx, *tech.Fuel)
			if errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("no AS24 fuel mapping for alimentazione %q", *tech.Fuel)
			}
			if err != nil {
				return nil, err
			}
			refs.PrimaryFuelType = &primary
			refs.FuelCategory = &category
		}

		gearbox := ""
		if tech.Gearbox != nil {
			gearbox = *tech.Gearbox
		}
		transmission := mapper.MapTransmission(gearbox)
		refs.Transmission = &transmission

		if tech.Drivetrain != nil {
			refs.Drivetrain = mapper.MapDrivetrain(*tech.Drivetrain)
		}
	}

	equipment, err := s.storage.GetEquipmentIDs(txCtx, view.VehicleID)
	if err != nil {
		return nil, err
	}
	refs.EquipmentIDs = equipment

	return refs, nil
}

// resolveBodyType: первичный словарь tipo; fallback по сегменту только
// при отсутствующем tipo. Присутствующий, но немаппированный tipo —
// дыра в словаре, запись уходит в ERROR.
func (s *SyncService) resolveBodyType(txCtx context.Context, tech *models.TechDetails) (int, error) {
	if tech.BodyKind != nil && strings.TrimSpace(*tech.BodyKind) != "" {
		id, err := s.storage.GetBodyTypeID(txCtx, strings.TrimSpace(*tech.BodyKind))
		if errors.Is(err, storage.ErrNotFound) {
			return 0, fmt.Errorf("no AS24 bodytype mapping for tipo %q", *tech.BodyKind)
		}
		if err != nil {
			return 0, err
		}
		return id, nil
	}
	return mapper.FallbackBodyType(tech.Segment), nil
}

// uploadImages выполняет pre-upload витрины. Падение отдельного изображения
// не прерывает публикацию: листинг уходит с тем, что удалось загрузить.
func (s *SyncService) uploadImages(ctx context.Context, customerID string, media []models.VehicleMedia, testMode bool) []string {
	if s.images == nil {
		return nil
	}

	var ids []string
	for _, m := range media {
		data, contentType, err := s.images.Fetch(ctx, m.URL)
		if err != nil {
			s.logger.Warn("image fetch failed, skipping",
				interfaces.LogField{Key: "media", Value: m.MediaID},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
			continue
		}
		if !allowedImageTypes[contentType] {
			s.logger.Warn("unsupported image content type, skipping",
				interfaces.LogField{Key: "media", Value: m.MediaID},
				interfaces.LogField{Key: "content_type", Value: contentType},
			)
			continue
		}

		id, err := s.market.UploadImage(ctx, customerID, data, contentType, testMode)
		if err != nil {
			s.logger.Warn("image upload failed, skipping",
				interfaces.LogField{Key: "media", Value: m.MediaID},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
			continue
		}
		imagesUploadedTotal.Inc()
		ids = append(ids, id)
	}
	return ids
}

// recordFailure фиксирует исход неудачи отдельной операцией после отката.
// Дрейф "листинг не существует" при create/update лечится авторемонтом:
// запись возвращается в PENDING_CREATE с чистым listing_id и retry_count.
func (s *SyncService) recordFailure(ctx context.Context, rec *models.ListingRecord, procErr error) string {
	msg := truncateError(procErr)

	if autoscout.IsListingNotFound(procErr) && rec.Status != models.StatusDeleteRequired {
		s.logger.Warn("marketplace drift detected, scheduling recreate",
			interfaces.LogField{Key: "listing", Value: rec.ID},
			interfaces.LogField{Key: "error", Value: msg},
		)
		if err := s.storage.ResetForRepair(ctx, rec.ID, msg); err != nil {
			s.logger.Error("failed to reset listing for repair",
				interfaces.LogField{Key: "listing", Value: rec.ID},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
			return outcomeFailed
		}
		s.events.emit(ctx, EventListingRepaired, rec.ID, rec.VehicleID, rec.DealerID, msg)
		return outcomeRepaired
	}

	s.logger.Error("listing processing failed",
		interfaces.LogField{Key: "listing", Value: rec.ID},
		interfaces.LogField{Key: "status", Value: string(rec.Status)},
		interfaces.LogField{Key: "error", Value: msg},
	)
	if err := s.storage.MarkError(ctx, rec.ID, msg); err != nil {
		s.logger.Error("failed to mark listing error",
			interfaces.LogField{Key: "listing", Value: rec.ID},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
	}
	s.events.emit(ctx, EventListingFailed, rec.ID, rec.VehicleID, rec.DealerID, msg)
	return outcomeFailed
}

func truncateError(err error) string {
	msg := err.Error()
	if len(msg) > maxErrorLength {
		return msg[:maxErrorLength]
	}
	return msg
}

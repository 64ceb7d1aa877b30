package services

import (
	"context"
	"fmt"

	"github.com/VMAzure/azurenet-engine/internal/adapters/storage"
	"github.com/VMAzure/azurenet-engine/internal/domain/models"
	"github.com/VMAzure/azurenet-engine/pkg/interfaces"
)

// CatalogService зеркалирует официальный справочник марок/моделей AS24
// в локальную таблицу. Справочник — основа ручного маппинга моделей:
// без него операторы не могут заполнять autoscout_model_map_v2.
type CatalogService struct {
	storage storage.ListingStoragePort
	market  MarketplacePort
	logger  interfaces.LoggerPort
}

// NewCatalogService создает сервис синхронизации справочника
func NewCatalogService(st storage.ListingStoragePort, market MarketplacePort, logger interfaces.LoggerPort) *CatalogService {
	return &CatalogService{storage: st, market: market, logger: logger}
}

// RunOnce забирает каталог /makes и дописывает отсутствующие модели.
// Только типы C и X: прочий транспорт AS24 движком не поддерживается.
func (s *CatalogService) RunOnce(ctx context.Context) (int, error) {
	makes, err := s.market.GetMakes(ctx)
	if err != nil {
		return 0, fmt.Errorf("catalog sync: %w", err)
	}

	inserted := 0
	for _, mk := range makes {
		for _, md := range mk.Models {
			if md.VehicleType != models.VehicleTypeCar && md.VehicleType != models.VehicleTypeCommercial {
				continue
			}

			ok, err := s.storage.UpsertReferenceModel(ctx, models.ReferenceModel{
				MakeID:      mk.ID,
				MakeName:    mk.Name,
				ModelID:     md.ID,
				ModelName:   md.Name,
				VehicleType: md.VehicleType,
			})
			if err != nil {
				return inserted, fmt.Errorf("catalog sync: %w", err)
			}
			if ok {
				inserted++
			}
		}
	}

	s.logger.Info("reference catalog synced",
		interfaces.LogField{Key: "makes", Value: len(makes)},
		interfaces.LogField{Key: "new_models", Value: inserted},
	)
	return inserted, nil
}

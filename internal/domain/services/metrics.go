package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "azurenet_sync_cycles_total",
		Help: "Количество выполненных циклов синхронизации",
	})

	listingsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "azurenet_listings_processed_total",
		Help: "Обработанные записи по исходам",
	}, []string{"outcome"})

	syncCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "azurenet_sync_cycle_duration_seconds",
		Help:    "Длительность цикла синхронизации",
		Buckets: prometheus.DefBuckets,
	})

	imagesUploadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "azurenet_images_uploaded_total",
		Help: "Изображения, загруженные на маркетплейс",
	})

	enrichedVehiclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "azurenet_enriched_vehicles_total",
		Help: "Автомобили, обогащённые классом выбросов",
	})
)

const (
	outcomePublished = "published"
	outcomeDeleted   = "deleted"
	outcomeRepaired  = "repaired"
	outcomeFailed    = "failed"
	outcomeSkipped   = "skipped"
)

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VMAzure/azurenet-engine/internal/adapters/storage"
	"github.com/VMAzure/azurenet-engine/internal/api/handlers"
	"github.com/VMAzure/azurenet-engine/internal/api/middleware"
	"github.com/VMAzure/azurenet-engine/internal/domain/services"
	"github.com/VMAzure/azurenet-engine/internal/security"
	"github.com/VMAzure/azurenet-engine/pkg/interfaces"
)

// SetupRouter настраивает маршрутизатор admin API
func SetupRouter(
	st storage.ListingStoragePort,
	syncService *services.SyncService,
	market services.MarketplacePort,
	jwtManager *security.JWTManager,
	metricsEnabled bool,
	metricsEndpoint string,
	logger interfaces.LoggerPort,
) *chi.Mux {
	r := chi.NewRouter()

	// Глобальные middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Method(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))
	r.Method(http.MethodHead, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	if metricsEnabled {
		if metricsEndpoint == "" {
			metricsEndpoint = "/metrics"
		}
		r.Handle(metricsEndpoint, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.JWTAuth(jwtManager, logger))

		authHandler := handlers.NewAuthHandler(jwtManager, logger)
		r.Post("/auth/refresh", authHandler.Refresh)

		// Мутации доступны только операторам
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(jwtManager, "operator"))

			listingHandler := handlers.NewListingHandler(st, syncService, market, logger)

			r.Route("/listings", func(r chi.Router) {
				// Записи, застрявшие в ERROR
				r.Get("/errors", listingHandler.ListErrored)

				// Возврат записи в очередь обработки
				r.Post("/{id}/requeue", listingHandler.Requeue)

				// Переключение видимости опубликованного листинга
				r.Post("/{id}/publication", listingHandler.Publication)
			})

			// Внеочередной цикл синхронизации
			r.Post("/sync", listingHandler.TriggerSync)
		})
	})

	return r
}

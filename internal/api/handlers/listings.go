package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/VMAzure/azurenet-engine/internal/adapters/storage"
	"github.com/VMAzure/azurenet-engine/internal/domain/models"
	"github.com/VMAzure/azurenet-engine/internal/domain/services"
	"github.com/VMAzure/azurenet-engine/pkg/interfaces"
)

// ListingHandler обработчик admin-запросов к записям синхронизации
type ListingHandler struct {
	storage storage.ListingStoragePort
	sync    *services.SyncService
	market  services.MarketplacePort
	logger  interfaces.LoggerPort
}

// NewListingHandler создает новый обработчик листингов
func NewListingHandler(st storage.ListingStoragePort, sync *services.SyncService, market services.MarketplacePort, logger interfaces.LoggerPort) *ListingHandler {
	return &ListingHandler{storage: st, sync: sync, market: market, logger: logger}
}

// errorResponse представляет структуру ответа с ошибкой
type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// response представляет структуру успешного ответа
type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type pageMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// ListErrored возвращает страницу записей в статусе ERROR
func (h *ListingHandler) ListErrored(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(r.URL.Query().Get("page_size"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	records, total, err := h.storage.ListErrored(r.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		h.logger.Error("Ошибка получения списка записей",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка получения списка записей",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    records,
		Meta:    pageMeta{Page: page, PageSize: pageSize, Total: total},
	})
}

// Requeue возвращает запись из ERROR в очередь обработки.
// Запись без подтверждённого листинга пересоздаётся (PENDING_CREATE),
// с подтверждённым — переотправляется (UPDATE_REQUIRED).
func (h *ListingHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "bad_request",
			Code:    http.StatusBadRequest,
			Message: "ID записи не указан",
		})
		return
	}

	rec, err := h.storage.GetListing(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorResponse{
			Error:   "not_found",
			Code:    http.StatusNotFound,
			Message: "Запись не найдена",
		})
		return
	}
	if err != nil {
		h.logger.Error("Ошибка получения записи",
			interfaces.LogField{Key: "listing", Value: id},
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка получения записи",
		})
		return
	}

	if rec.Status != models.StatusError {
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, errorResponse{
			Error:   "conflict",
			Code:    http.StatusConflict,
			Message: "Запись не в статусе ERROR",
		})
		return
	}

	target := models.StatusUpdateRequired
	if rec.RemoteListingID == nil {
		target = models.StatusPendingCreate
	}

	if err := h.storage.RequeueListing(r.Context(), id, target); err != nil {
		h.logger.Error("Ошибка возврата записи в очередь",
			interfaces.LogField{Key: "listing", Value: id},
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка возврата записи в очередь",
		})
		return
	}

	h.logger.Info("listing requeued by operator",
		interfaces.LogField{Key: "listing", Value: id},
		interfaces.LogField{Key: "target_status", Value: string(target)},
	)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    map[string]string{"id": id, "status": string(target)},
	})
}

// Publication переключает видимость уже опубликованного листинга
// без полного цикла синхронизации
func (h *ListingHandler) Publication(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		(req.Status != "Active" && req.Status != "Inactive") {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "bad_request",
			Code:    http.StatusBadRequest,
			Message: "Статус публикации должен быть Active или Inactive",
		})
		return
	}

	rec, err := h.storage.GetListing(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorResponse{
			Error:   "not_found",
			Code:    http.StatusNotFound,
			Message: "Запись не найдена",
		})
		return
	}
	if err != nil {
		h.logger.Error("Ошибка получения записи",
			interfaces.LogField{Key: "listing", Value: id},
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error: "internal_error",
			Code:  http.StatusInternalServerError,
		})
		return
	}

	if rec.RemoteListingID == nil {
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, errorResponse{
			Error:   "conflict",
			Code:    http.StatusConflict,
			Message: "Листинг ещё не создан на маркетплейсе",
		})
		return
	}

	cfg, err := h.storage.GetDealerConfig(r.Context(), rec.DealerID)
	if errors.Is(err, storage.ErrNotFound) {
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, errorResponse{
			Error:   "conflict",
			Code:    http.StatusConflict,
			Message: "Дилер не настроен или отключён",
		})
		return
	}
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error: "internal_error",
			Code:  http.StatusInternalServerError,
		})
		return
	}

	customerID, err := h.market.ResolveCustomerID(r.Context(), cfg.SellID)
	if err == nil {
		err = h.market.UpdatePublicationStatus(r.Context(), customerID, *rec.RemoteListingID, req.Status, cfg.TestMode)
	}
	if err != nil {
		h.logger.Error("Ошибка переключения публикации",
			interfaces.LogField{Key: "listing", Value: id},
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, errorResponse{
			Error:   "marketplace_error",
			Code:    http.StatusBadGateway,
			Message: "Маркетплейс отклонил переключение публикации",
		})
		return
	}

	h.logger.Info("listing publication toggled",
		interfaces.LogField{Key: "listing", Value: id},
		interfaces.LogField{Key: "status", Value: req.Status},
	)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    map[string]string{"id": id, "publication": req.Status},
	})
}

// TriggerSync запускает внеочередной цикл синхронизации
func (h *ListingHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sync.RunOnce(r.Context())
	if err != nil {
		h.logger.Error("Ошибка внеочередного цикла синхронизации",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка цикла синхронизации",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{Success: true, Data: stats})
}

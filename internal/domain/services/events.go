package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/VMAzure/azurenet-engine/pkg/interfaces"
)

// Типы событий жизненного цикла листинга
const (
	EventListingCreated  = "listing.created"
	EventListingUpdated  = "listing.updated"
	EventListingDeleted  = "listing.deleted"
	EventListingRepaired = "listing.repaired"
	EventListingFailed   = "listing.failed"
)

// ListingEvent — событие жизненного цикла, публикуемое в шину после фиксации
// исхода в БД. Потребители: нотификации дилерам, аналитика.
type ListingEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	ListingID  string    `json:"listing_id"`
	VehicleID  string    `json:"vehicle_id"`
	DealerID   string    `json:"dealer_id"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// eventEmitter публикует события в шину; ошибки публикации не влияют
// на исход синхронизации и только логируются
type eventEmitter struct {
	publisher interfaces.MessagingPort
	topic     string
	logger    interfaces.LoggerPort
}

func newEventEmitter(publisher interfaces.MessagingPort, topic string, logger interfaces.LoggerPort) *eventEmitter {
	return &eventEmitter{publisher: publisher, topic: topic, logger: logger}
}

func (e *eventEmitter) emit(ctx context.Context, eventType, listingID, vehicleID, dealerID, detail string) {
	if e.publisher == nil {
		return
	}

	event := ListingEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		ListingID:  listingID,
		VehicleID:  vehicleID,
		DealerID:   dealerID,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		e.logger.Error("failed to marshal listing event", interfaces.LogField{Key: "error", Value: err.Error()})
		return
	}

	if err := e.publisher.Publish(ctx, e.topic, listingID, value); err != nil {
		e.logger.Warn("failed to publish listing event",
			interfaces.LogField{Key: "type", Value: eventType},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
	}
}

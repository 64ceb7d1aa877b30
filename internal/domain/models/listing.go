package models

import "time"

// Status определяет состояние записи синхронизации листинга
type Status string

const (
	StatusPendingCreate  Status = "PENDING_CREATE"
	StatusUpdateRequired Status = "UPDATE_REQUIRED"
	StatusDeleteRequired Status = "DELETE_REQUIRED"
	StatusPublished      Status = "PUBLISHED"
	StatusError          Status = "ERROR"
)

// ClaimableStatuses возвращает статусы, доступные для захвата воркером.
// ERROR намеренно исключён: такие записи требуют внешнего вмешательства
// (admin API) либо авторемонта через переход PENDING_CREATE.
func ClaimableStatuses() []Status {
	return []Status{
		StatusPendingCreate,
		StatusUpdateRequired,
		StatusDeleteRequired,
	}
}

// IsClaimable сообщает, может ли запись в данном статусе быть захвачена
func (s Status) IsClaimable() bool {
	switch s {
	case StatusPendingCreate, StatusUpdateRequired, StatusDeleteRequired:
		return true
	}
	return false
}

// ListingRecord представляет намерение синхронизации одного автомобиля
// одного дилера с маркетплейсом AutoScout24 (таблица autoscout_listings)
type ListingRecord struct {
	ID        string `json:"id"`
	VehicleID string `json:"id_auto"`
	DealerID  string `json:"dealer_id"`

	// RemoteListingID не NULL тогда и только тогда, когда маркетплейс
	// подтвердил создание листинга
	RemoteListingID *string `json:"listing_id,omitempty"`

	Status     Status  `json:"status"`
	LastError  *string `json:"last_error,omitempty"`
	RetryCount int     `json:"retry_count"`

	RequestedAt   time.Time  `json:"requested_at"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
}

// DealerConfig представляет конфигурацию дилера, подключённого к AutoScout24
// (таблица autoscout_dealer_config)
type DealerConfig struct {
	DealerID string `json:"dealer_id"`
	// SellID известен дилеру; customerId маркетплейса резолвится лениво
	SellID   string `json:"customer_id"`
	TestMode bool   `json:"test_mode"`
	Enabled  bool   `json:"enabled"`
}

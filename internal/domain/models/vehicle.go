package models

import "time"

// Типы транспортных средств AutoScout24
const (
	VehicleTypeCar        = "C" // автомобили (catalog = auto)
	VehicleTypeCommercial = "X" // коммерческий транспорт (catalog = vic)
)

// VehicleView — неизменяемый снимок данных автомобиля на момент обработки:
// соединение технических данных (azlease_usatoauto + v_mnet_dettagli_unificati),
// коммерческого контекста (azlease_usatoin) и деталей AUTO (mnet_dettagli_usato).
// Движок его только читает.
type VehicleView struct {
	VehicleID     string
	CatalogCode   string // codice_motornet_uni
	Catalog       string // "auto" | "vic"
	TrimName      *string
	TrimAlias     *string
	Description   *string
	Color         string

	RegistrationYear  *int
	RegistrationMonth *int
	Mileage           *int

	LastServiceDate    *time.Time
	FullServiceHistory *bool

	// Коммерческий контекст
	SalePrice  int
	VATExposed bool
	VATRate    *int
	Visible    bool

	// Технические детали (только для vehicleType = C)
	Tech *TechDetails
}

// TechDetails хранит сырые значения Motornet: источник отдаёт строки,
// числовая конвертация выполняется маппером (неконвертируемое = отсутствует)
type TechDetails struct {
	BodyKind   *string // tipo
	Segment    *string // segmento
	Fuel       *string // alimentazione
	Gearbox    *string // cambio
	Drivetrain *string // trazione

	PowerKW       *string
	Displacement  *string // cilindrata
	CylinderCount *string
	EmptyWeight   *string
	SeatCount     *string
	DoorCount     *string

	CO2                 *string
	ConsumptionCombined *string
	GearCount           *string
	Length              *string
	Width               *string
	Height              *string
}

// CatalogRefs — идентификаторы контролируемых словарей AutoScout24,
// разрешённые по справочным таблицам до вызова маппера
type CatalogRefs struct {
	MakeID      int
	ModelID     int
	VehicleType string // "C" | "X"

	BodyTypeID      int
	PrimaryFuelType *int
	FuelCategory    *string
	Transmission    *string // "M" | "A"
	Drivetrain      *string // "F" | "R" | "4"

	EquipmentIDs []int
}

// VehicleMedia — один элемент витрины автомобиля для pre-upload на маркетплейс
type VehicleMedia struct {
	MediaID   string
	MediaType string // "foto" | "ai"
	URL       string
	Priority  *int
	CreatedAt time.Time
}

// EnrichmentCandidate — автомобиль без директивы выбросов, кандидат на WLTP-обогащение
type EnrichmentCandidate struct {
	VehicleID        string
	CatalogCode      string
	RegistrationYear int
}

// ReferenceModel — строка официального справочника марок/моделей AutoScout24
type ReferenceModel struct {
	MakeID      int
	MakeName    string
	ModelID     int
	ModelName   string
	VehicleType string // "C" | "X"
}

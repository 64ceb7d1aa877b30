package mapper

import (
	"fmt"
	"math"
	"strings"

	"github.com/VMAzure/azurenet-engine/internal/domain/models"
)

// Значения payload, замороженные для продакшена
const (
	offerTypeUsed         = "U"
	availabilityImmediate = 1
	currencyEUR           = "EUR"
	defaultVATRate        = 22
	publicationChannel    = "AS24"
)

// ValidationError — типизированная ошибка валидации обязательных полей.
// Маппер падает сразу, частичный payload никогда не отдаётся.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("payload validation: %s %s", e.Field, e.Reason)
}

// Payload — тело запроса создания/обновления листинга AutoScout24
type Payload map[string]interface{}

// optionalField — одна строка декларативной таблицы опциональных полей:
// ключ payload + источник значения. Поле попадает в payload только если
// источник отдал значение.
type optionalField struct {
	key    string
	source func(v *models.VehicleView, r *models.CatalogRefs) (interface{}, bool)
}

func techInt(pick func(*models.TechDetails) *string) func(*models.VehicleView, *models.CatalogRefs) (interface{}, bool) {
	return func(v *models.VehicleView, _ *models.CatalogRefs) (interface{}, bool) {
		if v.Tech == nil {
			return nil, false
		}
		n, ok := toInt(pick(v.Tech))
		return n, ok
	}
}

// optionalFields перечисляет все опциональные поля payload в фиксированном
// порядке вычисления. Единицы измерения добавляются рядом с полем.
var optionalFields = []optionalField{
	{"power", techInt(func(t *models.TechDetails) *string { return t.PowerKW })},
	{"cylinderCapacity", techInt(func(t *models.TechDetails) *string { return t.Displacement })},
	{"cylinderCount", techInt(func(t *models.TechDetails) *string { return t.CylinderCount })},
	{"emptyWeight", techInt(func(t *models.TechDetails) *string { return t.EmptyWeight })},
	{"seatCount", techInt(func(t *models.TechDetails) *string { return t.SeatCount })},
	{"doorCount", techInt(func(t *models.TechDetails) *string { return t.DoorCount })},
	{"co2Emission", techInt(func(t *models.TechDetails) *string { return t.CO2 })},
	{"combinedConsumption", techInt(func(t *models.TechDetails) *string { return t.ConsumptionCombined })},
	{"gearCount", techInt(func(t *models.TechDetails) *string { return t.GearCount })},
	{"length", techInt(func(t *models.TechDetails) *string { return t.Length })},
	{"width", techInt(func(t *models.TechDetails) *string { return t.Width })},
	{"height", techInt(func(t *models.TechDetails) *string { return t.Height })},
	{"lastTechnicalServiceDate", func(v *models.VehicleView, _ *models.CatalogRefs) (interface{}, bool) {
		if v.LastServiceDate == nil {
			return nil, false
		}
		return v.LastServiceDate.Format("2006-01"), true
	}},
	{"description", func(v *models.VehicleView, _ *models.CatalogRefs) (interface{}, bool) {
		if v.Description == nil {
			return nil, false
		}
		d := strings.TrimSpace(*v.Description)
		return d, d != ""
	}},
	{"modelVersion", func(v *models.VehicleView, _ *models.CatalogRefs) (interface{}, bool) {
		return resolveModelVersion(v)
	}},
	{"equipment", func(_ *models.VehicleView, r *models.CatalogRefs) (interface{}, bool) {
		eq := NormalizeEquipment(r.EquipmentIDs)
		return eq, len(eq) > 0
	}},
	{"hasFullServiceHistory", func(v *models.VehicleView, _ *models.CatalogRefs) (interface{}, bool) {
		if v.FullServiceHistory == nil {
			return nil, false
		}
		return *v.FullServiceHistory, true
	}},
}

// resolveModelVersion: алиас аллестименто дилера приоритетнее словаря Motornet
func resolveModelVersion(v *models.VehicleView) (interface{}, bool) {
	if v.TrimAlias != nil && strings.TrimSpace(*v.TrimAlias) != "" {
		return strings.TrimSpace(*v.TrimAlias), true
	}
	if v.TrimName != nil && strings.TrimSpace(*v.TrimName) != "" {
		return strings.TrimSpace(*v.TrimName), true
	}
	return nil, false
}

// Build собирает payload создания/обновления листинга AutoScout24.
// Чистая функция: без I/O, валидация обязательных полей падает сразу.
// Конфигурация дилера влияет на транспорт (X-Testmode), не на payload.
func Build(view *models.VehicleView, _ *models.DealerConfig, refs *models.CatalogRefs) (Payload, error) {
	if view.RegistrationYear == nil {
		return nil, &ValidationError{Field: "anno_immatricolazione", Reason: "mancante"}
	}
	if view.Mileage == nil {
		return nil, &ValidationError{Field: "km_certificati", Reason: "mancante"}
	}
	if *view.Mileage < 0 {
		return nil, &ValidationError{Field: "km_certificati", Reason: "negativo"}
	}
	if view.SalePrice <= 0 {
		return nil, &ValidationError{Field: "prezzo_vendita", Reason: "non valido"}
	}

	month := 1
	if view.RegistrationMonth != nil && *view.RegistrationMonth >= 1 && *view.RegistrationMonth <= 12 {
		month = *view.RegistrationMonth
	}

	payload := Payload{
		"vehicleType": refs.VehicleType,
		"offerType":   offerTypeUsed,

		"make":  refs.MakeID,
		"model": refs.ModelID,

		"firstRegistrationDate": fmt.Sprintf("%d-%02d", *view.RegistrationYear, month),
		"mileage":               *view.Mileage,

		"availability": map[string]interface{}{
			"availabilityType": availabilityImmediate,
		},

		"bodyType":      refs.BodyTypeID,
		"bodyColorName": view.Color,

		"prices": map[string]interface{}{
			"public": buildPublicPrice(view),
		},

		"publication": buildPublication(view),

		"condition": map[string]interface{}{
			"hadAccident": false,
		},
	}

	// Fuel и transmission есть только у C; для X поля исключаются целиком
	if refs.PrimaryFuelType != nil && refs.FuelCategory != nil {
		payload["fuel"] = map[string]interface{}{
			"primaryFuelType": *refs.PrimaryFuelType,
			"fuelCategory":    *refs.FuelCategory,
		}
	}
	if refs.Transmission != nil {
		payload["transmission"] = *refs.Transmission
	}
	if refs.Drivetrain != nil {
		payload["drivetrain"] = *refs.Drivetrain
	}

	for _, f := range optionalFields {
		if v, ok := f.source(view, refs); ok {
			payload[f.key] = v
		}
	}

	// Единицы измерения сопровождают соответствующие поля
	if _, ok := payload["power"]; ok {
		payload["powerUnit"] = "kW"
	}
	if _, ok := payload["cylinderCapacity"]; ok {
		payload["cylinderCapacityUnit"] = "m3"
	}
	if _, ok := payload["emptyWeight"]; ok {
		payload["emptyWeightUnit"] = "kg"
	}

	return payload, nil
}

// buildPublicPrice строит блок PublicPrice. Net price и ставка НДС
// присоединяются только при экспонированном НДС; иначе цена проходит как есть.
func buildPublicPrice(view *models.VehicleView) map[string]interface{} {
	public := map[string]interface{}{
		"price":           view.SalePrice,
		"currency":        currencyEUR,
		"isNegotiable":    false,
		"isTaxDeductible": view.VATExposed,
	}

	if view.VATExposed {
		rate := defaultVATRate
		if view.VATRate != nil && *view.VATRate > 0 {
			rate = *view.VATRate
		}
		net := int(math.Round(float64(view.SalePrice) / (1 + float64(rate)/100)))
		public["netPrice"] = net
		public["vatRate"] = rate
	}

	return public
}

// buildPublication: статус публикации выводится из флага видимости
// коммерческой записи, независимо от остального payload
func buildPublication(view *models.VehicleView) map[string]interface{} {
	status := "Inactive"
	if view.Visible {
		status = "Active"
	}
	return map[string]interface{}{
		"status":   status,
		"channels": []map[string]string{{"id": publicationChannel}},
	}
}

// AttachImages прикрепляет pre-uploaded изображения к payload как есть
func AttachImages(p Payload, imageIDs []string) {
	if len(imageIDs) == 0 {
		return
	}
	images := make([]map[string]string, 0, len(imageIDs))
	for _, id := range imageIDs {
		images = append(images, map[string]string{"id": id})
	}
	p["images"] = images
}

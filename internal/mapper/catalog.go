package mapper

import (
	"sort"
	"strconv"
	"strings"
)

// Фиксированные категории кузова AutoScout24 для fallback-ветки
const (
	BodyTypeSUV   = 4 // SUV / Fuoristrada / Pick-up
	BodyTypeOther = 7 // Altro (валиден и для vehicleType = X)
)

// Коды трансмиссии AutoScout24
const (
	TransmissionManual    = "M"
	TransmissionAutomatic = "A"
)

// mnetAutomaticGearboxes — значения cambio Motornet, считающиеся автоматом.
// Всё нераспознанное трактуется как механика, ошибки здесь не бывает.
var mnetAutomaticGearboxes = map[string]bool{
	"Automatico":                 true,
	"Automatico sequenziale":     true,
	"Automatico doppia frizione": true,
	"CVT":                        true,
}

// MapTransmission переводит словарь cambio Motornet в enum AS24.
// Нераспознанное значение = механика (замороженное поведение продакшена).
func MapTransmission(gearbox string) string {
	if mnetAutomaticGearboxes[strings.TrimSpace(gearbox)] {
		return TransmissionAutomatic
	}
	return TransmissionManual
}

// MapDrivetrain переводит trazione Motornet в enum AS24.
// Немаппируемое значение исключает поле из payload (nil).
func MapDrivetrain(drivetrain string) *string {
	m := map[string]string{
		"Anteriore":  "F",
		"Posteriore": "R",
		"Integrale":  "4",
	}
	if v, ok := m[strings.TrimSpace(drivetrain)]; ok {
		return &v
	}
	return nil
}

// FallbackBodyType резолвит кузов при отсутствии первичного кода tipo:
// сегменты внедорожников идут в SUV, остальное в Altro
func FallbackBodyType(segment *string) int {
	if segment != nil {
		switch strings.TrimSpace(*segment) {
		case "Pick-up", "Fuoristrada":
			return BodyTypeSUV
		}
	}
	return BodyTypeOther
}

// equipmentExclusions: generic-код → специфичные коды, его вытесняющие.
// 152 porta scorrevole vs 244/245 porta scorrevole elettrica dx/sx;
// 30 climatizzatore automatico vs 241/242/243 bi/tri/quadri-zona.
var equipmentExclusions = map[int][]int{
	152: {244, 245},
	30:  {241, 242, 243},
}

// NormalizeEquipment дедуплицирует список кодов оснащения и убирает
// generic-код, когда присутствует более специфичный взаимоисключающий.
// Операция идемпотентна; порядок результата детерминирован (по возрастанию).
func NormalizeEquipment(ids []int) []int {
	present := make(map[int]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}

	for generic, specifics := range equipmentExclusions {
		if !present[generic] {
			continue
		}
		for _, s := range specifics {
			if present[s] {
				delete(present, generic)
				break
			}
		}
	}

	out := make([]int, 0, len(present))
	for id := range present {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// toInt конвертирует сырое строковое значение Motornet в число.
// Неконвертируемое значение = отсутствующее поле, никогда не ноль.
func toInt(raw *string) (int, bool) {
	if raw == nil {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(*raw))
	if err != nil {
		return 0, false
	}
	return v, true
}

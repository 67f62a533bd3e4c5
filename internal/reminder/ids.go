package reminder

import (
	"hash/fnv"

	"suppletrack/internal/domain/doses"
)

// slotID deriva el id de wake-up/notificación de (dosis, hora, minuto):
// hash(doseID)*10000 + hora*100 + minuto. Determinista, así cancelar no
// necesita un registro persistido aparte: con la dosis y la hora
// alcanza para reconstruir el id. El mismo id identifica el wake-up y
// la notificación que éste muestra.
func slotID(doseID string, t doses.TimeOfDay) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(doseID))
	return int64(h.Sum32())*10_000 + int64(t.Hour)*100 + int64(t.Minute)
}

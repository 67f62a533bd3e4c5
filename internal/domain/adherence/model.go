package adherence

import "time"

// Status de una toma. Missed existe solo como inferencia al renderizar:
// un slot programado cuya hora pasó sin entrada Taken/Skipped. Nunca se
// persiste una fila Missed.
type Status string

const (
	StatusTaken   Status = "taken"
	StatusSkipped Status = "skipped"
	StatusMissed  Status = "missed"
)

// Entry es un registro de resultado del ledger, clave lógica
// (DoseID, Date, Slot). Append-only: las correcciones se modelan como
// borrar-y-reinsertar, nunca mutación in place.
type Entry struct {
	ID          string
	DoseID      string
	OwnerUserID string

	Date string // YYYY-MM-DD
	Slot string // HH:MM

	Status  Status
	ActedAt time.Time

	// Reason solo tiene sentido para Skipped.
	Reason string
}

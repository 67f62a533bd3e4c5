package doses

import "time"

// Slot es una ocurrencia recurrente: una hora del día activa en un
// subconjunto de días de semana. "Diario" es el subconjunto completo,
// nunca un flag aparte.
type Slot struct {
	Time     TimeOfDay
	Weekdays []time.Weekday

	// EndDate (YYYY-MM-DD) incluido; vacío = sin fin.
	EndDate string
}

// Dose es un medicamento o suplemento que el usuario registra.
// Con Schedule vacío la dosis es PRN ("según necesidad"): nunca dispara
// recordatorios y solo entra al ledger por registro manual.
type Dose struct {
	ID          string
	OwnerUserID string

	Name       string
	DosageText string
	Kind       Kind

	// Presentación (icono y color HEX); el core no los interpreta.
	Icon  string
	Color string

	Note string

	Schedule []Slot

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (d Dose) IsPRN() bool {
	return len(d.Schedule) == 0
}

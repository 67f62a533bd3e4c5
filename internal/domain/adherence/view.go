package adherence

import (
	"sort"
	"time"

	"suppletrack/internal/domain/doses"
)

// StatusPending es un estado solo de presentación: slot programado cuya
// hora todavía no llegó. Nunca se persiste, igual que Missed.
const StatusPending Status = "pending"

type ChecklistItem struct {
	DoseID     string
	DoseName   string
	DosageText string
	Icon       string
	Color      string

	Slot    string
	Status  Status
	ActedAt time.Time
	Reason  string
}

// BuildChecklist combina schedule + ledger en la vista de un día. La
// recurrencia sale de Dose.SlotsOn (la única fuente); acá solo se
// resuelve el estado por slot:
//   - entrada Taken/Skipped para la clave => ese estado
//   - sin entrada y hora ya pasada        => Missed (inferido)
//   - sin entrada y hora futura           => Pending
//
// Las entradas sin slot programado (registro manual PRN, o slots
// quitados en una edición posterior) se agregan al final tal cual.
func BuildChecklist(ds []doses.Dose, entries []Entry, date string, now time.Time) []ChecklistItem {
	type key struct{ doseID, slot string }

	byKey := map[key]Entry{}
	for _, e := range entries {
		if e.Date != date {
			continue
		}
		byKey[key{e.DoseID, e.Slot}] = e
	}

	today := doses.FormatDate(now)
	nowSlot := now.Format("15:04")

	consumed := map[key]struct{}{}
	out := make([]ChecklistItem, 0)

	for _, d := range ds {
		for _, t := range d.SlotsOn(date) {
			slot := t.String()
			item := ChecklistItem{
				DoseID:     d.ID,
				DoseName:   d.Name,
				DosageText: d.DosageText,
				Icon:       d.Icon,
				Color:      d.Color,
				Slot:       slot,
			}

			k := key{d.ID, slot}
			if e, ok := byKey[k]; ok {
				consumed[k] = struct{}{}
				item.Status = e.Status
				item.ActedAt = e.ActedAt
				item.Reason = e.Reason
			} else if elapsed(date, slot, today, nowSlot) {
				item.Status = StatusMissed
			} else {
				item.Status = StatusPending
			}

			out = append(out, item)
		}
	}

	// Registros manuales fuera de schedule. Si la dosis ya no existe el
	// nombre queda vacío; la entrada histórica igual se muestra.
	names := map[string]doses.Dose{}
	for _, d := range ds {
		names[d.ID] = d
	}
	extras := make([]ChecklistItem, 0)
	for _, e := range entries {
		if e.Date != date {
			continue
		}
		k := key{e.DoseID, e.Slot}
		if _, ok := consumed[k]; ok {
			continue
		}
		item := ChecklistItem{
			DoseID:  e.DoseID,
			Slot:    e.Slot,
			Status:  e.Status,
			ActedAt: e.ActedAt,
			Reason:  e.Reason,
		}
		if d, ok := names[e.DoseID]; ok {
			item.DoseName = d.Name
			item.DosageText = d.DosageText
			item.Icon = d.Icon
			item.Color = d.Color
		}
		extras = append(extras, item)
	}
	sort.Slice(extras, func(i, j int) bool {
		if extras[i].Slot != extras[j].Slot {
			return extras[i].Slot < extras[j].Slot
		}
		return extras[i].DoseID < extras[j].DoseID
	})
	out = append(out, extras...)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Slot != out[j].Slot {
			return out[i].Slot < out[j].Slot
		}
		return out[i].DoseName < out[j].DoseName
	})

	return out
}

type DaySummary struct {
	Date    string
	Taken   int
	Skipped int
	Missed  int
	Ratio   float64
}

// BuildCalendar arma los datos del heat-map: un DaySummary por día con
// actividad. Días sin entradas ni slots vencidos se omiten (sin datos
// != 0%).
func BuildCalendar(ds []doses.Dose, entries []Entry, from, to string, now time.Time) []DaySummary {
	start, err := doses.ParseDate(from)
	if err != nil {
		return nil
	}
	if _, err := doses.ParseDate(to); err != nil {
		return nil
	}

	type key struct{ doseID, slot string }
	byDate := map[string]map[key]Entry{}
	for _, e := range entries {
		m, ok := byDate[e.Date]
		if !ok {
			m = map[key]Entry{}
			byDate[e.Date] = m
		}
		m[key{e.DoseID, e.Slot}] = e
	}

	today := doses.FormatDate(now)
	nowSlot := now.Format("15:04")

	out := make([]DaySummary, 0)
	for d := start; ; d = d.AddDate(0, 0, 1) {
		date := doses.FormatDate(d)
		if date > to {
			break
		}

		day := DaySummary{Date: date}
		dayEntries := byDate[date]

		for _, e := range dayEntries {
			switch e.Status {
			case StatusTaken:
				day.Taken++
			case StatusSkipped:
				day.Skipped++
			}
		}

		for _, dose := range ds {
			for _, t := range dose.SlotsOn(date) {
				slot := t.String()
				if _, ok := dayEntries[key{dose.ID, slot}]; ok {
					continue
				}
				if elapsed(date, slot, today, nowSlot) {
					day.Missed++
				}
			}
		}

		if ratio, ok := DayRatio(day.Taken, day.Skipped, day.Missed); ok {
			day.Ratio = ratio
			out = append(out, day)
		}
	}

	return out
}

// elapsed: ¿ya pasó la hora del slot en esa fecha? Compara strings:
// fechas YYYY-MM-DD y horas HH:MM ordenan lexicográficamente.
func elapsed(date, slot, today, nowSlot string) bool {
	if date < today {
		return true
	}
	if date > today {
		return false
	}
	return slot <= nowSlot
}

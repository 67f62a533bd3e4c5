package doses

import (
	"sort"
	"time"
)

// SlotsOn responde "¿qué horas tiene programada esta dosis en la fecha
// dada?". Es LA fuente de verdad de recurrencia: la consumen el
// scheduler de recordatorios, el checklist y el calendario, para que no
// diverjan. Pura y determinista: sin reloj, sin I/O.
//
// Filtra slots cuyo weekday-set no contiene el día, y slots con EndDate
// anterior a la fecha (EndDate es inclusivo). Salida ordenada por hora
// ascendente, sin duplicados.
func (d Dose) SlotsOn(date string) []TimeOfDay {
	wd, err := WeekdayOf(date)
	if err != nil {
		return nil
	}

	seen := map[TimeOfDay]struct{}{}
	out := make([]TimeOfDay, 0, len(d.Schedule))

	for _, s := range d.Schedule {
		if s.EndDate != "" && date > s.EndDate {
			continue
		}
		if !containsWeekday(s.Weekdays, wd) {
			continue
		}
		if _, dup := seen[s.Time]; dup {
			continue
		}
		seen[s.Time] = struct{}{}
		out = append(out, s.Time)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Minutes() < out[j].Minutes()
	})

	return out
}

func containsWeekday(set []time.Weekday, wd time.Weekday) bool {
	for _, w := range set {
		if w == wd {
			return true
		}
	}
	return false
}

package doses

import (
	"fmt"
	"time"
)

// Kind distingue medicamento de suplemento.
// @Enum medication, supplement
type Kind string

const (
	KindMedication Kind = "medication"
	KindSupplement Kind = "supplement"
)

func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindMedication, KindSupplement:
		return Kind(s), true
	default:
		return "", false
	}
}

// TimeOfDay es una hora de reloj sin fecha ni zona.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("time of day must be HH:MM: %w", err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes: minutos desde medianoche, para ordenar slots.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// At ancla la hora sobre una fecha civil en la zona dada.
func (t TimeOfDay) At(date string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, loc), nil
}

// Las fechas civiles se manejan como strings YYYY-MM-DD: comparables
// lexicográficamente y estables entre memoria y Postgres.
const DateLayout = "2006-01-02"

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// WeekdayOf devuelve el día de semana de una fecha civil.
func WeekdayOf(date string) (time.Weekday, error) {
	d, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return d.Weekday(), nil
}

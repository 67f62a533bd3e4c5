package doses

import (
	"reflect"
	"testing"
	"time"
)

func allWeek() []time.Weekday {
	return []time.Weekday{
		time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
		time.Thursday, time.Friday, time.Saturday,
	}
}

func mustTime(t *testing.T, s string) TimeOfDay {
	t.Helper()
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q): %v", s, err)
	}
	return tod
}

func slotTimes(slots []TimeOfDay) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.String())
	}
	return out
}

// 2026-01-05 es lunes; 2026-01-06 martes; 2026-01-07 miércoles.

func TestSlotsOn_WeekdayFilter(t *testing.T) {
	d := Dose{Schedule: []Slot{
		{Time: mustTime(t, "08:00"), Weekdays: []time.Weekday{time.Monday, time.Wednesday, time.Friday}},
	}}

	if got := slotTimes(d.SlotsOn("2026-01-05")); !reflect.DeepEqual(got, []string{"08:00"}) {
		t.Fatalf("monday: expected [08:00], got %v", got)
	}
	if got := d.SlotsOn("2026-01-06"); len(got) != 0 {
		t.Fatalf("tuesday: expected no slots, got %v", got)
	}
}

func TestSlotsOn_AllWeekdaysIsDaily(t *testing.T) {
	d := Dose{Schedule: []Slot{
		{Time: mustTime(t, "09:30"), Weekdays: allWeek()},
	}}

	// Una semana completa, todos los días deben tener el slot.
	for i := 5; i <= 11; i++ {
		date := time.Date(2026, 1, i, 0, 0, 0, 0, time.UTC).Format(DateLayout)
		if got := d.SlotsOn(date); len(got) != 1 {
			t.Fatalf("%s: expected 1 slot, got %v", date, got)
		}
	}
}

func TestSlotsOn_EndDateInclusive(t *testing.T) {
	d := Dose{Schedule: []Slot{
		{Time: mustTime(t, "08:00"), Weekdays: allWeek(), EndDate: "2026-01-06"},
	}}

	if got := d.SlotsOn("2026-01-06"); len(got) != 1 {
		t.Fatalf("end date itself: expected 1 slot, got %v", got)
	}
	if got := d.SlotsOn("2026-01-07"); len(got) != 0 {
		t.Fatalf("day after end date: expected no slots, got %v", got)
	}
}

func TestSlotsOn_SortedAndDeduped(t *testing.T) {
	d := Dose{Schedule: []Slot{
		{Time: mustTime(t, "21:00"), Weekdays: allWeek()},
		{Time: mustTime(t, "08:00"), Weekdays: allWeek()},
		{Time: mustTime(t, "08:00"), Weekdays: []time.Weekday{time.Monday}},
	}}

	got := slotTimes(d.SlotsOn("2026-01-05"))
	if !reflect.DeepEqual(got, []string{"08:00", "21:00"}) {
		t.Fatalf("expected [08:00 21:00], got %v", got)
	}
}

func TestSlotsOn_PRNHasNoSlots(t *testing.T) {
	d := Dose{}
	if !d.IsPRN() {
		t.Fatalf("dose without schedule should be PRN")
	}
	if got := d.SlotsOn("2026-01-05"); len(got) != 0 {
		t.Fatalf("PRN dose: expected no slots, got %v", got)
	}
}

func TestSlotsOn_Deterministic(t *testing.T) {
	d := Dose{Schedule: []Slot{
		{Time: mustTime(t, "12:15"), Weekdays: allWeek()},
		{Time: mustTime(t, "07:45"), Weekdays: allWeek()},
	}}

	a := d.SlotsOn("2026-01-05")
	b := d.SlotsOn("2026-01-05")
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same input must give same output: %v vs %v", a, b)
	}
}

func TestSlotsOn_BadDate(t *testing.T) {
	d := Dose{Schedule: []Slot{
		{Time: mustTime(t, "08:00"), Weekdays: allWeek()},
	}}
	if got := d.SlotsOn("not-a-date"); got != nil {
		t.Fatalf("expected nil for unparseable date, got %v", got)
	}
}

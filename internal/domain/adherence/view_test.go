package adherence

import (
	"testing"
	"time"

	"suppletrack/internal/domain/doses"
)

func testDose(id, name string, times ...string) doses.Dose {
	week := []time.Weekday{
		time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
		time.Thursday, time.Friday, time.Saturday,
	}
	slots := make([]doses.Slot, 0, len(times))
	for _, s := range times {
		t, _ := doses.ParseTimeOfDay(s)
		slots = append(slots, doses.Slot{Time: t, Weekdays: week})
	}
	return doses.Dose{ID: id, OwnerUserID: "u1", Name: name, Schedule: slots}
}

func TestBuildChecklist_StatusPerSlot(t *testing.T) {
	d := testDose("dose-1", "Vitamin D", "08:00", "13:00", "21:00")
	now := time.Date(2026, 1, 5, 14, 30, 0, 0, time.UTC)

	entries := []Entry{
		{DoseID: "dose-1", Date: "2026-01-05", Slot: "08:00", Status: StatusTaken},
	}

	items := BuildChecklist([]doses.Dose{d}, entries, "2026-01-05", now)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	want := map[string]Status{
		"08:00": StatusTaken,   // entrada registrada
		"13:00": StatusMissed,  // hora vencida sin entrada
		"21:00": StatusPending, // hora futura
	}
	for _, it := range items {
		if it.Status != want[it.Slot] {
			t.Fatalf("slot %s: expected %s, got %s", it.Slot, want[it.Slot], it.Status)
		}
	}
}

func TestBuildChecklist_PastDateInfersMissed(t *testing.T) {
	d := testDose("dose-1", "Magnesium", "21:00")
	now := time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)

	items := BuildChecklist([]doses.Dose{d}, nil, "2026-01-05", now)
	if len(items) != 1 || items[0].Status != StatusMissed {
		t.Fatalf("expected single missed item for past date, got %#v", items)
	}
}

func TestBuildChecklist_OrphanEntryKeptWithoutName(t *testing.T) {
	// Entrada de una dosis ya borrada: se muestra igual, sin nombre.
	entries := []Entry{
		{DoseID: "gone", Date: "2026-01-05", Slot: "10:00", Status: StatusTaken},
	}
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	items := BuildChecklist(nil, entries, "2026-01-05", now)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].DoseName != "" || items[0].Status != StatusTaken {
		t.Fatalf("expected nameless taken item, got %#v", items[0])
	}
}

func TestBuildCalendar_OmitsDaysWithoutData(t *testing.T) {
	d := testDose("dose-1", "Iron", "08:00")
	now := time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{DoseID: "dose-1", Date: "2026-01-05", Slot: "08:00", Status: StatusTaken},
		// 2026-01-06: sin entrada, slot vencido => missed inferido
		// 2026-01-08: futuro, sin datos => omitido
	}

	days := BuildCalendar([]doses.Dose{d}, entries, "2026-01-05", "2026-01-08", now)
	if len(days) != 3 {
		t.Fatalf("expected 3 days with data (05..07), got %d: %#v", len(days), days)
	}

	if days[0].Date != "2026-01-05" || days[0].Taken != 1 || days[0].Ratio != 1.0 {
		t.Fatalf("day 05: expected taken=1 ratio=1, got %#v", days[0])
	}
	if days[1].Date != "2026-01-06" || days[1].Missed != 1 || days[1].Ratio != 0 {
		t.Fatalf("day 06: expected missed=1 ratio=0, got %#v", days[1])
	}
	// 07: slot de las 08:00 ya venció a mediodía
	if days[2].Date != "2026-01-07" || days[2].Missed != 1 {
		t.Fatalf("day 07: expected missed=1, got %#v", days[2])
	}
}

func TestBuildCalendar_EntryBeatsInference(t *testing.T) {
	d := testDose("dose-1", "Iron", "08:00")
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{DoseID: "dose-1", Date: "2026-01-05", Slot: "08:00", Status: StatusSkipped},
	}

	days := BuildCalendar([]doses.Dose{d}, entries, "2026-01-05", "2026-01-05", now)
	if len(days) != 1 {
		t.Fatalf("expected 1 day, got %d", len(days))
	}
	if days[0].Skipped != 1 || days[0].Missed != 0 {
		t.Fatalf("registered skip must not double-count as missed: %#v", days[0])
	}
}

package reminder

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	mem "suppletrack/internal/adapters/storage/memory"
	"suppletrack/internal/domain/adherence"
	"suppletrack/internal/domain/doses"
	"suppletrack/internal/domain/settings"
	"suppletrack/internal/ports/notify"
	"suppletrack/internal/ports/wakeup"
)

// -------------------------
// Fakes
// -------------------------

type fakeWakeup struct {
	mu        sync.Mutex
	scheduled map[int64][]byte // id -> payload
	canceled  []int64

	// refuse simula permiso de alarmas revocado para ciertos ids.
	refuse map[int64]bool
}

func newFakeWakeup() *fakeWakeup {
	return &fakeWakeup{scheduled: map[int64][]byte{}, refuse: map[int64]bool{}}
}

func (f *fakeWakeup) Schedule(ctx context.Context, id int64, at time.Time, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse[id] {
		return wakeup.ErrPermissionDenied
	}
	f.scheduled[id] = payload
	return nil
}

func (f *fakeWakeup) Cancel(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scheduled, id)
	f.canceled = append(f.canceled, id)
	return nil
}

func (f *fakeWakeup) ids() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, 0, len(f.scheduled))
	for id := range f.scheduled {
		out = append(out, id)
	}
	return out
}

type fakeNotifier struct {
	mu           sync.Mutex
	visible      map[int64]notify.Notification
	cancelAll    int
	cancelCalled []int64
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{visible: map[int64]notify.Notification{}}
}

func (f *fakeNotifier) Show(ctx context.Context, id int64, n notify.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visible[id] = n
	return nil
}

func (f *fakeNotifier) Cancel(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.visible, id)
	f.cancelCalled = append(f.cancelCalled, id)
	return nil
}

func (f *fakeNotifier) CancelAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visible = map[int64]notify.Notification{}
	f.cancelAll++
	return nil
}

// -------------------------
// Harness
// -------------------------

type harness struct {
	sched    *Scheduler
	wk       *fakeWakeup
	nt       *fakeNotifier
	doses    *doses.Service
	ledger   *adherence.Service
	settings *settings.Service
	now      time.Time
}

// 2026-01-05 (lunes) 07:00 UTC como "ahora" fijo.
func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		wk:       newFakeWakeup(),
		nt:       newFakeNotifier(),
		doses:    doses.NewService(mem.NewDoseRepo()),
		ledger:   adherence.NewService(mem.NewEntryRepo()),
		settings: settings.NewService(mem.NewSettingsRepo()),
		now:      time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC),
	}
	h.sched = New(h.doses, h.ledger, h.settings, h.wk, h.nt, nil)
	h.sched.now = func() time.Time { return h.now }
	h.sched.loc = time.UTC
	return h
}

func (h *harness) createDose(t *testing.T, name string, times ...string) doses.Dose {
	t.Helper()
	in := doses.CreateInput{Name: name}
	for _, s := range times {
		in.Schedule = append(in.Schedule, doses.SlotInput{
			Time:     s,
			Weekdays: []int{0, 1, 2, 3, 4, 5, 6},
		})
	}
	d, err := h.doses.Create(context.Background(), "u1", in)
	if err != nil {
		t.Fatalf("Create dose: %v", err)
	}
	return d
}

func mustID(t *testing.T, doseID, slot string) int64 {
	t.Helper()
	tod, err := doses.ParseTimeOfDay(slot)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q): %v", slot, err)
	}
	return slotID(doseID, tod)
}

// -------------------------
// Tests
// -------------------------

func TestReschedule_RegistersOnlyFutureUntakenSlots(t *testing.T) {
	h := newHarness(t)
	d := h.createDose(t, "Vitamin D", "06:00", "08:00", "21:00")

	if _, _, err := h.ledger.RecordTaken(context.Background(), "u1", d.ID, "2026-01-05", "21:00"); err != nil {
		t.Fatalf("RecordTaken: %v", err)
	}

	res, err := h.sched.Reschedule(context.Background())
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if res.Registered != 1 || res.SkippedPast != 1 || res.SkippedDone != 1 {
		t.Fatalf("expected 1 registered / 1 past / 1 done, got %+v", res)
	}

	ids := h.wk.ids()
	if len(ids) != 1 || ids[0] != mustID(t, d.ID, "08:00") {
		t.Fatalf("expected only the 08:00 wake-up, got %v", ids)
	}

	pending := h.sched.Pending()
	if len(pending) != 1 || pending[0].Slot != "08:00" {
		t.Fatalf("expected pending [08:00], got %v", pending)
	}
}

func TestReschedule_CancelsEverythingBeforeRegistering(t *testing.T) {
	h := newHarness(t)
	d := h.createDose(t, "Magnesium", "08:00")

	if _, err := h.sched.Reschedule(context.Background()); err != nil {
		t.Fatalf("Reschedule #1: %v", err)
	}
	oldID := mustID(t, d.ID, "08:00")

	// Edición que quita las 08:00 y pone las 09:00.
	if _, err := h.doses.Update(context.Background(), d.ID, "u1", doses.CreateInput{
		Name: "Magnesium",
		Schedule: []doses.SlotInput{
			{Time: "09:00", Weekdays: []int{0, 1, 2, 3, 4, 5, 6}},
		},
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := h.sched.Reschedule(context.Background()); err != nil {
		t.Fatalf("Reschedule #2: %v", err)
	}

	ids := h.wk.ids()
	if len(ids) != 1 || ids[0] != mustID(t, d.ID, "09:00") {
		t.Fatalf("expected only the 09:00 wake-up, got %v", ids)
	}

	foundOld := false
	for _, id := range h.wk.canceled {
		if id == oldID {
			foundOld = true
		}
	}
	if !foundOld {
		t.Fatalf("removed slot's wake-up was never canceled")
	}
}

func TestReschedule_NotificationsDisabled(t *testing.T) {
	h := newHarness(t)
	h.createDose(t, "Iron", "08:00")

	if _, err := h.sched.Reschedule(context.Background()); err != nil {
		t.Fatalf("Reschedule #1: %v", err)
	}

	off := false
	if _, err := h.settings.Update(context.Background(), settings.UpdateInput{NotificationsEnabled: &off}); err != nil {
		t.Fatalf("settings update: %v", err)
	}

	res, err := h.sched.Reschedule(context.Background())
	if err != nil {
		t.Fatalf("Reschedule #2: %v", err)
	}
	if res.Registered != 0 {
		t.Fatalf("expected nothing registered while disabled, got %+v", res)
	}
	if len(h.wk.ids()) != 0 {
		t.Fatalf("expected all wake-ups canceled, got %v", h.wk.ids())
	}
	if h.nt.cancelAll != 1 {
		t.Fatalf("expected visible notifications cleared once, got %d", h.nt.cancelAll)
	}
}

func TestReschedule_PermissionDeniedSkipsSlotOnly(t *testing.T) {
	h := newHarness(t)
	d1 := h.createDose(t, "Vitamin D", "08:00")
	d2 := h.createDose(t, "Magnesium", "09:00")

	h.wk.refuse[mustID(t, d1.ID, "08:00")] = true

	res, err := h.sched.Reschedule(context.Background())
	if err != nil {
		t.Fatalf("refused slot must not abort the pass: %v", err)
	}
	if res.Registered != 1 {
		t.Fatalf("expected the other slot registered, got %+v", res)
	}
	if len(res.Refused) != 1 || res.Refused[0].DoseID != d1.ID {
		t.Fatalf("expected d1's slot refused, got %+v", res.Refused)
	}

	ids := h.wk.ids()
	if len(ids) != 1 || ids[0] != mustID(t, d2.ID, "09:00") {
		t.Fatalf("expected only d2's wake-up, got %v", ids)
	}
}

func TestCancelDose_RemovesWakeupsAndNotifications(t *testing.T) {
	h := newHarness(t)
	d := h.createDose(t, "Iron", "08:00", "20:00")
	other := h.createDose(t, "Zinc", "09:00")

	if _, err := h.sched.Reschedule(context.Background()); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}

	if err := h.sched.CancelDose(context.Background(), d.ID); err != nil {
		t.Fatalf("CancelDose: %v", err)
	}

	ids := h.wk.ids()
	if len(ids) != 1 || ids[0] != mustID(t, other.ID, "09:00") {
		t.Fatalf("expected only the other dose's wake-up, got %v", ids)
	}
	pending := h.sched.Pending()
	if len(pending) != 1 || pending[0].DoseID != other.ID {
		t.Fatalf("expected only the other dose pending, got %v", pending)
	}
}

func TestHandleWakeup_ShowsActionableNotification(t *testing.T) {
	h := newHarness(t)
	d, err := h.doses.Create(context.Background(), "u1", doses.CreateInput{
		Name:       "Vitamin D",
		DosageText: "2000 IU",
		Schedule: []doses.SlotInput{
			{Time: "08:00", Weekdays: []int{0, 1, 2, 3, 4, 5, 6}},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	raw, _ := json.Marshal(Payload{DoseID: d.ID, DoseName: d.Name, Date: "2026-01-05", Slot: "08:00"})
	if err := h.sched.HandleWakeup(context.Background(), raw); err != nil {
		t.Fatalf("HandleWakeup: %v", err)
	}

	id := mustID(t, d.ID, "08:00")
	n, ok := h.nt.visible[id]
	if !ok {
		t.Fatalf("expected a visible notification for id %d", id)
	}
	if n.Title != "Time to take Vitamin D" {
		t.Fatalf("unexpected title %q", n.Title)
	}
	if n.Body != "Dosage: 2000 IU" {
		t.Fatalf("unexpected body %q", n.Body)
	}
	if n.ActionLabel != "Mark as Taken" {
		t.Fatalf("unexpected action %q", n.ActionLabel)
	}
}

func TestHandleWakeup_SuppressedWhenAlreadyTaken(t *testing.T) {
	h := newHarness(t)
	d := h.createDose(t, "Iron", "08:00")

	// El registro manual le gana la carrera al callback.
	if _, _, err := h.ledger.RecordTaken(context.Background(), "u1", d.ID, "2026-01-05", "08:00"); err != nil {
		t.Fatalf("RecordTaken: %v", err)
	}

	raw, _ := json.Marshal(Payload{DoseID: d.ID, Date: "2026-01-05", Slot: "08:00"})
	if err := h.sched.HandleWakeup(context.Background(), raw); err != nil {
		t.Fatalf("HandleWakeup: %v", err)
	}
	if len(h.nt.visible) != 0 {
		t.Fatalf("stale wake-up must be suppressed, got %v", h.nt.visible)
	}
}

func TestHandleWakeup_DeletedDoseIsNoOp(t *testing.T) {
	h := newHarness(t)
	d := h.createDose(t, "Iron", "08:00")
	if err := h.doses.Delete(context.Background(), d.ID, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	raw, _ := json.Marshal(Payload{DoseID: d.ID, Date: "2026-01-05", Slot: "08:00"})
	if err := h.sched.HandleWakeup(context.Background(), raw); err != nil {
		t.Fatalf("wake-up for deleted dose must be a no-op, got %v", err)
	}
	if len(h.nt.visible) != 0 {
		t.Fatalf("no notification expected, got %v", h.nt.visible)
	}
}

func TestHandleWakeup_MalformedPayloadDropped(t *testing.T) {
	h := newHarness(t)
	if err := h.sched.HandleWakeup(context.Background(), []byte("{not json")); err != nil {
		t.Fatalf("malformed payload must be dropped, got %v", err)
	}
}

func TestHandleMarkTaken_DoubleAckIdempotent(t *testing.T) {
	h := newHarness(t)
	d := h.createDose(t, "Creatine", "08:00")

	if _, err := h.sched.Reschedule(context.Background()); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}

	id := mustID(t, d.ID, "08:00")
	raw := h.wk.scheduled[id]
	if raw == nil {
		t.Fatalf("expected a registered wake-up for 08:00")
	}

	// Dispara, se muestra la notificación.
	if err := h.sched.HandleWakeup(context.Background(), raw); err != nil {
		t.Fatalf("HandleWakeup: %v", err)
	}
	if _, ok := h.nt.visible[id]; !ok {
		t.Fatalf("expected visible notification")
	}

	// Primer tap: marca Taken y retira la notificación.
	if err := h.sched.HandleMarkTaken(context.Background(), raw); err != nil {
		t.Fatalf("HandleMarkTaken #1: %v", err)
	}
	taken, err := h.ledger.HasTaken(context.Background(), d.ID, "2026-01-05", "08:00")
	if err != nil || !taken {
		t.Fatalf("expected taken entry, got taken=%v err=%v", taken, err)
	}
	if _, ok := h.nt.visible[id]; ok {
		t.Fatalf("notification must be dismissed after ack")
	}

	// Segundo tap del mismo payload: sin efecto adicional.
	if err := h.sched.HandleMarkTaken(context.Background(), raw); err != nil {
		t.Fatalf("HandleMarkTaken #2: %v", err)
	}
	entries, err := h.ledger.EntriesForDate(context.Background(), "u1", "2026-01-05")
	if err != nil {
		t.Fatalf("EntriesForDate: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 ledger entry after double ack, got %d", len(entries))
	}
}

func TestHandleMarkTaken_BeforeFireCancelsWakeup(t *testing.T) {
	h := newHarness(t)
	d := h.createDose(t, "Zinc", "08:00")

	if _, err := h.sched.Reschedule(context.Background()); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}

	raw, _ := json.Marshal(Payload{DoseID: d.ID, DoseName: d.Name, Date: "2026-01-05", Slot: "08:00"})
	if err := h.sched.HandleMarkTaken(context.Background(), raw); err != nil {
		t.Fatalf("HandleMarkTaken: %v", err)
	}

	if len(h.wk.ids()) != 0 {
		t.Fatalf("ack before fire must cancel the wake-up, got %v", h.wk.ids())
	}
	if len(h.sched.Pending()) != 0 {
		t.Fatalf("expected nothing pending, got %v", h.sched.Pending())
	}
}

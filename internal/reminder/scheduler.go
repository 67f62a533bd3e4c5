package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"suppletrack/internal/domain/adherence"
	"suppletrack/internal/domain/doses"
	"suppletrack/internal/domain/settings"
	"suppletrack/internal/platform/logger"
	"suppletrack/internal/ports/notify"
	"suppletrack/internal/ports/wakeup"
)

// Payload viaja dentro del wake-up y vuelve con el tap de "Mark as
// Taken". Lleva todo lo necesario para resolver el slot sin estado
// adicional: el proceso puede no haber estado residente cuando dispara.
type Payload struct {
	DoseID   string `json:"dose_id"`
	DoseName string `json:"dose_name"`
	Date     string `json:"date"` // YYYY-MM-DD
	Slot     string `json:"slot"` // HH:MM
}

// SlotRef identifica un slot pendiente.
type SlotRef struct {
	DoseID string
	Slot   string
}

// Result resume un pase de reschedule.
type Result struct {
	Registered  int
	SkippedPast int
	SkippedDone int

	// Refused: slots que la capacidad de wake-up rechazó por permiso
	// revocado. No abortan el pase; quedan sin programar hasta que el
	// permiso vuelva y otro pase corra.
	Refused []SlotRef
}

type ownedSlot struct {
	doseID string
	slot   string
}

// Scheduler mantiene la invariante "exactamente un recordatorio
// pendiente por slot vencible": tras cada pase, el conjunto de wake-ups
// registrados es {(dosis, hora) | slot de hoy, hora futura, sin Taken}.
// Corre en: arranque, alta/edición/borrado de dosis, mutación del
// ledger, toggle de notificaciones y el job periódico de resync.
type Scheduler struct {
	doses    *doses.Service
	ledger   *adherence.Service
	settings *settings.Service
	wakeup   wakeup.Scheduler
	notifier notify.Notifier
	log      logger.Logger

	now func() time.Time
	loc *time.Location

	mu    sync.Mutex
	owned map[int64]ownedSlot
}

func New(ds *doses.Service, ledger *adherence.Service, st *settings.Service, wk wakeup.Scheduler, nt notify.Notifier, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop{}
	}
	return &Scheduler{
		doses:    ds,
		ledger:   ledger,
		settings: st,
		wakeup:   wk,
		notifier: nt,
		log:      log,
		now:      time.Now,
		loc:      time.Local,
		owned:    map[int64]ownedSlot{},
	}
}

// Reschedule: cancelar TODO lo propio primero, re-registrar después. El
// orden no se intercala por dosis: un slot quitado en una edición debe
// quedar cancelado aunque nada nuevo lo reemplace. El mutex cubre el
// pase completo, así un callback viejo nunca corre contra un registro
// fresco del mismo id.
func (s *Scheduler) Reschedule(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res Result

	for id := range s.owned {
		if err := s.wakeup.Cancel(ctx, id); err != nil {
			s.log.Warn("wakeup cancel failed", map[string]any{"id": id, "err": err.Error()})
		}
	}
	s.owned = map[int64]ownedSlot{}

	st, err := s.settings.Get(ctx)
	if err != nil {
		return res, err
	}
	if !st.NotificationsEnabled {
		// Apagado global: todo queda cancelado y se retiran las
		// notificaciones ya visibles.
		if err := s.notifier.CancelAll(ctx); err != nil {
			s.log.Warn("notifier cancel all failed", map[string]any{"err": err.Error()})
		}
		return res, nil
	}

	now := s.now().In(s.loc)
	today := doses.FormatDate(now)

	all, err := s.doses.ListAll(ctx)
	if err != nil {
		return res, err
	}

	for _, d := range all {
		for _, t := range d.SlotsOn(today) {
			at, err := t.At(today, s.loc)
			if err != nil {
				continue
			}
			if !at.After(now) {
				res.SkippedPast++
				continue
			}

			taken, err := s.ledger.HasTaken(ctx, d.ID, today, t.String())
			if err != nil {
				return res, err
			}
			if taken {
				res.SkippedDone++
				continue
			}

			payload, err := json.Marshal(Payload{
				DoseID:   d.ID,
				DoseName: d.Name,
				Date:     today,
				Slot:     t.String(),
			})
			if err != nil {
				return res, err
			}

			id := slotID(d.ID, t)
			if err := s.wakeup.Schedule(ctx, id, at, payload); err != nil {
				if errors.Is(err, wakeup.ErrPermissionDenied) {
					res.Refused = append(res.Refused, SlotRef{DoseID: d.ID, Slot: t.String()})
					s.log.Warn("wakeup refused, slot unscheduled", map[string]any{
						"dose": d.ID, "slot": t.String(),
					})
					continue
				}
				return res, err
			}

			s.owned[id] = ownedSlot{doseID: d.ID, slot: t.String()}
			res.Registered++
		}
	}

	s.log.Debug("reschedule pass done", map[string]any{
		"registered": res.Registered, "past": res.SkippedPast, "done": res.SkippedDone,
	})
	return res, nil
}

// CancelDose retira todos los wake-ups y notificaciones de una dosis.
// Síncrono con el borrado: para cuando el usuario ve la confirmación ya
// no queda callback que pueda disparar para una dosis inexistente.
func (s *Scheduler) CancelDose(ctx context.Context, doseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, o := range s.owned {
		if o.doseID != doseID {
			continue
		}
		if err := s.wakeup.Cancel(ctx, id); err != nil {
			s.log.Warn("wakeup cancel failed", map[string]any{"id": id, "err": err.Error()})
		}
		if err := s.notifier.Cancel(ctx, id); err != nil {
			s.log.Warn("notifier cancel failed", map[string]any{"id": id, "err": err.Error()})
		}
		delete(s.owned, id)
	}
	return nil
}

// Pending: slots con wake-up registrado, ordenados. Para introspección
// y asserts.
func (s *Scheduler) Pending() []SlotRef {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SlotRef, 0, len(s.owned))
	for _, o := range s.owned {
		out = append(out, SlotRef{DoseID: o.doseID, Slot: o.slot})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DoseID != out[j].DoseID {
			return out[i].DoseID < out[j].DoseID
		}
		return out[i].Slot < out[j].Slot
	})
	return out
}

// HandleWakeup corre cuando un wake-up dispara. Re-chequea "ya tomado"
// contra el ledger: un registro manual pudo ganarle la carrera al
// callback. Si sigue sin tomar, muestra la notificación persistente con
// la única acción "Mark as Taken"; si no, nada (supresión silenciosa).
func (s *Scheduler) HandleWakeup(ctx context.Context, raw []byte) error {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		s.log.Warn("wakeup payload malformed, dropped", map[string]any{"err": err.Error()})
		return nil
	}

	t, err := doses.ParseTimeOfDay(p.Slot)
	if err != nil {
		s.log.Warn("wakeup payload malformed, dropped", map[string]any{"slot": p.Slot})
		return nil
	}
	id := slotID(p.DoseID, t)

	s.mu.Lock()
	delete(s.owned, id) // el registro one-shot ya se consumió
	s.mu.Unlock()

	d, err := s.doses.GetByID(ctx, p.DoseID)
	if err != nil {
		if errors.Is(err, doses.ErrNotFound) {
			// Dosis borrada entre el registro y el disparo: no-op.
			return nil
		}
		return err
	}

	taken, err := s.ledger.HasTaken(ctx, p.DoseID, p.Date, p.Slot)
	if err != nil {
		return err
	}
	if taken {
		return nil
	}

	body := "Tap to mark as taken"
	if d.DosageText != "" {
		body = "Dosage: " + d.DosageText
	}

	return s.notifier.Show(ctx, id, notify.Notification{
		Title:         "Time to take " + d.Name,
		Body:          body,
		ActionLabel:   "Mark as Taken",
		ActionPayload: raw,
	})
}

// HandleMarkTaken convierte el tap de la acción en una mutación del
// ledger, exactamente una vez por acción física. Idempotente por
// construcción: RecordTaken ya lo es, y el segundo tap de un payload ya
// resuelto solo re-cancela una notificación inexistente.
func (s *Scheduler) HandleMarkTaken(ctx context.Context, raw []byte) error {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		s.log.Warn("ack payload malformed, dropped", map[string]any{"err": err.Error()})
		return nil
	}

	d, err := s.doses.GetByID(ctx, p.DoseID)
	if err != nil {
		if errors.Is(err, doses.ErrNotFound) {
			// Payload de una dosis ya borrada: descartar sin tocar el
			// ledger.
			return nil
		}
		return err
	}

	if _, _, err := s.ledger.RecordTaken(ctx, d.OwnerUserID, d.ID, p.Date, p.Slot); err != nil {
		return err
	}

	t, err := doses.ParseTimeOfDay(p.Slot)
	if err != nil {
		return nil
	}
	id := slotID(d.ID, t)

	s.mu.Lock()
	if _, ok := s.owned[id]; ok {
		// Ack llegó antes de que el wake-up dispare (registro manual vía
		// otra superficie): retirar también el wake-up.
		if err := s.wakeup.Cancel(ctx, id); err != nil {
			s.log.Warn("wakeup cancel failed", map[string]any{"id": id, "err": err.Error()})
		}
		delete(s.owned, id)
	}
	s.mu.Unlock()

	if err := s.notifier.Cancel(ctx, id); err != nil {
		s.log.Warn("notifier cancel failed", map[string]any{"id": id, "err": err.Error()})
	}
	return nil
}

package adherence

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// Change se emite tras cada mutación confirmada del ledger; el router
// suscribe el scheduler (re-pase) y cualquier vista viva.
type Change struct {
	DoseID  string
	Date    string
	Slot    string
	Status  Status
	Removed bool
}

// Service es el único punto de mutación del ledger. Tanto el checklist
// interactivo como el handler de resolución de notificaciones DEBEN
// pasar por acá; nadie muta el storage directo. El mutex serializa la
// sección check-then-insert que sostiene la invariante "a lo sumo una
// entrada Taken por clave".
type Service struct {
	repo Repository
	now  func() time.Time

	mu        sync.Mutex
	listeners []func(Change)
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// OnChange registra un listener síncrono. Registrar durante el wiring,
// antes de servir tráfico.
func (s *Service) OnChange(fn func(Change)) {
	s.listeners = append(s.listeners, fn)
}

// emit corre FUERA del mutex: un listener típico (reschedule) vuelve a
// leer el ledger.
func (s *Service) emit(c Change) {
	for _, fn := range s.listeners {
		fn(c)
	}
}

// RecordTaken inserta una entrada Taken para la clave, salvo que ya
// exista una: llamarlo dos veces tiene el mismo efecto que una
// (idempotente). Devuelve la entrada vigente y si hubo inserción.
func (s *Service) RecordTaken(ctx context.Context, ownerUserID, doseID, date, slot string) (Entry, bool, error) {
	doseID, date, slot, err := normalizeKey(doseID, date, slot)
	if err != nil {
		return Entry{}, false, err
	}

	s.mu.Lock()
	existing, err := s.repo.FindKey(ctx, doseID, date, slot)
	if err != nil {
		s.mu.Unlock()
		return Entry{}, false, err
	}
	for _, e := range existing {
		if e.Status == StatusTaken {
			s.mu.Unlock()
			return e, false, nil
		}
	}
	// Un Skipped previo para la clave se reemplaza, nunca conviven dos
	// filas.
	for _, e := range existing {
		if err := s.repo.Delete(ctx, e.ID); err != nil {
			s.mu.Unlock()
			return Entry{}, false, err
		}
	}

	e := Entry{
		ID:          uuid.NewString(),
		DoseID:      doseID,
		OwnerUserID: ownerUserID,
		Date:        date,
		Slot:        slot,
		Status:      StatusTaken,
		ActedAt:     s.now(),
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		s.mu.Unlock()
		return Entry{}, false, err
	}
	s.mu.Unlock()

	s.emit(Change{DoseID: doseID, Date: date, Slot: slot, Status: StatusTaken})
	return e, true, nil
}

// RecordSkipped inserta una entrada Skipped. Taken y Skipped son
// mutuamente excluyentes por clave: cualquier Taken (o Skipped previo)
// para la misma clave se borra primero, nunca quedan dos filas.
func (s *Service) RecordSkipped(ctx context.Context, ownerUserID, doseID, date, slot, reason string) (Entry, error) {
	doseID, date, slot, err := normalizeKey(doseID, date, slot)
	if err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	existing, err := s.repo.FindKey(ctx, doseID, date, slot)
	if err != nil {
		s.mu.Unlock()
		return Entry{}, err
	}
	for _, e := range existing {
		if err := s.repo.Delete(ctx, e.ID); err != nil {
			s.mu.Unlock()
			return Entry{}, err
		}
	}

	e := Entry{
		ID:          uuid.NewString(),
		DoseID:      doseID,
		OwnerUserID: ownerUserID,
		Date:        date,
		Slot:        slot,
		Status:      StatusSkipped,
		ActedAt:     s.now(),
		Reason:      strings.TrimSpace(reason),
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		s.mu.Unlock()
		return Entry{}, err
	}
	s.mu.Unlock()

	s.emit(Change{DoseID: doseID, Date: date, Slot: slot, Status: StatusSkipped})
	return e, nil
}

// ClearTaken es el "destildar" del checklist: borra la entrada Taken de
// la clave si existe. Semántica de toggle, no inserta Skipped.
func (s *Service) ClearTaken(ctx context.Context, doseID, date, slot string) (bool, error) {
	doseID, date, slot, err := normalizeKey(doseID, date, slot)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	existing, err := s.repo.FindKey(ctx, doseID, date, slot)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}

	removed := false
	for _, e := range existing {
		if e.Status != StatusTaken {
			continue
		}
		if err := s.repo.Delete(ctx, e.ID); err != nil {
			s.mu.Unlock()
			return false, err
		}
		removed = true
	}
	s.mu.Unlock()

	if removed {
		s.emit(Change{DoseID: doseID, Date: date, Slot: slot, Status: StatusTaken, Removed: true})
	}
	return removed, nil
}

// HasTaken: chequeo puntual que usa el scheduler (¿ya se tomó este
// slot?) y el re-chequeo al disparar un wake-up.
func (s *Service) HasTaken(ctx context.Context, doseID, date, slot string) (bool, error) {
	doseID, date, slot, err := normalizeKey(doseID, date, slot)
	if err != nil {
		return false, err
	}
	existing, err := s.repo.FindKey(ctx, doseID, date, slot)
	if err != nil {
		return false, err
	}
	for _, e := range existing {
		if e.Status == StatusTaken {
			return true, nil
		}
	}
	return false, nil
}

// EntriesForDate devuelve las entradas de todas las dosis del usuario
// para una fecha. Un día sin entradas devuelve slice vacío, NO ceros:
// el calendario distingue "sin datos" de "0% de adherencia".
func (s *Service) EntriesForDate(ctx context.Context, ownerUserID, date string) ([]Entry, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByDate(ctx, ownerUserID, date)
}

func (s *Service) EntriesInRange(ctx context.Context, ownerUserID, from, to string) ([]Entry, error) {
	if _, err := time.Parse(dateLayout, from); err != nil {
		return nil, ErrInvalidInput
	}
	if _, err := time.Parse(dateLayout, to); err != nil {
		return nil, ErrInvalidInput
	}
	if from > to {
		return nil, ErrInvalidInput
	}
	return s.repo.ListRange(ctx, ownerUserID, from, to)
}

// OverallPercent reproduce el cálculo del resumen: taken*100/total con
// división entera, 0 sin entradas. Solo cuenta entradas persistidas
// (Taken/Skipped); Missed no tiene fila.
func OverallPercent(entries []Entry) int {
	if len(entries) == 0 {
		return 0
	}
	taken := 0
	for _, e := range entries {
		if e.Status == StatusTaken {
			taken++
		}
	}
	return taken * 100 / len(entries)
}

// DayRatio: taken/(taken+skipped+missed). ok=false cuando no hay nada
// que contar (día sin datos, indefinido en vez de cero).
func DayRatio(taken, skipped, missed int) (float64, bool) {
	total := taken + skipped + missed
	if total == 0 {
		return 0, false
	}
	return float64(taken) / float64(total), true
}

const (
	dateLayout = "2006-01-02"
	slotLayout = "15:04"
)

func normalizeKey(doseID, date, slot string) (string, string, string, error) {
	doseID = strings.TrimSpace(doseID)
	date = strings.TrimSpace(date)
	slot = strings.TrimSpace(slot)

	if doseID == "" {
		return "", "", "", ErrInvalidInput
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return "", "", "", ErrInvalidInput
	}
	t, err := time.Parse(slotLayout, slot)
	if err != nil {
		return "", "", "", ErrInvalidInput
	}
	// Slot normalizado a HH:MM con cero a la izquierda ("8:00" y "08:00"
	// son la misma clave).
	return doseID, date, t.Format(slotLayout), nil
}

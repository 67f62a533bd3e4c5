package doses

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("dose not found")
	ErrForbidden    = errors.New("not the owner")
)

// Change se emite tras cada mutación confirmada. El router suscribe el
// scheduler de recordatorios: borrar una dosis cancela sus wake-ups de
// forma síncrona con la acción del usuario, antes del siguiente pase.
type Change struct {
	DoseID  string
	Deleted bool
}

type Service struct {
	repo Repository
	now  func() time.Time

	listeners []func(Change)
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// OnChange registra un listener síncrono. Registrar antes de servir
// tráfico; no hay locking sobre la lista.
func (s *Service) OnChange(fn func(Change)) {
	s.listeners = append(s.listeners, fn)
}

func (s *Service) emit(c Change) {
	for _, fn := range s.listeners {
		fn(c)
	}
}

type SlotInput struct {
	Time     string // HH:MM
	Weekdays []int  // 0=domingo .. 6=sábado
	EndDate  string // YYYY-MM-DD opcional
}

type CreateInput struct {
	Name       string
	DosageText string
	Kind       string
	Icon       string
	Color      string
	Note       string
	Schedule   []SlotInput
}

func (s *Service) Create(ctx context.Context, ownerUserID string, in CreateInput) (Dose, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return Dose{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Name) == "" {
		return Dose{}, ErrInvalidInput
	}

	kind := KindSupplement
	if strings.TrimSpace(in.Kind) != "" {
		k, ok := ParseKind(in.Kind)
		if !ok {
			return Dose{}, ErrInvalidInput
		}
		kind = k
	}

	schedule, err := buildSchedule(in.Schedule)
	if err != nil {
		return Dose{}, err
	}

	now := s.now()
	d := Dose{
		ID:          uuid.NewString(),
		OwnerUserID: ownerUserID,
		Name:        strings.TrimSpace(in.Name),
		DosageText:  strings.TrimSpace(in.DosageText),
		Kind:        kind,
		Icon:        strings.TrimSpace(in.Icon),
		Color:       strings.TrimSpace(in.Color),
		Note:        strings.TrimSpace(in.Note),
		Schedule:    schedule,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return Dose{}, err
	}

	s.emit(Change{DoseID: d.ID})
	return d, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Dose, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Dose{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]Dose, error) {
	return s.repo.ListByOwner(ctx, ownerUserID)
}

func (s *Service) ListAll(ctx context.Context) ([]Dose, error) {
	return s.repo.ListAll(ctx)
}

// Update reemplaza nombre, dosis y schedule completos (semántica del
// formulario de edición). Conserva ID e historial del ledger.
func (s *Service) Update(ctx context.Context, id, ownerUserID string, in CreateInput) (Dose, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return Dose{}, err
	}
	if current.OwnerUserID != ownerUserID {
		return Dose{}, ErrForbidden
	}
	if strings.TrimSpace(in.Name) == "" {
		return Dose{}, ErrInvalidInput
	}

	kind := current.Kind
	if strings.TrimSpace(in.Kind) != "" {
		k, ok := ParseKind(in.Kind)
		if !ok {
			return Dose{}, ErrInvalidInput
		}
		kind = k
	}

	schedule, err := buildSchedule(in.Schedule)
	if err != nil {
		return Dose{}, err
	}

	current.Name = strings.TrimSpace(in.Name)
	current.DosageText = strings.TrimSpace(in.DosageText)
	current.Kind = kind
	current.Icon = strings.TrimSpace(in.Icon)
	current.Color = strings.TrimSpace(in.Color)
	current.Note = strings.TrimSpace(in.Note)
	current.Schedule = schedule
	current.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, current); err != nil {
		return Dose{}, err
	}

	s.emit(Change{DoseID: current.ID})
	return current, nil
}

// Delete borra la dosis. Las entradas del ledger NO se borran en
// cascada: son el historial que respalda calendario y porcentaje.
func (s *Service) Delete(ctx context.Context, id, ownerUserID string) error {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.OwnerUserID != ownerUserID {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.emit(Change{DoseID: id, Deleted: true})
	return nil
}

func buildSchedule(in []SlotInput) ([]Slot, error) {
	out := make([]Slot, 0, len(in))
	for _, si := range in {
		t, err := ParseTimeOfDay(si.Time)
		if err != nil {
			return nil, ErrInvalidInput
		}

		if len(si.Weekdays) == 0 {
			return nil, ErrInvalidInput
		}
		seen := map[int]struct{}{}
		wds := make([]time.Weekday, 0, len(si.Weekdays))
		for _, w := range si.Weekdays {
			if w < 0 || w > 6 {
				return nil, ErrInvalidInput
			}
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			wds = append(wds, time.Weekday(w))
		}
		sort.Slice(wds, func(i, j int) bool { return wds[i] < wds[j] })

		end := strings.TrimSpace(si.EndDate)
		if end != "" {
			if _, err := ParseDate(end); err != nil {
				return nil, ErrInvalidInput
			}
		}

		out = append(out, Slot{Time: t, Weekdays: wds, EndDate: end})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Time.Minutes() < out[j].Time.Minutes()
	})

	return out, nil
}

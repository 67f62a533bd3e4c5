package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"suppletrack/internal/domain/doses"
)

type doseRepo struct {
	mu   sync.RWMutex
	byID map[string]doses.Dose
}

func NewDoseRepo() doses.Repository {
	return &doseRepo{
		byID: make(map[string]doses.Dose),
	}
}

func (r *doseRepo) Create(ctx context.Context, d doses.Dose) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.ID == "" {
		return errors.New("dose id required")
	}
	if _, exists := r.byID[d.ID]; exists {
		return errors.New("dose already exists")
	}

	r.byID[d.ID] = d
	return nil
}

func (r *doseRepo) GetByID(ctx context.Context, id string) (doses.Dose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return doses.Dose{}, doses.ErrNotFound
	}
	return d, nil
}

func (r *doseRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]doses.Dose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]doses.Dose, 0)
	for _, d := range r.byID {
		if d.OwnerUserID == ownerUserID {
			out = append(out, d)
		}
	}

	sortDoses(out)
	return out, nil
}

func (r *doseRepo) ListAll(ctx context.Context) ([]doses.Dose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]doses.Dose, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, d)
	}

	sortDoses(out)
	return out, nil
}

func (r *doseRepo) Update(ctx context.Context, d doses.Dose) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[d.ID]; !ok {
		return doses.ErrNotFound
	}
	r.byID[d.ID] = d
	return nil
}

func (r *doseRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return doses.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// Orden por creación (más viejo primero), estable para la UI y tests.
func sortDoses(out []doses.Dose) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
}

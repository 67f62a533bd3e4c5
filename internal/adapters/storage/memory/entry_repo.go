package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"suppletrack/internal/domain/adherence"
)

type entryRepo struct {
	mu   sync.RWMutex
	byID map[string]adherence.Entry
}

func NewEntryRepo() adherence.Repository {
	return &entryRepo{
		byID: make(map[string]adherence.Entry),
	}
}

func (r *entryRepo) Insert(ctx context.Context, e adherence.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == "" {
		return errors.New("entry id required")
	}
	if _, exists := r.byID[e.ID]; exists {
		return errors.New("entry already exists")
	}

	r.byID[e.ID] = e
	return nil
}

func (r *entryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return errors.New("entry not found")
	}
	delete(r.byID, id)
	return nil
}

func (r *entryRepo) FindKey(ctx context.Context, doseID, date, slot string) ([]adherence.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]adherence.Entry, 0)
	for _, e := range r.byID {
		if e.DoseID == doseID && e.Date == date && e.Slot == slot {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (r *entryRepo) ListByDate(ctx context.Context, ownerUserID, date string) ([]adherence.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]adherence.Entry, 0)
	for _, e := range r.byID {
		if e.OwnerUserID == ownerUserID && e.Date == date {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (r *entryRepo) ListRange(ctx context.Context, ownerUserID, from, to string) ([]adherence.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]adherence.Entry, 0)
	for _, e := range r.byID {
		// from/to incluidos; fechas YYYY-MM-DD comparan lexicográfico.
		if e.OwnerUserID == ownerUserID && e.Date >= from && e.Date <= to {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func sortEntries(out []adherence.Entry) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].Slot != out[j].Slot {
			return out[i].Slot < out[j].Slot
		}
		return out[i].ID < out[j].ID
	})
}

package adherence

import "context"

type Repository interface {
	Insert(ctx context.Context, e Entry) error
	Delete(ctx context.Context, id string) error

	// FindKey: entradas para la clave exacta (dose, date, slot).
	FindKey(ctx context.Context, doseID, date, slot string) ([]Entry, error)

	ListByDate(ctx context.Context, ownerUserID, date string) ([]Entry, error)

	// ListRange: from y to incluidos (fechas civiles YYYY-MM-DD).
	ListRange(ctx context.Context, ownerUserID, from, to string) ([]Entry, error)
}

package doses

import "context"

type Repository interface {
	Create(ctx context.Context, d Dose) error
	GetByID(ctx context.Context, id string) (Dose, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]Dose, error)

	// ListAll: todas las dosis de todos los usuarios; la usa el pase
	// de reschedule.
	ListAll(ctx context.Context) ([]Dose, error)

	Update(ctx context.Context, d Dose) error
	Delete(ctx context.Context, id string) error
}

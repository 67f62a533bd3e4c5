package settings

import "context"

type Repository interface {
	// Load devuelve Defaults() si nunca se guardó nada.
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

package wakeup

import (
	"context"
	"errors"
	"time"
)

// ErrPermissionDenied: la capacidad de despertar fue revocada por el
// sistema. Recuperable: el slot afectado queda sin programar hasta el
// próximo pase.
var ErrPermissionDenied = errors.New("wakeup: permission denied")

// Scheduler es la capacidad de "despertar" una vez en un instante exacto.
// La entrega es at-least-once y best-effort: el proceso puede no estar
// residente cuando el callback dispara, o no dispararse nunca.
type Scheduler interface {
	// Schedule registra un callback one-shot en at, identificado por id.
	// Re-programar el mismo id reemplaza el registro anterior.
	Schedule(ctx context.Context, id int64, at time.Time, payload []byte) error

	// Cancel desregistra el callback id. Cancelar un id no registrado
	// no es error.
	Cancel(ctx context.Context, id int64) error
}

package notify

import "context"

type Notification struct {
	Title       string
	Body        string
	ActionLabel string

	// ActionPayload viaja de vuelta cuando el usuario toca la acción.
	ActionPayload []byte
}

// Notifier muestra notificaciones persistentes con una única acción.
type Notifier interface {
	Show(ctx context.Context, id int64, n Notification) error
	Cancel(ctx context.Context, id int64) error
	CancelAll(ctx context.Context) error
}

// Package logging implementa notify.Notifier escribiendo al logger.
// Sirve como backend por defecto cuando no hay canal de push real.
package logging

import (
	"context"
	"sort"
	"sync"

	"suppletrack/internal/platform/logger"
	"suppletrack/internal/ports/notify"
)

type Notifier struct {
	log logger.Logger

	mu      sync.Mutex
	visible map[int64]notify.Notification
}

func New(log logger.Logger) *Notifier {
	if log == nil {
		log = logger.Nop{}
	}
	return &Notifier{
		log:     log,
		visible: make(map[int64]notify.Notification),
	}
}

func (n *Notifier) Show(ctx context.Context, id int64, notif notify.Notification) error {
	n.mu.Lock()
	n.visible[id] = notif
	n.mu.Unlock()

	n.log.Info("notification shown", map[string]any{
		"id":     id,
		"title":  notif.Title,
		"body":   notif.Body,
		"action": notif.ActionLabel,
	})
	return nil
}

func (n *Notifier) Cancel(ctx context.Context, id int64) error {
	n.mu.Lock()
	_, ok := n.visible[id]
	delete(n.visible, id)
	n.mu.Unlock()

	if ok {
		n.log.Info("notification dismissed", map[string]any{"id": id})
	}
	return nil
}

func (n *Notifier) CancelAll(ctx context.Context) error {
	n.mu.Lock()
	count := len(n.visible)
	n.visible = make(map[int64]notify.Notification)
	n.mu.Unlock()

	if count > 0 {
		n.log.Info("notifications cleared", map[string]any{"count": count})
	}
	return nil
}

// Visible devuelve los ids mostrados y no cancelados, ordenados.
func (n *Notifier) Visible() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	ids := make([]int64, 0, len(n.visible))
	for id := range n.visible {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Package timer implementa wakeup.Scheduler con temporizadores en proceso.
package timer

import (
	"context"
	"sync"
	"time"

	"suppletrack/internal/platform/logger"
)

// Scheduler dispara un callback cuando vence cada alarma registrada.
type Scheduler struct {
	log logger.Logger

	mu     sync.Mutex
	timers map[int64]*time.Timer
	fire   func(ctx context.Context, payload []byte)
}

func New(log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop{}
	}
	return &Scheduler{
		log:    log,
		timers: make(map[int64]*time.Timer),
	}
}

// OnFire registra el callback a invocar cuando vence una alarma.
// Debe llamarse antes de programar la primera alarma.
func (s *Scheduler) OnFire(fn func(ctx context.Context, payload []byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fire = fn
}

// Schedule reemplaza cualquier alarma previa con el mismo id.
func (s *Scheduler) Schedule(ctx context.Context, id int64, at time.Time, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.timers[id]; ok {
		prev.Stop()
	}

	d := time.Until(at)
	if d < 0 {
		d = 0
	}
	s.timers[id] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, id)
		fire := s.fire
		s.mu.Unlock()

		if fire == nil {
			s.log.Warn("alarma sin callback registrado", map[string]any{"id": id})
			return
		}
		fire(context.Background(), payload)
	})
	return nil
}

func (s *Scheduler) Cancel(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	return nil
}

package memory

import (
	"context"
	"sync"

	"suppletrack/internal/domain/settings"
)

type settingsRepo struct {
	mu    sync.RWMutex
	cur   settings.Settings
	saved bool
}

func NewSettingsRepo() settings.Repository {
	return &settingsRepo{}
}

func (r *settingsRepo) Load(ctx context.Context) (settings.Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.saved {
		return settings.Defaults(), nil
	}
	return r.cur, nil
}

func (r *settingsRepo) Save(ctx context.Context, s settings.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cur = s
	r.saved = true
	return nil
}

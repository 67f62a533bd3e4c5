package settings

import (
	"context"
	"errors"
	"strings"
)

var ErrInvalidInput = errors.New("invalid input")

var languages = map[string]struct{}{
	"en": {}, "de": {}, "es": {}, "fr": {},
}

type Service struct {
	repo Repository

	listeners []func(Settings)
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// OnChange registra un listener síncrono; el router suscribe el
// re-pase del scheduler para que apagar notificaciones cancele todo al
// instante.
func (s *Service) OnChange(fn func(Settings)) {
	s.listeners = append(s.listeners, fn)
}

func (s *Service) Get(ctx context.Context) (Settings, error) {
	return s.repo.Load(ctx)
}

type UpdateInput struct {
	// Punteros: nil = no tocar.
	NotificationsEnabled *bool
	DarkMode             *bool
	Language             *string
}

func (s *Service) Update(ctx context.Context, in UpdateInput) (Settings, error) {
	cur, err := s.repo.Load(ctx)
	if err != nil {
		return Settings{}, err
	}

	if in.NotificationsEnabled != nil {
		cur.NotificationsEnabled = *in.NotificationsEnabled
	}
	if in.DarkMode != nil {
		cur.DarkMode = *in.DarkMode
	}
	if in.Language != nil {
		lang := strings.ToLower(strings.TrimSpace(*in.Language))
		if _, ok := languages[lang]; !ok {
			return Settings{}, ErrInvalidInput
		}
		cur.Language = lang
	}

	if err := s.repo.Save(ctx, cur); err != nil {
		return Settings{}, err
	}

	for _, fn := range s.listeners {
		fn(cur)
	}
	return cur, nil
}

package postgres

import (
	"context"
	"database/sql"

	"suppletrack/internal/domain/settings"
)

// SettingsRepo persiste la única fila de preferencias (id fijo 1).
type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

func (r *SettingsRepo) Load(ctx context.Context) (settings.Settings, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT notifications_enabled, dark_mode, language
		FROM app_settings
		WHERE id = 1
	`)

	var s settings.Settings
	if err := row.Scan(&s.NotificationsEnabled, &s.DarkMode, &s.Language); err != nil {
		if err == sql.ErrNoRows {
			return settings.Defaults(), nil
		}
		return settings.Settings{}, err
	}
	return s, nil
}

func (r *SettingsRepo) Save(ctx context.Context, s settings.Settings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO app_settings (id, notifications_enabled, dark_mode, language)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET notifications_enabled = EXCLUDED.notifications_enabled,
		    dark_mode = EXCLUDED.dark_mode,
		    language = EXCLUDED.language
	`, s.NotificationsEnabled, s.DarkMode, s.Language)
	return err
}

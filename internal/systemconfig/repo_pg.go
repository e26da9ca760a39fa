package systemconfig

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo stores the configuration in the single-row system_config table.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Get(ctx context.Context) (Config, error) {
	const query = `
SELECT app_name, logo_url, primary_color, secondary_color, primary_text_color,
       secondary_text_color, border_radius, default_locale, created_at, updated_at
FROM system_config
WHERE id = 1`
	var cfg Config
	err := r.DB.QueryRowContext(ctx, query).Scan(
		&cfg.AppName, &cfg.LogoURL, &cfg.PrimaryColor, &cfg.SecondaryColor,
		&cfg.PrimaryTextColor, &cfg.SecondaryTextColor, &cfg.BorderRadius,
		&cfg.DefaultLocale, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Config{}, ErrNotFound
	}
	return cfg, err
}

func (r *PGRepo) Save(ctx context.Context, cfg Config) error {
	const query = `
INSERT INTO system_config (id, app_name, logo_url, primary_color, secondary_color, primary_text_color,
                           secondary_text_color, border_radius, default_locale, created_at, updated_at)
VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
    app_name = EXCLUDED.app_name,
    logo_url = EXCLUDED.logo_url,
    primary_color = EXCLUDED.primary_color,
    secondary_color = EXCLUDED.secondary_color,
    primary_text_color = EXCLUDED.primary_text_color,
    secondary_text_color = EXCLUDED.secondary_text_color,
    border_radius = EXCLUDED.border_radius,
    default_locale = EXCLUDED.default_locale,
    updated_at = EXCLUDED.updated_at`
	_, err := r.DB.ExecContext(ctx, query,
		cfg.AppName, cfg.LogoURL, cfg.PrimaryColor, cfg.SecondaryColor,
		cfg.PrimaryTextColor, cfg.SecondaryTextColor, cfg.BorderRadius,
		cfg.DefaultLocale, cfg.CreatedAt, cfg.UpdatedAt,
	)
	return err
}

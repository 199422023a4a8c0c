package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"smartcity-dashboard/internal/modules/sensors/types"
)

//go:embed sql/get-preference.sql
var getPreferenceSQL string

//go:embed sql/upsert-preference.sql
var upsertPreferenceSQL string

const themeKey = "theme"

// PreferenceRepository persists the dashboard's single user preference.
type PreferenceRepository interface {
	GetTheme(ctx context.Context) (types.Theme, error)
	SetTheme(ctx context.Context, theme types.Theme) error
	Ping(ctx context.Context) error
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) PreferenceRepository {
	return &repositoryImpl{db: db}
}

// GetTheme returns the stored theme, or the default when none is stored.
// An unrecognised stored value also yields the default.
func (r *repositoryImpl) GetTheme(ctx context.Context) (types.Theme, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, getPreferenceSQL, themeKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return types.DefaultTheme, nil
	}
	if err != nil {
		return types.DefaultTheme, fmt.Errorf("get theme: %w", err)
	}
	theme, ok := types.ParseTheme(raw)
	if !ok {
		slog.Warn("ignoring unknown stored theme", "value", raw)
	}
	return theme, nil
}

func (r *repositoryImpl) SetTheme(ctx context.Context, theme types.Theme) error {
	normalized, ok := types.ParseTheme(string(theme))
	if !ok || strings.TrimSpace(string(theme)) == "" {
		return fmt.Errorf("set theme: invalid theme %q", theme)
	}
	if _, err := r.db.ExecContext(ctx, upsertPreferenceSQL, themeKey, string(normalized)); err != nil {
		return fmt.Errorf("set theme: %w", err)
	}
	return nil
}

func (r *repositoryImpl) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

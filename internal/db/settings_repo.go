package db

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"

	"tubepost/internal/types"
)

// SettingPriceMinor holds the Pro price in minor currency units.
const SettingPriceMinor = "subscription_price_minor"

// SettingsRepository reads and writes the key/value settings table.
type SettingsRepository struct {
	db DBTX
}

// NewSettingsRepository creates a SettingsRepository.
func NewSettingsRepository(db DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetPriceMinor returns the stored price, or fallback when it was never set.
func (r *SettingsRepository) GetPriceMinor(ctx context.Context, fallback int64) (int64, error) {
	var raw string
	err := r.db.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, SettingPriceMinor).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fallback, nil
		}
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to read price", err)
	}
	minor, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "stored price is not an integer", err)
	}
	return minor, nil
}

// SetPriceMinor stores the price.
func (r *SettingsRepository) SetPriceMinor(ctx context.Context, minor int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		SettingPriceMinor, strconv.FormatInt(minor, 10),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to save price", err)
	}
	return nil
}

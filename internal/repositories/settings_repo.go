package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BradenHooton/loginhistory/internal/database"
	"github.com/BradenHooton/loginhistory/internal/models"
)

const retentionSettingsKey = "retention"

// SettingsRepository stores service settings as JSONB rows in login_history_settings
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{pool: db.Pool}
}

// GetRetentionPolicy returns the stored policy, or the default when none is stored
func (r *SettingsRepository) GetRetentionPolicy(ctx context.Context) (models.RetentionPolicy, error) {
	policy := models.DefaultRetentionPolicy()

	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT value FROM login_history_settings WHERE key = $1`, retentionSettingsKey).Scan(&raw)
	if err == pgx.ErrNoRows {
		return policy, nil
	}
	if err != nil {
		return policy, fmt.Errorf("failed to read retention policy: %w", database.MapPostgresError(err))
	}

	if err := json.Unmarshal(raw, &policy); err != nil {
		return models.DefaultRetentionPolicy(), fmt.Errorf("%w: stored retention policy is malformed: %v", models.ErrStorage, err)
	}

	return policy, nil
}

// SaveRetentionPolicy upserts the policy
func (r *SettingsRepository) SaveRetentionPolicy(ctx context.Context, policy models.RetentionPolicy) error {
	raw, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("failed to encode retention policy: %w", err)
	}

	query := `
		INSERT INTO login_history_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, retentionSettingsKey, raw); err != nil {
		return fmt.Errorf("failed to save retention policy: %w", database.MapPostgresError(err))
	}

	return nil
}

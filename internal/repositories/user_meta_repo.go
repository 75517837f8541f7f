package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BradenHooton/loginhistory/internal/database"
	"github.com/BradenHooton/loginhistory/internal/models"
)

// UserMetaRepository stores per-account last-login markers and table preferences
type UserMetaRepository struct {
	pool *pgxpool.Pool
}

// NewUserMetaRepository creates a new UserMetaRepository
func NewUserMetaRepository(db *database.DB) *UserMetaRepository {
	return &UserMetaRepository{pool: db.Pool}
}

// SetLastLogin records the time of an account's latest successful login
func (r *UserMetaRepository) SetLastLogin(ctx context.Context, userID string, at int64) error {
	query := `
		INSERT INTO login_history_user_meta (user_id, last_login, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET last_login = EXCLUDED.last_login, updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, userID, at); err != nil {
		return fmt.Errorf("failed to set last login: %w", database.MapPostgresError(err))
	}
	return nil
}

// GetLastLogins returns the last-login markers for userIDs. Accounts that never logged in
// are absent from the map.
func (r *UserMetaRepository) GetLastLogins(ctx context.Context, userIDs []string) (map[string]int64, error) {
	result := make(map[string]int64, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT user_id, last_login FROM login_history_user_meta
		WHERE user_id = ANY($1) AND last_login IS NOT NULL
	`

	rows, err := r.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query last logins: %w", database.MapPostgresError(err))
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		var lastLogin int64
		if err := rows.Scan(&userID, &lastLogin); err != nil {
			return nil, fmt.Errorf("failed to scan last login: %w", database.MapPostgresError(err))
		}
		result[userID] = lastLogin
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating last logins: %w", database.MapPostgresError(err))
	}

	return result, nil
}

// GetPerPage returns the stored page size preference, or nil when unset
func (r *UserMetaRepository) GetPerPage(ctx context.Context, userID string) (*int, error) {
	var perPage *int
	err := r.pool.QueryRow(ctx, `SELECT per_page FROM login_history_user_meta WHERE user_id = $1`, userID).Scan(&perPage)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read page size preference: %w", database.MapPostgresError(err))
	}
	return perPage, nil
}

// SetPerPage stores a page size preference
func (r *UserMetaRepository) SetPerPage(ctx context.Context, userID string, perPage int) error {
	query := `
		INSERT INTO login_history_user_meta (user_id, per_page, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET per_page = EXCLUDED.per_page, updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, userID, perPage); err != nil {
		return fmt.Errorf("failed to set page size preference: %w", database.MapPostgresError(err))
	}
	return nil
}

// GetMeta returns everything stored for userID
func (r *UserMetaRepository) GetMeta(ctx context.Context, userID string) (*models.UserLoginMeta, error) {
	meta := &models.UserLoginMeta{UserID: userID}

	err := r.pool.QueryRow(ctx,
		`SELECT last_login, per_page FROM login_history_user_meta WHERE user_id = $1`, userID,
	).Scan(&meta.LastLogin, &meta.PerPage)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return meta, nil
}

package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/BradenHooton/loginhistory/internal/database"
	"github.com/BradenHooton/loginhistory/internal/models"
)

const authLogColumns = `id, attempt_time, ip_address, ip_location, device_type, username, result_code, result_description`

// AuthLogRepository persists login attempts in login_history_auth_log
type AuthLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuthLogRepository creates a new AuthLogRepository
func NewAuthLogRepository(db *database.DB) *AuthLogRepository {
	return &AuthLogRepository{pool: db.Pool}
}

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuthLogRow(row rowScanner) (*models.AuthLogEntry, error) {
	var entry models.AuthLogEntry
	var id int64

	err := row.Scan(
		&id, &entry.AttemptTime, &entry.IPAddress, &entry.IPLocation,
		&entry.DeviceType, &entry.Username, &entry.ResultCode, &entry.ResultDescription,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	entry.ID = &id
	return &entry, nil
}

func scanAuthLogRows(rows pgx.Rows) ([]*models.AuthLogEntry, error) {
	defer rows.Close()

	entries := make([]*models.AuthLogEntry, 0)
	for rows.Next() {
		entry, err := scanAuthLogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auth log entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auth log rows: %w", database.MapPostgresError(err))
	}

	return entries, nil
}

// Insert stores a new entry and returns it with its assigned id. Entries that already
// have an id are rejected.
func (r *AuthLogRepository) Insert(ctx context.Context, entry *models.AuthLogEntry) (*models.AuthLogEntry, error) {
	if entry.IsPersisted() {
		return nil, models.ErrAlreadyPersisted
	}

	entry.Truncate()

	query := `
		INSERT INTO login_history_auth_log (
			attempt_time, ip_address, ip_location, device_type, username, result_code, result_description
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + authLogColumns

	result, err := scanAuthLogRow(r.pool.QueryRow(ctx, query,
		entry.AttemptTime, entry.IPAddress, entry.IPLocation, entry.DeviceType,
		entry.Username, entry.ResultCode, entry.ResultDescription,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert auth log entry: %w", err)
	}

	return result, nil
}

// Update overwrites a stored entry. attempt_time is never changed.
func (r *AuthLogRepository) Update(ctx context.Context, entry *models.AuthLogEntry) error {
	if !entry.IsPersisted() {
		return models.ErrNotPersisted
	}

	entry.Truncate()

	query := `
		UPDATE login_history_auth_log
		SET ip_address = $2, ip_location = $3, device_type = $4,
		    username = $5, result_code = $6, result_description = $7
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		*entry.ID, entry.IPAddress, entry.IPLocation, entry.DeviceType,
		entry.Username, entry.ResultCode, entry.ResultDescription,
	)
	if err != nil {
		return fmt.Errorf("failed to update auth log entry: %w", database.MapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Save inserts entries without an id and updates the rest. The id assigned on insert
// is written back to entry.
func (r *AuthLogRepository) Save(ctx context.Context, entry *models.AuthLogEntry) error {
	if entry.IsPersisted() {
		return r.Update(ctx, entry)
	}

	saved, err := r.Insert(ctx, entry)
	if err != nil {
		return err
	}
	entry.ID = saved.ID
	return nil
}

// GetByID retrieves one entry
func (r *AuthLogRepository) GetByID(ctx context.Context, id int64) (*models.AuthLogEntry, error) {
	query := `SELECT ` + authLogColumns + ` FROM login_history_auth_log WHERE id = $1`

	entry, err := scanAuthLogRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// FindLatestLocationForIP returns a stored non-empty location for ip, or "" when none exists.
// Which row supplies it is unspecified.
func (r *AuthLogRepository) FindLatestLocationForIP(ctx context.Context, ip string) (string, error) {
	query := `
		SELECT ip_location FROM login_history_auth_log
		WHERE ip_address = $1 AND ip_location <> ''
		LIMIT 1
	`

	var location string
	err := r.pool.QueryRow(ctx, query, ip).Scan(&location)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up location: %w", database.MapPostgresError(err))
	}

	return location, nil
}

// Query returns one page of entries matching q together with the total match count
func (r *AuthLogRepository) Query(ctx context.Context, q models.AuthLogQuery) (*models.AuthLogPage, error) {
	q.Normalize()

	where, args := buildAuthLogFilter(q)

	var total int64
	countQuery := `SELECT COUNT(*) FROM login_history_auth_log` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count auth log entries: %w", database.MapPostgresError(err))
	}

	direction := "DESC"
	if q.Order == models.SortAsc {
		direction = "ASC"
	}

	// OrderBy was checked against models.SortableColumns by Normalize
	selectQuery := fmt.Sprintf(
		`SELECT %s FROM login_history_auth_log%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		authLogColumns, where, pq.QuoteIdentifier(q.OrderBy), direction, direction,
		len(args)+1, len(args)+2,
	)
	args = append(args, q.PageSize, q.Offset())

	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query auth log: %w", database.MapPostgresError(err))
	}

	entries, err := scanAuthLogRows(rows)
	if err != nil {
		return nil, err
	}

	return &models.AuthLogPage{Rows: entries, Total: total}, nil
}

// Count returns the number of entries matching the filters of q, ignoring paging.
// A nil q counts every entry.
func (r *AuthLogRepository) Count(ctx context.Context, q *models.AuthLogQuery) (int64, error) {
	where, args := "", []any(nil)
	if q != nil {
		filter := *q
		filter.Normalize()
		where, args = buildAuthLogFilter(filter)
	}

	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM login_history_auth_log`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count auth log entries: %w", database.MapPostgresError(err))
	}
	return count, nil
}

// DeleteOlderThan removes entries with attempt_time strictly before cutoff and returns
// how many were removed
func (r *AuthLogRepository) DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	query := `DELETE FROM login_history_auth_log WHERE attempt_time < $1`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old auth log entries: %w", database.MapPostgresError(err))
	}

	return result.RowsAffected(), nil
}

// buildAuthLogFilter renders the WHERE clause for q's filters
func buildAuthLogFilter(q models.AuthLogQuery) (string, []any) {
	var conditions []string
	var args []any

	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if search := strings.TrimSpace(q.Search); search != "" {
		p := next("%" + escapeLike(search) + "%")
		conditions = append(conditions, fmt.Sprintf(`(username ILIKE %s ESCAPE '\' OR ip_address ILIKE %s ESCAPE '\')`, p, p))
	}
	if q.From != nil {
		conditions = append(conditions, "attempt_time >= "+next(*q.From))
	}
	if q.To != nil {
		conditions = append(conditions, "attempt_time < "+next(*q.To))
	}
	switch q.Result {
	case models.ResultFilterSuccess:
		conditions = append(conditions, "result_code = "+next(models.ResultSuccess))
	case models.ResultFilterFailure:
		conditions = append(conditions, "result_code <> "+next(models.ResultSuccess))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

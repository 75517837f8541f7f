package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/BradenHooton/loginhistory/internal/models"
)

// MapPostgresError translates driver errors into model sentinels. Anything it does not
// recognise is reported as a storage failure.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return models.ErrConflict
		case "23502", "23503", "23514", "22001": // not_null, foreign_key, check, string_data_right_truncation
			return fmt.Errorf("%w: %s", models.ErrBadRequest, pgErr.Message)
		case "42P01": // undefined_table
			return fmt.Errorf("%w: %s (run migrate)", models.ErrStorage, pgErr.Message)
		}
	}

	return fmt.Errorf("%w: %v", models.ErrStorage, err)
}

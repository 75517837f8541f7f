package models

// UserLoginMeta holds per-account data kept alongside the host's user records
type UserLoginMeta struct {
	UserID    string `db:"user_id"`
	LastLogin *int64 `db:"last_login"` // unix seconds of the last successful login
	PerPage   *int   `db:"per_page"`   // table page size preference
}

// Page size preference bounds
const (
	MinPerPage = 1
	MaxPerPage = 999
)

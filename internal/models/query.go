package models

import "math"

// Result filter values accepted by AuthLogQuery
const (
	ResultFilterAll     = "all"
	ResultFilterSuccess = "success"
	ResultFilterFailure = "failure"
)

// Sort directions
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Sortable columns of the auth log table
const (
	ColumnAttemptTime = "attempt_time"
	ColumnIPAddress   = "ip_address"
	ColumnIPLocation  = "ip_location"
	ColumnDeviceType  = "device_type"
	ColumnUsername    = "username"
	ColumnResultCode  = "result_code"
)

// SortableColumns lists the columns an AuthLogQuery may order by
var SortableColumns = map[string]bool{
	ColumnAttemptTime: true,
	ColumnIPAddress:   true,
	ColumnIPLocation:  true,
	ColumnDeviceType:  true,
	ColumnUsername:    true,
	ColumnResultCode:  true,
}

// DefaultPageSize is the number of rows per page when nothing else is configured
const DefaultPageSize = 25

// AuthLogQuery describes a filtered, sorted, paginated read of the auth log
type AuthLogQuery struct {
	Search   string // substring of username or ip_address, case-insensitive
	From     *int64 // attempt_time >= From
	To       *int64 // attempt_time < To
	Result   string // all, success, failure
	OrderBy  string
	Order    string
	Page     int // 1-indexed
	PageSize int
}

// Normalize fills defaults and clamps out-of-range values
func (q *AuthLogQuery) Normalize() {
	if !SortableColumns[q.OrderBy] {
		q.OrderBy = ColumnAttemptTime
	}
	if q.Order != SortAsc && q.Order != SortDesc {
		q.Order = SortDesc
	}
	switch q.Result {
	case ResultFilterSuccess, ResultFilterFailure:
	default:
		q.Result = ResultFilterAll
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPerPage {
		q.PageSize = MaxPerPage
	}
	// Keep Offset within a 32-bit row count so it can never wrap negative
	if maxPage := math.MaxInt32/q.PageSize + 1; q.Page > maxPage {
		q.Page = maxPage
	}
}

// Offset returns the row offset of the requested page
func (q *AuthLogQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// AuthLogPage is one page of query results
type AuthLogPage struct {
	Rows  []*AuthLogEntry
	Total int64 // rows matching the filters across all pages
}

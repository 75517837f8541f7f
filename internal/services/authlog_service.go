package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/loginhistory/internal/models"
)

// Named views of the auth log table
const (
	ViewAll        = "all"
	ViewToday      = "today"
	ViewLast7Days  = "7days"
	ViewLast30Days = "30days"
)

// dateLayout is the format of the from/to query parameters
const dateLayout = "2006-01-02"

// AuthLogReader reads the auth log for the admin table
type AuthLogReader interface {
	Query(ctx context.Context, q models.AuthLogQuery) (*models.AuthLogPage, error)
	Count(ctx context.Context, q *models.AuthLogQuery) (int64, error)
}

// PreferenceStore keeps per-user table preferences
type PreferenceStore interface {
	GetPerPage(ctx context.Context, userID string) (*int, error)
	SetPerPage(ctx context.Context, userID string, perPage int) error
}

// ViewState is the parsed request state of the admin table
type ViewState struct {
	Query models.AuthLogQuery
	View  string
	From  string // echoed YYYY-MM-DD, "" when unset or invalid
	To    string
}

// TableColumn describes one column of the admin table
type TableColumn struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Sortable bool   `json:"sortable"`
}

// TableFilters echoes the active filters back to the client
type TableFilters struct {
	Search  string `json:"s"`
	From    string `json:"from"`
	To      string `json:"to"`
	Result  string `json:"result"`
	View    string `json:"view"`
	OrderBy string `json:"orderby"`
	Order   string `json:"order"`
}

// TableViewLink is one of the named views with its entry count
type TableViewLink struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Count   int64  `json:"count"`
	Current bool   `json:"current"`
}

// TableRow is one auth log entry as rendered in the admin table
type TableRow struct {
	ID                int64  `json:"id"`
	AttemptTime       int64  `json:"attempt_time"`
	AttemptedAt       string `json:"attempted_at"`
	IPAddress         string `json:"ip_address"`
	IPLocation        string `json:"ip_location"`
	DeviceType        string `json:"device_type"`
	Username          string `json:"username"`
	ResultCode        string `json:"result_code"`
	ResultDescription string `json:"result_description"`
	Success           bool   `json:"success"`
}

// TableView is everything the admin table needs to render one page
type TableView struct {
	Rows       []TableRow      `json:"rows"`
	Total      int64           `json:"total"`
	TotalPages int             `json:"total_pages"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	Filters    TableFilters    `json:"filters"`
	Columns    []TableColumn   `json:"columns"`
	Views      []TableViewLink `json:"views"`
	Error      string          `json:"error,omitempty"`
}

// tableColumns is the fixed column layout of the admin table
var tableColumns = []TableColumn{
	{Key: models.ColumnAttemptTime, Label: "Time", Sortable: true},
	{Key: models.ColumnIPAddress, Label: "IP Address (Location)", Sortable: true},
	{Key: models.ColumnDeviceType, Label: "Device", Sortable: true},
	{Key: models.ColumnUsername, Label: "Username", Sortable: true},
	{Key: models.ColumnResultCode, Label: "Result", Sortable: true},
}

var viewLabels = []struct{ key, label string }{
	{ViewAll, "All"},
	{ViewToday, "Today"},
	{ViewLast7Days, "Last 7 days"},
	{ViewLast30Days, "Last 30 days"},
}

// AuthLogService builds the admin auth log table
type AuthLogService struct {
	reader         AuthLogReader
	prefs          PreferenceStore
	logger         *slog.Logger
	defaultPerPage int
	location       *time.Location
	now            func() time.Time
}

// NewAuthLogService creates a new AuthLogService. Dates are interpreted in loc (UTC when nil).
func NewAuthLogService(reader AuthLogReader, prefs PreferenceStore, logger *slog.Logger, defaultPerPage int, loc *time.Location) *AuthLogService {
	if defaultPerPage < models.MinPerPage || defaultPerPage > models.MaxPerPage {
		defaultPerPage = models.DefaultPageSize
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AuthLogService{
		reader:         reader,
		prefs:          prefs,
		logger:         logger,
		defaultPerPage: defaultPerPage,
		location:       loc,
		now:            time.Now,
	}
}

// ParseViewState reads the table state from query parameters. The page size comes from
// per_page, then the stored preference, then the configured default.
func (s *AuthLogService) ParseViewState(values url.Values, preferredPerPage *int) ViewState {
	q := models.AuthLogQuery{
		Search:  strings.TrimSpace(values.Get("s")),
		Result:  values.Get("result"),
		OrderBy: values.Get("orderby"),
		Order:   strings.ToLower(values.Get("order")),
		Page:    atoiOr(values.Get("paged"), 1),
	}

	q.PageSize = s.defaultPerPage
	if preferredPerPage != nil {
		q.PageSize = *preferredPerPage
	}
	if raw := values.Get("per_page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			q.PageSize = n
		}
	}
	q.PageSize = clampPerPage(q.PageSize)

	state := ViewState{View: ViewAll}

	switch view := values.Get("view"); view {
	case ViewToday, ViewLast7Days, ViewLast30Days:
		state.View = view
		from := s.viewStart(view)
		q.From = &from
	}

	if day, ok := s.parseDay(values.Get("from")); ok {
		from := day.Unix()
		q.From = &from
		state.From = day.Format(dateLayout)
	}
	if day, ok := s.parseDay(values.Get("to")); ok {
		to := day.AddDate(0, 0, 1).Unix()
		q.To = &to
		state.To = day.Format(dateLayout)
	}

	q.Normalize()
	state.Query = q
	return state
}

// BuildTable runs the query for state. A failed query still yields a renderable view
// with Error set.
func (s *AuthLogService) BuildTable(ctx context.Context, state ViewState) *TableView {
	q := state.Query
	q.Normalize()

	view := &TableView{
		Rows:       []TableRow{},
		TotalPages: 1,
		Page:       q.Page,
		PerPage:    q.PageSize,
		Columns:    tableColumns,
		Filters: TableFilters{
			Search:  q.Search,
			From:    state.From,
			To:      state.To,
			Result:  q.Result,
			View:    state.View,
			OrderBy: q.OrderBy,
			Order:   q.Order,
		},
	}

	page, err := s.reader.Query(ctx, q)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to query auth log", slog.Any("error", err))
		view.Error = "The login history could not be loaded."
		view.Views = s.viewLinks(ctx, state.View)
		return view
	}

	view.Total = page.Total
	view.TotalPages = totalPages(page.Total, q.PageSize)
	for _, entry := range page.Rows {
		view.Rows = append(view.Rows, s.toRow(entry))
	}
	view.Views = s.viewLinks(ctx, state.View)

	return view
}

// PreferredPerPage returns the stored page size for userID, or nil
func (s *AuthLogService) PreferredPerPage(ctx context.Context, userID string) *int {
	if s.prefs == nil || userID == "" {
		return nil
	}
	perPage, err := s.prefs.GetPerPage(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read page size preference", slog.Any("error", err))
		return nil
	}
	return perPage
}

// SetPerPage stores a page size preference for userID
func (s *AuthLogService) SetPerPage(ctx context.Context, userID string, perPage int) error {
	if perPage < models.MinPerPage || perPage > models.MaxPerPage {
		return &models.ConfigurationError{
			Field:   "per_page",
			Message: fmt.Sprintf("must be between %d and %d", models.MinPerPage, models.MaxPerPage),
		}
	}
	return s.prefs.SetPerPage(ctx, userID, perPage)
}

func (s *AuthLogService) toRow(entry *models.AuthLogEntry) TableRow {
	row := TableRow{
		AttemptTime:       entry.AttemptTime,
		AttemptedAt:       entry.AttemptedAt().In(s.location).Format(time.RFC3339),
		IPAddress:         entry.IPAddress,
		IPLocation:        entry.IPLocation,
		DeviceType:        entry.DeviceType,
		Username:          entry.Username,
		ResultCode:        entry.ResultCode,
		ResultDescription: entry.ResultDescription,
		Success:           entry.IsSuccess(),
	}
	if entry.ID != nil {
		row.ID = *entry.ID
	}
	return row
}

// viewLinks counts entries per named view. Counts ignore the other filters.
func (s *AuthLogService) viewLinks(ctx context.Context, current string) []TableViewLink {
	links := make([]TableViewLink, 0, len(viewLabels))
	for _, v := range viewLabels {
		link := TableViewLink{Key: v.key, Label: v.label, Current: v.key == current}

		var filter models.AuthLogQuery
		if v.key != ViewAll {
			from := s.viewStart(v.key)
			filter.From = &from
		}
		count, err := s.reader.Count(ctx, &filter)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to count auth log view", slog.String("view", v.key), slog.Any("error", err))
		}
		link.Count = count

		links = append(links, link)
	}
	return links
}

// viewStart returns the lower time bound of a named view
func (s *AuthLogService) viewStart(view string) int64 {
	now := s.now().In(s.location)
	switch view {
	case ViewToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, s.location).Unix()
	case ViewLast7Days:
		return now.Unix() - 7*models.SecondsPerDay
	case ViewLast30Days:
		return now.Unix() - 30*models.SecondsPerDay
	}
	return 0
}

func (s *AuthLogService) parseDay(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation(dateLayout, raw, s.location)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

func totalPages(total int64, perPage int) int {
	pages := int((total + int64(perPage) - 1) / int64(perPage))
	if pages < 1 {
		pages = 1
	}
	return pages
}

func clampPerPage(n int) int {
	if n < models.MinPerPage {
		return models.MinPerPage
	}
	if n > models.MaxPerPage {
		return models.MaxPerPage
	}
	return n
}

func atoiOr(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

package services

import (
	"context"
	"log/slog"
	"net/url"
	"time"
)

// NeverLoggedIn is displayed for accounts without a recorded login
const NeverLoggedIn = "—"

// lastLoginLayout formats the last-login column
const lastLoginLayout = "2006-01-02 15:04:05"

// LastLoginReader reads last-login markers for many accounts at once
type LastLoginReader interface {
	GetLastLogins(ctx context.Context, userIDs []string) (map[string]int64, error)
}

// UserRef identifies an account on the host's users screen
type UserRef struct {
	ID       string
	Username string
}

// LastLoginCell is the users-screen data for one account
type LastLoginCell struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username,omitempty"`
	LastLogin  *int64 `json:"last_login"`
	Display    string `json:"display"`
	HistoryURL string `json:"history_url,omitempty"`
}

// LastLoginService supplies the "Last Login" column and row action of the users screen
type LastLoginService struct {
	reader      LastLoginReader
	historyPath string
	location    *time.Location
	logger      *slog.Logger
}

// NewLastLoginService creates a new LastLoginService. historyPath is the admin table
// the row action links to.
func NewLastLoginService(reader LastLoginReader, historyPath string, loc *time.Location, logger *slog.Logger) *LastLoginService {
	if loc == nil {
		loc = time.UTC
	}
	return &LastLoginService{
		reader:      reader,
		historyPath: historyPath,
		location:    loc,
		logger:      logger,
	}
}

// Cells returns one cell per user, in input order
func (s *LastLoginService) Cells(ctx context.Context, users []UserRef) ([]LastLoginCell, error) {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	lastLogins, err := s.reader.GetLastLogins(ctx, ids)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to read last logins", slog.Any("error", err))
		return nil, err
	}

	cells := make([]LastLoginCell, 0, len(users))
	for _, u := range users {
		cell := LastLoginCell{
			UserID:   u.ID,
			Username: u.Username,
			Display:  NeverLoggedIn,
		}
		if at, ok := lastLogins[u.ID]; ok {
			at := at
			cell.LastLogin = &at
			cell.Display = time.Unix(at, 0).In(s.location).Format(lastLoginLayout)
		}
		if u.Username != "" {
			cell.HistoryURL = s.HistoryURL(u.Username)
		}
		cells = append(cells, cell)
	}

	return cells, nil
}

// HistoryURL links to the admin table searched for username
func (s *LastLoginService) HistoryURL(username string) string {
	return s.historyPath + "?" + url.Values{"s": {username}}.Encode()
}

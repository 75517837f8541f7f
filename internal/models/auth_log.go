package models

import "time"

// Result codes and display values for auth log entries
const (
	ResultSuccess      = "success"
	ResultUnknownError = "unknown_error"

	SuccessDescription = "Successful login."

	DeviceUnknown = "Unknown"
)

// Column widths of login_history_auth_log; values are truncated to fit before insert
const (
	MaxIPAddressLen         = 50
	MaxIPLocationLen        = 255
	MaxDeviceTypeLen        = 50
	MaxUsernameLen          = 100
	MaxResultCodeLen        = 50
	MaxResultDescriptionLen = 255
)

// AuthLogEntry is one recorded login attempt
type AuthLogEntry struct {
	ID                *int64 `db:"id"` // nil until the store assigns it
	AttemptTime       int64  `db:"attempt_time"`
	IPAddress         string `db:"ip_address"`
	IPLocation        string `db:"ip_location"`
	DeviceType        string `db:"device_type"`
	Username          string `db:"username"`
	ResultCode        string `db:"result_code"`
	ResultDescription string `db:"result_description"`
}

// NewAuthLogEntry builds an unsaved entry for an attempt at the given time
func NewAuthLogEntry(at time.Time, ipAddress, username, resultCode, resultDescription string) *AuthLogEntry {
	return &AuthLogEntry{
		AttemptTime:       at.Unix(),
		IPAddress:         ipAddress,
		Username:          username,
		ResultCode:        resultCode,
		ResultDescription: resultDescription,
	}
}

// IsPersisted reports whether the store has assigned an id
func (e *AuthLogEntry) IsPersisted() bool {
	return e.ID != nil
}

// IsSuccess reports whether the attempt succeeded
func (e *AuthLogEntry) IsSuccess() bool {
	return e.ResultCode == ResultSuccess
}

// AttemptedAt returns the attempt time as a time.Time in UTC
func (e *AuthLogEntry) AttemptedAt() time.Time {
	return time.Unix(e.AttemptTime, 0).UTC()
}

// Truncate clips every string field to its column width
func (e *AuthLogEntry) Truncate() {
	e.IPAddress = truncate(e.IPAddress, MaxIPAddressLen)
	e.IPLocation = truncate(e.IPLocation, MaxIPLocationLen)
	e.DeviceType = truncate(e.DeviceType, MaxDeviceTypeLen)
	e.Username = truncate(e.Username, MaxUsernameLen)
	e.ResultCode = truncate(e.ResultCode, MaxResultCodeLen)
	e.ResultDescription = truncate(e.ResultDescription, MaxResultDescriptionLen)
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("resource already exists")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	// Auth log failure taxonomy
	ErrStorage          = errors.New("storage failure")
	ErrEnrichment       = errors.New("enrichment failure")
	ErrConfiguration    = errors.New("configuration error")
	ErrAlreadyPersisted = errors.New("entry already has an id")
	ErrNotPersisted     = errors.New("entry has no id")
	ErrSweepInProgress  = errors.New("retention sweep already running")
)

// ConfigurationError reports a rejected settings value. The previous value stays in effect.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrConfiguration
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/BradenHooton/loginhistory/internal/models"
)

// retentionRangeMessage is shown when a retention value is rejected
const retentionRangeMessage = "Please enter a numeric value between 0 and 10000"

// SweeperState is the lifecycle state of a RetentionService sweep
type SweeperState int32

const (
	SweeperIdle SweeperState = iota
	SweeperRunning
)

func (s SweeperState) String() string {
	if s == SweeperRunning {
		return "running"
	}
	return "idle"
}

// AuthLogPurger deletes auth log entries by age
type AuthLogPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error)
}

// SettingsStore persists the retention policy
type SettingsStore interface {
	GetRetentionPolicy(ctx context.Context) (models.RetentionPolicy, error)
	SaveRetentionPolicy(ctx context.Context, policy models.RetentionPolicy) error
}

// SweepResult reports what a sweep did
type SweepResult struct {
	RunID   string `json:"run_id"`
	Cutoff  int64  `json:"cutoff"`
	Deleted int64  `json:"deleted"`
	Skipped bool   `json:"skipped"` // policy disables deletion
}

// RetentionService purges old auth log entries according to the stored policy, and
// applies a fixed hard cap on every login event
type RetentionService struct {
	purger         AuthLogPurger
	settings       SettingsStore
	notifier       AlertNotifier
	validate       *validator.Validate
	logger         *slog.Logger
	hardMaxAgeDays int
	now            func() time.Time

	state       atomic.Int32
	hardCapBusy atomic.Bool
}

// NewRetentionService creates a new RetentionService. hardMaxAgeDays <= 0 uses
// models.DefaultHardMaxAgeDays.
func NewRetentionService(purger AuthLogPurger, settings SettingsStore, notifier AlertNotifier, logger *slog.Logger, hardMaxAgeDays int) *RetentionService {
	if hardMaxAgeDays <= 0 {
		hardMaxAgeDays = models.DefaultHardMaxAgeDays
	}
	return &RetentionService{
		purger:         purger,
		settings:       settings,
		notifier:       notifier,
		validate:       validator.New(),
		logger:         logger,
		hardMaxAgeDays: hardMaxAgeDays,
		now:            time.Now,
	}
}

// State returns whether a policy sweep is in progress
func (s *RetentionService) State() SweeperState {
	return SweeperState(s.state.Load())
}

// Run performs one policy sweep. A call made while another sweep is running returns
// models.ErrSweepInProgress without touching the store.
func (s *RetentionService) Run(ctx context.Context) (*SweepResult, error) {
	if !s.state.CompareAndSwap(int32(SweeperIdle), int32(SweeperRunning)) {
		s.logger.WarnContext(ctx, "retention sweep skipped, previous run still in progress")
		return nil, models.ErrSweepInProgress
	}
	defer s.state.Store(int32(SweeperIdle))

	result := &SweepResult{RunID: uuid.NewString()}

	policy, err := s.settings.GetRetentionPolicy(ctx)
	if err != nil {
		s.fail(ctx, result.RunID, "failed to read retention policy", err)
		return nil, fmt.Errorf("failed to read retention policy: %w", err)
	}

	if !policy.Enabled() {
		result.Skipped = true
		s.logger.InfoContext(ctx, "retention sweep skipped, deletion disabled", slog.String("run_id", result.RunID))
		return result, nil
	}

	result.Cutoff = policy.Cutoff(s.now().Unix())

	deleted, err := s.purger.DeleteOlderThan(ctx, result.Cutoff)
	if err != nil {
		s.fail(ctx, result.RunID, "retention sweep failed", err)
		return nil, fmt.Errorf("retention sweep failed: %w", err)
	}
	result.Deleted = deleted

	s.logger.InfoContext(ctx, "retention sweep completed",
		slog.String("run_id", result.RunID),
		slog.Int("delete_after_days", policy.DeleteAfterDays),
		slog.Int64("cutoff", result.Cutoff),
		slog.Int64("rows_deleted", deleted),
	)

	return result, nil
}

// HardCapSweep deletes entries older than the hard maximum age, regardless of policy.
// Concurrent calls collapse into the one already running.
func (s *RetentionService) HardCapSweep(ctx context.Context) (int64, error) {
	if !s.hardCapBusy.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer s.hardCapBusy.Store(false)

	cutoff := s.now().Unix() - int64(s.hardMaxAgeDays)*models.SecondsPerDay

	deleted, err := s.purger.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.fail(ctx, "", "hard cap sweep failed", err)
		return 0, fmt.Errorf("hard cap sweep failed: %w", err)
	}

	if deleted > 0 {
		s.logger.InfoContext(ctx, "hard cap sweep removed entries",
			slog.Int("max_age_days", s.hardMaxAgeDays),
			slog.Int64("rows_deleted", deleted),
		)
	}
	return deleted, nil
}

// GetPolicy returns the stored retention policy
func (s *RetentionService) GetPolicy(ctx context.Context) (models.RetentionPolicy, error) {
	return s.settings.GetRetentionPolicy(ctx)
}

// UpdatePolicy validates and stores a new retention period. On a *models.ConfigurationError
// the returned policy is the one still in effect.
func (s *RetentionService) UpdatePolicy(ctx context.Context, deleteAfterDays int) (models.RetentionPolicy, error) {
	current, err := s.settings.GetRetentionPolicy(ctx)
	if err != nil {
		return current, err
	}

	candidate := models.RetentionPolicy{DeleteAfterDays: deleteAfterDays}
	if err := s.validate.Struct(candidate); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return current, &models.ConfigurationError{Field: "delete_records_after_days", Message: retentionRangeMessage}
		}
		return current, err
	}

	if err := s.settings.SaveRetentionPolicy(ctx, candidate); err != nil {
		return current, err
	}

	s.logger.InfoContext(ctx, "retention policy updated",
		slog.Int("previous_days", current.DeleteAfterDays),
		slog.Int("delete_after_days", candidate.DeleteAfterDays),
	)
	return candidate, nil
}

// UpdatePolicyFromInput is UpdatePolicy for raw form or JSON input. Non-numeric input is
// rejected the same way as an out-of-range number.
func (s *RetentionService) UpdatePolicyFromInput(ctx context.Context, raw string) (models.RetentionPolicy, error) {
	days, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		current, getErr := s.settings.GetRetentionPolicy(ctx)
		if getErr != nil {
			return current, getErr
		}
		return current, &models.ConfigurationError{Field: "delete_records_after_days", Message: retentionRangeMessage}
	}
	return s.UpdatePolicy(ctx, days)
}

func (s *RetentionService) fail(ctx context.Context, runID, msg string, err error) {
	s.logger.ErrorContext(ctx, msg, slog.String("run_id", runID), slog.Any("error", err))
	if s.notifier != nil {
		s.notifier.Notify(ctx, Alert{Kind: AlertKindRetention, Message: msg, Err: err, At: s.now()})
	}
}

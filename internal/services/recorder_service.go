package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/loginhistory/internal/models"
	"github.com/BradenHooton/loginhistory/pkg/markup"
	httputil "github.com/BradenHooton/loginhistory/pkg/http"
	pkglogger "github.com/BradenHooton/loginhistory/pkg/logger"
)

// LoginObserver receives login outcomes from the host application
type LoginObserver interface {
	RecordSuccess(ctx context.Context, rc httputil.RequestContext, username, accountID string, at time.Time) (*models.AuthLogEntry, error)
	RecordFailure(ctx context.Context, rc httputil.RequestContext, username string, at time.Time, code, message string) (*models.AuthLogEntry, error)
}

// AuthLogWriter stores new auth log entries
type AuthLogWriter interface {
	Insert(ctx context.Context, entry *models.AuthLogEntry) (*models.AuthLogEntry, error)
}

// LastLoginStore keeps each account's last successful login
type LastLoginStore interface {
	SetLastLogin(ctx context.Context, userID string, at int64) error
}

// LocationResolver maps an IP to a country name, "" when unknown
type LocationResolver interface {
	Resolve(ctx context.Context, ip string) string
}

// DeviceClassifier maps a User-Agent to a device type
type DeviceClassifier interface {
	Classify(userAgent string) string
}

// HardCapSweeper applies the absolute retention cap
type HardCapSweeper interface {
	HardCapSweep(ctx context.Context) (int64, error)
}

// RecorderService turns login outcomes into auth log entries
type RecorderService struct {
	store       AuthLogWriter
	lastLogin   LastLoginStore
	resolver    LocationResolver
	classifier  DeviceClassifier
	sweeper     HardCapSweeper
	notifier    AlertNotifier
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

var _ LoginObserver = (*RecorderService)(nil)

// NewRecorderService creates a new RecorderService. sweeper and notifier may be nil.
func NewRecorderService(
	store AuthLogWriter,
	lastLogin LastLoginStore,
	resolver LocationResolver,
	classifier DeviceClassifier,
	sweeper HardCapSweeper,
	notifier AlertNotifier,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *RecorderService {
	return &RecorderService{
		store:       store,
		lastLogin:   lastLogin,
		resolver:    resolver,
		classifier:  classifier,
		sweeper:     sweeper,
		notifier:    notifier,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// RecordSuccess records a successful login and updates the account's last-login marker
func (s *RecorderService) RecordSuccess(ctx context.Context, rc httputil.RequestContext, username, accountID string, at time.Time) (*models.AuthLogEntry, error) {
	at = s.attemptTime(at)
	entry := s.buildEntry(ctx, rc, at, username, models.ResultSuccess, models.SuccessDescription)

	saved, err := s.persist(ctx, entry)

	if accountID != "" {
		if metaErr := s.lastLogin.SetLastLogin(ctx, accountID, at.Unix()); metaErr != nil {
			s.reportStorageFailure(ctx, "failed to update last login", metaErr)
		}
	}

	s.afterRecord(ctx)
	return saved, err
}

// RecordFailure records a failed login. An empty code is stored as "unknown_error" so
// that only successful attempts carry the success code.
func (s *RecorderService) RecordFailure(ctx context.Context, rc httputil.RequestContext, username string, at time.Time, code, message string) (*models.AuthLogEntry, error) {
	code = strings.TrimSpace(code)
	if code == "" || code == models.ResultSuccess {
		code = models.ResultUnknownError
	}

	entry := s.buildEntry(ctx, rc, s.attemptTime(at), username, code, s.plainText(message))

	saved, err := s.persist(ctx, entry)
	s.afterRecord(ctx)
	return saved, err
}

func (s *RecorderService) buildEntry(ctx context.Context, rc httputil.RequestContext, at time.Time, username, code, description string) *models.AuthLogEntry {
	ip := httputil.ExtractClientIP(rc)

	entry := models.NewAuthLogEntry(at, ip, username, code, description)
	entry.IPLocation = s.resolver.Resolve(ctx, ip)
	entry.DeviceType = s.classifier.Classify(rc.UserAgent())
	return entry
}

func (s *RecorderService) persist(ctx context.Context, entry *models.AuthLogEntry) (*models.AuthLogEntry, error) {
	saved, err := s.store.Insert(ctx, entry)

	if s.auditLogger != nil {
		s.auditLogger.LogLoginAttempt(ctx, pkglogger.LoginEvent{
			Username:   entry.Username,
			IPAddress:  entry.IPAddress,
			DeviceType: entry.DeviceType,
			ResultCode: entry.ResultCode,
			Success:    entry.IsSuccess(),
			Persisted:  err == nil,
		})
	}

	if err != nil {
		s.reportStorageFailure(ctx, "failed to record login attempt", err)
		return nil, fmt.Errorf("failed to record login attempt: %w", err)
	}
	return saved, nil
}

func (s *RecorderService) afterRecord(ctx context.Context) {
	if s.sweeper == nil {
		return
	}
	// failures are already logged and alerted by the sweeper
	_, _ = s.sweeper.HardCapSweep(ctx)
}

func (s *RecorderService) reportStorageFailure(ctx context.Context, msg string, err error) {
	s.logger.ErrorContext(ctx, msg, slog.Any("error", err))
	if s.notifier != nil {
		s.notifier.Notify(ctx, Alert{Kind: AlertKindStorage, Message: msg, Err: err, At: s.now()})
	}
}

func (s *RecorderService) attemptTime(at time.Time) time.Time {
	if at.IsZero() {
		return s.now()
	}
	return at
}

// plainText strips markup from a host-supplied message and collapses whitespace
func (s *RecorderService) plainText(message string) string {
	return markup.PlainText(message)
}

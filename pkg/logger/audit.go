package logger

import (
	"context"
	"log/slog"
	"time"
)

// LoginEvent is a login attempt that was (or failed to be) written to the auth log
type LoginEvent struct {
	Username   string
	IPAddress  string
	DeviceType string
	ResultCode string
	Success    bool
	Persisted  bool
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
	env    string
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger, env string) *AuditLogger {
	return &AuditLogger{
		logger: logger,
		env:    env,
	}
}

// LogLoginAttempt logs a recorded login attempt
func (al *AuditLogger) LogLoginAttempt(ctx context.Context, event LoginEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "login"),
		slog.String("result_code", event.ResultCode),
		slog.Bool("success", event.Success),
		slog.Bool("persisted", event.Persisted),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.Username != "" {
		attrs = append(attrs, slog.String("username", SanitizedUsername(event.Username, al.env)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, RedactedAttr("ip_address", event.IPAddress, al.env))
	}
	if event.DeviceType != "" {
		attrs = append(attrs, slog.String("device_type", event.DeviceType))
	}

	level := slog.LevelInfo
	if !event.Success || !event.Persisted {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogAdminAction logs changes made through the admin API
func (al *AuditLogger) LogAdminAction(ctx context.Context, eventType, userID string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "admin"),
		slog.String("event_type", eventType),
		slog.String("user_id", userID),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Alert kinds
const (
	AlertKindStorage   = "storage_failure"
	AlertKindRetention = "retention_failure"
)

// Alert describes a failure an operator should know about
type Alert struct {
	Kind    string
	Message string
	Err     error
	At      time.Time
}

// AlertNotifier forwards operational failures to an operator. Implementations must not block
// the caller for long and must never fail the operation that raised the alert.
type AlertNotifier interface {
	Notify(ctx context.Context, alert Alert)
}

// LogAlertNotifier writes alerts to the service log
type LogAlertNotifier struct {
	logger *slog.Logger
}

// NewLogAlertNotifier creates a new LogAlertNotifier
func NewLogAlertNotifier(logger *slog.Logger) *LogAlertNotifier {
	return &LogAlertNotifier{logger: logger}
}

// Notify implements AlertNotifier
func (n *LogAlertNotifier) Notify(ctx context.Context, alert Alert) {
	n.logger.ErrorContext(ctx, "operator alert",
		slog.String("kind", alert.Kind),
		slog.String("message", alert.Message),
		slog.Any("error", alert.Err),
		slog.Time("at", alert.At),
	)
}

// SESClient is the subset of the SES client used for alert mail
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// alertSendTimeout bounds a single SES call made on behalf of an alert
const alertSendTimeout = 10 * time.Second

// SESAlertNotifier e-mails alerts through AWS SES. At most one mail per kind is sent
// per interval. Mail goes out in the background so the failing request is not held up.
type SESAlertNotifier struct {
	client      SESClient
	fromAddress string
	toAddress   string
	interval    time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time
	inflight sync.WaitGroup
}

// NewSESAlertNotifier creates an SES notifier using the default AWS credential chain
func NewSESAlertNotifier(ctx context.Context, region, fromAddress, toAddress string, logger *slog.Logger) (*SESAlertNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESAlertNotifierWithClient(ses.NewFromConfig(cfg), fromAddress, toAddress, 15*time.Minute, logger), nil
}

// NewSESAlertNotifierWithClient creates an SES notifier around an existing client
func NewSESAlertNotifierWithClient(client SESClient, fromAddress, toAddress string, interval time.Duration, logger *slog.Logger) *SESAlertNotifier {
	return &SESAlertNotifier{
		client:      client,
		fromAddress: fromAddress,
		toAddress:   toAddress,
		interval:    interval,
		logger:      logger,
		lastSent:    make(map[string]time.Time),
	}
}

// Notify implements AlertNotifier. The mail is sent on a context detached from ctx's
// cancellation, bounded by alertSendTimeout.
func (n *SESAlertNotifier) Notify(ctx context.Context, alert Alert) {
	if !n.claim(alert) {
		return
	}

	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertSendTimeout)
		defer cancel()
		n.send(sendCtx, alert)
	}()
}

// Wait blocks until every alert mail already handed to Notify has been attempted
func (n *SESAlertNotifier) Wait() {
	n.inflight.Wait()
}

func (n *SESAlertNotifier) send(ctx context.Context, alert Alert) {
	body := fmt.Sprintf("Login history reported a %s at %s.\n\n%s\n", alert.Kind, alert.At.UTC().Format(time.RFC3339), alert.Message)
	if alert.Err != nil {
		body += fmt.Sprintf("\nError: %v\n", alert.Err)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{n.toAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String("[login history] " + alert.Kind),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(body),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := n.client.SendEmail(ctx, input); err != nil {
		n.logger.ErrorContext(ctx, "failed to send alert email", slog.String("kind", alert.Kind), slog.Any("error", err))
		return
	}

	n.logger.InfoContext(ctx, "alert email sent", slog.String("kind", alert.Kind))
}

// claim reports whether a mail for alert may go out now and records it
func (n *SESAlertNotifier) claim(alert Alert) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if last, ok := n.lastSent[alert.Kind]; ok && alert.At.Sub(last) < n.interval {
		return false
	}
	n.lastSent[alert.Kind] = alert.At
	return true
}

// MultiAlertNotifier fans an alert out to several notifiers
type MultiAlertNotifier []AlertNotifier

// Notify implements AlertNotifier
func (m MultiAlertNotifier) Notify(ctx context.Context, alert Alert) {
	for _, n := range m {
		n.Notify(ctx, alert)
	}
}

// Wait waits on every member that sends in the background
func (m MultiAlertNotifier) Wait() {
	for _, n := range m {
		if w, ok := n.(interface{ Wait() }); ok {
			w.Wait()
		}
	}
}

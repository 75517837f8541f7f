package services

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/BradenHooton/loginhistory/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockAuthLogStore implements AuthLogWriter, AuthLogReader and AuthLogPurger for testing
type MockAuthLogStore struct {
	InsertFunc          func(ctx context.Context, entry *models.AuthLogEntry) (*models.AuthLogEntry, error)
	QueryFunc           func(ctx context.Context, q models.AuthLogQuery) (*models.AuthLogPage, error)
	CountFunc           func(ctx context.Context, q *models.AuthLogQuery) (int64, error)
	DeleteOlderThanFunc func(ctx context.Context, cutoff int64) (int64, error)
}

func (m *MockAuthLogStore) Insert(ctx context.Context, entry *models.AuthLogEntry) (*models.AuthLogEntry, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, entry)
	}
	id := int64(1)
	saved := *entry
	saved.ID = &id
	return &saved, nil
}

func (m *MockAuthLogStore) Query(ctx context.Context, q models.AuthLogQuery) (*models.AuthLogPage, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, q)
	}
	return &models.AuthLogPage{Rows: []*models.AuthLogEntry{}}, nil
}

func (m *MockAuthLogStore) Count(ctx context.Context, q *models.AuthLogQuery) (int64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, q)
	}
	return 0, nil
}

func (m *MockAuthLogStore) DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	if m.DeleteOlderThanFunc != nil {
		return m.DeleteOlderThanFunc(ctx, cutoff)
	}
	return 0, nil
}

// memoryAuthLog is an in-memory auth log used where tests need real delete semantics
type memoryAuthLog struct {
	mu      sync.Mutex
	nextID  int64
	entries []*models.AuthLogEntry
}

func (m *memoryAuthLog) Insert(ctx context.Context, entry *models.AuthLogEntry) (*models.AuthLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.IsPersisted() {
		return nil, models.ErrAlreadyPersisted
	}
	m.nextID++
	id := m.nextID
	saved := *entry
	saved.ID = &id
	m.entries = append(m.entries, &saved)
	return &saved, nil
}

func (m *memoryAuthLog) DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	var deleted int64
	for _, e := range m.entries {
		if e.AttemptTime < cutoff {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return deleted, nil
}

func (m *memoryAuthLog) usernames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		names = append(names, e.Username)
	}
	return names
}

// MockSettingsStore implements SettingsStore for testing
type MockSettingsStore struct {
	Policy                  models.RetentionPolicy
	GetRetentionPolicyFunc  func(ctx context.Context) (models.RetentionPolicy, error)
	SaveRetentionPolicyFunc func(ctx context.Context, policy models.RetentionPolicy) error
}

func (m *MockSettingsStore) GetRetentionPolicy(ctx context.Context) (models.RetentionPolicy, error) {
	if m.GetRetentionPolicyFunc != nil {
		return m.GetRetentionPolicyFunc(ctx)
	}
	return m.Policy, nil
}

func (m *MockSettingsStore) SaveRetentionPolicy(ctx context.Context, policy models.RetentionPolicy) error {
	if m.SaveRetentionPolicyFunc != nil {
		return m.SaveRetentionPolicyFunc(ctx, policy)
	}
	m.Policy = policy
	return nil
}

// MockUserMetaStore implements LastLoginStore, LastLoginReader and PreferenceStore for testing
type MockUserMetaStore struct {
	SetLastLoginFunc  func(ctx context.Context, userID string, at int64) error
	GetLastLoginsFunc func(ctx context.Context, userIDs []string) (map[string]int64, error)
	GetPerPageFunc    func(ctx context.Context, userID string) (*int, error)
	SetPerPageFunc    func(ctx context.Context, userID string, perPage int) error
}

func (m *MockUserMetaStore) SetLastLogin(ctx context.Context, userID string, at int64) error {
	if m.SetLastLoginFunc != nil {
		return m.SetLastLoginFunc(ctx, userID, at)
	}
	return nil
}

func (m *MockUserMetaStore) GetLastLogins(ctx context.Context, userIDs []string) (map[string]int64, error) {
	if m.GetLastLoginsFunc != nil {
		return m.GetLastLoginsFunc(ctx, userIDs)
	}
	return map[string]int64{}, nil
}

func (m *MockUserMetaStore) GetPerPage(ctx context.Context, userID string) (*int, error) {
	if m.GetPerPageFunc != nil {
		return m.GetPerPageFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockUserMetaStore) SetPerPage(ctx context.Context, userID string, perPage int) error {
	if m.SetPerPageFunc != nil {
		return m.SetPerPageFunc(ctx, userID, perPage)
	}
	return nil
}

// MockResolver implements LocationResolver for testing
type MockResolver struct {
	ResolveFunc func(ctx context.Context, ip string) string
}

func (m *MockResolver) Resolve(ctx context.Context, ip string) string {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, ip)
	}
	return ""
}

// MockHardCapSweeper implements HardCapSweeper for testing
type MockHardCapSweeper struct {
	calls int
}

func (m *MockHardCapSweeper) HardCapSweep(ctx context.Context) (int64, error) {
	m.calls++
	return 0, nil
}

// recordingNotifier captures alerts
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []Alert
}

func (n *recordingNotifier) Notify(ctx context.Context, alert Alert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

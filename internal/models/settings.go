package models

// Retention bounds, in days
const (
	DefaultDeleteAfterDays = 90
	MinDeleteAfterDays     = 0
	MaxDeleteAfterDays     = 10000

	// DefaultHardMaxAgeDays is the absolute cap applied on every login event,
	// independent of the configurable policy.
	DefaultHardMaxAgeDays = 90

	SecondsPerDay = 86400
)

// RetentionPolicy controls how long auth log entries are kept. 0 disables deletion.
type RetentionPolicy struct {
	DeleteAfterDays int `json:"delete_records_after_days" validate:"gte=0,lte=10000"`
}

// DefaultRetentionPolicy returns the policy used before anything is saved
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{DeleteAfterDays: DefaultDeleteAfterDays}
}

// Enabled reports whether the policy deletes anything
func (p RetentionPolicy) Enabled() bool {
	return p.DeleteAfterDays > 0
}

// Cutoff returns the unix time before which entries are purged
func (p RetentionPolicy) Cutoff(now int64) int64 {
	return now - int64(p.DeleteAfterDays)*SecondsPerDay
}

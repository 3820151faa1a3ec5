package preference

import "time"

// PreferenceMergedEvent is raised when a signal changes or creates a preference
type PreferenceMergedEvent struct {
	PreferenceID string
	UserID       string
	Key          Key
	Polarity     Polarity
	Weight       float64
	Previous     float64
	Confidence   float64
	Created      bool
	MergedAt     time.Time
}

func (e PreferenceMergedEvent) EventName() string {
	return "preference.merged"
}

func (e PreferenceMergedEvent) OccurredAt() time.Time {
	return e.MergedAt
}

// PreferenceDeactivatedEvent is raised on soft delete
type PreferenceDeactivatedEvent struct {
	PreferenceID  string
	UserID        string
	DeactivatedAt time.Time
}

func (e PreferenceDeactivatedEvent) EventName() string {
	return "preference.deactivated"
}

func (e PreferenceDeactivatedEvent) OccurredAt() time.Time {
	return e.DeactivatedAt
}

// PreferenceReactivatedEvent is raised when a soft-deleted preference is restored
type PreferenceReactivatedEvent struct {
	PreferenceID  string
	UserID        string
	ReactivatedAt time.Time
}

func (e PreferenceReactivatedEvent) EventName() string {
	return "preference.reactivated"
}

func (e PreferenceReactivatedEvent) OccurredAt() time.Time {
	return e.ReactivatedAt
}

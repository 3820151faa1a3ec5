package share

import "time"

// ShareIssuedEvent is raised when a new share link is created
type ShareIssuedEvent struct {
	ShareID   string
	RecipeID  string
	SharedBy  string
	ExpiresAt *time.Time
	IssuedAt  time.Time
}

func (e ShareIssuedEvent) EventName() string {
	return "share.issued"
}

func (e ShareIssuedEvent) OccurredAt() time.Time {
	return e.IssuedAt
}

// ShareRevokedEvent is raised when the owner deletes a share link
type ShareRevokedEvent struct {
	ShareID   string
	RecipeID  string
	RevokedBy string
	RevokedAt time.Time
}

func (e ShareRevokedEvent) EventName() string {
	return "share.revoked"
}

func (e ShareRevokedEvent) OccurredAt() time.Time {
	return e.RevokedAt
}

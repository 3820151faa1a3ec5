// Package preference holds user food preferences and the confidence
// arithmetic used when new signals are merged into them.
package preference

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/alchemorsel/planner/internal/domain/shared"
)

// Polarity tells whether a signal supports or contradicts a preference
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
)

// Key is the natural dedup key of a preference. An empty Context means no
// context.
type Key struct {
	UserID     string `json:"user_id"`
	Category   string `json:"category"`
	Preference string `json:"preference"`
	Context    string `json:"context,omitempty"`
}

// String renders the key for logs
func (k Key) String() string {
	return strings.Join([]string{k.UserID, k.Category, k.Preference, k.Context}, "/")
}

// Validate checks the required parts of the key
func (k Key) Validate() error {
	if k.UserID == "" {
		return ErrUserRequired
	}
	if k.Category == "" {
		return ErrCategoryRequired
	}
	if k.Preference == "" {
		return ErrPreferenceRequired
	}
	return nil
}

// Signal is one observation about a user's preference
type Signal struct {
	Key      Key
	Weight   float64
	Polarity Polarity
	Source   string
}

// Validate checks weight and polarity
func (s Signal) Validate() error {
	if err := s.Key.Validate(); err != nil {
		return err
	}
	if math.IsNaN(s.Weight) || s.Weight <= 0 || s.Weight > 1 {
		return fmt.Errorf("%w: got %g", ErrInvalidWeight, s.Weight)
	}
	switch s.Polarity {
	case PolarityPositive, PolarityNegative:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPolarity, s.Polarity)
	}
	return nil
}

// Preference is one stored user preference row
type Preference struct {
	shared.AggregateRoot `json:"-"`

	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Category   string    `json:"category"`
	Preference string    `json:"preference"`
	Context    string    `json:"context,omitempty"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	// Version is 0 until the row is first stored
	Version int64 `json:"version"`
}

// Key returns the natural key of p
func (p *Preference) Key() Key {
	return Key{UserID: p.UserID, Category: p.Category, Preference: p.Preference, Context: p.Context}
}

// FromSignal creates a new active preference from a positive signal.
// Negative signals never create rows.
func FromSignal(sig Signal, now time.Time) (*Preference, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	if sig.Polarity != PolarityPositive {
		return nil, ErrNothingToWeaken
	}

	p := &Preference{
		UserID:     sig.Key.UserID,
		Category:   sig.Key.Category,
		Preference: sig.Key.Preference,
		Context:    sig.Key.Context,
		Confidence: Initial(sig.Weight),
		Source:     sig.Source,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	p.AddEvent(PreferenceMergedEvent{
		UserID:     p.UserID,
		Key:        p.Key(),
		Polarity:   sig.Polarity,
		Weight:     sig.Weight,
		Previous:   0,
		Confidence: p.Confidence,
		Created:    true,
		MergedAt:   now,
	})

	return p, nil
}

// Merge folds sig into an active preference. CreatedAt and Source stay as
// they were.
func (p *Preference) Merge(sig Signal, now time.Time) error {
	if err := sig.Validate(); err != nil {
		return err
	}
	if !p.IsActive {
		return ErrInactive
	}
	if sig.Key != p.Key() {
		return ErrKeyMismatch
	}

	previous := p.Confidence
	if sig.Polarity == PolarityPositive {
		p.Confidence = Reinforce(previous, sig.Weight)
	} else {
		p.Confidence = Weaken(previous, sig.Weight)
	}
	p.UpdatedAt = now

	p.AddEvent(PreferenceMergedEvent{
		PreferenceID: p.ID,
		UserID:       p.UserID,
		Key:          p.Key(),
		Polarity:     sig.Polarity,
		Weight:       sig.Weight,
		Previous:     previous,
		Confidence:   p.Confidence,
		MergedAt:     now,
	})

	return nil
}

// Deactivate soft-deletes the preference
func (p *Preference) Deactivate(now time.Time) error {
	if !p.IsActive {
		return ErrInactive
	}
	p.IsActive = false
	p.UpdatedAt = now
	p.AddEvent(PreferenceDeactivatedEvent{PreferenceID: p.ID, UserID: p.UserID, DeactivatedAt: now})
	return nil
}

// Reactivate restores a soft-deleted preference with its last confidence
func (p *Preference) Reactivate(now time.Time) error {
	if p.IsActive {
		return ErrAlreadyActive
	}
	p.IsActive = true
	p.UpdatedAt = now
	p.AddEvent(PreferenceReactivatedEvent{PreferenceID: p.ID, UserID: p.UserID, ReactivatedAt: now})
	return nil
}

// Package share models public share links for recipes.
package share

import (
	"time"
)

// Status is the lifecycle state of a share link
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// SharedRecipe is one issued share link. RecipeID and SharedBy are weak
// references resolved through storage.
type SharedRecipe struct {
	ID        string     `json:"id"`
	ShareID   string     `json:"share_id"`
	RecipeID  string     `json:"recipe_id"`
	SharedBy  string     `json:"shared_by"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// New builds a share link for recipeID. A nil ttl produces a link that never
// expires.
func New(recipeID, userID, token string, now time.Time, ttl *time.Duration) (*SharedRecipe, error) {
	if recipeID == "" {
		return nil, ErrRecipeRequired
	}
	if userID == "" {
		return nil, ErrUserRequired
	}
	if token == "" {
		return nil, ErrTokenRequired
	}

	s := &SharedRecipe{
		ShareID:   token,
		RecipeID:  recipeID,
		SharedBy:  userID,
		CreatedAt: now,
	}

	if ttl != nil {
		if *ttl <= 0 {
			return nil, ErrInvalidTTL
		}
		expires := now.Add(*ttl)
		s.ExpiresAt = &expires
	}

	return s, nil
}

// IsExpired reports whether the link is past its expiry at now. The expiry
// instant itself is still valid.
func (s *SharedRecipe) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// Status returns the lifecycle state at now
func (s *SharedRecipe) Status(now time.Time) Status {
	if s.IsExpired(now) {
		return StatusExpired
	}
	return StatusActive
}

// CanBeRevokedBy reports whether userID is the original sharer
func (s *SharedRecipe) CanBeRevokedBy(userID string) bool {
	return s.SharedBy == userID
}

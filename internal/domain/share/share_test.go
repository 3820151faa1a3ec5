package share_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/alchemorsel/planner/internal/domain/share"
	"github.com/alchemorsel/planner/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var issuedAt = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	t.Run("WithTTL_SetsExpiry", func(t *testing.T) {
		s, err := share.New("recipe-1", "user-1", "tok", issuedAt, testutils.DurationPtr(time.Hour))

		require.NoError(t, err)
		require.NotNil(t, s.ExpiresAt)
		assert.Equal(t, issuedAt.Add(time.Hour), *s.ExpiresAt)
		assert.Equal(t, "tok", s.ShareID)
		assert.Empty(t, s.ID, "row ids are issued by storage")
	})

	t.Run("WithoutTTL_NeverExpires", func(t *testing.T) {
		s, err := share.New("recipe-1", "user-1", "tok", issuedAt, nil)

		require.NoError(t, err)
		assert.Nil(t, s.ExpiresAt)
		assert.False(t, s.IsExpired(issuedAt.AddDate(100, 0, 0)))
	})

	t.Run("InvalidInput", func(t *testing.T) {
		_, err := share.New("", "user-1", "tok", issuedAt, nil)
		assert.ErrorIs(t, err, share.ErrRecipeRequired)

		_, err = share.New("recipe-1", "", "tok", issuedAt, nil)
		assert.ErrorIs(t, err, share.ErrUserRequired)

		_, err = share.New("recipe-1", "user-1", "", issuedAt, nil)
		assert.ErrorIs(t, err, share.ErrTokenRequired)

		_, err = share.New("recipe-1", "user-1", "tok", issuedAt, testutils.DurationPtr(0))
		assert.ErrorIs(t, err, share.ErrInvalidTTL)
	})
}

func TestExpiryBoundary(t *testing.T) {
	s, err := share.New("recipe-1", "user-1", "tok", issuedAt, testutils.DurationPtr(24*time.Hour))
	require.NoError(t, err)
	expiresAt := *s.ExpiresAt

	assert.False(t, s.IsExpired(expiresAt.Add(-time.Second)))
	assert.False(t, s.IsExpired(expiresAt))
	assert.True(t, s.IsExpired(expiresAt.Add(time.Second)))

	assert.Equal(t, share.StatusActive, s.Status(expiresAt.Add(-time.Second)))
	assert.Equal(t, share.StatusExpired, s.Status(expiresAt.Add(time.Second)))
}

func TestCanBeRevokedBy(t *testing.T) {
	s := testutils.NewShareFactory().Share("recipe-1", "owner", issuedAt, nil)

	assert.True(t, s.CanBeRevokedBy("owner"))
	assert.False(t, s.CanBeRevokedBy("someone-else"))
}

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]struct{}, 1000)

	for i := 0; i < 1000; i++ {
		token, err := share.GenerateToken()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		assert.Len(t, raw, share.TokenBytes)

		_, dup := seen[token]
		require.False(t, dup, "token generated twice")
		seen[token] = struct{}{}
	}
}

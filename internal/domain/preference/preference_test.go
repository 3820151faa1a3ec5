package preference_test

import (
	"math"
	"testing"
	"time"

	"github.com/alchemorsel/planner/internal/domain/preference"
	"github.com/alchemorsel/planner/test/testutils"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// PreferenceTestSuite covers confidence merging
type PreferenceTestSuite struct {
	suite.Suite
	factory *testutils.PreferenceFactory
	key     preference.Key
	now     time.Time
}

func (suite *PreferenceTestSuite) SetupTest() {
	suite.factory = testutils.NewPreferenceFactory(7)
	suite.key = suite.factory.Key("user-1")
	suite.now = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
}

func (suite *PreferenceTestSuite) TestFromSignal() {
	suite.Run("Positive_CreatesActiveRow", func() {
		sig := suite.factory.Signal(suite.key, 0.2, preference.PolarityPositive)

		p, err := preference.FromSignal(sig, suite.now)

		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), 0.2, p.Confidence)
		assert.Equal(suite.T(), sig.Source, p.Source)
		assert.True(suite.T(), p.IsActive)
		assert.Equal(suite.T(), suite.now, p.CreatedAt)
		assert.Equal(suite.T(), int64(0), p.Version)

		events := p.Events()
		require.Len(suite.T(), events, 1)
		merged, ok := events[0].(preference.PreferenceMergedEvent)
		require.True(suite.T(), ok)
		assert.True(suite.T(), merged.Created)
	})

	suite.Run("Negative_CreatesNothing", func() {
		sig := suite.factory.Signal(suite.key, 0.5, preference.PolarityNegative)

		p, err := preference.FromSignal(sig, suite.now)

		assert.Nil(suite.T(), p)
		assert.ErrorIs(suite.T(), err, preference.ErrNothingToWeaken)
	})
}

func (suite *PreferenceTestSuite) TestMerge() {
	suite.Run("Positive_ApproachesOne", func() {
		p := suite.factory.Row(suite.key, 0.5)
		created := p.CreatedAt
		later := suite.now.Add(time.Hour)

		err := p.Merge(suite.factory.Signal(suite.key, 0.5, preference.PolarityPositive), later)

		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), 0.75, p.Confidence)
		assert.Equal(suite.T(), later, p.UpdatedAt)
		assert.Equal(suite.T(), created, p.CreatedAt)
	})

	suite.Run("Negative_DecaysTowardZero", func() {
		p := suite.factory.Row(suite.key, 0.8)

		require.NoError(suite.T(), p.Merge(suite.factory.Signal(suite.key, 0.25, preference.PolarityNegative), suite.now))
		assert.InDelta(suite.T(), 0.6, p.Confidence, 1e-12)

		require.NoError(suite.T(), p.Merge(suite.factory.Signal(suite.key, 1, preference.PolarityNegative), suite.now))
		assert.Equal(suite.T(), 0.0, p.Confidence)
	})

	suite.Run("Inactive_IsRejected", func() {
		p := suite.factory.Row(suite.key, 0.5)
		p.IsActive = false

		err := p.Merge(suite.factory.Signal(suite.key, 0.5, preference.PolarityPositive), suite.now)

		assert.ErrorIs(suite.T(), err, preference.ErrInactive)
		assert.Equal(suite.T(), 0.5, p.Confidence)
	})

	suite.Run("ContextIsPartOfKey", func() {
		p := suite.factory.Row(suite.key, 0.5)
		other := suite.key
		other.Context = "weekends"

		err := p.Merge(suite.factory.Signal(other, 0.5, preference.PolarityPositive), suite.now)

		assert.ErrorIs(suite.T(), err, preference.ErrKeyMismatch)
	})
}

func (suite *PreferenceTestSuite) TestSignalValidation() {
	for _, w := range []float64{0, -0.1, 1.01, math.NaN()} {
		sig := suite.factory.Signal(suite.key, w, preference.PolarityPositive)
		assert.ErrorIs(suite.T(), sig.Validate(), preference.ErrInvalidWeight)
	}

	sig := suite.factory.Signal(suite.key, 0.5, "sideways")
	assert.ErrorIs(suite.T(), sig.Validate(), preference.ErrInvalidPolarity)

	sig = suite.factory.Signal(preference.Key{UserID: "u", Preference: "x"}, 0.5, preference.PolarityPositive)
	assert.ErrorIs(suite.T(), sig.Validate(), preference.ErrCategoryRequired)
}

func (suite *PreferenceTestSuite) TestDeactivateReactivate() {
	p := suite.factory.Row(suite.key, 0.4)

	require.NoError(suite.T(), p.Deactivate(suite.now))
	assert.False(suite.T(), p.IsActive)
	assert.ErrorIs(suite.T(), p.Deactivate(suite.now), preference.ErrInactive)

	require.NoError(suite.T(), p.Reactivate(suite.now))
	assert.True(suite.T(), p.IsActive)
	assert.Equal(suite.T(), 0.4, p.Confidence)
	assert.ErrorIs(suite.T(), p.Reactivate(suite.now), preference.ErrAlreadyActive)
}

func TestPreferenceTestSuite(t *testing.T) {
	suite.Run(t, new(PreferenceTestSuite))
}

func TestConfidenceBounds(t *testing.T) {
	faker := gofakeit.New(99)
	c := 0.0

	for i := 0; i < 2000; i++ {
		w := faker.Float64Range(0.001, 1)
		if faker.Bool() {
			c = preference.Reinforce(c, w)
		} else {
			c = preference.Weaken(c, w)
		}
		require.GreaterOrEqual(t, c, 0.0)
		require.LessOrEqual(t, c, 1.0)
	}
}

func TestReinforce_StrictlyIncreasingAndBelowOne(t *testing.T) {
	for _, w := range []float64{0.05, 0.2, 0.5, 0.9} {
		c := preference.Initial(w)
		for i := 0; i < 10; i++ {
			next := preference.Reinforce(c, w)
			require.Greater(t, next, c, "weight %g step %d", w, i)
			c = next
		}

		for i := 0; i < 10000; i++ {
			next := preference.Reinforce(c, w)
			require.GreaterOrEqual(t, next, c)
			require.Less(t, next, 1.0)
			c = next
		}
	}
}

func TestReinforce_FullWeight(t *testing.T) {
	assert.Equal(t, 1.0, preference.Reinforce(0.3, 1))
	assert.Equal(t, 1.0, preference.Reinforce(1, 0.5), "never decreases")
	assert.Equal(t, 1.0, preference.Initial(1))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, preference.Clamp(-2))
	assert.Equal(t, 1.0, preference.Clamp(3))
	assert.Equal(t, 0.0, preference.Clamp(math.NaN()))
	assert.Equal(t, 0.25, preference.Clamp(0.25))
}

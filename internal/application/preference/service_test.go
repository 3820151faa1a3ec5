package preference_test

import (
	"context"
	"sync"
	"testing"
	"time"

	apppreference "github.com/alchemorsel/planner/internal/application/preference"
	"github.com/alchemorsel/planner/internal/domain/preference"
	"github.com/alchemorsel/planner/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/planner/internal/ports/inbound"
	"github.com/alchemorsel/planner/internal/ports/outbound"
	"github.com/alchemorsel/planner/pkg/errors"
	"github.com/alchemorsel/planner/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// PreferenceServiceTestSuite exercises merging against the in-memory store
type PreferenceServiceTestSuite struct {
	suite.Suite
	store     *memory.Store
	clock     *testutils.FakeClock
	publisher *testutils.RecordingPublisher
	service   *apppreference.PreferenceService
}

func (suite *PreferenceServiceTestSuite) SetupTest() {
	suite.store = memory.NewStore()
	suite.clock = testutils.NewFakeClock(time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))
	suite.publisher = &testutils.RecordingPublisher{}
	suite.service = apppreference.NewPreferenceService(
		suite.store, suite.publisher, nil,
		apppreference.Config{StorageTimeout: time.Second, Clock: suite.clock.Clock()},
		zap.NewNop(),
	)
}

func signal(weight float64, polarity preference.Polarity) inbound.MergePreferenceCommand {
	return inbound.MergePreferenceCommand{
		UserID:     "user-1",
		Category:   "cuisine",
		Preference: "thai",
		Weight:     weight,
		Polarity:   polarity,
		Source:     "behavior",
	}
}

func (suite *PreferenceServiceTestSuite) merge(cmd inbound.MergePreferenceCommand) *inbound.MergeResult {
	res, err := suite.service.Merge(context.Background(), cmd)
	require.NoError(suite.T(), err)
	return res
}

func (suite *PreferenceServiceTestSuite) TestCreateThenReinforce() {
	created := suite.merge(signal(0.2, preference.PolarityPositive))
	require.True(suite.T(), created.Created)
	assert.Equal(suite.T(), 0.2, created.Preference.Confidence)
	assert.Equal(suite.T(), "behavior", created.Preference.Source)
	assert.Equal(suite.T(), int64(1), created.Preference.Version)
	createdAt := created.Preference.CreatedAt

	suite.clock.Advance(time.Hour)
	updated := suite.merge(signal(0.5, preference.PolarityPositive))

	assert.False(suite.T(), updated.Created)
	assert.Equal(suite.T(), created.Preference.ID, updated.Preference.ID)
	assert.Equal(suite.T(), 0.2, updated.Previous)
	assert.InDelta(suite.T(), 0.6, updated.Preference.Confidence, 1e-12)
	assert.Equal(suite.T(), createdAt, updated.Preference.CreatedAt)
	assert.Equal(suite.T(), suite.clock.Now(), updated.Preference.UpdatedAt)
	assert.Equal(suite.T(), int64(2), updated.Preference.Version)
	assert.Equal(suite.T(), []string{"preference.merged", "preference.merged"}, suite.publisher.Events())
}

func (suite *PreferenceServiceTestSuite) TestRepeatedSignalsConverge() {
	previous := 0.0
	for i := 0; i < 40; i++ {
		res := suite.merge(signal(0.3, preference.PolarityPositive))
		c := res.Preference.Confidence
		if i < 20 {
			assert.Greater(suite.T(), c, previous)
		}
		assert.Less(suite.T(), c, 1.0)
		previous = c
	}
}

func (suite *PreferenceServiceTestSuite) TestNegativeSignal() {
	suite.Run("WithoutActiveRow_CreatesNothing", func() {
		res := suite.merge(signal(0.5, preference.PolarityNegative))

		assert.Nil(suite.T(), res.Preference)
		assert.False(suite.T(), res.Applied)
		rows, err := suite.service.ListActive(context.Background(), "user-1", "")
		require.NoError(suite.T(), err)
		assert.Empty(suite.T(), rows)
	})

	suite.Run("WithActiveRow_Decays", func() {
		suite.merge(signal(0.8, preference.PolarityPositive))

		res := suite.merge(signal(0.5, preference.PolarityNegative))

		assert.InDelta(suite.T(), 0.4, res.Preference.Confidence, 1e-12)
	})
}

func (suite *PreferenceServiceTestSuite) TestContextSeparatesRows() {
	plain := suite.merge(signal(0.5, preference.PolarityPositive))
	withContext := signal(0.5, preference.PolarityPositive)
	withContext.Context = "weekends"

	other := suite.merge(withContext)

	assert.True(suite.T(), other.Created)
	assert.NotEqual(suite.T(), plain.Preference.ID, other.Preference.ID)
}

func (suite *PreferenceServiceTestSuite) TestInactiveRowsAreIgnored() {
	first := suite.merge(signal(0.9, preference.PolarityPositive))
	_, err := suite.service.Deactivate(context.Background(), first.Preference.ID, "user-1")
	require.NoError(suite.T(), err)

	second := suite.merge(signal(0.1, preference.PolarityPositive))

	assert.True(suite.T(), second.Created)
	assert.NotEqual(suite.T(), first.Preference.ID, second.Preference.ID)
	assert.Equal(suite.T(), 0.1, second.Preference.Confidence)

	stored, err := suite.store.GetUserPreferenceByID(context.Background(), first.Preference.ID)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), stored.IsActive)
	assert.Equal(suite.T(), 0.9, stored.Confidence)

	_, err = suite.service.Reactivate(context.Background(), first.Preference.ID, "user-1")
	assert.True(suite.T(), errors.Is(err, errors.CodeConflict))
}

func (suite *PreferenceServiceTestSuite) TestReactivate() {
	first := suite.merge(signal(0.7, preference.PolarityPositive))
	_, err := suite.service.Deactivate(context.Background(), first.Preference.ID, "user-1")
	require.NoError(suite.T(), err)

	_, err = suite.service.Reactivate(context.Background(), first.Preference.ID, "someone-else")
	assert.True(suite.T(), errors.Is(err, errors.CodeNotOwner))

	p, err := suite.service.Reactivate(context.Background(), first.Preference.ID, "user-1")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), p.IsActive)
	assert.Equal(suite.T(), 0.7, p.Confidence)

	res := suite.merge(signal(0.5, preference.PolarityPositive))
	assert.Equal(suite.T(), first.Preference.ID, res.Preference.ID)
}

func (suite *PreferenceServiceTestSuite) TestListActive() {
	suite.merge(signal(0.2, preference.PolarityPositive))
	strong := signal(0.9, preference.PolarityPositive)
	strong.Preference = "italian"
	suite.merge(strong)
	other := signal(0.5, preference.PolarityPositive)
	other.Category = "diet"
	suite.merge(other)

	all, err := suite.service.ListActive(context.Background(), "user-1", "")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), all, 3)
	assert.Equal(suite.T(), "italian", all[0].Preference)

	cuisine, err := suite.service.ListActive(context.Background(), "user-1", "cuisine")
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), cuisine, 2)
}

func (suite *PreferenceServiceTestSuite) TestValidation() {
	for _, cmd := range []inbound.MergePreferenceCommand{
		signal(0, preference.PolarityPositive),
		signal(1.5, preference.PolarityPositive),
		signal(0.5, "maybe"),
		{Category: "cuisine", Preference: "thai", Weight: 0.5, Polarity: preference.PolarityPositive, Source: "x"},
		func() inbound.MergePreferenceCommand {
			c := signal(0.5, preference.PolarityPositive)
			c.Preference = "tab\there"
			return c
		}(),
	} {
		_, err := suite.service.Merge(context.Background(), cmd)
		assert.True(suite.T(), errors.Is(err, errors.CodeInvalidArgument), "%+v", cmd)
	}
}

func TestPreferenceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PreferenceServiceTestSuite))
}

func TestMerge_VersionConflict(t *testing.T) {
	store := &testutils.MockPreferenceStore{}
	existing := testutils.NewPreferenceFactory(5).Row(preference.Key{UserID: "user-1", Category: "cuisine", Preference: "thai"}, 0.5)
	store.On("GetUserPreference", mock.Anything, existing.Key()).Return(existing, nil)
	store.On("UpsertUserPreference", mock.Anything, existing, int64(1)).Return(outbound.ErrVersionConflict)

	service := apppreference.NewPreferenceService(store, nil, nil, apppreference.Config{}, zap.NewNop())

	_, err := service.Merge(context.Background(), signal(0.5, preference.PolarityPositive))

	assert.True(t, errors.Is(err, errors.CodeConflict))
	store.AssertExpectations(t)
}

func TestMerge_ConcurrentWritersNeverLoseUpdates(t *testing.T) {
	store := memory.NewStore()
	service := apppreference.NewPreferenceService(store, nil, nil, apppreference.Config{}, zap.NewNop())
	_, err := service.Merge(context.Background(), signal(0.1, preference.PolarityPositive))
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		applied   int
		conflicts int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Merge(context.Background(), signal(0.1, preference.PolarityPositive))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				applied++
			} else if errors.Is(err, errors.CodeConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, applied+conflicts)
	rows, err := store.ListUserPreferences(context.Background(), outbound.PreferenceFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1+applied), rows[0].Version)
}

// Package preference provides the application layer for preference scoring
package preference

import (
	"context"
	stderrors "errors"
	"sort"
	"time"

	"github.com/alchemorsel/planner/internal/application/common"
	"github.com/alchemorsel/planner/internal/domain/preference"
	"github.com/alchemorsel/planner/internal/domain/shared"
	"github.com/alchemorsel/planner/internal/ports/inbound"
	"github.com/alchemorsel/planner/internal/ports/outbound"
	"github.com/alchemorsel/planner/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Config holds the collaborators of PreferenceService that tests replace
type Config struct {
	StorageTimeout time.Duration
	Clock          shared.Clock
}

// PreferenceService implements the preference use cases
type PreferenceService struct {
	store     outbound.PreferenceStore
	events    outbound.EventPublisher
	validator *common.Validator
	inst      common.Instrumentation
	timeout   time.Duration
	clock     shared.Clock
	logger    *zap.Logger
}

// NewPreferenceService creates a new preference service
func NewPreferenceService(
	store outbound.PreferenceStore,
	events outbound.EventPublisher,
	metrics outbound.EngineMetrics,
	cfg Config,
	logger *zap.Logger,
) *PreferenceService {
	if cfg.Clock == nil {
		cfg.Clock = shared.SystemClock
	}
	return &PreferenceService{
		store:     store,
		events:    events,
		validator: common.NewValidator(),
		inst:      common.NewInstrumentation("planner/preference", metrics),
		timeout:   cfg.StorageTimeout,
		clock:     cfg.Clock,
		logger:    logger.Named("preference-service"),
	}
}

var _ inbound.PreferenceService = (*PreferenceService)(nil)

// Merge folds one signal into the user's preferences. The write carries the
// version that was read, so a concurrent merge of the same key surfaces as
// CONFLICT instead of a lost update.
func (s *PreferenceService) Merge(ctx context.Context, cmd inbound.MergePreferenceCommand) (_ *inbound.MergeResult, err error) {
	ctx, finish := s.inst.Start(ctx, "preference.merge",
		attribute.String("user_id", cmd.UserID),
		attribute.String("category", cmd.Category),
		attribute.String("polarity", string(cmd.Polarity)),
	)
	defer func() { finish(err) }()

	if verr := s.validator.Struct(cmd); verr != nil {
		return nil, verr
	}

	sig := preference.Signal{
		Key: preference.Key{
			UserID:     cmd.UserID,
			Category:   cmd.Category,
			Preference: cmd.Preference,
			Context:    cmd.Context,
		},
		Weight:   cmd.Weight,
		Polarity: cmd.Polarity,
		Source:   cmd.Source,
	}
	if serr := sig.Validate(); serr != nil {
		return nil, errors.NewInvalidArgumentError("signal", serr.Error()).WithCause(serr)
	}

	var existing *preference.Preference
	err = common.CallStorage(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		existing, err = s.store.GetUserPreference(ctx, sig.Key)
		return err
	})
	if err != nil && !stderrors.Is(err, outbound.ErrNotFound) {
		return nil, common.StorageError("load preference", err)
	}

	now := s.clock()
	result := &inbound.MergeResult{}

	if existing == nil || stderrors.Is(err, outbound.ErrNotFound) {
		p, ferr := preference.FromSignal(sig, now)
		if stderrors.Is(ferr, preference.ErrNothingToWeaken) {
			s.logger.Debug("Negative signal without active preference ignored",
				zap.String("user_id", cmd.UserID),
				zap.String("category", cmd.Category),
			)
			return result, nil
		}
		if ferr != nil {
			return nil, errors.NewInvalidArgumentError("signal", ferr.Error()).WithCause(ferr)
		}
		if err := s.write(ctx, p, 0); err != nil {
			return nil, err
		}
		result.Preference = p
		result.Created = true
		result.Applied = true
	} else {
		expected := existing.Version
		result.Previous = existing.Confidence
		if merr := existing.Merge(sig, now); merr != nil {
			return nil, errors.NewDataIntegrityError("Stored preference cannot take the signal", merr).
				WithMetadata("preference_id", existing.ID)
		}
		if err := s.write(ctx, existing, expected); err != nil {
			return nil, err
		}
		result.Preference = existing
		result.Applied = true
	}

	s.inst.Metrics().ObserveConfidence(result.Preference.Category, result.Preference.Confidence)
	s.publish(ctx, result.Preference)

	s.logger.Info("Preference merged",
		zap.String("preference_id", result.Preference.ID),
		zap.String("user_id", cmd.UserID),
		zap.String("category", cmd.Category),
		zap.String("polarity", string(cmd.Polarity)),
		zap.Float64("previous", result.Previous),
		zap.Float64("confidence", result.Preference.Confidence),
		zap.Bool("created", result.Created),
	)

	return result, nil
}

// Deactivate soft-deletes a preference owned by userID
func (s *PreferenceService) Deactivate(ctx context.Context, preferenceID, userID string) (_ *preference.Preference, err error) {
	ctx, finish := s.inst.Start(ctx, "preference.deactivate", attribute.String("user_id", userID))
	defer func() { finish(err) }()

	p, err := s.owned(ctx, preferenceID, userID)
	if err != nil {
		return nil, err
	}

	expected := p.Version
	if derr := p.Deactivate(s.clock()); derr != nil {
		return nil, errors.NewConflictError("Preference is already inactive", derr)
	}
	if err := s.write(ctx, p, expected); err != nil {
		return nil, err
	}
	s.publish(ctx, p)

	s.logger.Info("Preference deactivated",
		zap.String("preference_id", p.ID),
		zap.String("user_id", userID),
	)
	return p, nil
}

// Reactivate restores a soft-deleted preference. It conflicts when another
// active row already holds the same key.
func (s *PreferenceService) Reactivate(ctx context.Context, preferenceID, userID string) (_ *preference.Preference, err error) {
	ctx, finish := s.inst.Start(ctx, "preference.reactivate", attribute.String("user_id", userID))
	defer func() { finish(err) }()

	p, err := s.owned(ctx, preferenceID, userID)
	if err != nil {
		return nil, err
	}

	var active *preference.Preference
	err = common.CallStorage(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		active, err = s.store.GetUserPreference(ctx, p.Key())
		return err
	})
	switch {
	case err == nil && active.ID != p.ID:
		return nil, errors.NewConflictError("Another active preference holds the same key", nil).
			WithMetadata("preference_id", active.ID)
	case err != nil && !stderrors.Is(err, outbound.ErrNotFound):
		return nil, common.StorageError("check active preference", err)
	}

	expected := p.Version
	if rerr := p.Reactivate(s.clock()); rerr != nil {
		return nil, errors.NewConflictError("Preference is already active", rerr)
	}
	if err := s.write(ctx, p, expected); err != nil {
		return nil, err
	}
	s.publish(ctx, p)

	s.logger.Info("Preference reactivated",
		zap.String("preference_id", p.ID),
		zap.String("user_id", userID),
	)
	return p, nil
}

// ListActive returns the user's active preferences, strongest first. An
// empty category lists every category.
func (s *PreferenceService) ListActive(ctx context.Context, userID, category string) (_ []*preference.Preference, err error) {
	ctx, finish := s.inst.Start(ctx, "preference.list", attribute.String("user_id", userID))
	defer func() { finish(err) }()

	if userID == "" {
		return nil, errors.NewInvalidArgumentError("user_id", "user id is required")
	}

	var rows []*preference.Preference
	err = common.CallStorage(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		rows, err = s.store.ListUserPreferences(ctx, outbound.PreferenceFilter{
			UserID:     userID,
			Category:   category,
			ActiveOnly: true,
		})
		return err
	})
	if err != nil {
		return nil, common.StorageError("list preferences", err)
	}

	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].Confidence != rows[b].Confidence {
			return rows[a].Confidence > rows[b].Confidence
		}
		return rows[a].UpdatedAt.After(rows[b].UpdatedAt)
	})
	return rows, nil
}

func (s *PreferenceService) owned(ctx context.Context, preferenceID, userID string) (*preference.Preference, error) {
	if preferenceID == "" {
		return nil, errors.NewInvalidArgumentError("preference_id", "preference id is required")
	}
	if userID == "" {
		return nil, errors.NewInvalidArgumentError("user_id", "user id is required")
	}

	var p *preference.Preference
	err := common.CallStorage(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		p, err = s.store.GetUserPreferenceByID(ctx, preferenceID)
		return err
	})
	if err != nil {
		return nil, common.LookupError("load preference", "preference", preferenceID, err)
	}
	if p.UserID != userID {
		return nil, errors.NewNotOwnerError("change this preference")
	}
	return p, nil
}

// write stores p in one storage call. A stale version becomes CONFLICT.
func (s *PreferenceService) write(ctx context.Context, p *preference.Preference, expectedVersion int64) error {
	err := common.CallStorage(ctx, s.timeout, func(ctx context.Context) error {
		return s.store.UpsertUserPreference(ctx, p, expectedVersion)
	})
	if err == nil {
		return nil
	}
	if stderrors.Is(err, outbound.ErrVersionConflict) {
		s.logger.Warn("Concurrent preference write",
			zap.String("preference_id", p.ID),
			zap.String("key", p.Key().String()),
			zap.Int64("expected_version", expectedVersion),
		)
		return errors.NewConflictError("Preference was changed concurrently; reload and retry", err).
			WithMetadata("preference_id", p.ID)
	}
	if stderrors.Is(err, outbound.ErrUniqueViolation) {
		return errors.NewConflictError("An active preference with the same key was created concurrently", err)
	}
	return common.StorageError("store preference", err)
}

func (s *PreferenceService) publish(ctx context.Context, p *preference.Preference) {
	events := p.Events()
	if s.events == nil || len(events) == 0 {
		return
	}
	for i, event := range events {
		// rows created from a signal get their id from storage
		if merged, ok := event.(preference.PreferenceMergedEvent); ok && merged.PreferenceID == "" {
			merged.PreferenceID = p.ID
			events[i] = merged
		}
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish events",
			zap.Int("count", len(events)),
			zap.Error(err),
		)
	}
}

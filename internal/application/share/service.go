// Package share provides the application layer for share links
package share

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/alchemorsel/planner/internal/application/common"
	"github.com/alchemorsel/planner/internal/domain/share"
	"github.com/alchemorsel/planner/internal/domain/shared"
	"github.com/alchemorsel/planner/internal/ports/inbound"
	"github.com/alchemorsel/planner/internal/ports/outbound"
	"github.com/alchemorsel/planner/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Config holds the collaborators of ShareService that tests replace
type Config struct {
	StorageTimeout time.Duration
	Clock          shared.Clock
	Tokens         share.TokenGenerator
}

// ShareService implements the share-link use cases
type ShareService struct {
	shares    outbound.ShareStore
	recipes   common.RecipeLoader
	events    outbound.EventPublisher
	validator *common.Validator
	inst      common.Instrumentation
	timeout   time.Duration
	clock     shared.Clock
	tokens    share.TokenGenerator
	logger    *zap.Logger
}

// NewShareService creates a new share service
func NewShareService(
	shares outbound.ShareStore,
	recipes outbound.RecipeStore,
	events outbound.EventPublisher,
	metrics outbound.EngineMetrics,
	cfg Config,
	logger *zap.Logger,
) *ShareService {
	if cfg.Clock == nil {
		cfg.Clock = shared.SystemClock
	}
	if cfg.Tokens == nil {
		cfg.Tokens = share.GenerateToken
	}
	return &ShareService{
		shares:    shares,
		recipes:   common.NewRecipeLoader(recipes, cfg.StorageTimeout),
		events:    events,
		validator: common.NewValidator(),
		inst:      common.NewInstrumentation("planner/share", metrics),
		timeout:   cfg.StorageTimeout,
		clock:     cfg.Clock,
		tokens:    cfg.Tokens,
		logger:    logger.Named("share-service"),
	}
}

var _ inbound.ShareService = (*ShareService)(nil)

// Issue creates a new share link. Existing links for the recipe are left
// untouched.
func (s *ShareService) Issue(ctx context.Context, cmd inbound.IssueShareCommand) (_ *share.SharedRecipe, err error) {
	ctx, finish := s.inst.Start(ctx, "share.issue",
		attribute.String("recipe_id", cmd.RecipeID),
		attribute.String("user_id", cmd.UserID),
	)
	defer func() { finish(err) }()

	if verr := s.validator.Struct(cmd); verr != nil {
		return nil, verr
	}
	if cmd.TTL != nil && *cmd.TTL <= 0 {
		return nil, errors.NewInvalidArgumentError("ttl", "ttl must be positive when given")
	}

	g, err := s.recipes.Load(ctx, cmd.RecipeID)
	if err != nil {
		return nil, err
	}
	if !g.IsComplete() {
		return nil, errors.NewIncompleteRecipeError(cmd.RecipeID, "share")
	}

	token, err := s.tokens()
	if err != nil {
		return nil, errors.NewInternalError("Failed to generate share token").WithCause(err)
	}

	now := s.clock()
	row, err := share.New(cmd.RecipeID, cmd.UserID, token, now, cmd.TTL)
	if err != nil {
		return nil, errors.NewInvalidArgumentError("share", err.Error()).WithCause(err)
	}

	err = common.CallStorage(ctx, s.timeout, func(ctx context.Context) error {
		return s.shares.InsertSharedRecipe(ctx, row)
	})
	if err != nil {
		if stderrors.Is(err, outbound.ErrUniqueViolation) {
			s.logger.Error("Share token collision",
				zap.String("recipe_id", cmd.RecipeID),
			)
			return nil, errors.NewTokenCollisionError(err)
		}
		return nil, common.StorageError("insert share link", err)
	}

	s.publish(ctx, share.ShareIssuedEvent{
		ShareID:   row.ShareID,
		RecipeID:  row.RecipeID,
		SharedBy:  row.SharedBy,
		ExpiresAt: row.ExpiresAt,
		IssuedAt:  now,
	})

	s.logger.Info("Share link issued",
		zap.String("recipe_id", row.RecipeID),
		zap.String("user_id", row.SharedBy),
		zap.Bool("expires", row.ExpiresAt != nil),
	)

	return row, nil
}

// Resolve returns the share and its recipe. An expired link is reported as
// EXPIRED, distinct from NOT_FOUND.
func (s *ShareService) Resolve(ctx context.Context, shareID string) (_ *inbound.SharedRecipeView, err error) {
	ctx, finish := s.inst.Start(ctx, "share.resolve")
	defer func() { finish(err) }()

	if shareID == "" {
		return nil, errors.NewInvalidArgumentError("share_id", "share id is required")
	}

	row, err := s.load(ctx, shareID)
	if err != nil {
		return nil, err
	}

	if row.IsExpired(s.clock()) {
		return nil, errors.NewExpiredError(shareID)
	}

	g, err := s.recipes.Load(ctx, row.RecipeID)
	if err != nil {
		return nil, err
	}

	return &inbound.SharedRecipeView{Share: row, Recipe: g}, nil
}

// Revoke hard-deletes the link. Only the original sharer may revoke it,
// expired or not.
func (s *ShareService) Revoke(ctx context.Context, shareID, requestingUserID string) (err error) {
	ctx, finish := s.inst.Start(ctx, "share.revoke", attribute.String("user_id", requestingUserID))
	defer func() { finish(err) }()

	if shareID == "" {
		return errors.NewInvalidArgumentError("share_id", "share id is required")
	}
	if requestingUserID == "" {
		return errors.NewInvalidArgumentError("user_id", "requesting user id is required")
	}

	row, err := s.load(ctx, shareID)
	if err != nil {
		return err
	}
	if !row.CanBeRevokedBy(requestingUserID) {
		s.logger.Warn("Revoke attempted by non-owner",
			zap.String("recipe_id", row.RecipeID),
			zap.String("user_id", requestingUserID),
		)
		return errors.NewNotOwnerError("revoke this share link")
	}

	err = common.CallStorage(ctx, s.timeout, func(ctx context.Context) error {
		return s.shares.DeleteSharedRecipe(ctx, shareID)
	})
	if err != nil {
		return common.LookupError("delete share link", "share", shareID, err)
	}

	s.publish(ctx, share.ShareRevokedEvent{
		ShareID:   shareID,
		RecipeID:  row.RecipeID,
		RevokedBy: requestingUserID,
		RevokedAt: s.clock(),
	})

	s.logger.Info("Share link revoked",
		zap.String("recipe_id", row.RecipeID),
		zap.String("user_id", requestingUserID),
	)

	return nil
}

// ListForRecipe returns every link of a recipe with its current state. Only
// the recipe owner may list them.
func (s *ShareService) ListForRecipe(ctx context.Context, recipeID, requestingUserID string) (_ []inbound.ShareLinkDTO, err error) {
	ctx, finish := s.inst.Start(ctx, "share.list", attribute.String("recipe_id", recipeID))
	defer func() { finish(err) }()

	if recipeID == "" {
		return nil, errors.NewInvalidArgumentError("recipe_id", "recipe id is required")
	}

	g, err := s.recipes.Load(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if g.CreatedBy() != requestingUserID {
		return nil, errors.NewNotOwnerError("list share links of this recipe")
	}

	var rows []*share.SharedRecipe
	err = common.CallStorage(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		rows, err = s.shares.ListSharedRecipesByRecipe(ctx, recipeID)
		return err
	})
	if err != nil {
		return nil, common.StorageError("list share links", err)
	}

	now := s.clock()
	out := make([]inbound.ShareLinkDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, inbound.ShareLinkDTO{Share: row, Status: row.Status(now)})
	}
	return out, nil
}

func (s *ShareService) load(ctx context.Context, shareID string) (*share.SharedRecipe, error) {
	var row *share.SharedRecipe
	err := common.CallStorage(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		row, err = s.shares.GetSharedRecipeByToken(ctx, shareID)
		return err
	})
	if err != nil {
		return nil, common.LookupError("load share link", "share", shareID, err)
	}
	return row, nil
}

func (s *ShareService) publish(ctx context.Context, event shared.DomainEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event",
			zap.String("event", event.EventName()),
			zap.Error(err),
		)
	}
}

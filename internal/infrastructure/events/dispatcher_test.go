package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alchemorsel/planner/internal/domain/share"
	"github.com/alchemorsel/planner/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDispatcher_Publish(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	var got []string
	d.Register("share.issued", func(ctx context.Context, e shared.DomainEvent) error {
		got = append(got, "first:"+e.EventName())
		return nil
	})
	d.Register("share.issued", func(ctx context.Context, e shared.DomainEvent) error {
		got = append(got, "second:"+e.EventName())
		return nil
	})

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err := d.Publish(context.Background(),
		share.ShareIssuedEvent{ShareID: "tok", IssuedAt: now},
		share.ShareRevokedEvent{ShareID: "tok", RevokedAt: now},
	)

	require.NoError(t, err)
	assert.Equal(t, []string{"first:share.issued", "second:share.issued"}, got)
}

func TestDispatcher_HandlerErrorsAreJoined(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	boom := errors.New("boom")
	calls := 0
	d.Register("share.revoked", func(context.Context, shared.DomainEvent) error { calls++; return boom })
	d.Register("share.revoked", func(context.Context, shared.DomainEvent) error { calls++; return nil })

	err := d.Publish(context.Background(), share.ShareRevokedEvent{ShareID: "tok"})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestLogHandler(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	d := NewDispatcher(zap.NewNop())
	d.Register("share.issued", LogHandler(zap.New(core)))

	require.NoError(t, d.Publish(context.Background(), share.ShareIssuedEvent{ShareID: "tok"}))

	entries := logs.FilterMessage("Domain event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "share.issued", entries[0].ContextMap()["event"])
}

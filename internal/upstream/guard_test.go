package upstream_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"custodia/internal/upstream"
	"custodia/internal/upstream/mocks"
	"custodia/pkg/platform/circuit"
	"custodia/pkg/platform/sentinel"
)

func TestGuardedContentStore(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("passes through while closed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		inner := mocks.NewMockContentStore(ctrl)
		inner.EXPECT().Put(gomock.Any(), []byte("bytes")).Return("content-1", nil)

		guarded := upstream.NewGuardedContentStore(inner, circuit.New("content"), logger)
		contentID, err := guarded.Put(ctx, []byte("bytes"))
		require.NoError(t, err)
		assert.Equal(t, "content-1", contentID)
	})

	t.Run("open breaker fails fast without calling the collaborator", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		inner := mocks.NewMockContentStore(ctrl)
		inner.EXPECT().Put(gomock.Any(), gomock.Any()).
			Return("", errors.New("connection refused")).Times(2)

		breaker := circuit.New("content", circuit.WithFailureThreshold(2))
		guarded := upstream.NewGuardedContentStore(inner, breaker, logger)

		_, err := guarded.Put(ctx, []byte("bytes"))
		require.Error(t, err)
		_, err = guarded.Put(ctx, []byte("bytes"))
		require.Error(t, err)
		require.True(t, breaker.IsOpen())

		// No further EXPECT: the inner store must not be reached.
		_, err = guarded.Put(ctx, []byte("bytes"))
		require.ErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("recovered collaborator closes the breaker via a trial call", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		inner := mocks.NewMockContentStore(ctrl)
		inner.EXPECT().Put(gomock.Any(), gomock.Any()).
			Return("", errors.New("connection refused")).Times(2)

		now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		breaker := circuit.New("content",
			circuit.WithFailureThreshold(2),
			circuit.WithCooldown(time.Minute),
			circuit.WithClock(func() time.Time { return now }),
		)
		guarded := upstream.NewGuardedContentStore(inner, breaker, logger)

		_, _ = guarded.Put(ctx, []byte("bytes"))
		_, _ = guarded.Put(ctx, []byte("bytes"))
		require.True(t, breaker.IsOpen())

		// The upstream recovers, but within the cooldown the guard never
		// reaches it.
		_, err := guarded.Put(ctx, []byte("bytes"))
		require.ErrorIs(t, err, sentinel.ErrUnavailable)

		// After the cooldown one trial call goes through and closes the
		// breaker; traffic flows again.
		inner.EXPECT().Put(gomock.Any(), gomock.Any()).Return("content-1", nil).Times(2)
		now = now.Add(2 * time.Minute)
		contentID, err := guarded.Put(ctx, []byte("bytes"))
		require.NoError(t, err)
		assert.Equal(t, "content-1", contentID)
		assert.False(t, breaker.IsOpen())

		_, err = guarded.Put(ctx, []byte("bytes"))
		require.NoError(t, err)
	})

	t.Run("success closes the breaker again", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		inner := mocks.NewMockContentStore(ctrl)
		inner.EXPECT().Put(gomock.Any(), gomock.Any()).Return("content-1", nil)

		breaker := circuit.New("content", circuit.WithFailureThreshold(1))
		guarded := upstream.NewGuardedContentStore(inner, breaker, logger)

		breaker.RecordFailure()
		require.True(t, breaker.IsOpen())
		breaker.Reset()

		_, err := guarded.Put(ctx, []byte("bytes"))
		require.NoError(t, err)
		assert.False(t, breaker.IsOpen())
	})
}

func TestGuardedAnchorLedger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	inner := mocks.NewMockAnchorLedger(ctrl)
	inner.EXPECT().Anchor(gomock.Any(), "hash").Return("", errors.New("timeout"))

	breaker := circuit.New("anchor", circuit.WithFailureThreshold(1))
	guarded := upstream.NewGuardedAnchorLedger(inner, breaker, logger)

	_, err := guarded.Anchor(ctx, "hash")
	require.Error(t, err)
	require.True(t, breaker.IsOpen())

	_, err = guarded.Anchor(ctx, "hash")
	require.ErrorIs(t, err, sentinel.ErrUnavailable)
}

package upstream

import (
	"context"
	"log/slog"

	"custodia/pkg/platform/circuit"
	"custodia/pkg/platform/sentinel"
)

// GuardedContentStore wraps a content store with a circuit breaker so a
// failing collaborator stops being called until it recovers. While the
// breaker is open, Put fails fast with ErrUnavailable except for the
// breaker's periodic trial calls.
type GuardedContentStore struct {
	inner   ContentStore
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuardedContentStore(inner ContentStore, breaker *circuit.Breaker, logger *slog.Logger) *GuardedContentStore {
	return &GuardedContentStore{inner: inner, breaker: breaker, logger: logger}
}

func (g *GuardedContentStore) Put(ctx context.Context, content []byte) (string, error) {
	if !g.breaker.Allow() {
		return "", sentinel.ErrUnavailable
	}
	contentID, err := g.inner.Put(ctx, content)
	if err != nil {
		g.recordFailure(ctx, err)
		return "", err
	}
	g.recordSuccess(ctx)
	return contentID, nil
}

func (g *GuardedContentStore) recordFailure(ctx context.Context, err error) {
	if _, change := g.breaker.RecordFailure(); change.Opened {
		g.logger.WarnContext(ctx, "circuit opened", "breaker", g.breaker.Name(), "error", err)
	}
}

func (g *GuardedContentStore) recordSuccess(ctx context.Context) {
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "circuit closed", "breaker", g.breaker.Name())
	}
}

// GuardedAnchorLedger wraps an anchor ledger with a circuit breaker. While
// the breaker is open, Anchor fails fast with ErrUnavailable except for the
// breaker's periodic trial calls.
type GuardedAnchorLedger struct {
	inner   AnchorLedger
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuardedAnchorLedger(inner AnchorLedger, breaker *circuit.Breaker, logger *slog.Logger) *GuardedAnchorLedger {
	return &GuardedAnchorLedger{inner: inner, breaker: breaker, logger: logger}
}

func (g *GuardedAnchorLedger) Anchor(ctx context.Context, contentHash string) (string, error) {
	if !g.breaker.Allow() {
		return "", sentinel.ErrUnavailable
	}
	anchorID, err := g.inner.Anchor(ctx, contentHash)
	if err != nil {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "circuit opened", "breaker", g.breaker.Name(), "error", err)
		}
		return "", err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "circuit closed", "breaker", g.breaker.Name())
	}
	return anchorID, nil
}

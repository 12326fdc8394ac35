package audit

import (
	"context"
	"time"

	id "custodia/pkg/domain"
)

// Publisher captures structured custody events. It is append-only and uses the
// store for persistence so tests can swap sinks easily. An optional secondary
// sink (Kafka) receives every event best-effort.
type Publisher struct {
	store Store
	sink  Sink
}

// Sink receives a copy of every event for external consumers. Failures are
// the sink's problem; the custody trail of record is the store.
type Sink interface {
	Publish(ctx context.Context, event Event)
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// WithSink attaches a secondary sink and returns the publisher for chaining.
func (p *Publisher) WithSink(sink Sink) *Publisher {
	p.sink = sink
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.sink != nil {
		p.sink.Publish(ctx, event)
	}
	return nil
}

func (p *Publisher) ListByActor(ctx context.Context, actor id.Address) ([]Event, error) {
	return p.store.ListByActor(ctx, actor)
}

func (p *Publisher) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	return p.store.ListRecent(ctx, limit)
}

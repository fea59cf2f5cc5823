package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/malbeclabs/airdrop/ledger/pkg/airdrop"
	"github.com/malbeclabs/airdrop/ledger/pkg/metrics"
)

const defaultBufferSize = 64

type BroadcasterConfig struct {
	Logger     *slog.Logger
	BufferSize int
}

func (cfg *BroadcasterConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.BufferSize < 0 {
		return errors.New("buffer size must not be negative")
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = defaultBufferSize
	}
	return nil
}

// Broadcaster fans audit events out to subscribers. Delivery is best effort:
// a subscriber whose buffer is full misses the event.
type Broadcaster struct {
	log *slog.Logger
	cfg BroadcasterConfig

	mu     sync.Mutex
	nextID int
	subs   map[int]chan airdrop.AuditEvent
}

func NewBroadcaster(cfg BroadcasterConfig) (*Broadcaster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Broadcaster{
		log:  cfg.Logger,
		cfg:  cfg,
		subs: make(map[int]chan airdrop.AuditEvent),
	}, nil
}

// Subscribe registers a listener. The channel is closed by Unsubscribe.
func (b *Broadcaster) Subscribe() (int, <-chan airdrop.AuditEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	ch := make(chan airdrop.AuditEvent, b.cfg.BufferSize)
	b.subs[id] = ch
	metrics.EventSubscribers.Inc()
	return id, ch
}

// Unsubscribe removes a listener. Unknown ids are ignored.
func (b *Broadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(ch)
	metrics.EventSubscribers.Dec()
}

// Subscribers returns the number of registered listeners.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broadcaster) Emit(_ context.Context, event airdrop.AuditEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			metrics.EventsDroppedTotal.Inc()
			b.log.Warn("events: subscriber buffer full, dropping event", "subscriber", id, "batch_id", event.BatchID.String())
		}
	}
}

// LogSink writes every event to a logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Emit(ctx context.Context, event airdrop.AuditEvent) {
	s.Logger.InfoContext(ctx, "events: airdrop batch",
		"scope", event.Scope,
		"batch_id", event.BatchID.String(),
		"recipient_count", event.RecipientCount,
		"total_amount", event.TotalAmount,
		"timestamp", event.Timestamp)
}

// Multi emits to every sink in order.
type Multi []airdrop.EventSink

func (m Multi) Emit(ctx context.Context, event airdrop.AuditEvent) {
	for _, s := range m {
		s.Emit(ctx, event)
	}
}

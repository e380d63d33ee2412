package activity

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/seantiz/wayfarer/internal/feed"
	"github.com/seantiz/wayfarer/internal/store"
)

// DefaultBufferSize is the number of records queued before new ones are
// dropped.
const DefaultBufferSize = 100

// Worker publishes events to the change feed as they arrive and persists
// them from a background goroutine.
type Worker struct {
	eventCh chan Event
	store   store.Store
	broker  *feed.Broker
	logger  *slog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	stopped bool
}

// Compile-time interface satisfaction check.
var _ Recorder = (*Worker)(nil)

// NewWorker creates a worker. broker may be nil to disable live publishing.
func NewWorker(s store.Store, broker *feed.Broker, bufferSize int, logger *slog.Logger) *Worker {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		eventCh: make(chan Event, bufferSize),
		store:   s,
		broker:  broker,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the persistence loop.
func (w *Worker) Start() {
	w.wg.Go(func() {
		for {
			select {
			case <-w.ctx.Done():
				w.logger.Info("draining activity before shutdown", "remaining_events", len(w.eventCh))
				for len(w.eventCh) > 0 {
					w.save(context.Background(), <-w.eventCh)
				}
				return
			case e := <-w.eventCh:
				w.save(w.ctx, e)
			}
		}
	})
}

func (w *Worker) save(ctx context.Context, e Event) {
	if err := w.store.InsertActivity(ctx, &e.Activity); err != nil {
		w.logger.Error("failed to save activity", "error", err, "event_type", e.Type, "entity_id", e.EntityID)
	}
}

// Record publishes e to the entity's change feed and queues it for storage.
// Events are dropped with a warning when the queue is full or the worker has
// shut down.
func (w *Worker) Record(e Event) {
	if w.broker != nil {
		if notice, err := json.Marshal(e.Activity); err == nil {
			w.broker.Publish(e.EntityID, notice)
		}
		if e.Final {
			w.broker.Close(e.EntityID)
		}
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		w.logger.Warn("activity worker stopped, dropping event", "event_type", e.Type)
		return
	}

	select {
	case w.eventCh <- e:
	default:
		w.logger.Warn("activity channel full, dropping event", "event_type", e.Type)
	}
}

// Shutdown stops accepting events, persists everything already queued and
// waits for the loop to exit.
func (w *Worker) Shutdown() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
}

package events

import (
	"context"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/nkiryanov/postboard/internal/logger"
	"github.com/nkiryanov/postboard/internal/models"
)

const (
	defaultCountWorkers   = 4   // Number of workers publishing events
	defaultQueueSize      = 256 // Events buffered before new ones are dropped
	defaultPublishTimeout = 5 * time.Second
	defaultPublishRetries = 2
	publishBackoff        = 100 * time.Millisecond
)

type DispatcherConfig struct {
	CountWorkers   int
	QueueSize      int
	PublishTimeout time.Duration
	PublishRetries uint64
}

// Dispatcher publishes events in background
// Request handlers never wait for the broker: Emit only puts event to the buffer
type Dispatcher struct {
	countWorkers   int
	publishTimeout time.Duration
	publishRetries uint64

	queue     chan models.Event
	publisher Publisher
	logger    logger.Logger
}

func NewDispatcher(cfg DispatcherConfig, publisher Publisher, l logger.Logger) *Dispatcher {
	if cfg.CountWorkers <= 0 {
		cfg.CountWorkers = defaultCountWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	if cfg.PublishRetries == 0 {
		cfg.PublishRetries = defaultPublishRetries
	}
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Dispatcher{
		countWorkers:   cfg.CountWorkers,
		publishTimeout: cfg.PublishTimeout,
		publishRetries: cfg.PublishRetries,
		queue:          make(chan models.Event, cfg.QueueSize),
		publisher:      publisher,
		logger:         l,
	}
}

// Emit queues event for publishing
// Returns false if the buffer is full and event dropped
func (d *Dispatcher) Emit(event models.Event) bool {
	select {
	case d.queue <- event:
		return true
	default:
		d.logger.Warn("Event queue is full, event dropped", "event_type", event.Type, "event_id", event.ID)
		return false
	}
}

// Run starts workers. Returned channel closed when all workers stopped
// Events left in the buffer on stop are published before workers exit
func (d *Dispatcher) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < d.countWorkers; i++ {
		wg.Add(1)
		go func() {
			d.worker(ctx)
			wg.Done()
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()
		d.logger.Debug("Event dispatcher stopped")
	}()

	return idleStopped
}

func (d *Dispatcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return

		case event := <-d.queue:
			d.publish(ctx, event)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.publish(context.Background(), event)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, event models.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.publishTimeout)
	defer cancel()

	backoff := retry.WithMaxRetries(d.publishRetries, retry.NewExponential(publishBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := d.publisher.Publish(ctx, event); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		d.logger.Error("Failed to publish event", "error", err, "event_type", event.Type, "event_id", event.ID)
		return
	}

	d.logger.Debug("Event published", "event_type", event.Type, "event_id", event.ID)
}

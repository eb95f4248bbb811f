package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gary-backend/auth-service/internal/core/domain"
	"github.com/gary-backend/auth-service/internal/core/ports"
	"github.com/gary-backend/auth-service/internal/pkg/metrics"
)

const (
	defaultWorkers  = 4
	channelBuffer   = 256
	deliverAttempts = 3
	deliverTimeout  = 5 * time.Second
)

// Dispatcher hands reset notifications to a fixed set of workers using
// consistent hashing on the user id, so notifications for one user are
// delivered in the order they were issued.
type Dispatcher struct {
	workers  []chan domain.ResetNotification
	notifier ports.ResetNotifier
	backoff  time.Duration
	log      zerolog.Logger
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, notifier ports.ResetNotifier, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan domain.ResetNotification, numWorkers),
		notifier: notifier,
		backoff:  100 * time.Millisecond,
		log:      log.With().Str("component", "reset_dispatcher").Logger(),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.ResetNotification, channelBuffer)
	}
	return d
}

// Run starts the workers and blocks until ctx is cancelled and every worker
// has returned.
func (d *Dispatcher) Run(ctx context.Context) error {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
	d.wg.Wait()
	return nil
}

// Enqueue routes n to the worker responsible for its user. It never blocks:
// when that worker's buffer is full the notification is rejected.
func (d *Dispatcher) Enqueue(n domain.ResetNotification) bool {
	idx := d.shardIndex(n.UserID)
	select {
	case d.workers[idx] <- n:
		metrics.ResetQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
		return true
	default:
		return false
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.ResetNotification) {
	defer d.wg.Done()
	depth := metrics.ResetQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-ch:
			depth.Dec()
			d.deliver(ctx, id, n)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, worker int, n domain.ResetNotification) {
	var err error
attempts:
	for attempt := 1; attempt <= deliverAttempts; attempt++ {
		deliverCtx, cancel := context.WithTimeout(ctx, deliverTimeout)
		err = d.notifier.Deliver(deliverCtx, n)
		cancel()
		if err == nil {
			metrics.ResetNotificationsTotal.WithLabelValues("delivered").Inc()
			d.log.Debug().Str("notification_id", n.ID).Str("user_id", n.UserID).Int("worker_id", worker).Msg("reset notification delivered")
			return
		}
		if attempt == deliverAttempts {
			break
		}

		select {
		case <-ctx.Done():
			break attempts
		case <-time.After(time.Duration(attempt) * d.backoff):
		}
	}

	metrics.ResetNotificationsTotal.WithLabelValues("failed").Inc()
	d.log.Error().Err(err).
		Str("notification_id", n.ID).
		Str("user_id", n.UserID).
		Int("worker_id", worker).
		Msg("reset notification delivery failed")
}

var _ ports.ResetDispatcher = (*Dispatcher)(nil)

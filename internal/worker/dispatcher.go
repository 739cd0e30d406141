package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/listing-bot/internal/domain"
)

// ErrStopped is returned when enqueuing into a stopped dispatcher.
var ErrStopped = errors.New("dispatcher stopped")

// HandlerFunc processes one inbound event.
type HandlerFunc func(ctx context.Context, in domain.Inbound) error

// Dispatcher fans inbound events out to a fixed number of lanes. Events of the
// same user always land on the same lane and run one at a time, in arrival order.
type Dispatcher struct {
	handler HandlerFunc
	logger  *zap.Logger
	lanes   []*lane

	mu      sync.RWMutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// lane is an unbounded mailbox drained by one goroutine, so handlers may enqueue without blocking.
type lane struct {
	mu     sync.Mutex
	items  []domain.Inbound
	notify chan struct{}
}

func newLane(capacity int) *lane {
	return &lane{
		items:  make([]domain.Inbound, 0, capacity),
		notify: make(chan struct{}, 1),
	}
}

func (l *lane) push(in domain.Inbound) {
	l.mu.Lock()
	l.items = append(l.items, in)
	l.mu.Unlock()
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

func (l *lane) drain() []domain.Inbound {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := l.items
	l.items = make([]domain.Inbound, 0, cap(items))
	return items
}

// NewDispatcher creates a dispatcher with the given number of lanes.
func NewDispatcher(handler HandlerFunc, lanes, buffer int, logger *zap.Logger) *Dispatcher {
	if lanes < 1 {
		lanes = 1
	}
	d := &Dispatcher{handler: handler, logger: logger, lanes: make([]*lane, lanes)}
	for i := range d.lanes {
		d.lanes[i] = newLane(buffer)
	}
	return d
}

// Start launches the lane goroutines. They exit when ctx is cancelled or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	for i, l := range d.lanes {
		d.wg.Add(1)
		go d.run(ctx, i, l)
	}
}

// Enqueue schedules the event on its user's lane.
func (d *Dispatcher) Enqueue(_ context.Context, in domain.Inbound) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}
	d.laneFor(in.LaneKey()).push(in)
	return nil
}

// Stop drains queued events and waits for the lanes to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, l := range d.lanes {
		close(l.notify)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) laneFor(key int64) *lane {
	return d.lanes[uint64(key)%uint64(len(d.lanes))]
}

func (d *Dispatcher) run(ctx context.Context, index int, l *lane) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-l.notify:
			for _, in := range l.drain() {
				d.process(ctx, index, in)
			}
			if !ok {
				return
			}
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, index int, in domain.Inbound) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("inbound handler panicked",
				zap.Int("lane", index),
				zap.Int64("user_id", in.UserID),
				zap.Any("panic", r))
		}
	}()

	if err := d.handler(ctx, in); err != nil {
		d.logger.Warn("inbound handler failed",
			zap.Int("lane", index),
			zap.Int64("user_id", in.UserID),
			zap.String("kind", string(in.Kind)),
			zap.Error(fmt.Errorf("handle %s: %w", in.Kind, err)))
	}
}

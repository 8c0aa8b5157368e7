package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
)

// Broker sentinel errors.
var (
	ErrBrokerClosed    = errors.New("broker is closed")
	ErrBufferFull      = errors.New("event buffer is full")
	ErrTooManyClients  = errors.New("too many connected clients")
	ErrBrokerNotActive = errors.New("broker is not started")
)

const (
	defaultEventBufferSize  = 256
	defaultClientBufferSize = 16
	defaultMaxClients       = 1000
	defaultShutdownTimeout  = 5 * time.Second
)

// subscriber is one live SSE connection watching a single task.
type subscriber struct {
	id     string
	taskID string
	events chan domain.ProgressEvent
}

// Broker fans progress events out to SSE subscribers. Subscriptions are
// scoped to one task: a subscriber only sees events whose TaskID matches.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]*subscriber

	publish chan domain.ProgressEvent

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started bool
	closed  bool

	eventBufferSize  int
	clientBufferSize int
	maxClients       int
	clientCount      int
	shutdownTimeout  time.Duration

	log logger.Interface
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithEventBufferSize sets the publish channel capacity.
func WithEventBufferSize(n int) BrokerOption {
	return func(b *Broker) {
		if n > 0 {
			b.eventBufferSize = n
		}
	}
}

// WithClientBufferSize sets the per-subscriber channel capacity.
func WithClientBufferSize(n int) BrokerOption {
	return func(b *Broker) {
		if n > 0 {
			b.clientBufferSize = n
		}
	}
}

// WithMaxClients caps concurrent subscribers across all tasks.
func WithMaxClients(n int) BrokerOption {
	return func(b *Broker) {
		if n > 0 {
			b.maxClients = n
		}
	}
}

// NewBroker creates a progress broker.
func NewBroker(log logger.Interface, opts ...BrokerOption) *Broker {
	b := &Broker{
		subscribers:      make(map[string]map[string]*subscriber),
		eventBufferSize:  defaultEventBufferSize,
		clientBufferSize: defaultClientBufferSize,
		maxClients:       defaultMaxClients,
		shutdownTimeout:  defaultShutdownTimeout,
		log:              log,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.publish = make(chan domain.ProgressEvent, b.eventBufferSize)
	return b
}

// Start launches the broadcast loop. It must be called before Publish or
// Subscribe.
func (b *Broker) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBrokerClosed
	}
	if b.started {
		return errors.New("broker already started")
	}

	b.ctx, b.cancel = context.WithCancel(ctx)
	b.started = true

	b.wg.Add(1)
	go b.broadcastLoop()

	return nil
}

// Stop drains the broker and disconnects all subscribers. Safe to call more
// than once.
func (b *Broker) Stop() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	started := b.started
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()

	if started {
		done := make(chan struct{})
		go func() {
			b.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(b.shutdownTimeout):
			b.log.Warn("broker shutdown timed out waiting for broadcast loop")
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, subs := range b.subscribers {
		for _, sub := range subs {
			close(sub.events)
		}
	}
	b.subscribers = make(map[string]map[string]*subscriber)
	b.clientCount = 0
	return nil
}

// Publish queues an event for delivery. It never blocks: when the buffer is
// full the event is dropped and ErrBufferFull returned, since stale progress
// is worthless by the time the buffer drains.
func (b *Broker) Publish(event domain.ProgressEvent) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBrokerClosed
	}
	if !b.started {
		b.mu.RUnlock()
		return ErrBrokerNotActive
	}
	b.mu.RUnlock()

	select {
	case b.publish <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

// Subscribe registers a watcher for one task's events. The returned channel
// is closed when the broker stops or the subscriber is disconnected. The
// cleanup func must be called when the caller is done; it is idempotent.
func (b *Broker) Subscribe(taskID string) (<-chan domain.ProgressEvent, func(), error) {
	if taskID == "" {
		return nil, nil, errors.New("task ID is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, nil, ErrBrokerClosed
	}
	if !b.started {
		return nil, nil, ErrBrokerNotActive
	}
	if b.clientCount >= b.maxClients {
		return nil, nil, fmt.Errorf("%w: limit %d", ErrTooManyClients, b.maxClients)
	}

	sub := &subscriber{
		id:     uuid.New().String(),
		taskID: taskID,
		events: make(chan domain.ProgressEvent, b.clientBufferSize),
	}
	if b.subscribers[taskID] == nil {
		b.subscribers[taskID] = make(map[string]*subscriber)
	}
	b.subscribers[taskID][sub.id] = sub
	b.clientCount++

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			b.removeSubscriber(sub)
		})
	}
	return sub.events, cleanup, nil
}

// SubscriberCount reports live subscribers, for monitoring.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.clientCount
}

func (b *Broker) broadcastLoop() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event := <-b.publish:
			b.broadcast(event)
		}
	}
}

func (b *Broker) broadcast(event domain.ProgressEvent) {
	b.mu.RLock()
	subs := b.subscribers[event.TaskID]
	slow := make([]*subscriber, 0)
	for _, sub := range subs {
		select {
		case sub.events <- event:
		default:
			// A subscriber that cannot keep up gets disconnected rather
			// than stalling delivery to everyone else.
			slow = append(slow, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range slow {
		b.log.Warn("disconnecting slow progress subscriber",
			"task_id", sub.taskID,
			"subscriber_id", sub.id)
		b.removeSubscriber(sub)
	}
}

func (b *Broker) removeSubscriber(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[sub.taskID]
	if !ok {
		return
	}
	if _, ok := subs[sub.id]; !ok {
		return
	}
	delete(subs, sub.id)
	if len(subs) == 0 {
		delete(b.subscribers, sub.taskID)
	}
	b.clientCount--
	close(sub.events)
}

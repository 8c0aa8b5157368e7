package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/events"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
)

func startedBroker(t *testing.T, opts ...events.BrokerOption) *events.Broker {
	t.Helper()
	b := events.NewBroker(logger.NewNoop(), opts...)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Stop() })
	return b
}

func waitForEvent(t *testing.T, ch <-chan domain.ProgressEvent) domain.ProgressEvent {
	t.Helper()
	select {
	case event, ok := <-ch:
		if !ok {
			t.Fatal("event channel closed before event arrived")
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return domain.ProgressEvent{}
}

func TestBrokerRoutesByTask(t *testing.T) {
	t.Parallel()
	b := startedBroker(t)

	chA, cleanupA, err := b.Subscribe("task-a")
	if err != nil {
		t.Fatalf("Subscribe(task-a) error = %v", err)
	}
	defer cleanupA()

	chB, cleanupB, err := b.Subscribe("task-b")
	if err != nil {
		t.Fatalf("Subscribe(task-b) error = %v", err)
	}
	defer cleanupB()

	if err := b.Publish(domain.ProgressEvent{TaskID: "task-a", PagesCrawled: 3}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	got := waitForEvent(t, chA)
	if got.TaskID != "task-a" || got.PagesCrawled != 3 {
		t.Errorf("subscriber A got %+v, want task-a with 3 pages", got)
	}

	select {
	case event := <-chB:
		t.Errorf("subscriber B received event for another task: %+v", event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBrokerMultipleSubscribersSameTask(t *testing.T) {
	t.Parallel()
	b := startedBroker(t)

	ch1, cleanup1, _ := b.Subscribe("task-1")
	defer cleanup1()
	ch2, cleanup2, _ := b.Subscribe("task-1")
	defer cleanup2()

	if err := b.Publish(domain.ProgressEvent{TaskID: "task-1", DocumentsFound: 7}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if got := waitForEvent(t, ch1); got.DocumentsFound != 7 {
		t.Errorf("subscriber 1 DocumentsFound = %d, want 7", got.DocumentsFound)
	}
	if got := waitForEvent(t, ch2); got.DocumentsFound != 7 {
		t.Errorf("subscriber 2 DocumentsFound = %d, want 7", got.DocumentsFound)
	}
}

func TestBrokerSlowSubscriberDisconnected(t *testing.T) {
	t.Parallel()
	b := startedBroker(t, events.WithClientBufferSize(1))

	ch, cleanup, err := b.Subscribe("task-slow")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer cleanup()

	// Never read: the buffer holds one event, the rest overflow until the
	// broker drops the subscriber and closes the channel.
	for i := 0; i < 10; i++ {
		_ = b.Publish(domain.ProgressEvent{TaskID: "task-slow", PagesCrawled: i})
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("slow subscriber channel was never closed")
		}
	}
}

func TestBrokerMaxClients(t *testing.T) {
	t.Parallel()
	b := startedBroker(t, events.WithMaxClients(2))

	_, cleanup1, err := b.Subscribe("task-x")
	if err != nil {
		t.Fatalf("first Subscribe() error = %v", err)
	}
	defer cleanup1()
	_, cleanup2, err := b.Subscribe("task-y")
	if err != nil {
		t.Fatalf("second Subscribe() error = %v", err)
	}

	if _, _, err := b.Subscribe("task-z"); !errors.Is(err, events.ErrTooManyClients) {
		t.Errorf("third Subscribe() error = %v, want ErrTooManyClients", err)
	}

	// Releasing a slot readmits new subscribers.
	cleanup2()
	_, cleanup3, err := b.Subscribe("task-z")
	if err != nil {
		t.Errorf("Subscribe() after cleanup error = %v", err)
	} else {
		cleanup3()
	}
}

func TestBrokerPublishBeforeStart(t *testing.T) {
	t.Parallel()
	b := events.NewBroker(logger.NewNoop())

	if err := b.Publish(domain.ProgressEvent{TaskID: "t"}); !errors.Is(err, events.ErrBrokerNotActive) {
		t.Errorf("Publish() error = %v, want ErrBrokerNotActive", err)
	}
	if _, _, err := b.Subscribe("t"); !errors.Is(err, events.ErrBrokerNotActive) {
		t.Errorf("Subscribe() error = %v, want ErrBrokerNotActive", err)
	}
}

func TestBrokerStopClosesSubscribers(t *testing.T) {
	t.Parallel()
	b := events.NewBroker(logger.NewNoop())
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ch, cleanup, err := b.Subscribe("task-1")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer cleanup()

	if err := b.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after Stop, got event")
		}
	case <-time.After(time.Second):
		t.Error("subscriber channel not closed after Stop")
	}

	if err := b.Publish(domain.ProgressEvent{TaskID: "task-1"}); !errors.Is(err, events.ErrBrokerClosed) {
		t.Errorf("Publish() after Stop error = %v, want ErrBrokerClosed", err)
	}
	if err := b.Stop(); err != nil {
		t.Errorf("second Stop() error = %v, want nil", err)
	}
}

func TestBrokerCleanupIdempotent(t *testing.T) {
	t.Parallel()
	b := startedBroker(t)

	_, cleanup, err := b.Subscribe("task-1")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	cleanup()
	cleanup()

	if n := b.SubscriberCount(); n != 0 {
		t.Errorf("SubscriberCount() = %d after double cleanup, want 0", n)
	}
}

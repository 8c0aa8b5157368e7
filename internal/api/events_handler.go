package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
)

// defaultStreamPoll is the SSE keepalive interval. Each tick also reloads
// the task so the stream can end itself once the task goes terminal; the
// progress stream carries no final-status event.
const defaultStreamPoll = 10 * time.Second

// EventStream hands out per-task progress subscriptions.
type EventStream interface {
	Subscribe(taskID string) (<-chan domain.ProgressEvent, func(), error)
}

// TaskWatcher resolves the task a stream attaches to.
type TaskWatcher interface {
	Get(ctx context.Context, taskID string) (*domain.CrawlTask, error)
}

// EventsHandler serves GET /crawl/tasks/:id/events as server-sent events.
type EventsHandler struct {
	tasks  TaskWatcher
	stream EventStream
	poll   time.Duration
	log    logger.Interface
}

// NewEventsHandler creates the SSE handler. poll <= 0 selects the default.
func NewEventsHandler(tasks TaskWatcher, stream EventStream, poll time.Duration, log logger.Interface) *EventsHandler {
	if poll <= 0 {
		poll = defaultStreamPoll
	}
	return &EventsHandler{tasks: tasks, stream: stream, poll: poll, log: log}
}

// Stream handles GET /crawl/tasks/:id/events. It opens with a snapshot of
// the task's current progress, then relays live events until the task goes
// terminal or the client disconnects. Terminal tasks get the snapshot only.
func (h *EventsHandler) Stream(c *gin.Context) {
	id := c.Param("id")

	task, err := h.tasks.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "failed to load task")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	h.send(c, snapshotEvent(task))
	if task.Status.Terminal() {
		return
	}

	events, cancel, err := h.stream.Subscribe(id)
	if err != nil {
		// The snapshot already went out; the client sees current state
		// and can reconnect for live updates.
		h.log.Warn("progress subscription failed", "task_id", id, "error", err)
		return
	}
	defer cancel()

	ticker := time.NewTicker(h.poll)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				// Broker shut down.
				return
			}
			h.send(c, event)

		case <-ticker.C:
			current, err := h.tasks.Get(ctx, id)
			if err != nil {
				// Deleted mid-stream or store unavailable; either way
				// there is nothing left to report.
				return
			}
			h.send(c, snapshotEvent(current))
			if current.Status.Terminal() {
				return
			}
		}
	}
}

func (h *EventsHandler) send(c *gin.Context, event domain.ProgressEvent) {
	c.SSEvent("progress", event)
	c.Writer.Flush()
}

// snapshotEvent projects a task record onto the event shape live updates
// use, so clients parse one format.
func snapshotEvent(t *domain.CrawlTask) domain.ProgressEvent {
	return domain.ProgressEvent{
		TaskID:              t.TaskID,
		DocumentsFound:      t.Progress.DocumentsFound,
		DocumentsDownloaded: t.Progress.DocumentsDownloaded,
		PagesCrawled:        t.Progress.PagesCrawled,
		StatusMessage:       string(t.Status),
		UpdatedAt:           t.UpdatedAt,
	}
}

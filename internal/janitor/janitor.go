// Package janitor runs the control plane's periodic maintenance: numeric
// cache expiry, resetting sessions whose background indexing died, and
// deleting staging objects orphaned by crashed extractions.
package janitor

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/objectstore"
)

const (
	// defaultSchedule runs maintenance every fifteen minutes.
	defaultSchedule = "*/15 * * * *"

	// defaultStuckAfter is how long a session may sit in processing
	// before the janitor assumes its indexer died with the process.
	defaultStuckAfter = time.Hour

	// defaultTempMaxAge is how old a staging object may be before it
	// counts as orphaned. Live extractions finish in minutes.
	defaultTempMaxAge = 2 * time.Hour

	// defaultRunTimeout bounds one maintenance pass.
	defaultRunTimeout = 5 * time.Minute

	stuckSessionBatch = 200
)

// CacheSweeper evicts expired numeric-context entries.
type CacheSweeper interface {
	Sweep() int
}

// SessionStore is the session surface stuck-session recovery needs.
type SessionStore interface {
	ListIdleSince(ctx context.Context, cutoff time.Time, limit int) ([]domain.Session, error)
	UpdateProcessingStatus(ctx context.Context, sessionID string, status domain.ProcessingStatus) error
}

// ObjectStore is the blob surface staging cleanup needs.
type ObjectStore interface {
	ListInfo(ctx context.Context, prefix string) ([]objectstore.ObjectInfo, error)
	Delete(ctx context.Context, keys ...string) error
}

// Janitor schedules and runs the maintenance passes. All dependencies are
// optional; a nil one skips its pass, so processes wire only what they own.
type Janitor struct {
	cache    CacheSweeper
	sessions SessionStore
	blobs    ObjectStore
	log      logger.Interface

	schedule   string
	stuckAfter time.Duration
	tempMaxAge time.Duration

	cron *cron.Cron
}

// Option adjusts janitor tuning.
type Option func(*Janitor)

// WithSchedule overrides the cron schedule (standard 5-field form).
func WithSchedule(spec string) Option {
	return func(j *Janitor) { j.schedule = spec }
}

// WithStuckAfter overrides how long processing sessions are left alone.
func WithStuckAfter(d time.Duration) Option {
	return func(j *Janitor) { j.stuckAfter = d }
}

// WithTempMaxAge overrides the staging-object age limit.
func WithTempMaxAge(d time.Duration) Option {
	return func(j *Janitor) { j.tempMaxAge = d }
}

// New builds a janitor over the given dependencies.
func New(cache CacheSweeper, sessions SessionStore, blobs ObjectStore, log logger.Interface, opts ...Option) *Janitor {
	j := &Janitor{
		cache:      cache,
		sessions:   sessions,
		blobs:      blobs,
		log:        log,
		schedule:   defaultSchedule,
		stuckAfter: defaultStuckAfter,
		tempMaxAge: defaultTempMaxAge,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start registers the maintenance schedule and begins running it.
func (j *Janitor) Start() error {
	if j.cron != nil {
		return errors.New("janitor already started")
	}

	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := c.AddFunc(j.schedule, j.runOnce); err != nil {
		return err
	}
	c.Start()
	j.cron = c

	j.log.Info("janitor started",
		"schedule", j.schedule,
		"stuck_after", j.stuckAfter,
		"temp_max_age", j.tempMaxAge)
	return nil
}

// Stop halts the schedule and waits for an in-flight pass to finish.
func (j *Janitor) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
	j.log.Info("janitor stopped")
}

func (j *Janitor) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()
	j.Run(ctx)
}

// Run executes one maintenance pass. Exposed so tests and operator tooling
// can trigger it without the schedule.
func (j *Janitor) Run(ctx context.Context) {
	started := time.Now()

	swept := j.sweepCache()
	recovered := j.recoverStuckSessions(ctx)
	deleted := j.cleanStagingObjects(ctx)

	j.log.Info("maintenance pass finished",
		"cache_entries_swept", swept,
		"sessions_recovered", recovered,
		"temp_objects_deleted", deleted,
		"duration_ms", time.Since(started).Milliseconds())
}

func (j *Janitor) sweepCache() int {
	if j.cache == nil {
		return 0
	}
	return j.cache.Sweep()
}

// recoverStuckSessions resets sessions that have sat in processing past the
// stuck window. Their background indexer is gone; leaving the status would
// keep every retrieval answering "still indexing" forever.
func (j *Janitor) recoverStuckSessions(ctx context.Context) int {
	if j.sessions == nil {
		return 0
	}

	cutoff := time.Now().Add(-j.stuckAfter)
	sessions, err := j.sessions.ListIdleSince(ctx, cutoff, stuckSessionBatch)
	if err != nil {
		j.log.Warn("failed to list idle sessions", "error", err)
		return 0
	}

	recovered := 0
	for i := range sessions {
		s := &sessions[i]
		if s.ProcessingStatus != domain.ProcessingStatusProcessing {
			continue
		}
		if err := j.sessions.UpdateProcessingStatus(ctx, s.SessionID, domain.ProcessingStatusIdle); err != nil {
			j.log.Warn("failed to reset stuck session",
				"session_id", s.SessionID,
				"error", err)
			continue
		}
		j.log.Info("reset stuck session",
			"session_id", s.SessionID,
			"updated_at", s.UpdatedAt)
		recovered++
	}
	return recovered
}

// cleanStagingObjects deletes temp/ objects older than the age limit.
func (j *Janitor) cleanStagingObjects(ctx context.Context) int {
	if j.blobs == nil {
		return 0
	}

	infos, err := j.blobs.ListInfo(ctx, objectstore.TempRootPrefix())
	if err != nil {
		j.log.Warn("failed to list staging objects", "error", err)
		return 0
	}

	cutoff := time.Now().Add(-j.tempMaxAge)
	var stale []string
	for _, info := range infos {
		if info.LastModified.Before(cutoff) {
			stale = append(stale, info.Key)
		}
	}
	if len(stale) == 0 {
		return 0
	}

	if err := j.blobs.Delete(ctx, stale...); err != nil {
		j.log.Warn("failed to delete staging objects", "count", len(stale), "error", err)
		return 0
	}
	return len(stale)
}

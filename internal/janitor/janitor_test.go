package janitor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/janitor"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/objectstore"
)

type fakeSweeper struct {
	swept int
	calls int
}

func (f *fakeSweeper) Sweep() int {
	f.calls++
	return f.swept
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions []domain.Session
	listErr  error
	updated  map[string]domain.ProcessingStatus
}

func (f *fakeSessionStore) ListIdleSince(_ context.Context, cutoff time.Time, _ int) ([]domain.Session, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Session
	for _, s := range f.sessions {
		if s.UpdatedAt.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) UpdateProcessingStatus(_ context.Context, sessionID string, status domain.ProcessingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updated == nil {
		f.updated = make(map[string]domain.ProcessingStatus)
	}
	f.updated[sessionID] = status
	return nil
}

type fakeBlobs struct {
	infos   []objectstore.ObjectInfo
	listErr error
	deleted []string
}

func (f *fakeBlobs) ListInfo(_ context.Context, _ string) ([]objectstore.ObjectInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.infos, nil
}

func (f *fakeBlobs) Delete(_ context.Context, keys ...string) error {
	f.deleted = append(f.deleted, keys...)
	return nil
}

func TestRunRecoversOnlyStuckProcessingSessions(t *testing.T) {
	t.Parallel()

	old := time.Now().Add(-2 * time.Hour)
	sessions := &fakeSessionStore{
		sessions: []domain.Session{
			{SessionID: "stuck", ProcessingStatus: domain.ProcessingStatusProcessing, UpdatedAt: old},
			{SessionID: "done", ProcessingStatus: domain.ProcessingStatusCompleted, UpdatedAt: old},
			{SessionID: "fresh", ProcessingStatus: domain.ProcessingStatusProcessing, UpdatedAt: time.Now()},
		},
	}

	j := janitor.New(nil, sessions, nil, logger.NewNoop())
	j.Run(context.Background())

	if got := sessions.updated["stuck"]; got != domain.ProcessingStatusIdle {
		t.Errorf("stuck session status = %q, want %q", got, domain.ProcessingStatusIdle)
	}
	if _, ok := sessions.updated["done"]; ok {
		t.Error("completed session was reset")
	}
	if _, ok := sessions.updated["fresh"]; ok {
		t.Error("fresh session was reset")
	}
}

func TestRunDeletesOnlyStaleStagingObjects(t *testing.T) {
	t.Parallel()

	blobs := &fakeBlobs{
		infos: []objectstore.ObjectInfo{
			{Key: "temp/old.pdf", LastModified: time.Now().Add(-3 * time.Hour)},
			{Key: "temp/new.pdf", LastModified: time.Now().Add(-time.Minute)},
		},
	}

	j := janitor.New(nil, nil, blobs, logger.NewNoop())
	j.Run(context.Background())

	if len(blobs.deleted) != 1 || blobs.deleted[0] != "temp/old.pdf" {
		t.Errorf("deleted = %v, want [temp/old.pdf]", blobs.deleted)
	}
}

func TestRunSweepsCache(t *testing.T) {
	t.Parallel()

	sweeper := &fakeSweeper{swept: 3}
	j := janitor.New(sweeper, nil, nil, logger.NewNoop())
	j.Run(context.Background())

	if sweeper.calls != 1 {
		t.Errorf("sweep calls = %d, want 1", sweeper.calls)
	}
}

func TestRunSkipsNilDependencies(t *testing.T) {
	t.Parallel()

	// Must not panic with nothing wired.
	j := janitor.New(nil, nil, nil, logger.NewNoop())
	j.Run(context.Background())
}

func TestRunSurvivesStoreErrors(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessionStore{listErr: errors.New("mongo down")}
	blobs := &fakeBlobs{listErr: errors.New("minio down")}

	j := janitor.New(&fakeSweeper{}, sessions, blobs, logger.NewNoop())
	j.Run(context.Background())

	if len(blobs.deleted) != 0 {
		t.Errorf("deleted = %v, want none", blobs.deleted)
	}
}

func TestStartRejectsBadScheduleAndDoubleStart(t *testing.T) {
	t.Parallel()

	j := janitor.New(nil, nil, nil, logger.NewNoop(), janitor.WithSchedule("not a schedule"))
	if err := j.Start(); err == nil {
		t.Fatal("Start accepted an invalid schedule")
	}

	j = janitor.New(nil, nil, nil, logger.NewNoop())
	if err := j.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer j.Stop()

	if err := j.Start(); err == nil {
		t.Error("second Start did not error")
	}
}

package dedup

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/database"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
)

// OriginalFinder looks up the canonical record holding a content hash.
type OriginalFinder interface {
	FindOriginal(ctx context.Context, sessionID, contentHash string) (*domain.ProcessedDocument, error)
}

// Index serializes concurrent indexing of identical content within a
// session. Two goroutines processing the same bytes at once would otherwise
// both miss the persisted hash lookup and both index; the second caller for
// a (session, hash) key waits until the first releases, then re-checks.
type Index struct {
	finder OriginalFinder

	mu       sync.Mutex
	inflight map[string]chan struct{}
}

// NewIndex creates a dedup index over the session's processed records.
func NewIndex(finder OriginalFinder) *Index {
	return &Index{
		finder:   finder,
		inflight: make(map[string]chan struct{}),
	}
}

// Acquire claims the (session, hash) key. If the hash is already indexed it
// returns the original record and a nil release. Otherwise it returns a nil
// record and a release func the caller must invoke once its own record is
// persisted (or its attempt abandoned).
func (i *Index) Acquire(ctx context.Context, sessionID, contentHash string) (*domain.ProcessedDocument, func(), error) {
	key := sessionID + "\x00" + contentHash

	for {
		original, err := i.finder.FindOriginal(ctx, sessionID, contentHash)
		if err == nil {
			return original, nil, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, nil, fmt.Errorf("dedup lookup: %w", err)
		}

		i.mu.Lock()
		wait, held := i.inflight[key]
		if !held {
			done := make(chan struct{})
			i.inflight[key] = done
			i.mu.Unlock()

			release := func() {
				i.mu.Lock()
				delete(i.inflight, key)
				i.mu.Unlock()
				close(done)
			}
			return nil, release, nil
		}
		i.mu.Unlock()

		// Someone else is indexing this content; wait, then re-check the
		// persisted lookup. If the holder failed and wrote nothing the
		// re-check misses and we claim the key ourselves.
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
}

package crawler

import (
	"context"
	"sync"
	"sync/atomic"
)

// item is one URL waiting in the frontier.
type item struct {
	url   string
	depth int
	// isDoc marks document artifacts (PDFs, spreadsheets). They are
	// consumed before page links and never traversed.
	isDoc bool
}

// frontier is the bounded crawl queue. Document links and page links live on
// separate channels so workers can drain documents preferentially. Pushes
// block when a lane is full; the bound is the backpressure mechanism.
type frontier struct {
	docs  chan item
	pages chan item

	// pending counts items pushed but not yet fully processed. The frontier
	// is drained when it reaches zero.
	pending atomic.Int64
	done    chan struct{}
	halted  chan struct{}

	haltOnce sync.Once
	doneOnce sync.Once
}

func newFrontier(capacity int) *frontier {
	if capacity <= 0 {
		capacity = 1
	}
	return &frontier{
		docs:   make(chan item, capacity),
		pages:  make(chan item, capacity),
		done:   make(chan struct{}),
		halted: make(chan struct{}),
	}
}

// push enqueues one item, blocking while its lane is full. It reports false
// when the crawl stopped before the item could be queued.
func (f *frontier) push(ctx context.Context, it item) bool {
	lane := f.pages
	if it.isDoc {
		lane = f.docs
	}

	f.pending.Add(1)
	select {
	case lane <- it:
		return true
	case <-ctx.Done():
	case <-f.halted:
	}
	f.finish()
	return false
}

// pop dequeues the next item, documents first. It reports false when the
// frontier is drained, halted, or the context ends.
func (f *frontier) pop(ctx context.Context) (item, bool) {
	select {
	case <-f.halted:
		return item{}, false
	case <-ctx.Done():
		return item{}, false
	default:
	}

	// Fast path: take a waiting document before considering pages.
	select {
	case it := <-f.docs:
		return it, true
	default:
	}

	select {
	case it := <-f.docs:
		return it, true
	case it := <-f.pages:
		return it, true
	case <-f.done:
	case <-f.halted:
	case <-ctx.Done():
	}
	return item{}, false
}

// finish marks one popped (or abandoned) item complete. The caller must
// invoke it exactly once per successful pop, after any child pushes.
func (f *frontier) finish() {
	if f.pending.Add(-1) == 0 {
		f.doneOnce.Do(func() { close(f.done) })
	}
}

// halt stops the crawl cooperatively: pops and pushes return immediately.
func (f *frontier) halt() {
	f.haltOnce.Do(func() { close(f.halted) })
}

func (f *frontier) depth() int {
	return len(f.docs) + len(f.pages)
}

// visitedSet tracks URLs already claimed by a worker.
type visitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newVisitedSet() *visitedSet {
	return &visitedSet{seen: make(map[string]struct{})}
}

// Add claims a URL. It reports true only for the first caller.
func (v *visitedSet) Add(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.seen[url]; ok {
		return false
	}
	v.seen[url] = struct{}{}
	return true
}

func (v *visitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}

package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	progressBar   = "█"
	progressEmpty = "░"
)

// Tracker accumulates crawl progress counters. It is safe for
// concurrent use by the worker pool and the page walker.
type Tracker struct {
	mu        sync.Mutex
	posts     int
	images    int
	comments  int
	failures  int
	startTime time.Time
}

// NewTracker creates a tracker with the clock started.
func NewTracker() *Tracker {
	return &Tracker{startTime: time.Now()}
}

// AddPost records one processed post.
func (t *Tracker) AddPost() {
	t.mu.Lock()
	t.posts++
	t.mu.Unlock()
}

// AddImages records saved images.
func (t *Tracker) AddImages(n int) {
	t.mu.Lock()
	t.images += n
	t.mu.Unlock()
}

// AddComments records fetched comments.
func (t *Tracker) AddComments(n int) {
	t.mu.Lock()
	t.comments += n
	t.mu.Unlock()
}

// AddFailure records one failed item.
func (t *Tracker) AddFailure() {
	t.mu.Lock()
	t.failures++
	t.mu.Unlock()
}

// Counts returns the current counters.
func (t *Tracker) Counts() (posts, images, comments, failures int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.posts, t.images, t.comments, t.failures
}

// Elapsed returns the time since the tracker was created.
func (t *Tracker) Elapsed() time.Duration {
	return time.Since(t.startTime).Round(time.Second)
}

// Bar renders a fixed-width progress bar for done out of total.
func Bar(done, total int) string {
	const width = 20
	if total <= 0 {
		return fmt.Sprintf("[%s] %d", strings.Repeat(progressEmpty, width), done)
	}
	filled := done * width / total
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %d/%d",
		strings.Repeat(progressBar, filled),
		strings.Repeat(progressEmpty, width-filled),
		done, total)
}

// Summary renders a one-line progress summary for the console.
func (t *Tracker) Summary() string {
	posts, images, comments, failures := t.Counts()
	return fmt.Sprintf("posts %d | images %d | comments %d | failures %d | elapsed %s",
		posts, images, comments, failures, t.Elapsed())
}

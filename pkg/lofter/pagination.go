package lofter

import (
	"context"
	"time"

	"lofterscraper/pkg/retry"
)

// PageFunc fetches the page at the given offset. It returns the page's
// items, the offset of the next page, and whether more pages may exist.
type PageFunc[T any] func(ctx context.Context, offset int) (items []T, next int, more bool, err error)

// Walker iterates lazily over a paginated listing in the manner of
// bufio.Scanner: call Next until it returns false, then check Err to
// distinguish normal exhaustion from an aborted walk.
//
//	for walker.Next(ctx) {
//	    for _, item := range walker.Items() {
//	        ...
//	    }
//	}
//	if err := walker.Err(); err != nil {
//	    ...
//	}
type Walker[T any] struct {
	fetch   PageFunc[T]
	delay   time.Duration
	sleeper retry.Sleeper

	offset  int
	items   []T
	err     error
	started bool
	done    bool
}

// WalkerOption configures a Walker.
type WalkerOption[T any] func(*Walker[T])

// WithPageDelay sets the pause between page fetches.
func WithPageDelay[T any](d time.Duration) WalkerOption[T] {
	return func(w *Walker[T]) { w.delay = d }
}

// WithSleeper replaces the blocking wait, for tests.
func WithSleeper[T any](s retry.Sleeper) WalkerOption[T] {
	return func(w *Walker[T]) { w.sleeper = s }
}

// NewWalker creates a walker over the given page function.
func NewWalker[T any](fetch PageFunc[T], opts ...WalkerOption[T]) *Walker[T] {
	w := &Walker[T]{
		fetch:   fetch,
		sleeper: retry.TimerSleeper{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Next advances to the next page. It returns false when the listing is
// exhausted or a fetch failed; the two cases are told apart by Err.
// A page with zero items counts as exhaustion even if the source
// claimed more pages were available.
func (w *Walker[T]) Next(ctx context.Context) bool {
	if w.done || w.err != nil {
		return false
	}

	if w.started && w.delay > 0 {
		if err := w.sleeper.Sleep(ctx, w.delay); err != nil {
			w.err = err
			return false
		}
	}
	w.started = true

	items, next, more, err := w.fetch(ctx, w.offset)
	if err != nil {
		w.err = err
		return false
	}

	if len(items) == 0 {
		w.done = true
		return false
	}

	w.items = items
	w.offset = next
	if !more {
		w.done = true
	}
	return true
}

// Items returns the items of the current page. Valid until the next
// call to Next.
func (w *Walker[T]) Items() []T {
	return w.items
}

// Err returns the error that aborted the walk, or nil if the walk ended
// by exhausting the listing.
func (w *Walker[T]) Err() error {
	return w.err
}

// TagPosts returns a walker over all posts for a tag. Pages are deduped
// by permalink; the walk stops when a page leads with an already-seen
// permalink, which the listing uses to signal wraparound.
func (c *Client) TagPosts(tag, listType, timeLimit string, pageDelay time.Duration) *Walker[TagPostEntry] {
	seen := make(map[string]bool)

	return NewWalker(func(ctx context.Context, offset int) ([]TagPostEntry, int, bool, error) {
		resp, err := c.FetchTagPage(ctx, tag, listType, timeLimit, offset)
		if err != nil {
			return nil, 0, false, err
		}
		if resp.Data == nil || len(resp.Data.List) == 0 {
			return nil, 0, false, nil
		}

		posts := resp.Data.List
		if seen[posts[0].PostData.PostView.Permalink] {
			return nil, 0, false, nil
		}

		fresh := posts[:0:0]
		for _, p := range posts {
			permalink := p.PostData.PostView.Permalink
			if seen[permalink] {
				continue
			}
			seen[permalink] = true
			fresh = append(fresh, p)
		}

		return fresh, resp.Data.Offset, true, nil
	}, WithPageDelay[TagPostEntry](pageDelay))
}

// CollectionItems returns a walker over a collection's posts in order.
func (c *Client) CollectionItems(collectionID int64, pageSize int, pageDelay time.Duration) *Walker[CollectionItem] {
	if pageSize <= 0 {
		pageSize = DefaultCollectionPageSize
	}

	return NewWalker(func(ctx context.Context, offset int) ([]CollectionItem, int, bool, error) {
		resp, err := c.FetchCollectionPage(ctx, collectionID, offset, pageSize)
		if err != nil {
			return nil, 0, false, err
		}
		if resp.Response == nil {
			return nil, 0, false, nil
		}

		items := resp.Response.Items
		return items, offset + len(items), len(items) == pageSize, nil
	}, WithPageDelay[CollectionItem](pageDelay))
}

// Subscriptions returns a walker over the caller's subscribed collections.
func (c *Client) Subscriptions(pageSize int, pageDelay time.Duration) *Walker[SubscribedCollection] {
	if pageSize <= 0 {
		pageSize = DefaultSubscriptionPageSize
	}

	return NewWalker(func(ctx context.Context, offset int) ([]SubscribedCollection, int, bool, error) {
		resp, err := c.FetchSubscriptionPage(ctx, offset, pageSize)
		if err != nil {
			return nil, 0, false, err
		}
		if resp.Data == nil {
			return nil, 0, false, nil
		}

		collections := resp.Data.Collections
		next := offset + len(collections)
		more := next < resp.Data.SubscribeCollectionCount && len(collections) == pageSize
		return collections, next, more, nil
	}, WithPageDelay[SubscribedCollection](pageDelay))
}

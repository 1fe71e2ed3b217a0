package lofter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	errs "lofterscraper/pkg/errors"
	"lofterscraper/pkg/logger"
)

// CommentThread is one top-level comment with its fully assembled replies.
type CommentThread struct {
	Comment *Comment
	Hot     bool
	Replies []*Comment
}

// NodeFailure records a reply fetch that failed for one comment. The
// thread is still returned with whatever replies were embedded in the
// listing.
type NodeFailure struct {
	CommentID int64
	Err       error
}

// TreeReport is the outcome of assembling a post's comment tree.
type TreeReport struct {
	Threads  []*CommentThread
	Failures []NodeFailure
}

// TotalComments counts every comment in the report, replies included.
func (r *TreeReport) TotalComments() int {
	n := 0
	for _, t := range r.Threads {
		n += 1 + len(t.Replies)
	}
	return n
}

// CommentFetcher assembles complete comment trees for posts. Top-level
// pages are walked sequentially; reply fetches run concurrently with a
// bounded number of workers.
type CommentFetcher struct {
	client    *Client
	workers   int
	pageDelay time.Duration
	logger    logger.Logger
}

// NewCommentFetcher creates a comment fetcher over the given client.
func NewCommentFetcher(client *Client, workers int, pageDelay time.Duration) *CommentFetcher {
	if workers <= 0 {
		workers = 5
	}
	return &CommentFetcher{
		client:    client,
		workers:   workers,
		pageDelay: pageDelay,
		logger:    logger.GetLogger(),
	}
}

// FetchTree fetches every comment on a post, hot and normal, along with
// all replies. A failure while listing top-level comments aborts the
// whole tree; a failure fetching one comment's replies is recorded in
// the report and the rest of the tree is still assembled.
func (f *CommentFetcher) FetchTree(ctx context.Context, postID, blogID int64) (*TreeReport, error) {
	topLevel, err := f.fetchTopLevel(ctx, postID, blogID)
	if err != nil {
		return nil, err
	}

	report := &TreeReport{
		Threads: make([]*CommentThread, len(topLevel)),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)

	for i, entry := range topLevel {
		i, entry := i, entry
		g.Go(func() error {
			thread, ferr := f.buildThread(gctx, postID, blogID, entry)
			mu.Lock()
			report.Threads[i] = thread
			if ferr != nil {
				report.Failures = append(report.Failures, NodeFailure{
					CommentID: entry.comment.ID,
					Err:       ferr,
				})
			}
			mu.Unlock()

			// Only a dead context stops the remaining threads.
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	f.logger.DebugWithFields("assembled comment tree", map[string]interface{}{
		"post_id":  postID,
		"threads":  len(report.Threads),
		"comments": report.TotalComments(),
		"failures": len(report.Failures),
	})

	return report, nil
}

type topLevelEntry struct {
	comment *Comment
	hot     bool
}

// fetchTopLevel walks the top-level comment pages until the API signals
// the end with offset -1 or a page adds nothing new. Hot comments are
// merged with normal ones, deduped by ID, hot first.
func (f *CommentFetcher) fetchTopLevel(ctx context.Context, postID, blogID int64) ([]topLevelEntry, error) {
	seen := make(map[int64]bool)

	walker := NewWalker(func(wctx context.Context, offset int) ([]topLevelEntry, int, bool, error) {
		resp, err := f.client.FetchCommentPage(wctx, postID, blogID, offset)
		if err != nil {
			return nil, 0, false, err
		}
		if resp.Data == nil {
			return nil, 0, false, nil
		}

		var page []topLevelEntry
		for _, c := range resp.Data.HotList {
			if c == nil || c.ID == 0 || seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			page = append(page, topLevelEntry{comment: c, hot: true})
		}
		for _, c := range resp.Data.List {
			if c == nil || c.ID == 0 || seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			page = append(page, topLevelEntry{comment: c})
		}

		return page, resp.Data.Offset, resp.Data.Offset != -1, nil
	}, WithPageDelay[topLevelEntry](f.pageDelay))

	var all []topLevelEntry
	for walker.Next(ctx) {
		all = append(all, walker.Items()...)
	}
	if err := walker.Err(); err != nil {
		return nil, err
	}

	return all, nil
}

// buildThread assembles one top-level comment with its replies. The
// listing embeds a few replies inline; when the declared reply count is
// higher, the rest are fetched from the reply endpoint. The returned
// thread is always usable, even when the error is non-nil.
func (f *CommentFetcher) buildThread(ctx context.Context, postID, blogID int64, entry topLevelEntry) (*CommentThread, error) {
	c := entry.comment
	thread := &CommentThread{
		Comment: c,
		Hot:     entry.hot,
	}

	seen := map[int64]bool{c.ID: true}
	for _, reply := range c.L2Comments {
		if reply == nil || seen[reply.ID] {
			continue
		}
		seen[reply.ID] = true
		thread.Replies = append(thread.Replies, reply)
	}

	if c.L2Count <= len(c.L2Comments) {
		return thread, nil
	}

	resp, err := f.client.FetchReplies(ctx, postID, blogID, c.ID)
	if err != nil {
		return thread, err
	}
	if resp.Data == nil {
		return thread, nil
	}

	for _, reply := range resp.Data.List {
		if reply == nil {
			continue
		}
		if reply.ID == c.ID {
			// A reply claiming its parent's ID would make the tree cyclic.
			return thread, errs.New(errs.ErrorTypeParsing, 0,
				"reply %d references itself as parent", reply.ID)
		}
		if seen[reply.ID] {
			continue
		}
		seen[reply.ID] = true
		thread.Replies = append(thread.Replies, reply)
	}

	if len(thread.Replies) < c.L2Count {
		f.logger.DebugWithFields("fewer replies than declared", map[string]interface{}{
			"comment_id": c.ID,
			"expected":   c.L2Count,
			"found":      len(thread.Replies),
		})
	}

	return thread, nil
}

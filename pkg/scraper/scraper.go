package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"lofterscraper/internal/downloader"
	"lofterscraper/pkg/auth"
	"lofterscraper/pkg/config"
	"lofterscraper/pkg/lofter"
	"lofterscraper/pkg/logger"
	"lofterscraper/pkg/ratelimit"
	"lofterscraper/pkg/storage"
	"lofterscraper/pkg/ui"
)

// ErrNoActiveCredential is returned by subscription crawls when no
// credential carrier is configured. The subscription endpoint lists
// the caller's own collections, so there is nothing to crawl without
// an identity.
var ErrNoActiveCredential = errors.New("subscription crawl requires an active credential")

// Scraper orchestrates crawls against the Lofter API: it walks
// listings, fetches post details, resolves content, assembles comment
// trees and writes everything through the storage manager.
type Scraper struct {
	client   *lofter.Client
	resolver *lofter.Resolver
	comments *lofter.CommentFetcher
	store    *storage.Manager
	config   *config.Config
	tracker  *ui.Tracker
	logger   logger.Logger
}

// New creates a scraper from configuration. The carrier may be nil for
// crawls against public endpoints.
func New(cfg *config.Config, carrier *auth.Carrier) (*Scraper, error) {
	log := logger.GetLogger()

	limiter := ratelimit.New(map[ratelimit.Class]time.Duration{
		ratelimit.ClassGeneric:        cfg.RateLimit.GenericInterval,
		ratelimit.ClassTagList:        cfg.RateLimit.TagListInterval,
		ratelimit.ClassCollectionList: cfg.RateLimit.CollectionListInterval,
		ratelimit.ClassPostDetail:     cfg.RateLimit.PostDetailInterval,
		ratelimit.ClassCommentL1:      cfg.RateLimit.CommentL1Interval,
		ratelimit.ClassCommentL2:      cfg.RateLimit.CommentL2Interval,
	})

	client := lofter.NewClient(lofter.Options{
		Timeout:         cfg.Download.RequestTimeout,
		DownloadTimeout: cfg.Download.DownloadTimeout,
		UserAgent:       cfg.Lofter.UserAgent,
		Product:         cfg.Lofter.Product,
		Carrier:         carrier,
		Limiter:         limiter,
		MaxRetries:      cfg.RateLimit.MaxRetries,
		Logger:          log,
	})

	store, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	return newScraper(cfg, client, store), nil
}

func newScraper(cfg *config.Config, client *lofter.Client, store *storage.Manager) *Scraper {
	return &Scraper{
		client:   client,
		resolver: lofter.NewResolver(),
		comments: lofter.NewCommentFetcher(client, cfg.Download.CommentWorkers, cfg.RateLimit.BetweenPagesDelay),
		store:    store,
		config:   cfg,
		tracker:  ui.NewTracker(),
		logger:   logger.GetLogger(),
	}
}

// Tracker exposes the progress counters for console rendering.
func (s *Scraper) Tracker() *ui.Tracker {
	return s.tracker
}

// postJob identifies one post to fetch and where its files go.
type postJob struct {
	mode         storage.Mode
	name         string
	blogID       int64
	blogDomain   string
	postID       string
	postType     int
	prefix       string
	wantComments bool
	wantPhotos   bool
}

func (j postJob) taskCategory() downloader.Category {
	if j.postType == lofter.PostTypePhoto {
		return downloader.CategoryImage
	}
	return downloader.CategoryText
}

// CrawlTag crawls every post under a tag. listType selects the ordering
// (total, new, date, week, month) and timeLimit carries the yyyymm
// filter for date listings.
func (s *Scraper) CrawlTag(ctx context.Context, tag, listType, timeLimit string) (*Report, error) {
	s.logger.InfoWithFields("starting tag crawl", map[string]interface{}{
		"tag":       tag,
		"list_type": listType,
	})

	walker := s.client.TagPosts(tag, listType, timeLimit, s.config.RateLimit.BetweenPagesDelay)

	var batches [][]downloader.Task
	for walker.Next(ctx) {
		var batch []downloader.Task
		for _, entry := range walker.Items() {
			view := entry.PostData.PostView
			job := postJob{
				mode:         storage.ModeTag,
				name:         tag,
				blogID:       entry.BlogInfo.BlogID,
				blogDomain:   lofter.BlogDomain(entry.BlogInfo.BlogName),
				postID:       strconv.FormatInt(view.ID, 10),
				postType:     view.Type,
				wantComments: !s.config.Download.SkipComments,
				wantPhotos:   !s.config.Download.SkipPhotos,
			}
			batch = append(batch, s.postTask(job))
		}
		if len(batch) > 0 {
			batches = append(batches, batch)
		}
	}
	if err := walker.Err(); err != nil {
		return nil, fmt.Errorf("tag listing failed: %w", err)
	}

	return s.runBatches(ctx, batches)
}

// CrawlCollection crawls every post of a collection, files named with
// their ordinal so the collection order survives on disk.
func (s *Scraper) CrawlCollection(ctx context.Context, collectionID int64) (*Report, error) {
	first, err := s.client.FetchCollectionPage(ctx, collectionID, 0, 1)
	if err != nil {
		return nil, fmt.Errorf("collection lookup failed: %w", err)
	}
	if first.Response == nil || first.Response.Collection == nil {
		return nil, fmt.Errorf("collection %d not found", collectionID)
	}
	name := first.Response.Collection.Name

	s.logger.InfoWithFields("starting collection crawl", map[string]interface{}{
		"collection_id": collectionID,
		"name":          name,
		"post_count":    first.Response.Collection.PostCount,
	})

	walker := s.client.CollectionItems(collectionID, lofter.DefaultCollectionPageSize, s.config.RateLimit.BetweenPagesDelay)

	ordinal := 0
	var batches [][]downloader.Task
	for walker.Next(ctx) {
		var batch []downloader.Task
		for _, item := range walker.Items() {
			ordinal++
			job := postJob{
				mode:         storage.ModeCollection,
				name:         name,
				blogID:       item.BlogInfo.BlogID,
				blogDomain:   lofter.BlogDomain(item.BlogInfo.BlogName),
				postID:       strconv.FormatInt(item.Post.ID, 10),
				postType:     item.Post.Type,
				prefix:       fmt.Sprintf("%03d", ordinal),
				wantComments: !s.config.Download.SkipComments,
				wantPhotos:   !s.config.Download.SkipPhotos,
			}
			batch = append(batch, s.postTask(job))
		}
		if len(batch) > 0 {
			batches = append(batches, batch)
		}
	}
	if err := walker.Err(); err != nil {
		return nil, fmt.Errorf("collection listing failed: %w", err)
	}

	return s.runBatches(ctx, batches)
}

// CrawlBlogPost crawls a single post identified by a PostRef, typically
// parsed from a URL.
func (s *Scraper) CrawlBlogPost(ctx context.Context, ref *lofter.PostRef, wantComments, wantPhotos bool) (*Report, error) {
	job, err := s.jobFromRef(ctx, ref, storage.ModeBlog)
	if err != nil {
		return nil, err
	}
	job.wantComments = wantComments
	job.wantPhotos = wantPhotos

	report := &Report{}
	if err := s.processPost(ctx, job); err != nil {
		report.recordFailure(job.postID, err)
		s.tracker.AddFailure()
	} else {
		report.recordSuccess()
	}
	return report, nil
}

// CrawlCommentsOnly fetches a single post's comment tree and persists
// it with the post text, skipping photo downloads.
func (s *Scraper) CrawlCommentsOnly(ctx context.Context, ref *lofter.PostRef) (*Report, error) {
	job, err := s.jobFromRef(ctx, ref, storage.ModeComment)
	if err != nil {
		return nil, err
	}
	job.wantComments = true
	job.wantPhotos = false

	report := &Report{}
	if err := s.processPost(ctx, job); err != nil {
		report.recordFailure(job.postID, err)
		s.tracker.AddFailure()
	} else {
		report.recordSuccess()
	}
	return report, nil
}

// CrawlSubscriptions lists the caller's subscribed collections and
// persists the listing as both a text summary and JSON. It fails fast
// when the client has no credential carrier.
func (s *Scraper) CrawlSubscriptions(ctx context.Context) (*Report, error) {
	if s.client.Carrier() == nil {
		return nil, ErrNoActiveCredential
	}

	walker := s.client.Subscriptions(lofter.DefaultSubscriptionPageSize, s.config.RateLimit.BetweenPagesDelay)

	var collections []lofter.SubscribedCollection
	for walker.Next(ctx) {
		collections = append(collections, walker.Items()...)
	}
	if err := walker.Err(); err != nil {
		return nil, fmt.Errorf("subscription listing failed: %w", err)
	}

	s.logger.InfoWithFields("fetched subscriptions", map[string]interface{}{
		"count": len(collections),
	})

	dir, err := s.store.Dir(storage.ModeSubscription, "list")
	if err != nil {
		return nil, err
	}

	report := &Report{Attempted: len(collections)}
	if err := s.store.SaveText(filepath.Join(dir, "subscriptions.txt"), renderSubscriptionSummary(collections)); err != nil {
		return report, err
	}
	if err := s.store.SaveJSON(filepath.Join(dir, "subscriptions.json"), collections); err != nil {
		return report, err
	}
	report.Succeeded = len(collections)
	return report, nil
}

// jobFromRef builds a postJob from a post reference, resolving the blog
// domain when the reference carries only a numeric blog ID.
func (s *Scraper) jobFromRef(ctx context.Context, ref *lofter.PostRef, mode storage.Mode) (postJob, error) {
	job := postJob{
		mode:   mode,
		blogID: ref.BlogID,
		postID: ref.PostID,
	}

	switch {
	case ref.BlogName != "":
		job.name = ref.BlogName
		job.blogDomain = lofter.BlogDomain(ref.BlogName)
	case ref.BlogID != 0:
		blog, err := s.client.ResolveBlogByID(ctx, ref.BlogID)
		if err != nil {
			return job, fmt.Errorf("failed to resolve blog %d: %w", ref.BlogID, err)
		}
		job.name = blog.BlogName
		job.blogDomain = lofter.BlogDomain(blog.BlogName)
	default:
		return job, fmt.Errorf("post reference carries neither blog name nor blog id")
	}

	return job, nil
}

// postTask wraps a postJob as a pool task.
func (s *Scraper) postTask(job postJob) downloader.Task {
	return downloader.Task{
		ID:       job.postID,
		Category: job.taskCategory(),
		Run: func(ctx context.Context) error {
			err := s.processPost(ctx, job)
			if err != nil {
				s.tracker.AddFailure()
				return err
			}
			s.tracker.AddPost()
			return nil
		},
	}
}

// runBatches feeds the page batches through the worker pool.
func (s *Scraper) runBatches(ctx context.Context, batches [][]downloader.Task) (*Report, error) {
	pool := downloader.New(downloader.Options{
		Workers: map[downloader.Category]int{
			downloader.CategoryImage:   s.config.Download.PhotoWorkers,
			downloader.CategoryText:    s.config.Download.TextWorkers,
			downloader.CategoryComment: s.config.Download.CommentWorkers,
		},
		BatchDelay: s.config.RateLimit.BetweenBatchesDelay,
		Logger:     s.logger,
	})

	poolReport, err := pool.RunBatches(ctx, batches)
	report := &Report{}
	report.Merge(poolReport)
	return report, err
}

// processPost fetches, resolves and persists one post: raw JSON, the
// text rendition with comments, the comment bundle, and the photos.
func (s *Scraper) processPost(ctx context.Context, job postJob) error {
	var detail *lofter.PostDetailResponse
	var err error
	if job.blogDomain != "" {
		detail, err = s.client.FetchPostDetail(ctx, job.blogID, job.blogDomain, job.postID)
	} else {
		detail, err = s.client.FetchPostDetailByID(ctx, job.postID, job.blogID)
	}
	if err != nil {
		return fmt.Errorf("post detail fetch failed: %w", err)
	}

	content, err := s.resolver.Resolve(detail)
	if err != nil {
		return err
	}

	base := storage.PostFilename(content.Title, content.Author.BlogNickName, job.prefix)

	jsonDir, err := s.store.Dir(job.mode, job.name, "json")
	if err != nil {
		return err
	}
	if err := s.store.SaveJSON(filepath.Join(jsonDir, base+".json"), detail); err != nil {
		return err
	}

	var threads []*lofter.CommentThread
	if job.wantComments {
		threads, err = s.fetchComments(ctx, job, content, base)
		if err != nil {
			// The post text is still written, without the comment section.
			s.logger.WithError(err).WarnWithFields("comment fetch failed", map[string]interface{}{
				"post_id": job.postID,
			})
		}
	}

	textDir, err := s.store.Dir(job.mode, job.name)
	if err != nil {
		return err
	}
	if err := s.store.SaveText(filepath.Join(textDir, base+".txt"), renderPostText(content, threads)); err != nil {
		return err
	}

	if job.wantPhotos {
		if err := s.downloadMedia(ctx, job, content, base); err != nil {
			return err
		}
	}

	return nil
}

// fetchComments assembles the post's comment tree and writes the
// formatted bundle next to the post files.
func (s *Scraper) fetchComments(ctx context.Context, job postJob, content *lofter.ResolvedContent, base string) ([]*lofter.CommentThread, error) {
	blogID := content.Author.BlogID
	if blogID == 0 {
		blogID = job.blogID
	}

	tree, err := s.comments.FetchTree(ctx, content.PostID, blogID)
	if err != nil {
		return nil, err
	}
	for _, failure := range tree.Failures {
		s.logger.WithError(failure.Err).WarnWithFields("comment thread incomplete", map[string]interface{}{
			"post_id":    job.postID,
			"comment_id": failure.CommentID,
		})
	}
	s.tracker.AddComments(tree.TotalComments())

	if len(tree.Threads) > 0 {
		commentsDir, err := s.store.Dir(job.mode, job.name, "comments")
		if err != nil {
			return tree.Threads, err
		}
		bundle := filepath.Join(commentsDir, base+"_comments.txt")
		if err := s.store.SaveText(bundle, lofter.FormatThreads(tree.Threads)); err != nil {
			return tree.Threads, err
		}
	}

	return tree.Threads, nil
}

// downloadMedia downloads every resolved media reference of a post.
// Failed images are collected so one bad link does not drop the rest.
func (s *Scraper) downloadMedia(ctx context.Context, job postJob, content *lofter.ResolvedContent, base string) error {
	if len(content.Media) == 0 {
		return nil
	}

	photoDir, err := s.store.Dir(job.mode, job.name, "photo")
	if err != nil {
		return err
	}

	var failures []error
	saved := 0
	for _, ref := range content.Media {
		if ref.Unresolved || ref.URL == "" {
			continue
		}

		dest := filepath.Join(photoDir, storage.ImageFilename(base, ref.Index+1, imageExt(ref.URL)))
		if s.store.IsDownloaded(dest) {
			continue
		}

		data, err := s.client.DownloadPhoto(ctx, ref.URL)
		if err != nil {
			logger.LogDownload(job.postID, filepath.Base(dest), false, err)
			failures = append(failures, fmt.Errorf("image %d: %w", ref.Index+1, err))
			continue
		}
		if err := s.store.Save(dest, bytes.NewReader(data)); err != nil {
			logger.LogDownload(job.postID, filepath.Base(dest), false, err)
			failures = append(failures, fmt.Errorf("image %d: %w", ref.Index+1, err))
			continue
		}
		logger.LogDownload(job.postID, filepath.Base(dest), true, nil)
		saved++
	}
	s.tracker.AddImages(saved)

	if len(failures) > 0 {
		return errors.Join(failures...)
	}
	return nil
}

// imageExt picks the file extension from a media URL, defaulting to jpg.
func imageExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".jpg"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return ext
	default:
		return ".jpg"
	}
}

// Package scraper orchestrates Lofter crawls.
//
// A Scraper ties the API client, the content resolver, the comment
// fetcher, the worker pool and the storage manager together into five
// crawl modes: tag, collection, single post, comments-only, and the
// caller's subscription list. Each mode returns a Report with per-item
// failure causes; a single broken post never aborts a run.
package scraper

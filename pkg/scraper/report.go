package scraper

import "lofterscraper/internal/downloader"

// ItemFailure records one item that could not be crawled and why.
type ItemFailure struct {
	ItemID string
	Cause  error
}

// Report summarizes a crawl run. Attempted counts every item the run
// tried to process; Failed carries the per-item causes so a caller can
// tell a network outage from a gated post.
type Report struct {
	Attempted int
	Succeeded int
	Failed    []ItemFailure
}

// Merge folds a worker pool report into this one.
func (r *Report) Merge(pool *downloader.Report) {
	if pool == nil {
		return
	}
	r.Attempted += pool.Attempted
	r.Succeeded += pool.Succeeded
	for _, f := range pool.Failed {
		r.Failed = append(r.Failed, ItemFailure{ItemID: f.TaskID, Cause: f.Err})
	}
}

func (r *Report) recordSuccess() {
	r.Attempted++
	r.Succeeded++
}

func (r *Report) recordFailure(itemID string, cause error) {
	r.Attempted++
	r.Failed = append(r.Failed, ItemFailure{ItemID: itemID, Cause: cause})
}

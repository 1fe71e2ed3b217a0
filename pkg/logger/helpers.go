package logger

// LogDownload logs a download outcome for one media item
func LogDownload(postID, itemKey string, success bool, err error) {
	fields := map[string]interface{}{
		"post_id": postID,
		"item":    itemKey,
		"success": success,
	}

	l := GetLogger().WithFields(fields)
	if err != nil {
		l.WithError(err).Error("Download failed")
	} else {
		l.Debug("Download completed")
	}
}

// LogCrawlSummary logs the final tally for a crawl run
func LogCrawlSummary(mode string, attempted, succeeded, failed int) {
	GetLogger().InfoWithFields("Crawl finished", map[string]interface{}{
		"mode":      mode,
		"attempted": attempted,
		"succeeded": succeeded,
		"failed":    failed,
	})
}

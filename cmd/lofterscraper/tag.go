package main

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lofterscraper/pkg/lofter"
)

var (
	// Tag command flags
	tagListType  string
	tagTimeLimit string
	tagOutputDir string
	skipComments bool
	skipPhotos   bool
)

// tagCmd represents the tag command
var tagCmd = &cobra.Command{
	Use:   "tag <name>",
	Short: "Download all posts carrying a tag",
	Long: `Download every post carrying a tag, page by page, until the feed
is exhausted.

Each post is saved as readable text (with its comment threads), as raw
JSON, and its photos are downloaded to the photo directory. Posts that
fail are reported at the end without stopping the rest of the crawl.

The --type flag selects the feed ordering:
  new    most recent posts first
  total  all-time ranking
  date   daily ranking
  week   weekly ranking
  month  monthly ranking

With --type month, the --month flag narrows results to one month.`,
	Example: `  # Crawl the newest posts of a tag
  lofterscraper tag 摄影 --type new

  # Crawl a month of the monthly ranking
  lofterscraper tag 摄影 --type month --month 202406

  # Text only, skipping photos and comments
  lofterscraper tag 摄影 --skip-photos --skip-comments`,
	Args: cobra.ExactArgs(1),
	Run:  runTag,
}

func init() {
	rootCmd.AddCommand(tagCmd)

	tagCmd.Flags().StringVarP(&tagListType, "type", "t", lofter.TagListNew, "feed ordering (new, total, date, week, month)")
	tagCmd.Flags().StringVar(&tagTimeLimit, "month", "", "restrict to one month, yyyyMM (only with --type month)")
	tagCmd.Flags().StringVarP(&tagOutputDir, "output", "o", "", "output directory (default: from configuration)")
	tagCmd.Flags().BoolVar(&skipComments, "skip-comments", false, "do not fetch comment threads")
	tagCmd.Flags().BoolVar(&skipPhotos, "skip-photos", false, "do not download photos")
}

func validListType(listType string) bool {
	switch listType {
	case lofter.TagListNew, lofter.TagListTotal, lofter.TagListDate, lofter.TagListWeek, lofter.TagListMonth:
		return true
	}
	return false
}

func runTag(cmd *cobra.Command, args []string) {
	term := console()
	tag := strings.TrimSpace(args[0])

	if !validListType(tagListType) {
		term.Errorf("invalid feed ordering %q (expected new, total, date, week or month)", tagListType)
		os.Exit(1)
	}
	if tagTimeLimit != "" && tagListType != lofter.TagListMonth {
		term.Errorf("--month only applies with --type month")
		os.Exit(1)
	}

	cfg := loadConfig(term)
	if tagOutputDir != "" {
		cfg.Output.BaseDirectory = tagOutputDir
	}
	if skipComments {
		cfg.Download.SkipComments = true
	}
	if skipPhotos {
		cfg.Download.SkipPhotos = true
	}

	term.Infof("Tag", "%s (%s)", tag, tagListType)

	s := newScraper(cfg, term)
	report, err := s.CrawlTag(context.Background(), tag, tagListType, tagTimeLimit)
	if err != nil {
		term.Errorf("tag crawl failed: %v", err)
		os.Exit(1)
	}

	printReport(term, "tag", s, report)
}

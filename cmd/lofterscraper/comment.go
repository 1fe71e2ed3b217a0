package main

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lofterscraper/pkg/lofter"
)

var commentOutputDir string

// commentCmd represents the comment command
var commentCmd = &cobra.Command{
	Use:   "comment <post-url>",
	Short: "Download only the comment threads of a post",
	Long: `Download the full comment tree of one post without its photos.

Hot comments and regular comments are merged, second-level replies are
fetched when the post embeds fewer replies than exist, and the threads
are saved as readable text under comment/<blog-name>/.`,
	Example: `  lofterscraper comment https://someblog.lofter.com/post/1a2b3c_4d5e6f`,
	Args:    cobra.ExactArgs(1),
	Run:     runComment,
}

func init() {
	rootCmd.AddCommand(commentCmd)

	commentCmd.Flags().StringVarP(&commentOutputDir, "output", "o", "", "output directory (default: from configuration)")
}

func runComment(cmd *cobra.Command, args []string) {
	term := console()

	ref, err := lofter.ParsePostURL(strings.TrimSpace(args[0]))
	if err != nil {
		term.Errorf("invalid post URL: %v", err)
		os.Exit(1)
	}

	cfg := loadConfig(term)
	if commentOutputDir != "" {
		cfg.Output.BaseDirectory = commentOutputDir
	}

	term.Infof("Comments for", "%s", args[0])

	s := newScraper(cfg, term)
	report, err := s.CrawlCommentsOnly(context.Background(), ref)
	if err != nil {
		term.Errorf("comment crawl failed: %v", err)
		os.Exit(1)
	}

	printReport(term, "comment", s, report)
}

package main

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lofterscraper/pkg/lofter"
)

var blogOutputDir string

// blogCmd represents the blog command
var blogCmd = &cobra.Command{
	Use:   "blog <post-url>",
	Short: "Download a single blog post",
	Long: `Download one blog post from its URL.

Both URL forms are accepted:

  https://<blog>.lofter.com/post/<blogid>_<postid>
  https://www.lofter.com/front/blog/view.do?blogId=<n>&postId=<n>

The post is saved under blog/<blog-name>/ with its comment threads,
raw JSON, and photos.`,
	Example: `  lofterscraper blog https://someblog.lofter.com/post/1a2b3c_4d5e6f

  # Without comments
  lofterscraper blog https://someblog.lofter.com/post/1a2b3c_4d5e6f --skip-comments`,
	Args: cobra.ExactArgs(1),
	Run:  runBlog,
}

func init() {
	rootCmd.AddCommand(blogCmd)

	blogCmd.Flags().StringVarP(&blogOutputDir, "output", "o", "", "output directory (default: from configuration)")
	blogCmd.Flags().BoolVar(&skipComments, "skip-comments", false, "do not fetch comment threads")
	blogCmd.Flags().BoolVar(&skipPhotos, "skip-photos", false, "do not download photos")
}

func runBlog(cmd *cobra.Command, args []string) {
	term := console()

	ref, err := lofter.ParsePostURL(strings.TrimSpace(args[0]))
	if err != nil {
		term.Errorf("invalid post URL: %v", err)
		os.Exit(1)
	}

	cfg := loadConfig(term)
	if blogOutputDir != "" {
		cfg.Output.BaseDirectory = blogOutputDir
	}

	term.Infof("Post", "%s", args[0])

	s := newScraper(cfg, term)
	report, err := s.CrawlBlogPost(context.Background(), ref, !skipComments, !skipPhotos)
	if err != nil {
		term.Errorf("post crawl failed: %v", err)
		os.Exit(1)
	}

	printReport(term, "blog", s, report)
}

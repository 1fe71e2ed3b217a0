package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"lofterscraper/pkg/scraper"
)

var subscriptionOutputDir string

// subscriptionCmd represents the subscription command
var subscriptionCmd = &cobra.Command{
	Use:   "subscription",
	Short: "Export the list of collections you subscribe to",
	Long: `Export your subscribed collections as a readable summary and as JSON.

This command needs a credential because the subscription list belongs
to an account. Store one with 'lofterscraper auth set' or put it in the
configuration file.`,
	Example: `  lofterscraper subscription

  lofterscraper subscription --output ./backup`,
	Args: cobra.NoArgs,
	Run:  runSubscription,
}

func init() {
	rootCmd.AddCommand(subscriptionCmd)

	subscriptionCmd.Flags().StringVarP(&subscriptionOutputDir, "output", "o", "", "output directory (default: from configuration)")
}

func runSubscription(cmd *cobra.Command, args []string) {
	term := console()

	cfg := loadConfig(term)
	if subscriptionOutputDir != "" {
		cfg.Output.BaseDirectory = subscriptionOutputDir
	}

	s := newScraper(cfg, term)
	report, err := s.CrawlSubscriptions(context.Background())
	if err != nil {
		if errors.Is(err, scraper.ErrNoActiveCredential) {
			term.Errorf("no credential available")
			term.Infof("Hint", "store one with 'lofterscraper auth set'")
			os.Exit(1)
		}
		term.Errorf("subscription export failed: %v", err)
		os.Exit(1)
	}

	term.Successf("exported %d subscribed collections", report.Succeeded)
}

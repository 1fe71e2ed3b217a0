package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"lofterscraper/pkg/auth"
	"lofterscraper/pkg/config"
	"lofterscraper/pkg/logger"
	"lofterscraper/pkg/scraper"
	"lofterscraper/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lofterscraper",
	Short: "A Lofter content archiver for tags, collections, blogs and comments",
	Long: `Lofter Scraper is a command-line tool for archiving content from
Lofter (lofter.com), NetEase's blogging platform.

It can crawl:
  - Tag feeds (by date, week, month, or total ranking)
  - Collections, preserving the collection order on disk
  - Individual blog posts from their URL
  - Comment threads of a post, including second-level replies
  - Your subscribed collections (requires a stored credential)

Posts are saved as readable text with their comment threads, as raw
JSON, and with their photos downloaded alongside.

Credentials are optional for public content but required for
subscriptions. Use 'lofterscraper auth set' to store one securely.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			logLevel = "error"
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: .lofterscraper.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	// Version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(`lofterscraper version {{.Version}}
Go version: %s
OS/Arch: %s/%s
`, runtime.Version(), runtime.GOOS, runtime.GOARCH))

	// Disable completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// console builds the output console shared by all commands.
func console() *ui.Console {
	return ui.NewConsole(os.Stdout, !noColor)
}

// loadConfig loads the configuration with the global flags applied.
func loadConfig(term *ui.Console) *config.Config {
	cfg, err := config.Load(configFile)
	if err != nil {
		term.Errorf("failed to load configuration: %v", err)
		os.Exit(1)
	}
	if logLevel != "info" {
		cfg.Logging.Level = logLevel
	}

	if err := logger.Initialize(logger.Options{Level: cfg.Logging.Level, File: cfg.Logging.File}); err != nil {
		term.Errorf("failed to initialize logger: %v", err)
		os.Exit(1)
	}

	return cfg
}

// buildCarrier assembles the credential carrier for a crawl. Config
// cookies win over stored credentials. A nil carrier means the crawl
// runs unauthenticated, which public endpoints accept.
func buildCarrier(cfg *config.Config, term *ui.Console) *auth.Carrier {
	active, err := auth.ParseKind(cfg.Lofter.ActiveCookie)
	if err != nil {
		term.Errorf("invalid active_cookie in configuration: %v", err)
		os.Exit(1)
	}

	if len(cfg.Lofter.Cookies) > 0 {
		values := make(map[auth.Kind]string, len(cfg.Lofter.Cookies))
		for name, value := range cfg.Lofter.Cookies {
			kind, err := auth.ParseKind(name)
			if err != nil {
				term.Errorf("invalid credential kind in configuration: %v", err)
				os.Exit(1)
			}
			values[kind] = value
		}
		carrier, err := auth.NewCarrier(values, active)
		if err != nil {
			term.Errorf("invalid credentials in configuration: %v", err)
			os.Exit(1)
		}
		logger.GetLogger().WithField("kind", string(active)).Info("using credentials from configuration")
		return carrier
	}

	manager, err := auth.NewManager()
	if err != nil {
		logger.GetLogger().WithError(err).Warn("credential manager unavailable, crawling unauthenticated")
		return nil
	}
	carrier, err := manager.Carrier(active)
	if err != nil {
		// No stored credential for the active kind; public crawls still work.
		return nil
	}
	logger.GetLogger().WithField("kind", string(active)).Info("using stored credentials")
	return carrier
}

// newScraper wires config and credentials into a ready Scraper.
func newScraper(cfg *config.Config, term *ui.Console) *scraper.Scraper {
	s, err := scraper.New(cfg, buildCarrier(cfg, term))
	if err != nil {
		term.Errorf("failed to initialize scraper: %v", err)
		os.Exit(1)
	}
	return s
}

// printReport renders a crawl report and exits non-zero when every
// attempted item failed.
func printReport(term *ui.Console, mode string, s *scraper.Scraper, report *scraper.Report) {
	logger.LogCrawlSummary(mode, report.Attempted, report.Succeeded, len(report.Failed))
	if report.Attempted > 0 {
		term.Infof("Progress", "%s", ui.Bar(report.Succeeded, report.Attempted))
	}
	term.Successf("crawl finished: %s", s.Tracker().Summary())
	if len(report.Failed) == 0 {
		return
	}

	term.Warnf("%d of %d items failed:", len(report.Failed), report.Attempted)
	for _, failure := range report.Failed {
		term.Warnf("  %s: %v", failure.ItemID, failure.Cause)
	}
	if report.Succeeded == 0 && report.Attempted > 0 {
		os.Exit(1)
	}
}

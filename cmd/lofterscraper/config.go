package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"lofterscraper/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage Lofter Scraper configuration files.

Configuration is loaded from (highest priority first):
  - Environment variables (LOFTER_*)
  - .env file
  - Configuration file (--config or .lofterscraper.yaml)
  - Default values`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with the defaults",
	Long: `Create a configuration file populated with the default values.

The file is created as '.lofterscraper.yaml' in the current directory
unless a different path is given with the --config flag. Edit it to
set your credentials and output directory.`,
	Run: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging all sources.

Credential values are masked.`,
	Run: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	term := console()

	configPath := configFile
	if configPath == "" {
		configPath = ".lofterscraper.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		term.Errorf("configuration file already exists: %s", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		term.Errorf("failed to create configuration file: %v", err)
		os.Exit(1)
	}

	term.Successf("configuration file created: %s", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Store a credential with 'lofterscraper auth set' (or add cookies to the file)")
	fmt.Println("2. Start crawling with 'lofterscraper tag <name>'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	term := console()

	cfg, err := config.Load(configFile)
	if err != nil {
		term.Errorf("failed to load configuration: %v", err)
		os.Exit(1)
	}

	// Mask credential values before printing
	display := *cfg
	if len(display.Lofter.Cookies) > 0 {
		masked := make(map[string]string, len(display.Lofter.Cookies))
		for name, value := range display.Lofter.Cookies {
			if len(value) > 8 {
				masked[name] = value[:4] + "..." + value[len(value)-4:]
			} else {
				masked[name] = "***"
			}
		}
		display.Lofter.Cookies = masked
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		term.Errorf("failed to format configuration: %v", err)
		os.Exit(1)
	}

	term.Headerf("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Environment variables (LOFTER_*)")
	fmt.Println("2. .env file")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (searched in standard locations)")
	}
	fmt.Println("4. Default values")
}

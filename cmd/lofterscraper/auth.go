package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"lofterscraper/pkg/auth"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Lofter credentials",
	Long: `Manage stored Lofter credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only fallback)

Four credential kinds are supported:
  Authorization            token issued to the mobile app
  LOFTER-PHONE-LOGIN-AUTH  token issued after phone-number login
  LOFTER_SESS              session cookie from the Lofter site
  NTES_SESS                NetEase-wide session cookie

Never share your credentials or config files!`,
}

// authSetCmd represents the auth set command
var authSetCmd = &cobra.Command{
	Use:   "set [kind]",
	Short: "Store a Lofter credential securely",
	Long: `Store a Lofter credential in the system keychain or encrypted file.

If no kind is given you will be shown the list of supported kinds to
choose from. The value is read without echoing.

Run 'lofterscraper auth guide' for help extracting the value from the
Lofter app or your browser.`,
	Example: `  # Interactive
  lofterscraper auth set

  # Store a phone-login token
  lofterscraper auth set LOFTER-PHONE-LOGIN-AUTH`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAuthSet,
}

// authShowCmd represents the auth show command
var authShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List stored credentials",
	Long:  `List all stored Lofter credentials with their values masked.`,
	Run:   runAuthShow,
}

// authDeleteCmd represents the auth delete command
var authDeleteCmd = &cobra.Command{
	Use:   "delete [kind]",
	Short: "Remove stored credentials",
	Long: `Remove a stored Lofter credential.

With --all, every stored credential is removed.`,
	Example: `  lofterscraper auth delete LOFTER-PHONE-LOGIN-AUTH

  lofterscraper auth delete --all`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAuthDelete,
}

// authGuideCmd represents the auth guide command
var authGuideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Show how to extract credentials from the Lofter app",
	Run: func(cmd *cobra.Command, args []string) {
		auth.ShowCredentialExtractionGuide()
	},
}

var deleteAll bool

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authShowCmd)
	authCmd.AddCommand(authDeleteCmd)
	authCmd.AddCommand(authGuideCmd)

	authDeleteCmd.Flags().BoolVar(&deleteAll, "all", false, "remove every stored credential")
}

func runAuthSet(cmd *cobra.Command, args []string) {
	out := console()

	manager, err := auth.NewManager()
	if err != nil {
		out.Errorf("failed to initialize credential manager: %v", err)
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)

	var kind auth.Kind
	if len(args) > 0 {
		kind, err = auth.ParseKind(args[0])
		if err != nil {
			out.Errorf("%v", err)
			os.Exit(1)
		}
	} else {
		fmt.Println("Select credential kind:")
		for i, k := range auth.AllKinds {
			fmt.Printf("  %d. %s\n", i+1, k)
		}
		fmt.Print("\nChoice: ")
		input, _ := reader.ReadString('\n')

		var choice int
		fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)
		if choice < 1 || choice > len(auth.AllKinds) {
			out.Errorf("invalid choice")
			os.Exit(1)
		}
		kind = auth.AllKinds[choice-1]
	}

	// Warn before overwriting an existing value
	if existing, _ := manager.Retrieve(kind); existing != nil {
		fmt.Printf("Credential %s already exists. Replace it? (y/N): ", kind)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Printf("%s value (hidden as you type): ", kind)
	value, err := readSecret()
	if err != nil {
		out.Errorf("failed to read credential: %v", err)
		os.Exit(1)
	}
	value = strings.TrimSuffix(strings.TrimSpace(value), ";")
	if value == "" {
		out.Errorf("credential value is empty")
		os.Exit(1)
	}

	cred := &auth.Credential{
		Kind:         kind,
		Value:        value,
		LastModified: time.Now(),
	}
	if err := manager.Store(cred); err != nil {
		out.Errorf("failed to store credential: %v", err)
		os.Exit(1)
	}

	out.Successf("credential stored: %s", kind)
	fmt.Println("\nTry it out:")
	fmt.Println("  lofterscraper subscription")
}

func runAuthShow(cmd *cobra.Command, args []string) {
	out := console()

	manager, err := auth.NewManager()
	if err != nil {
		out.Errorf("failed to initialize credential manager: %v", err)
		os.Exit(1)
	}

	creds, err := manager.List()
	if err != nil {
		out.Errorf("failed to list credentials: %v", err)
		os.Exit(1)
	}
	if len(creds) == 0 {
		out.Infof("No stored credentials", "use 'lofterscraper auth set' to add one")
		return
	}

	out.Headerf("Stored Credentials")
	fmt.Println()
	for i, cred := range creds {
		sanitized := auth.SanitizeCredential(cred)
		fmt.Printf("%d. Kind: %s\n", i+1, sanitized.Kind)
		fmt.Printf("   Value: %s\n", sanitized.Value)
		if !sanitized.LastModified.IsZero() {
			fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}
}

func runAuthDelete(cmd *cobra.Command, args []string) {
	out := console()

	manager, err := auth.NewManager()
	if err != nil {
		out.Errorf("failed to initialize credential manager: %v", err)
		os.Exit(1)
	}

	if deleteAll {
		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Remove ALL credentials? This cannot be undone! (yes/N): ")
		confirm, _ := reader.ReadString('\n')
		if strings.TrimSpace(confirm) != "yes" {
			return
		}
		if err := manager.DeleteAll(); err != nil {
			out.Errorf("failed to remove credentials: %v", err)
			os.Exit(1)
		}
		out.Successf("all credentials removed")
		return
	}

	if len(args) == 0 {
		out.Errorf("specify a credential kind or --all")
		os.Exit(1)
	}

	kind, err := auth.ParseKind(args[0])
	if err != nil {
		out.Errorf("%v", err)
		os.Exit(1)
	}
	if err := manager.Delete(kind); err != nil {
		out.Errorf("failed to remove credential: %v", err)
		os.Exit(1)
	}
	out.Successf("credential removed: %s", kind)
}

// readSecret reads a value from stdin without echoing.
func readSecret() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(secret), nil
		}
	}

	// Fallback for piped input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

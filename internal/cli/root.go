package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/alechenninger/trustreg/internal/config"
)

// NewRootCmd creates the root command for trustreg
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "trustreg",
		Short: "trustreg - DID trust registry",
		Long: `trustreg answers Trust Registry Query Protocol questions about
issuers and verifiers registered under an ecosystem:
  1. DID resolution (did:web, did:key, did:indy; placeholders for ion, ethr, sov)
  2. Delegation chains from root issuers to their delegates
  3. Authorization and recognition queries
  4. Registry entries signed with the registry's Ed25519 key

Configuration precedence (highest to lowest):
  1. Command-line flags
  2. Environment variables (TRUSTREG_*, __ separates nesting)
  3. Configuration file`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags available to all commands
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path (default: $TRUSTREG_CONFIG or ./trustreg.yaml)")
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		NewResolveCmd(),
		NewValidateCmd(),
		NewDelegateCmd(),
		NewAuthorizeCmd(),
		NewRecognizeCmd(),
		NewEntryCmd(),
		NewDIDDocumentCmd(),
	)

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadProvider loads configuration (file + env vars + flags) and returns a
// provider that builds components on demand. Logs go to the command's stderr.
func loadProvider(cmd *cobra.Command) (*config.Provider, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = os.Getenv("TRUSTREG_CONFIG")
	}
	if configPath == "" {
		configPath = "./trustreg.yaml"
	}

	loader, err := config.NewLoaderWithFlags(configPath, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg, err := loader.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config.NewProvider(cfg, config.WithLogOutput(cmd.ErrOrStderr())), nil
}

// withProvider runs fn with a loaded provider and closes it afterwards
func withProvider(cmd *cobra.Command, fn func(ctx context.Context, p *config.Provider) error) error {
	p, err := loadProvider(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, p)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alechenninger/trustreg/internal/config"
	"github.com/alechenninger/trustreg/internal/did"
)

// NewResolveCmd creates the resolve command
func NewResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <did>",
		Short: "Resolve a DID to its document",
		Long: `Resolve a DID and print the resolution result.

Methods without a resolver, and did:web or did:indy documents that cannot be
fetched, resolve to a placeholder document marked "placeholder": true.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProvider(cmd, func(ctx context.Context, p *config.Provider) error {
				resolver, err := p.Resolver()
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), resolver.Resolve(ctx, args[0]))
			})
		},
	}
}

// NewValidateCmd creates the validate command
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <did>",
		Short: "Check a DID's syntax and method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := did.ValidateFormat(args[0])
			if err := writeJSON(cmd.OutOrStdout(), v); err != nil {
				return err
			}
			if !v.Valid {
				return fmt.Errorf("invalid DID %s", args[0])
			}
			return nil
		},
	}
}

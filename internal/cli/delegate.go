package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alechenninger/trustreg/internal/config"
	"github.com/alechenninger/trustreg/internal/delegation"
	"github.com/alechenninger/trustreg/internal/store"
)

// NewDelegateCmd creates the delegate command group
func NewDelegateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delegate",
		Short: "Manage delegations between issuers",
	}
	cmd.AddCommand(
		newDelegateCreateCmd(),
		newDelegateListCmd(),
		newDelegateRevokeCmd(),
		newDelegateChainCmd(),
	)
	return cmd
}

func newDelegateCreateCmd() *cobra.Command {
	var (
		req        delegation.CreateRequest
		validUntil string
	)

	cmd := &cobra.Command{
		Use:   "create <root-did> <delegate-did>",
		Short: "Delegate issuing authority from a root issuer",
		Long: `Record a delegation from an active root issuer. The delegate is registered
as an issuer in the root's registry if it is not one already.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.RootDID, req.DelegateDID = args[0], args[1]
			if validUntil != "" {
				t, err := time.Parse(time.RFC3339, validUntil)
				if err != nil {
					return fmt.Errorf("invalid --valid-until: %w", err)
				}
				req.ValidUntil = &t
			}

			return withProvider(cmd, func(ctx context.Context, p *config.Provider) error {
				engine, err := p.DelegationEngine(ctx)
				if err != nil {
					return err
				}
				d, err := engine.Create(ctx, req)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), d)
			})
		},
	}

	cmd.Flags().StringVar(&req.Proof, "proof", "", "delegation proof from the root issuer")
	cmd.Flags().StringSliceVar(&req.Scope.CredentialTypes, "credential-types", nil, "credential types in scope")
	cmd.Flags().StringSliceVar(&req.Scope.Jurisdictions, "jurisdictions", nil, "jurisdictions in scope")
	cmd.Flags().StringSliceVar(&req.Scope.Contexts, "contexts", nil, "contexts in scope")
	cmd.Flags().StringVar(&validUntil, "valid-until", "", "RFC3339 expiry of the delegation")
	cmd.MarkFlagRequired("proof")

	return cmd
}

func newDelegateListCmd() *cobra.Command {
	var (
		status string
		page   store.Page
	)

	cmd := &cobra.Command{
		Use:   "list <root-did>",
		Short: "List a root issuer's delegations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter *store.DelegationStatus
			switch s := store.DelegationStatus(status); s {
			case "":
			case store.DelegationActive, store.DelegationRevoked:
				filter = &s
			default:
				return fmt.Errorf("invalid --status %q (expected active or revoked)", status)
			}

			return withProvider(cmd, func(ctx context.Context, p *config.Provider) error {
				engine, err := p.DelegationEngine(ctx)
				if err != nil {
					return err
				}
				list, err := engine.ListDelegates(ctx, args[0], filter, page)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), list)
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only delegations with this status: active, revoked")
	cmd.Flags().IntVar(&page.Limit, "limit", store.DefaultPageLimit, "page size")
	cmd.Flags().IntVar(&page.Offset, "offset", 0, "page offset")

	return cmd
}

func newDelegateRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <root-did> <delegate-did>",
		Short: "Revoke an active delegation",
		Long:  `Revoke an active delegation. Delegations further down the chain are not revoked.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProvider(cmd, func(ctx context.Context, p *config.Provider) error {
				engine, err := p.DelegationEngine(ctx)
				if err != nil {
					return err
				}
				d, err := engine.Revoke(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), d)
			})
		},
	}
}

func newDelegateChainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chain <issuer-did>",
		Short: "Show the delegation chain from an issuer up to its root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProvider(cmd, func(ctx context.Context, p *config.Provider) error {
				engine, err := p.DelegationEngine(ctx)
				if err != nil {
					return err
				}
				chain, err := engine.Chain(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), chain)
			})
		},
	}
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/alechenninger/trustreg/internal/config"
	"github.com/alechenninger/trustreg/internal/entry"
)

// NewEntryCmd creates the entry command group
func NewEntryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Sign and verify registry entries",
	}
	cmd.AddCommand(newEntrySignCmd(), newEntryVerifyCmd())
	return cmd
}

func newEntrySignCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "sign <issuer|verifier|registry> <did|id>",
		Short:     "Build and sign an entry for an issuer, verifier, or registry",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"issuer", "verifier", "registry"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProvider(cmd, func(ctx context.Context, p *config.Provider) error {
				svc, err := p.EntryService(ctx)
				if err != nil {
					return err
				}

				var e entry.Entry
				switch args[0] {
				case "issuer":
					e, err = svc.BuildIssuerEntry(ctx, args[1])
				case "verifier":
					e, err = svc.BuildVerifierEntry(ctx, args[1])
				case "registry":
					e, err = svc.BuildRegistryEntry(ctx, args[1])
				default:
					return fmt.Errorf("unknown entry kind %q (expected issuer, verifier or registry)", args[0])
				}
				if err != nil {
					return err
				}

				signed, err := svc.Sign(ctx, e)
				if err != nil {
					return err
				}
				out, err := entry.MarshalIndent(signed)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			})
		},
	}
}

func newEntryVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file|->",
		Short: "Verify a signed entry against the registry key",
		Long:  `Verify a signed entry read from a file, or from stdin when the argument is "-".`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if args[0] == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read entry: %w", err)
			}

			return withProvider(cmd, func(ctx context.Context, p *config.Provider) error {
				svc, err := p.EntryService(ctx)
				if err != nil {
					return err
				}
				result := svc.VerifyJSON(ctx, raw)
				if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
				if !result.Valid {
					return fmt.Errorf("entry signature is not valid")
				}
				return nil
			})
		},
	}
}

// NewDIDDocumentCmd creates the did-document command
func NewDIDDocumentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "did-document",
		Short: "Print the registry's DID document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProvider(cmd, func(ctx context.Context, p *config.Provider) error {
				svc, err := p.EntryService(ctx)
				if err != nil {
					return err
				}
				doc, err := svc.DIDDocument(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), doc)
			})
		},
	}
}

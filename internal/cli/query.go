package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/alechenninger/trustreg/internal/config"
	"github.com/alechenninger/trustreg/internal/trqp"
)

// queryFlags are shared by authorize and recognize
type queryFlags struct {
	req  trqp.Request
	time string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.req.EntityID, "entity", "", "DID of the entity the query is about")
	cmd.Flags().StringVar(&f.req.AuthorityID, "authority", "", "ecosystem DID of the registry answering")
	cmd.Flags().StringVar(&f.req.Action, "action", "", "action, e.g. issue or verify")
	cmd.Flags().StringVar(&f.req.Resource, "resource", "", "resource, e.g. a credential type")
	cmd.Flags().StringVar(&f.time, "time", "", "RFC3339 instant to evaluate at (default: now)")
	cmd.MarkFlagRequired("entity")
	cmd.MarkFlagRequired("authority")
}

func (f *queryFlags) request() *trqp.Request {
	req := f.req
	if f.time != "" {
		t := f.time
		req.Context = &trqp.RequestContext{Time: &t}
	}
	return &req
}

// NewAuthorizeCmd creates the authorize command
func NewAuthorizeCmd() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "authorize",
		Short: "Ask whether an entity is authorized for an action on a resource",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProvider(cmd, func(ctx context.Context, p *config.Provider) error {
				evaluator, err := p.Evaluator(ctx)
				if err != nil {
					return err
				}
				resp, err := evaluator.Authorize(ctx, flags.request())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

// NewRecognizeCmd creates the recognize command
func NewRecognizeCmd() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "recognize",
		Short: "Ask whether a registry recognizes another entity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProvider(cmd, func(ctx context.Context, p *config.Provider) error {
				evaluator, err := p.Evaluator(ctx)
				if err != nil {
					return err
				}
				resp, err := evaluator.Recognize(ctx, flags.request())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

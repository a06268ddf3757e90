package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wippyai/wrap-client/uri"
	"github.com/wippyai/wrap-client/wrap"
)

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <uri>",
		Short: "Walk the resolver chain and print every hop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			u, err := uri.Parse(args[0])
			if err != nil {
				return err
			}
			res, err := a.client.Resolve(cmd.Context(), u)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, s := range res.History {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.URI, s.Tier, s.Outcome, s.Source)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if !res.Found() {
				fmt.Fprintf(cmd.OutOrStdout(), "not found: %s\n", res.URI)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "resolved: %s (%s)\n", res.URI, wrap.WrapperKind(res.Wrapper))
			return nil
		},
	}
}

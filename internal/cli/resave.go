package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/coasters/internal/app"
)

func newResaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resave",
		Short: "Load every coaster and write all files again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := appOptions()
			opts.AutosaveInterval = 0
			return openApp(opts, func(a *app.Application) error {
				if err := a.Save(true); err != nil {
					return err
				}
				return a.Do(func(wc *app.WorldContext) error {
					fmt.Fprintf(cmd.OutOrStdout(), "saved %d coasters\n", len(wc.World.Coasters()))
					return nil
				})
			})
		},
	}
}

package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/coasters/internal/app"
	"github.com/dshills/coasters/internal/script"
)

func newRunCmd() *cobra.Command {
	var (
		user    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run <script.lua>",
		Short: "Drive an edit session from a Lua script and save the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return openApp(appOptions(), func(a *app.Application) error {
				if err := script.NewDriver(a, user, script.WithTimeout(timeout)).RunFile(cmd.Context(), args[0]); err != nil {
					return err
				}
				return a.Save(false)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "script", "user the session runs as")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort the script after this long, 0 for no limit")
	return cmd
}

package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/dshills/coasters/internal/app"
	"github.com/dshills/coasters/internal/track"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [coaster]",
		Short: "Print a summary of the world or of one coaster",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := appOptions()
			opts.AutosaveInterval = 0
			return openApp(opts, func(a *app.Application) error {
				return a.Do(func(wc *app.WorldContext) error {
					if len(args) == 1 {
						return inspectCoaster(cmd.OutOrStdout(), wc.World, args[0])
					}
					return inspectWorld(cmd.OutOrStdout(), wc)
				})
			})
		},
	}
}

func inspectWorld(out io.Writer, wc *app.WorldContext) error {
	st := wc.Stats()
	fmt.Fprintf(out, "world %s: %d coasters, %d nodes, %d connections, %d junctions\n",
		wc.World.Name(), st.Coasters, st.Nodes, st.Connections, st.Junctions)
	fmt.Fprintf(out, "index: %d sections, %d rail cells, %d block cells\n",
		st.Index.Sections, st.Index.RailsCells, st.Index.BlockCells)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COASTER\tNODES\tJUNCTIONS")
	for _, c := range wc.World.Coasters() {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", c.Name(), c.Len(), countJunctions(c))
	}
	return tw.Flush()
}

func inspectCoaster(out io.Writer, w *track.World, name string) error {
	c := w.Coaster(name)
	if c == nil {
		return fmt.Errorf("%w: %s", track.ErrCoasterNotFound, name)
	}
	fmt.Fprintf(out, "coaster %s: %d nodes, %d junctions\n", c.Name(), c.Len(), countJunctions(c))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tPOSITION\tLINKS")
	for _, n := range c.Nodes() {
		p := n.Position()
		fmt.Fprintf(tw, "%d\t%.3f %.3f %.3f\t%v\n", n.ID(), p.X(), p.Y(), p.Z(), n.Neighbors())
	}
	return tw.Flush()
}

func countJunctions(c *track.Coaster) int {
	return lo.CountBy(c.Nodes(), (*track.Node).IsJunction)
}

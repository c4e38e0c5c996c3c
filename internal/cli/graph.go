package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pumped-fn/ripple"
	"github.com/pumped-fn/ripple/extensions"
)

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "graph <sheet.hcl> [entry]",
		Short: "Draw the dependency tree of a sheet entry",
		Long: `Graph draws what an entry depends on, down to the sources, with the current
value and level of every node. Without an entry every entry nothing else in the
sheet depends on is drawn.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, g, err := c.openSheet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer disposeGraph(loggerFromContext(cmd.Context()), g)
			defer s.Close()

			names := args[1:]
			if len(names) == 0 {
				for _, name := range s.Names() {
					info, err := s.Info(name)
					if err != nil {
						return err
					}
					if len(info.Successors()) == 0 {
						names = append(names, name)
					}
				}
			}

			for i, name := range names {
				info, err := s.Info(name)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(c.out)
				}
				fmt.Fprintln(c.out, extensions.DrawDependencies(info, depth, kindMarker))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&depth, "depth", "d", 16, "maximum tree depth")
	return cmd
}

func kindMarker(n ripple.NodeInfo) string {
	return fmt.Sprintf(" (%s)", n.Kind())
}

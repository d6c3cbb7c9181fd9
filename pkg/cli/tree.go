package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

func newTreeCommand() *Command {
	cmd := &Command{
		Name:        "tree",
		Description: "Print the navigation tree from a running server",
		Flags:       flag.NewFlagSet("tree", flag.ContinueOnError),
	}

	server := cmd.Flags.String("server", defaultServer, "conceptdoc server URL")
	node := cmd.Flags.String("node", "root", "Node to list (an entity id, or root)")
	depth := cmd.Flags.Int("depth", 1, "Number of levels to descend")
	asJSON := cmd.Flags.Bool("json", false, "Output the first level as JSON")
	timeout := cmd.Flags.Duration("timeout", 30*time.Second, "Request timeout")

	cmd.Run = func(args []string) error {
		if err := cmd.parse(args); err != nil {
			return err
		}
		if *depth < 1 {
			return fmt.Errorf("depth must be at least 1")
		}

		c := newClient(*server, *timeout)
		ctx := context.Background()

		if *asJSON {
			nodes, err := c.treeLevel(ctx, *node)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(nodes)
		}

		w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTOPIC")
		if err := printLevel(ctx, w, c, *node, 0, *depth); err != nil {
			return err
		}
		return w.Flush()
	}
	return cmd
}

func printLevel(ctx context.Context, w io.Writer, c *client, node string, level, depth int) error {
	nodes, err := c.treeLevel(ctx, node)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		fmt.Fprintf(w, "%s\t%s%s\n", n.ID, strings.Repeat("  ", level), n.Text)
		if !n.Leaf && level+1 < depth {
			if err := printLevel(ctx, w, c, n.ID, level+1, depth); err != nil {
				return err
			}
		}
	}
	return nil
}

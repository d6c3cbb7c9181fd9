package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/platinummonkey/conceptdoc/pkg/browser"
	"github.com/platinummonkey/conceptdoc/pkg/entity"
	"github.com/platinummonkey/conceptdoc/pkg/highlight"
	"github.com/platinummonkey/conceptdoc/pkg/render"
	"github.com/platinummonkey/conceptdoc/pkg/storage"
)

func newRenderCommand() *Command {
	cmd := &Command{
		Name:        "render",
		Description: "Render a topic from local fixture files without a server",
		Flags:       flag.NewFlagSet("render", flag.ContinueOnError),
	}

	dataDir := cmd.Flags.String("data", "./data", "Directory of YAML fixture files")
	id := cmd.Flags.Int64("id", 0, "Entity id")
	style := cmd.Flags.String("style", highlight.DefaultStyle, "Syntax highlighting style")
	page := cmd.Flags.Bool("page", false, "Wrap the topic in the standalone page shell")
	css := cmd.Flags.Bool("css", false, "Print the highlighting stylesheet and exit")

	cmd.Run = func(args []string) error {
		if err := cmd.parse(args); err != nil {
			return err
		}

		h := highlight.NewChroma(*style)
		if *css {
			sheet, err := h.CSS()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(stdout, sheet)
			return err
		}

		if !isSet(cmd.Flags, "id") {
			return fmt.Errorf("id is required")
		}

		store, err := storage.NewFileSystemStorage(*dataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		e, err := store.Get(context.Background(), *id)
		if err != nil {
			return fmt.Errorf("failed to load entity %d: %w", *id, err)
		}

		body := render.NewEngine(render.WithHighlighter(h)).Render(e)
		if *page {
			return browser.WritePage(stdout, entity.Label(e.Concept, e.Name()), body)
		}
		_, err = fmt.Fprint(stdout, body)
		return err
	}
	return cmd
}

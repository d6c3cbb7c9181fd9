package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/platinummonkey/conceptdoc/pkg/async"
	"github.com/platinummonkey/conceptdoc/pkg/browser"
	"github.com/platinummonkey/conceptdoc/pkg/entity"
	"github.com/platinummonkey/conceptdoc/pkg/highlight"
	"github.com/platinummonkey/conceptdoc/pkg/observability"
	"github.com/platinummonkey/conceptdoc/pkg/render"
	"github.com/platinummonkey/conceptdoc/pkg/storage"
)

func newExportCommand() *Command {
	cmd := &Command{
		Name:        "export",
		Description: "Render every entity in the fixture files to static HTML pages",
		Flags:       flag.NewFlagSet("export", flag.ContinueOnError),
	}

	dataDir := cmd.Flags.String("data", "./data", "Directory of YAML fixture files")
	outDir := cmd.Flags.String("out", "./site", "Output directory")
	style := cmd.Flags.String("style", highlight.DefaultStyle, "Syntax highlighting style")
	workers := cmd.Flags.Int("workers", 4, "Number of pages rendered in parallel")
	timeout := cmd.Flags.Duration("timeout", 10*time.Second, "Timeout per page")

	cmd.Run = func(args []string) error {
		if err := cmd.parse(args); err != nil {
			return err
		}

		records, err := storage.ReadRecords(*dataDir)
		if err != nil {
			return err
		}
		graph, err := entity.NewGraph(records)
		if err != nil {
			return fmt.Errorf("invalid fixtures in %s: %w", *dataDir, err)
		}
		source := storage.NewSnapshot(graph)

		h := highlight.NewChroma(*style)
		engine := render.NewEngine(render.WithHighlighter(h))

		sheet, err := h.CSS()
		if err != nil {
			return err
		}
		cssPath := filepath.Join(*outDir, filepath.FromSlash(browser.HighlightCSSPath))
		if err := os.MkdirAll(filepath.Dir(cssPath), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(cssPath, []byte(sheet), 0644); err != nil {
			return fmt.Errorf("failed to write stylesheet: %w", err)
		}

		ids := make([]int64, len(records))
		for i, rec := range records {
			ids[i] = rec.ID
		}

		logger := observability.NewLogger(observability.WarnLevel, os.Stderr)
		errs := async.Batch(context.Background(), ids, *workers, "page export", *timeout, logger,
			func(ctx context.Context, id int64) error {
				e, err := source.Get(ctx, id)
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				if err := browser.WritePage(&buf, entity.Label(e.Concept, e.Name()), engine.Render(e)); err != nil {
					return fmt.Errorf("entity %d: %w", id, err)
				}
				path := filepath.Join(*outDir, strconv.FormatInt(id, 10)+".html")
				if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
					return fmt.Errorf("entity %d: %w", id, err)
				}
				return nil
			})
		if len(errs) > 0 {
			return fmt.Errorf("failed to export %d of %d pages: %w", len(errs), len(ids), errors.Join(errs...))
		}

		fmt.Fprintf(stdout, "Exported %d pages to %s\n", len(ids), *outDir)
		return nil
	}
	return cmd
}

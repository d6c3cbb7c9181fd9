package cli

import (
	"bytes"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/conceptdoc/pkg/browser"
	"github.com/platinummonkey/conceptdoc/pkg/observability"
	"github.com/platinummonkey/conceptdoc/pkg/render"
	"github.com/platinummonkey/conceptdoc/pkg/storage"
)

const fixturesYAML = `
- id: 1
  concept: function
  attributes:
    name: add
    description: Adds two numbers
  links:
    return: [2]
- id: 2
  concept: type
  attributes:
    name: int
`

// captureOutput redirects command output for the rest of the test
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = old })
	return &buf
}

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "entities.yaml"), []byte(fixturesYAML), 0644))
	return dir
}

// startServer runs a browser server over the test fixtures
func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := storage.NewFileSystemStorage(writeFixtures(t))
	require.NoError(t, err)

	srv, err := browser.NewServer(store, render.NewEngine(), browser.Options{
		Logger: observability.NewLogger(observability.ErrorLevel, io.Discard),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()

	assert.Equal(t, "conceptdoc-cli", root.Name)
	assert.NotNil(t, root.Flags)

	expected := []string{"tree", "topic", "page", "render", "export", "import", "publish"}
	for _, name := range expected {
		assert.Contains(t, root.Subcommands, name)
		assert.Equal(t, name, root.Subcommands[name].Name)
		assert.NotEmpty(t, root.Subcommands[name].Description)
	}
	assert.Len(t, root.Subcommands, len(expected))
}

func TestExecuteArgs_Usage(t *testing.T) {
	for _, args := range [][]string{nil, {"-h"}, {"--help"}, {"help"}} {
		out := captureOutput(t)
		require.NoError(t, NewRootCommand().ExecuteArgs(args))

		output := out.String()
		assert.Contains(t, output, "Usage: conceptdoc-cli <command> [args]")
		assert.Contains(t, output, "Commands:")
		assert.Less(t, bytes.Index(out.Bytes(), []byte("  import")), bytes.Index(out.Bytes(), []byte("  tree")))
	}
}

func TestExecuteArgs_UnknownCommand(t *testing.T) {
	err := NewRootCommand().ExecuteArgs([]string{"push"})
	require.Error(t, err)
	assert.Equal(t, "unknown command: push", err.Error())
}

func TestExecuteArgs_UnknownFlag(t *testing.T) {
	err := NewRootCommand().ExecuteArgs([]string{"tree", "-bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tree:")
}

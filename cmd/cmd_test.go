// File: cmd/cmd_test.go
package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/editbridge/internal/config"
)

func TestServeCmdFlags(t *testing.T) {
	cmd := newServeCmd()
	for _, name := range []string{"target", "html", "listen", "headless"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}

func TestOpenDocumentFromHTMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path,
		[]byte(`<html><body><h1 id="title">Hello</h1></body></html>`), 0o644))

	cfg := config.NewDefaultConfig()
	doc, cleanup, err := openDocument(context.Background(), cfg, "", path, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	nodes, err := doc.Query("#title")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Hello", nodes[0].Text())

	vp := doc.Viewport()
	assert.Equal(t, float64(cfg.Browser.ViewportWidth), vp.Width)
}

func TestOpenDocumentMissingFile(t *testing.T) {
	cfg := config.NewDefaultConfig()
	_, _, err := openDocument(context.Background(), cfg, "", "/does/not/exist.html", zap.NewNop())
	assert.Error(t, err)
}

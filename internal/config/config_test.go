package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "fileName", cfg.Markers.FileName)
	assert.Equal(t, "footer", cfg.Markers.Footer)
	assert.Equal(t, ".", cfg.Output.Dir)
	assert.Equal(t, "html", cfg.Output.Format)
	assert.Equal(t, 30*time.Second, cfg.Browser.Timeout)
	assert.Equal(t, uint(320), cfg.Output.PreviewWidth)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagesnap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
browser:
  stealth: true
  timeout: 45s
markers:
  footer: colophon
output:
  dir: snaps
  format: markdown
  sanitize: true
publish:
  kindle_bottom: tmpl/bottomkin.html
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Browser.Stealth)
	assert.Equal(t, 45*time.Second, cfg.Browser.Timeout)
	assert.Equal(t, "fileName", cfg.Markers.FileName)
	assert.Equal(t, "colophon", cfg.Markers.Footer)
	assert.Equal(t, "snaps", cfg.Output.Dir)
	assert.Equal(t, "markdown", cfg.Output.Format)
	assert.True(t, cfg.Output.Sanitize)
	assert.Equal(t, "tmpl/bottomkin.html", cfg.Publish.KindleBottom)
}

func TestLoadFile_EnvOverride(t *testing.T) {
	t.Setenv("PAGESNAP_OUT", "/tmp/snaps")
	t.Setenv("PAGESNAP_BROWSER_BIN", "/usr/bin/chromium")

	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/snaps", cfg.Output.Dir)
	assert.Equal(t, "/usr/bin/chromium", cfg.Browser.Bin)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("browser: [oops"), 0o644))
	_, err = LoadFile(bad)
	assert.Error(t, err)
}

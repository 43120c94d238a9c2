package publish

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReplaceExt(t *testing.T) {
	assert.Equal(t, "ch1.html", ReplaceExt("ch1.md", ".html"))
	assert.Equal(t, "a.b.html", ReplaceExt("a.b.md", ".html"))
	assert.Equal(t, "README", ReplaceExt("README", ".html"))
}

func TestConfigure(t *testing.T) {
	in := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(in, "img"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(in, "css"), 0o755))

	cfg, err := Configure([]string{in}, false)
	require.NoError(t, err)
	assert.Equal(t, in, cfg.OutDir)
	assert.Empty(t, cfg.SubDirs)

	cfg, err = Configure([]string{in, "html"}, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(in, "html"), cfg.OutDir)
	assert.Empty(t, cfg.SubDirs)

	cfg, err = Configure([]string{in, "img", "css", "html"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(in, "img"), filepath.Join(in, "css")}, cfg.SubDirs)
	assert.True(t, cfg.Kindle)
}

func TestConfigure_Missing(t *testing.T) {
	_, err := Configure(nil, false)
	assert.Error(t, err)

	_, err = Configure([]string{filepath.Join(t.TempDir(), "nope")}, false)
	assert.ErrorIs(t, err, ErrNotExist)

	in := t.TempDir()
	_, err = Configure([]string{in, "js", "html"}, false)
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestPublish(t *testing.T) {
	in := t.TempDir()
	writeFile(t, filepath.Join(in, "ch1.md"), "# Chapter 1\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n```go\nfmt.Println()\n```\n")
	writeFile(t, filepath.Join(in, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(in, "img", "sub", "logo.svg"), "<svg/>")
	writeFile(t, filepath.Join(in, "deep", "skip.md"), "# not top level")

	cfg, err := Configure([]string{in, "img", "html"}, false)
	require.NoError(t, err)
	p, err := New(*cfg)
	require.NoError(t, err)

	pages, err := p.Publish(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(in, "html", "ch1.html")}, pages)

	data, err := os.ReadFile(pages[0])
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<h1>Chapter 1</h1>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, `<code class="language-go">`)
	assert.NotContains(t, out, `id="fileName"`)
	assert.NotContains(t, out, `id="footer"`)

	svg, err := os.ReadFile(filepath.Join(in, "html", "img", "sub", "logo.svg"))
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(svg))
}

func TestPublish_Kindle(t *testing.T) {
	in := t.TempDir()
	writeFile(t, filepath.Join(in, "intro.md"), "Hello *world*\n")

	cfg, err := Configure([]string{in}, true)
	require.NoError(t, err)
	p, err := New(*cfg)
	require.NoError(t, err)

	pages, err := p.Publish(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 1)

	data, err := os.ReadFile(pages[0])
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `<a id="fileName">intro.html</a>`)
	assert.Contains(t, out, `<div id="footer">`)
	assert.Less(t, strings.Index(out, "<em>world</em>"), strings.Index(out, `id="fileName"`))
}

func TestNew_TemplateOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "top.html"), "<html><body><header>custom</header>")
	writeFile(t, filepath.Join(dir, "page.md"), "text\n")

	p, err := New(Config{InDir: dir, OutDir: dir, Top: filepath.Join(dir, "top.html")})
	require.NoError(t, err)

	out, err := p.BuildPage(filepath.Join(dir, "page.md"), dir)
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<html><body><header>custom</header><p>text</p>"))

	_, err = New(Config{Bottom: filepath.Join(dir, "missing.html")})
	assert.Error(t, err)
}

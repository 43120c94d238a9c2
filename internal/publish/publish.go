// Package publish converts a directory of Markdown files into standalone HTML
// pages.
//
// Each page is the top template, the rendered Markdown, and the bottom
// template concatenated in that order. In kindle mode every page also gets a
// filename marker naming its own output file, and the kindle bottom template
// carries the footer marker, so the published pages can be fed straight to
// the snapshot saver.
package publish

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/*.html
var templates embed.FS

// ErrNotExist is returned when a configured input path is missing.
var ErrNotExist = errors.New("publish: path does not exist")

// Config describes one publishing run.
type Config struct {
	InDir   string
	OutDir  string
	SubDirs []string
	Kindle  bool

	// Top and Bottom name template files that replace the embedded ones.
	Top    string
	Bottom string

	Logger *slog.Logger
}

// Configure builds a Config from positional arguments:
//
//	IN-dir [subdir...] [OUT-dir]
//
// With a single argument OUT-dir is IN-dir. Otherwise the last argument is
// OUT-dir and everything between is a subdir. Subdirs and OUT-dir are
// resolved against IN-dir unless absolute. IN-dir and every subdir must exist.
func Configure(args []string, kindle bool) (*Config, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("publish: IN-dir required")
	}

	cfg := &Config{InDir: args[0], Kindle: kindle}
	if err := mustExist(cfg.InDir); err != nil {
		return nil, err
	}

	if len(args) == 1 {
		cfg.OutDir = cfg.InDir
	} else {
		cfg.OutDir = resolve(cfg.InDir, args[len(args)-1])
	}

	if len(args) > 2 {
		for _, a := range args[1 : len(args)-1] {
			sub := resolve(cfg.InDir, a)
			if err := mustExist(sub); err != nil {
				return nil, err
			}
			cfg.SubDirs = append(cfg.SubDirs, sub)
		}
	}
	return cfg, nil
}

// Publisher renders Markdown files with a fixed pair of templates.
type Publisher struct {
	cfg    Config
	top    string
	bottom string
	md     goldmark.Markdown
}

// New loads the templates named by cfg.
func New(cfg Config) (*Publisher, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	topName, bottomName := "templates/top.html", "templates/bottom.html"
	if cfg.Kindle {
		topName, bottomName = "templates/topkin.html", "templates/bottomkin.html"
	}
	top, err := loadTemplate(cfg.Top, topName)
	if err != nil {
		return nil, err
	}
	bottom, err := loadTemplate(cfg.Bottom, bottomName)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.Table),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	return &Publisher{cfg: cfg, top: top, bottom: bottom, md: md}, nil
}

// Publish copies the subdirs into OUT-dir (when it differs from IN-dir) and
// converts every *.md file directly under IN-dir. It returns the paths of the
// pages written.
func (p *Publisher) Publish(ctx context.Context) ([]string, error) {
	log := p.cfg.Logger

	if filepath.Clean(p.cfg.InDir) != filepath.Clean(p.cfg.OutDir) {
		if err := os.MkdirAll(p.cfg.OutDir, 0o755); err != nil {
			return nil, fmt.Errorf("publish: mkdir: %w", err)
		}
		for _, sub := range p.cfg.SubDirs {
			dst := filepath.Join(p.cfg.OutDir, filepath.Base(sub))
			if err := copyDir(sub, dst); err != nil {
				return nil, fmt.Errorf("publish: copy %s: %w", sub, err)
			}
			log.Debug("publish: copied", "from", sub, "to", dst)
		}
	}

	entries, err := os.ReadDir(p.cfg.InDir)
	if err != nil {
		return nil, fmt.Errorf("publish: read %s: %w", p.cfg.InDir, err)
	}

	var pages []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		out, err := p.BuildPage(filepath.Join(p.cfg.InDir, e.Name()), p.cfg.OutDir)
		if err != nil {
			return pages, err
		}
		log.Info("publish: page", "src", e.Name(), "out", out)
		pages = append(pages, out)
	}
	return pages, nil
}

// BuildPage renders one Markdown file into dstDir and returns the output path.
func (p *Publisher) BuildPage(mdPath, dstDir string) (string, error) {
	src, err := os.ReadFile(mdPath)
	if err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}

	var body bytes.Buffer
	if err := p.md.Convert(src, &body); err != nil {
		return "", fmt.Errorf("publish: convert %s: %w", mdPath, err)
	}

	name := ReplaceExt(filepath.Base(mdPath), ".html")
	var suffix string
	if p.cfg.Kindle {
		suffix = `<a id="fileName">` + name + `</a>`
	}

	var page strings.Builder
	page.WriteString(p.top)
	page.Write(body.Bytes())
	page.WriteString(suffix)
	page.WriteString(p.bottom)

	out := filepath.Join(dstDir, name)
	if err := os.WriteFile(out, []byte(page.String()), 0o644); err != nil {
		return "", fmt.Errorf("publish: write: %w", err)
	}
	return out, nil
}

var extRe = regexp.MustCompile(`\.[^.]+$`)

// ReplaceExt swaps the last extension of name for ext. A name without an
// extension is returned unchanged.
func ReplaceExt(name, ext string) string {
	return extRe.ReplaceAllLiteralString(name, ext)
}

func loadTemplate(override, embedded string) (string, error) {
	if override != "" {
		data, err := os.ReadFile(override)
		if err != nil {
			return "", fmt.Errorf("publish: template: %w", err)
		}
		return string(data), nil
	}
	data, err := templates.ReadFile(embedded)
	if err != nil {
		return "", fmt.Errorf("publish: template: %w", err)
	}
	return string(data), nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func mustExist(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotExist, path)
		}
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode().Perm())
	})
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/v0xg/pagesnap/internal/browser"
	"github.com/v0xg/pagesnap/internal/config"
	"github.com/v0xg/pagesnap/internal/export"
	"github.com/v0xg/pagesnap/internal/hook"
	"github.com/v0xg/pagesnap/internal/htmldoc"
	"github.com/v0xg/pagesnap/internal/publish"
	"github.com/v0xg/pagesnap/internal/snapshot"
)

var (
	configPath string
	output     string
	format     string
	profile    string
	timeout    time.Duration
	direct     bool
	sanitize   bool
	preview    bool
	stealth    bool
	verbose    bool
	kindle     bool
	snap       bool
	useBrowser bool
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "pagesnap",
		Short: "Save rendered pages without their marker elements",
		Long: `pagesnap loads a page, waits for it to finish loading, removes the
#fileName and #footer markers and saves the rest of the document under the
name held by #fileName.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML configuration file")
	pf.StringVarP(&output, "out", "o", "", "Output directory (default: from config or .)")
	pf.StringVar(&format, "format", "", "Output format: html, markdown (default: html)")
	pf.BoolVar(&sanitize, "sanitize", false, "Strip scripts and other active content from the snapshot")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")

	saveCmd := &cobra.Command{
		Use:   "save <url|file>...",
		Short: "Render pages in headless Chromium and save them once loaded",
		Example: `  pagesnap save https://example.com/ch1.html
  pagesnap save --direct --sanitize -o out html/*.html`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSave,
	}
	addBrowserFlags(saveCmd)
	saveCmd.Flags().BoolVar(&direct, "direct", false, "Write the file from Go instead of through a browser download")
	saveCmd.Flags().BoolVar(&preview, "preview", false, "Also write a PNG thumbnail of each page")

	stripCmd := &cobra.Command{
		Use:   "strip <file.html>...",
		Short: "Remove the markers from static HTML files without a browser",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runStrip,
	}

	publishCmd := &cobra.Command{
		Use:   "publish IN-dir [subdir...] [OUT-dir]",
		Short: "Convert the Markdown files in IN-dir to HTML pages",
		Long: `publish converts every *.md file directly under IN-dir into an HTML page
and copies each subdir into OUT-dir. Subdirs and OUT-dir are relative to
IN-dir unless absolute. With one argument OUT-dir is IN-dir.`,
		Example: "  pagesnap publish ~/md/proj1 img css js html",
		Args:    cobra.MinimumNArgs(1),
		RunE:    runPublish,
	}
	addBrowserFlags(publishCmd)
	publishCmd.Flags().BoolVar(&kindle, "kindle", false, "Use the kindle templates and add a filename marker to every page")
	publishCmd.Flags().BoolVar(&snap, "snapshot", false, "Save a stripped snapshot of every published page")
	publishCmd.Flags().BoolVar(&useBrowser, "browser", false, "Render snapshots in headless Chromium instead of parsing them statically")

	rootCmd.AddCommand(saveCmd, stripCmd, publishCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addBrowserFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&profile, "profile", "", "Chrome/Chromium profile directory for authenticated sessions (close browser first)")
	cmd.Flags().BoolVar(&stealth, "stealth", false, "Open pages with stealth evasions applied")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Page load timeout (default: 30s)")
}

// loadConfig reads the config file and lets explicitly set flags win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("out") {
		cfg.Output.Dir = output
	}
	if flags.Changed("format") {
		cfg.Output.Format = format
	}
	if flags.Changed("sanitize") {
		cfg.Output.Sanitize = sanitize
	}
	if flags.Changed("direct") {
		cfg.Output.Direct = direct
	}
	if flags.Changed("preview") {
		cfg.Output.Preview = preview
	}
	if flags.Changed("profile") {
		cfg.Browser.Profile = profile
	}
	if flags.Changed("stealth") {
		cfg.Browser.Stealth = stealth
	}
	if flags.Changed("timeout") && timeout > 0 {
		cfg.Browser.Timeout = timeout
	}

	logVerbose("Configuration")
	logVerbose("  out: %s", cfg.Output.Dir)
	logVerbose("  format: %s (sanitize: %v)", cfg.Output.Format, cfg.Output.Sanitize)
	logVerbose("  markers: #%s #%s", cfg.Markers.FileName, cfg.Markers.Footer)
	return cfg, nil
}

func newSaver(cfg *config.Config, domain string) (*snapshot.Saver, error) {
	transform, err := export.Transform(export.TransformOptions{
		Sanitize: cfg.Output.Sanitize,
		Format:   cfg.Output.Format,
		Domain:   domain,
	})
	if err != nil {
		return nil, err
	}
	return snapshot.New(snapshot.Options{
		FileNameID: cfg.Markers.FileName,
		FooterID:   cfg.Markers.Footer,
		Transform:  transform,
		Logger:     slog.Default(),
	}), nil
}

func launchBrowser(ctx context.Context, cfg *config.Config) (*browser.Browser, error) {
	fmt.Printf("→ Launching browser... ")
	b, err := browser.Launch(ctx, browser.Options{
		Width:      cfg.Browser.Width,
		Height:     cfg.Browser.Height,
		Timeout:    cfg.Browser.Timeout,
		Settle:     cfg.Browser.Settle,
		Bin:        cfg.Browser.Bin,
		ProfileDir: cfg.Browser.Profile,
		Stealth:    cfg.Browser.Stealth,
		Logger:     slog.Default(),
	})
	if err != nil {
		fmt.Println("failed")
		return nil, err
	}
	fmt.Println("done")
	return b, nil
}

func runSave(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	b, err := launchBrowser(ctx, cfg)
	if err != nil {
		return fmt.Errorf("browser launch failed: %w", err)
	}
	defer b.Close()

	for _, target := range args {
		if err := saveInBrowser(ctx, b, cfg, target, cfg.Output.Dir); err != nil {
			return err
		}
	}
	return nil
}

// saveInBrowser opens target, registers the load hook and saves the page
// once it fires.
func saveInBrowser(ctx context.Context, b *browser.Browser, cfg *config.Config, target, outDir string) error {
	pageURL, err := toURL(target)
	if err != nil {
		return err
	}
	saver, err := newSaver(cfg, pageURL)
	if err != nil {
		return err
	}

	fmt.Printf("→ Saving %s... ", target)
	page, err := b.Open(ctx, pageURL)
	if err != nil {
		fmt.Println("failed")
		return fmt.Errorf("open failed: %w", err)
	}
	defer page.Close()

	var dl interface {
		snapshot.Downloader
		LastPath() string
	}
	if cfg.Output.Direct {
		dl = &export.FileDownloader{Dir: outDir}
	} else {
		dl = &browser.AnchorDownloader{Page: page, Dir: outDir}
	}

	var res *snapshot.Result
	err = hook.New().OnLoad(ctx, page, func(ctx context.Context) error {
		var err error
		res, err = saver.Save(ctx, page, dl)
		return err
	})
	if err != nil {
		fmt.Println("failed")
		return fmt.Errorf("save %s failed: %w", target, err)
	}
	if res == nil {
		fmt.Printf("skipped (no #%s)\n", cfg.Markers.FileName)
		return nil
	}
	fmt.Printf("done (%s, %s)\n", dl.LastPath(), humanize.Bytes(uint64(res.Size)))

	if cfg.Output.Preview {
		path := filepath.Join(outDir, res.FileName+".png")
		size, err := page.Preview(ctx, path, cfg.Output.PreviewWidth)
		if err != nil {
			return fmt.Errorf("preview failed: %w", err)
		}
		fmt.Printf("  preview %s (%s)\n", path, humanize.Bytes(uint64(size)))
	}
	return nil
}

func runStrip(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	for _, path := range args {
		if err := stripFile(ctx, cfg, path, cfg.Output.Dir); err != nil {
			return err
		}
	}
	return nil
}

// stripFile runs the saver over a statically parsed file.
func stripFile(ctx context.Context, cfg *config.Config, path, outDir string) error {
	saver, err := newSaver(cfg, "")
	if err != nil {
		return err
	}

	fmt.Printf("→ Stripping %s... ", path)
	doc, err := htmldoc.Open(path)
	if err != nil {
		fmt.Println("failed")
		return err
	}

	dl := &export.FileDownloader{Dir: outDir}
	var res *snapshot.Result
	err = hook.New().OnLoad(ctx, doc, func(ctx context.Context) error {
		var err error
		res, err = saver.Save(ctx, doc, dl)
		return err
	})
	if err != nil {
		fmt.Println("failed")
		return fmt.Errorf("strip %s failed: %w", path, err)
	}
	if res == nil {
		fmt.Printf("skipped (no #%s)\n", cfg.Markers.FileName)
		return nil
	}
	fmt.Printf("done (%s, %s)\n", dl.LastPath(), humanize.Bytes(uint64(res.Size)))
	return nil
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	pcfg, err := publish.Configure(args, kindle)
	if err != nil {
		return err
	}
	pcfg.Logger = slog.Default()
	pcfg.Top, pcfg.Bottom = cfg.Publish.Top, cfg.Publish.Bottom
	if kindle {
		pcfg.Top, pcfg.Bottom = cfg.Publish.KindleTop, cfg.Publish.KindleBottom
	}

	logVerbose("  in: %s", pcfg.InDir)
	logVerbose("  out: %s", pcfg.OutDir)
	for _, sub := range pcfg.SubDirs {
		logVerbose("  sub: %s", sub)
	}

	fmt.Printf("→ Publishing %s... ", pcfg.InDir)
	pub, err := publish.New(*pcfg)
	if err != nil {
		fmt.Println("failed")
		return err
	}
	pages, err := pub.Publish(ctx)
	if err != nil {
		fmt.Println("failed")
		return fmt.Errorf("publish failed: %w", err)
	}
	fmt.Printf("done (%d pages)\n", len(pages))

	if !snap {
		return nil
	}

	snapDir := filepath.Join(pcfg.OutDir, "snapshot")
	if cmd.Flags().Changed("out") || os.Getenv("PAGESNAP_OUT") != "" {
		snapDir = cfg.Output.Dir
	}

	if !useBrowser {
		for _, page := range pages {
			if err := stripFile(ctx, cfg, page, snapDir); err != nil {
				return err
			}
		}
		return nil
	}

	b, err := launchBrowser(ctx, cfg)
	if err != nil {
		return fmt.Errorf("browser launch failed: %w", err)
	}
	defer b.Close()
	for _, page := range pages {
		if err := saveInBrowser(ctx, b, cfg, page, snapDir); err != nil {
			return err
		}
	}
	return nil
}

// toURL turns a local path into a file:// URL and passes URLs through.
func toURL(target string) (string, error) {
	for _, scheme := range []string{"http://", "https://", "file://", "data:", "about:"} {
		if strings.HasPrefix(target, scheme) {
			return target, nil
		}
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("target %s: %w", target, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

func logVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}

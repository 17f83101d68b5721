package exportchromium

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-report/export"
	"golang.org/x/image/draw"
)

const (
	defaultWidthPx = 718
	defaultTimeout = 20 * time.Second
)

var browserCandidates = []string{
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
}

// Rasterizer renders sanitized header HTML to a PNG sized to the page width.
type Rasterizer struct {
	BrowserPath string
	Headless    bool
	Timeout     time.Duration
	Args        []string
	FontFamily  string

	lookPath func(string) (string, error)
}

// NewRasterizer returns a headless rasterizer using the first browser found
// on PATH.
func NewRasterizer() *Rasterizer {
	return &Rasterizer{Headless: true, Timeout: defaultTimeout}
}

// Available reports whether a browser binary can be launched.
func (r *Rasterizer) Available(context.Context) bool {
	if r == nil {
		return false
	}
	_, ok := r.browserPath()
	return ok
}

func (r *Rasterizer) browserPath() (string, bool) {
	if r.BrowserPath != "" {
		info, err := os.Stat(r.BrowserPath)
		if err == nil && !info.IsDir() {
			return r.BrowserPath, true
		}
		return "", false
	}
	lookPath := r.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	for _, candidate := range browserCandidates {
		if path, err := lookPath(candidate); err == nil {
			return path, true
		}
	}
	return "", false
}

// Rasterize screenshots the rendered fragment. The returned image is never
// wider than opts.WidthPx.
func (r *Rasterizer) Rasterize(ctx context.Context, fragment string, opts export.RasterOptions) (export.Raster, error) {
	if r == nil {
		return export.Raster{}, export.NewError(export.KindInternal, "chromium rasterizer is nil", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	path, ok := r.browserPath()
	if !ok {
		return export.Raster{}, export.NewError(export.KindRender, "chromium binary not found", nil)
	}

	width := opts.WidthPx
	if width <= 0 {
		width = defaultWidthPx
	}

	options := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	options = append(options,
		chromedp.ExecPath(path),
		chromedp.Flag("headless", r.Headless),
		chromedp.WindowSize(width, 600),
	)
	options = append(options, allocatorOptionsFromArgs(r.Args)...)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, options...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	execCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	defer cancelTimeout()

	document := wrapDocument(fragment, width, r.FontFamily)
	var shot []byte
	err := chromedp.Run(execCtx,
		chromedp.EmulateViewport(int64(width), 10),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, document).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Screenshot("#report-header", &shot, chromedp.ByQuery),
	)
	if err != nil {
		return export.Raster{}, export.NewError(export.KindRender, "chromium header raster failed", err)
	}

	return fitWidth(shot, width)
}

// wrapDocument embeds the fragment in a page whose content box matches the
// target width.
func wrapDocument(fragment string, width int, fontFamily string) string {
	if strings.TrimSpace(fontFamily) == "" {
		fontFamily = "Helvetica, Arial, sans-serif"
	}
	return fmt.Sprintf(`<!DOCTYPE html><html><head><meta charset="utf-8"><style>`+
		`html,body{margin:0;padding:0;background:#fff;}`+
		`#report-header{width:%dpx;font-family:%s;font-size:12px;color:#000;overflow:hidden;}`+
		`</style></head><body><div id="report-header">%s</div></body></html>`,
		width, html.EscapeString(fontFamily), fragment)
}

// fitWidth decodes a PNG screenshot and scales it down when it is wider than
// width, keeping the aspect ratio.
func fitWidth(data []byte, width int) (export.Raster, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return export.Raster{}, export.NewError(export.KindRender, "decode header screenshot", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return export.Raster{}, export.NewError(export.KindRender, "empty header screenshot", nil)
	}
	if bounds.Dx() <= width {
		return export.Raster{PNG: data, Width: bounds.Dx(), Height: bounds.Dy()}, nil
	}

	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return export.Raster{}, export.NewError(export.KindRender, "encode header raster", err)
	}
	return export.Raster{PNG: buf.Bytes(), Width: width, Height: height}, nil
}

func allocatorOptionsFromArgs(args []string) []chromedp.ExecAllocatorOption {
	options := make([]chromedp.ExecAllocatorOption, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimPrefix(strings.TrimSpace(arg), "--")
		if arg == "" {
			continue
		}
		if name, value, ok := strings.Cut(arg, "="); ok {
			options = append(options, chromedp.Flag(name, value))
			continue
		}
		options = append(options, chromedp.Flag(arg, true))
	}
	return options
}

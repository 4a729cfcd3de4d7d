package extract

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultRenderDPI is the rasterisation resolution used for OCR input.
const DefaultRenderDPI = 150

// PageSource reads a PDF on disk page by page.
type PageSource interface {
	PageCount(ctx context.Context, path string) (int, error)
	PageText(ctx context.Context, path string, page int) (string, error)
	RenderPage(ctx context.Context, path string, page int) ([]byte, error)
	PageImages(ctx context.Context, path string, page int) ([][]byte, error)
}

// Poppler implements PageSource with the poppler-utils command line tools
// (pdfinfo, pdftotext, pdftoppm, pdfimages).
type Poppler struct {
	// TempDir holds rendered pages and extracted images. Empty means os.TempDir.
	TempDir string

	runner Runner
	dpi    int
}

// NewPoppler creates a Poppler page source. A nil runner uses ExecRunner;
// dpi <= 0 selects DefaultRenderDPI.
func NewPoppler(runner Runner, dpi int) *Poppler {
	if runner == nil {
		runner = ExecRunner{}
	}
	if dpi <= 0 {
		dpi = DefaultRenderDPI
	}
	return &Poppler{runner: runner, dpi: dpi}
}

// PageCount parses the "Pages:" line of pdfinfo output.
func (p *Poppler) PageCount(ctx context.Context, path string) (int, error) {
	out, err := p.runner.Run(ctx, "pdfinfo", path)
	if err != nil {
		return 0, err
	}
	return parsePageCount(out)
}

func parsePageCount(info []byte) (int, error) {
	scanner := bufio.NewScanner(bytes.NewReader(info))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok || strings.TrimSpace(key) != "Pages" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, fmt.Errorf("parse page count %q: %w", value, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("pdfinfo output has no Pages line")
}

// PageText returns the digitally encoded text of one page.
func (p *Poppler) PageText(ctx context.Context, path string, page int) (string, error) {
	n := strconv.Itoa(page)
	out, err := p.runner.Run(ctx, "pdftotext", "-f", n, "-l", n, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// RenderPage rasterises one page to PNG.
func (p *Poppler) RenderPage(ctx context.Context, path string, page int) ([]byte, error) {
	dir, err := os.MkdirTemp(p.TempDir, "legalrag-render-*")
	if err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}
	defer os.RemoveAll(dir)

	n := strconv.Itoa(page)
	root := filepath.Join(dir, "page")
	if _, err := p.runner.Run(ctx, "pdftoppm", "-f", n, "-l", n, "-r", strconv.Itoa(p.dpi), "-png", "-singlefile", path, root); err != nil {
		return nil, err
	}
	return os.ReadFile(root + ".png")
}

// PageImages extracts the embedded raster images of one page, in page order.
func (p *Poppler) PageImages(ctx context.Context, path string, page int) ([][]byte, error) {
	dir, err := os.MkdirTemp(p.TempDir, "legalrag-images-*")
	if err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	defer os.RemoveAll(dir)

	n := strconv.Itoa(page)
	root := filepath.Join(dir, "img")
	if _, err := p.runner.Run(ctx, "pdfimages", "-f", n, "-l", n, "-png", path, root); err != nil {
		return nil, err
	}

	files, err := filepath.Glob(root + "-*")
	if err != nil {
		return nil, err
	}
	// pdfimages numbers files with zero padding, so lexical order is page order
	sort.Strings(files)

	images := make([][]byte, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read extracted image: %w", err)
		}
		images = append(images, data)
	}
	return images, nil
}

// Package extract turns uploaded documents into page-ordered text plus embedded images.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/sync/errgroup"

	"github.com/bull/legal-rag/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Result is the output of one extraction.
type Result struct {
	Text   string
	Pages  []domain.Page // PDF only
	Images []domain.EmbeddedImage
}

// Extractor dispatches on document type. PDF pages are processed in
// parallel; their text is always reassembled in page order.
type Extractor struct {
	pages   PageSource
	ocr     OCR
	workers int
	tempDir string
	md      goldmark.Markdown
	logger  *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWorkers bounds the number of pages processed concurrently.
func WithWorkers(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithTempDir sets where uploaded PDFs are spooled while being parsed.
func WithTempDir(dir string) Option {
	return func(e *Extractor) {
		e.tempDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Extractor. pages may be nil when PDF support is not
// installed; ocr may be nil to use digital text only.
func New(pages PageSource, ocr OCR, opts ...Option) *Extractor {
	e := &Extractor{
		pages:   pages,
		ocr:     ocr,
		workers: runtime.NumCPU(),
		md:      goldmark.New(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the full text and images of doc.
func (e *Extractor) Extract(ctx context.Context, doc domain.Document) (*Result, error) {
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: %s: empty document", domain.ErrExtraction, doc.Filename)
	}

	switch doc.Type {
	case domain.DocTypeText:
		return &Result{Text: decodeText(doc.Content)}, nil
	case domain.DocTypeMarkdown:
		return &Result{Text: e.markdownText(doc.Content)}, nil
	case domain.DocTypePDF:
		return e.extractPDF(ctx, doc)
	default:
		return nil, fmt.Errorf("%w: %s: unsupported document type %q", domain.ErrExtraction, doc.Filename, doc.Type)
	}
}

func (e *Extractor) extractPDF(ctx context.Context, doc domain.Document) (*Result, error) {
	if e.pages == nil {
		return nil, fmt.Errorf("%w: %s: pdf support is not configured", domain.ErrExtraction, doc.Filename)
	}

	path, cleanup, err := e.spool(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, doc.Filename, err)
	}
	defer cleanup()

	count, err := e.pages.PageCount(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, doc.Filename, err)
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: %s: document has no pages", domain.ErrExtraction, doc.Filename)
	}

	pages := make([]domain.Page, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range pages {
		g.Go(func() error {
			page, err := e.extractPage(gctx, path, i+1)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, doc.Filename, err)
	}

	result := &Result{Pages: pages}
	var b strings.Builder
	for _, page := range pages {
		b.WriteString(page.DigitalText)
		b.WriteString("\n")
		b.WriteString(page.OCRText)
		b.WriteString("\n")
		result.Images = append(result.Images, page.Images...)
	}
	result.Text = b.String()

	e.logger.Debug("Extracted pdf", "file", doc.Filename, "pages", count, "images", len(result.Images))
	return result, nil
}

// extractPage runs digital extraction, OCR and image extraction for one page.
// Both text paths always run; overlapping text is kept.
func (e *Extractor) extractPage(ctx context.Context, path string, number int) (domain.Page, error) {
	page := domain.Page{Number: number}

	digital, err := e.pages.PageText(ctx, path, number)
	if err != nil {
		return page, fmt.Errorf("text: %w", err)
	}
	page.DigitalText = digital

	if e.ocr != nil {
		img, err := e.pages.RenderPage(ctx, path, number)
		if err != nil {
			return page, fmt.Errorf("render: %w", err)
		}
		ocrText, err := e.ocr.Recognize(ctx, img)
		if err != nil {
			return page, fmt.Errorf("ocr: %w", err)
		}
		page.OCRText = ocrText
	}

	raw, err := e.pages.PageImages(ctx, path, number)
	if err != nil {
		return page, fmt.Errorf("images: %w", err)
	}
	for j, data := range raw {
		page.Images = append(page.Images, domain.EmbeddedImage{
			Page:  number,
			Index: j + 1,
			Data:  data,
		})
	}
	return page, nil
}

// spool writes content to a temp file. cleanup must run on every exit path.
func (e *Extractor) spool(content []byte) (string, func(), error) {
	f, err := os.CreateTemp(e.tempDir, "legalrag-upload-*.pdf")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("Failed to remove temp file", "path", f.Name(), "error", err)
		}
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), cleanup, nil
}

// decodeText decodes bytes as UTF-8, replacing invalid sequences rather than failing.
func decodeText(content []byte) string {
	content = bytes.TrimPrefix(content, utf8BOM)
	return strings.ToValidUTF8(string(content), "\uFFFD")
}

// markdownText flattens a markdown document to plain text, one line per block.
func (e *Extractor) markdownText(content []byte) string {
	src := []byte(decodeText(content))
	root := e.md.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			switch node := n.(type) {
			case *ast.Text:
				b.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte('\n')
				}
			case *ast.String:
				b.Write(node.Value)
			case *ast.AutoLink:
				b.Write(node.Label(src))
			case *ast.CodeBlock, *ast.FencedCodeBlock:
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(src))
				}
			}
			return ast.WalkContinue, nil
		}
		if n.Type() == ast.TypeBlock {
			b.WriteByte('\n')
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRunner is a test double for Runner.
type recordingRunner struct {
	output []byte
	err    error
	name   string
	args   []string
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.name = name
	r.args = args
	return r.output, r.err
}

func TestParsePageCount(t *testing.T) {
	info := []byte("Title:          Lease\nProducer:       LibreOffice\nPages:          12\nEncrypted:      no\n")

	n, err := parsePageCount(info)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = parsePageCount([]byte("Title: x\n"))
	assert.Error(t, err)

	_, err = parsePageCount([]byte("Pages: many\n"))
	assert.Error(t, err)
}

func TestPoppler_PageText(t *testing.T) {
	runner := &recordingRunner{output: []byte("clause text")}
	p := NewPoppler(runner, 0)

	got, err := p.PageText(context.Background(), "/tmp/doc.pdf", 4)
	require.NoError(t, err)

	assert.Equal(t, "clause text", got)
	assert.Equal(t, "pdftotext", runner.name)
	assert.Equal(t, []string{"-f", "4", "-l", "4", "-layout", "-enc", "UTF-8", "/tmp/doc.pdf", "-"}, runner.args)
}

func TestPoppler_PageCountError(t *testing.T) {
	runner := &recordingRunner{err: errors.New("pdfinfo: exit status 1")}
	p := NewPoppler(runner, 300)

	_, err := p.PageCount(context.Background(), "/tmp/doc.pdf")
	assert.Error(t, err)
	assert.Equal(t, 300, p.dpi)
}

func TestTesseract_Recognize(t *testing.T) {
	runner := &recordingRunner{output: []byte("scanned clause")}
	ocr := NewTesseract(runner, "")

	got, err := ocr.Recognize(context.Background(), []byte("png"))
	require.NoError(t, err)

	assert.Equal(t, "scanned clause", got)
	assert.Equal(t, "tesseract", runner.name)
	require.Len(t, runner.args, 4)
	assert.Equal(t, []string{"stdout", "-l", DefaultOCRLanguage}, runner.args[1:])
}

func TestPoppler_IntermediateFilesUseTempDir(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{}
	p := NewPoppler(runner, 0)
	p.TempDir = dir

	// The runner writes nothing, so reading the rendered page fails.
	_, err := p.RenderPage(context.Background(), "/tmp/doc.pdf", 2)
	assert.Error(t, err)
	assert.Equal(t, "pdftoppm", runner.name)
	out := runner.args[len(runner.args)-1]
	assert.True(t, strings.HasPrefix(out, dir+string(filepath.Separator)), out)

	images, err := p.PageImages(context.Background(), "/tmp/doc.pdf", 2)
	require.NoError(t, err)
	assert.Empty(t, images)
	out = runner.args[len(runner.args)-1]
	assert.True(t, strings.HasPrefix(out, dir+string(filepath.Separator)), out)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTesseract_InputUsesTempDir(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{output: []byte("text")}
	ocr := NewTesseract(runner, "deu")
	ocr.TempDir = dir

	_, err := ocr.Recognize(context.Background(), []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(runner.args[0]))
	assert.Equal(t, "deu", runner.args[3])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCheckTools(t *testing.T) {
	assert.Error(t, CheckTools("definitely-not-a-real-binary-legalrag"))
}

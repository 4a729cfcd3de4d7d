package extract

import (
	"context"
	"fmt"
	"os"
)

// DefaultOCRLanguage is the tesseract language pack used when none is configured.
const DefaultOCRLanguage = "eng"

// OCR turns a rasterised page image into text.
type OCR interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Tesseract implements OCR with the tesseract command line tool.
type Tesseract struct {
	// TempDir holds the image handed to tesseract. Empty means os.TempDir.
	TempDir string

	runner   Runner
	language string
}

// NewTesseract creates a tesseract OCR engine. A nil runner uses ExecRunner.
func NewTesseract(runner Runner, language string) *Tesseract {
	if runner == nil {
		runner = ExecRunner{}
	}
	if language == "" {
		language = DefaultOCRLanguage
	}
	return &Tesseract{runner: runner, language: language}
}

// Recognize writes the image to a temp file and reads tesseract's stdout.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	f, err := os.CreateTemp(t.TempDir, "legalrag-ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("create ocr input: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(image); err != nil {
		f.Close()
		return "", fmt.Errorf("write ocr input: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close ocr input: %w", err)
	}

	out, err := t.runner.Run(ctx, "tesseract", f.Name(), "stdout", "-l", t.language)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Package source loads documents from local directories and GitHub repositories.
package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bull/legal-rag/internal/domain"
)

// DefaultExtensions are the file types the extractor understands.
var DefaultExtensions = []string{".pdf", ".txt", ".text", ".md", ".markdown"}

func hasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// isHidden reports whether any element of p starts with a dot.
func isHidden(p string) bool {
	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		if len(part) > 1 && strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}

// LoadDir reads every file under dir whose extension is in exts, walking
// subdirectories in lexical order. Hidden files and directories are skipped.
// A nil exts means DefaultExtensions.
func LoadDir(dir string, exts []string) ([]domain.Document, error) {
	if exts == nil {
		exts = DefaultExtensions
	}

	var docs []domain.Document
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != dir && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !hasExtension(p, exts) {
			return nil
		}

		doc, err := LoadFile(p)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", dir, err)
	}
	return docs, nil
}

// LoadFile reads one file into a Document named after its base name.
func LoadFile(p string) (domain.Document, error) {
	content, err := os.ReadFile(p)
	if err != nil {
		return domain.Document{}, err
	}
	return domain.NewDocument(filepath.Base(p), content), nil
}

// Package domain holds the data model shared by the ingestion and retrieval pipeline.
package domain

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
)

// DocType is the declared type of an uploaded document.
type DocType string

const (
	DocTypeUnknown  DocType = ""
	DocTypePDF      DocType = "pdf"
	DocTypeText     DocType = "text"
	DocTypeMarkdown DocType = "markdown"
)

var pdfMagic = []byte("%PDF-")

// DetectType picks a DocType from the file extension, falling back to the
// PDF magic header. Anything else is DocTypeUnknown.
func DetectType(filename string, content []byte) DocType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return DocTypePDF
	case ".txt", ".text":
		return DocTypeText
	case ".md", ".markdown":
		return DocTypeMarkdown
	}
	if bytes.HasPrefix(content, pdfMagic) {
		return DocTypePDF
	}
	return DocTypeUnknown
}

// Document is an uploaded blob. It only lives for the duration of ingestion.
type Document struct {
	ID       string // assigned at ingestion time
	Filename string
	Type     DocType
	Content  []byte
}

// NewDocument builds a Document, detecting its type from name and content.
func NewDocument(filename string, content []byte) Document {
	return Document{
		Filename: filename,
		Type:     DetectType(filename, content),
		Content:  content,
	}
}

// Page is one extracted page of a PDF.
type Page struct {
	Number      int // 1-based
	DigitalText string
	OCRText     string
	Images      []EmbeddedImage
}

// EmbeddedImage is a raster image found on a page. It is passed through untouched.
type EmbeddedImage struct {
	Page  int // 1-based owning page
	Index int // 1-based position within the page
	Data  []byte
}

// Base64 returns the transport encoding of the image bytes.
func (img EmbeddedImage) Base64() string {
	return base64.StdEncoding.EncodeToString(img.Data)
}

// Chunk is the unit of embedding and retrieval.
type Chunk struct {
	ID    string // "{doc_id}-{index}"
	DocID string
	Index int
	Text  string
}

// ChunkID formats the stable identifier of the index-th chunk of a document.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s-%d", docID, index)
}

// RecordMetadata travels with a vector so retrieval can return the text.
type RecordMetadata struct {
	Text       string `json:"text"`
	ChunkIndex int    `json:"chunk_index"`
	DocID      string `json:"doc_id"`
}

// VectorRecord is the persisted form of a Chunk.
type VectorRecord struct {
	ID       string
	Values   []float32
	Metadata RecordMetadata
}

// NewVectorRecord pairs a chunk with its embedding.
func NewVectorRecord(chunk Chunk, values []float32) VectorRecord {
	return VectorRecord{
		ID:     chunk.ID,
		Values: values,
		Metadata: RecordMetadata{
			Text:       chunk.Text,
			ChunkIndex: chunk.Index,
			DocID:      chunk.DocID,
		},
	}
}

// RetrievedChunk is a query hit, ordered by descending Score.
type RetrievedChunk struct {
	ID         string  `json:"id"`
	DocID      string  `json:"doc_id"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

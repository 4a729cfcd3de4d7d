package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectType(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		want     DocType
	}{
		{"pdf extension", "lease.PDF", nil, DocTypePDF},
		{"txt extension", "judgement.txt", nil, DocTypeText},
		{"markdown extension", "terms.md", nil, DocTypeMarkdown},
		{"pdf magic without extension", "upload", []byte("%PDF-1.7\n..."), DocTypePDF},
		{"unknown", "scan.tiff", []byte{0x49, 0x49, 0x2a}, DocTypeUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectType(tc.filename, tc.content))
		})
	}
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "abc-0", ChunkID("abc", 0))
	assert.Equal(t, "abc-12", ChunkID("abc", 12))
}

func TestNewVectorRecord(t *testing.T) {
	chunk := Chunk{ID: "d-3", DocID: "d", Index: 3, Text: "Late fee is 5%."}
	rec := NewVectorRecord(chunk, []float32{0.1, 0.2})

	assert.Equal(t, "d-3", rec.ID)
	assert.Equal(t, RecordMetadata{Text: "Late fee is 5%.", ChunkIndex: 3, DocID: "d"}, rec.Metadata)
	assert.Len(t, rec.Values, 2)
}

func TestEmbeddedImageBase64(t *testing.T) {
	img := EmbeddedImage{Page: 1, Index: 1, Data: []byte("png")}
	assert.Equal(t, "cG5n", img.Base64())
}

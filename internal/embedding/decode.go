package embedding

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/bull/legal-rag/internal/domain"
)

// Accepted response shapes, tried in order:
//
//	{"embeddings": [...]}, {"data": [...]}, {"vectors": [...]}   batch lists
//	[[...], [...]] or [{...}, {...}]                                 root batch list
//	{"embedding": ...}, {"value": ...}, {"values": ...}, {"vector": ...}   single vector
//
// A list element or single vector is either a numeric array or an object
// offering one of the vector synonyms, recursively.
var (
	listFields   = []string{"embeddings", "data", "vectors"}
	vectorFields = []string{"embedding", "value", "values", "vector"}
)

// DecodeVectors extracts embedding vectors from a service response body.
// It fails with domain.ErrEmbedding when no accepted shape matches; it never
// substitutes a zero vector.
func DecodeVectors(body []byte) ([][]float32, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: response is not valid JSON", domain.ErrEmbedding)
	}
	root := gjson.ParseBytes(body)

	for _, field := range listFields {
		list := root.Get(field)
		switch {
		case list.IsArray():
			return decodeList(field, list.Array())
		case list.IsObject():
			if vec, ok := vectorOf(list); ok {
				return [][]float32{vec}, nil
			}
		}
	}

	if root.IsArray() {
		items := root.Array()
		if len(items) > 0 && (items[0].IsArray() || items[0].IsObject()) {
			return decodeList("root", items)
		}
	}

	if vec, ok := vectorOf(root); ok {
		return [][]float32{vec}, nil
	}
	return nil, fmt.Errorf("%w: no recognised vector field in response", domain.ErrEmbedding)
}

func decodeList(field string, items []gjson.Result) ([][]float32, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %q list is empty", domain.ErrEmbedding, field)
	}
	vectors := make([][]float32, len(items))
	for i, item := range items {
		vec, ok := vectorOf(item)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] has no recognised vector", domain.ErrEmbedding, field, i)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func vectorOf(r gjson.Result) ([]float32, bool) {
	if r.IsArray() {
		return numericArray(r)
	}
	if !r.IsObject() {
		return nil, false
	}
	for _, field := range vectorFields {
		v := r.Get(field)
		if !v.Exists() {
			continue
		}
		if vec, ok := vectorOf(v); ok {
			return vec, true
		}
	}
	return nil, false
}

func numericArray(r gjson.Result) ([]float32, bool) {
	items := r.Array()
	if len(items) == 0 {
		return nil, false
	}
	vec := make([]float32, len(items))
	for i, item := range items {
		if item.Type != gjson.Number {
			return nil, false
		}
		vec[i] = float32(item.Float())
	}
	return vec, true
}

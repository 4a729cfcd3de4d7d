package storage

import (
	"fmt"

	"github.com/bull/legal-rag/internal/domain"
)

var (
	ErrStoreUnreachable  = fmt.Errorf("%w: vector store unreachable", domain.ErrStore)
	ErrIndexNotReady     = fmt.Errorf("%w: index not ensured", domain.ErrStore)
	ErrDimensionMismatch = fmt.Errorf("%w: embedding dimension mismatch", domain.ErrIndexConfig)
	ErrMetricMismatch    = fmt.Errorf("%w: similarity metric mismatch", domain.ErrIndexConfig)
)

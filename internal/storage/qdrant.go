package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bull/legal-rag/internal/domain"
)

// pointNamespace derives Qdrant point ids from chunk ids, which are not
// valid point ids on their own.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/bull/legal-rag/chunks"))

// PointID returns the deterministic Qdrant point id for a chunk id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// DefaultQdrantOpTimeout bounds a single Qdrant call when no timeout is configured.
const DefaultQdrantOpTimeout = 10 * time.Second

// QdrantConfig holds connection settings for the gRPC API.
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
	// OpTimeout bounds each gRPC call. Zero means DefaultQdrantOpTimeout.
	OpTimeout time.Duration
}

// QdrantStore is an Index backed by a Qdrant collection.
type QdrantStore struct {
	client *qdrant.Client
	cfg    QdrantConfig
	logger *slog.Logger

	mu   sync.RWMutex
	spec *IndexSpec
}

// NewQdrantStore creates a new Qdrant client with health validation.
// It retries the health check on startup and fails fast if Qdrant stays unreachable.
func NewQdrantStore(ctx context.Context, cfg QdrantConfig, logger *slog.Logger) (*QdrantStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = DefaultQdrantOpTimeout
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create qdrant client: %w", domain.ErrStore, err)
	}

	store := &QdrantStore{client: client, cfg: cfg, logger: logger}

	if err := store.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrStoreUnreachable, err)
	}
	return store, nil
}

func newRetryBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// opContext derives the deadline for one gRPC call. The caller's own
// deadline still wins when it is sooner.
func (s *QdrantStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.OpTimeout)
}

// healthCheckWithRetry performs health check with exponential backoff.
func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(newRetryBackOff(), ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return classifyQdrantError("health check", err)
	}
	if result == nil || result.GetTitle() == "" {
		return fmt.Errorf("%w: health check returned invalid response", domain.ErrStore)
	}
	return nil
}

func toDistance(m Metric) qdrant.Distance {
	switch m {
	case MetricDotProduct:
		return qdrant.Distance_Dot
	case MetricEuclidean:
		return qdrant.Distance_Euclid
	default:
		return qdrant.Distance_Cosine
	}
}

func fromDistance(d qdrant.Distance) Metric {
	switch d {
	case qdrant.Distance_Dot:
		return MetricDotProduct
	case qdrant.Distance_Euclid:
		return MetricEuclidean
	case qdrant.Distance_Cosine:
		return MetricCosine
	}
	return Metric(d.String())
}

// EnsureIndex creates the collection if absent, otherwise checks that its
// vector size and distance match spec. Idempotent.
func (s *QdrantStore) EnsureIndex(ctx context.Context, spec IndexSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	spec.Metric, _ = ParseMetric(string(spec.Metric))

	opCtx, cancel := s.opContext(ctx)
	exists, err := s.client.CollectionExists(opCtx, spec.Name)
	cancel()
	if err != nil {
		return classifyQdrantError("check collection", err)
	}

	if exists {
		if err := s.checkCollection(ctx, spec); err != nil {
			return err
		}
	} else if err := s.createCollection(ctx, spec); err != nil {
		return err
	}

	s.mu.Lock()
	s.spec = &spec
	s.mu.Unlock()
	return nil
}

func (s *QdrantStore) checkCollection(ctx context.Context, spec IndexSpec) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	info, err := s.client.GetCollectionInfo(ctx, spec.Name)
	if err != nil {
		return classifyQdrantError("get collection", err)
	}
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return fmt.Errorf("%w: collection %s uses named vectors", domain.ErrIndexConfig, spec.Name)
	}
	if int(params.GetSize()) != spec.Dimension {
		return fmt.Errorf("%w: collection %s has dimension %d, requested %d",
			ErrDimensionMismatch, spec.Name, params.GetSize(), spec.Dimension)
	}
	if got := fromDistance(params.GetDistance()); got != spec.Metric {
		return fmt.Errorf("%w: collection %s uses %s, requested %s",
			ErrMetricMismatch, spec.Name, got, spec.Metric)
	}
	return nil
}

func (s *QdrantStore) createCollection(ctx context.Context, spec IndexSpec) error {
	opCtx, cancel := s.opContext(ctx)
	err := s.client.CreateCollection(opCtx, &qdrant.CreateCollection{
		CollectionName: spec.Name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(spec.Dimension),
			Distance: toDistance(spec.Metric),
		}),
	})
	cancel()
	if err != nil {
		return classifyQdrantError("create collection", err)
	}

	// Without a payload index, filtering and deleting by document scans every point.
	opCtx, cancel = s.opContext(ctx)
	defer cancel()
	_, err = s.client.CreateFieldIndex(opCtx, &qdrant.CreateFieldIndexCollection{
		CollectionName: spec.Name,
		FieldName:      "doc_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return classifyQdrantError("create doc_id index", err)
	}

	s.logger.Info("Created index", "backend", "qdrant", "name", spec.Name, "dimension", spec.Dimension, "metric", spec.Metric)
	return nil
}

func (s *QdrantStore) current() (IndexSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.spec == nil {
		return IndexSpec{}, ErrIndexNotReady
	}
	return *s.spec, nil
}

// Upsert sends every record in a single waited request, retrying transient failures.
func (s *QdrantStore) Upsert(ctx context.Context, records []domain.VectorRecord) (int, error) {
	spec, err := s.current()
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := validateRecords(records, spec.Dimension); err != nil {
		return 0, err
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(r.ID)),
			Vectors: qdrant.NewVectors(r.Values...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id":    r.ID,
				"doc_id":      r.Metadata.DocID,
				"chunk_index": r.Metadata.ChunkIndex,
				"text":        r.Metadata.Text,
			}),
		}
	}

	if err := s.upsertWithRetry(ctx, spec.Name, points); err != nil {
		return 0, err
	}
	return len(records), nil
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (s *QdrantStore) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	operation := func() error {
		opCtx, cancel := s.opContext(ctx)
		defer cancel()
		_, err := s.client.Upsert(opCtx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		if err == nil {
			return nil
		}
		err = classifyQdrantError("upsert", err)
		if domain.IsRetryable(err) && ctx.Err() == nil {
			s.logger.Warn("Upsert failed, retrying", "collection", collection, "points", len(points), "error", err)
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(operation, backoff.WithContext(newRetryBackOff(), ctx)); err != nil {
		// Retry hands back the bare context error when ctx ends mid-wait.
		if !errors.Is(err, domain.ErrStore) {
			err = classifyQdrantError("upsert", err)
		}
		return err
	}
	return nil
}

// Query returns the topK nearest chunks. Euclidean distances are converted
// to 1/(1+d) so that a higher score is always closer.
func (s *QdrantStore) Query(ctx context.Context, vector []float32, topK int) ([]domain.RetrievedChunk, error) {
	spec, err := s.current()
	if err != nil {
		return nil, err
	}
	if err := validateQuery(vector, topK, spec.Dimension); err != nil {
		return nil, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: spec.Name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, classifyQdrantError("query", err)
	}

	chunks := make([]domain.RetrievedChunk, 0, len(results))
	for _, result := range results {
		payload := result.GetPayload()
		score := float64(result.GetScore())
		if spec.Metric == MetricEuclidean {
			score = 1 / (1 + score)
		}
		chunks = append(chunks, domain.RetrievedChunk{
			ID:         payload["chunk_id"].GetStringValue(),
			DocID:      payload["doc_id"].GetStringValue(),
			ChunkIndex: int(payload["chunk_index"].GetIntegerValue()),
			Text:       payload["text"].GetStringValue(),
			Score:      score,
		})
	}
	return chunks, nil
}

// Stats reports the collection's point count.
func (s *QdrantStore) Stats(ctx context.Context) (*Stats, error) {
	spec, err := s.current()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	info, err := s.client.GetCollectionInfo(ctx, spec.Name)
	if err != nil {
		return nil, classifyQdrantError("get collection", err)
	}
	return &Stats{
		Name:        spec.Name,
		Backend:     "qdrant",
		Dimension:   spec.Dimension,
		Metric:      spec.Metric,
		RecordCount: info.GetPointsCount(),
	}, nil
}

// Reset drops the collection and recreates it with the same configuration.
func (s *QdrantStore) Reset(ctx context.Context) error {
	spec, err := s.current()
	if err != nil {
		return err
	}
	opCtx, cancel := s.opContext(ctx)
	err = s.client.DeleteCollection(opCtx, spec.Name)
	cancel()
	if err != nil {
		return classifyQdrantError("delete collection", err)
	}
	return s.createCollection(ctx, spec)
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// classifyQdrantError wraps err as a store error, marking gRPC codes that a
// retry can fix as transient.
func classifyQdrantError(op string, err error) error {
	wrapped := fmt.Errorf("%w: %s: %w", domain.ErrStore, op, err)
	if errors.Is(err, context.Canceled) {
		return wrapped
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return domain.Transient(wrapped)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Transient(wrapped)
	}
	return wrapped
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/webdedesign/vergiai/internal/chunk"
)

const (
	// DefaultDimension matches the 384-dimensional index of the hosted deployment.
	DefaultDimension = 384

	// DefaultBatchSize is the number of points embedded and written per call.
	DefaultBatchSize = 100

	// MaxBatchSize is the largest batch the vector backend accepts per request.
	MaxBatchSize = 100

	// VectorScoreFloor is the cosine similarity a match must exceed.
	VectorScoreFloor = 0.3
)

// Payload keys.
const (
	fieldDocument = "document"
	fieldPage     = "page"
	fieldText     = "text"
)

// pointNamespace seeds deterministic point ids.
var pointNamespace = uuid.MustParse("5b0c1f4e-9d5a-4c1e-8e3a-2f6d7a9b1c40")

// Embedder turns texts into fixed-length vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// QdrantConfig holds connection and write settings for the vector store.
type QdrantConfig struct {
	Host          string
	Port          int
	APIKey        string
	UseTLS        bool
	Collection    string
	Dimension     int
	BatchSize     int
	BatchInterval time.Duration

	// AllowUnavailable keeps the store when the startup health check fails.
	// The check runs once without retry; later calls return ErrUnavailable
	// until the server answers.
	AllowUnavailable bool
}

// QdrantStore keeps entries as points of a single cosine collection.
type QdrantStore struct {
	client     *qdrant.Client
	embedder   Embedder
	collection string
	dimension  int
	batchSize  int
	limiter    *rate.Limiter
	logger     *zap.Logger

	upsertPoints func(context.Context, *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	scrollPoints func(context.Context, *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error)
}

// NewQdrantStore connects to Qdrant over gRPC and fails fast if it stays
// unreachable after a short retry window.
func NewQdrantStore(ctx context.Context, cfg QdrantConfig, embedder Embedder, logger *zap.Logger) (*QdrantStore, error) {
	if err := ValidateTable(cfg.Collection); err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, errors.New("qdrant store requires an embedder")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	if embedder.Dimension() != dimension {
		return nil, fmt.Errorf("%w: embedder produces %d, index expects %d",
			ErrDimensionMismatch, embedder.Dimension(), dimension)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	batchSize = min(batchSize, MaxBatchSize)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.BatchInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.BatchInterval), 1)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	s := &QdrantStore{
		client:     client,
		embedder:   embedder,
		collection: cfg.Collection,
		dimension:  dimension,
		batchSize:  batchSize,
		limiter:    limiter,
		logger:     logger,

		upsertPoints: client.Upsert,
		scrollPoints: client.ScrollAndOffset,
	}

	if cfg.AllowUnavailable {
		if err := s.Health(ctx); err != nil {
			logger.Warn("qdrant unreachable, continuing without it",
				zap.String("host", cfg.Host),
				zap.Int("port", cfg.Port),
				zap.Error(err),
			)
			return s, nil
		}
	} else if err := s.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, unavailable(fmt.Sprintf("connecting to %s:%d", cfg.Host, cfg.Port), err)
	}

	logger.Info("qdrant connection established",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("collection", cfg.Collection),
	)
	return s, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(b, ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return errors.New("health check returned invalid response")
	}
	return nil
}

func (s *QdrantStore) Exists(ctx context.Context) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, unavailable("checking collection", err)
	}
	return exists, nil
}

// EnsureCollection creates the collection if needed. An existing collection
// with a different vector size is reported as ErrDimensionMismatch and left
// untouched; only Recreate discards it.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	exists, err := s.Exists(ctx)
	if err != nil {
		return err
	}

	if exists {
		info, err := s.client.GetCollectionInfo(ctx, s.collection)
		if err != nil {
			return unavailable("reading collection info", err)
		}
		size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if size != uint64(s.dimension) {
			return fmt.Errorf("%w: collection %q has %d dimensions, embedder produces %d; recreate the index",
				ErrDimensionMismatch, s.collection, size, s.dimension)
		}
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return unavailable("creating collection", err)
	}

	// document is the only filtered field (duplicate checks)
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collection,
		FieldName:      fieldDocument,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return unavailable("creating document index", err)
	}

	s.logger.Info("created collection",
		zap.String("collection", s.collection),
		zap.Int("dimension", s.dimension),
	)
	return nil
}

// Recreate drops the collection with every stored vector and creates it
// again with the configured dimension.
func (s *QdrantStore) Recreate(ctx context.Context) error {
	exists, err := s.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Warn("dropping collection, all stored vectors are discarded",
			zap.String("collection", s.collection))
		if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
			return unavailable("deleting collection", err)
		}
	}
	return s.EnsureCollection(ctx)
}

// DocumentNames scrolls the collection reading only the document field.
func (s *QdrantStore) DocumentNames(ctx context.Context) (map[string]struct{}, error) {
	names := make(map[string]struct{})

	exists, err := s.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return names, nil
	}
	return s.scrollDocumentNames(ctx)
}

// scrollDocumentNames pages through the collection following the offset
// returned with each page.
func (s *QdrantStore) scrollDocumentNames(ctx context.Context) (map[string]struct{}, error) {
	names := make(map[string]struct{})

	var offset *qdrant.PointId
	for {
		results, next, err := s.scrollPoints(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Limit:          qdrant.PtrOf(uint32(256)),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude(fieldDocument),
		})
		if err != nil {
			return nil, unavailable("scrolling documents", err)
		}

		for _, point := range results {
			if name := point.Payload[fieldDocument].GetStringValue(); name != "" {
				names[name] = struct{}{}
			}
		}

		if next == nil || len(results) == 0 {
			break
		}
		offset = next
	}
	return names, nil
}

func (s *QdrantStore) hasDocument(ctx context.Context, document string) (bool, error) {
	exists, err := s.Exists(ctx)
	if err != nil || !exists {
		return false, err
	}

	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(fieldDocument, document)},
		},
		Exact: qdrant.PtrOf(true),
	})
	if err != nil {
		return false, unavailable("counting document points", err)
	}
	return n > 0, nil
}

// Upsert writes the chunks of a document that is not stored yet. The returned
// count covers only the points actually written, and the error joins every
// batch failure.
func (s *QdrantStore) Upsert(ctx context.Context, document string, chunks []chunk.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	present, err := s.hasDocument(ctx, document)
	if err != nil {
		s.logger.Warn("duplicate check failed, assuming document is new",
			zap.String("document", document), zap.Error(err))
	}
	if present {
		s.logger.Debug("document already stored", zap.String("document", document))
		return 0, nil
	}

	if err := s.EnsureCollection(ctx); err != nil {
		return 0, err
	}
	return s.writeBatches(ctx, document, chunks)
}

// writeBatches embeds and writes chunks batch by batch. A failed batch is
// logged and skipped without retry; the remaining batches still run.
func (s *QdrantStore) writeBatches(ctx context.Context, document string, chunks []chunk.Chunk) (int, error) {
	written := 0
	var errs []error
	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))

		if err := s.limiter.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("batch %d-%d: %w", start, end, err))
			break
		}

		if err := s.writeBatch(ctx, document, start, chunks[start:end]); err != nil {
			s.logger.Warn("batch failed, skipping",
				zap.String("document", document),
				zap.Int("from", start),
				zap.Int("to", end),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("batch %d-%d: %w", start, end, err))
			continue
		}
		written += end - start
	}

	return written, errors.Join(errs...)
}

func (s *QdrantStore) writeBatch(ctx context.Context, document string, offset int, batch []chunk.Chunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embedding returned %d vectors for %d texts", len(vectors), len(batch))
	}

	points := make([]*qdrant.PointStruct, len(batch))
	for i, c := range batch {
		if len(vectors[i]) != s.dimension {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				ErrDimensionMismatch, offset+i, len(vectors[i]), s.dimension)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(document, c.Page, offset+i)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				fieldDocument: document,
				fieldPage:     c.Page,
				fieldText:     c.Text,
			}),
		}
	}

	_, err = s.upsertPoints(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return unavailable("upserting points", err)
	}
	return nil
}

// PointID derives a stable point id from the chunk's document, page and
// position within the document.
func PointID(document string, page, index int) string {
	key := document + "_" + strconv.Itoa(page) + "_" + strconv.Itoa(index)
	return uuid.NewSHA1(pointNamespace, []byte(key)).String()
}

func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	exists, err := s.Exists(ctx)
	if err != nil || !exists {
		return 0, err
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return 0, unavailable("reading collection info", err)
	}
	return int(info.GetPointsCount()), nil
}

// Search embeds the query and returns the nearest points in backend order.
func (s *QdrantStore) Search(ctx context.Context, query string, limit int) ([]Match, error) {
	exists, err := s.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 || len(vectors[0]) != s.dimension {
		return nil, fmt.Errorf("%w: query embedding does not have %d dimensions", ErrDimensionMismatch, s.dimension)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vectors[0]...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, unavailable("querying points", err)
	}

	matches := make([]Match, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		matches = append(matches, Match{
			Entry: Entry{
				Document: payload[fieldDocument].GetStringValue(),
				Page:     int(payload[fieldPage].GetIntegerValue()),
				Text:     payload[fieldText].GetStringValue(),
			},
			Score: float64(result.Score),
		})
	}
	return matches, nil
}

func (s *QdrantStore) ScoreFloor() float64 {
	return VectorScoreFloor
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

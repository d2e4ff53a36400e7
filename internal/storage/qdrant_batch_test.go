package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/webdedesign/vergiai/internal/chunk"
)

// constEmbedder returns the same unit vector for every text.
type constEmbedder struct{ dim int }

func (c constEmbedder) Dimension() int { return c.dim }

func (c constEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, c.dim)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}

func pagedChunks(doc string, n int) []chunk.Chunk {
	chunks := make([]chunk.Chunk, n)
	for i := range chunks {
		chunks[i] = chunk.Chunk{Document: doc, Page: i/10 + 1, Text: fmt.Sprintf("parca %d", i)}
	}
	return chunks
}

func TestQdrantStore_WriteBatchesSkipsFailedBatch(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	var calls []int
	s := &QdrantStore{
		embedder:   constEmbedder{dim: 4},
		collection: DefaultTable,
		dimension:  4,
		batchSize:  100,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		logger:     zap.New(core),
		upsertPoints: func(_ context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
			calls = append(calls, len(req.Points))
			if len(calls) == 2 {
				return nil, errors.New("deadline exceeded")
			}
			return &qdrant.UpdateResult{}, nil
		},
	}

	written, err := s.writeBatches(context.Background(), "kdv", pagedChunks("kdv", 300))

	assert.Equal(t, 200, written)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "batch 100-200")
	assert.Equal(t, []int{100, 100, 100}, calls, "each batch is attempted once")

	warns := logs.FilterMessage("batch failed, skipping").All()
	require.Len(t, warns, 1)
	fields := warns[0].ContextMap()
	assert.EqualValues(t, 100, fields["from"])
	assert.EqualValues(t, 200, fields["to"])
}

func TestQdrantStore_WriteBatchesRejectsWrongDimension(t *testing.T) {
	s := &QdrantStore{
		embedder:   constEmbedder{dim: 8},
		collection: DefaultTable,
		dimension:  4,
		batchSize:  100,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		logger:     zap.NewNop(),
		upsertPoints: func(context.Context, *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
			t.Fatal("no point may be written")
			return nil, nil
		},
	}

	written, err := s.writeBatches(context.Background(), "kdv", pagedChunks("kdv", 3))
	assert.Zero(t, written)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestNewQdrantStore_AllowUnavailable(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := QdrantConfig{
		Host:             "127.0.0.1",
		Port:             1,
		Collection:       DefaultTable,
		Dimension:        4,
		AllowUnavailable: true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := NewQdrantStore(ctx, cfg, constEmbedder{dim: 4}, zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	assert.Equal(t, 1, logs.FilterMessage("qdrant unreachable, continuing without it").Len())

	_, err = s.Exists(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = s.Search(ctx, "kdv oranı", 5)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewQdrantStore_UnavailableIsFatalByDefault(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewQdrantStore(ctx, QdrantConfig{
		Host:       "127.0.0.1",
		Port:       1,
		Collection: DefaultTable,
		Dimension:  4,
	}, constEmbedder{dim: 4}, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestQdrantStore_ScrollDocumentNamesFollowsOffset(t *testing.T) {
	point := func(id uint64, doc string) *qdrant.RetrievedPoint {
		return &qdrant.RetrievedPoint{
			Id:      qdrant.NewIDNum(id),
			Payload: qdrant.NewValueMap(map[string]any{fieldDocument: doc}),
		}
	}
	pages := [][]*qdrant.RetrievedPoint{
		{point(1, "kdv"), point(2, "kdv")},
		{point(3, "gelir"), point(4, "otv")},
	}

	var offsets []*qdrant.PointId
	s := &QdrantStore{
		collection: DefaultTable,
		logger:     zap.NewNop(),
		scrollPoints: func(_ context.Context, req *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error) {
			offsets = append(offsets, req.Offset)
			switch len(offsets) {
			case 1:
				return pages[0], qdrant.NewIDNum(3), nil
			case 2:
				return pages[1], nil, nil
			}
			t.Fatal("scrolled past the last page")
			return nil, nil, nil
		},
	}

	names, err := s.scrollDocumentNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"kdv": {}, "gelir": {}, "otv": {}}, names)

	require.Len(t, offsets, 2)
	assert.Nil(t, offsets[0])
	assert.Equal(t, uint64(3), offsets[1].GetNum(), "second page starts at the returned offset")
}

func TestQdrantStore_ScrollDocumentNamesUnavailable(t *testing.T) {
	s := &QdrantStore{
		collection: DefaultTable,
		scrollPoints: func(context.Context, *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error) {
			return nil, nil, errors.New("connection refused")
		},
	}

	_, err := s.scrollDocumentNames(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

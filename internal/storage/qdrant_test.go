//go:build integration

package storage

import (
	"context"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webdedesign/vergiai/internal/chunk"
)

// hashEmbedder spreads each word over a small vector so texts sharing words
// land close together.
type hashEmbedder struct{ dim int }

func (h hashEmbedder) Dimension() int { return h.dim }

func (h hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, h.dim)
		for _, w := range strings.Fields(strings.ToLower(text)) {
			f := fnv.New32a()
			f.Write([]byte(w))
			v[int(f.Sum32())%h.dim] += 1
		}
		out[i] = v
	}
	return out, nil
}

// setupTestStore connects to a local Qdrant and starts from an empty collection.
// Skips test if Qdrant is not running.
func setupTestStore(t *testing.T) *QdrantStore {
	ctx := context.Background()
	s, err := NewQdrantStore(ctx, QdrantConfig{
		Host:       "localhost",
		Port:       6334,
		Collection: "vergiai_test",
		Dimension:  64,
		BatchSize:  2,
	}, hashEmbedder{dim: 64}, nil)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}
	require.NoError(t, s.Recreate(ctx))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestQdrantStore_UpsertAndSearch(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	chunks := []chunk.Chunk{
		{Page: 1, Text: "kdv oranı yüzde yirmi"},
		{Page: 2, Text: "damga vergisi"},
		{Page: 3, Text: "gelir vergisi dilimleri"},
	}

	n, err := s.Upsert(ctx, "kdv", chunks)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.Upsert(ctx, "kdv", chunks)
	require.NoError(t, err)
	assert.Zero(t, n, "duplicate document is skipped")

	total, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	names, err := s.DocumentNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"kdv": {}}, names)

	matches, err := s.Search(ctx, "kdv oranı", 5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, 1, matches[0].Page)
	assert.Equal(t, "kdv", matches[0].Document)
}

func TestQdrantStore_DimensionMismatch(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	other, err := NewQdrantStore(ctx, QdrantConfig{
		Host:       "localhost",
		Port:       6334,
		Collection: "vergiai_test",
		Dimension:  32,
	}, hashEmbedder{dim: 32}, nil)
	require.NoError(t, err)
	defer other.Close()

	require.NoError(t, s.EnsureCollection(ctx))
	assert.ErrorIs(t, other.EnsureCollection(ctx), ErrDimensionMismatch)
}

package chunk

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int, prefix string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return strings.Join(parts, " ")
}

func TestWords_ShortPageSingleChunk(t *testing.T) {
	chunks, err := Words("kdv", []Page{{Number: 1, Text: "Katma   değer\n vergisi oranı"}}, 400, 40)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, Chunk{Document: "kdv", Page: 1, Text: "Katma değer vergisi oranı"}, chunks[0])
}

func TestWords_410WordsTwoChunks(t *testing.T) {
	chunks, err := Words("doc", []Page{{Number: 3, Text: words(410, "w")}}, 400, 40)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	first := strings.Fields(chunks[0].Text)
	second := strings.Fields(chunks[1].Text)
	assert.Len(t, first, 400)
	assert.Len(t, second, 50)
	assert.Equal(t, "w360", second[0])
	assert.Equal(t, "w409", second[len(second)-1])

	// overlap: the last 40 words of the first chunk open the second
	assert.Equal(t, first[360:], second[:40])
	assert.Equal(t, 3, chunks[1].Page)
}

func TestWords_ChunkCountFormula(t *testing.T) {
	tests := []struct {
		words int
		want  int
	}{
		{0, 0},
		{1, 1},
		{40, 1},
		{360, 1},
		{400, 1},
		{401, 2},
		{720, 2},
		{760, 2},
		{761, 3},
		{1000, 3},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d words", tt.words), func(t *testing.T) {
			chunks, err := Words("doc", []Page{{Number: 1, Text: words(tt.words, "x")}}, 400, 40)
			require.NoError(t, err)
			assert.Len(t, chunks, tt.want)
		})
	}
}

func TestWords_PagesAreHardBoundaries(t *testing.T) {
	pages := []Page{
		{Number: 1, Text: "alpha beta"},
		{Number: 2, Text: "   \n\t "},
		{Number: 3, Text: "gamma"},
	}

	chunks, err := Words("doc", pages, 400, 40)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, "alpha beta", chunks[0].Text)
	assert.Equal(t, 3, chunks[1].Page)
	assert.Equal(t, "gamma", chunks[1].Text)
}

func TestWords_InvalidWindow(t *testing.T) {
	tests := []struct {
		name            string
		window, overlap int
	}{
		{"equal", 40, 40},
		{"overlap larger", 10, 20},
		{"zero window", 0, 0},
		{"negative overlap", 10, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Words("doc", []Page{{Number: 1, Text: "a b c"}}, tt.window, tt.overlap)
			assert.ErrorIs(t, err, ErrInvalidWindow)
		})
	}
}

func TestChars_FlushesPastBudget(t *testing.T) {
	chunks, err := Chars("doc", []Page{{Number: 2, Text: "aa bb cc dd ee ff"}}, 5)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "aa bb cc", chunks[0].Text)
	assert.Equal(t, "dd ee ff", chunks[1].Text)
	assert.Equal(t, 2, chunks[1].Page)
}

func TestChars_RemainderFlushed(t *testing.T) {
	chunks, err := Chars("doc", []Page{{Number: 1, Text: "aa bb cc dd"}}, 5)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "dd", chunks[1].Text)
}

func TestNewChunker(t *testing.T) {
	c, err := NewChunker()
	require.NoError(t, err)
	assert.Equal(t, "words(window=400, overlap=40)", c.String())

	_, err = NewChunker(WithWindow(40, 40))
	assert.ErrorIs(t, err, ErrInvalidWindow)

	c, err = NewChunker(WithCharBudget(500))
	require.NoError(t, err)
	assert.Equal(t, "chars(budget=500)", c.String())

	chunks, err := c.Split("doc", []Page{{Number: 1, Text: "short text"}})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "doc", chunks[0].Document)
}

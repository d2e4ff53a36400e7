// Package chunk splits extracted document pages into page-tagged text fragments.
package chunk

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultWindow is the number of words per fragment.
	DefaultWindow = 400

	// DefaultOverlap is the number of words shared by consecutive fragments of a page.
	DefaultOverlap = 40

	// DefaultCharBudget is the flush threshold of the character-budget policy.
	DefaultCharBudget = 500
)

// ErrInvalidWindow is returned when the window cannot advance.
var ErrInvalidWindow = errors.New("chunk window must be greater than overlap")

// Page is the plain text of one 1-indexed document page.
type Page struct {
	Number int
	Text   string
}

// Chunk is a fragment of a single page, tagged with its document and page.
type Chunk struct {
	Document string
	Page     int
	Text     string
}

// Words slides a window of window words over each page with the given overlap.
// Fragments never span pages. Consecutive fragments of a page start
// window-overlap words apart; the last one of a page may be shorter. A page
// of L > overlap words yields ceil((L-overlap)/(window-overlap)) fragments,
// so a page of exactly window words is one fragment rather than the two a
// plain "advance while i < L" loop would emit.
func Words(document string, pages []Page, window, overlap int) ([]Chunk, error) {
	if window <= 0 || overlap < 0 || window <= overlap {
		return nil, fmt.Errorf("%w: window=%d overlap=%d", ErrInvalidWindow, window, overlap)
	}
	stride := window - overlap

	var chunks []Chunk
	for _, page := range pages {
		words := strings.Fields(page.Text)
		for i := 0; i < len(words); i += stride {
			// tail already covered by the previous fragment's overlap
			if i > 0 && i+overlap >= len(words) {
				break
			}
			end := min(i+window, len(words))
			text := strings.TrimSpace(strings.Join(words[i:end], " "))
			if text == "" {
				continue
			}
			chunks = append(chunks, Chunk{Document: document, Page: page.Number, Text: text})
		}
	}
	return chunks, nil
}

// Chars greedily packs whole words of a page into fragments, flushing as soon
// as the buffered text grows past budget characters.
func Chars(document string, pages []Page, budget int) ([]Chunk, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("%w: budget=%d", ErrInvalidWindow, budget)
	}

	var chunks []Chunk
	for _, page := range pages {
		var buf strings.Builder
		flush := func() {
			if text := strings.TrimSpace(buf.String()); text != "" {
				chunks = append(chunks, Chunk{Document: document, Page: page.Number, Text: text})
			}
			buf.Reset()
		}
		for _, word := range strings.Fields(page.Text) {
			if buf.Len() > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(word)
			if len([]rune(buf.String())) > budget {
				flush()
			}
		}
		flush()
	}
	return chunks, nil
}

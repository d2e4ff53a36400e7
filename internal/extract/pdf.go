// Package extract reads per-page plain text out of source documents.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/webdedesign/vergiai/internal/chunk"
)

// Extractor returns the non-empty pages of a document.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]chunk.Page, error)
}

// PDF extracts the text layer of PDF files. Scanned pages without a text
// layer come back empty and are dropped.
type PDF struct{}

// NewPDF returns a PDF extractor.
func NewPDF() *PDF {
	return &PDF{}
}

func (PDF) Extract(ctx context.Context, path string) (pages []chunk.Page, err error) {
	// the parser panics on malformed files, already inside Open when
	// startxref points past the end
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("reading pdf: %v", rec)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, chunk.Page{Number: i, Text: text})
	}
	return Clean(pages), nil
}

// Clean drops pages whose text is empty or whitespace.
func Clean(pages []chunk.Page) []chunk.Page {
	out := pages[:0:0]
	for _, p := range pages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

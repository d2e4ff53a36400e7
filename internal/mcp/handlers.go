package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/webdedesign/vergiai/internal/chat"
	"github.com/webdedesign/vergiai/internal/retrieval"
	"github.com/webdedesign/vergiai/internal/storage"
)

const maxSearchResults = 20

// Searcher retrieves passages for a query.
type Searcher interface {
	RetrieveN(ctx context.Context, query string, limit int) retrieval.Result
	TopN() int
}

// Catalog describes what the store holds.
type Catalog interface {
	Exists(ctx context.Context) (bool, error)
	DocumentNames(ctx context.Context) (map[string]struct{}, error)
	Count(ctx context.Context) (int, error)
}

// makeSearchHandler creates the search_documents tool handler.
// An empty result is a normal answer, not a tool error.
func makeSearchHandler(searcher Searcher) func(
	context.Context, *mcp.CallToolRequest, SearchDocumentsInput,
) (*mcp.CallToolResult, SearchDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchDocumentsInput) (
		*mcp.CallToolResult, SearchDocumentsOutput, error,
	) {
		if input.Query == "" {
			return nil, SearchDocumentsOutput{}, errors.New("query is required")
		}

		limit := input.MaxResults
		if limit <= 0 {
			limit = searcher.TopN()
		}
		limit = min(limit, maxSearchResults)

		result := searcher.RetrieveN(ctx, input.Query, limit)
		if result.Empty() {
			return nil, SearchDocumentsOutput{
				Passages: []PassageResult{},
				Message:  "No relevant passage found. Try different keywords.",
			}, nil
		}

		passages := make([]PassageResult, len(result.Passages))
		for i, p := range result.Passages {
			passages[i] = PassageResult{
				Document: p.Citation.Document,
				Page:     p.Citation.Page,
				Text:     p.Text,
				Score:    p.Score,
			}
		}

		return nil, SearchDocumentsOutput{
			Passages: passages,
			Sources:  chat.FormatSources(result.Citations()),
		}, nil
	}
}

// makeListHandler creates the list_documents tool handler.
func makeListHandler(catalog Catalog) func(
	context.Context, *mcp.CallToolRequest, ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListDocumentsInput) (
		*mcp.CallToolResult, ListDocumentsOutput, error,
	) {
		names, err := catalog.DocumentNames(ctx)
		if err != nil {
			return nil, ListDocumentsOutput{}, fmt.Errorf("failed to list documents: %w", err)
		}

		docs := sortedNames(names)
		return nil, ListDocumentsOutput{
			Documents: docs,
			Count:     len(docs),
		}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
// An unreachable store is reported, not raised, so clients can tell it apart
// from an empty one.
func makeStatusHandler(catalog Catalog, backend string) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		out := StatusOutput{Backend: backend, Documents: []string{}}

		exists, err := catalog.Exists(ctx)
		if err != nil {
			out.Warning = unavailableWarning(err)
			return nil, out, nil
		}
		out.Available = true
		out.Exists = exists
		if !exists {
			out.Warning = "Index is empty. Run `vergiai ingest` to add documents."
			return nil, out, nil
		}

		names, err := catalog.DocumentNames(ctx)
		if err != nil {
			out.Available = false
			out.Warning = unavailableWarning(err)
			return nil, out, nil
		}
		out.Documents = sortedNames(names)
		out.TotalDocs = len(out.Documents)

		total, err := catalog.Count(ctx)
		if err != nil {
			out.Available = false
			out.Warning = unavailableWarning(err)
			return nil, out, nil
		}
		out.TotalChunks = total

		return nil, out, nil
	}
}

func unavailableWarning(err error) string {
	if errors.Is(err, storage.ErrUnavailable) {
		return "Store is unreachable: " + err.Error()
	}
	return err.Error()
}

func sortedNames(names map[string]struct{}) []string {
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Package mcp exposes document search over the Model Context Protocol.
package mcp

// SearchDocumentsInput defines the input parameters for the search_documents tool.
type SearchDocumentsInput struct {
	// Query is the free-text question.
	Query string `json:"query" jsonschema:"the question or keywords to search the documents for"`
	// MaxResults is the maximum number of passages to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"maximum number of passages to return (default 5)"`
}

// SearchDocumentsOutput contains the retrieved passages.
type SearchDocumentsOutput struct {
	Passages []PassageResult `json:"passages"`
	// Sources lists each cited document page once, e.g. "kdv (Sayfa 3) | teblig (Sayfa 12)".
	Sources string `json:"sources,omitempty"`
	// Message explains an empty result.
	Message string `json:"message,omitempty"`
}

// PassageResult is a single retrieved fragment.
type PassageResult struct {
	Document string  `json:"document"`
	Page     int     `json:"page"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

// ListDocumentsInput takes no parameters.
type ListDocumentsInput struct{}

// ListDocumentsOutput contains the stored document names.
type ListDocumentsOutput struct {
	Documents []string `json:"documents"`
	Count     int      `json:"count"`
}

// StatusInput takes no parameters.
type StatusInput struct{}

// StatusOutput describes the store behind the server.
type StatusOutput struct {
	Backend     string   `json:"backend"`
	Available   bool     `json:"available"`
	Exists      bool     `json:"exists"`
	TotalDocs   int      `json:"total_docs"`
	TotalChunks int      `json:"total_chunks"`
	Documents   []string `json:"documents"`
	Warning     string   `json:"warning,omitempty"`
}

package chunk

import "fmt"

// Policy names accepted by NewChunker.
const (
	PolicyWords = "words"
	PolicyChars = "chars"
)

// Chunker applies one configured splitting policy to every document.
type Chunker struct {
	policy  string
	window  int
	overlap int
	budget  int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithWindow sets the word window and overlap.
func WithWindow(window, overlap int) Option {
	return func(c *Chunker) {
		c.window = window
		c.overlap = overlap
	}
}

// WithCharBudget switches the chunker to the character-budget policy.
func WithCharBudget(budget int) Option {
	return func(c *Chunker) {
		c.policy = PolicyChars
		c.budget = budget
	}
}

// NewChunker returns a word-window chunker with default sizes unless options
// say otherwise. Invalid sizes are reported here, before any document is read.
func NewChunker(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		policy:  PolicyWords,
		window:  DefaultWindow,
		overlap: DefaultOverlap,
		budget:  DefaultCharBudget,
	}
	for _, opt := range opts {
		opt(c)
	}

	switch c.policy {
	case PolicyWords:
		if c.window <= 0 || c.overlap < 0 || c.window <= c.overlap {
			return nil, fmt.Errorf("%w: window=%d overlap=%d", ErrInvalidWindow, c.window, c.overlap)
		}
	case PolicyChars:
		if c.budget <= 0 {
			return nil, fmt.Errorf("%w: budget=%d", ErrInvalidWindow, c.budget)
		}
	}
	return c, nil
}

// Split turns the pages of one document into chunks.
func (c *Chunker) Split(document string, pages []Page) ([]Chunk, error) {
	if c.policy == PolicyChars {
		return Chars(document, pages, c.budget)
	}
	return Words(document, pages, c.window, c.overlap)
}

// String describes the active policy for logs.
func (c *Chunker) String() string {
	if c.policy == PolicyChars {
		return fmt.Sprintf("chars(budget=%d)", c.budget)
	}
	return fmt.Sprintf("words(window=%d, overlap=%d)", c.window, c.overlap)
}

// Package chat runs a grounded question-answer conversation.
package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/webdedesign/vergiai/internal/answer"
	"github.com/webdedesign/vergiai/internal/retrieval"
)

// Retriever finds grounding passages for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string) retrieval.Result
}

// Reply is an answer with the passages it was grounded on.
type Reply struct {
	Text   string
	Result retrieval.Result
}

// Grounded reports whether any passage backed the answer.
func (r Reply) Grounded() bool {
	return !r.Result.Empty()
}

// Sources returns the distinct citations of the reply.
func (r Reply) Sources() []retrieval.Citation {
	return r.Result.Citations()
}

// Session holds the turns of one conversation. It is not safe for
// concurrent use.
type Session struct {
	retriever Retriever
	answerer  answer.Answerer
	history   []answer.Turn
	grounded  string
	fallback  string
	maxPairs  int
	logger    *zap.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithPrompts replaces the grounded and fallback system prompts.
func WithPrompts(grounded, fallback string) Option {
	return func(s *Session) {
		if grounded != "" {
			s.grounded = grounded
		}
		if fallback != "" {
			s.fallback = fallback
		}
	}
}

// WithMaxExchanges keeps only the last n question/answer pairs. Zero keeps
// the whole conversation.
func WithMaxExchanges(n int) Option {
	return func(s *Session) {
		s.maxPairs = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession starts an empty conversation.
func NewSession(retriever Retriever, answerer answer.Answerer, opts ...Option) *Session {
	s := &Session{
		retriever: retriever,
		answerer:  answerer,
		grounded:  DefaultGroundedPrompt,
		fallback:  DefaultFallbackPrompt,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// History returns a copy of the conversation so far.
func (s *Session) History() []answer.Turn {
	out := make([]answer.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Reset forgets every turn.
func (s *Session) Reset() {
	s.history = nil
}

func (s *Session) prepare(ctx context.Context, question string) (string, []answer.Turn, retrieval.Result) {
	result := s.retriever.Retrieve(ctx, question)
	if result.Empty() {
		s.logger.Debug("no grounding passages, answering ungrounded")
	}

	turns := make([]answer.Turn, 0, len(s.history)+1)
	turns = append(turns, s.history...)
	turns = append(turns, answer.Turn{Role: answer.RoleUser, Content: question})

	return SystemPrompt(s.grounded, s.fallback, result), turns, result
}

// Ask answers question and records the exchange. History is unchanged when
// the answerer fails.
func (s *Session) Ask(ctx context.Context, question string) (Reply, error) {
	system, turns, result := s.prepare(ctx, question)

	text, err := s.answerer.Respond(ctx, system, turns)
	if err != nil {
		return Reply{}, fmt.Errorf("answering: %w", err)
	}

	s.commit(question, text)
	return Reply{Text: text, Result: result}, nil
}

// Stream starts a streamed answer. The exchange is recorded once the stream
// ends without error.
func (s *Session) Stream(ctx context.Context, question string) (*ReplyStream, error) {
	system, turns, result := s.prepare(ctx, question)

	stream, err := s.answerer.Stream(ctx, system, turns)
	if err != nil {
		return nil, fmt.Errorf("answering: %w", err)
	}
	return &ReplyStream{
		session:  s,
		stream:   stream,
		question: question,
		result:   result,
	}, nil
}

func (s *Session) commit(question, reply string) {
	s.history = append(s.history,
		answer.Turn{Role: answer.RoleUser, Content: question},
		answer.Turn{Role: answer.RoleAssistant, Content: reply},
	)
	if s.maxPairs > 0 && len(s.history) > 2*s.maxPairs {
		s.history = append([]answer.Turn(nil), s.history[len(s.history)-2*s.maxPairs:]...)
	}
}

// ReplyStream is a finite producer of answer increments.
type ReplyStream struct {
	session  *Session
	stream   answer.Stream
	question string
	result   retrieval.Result
	text     strings.Builder
	delta    string
	done     bool
}

// Next advances to the next increment.
func (r *ReplyStream) Next() bool {
	if r.done {
		return false
	}
	if r.stream.Next() {
		r.delta = r.stream.Delta()
		r.text.WriteString(r.delta)
		return true
	}

	r.done = true
	r.delta = ""
	if r.stream.Err() == nil {
		r.session.commit(r.question, r.text.String())
	}
	return false
}

// Delta is the increment produced by the last Next.
func (r *ReplyStream) Delta() string { return r.delta }

// Text is everything received so far.
func (r *ReplyStream) Text() string { return r.text.String() }

// Err reports why the stream stopped early.
func (r *ReplyStream) Err() error { return r.stream.Err() }

// Reply returns the answer received so far with its grounding.
func (r *ReplyStream) Reply() Reply {
	return Reply{Text: r.text.String(), Result: r.result}
}

// Close releases the underlying stream. An unfinished stream is not recorded.
func (r *ReplyStream) Close() error {
	r.done = true
	return r.stream.Close()
}

package answer

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gpt-4o-mini"

	// DefaultMaxTokens caps the length of one reply.
	DefaultMaxTokens = 2048
)

// ErrEmptyResponse is returned when the model sends no choices.
var ErrEmptyResponse = errors.New("model returned no choices")

// OpenAI answers through an OpenAI-compatible chat completions API.
type OpenAI struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAI creates an answerer. Zero values select the defaults.
func NewOpenAI(client *openai.Client, model string, maxTokens int) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &OpenAI{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}
}

func (o *OpenAI) params(system string, history []Turn) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	for _, turn := range history {
		switch turn.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	return openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               openai.ChatModel(o.model),
		MaxCompletionTokens: openai.Int(int64(o.maxTokens)),
	}
}

func (o *OpenAI) Respond(ctx context.Context, system string, history []Turn) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, o.params(system, history))
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) Stream(ctx context.Context, system string, history []Turn) (Stream, error) {
	s := o.client.Chat.Completions.NewStreaming(ctx, o.params(system, history))
	if err := s.Err(); err != nil {
		s.Close()
		return nil, fmt.Errorf("chat completion stream failed: %w", err)
	}
	return &openAIStream{stream: s}, nil
}

type openAIStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
	delta  string
}

// Next skips chunks that carry no text, such as the final usage chunk.
func (s *openAIStream) Next() bool {
	for s.stream.Next() {
		c := s.stream.Current()
		if len(c.Choices) == 0 || c.Choices[0].Delta.Content == "" {
			continue
		}
		s.delta = c.Choices[0].Delta.Content
		return true
	}
	s.delta = ""
	return false
}

func (s *openAIStream) Delta() string { return s.delta }

func (s *openAIStream) Err() error {
	if err := s.stream.Err(); err != nil {
		return fmt.Errorf("chat completion stream failed: %w", err)
	}
	return nil
}

func (s *openAIStream) Close() error { return s.stream.Close() }

package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model               string `json:"model"`
	MaxCompletionTokens int    `json:"max_completion_tokens"`
	Stream              bool   `json:"stream"`
	Messages            []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestAnswerer(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL+"/v1/"),
		option.WithMaxRetries(0),
	)
	return NewOpenAI(&client, "", 0)
}

func TestRespond_SendsSystemAndHistory(t *testing.T) {
	var got atomic.Pointer[chatRequest]
	a := newTestAnswerer(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got.Store(&req)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":0,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"KDV oranı yüzde 20."}}]}`)
	})

	reply, err := a.Respond(context.Background(), "sistem", []Turn{
		{Role: RoleUser, Content: "merhaba"},
		{Role: RoleAssistant, Content: "size nasıl yardımcı olabilirim?"},
		{Role: RoleUser, Content: "KDV oranı nedir?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "KDV oranı yüzde 20.", reply)

	req := got.Load()
	require.NotNil(t, req)
	assert.Equal(t, DefaultModel, req.Model)
	assert.Equal(t, DefaultMaxTokens, req.MaxCompletionTokens)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "sistem", req.Messages[0].Content)
	assert.Equal(t, "assistant", req.Messages[2].Role)
	assert.Equal(t, "KDV oranı nedir?", req.Messages[3].Content)
}

func TestRespond_NoChoices(t *testing.T) {
	a := newTestAnswerer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":0,"model":"m","choices":[]}`)
	})

	_, err := a.Respond(context.Background(), "", []Turn{{Role: RoleUser, Content: "soru"}})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestRespond_APIError(t *testing.T) {
	a := newTestAnswerer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})

	_, err := a.Respond(context.Background(), "", []Turn{{Role: RoleUser, Content: "soru"}})
	assert.Error(t, err)
}

func TestStream_YieldsIncrements(t *testing.T) {
	a := newTestAnswerer(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"KDV ", "", "oranı ", "yüzde 20."} {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":0,\"model\":\"m\","+
				"\"choices\":[{\"index\":0,\"delta\":{\"content\":%q},\"finish_reason\":null}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	s, err := a.Stream(context.Background(), "sistem", []Turn{{Role: RoleUser, Content: "KDV?"}})
	require.NoError(t, err)
	defer s.Close()

	var parts []string
	for s.Next() {
		parts = append(parts, s.Delta())
	}
	require.NoError(t, s.Err())
	assert.Equal(t, []string{"KDV ", "oranı ", "yüzde 20."}, parts)
	assert.Equal(t, "KDV oranı yüzde 20.", strings.Join(parts, ""))
	assert.False(t, s.Next(), "stream is not restartable")
}

package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompletions struct {
	requests []openai.ChatCompletionRequest
	reply    string
	noChoice bool
	status   int
}

func (f *fakeCompletions) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" {
		http.NotFound(w, r)
		return
	}
	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.requests = append(f.requests, req)

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
		return
	}

	resp := openai.ChatCompletionResponse{ID: "chatcmpl-1", Object: "chat.completion", Model: req.Model}
	if !f.noChoice {
		resp.Choices = []openai.ChatCompletionChoice{{
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.reply},
			FinishReason: openai.FinishReasonStop,
		}}
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestClient(t *testing.T, fake *fakeCompletions) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(Config{APIKey: "sk-test", Model: "test-model", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)
	return c
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{APIKey: "  "})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	c, err := New(Config{APIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, openai.GPT4oMini, c.Model())
}

func TestAnalyze(t *testing.T) {
	fake := &fakeCompletions{reply: "clusters downtown"}
	c := newTestClient(t, fake)

	out, err := c.Analyze(context.Background(), "Total Stations: 2")
	require.NoError(t, err)
	assert.Equal(t, "clusters downtown", out)

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, "test-model", req.Model)
	assert.Equal(t, 1500, req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 1e-6)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, "You are an expert spatial data analyst.", req.Messages[0].Content)
	assert.Contains(t, req.Messages[1].Content, "Total Stations: 2")
}

func TestMapDesignIncludesAnalysis(t *testing.T) {
	fake := &fakeCompletions{reply: "use a sequential ramp"}
	c := newTestClient(t, fake)

	_, err := c.MapDesign(context.Background(), "ANALYSIS-TEXT", "SUMMARY-TEXT")
	require.NoError(t, err)

	user := fake.requests[0].Messages[1].Content
	assert.Contains(t, user, "ANALYSIS-TEXT")
	assert.Contains(t, user, "SUMMARY-TEXT")
}

func TestSummarizeEncodesStats(t *testing.T) {
	fake := &fakeCompletions{reply: "ok"}
	c := newTestClient(t, fake)

	_, err := c.Summarize(context.Background(), map[string]int{"stations": 812})
	require.NoError(t, err)

	req := fake.requests[0]
	assert.Equal(t, 500, req.MaxTokens)
	assert.Contains(t, req.Messages[1].Content, `"stations": 812`)
}

func TestChatAddsContext(t *testing.T) {
	fake := &fakeCompletions{reply: "answer"}
	c := newTestClient(t, fake)

	_, err := c.Chat(context.Background(), "question", "Montreal network")
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), "question", "")
	require.NoError(t, err)

	require.Len(t, fake.requests, 2)
	assert.Len(t, fake.requests[0].Messages, 3)
	assert.Equal(t, "Context: Montreal network", fake.requests[0].Messages[1].Content)
	assert.Len(t, fake.requests[1].Messages, 2)
}

func TestNoChoices(t *testing.T) {
	c := newTestClient(t, &fakeCompletions{noChoice: true})

	_, err := c.Analyze(context.Background(), "x")
	assert.ErrorContains(t, err, "no choices")
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, &fakeCompletions{status: http.StatusTooManyRequests})

	_, err := c.Analyze(context.Background(), "x")

	var apiErr *openai.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.HTTPStatusCode)
}

func TestPrompt(t *testing.T) {
	_, err := Prompt(PromptKind(99), PromptArgs{})
	assert.ErrorContains(t, err, "prompt(99)")

	p, err := Prompt(PromptSummary, PromptArgs{Stats: "STATS"})
	require.NoError(t, err)
	assert.Contains(t, p, "STATS")
	assert.Equal(t, "map_design", PromptMapDesign.String())
}

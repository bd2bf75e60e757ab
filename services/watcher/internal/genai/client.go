package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is required")

const defaultModel = openai.GPT4oMini

// Config configures the chat completion client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Client wraps the chat completion API with the fixed analysis prompts.
type Client struct {
	api   *openai.Client
	model string
}

type call struct {
	system      string
	temperature float32
	maxTokens   int
}

var (
	analysisCall  = call{system: "You are an expert spatial data analyst.", temperature: 0.7, maxTokens: 1500}
	mapDesignCall = call{system: "You are an expert cartographer and GIS specialist.", temperature: 0.7, maxTokens: 1500}
	summaryCall   = call{system: "You are a data analyst who creates clear, concise summaries.", temperature: 0.5, maxTokens: 500}
	chatCall      = call{system: "You are a helpful assistant for GIS and spatial data analysis.", temperature: 0.7, maxTokens: 1000}
)

// New builds a Client. It fails with ErrMissingAPIKey when cfg.APIKey is empty.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &Client{api: openai.NewClientWithConfig(oc), model: model}, nil
}

// Model returns the model name sent with every request.
func (c *Client) Model() string { return c.model }

// Analyze asks for insights over a plain-text data summary.
func (c *Client) Analyze(ctx context.Context, summary string) (string, error) {
	prompt, err := Prompt(PromptAnalysis, PromptArgs{DataSummary: summary})
	if err != nil {
		return "", err
	}
	return c.complete(ctx, analysisCall, prompt, "")
}

// MapDesign asks for cartographic recommendations based on a prior analysis.
func (c *Client) MapDesign(ctx context.Context, analysis, summary string) (string, error) {
	prompt, err := Prompt(PromptMapDesign, PromptArgs{Analysis: analysis, DataSummary: summary})
	if err != nil {
		return "", err
	}
	return c.complete(ctx, mapDesignCall, prompt, "")
}

// Summarize turns aggregate statistics into a short narrative. stats is
// rendered as indented JSON.
func (c *Client) Summarize(ctx context.Context, stats any) (string, error) {
	raw, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode stats: %w", err)
	}
	prompt, err := Prompt(PromptSummary, PromptArgs{Stats: string(raw)})
	if err != nil {
		return "", err
	}
	return c.complete(ctx, summaryCall, prompt, "")
}

// Chat sends a free-form message, optionally preceded by project context.
func (c *Client) Chat(ctx context.Context, message, background string) (string, error) {
	return c.complete(ctx, chatCall, message, background)
}

func (c *Client) complete(ctx context.Context, cl call, prompt, extra string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: cl.system},
	}
	if extra != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: "Context: " + extra})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: cl.temperature,
		MaxTokens:   cl.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

package providers

import (
	"context"
	"errors"
	"time"

	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
)

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

// openAICompatible implements the chat-completions wire shape shared by
// OpenAI, xAI, Groq, the local Ollama endpoint, and the aggregator. Each
// vendor wraps it with its own endpoint, auth header, and name so a parse
// failure or error is still attributed to the right panelist.
type openAICompatible struct {
	vendorName   string
	apiKey       string
	endpoint     string
	extraHeaders map[string]string
}

type chatCompletionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *openAICompatible) open() error {
	if p.apiKey == "" && p.vendorName != "local" {
		return errors.New(p.vendorName + ": no API key configured")
	}

	return nil
}

func (p *openAICompatible) complete(ctx context.Context, req CompletionRequest) (transcript.ModelResponse, error) {
	messages := make([]chatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body := chatCompletionRequest{
		Model:     req.ModelID,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}

	headers := map[string]string{}
	for k, v := range p.extraHeaders {
		headers[k] = v
	}

	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}

	var out chatCompletionResponse
	if err := postJSON(ctx, p.endpoint, headers, body, &out); err != nil {
		return errorResponse(req, err), nil
	}

	if out.Error != nil {
		return errorResponse(req, errors.New(out.Error.Message)), nil
	}

	if len(out.Choices) == 0 {
		return errorResponse(req, errors.New(p.vendorName+": no choices returned")), nil
	}

	content := out.Choices[0].Message.Content
	if content == "" {
		content = noTextContentSentinel
	}

	resp := transcript.ModelResponse{
		ModelAlias:  req.ModelAlias,
		ModelID:     req.ModelID,
		Content:     content,
		RoundNumber: req.RoundNumber,
		CreatedAt:   time.Now().UTC(),
	}

	if out.Usage != nil {
		resp.InputTokens = ptr(out.Usage.PromptTokens)
		resp.OutputTokens = ptr(out.Usage.CompletionTokens)
		resp.TokenCount = ptr(out.Usage.TotalTokens)
	} else {
		resp.InputTokens = estimateTokens(promptText(req.Messages))
	}

	return resp, nil
}

func promptText(msgs []Message) string {
	var out string
	for _, m := range msgs {
		out += m.Content + "\n"
	}

	return out
}

// OpenAIProvider calls OpenAI's chat-completions endpoint directly.
type OpenAIProvider struct {
	core *openAICompatible
}

// NewOpenAIProvider builds a client for the given API key. endpoint
// defaults to the public OpenAI API when empty.
func NewOpenAIProvider(apiKey, endpoint string) *OpenAIProvider {
	if endpoint == "" {
		endpoint = openAIEndpoint
	}

	return &OpenAIProvider{core: &openAICompatible{vendorName: "openai", apiKey: apiKey, endpoint: endpoint}}
}

func (p *OpenAIProvider) Open(_ context.Context) error { return p.core.open() }
func (p *OpenAIProvider) Close() error                 { return nil }

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (transcript.ModelResponse, error) {
	return p.core.complete(ctx, req)
}

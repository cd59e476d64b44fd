package providers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
)

const anthropicEndpoint = "https://api.anthropic.com/v1/messages"

const anthropicDefaultMaxTokens = 4096

// AnthropicProvider calls the Anthropic Messages API directly.
type AnthropicProvider struct {
	apiKey   string
	endpoint string
}

// NewAnthropicProvider builds a client for the given API key. endpoint
// defaults to the public Anthropic API when empty.
func NewAnthropicProvider(apiKey, endpoint string) *AnthropicProvider {
	if endpoint == "" {
		endpoint = anthropicEndpoint
	}

	return &AnthropicProvider{apiKey: apiKey, endpoint: endpoint}
}

func (p *AnthropicProvider) Open(_ context.Context) error {
	if p.apiKey == "" {
		return errors.New("anthropic: no API key configured")
	}

	return nil
}

func (p *AnthropicProvider) Close() error { return nil }

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (transcript.ModelResponse, error) {
	if p.apiKey == "" {
		return errorResponse(req, ErrNotOpen), nil
	}

	system, messages := splitSystemMessage(req.Messages)

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	body := anthropicRequest{
		Model:     req.ModelID,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  messages,
	}

	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": "2023-06-01",
	}

	var out anthropicResponse
	if err := postJSON(ctx, p.endpoint, headers, body, &out); err != nil {
		return errorResponse(req, err), nil
	}

	if out.Error != nil {
		return errorResponse(req, errors.New(out.Error.Message)), nil
	}

	text := concatTextBlocks(out.Content)

	resp := transcript.ModelResponse{
		ModelAlias:  req.ModelAlias,
		ModelID:     req.ModelID,
		Content:     text,
		RoundNumber: req.RoundNumber,
		CreatedAt:   time.Now().UTC(),
	}

	if out.Usage.InputTokens > 0 || out.Usage.OutputTokens > 0 {
		resp.InputTokens = ptr(out.Usage.InputTokens)
		resp.OutputTokens = ptr(out.Usage.OutputTokens)
		resp.TokenCount = ptr(out.Usage.InputTokens + out.Usage.OutputTokens)
	}

	return resp, nil
}

// splitSystemMessage pulls out any "system" role messages (Anthropic takes
// the system prompt as a separate top-level field, not a message) and
// concatenates them, matching spec.md's "system-message concatenation"
// contract.
func splitSystemMessage(msgs []Message) (string, []anthropicMessage) {
	var systemParts []string

	out := make([]anthropicMessage, 0, len(msgs))

	for _, m := range msgs {
		if m.Role == "system" {
			systemParts = append(systemParts, m.Content)
			continue
		}

		out = append(out, anthropicMessage{Role: m.Role, Content: m.Content})
	}

	return strings.Join(systemParts, "\n\n"), out
}

// concatTextBlocks joins every text content block into one string. When a
// response has no text content at all, this returns the sentinel used
// throughout this module to mean "the vendor returned an empty answer".
func concatTextBlocks(blocks []anthropicContentBlock) string {
	var parts []string

	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}

	if len(parts) == 0 {
		return noTextContentSentinel
	}

	return strings.Join(parts, "")
}

const noTextContentSentinel = "(no text content)"

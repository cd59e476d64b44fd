package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
)

const googleEndpointTemplate = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// GoogleProvider calls the Gemini generateContent REST API directly.
type GoogleProvider struct {
	apiKey          string
	endpointPattern string
}

// NewGoogleProvider builds a client for the given API key. endpointPattern
// is a %s-templated URL taking the model ID; it defaults to the public
// Gemini API when empty.
func NewGoogleProvider(apiKey, endpointPattern string) *GoogleProvider {
	if endpointPattern == "" {
		endpointPattern = googleEndpointTemplate
	}

	return &GoogleProvider{apiKey: apiKey, endpointPattern: endpointPattern}
}

func (p *GoogleProvider) Open(_ context.Context) error {
	if p.apiKey == "" {
		return errors.New("google: no API key configured")
	}

	return nil
}

func (p *GoogleProvider) Close() error { return nil }

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *GoogleProvider) Complete(ctx context.Context, req CompletionRequest) (transcript.ModelResponse, error) {
	if p.apiKey == "" {
		return errorResponse(req, ErrNotOpen), nil
	}

	var system *geminiContent

	contents := make([]geminiContent, 0, len(req.Messages))

	for _, m := range req.Messages {
		if m.Role == "system" {
			system = &geminiContent{Parts: []geminiPart{{Text: m.Content}}}
			continue
		}

		role := m.Role
		if role == "assistant" {
			role = "model"
		}

		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}

	body := geminiRequest{Contents: contents, SystemInstruction: system}
	url := fmt.Sprintf(p.endpointPattern, req.ModelID)
	headers := map[string]string{"x-goog-api-key": p.apiKey}

	var out geminiResponse
	if err := postJSON(ctx, url, headers, body, &out); err != nil {
		return errorResponse(req, err), nil
	}

	if out.Error != nil {
		return errorResponse(req, errors.New(out.Error.Message)), nil
	}

	if len(out.Candidates) == 0 {
		return errorResponse(req, errors.New("google: no candidates returned")), nil
	}

	var parts []string
	for _, part := range out.Candidates[0].Content.Parts {
		if part.Text != "" {
			parts = append(parts, part.Text)
		}
	}

	content := strings.Join(parts, "")
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

	if out.UsageMetadata.PromptTokenCount > 0 || out.UsageMetadata.CandidatesTokenCount > 0 {
		resp.InputTokens = ptr(out.UsageMetadata.PromptTokenCount)
		resp.OutputTokens = ptr(out.UsageMetadata.CandidatesTokenCount)
	}

	if out.UsageMetadata.TotalTokenCount > 0 {
		resp.TokenCount = ptr(out.UsageMetadata.TotalTokenCount)
	}

	return resp, nil
}

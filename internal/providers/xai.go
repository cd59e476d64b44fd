package providers

import (
	"context"

	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
)

const xaiEndpoint = "https://api.x.ai/v1/chat/completions"

// XAIProvider calls xAI's OpenAI-compatible chat-completions endpoint.
type XAIProvider struct {
	core *openAICompatible
}

// NewXAIProvider builds a client for the given API key. endpoint defaults
// to the public xAI API when empty.
func NewXAIProvider(apiKey, endpoint string) *XAIProvider {
	if endpoint == "" {
		endpoint = xaiEndpoint
	}

	return &XAIProvider{core: &openAICompatible{vendorName: "xai", apiKey: apiKey, endpoint: endpoint}}
}

func (p *XAIProvider) Open(_ context.Context) error { return p.core.open() }
func (p *XAIProvider) Close() error                 { return nil }

func (p *XAIProvider) Complete(ctx context.Context, req CompletionRequest) (transcript.ModelResponse, error) {
	return p.core.complete(ctx, req)
}

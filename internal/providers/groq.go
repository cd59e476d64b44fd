package providers

import (
	"context"

	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
)

const groqEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// GroqProvider calls Groq's OpenAI-compatible chat-completions endpoint.
type GroqProvider struct {
	core *openAICompatible
}

// NewGroqProvider builds a client for the given API key. endpoint
// defaults to the public Groq API when empty.
func NewGroqProvider(apiKey, endpoint string) *GroqProvider {
	if endpoint == "" {
		endpoint = groqEndpoint
	}

	return &GroqProvider{core: &openAICompatible{vendorName: "groq", apiKey: apiKey, endpoint: endpoint}}
}

func (p *GroqProvider) Open(_ context.Context) error { return p.core.open() }
func (p *GroqProvider) Close() error                 { return nil }

func (p *GroqProvider) Complete(ctx context.Context, req CompletionRequest) (transcript.ModelResponse, error) {
	return p.core.complete(ctx, req)
}

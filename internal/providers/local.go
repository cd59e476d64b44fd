package providers

import (
	"context"

	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
)

const localEndpoint = "http://localhost:11434/v1/chat/completions"

// LocalProvider calls an Ollama-compatible chat endpoint. Unlike every
// other vendor, it requires no API key — Open never fails on a missing
// credential, only the router's decision to route to it at all is gated
// on configuration.
type LocalProvider struct {
	core *openAICompatible
}

// NewLocalProvider builds a client pointed at an Ollama-compatible host.
// endpoint defaults to the standard local Ollama port when empty.
func NewLocalProvider(endpoint string) *LocalProvider {
	if endpoint == "" {
		endpoint = localEndpoint
	}

	return &LocalProvider{core: &openAICompatible{vendorName: "local", endpoint: endpoint}}
}

func (p *LocalProvider) Open(_ context.Context) error { return p.core.open() }
func (p *LocalProvider) Close() error                 { return nil }

func (p *LocalProvider) Complete(ctx context.Context, req CompletionRequest) (transcript.ModelResponse, error) {
	return p.core.complete(ctx, req)
}

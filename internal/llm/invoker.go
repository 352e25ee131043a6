package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/hetulpatel/pdfvalidator/internal/config"
)

// Temperature is fixed low so repeated judgments of the same document agree.
const Temperature float32 = 0.2

// Invoker sends one system+user exchange to a chat model and returns the raw
// completion text.
type Invoker interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Provider() string
	Model() string
}

// FromConfig builds the invoker for the configured provider. The choice is
// made once; callers hold the returned Invoker for the process lifetime.
func FromConfig(ctx context.Context, cfg *config.Config) (Invoker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("llm: config is nil")
	}
	var (
		inv Invoker
		err error
	)
	switch strings.ToLower(cfg.LLMProvider) {
	case config.ProviderOpenAI:
		inv, err = NewRemote(Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
	case config.ProviderLMStudio:
		inv, err = NewLocal(Config{
			BaseURL: cfg.LMStudioBaseURL,
			Model:   cfg.LMStudioModel,
		})
	case config.ProviderVertex:
		inv, err = NewVertex(ctx, VertexConfig{
			ProjectID:       cfg.VertexProjectID,
			Location:        cfg.VertexLocation,
			Model:           cfg.VertexModel,
			CredentialsFile: cfg.VertexCredentialsFile,
		})
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.LLMProvider)
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

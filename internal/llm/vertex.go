package llm

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"

	"github.com/hetulpatel/pdfvalidator/internal/config"
)

const defaultVertexModel = "gemini-1.5-pro"

// VertexConfig selects the Vertex AI project, region and Gemini model.
type VertexConfig struct {
	ProjectID       string
	Location        string
	Model           string
	CredentialsFile string
}

// VertexClient invokes Gemini models hosted on Vertex AI.
type VertexClient struct {
	client *genai.Client
	model  string
}

// NewVertex dials Vertex AI using application default credentials unless a
// credentials file is given.
func NewVertex(ctx context.Context, cfg VertexConfig) (*VertexClient, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	location := strings.TrimSpace(cfg.Location)
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("llm: vertex project and location are required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultVertexModel
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := genai.NewClient(ctx, projectID, location, opts...)
	if err != nil {
		return nil, fmt.Errorf("llm: genai.NewClient: %w", err)
	}
	return &VertexClient{client: client, model: model}, nil
}

func (v *VertexClient) Provider() string { return config.ProviderVertex }

func (v *VertexClient) Model() string { return v.model }

// Complete asks Gemini for a JSON response to userPrompt under systemPrompt.
func (v *VertexClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if v == nil || v.client == nil {
		return "", fmt.Errorf("llm: vertex client is nil")
	}
	if systemPrompt == "" || userPrompt == "" {
		return "", fmt.Errorf("llm: prompts must be provided")
	}

	gm := v.client.GenerativeModel(v.model)
	gm.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	gm.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(Temperature),
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("llm: empty response")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("llm: empty response")
	}
	return strings.TrimSpace(b.String()), nil
}

// Close releases the underlying gRPC connection.
func (v *VertexClient) Close() error {
	if v == nil || v.client == nil {
		return nil
	}
	return v.client.Close()
}

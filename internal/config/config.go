// Package config loads the service configuration from the environment once
// at process start.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI   = "openai"
	ProviderLMStudio = "lmstudio"
	ProviderVertex   = "vertex"

	ExtractorNative    = "native"
	ExtractorPDFToText = "pdftotext"

	APITitle       = "PDF Validator API"
	APIVersion     = "1.0.0"
	APIDescription = "Validate PDF documents against custom rules using LLM"
)

// Config is built once by Load and shared read-only by every request.
type Config struct {
	LLMProvider string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	LMStudioBaseURL string
	LMStudioModel   string

	VertexProjectID       string
	VertexLocation        string
	VertexModel           string
	VertexCredentialsFile string

	MaxFileSizeMB     int
	AllowedExtensions []string
	UploadDir         string
	CORSOrigins       []string
	HTTPAddr          string

	PDFExtractor  string
	PDFToTextBin  string
	LogLevel      string
	OutcomeEvents bool
	KafkaBrokers  []string
	OutcomesTopic string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		LLMProvider: strings.ToLower(envString("LLM_PROVIDER", ProviderLMStudio)),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   envString("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),

		LMStudioBaseURL: envString("LMSTUDIO_BASE_URL", "http://localhost:1234/v1"),
		LMStudioModel:   envString("LMSTUDIO_MODEL", "local-model"),

		VertexProjectID:       os.Getenv("VERTEX_PROJECT_ID"),
		VertexLocation:        envString("VERTEX_LOCATION", "us-central1"),
		VertexModel:           envString("VERTEX_MODEL", "gemini-1.5-pro"),
		VertexCredentialsFile: os.Getenv("VERTEX_CREDENTIALS_FILE"),

		MaxFileSizeMB:     envInt("MAX_FILE_SIZE_MB", 10),
		AllowedExtensions: normalizeExtensions(envList("ALLOWED_EXTENSIONS", []string{".pdf"})),
		UploadDir:         envString("UPLOAD_DIR", "uploads"),
		CORSOrigins:       envList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		HTTPAddr:          envString("HTTP_ADDR", ":8000"),

		PDFExtractor:  strings.ToLower(envString("PDF_EXTRACTOR", ExtractorNative)),
		PDFToTextBin:  os.Getenv("PDFTOTEXT_BIN"),
		LogLevel:      envString("LOG_LEVEL", "info"),
		OutcomeEvents: envBool("OUTCOME_EVENTS", false),
		KafkaBrokers:  envList("KAFKA_BROKERS", []string{"kafka-broker:9092"}),
		OutcomesTopic: envString("OUTCOMES_KAFKA_TOPIC", "validation.outcomes"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first configuration problem that would stop the
// service from handling requests.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI:
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			return fmt.Errorf("config: OPENAI_API_KEY is required when LLM_PROVIDER=%s", ProviderOpenAI)
		}
	case ProviderLMStudio:
		if strings.TrimSpace(c.LMStudioBaseURL) == "" {
			return fmt.Errorf("config: LMSTUDIO_BASE_URL is required when LLM_PROVIDER=%s", ProviderLMStudio)
		}
	case ProviderVertex:
		if strings.TrimSpace(c.VertexProjectID) == "" {
			return fmt.Errorf("config: VERTEX_PROJECT_ID is required when LLM_PROVIDER=%s", ProviderVertex)
		}
	default:
		return fmt.Errorf("config: unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	switch c.PDFExtractor {
	case ExtractorNative, ExtractorPDFToText:
	default:
		return fmt.Errorf("config: unknown PDF_EXTRACTOR %q", c.PDFExtractor)
	}
	if c.MaxFileSizeMB <= 0 {
		return fmt.Errorf("config: MAX_FILE_SIZE_MB must be positive, got %d", c.MaxFileSizeMB)
	}
	if len(c.AllowedExtensions) == 0 {
		return fmt.Errorf("config: ALLOWED_EXTENSIONS must not be empty")
	}
	if strings.TrimSpace(c.UploadDir) == "" {
		return fmt.Errorf("config: UPLOAD_DIR must not be empty")
	}
	if c.OutcomeEvents && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("config: KAFKA_BROKERS is required when OUTCOME_EVENTS is enabled")
	}
	return nil
}

// MaxUploadBytes is the request body limit derived from MaxFileSizeMB.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxFileSizeMB) << 20
}

// ActiveModel names the model the configured provider will be asked to use.
func (c *Config) ActiveModel() string {
	switch c.LLMProvider {
	case ProviderOpenAI:
		return c.OpenAIModel
	case ProviderVertex:
		return c.VertexModel
	default:
		return c.LMStudioModel
	}
}

func envString(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return def
}

func envList(key string, def []string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// Package openaix builds the OpenAI SDK client used by the assistant
// gateway.
package openaix

import (
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type Config struct {
	BaseURL    string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey     string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model      string        `envconfig:"MODEL" split_words:"true" default:"gpt-4"`
	EmbedModel string        `envconfig:"EMBED_MODEL" split_words:"true" default:"text-embedding-ada-002"`
	Timeout    time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

// NewClient creates an OpenAI SDK client, or nil when no API key is set.
func NewClient(cfg Config) *openaisdk.Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if trimmed := strings.TrimRight(cfg.BaseURL, "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}

	client := openaisdk.NewClient(opts...)
	return &client
}

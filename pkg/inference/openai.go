package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	nperrors "github.com/quorumhq/nameplate/pkg/errors"
	"github.com/quorumhq/nameplate/pkg/logging"
)

// Config configures the OpenAI-compatible provider. The BaseURL may point at
// any server speaking the OpenAI chat-completions API, including local vLLM
// or Ollama deployments.
type Config struct {
	BaseURL    string        `yaml:"base_url" json:"base_url"`
	APIKey     string        `yaml:"-" json:"-"`
	Model      string        `yaml:"model" json:"model"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
}

// Provider defaults.
const (
	DefaultModel      = "gpt-4o-mini"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 2
)

// DefaultConfig returns the default provider configuration.
func DefaultConfig() Config {
	return Config{
		Model:      DefaultModel,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
	}
}

// OpenAIProvider implements Provider over the OpenAI chat-completions API.
type OpenAIProvider struct {
	client *openai.Client
	config Config
	log    logging.Logger
	name   string
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible backend.
func NewOpenAIProvider(cfg Config, log logging.Logger) *OpenAIProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if log == nil {
		log = logging.NewNop()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
		log:    log,
		name:   fmt.Sprintf("openai-%s", cfg.Model),
	}
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return p.name
}

const systemPrompt = `You resolve informal name mentions from meeting transcripts to a roster of known people.
Given a mention and the roster, decide which roster entry (identified by email) the mention refers to.
Consider nicknames (Bob for Robert), initials (JS for John Smith), and transcription typos.
If no entry is a plausible referent, decline.
Respond with JSON only: {"candidate_email": "...", "confidence": 0.0-1.0, "reasoning": "..."}.
Use an empty candidate_email to decline.`

// inferResponse is the JSON schema the model is asked to produce.
type inferResponse struct {
	CandidateEmail string  `json:"candidate_email"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
}

// Infer asks the backend which roster entry the mention refers to.
func (p *OpenAIProvider) Infer(ctx context.Context, req Request) (*Inference, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: p.config.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: 0,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", nperrors.ErrProviderUnavailable, ctx.Err())
			}
			lastErr = fmt.Errorf("%w: %v", nperrors.ErrProviderUnavailable, err)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("%w: empty completion", nperrors.ErrProviderUnavailable)
			continue
		}

		parsed, err := parseInference(resp.Choices[0].Message.Content)
		if err != nil {
			p.log.Warn("unparseable inference response",
				logging.F("attempt", attempt), logging.Err(err))
			lastErr = err
			continue
		}

		if parsed.CandidateEmail == "" {
			// Provider declined.
			return nil, nil
		}
		return &Inference{
			CandidateEmail: parsed.CandidateEmail,
			Confidence:     clamp01(parsed.Confidence),
			Reasoning:      parsed.Reasoning,
		}, nil
	}

	return nil, lastErr
}

// parseInference parses the model output, tolerating markdown fences that
// some backends wrap around JSON.
func parseInference(content string) (*inferResponse, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var parsed inferResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("parse inference JSON: %w", err)
	}
	return &parsed, nil
}

func buildPrompt(req Request) (string, error) {
	type rosterLine struct {
		DisplayName string   `json:"display_name"`
		Email       string   `json:"email"`
		Aliases     []string `json:"aliases,omitempty"`
		Role        string   `json:"role,omitempty"`
	}
	lines := make([]rosterLine, 0, len(req.Roster))
	for _, e := range req.Roster {
		lines = append(lines, rosterLine{
			DisplayName: e.DisplayName,
			Email:       e.Email,
			Aliases:     e.Aliases,
			Role:        e.Role,
		})
	}
	rosterJSON, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("marshal roster: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Mention: %q\n\nRoster:\n%s\n", req.Mention, rosterJSON)
	if len(req.Context) > 0 {
		fmt.Fprintf(&b, "\nDisambiguation context:\n- %s\n", strings.Join(req.Context, "\n- "))
	}
	return b.String(), nil
}

// IsAvailable checks whether the backend responds to a model listing.
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := p.client.ListModels(ctx)
	return err == nil
}

// Close releases provider resources.
func (p *OpenAIProvider) Close() error {
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/gracebase/content-pipeline/internal/schemas"
	"github.com/gracebase/content-pipeline/internal/types"
)

// Event is one element of a streaming generation sequence: a delta, or
// exactly one terminal element carrying either the final validated result
// or an error.
type Event struct {
	Delta  *types.Delta
	Result types.ContentFields
	Err    error
}

// Provider is the narrow interface to the opaque generation capability.
type Provider interface {
	// Generate produces a complete structured payload for the request.
	Generate(ctx context.Context, req types.GenerationRequest) (types.ContentFields, error)
	// GenerateStream produces an ordered sequence of delta events followed
	// by one terminal event, after which the channel is closed.
	GenerateStream(ctx context.Context, req types.GenerationRequest) (<-chan Event, error)
	// Close releases any resources held by the provider.
	Close() error
}

// NewProvider creates a provider based on configuration.
func NewProvider(ctx context.Context, config *Config, apiKey string) (Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiProvider(ctx, config, apiKey)
	default:
		return NewGeminiProvider(ctx, config, apiKey)
	}
}

// GeminiProvider implements Provider for Google Gemini.
type GeminiProvider struct {
	client *genai.Client
	config *Config
}

// NewGeminiProvider creates a new Gemini-backed provider.
func NewGeminiProvider(ctx context.Context, config *Config, apiKey string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{client: client, config: config}, nil
}

// Generate produces a complete payload in one call and validates it against
// the content type's schema before returning it.
func (p *GeminiProvider) Generate(ctx context.Context, req types.GenerationRequest) (types.ContentFields, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	model := p.client.GenerativeModel(p.config.Model(req.Model))
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(BuildPrompt(req)))
	if err != nil {
		return nil, &types.ErrProvider{Message: "generation call failed", Cause: err}
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return nil, &types.ErrProvider{Message: "empty response", Cause: err}
	}

	var fields types.ContentFields
	if err := json.Unmarshal([]byte(CleanJSONBlock(text)), &fields); err != nil {
		return nil, &types.ErrProvider{Message: "response is not valid JSON", Cause: err}
	}

	if err := schemas.ValidateContent(req.ContentType, fields); err != nil {
		return nil, &types.ErrProvider{Message: "response failed schema validation", Cause: err}
	}

	return fields, nil
}

// GenerateStream streams the payload as field-scoped deltas. The returned
// channel carries deltas in provider order, then one terminal event, and is
// closed. Cancelling ctx aborts the provider call.
func (p *GeminiProvider) GenerateStream(ctx context.Context, req types.GenerationRequest) (<-chan Event, error) {
	model := p.client.GenerativeModel(p.config.Model(req.Model))

	events := make(chan Event)
	go func() {
		defer close(events)

		ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()

		iter := model.GenerateContentStream(ctx, genai.Text(BuildStreamPrompt(req)))
		accumulated := make(types.ContentFields)
		var scanner lineScanner

		// The receiver may be gone after a cancellation; terminal sends must
		// not block past that.
		emit := func(ev Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}

		emitLines := func(lines []string) (done bool, err error) {
			for _, line := range lines {
				delta, done, err := parseDeltaLine(line)
				if err != nil {
					return false, err
				}
				if done {
					return true, nil
				}
				if delta == nil {
					continue
				}
				if err := accumulated.Apply(*delta); err != nil {
					return false, err
				}
				select {
				case events <- Event{Delta: delta}:
				case <-ctx.Done():
					return false, ctx.Err()
				}
			}
			return false, nil
		}

		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				if _, ferr := emitLines(scanner.flush()); ferr != nil {
					emit(Event{Err: &types.ErrProvider{Message: "malformed stream tail", Cause: ferr}})
					return
				}
				break
			}
			if err != nil {
				emit(Event{Err: &types.ErrProvider{Message: "stream failed", Cause: err}})
				return
			}

			text, err := extractTextFromResponse(resp)
			if err != nil {
				continue // chunks without text parts are skipped
			}

			done, err := emitLines(scanner.feed(text))
			if err != nil {
				emit(Event{Err: &types.ErrProvider{Message: "malformed delta", Cause: err}})
				return
			}
			if done {
				break
			}
		}

		if err := schemas.ValidateContent(req.ContentType, accumulated); err != nil {
			emit(Event{Err: &types.ErrProvider{Message: "streamed result failed schema validation", Cause: err}})
			return
		}
		emit(Event{Result: accumulated})
	}()

	return events, nil
}

// Close releases resources held by the provider.
func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from a Gemini API response.
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}

// CleanJSONBlock removes markdown code block wrappers from JSON responses.
// Models often wrap JSON in ```json ... ``` blocks even when instructed not to.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

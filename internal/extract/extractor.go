// Package extract turns raw transcripts into structured interview data via
// an external LLM backend. The backend returns free text expected to
// contain a JSON object; parse failures degrade to a fallback structure
// rather than failing the request.
package extract

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/ayumi-support/kiroku-engine/internal/metrics"
	"github.com/ayumi-support/kiroku-engine/internal/retry"
)

// ExtractionError reports exhausted retries against the extraction backend.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string { return fmt.Sprintf("extraction failed: %v", e.Err) }
func (e *ExtractionError) Unwrap() error { return e.Err }

// Extractor wraps the chat-completion backend with the shared retry
// policy: 60s per attempt, 3 attempts.
type Extractor struct {
	client *openai.Client
	model  string
	retry  retry.Config
	log    zerolog.Logger
}

func New(apiKey, baseURL, model string, retryCfg retry.Config, log zerolog.Logger) *Extractor {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Extractor{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		retry:  retryCfg,
		log:    log.With().Str("component", "extract").Logger(),
	}
}

func (e *Extractor) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := retry.Do(ctx, e.log, "extraction", e.retry, func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		return e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:     e.model,
			MaxTokens: maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
	})
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues("error").Inc()
		return "", &ExtractionError{Err: err}
	}
	if len(resp.Choices) == 0 {
		metrics.ExtractionsTotal.WithLabelValues("error").Inc()
		return "", &ExtractionError{Err: fmt.Errorf("backend returned no choices")}
	}
	metrics.ExtractionsTotal.WithLabelValues("ok").Inc()
	return resp.Choices[0].Message.Content, nil
}

// Analyze extracts a single structured interview record from a transcript.
// customPrompt overrides the default prompt when non-empty.
func (e *Extractor) Analyze(ctx context.Context, transcript, customPrompt string) (map[string]any, error) {
	prompt := customPrompt
	if prompt == "" {
		prompt = buildAnalysisPrompt(transcript)
	}
	text, err := e.complete(ctx, prompt, 4000)
	if err != nil {
		return nil, err
	}

	result, ok := ParseJSONObject(text)
	if !ok {
		e.log.Warn().Int("response_len", len(text)).Msg("no JSON object in extraction response, using fallback")
		return analysisFallback(text), nil
	}
	return result, nil
}

// AnalyzeForDocuments extracts the sections needed to fill the named
// document types (individual-support-plan, monitoring-record, ...).
func (e *Extractor) AnalyzeForDocuments(ctx context.Context, transcript string, documentTypes []string) (map[string]any, error) {
	text, err := e.complete(ctx, buildDocumentsPrompt(transcript, documentTypes), 4000)
	if err != nil {
		return nil, err
	}

	result, ok := ParseJSONObject(text)
	if !ok {
		e.log.Warn().Strs("document_types", documentTypes).Msg("no JSON object in document extraction response, using fallback")
		return documentsFallback(), nil
	}
	return result, nil
}

// AnalyzeForTables extracts database-row-shaped data for the target
// tables of the auto-fill layer.
func (e *Extractor) AnalyzeForTables(ctx context.Context, transcript string, tables []string) (map[string]any, error) {
	text, err := e.complete(ctx, buildTablesPrompt(transcript, tables), 3000)
	if err != nil {
		return nil, err
	}

	result, ok := ParseJSONObject(text)
	if !ok {
		e.log.Warn().Strs("tables", tables).Msg("no JSON object in table extraction response, using fallback")
		return tablesFallback(), nil
	}
	return result, nil
}

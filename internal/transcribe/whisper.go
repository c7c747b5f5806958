package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ayumi-support/kiroku-engine/internal/retry"
)

// TranscribeOpts are per-request options for the transcription backend.
type TranscribeOpts struct {
	Language    string
	Prompt      string // domain vocabulary bias
	Temperature float64
}

// Response is the parsed verbose_json result from the backend.
type Response struct {
	Text     string
	Language string
	Duration float64
	Spans    []Span
}

// WhisperClient calls an OpenAI-compatible /v1/audio/transcriptions
// endpoint with timestamped segments. Each call runs under the retry
// wrapper: 90s per attempt, 3 attempts, backoff capped at 10s.
type WhisperClient struct {
	url      string
	apiKey   string
	model    string
	language string
	retry    retry.Config
	client   *http.Client
	log      zerolog.Logger
}

func NewWhisperClient(url, apiKey, model, language string, retryCfg retry.Config, log zerolog.Logger) *WhisperClient {
	return &WhisperClient{
		url:      url,
		apiKey:   apiKey,
		model:    model,
		language: language,
		retry:    retryCfg,
		client:   &http.Client{},
		log:      log.With().Str("component", "whisper").Logger(),
	}
}

// Transcribe sends audioPath to the backend and returns the full result.
// On failure after retries the fragment is wholly absent; there are no
// partial results.
func (wc *WhisperClient) Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error) {
	return retry.Do(ctx, wc.log, "whisper", wc.retry, func(ctx context.Context) (*Response, error) {
		return wc.transcribeOnce(ctx, audioPath, opts)
	})
}

// whisperResponse mirrors the verbose_json wire format.
type whisperResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (wc *WhisperClient) transcribeOnce(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	if wc.model != "" {
		w.WriteField("model", wc.model)
	}

	lang := opts.Language
	if lang == "" {
		lang = wc.language
	}
	if lang == "" {
		lang = "ja"
	}
	w.WriteField("language", lang)
	w.WriteField("temperature", fmt.Sprintf("%.2f", opts.Temperature))
	w.WriteField("response_format", "verbose_json")
	if opts.Prompt != "" {
		w.WriteField("prompt", opts.Prompt)
	}
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wc.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if wc.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+wc.apiKey)
	}

	resp, err := wc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &backendError{status: resp.StatusCode, body: string(body)}
	}

	var wire whisperResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	result := &Response{
		Text:     wire.Text,
		Language: wire.Language,
		Duration: wire.Duration,
	}
	for _, s := range wire.Segments {
		result.Spans = append(result.Spans, Span{Start: s.Start, End: s.End, Text: s.Text})
	}
	return result, nil
}

// backendError carries the HTTP status so the retry wrapper can tell rate
// limits and server errors apart from deterministic request failures.
type backendError struct {
	status int
	body   string
}

func (e *backendError) Error() string {
	return fmt.Sprintf("whisper API error (status %d): %s", e.status, e.body)
}

func (e *backendError) HTTPStatus() int { return e.status }

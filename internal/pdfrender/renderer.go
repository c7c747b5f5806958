// Package pdfrender turns analysis results into printable documents.
// HTML is assembled locally and converted by an external renderer
// service (Gotenberg or compatible) reached over HTTP.
package pdfrender

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RenderError wraps a failed HTML to PDF conversion.
type RenderError struct {
	Document string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("pdf render failed for %s: %v", e.Document, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Output describes one generated file.
type Output struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Document string `json:"document"`
}

// Renderer converts assembled HTML into PDF files under outputDir.
type Renderer struct {
	rendererURL string
	outputDir   string
	client      *http.Client
	log         zerolog.Logger
}

func New(rendererURL, outputDir string, timeout time.Duration, log zerolog.Logger) *Renderer {
	return &Renderer{
		rendererURL: rendererURL,
		outputDir:   outputDir,
		client:      &http.Client{Timeout: timeout},
		log:         log.With().Str("component", "pdfrender").Logger(),
	}
}

// Configured reports whether a converter endpoint is set.
func (r *Renderer) Configured() bool { return r.rendererURL != "" }

// Generate renders one document type from analysis data and writes the
// PDF to the output directory.
func (r *Renderer) Generate(ctx context.Context, docType string, data map[string]any) (*Output, error) {
	html, err := BuildHTML(docType, data)
	if err != nil {
		return nil, &RenderError{Document: docType, Err: err}
	}

	pdf, err := r.render(ctx, html)
	if err != nil {
		return nil, &RenderError{Document: docType, Err: err}
	}

	filename := fmt.Sprintf("%s_%s.pdf", docType, uuid.NewString()[:8])
	outPath := filepath.Join(r.outputDir, filename)
	if err := writeAtomic(outPath, pdf); err != nil {
		return nil, &RenderError{Document: docType, Err: err}
	}

	r.log.Info().
		Str("document", docType).
		Str("file", filename).
		Int("bytes", len(pdf)).
		Msg("pdf generated")
	return &Output{Path: outPath, Filename: filename, Document: docType}, nil
}

// GenerateAll renders every requested document type. A failed type stops
// the run, already written files are kept.
func (r *Renderer) GenerateAll(ctx context.Context, docTypes []string, documents map[string]any) ([]Output, error) {
	outputs := make([]Output, 0, len(docTypes))
	for _, dt := range docTypes {
		data, _ := documents[docFieldName(dt)].(map[string]any)
		if data == nil {
			data = map[string]any{}
		}
		out, err := r.Generate(ctx, dt, data)
		if err != nil {
			return outputs, err
		}
		outputs = append(outputs, *out)
	}
	return outputs, nil
}

// render posts the HTML to the converter service, Gotenberg multipart
// form convention with the page named index.html.
func (r *Renderer) render(ctx context.Context, html []byte) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(html); err != nil {
		return nil, err
	}
	for field, value := range map[string]string{
		"paperWidth":   "8.27",
		"paperHeight":  "11.7",
		"marginTop":    "0.79",
		"marginBottom": "0.79",
		"marginLeft":   "0.59",
		"marginRight":  "0.59",
	} {
		if err := mw.WriteField(field, value); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.rendererURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("renderer returned %d: %s", resp.StatusCode, msg)
	}
	return io.ReadAll(resp.Body)
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

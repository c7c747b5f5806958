package api

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ayumi-support/kiroku-engine/internal/extract"
	"github.com/ayumi-support/kiroku-engine/internal/limiter"
	"github.com/ayumi-support/kiroku-engine/internal/pdfrender"
	"github.com/ayumi-support/kiroku-engine/internal/storage"
)

// DocumentAnalyzer produces per-document structured data from a transcript.
type DocumentAnalyzer interface {
	AnalyzeForDocuments(ctx context.Context, transcript string, documentTypes []string) (map[string]any, error)
}

// DocumentsHandler generates welfare documents from transcripts.
type DocumentsHandler struct {
	analyzer DocumentAnalyzer
	renderer *pdfrender.Renderer
	pdfSlots *limiter.Slots
	archive  storage.ArchiveStore
	log      zerolog.Logger
}

func NewDocumentsHandler(analyzer DocumentAnalyzer, renderer *pdfrender.Renderer,
	pdfSlots *limiter.Slots, archive storage.ArchiveStore, log zerolog.Logger) *DocumentsHandler {
	return &DocumentsHandler{
		analyzer: analyzer,
		renderer: renderer,
		pdfSlots: pdfSlots,
		archive:  archive,
		log:      log.With().Str("handler", "documents").Logger(),
	}
}

func (h *DocumentsHandler) Routes(r chi.Router) {
	r.Post("/generate-from-text", h.GenerateFromText)
	r.Get("/available-types", h.AvailableTypes)
}

type generateRequest struct {
	Text          string   `json:"text"`
	DocumentTypes []string `json:"documentTypes"`
}

// GenerateFromText handles POST /api/v1/documents/generate-from-text.
// Analyzes the transcript and renders one PDF per requested type.
func (h *DocumentsHandler) GenerateFromText(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		WriteError(w, http.StatusBadRequest, "text is required")
		return
	}
	if !h.renderer.Configured() {
		WriteError(w, http.StatusServiceUnavailable, "pdf renderer is not configured")
		return
	}
	if len(req.DocumentTypes) == 0 {
		req.DocumentTypes = extract.DocumentTypes()
	}
	known := make(map[string]bool)
	for _, dt := range extract.DocumentTypes() {
		known[dt] = true
	}
	for _, dt := range req.DocumentTypes {
		if !known[dt] {
			WriteError(w, http.StatusBadRequest, "unknown document type: "+dt)
			return
		}
	}

	documents, err := h.analyzer.AnalyzeForDocuments(r.Context(), req.Text, req.DocumentTypes)
	if err != nil {
		h.log.Error().Err(err).Msg("document analysis failed")
		WriteErrorDetail(w, http.StatusBadGateway, "document analysis failed", err.Error())
		return
	}

	if err := h.pdfSlots.Acquire(r.Context()); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "server busy")
		return
	}
	defer h.pdfSlots.Release()

	outputs, err := h.renderer.GenerateAll(r.Context(), req.DocumentTypes, documents)
	if err != nil {
		h.log.Error().Err(err).Msg("pdf generation failed")
		WriteErrorDetail(w, http.StatusBadGateway, "pdf generation failed", err.Error())
		return
	}

	h.archiveDocuments(r.Context(), outputs)

	WriteJSON(w, http.StatusOK, map[string]any{
		"documents": outputs,
		"analysis":  documents,
	})
}

func (h *DocumentsHandler) archiveDocuments(ctx context.Context, outputs []pdfrender.Output) {
	if h.archive == nil || h.archive.Type() == "local" {
		return
	}
	for _, out := range outputs {
		data, err := os.ReadFile(out.Path)
		if err != nil {
			h.log.Warn().Err(err).Str("file", out.Filename).Msg("document archive read failed")
			continue
		}
		key := storage.DateKey("documents", out.Filename)
		if err := h.archive.Save(ctx, key, data, "application/pdf"); err != nil {
			h.log.Warn().Err(err).Str("key", key).Msg("document archive save failed")
		}
	}
}

// AvailableTypes handles GET /api/v1/documents/available-types.
func (h *DocumentsHandler) AvailableTypes(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"documentTypes": extract.DocumentTypes(),
	})
}

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ayumi-support/kiroku-engine/internal/extract"
	"github.com/ayumi-support/kiroku-engine/internal/limiter"
	"github.com/ayumi-support/kiroku-engine/internal/media"
	"github.com/ayumi-support/kiroku-engine/internal/retry"
	"github.com/ayumi-support/kiroku-engine/internal/storage"
	"github.com/ayumi-support/kiroku-engine/internal/transcribe"
)

var supportedAudioExts = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".aac":  true,
	".flac": true,
}

// Transcriber runs a stored file through the transcription pipeline.
type Transcriber interface {
	Transcribe(ctx context.Context, path string, opts transcribe.Options) (*transcribe.Result, error)
}

// Analyzer extracts structured welfare-record data from a transcript.
type Analyzer interface {
	Analyze(ctx context.Context, transcript, customPrompt string) (map[string]any, error)
}

// AudioHandler owns the upload and transcription endpoints.
type AudioHandler struct {
	uploadDir      string
	maxUploadBytes int64

	transcriber Transcriber
	analyzer    Analyzer
	prober      *media.Prober
	pre         *media.Preprocessor

	audioSlots   *limiter.Slots
	extractSlots *limiter.Slots
	archive      storage.ArchiveStore
	log          zerolog.Logger
}

func NewAudioHandler(uploadDir string, maxUploadMB int, transcriber Transcriber, analyzer Analyzer,
	prober *media.Prober, pre *media.Preprocessor, audioSlots, extractSlots *limiter.Slots,
	archive storage.ArchiveStore, log zerolog.Logger) *AudioHandler {
	return &AudioHandler{
		uploadDir:      uploadDir,
		maxUploadBytes: int64(maxUploadMB) << 20,
		transcriber:    transcriber,
		analyzer:       analyzer,
		prober:         prober,
		pre:            pre,
		audioSlots:     audioSlots,
		extractSlots:   extractSlots,
		archive:        archive,
		log:            log.With().Str("handler", "audio").Logger(),
	}
}

func (h *AudioHandler) Routes(r chi.Router) {
	r.Post("/upload", h.Upload)
	r.Post("/upload-and-transcribe", h.UploadAndTranscribe)
	r.Post("/upload-transcribe-analyze", h.UploadTranscribeAnalyze)
	r.Post("/preprocess", h.Preprocess)
	r.Post("/evaluate-quality", h.EvaluateQuality)
}

type uploadedFile struct {
	path         string
	storedName   string
	originalName string
	size         int64
}

// receiveUpload reads the audioFile form field and stores it under a
// fresh name in the upload directory.
func (h *AudioHandler) receiveUpload(w http.ResponseWriter, r *http.Request) (*uploadedFile, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds the %dMB upload limit", h.maxUploadBytes>>20))
			return nil, false
		}
		WriteErrorDetail(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audioFile")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing audioFile field")
		return nil, false
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !supportedAudioExts[ext] {
		WriteError(w, http.StatusBadRequest,
			fmt.Sprintf("unsupported audio format %q: expected mp3, wav, m4a, aac, or flac", ext))
		return nil, false
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		h.log.Error().Err(err).Msg("upload dir create failed")
		WriteError(w, http.StatusInternalServerError, "failed to store upload")
		return nil, false
	}

	storedName := uuid.NewString() + ext
	destPath := filepath.Join(h.uploadDir, storedName)
	dest, err := os.Create(destPath)
	if err != nil {
		h.log.Error().Err(err).Msg("upload create failed")
		WriteError(w, http.StatusInternalServerError, "failed to store upload")
		return nil, false
	}
	size, err := io.Copy(dest, file)
	if cerr := dest.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(destPath)
		h.log.Error().Err(err).Msg("upload write failed")
		WriteError(w, http.StatusInternalServerError, "failed to store upload")
		return nil, false
	}

	h.archiveUpload(r.Context(), destPath, storedName)

	return &uploadedFile{
		path:         destPath,
		storedName:   storedName,
		originalName: header.Filename,
		size:         size,
	}, true
}

// archiveUpload copies the stored file to the archive backend. Failures
// are logged, the upload itself already succeeded.
func (h *AudioHandler) archiveUpload(ctx context.Context, path, name string) {
	if h.archive == nil || h.archive.Type() == "local" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		h.log.Warn().Err(err).Str("file", name).Msg("archive read failed")
		return
	}
	key := storage.DateKey("audio", name)
	if err := h.archive.Save(ctx, key, data, "application/octet-stream"); err != nil {
		h.log.Warn().Err(err).Str("key", key).Msg("archive save failed")
	}
}

// Upload handles POST /api/v1/audio/upload.
func (h *AudioHandler) Upload(w http.ResponseWriter, r *http.Request) {
	up, ok := h.receiveUpload(w, r)
	if !ok {
		return
	}

	info, err := h.prober.Probe(r.Context(), up.path)
	if err != nil {
		os.Remove(up.path)
		WriteErrorDetail(w, http.StatusUnprocessableEntity, "file is not readable audio", err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"file": map[string]any{
			"id":           strings.TrimSuffix(up.storedName, filepath.Ext(up.storedName)),
			"storedName":   up.storedName,
			"originalName": up.originalName,
			"size":         up.size,
		},
		"audio": info,
	})
}

// UploadAndTranscribe handles POST /api/v1/audio/upload-and-transcribe.
func (h *AudioHandler) UploadAndTranscribe(w http.ResponseWriter, r *http.Request) {
	up, ok := h.receiveUpload(w, r)
	if !ok {
		return
	}

	result, ok := h.runTranscription(w, r, up)
	if !ok {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"file": map[string]any{
			"storedName":   up.storedName,
			"originalName": up.originalName,
		},
		"result": result,
	})
}

// UploadTranscribeAnalyze handles POST /api/v1/audio/upload-transcribe-analyze.
// Runs the full pipeline: store, transcribe, extract structured data.
func (h *AudioHandler) UploadTranscribeAnalyze(w http.ResponseWriter, r *http.Request) {
	up, ok := h.receiveUpload(w, r)
	if !ok {
		return
	}

	result, ok := h.runTranscription(w, r, up)
	if !ok {
		return
	}

	if err := h.extractSlots.Acquire(r.Context()); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "server busy")
		return
	}
	defer h.extractSlots.Release()

	analysis, err := h.analyzer.Analyze(r.Context(), result.Transcript.Text, r.FormValue("customPrompt"))
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"file": map[string]any{
			"storedName":   up.storedName,
			"originalName": up.originalName,
		},
		"result":   result,
		"analysis": analysis,
		"quality":  extract.EvaluateQuality(analysis, result.Transcript.Text),
	})
}

func (h *AudioHandler) runTranscription(w http.ResponseWriter, r *http.Request, up *uploadedFile) (*transcribe.Result, bool) {
	if err := h.audioSlots.Acquire(r.Context()); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "server busy")
		return nil, false
	}
	defer h.audioSlots.Release()

	opts := transcribe.Options{
		PromptProfile: r.FormValue("promptProfile"),
		Preprocess:    r.FormValue("preprocess") != "false",
	}
	result, err := h.transcriber.Transcribe(r.Context(), up.path, opts)
	if err != nil {
		h.writePipelineError(w, err)
		return nil, false
	}
	return result, true
}

// writePipelineError maps pipeline error types onto HTTP statuses.
func (h *AudioHandler) writePipelineError(w http.ResponseWriter, err error) {
	var tooLong *transcribe.TooLongError
	var inspect *media.InspectionError
	var exhausted *retry.ExhaustedError

	switch {
	case errors.As(err, &tooLong):
		WriteError(w, http.StatusUnprocessableEntity, tooLong.Error())
	case errors.As(err, &inspect):
		WriteErrorDetail(w, http.StatusUnprocessableEntity, "file is not readable audio", err.Error())
	case errors.As(err, &exhausted):
		h.log.Error().Err(err).Msg("backend retries exhausted")
		WriteErrorDetail(w, http.StatusBadGateway, "transcription backend unavailable", err.Error())
	case errors.Is(err, context.Canceled):
		// client went away, nothing useful to write
	default:
		h.log.Error().Err(err).Msg("pipeline failed")
		WriteErrorDetail(w, http.StatusInternalServerError, "processing failed", err.Error())
	}
}

// Preprocess handles POST /api/v1/audio/preprocess. Uploads a file and
// returns the cleaned version's stats without transcribing.
func (h *AudioHandler) Preprocess(w http.ResponseWriter, r *http.Request) {
	up, ok := h.receiveUpload(w, r)
	if !ok {
		return
	}

	if err := h.audioSlots.Acquire(r.Context()); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "server busy")
		return
	}
	defer h.audioSlots.Release()

	result, err := h.pre.Process(r.Context(), up.path, media.DefaultPreprocessOptions())
	if err != nil {
		WriteErrorDetail(w, http.StatusUnprocessableEntity, "preprocessing failed", err.Error())
		return
	}
	defer os.Remove(result.Path)

	WriteJSON(w, http.StatusOK, map[string]any{
		"file": map[string]any{
			"storedName":   up.storedName,
			"originalName": up.originalName,
		},
		"processed": result.Stats,
	})
}

// EvaluateQuality handles POST /api/v1/audio/evaluate-quality.
func (h *AudioHandler) EvaluateQuality(w http.ResponseWriter, r *http.Request) {
	up, ok := h.receiveUpload(w, r)
	if !ok {
		return
	}
	defer os.Remove(up.path)

	quality, err := h.prober.EvaluateQuality(r.Context(), up.path)
	if err != nil {
		WriteErrorDetail(w, http.StatusUnprocessableEntity, "file is not readable audio", err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"file": map[string]any{
			"originalName": up.originalName,
		},
		"quality": quality,
	})
}

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ayumi-support/kiroku-engine/internal/dbfill"
	"github.com/ayumi-support/kiroku-engine/internal/limiter"
)

// AutoFiller applies transcript data to the facility record tables.
type AutoFiller interface {
	Process(ctx context.Context, transcript string, user dbfill.UserInfo, targetTables []string) (*dbfill.Report, error)
	MergeUserMaster(user dbfill.UserInfo, extracted map[string]any) map[string]any
}

// DatabaseHandler owns the record auto-fill endpoints.
type DatabaseHandler struct {
	filler       AutoFiller
	extractSlots *limiter.Slots
	log          zerolog.Logger
}

func NewDatabaseHandler(filler AutoFiller, extractSlots *limiter.Slots, log zerolog.Logger) *DatabaseHandler {
	return &DatabaseHandler{
		filler:       filler,
		extractSlots: extractSlots,
		log:          log.With().Str("handler", "database").Logger(),
	}
}

func (h *DatabaseHandler) Routes(r chi.Router) {
	r.Post("/process-text", h.ProcessText)
	r.Post("/update-user-master", h.UpdateUserMaster)
	r.Post("/evaluate-goals", h.EvaluateGoals)
	r.Get("/supported-tables", h.SupportedTables)
	r.Post("/suggest-tables", h.SuggestTables)
}

type processTextRequest struct {
	Text         string          `json:"text"`
	UserInfo     dbfill.UserInfo `json:"userInfo"`
	TargetTables []string        `json:"targetTables"`
}

// ProcessText handles POST /api/v1/database/process-text. Extracts
// structured data from the transcript and fills the requested tables.
func (h *DatabaseHandler) ProcessText(w http.ResponseWriter, r *http.Request) {
	var req processTextRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		WriteError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.UserInfo.UserName == "" {
		WriteError(w, http.StatusBadRequest, "userInfo.userName is required")
		return
	}

	if err := h.extractSlots.Acquire(r.Context()); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "server busy")
		return
	}
	defer h.extractSlots.Release()

	report, err := h.filler.Process(r.Context(), req.Text, req.UserInfo, req.TargetTables)
	if err != nil {
		h.log.Error().Err(err).Msg("database auto-fill failed")
		WriteErrorDetail(w, http.StatusBadGateway, "database auto-fill failed", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

type textWithUserRequest struct {
	Text     string          `json:"text"`
	UserInfo dbfill.UserInfo `json:"userInfo"`
}

// UpdateUserMaster handles POST /api/v1/database/update-user-master.
// Builds the merged user-master row from keyword extraction, without
// calling the model backend.
func (h *DatabaseHandler) UpdateUserMaster(w http.ResponseWriter, r *http.Request) {
	var req textWithUserRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.UserInfo.UserName == "" {
		WriteError(w, http.StatusBadRequest, "userInfo.userName is required")
		return
	}

	extracted := dbfill.ExtractUserMaster(req.Text)
	merged := h.filler.MergeUserMaster(req.UserInfo, extracted)

	WriteJSON(w, http.StatusOK, map[string]any{
		"extractedData": extracted,
		"mergedData":    merged,
	})
}

// EvaluateGoals handles POST /api/v1/database/evaluate-goals.
func (h *DatabaseHandler) EvaluateGoals(w http.ResponseWriter, r *http.Request) {
	var req textWithUserRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.UserInfo.UserName == "" {
		WriteError(w, http.StatusBadRequest, "userInfo.userName is required")
		return
	}

	evaluations := dbfill.ExtractGoalEvaluations(req.Text, req.UserInfo)
	WriteJSON(w, http.StatusOK, map[string]any{
		"evaluationCount": len(evaluations),
		"evaluations":     evaluations,
	})
}

// SupportedTables handles GET /api/v1/database/supported-tables.
func (h *DatabaseHandler) SupportedTables(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"tables": dbfill.SupportedTables(),
	})
}

type suggestTablesRequest struct {
	Text string `json:"text"`
}

// SuggestTables handles POST /api/v1/database/suggest-tables.
func (h *DatabaseHandler) SuggestTables(w http.ResponseWriter, r *http.Request) {
	var req suggestTablesRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		WriteError(w, http.StatusBadRequest, "text is required")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"suggestedTables": dbfill.SuggestTables(req.Text),
	})
}

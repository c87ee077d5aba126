package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cura-ai/cura/internal/core"
)

// handleHealth returns service liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// specialistDTO is the API shape of one catalog entry.
type specialistDTO struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Icon        string `json:"icon"`
}

// handleListSpecialists returns the specialist catalog in display
// order.
func (s *Server) handleListSpecialists(w http.ResponseWriter, r *http.Request) {
	dtos := make([]specialistDTO, 0, s.registry.Len())
	for _, def := range s.registry.List() {
		dtos = append(dtos, specialistDTO{
			Name:        def.Name,
			DisplayName: def.DisplayName,
			Icon:        def.Icon,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"specialists": dtos})
}

// createDiagnosisRequest is the POST /diagnosis payload. An empty
// specialist list triggers automatic selection.
type createDiagnosisRequest struct {
	ReportText  string   `json:"report_text"`
	Specialists []string `json:"specialists"`
}

type diagnosisDTO struct {
	ID          string                  `json:"id"`
	ReportText  string                  `json:"report_text,omitempty"`
	Specialists []string                `json:"specialists"`
	Reports     []core.SpecialistReport `json:"reports"`
	FinalReport string                  `json:"final_report"`
	Status      core.DiagnosisStatus    `json:"status"`
	CreatedAt   time.Time               `json:"created_at"`
}

func diagnosisToDTO(rec *core.DiagnosisRecord, includeReportText bool) diagnosisDTO {
	dto := diagnosisDTO{
		ID:          rec.ID,
		Specialists: rec.Result.Specialists,
		Reports:     rec.Result.Reports,
		FinalReport: rec.Result.FinalReport,
		Status:      rec.Result.Status,
		CreatedAt:   rec.CreatedAt,
	}
	if includeReportText {
		dto.ReportText = rec.ReportText
	}
	return dto
}

// handleCreateDiagnosis runs a full diagnosis and persists the result.
func (s *Server) handleCreateDiagnosis(w http.ResponseWriter, r *http.Request) {
	var req createDiagnosisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, core.ErrValidation("BAD_JSON", "request body is not valid JSON").WithCause(err))
		return
	}

	result, err := s.engine.Diagnose(r.Context(), req.ReportText, req.Specialists)
	if err != nil {
		s.respondError(w, httpStatusForError(err), err)
		return
	}

	rec := &core.DiagnosisRecord{
		ID:         uuid.NewString(),
		ReportText: req.ReportText,
		Result:     *result,
		CreatedAt:  time.Now(),
	}
	if err := s.store.SaveDiagnosis(r.Context(), rec); err != nil {
		s.logger.Error("saving diagnosis failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusCreated, diagnosisToDTO(rec, false))
}

// handleListDiagnoses returns stored runs, newest first, without
// report bodies.
func (s *Server) handleListDiagnoses(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.ListDiagnoses(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}

	summaries := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		summaries = append(summaries, map[string]any{
			"id":          rec.ID,
			"specialists": rec.Result.Specialists,
			"status":      rec.Result.Status,
			"created_at":  rec.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"diagnoses": summaries})
}

// handleGetDiagnosis returns one stored run in full.
func (s *Server) handleGetDiagnosis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "diagnosisID")

	rec, err := s.store.LoadDiagnosis(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if rec == nil {
		s.respondError(w, http.StatusNotFound, core.ErrNotFound("diagnosis", id))
		return
	}

	respondJSON(w, http.StatusOK, diagnosisToDTO(rec, true))
}

// handleDeleteDiagnosis removes a stored run and its chat history.
func (s *Server) handleDeleteDiagnosis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "diagnosisID")

	rec, err := s.store.LoadDiagnosis(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if rec == nil {
		s.respondError(w, http.StatusNotFound, core.ErrNotFound("diagnosis", id))
		return
	}

	if err := s.store.DeleteDiagnosis(r.Context(), id); err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// chatRequest is the POST /diagnosis/{id}/chat payload.
type chatRequest struct {
	Question string `json:"question"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

// handleChat answers one follow-up question against a stored run and
// appends both turns to the conversation.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "diagnosisID")

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, core.ErrValidation("BAD_JSON", "request body is not valid JSON").WithCause(err))
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusUnprocessableEntity, core.ErrValidation("EMPTY_QUESTION", "question is empty"))
		return
	}

	rec, err := s.store.LoadDiagnosis(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if rec == nil {
		s.respondError(w, http.StatusNotFound, core.ErrNotFound("diagnosis", id))
		return
	}

	history, err := s.store.LoadMessages(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}

	diagCtx := s.chat.BuildContext(&rec.Result)
	answer := s.chat.Answer(r.Context(), diagCtx, history, req.Question)

	now := time.Now()
	turns := []*core.ChatMessage{
		{ID: uuid.NewString(), DiagnosisID: id, Role: core.ChatRoleUser, Content: req.Question, Timestamp: now},
		{ID: uuid.NewString(), DiagnosisID: id, Role: core.ChatRoleAssistant, Content: answer, Timestamp: now},
	}
	for _, msg := range turns {
		if err := s.store.AppendMessage(r.Context(), msg); err != nil {
			s.logger.Error("appending chat message failed", "error", err)
			s.respondError(w, http.StatusInternalServerError, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, chatResponse{Answer: answer})
}

// handleChatHistory returns all turns for a stored run in append
// order.
func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "diagnosisID")

	rec, err := s.store.LoadDiagnosis(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if rec == nil {
		s.respondError(w, http.StatusNotFound, core.ErrNotFound("diagnosis", id))
		return
	}

	msgs, err := s.store.LoadMessages(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if msgs == nil {
		msgs = []*core.ChatMessage{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

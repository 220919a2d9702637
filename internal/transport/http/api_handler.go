package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"quiz-proctor-service/internal/app"
	"quiz-proctor-service/internal/domain"
)

// APIHandler exposes the attempt lifecycle over plain JSON endpoints.
type APIHandler struct {
	service *app.AttemptService
}

func NewAPIHandler(service *app.AttemptService) *APIHandler {
	return &APIHandler{service: service}
}

// Register mounts all API routes on the mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/attempt", h.handleBeginAttempt)
	mux.HandleFunc("/api/questions", h.handleQuestions)
	mux.HandleFunc("/api/time", h.handleRemainingTime)
	mux.HandleFunc("/api/violation", h.handleViolation)
	mux.HandleFunc("/api/submit", h.handleSubmit)
	mux.HandleFunc("/api/result", h.handleResult)
	mux.HandleFunc("/api/leaderboard", h.handleLeaderboard)
}

type violationRequest struct {
	ParticipantID string `json:"participantId"`
	Type          string `json:"type"`
	Device        string `json:"device"`
}

type submitRequest struct {
	ParticipantID string            `json:"participantId"`
	Answers       map[string]string `json:"answers"`
	TimeTaken     int               `json:"timeTaken"`
	AutoSubmit    bool              `json:"autoSubmit"`
}

type remainingTimePayload struct {
	RemainingSeconds int `json:"remainingSeconds"`
}

type errorPayload struct {
	Error string `json:"error"`
}

func (h *APIHandler) handleBeginAttempt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var identity domain.Identity
	if err := json.NewDecoder(r.Body).Decode(&identity); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: "invalid request body"})
		return
	}
	ticket, err := h.service.BeginAttempt(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *APIHandler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	views, err := h.service.ActiveQuestions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *APIHandler) handleRemainingTime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	participantID := r.URL.Query().Get("participantId")
	if participantID == "" {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: "missing participantId"})
		return
	}
	remaining, err := h.service.RemainingTime(r.Context(), participantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, remainingTimePayload{RemainingSeconds: remaining})
}

func (h *APIHandler) handleViolation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req violationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: "invalid request body"})
		return
	}
	if req.ParticipantID == "" {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: "missing participantId"})
		return
	}
	status, err := h.service.RecordViolation(r.Context(), req.ParticipantID, req.Type, req.Device)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *APIHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: "invalid request body"})
		return
	}
	if req.ParticipantID == "" {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: "missing participantId"})
		return
	}
	receipt, err := h.service.SubmitAttempt(r.Context(), req.ParticipantID, req.Answers, req.TimeTaken, req.AutoSubmit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *APIHandler) handleResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	participantID := r.URL.Query().Get("participantId")
	if participantID == "" {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: "missing participantId"})
		return
	}
	result, err := h.service.Result(r.Context(), participantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	rows, err := h.service.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// writeError maps the lifecycle taxonomy to status codes. Everything outside
// the taxonomy is a storage fault and stays opaque to the client.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: err.Error()})
	case errors.Is(err, domain.ErrQuizNotOpen):
		writeJSON(w, http.StatusForbidden, errorPayload{Error: err.Error()})
	case errors.Is(err, domain.ErrAlreadyCompleted),
		errors.Is(err, domain.ErrAlreadySubmitted),
		errors.Is(err, domain.ErrAttemptNotStarted):
		writeJSON(w, http.StatusConflict, errorPayload{Error: err.Error()})
	case errors.Is(err, domain.ErrParticipantNotFound),
		errors.Is(err, domain.ErrNoSubmission):
		writeJSON(w, http.StatusNotFound, errorPayload{Error: err.Error()})
	default:
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorPayload{Error: "server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

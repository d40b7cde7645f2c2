package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/interview-gateway/internal/core/domain"
	"github.com/tjfontaine/interview-gateway/internal/interview"
)

// maxBodyBytes caps request bodies; five answers fit comfortably.
const maxBodyBytes = 1 << 20

// InterviewService is the orchestration layer behind the routes.
type InterviewService interface {
	Start(ctx context.Context, req interview.StartRequest) (*domain.Session, error)
	Submit(ctx context.Context, req interview.SubmitRequest) (*domain.Session, error)
	Get(ctx context.Context, userID, id string) (*domain.Session, error)
	Analytics(ctx context.Context, userID string) (domain.AnalyticsSummary, error)
}

// Handler serves the interview API.
type Handler struct {
	svc InterviewService
}

func NewHandler(svc InterviewService) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/interviews", h.startInterview)
		r.Get("/interviews/{id}", h.getInterview)
		r.Post("/interviews/{id}/answers", h.submitAnswers)
		r.Get("/analytics", h.analytics)
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) startInterview(w http.ResponseWriter, r *http.Request) {
	var req interview.StartRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	req.UserID = UserID(r.Context())

	sess, err := h.svc.Start(r.Context(), req)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	AddLogField(r.Context(), "session_id", sess.ID)
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handler) getInterview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	AddLogField(r.Context(), "session_id", id)

	sess, err := h.svc.Get(r.Context(), UserID(r.Context()), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) submitAnswers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	AddLogField(r.Context(), "session_id", id)

	var req interview.SubmitRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	req.UserID = UserID(r.Context())
	req.SessionID = id

	sess, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) analytics(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Analytics(r.Context(), UserID(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.ErrInvalidRequest("request body is required")
		}
		return domain.ErrInvalidRequest("malformed JSON body").WithCause(err)
	}
	return nil
}

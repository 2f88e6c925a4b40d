package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"person-registry/internal/status"
	"person-registry/pkg/platform/httputil"
)

const (
	statusOK   = "OK"
	statusFail = "fail"
)

// Service reports dependency reachability.
type Service interface {
	GetDBStatus(ctx context.Context) status.Report
}

// Response is the body of GET /status.
type Response struct {
	Status  string        `json:"status"`
	Details status.Report `json:"details"`
}

type Handler struct {
	service Service
}

func New(service Service) *Handler {
	return &Handler{service: service}
}

// Register mounts GET /status on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/status", h.HandleStatus)
}

// HandleStatus answers 200 when the database is reachable and 500 otherwise.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	report := h.service.GetDBStatus(r.Context())
	if !report.Healthy() {
		httputil.WriteJSON(w, http.StatusInternalServerError, Response{Status: statusFail, Details: report})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, Response{Status: statusOK, Details: report})
}

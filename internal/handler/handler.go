package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Dan9191/loan-service/internal/middleware"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/repository"
	"github.com/Dan9191/loan-service/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

// LoanService is what the handlers need from the service layer
type LoanService interface {
	CreateLoan(ctx context.Context, req *models.CreateLoanRequest) (*models.Loan, error)
	ListLoans(ctx context.Context) ([]models.Loan, error)
	Ping(ctx context.Context) error
}

type Handler struct {
	svc LoanService
	log *logrus.Logger
}

func NewHandler(svc LoanService, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Register attaches the API routes to r
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/loans", h.CreateLoan).Methods(http.MethodPost)
	r.HandleFunc("/api/loans", h.ListLoans).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
}

// CreateLoan handles loan persistence
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLoanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.entry(r).WithError(err).Info("Rejected undecodable loan body")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	loan, err := h.svc.CreateLoan(r.Context(), &req)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "Invalid loan request",
				"fields": verr.Fields,
			})
			return
		}
		h.storageError(r, err).Error("Error saving loan")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to save loan"})
		return
	}

	writeJSON(w, http.StatusCreated, loan)
}

// ListLoans handles listing every stored loan
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.svc.ListLoans(r.Context())
	if err != nil {
		h.storageError(r, err).Error("Error fetching loans")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch loans"})
		return
	}
	if loans == nil {
		loans = []models.Loan{}
	}
	writeJSON(w, http.StatusOK, loans)
}

// Health reports whether storage is reachable
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		h.storageError(r, err).Warn("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) entry(r *http.Request) *logrus.Entry {
	return h.log.WithField("request_id", middleware.RequestIDFrom(r.Context()))
}

func (h *Handler) storageError(r *http.Request, err error) *logrus.Entry {
	return h.entry(r).WithError(err).WithField("error_kind", repository.KindOf(err))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

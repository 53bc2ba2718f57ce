package booking

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carenest/patient-portal/internal/auth"
	"github.com/carenest/patient-portal/internal/i18n"
	"github.com/carenest/patient-portal/pkg/logging"
)

// Response is the body of every /booking answer.
type Response struct {
	State State  `json:"state"`
	Error string `json:"error,omitempty"`
}

type openRequest struct {
	DoctorID string `json:"doctorId"`
}

type dateRequest struct {
	Date string `json:"date"`
}

type timeRequest struct {
	Time string `json:"time"`
}

// Handler serves the booking wizard over HTTP.
type Handler struct {
	svc     *Service
	catalog *i18n.Catalog
	logger  *logging.Logger
}

// NewHandler creates a booking handler.
func NewHandler(svc *Service, catalog *i18n.Catalog, logger *logging.Logger) *Handler {
	if svc == nil {
		panic("booking: service cannot be nil")
	}
	if catalog == nil {
		panic("booking: catalog cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, catalog: catalog, logger: logger}
}

// Routes mounts the wizard endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Current)
	r.Post("/", h.Open)
	r.Delete("/", h.Cancel)
	r.Patch("/details", h.UpdateDetails)
	r.Post("/next", h.Next)
	r.Post("/back", h.Back)
	r.Put("/date", h.SelectDate)
	r.Put("/time", h.SelectTime)
	r.Post("/confirm", h.Confirm)
}

// Current handles GET /booking.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Current(r.Context(), userID)
	h.respond(w, r, st, err)
}

// Open handles POST /booking.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req openRequest
	if !decode(w, r, &req) {
		return
	}
	st, err := h.svc.Open(r.Context(), userID, req.DoctorID)
	h.respondStatus(w, r, http.StatusCreated, st, err)
}

// UpdateDetails handles PATCH /booking/details.
func (h *Handler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req Details
	if !decode(w, r, &req) {
		return
	}
	st, err := h.svc.UpdateDetails(r.Context(), userID, req)
	h.respond(w, r, st, err)
}

// Next handles POST /booking/next.
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Next(r.Context(), userID)
	h.respond(w, r, st, err)
}

// Back handles POST /booking/back.
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Back(r.Context(), userID)
	h.respond(w, r, st, err)
}

// SelectDate handles PUT /booking/date.
func (h *Handler) SelectDate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req dateRequest
	if !decode(w, r, &req) {
		return
	}
	st, err := h.svc.SelectDate(r.Context(), userID, req.Date)
	h.respondStatus(w, r, http.StatusAccepted, st, err)
}

// SelectTime handles PUT /booking/time.
func (h *Handler) SelectTime(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req timeRequest
	if !decode(w, r, &req) {
		return
	}
	st, err := h.svc.SelectTime(r.Context(), userID, req.Time)
	h.respond(w, r, st, err)
}

// Confirm handles POST /booking/confirm. The body carries the card fields.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req Payment
	if !decode(w, r, &req) {
		return
	}
	st, err := h.svc.Confirm(r.Context(), userID, req)
	h.respond(w, r, st, err)
}

// Cancel handles DELETE /booking.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Cancel(r.Context(), userID)
	h.respond(w, r, st, err)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return p.UserID, true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, st State, err error) {
	h.respondStatus(w, r, http.StatusOK, st, err)
}

func (h *Handler) respondStatus(w http.ResponseWriter, r *http.Request, status int, st State, err error) {
	if err == nil {
		writeJSON(w, status, Response{State: st})
		return
	}

	lang := h.language(r)
	msg := h.svc.Message(lang, err)
	switch {
	case errors.Is(err, ErrDoctorNotFound), errors.Is(err, ErrNoDraft):
		status = http.StatusNotFound
	case errors.Is(err, ErrSubmitFailed):
		status = http.StatusBadGateway
	case IsValidation(err):
		status = http.StatusUnprocessableEntity
	default:
		h.logger.WithContext(r.Context()).Error("booking request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, Response{State: st, Error: "internal error"})
		return
	}
	writeJSON(w, status, Response{State: st, Error: msg})
}

func (h *Handler) language(r *http.Request) string {
	if p, ok := auth.PrincipalFromContext(r.Context()); ok && p.Language != "" {
		return h.catalog.Normalize(p.Language)
	}
	return h.catalog.FromRequest(r)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

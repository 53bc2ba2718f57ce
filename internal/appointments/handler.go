package appointments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carenest/patient-portal/internal/auth"
	"github.com/carenest/patient-portal/internal/careapi"
	"github.com/carenest/patient-portal/pkg/logging"
)

// ListResponse wraps appointment lists.
type ListResponse struct {
	Appointments []careapi.Appointment `json:"appointments"`
}

// Handler exposes the appointments endpoints.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if svc == nil {
		panic("appointments: service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// List handles GET /appointments.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := h.svc.List(r.Context(), p.UserID)
	h.respond(w, r, list, err)
}

// Upcoming handles GET /appointments/upcoming.
func (h *Handler) Upcoming(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := h.svc.Upcoming(r.Context(), p.UserID)
	h.respond(w, r, list, err)
}

// Refresh handles POST /appointments/refresh and answers with the new
// upcoming list.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.svc.Refresh(r.Context(), p.UserID); err != nil {
		h.respond(w, r, nil, err)
		return
	}
	list, err := h.svc.Upcoming(r.Context(), p.UserID)
	h.respond(w, r, list, err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, list []careapi.Appointment, err error) {
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, careapi.ErrUnauthorized) {
			status = http.StatusUnauthorized
		}
		h.logger.WithContext(r.Context()).Error("appointments request failed", "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(status), status)
		return
	}
	if list == nil {
		list = []careapi.Appointment{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ListResponse{Appointments: list})
}

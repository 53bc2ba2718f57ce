package doctors

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/carenest/patient-portal/internal/careapi"
	"github.com/carenest/patient-portal/pkg/logging"
)

// Handler serves the doctor directory.
type Handler struct {
	dir    *Directory
	logger *logging.Logger
}

func NewHandler(dir *Directory, logger *logging.Logger) *Handler {
	if dir == nil {
		panic("doctors: directory cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{dir: dir, logger: logger}
}

// List handles GET /doctors?specialty=&available=&q=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{Specialty: q.Get("specialty"), Query: q.Get("q")}
	if raw := q.Get("available"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "invalid available filter", http.StatusBadRequest)
			return
		}
		f.Available = &v
	}

	list, err := h.dir.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": list})
}

// Get handles GET /doctors/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.dir.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "doctor not found", http.StatusNotFound)
	case errors.Is(err, careapi.ErrUnauthorized):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	default:
		h.logger.WithContext(r.Context()).Error("doctors request failed", "error", err)
		http.Error(w, "care service unavailable", http.StatusBadGateway)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

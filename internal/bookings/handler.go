package bookings

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/carenest/patient-portal/internal/auth"
	"github.com/carenest/patient-portal/pkg/logging"
)

// Handler serves the patient's booking history.
type Handler struct {
	ledger *Ledger
	logger *logging.Logger
}

func NewHandler(ledger *Ledger, logger *logging.Logger) *Handler {
	if ledger == nil {
		panic("bookings: ledger required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{ledger: ledger, logger: logger}
}

// Recent handles GET /bookings/recent?limit=.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := h.ledger.Recent(r.Context(), p.UserID, limit)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("list recent bookings failed", "user_id", p.UserID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"bookings": records})
}

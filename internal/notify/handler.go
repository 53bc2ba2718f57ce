package notify

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/websocket"

	"github.com/carenest/patient-portal/internal/auth"
	"github.com/carenest/patient-portal/pkg/logging"
)

// StreamMessage is a frame pushed over the notifications websocket.
type StreamMessage struct {
	Type         string         `json:"type"`
	Items        []Notification `json:"items,omitempty"`
	Notification *Notification  `json:"notification,omitempty"`
}

type inboundFrame struct {
	Type string `json:"type"`
}

// Handler exposes the notification center over HTTP.
type Handler struct {
	center *Center
	logger *logging.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(center *Center, logger *logging.Logger) *Handler {
	if center == nil {
		panic("notify: center cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{center: center, logger: logger}
}

// List handles GET /notifications.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, State{Items: h.center.List(p.UserID)})
}

// Dismiss handles DELETE /notifications/{id}.
func (h *Handler) Dismiss(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	h.center.Dismiss(p.UserID, chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /notifications.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	h.center.Clear(p.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// Stream handles GET /notifications/stream. It sends the current list as a
// snapshot, then every new notification as it is relayed.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, p.UserID)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, userID string) {
	updates, release := h.center.Subscribe(userID)
	defer release()

	if err := websocket.JSON.Send(conn, StreamMessage{Type: "snapshot", Items: h.center.List(userID)}); err != nil {
		return
	}
	h.logger.Info("notify: stream opened", "user_id", userID)

	pings := make(chan struct{}, 1)
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var frame inboundFrame
			if err := websocket.JSON.Receive(conn, &frame); err != nil {
				return
			}
			if frame.Type == "ping" {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	for {
		select {
		case <-closed:
			h.logger.Debug("notify: stream closed", "user_id", userID)
			return
		case <-pings:
			if err := websocket.JSON.Send(conn, StreamMessage{Type: "pong"}); err != nil {
				return
			}
		case n, ok := <-updates:
			if !ok {
				return
			}
			if err := websocket.JSON.Send(conn, StreamMessage{Type: "notification", Notification: &n}); err != nil {
				h.logger.Debug("notify: stream send failed", "user_id", userID, "error", err)
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

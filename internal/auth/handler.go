package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/carenest/patient-portal/internal/careapi"
	"github.com/carenest/patient-portal/internal/i18n"
	"github.com/carenest/patient-portal/pkg/logging"
)

// Authenticator exchanges credentials for a care API session.
type Authenticator interface {
	Login(ctx context.Context, creds careapi.Credentials) (*careapi.Session, error)
}

// LogoutHook releases per-patient state when the patient signs out.
type LogoutHook func(ctx context.Context, userID string)

// Handler serves the /auth routes.
type Handler struct {
	authn   Authenticator
	catalog *i18n.Catalog
	hooks   []LogoutHook
	logger  *logging.Logger
}

// NewHandler creates an auth handler.
func NewHandler(authn Authenticator, catalog *i18n.Catalog, logger *logging.Logger, hooks ...LogoutHook) *Handler {
	if authn == nil {
		panic("auth: authenticator required")
	}
	if catalog == nil {
		panic("auth: catalog required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{authn: authn, catalog: catalog, hooks: hooks, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds careapi.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	creds.Email = strings.TrimSpace(creds.Email)

	lang := h.catalog.FromRequest(r)
	state := LoginStarted(State{})
	if creds.Email == "" || creds.Password == "" {
		writeState(w, http.StatusBadRequest, LoginFailed(state, h.catalog.Lookup(lang, "auth.error.invalid_credentials")))
		return
	}

	session, err := h.authn.Login(r.Context(), creds)
	if err != nil {
		status := http.StatusBadGateway
		var apiErr *careapi.APIError
		if errors.Is(err, careapi.ErrUnauthorized) || (errors.As(err, &apiErr) && apiErr.Status < 500) {
			status = http.StatusUnauthorized
		}
		h.logger.Warn("login failed", "error", err, "status", status)
		writeState(w, status, LoginFailed(state, h.catalog.Lookup(lang, "auth.error.invalid_credentials")))
		return
	}

	h.logger.Info("patient logged in", "user_id", session.User.ID)
	writeState(w, http.StatusOK, LoginSucceeded(state, *session))
}

// Logout handles POST /auth/logout. The care API token stays valid until it
// expires; the portal only drops what it keeps for the patient.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if p, ok := PrincipalFromContext(r.Context()); ok {
		for _, hook := range h.hooks {
			hook(r.Context(), p.UserID)
		}
		h.logger.Info("patient logged out", "user_id", p.UserID)
	}
	writeState(w, http.StatusOK, Logout(State{}))
}

// Me handles GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	first, last, _ := strings.Cut(p.Name, " ")
	state := LoginSucceeded(State{}, careapi.Session{
		User: careapi.User{
			ID:        p.UserID,
			Email:     p.Email,
			FirstName: first,
			LastName:  last,
			Language:  p.Language,
		},
	})
	writeState(w, http.StatusOK, state)
}

func writeState(w http.ResponseWriter, status int, s State) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(s)
}

package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carenest/patient-portal/internal/http/handlers"
	httpmiddleware "github.com/carenest/patient-portal/internal/http/middleware"
	"github.com/carenest/patient-portal/internal/i18n"
	"github.com/carenest/patient-portal/internal/notify"
	"github.com/carenest/patient-portal/pkg/logging"
)

const testSecret = "router-test-secret"

func testToken(t *testing.T, userID string) string {
	t.Helper()
	claims := httpmiddleware.PatientClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newTestRouter(center *notify.Center) http.Handler {
	logger := logging.New("error")
	return New(&Config{
		Logger:             logger,
		AuthJWTSecret:      testSecret,
		CORSAllowedOrigins: []string{"http://localhost:5173"},
		Health:             handlers.NewHealthHandler(nil, nil, logger),
		Catalog:            i18n.MustLoad("fr"),
		Notifications:      notify.NewHandler(center, logger),
	})
}

func TestPublicRoutes(t *testing.T) {
	r := newTestRouter(notify.NewCenter(nil, nil))

	for _, path := range []string{"/health", "/ready", "/i18n/en"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"), path)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(notify.NewCenter(nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesScopeToPrincipal(t *testing.T) {
	center := notify.NewCenter(nil, nil)
	center.Notify(context.Background(), "patient-1", notify.SeverityInfo, "hello")
	center.Notify(context.Background(), "patient-2", notify.SeverityInfo, "someone else")
	r := newTestRouter(center)

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, "patient-1"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []notify.Notification `json:"items"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "hello", body.Items[0].Message)
}

func TestUnconfiguredRoutesAreNotMounted(t *testing.T) {
	r := newTestRouter(notify.NewCenter(nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/bookings/recent", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, "patient-1"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(notify.NewCenter(nil, nil))

	req := httptest.NewRequest(http.MethodOptions, "/booking/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

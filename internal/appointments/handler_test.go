package appointments

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carenest/patient-portal/internal/auth"
	"github.com/carenest/patient-portal/internal/cache"
	"github.com/carenest/patient-portal/internal/careapi"
)

func authed(r *http.Request) *http.Request {
	return r.WithContext(auth.WithPrincipal(r.Context(), auth.Principal{UserID: "u1"}))
}

func TestHandlerEndpoints(t *testing.T) {
	lister := &fakeLister{list: sampleList()}
	svc := NewService(lister, cache.NewMemoryCache(), time.Minute, nil)
	svc.now = func() time.Time { return now }
	h := NewHandler(svc, nil)

	rec := httptest.NewRecorder()
	h.List(rec, authed(httptest.NewRequest(http.MethodGet, "/appointments", nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	var all ListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&all))
	assert.Len(t, all.Appointments, 2)

	rec = httptest.NewRecorder()
	h.Upcoming(rec, authed(httptest.NewRequest(http.MethodGet, "/appointments/upcoming", nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	var up ListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&up))
	require.Len(t, up.Appointments, 1)

	rec = httptest.NewRecorder()
	h.Refresh(rec, authed(httptest.NewRequest(http.MethodPost, "/appointments/refresh", nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, lister.calls)
}

func TestHandlerEmptyListIsArray(t *testing.T) {
	svc := NewService(&fakeLister{}, nil, 0, nil)
	rec := httptest.NewRecorder()
	NewHandler(svc, nil).Upcoming(rec, authed(httptest.NewRequest(http.MethodGet, "/appointments/upcoming", nil)))
	assert.JSONEq(t, `{"appointments":[]}`, rec.Body.String())
}

func TestHandlerErrors(t *testing.T) {
	h := NewHandler(NewService(&fakeLister{err: careapi.ErrUnauthorized}, nil, 0, nil), nil)

	rec := httptest.NewRecorder()
	h.List(rec, authed(httptest.NewRequest(http.MethodGet, "/appointments", nil)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	h = NewHandler(NewService(&fakeLister{err: &careapi.APIError{Status: 500}}, nil, 0, nil), nil)
	rec = httptest.NewRecorder()
	h.Refresh(rec, authed(httptest.NewRequest(http.MethodPost, "/appointments/refresh", nil)))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/appointments", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

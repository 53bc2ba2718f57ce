package i18n

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogHandler(t *testing.T) {
	c := MustLoad("fr")
	r := chi.NewRouter()
	r.Get("/i18n/{lang}", c.Handler)

	tests := []struct {
		path     string
		header   string
		wantLang string
	}{
		{"/i18n/en", "", "en"},
		{"/i18n/en-GB", "", "en"},
		{"/i18n/de", "", "fr"},
		{"/i18n/auto", "en-US,en;q=0.9", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Accept-Language", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)

			var body DictionaryResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantLang, body.Language)
			assert.Equal(t, []string{"fr", "en"}, body.Languages)
			assert.NotEmpty(t, body.Messages["booking.error.submit_failed"])
		})
	}
}

package i18n

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// DictionaryResponse is served to the UI shell.
type DictionaryResponse struct {
	Language  string            `json:"language"`
	Languages []string          `json:"languages"`
	Messages  map[string]string `json:"messages"`
}

// Handler serves GET /i18n/{lang}. "auto" negotiates from Accept-Language.
func (c *Catalog) Handler(w http.ResponseWriter, r *http.Request) {
	lang := strings.TrimSpace(chi.URLParam(r, "lang"))
	if lang == "" || strings.EqualFold(lang, "auto") {
		lang = c.FromRequest(r)
	} else {
		lang = c.Normalize(lang)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Language", lang)
	w.Header().Set("Cache-Control", "public, max-age=300")
	_ = json.NewEncoder(w).Encode(DictionaryResponse{
		Language:  lang,
		Languages: c.Languages(),
		Messages:  c.Dictionary(lang),
	})
}

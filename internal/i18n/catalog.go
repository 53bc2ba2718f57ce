// Package i18n holds the portal's translation dictionary. It is loaded once at
// startup and never mutated; lookups of unknown keys return the key itself.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Catalog maps (language, key) to a translated string.
type Catalog struct {
	fallback string
	messages map[string]map[string]string
	tags     []language.Tag
	names    []string
	matcher  language.Matcher
}

// Load reads the embedded dictionaries. fallback names the language used when
// a request asks for one that is not available.
func Load(fallback string) (*Catalog, error) {
	return LoadFS(localeFS, "locales", fallback)
}

// MustLoad is Load that panics; the embedded files are part of the binary.
func MustLoad(fallback string) *Catalog {
	c, err := Load(fallback)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFS reads every <lang>.json file under dir.
func LoadFS(fsys fs.FS, dir, fallback string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("i18n: read locales: %w", err)
	}

	messages := make(map[string]map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}
		lang := strings.ToLower(strings.TrimSuffix(entry.Name(), ".json"))
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", entry.Name(), err)
		}
		dict := make(map[string]string)
		if err := json.Unmarshal(data, &dict); err != nil {
			return nil, fmt.Errorf("i18n: parse %s: %w", entry.Name(), err)
		}
		messages[lang] = dict
	}

	fallback = strings.ToLower(strings.TrimSpace(fallback))
	if _, ok := messages[fallback]; !ok {
		return nil, fmt.Errorf("i18n: fallback language %q has no dictionary", fallback)
	}

	// The fallback goes first so the matcher prefers it on ties.
	names := []string{fallback}
	for lang := range messages {
		if lang != fallback {
			names = append(names, lang)
		}
	}
	sort.Strings(names[1:])

	tags := make([]language.Tag, 0, len(names))
	for _, name := range names {
		tags = append(tags, language.Make(name))
	}

	return &Catalog{
		fallback: fallback,
		messages: messages,
		tags:     tags,
		names:    names,
		matcher:  language.NewMatcher(tags),
	}, nil
}

// Languages lists the available languages, fallback first.
func (c *Catalog) Languages() []string {
	return append([]string(nil), c.names...)
}

// Fallback returns the default language.
func (c *Catalog) Fallback() string {
	return c.fallback
}

// Lookup returns the translation of key in lang, then in the fallback
// language, then the key itself.
func (c *Catalog) Lookup(lang, key string) string {
	if dict, ok := c.messages[c.Normalize(lang)]; ok {
		if msg, ok := dict[key]; ok {
			return msg
		}
	}
	if msg, ok := c.messages[c.fallback][key]; ok {
		return msg
	}
	return key
}

// T looks up key and substitutes {name} placeholders from pairs of
// alternating names and values.
func (c *Catalog) T(lang, key string, args ...any) string {
	msg := c.Lookup(lang, key)
	if len(args) < 2 {
		return msg
	}
	pairs := make([]string, 0, len(args))
	for i := 0; i+1 < len(args); i += 2 {
		pairs = append(pairs, "{"+fmt.Sprint(args[i])+"}", fmt.Sprint(args[i+1]))
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

// Dictionary returns a copy of the dictionary for lang merged over the
// fallback, so the UI always gets a complete set of keys.
func (c *Catalog) Dictionary(lang string) map[string]string {
	out := make(map[string]string, len(c.messages[c.fallback]))
	for k, v := range c.messages[c.fallback] {
		out[k] = v
	}
	for k, v := range c.messages[c.Normalize(lang)] {
		out[k] = v
	}
	return out
}

// Normalize maps a language name or BCP 47 tag ("en-GB") to an available
// language, falling back to the default.
func (c *Catalog) Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if _, ok := c.messages[lang]; ok {
		return lang
	}
	if lang == "" {
		return c.fallback
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return c.fallback
	}
	return c.match(tag)
}

// FromRequest negotiates a language from the Accept-Language header.
func (c *Catalog) FromRequest(r *http.Request) string {
	header := r.Header.Get("Accept-Language")
	if header == "" {
		return c.fallback
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return c.fallback
	}
	return c.match(tags...)
}

func (c *Catalog) match(tags ...language.Tag) string {
	_, idx, confidence := c.matcher.Match(tags...)
	if confidence == language.No {
		return c.fallback
	}
	return c.names[idx]
}

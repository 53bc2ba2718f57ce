package doctors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carenest/patient-portal/internal/cache"
	"github.com/carenest/patient-portal/internal/careapi"
	"github.com/carenest/patient-portal/pkg/logging"
)

// ErrNotFound is returned by Get for unknown doctor ids.
var ErrNotFound = errors.New("doctors: not found")

const cacheKey = "doctors:all"

// Source lists doctors from the care API.
type Source interface {
	ListDoctors(ctx context.Context) ([]careapi.Doctor, error)
}

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	Specialty string
	Available *bool
	Query     string
}

func (f Filter) match(d careapi.Doctor) bool {
	if f.Specialty != "" && !strings.EqualFold(strings.TrimSpace(d.Specialty), strings.TrimSpace(f.Specialty)) {
		return false
	}
	if f.Available != nil && d.Available != *f.Available {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return strings.Contains(strings.ToLower(d.Name), q) || strings.Contains(strings.ToLower(d.Specialty), q)
	}
	return true
}

// Directory is the cached doctor listing shared by all patients.
type Directory struct {
	source Source
	cache  cache.Cache
	ttl    time.Duration
	logger *logging.Logger
}

// NewDirectory creates a directory. A nil cache disables caching.
func NewDirectory(source Source, c cache.Cache, ttl time.Duration, logger *logging.Logger) *Directory {
	if source == nil {
		panic("doctors: source cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Directory{source: source, cache: c, ttl: ttl, logger: logger}
}

// List returns the doctors matching f, in the care API's order.
func (d *Directory) List(ctx context.Context, f Filter) ([]careapi.Doctor, error) {
	all, err := d.all(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]careapi.Doctor, 0, len(all))
	for _, doc := range all {
		if f.match(doc) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Get returns one doctor or ErrNotFound.
func (d *Directory) Get(ctx context.Context, id string) (careapi.Doctor, error) {
	doc, found, err := d.Find(ctx, id)
	if err != nil {
		return careapi.Doctor{}, err
	}
	if !found {
		return careapi.Doctor{}, ErrNotFound
	}
	return doc, nil
}

// Find looks a doctor up by id.
func (d *Directory) Find(ctx context.Context, id string) (careapi.Doctor, bool, error) {
	all, err := d.all(ctx)
	if err != nil {
		return careapi.Doctor{}, false, err
	}
	for _, doc := range all {
		if doc.ID == id {
			return doc, true, nil
		}
	}
	return careapi.Doctor{}, false, nil
}

// Invalidate drops the cached listing.
func (d *Directory) Invalidate(ctx context.Context) error {
	if d.cache == nil {
		return nil
	}
	return d.cache.Delete(ctx, cacheKey)
}

func (d *Directory) all(ctx context.Context) ([]careapi.Doctor, error) {
	if d.cache != nil {
		var cached []careapi.Doctor
		err := d.cache.Get(ctx, cacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			d.logger.WithContext(ctx).Warn("doctors: cache read failed", "error", err)
		}
	}

	list, err := d.source.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("doctors: list: %w", err)
	}
	if list == nil {
		list = []careapi.Doctor{}
	}
	if d.cache != nil {
		if err := d.cache.Set(ctx, cacheKey, list, d.ttl); err != nil {
			d.logger.WithContext(ctx).Warn("doctors: cache write failed", "error", err)
		}
	}
	return list, nil
}

package retailer

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrNotConfigured is returned by Registry.Get for unknown retailer names.
var ErrNotConfigured = errors.New("not configured")

// Selectors maps logical listing fields to CSS selectors in a retailer's
// search-results markup. Any selector may be empty; extraction for an
// empty selector always yields the empty string.
type Selectors struct {
	Products    string
	Title       string
	Price       string
	Rating      string
	ReviewCount string
	Image       string
	Link        string
}

// Config describes one supported retailer. Values are immutable after
// construction; the registry hands out copies, never shared pointers,
// so concurrent scrapes cannot interfere with each other.
type Config struct {
	Name       string
	BaseURL    string
	SearchPath string
	Selectors  Selectors
}

// SearchURL builds the search-results URL for a free-text query.
func (c Config) SearchURL(query string) string {
	return c.BaseURL + c.SearchPath + url.QueryEscape(query)
}

// Registry holds the per-retailer configurations loaded at process start.
type Registry struct {
	configs map[string]Config
}

// NewRegistry builds a registry from the given configs. Later entries
// with a duplicate name overwrite earlier ones.
func NewRegistry(configs ...Config) *Registry {
	m := make(map[string]Config, len(configs))
	for _, c := range configs {
		m[c.Name] = c
	}
	return &Registry{configs: m}
}

// Get returns the configuration for a retailer name. Unknown names are
// a hard error at orchestration time.
func (r *Registry) Get(name string) (Config, error) {
	cfg, ok := r.configs[name]
	if !ok {
		return Config{}, fmt.Errorf("retailer %s %w", name, ErrNotConfigured)
	}
	return cfg, nil
}

// Names returns the configured retailer names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	return names
}

// Default returns the registry of retailers supported out of the box.
func Default() *Registry {
	return NewRegistry(
		Config{
			Name:       "amazon",
			BaseURL:    "https://www.amazon.com",
			SearchPath: "/s?k=",
			Selectors: Selectors{
				Products:    `div[data-component-type="s-search-result"]`,
				Title:       "h2 a.a-link-normal span",
				Price:       "span.a-price span.a-offscreen",
				Rating:      `span[aria-label*="stars"]`,
				ReviewCount: `span[aria-label*="stars"] + span.a-size-base`,
				Image:       "img.s-image",
				Link:        "h2 a.a-link-normal",
			},
		},
		Config{
			Name:       "target",
			BaseURL:    "https://www.target.com",
			SearchPath: "/s?searchTerm=",
			Selectors: Selectors{
				Products:    `div[data-test="product-card"]`,
				Title:       `[data-test="product-title"]`,
				Price:       `[data-test="product-price"]`,
				Rating:      `[data-test="product-rating"]`,
				ReviewCount: `[data-test="product-reviews-count"]`,
				Image:       `[data-test="product-image"] img`,
				Link:        `[data-test="product-card-link"]`,
			},
		},
	)
}

// Package search merges cached catalog rows with live scrapes into a
// single ranked result set.
package search

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/utkarshprasad2/FrugalTops/internal/database"
	"github.com/utkarshprasad2/FrugalTops/internal/models"
)

const (
	// CacheThreshold is the minimum number of cached rows that makes a
	// live scrape unnecessary.
	CacheThreshold = 10

	// SourceCache marks a response served entirely from the database.
	SourceCache = "cache"
	// SourceMixed marks a response that includes freshly scraped rows.
	SourceMixed = "mixed"
)

// DefaultRetailers is scraped when neither the query nor the service
// configuration names any.
var DefaultRetailers = []string{"amazon"}

// Scraper runs a live search against one retailer.
type Scraper interface {
	SearchProducts(ctx context.Context, query, retailerName string) models.ScrapingResult
}

// ProductStore is the catalog persistence the service needs.
type ProductStore interface {
	Search(ctx context.Context, q models.SearchQuery) ([]models.Product, error)
	InsertBatch(ctx context.Context, products []models.Product) error
}

// PriceTracker records price observations for scraped products. Track
// returns nil when the observation was not significant enough to keep.
type PriceTracker interface {
	Track(ctx context.Context, point models.PricePoint) (*models.PricePoint, error)
}

// EventPublisher pushes recorded price changes into the outbox.
type EventPublisher interface {
	PublishPriceChanged(ctx context.Context, point models.PricePoint) error
}

// Result is a ranked, capped product list plus where it came from.
type Result struct {
	Products []models.Product `json:"products"`
	Source   string           `json:"source"`
}

type Service struct {
	store     ProductStore
	scraper   Scraper
	prices    PriceTracker
	publisher EventPublisher
	retailers []string
	logger    *slog.Logger
}

// NewService wires the merge policy. retailers is the default scrape
// list for queries that name none; empty falls back to
// DefaultRetailers. prices and publisher may be nil when price
// tracking is disabled.
func NewService(store ProductStore, scraper Scraper, prices PriceTracker, publisher EventPublisher, retailers []string, logger *slog.Logger) *Service {
	if len(retailers) == 0 {
		retailers = DefaultRetailers
	}
	return &Service{
		store:     store,
		scraper:   scraper,
		prices:    prices,
		publisher: publisher,
		retailers: retailers,
		logger:    logger.With("component", "search"),
	}
}

// Search serves the query from the database when it has enough rows,
// otherwise scrapes the requested retailers in parallel, persists what
// came back, and merges both sets.
func (s *Service) Search(ctx context.Context, q models.SearchQuery) (*Result, error) {
	cached, err := s.store.Search(ctx, q)
	if err != nil {
		s.logger.Error("cache lookup failed, falling back to scrape",
			"query", q.Query, "error", err)
		cached = nil
	}

	if len(cached) >= CacheThreshold {
		s.logger.Info("serving from cache",
			"query", q.Query, "count", len(cached))
		return &Result{Products: cached, Source: SourceCache}, nil
	}

	retailers := q.Retailers
	if len(retailers) == 0 {
		retailers = s.retailers
	}

	scraped := s.scrapeAll(ctx, q.Query, retailers)

	if len(scraped) > 0 {
		if err := s.store.InsertBatch(ctx, scraped); err != nil {
			s.logger.Error("failed to persist scraped products",
				"query", q.Query, "count", len(scraped), "error", err)
		}
		s.trackPrices(ctx, scraped)
	}

	merged := append(cached, scraped...)
	merged = filterMatching(merged, q)
	rank(merged)
	if len(merged) > database.ResultLimit {
		merged = merged[:database.ResultLimit]
	}

	s.logger.Info("search complete",
		"query", q.Query,
		"cached", len(cached),
		"scraped", len(scraped),
		"returned", len(merged))

	return &Result{Products: merged, Source: SourceMixed}, nil
}

// scrapeAll fires one scrape per retailer and waits for all of them.
// A retailer that fails contributes nothing instead of failing the
// whole search.
func (s *Service) scrapeAll(ctx context.Context, query string, retailers []string) []models.Product {
	results := make([]models.ScrapingResult, len(retailers))

	var wg sync.WaitGroup
	for i, name := range retailers {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			results[i] = s.scraper.SearchProducts(ctx, query, name)
		}(i, name)
	}
	wg.Wait()

	var products []models.Product
	for i, result := range results {
		if !result.Success {
			s.logger.Warn("retailer scrape failed",
				"retailer", retailers[i], "error", result.Error)
			continue
		}
		products = append(products, result.Products...)
	}
	return products
}

func (s *Service) trackPrices(ctx context.Context, products []models.Product) {
	if s.prices == nil {
		return
	}

	for _, p := range products {
		recorded, err := s.prices.Track(ctx, models.PricePoint{
			ProductID:  p.ID,
			ProductURL: p.ProductURL,
			Retailer:   p.Retailer,
			Price:      p.Price,
			Timestamp:  p.DateScraped,
		})
		if err != nil {
			s.logger.Error("failed to track price",
				"product_id", p.ID, "error", err)
			continue
		}
		if recorded == nil || s.publisher == nil {
			continue
		}
		if err := s.publisher.PublishPriceChanged(ctx, *recorded); err != nil {
			s.logger.Error("failed to publish price event",
				"product_id", p.ID, "error", err)
		}
	}
}

func filterMatching(products []models.Product, q models.SearchQuery) []models.Product {
	filtered := products[:0]
	for _, p := range products {
		if q.Matches(p) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// rank orders by quality score descending with unscored rows last,
// then by price ascending.
func rank(products []models.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		qi, qj := products[i].QualityScore, products[j].QualityScore
		switch {
		case qi != nil && qj == nil:
			return true
		case qi == nil && qj != nil:
			return false
		case qi != nil && qj != nil && *qi != *qj:
			return *qi > *qj
		}
		return products[i].Price < products[j].Price
	})
}

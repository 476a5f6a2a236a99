package scraper

import (
	"context"
	"log/slog"

	"github.com/utkarshprasad2/FrugalTops/internal/models"
	"github.com/utkarshprasad2/FrugalTops/internal/retailer"
)

// Session is one browser session's lifecycle for one search. The
// production implementation lives in internal/browser; tests inject
// fakes. Every Open must be paired with exactly one Close, on every
// exit path.
type Session interface {
	Open() error
	Navigate(ctx context.Context, url string) error
	AwaitListings(ctx context.Context, selector string) error
	Settle(ctx context.Context) error
	Listings(selector string) ([]Listing, error)
	DiagnosticCapture(label string)
	Close()
}

// SessionFactory produces a fresh, unopened session per scrape.
// Sessions are never shared across concurrent scrapes.
type SessionFactory func() Session

// Service is the scraping orchestrator: it turns a (query, retailer)
// pair into a ScrapingResult, guaranteeing session cleanup.
type Service struct {
	registry   *retailer.Registry
	newSession SessionFactory
	logger     *slog.Logger
}

func NewService(registry *retailer.Registry, factory SessionFactory, logger *slog.Logger) *Service {
	return &Service{
		registry:   registry,
		newSession: factory,
		logger:     logger.With("component", "scraper"),
	}
}

// SearchProducts scrapes one retailer's search results for a query.
// Per-listing extraction failures are dropped and logged; only
// structural failures (launch, navigation, content wait) produce a
// failed result. A successful scrape with zero products is valid.
func (s *Service) SearchProducts(ctx context.Context, query, retailerName string) models.ScrapingResult {
	cfg, err := s.registry.Get(retailerName)
	if err != nil {
		// No browser is launched for an unknown retailer.
		return models.ScrapingResult{Success: false, Error: err.Error()}
	}

	searchURL := cfg.SearchURL(query)
	s.logger.Info("starting search", "retailer", retailerName, "query", query, "url", searchURL)

	session := s.newSession()
	if err := session.Open(); err != nil {
		session.Close()
		s.logger.Error("failed to open browser session", "retailer", retailerName, "error", err)
		return models.ScrapingResult{Success: false, Error: "failed to launch browser"}
	}
	defer session.Close()

	if err := session.Navigate(ctx, searchURL); err != nil {
		s.logger.Error("navigation failed", "retailer", retailerName, "url", searchURL, "error", err)
		session.DiagnosticCapture(retailerName + "-navigate")
		return models.ScrapingResult{Success: false, Error: "failed to load search results"}
	}

	if err := session.AwaitListings(ctx, cfg.Selectors.Products); err != nil {
		s.logger.Error("no listings appeared", "retailer", retailerName, "error", err)
		session.DiagnosticCapture(retailerName + "-listings")
		return models.ScrapingResult{Success: false, Error: "no search results rendered"}
	}

	if err := session.Settle(ctx); err != nil {
		s.logger.Warn("settle interrupted", "retailer", retailerName, "error", err)
	}

	products := s.extractAll(session, cfg, retailerName)
	s.logger.Info("search finished", "retailer", retailerName, "products", len(products))

	return models.ScrapingResult{Success: true, Products: products}
}

// extractAll normalizes every listing handle in document order,
// dropping individual failures.
func (s *Service) extractAll(session Session, cfg retailer.Config, retailerName string) []models.Product {
	listings, err := session.Listings(cfg.Selectors.Products)
	if err != nil {
		s.logger.Error("failed to enumerate listings", "retailer", retailerName, "error", err)
		return []models.Product{}
	}

	products := make([]models.Product, 0, len(listings))
	for i, l := range listings {
		product := Normalize(l, cfg, retailerName)
		if product == nil {
			s.logger.Debug("dropping listing with missing mandatory fields", "retailer", retailerName, "index", i)
			continue
		}
		products = append(products, *product)
	}
	return products
}

package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utkarshprasad2/FrugalTops/internal/database"
	"github.com/utkarshprasad2/FrugalTops/internal/models"
	"github.com/utkarshprasad2/FrugalTops/internal/search"
)

// ProductCatalog is the subset of the product repository the handlers
// need (for testing).
type ProductCatalog interface {
	FilterFacets(ctx context.Context) (*database.Facets, error)
}

// PriceHistoryStore is the subset of the price history repository the
// handlers need (for testing).
type PriceHistoryStore interface {
	Track(ctx context.Context, point models.PricePoint) (*models.PricePoint, error)
	History(ctx context.Context, productID string, days int) ([]models.PricePoint, error)
	Stats(ctx context.Context, productID string, days int) (*models.PriceStats, error)
	BestDeals(ctx context.Context, days, limit int) ([]database.Deal, error)
}

type Handlers struct {
	search   *search.Service
	products ProductCatalog
	prices   PriceHistoryStore
	logger   *slog.Logger
}

func NewHandlers(searchSvc *search.Service, products ProductCatalog, prices PriceHistoryStore, logger *slog.Logger) *Handlers {
	return &Handlers{
		search:   searchSvc,
		products: products,
		prices:   prices,
		logger:   logger,
	}
}

// SearchResponse wraps a ranked product list with its provenance.
type SearchResponse struct {
	Success  bool             `json:"success"`
	Products []models.Product `json:"products"`
	Source   string           `json:"source,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// SearchProducts handles GET /api/products/search
func (h *Handlers) SearchProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	queryText := strings.TrimSpace(q.Get("query"))
	if queryText == "" {
		h.respondError(w, http.StatusBadRequest, "search query is required")
		return
	}

	searchQuery := models.SearchQuery{
		Query:           queryText,
		MinPrice:        parseFloatParam(q.Get("minPrice")),
		MaxPrice:        parseFloatParam(q.Get("maxPrice")),
		MinQualityScore: parseFloatParam(q.Get("minQualityScore")),
		Retailers:       parseListParam(q.Get("retailers")),
	}

	result, err := h.search.Search(r.Context(), searchQuery)
	if err != nil {
		h.logger.Error("search failed", "query", queryText, "error", err)
		h.respondJSON(w, http.StatusInternalServerError, SearchResponse{
			Success:  false,
			Products: []models.Product{},
			Error:    "search failed",
		})
		return
	}

	products := result.Products
	if products == nil {
		products = []models.Product{}
	}

	h.respondJSON(w, http.StatusOK, SearchResponse{
		Success:  true,
		Products: products,
		Source:   result.Source,
	})
}

// FiltersResponse wraps the catalog facets for the filter sidebar.
type FiltersResponse struct {
	Success bool             `json:"success"`
	Filters *database.Facets `json:"filters"`
}

// GetFilters handles GET /api/products/filters
func (h *Handlers) GetFilters(w http.ResponseWriter, r *http.Request) {
	facets, err := h.products.FilterFacets(r.Context())
	if err != nil {
		h.logger.Error("failed to load filter facets", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load filters")
		return
	}

	h.respondJSON(w, http.StatusOK, FiltersResponse{Success: true, Filters: facets})
}

// GetPriceHistory handles GET /api/price-history/product/{productID}
func (h *Handlers) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		h.respondError(w, http.StatusBadRequest, "product ID is required")
		return
	}

	history, err := h.prices.History(r.Context(), productID, parseIntParam(r.URL.Query().Get("days")))
	if err != nil {
		h.logger.Error("failed to load price history", "product_id", productID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load price history")
		return
	}

	if history == nil {
		history = []models.PricePoint{}
	}
	h.respondJSON(w, http.StatusOK, history)
}

// GetPriceStats handles GET /api/price-history/stats/{productID}
func (h *Handlers) GetPriceStats(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		h.respondError(w, http.StatusBadRequest, "product ID is required")
		return
	}

	stats, err := h.prices.Stats(r.Context(), productID, parseIntParam(r.URL.Query().Get("days")))
	if err != nil {
		h.logger.Error("failed to compute price stats", "product_id", productID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to compute price stats")
		return
	}

	if stats == nil {
		h.respondError(w, http.StatusNotFound, "no price history for product")
		return
	}

	h.respondJSON(w, http.StatusOK, stats)
}

// GetBestDeals handles GET /api/price-history/best-deals
func (h *Handlers) GetBestDeals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	deals, err := h.prices.BestDeals(r.Context(), parseIntParam(q.Get("days")), parseIntParam(q.Get("limit")))
	if err != nil {
		h.logger.Error("failed to load best deals", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load best deals")
		return
	}

	if deals == nil {
		deals = []database.Deal{}
	}
	h.respondJSON(w, http.StatusOK, deals)
}

// TrackPriceRequest is the body for POST /api/price-history/track.
type TrackPriceRequest struct {
	ProductID  string  `json:"productId"`
	ProductURL string  `json:"productUrl"`
	Retailer   string  `json:"retailer"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
	IsOnSale   bool    `json:"isOnSale"`
}

// TrackPrice handles POST /api/price-history/track
func (h *Handlers) TrackPrice(w http.ResponseWriter, r *http.Request) {
	var req TrackPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ProductID == "" || req.Retailer == "" {
		h.respondError(w, http.StatusBadRequest, "productId and retailer are required")
		return
	}
	if req.Price <= 0 {
		h.respondError(w, http.StatusBadRequest, "price must be positive")
		return
	}

	recorded, err := h.prices.Track(r.Context(), models.PricePoint{
		ProductID:  req.ProductID,
		ProductURL: req.ProductURL,
		Retailer:   req.Retailer,
		Price:      req.Price,
		Currency:   req.Currency,
		IsOnSale:   req.IsOnSale,
	})
	if err != nil {
		h.logger.Error("failed to track price", "product_id", req.ProductID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to track price")
		return
	}

	if recorded == nil {
		h.respondJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"recorded": false,
		})
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"recorded": true,
		"point":    recorded,
	})
}

func parseFloatParam(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseIntParam(raw string) int {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}

func parseListParam(raw string) []string {
	if raw == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

package models

import (
	"time"
)

// Product is the canonical listing record shared by the scraper and the
// persistence layer. Instances are never mutated after normalization;
// price history appends separate price points instead.
type Product struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Brand        string    `json:"brand"`
	Price        float64   `json:"price"`
	ImageURL     string    `json:"imageUrl"`
	ProductURL   string    `json:"productUrl"`
	Retailer     string    `json:"retailer"`
	Rating       *float64  `json:"rating,omitempty"`
	ReviewCount  *int      `json:"reviewCount,omitempty"`
	QualityScore *float64  `json:"qualityScore,omitempty"`
	DateScraped  time.Time `json:"dateScraped"`
}

// ScrapingResult is the outcome of one retailer scrape. Listings that
// fail extraction individually are dropped from Products; Success is
// false only for structural failures (launch, navigation, content wait).
type ScrapingResult struct {
	Success  bool      `json:"success"`
	Products []Product `json:"products,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// SearchQuery carries the free-text query and the optional constraints
// accepted by the search endpoint.
type SearchQuery struct {
	Query           string
	MinPrice        *float64
	MaxPrice        *float64
	MinQualityScore *float64
	Retailers       []string
}

// Matches reports whether the product satisfies the query's price and
// quality constraints. A product without a quality score fails a
// minQualityScore constraint rather than passing by default.
func (q SearchQuery) Matches(p Product) bool {
	if q.MinPrice != nil && p.Price < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && p.Price > *q.MaxPrice {
		return false
	}
	if q.MinQualityScore != nil {
		if p.QualityScore == nil || *p.QualityScore < *q.MinQualityScore {
			return false
		}
	}
	return true
}

// PricePoint is one observation in a product's price history.
type PricePoint struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"productId"`
	ProductURL string    `json:"productUrl"`
	Retailer   string    `json:"retailer"`
	Price      float64   `json:"price"`
	Currency   string    `json:"currency"`
	IsOnSale   bool      `json:"isOnSale"`
	Timestamp  time.Time `json:"timestamp"`
}

// PriceStats summarizes a product's price history over a window.
type PriceStats struct {
	CurrentPrice          float64   `json:"currentPrice"`
	MinPrice              float64   `json:"minPrice"`
	MaxPrice              float64   `json:"maxPrice"`
	AvgPrice              float64   `json:"avgPrice"`
	PriceRange            float64   `json:"priceRange"`
	PriceChange           float64   `json:"priceChange"`
	PriceChangePercentage float64   `json:"priceChangePercentage"`
	DataPoints            int       `json:"dataPoints"`
	LastUpdated           time.Time `json:"lastUpdated"`
}

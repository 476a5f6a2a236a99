package database

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utkarshprasad2/FrugalTops/internal/models"
)

// Significant-change thresholds: a point is only recorded when the
// price moved by more than $1 or more than 1% since the last point.
const (
	minAbsoluteChange = 1.0
	minRelativeChange = 0.01
)

// PriceHistoryRepository appends and queries per-product price points.
// Appending never alters a product's identity fields.
type PriceHistoryRepository struct {
	db *DB
}

func NewPriceHistoryRepository(db *DB) *PriceHistoryRepository {
	return &PriceHistoryRepository{db: db}
}

// Track records a price point if the price changed significantly since
// the latest recorded point. It returns the stored point, or nil when
// the change was below both thresholds.
func (r *PriceHistoryRepository) Track(ctx context.Context, point models.PricePoint) (*models.PricePoint, error) {
	var lastPrice float64
	err := r.db.QueryRow(ctx, `
		SELECT price FROM price_history
		WHERE product_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1`, point.ProductID).Scan(&lastPrice)

	switch {
	case err == pgx.ErrNoRows:
		// First observation always records.
	case err != nil:
		return nil, fmt.Errorf("failed to read latest price: %w", err)
	default:
		delta := math.Abs(point.Price - lastPrice)
		if delta <= minAbsoluteChange && delta/lastPrice <= minRelativeChange {
			return nil, nil
		}
	}

	point.ID = uuid.NewString()
	if point.Timestamp.IsZero() {
		point.Timestamp = time.Now()
	}
	if point.Currency == "" {
		point.Currency = "USD"
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO price_history (
			id, product_id, product_url, retailer, price, currency,
			is_on_sale, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		point.ID, point.ProductID, point.ProductURL, point.Retailer,
		point.Price, point.Currency, point.IsOnSale, point.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert price point: %w", err)
	}

	return &point, nil
}

// History returns a product's price points within the trailing window,
// oldest first.
func (r *PriceHistoryRepository) History(ctx context.Context, productID string, days int) ([]models.PricePoint, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	rows, err := r.db.Query(ctx, `
		SELECT id, product_id, product_url, retailer, price, currency,
		       is_on_sale, recorded_at
		FROM price_history
		WHERE product_id = $1 AND recorded_at >= $2
		ORDER BY recorded_at ASC`, productID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var points []models.PricePoint
	for rows.Next() {
		var p models.PricePoint
		err := rows.Scan(
			&p.ID, &p.ProductID, &p.ProductURL, &p.Retailer,
			&p.Price, &p.Currency, &p.IsOnSale, &p.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		points = append(points, p)
	}

	return points, rows.Err()
}

// Stats summarizes the window's price points. Returns nil when the
// product has no history in the window.
func (r *PriceHistoryRepository) Stats(ctx context.Context, productID string, days int) (*models.PriceStats, error) {
	points, err := r.History(ctx, productID, days)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, nil
	}

	return SummarizePricePoints(points), nil
}

// SummarizePricePoints computes window statistics over points ordered
// oldest first.
func SummarizePricePoints(points []models.PricePoint) *models.PriceStats {
	first := points[0]
	last := points[len(points)-1]

	stats := &models.PriceStats{
		CurrentPrice: last.Price,
		MinPrice:     first.Price,
		MaxPrice:     first.Price,
		DataPoints:   len(points),
		LastUpdated:  last.Timestamp,
	}

	var sum float64
	for _, p := range points {
		sum += p.Price
		stats.MinPrice = math.Min(stats.MinPrice, p.Price)
		stats.MaxPrice = math.Max(stats.MaxPrice, p.Price)
	}

	stats.AvgPrice = sum / float64(len(points))
	stats.PriceRange = stats.MaxPrice - stats.MinPrice
	stats.PriceChange = last.Price - first.Price
	if first.Price != 0 {
		stats.PriceChangePercentage = (last.Price - first.Price) / first.Price * 100
	}

	return stats
}

// Deal is one discounted product surfaced by BestDeals.
type Deal struct {
	ProductID    string    `json:"productId"`
	ProductURL   string    `json:"productUrl"`
	Retailer     string    `json:"retailer"`
	CurrentPrice float64   `json:"currentPrice"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// BestDeals returns the most recent on-sale price point per product
// within the window, cheapest first.
func (r *PriceHistoryRepository) BestDeals(ctx context.Context, days, limit int) ([]Deal, error) {
	if days <= 0 {
		days = 7
	}
	if limit <= 0 {
		limit = ResultLimit
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT ON (product_id)
		       product_id, product_url, retailer, price, recorded_at
		FROM price_history
		WHERE recorded_at >= $1 AND is_on_sale
		ORDER BY product_id, recorded_at DESC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	defer rows.Close()

	var deals []Deal
	for rows.Next() {
		var d Deal
		err := rows.Scan(&d.ProductID, &d.ProductURL, &d.Retailer, &d.CurrentPrice, &d.LastUpdated)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		deals = append(deals, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// DISTINCT ON forces product_id ordering; re-rank by price here.
	sort.Slice(deals, func(i, j int) bool {
		return deals[i].CurrentPrice < deals[j].CurrentPrice
	})
	if len(deals) > limit {
		deals = deals[:limit]
	}
	return deals, nil
}

package database

import (
	"context"
	"fmt"

	"github.com/utkarshprasad2/FrugalTops/internal/models"
)

// ResultLimit caps every search result set, cached or merged.
const ResultLimit = 20

// ProductRepository persists canonical products and serves the cache
// side of the search merge policy.
type ProductRepository struct {
	db *DB
}

func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Search returns products whose title matches the free-text query,
// constrained by the optional price/quality filters, sorted by quality
// score descending then price ascending, capped at ResultLimit.
func (r *ProductRepository) Search(ctx context.Context, q models.SearchQuery) ([]models.Product, error) {
	query := `
		SELECT id, title, brand, price, image_url, product_url, retailer,
		       rating, review_count, quality_score, date_scraped
		FROM products
		WHERE title ILIKE '%' || $1 || '%'
		  AND ($2::float8 IS NULL OR price >= $2)
		  AND ($3::float8 IS NULL OR price <= $3)
		  AND ($4::float8 IS NULL OR quality_score >= $4)
		ORDER BY quality_score DESC NULLS LAST, price ASC
		LIMIT $5`

	rows, err := r.db.Query(ctx, query,
		q.Query, q.MinPrice, q.MaxPrice, q.MinQualityScore, ResultLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		err := rows.Scan(
			&p.ID, &p.Title, &p.Brand, &p.Price, &p.ImageURL, &p.ProductURL,
			&p.Retailer, &p.Rating, &p.ReviewCount, &p.QualityScore, &p.DateScraped,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// InsertBatch persists freshly scraped products. Concurrent scrapes for
// the same query may insert overlapping listings; no dedup is applied.
func (r *ProductRepository) InsertBatch(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}

	query := `
		INSERT INTO products (
			id, title, brand, price, image_url, product_url, retailer,
			rating, review_count, quality_score, date_scraped
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	for _, p := range products {
		_, err := r.db.Exec(ctx, query,
			p.ID, p.Title, p.Brand, p.Price, p.ImageURL, p.ProductURL,
			p.Retailer, p.Rating, p.ReviewCount, p.QualityScore, p.DateScraped,
		)
		if err != nil {
			return fmt.Errorf("failed to insert product %s: %w", p.ID, err)
		}
	}

	return nil
}

// Facets describes the filter options derivable from the stored catalog.
type Facets struct {
	Brands     []string `json:"brands"`
	Retailers  []string `json:"retailers"`
	PriceRange struct {
		MinPrice float64 `json:"minPrice"`
		MaxPrice float64 `json:"maxPrice"`
	} `json:"priceRange"`
}

// FilterFacets returns distinct brands, distinct retailers, and the
// overall price range for the filter sidebar.
func (r *ProductRepository) FilterFacets(ctx context.Context) (*Facets, error) {
	facets := &Facets{}

	brands, err := r.distinct(ctx, "SELECT DISTINCT brand FROM products ORDER BY brand")
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	facets.Brands = brands

	retailers, err := r.distinct(ctx, "SELECT DISTINCT retailer FROM products ORDER BY retailer")
	if err != nil {
		return nil, fmt.Errorf("failed to list retailers: %w", err)
	}
	facets.Retailers = retailers

	err = r.db.QueryRow(ctx,
		"SELECT COALESCE(MIN(price), 0), COALESCE(MAX(price), 1000) FROM products",
	).Scan(&facets.PriceRange.MinPrice, &facets.PriceRange.MaxPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to read price range: %w", err)
	}

	return facets, nil
}

func (r *ProductRepository) distinct(ctx context.Context, query string) ([]string, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

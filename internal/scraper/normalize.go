package scraper

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utkarshprasad2/FrugalTops/internal/models"
	"github.com/utkarshprasad2/FrugalTops/internal/retailer"
)

// Normalize converts one listing handle into a canonical Product.
// It returns nil when the listing is missing mandatory fields: an
// empty title or an unparseable price rejects the listing outright —
// a price is never defaulted to 0. Everything else degrades softly.
func Normalize(l Listing, cfg retailer.Config, retailerName string) *models.Product {
	title := l.Text(cfg.Selectors.Title)
	price := parsePrice(l.Text(cfg.Selectors.Price))

	if strings.TrimSpace(title) == "" || math.IsNaN(price) {
		return nil
	}

	rating := parseRating(l.Text(cfg.Selectors.Rating))
	reviewCount := parseReviewCount(l.Text(cfg.Selectors.ReviewCount))
	imageURL := l.Attr(cfg.Selectors.Image, "src")
	productURL := l.Attr(cfg.Selectors.Link, "href")

	brand := brandFromTitle(title)

	// Absent rating degrades the score, it does not suppress it.
	ratingValue := 0.0
	if rating != nil {
		ratingValue = *rating
	}
	quality := QualityScore(ratingValue, reviewCount, brand)

	return &models.Product{
		ID:           newProductID(retailerName),
		Title:        title,
		Brand:        brand,
		Price:        price,
		ImageURL:     imageURL,
		ProductURL:   productURL,
		Retailer:     retailerName,
		Rating:       rating,
		ReviewCount:  &reviewCount,
		QualityScore: &quality,
		DateScraped:  time.Now(),
	}
}

// newProductID builds a {retailer}-{timestamp}-{random} identifier for
// freshly scraped products. Cached products keep their store ID.
func newProductID(retailerName string) string {
	random := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s-%d-%s", retailerName, time.Now().UnixMilli(), random)
}

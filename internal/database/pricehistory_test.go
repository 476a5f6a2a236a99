package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/utkarshprasad2/FrugalTops/internal/models"
)

func pt(price float64, daysAgo int) models.PricePoint {
	return models.PricePoint{
		Price:     price,
		Timestamp: time.Now().AddDate(0, 0, -daysAgo),
	}
}

func TestSummarizePricePoints(t *testing.T) {
	t.Run("single point", func(t *testing.T) {
		stats := SummarizePricePoints([]models.PricePoint{pt(19.99, 0)})

		assert.Equal(t, 19.99, stats.CurrentPrice)
		assert.Equal(t, 19.99, stats.MinPrice)
		assert.Equal(t, 19.99, stats.MaxPrice)
		assert.Equal(t, 19.99, stats.AvgPrice)
		assert.Equal(t, 0.0, stats.PriceRange)
		assert.Equal(t, 0.0, stats.PriceChange)
		assert.Equal(t, 0.0, stats.PriceChangePercentage)
		assert.Equal(t, 1, stats.DataPoints)
	})

	t.Run("price drop over the window", func(t *testing.T) {
		stats := SummarizePricePoints([]models.PricePoint{
			pt(20.00, 3),
			pt(25.00, 2),
			pt(15.00, 0),
		})

		assert.Equal(t, 15.00, stats.CurrentPrice)
		assert.Equal(t, 15.00, stats.MinPrice)
		assert.Equal(t, 25.00, stats.MaxPrice)
		assert.Equal(t, 10.00, stats.PriceRange)
		assert.InDelta(t, 20.00, stats.AvgPrice, 1e-9)
		assert.Equal(t, -5.00, stats.PriceChange)
		assert.InDelta(t, -25.0, stats.PriceChangePercentage, 1e-9)
		assert.Equal(t, 3, stats.DataPoints)
	})

	t.Run("last updated follows the newest point", func(t *testing.T) {
		newest := pt(10.00, 0)
		stats := SummarizePricePoints([]models.PricePoint{pt(12.00, 5), newest})
		assert.Equal(t, newest.Timestamp, stats.LastUpdated)
	})
}

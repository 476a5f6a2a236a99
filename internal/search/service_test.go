package search

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utkarshprasad2/FrugalTops/internal/models"
)

type MockProductStore struct {
	mock.Mock
}

func (m *MockProductStore) Search(ctx context.Context, q models.SearchQuery) ([]models.Product, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductStore) InsertBatch(ctx context.Context, products []models.Product) error {
	args := m.Called(ctx, products)
	return args.Error(0)
}

type MockScraper struct {
	mock.Mock
}

func (m *MockScraper) SearchProducts(ctx context.Context, query, retailerName string) models.ScrapingResult {
	args := m.Called(ctx, query, retailerName)
	return args.Get(0).(models.ScrapingResult)
}

type MockPriceTracker struct {
	mock.Mock
}

func (m *MockPriceTracker) Track(ctx context.Context, point models.PricePoint) (*models.PricePoint, error) {
	args := m.Called(ctx, point)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PricePoint), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishPriceChanged(ctx context.Context, point models.PricePoint) error {
	args := m.Called(ctx, point)
	return args.Error(0)
}

func score(v float64) *float64 { return &v }

func catalogProducts(n int) []models.Product {
	products := make([]models.Product, n)
	for i := range products {
		products[i] = models.Product{
			ID:           fmt.Sprintf("amazon-170000000000%d-cached", i),
			Title:        fmt.Sprintf("Cached Tank Top %d", i),
			Brand:        "Hanes",
			Price:        float64(10 + i),
			Retailer:     "amazon",
			QualityScore: score(5.0),
			DateScraped:  time.Now(),
		}
	}
	return products
}

func scrapedProduct(id string, price float64, quality *float64) models.Product {
	return models.Product{
		ID:           id,
		Title:        "Scraped Tank Top",
		Brand:        "Nike",
		Price:        price,
		Retailer:     "amazon",
		QualityScore: quality,
		DateScraped:  time.Now(),
	}
}

func newTestService(store ProductStore, scraper Scraper) *Service {
	return NewService(store, scraper, nil, nil, nil, slog.Default())
}

func TestService_Search_CacheThreshold(t *testing.T) {
	ctx := context.Background()
	query := models.SearchQuery{Query: "tank top"}

	t.Run("ten cached rows serve the query without scraping", func(t *testing.T) {
		store := new(MockProductStore)
		scraper := new(MockScraper)

		store.On("Search", ctx, query).Return(catalogProducts(10), nil)

		result, err := newTestService(store, scraper).Search(ctx, query)
		require.NoError(t, err)

		assert.Equal(t, SourceCache, result.Source)
		assert.Len(t, result.Products, 10)
		scraper.AssertNotCalled(t, "SearchProducts", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("nine cached rows trigger a scrape", func(t *testing.T) {
		store := new(MockProductStore)
		scraper := new(MockScraper)

		store.On("Search", ctx, query).Return(catalogProducts(9), nil)
		scraper.On("SearchProducts", ctx, "tank top", "amazon").
			Return(models.ScrapingResult{Success: true, Products: []models.Product{
				scrapedProduct("amazon-1700000000099-fresh", 12.50, score(7.0)),
			}})
		store.On("InsertBatch", ctx, mock.Anything).Return(nil)

		result, err := newTestService(store, scraper).Search(ctx, query)
		require.NoError(t, err)

		assert.Equal(t, SourceMixed, result.Source)
		assert.Len(t, result.Products, 10)
		scraper.AssertExpectations(t)
	})
}

func TestService_Search_Scraping(t *testing.T) {
	ctx := context.Background()

	t.Run("scrapes every requested retailer and merges", func(t *testing.T) {
		query := models.SearchQuery{Query: "tank top", Retailers: []string{"amazon", "target"}}

		store := new(MockProductStore)
		scraper := new(MockScraper)

		store.On("Search", ctx, query).Return([]models.Product{}, nil)
		scraper.On("SearchProducts", ctx, "tank top", "amazon").
			Return(models.ScrapingResult{Success: true, Products: []models.Product{
				scrapedProduct("amazon-1700000000001-a", 15.00, score(8.0)),
			}})
		scraper.On("SearchProducts", ctx, "tank top", "target").
			Return(models.ScrapingResult{Success: true, Products: []models.Product{
				scrapedProduct("target-1700000000002-b", 11.00, score(6.0)),
			}})
		store.On("InsertBatch", ctx, mock.MatchedBy(func(products []models.Product) bool {
			return len(products) == 2
		})).Return(nil)

		result, err := newTestService(store, scraper).Search(ctx, query)
		require.NoError(t, err)

		assert.Len(t, result.Products, 2)
		scraper.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("scrapes the configured retailer list when the query names none", func(t *testing.T) {
		query := models.SearchQuery{Query: "tank top"}

		store := new(MockProductStore)
		scraper := new(MockScraper)

		store.On("Search", ctx, query).Return([]models.Product{}, nil)
		scraper.On("SearchProducts", ctx, "tank top", "amazon").
			Return(models.ScrapingResult{Success: true, Products: []models.Product{
				scrapedProduct("amazon-1700000000011-k", 15.00, score(8.0)),
			}})
		scraper.On("SearchProducts", ctx, "tank top", "target").
			Return(models.ScrapingResult{Success: true, Products: []models.Product{
				scrapedProduct("target-1700000000012-l", 11.00, score(6.0)),
			}})
		store.On("InsertBatch", ctx, mock.Anything).Return(nil)

		svc := NewService(store, scraper, nil, nil, []string{"amazon", "target"}, slog.Default())
		result, err := svc.Search(ctx, query)
		require.NoError(t, err)

		assert.Len(t, result.Products, 2)
		scraper.AssertExpectations(t)
	})

	t.Run("query retailers override the configured list", func(t *testing.T) {
		query := models.SearchQuery{Query: "tank top", Retailers: []string{"target"}}

		store := new(MockProductStore)
		scraper := new(MockScraper)

		store.On("Search", ctx, query).Return([]models.Product{}, nil)
		scraper.On("SearchProducts", ctx, "tank top", "target").
			Return(models.ScrapingResult{Success: true, Products: []models.Product{
				scrapedProduct("target-1700000000013-m", 9.50, score(5.0)),
			}})
		store.On("InsertBatch", ctx, mock.Anything).Return(nil)

		svc := NewService(store, scraper, nil, nil, []string{"amazon", "target"}, slog.Default())
		result, err := svc.Search(ctx, query)
		require.NoError(t, err)

		assert.Len(t, result.Products, 1)
		scraper.AssertNotCalled(t, "SearchProducts", ctx, "tank top", "amazon")
	})

	t.Run("defaults to amazon when no retailers requested", func(t *testing.T) {
		query := models.SearchQuery{Query: "tank top"}

		store := new(MockProductStore)
		scraper := new(MockScraper)

		store.On("Search", ctx, query).Return([]models.Product{}, nil)
		scraper.On("SearchProducts", ctx, "tank top", "amazon").
			Return(models.ScrapingResult{Success: false, Error: "browser launch failed"})

		result, err := newTestService(store, scraper).Search(ctx, query)
		require.NoError(t, err)

		assert.Equal(t, SourceMixed, result.Source)
		assert.Empty(t, result.Products)
		scraper.AssertExpectations(t)
	})

	t.Run("a failed retailer does not fail the search", func(t *testing.T) {
		query := models.SearchQuery{Query: "tank top", Retailers: []string{"amazon", "target"}}

		store := new(MockProductStore)
		scraper := new(MockScraper)

		store.On("Search", ctx, query).Return([]models.Product{}, nil)
		scraper.On("SearchProducts", ctx, "tank top", "amazon").
			Return(models.ScrapingResult{Success: false, Error: "navigation timeout"})
		scraper.On("SearchProducts", ctx, "tank top", "target").
			Return(models.ScrapingResult{Success: true, Products: []models.Product{
				scrapedProduct("target-1700000000003-c", 9.00, score(4.0)),
			}})
		store.On("InsertBatch", ctx, mock.Anything).Return(nil)

		result, err := newTestService(store, scraper).Search(ctx, query)
		require.NoError(t, err)

		require.Len(t, result.Products, 1)
		assert.Equal(t, "target-1700000000003-c", result.Products[0].ID)
	})

	t.Run("persistence failure still returns scraped products", func(t *testing.T) {
		query := models.SearchQuery{Query: "tank top"}

		store := new(MockProductStore)
		scraper := new(MockScraper)

		store.On("Search", ctx, query).Return([]models.Product{}, nil)
		scraper.On("SearchProducts", ctx, "tank top", "amazon").
			Return(models.ScrapingResult{Success: true, Products: []models.Product{
				scrapedProduct("amazon-1700000000004-d", 19.99, score(7.5)),
			}})
		store.On("InsertBatch", ctx, mock.Anything).Return(fmt.Errorf("connection refused"))

		result, err := newTestService(store, scraper).Search(ctx, query)
		require.NoError(t, err)
		assert.Len(t, result.Products, 1)
	})
}

func TestService_Search_MergeRules(t *testing.T) {
	ctx := context.Background()

	t.Run("filters merged rows against the query constraints", func(t *testing.T) {
		minPrice := 10.0
		query := models.SearchQuery{Query: "tank top", MinPrice: &minPrice}

		store := new(MockProductStore)
		scraper := new(MockScraper)

		store.On("Search", ctx, query).Return([]models.Product{}, nil)
		scraper.On("SearchProducts", ctx, "tank top", "amazon").
			Return(models.ScrapingResult{Success: true, Products: []models.Product{
				scrapedProduct("amazon-1700000000005-e", 8.00, score(9.0)),
				scrapedProduct("amazon-1700000000006-f", 14.00, score(6.0)),
			}})
		store.On("InsertBatch", ctx, mock.Anything).Return(nil)

		result, err := newTestService(store, scraper).Search(ctx, query)
		require.NoError(t, err)

		require.Len(t, result.Products, 1)
		assert.Equal(t, 14.00, result.Products[0].Price)
	})

	t.Run("ranks by quality descending then price ascending with unscored last", func(t *testing.T) {
		query := models.SearchQuery{Query: "tank top"}

		store := new(MockProductStore)
		scraper := new(MockScraper)

		store.On("Search", ctx, query).Return([]models.Product{}, nil)
		scraper.On("SearchProducts", ctx, "tank top", "amazon").
			Return(models.ScrapingResult{Success: true, Products: []models.Product{
				scrapedProduct("p-unscored", 5.00, nil),
				scrapedProduct("p-good-expensive", 20.00, score(8.0)),
				scrapedProduct("p-good-cheap", 10.00, score(8.0)),
				scrapedProduct("p-best", 30.00, score(9.5)),
			}})
		store.On("InsertBatch", ctx, mock.Anything).Return(nil)

		result, err := newTestService(store, scraper).Search(ctx, query)
		require.NoError(t, err)

		require.Len(t, result.Products, 4)
		assert.Equal(t, "p-best", result.Products[0].ID)
		assert.Equal(t, "p-good-cheap", result.Products[1].ID)
		assert.Equal(t, "p-good-expensive", result.Products[2].ID)
		assert.Equal(t, "p-unscored", result.Products[3].ID)
	})

	t.Run("caps merged results at twenty", func(t *testing.T) {
		query := models.SearchQuery{Query: "tank top"}

		var scraped []models.Product
		for i := 0; i < 25; i++ {
			scraped = append(scraped,
				scrapedProduct(fmt.Sprintf("amazon-17000000000%02d-x", i), float64(i), score(5.0)))
		}

		store := new(MockProductStore)
		scraper := new(MockScraper)

		store.On("Search", ctx, query).Return([]models.Product{}, nil)
		scraper.On("SearchProducts", ctx, "tank top", "amazon").
			Return(models.ScrapingResult{Success: true, Products: scraped})
		store.On("InsertBatch", ctx, mock.Anything).Return(nil)

		result, err := newTestService(store, scraper).Search(ctx, query)
		require.NoError(t, err)

		assert.Len(t, result.Products, 20)
	})

	t.Run("cache lookup failure falls back to scraping", func(t *testing.T) {
		query := models.SearchQuery{Query: "tank top"}

		store := new(MockProductStore)
		scraper := new(MockScraper)

		store.On("Search", ctx, query).Return(nil, fmt.Errorf("connection refused"))
		scraper.On("SearchProducts", ctx, "tank top", "amazon").
			Return(models.ScrapingResult{Success: true, Products: []models.Product{
				scrapedProduct("amazon-1700000000007-g", 12.00, score(6.5)),
			}})
		store.On("InsertBatch", ctx, mock.Anything).Return(nil)

		result, err := newTestService(store, scraper).Search(ctx, query)
		require.NoError(t, err)

		assert.Equal(t, SourceMixed, result.Source)
		assert.Len(t, result.Products, 1)
	})
}

func TestService_Search_PriceTracking(t *testing.T) {
	ctx := context.Background()
	query := models.SearchQuery{Query: "tank top"}

	t.Run("tracks each scraped product and publishes recorded changes", func(t *testing.T) {
		store := new(MockProductStore)
		scraper := new(MockScraper)
		tracker := new(MockPriceTracker)
		publisher := new(MockEventPublisher)

		recorded := scrapedProduct("amazon-1700000000008-h", 12.00, score(6.5))
		skipped := scrapedProduct("amazon-1700000000009-i", 13.00, score(6.0))

		store.On("Search", ctx, query).Return([]models.Product{}, nil)
		scraper.On("SearchProducts", ctx, "tank top", "amazon").
			Return(models.ScrapingResult{Success: true, Products: []models.Product{recorded, skipped}})
		store.On("InsertBatch", ctx, mock.Anything).Return(nil)

		recordedPoint := &models.PricePoint{ProductID: recorded.ID, Price: recorded.Price}
		tracker.On("Track", ctx, mock.MatchedBy(func(p models.PricePoint) bool {
			return p.ProductID == recorded.ID
		})).Return(recordedPoint, nil)
		// Insignificant movement: tracked but nothing recorded.
		tracker.On("Track", ctx, mock.MatchedBy(func(p models.PricePoint) bool {
			return p.ProductID == skipped.ID
		})).Return(nil, nil)

		publisher.On("PublishPriceChanged", ctx, *recordedPoint).Return(nil)

		svc := NewService(store, scraper, tracker, publisher, nil, slog.Default())
		_, err := svc.Search(ctx, query)
		require.NoError(t, err)

		tracker.AssertExpectations(t)
		publisher.AssertExpectations(t)
		publisher.AssertNumberOfCalls(t, "PublishPriceChanged", 1)
	})

	t.Run("tracking errors do not fail the search", func(t *testing.T) {
		store := new(MockProductStore)
		scraper := new(MockScraper)
		tracker := new(MockPriceTracker)

		store.On("Search", ctx, query).Return([]models.Product{}, nil)
		scraper.On("SearchProducts", ctx, "tank top", "amazon").
			Return(models.ScrapingResult{Success: true, Products: []models.Product{
				scrapedProduct("amazon-1700000000010-j", 12.00, score(6.5)),
			}})
		store.On("InsertBatch", ctx, mock.Anything).Return(nil)
		tracker.On("Track", ctx, mock.Anything).Return(nil, fmt.Errorf("insert failed"))

		svc := NewService(store, scraper, tracker, nil, nil, slog.Default())
		result, err := svc.Search(ctx, query)
		require.NoError(t, err)
		assert.Len(t, result.Products, 1)
	})
}

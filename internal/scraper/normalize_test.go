package scraper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utkarshprasad2/FrugalTops/internal/retailer"
)

// fakeListing maps selectors to canned text/attribute values.
type fakeListing struct {
	text  map[string]string
	attrs map[string]string
}

func (f *fakeListing) Text(selector string) string {
	return strings.TrimSpace(f.text[selector])
}

func (f *fakeListing) Attr(selector, attr string) string {
	return f.attrs[selector+"@"+attr]
}

func testConfig() retailer.Config {
	return retailer.Config{
		Name:       "amazon",
		BaseURL:    "https://www.amazon.com",
		SearchPath: "/s?k=",
		Selectors: retailer.Selectors{
			Products:    ".product",
			Title:       ".title",
			Price:       ".price",
			Rating:      ".rating",
			ReviewCount: ".reviews",
			Image:       ".image",
			Link:        ".link",
		},
	}
}

func goodListing() *fakeListing {
	return &fakeListing{
		text: map[string]string{
			".title":   "Hanes Men's Cotton Tank Top",
			".price":   "$12.99",
			".rating":  "4.5 out of 5 stars",
			".reviews": "2,341",
		},
		attrs: map[string]string{
			".image@src": "https://img.example.com/tank.jpg",
			".link@href": "https://www.amazon.com/dp/B000TANK",
		},
	}
}

func TestNormalizeHappyPath(t *testing.T) {
	p := Normalize(goodListing(), testConfig(), "amazon")
	require.NotNil(t, p)

	assert.Equal(t, "Hanes Men's Cotton Tank Top", p.Title)
	assert.Equal(t, "Hanes", p.Brand)
	assert.Equal(t, 12.99, p.Price)
	assert.Equal(t, "https://img.example.com/tank.jpg", p.ImageURL)
	assert.Equal(t, "https://www.amazon.com/dp/B000TANK", p.ProductURL)
	assert.Equal(t, "amazon", p.Retailer)

	require.NotNil(t, p.Rating)
	assert.Equal(t, 4.5, *p.Rating)
	require.NotNil(t, p.ReviewCount)
	assert.Equal(t, 2341, *p.ReviewCount)
	require.NotNil(t, p.QualityScore)
	assert.GreaterOrEqual(t, *p.QualityScore, 0.0)
	assert.LessOrEqual(t, *p.QualityScore, 10.0)

	assert.True(t, strings.HasPrefix(p.ID, "amazon-"))
	assert.False(t, p.DateScraped.IsZero())
}

func TestNormalizeRejectsMissingTitle(t *testing.T) {
	for _, title := range []string{"", "   "} {
		l := goodListing()
		l.text[".title"] = title
		assert.Nil(t, Normalize(l, testConfig(), "amazon"), "title %q", title)
	}
}

func TestNormalizeRejectsUnparseablePrice(t *testing.T) {
	l := goodListing()
	l.text[".price"] = "Currently unavailable"
	assert.Nil(t, Normalize(l, testConfig(), "amazon"))
}

func TestNormalizeAbsentRatingStillScored(t *testing.T) {
	l := goodListing()
	l.text[".rating"] = ""
	l.text[".reviews"] = ""

	p := Normalize(l, testConfig(), "amazon")
	require.NotNil(t, p)

	assert.Nil(t, p.Rating, "missing rating stays absent")
	require.NotNil(t, p.ReviewCount)
	assert.Equal(t, 0, *p.ReviewCount, "missing reviews default to zero")
	require.NotNil(t, p.QualityScore, "score is computed with zero-defaults")
	// 0 rating + 0 reviews + 1 generic brand.
	assert.InDelta(t, 1.0, *p.QualityScore, 1e-9)
}

func TestNormalizeBrandFallback(t *testing.T) {
	l := goodListing()
	l.text[".title"] = "3-Pack Value Tank Tops"

	p := Normalize(l, testConfig(), "amazon")
	require.NotNil(t, p)
	assert.Equal(t, "Unknown", p.Brand)
}

func TestNormalizeUniqueIDs(t *testing.T) {
	a := Normalize(goodListing(), testConfig(), "amazon")
	b := Normalize(goodListing(), testConfig(), "amazon")
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.NotEqual(t, a.ID, b.ID)
}

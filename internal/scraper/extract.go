package scraper

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Listing is a request-scoped handle to one product fragment on a
// search-results page. Implementations absorb every lookup failure:
// a missing selector, an empty match, or a thrown evaluation all yield
// the empty string. Handles are owned by the session that produced
// them and are invalid once its page is closed.
type Listing interface {
	// Text returns the trimmed text content under selector, or "".
	Text(selector string) string
	// Attr returns the named attribute of the first match, or "".
	Attr(selector, attr string) string
}

var (
	nonPriceChars   = regexp.MustCompile(`[^0-9.]`)
	firstNumber     = regexp.MustCompile(`\d+(\.\d+)?`)
	nonDigits       = regexp.MustCompile(`[^0-9]`)
	leadingAlphaRun = regexp.MustCompile(`^([A-Za-z]+)`)
)

// parsePrice strips everything but digits and dots, then parses a
// float. Unparseable text yields NaN so callers can distinguish
// "missing price" from a genuine zero.
func parsePrice(text string) float64 {
	cleaned := nonPriceChars.ReplaceAllString(text, "")
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return math.NaN()
	}
	return price
}

// parseRating extracts the first numeric token from the raw text
// ("4.5 out of 5 stars" -> 4.5). A missing rating is absent, not zero.
func parseRating(text string) *float64 {
	match := firstNumber.FindString(text)
	if match == "" {
		return nil
	}
	rating, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &rating
}

// parseReviewCount strips everything but digits and parses an integer.
// Unlike ratings, missing review counts default to 0: a listing with
// no review text is treated as unreviewed, not unknown.
func parseReviewCount(text string) int {
	cleaned := nonDigits.ReplaceAllString(text, "")
	if cleaned == "" {
		return 0
	}
	count, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return count
}

// brandFromTitle derives the brand from the title's leading alphabetic
// run, falling back to "Unknown".
func brandFromTitle(title string) string {
	match := leadingAlphaRun.FindString(strings.TrimSpace(title))
	if match == "" {
		return "Unknown"
	}
	return match
}

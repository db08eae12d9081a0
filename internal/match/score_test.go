package match

import (
	"math"
	"testing"

	"github.com/utsavhq/vendormatch/internal/directory"
)

func floatPtr(f float64) *float64 {
	return &f
}

// TestScore tests the additive scoring model across full vendor/request
// combinations.
func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		vendor   directory.Vendor
		req      Request
		expected float64
	}{
		{
			// 15 (available) + 15 (preferred) + 27 (4.5 * 6) + 12 (city) + 18 (budget fit) + 6 (royal) = 93
			name: "preferred decor vendor fully matched at a wedding",
			vendor: directory.Vendor{
				ID:        "v-1",
				Name:      "Shree Decorators",
				Category:  directory.CategoryDecor,
				City:      "Surat",
				PriceMin:  floatPtr(50000),
				PriceMax:  floatPtr(150000),
				Rating:    4.5,
				Status:    directory.StatusPreferred,
				Available: true,
				Tags:      []string{"royal"},
			},
			req: Request{
				EventType:  EventWedding,
				City:       "Surat",
				Budget:     100000,
				Categories: []directory.Category{directory.CategoryDecor},
			},
			expected: 93,
		},
		{
			name: "category outside the request returns the exclusion sentinel",
			vendor: directory.Vendor{
				ID:        "v-2",
				Category:  directory.CategoryCatering,
				City:      "Surat",
				Rating:    5.0,
				Status:    directory.StatusPreferred,
				Available: true,
			},
			req: Request{
				EventType:  EventWedding,
				City:       "Surat",
				Budget:     100000,
				Categories: []directory.Category{directory.CategoryDecor},
			},
			expected: ExclusionSentinel,
		},
		{
			// 15 + 8 + 24 (4.0 * 6) + 3 (other city) - 10 (budget below price_min) = 40
			name: "active vendor in another city priced beyond the budget",
			vendor: directory.Vendor{
				ID:        "v-3",
				Category:  directory.CategoryDecor,
				City:      "Mumbai",
				PriceMin:  floatPtr(200000),
				PriceMax:  floatPtr(500000),
				Rating:    4.0,
				Status:    directory.StatusActive,
				Available: true,
			},
			req: Request{
				EventType:  EventWedding,
				City:       "Surat",
				Budget:     100000,
				Categories: []directory.Category{directory.CategoryDecor},
			},
			expected: 40,
		},
		{
			// -20 (unavailable) - 10 (on hold) + 18 (3.0 * 6) + 12 (city) - 4 (budget above price_max) = -4
			name: "unavailable on-hold vendor above its price ceiling",
			vendor: directory.Vendor{
				ID:        "v-4",
				Category:  directory.CategoryDecor,
				City:      "Surat",
				PriceMin:  floatPtr(20000),
				PriceMax:  floatPtr(80000),
				Rating:    3.0,
				Status:    directory.StatusOnHold,
				Available: false,
			},
			req: Request{
				EventType:  EventWedding,
				City:       "Surat",
				Budget:     100000,
				Categories: []directory.Category{directory.CategoryDecor},
			},
			expected: -4,
		},
		{
			// 15 - 100 (blacklisted) + 30 (5.0 * 6) + 12 + 18 + 6 = -19
			name: "blacklisted vendor still sums its terms",
			vendor: directory.Vendor{
				ID:        "v-5",
				Category:  directory.CategoryDecor,
				City:      "Surat",
				PriceMin:  floatPtr(50000),
				PriceMax:  floatPtr(150000),
				Rating:    5.0,
				Status:    directory.StatusBlacklisted,
				Available: true,
				Tags:      []string{"royal"},
			},
			req: Request{
				EventType:  EventWedding,
				City:       "Surat",
				Budget:     100000,
				Categories: []directory.Category{directory.CategoryDecor},
			},
			expected: -19,
		},
		{
			// 15 + 8 + 21 (3.5 * 6) + 12 + 18 + 8 (corporate) + 6 (professional) = 88
			name: "corporate tags pay off at a corporate event",
			vendor: directory.Vendor{
				ID:        "v-6",
				Category:  directory.CategoryCatering,
				City:      "Surat",
				PriceMin:  floatPtr(50000),
				PriceMax:  floatPtr(150000),
				Rating:    3.5,
				Status:    directory.StatusActive,
				Available: true,
				Tags:      []string{"corporate", "professional"},
			},
			req: Request{
				EventType:  EventCorporate,
				City:       "Surat",
				Budget:     100000,
				Categories: []directory.Category{directory.CategoryCatering},
			},
			expected: 88,
		},
		{
			// 15 + 8 + 24 (4.0 * 6) + 12 + 18 + 0 (premium ignored at birthdays) = 77
			name: "premium tag ignored outside weddings and receptions",
			vendor: directory.Vendor{
				ID:        "v-7",
				Category:  directory.CategoryDecor,
				City:      "Surat",
				PriceMin:  floatPtr(50000),
				PriceMax:  floatPtr(150000),
				Rating:    4.0,
				Status:    directory.StatusActive,
				Available: true,
				Tags:      []string{"premium"},
			},
			req: Request{
				EventType:  EventBirthday,
				City:       "Surat",
				Budget:     100000,
				Categories: []directory.Category{directory.CategoryDecor},
			},
			expected: 77,
		},
		{
			// 15 + 8 + 12 (2.0 * 6) + 3 (other city) + 18 (open range fits) + 3 (budget) + 2 (fast) = 61
			name: "budget and fast tags apply at any event type",
			vendor: directory.Vendor{
				ID:        "v-8",
				Category:  directory.CategoryDecor,
				City:      "Baroda",
				Rating:    2.0,
				Status:    directory.StatusActive,
				Available: true,
				Tags:      []string{"budget", "fast"},
			},
			req: Request{
				EventType:  EventSangeet,
				City:       "Surat",
				Budget:     40000,
				Categories: []directory.Category{directory.CategoryDecor},
			},
			expected: 61,
		},
		{
			// 15 + 8 + 0 + 12 + 18 = 53; missing price bounds mean any budget fits
			name: "zero budget with open price range still fits",
			vendor: directory.Vendor{
				ID:        "v-9",
				Category:  directory.CategoryVenue,
				City:      "Surat",
				Status:    directory.StatusActive,
				Available: true,
			},
			req: Request{
				EventType:  EventWedding,
				City:       "Surat",
				Budget:     0,
				Categories: []directory.Category{directory.CategoryVenue},
			},
			expected: 53,
		},
		{
			// 15 + 15 + 0 + 3 - 10 (below price_min) + 6 + 6 (premium and royal stack) = 35
			name: "premium and royal both count at a reception",
			vendor: directory.Vendor{
				ID:        "v-10",
				Category:  directory.CategoryDecor,
				City:      "Delhi",
				PriceMin:  floatPtr(200000),
				Status:    directory.StatusPreferred,
				Available: true,
				Tags:      []string{"premium", "royal"},
			},
			req: Request{
				EventType:  EventReception,
				City:       "Surat",
				Budget:     100000,
				Categories: []directory.Category{directory.CategoryDecor},
			},
			expected: 35,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Score(tt.vendor, tt.req)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("expected score %f, got %f", tt.expected, result)
			}
		})
	}
}

// TestScoreCityComparison tests that locality matching trims whitespace and
// ignores case.
func TestScoreCityComparison(t *testing.T) {
	// Active + available + open price range with no tags scores 41 before the
	// city term: 53 on a match, 44 otherwise.
	makeVendor := func(city string) directory.Vendor {
		return directory.Vendor{
			ID:        "v-city",
			Category:  directory.CategoryDecor,
			City:      city,
			Status:    directory.StatusActive,
			Available: true,
		}
	}
	makeReq := func(city string) Request {
		return Request{
			EventType:  EventWedding,
			City:       city,
			Categories: []directory.Category{directory.CategoryDecor},
		}
	}

	tests := []struct {
		name        string
		vendorCity  string
		requestCity string
		expected    float64
	}{
		{"exact match", "Surat", "Surat", 53},
		{"case-insensitive match", "surat", "SURAT", 53},
		{"whitespace trimmed before comparison", "  Surat  ", "Surat", 53},
		{"different cities", "Surat", "Baroda", 44},
		{"empty city on both sides counts as a match", "", "", 53},
		{"empty request city against a named city", "Surat", "", 44},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Score(makeVendor(tt.vendorCity), makeReq(tt.requestCity))
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("expected score %f, got %f", tt.expected, result)
			}
		})
	}
}

// TestScoreRatingContribution tests that each rating point is worth six score
// points and that higher-rated vendors always outscore lower-rated ones, all
// else equal.
func TestScoreRatingContribution(t *testing.T) {
	makeVendor := func(rating float64) directory.Vendor {
		return directory.Vendor{
			ID:        "v-rating",
			Category:  directory.CategoryDecor,
			City:      "Surat",
			Rating:    rating,
			Status:    directory.StatusActive,
			Available: true,
		}
	}
	req := Request{
		EventType:  EventWedding,
		City:       "Surat",
		Categories: []directory.Category{directory.CategoryDecor},
	}

	// Base without the rating term: 15 + 8 + 12 + 18 = 53.
	tests := []struct {
		name     string
		rating   float64
		expected float64
	}{
		{"unrated", 0, 53},
		{"one star", 1, 59},
		{"half steps count", 2.5, 68},
		{"four stars", 4, 77},
		{"top rating", 5, 83},
	}

	prev := math.Inf(-1)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Score(makeVendor(tt.rating), req)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("expected score %f, got %f", tt.expected, result)
			}
			if result <= prev {
				t.Errorf("expected score to grow with rating, got %f after %f", result, prev)
			}
			prev = result
		})
	}
}

// TestScoreBudgetTerm tests budget placement against the vendor price range,
// including missing bounds.
func TestScoreBudgetTerm(t *testing.T) {
	// Base without the budget term: 15 + 8 + 0 + 12 = 35.
	makeVendor := func(min, max *float64) directory.Vendor {
		return directory.Vendor{
			ID:        "v-budget",
			Category:  directory.CategoryDecor,
			City:      "Surat",
			Status:    directory.StatusActive,
			Available: true,
			PriceMin:  min,
			PriceMax:  max,
		}
	}
	makeReq := func(budget float64) Request {
		return Request{
			EventType:  EventWedding,
			City:       "Surat",
			Budget:     budget,
			Categories: []directory.Category{directory.CategoryDecor},
		}
	}

	tests := []struct {
		name     string
		priceMin *float64
		priceMax *float64
		budget   float64
		expected float64
	}{
		{"budget inside the range", floatPtr(50000), floatPtr(150000), 100000, 53},
		{"budget at the lower bound", floatPtr(50000), floatPtr(150000), 50000, 53},
		{"budget at the upper bound", floatPtr(50000), floatPtr(150000), 150000, 53},
		{"budget below the minimum", floatPtr(50000), floatPtr(150000), 49999, 25},
		{"budget above the maximum", floatPtr(50000), floatPtr(150000), 150001, 31},
		{"missing maximum accepts any large budget", floatPtr(50000), nil, 10000000, 53},
		{"missing minimum accepts a zero budget", nil, floatPtr(150000), 0, 53},
		{"missing minimum still caps at the maximum", nil, floatPtr(150000), 200000, 31},
		{"no bounds at all always fit", nil, nil, 123456, 53},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Score(makeVendor(tt.priceMin, tt.priceMax), makeReq(tt.budget))
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("expected score %f, got %f", tt.expected, result)
			}
		})
	}

	// A fitting budget beats an over-budget vendor by 22 and an under-budget
	// vendor by 28.
	fit := Score(makeVendor(floatPtr(50000), floatPtr(150000)), makeReq(100000))
	above := Score(makeVendor(floatPtr(50000), floatPtr(150000)), makeReq(150001))
	below := Score(makeVendor(floatPtr(50000), floatPtr(150000)), makeReq(49999))
	if math.Abs((fit-above)-22) > 0.001 {
		t.Errorf("expected fit to beat above-max by 22, got %f", fit-above)
	}
	if math.Abs((fit-below)-28) > 0.001 {
		t.Errorf("expected fit to beat below-min by 28, got %f", fit-below)
	}
}

// TestScoreTagAffinity tests event-type tag bonuses, including case
// insensitivity and stacking.
func TestScoreTagAffinity(t *testing.T) {
	// Base without the tag term: 15 + 8 + 0 + 12 + 18 = 53.
	makeVendor := func(tags []string) directory.Vendor {
		return directory.Vendor{
			ID:        "v-tags",
			Category:  directory.CategoryDecor,
			City:      "Surat",
			Status:    directory.StatusActive,
			Available: true,
			Tags:      tags,
		}
	}
	makeReq := func(eventType EventType) Request {
		return Request{
			EventType:  eventType,
			City:       "Surat",
			Categories: []directory.Category{directory.CategoryDecor},
		}
	}

	tests := []struct {
		name      string
		tags      []string
		eventType EventType
		expected  float64
	}{
		{"royal at a wedding", []string{"royal"}, EventWedding, 59},
		{"premium at a wedding", []string{"premium"}, EventWedding, 59},
		{"premium and royal stack at a reception", []string{"premium", "royal"}, EventReception, 65},
		{"corporate at a corporate event", []string{"corporate"}, EventCorporate, 61},
		{"professional at a corporate event", []string{"professional"}, EventCorporate, 59},
		{"corporate and professional stack", []string{"corporate", "professional"}, EventCorporate, 67},
		{"corporate ignored at a wedding", []string{"corporate"}, EventWedding, 53},
		{"royal ignored at a corporate event", []string{"royal"}, EventCorporate, 53},
		{"budget applies at an engagement", []string{"budget"}, EventEngagement, 56},
		{"fast applies at a birthday", []string{"fast"}, EventBirthday, 55},
		{"budget and fast stack at a corporate event", []string{"budget", "fast"}, EventCorporate, 58},
		{"tag matching ignores case", []string{"ROYAL"}, EventWedding, 59},
		{"duplicate tags count once", []string{"royal", "Royal"}, EventWedding, 59},
		{"no tags", nil, EventWedding, 53},
		// 6 + 6 + 3 + 2 = 17 at a wedding; corporate tags contribute nothing
		{"full tag set at a wedding", []string{"premium", "royal", "corporate", "professional", "budget", "fast"}, EventWedding, 70},
		// 8 + 6 + 3 + 2 = 19 at a corporate event
		{"full tag set at a corporate event", []string{"premium", "royal", "corporate", "professional", "budget", "fast"}, EventCorporate, 72},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Score(makeVendor(tt.tags), makeReq(tt.eventType))
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("expected score %f, got %f", tt.expected, result)
			}
		})
	}
}

// TestScoreWithNilWeights tests that ScoreWith falls back to defaults when no
// weights are supplied.
func TestScoreWithNilWeights(t *testing.T) {
	vendor := directory.Vendor{
		ID:        "v-nil",
		Category:  directory.CategoryDecor,
		City:      "Surat",
		PriceMin:  floatPtr(50000),
		PriceMax:  floatPtr(150000),
		Rating:    4.5,
		Status:    directory.StatusPreferred,
		Available: true,
		Tags:      []string{"royal"},
	}
	req := Request{
		EventType:  EventWedding,
		City:       "Surat",
		Budget:     100000,
		Categories: []directory.Category{directory.CategoryDecor},
	}

	withNil := ScoreWith(vendor, req, nil)
	withDefaults := ScoreWith(vendor, req, DefaultWeights())
	if math.Abs(withNil-withDefaults) > 0.001 {
		t.Errorf("expected nil weights to equal defaults, got %f vs %f", withNil, withDefaults)
	}
	if math.Abs(Score(vendor, req)-withNil) > 0.001 {
		t.Errorf("expected Score to match ScoreWith(nil), got %f vs %f", Score(vendor, req), withNil)
	}
}

// TestScoreWithCustomWeights tests that calibrated weights feed through the
// arithmetic.
func TestScoreWithCustomWeights(t *testing.T) {
	vendor := directory.Vendor{
		ID:        "v-custom",
		Category:  directory.CategoryDecor,
		City:      "Surat",
		PriceMin:  floatPtr(50000),
		PriceMax:  floatPtr(150000),
		Rating:    4.5,
		Status:    directory.StatusPreferred,
		Available: true,
		Tags:      []string{"royal"},
	}
	req := Request{
		EventType:  EventWedding,
		City:       "Surat",
		Budget:     100000,
		Categories: []directory.Category{directory.CategoryDecor},
	}

	custom := DefaultWeights()
	custom.RatingFactor = 10

	// 93 with the default factor; the 4.5 rating now contributes 45 instead of 27.
	result := ScoreWith(vendor, req, custom)
	if math.Abs(result-111) > 0.001 {
		t.Errorf("expected score 111 with rating factor 10, got %f", result)
	}
}

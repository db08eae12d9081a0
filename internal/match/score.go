package match

import (
	"math"
	"strings"

	"github.com/utsavhq/vendormatch/internal/directory"
)

// ExclusionSentinel marks a vendor as categorically ineligible: it is the
// score of any vendor whose category is outside the request. Sentinel-scored
// vendors never reach ranking.
const ExclusionSentinel float64 = -999

// Score computes the compatibility score for one vendor against one request
// using the default weights. Deterministic, no side effects, never errors.
func Score(v directory.Vendor, req Request) float64 {
	return ScoreWith(v, req, nil)
}

// ScoreWith computes the compatibility score under the given weights. A nil
// weights pointer means defaults. Evaluation order: category gate, then
// availability, status, rating, city fit, budget fit, and tag affinity, all
// additive. Out-of-range vendor data is scored as-is; the directory validates
// records, the engine does not.
func ScoreWith(v directory.Vendor, req Request, w *Weights) float64 {
	if w == nil {
		w = DefaultWeights()
	}

	// Category gate: everything else is skipped for vendors the request
	// did not ask for.
	if !req.Needs(v.Category) {
		return ExclusionSentinel
	}

	var score float64

	if v.Available {
		score += w.Available
	} else {
		score += w.Unavailable
	}

	switch v.Status {
	case directory.StatusPreferred:
		score += w.Status.Preferred
	case directory.StatusActive:
		score += w.Status.Active
	case directory.StatusOnHold:
		score += w.Status.OnHold
	case directory.StatusBlacklisted:
		score += w.Status.Blacklisted
	}

	score += v.Rating * w.RatingFactor

	if cityEqual(v.City, req.City) {
		score += w.CityMatch
	} else {
		score += w.CityOther
	}

	score += budgetTerm(v, req.Budget, w)
	score += tagAffinity(v, req.EventType, w)

	return score
}

// cityEqual compares localities case-insensitively after trimming
// whitespace. Locality is a soft preference, not a gate.
func cityEqual(vendorCity, requestCity string) bool {
	return strings.EqualFold(strings.TrimSpace(vendorCity), strings.TrimSpace(requestCity))
}

// budgetTerm scores how the requested budget sits against the vendor's price
// range. A missing price_min means 0 and a missing price_max means no upper
// bound.
func budgetTerm(v directory.Vendor, budget float64, w *Weights) float64 {
	min := 0.0
	if v.PriceMin != nil {
		min = *v.PriceMin
	}
	max := math.Inf(1)
	if v.PriceMax != nil {
		max = *v.PriceMax
	}

	switch {
	case budget >= min && budget <= max:
		return w.Budget.Fit
	case budget < min:
		return w.Budget.BelowMin
	default:
		return w.Budget.AboveMax
	}
}

// tagAffinity scores thematic tag bonuses for the event type. Tags are
// compared case-insensitively; the budget and fast bonuses apply to every
// event type.
func tagAffinity(v directory.Vendor, eventType EventType, w *Weights) float64 {
	var score float64

	switch eventType {
	case EventWedding, EventReception:
		if v.HasTag("premium") {
			score += w.Tags.Premium
		}
		if v.HasTag("royal") {
			score += w.Tags.Royal
		}
	case EventCorporate:
		if v.HasTag("corporate") {
			score += w.Tags.Corporate
		}
		if v.HasTag("professional") {
			score += w.Tags.Professional
		}
	}

	if v.HasTag("budget") {
		score += w.Tags.Budget
	}
	if v.HasTag("fast") {
		score += w.Tags.Fast
	}

	return score
}

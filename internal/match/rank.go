package match

import (
	"sort"

	"github.com/utsavhq/vendormatch/internal/directory"
)

// MaxPerCategory caps the number of candidates returned per requested
// category.
const MaxPerCategory = 3

// Candidate pairs a vendor with its computed score.
type Candidate struct {
	Vendor directory.Vendor `json:"vendor"`
	Score  float64          `json:"score"`
}

// Result maps each requested category to its ranked candidates. Every
// requested category is present as a key; categories with no eligible
// vendors map to an empty list. Lists are ordered by descending score with
// ties in snapshot order, and never exceed MaxPerCategory entries.
type Result map[directory.Category][]Candidate

// Eligible reports whether a vendor can be recommended for a request at all:
// its category must be requested and it must not be blacklisted. Eligibility
// is structural and decided before any scoring; a blacklisted vendor is
// excluded no matter how well its other attributes score.
func Eligible(v directory.Vendor, req Request) bool {
	return req.Needs(v.Category) && v.Status != directory.StatusBlacklisted
}

// Rank scores and ranks a directory snapshot against a request using the
// default weights.
func Rank(vendors []directory.Vendor, req Request) Result {
	return RankWith(vendors, req, nil)
}

// RankWith scores and ranks a directory snapshot under the given weights.
// The snapshot is read-only: vendors are copied into the result by value and
// the input slice order is never changed. Identical inputs produce identical
// results.
func RankWith(vendors []directory.Vendor, req Request, w *Weights) Result {
	if w == nil {
		w = DefaultWeights()
	}
	req.Categories = NormalizeCategories(req.Categories)

	candidates := make([]Candidate, 0, len(vendors))
	for _, v := range vendors {
		if !Eligible(v, req) {
			continue
		}
		candidates = append(candidates, Candidate{
			Vendor: v,
			Score:  ScoreWith(v, req, w),
		})
	}

	// Stable sort: equal scores keep snapshot order, which makes results
	// reproducible run to run.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	result := make(Result, len(req.Categories))
	for _, c := range req.Categories {
		result[c] = []Candidate{}
	}
	for _, cand := range candidates {
		list := result[cand.Vendor.Category]
		if len(list) >= MaxPerCategory {
			continue
		}
		result[cand.Vendor.Category] = append(list, cand)
	}

	return result
}

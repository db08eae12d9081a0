// Package match provides the vendor matching engine: a pure, deterministic
// scoring and ranking pipeline that selects the best vendors per requested
// service category for one event.
//
// Basic Usage:
//
//	// Load calibration (typically at startup)
//	weights, err := match.LoadCalibration("configs/match.calibration.json")
//	if err != nil {
//		log.Warn("using default weights", "error", err)
//	}
//
//	// Build a request from host form input
//	req := match.NewRequest(match.EventWedding, "Surat", "100000",
//		[]directory.Category{directory.CategoryDecor, directory.CategoryCatering})
//
//	// Rank a directory snapshot
//	result := match.RankWith(snapshot, req, weights)
//	for _, cand := range result[directory.CategoryDecor] {
//		fmt.Println(cand.Vendor.Name, cand.Score)
//	}
//
// Scoring:
//
// Score combines availability, directory status, rating, locality, budget
// fit, and event-type tag affinity into a single additive value. Vendors
// outside the requested categories score the ExclusionSentinel and are never
// ranked. Scoring performs no validation or clamping; the directory is
// responsible for record invariants.
//
// Ranking:
//
// Rank applies a structural eligibility filter (category membership and
// non-blacklisted status), scores eligible vendors, sorts them stably by
// descending score, and returns up to MaxPerCategory candidates per
// requested category. Ties keep the snapshot order, so identical inputs
// always produce identical results.
//
// Calibration:
//
// The calibration system allows deploy-time tuning of scoring weights via a
// JSON file loaded at startup. Partial files merge over the defaults. The
// sentinel, the eligibility rules, and the per-category cap are fixed and
// not calibratable.
package match

package match

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// StatusWeights defines the score contribution of each directory status.
type StatusWeights struct {
	Preferred   float64 `json:"preferred"`   // default: +15
	Active      float64 `json:"active"`      // default: +8
	OnHold      float64 `json:"on_hold"`     // default: -10
	Blacklisted float64 `json:"blacklisted"` // default: -100
}

// BudgetWeights defines the score contribution of budget fit.
type BudgetWeights struct {
	Fit      float64 `json:"fit"`       // budget within [price_min, price_max] (default: +18)
	BelowMin float64 `json:"below_min"` // budget under price_min (default: -10)
	AboveMax float64 `json:"above_max"` // budget over price_max (default: -4)
}

// TagWeights defines the score contribution of event-type tag affinity.
type TagWeights struct {
	Premium      float64 `json:"premium"`      // Wedding/Reception (default: +6)
	Royal        float64 `json:"royal"`        // Wedding/Reception (default: +6)
	Corporate    float64 `json:"corporate"`    // Corporate (default: +8)
	Professional float64 `json:"professional"` // Corporate (default: +6)
	Budget       float64 `json:"budget"`       // any event type (default: +3)
	Fast         float64 `json:"fast"`         // any event type (default: +2)
}

// Weights holds the full scoring weight configuration. The exclusion
// sentinel, eligibility rules, and per-category cap are not part of the
// calibration surface.
type Weights struct {
	Available    float64       `json:"available"`     // vendor available (default: +15)
	Unavailable  float64       `json:"unavailable"`   // vendor not available (default: -20)
	Status       StatusWeights `json:"status"`        // directory status contributions
	RatingFactor float64       `json:"rating_factor"` // multiplied by rating in [0,5] (default: 6)
	CityMatch    float64       `json:"city_match"`    // locality equality (default: +12)
	CityOther    float64       `json:"city_other"`    // locality mismatch (default: +3)
	Budget       BudgetWeights `json:"budget"`        // budget fit contributions
	Tags         TagWeights    `json:"tags"`          // tag affinity contributions
}

// CalibrationConfig is the on-disk shape of a calibration file.
type CalibrationConfig struct {
	Version string  `json:"version"` // reserved, currently unchecked
	Weights Weights `json:"weights"`
}

// DefaultWeights returns the canonical scoring configuration. These values
// define the engine's documented arithmetic; the worked reference case (a
// Preferred, available, 4.5-rated vendor in the requested city with a fitting
// budget and a royal tag at a wedding) sums to 93 under them.
func DefaultWeights() *Weights {
	return &Weights{
		Available:   15,
		Unavailable: -20,
		Status: StatusWeights{
			Preferred:   15,
			Active:      8,
			OnHold:      -10,
			Blacklisted: -100,
		},
		RatingFactor: 6,
		CityMatch:    12,
		CityOther:    3,
		Budget: BudgetWeights{
			Fit:      18,
			BelowMin: -10,
			AboveMax: -4,
		},
		Tags: TagWeights{
			Premium:      6,
			Royal:        6,
			Corporate:    8,
			Professional: 6,
			Budget:       3,
			Fast:         2,
		},
	}
}

// LoadCalibration reads scoring weights from a JSON calibration file and
// merges them over the defaults, so a file may override only the weights it
// names. On a read or parse failure the defaults are returned alongside the
// error, leaving the engine usable.
func LoadCalibration(filePath string) (*Weights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("calibration file unreadable, using default weights", "path", filePath, "error", err)
		return DefaultWeights(), fmt.Errorf("read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("calibration file malformed, using default weights", "path", filePath, "error", err)
		return DefaultWeights(), fmt.Errorf("parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	if changed := overrideList(defaults, merged); len(changed) > 0 {
		slog.Info("match calibration loaded", "path", filePath, "overrides", changed)
	} else {
		slog.Info("match calibration loaded, all defaults", "path", filePath)
	}
	return merged, nil
}

// MergeCalibration overlays the non-zero fields of override onto base and
// returns the result as a new Weights. Zero means "not set" here, so a weight
// cannot be calibrated to exactly zero.
func MergeCalibration(base *Weights, override *Weights) *Weights {
	if base == nil {
		return DefaultWeights()
	}
	if override == nil {
		out := *base
		return &out
	}

	pick := func(over, def float64) float64 {
		if over != 0 {
			return over
		}
		return def
	}
	return &Weights{
		Available:   pick(override.Available, base.Available),
		Unavailable: pick(override.Unavailable, base.Unavailable),
		Status: StatusWeights{
			Preferred:   pick(override.Status.Preferred, base.Status.Preferred),
			Active:      pick(override.Status.Active, base.Status.Active),
			OnHold:      pick(override.Status.OnHold, base.Status.OnHold),
			Blacklisted: pick(override.Status.Blacklisted, base.Status.Blacklisted),
		},
		RatingFactor: pick(override.RatingFactor, base.RatingFactor),
		CityMatch:    pick(override.CityMatch, base.CityMatch),
		CityOther:    pick(override.CityOther, base.CityOther),
		Budget: BudgetWeights{
			Fit:      pick(override.Budget.Fit, base.Budget.Fit),
			BelowMin: pick(override.Budget.BelowMin, base.Budget.BelowMin),
			AboveMax: pick(override.Budget.AboveMax, base.Budget.AboveMax),
		},
		Tags: TagWeights{
			Premium:      pick(override.Tags.Premium, base.Tags.Premium),
			Royal:        pick(override.Tags.Royal, base.Tags.Royal),
			Corporate:    pick(override.Tags.Corporate, base.Tags.Corporate),
			Professional: pick(override.Tags.Professional, base.Tags.Professional),
			Budget:       pick(override.Tags.Budget, base.Tags.Budget),
			Fast:         pick(override.Tags.Fast, base.Tags.Fast),
		},
	}
}

// overrideList names every weight where loaded differs from defaults, for the
// startup log.
func overrideList(defaults, loaded *Weights) []string {
	type pair struct {
		name     string
		def, got float64
	}
	pairs := []pair{
		{"available", defaults.Available, loaded.Available},
		{"unavailable", defaults.Unavailable, loaded.Unavailable},
		{"status.preferred", defaults.Status.Preferred, loaded.Status.Preferred},
		{"status.active", defaults.Status.Active, loaded.Status.Active},
		{"status.on_hold", defaults.Status.OnHold, loaded.Status.OnHold},
		{"status.blacklisted", defaults.Status.Blacklisted, loaded.Status.Blacklisted},
		{"rating_factor", defaults.RatingFactor, loaded.RatingFactor},
		{"city_match", defaults.CityMatch, loaded.CityMatch},
		{"city_other", defaults.CityOther, loaded.CityOther},
		{"budget.fit", defaults.Budget.Fit, loaded.Budget.Fit},
		{"budget.below_min", defaults.Budget.BelowMin, loaded.Budget.BelowMin},
		{"budget.above_max", defaults.Budget.AboveMax, loaded.Budget.AboveMax},
		{"tags.premium", defaults.Tags.Premium, loaded.Tags.Premium},
		{"tags.royal", defaults.Tags.Royal, loaded.Tags.Royal},
		{"tags.corporate", defaults.Tags.Corporate, loaded.Tags.Corporate},
		{"tags.professional", defaults.Tags.Professional, loaded.Tags.Professional},
		{"tags.budget", defaults.Tags.Budget, loaded.Tags.Budget},
		{"tags.fast", defaults.Tags.Fast, loaded.Tags.Fast},
	}

	var changed []string
	for _, p := range pairs {
		if p.got != p.def {
			changed = append(changed, fmt.Sprintf("%s: %.2f -> %.2f", p.name, p.def, p.got))
		}
	}
	return changed
}

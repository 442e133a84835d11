package model

import "time"

// Window bounds accepted for MatchRules.WindowMinutes.
const (
	MinWindowMinutes = 5
	MaxWindowMinutes = 1440
)

// MatchRules is the per-shop matching and execution policy.
type MatchRules struct {
	Shop              string
	WindowMinutes     int
	ByAddress         bool
	ByEmail           bool
	RequireBoth       bool
	AutoCompleteDraft bool
	AutoMerge         bool
	UpdatedAt         time.Time
}

// DefaultMatchRules returns the policy applied to shops without stored settings.
func DefaultMatchRules(shop string) MatchRules {
	return MatchRules{
		Shop:              shop,
		WindowMinutes:     120,
		ByAddress:         true,
		ByEmail:           false,
		RequireBoth:       false,
		AutoCompleteDraft: true,
		AutoMerge:         false,
	}
}

// Window returns the configured window as a duration.
func (r MatchRules) Window() time.Duration {
	return time.Duration(r.WindowMinutes) * time.Minute
}

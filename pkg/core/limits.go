package core

import "fmt"

// QueryLimits are the row-count tiers applied to every result set.
// Invariant: 0 < WarningThreshold < SoftLimit < HardLimit <= MaxHardLimit.
type QueryLimits struct {
	WarningThreshold int
	SoftLimit        int
	HardLimit        int
}

// MaxHardLimit is the largest accepted HardLimit.
const MaxHardLimit = 100000

// DefaultQueryLimits returns the stock thresholds.
func DefaultQueryLimits() QueryLimits {
	return QueryLimits{WarningThreshold: 1000, SoftLimit: 5000, HardLimit: 50000}
}

// Validate checks the ordering invariant.
func (l QueryLimits) Validate() error {
	if l.WarningThreshold <= 0 || l.WarningThreshold >= l.HardLimit {
		return fmt.Errorf("warning threshold must be between 1 and %d, got: %d", l.HardLimit, l.WarningThreshold)
	}
	if l.SoftLimit <= l.WarningThreshold || l.SoftLimit >= l.HardLimit {
		return fmt.Errorf("soft limit must be between %d and %d, got: %d", l.WarningThreshold, l.HardLimit, l.SoftLimit)
	}
	if l.HardLimit > MaxHardLimit {
		return fmt.Errorf("hard limit must be between %d and %d, got: %d", l.SoftLimit, MaxHardLimit, l.HardLimit)
	}
	return nil
}

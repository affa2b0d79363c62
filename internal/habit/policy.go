package habit

import (
	"errors"
	"fmt"
)

// DefaultEnergyBudget is the daily budget used when a user has none configured.
const DefaultEnergyBudget = 15

// Policy holds every tunable constant of the engine. The thresholds are a
// reconstruction from display bands rather than an observed formula, so they are
// kept here instead of inline.
type Policy struct {
	// DecayScale is how many expected intervals past due it takes health to reach 0.
	DecayScale float64 `json:"decay_scale"`

	// Urgency level bands, compared against task health.
	CriticalHealth     int `json:"critical_health"`     // critical if health < this and importance >= CriticalImportance
	CriticalImportance int `json:"critical_importance"` // minimum importance for critical
	HighHealth         int `json:"high_health"`         // high if health < this
	NormalHealth       int `json:"normal_health"`       // normal if health < this, else low

	// Overall health bands, compared against the mean health.
	HealthyMin int `json:"healthy_min"`
	FairMin    int `json:"fair_min"`
	WeakMin    int `json:"weak_min"`

	// Daily score.
	PointsPerImportance float64 `json:"points_per_importance"`
	UrgencyBonusFactor  float64 `json:"urgency_bonus_factor"`
	GradeExcellentMin   float64 `json:"grade_excellent_min"`
	GradeGoodMin        float64 `json:"grade_good_min"`
	GradeOkayMin        float64 `json:"grade_okay_min"`

	// DeductSpentEnergy makes the selector budget for pending tasks
	// budget - energy_spent instead of the full budget.
	DeductSpentEnergy bool `json:"deduct_spent_energy,omitempty"`
}

// DefaultPolicy returns the default engine policy.
func DefaultPolicy() Policy {
	return Policy{
		DecayScale:          1.0,
		CriticalHealth:      25,
		CriticalImportance:  4,
		HighHealth:          40,
		NormalHealth:        70,
		HealthyMin:          80,
		FairMin:             60,
		WeakMin:             40,
		PointsPerImportance: 2,
		UrgencyBonusFactor:  1.2,
		GradeExcellentMin:   60,
		GradeGoodMin:        30,
		GradeOkayMin:        1,
	}
}

// ErrInvalidPolicy is wrapped by every Validate failure.
var ErrInvalidPolicy = errors.New("habit: invalid policy")

// Validate checks that bands are ordered and that the urgency and overall health
// bands agree: WeakMin must equal HighHealth and FairMin must not exceed
// NormalHealth. With those two equalities a "critical" overall status always has
// at least one high or critical task behind it, and a set of all-low tasks never
// averages below "fair".
func (p Policy) Validate() error {
	if p.DecayScale <= 0 {
		return fmt.Errorf("%w: decay_scale must be > 0, got %v", ErrInvalidPolicy, p.DecayScale)
	}
	if !(0 <= p.CriticalHealth && p.CriticalHealth <= p.HighHealth && p.HighHealth <= p.NormalHealth && p.NormalHealth <= 100) {
		return fmt.Errorf("%w: urgency bands must satisfy 0 <= critical(%d) <= high(%d) <= normal(%d) <= 100",
			ErrInvalidPolicy, p.CriticalHealth, p.HighHealth, p.NormalHealth)
	}
	if p.CriticalImportance < 1 || p.CriticalImportance > MaxImportance {
		return fmt.Errorf("%w: critical_importance must be in [1,%d], got %d", ErrInvalidPolicy, MaxImportance, p.CriticalImportance)
	}
	if !(0 <= p.WeakMin && p.WeakMin <= p.FairMin && p.FairMin <= p.HealthyMin && p.HealthyMin <= 100) {
		return fmt.Errorf("%w: health bands must satisfy 0 <= weak(%d) <= fair(%d) <= healthy(%d) <= 100",
			ErrInvalidPolicy, p.WeakMin, p.FairMin, p.HealthyMin)
	}
	if p.WeakMin != p.HighHealth {
		return fmt.Errorf("%w: weak_min (%d) must equal high_health (%d)", ErrInvalidPolicy, p.WeakMin, p.HighHealth)
	}
	if p.FairMin > p.NormalHealth {
		return fmt.Errorf("%w: fair_min (%d) must not exceed normal_health (%d)", ErrInvalidPolicy, p.FairMin, p.NormalHealth)
	}
	if p.PointsPerImportance < 0 || p.UrgencyBonusFactor < 0 {
		return fmt.Errorf("%w: score factors must be >= 0", ErrInvalidPolicy)
	}
	if !(0 < p.GradeOkayMin && p.GradeOkayMin <= p.GradeGoodMin && p.GradeGoodMin <= p.GradeExcellentMin) {
		return fmt.Errorf("%w: grades must satisfy 0 < okay(%v) <= good(%v) <= excellent(%v)",
			ErrInvalidPolicy, p.GradeOkayMin, p.GradeGoodMin, p.GradeExcellentMin)
	}
	return nil
}

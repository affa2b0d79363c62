package habit

// Urgency returns the urgency score and level of a task at the given health.
//
// The score is importance * (100 - health) / 100, so it lies in [0, importance].
// Levels are checked from most to least urgent: critical, high, normal, low.
// Thresholds are strict, so health exactly at a threshold gets the less urgent level.
func (e *Engine) Urgency(t Task, health int) (float64, UrgencyLevel) {
	health = clamp(health, 0, 100)
	importance := clamp(t.Importance, MinImportance, MaxImportance)

	score := round2(float64(importance) * float64(100-health) / 100)
	return score, e.level(health, importance)
}

func (e *Engine) level(health, importance int) UrgencyLevel {
	p := e.policy
	switch {
	case health < p.CriticalHealth && importance >= p.CriticalImportance:
		return UrgencyCritical
	case health < p.HighHealth:
		return UrgencyHigh
	case health < p.NormalHealth:
		return UrgencyNormal
	default:
		return UrgencyLow
	}
}

package habit

import "math"

// Health returns the task's health on today, in [0,100].
//
// Health stays at 100 while the task is within its expected interval, then
// decays linearly to 0 over DecayScale further intervals. A task that was never
// done has health 0. A last-done date after today counts as done today.
func (e *Engine) Health(t Task, today Date) int {
	if t.LastDoneDate == nil || t.LastDoneDate.IsZero() {
		return 0
	}
	return e.healthAfter(today.DaysSince(*t.LastDoneDate), t.ExpectedInterval)
}

// healthAfter is the decay curve for a task last done daysSince days ago.
func (e *Engine) healthAfter(daysSince, interval int) int {
	if daysSince < 0 {
		daysSince = 0
	}
	if interval < 1 {
		interval = 1
	}
	r := float64(daysSince) / float64(interval)
	overdue := math.Max(0, r-1)
	h := 100 - 100*overdue/e.policy.DecayScale
	return clamp(int(math.Round(h)), 0, 100)
}

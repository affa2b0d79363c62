package habit

import "sort"

// Select splits views into recommended and other tasks under budget.
//
// Tasks already completed today are always recommended and never consume budget.
// Pending tasks are ranked by urgency, then importance, then days since last
// done (never done ranks oldest), then id. They are admitted greedily while the
// running energy total stays within budget; a task that does not fit goes to
// other and the scan continues. Costs below 1 count as 1, so a zero budget
// admits no pending task. When maxTasks > 0 at most maxTasks pending
// tasks are admitted.
//
// Recommended lists admitted pending tasks in rank order followed by completed
// tasks. Other lists skipped tasks in rank order.
func (e *Engine) Select(views []TaskView, budget, maxTasks int) (recommended, other []TaskView) {
	if budget < 0 {
		budget = 0
	}

	pending := make([]TaskView, 0, len(views))
	completed := make([]TaskView, 0)
	for _, v := range views {
		if v.IsCompletedToday {
			completed = append(completed, v)
			continue
		}
		pending = append(pending, v)
	}
	rankPending(pending)

	recommended = make([]TaskView, 0, len(views))
	other = make([]TaskView, 0)
	used := 0
	admitted := 0
	for _, v := range pending {
		if maxTasks > 0 && admitted >= maxTasks {
			other = append(other, v)
			continue
		}
		cost := max(v.EnergyCost, 1)
		if used+cost > budget {
			other = append(other, v)
			continue
		}
		used += cost
		admitted++
		recommended = append(recommended, v)
	}
	recommended = append(recommended, completed...)
	return recommended, other
}

// rankPending sorts pending views most urgent first.
func rankPending(views []TaskView) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if a.Urgency != b.Urgency {
			return a.Urgency > b.Urgency
		}
		if a.Importance != b.Importance {
			return a.Importance > b.Importance
		}
		if da, db := daysOrMax(a.DaysSince), daysOrMax(b.DaysSince); da != db {
			return da > db
		}
		return a.ID < b.ID
	})
}

func daysOrMax(d *int) int {
	if d == nil {
		return int(^uint(0) >> 1)
	}
	return *d
}

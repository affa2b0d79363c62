package habit

import "log/slog"

// Snapshot assembles the derived view of in.Tasks for in.Today.
//
// Snapshot never fails. Inactive tasks are ignored; tasks with an empty or
// repeated id are skipped; out-of-range numbers are clamped. Each anomaly is
// logged at warn level.
func (e *Engine) Snapshot(in SnapshotInput) TodaySnapshot {
	today := in.Today
	budget := in.Budget
	if budget < 0 {
		e.logger.Warn("negative energy budget clamped", slog.Int("budget", budget))
		budget = 0
	}

	tasks := e.normalizeTasks(in.Tasks, today)
	completions := e.normalizeCompletions(in.Completions, tasks, today)

	hist := indexCompletions(completions)
	views := make([]TaskView, 0, len(tasks))
	spent := 0
	for _, t := range tasks {
		v := e.view(t, hist[t.ID], today)
		if v.IsCompletedToday {
			spent += v.EnergyCost
		}
		views = append(views, v)
	}

	selectBudget := budget
	if e.policy.DeductSpentEnergy {
		selectBudget = max(0, budget-spent)
	}
	recommended, other := e.Select(views, selectBudget, max(in.MaxDailyTasks, 0))

	overall := e.OverallHealth(views)
	score := e.DailyScore(tasks, completions, today)

	msg := freshStartMessage
	if len(views) > 0 {
		msg = motivation(overall.Status, mostUrgent(views))
	}

	return TodaySnapshot{
		Date:                today,
		EnergyBudget:        budget,
		EnergySpent:         spent,
		EnergyRemaining:     max(0, budget-spent),
		RecommendedTasks:    recommended,
		OtherTasks:          other,
		OverallHealth:       overall,
		DailyScore:          score,
		MotivationalMessage: msg,
	}
}

func (e *Engine) normalizeTasks(in []Task, today Date) []Task {
	out := make([]Task, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		if !t.IsActive {
			continue
		}
		if t.ID == "" {
			e.logger.Warn("task skipped: empty id", slog.String("name", t.Name))
			continue
		}
		if _, dup := seen[t.ID]; dup {
			e.logger.Warn("task skipped: duplicate id", slog.String("task_id", t.ID))
			continue
		}
		seen[t.ID] = struct{}{}

		if t.EnergyCost < 1 {
			e.logger.Warn("energy cost clamped", slog.String("task_id", t.ID), slog.Int("energy_cost", t.EnergyCost))
			t.EnergyCost = 1
		}
		if t.ExpectedInterval < 1 {
			e.logger.Warn("expected interval clamped", slog.String("task_id", t.ID), slog.Int("expected_interval", t.ExpectedInterval))
			t.ExpectedInterval = 1
		}
		if t.Importance < MinImportance || t.Importance > MaxImportance {
			e.logger.Warn("importance clamped", slog.String("task_id", t.ID), slog.Int("importance", t.Importance))
			t.Importance = clamp(t.Importance, MinImportance, MaxImportance)
		}
		if t.LastDoneDate != nil {
			switch {
			case t.LastDoneDate.IsZero():
				t.LastDoneDate = nil
			case t.LastDoneDate.After(today):
				e.logger.Warn("last done date in the future clamped to today",
					slog.String("task_id", t.ID), slog.String("last_done", t.LastDoneDate.String()))
				d := today
				t.LastDoneDate = &d
			}
		}
		if t.Icon == "" {
			t.Icon = DefaultIcon
		}
		if t.Color == "" {
			t.Color = DefaultColor
		}
		out = append(out, t)
	}
	return out
}

// normalizeCompletions drops duplicates, unknown tasks and future dates, and
// adds a completion for today when a task's last done date is today.
func (e *Engine) normalizeCompletions(in []Completion, tasks []Task, today Date) []Completion {
	known := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		known[t.ID] = struct{}{}
	}

	out := make([]Completion, 0, len(in))
	seen := make(map[Completion]struct{}, len(in))
	add := func(c Completion) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	for _, c := range in {
		if _, ok := known[c.TaskID]; !ok || c.Date.IsZero() {
			continue
		}
		if c.Date.After(today) {
			e.logger.Warn("future completion ignored",
				slog.String("task_id", c.TaskID), slog.String("date", c.Date.String()))
			continue
		}
		add(c)
	}
	for _, t := range tasks {
		if t.LastDoneDate != nil && *t.LastDoneDate == today {
			add(Completion{TaskID: t.ID, Date: today})
		}
	}
	return out
}

// view derives the TaskView of t. days holds t's completion dates, none after today.
func (e *Engine) view(t Task, days []Date, today Date) TaskView {
	last := t.LastDoneDate
	doneToday := false
	for _, d := range days {
		if d == today {
			doneToday = true
		}
		if last == nil || d.After(*last) {
			last = &d
		}
	}
	t.LastDoneDate = last

	health := e.Health(t, today)
	urgency, level := e.Urgency(t, health)

	var daysSince *int
	if last != nil {
		n := today.DaysSince(*last)
		daysSince = &n
	}

	return TaskView{
		ID:               t.ID,
		Name:             t.Name,
		EnergyCost:       t.EnergyCost,
		Importance:       t.Importance,
		ExpectedInterval: t.ExpectedInterval,
		CategoryID:       t.CategoryID,
		Urgency:          urgency,
		UrgencyLevel:     level,
		Health:           health,
		LastDone:         last,
		DaysSince:        daysSince,
		IsCompletedToday: doneToday,
		Icon:             t.Icon,
		Color:            t.Color,
	}
}

// mostUrgent returns the pending view with the highest level, then urgency,
// then lowest id, when that level is at least high.
func mostUrgent(views []TaskView) *TaskView {
	var best *TaskView
	for i := range views {
		v := &views[i]
		if v.IsCompletedToday || v.UrgencyLevel.rank() < UrgencyHigh.rank() {
			continue
		}
		if best == nil ||
			v.UrgencyLevel.rank() > best.UrgencyLevel.rank() ||
			(v.UrgencyLevel == best.UrgencyLevel && v.Urgency > best.Urgency) ||
			(v.UrgencyLevel == best.UrgencyLevel && v.Urgency == best.Urgency && v.ID < best.ID) {
			best = v
		}
	}
	return best
}

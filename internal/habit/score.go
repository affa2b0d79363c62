package habit

// DailyScore scores the tasks completed on day.
//
// Completions are de-duplicated by (task, date). Completions for tasks not in
// tasks are ignored. Each counted task earns importance * PointsPerImportance
// plus a bonus of UrgencyBonusFactor times the urgency it had that morning,
// i.e. at the health implied by its last completion strictly before day.
func (e *Engine) DailyScore(tasks []Task, completions []Completion, day Date) DailyScore {
	p := e.policy
	byID := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		if _, dup := byID[t.ID]; !dup {
			byID[t.ID] = t
		}
	}

	hist := indexCompletions(completions)

	var base, bonus float64
	spent, count := 0, 0
	seen := make(map[string]struct{})
	for _, c := range completions {
		if c.Date != day {
			continue
		}
		if _, ok := seen[c.TaskID]; ok {
			continue
		}
		t, ok := byID[c.TaskID]
		if !ok {
			continue
		}
		seen[c.TaskID] = struct{}{}

		urgency, _ := e.Urgency(t, e.morningHealth(t, hist[t.ID], day))
		base += float64(clamp(t.Importance, MinImportance, MaxImportance)) * p.PointsPerImportance
		bonus += urgency * p.UrgencyBonusFactor
		spent += max(t.EnergyCost, 1)
		count++
	}

	total := round1(base + bonus)
	grade := e.grade(total)
	return DailyScore{
		BaseScore:      round1(base),
		UrgentBonus:    round1(bonus),
		TotalScore:     total,
		Grade:          grade,
		Message:        gradeMessages[grade],
		EnergySpent:    spent,
		TasksCompleted: count,
	}
}

// morningHealth is the health t had at the start of day.
func (e *Engine) morningHealth(t Task, days []Date, day Date) int {
	var prev Date
	for _, d := range days {
		if d.Before(day) && (prev.IsZero() || d.After(prev)) {
			prev = d
		}
	}
	if prev.IsZero() && t.LastDoneDate != nil && t.LastDoneDate.Before(day) {
		prev = *t.LastDoneDate
	}
	if prev.IsZero() {
		return 0
	}
	return e.healthAfter(day.DaysSince(prev), t.ExpectedInterval)
}

func (e *Engine) grade(total float64) Grade {
	p := e.policy
	switch {
	case total >= p.GradeExcellentMin:
		return GradeExcellent
	case total >= p.GradeGoodMin:
		return GradeGood
	case total >= p.GradeOkayMin:
		return GradeOkay
	default:
		return GradeNone
	}
}

// indexCompletions groups completion dates by task id.
func indexCompletions(completions []Completion) map[string][]Date {
	out := make(map[string][]Date)
	for _, c := range completions {
		if c.TaskID == "" || c.Date.IsZero() {
			continue
		}
		out[c.TaskID] = append(out[c.TaskID], c.Date)
	}
	return out
}

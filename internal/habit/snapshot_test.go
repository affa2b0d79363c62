package habit

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var snapToday = MustParseDate("2024-06-15")

func daysAgo(n int) *Date {
	return ptr(snapToday.AddDays(-n))
}

func viewByID(t *testing.T, s TodaySnapshot, id string) TaskView {
	t.Helper()
	for _, v := range append(append([]TaskView{}, s.RecommendedTasks...), s.OtherTasks...) {
		if v.ID == id {
			return v
		}
	}
	t.Fatalf("task %q not in snapshot", id)
	return TaskView{}
}

func TestSnapshot_BudgetScenario(t *testing.T) {
	e := MustNewEngine(DefaultPolicy(), nil)
	a := Task{ID: "A", Name: "Water plants", Importance: 5, ExpectedInterval: 2, EnergyCost: 2, IsActive: true, LastDoneDate: daysAgo(5)}
	b := Task{ID: "B", Name: "Call family", Importance: 1, ExpectedInterval: 10, EnergyCost: 3, IsActive: true, LastDoneDate: daysAgo(1)}

	s := e.Snapshot(SnapshotInput{Tasks: []Task{b, a}, Budget: 2, Today: snapToday})

	require.Equal(t, []string{"A"}, ids(s.RecommendedTasks))
	require.Equal(t, []string{"B"}, ids(s.OtherTasks))

	va := s.RecommendedTasks[0]
	assert.Equal(t, 0, va.Health)
	assert.Equal(t, 5.0, va.Urgency)
	assert.Equal(t, UrgencyCritical, va.UrgencyLevel)
	require.NotNil(t, va.DaysSince)
	assert.Equal(t, 5, *va.DaysSince)

	assert.Equal(t, 2, s.EnergyBudget)
	assert.Equal(t, 0, s.EnergySpent)
	assert.Equal(t, 2, s.EnergyRemaining)
	assert.Equal(t, 50, s.OverallHealth.Score)
	assert.Equal(t, StatusWeak, s.OverallHealth.Status)
	assert.Contains(t, s.MotivationalMessage, "Water plants")
	assert.Contains(t, s.MotivationalMessage, "5 days ago")
}

func TestSnapshot_ZeroBudget(t *testing.T) {
	e := MustNewEngine(DefaultPolicy(), nil)
	tasks := []Task{
		{ID: "done", Importance: 3, ExpectedInterval: 1, EnergyCost: 2, IsActive: true},
		{ID: "p1", Importance: 3, ExpectedInterval: 1, EnergyCost: 1, IsActive: true},
		{ID: "p2", Importance: 2, ExpectedInterval: 3, EnergyCost: 1, IsActive: true, LastDoneDate: daysAgo(2)},
	}
	completions := []Completion{{TaskID: "done", Date: snapToday}}

	s := e.Snapshot(SnapshotInput{Tasks: tasks, Completions: completions, Budget: 0, Today: snapToday})

	require.Equal(t, []string{"done"}, ids(s.RecommendedTasks))
	require.ElementsMatch(t, []string{"p1", "p2"}, ids(s.OtherTasks))
	assert.Equal(t, 2, s.EnergySpent)
	assert.Equal(t, 0, s.EnergyRemaining)
}

func TestSnapshot_Properties(t *testing.T) {
	e := MustNewEngine(DefaultPolicy(), nil)
	tasks := []Task{
		{ID: "today-by-row", Importance: 2, ExpectedInterval: 3, EnergyCost: 4, IsActive: true, LastDoneDate: ptr(snapToday)},
		{ID: "today-by-log", Importance: 4, ExpectedInterval: 2, EnergyCost: 3, IsActive: true, LastDoneDate: daysAgo(6)},
		{ID: "never", Importance: 3, ExpectedInterval: 7, EnergyCost: 5, IsActive: true},
		{ID: "stale", Importance: 5, ExpectedInterval: 1, EnergyCost: 2, IsActive: true, LastDoneDate: daysAgo(3)},
		{ID: "ok", Importance: 1, ExpectedInterval: 14, EnergyCost: 1, IsActive: true, LastDoneDate: daysAgo(4)},
		{ID: "paused", Importance: 5, ExpectedInterval: 1, EnergyCost: 1, IsActive: false},
	}
	completions := []Completion{
		{TaskID: "today-by-log", Date: *daysAgo(6)},
		{TaskID: "today-by-log", Date: snapToday},
		{TaskID: "paused", Date: snapToday},
	}

	for budget := 0; budget <= 12; budget++ {
		s := e.Snapshot(SnapshotInput{Tasks: tasks, Completions: completions, Budget: budget, Today: snapToday})

		all := append(append([]TaskView{}, s.RecommendedTasks...), s.OtherTasks...)
		require.Len(t, all, 5, "inactive task must be ignored")

		spent, pendingCost, sum := 0, 0, 0
		for _, v := range all {
			sum += v.Health
			if v.IsCompletedToday {
				spent += v.EnergyCost
				assert.Equal(t, 100, v.Health, v.ID)
				assert.Equal(t, UrgencyLow, v.UrgencyLevel, v.ID)
			}
			if v.LastDone == nil {
				assert.Equal(t, 0, v.Health, v.ID)
				assert.Nil(t, v.DaysSince, v.ID)
			}
		}
		for _, v := range s.RecommendedTasks {
			if !v.IsCompletedToday {
				pendingCost += v.EnergyCost
			}
		}
		for _, v := range s.OtherTasks {
			assert.False(t, v.IsCompletedToday, "completed task %s in other", v.ID)
		}

		assert.Equal(t, 7, spent)
		assert.Equal(t, spent, s.EnergySpent)
		assert.Equal(t, max(0, budget-spent), s.EnergyRemaining)
		assert.LessOrEqual(t, pendingCost, budget)
		assert.Equal(t, int(float64(sum)/5+0.5), s.OverallHealth.Score)
		assert.Equal(t, 2, s.DailyScore.TasksCompleted)
		assert.Equal(t, 7, s.DailyScore.EnergySpent)
	}
}

func TestSnapshot_DeductSpentEnergy(t *testing.T) {
	p := DefaultPolicy()
	p.DeductSpentEnergy = true
	e := MustNewEngine(p, nil)

	tasks := []Task{
		{ID: "done", Importance: 3, ExpectedInterval: 1, EnergyCost: 3, IsActive: true, LastDoneDate: ptr(snapToday)},
		{ID: "next", Importance: 3, ExpectedInterval: 1, EnergyCost: 2, IsActive: true},
	}

	s := e.Snapshot(SnapshotInput{Tasks: tasks, Budget: 4, Today: snapToday})
	assert.Equal(t, []string{"done"}, ids(s.RecommendedTasks))
	assert.Equal(t, []string{"next"}, ids(s.OtherTasks))

	s = MustNewEngine(DefaultPolicy(), nil).Snapshot(SnapshotInput{Tasks: tasks, Budget: 4, Today: snapToday})
	assert.Equal(t, []string{"next", "done"}, ids(s.RecommendedTasks))
}

func TestSnapshot_MaxDailyTasks(t *testing.T) {
	e := MustNewEngine(DefaultPolicy(), nil)
	var tasks []Task
	for _, id := range []string{"a", "b", "c", "d"} {
		tasks = append(tasks, Task{ID: id, Importance: 3, ExpectedInterval: 1, EnergyCost: 1, IsActive: true})
	}
	s := e.Snapshot(SnapshotInput{Tasks: tasks, Budget: 15, MaxDailyTasks: 2, Today: snapToday})
	assert.Equal(t, []string{"a", "b"}, ids(s.RecommendedTasks))
	assert.Equal(t, []string{"c", "d"}, ids(s.OtherTasks))
}

func TestSnapshot_MalformedInput(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	e := MustNewEngine(DefaultPolicy(), logger)

	tasks := []Task{
		{ID: "", Name: "nameless", Importance: 3, ExpectedInterval: 1, EnergyCost: 1, IsActive: true},
		{ID: "x", Importance: 9, ExpectedInterval: -2, EnergyCost: -1, IsActive: true, LastDoneDate: ptr(snapToday.AddDays(3))},
		{ID: "x", Importance: 1, ExpectedInterval: 1, EnergyCost: 1, IsActive: true},
	}
	completions := []Completion{{TaskID: "x", Date: snapToday.AddDays(1)}}

	s := e.Snapshot(SnapshotInput{Tasks: tasks, Completions: completions, Budget: -5, Today: snapToday})

	require.Len(t, s.RecommendedTasks, 1)
	require.Empty(t, s.OtherTasks)
	v := s.RecommendedTasks[0]
	assert.Equal(t, "x", v.ID)
	assert.Equal(t, MaxImportance, v.Importance)
	assert.Equal(t, 1, v.ExpectedInterval)
	assert.Equal(t, 1, v.EnergyCost)
	assert.True(t, v.IsCompletedToday, "future last done clamps to today")
	assert.Equal(t, DefaultIcon, v.Icon)
	assert.Equal(t, DefaultColor, v.Color)
	assert.Equal(t, 0, s.EnergyBudget)

	logs := buf.String()
	for _, msg := range []string{"empty id", "duplicate id", "importance clamped", "in the future", "future completion ignored", "negative energy budget"} {
		assert.Contains(t, logs, msg)
	}
}

func TestSnapshot_ZeroBudgetIgnoresNonPositiveCosts(t *testing.T) {
	e := MustNewEngine(DefaultPolicy(), nil)
	tasks := []Task{
		{ID: "n", Importance: 3, ExpectedInterval: 1, EnergyCost: 0, IsActive: true},
		{ID: "z", Importance: 5, ExpectedInterval: 1, EnergyCost: -4, IsActive: true},
		{ID: "done", Importance: 2, ExpectedInterval: 1, EnergyCost: 3, IsActive: true, LastDoneDate: ptr(snapToday)},
	}

	s := e.Snapshot(SnapshotInput{Tasks: tasks, Budget: 0, Today: snapToday})

	assert.Equal(t, []string{"done"}, ids(s.RecommendedTasks))
	assert.ElementsMatch(t, []string{"n", "z"}, ids(s.OtherTasks))
	for _, v := range s.OtherTasks {
		assert.Equal(t, 1, v.EnergyCost, v.ID)
	}
}

func TestSnapshot_NoTasks(t *testing.T) {
	e := MustNewEngine(DefaultPolicy(), nil)
	s := e.Snapshot(SnapshotInput{Budget: DefaultEnergyBudget, Today: snapToday})

	assert.NotNil(t, s.RecommendedTasks)
	assert.NotNil(t, s.OtherTasks)
	assert.Equal(t, 100, s.OverallHealth.Score)
	assert.Equal(t, StatusHealthy, s.OverallHealth.Status)
	assert.Equal(t, statusBands[StatusHealthy].icon, s.OverallHealth.Icon)
	assert.Equal(t, freshStartMessage, s.MotivationalMessage)
	assert.Equal(t, GradeNone, s.DailyScore.Grade)
	assert.Equal(t, DefaultEnergyBudget, s.EnergyRemaining)

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), `"recommended_tasks":[]`), string(b))
	assert.True(t, strings.Contains(string(b), `"date":"2024-06-15"`), string(b))
}

func TestSnapshot_CalmMessageWithoutUrgentTasks(t *testing.T) {
	e := MustNewEngine(DefaultPolicy(), nil)
	tasks := []Task{{ID: "a", Name: "Stretch", Importance: 3, ExpectedInterval: 7, EnergyCost: 1, IsActive: true, LastDoneDate: daysAgo(1)}}
	s := e.Snapshot(SnapshotInput{Tasks: tasks, Budget: 5, Today: snapToday})
	assert.Equal(t, motivations[motivationKey{StatusHealthy, false}], s.MotivationalMessage)
}

func TestSnapshot_Deterministic(t *testing.T) {
	e := MustNewEngine(DefaultPolicy(), nil)
	tasks := []Task{
		{ID: "a", Importance: 3, ExpectedInterval: 2, EnergyCost: 2, IsActive: true, LastDoneDate: daysAgo(3)},
		{ID: "b", Importance: 3, ExpectedInterval: 2, EnergyCost: 2, IsActive: true, LastDoneDate: daysAgo(3)},
		{ID: "c", Importance: 4, ExpectedInterval: 5, EnergyCost: 1, IsActive: true},
	}
	reversed := []Task{tasks[2], tasks[1], tasks[0]}

	s1 := e.Snapshot(SnapshotInput{Tasks: tasks, Budget: 3, Today: snapToday})
	s2 := e.Snapshot(SnapshotInput{Tasks: reversed, Budget: 3, Today: snapToday})
	assert.Equal(t, s1, s2)
}

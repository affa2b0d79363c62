package ops

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/lentoflow/lento/internal/habit"
)

func TestToday_MatchesEngine(t *testing.T) {
	f := setup(t)
	dishes := f.task(t, "Dishes", 2, 1, 4)
	laundry := f.task(t, "Laundry", 4, 7, 3)
	plants := f.task(t, "Plants", 1, 3, 2)
	never := f.task(t, "Tax forms", 5, 30, 5)

	f.complete(t, dishes.ID, 3)
	f.complete(t, laundry.ID, 10)
	f.complete(t, plants.ID, 0)

	got, err := Today(f.ctx, f.db, f.engine, f.cfg, TodayInput{Now: f.now})
	require.NoError(t, err)

	last := func(n int) *habit.Date { d := f.today.AddDays(-n); return &d }
	in := habit.SnapshotInput{
		Tasks: []habit.Task{
			{ID: dishes.ID, Name: "Dishes", EnergyCost: 2, ExpectedInterval: 1, Importance: 4, IsActive: true, LastDoneDate: last(3), Icon: habit.DefaultIcon, Color: habit.DefaultColor},
			{ID: laundry.ID, Name: "Laundry", EnergyCost: 4, ExpectedInterval: 7, Importance: 3, IsActive: true, LastDoneDate: last(10), Icon: habit.DefaultIcon, Color: habit.DefaultColor},
			{ID: plants.ID, Name: "Plants", EnergyCost: 1, ExpectedInterval: 3, Importance: 2, IsActive: true, LastDoneDate: last(0), Icon: habit.DefaultIcon, Color: habit.DefaultColor},
			{ID: never.ID, Name: "Tax forms", EnergyCost: 5, ExpectedInterval: 30, Importance: 5, IsActive: true, Icon: habit.DefaultIcon, Color: habit.DefaultColor},
		},
		Completions: []habit.Completion{
			{TaskID: laundry.ID, Date: *last(10)},
			{TaskID: dishes.ID, Date: *last(3)},
			{TaskID: plants.ID, Date: f.today},
		},
		Budget: 15,
		Today:  f.today,
	}
	want := f.engine.Snapshot(in)

	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("Today() mismatch (-engine +ops):\n%s", diff)
	}
	require.Equal(t, 1, got.EnergySpent)
	require.Equal(t, 14, got.EnergyRemaining)
}

func TestToday_HistoricalDateIgnoresLaterCompletions(t *testing.T) {
	f := setup(t)
	task := f.task(t, "Walk", 1, 1, 3)
	f.complete(t, task.ID, 5)
	f.complete(t, task.ID, 0)

	past := f.today.AddDays(-2)
	snap, err := Today(f.ctx, f.db, f.engine, f.cfg, TodayInput{Date: past, Now: f.now})
	require.NoError(t, err)
	require.Equal(t, past, snap.Date)

	views := append(snap.RecommendedTasks, snap.OtherTasks...)
	require.Len(t, views, 1)
	require.Equal(t, 3, *views[0].DaysSince)
	require.False(t, views[0].IsCompletedToday)
}

func TestToday_UsesUserSettings(t *testing.T) {
	f := setup(t)
	for _, name := range []string{"a", "b", "c", "d"} {
		f.task(t, name, 1, 1, 3)
	}
	budget, maxTasks := 3, 2
	_, err := UpdateSettings(f.ctx, f.db, f.cfg, UpdateSettingsInput{DailyEnergyBudget: &budget, MaxDailyTasks: &maxTasks})
	require.NoError(t, err)

	snap, err := Today(f.ctx, f.db, f.engine, f.cfg, TodayInput{Now: f.now})
	require.NoError(t, err)
	require.Equal(t, 3, snap.EnergyBudget)
	require.Len(t, snap.RecommendedTasks, 2)
	require.Len(t, snap.OtherTasks, 2)
}

func TestToday_EmptyGarden(t *testing.T) {
	f := setup(t)
	snap, err := Today(f.ctx, f.db, f.engine, f.cfg, TodayInput{Now: f.now})
	require.NoError(t, err)
	require.Equal(t, 100, snap.OverallHealth.Score)
	require.Equal(t, habit.StatusHealthy, snap.OverallHealth.Status)
	require.NotNil(t, snap.RecommendedTasks)
	require.Empty(t, snap.RecommendedTasks)
	require.Equal(t, habit.GradeNone, snap.DailyScore.Grade)
}

func TestToday_BadTimezone(t *testing.T) {
	f := setup(t)
	_, err := Today(f.ctx, f.db, f.engine, f.cfg, TodayInput{TZ: "Not/AZone", Now: f.now})
	require.Error(t, err)
}

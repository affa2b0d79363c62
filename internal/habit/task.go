// Package habit computes task health, urgency, budget-constrained recommendations,
// overall wellness and daily scores for a user's recurring tasks.
//
// Everything here is a pure function of caller-supplied values. The package does
// no I/O and holds no mutable state, so an *Engine may be shared by any number of
// goroutines.
package habit

// Importance bounds.
const (
	MinImportance = 1
	MaxImportance = 5
)

// Display defaults applied when a task carries no icon or color.
const (
	DefaultIcon  = "star"
	DefaultColor = "#6366f1"
)

// Task is the engine's read-only view of a recurring task.
type Task struct {
	ID               string
	Name             string
	EnergyCost       int
	ExpectedInterval int // days
	Importance       int // 1..5
	CategoryID       *string
	IsActive         bool
	LastDoneDate     *Date // nil when never done
	Icon             string
	Color            string
}

// Completion records that a task was done on a calendar day.
type Completion struct {
	TaskID string
	Date   Date
}

// UrgencyLevel is the discrete urgency band of a task.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyNormal   UrgencyLevel = "normal"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// rank orders levels from least to most urgent.
func (l UrgencyLevel) rank() int {
	switch l {
	case UrgencyNormal:
		return 1
	case UrgencyHigh:
		return 2
	case UrgencyCritical:
		return 3
	default:
		return 0
	}
}

// TaskView is a task as rendered in a TodaySnapshot.
type TaskView struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	EnergyCost       int          `json:"energy_cost"`
	Importance       int          `json:"importance"`
	ExpectedInterval int          `json:"expected_interval"`
	CategoryID       *string      `json:"category_id"`
	Urgency          float64      `json:"urgency"`
	UrgencyLevel     UrgencyLevel `json:"urgency_level"`
	Health           int          `json:"health"`
	LastDone         *Date        `json:"last_done"`
	DaysSince        *int         `json:"days_since"`
	IsCompletedToday bool         `json:"is_completed_today"`
	Icon             string       `json:"icon"`
	Color            string       `json:"color"`
}

// HealthStatus is the band of the overall health score.
type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"
	StatusFair     HealthStatus = "fair"
	StatusWeak     HealthStatus = "weak"
	StatusCritical HealthStatus = "critical"
)

// OverallHealth summarizes all active tasks.
type OverallHealth struct {
	Score   int          `json:"score"`
	Status  HealthStatus `json:"status"`
	Icon    string       `json:"icon"`
	Message string       `json:"message"`
}

// Grade is the band of a daily score.
type Grade string

const (
	GradeExcellent Grade = "excellent"
	GradeGood      Grade = "good"
	GradeOkay      Grade = "okay"
	GradeNone      Grade = "none"
)

// DailyScore scores the tasks actually completed on one day.
type DailyScore struct {
	BaseScore      float64 `json:"base_score"`
	UrgentBonus    float64 `json:"urgent_bonus"`
	TotalScore     float64 `json:"total_score"`
	Grade          Grade   `json:"grade"`
	Message        string  `json:"message"`
	EnergySpent    int     `json:"energy_spent"`
	TasksCompleted int     `json:"tasks_completed"`
}

// TodaySnapshot is the full derived view for one user and one day.
type TodaySnapshot struct {
	Date                Date          `json:"date"`
	EnergyBudget        int           `json:"energy_budget"`
	EnergySpent         int           `json:"energy_spent"`
	EnergyRemaining     int           `json:"energy_remaining"`
	RecommendedTasks    []TaskView    `json:"recommended_tasks"`
	OtherTasks          []TaskView    `json:"other_tasks"`
	OverallHealth       OverallHealth `json:"overall_health"`
	DailyScore          DailyScore    `json:"daily_score"`
	MotivationalMessage string        `json:"motivational_message"`
}

// SnapshotInput carries everything the engine reads for one snapshot.
type SnapshotInput struct {
	Tasks       []Task
	Completions []Completion // at least the lookback window, see LookbackDays
	Budget      int
	// MaxDailyTasks caps how many pending tasks are recommended; 0 means no cap.
	MaxDailyTasks int
	Today         Date
}

// LookbackDays returns how many days of completion history a snapshot needs:
// twice the longest expected interval among active tasks, at least one day.
func LookbackDays(tasks []Task) int {
	longest := 1
	for _, t := range tasks {
		if t.IsActive && t.ExpectedInterval > longest {
			longest = t.ExpectedInterval
		}
	}
	return 2 * longest
}

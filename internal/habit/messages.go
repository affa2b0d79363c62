package habit

import "fmt"

type band struct {
	icon    string
	message string
}

var statusBands = map[HealthStatus]band{
	StatusHealthy:  {icon: "🌳", message: "Your garden is thriving. Keep the rhythm going."},
	StatusFair:     {icon: "🌿", message: "Things are growing steadily. A few habits could use attention."},
	StatusWeak:     {icon: "🌱", message: "Some habits are wilting. Small steps today will help."},
	StatusCritical: {icon: "🥀", message: "Your garden needs care. Start with one task."},
}

const (
	emptyGardenMessage = "Nothing planted yet. Add your first habit to get started."
	freshStartMessage  = "A fresh start. Add a habit and watch it grow."
)

var gradeMessages = map[Grade]string{
	GradeExcellent: "Outstanding day! You took care of what mattered most.",
	GradeGood:      "Good work today. Your habits are in good hands.",
	GradeOkay:      "Every completed task counts. Nice going.",
	GradeNone:      "No tasks completed yet today.",
}

type motivationKey struct {
	status HealthStatus
	urgent bool
}

// Urgent variants are formatted with the task name and a days-since phrase.
var motivations = map[motivationKey]string{
	{StatusHealthy, false}:  "Everything is on track. Enjoy the momentum.",
	{StatusHealthy, true}:   "You're doing great. %q is waiting for you (%s).",
	{StatusFair, false}:     "Steady progress. Pick one task and keep growing.",
	{StatusFair, true}:      "A good day to get back to %q (%s).",
	{StatusWeak, false}:     "A little care goes a long way. Start small today.",
	{StatusWeak, true}:      "%q needs you most right now (%s).",
	{StatusCritical, false}: "Begin again with a single task. Every habit regrows.",
	{StatusCritical, true}:  "Start with %q today (%s). One step is enough.",
}

// motivation picks the message for status, naming urgent when it is non-nil.
func motivation(status HealthStatus, urgent *TaskView) string {
	if urgent == nil {
		return motivations[motivationKey{status, false}]
	}
	return fmt.Sprintf(motivations[motivationKey{status, true}], urgent.Name, sincePhrase(urgent.DaysSince))
}

func sincePhrase(days *int) string {
	switch {
	case days == nil:
		return "never done yet"
	case *days == 0:
		return "done today"
	case *days == 1:
		return "last done yesterday"
	default:
		return fmt.Sprintf("last done %d days ago", *days)
	}
}

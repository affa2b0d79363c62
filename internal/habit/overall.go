package habit

import "math"

// OverallHealth averages the health of views. With no views the score is 100:
// an empty garden is a clean slate, not a failure.
func (e *Engine) OverallHealth(views []TaskView) OverallHealth {
	if len(views) == 0 {
		return OverallHealth{
			Score:   100,
			Status:  StatusHealthy,
			Icon:    statusBands[StatusHealthy].icon,
			Message: emptyGardenMessage,
		}
	}

	sum := 0
	for _, v := range views {
		sum += v.Health
	}
	score := int(math.Round(float64(sum) / float64(len(views))))

	status := e.status(score)
	band := statusBands[status]
	return OverallHealth{
		Score:   score,
		Status:  status,
		Icon:    band.icon,
		Message: band.message,
	}
}

func (e *Engine) status(score int) HealthStatus {
	p := e.policy
	switch {
	case score >= p.HealthyMin:
		return StatusHealthy
	case score >= p.FairMin:
		return StatusFair
	case score >= p.WeakMin:
		return StatusWeak
	default:
		return StatusCritical
	}
}

package habit

import "testing"

func TestUrgency(t *testing.T) {
	e := MustNewEngine(DefaultPolicy(), nil)

	tests := []struct {
		name       string
		importance int
		health     int
		wantScore  float64
		wantLevel  UrgencyLevel
	}{
		{"fresh task", 5, 100, 0, UrgencyLow},
		{"at normal boundary", 3, 70, 0.9, UrgencyLow},
		{"just below normal", 3, 69, 0.93, UrgencyNormal},
		{"at high boundary", 3, 40, 1.8, UrgencyNormal},
		{"just below high", 3, 39, 1.83, UrgencyHigh},
		{"low health, low importance stays high", 3, 10, 2.7, UrgencyHigh},
		{"critical", 4, 24, 3.04, UrgencyCritical},
		{"at critical boundary", 5, 25, 3.75, UrgencyHigh},
		{"never done, top importance", 5, 0, 5, UrgencyCritical},
		{"importance clamped up", 0, 0, 1, UrgencyHigh},
		{"importance clamped down", 9, 0, 5, UrgencyCritical},
		{"health clamped", 2, -20, 2, UrgencyHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, level := e.Urgency(Task{ID: "t", Importance: tt.importance}, tt.health)
			if score != tt.wantScore {
				t.Errorf("score = %v, want %v", score, tt.wantScore)
			}
			if level != tt.wantLevel {
				t.Errorf("level = %s, want %s", level, tt.wantLevel)
			}
		})
	}
}

package habit

import (
	"errors"
	"testing"
)

func TestDefaultPolicy_Valid(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *Policy)
	}{
		{"zero decay scale", func(p *Policy) { p.DecayScale = 0 }},
		{"urgency bands out of order", func(p *Policy) { p.CriticalHealth = 50 }},
		{"normal above 100", func(p *Policy) { p.NormalHealth = 101 }},
		{"critical importance out of range", func(p *Policy) { p.CriticalImportance = 6 }},
		{"health bands out of order", func(p *Policy) { p.FairMin = 90 }},
		{"weak differs from high", func(p *Policy) { p.WeakMin = 35 }},
		{"fair above normal", func(p *Policy) { p.FairMin = 75; p.HealthyMin = 85 }},
		{"negative bonus factor", func(p *Policy) { p.UrgencyBonusFactor = -1 }},
		{"okay grade zero", func(p *Policy) { p.GradeOkayMin = 0 }},
		{"grades out of order", func(p *Policy) { p.GradeGoodMin = 70 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.modify(&p)
			err := p.Validate()
			if !errors.Is(err, ErrInvalidPolicy) {
				t.Errorf("Validate() = %v, want ErrInvalidPolicy", err)
			}
			if _, err := NewEngine(p, nil); err == nil {
				t.Error("NewEngine should reject invalid policy")
			}
		})
	}
}

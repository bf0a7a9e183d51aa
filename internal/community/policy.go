package community

import (
	"fmt"
	"time"
)

// Policy holds every tunable of the room. The shape of the decisions is
// fixed; the numbers are configuration.
type Policy struct {
	TickInterval  time.Duration
	RecencyWindow time.Duration

	// IdleProbability is the chance a tick does nothing at all
	IdleProbability float64
	// UserTailWeights are the weights for 1, 2 and 3 responders after a user line
	UserTailWeights [3]float64
	// PersonaTailWeights are the weights for 0, 1 and 2 responders after a persona line
	PersonaTailWeights [3]float64
	GreeterProbability float64

	BroadcastPhrases           []string
	BroadcastMin               int
	BroadcastMax               int
	SecondResponderProbability float64

	// AutonomousCap bounds tick and greeter replies, DirectCap bounds replies
	// to a human send. Zero disables the cap.
	AutonomousCap int
	DirectCap     int
}

// DefaultPolicy returns the tuned defaults
func DefaultPolicy() Policy {
	return Policy{
		TickInterval:               6 * time.Second,
		RecencyWindow:              45 * time.Second,
		IdleProbability:            0.42,
		UserTailWeights:            [3]float64{0.50, 0.33, 0.17},
		PersonaTailWeights:         [3]float64{0.25, 0.50, 0.25},
		GreeterProbability:         0.5,
		BroadcastPhrases:           []string{"you all", "all of you", "everyone", "y'all", "you guys"},
		BroadcastMin:               2,
		BroadcastMax:               4,
		SecondResponderProbability: 0.3,
		AutonomousCap:              150,
		DirectCap:                  400,
	}
}

// Validate checks the policy is usable
func (p Policy) Validate() error {
	if p.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", p.TickInterval)
	}
	if p.RecencyWindow <= 0 {
		return fmt.Errorf("recency window must be positive, got %s", p.RecencyWindow)
	}
	for name, v := range map[string]float64{
		"idle probability":             p.IdleProbability,
		"greeter probability":          p.GreeterProbability,
		"second responder probability": p.SecondResponderProbability,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", name, v)
		}
	}
	if sumPositive(p.UserTailWeights[:]) == 0 {
		return fmt.Errorf("user tail weights must not all be zero")
	}
	if sumPositive(p.PersonaTailWeights[:]) == 0 {
		return fmt.Errorf("persona tail weights must not all be zero")
	}
	if p.BroadcastMin < 1 || p.BroadcastMax < p.BroadcastMin {
		return fmt.Errorf("broadcast bounds invalid: min=%d max=%d", p.BroadcastMin, p.BroadcastMax)
	}
	if p.AutonomousCap < 0 || p.DirectCap < 0 {
		return fmt.Errorf("length caps must not be negative")
	}
	return nil
}

func (p Policy) userTailChoices() []Weighted[int] {
	return []Weighted[int]{
		{Value: 1, Weight: p.UserTailWeights[0]},
		{Value: 2, Weight: p.UserTailWeights[1]},
		{Value: 3, Weight: p.UserTailWeights[2]},
	}
}

func (p Policy) personaTailChoices() []Weighted[int] {
	return []Weighted[int]{
		{Value: 0, Weight: p.PersonaTailWeights[0]},
		{Value: 1, Weight: p.PersonaTailWeights[1]},
		{Value: 2, Weight: p.PersonaTailWeights[2]},
	}
}

func sumPositive(ws []float64) float64 {
	var s float64
	for _, w := range ws {
		if w > 0 {
			s += w
		}
	}
	return s
}

package community

// SessionGate decides once per room activation whether the autonomous
// scheduler and the greeter may run. Human sends are never gated.
type SessionGate interface {
	AutonomousEnabled() bool
}

// StaticGate is a SessionGate fixed at construction
type StaticGate bool

// AutonomousEnabled implements SessionGate
func (g StaticGate) AutonomousEnabled() bool { return bool(g) }

// ViewportGate disables autonomous chatter on narrow clients. A client that
// did not declare its width (zero or negative) counts as constrained.
func ViewportGate(width, minWidth int) StaticGate {
	if width <= 0 {
		return StaticGate(false)
	}
	return StaticGate(width >= minWidth)
}

package community

import "strings"

// AddressMode says how a human message addressed the room
type AddressMode string

const (
	// ModeBroadcast is a message to the whole room
	ModeBroadcast AddressMode = "broadcast"
	// ModeDirected names a persona
	ModeDirected AddressMode = "directed"
	// ModeFallback named nobody; the primary responder was picked at random
	ModeFallback AddressMode = "fallback"
)

// Resolution is the ordered responder set for one human message
type Resolution struct {
	Mode       AddressMode
	Responders []Persona
}

// Primary returns the first responder
func (r Resolution) Primary() (Persona, bool) {
	if len(r.Responders) == 0 {
		return Persona{}, false
	}
	return r.Responders[0], true
}

// Resolver turns a human message into a responder set
type Resolver struct {
	phrases              []string
	broadcastMin         int
	broadcastMax         int
	secondResponderProba float64
}

// NewResolver builds a resolver from the policy
func NewResolver(p Policy) *Resolver {
	phrases := make([]string, 0, len(p.BroadcastPhrases))
	for _, ph := range p.BroadcastPhrases {
		if ph = strings.ToLower(strings.TrimSpace(ph)); ph != "" {
			phrases = append(phrases, ph)
		}
	}
	return &Resolver{
		phrases:              phrases,
		broadcastMin:         p.BroadcastMin,
		broadcastMax:         p.BroadcastMax,
		secondResponderProba: p.SecondResponderProbability,
	}
}

// IsBroadcast reports whether text is addressed to everyone
func (r *Resolver) IsBroadcast(text string) bool {
	lower := strings.ToLower(text)
	for _, ph := range r.phrases {
		if strings.Contains(lower, ph) {
			return true
		}
	}
	return false
}

// Addressee returns the first roster persona whose display name appears in
// text, case-insensitively
func Addressee(text string, roster []Persona) (Persona, bool) {
	lower := strings.ToLower(text)
	for _, p := range roster {
		name := strings.ToLower(strings.TrimSpace(p.DisplayName))
		if name == "" {
			continue
		}
		if strings.Contains(lower, name) {
			return p, true
		}
	}
	return Persona{}, false
}

// Resolve selects the personas that answer text. The roster must not be
// empty; callers skip resolution for an empty room.
func (r *Resolver) Resolve(rng Rand, text string, roster []Persona) Resolution {
	if len(roster) == 0 {
		return Resolution{Mode: ModeFallback}
	}

	if r.IsBroadcast(text) {
		return Resolution{Mode: ModeBroadcast, Responders: Sample(rng, roster, r.broadcastSize(rng, len(roster)))}
	}

	mode := ModeDirected
	primary, ok := Addressee(text, roster)
	if !ok {
		mode = ModeFallback
		primary = Pick(rng, roster)
	}

	responders := []Persona{primary}
	if len(roster) > 1 && Roll(rng, r.secondResponderProba) {
		responders = append(responders, Pick(rng, without(roster, primary.ID)))
	}
	return Resolution{Mode: mode, Responders: responders}
}

// broadcastSize is max(min(lo, n), 1+rand[0, min(hi, n)))
func (r *Resolver) broadcastSize(rng Rand, n int) int {
	hi := min(r.broadcastMax, n)
	k := 1 + rng.IntN(hi)
	return max(min(r.broadcastMin, n), k)
}

// without returns roster minus the persona with the given id
func without(roster []Persona, id string) []Persona {
	out := make([]Persona, 0, len(roster))
	for _, p := range roster {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

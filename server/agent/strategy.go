package agent

import (
	"blackjack-table/server/engine"
	"log"
)

// BasicStrategy plays the single-deck, dealer-stands-on-soft-17 chart with
// late surrender. It never needs input, so sessions can run unattended.
type BasicStrategy struct {
	Debug bool
}

func (s BasicStrategy) RequestDecision(v engine.View, legal []engine.Decision) (engine.Decision, error) {
	o := BuildObservation(v, legal)
	a := s.Choose(o)
	if err := Validate(o, a); err != nil {
		// stand is always legal while deciding
		log.Printf("strategy fallback for %s: %v", o.RoundID, err)
		a = ActionOut{Action: string(engine.Stand)}
	}
	if s.Debug {
		log.Printf("strategy %s: %v (%d soft=%t) vs %s -> %s", o.RoundID, o.Hand, o.Total, o.Soft, o.DealerUp, a.Action)
	}
	return engine.Decision(a.Action), nil
}

// Choose picks the chart action for o.
func (s BasicStrategy) Choose(o Observation) ActionOut {
	up, tot := o.DealerUpValue, o.Total
	act := func(d engine.Decision, why string) ActionOut {
		return ActionOut{Action: string(d), Comment: why}
	}
	double := func(fallback engine.Decision, why string) ActionOut {
		if o.CanDouble() {
			return act(engine.DoubleDown, why)
		}
		return act(fallback, why)
	}

	if o.Soft {
		switch {
		case tot >= 19:
			return act(engine.Stand, "soft 19+")
		case tot == 18:
			if up >= 3 && up <= 6 {
				return double(engine.Stand, "soft 18 vs weak up card")
			}
			if up >= 9 {
				return act(engine.Hit, "soft 18 vs 9, ten or ace")
			}
			return act(engine.Stand, "soft 18")
		case tot == 17:
			if up >= 3 && up <= 6 {
				return double(engine.Hit, "soft 17 vs weak up card")
			}
		case tot >= 15:
			if up >= 4 && up <= 6 {
				return double(engine.Hit, "soft 15-16 vs 4-6")
			}
		default:
			if up >= 5 && up <= 6 {
				return double(engine.Hit, "soft 13-14 vs 5-6")
			}
		}
		return act(engine.Hit, "soft total")
	}

	if o.FirstMove && o.allows(string(engine.Surrender)) {
		if (tot == 16 && up >= 9) || (tot == 15 && up == 10) {
			return act(engine.Surrender, "hard 15-16 vs strong up card")
		}
	}
	switch {
	case tot >= 17:
		return act(engine.Stand, "hard 17+")
	case tot >= 13:
		if up <= 6 {
			return act(engine.Stand, "stiff vs dealer bust card")
		}
	case tot == 12:
		if up >= 4 && up <= 6 {
			return act(engine.Stand, "12 vs 4-6")
		}
	case tot == 11:
		if up <= 10 {
			return double(engine.Hit, "11")
		}
	case tot == 10:
		if up <= 9 {
			return double(engine.Hit, "10 vs 2-9")
		}
	case tot == 9:
		if up >= 3 && up <= 6 {
			return double(engine.Hit, "9 vs 3-6")
		}
	}
	return act(engine.Hit, "hard total")
}

package agent

import (
	"blackjack-table/server/engine"
	"fmt"
)

// Observation is the player's view of a round at decision time. The dealer's
// hole card is never part of it.
type Observation struct {
	RoundID       string   `json:"round_id"`
	Hand          []string `json:"hand"`
	Total         int      `json:"total"`
	Soft          bool     `json:"soft"`
	DealerUp      string   `json:"dealer_up"`
	DealerUpValue int      `json:"dealer_up_value"`
	Wallet        int      `json:"wallet"`
	Bet           int      `json:"bet"`
	FirstMove     bool     `json:"first_move"`
	Legal         []string `json:"legal_actions"` // subset of stand/hit/surrender/double
}

type ActionOut struct {
	Action  string `json:"action"`            // stand|hit|surrender|double
	Comment string `json:"comment,omitempty"` // <=120 chars
}

// BuildObservation converts what the engine lets the player see into the
// JSON form logged with every decision.
func BuildObservation(v engine.View, legal []engine.Decision) Observation {
	hand := make([]string, len(v.Player))
	for i, c := range v.Player {
		hand[i] = c.String()
	}
	ls := make([]string, len(legal))
	for i, d := range legal {
		ls[i] = string(d)
	}
	return Observation{
		RoundID:       v.RoundID,
		Hand:          hand,
		Total:         v.PlayerValue,
		Soft:          v.Soft,
		DealerUp:      v.DealerUp.String(),
		DealerUpValue: v.DealerUp.Rank().Value(),
		Wallet:        v.Wallet,
		Bet:           v.Bet,
		FirstMove:     v.First,
		Legal:         ls,
	}
}

// CanDouble reports whether a double down would be accepted right now.
func (o Observation) CanDouble() bool {
	return o.allows(string(engine.DoubleDown)) && o.Wallet >= o.Bet
}

func (o Observation) allows(action string) bool {
	for _, la := range o.Legal {
		if la == action {
			return true
		}
	}
	return false
}

// Validate checks a decision against the observation the way the engine will.
func Validate(o Observation, a ActionOut) error {
	if !o.allows(a.Action) {
		return fmt.Errorf("illegal action %q (legals: %v): %w", a.Action, o.Legal, engine.ErrInvalidDecision)
	}
	if a.Action == string(engine.DoubleDown) && o.Wallet < o.Bet {
		return fmt.Errorf("double down needs %d, wallet has %d: %w", o.Bet, o.Wallet, engine.ErrInsufficientFunds)
	}
	if len(a.Comment) > 120 {
		return fmt.Errorf("comment longer than 120 chars")
	}
	return nil
}

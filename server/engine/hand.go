package engine

import "strings"

// MaxHandCards is the most cards a hand reaches in valid play. Draws are
// with replacement, so it sizes the slice rather than bounding it.
const MaxHandCards = 11

type Hand struct {
	Cards []Card
}

func (h *Hand) Add(c Card) {
	if h.Cards == nil {
		h.Cards = make([]Card, 0, MaxHandCards)
	}
	h.Cards = append(h.Cards, c)
}

func (h *Hand) Reset() { h.Cards = h.Cards[:0] }

// total returns the hand value and whether an Ace is counted as 11.
// Every Ace counts 1 first; one of them is promoted to 11 if that stays <= 21.
func (h *Hand) total() (int, bool) {
	tot, aces := 0, 0
	for _, c := range h.Cards {
		v := c.Rank().Value()
		if v == 11 {
			aces++
			continue
		}
		tot += v
	}
	tot += aces
	if aces > 0 && tot <= 11 {
		return tot + 10, true
	}
	return tot, false
}

func (h *Hand) Value() int {
	v, _ := h.total()
	return v
}

// Soft reports whether one Ace is currently counted as 11.
func (h *Hand) Soft() bool {
	_, soft := h.total()
	return soft
}

func (h *Hand) IsBlackjack() bool { return len(h.Cards) == 2 && h.Value() == 21 }
func (h *Hand) IsBust() bool      { return h.Value() > 21 }

func (h *Hand) Strings() []string {
	out := make([]string, len(h.Cards))
	for i, c := range h.Cards {
		out[i] = c.String()
	}
	return out
}

func (h *Hand) String() string { return strings.Join(h.Strings(), " ") }

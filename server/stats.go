package main

import (
	"blackjack-table/server/engine"
	"math"
	"math/rand"
	"sort"
)

type SessionStats struct {
	Rounds     int
	Wins       int
	Losses     int
	Pushes     int
	Blackjacks int
	Surrenders int
	Doubles    int
	Busts      int
	Net        int
	Deltas     []float64 // net result per round, bet-adjusted
}

// add records a settled round; bet is the stake debited before it was dealt.
func (s *SessionStats) add(r *engine.Round, bet int) {
	s.Rounds++
	switch {
	case r.Outcome.Won():
		s.Wins++
	case r.Outcome.Lost():
		s.Losses++
	case r.Outcome == engine.Push || r.Outcome == engine.PushBlackjack:
		s.Pushes++
	}
	switch r.Outcome {
	case engine.PlayerBlackjack:
		s.Blackjacks++
	case engine.PlayerSurrendered:
		s.Surrenders++
	case engine.PlayerBust:
		s.Busts++
	}
	for _, a := range r.History {
		if a.Kind == engine.Decide && a.Decision == engine.DoubleDown {
			s.Doubles++
		}
	}
	net := r.Delta() - bet
	s.Net += net
	s.Deltas = append(s.Deltas, float64(net))
}

// WinRate counts a push as half a win.
func (s *SessionStats) WinRate() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return (float64(s.Wins) + 0.5*float64(s.Pushes)) / float64(s.Rounds)
}

// PerRound is the mean net result per round in units of bet.
func (s *SessionStats) PerRound(bet int) float64 {
	if s.Rounds == 0 || bet <= 0 {
		return 0
	}
	return float64(s.Net) / float64(bet) / float64(s.Rounds)
}

// --------- CI helpers ---------

// WilsonCI95 for the Bernoulli win rate with pushes counted as half a win.
func WilsonCI95(wins, ties, total int) (low, hi float64) {
	if total <= 0 {
		return 0, 1
	}
	z := 1.96
	n := float64(total)
	p := (float64(wins) + 0.5*float64(ties)) / n
	den := 1 + (z*z)/n
	center := p + (z*z)/(2*n)
	half := z * math.Sqrt((p*(1-p))/n+(z*z)/(4*n*n))
	return (center - half) / den, (center + half) / den
}

// BootstrapCI95 for the mean of values (e.g., per-round net results).
func BootstrapCI95(vals []float64, B int, rng *rand.Rand) (low, hi float64) {
	n := len(vals)
	if n == 0 || B <= 1 {
		return 0, 0
	}
	res := make([]float64, B)
	for b := 0; b < B; b++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += vals[rng.Intn(n)]
		}
		res[b] = sum / float64(n)
	}
	sort.Float64s(res)
	l := int(0.025 * float64(B-1))
	h := int(0.975 * float64(B-1))
	return res[l], res[h]
}

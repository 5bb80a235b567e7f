package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"

	"blackjack-table/server/agent"
	"blackjack-table/server/engine"
	"blackjack-table/server/store"

	"github.com/google/uuid"
)

const solverName = "MCJudge"

// eps is the EV gap (in bets) under which a decision still counts as top.
const eps = 0.02

// Evals holds per-decision expected values in units of the original bet.
// Double and Surrender are only meaningful when the matching flag is set.
type Evals struct {
	Stand        float64
	Hit          float64
	Double       float64
	Surrender    float64
	CanDouble    bool
	CanSurrender bool
	Best         engine.Decision
}

// Of returns the EV of d and whether d was evaluated.
func (e Evals) Of(d engine.Decision) (float64, bool) {
	switch d {
	case engine.Stand:
		return e.Stand, true
	case engine.Hit:
		return e.Hit, true
	case engine.DoubleDown:
		return e.Double, e.CanDouble
	case engine.Surrender:
		return e.Surrender, e.CanSurrender
	}
	return 0, false
}

// Evaluate estimates the EV of every decision open to player against the
// dealer's up card. The hole card is resampled so the dealer never holds a
// blackjack, since play only reaches a decision when it doesn't. After a hit
// the hand continues with the basic strategy chart.
func Evaluate(player []engine.Card, up engine.Card, canDouble, canSurrender bool, trials int, rng *rand.Rand) Evals {
	if trials <= 0 {
		trials = 1
	}
	deck := engine.NewDeckFrom(rng)
	e := Evals{CanDouble: canDouble, CanSurrender: canSurrender}

	var stand, hit, dbl float64
	for i := 0; i < trials; i++ {
		stand += rollout(deck, player, up, engine.Stand)
		hit += rollout(deck, player, up, engine.Hit)
		if canDouble {
			dbl += rollout(deck, player, up, engine.DoubleDown)
		}
	}
	n := float64(trials)
	e.Stand, e.Hit = stand/n, hit/n
	if canDouble {
		e.Double = dbl / n
	}
	if canSurrender {
		e.Surrender = -0.5
	}

	e.Best = engine.Stand
	best := e.Stand
	for _, d := range []engine.Decision{engine.Hit, engine.DoubleDown, engine.Surrender} {
		if v, ok := e.Of(d); ok && v > best {
			best, e.Best = v, d
		}
	}
	return e
}

func rollout(deck *engine.Deck, player []engine.Card, up engine.Card, first engine.Decision) float64 {
	ph := engine.Hand{Cards: append(make([]engine.Card, 0, engine.MaxHandCards), player...)}
	stake := 1.0

	switch first {
	case engine.DoubleDown:
		stake = 2
		ph.Add(deck.Draw())
	case engine.Hit:
		ph.Add(deck.Draw())
		s := agent.BasicStrategy{}
		for !ph.IsBust() && ph.Value() < 21 {
			o := agent.Observation{
				Total:         ph.Value(),
				Soft:          ph.Soft(),
				DealerUpValue: up.Rank().Value(),
				Legal:         []string{string(engine.Stand), string(engine.Hit)},
			}
			if s.Choose(o).Action != string(engine.Hit) {
				break
			}
			ph.Add(deck.Draw())
		}
	}
	if ph.IsBust() {
		return -stake
	}

	dh := engine.Hand{}
	for {
		dh.Reset()
		dh.Add(up)
		dh.Add(deck.Draw())
		if !dh.IsBlackjack() {
			break
		}
	}
	for dh.Value() < 17 {
		dh.Add(deck.Draw())
	}

	pv, dv := ph.Value(), dh.Value()
	switch {
	case dv > 21 || dv < pv:
		return stake
	case dv > pv:
		return -stake
	}
	return 0
}

// Store is the slice of the audit log the judge reads and writes.
type Store interface {
	SessionDecisions(ctx context.Context, id uuid.UUID) ([]store.Decision, error)
	InsertDecisionEval(ctx context.Context, e store.DecisionEval) error
}

// EvaluateSession judges every logged decision of a session and writes one
// decision_eval row per decision with solver='MCJudge'. It returns how many
// decisions matched the best EV and how many were judged.
func EvaluateSession(ctx context.Context, st Store, sessionID uuid.UUID, trials int, seed int64) (store.JudgeAccuracy, error) {
	var acc store.JudgeAccuracy
	ds, err := st.SessionDecisions(ctx, sessionID)
	if err != nil {
		return acc, fmt.Errorf("load decisions: %w", err)
	}
	rng := rand.New(rand.NewSource(seed))

	for _, d := range ds {
		if err := ctx.Err(); err != nil {
			return acc, err
		}
		player := make([]engine.Card, 0, len(d.Hand))
		for _, s := range d.Hand {
			c, err := engine.ParseCard(s)
			if err != nil {
				return acc, fmt.Errorf("decision %d hand: %w", d.ID, err)
			}
			player = append(player, c)
		}
		up, err := engine.ParseCard(d.DealerUp)
		if err != nil {
			return acc, fmt.Errorf("decision %d up card: %w", d.ID, err)
		}

		canDouble, canSurrender := d.FirstMove, d.FirstMove
		var o agent.Observation
		if len(d.Observation) > 0 && json.Unmarshal(d.Observation, &o) == nil && len(o.Legal) > 0 {
			canDouble = o.CanDouble()
			canSurrender = false
			for _, l := range o.Legal {
				if l == string(engine.Surrender) {
					canSurrender = true
				}
			}
		}

		t0 := time.Now()
		ev := Evaluate(player, up, canDouble, canSurrender, trials, rng)
		chosen := engine.Decision(d.Decision)
		evChosen, ok := ev.Of(chosen)
		if !ok {
			log.Printf("judge: skipping decision %d (%s not evaluable)", d.ID, d.Decision)
			continue
		}
		evBest, _ := ev.Of(ev.Best)
		gap := evBest - evChosen
		top := chosen == ev.Best || gap <= eps

		row := store.DecisionEval{
			DecisionID:   d.ID,
			Solver:       solverName,
			Trials:       trials,
			EVStand:      ev.Stand,
			EVHit:        ev.Hit,
			BestDecision: string(ev.Best),
			EVChosen:     evChosen,
			EVGap:        gap,
			IsTopAction:  top,
		}
		if ev.CanDouble {
			v := ev.Double
			row.EVDouble = &v
		}
		if ev.CanSurrender {
			v := ev.Surrender
			row.EVSurrender = &v
		}
		row.ComputeMS = int(time.Since(t0) / time.Millisecond)
		if err := st.InsertDecisionEval(ctx, row); err != nil {
			return acc, fmt.Errorf("insert eval %d: %w", d.ID, err)
		}
		acc.Total++
		if top {
			acc.Good++
		}
	}
	return acc, nil
}

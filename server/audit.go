package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"blackjack-table/server/agent"
	"blackjack-table/server/engine"
	"blackjack-table/server/store"

	"github.com/google/uuid"
)

type auditStore interface {
	CreateSession(ctx context.Context, s store.Session) error
	InsertRound(ctx context.Context, r store.Round, decisions []store.Decision) error
	CompleteSession(ctx context.Context, id uuid.UUID, endWallet int) error
}

// auditLog writes sessions to the store. The first error disables it; play
// never depends on it. A nil *auditLog is a valid no-op.
type auditLog struct {
	st        auditStore
	sessionID uuid.UUID
	off       bool
}

func startAudit(ctx context.Context, st auditStore, s *Session, mode string, seed int64) *auditLog {
	if st == nil {
		return nil
	}
	a := &auditLog{st: st, sessionID: s.ID}
	err := st.CreateSession(ctx, store.Session{
		ID:          s.ID,
		Mode:        mode,
		StartWallet: s.Wallet,
		BetAmount:   s.Bet,
		DeckSeed:    seed,
	})
	a.check("create session", err)
	return a
}

func (a *auditLog) enabled() bool { return a != nil && !a.off }

func (a *auditLog) check(what string, err error) {
	if err != nil {
		log.Printf("audit log disabled (%s failed): %v", what, err)
		a.off = true
	}
}

func (a *auditLog) Record(ctx context.Context, no int, r *engine.Round) {
	if !a.enabled() {
		return
	}
	rr, ds, err := roundRecords(a.sessionID, no, r)
	if err != nil {
		a.check("encode round", err)
		return
	}
	a.check("insert round", a.st.InsertRound(ctx, rr, ds))
}

func (a *auditLog) Finish(ctx context.Context, endWallet int) {
	if !a.enabled() {
		return
	}
	a.check("complete session", a.st.CompleteSession(ctx, a.sessionID, endWallet))
}

// roundRecords replays r.History to rebuild what the player saw at every
// decision, so the log carries the same observation the provider was given.
func roundRecords(sessionID uuid.UUID, no int, r *engine.Round) (store.Round, []store.Decision, error) {
	history, err := json.Marshal(r.History)
	if err != nil {
		return store.Round{}, nil, err
	}
	rr := store.Round{
		SessionID:   sessionID,
		No:          no,
		Key:         r.ID,
		Bet:         r.Bet,
		Outcome:     string(r.Outcome),
		WalletDelta: r.Delta(),
		WalletAfter: r.Wallet,
		PlayerCards: r.Player.Strings(),
		DealerCards: r.Dealer.Strings(),
		PlayerTotal: r.Player.Value(),
		DealerTotal: r.Dealer.Value(),
		History:     history,
	}

	wallet, bet := r.Wallet-r.Delta(), r.Bet
	for _, a := range r.History {
		if a.Kind == engine.Decide && a.Decision == engine.DoubleDown {
			bet /= 2
		}
	}

	var (
		player, dealer engine.Hand
		out            []store.Decision
	)
	for _, a := range r.History {
		switch {
		case a.Card != nil && a.Seat == engine.Player:
			player.Add(*a.Card)
		case a.Card != nil && a.Seat == engine.Dealer:
			dealer.Add(*a.Card)
		case a.Kind == engine.Decide:
			if len(dealer.Cards) == 0 {
				return rr, nil, fmt.Errorf("round %s: decision before deal", r.ID)
			}
			first := len(out) == 0
			legal := []engine.Decision{engine.Stand, engine.Hit}
			if first {
				legal = append(legal, engine.Surrender, engine.DoubleDown)
			}
			v := engine.View{
				RoundID:     r.ID,
				Player:      append([]engine.Card(nil), player.Cards...),
				PlayerValue: player.Value(),
				Soft:        player.Soft(),
				DealerUp:    dealer.Cards[0],
				Wallet:      wallet,
				Bet:         bet,
				First:       first,
			}
			obs, err := json.Marshal(agent.BuildObservation(v, legal))
			if err != nil {
				return rr, nil, err
			}
			out = append(out, store.Decision{
				SessionID:   sessionID,
				RoundKey:    r.ID,
				Seq:         len(out),
				Decision:    string(a.Decision),
				Hand:        player.Strings(),
				Total:       v.PlayerValue,
				Soft:        v.Soft,
				DealerUp:    v.DealerUp.String(),
				FirstMove:   first,
				Observation: obs,
			})
			if a.Decision == engine.DoubleDown {
				wallet -= bet
				bet *= 2
			}
		}
	}
	return rr, out, nil
}

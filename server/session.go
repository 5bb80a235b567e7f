package main

import (
	"context"
	"fmt"

	"blackjack-table/server/engine"

	"github.com/google/uuid"
)

// Session is one sitting at the table: a wallet, a fixed bet, and the rounds
// played from it.
type Session struct {
	ID     uuid.UUID
	Wallet int
	Bet    int
	Stats  SessionStats
	rounds int
}

func NewSession(wallet, bet int) *Session {
	return &Session{ID: uuid.New(), Wallet: wallet, Bet: bet}
}

func (s *Session) CanBet() bool { return s.Wallet >= s.Bet }

// Rounds is how many rounds have been dealt, settled or not.
func (s *Session) Rounds() int { return s.rounds }

// NewRound debits the bet and returns the next round to play.
func (s *Session) NewRound(deck *engine.Deck) *engine.Round {
	s.Wallet -= s.Bet
	s.rounds++
	id := fmt.Sprintf("%s-%d", s.ID.String()[:8], s.rounds)
	return engine.NewRound(id, deck, s.Wallet, s.Bet)
}

// Settle credits a finished round back to the wallet.
func (s *Session) Settle(r *engine.Round) {
	s.Wallet += r.Delta()
	s.Stats.add(r, s.Bet)
}

// Lobby is the between-rounds side of the table.
type Lobby interface {
	ShowWallet(wallet int)
	Broke()
	// PlaceBet reports whether the player wants another round at bet.
	PlaceBet(bet int) bool
}

type Table struct {
	Session   *Session
	Deck      *engine.Deck
	Player    engine.DecisionProvider
	Observer  engine.Observer
	Lobby     Lobby
	Audit     *auditLog
	MaxRounds int // 0 means unlimited
}

// Run plays rounds until the player quits, is broke, MaxRounds is reached or
// ctx is cancelled. A provider failure ends the session with the current bet
// lost and is returned.
func (t *Table) Run(ctx context.Context) error {
	s := t.Session
	for {
		if ctx.Err() != nil {
			return nil
		}
		t.Lobby.ShowWallet(s.Wallet)
		if !s.CanBet() {
			t.Lobby.Broke()
			return nil
		}
		if t.MaxRounds > 0 && s.Rounds() >= t.MaxRounds {
			return nil
		}
		if !t.Lobby.PlaceBet(s.Bet) {
			return nil
		}

		r := s.NewRound(t.Deck)
		if err := engine.Play(r, t.Player, t.Observer); err != nil {
			return err
		}
		s.Settle(r)
		t.Audit.Record(ctx, s.Rounds(), r)
	}
}

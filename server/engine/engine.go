package engine

import (
	"errors"
	"fmt"
)

// Observer is the presentational side of a round. The engine never reads
// anything back from it.
type Observer interface {
	RevealCard(seat Seat, c Card, hidden bool)
	ShowHand(seat Seat, h *Hand, hideHole bool)
	Rejected(d Decision, err error)
	ReportOutcome(o Outcome, walletDelta int)
}

type NopObserver struct{}

func (NopObserver) RevealCard(Seat, Card, bool) {}
func (NopObserver) ShowHand(Seat, *Hand, bool)  {}
func (NopObserver) Rejected(Decision, error)    {}
func (NopObserver) ReportOutcome(Outcome, int)  {}

// DecisionProvider blocks until the player picks one of legal.
type DecisionProvider interface {
	RequestDecision(v View, legal []Decision) (Decision, error)
}

// View is what the player is allowed to see when deciding.
type View struct {
	RoundID     string
	Player      []Card
	PlayerValue int
	Soft        bool
	DealerUp    Card
	Wallet      int
	Bet         int
	First       bool
}

// Round is one deal from Dealing to Settled. Wallet is the balance after the
// bet was placed; settlement credits it directly.
type Round struct {
	ID      string
	Deck    *Deck
	Player  Hand
	Dealer  Hand
	Wallet  int
	Bet     int
	State   State
	Outcome Outcome
	History []Action

	startWallet int
	decisions   int
}

func NewRound(id string, deck *Deck, wallet, bet int) *Round {
	return &Round{
		ID: id, Deck: deck, Wallet: wallet, Bet: bet,
		State:       Dealing,
		startWallet: wallet,
	}
}

// Delta is the wallet change produced by the round so far.
func (r *Round) Delta() int { return r.Wallet - r.startWallet }

// Decisions counts accepted player decisions.
func (r *Round) Decisions() int { return r.decisions }

func (r *Round) View() View {
	v := View{
		RoundID:     r.ID,
		Player:      append([]Card(nil), r.Player.Cards...),
		PlayerValue: r.Player.Value(),
		Soft:        r.Player.Soft(),
		Wallet:      r.Wallet,
		Bet:         r.Bet,
		First:       r.decisions == 0,
	}
	if len(r.Dealer.Cards) > 0 {
		v.DealerUp = r.Dealer.Cards[0]
	}
	return v
}

func (r *Round) Legal() []Decision {
	if r.State != PlayerDeciding {
		return nil
	}
	if r.decisions == 0 {
		return []Decision{Stand, Hit, Surrender, DoubleDown}
	}
	return []Decision{Stand, Hit}
}

func (r *Round) isLegal(d Decision) bool {
	for _, l := range r.Legal() {
		if l == d {
			return true
		}
	}
	return false
}

// Step runs the transitions that need no player input: the initial deal and
// the dealer's play.
func (r *Round) Step(obs Observer) error {
	switch r.State {
	case Dealing:
		r.deal(obs)
	case DealerResolving:
		r.resolveDealer(obs)
	default:
		return fmt.Errorf("step in %s: %w", r.State, ErrNotAutomatic)
	}
	return nil
}

// Apply performs one player decision. ErrInvalidDecision and
// ErrInsufficientFunds leave the round unchanged.
func (r *Round) Apply(d Decision, obs Observer) error {
	if !r.isLegal(d) {
		return fmt.Errorf("%q in %s: %w", d, r.State, ErrInvalidDecision)
	}
	if d == DoubleDown && r.Wallet < r.Bet {
		return fmt.Errorf("double down needs %d, wallet has %d: %w", r.Bet, r.Wallet, ErrInsufficientFunds)
	}
	r.decisions++
	r.History = append(r.History, Action{Seat: Player, Kind: Decide, Decision: d})

	switch d {
	case Surrender:
		r.settle(PlayerSurrendered, r.Bet/2)
	case DoubleDown:
		r.Wallet -= r.Bet
		r.Bet *= 2
		r.draw(Player, Draw, false, obs)
		obs.ShowHand(Player, &r.Player, false)
		r.afterPlayerDraw(true)
	case Hit:
		r.draw(Player, Draw, false, obs)
		obs.ShowHand(Player, &r.Player, false)
		r.afterPlayerDraw(false)
	case Stand:
		r.State = DealerResolving
	}
	return nil
}

func (r *Round) deal(obs Observer) {
	r.Player.Reset()
	r.Dealer.Reset()
	r.draw(Player, Deal, false, obs)
	r.draw(Dealer, Deal, false, obs)
	r.draw(Player, Deal, false, obs)
	r.draw(Dealer, Deal, true, obs)
	obs.ShowHand(Player, &r.Player, false)
	obs.ShowHand(Dealer, &r.Dealer, true)

	switch {
	case r.Player.IsBlackjack():
		credit := r.Bet
		outcome := PushBlackjack
		if !r.Dealer.IsBlackjack() {
			credit += 3 * r.Bet / 2
			outcome = PlayerBlackjack
		}
		r.turnHole(obs)
		r.settle(outcome, credit)
	case r.Dealer.IsBlackjack():
		r.turnHole(obs)
		r.settle(DealerBlackjack, 0)
	default:
		r.State = PlayerDeciding
	}
}

// turnHole shows the hole card when a natural ends the round at the deal.
func (r *Round) turnHole(obs Observer) {
	obs.RevealCard(Dealer, r.Dealer.Cards[1], false)
	obs.ShowHand(Dealer, &r.Dealer, false)
}

func (r *Round) afterPlayerDraw(final bool) {
	pv := r.Player.Value()
	switch {
	case pv > 21:
		r.settle(PlayerBust, 0)
	case pv == 21 || final:
		r.State = DealerResolving
	}
}

func (r *Round) resolveDealer(obs Observer) {
	if len(r.Dealer.Cards) > 1 {
		obs.RevealCard(Dealer, r.Dealer.Cards[1], false)
	}
	for {
		obs.ShowHand(Dealer, &r.Dealer, false)
		if r.Dealer.Value() >= 17 {
			break
		}
		r.draw(Dealer, Draw, false, obs)
	}

	pv, dv := r.Player.Value(), r.Dealer.Value()
	switch {
	case dv > 21 || dv < pv:
		r.settle(PlayerWin, 2*r.Bet)
	case dv > pv:
		r.settle(DealerWin, 0)
	default:
		r.settle(Push, r.Bet)
	}
}

func (r *Round) draw(seat Seat, kind ActionKind, hidden bool, obs Observer) {
	c := r.Deck.Draw()
	h := &r.Player
	if seat == Dealer {
		h = &r.Dealer
	}
	h.Add(c)
	r.History = append(r.History, Action{Seat: seat, Kind: kind, Card: &c})
	obs.RevealCard(seat, c, hidden)
}

func (r *Round) settle(o Outcome, credit int) {
	r.Wallet += credit
	r.Outcome = o
	r.State = Settled
}

// Play drives r to Settled, asking p whenever the player has to decide.
// Rejected decisions are reported to obs and asked again.
func Play(r *Round, p DecisionProvider, obs Observer) error {
	if obs == nil {
		obs = NopObserver{}
	}
	for r.State != Settled {
		if r.State != PlayerDeciding {
			if err := r.Step(obs); err != nil {
				return err
			}
			continue
		}
		d, err := p.RequestDecision(r.View(), r.Legal())
		if err != nil {
			return fmt.Errorf("round %s: request decision: %w", r.ID, err)
		}
		if err := r.Apply(d, obs); err != nil {
			if errors.Is(err, ErrInvalidDecision) || errors.Is(err, ErrInsufficientFunds) {
				obs.Rejected(d, err)
				continue
			}
			return err
		}
	}
	obs.ReportOutcome(r.Outcome, r.Delta())
	return nil
}

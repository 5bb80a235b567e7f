package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func c(r Rank) Card { return NewCard(r, Spades) }

// dealt builds a round whose first four draws are p1, d1, p2, d2 followed by extra.
func dealt(t *testing.T, wallet, bet int, p1, d1, p2, d2 Rank, extra ...Rank) *Round {
	t.Helper()
	cards := []Card{c(p1), c(d1), c(p2), c(d2)}
	for _, r := range extra {
		cards = append(cards, c(r))
	}
	r := NewRound("t-1", scripted(cards...), wallet, bet)
	require.NoError(t, r.Step(NopObserver{}))
	return r
}

type recorder struct {
	NopObserver
	reveals  []Card
	hidden   []bool
	rejected []error
	outcome  Outcome
	delta    int
	reported int
}

func (o *recorder) RevealCard(_ Seat, c Card, hidden bool) {
	o.reveals = append(o.reveals, c)
	o.hidden = append(o.hidden, hidden)
}
func (o *recorder) Rejected(_ Decision, err error) { o.rejected = append(o.rejected, err) }
func (o *recorder) ReportOutcome(out Outcome, delta int) {
	o.outcome, o.delta = out, delta
	o.reported++
}

type decisions struct {
	queue []Decision
	asked [][]Decision
}

func (p *decisions) RequestDecision(_ View, legal []Decision) (Decision, error) {
	p.asked = append(p.asked, legal)
	if len(p.queue) == 0 {
		return "", errors.New("no more decisions")
	}
	d := p.queue[0]
	p.queue = p.queue[1:]
	return d, nil
}

func TestDealInterleaves(t *testing.T) {
	obs := &recorder{}
	r := NewRound("t-1", scripted(c(Two), c(Three), c(Four), c(Five)), 90, 10)
	require.NoError(t, r.Step(obs))

	assert.Equal(t, []Card{c(Two), c(Four)}, r.Player.Cards)
	assert.Equal(t, []Card{c(Three), c(Five)}, r.Dealer.Cards)
	assert.Equal(t, []bool{false, false, false, true}, obs.hidden, "dealer hole card is dealt hidden")
	assert.Equal(t, PlayerDeciding, r.State)
	assert.Len(t, r.History, 4)
}

func TestDealBlackjacks(t *testing.T) {
	tests := []struct {
		name           string
		p1, d1, p2, d2 Rank
		outcome        Outcome
		delta          int
	}{
		{"player blackjack", Ace, Nine, King, Seven, PlayerBlackjack, 25},
		{"both blackjack", Ace, Ace, Queen, Ten, PushBlackjack, 10},
		{"dealer blackjack", Nine, Ace, Nine, Jack, DealerBlackjack, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := dealt(t, 90, 10, tt.p1, tt.d1, tt.p2, tt.d2)
			assert.Equal(t, Settled, r.State)
			assert.Equal(t, tt.outcome, r.Outcome)
			assert.Equal(t, tt.delta, r.Delta())
			assert.Empty(t, r.Legal())
		})
	}
}

func TestNaturalTurnsHoleCard(t *testing.T) {
	tests := []struct {
		name           string
		p1, d1, p2, d2 Rank
	}{
		{"player blackjack", Ace, Nine, King, Seven},
		{"dealer blackjack", Nine, Ace, Nine, Jack},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recorder{}
			r := NewRound("t-1", scripted(c(tt.p1), c(tt.d1), c(tt.p2), c(tt.d2)), 90, 10)
			require.NoError(t, r.Step(obs))

			assert.Equal(t, Settled, r.State)
			assert.Equal(t, []bool{false, false, false, true, false}, obs.hidden)
			assert.Equal(t, c(tt.d2), obs.reveals[4])
			assert.Len(t, r.History, 4, "turning the hole card draws nothing")
		})
	}
}

func TestDealAceAceIsNotBlackjack(t *testing.T) {
	r := dealt(t, 90, 10, Ace, Nine, Ace, Seven)
	assert.Equal(t, 12, r.Player.Value())
	assert.Equal(t, PlayerDeciding, r.State)
	assert.NotEqual(t, PlayerBlackjack, r.Outcome)
}

func TestFirstDecisionOffersExtras(t *testing.T) {
	r := dealt(t, 90, 10, Five, Nine, Four, Seven, Two)
	assert.Equal(t, []Decision{Stand, Hit, Surrender, DoubleDown}, r.Legal())

	require.NoError(t, r.Apply(Hit, NopObserver{}))
	assert.Equal(t, []Decision{Stand, Hit}, r.Legal())

	err := r.Apply(Surrender, NopObserver{})
	assert.ErrorIs(t, err, ErrInvalidDecision)
	err = r.Apply(DoubleDown, NopObserver{})
	assert.ErrorIs(t, err, ErrInvalidDecision)
	assert.ErrorIs(t, r.Apply("split", NopObserver{}), ErrInvalidDecision)
}

func TestSurrenderRefundsHalf(t *testing.T) {
	r := dealt(t, 90, 10, Ten, Nine, Six, Eight)
	require.NoError(t, r.Apply(Surrender, NopObserver{}))
	assert.Equal(t, Settled, r.State)
	assert.Equal(t, PlayerSurrendered, r.Outcome)
	assert.Equal(t, 5, r.Delta())
	assert.Len(t, r.Dealer.Cards, 2, "dealer does not play after a surrender")
}

func TestDoubleDownWithExactFunds(t *testing.T) {
	// wallet equals bet after the bet was placed
	r := dealt(t, 10, 10, Five, Nine, Six, Eight, Ten)
	require.NoError(t, r.Apply(DoubleDown, NopObserver{}))
	assert.Equal(t, 20, r.Bet)
	assert.Len(t, r.Player.Cards, 3)
	assert.Equal(t, DealerResolving, r.State, "exactly one card then the dealer plays")

	require.NoError(t, r.Step(NopObserver{}))
	assert.Equal(t, PlayerWin, r.Outcome)
	// debited 10, credited 2*20
	assert.Equal(t, 30, r.Delta())
	assert.Equal(t, 40, r.Wallet)
}

func TestDoubleDownInsufficientFunds(t *testing.T) {
	r := dealt(t, 9, 10, Five, Nine, Six, Eight)
	before := *r
	legal := r.Legal()

	err := r.Apply(DoubleDown, NopObserver{})
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, legal, r.Legal())
	assert.Equal(t, before.Wallet, r.Wallet)
	assert.Equal(t, before.Bet, r.Bet)
	assert.Equal(t, before.State, r.State)
	assert.Equal(t, 0, r.Decisions())
	assert.Len(t, r.Player.Cards, 2)
}

func TestDoubleDownLowTotalStillStops(t *testing.T) {
	r := dealt(t, 90, 10, Two, Nine, Three, Eight, Two)
	require.NoError(t, r.Apply(DoubleDown, NopObserver{}))
	assert.Equal(t, 7, r.Player.Value())
	assert.Equal(t, DealerResolving, r.State)
}

func TestDoubleDownBust(t *testing.T) {
	r := dealt(t, 90, 10, Ten, Nine, Six, Eight, King)
	require.NoError(t, r.Apply(DoubleDown, NopObserver{}))
	assert.Equal(t, PlayerBust, r.Outcome)
	assert.Equal(t, -10, r.Delta())
}

func TestHitBust(t *testing.T) {
	r := dealt(t, 90, 10, Ten, Nine, Six, Eight, Queen)
	require.NoError(t, r.Apply(Hit, NopObserver{}))
	assert.Equal(t, Settled, r.State)
	assert.Equal(t, PlayerBust, r.Outcome)
	assert.Equal(t, 0, r.Delta())
	assert.Len(t, r.Dealer.Cards, 2)
}

func TestHitToTwentyOneEndsDecisions(t *testing.T) {
	r := dealt(t, 90, 10, Five, Nine, Six, Eight, King)
	require.NoError(t, r.Apply(Hit, NopObserver{}))
	assert.Equal(t, 21, r.Player.Value())
	assert.Equal(t, DealerResolving, r.State)
	assert.Empty(t, r.Legal())
}

func TestHitBelowTwentyOneKeepsDeciding(t *testing.T) {
	r := dealt(t, 90, 10, Five, Nine, Six, Eight, Two)
	require.NoError(t, r.Apply(Hit, NopObserver{}))
	assert.Equal(t, PlayerDeciding, r.State)
}

func TestDealerDrawBoundary(t *testing.T) {
	tests := []struct {
		name   string
		d1, d2 Rank
		extra  []Rank
		final  int
		cards  int
	}{
		{"stands on 17", Ten, Seven, nil, 17, 2},
		{"stands on 18", Ten, Eight, nil, 18, 2},
		{"stands on soft 17", Ace, Six, nil, 17, 2},
		{"draws on 16", Ten, Six, []Rank{Two}, 18, 3},
		{"draws until 17", Two, Three, []Rank{Two, Two, Two, Six}, 17, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := dealt(t, 90, 10, Ten, tt.d1, Nine, tt.d2, tt.extra...)
			require.NoError(t, r.Apply(Stand, NopObserver{}))
			require.NoError(t, r.Step(NopObserver{}))
			assert.Equal(t, tt.final, r.Dealer.Value())
			assert.Len(t, r.Dealer.Cards, tt.cards)
		})
	}
}

func TestPushReturnsBet(t *testing.T) {
	r := dealt(t, 90, 10, Nine, Ten, Nine, Eight)
	require.NoError(t, r.Apply(Stand, NopObserver{}))
	require.NoError(t, r.Step(NopObserver{}))
	assert.Equal(t, Push, r.Outcome)
	assert.Equal(t, 10, r.Delta())
}

func TestDealerWins(t *testing.T) {
	r := dealt(t, 90, 10, Ten, Ten, Seven, Nine)
	require.NoError(t, r.Apply(Stand, NopObserver{}))
	require.NoError(t, r.Step(NopObserver{}))
	assert.Equal(t, DealerWin, r.Outcome)
	assert.Equal(t, 0, r.Delta())
}

func TestStepGuards(t *testing.T) {
	r := dealt(t, 90, 10, Ten, Ten, Seven, Nine)
	assert.ErrorIs(t, r.Step(NopObserver{}), ErrNotAutomatic)

	r = dealt(t, 90, 10, Ace, Nine, King, Seven)
	assert.ErrorIs(t, r.Step(NopObserver{}), ErrNotAutomatic)
	assert.ErrorIs(t, r.Apply(Stand, NopObserver{}), ErrInvalidDecision)
}

func TestPlayStandDealerStandsOnSeventeen(t *testing.T) {
	obs := &recorder{}
	p := &decisions{queue: []Decision{Stand}}
	r := NewRound("t-1", scripted(c(Nine), c(Ten), c(Nine), c(Seven)), 90, 10)

	require.NoError(t, Play(r, p, obs))
	assert.Equal(t, PlayerWin, obs.outcome)
	assert.Equal(t, 20, obs.delta)
	assert.Equal(t, 1, obs.reported)
}

func TestPlayDealerBusts(t *testing.T) {
	obs := &recorder{}
	p := &decisions{queue: []Decision{Stand}}
	r := NewRound("t-1", scripted(c(Nine), c(Ten), c(Nine), c(Six), c(Six)), 90, 10)

	require.NoError(t, Play(r, p, obs))
	assert.Equal(t, 22, r.Dealer.Value())
	assert.Equal(t, PlayerWin, obs.outcome)
	assert.Equal(t, 20, obs.delta)
	// hole card is revealed face up when the dealer plays
	assert.Equal(t, c(Six), obs.reveals[4])
	assert.False(t, obs.hidden[4])
}

func TestPlayReoffersAfterRejection(t *testing.T) {
	obs := &recorder{}
	p := &decisions{queue: []Decision{"bogus", DoubleDown, Stand}}
	r := NewRound("t-1", scripted(c(Nine), c(Ten), c(Nine), c(Eight)), 5, 10)

	require.NoError(t, Play(r, p, obs))
	require.Len(t, obs.rejected, 2)
	assert.ErrorIs(t, obs.rejected[0], ErrInvalidDecision)
	assert.ErrorIs(t, obs.rejected[1], ErrInsufficientFunds)
	require.Len(t, p.asked, 3)
	assert.Equal(t, p.asked[0], p.asked[1])
	assert.Equal(t, p.asked[1], p.asked[2])
	assert.Equal(t, Push, obs.outcome)
}

func TestPlayProviderFailure(t *testing.T) {
	p := &decisions{}
	r := NewRound("t-1", scripted(c(Nine), c(Ten), c(Nine), c(Eight)), 90, 10)
	err := Play(r, p, nil)
	require.Error(t, err)
	assert.Equal(t, PlayerDeciding, r.State)
}

func TestViewHidesHoleCard(t *testing.T) {
	r := dealt(t, 90, 10, Ace, Nine, Six, Eight)
	v := r.View()
	assert.Equal(t, c(Nine), v.DealerUp)
	assert.Equal(t, 17, v.PlayerValue)
	assert.True(t, v.Soft)
	assert.True(t, v.First)
	assert.Equal(t, 90, v.Wallet)
}

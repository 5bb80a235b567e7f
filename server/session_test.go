package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"blackjack-table/server/agent"
	"blackjack-table/server/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type script struct {
	ids []engine.Card
	pos int
}

func (s *script) Intn(n int) int {
	if s.pos >= len(s.ids) {
		panic("script exhausted")
	}
	c := s.ids[s.pos]
	s.pos++
	return int(c) % n
}

// deckOf deals spades of the given ranks in order.
func deckOf(ranks ...engine.Rank) *engine.Deck {
	cards := make([]engine.Card, len(ranks))
	for i, r := range ranks {
		cards[i] = engine.NewCard(r, engine.Spades)
	}
	return engine.NewDeckFrom(&script{ids: cards})
}

type queue []engine.Decision

func (q *queue) RequestDecision(engine.View, []engine.Decision) (engine.Decision, error) {
	if len(*q) == 0 {
		return "", errors.New("empty queue")
	}
	d := (*q)[0]
	*q = (*q)[1:]
	return d, nil
}

func TestSessionBetAndSettle(t *testing.T) {
	s := NewSession(100, 10)
	require.True(t, s.CanBet())

	r := s.NewRound(deckOf(engine.Ten, engine.Ten, engine.Eight, engine.Seven))
	assert.Equal(t, 90, s.Wallet)
	assert.Equal(t, 90, r.Wallet)
	assert.Equal(t, 1, s.Rounds())
	assert.True(t, strings.HasPrefix(r.ID, s.ID.String()[:8]+"-"))
	assert.True(t, strings.HasSuffix(r.ID, "-1"))

	q := queue{engine.Stand}
	require.NoError(t, engine.Play(r, &q, nil))
	assert.Equal(t, engine.PlayerWin, r.Outcome)

	s.Settle(r)
	assert.Equal(t, 110, s.Wallet)
	assert.Equal(t, 1, s.Stats.Wins)
	assert.Equal(t, 10, s.Stats.Net)
}

func TestSessionCanBet(t *testing.T) {
	assert.True(t, NewSession(10, 10).CanBet())
	assert.False(t, NewSession(9, 10).CanBet())
	assert.False(t, NewSession(0, 10).CanBet())
}

type fakeLobby struct {
	answers []bool
	wallets []int
	broke   bool
}

func (l *fakeLobby) ShowWallet(w int) { l.wallets = append(l.wallets, w) }
func (l *fakeLobby) Broke()           { l.broke = true }
func (l *fakeLobby) PlaceBet(int) bool {
	if len(l.answers) == 0 {
		return false
	}
	a := l.answers[0]
	l.answers = l.answers[1:]
	return a
}

func TestTableStopsWhenBroke(t *testing.T) {
	// two dealer blackjacks take the whole wallet
	deck := deckOf(
		engine.Two, engine.Ace, engine.Three, engine.King,
		engine.Two, engine.Ace, engine.Three, engine.King,
	)
	lobby := &fakeLobby{answers: []bool{true, true, true}}
	tb := &Table{Session: NewSession(20, 10), Deck: deck, Player: &queue{}, Observer: engine.NopObserver{}, Lobby: lobby}
	require.NoError(t, tb.Run(context.Background()))

	assert.True(t, lobby.broke)
	assert.Equal(t, []int{20, 10, 0}, lobby.wallets)
	assert.Equal(t, 2, tb.Session.Stats.Losses)
}

func TestTableQuitsOnDecline(t *testing.T) {
	lobby := &fakeLobby{answers: []bool{false}}
	tb := &Table{Session: NewSession(100, 10), Deck: engine.NewDeck(1), Player: &queue{}, Observer: engine.NopObserver{}, Lobby: lobby}
	require.NoError(t, tb.Run(context.Background()))
	assert.Equal(t, 100, tb.Session.Wallet)
	assert.Equal(t, 0, tb.Session.Rounds())
	assert.False(t, lobby.broke)
}

func TestTableProviderFailureLosesBet(t *testing.T) {
	lobby := &fakeLobby{answers: []bool{true}}
	deck := deckOf(engine.Ten, engine.Nine, engine.Five, engine.Seven)
	tb := &Table{Session: NewSession(100, 10), Deck: deck, Player: &queue{}, Observer: engine.NopObserver{}, Lobby: lobby}
	err := tb.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 90, tb.Session.Wallet)
	assert.Equal(t, 0, tb.Session.Stats.Rounds)
}

func TestTableCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	lobby := &fakeLobby{answers: []bool{true}}
	tb := &Table{Session: NewSession(100, 10), Deck: engine.NewDeck(1), Player: &queue{}, Observer: engine.NopObserver{}, Lobby: lobby}
	require.NoError(t, tb.Run(ctx))
	assert.Empty(t, lobby.wallets)
}

func TestTableAutoPlayConservesMoney(t *testing.T) {
	con := NewConsole(strings.NewReader(""), io.Discard)
	con.auto = agent.BasicStrategy{}
	tb := &Table{
		Session:   NewSession(100, 10),
		Deck:      engine.NewDeck(99),
		Player:    con,
		Observer:  con,
		Lobby:     autoLobby{con},
		MaxRounds: 50,
	}
	require.NoError(t, tb.Run(context.Background()))

	s := tb.Session
	assert.LessOrEqual(t, s.Rounds(), 50)
	assert.Equal(t, s.Rounds(), s.Stats.Rounds)
	assert.Equal(t, 100+s.Stats.Net, s.Wallet)
	assert.Equal(t, s.Stats.Rounds, s.Stats.Wins+s.Stats.Losses+s.Stats.Pushes+s.Stats.Surrenders)
	if s.Rounds() < 50 {
		assert.False(t, s.CanBet())
	}
}

func TestPlaySessionAutoPrintsSummary(t *testing.T) {
	var out bytes.Buffer
	cfg := Config{WalletStart: 1000, BetAmount: 10, DeckSeed: 5, MaxRounds: 10, Auto: true}
	s := playSession(context.Background(), cfg, nil, strings.NewReader(""), &out)
	assert.Equal(t, 10, s.Rounds())
	assert.Contains(t, out.String(), "Session summary")
	assert.Contains(t, out.String(), "Win rate:")
}

func TestPlaySessionLLMStands(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": `{"action":"stand","comment":"hold"}`}}},
		})
	}))
	defer srv.Close()
	for _, k := range []string{"LLM_PROVIDER", "OPENAI_BASE_URL", "OPENROUTER_API_KEY", "OPENROUTER_API_BASE", "OPENROUTER_BASE_URL"} {
		t.Setenv(k, "")
	}
	t.Setenv("OPENAI_API_BASE", srv.URL)
	t.Setenv("OPENAI_API_KEY", "test-key")

	var out bytes.Buffer
	cfg := Config{WalletStart: 1000, BetAmount: 10, DeckSeed: 5, MaxRounds: 10, LLM: true, LLMModel: "gpt-4o-mini"}
	s := playSession(context.Background(), cfg, nil, strings.NewReader(""), &out)

	assert.Equal(t, 10, s.Rounds())
	assert.Positive(t, calls.Load())
	assert.Contains(t, out.String(), "You stand.")
	assert.NotContains(t, out.String(), "You hit.")
	assert.Contains(t, out.String(), "Session summary")
}

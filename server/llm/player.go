package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"blackjack-table/server/agent"
	"blackjack-table/server/engine"
)

const playerSystem = `You are playing single-player blackjack against a dealer who stands on 17.
Blackjack pays 3:2. Surrender returns half the bet. Double down doubles the bet and draws exactly one card.
The dealer's hole card is hidden from you. Answer with JSON only.`

// Player is an engine.DecisionProvider backed by a chat model. A failed
// call, or an answer agent.Validate rejects, is played by Fallback instead.
type Player struct {
	Model    string
	Fallback agent.BasicStrategy
	Timeout  time.Duration
	Debug    bool

	ctx context.Context
}

func NewPlayer(ctx context.Context, model string, debug bool) *Player {
	return &Player{
		Model:    model,
		Fallback: agent.BasicStrategy{Debug: debug},
		Timeout:  40 * time.Second,
		Debug:    debug,
		ctx:      ctx,
	}
}

func (p *Player) RequestDecision(v engine.View, legal []engine.Decision) (engine.Decision, error) {
	o := agent.BuildObservation(v, legal)
	a, err := p.ask(o)
	if err == nil {
		err = agent.Validate(o, a)
	}
	if err != nil {
		log.Printf("llm fallback for %s: %v", o.RoundID, err)
		return p.Fallback.RequestDecision(v, legal)
	}
	if p.Debug {
		log.Printf("llm %s: %v (%d) vs %s -> %s %q", o.RoundID, o.Hand, o.Total, o.DealerUp, a.Action, a.Comment)
	}
	return engine.Decision(a.Action), nil
}

func (p *Player) ask(o agent.Observation) (agent.ActionOut, error) {
	ctx := p.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 40 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	a, raw, err := PingChooseAction(ctx, p.Model, playerSystem, userPrompt(o), o.Legal, envPingOptions())
	if p.Debug && raw != "" {
		log.Printf("llm raw: %s", raw)
	}
	return a, err
}

func userPrompt(o agent.Observation) string {
	obsRaw, _ := json.Marshal(o)
	return fmt.Sprintf(
		`Given this observation JSON:
%s

Respond ONLY with a single compact JSON object:
{"action":"%s","comment":"<short reason>"}
Rules:
- Allowed actions are exactly %v (nothing else).
- "double" needs a wallet of at least the bet.
- Keep "comment" under 120 characters. No extra keys. No prose. No markdown.`,
		string(obsRaw),
		strings.Join(o.Legal, `"|"`),
		o.Legal,
	)
}

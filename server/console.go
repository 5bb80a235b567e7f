package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"blackjack-table/server/engine"

	"github.com/pterm/pterm"
)

//
// ===== pretty printing =====
//

func bold(s string) string { return pterm.Bold.Sprint(s) }
func dim(s string) string  { return pterm.Gray(s) }
func good(s string) string { return pterm.Green(s) }
func warn(s string) string { return pterm.Yellow(s) }
func bad(s string) string  { return pterm.Red(s) }
func cyan(s string) string { return pterm.Cyan(s) }

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s %s %s\n", dim("──"), bold(title), dim("──"))
}

func cardTag(c engine.Card) string {
	switch c.Suit() {
	case engine.Hearts, engine.Diamonds:
		return c.Rank().String() + pterm.LightRed(c.Suit().String())
	}
	return c.String()
}

// handLine renders cards the way the table shows them; the hole card is "??".
func handLine(h *engine.Hand, hideHole bool) string {
	parts := make([]string, len(h.Cards))
	for i, c := range h.Cards {
		if hideHole && i == 1 {
			parts[i] = "??"
			continue
		}
		parts[i] = cardTag(c)
	}
	return strings.Join(parts, " ")
}

var decisionKeys = map[string]engine.Decision{
	"t": engine.Stand,
	"h": engine.Hit,
	"r": engine.Surrender,
	"d": engine.DoubleDown,
}

// Console is the keyboard table. It shows the round as an engine.Observer,
// asks for decisions as an engine.DecisionProvider and runs the bet prompt
// as the session Lobby.
type Console struct {
	in    *bufio.Scanner
	out   io.Writer
	auto  engine.DecisionProvider // when set, decisions come from here
	debug bool

	dealt      int
	decided    bool // dealer play only follows a player decision
	dealerTurn bool
}

func NewConsole(r io.Reader, w io.Writer) *Console {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	return &Console{in: sc, out: w}
}

func (c *Console) printf(format string, args ...any) { fmt.Fprintf(c.out, format, args...) }

// next returns the next whitespace-separated token from input.
func (c *Console) next() (string, error) {
	if c.in.Scan() {
		return c.in.Text(), nil
	}
	if err := c.in.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

/* -----------------------------
   engine.Observer
------------------------------*/

func (c *Console) RevealCard(seat engine.Seat, card engine.Card, hidden bool) {
	c.dealt++
	if c.debug {
		tag := cardTag(card)
		if hidden {
			tag = "??"
		}
		c.printf("%s %s <- %s\n", dim("[deal]"), seat, tag)
	}
	if seat != engine.Dealer || c.dealt <= 4 || !c.decided {
		return
	}
	if !c.dealerTurn {
		// first dealer card after the deal is the hole card being turned
		c.dealerTurn = true
		c.printf("\nDealer's turn...\n")
		return
	}
	c.printf("Dealer hits.\n")
}

func (c *Console) ShowHand(seat engine.Seat, h *engine.Hand, hideHole bool) {
	who := "Your hand: "
	if seat == engine.Dealer {
		who = "Dealer's hand: "
	}
	if hideHole {
		c.printf("%s%s\t\t(Value = ?? )\n\n", who, handLine(h, true))
		return
	}
	c.printf("%s%s\t\t(Value = %d)\n", who, handLine(h, false), h.Value())
}

func (c *Console) Rejected(d engine.Decision, err error) {
	if errors.Is(err, engine.ErrInsufficientFunds) {
		c.printf("%s\n", warn("You don't have enough funds."))
		return
	}
	c.printf("%s\n", warn("Huh?"))
}

func (c *Console) ReportOutcome(o engine.Outcome, walletDelta int) {
	var msg string
	switch o {
	case engine.PlayerBlackjack:
		msg = good("You have Blackjack! You win!!")
	case engine.PushBlackjack:
		msg = cyan("You and the Dealer both have Blackjack! It's a tie.")
	case engine.DealerBlackjack:
		msg = bad("Dealer has Blackjack!")
	case engine.PlayerSurrendered:
		msg = warn(fmt.Sprintf("You get back $%d.", walletDelta))
	case engine.PlayerBust:
		msg = bad("You bust.")
	case engine.PlayerWin:
		msg = good("You win!")
	case engine.DealerWin:
		msg = bad("Dealer wins.")
	case engine.Push:
		msg = cyan("It's a tie.")
	}
	c.printf("%s\n", msg)
	c.dealt, c.decided, c.dealerTurn = 0, false, false
}

/* -----------------------------
   engine.DecisionProvider
------------------------------*/

func (c *Console) RequestDecision(v engine.View, legal []engine.Decision) (engine.Decision, error) {
	c.decided = true
	if c.auto != nil {
		d, err := c.auto.RequestDecision(v, legal)
		if err == nil {
			c.echo(d, v)
		}
		return d, err
	}
	allowed := map[engine.Decision]bool{}
	for _, d := range legal {
		allowed[d] = true
	}
	for {
		c.printf("*** Your Choices: s(t)and / (h)it")
		if allowed[engine.Surrender] && allowed[engine.DoubleDown] {
			c.printf(" / su(r)render / (d)ouble down")
		}
		c.printf("\n>")

		tok, err := c.next()
		if err != nil {
			return "", fmt.Errorf("read decision: %w", err)
		}
		d, ok := decisionKeys[strings.ToLower(tok)]
		if !ok || !allowed[d] {
			c.printf("%s\n", warn("Huh?"))
			continue
		}
		c.echo(d, v)
		return d, nil
	}
}

// echo confirms a decision the engine will accept. A double down without
// funds is left for Rejected to explain.
func (c *Console) echo(d engine.Decision, v engine.View) {
	switch d {
	case engine.Stand:
		c.printf("You stand.\n")
	case engine.Hit:
		c.printf("You hit.\n")
	case engine.Surrender:
		c.printf("You surrender.\n")
	case engine.DoubleDown:
		if v.Wallet >= v.Bet {
			c.printf("You double down.\n")
		}
	}
}

/* -----------------------------
   Lobby
------------------------------*/

func (c *Console) ShowWallet(wallet int) {
	c.printf("\n*************************\nYour wallet: %s\n", bold(fmt.Sprintf("$%d", wallet)))
}

func (c *Console) Broke() { c.printf("%s\n", bad("You're broke! Cya.")) }

func (c *Console) PlaceBet(bet int) bool {
	c.printf("Press (b) to bet $%d or any other key to quit.\n>", bet)
	tok, err := c.next()
	if err != nil || strings.ToLower(tok) != "b" {
		c.printf("Bye.\n")
		return false
	}
	return true
}

// autoLobby bets every round without asking.
type autoLobby struct{ *Console }

func (a autoLobby) PlaceBet(bet int) bool {
	a.printf("%s\n", dim(fmt.Sprintf("auto bet $%d", bet)))
	return true
}

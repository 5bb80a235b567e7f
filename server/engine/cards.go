package engine

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const (
	NumSuits        = 4
	NumCardsPerSuit = 13
	NumCardsPerDeck = NumSuits * NumCardsPerSuit
)

const (
	faceLabels = "23456789TJQKA"
	suitLabels = "HDCS"
)

func NewCard(r Rank, s Suit) Card { return Card(uint8(s)*NumCardsPerSuit + uint8(r)) }

func (c Card) Rank() Rank { return Rank(c % NumCardsPerSuit) }
func (c Card) Suit() Suit { return Suit(c / NumCardsPerSuit) }

// Value is the hard blackjack value of the rank; an Ace counts 11 here and is
// reduced by Hand.Value when needed.
func (r Rank) Value() int {
	switch {
	case r < Ten:
		return int(r) + 2
	case r < Ace:
		return 10
	default:
		return 11
	}
}

func (r Rank) String() string {
	if r == Ten {
		return "10"
	}
	return string(faceLabels[r%NumCardsPerSuit])
}

func (s Suit) String() string { return string(suitLabels[s%NumSuits]) }

func (c Card) String() string { return c.Rank().String() + c.Suit().String() }

// ParseCard reads the String form back ("10H", "AS", "7c"). "T" is accepted for ten.
func ParseCard(s string) (Card, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 || len(s) > 3 {
		return 0, fmt.Errorf("bad card %q", s)
	}
	face, suit := s[:len(s)-1], s[len(s)-1]
	if face == "10" {
		face = "T"
	}
	if len(face) != 1 {
		return 0, fmt.Errorf("bad card %q", s)
	}
	r := strings.IndexByte(faceLabels, face[0])
	u := strings.IndexByte(suitLabels, suit)
	if r < 0 || u < 0 {
		return 0, fmt.Errorf("bad card %q", s)
	}
	return NewCard(Rank(r), Suit(u)), nil
}

// Source is the random stream a Deck samples from. *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Deck is an endless single-deck draw source: every draw is an independent
// uniform sample over the 52 identities (with replacement, never depletes).
type Deck struct {
	src Source
}

func NewDeck(seed int64) *Deck {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewDeckFrom(rand.New(rand.NewSource(seed)))
}

func NewDeckFrom(src Source) *Deck { return &Deck{src: src} }

func (d *Deck) Draw() Card { return Card(d.src.Intn(NumCardsPerDeck)) }

func (c Card) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Card) UnmarshalText(b []byte) error {
	v, err := ParseCard(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

package engine

type Seat string

const (
	Player Seat = "player"
	Dealer Seat = "dealer"
)

type Decision string

const (
	Stand      Decision = "stand"
	Hit        Decision = "hit"
	Surrender  Decision = "surrender"
	DoubleDown Decision = "double"
)

type State string

const (
	Dealing         State = "dealing"
	PlayerDeciding  State = "player_deciding"
	DealerResolving State = "dealer_resolving"
	Settled         State = "settled"
)

type Outcome string

const (
	Pending           Outcome = ""
	PlayerBlackjack   Outcome = "player_blackjack"
	PushBlackjack     Outcome = "push_blackjack"
	DealerBlackjack   Outcome = "dealer_blackjack"
	PlayerSurrendered Outcome = "player_surrendered"
	PlayerBust        Outcome = "player_bust"
	PlayerWin         Outcome = "player_win"
	DealerWin         Outcome = "dealer_win"
	Push              Outcome = "push"
)

// Won reports whether the outcome pays the player more than the bet back.
func (o Outcome) Won() bool { return o == PlayerBlackjack || o == PlayerWin }

// Lost reports whether the player forfeits the whole bet.
func (o Outcome) Lost() bool {
	return o == DealerBlackjack || o == PlayerBust || o == DealerWin
}

// ActionKind tags History entries: a card dealt/drawn or a player decision.
type ActionKind string

const (
	Deal   ActionKind = "deal"
	Draw   ActionKind = "draw"
	Decide ActionKind = "decide"
)

type Action struct {
	Seat     Seat       `json:"seat"`
	Kind     ActionKind `json:"kind"`
	Card     *Card      `json:"card,omitempty"`
	Decision Decision   `json:"decision,omitempty"`
}

// Card is an identity in [0,52): suit = id/13, rank = id%13.
type Card uint8

type Rank uint8

// Ranks 0..7 are the numeric cards 2..9.
const (
	Two Rank = iota
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

type Suit uint8

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

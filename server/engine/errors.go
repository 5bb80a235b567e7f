package engine

import "errors"

// Recoverable decision failures: the round is left untouched and the same
// decision set must be offered again.
var (
	ErrInvalidDecision   = errors.New("invalid decision")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// ErrNotAutomatic is returned by Step when the round is waiting on the player
// or already settled.
var ErrNotAutomatic = errors.New("no automatic transition in this state")

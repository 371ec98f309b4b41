package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRoundState is returned when no bidder produced a bid in a round.
	ErrInvalidRoundState = errors.New("invalid round state: no bids received")

	// ErrUncontestedRound is returned under UncontestedReject when a round
	// has a single real bid and therefore no second price.
	ErrUncontestedRound = errors.New("uncontested round: no second price available")

	// ErrInvalidBid is returned when a bidder offers an infinite price.
	ErrInvalidBid = errors.New("invalid bid: price must be finite")

	ErrNoUsers           = errors.New("auction requires at least one user")
	ErrNoBidders         = errors.New("auction requires at least one bidder")
	ErrInvalidPropensity = errors.New("propensity must be within [0, 1]")
)

// UserID identifies a user within a population. IDs are assigned by
// NewPopulation in creation order starting at zero.
type UserID int

// Notification is delivered to every bidder at the end of a round.
type Notification struct {
	Round int     `json:"round"`
	Won   bool    `json:"won"`
	Price float64 `json:"price"`

	// Clicked is set only on the winner's notification.
	Clicked *bool `json:"clicked,omitempty"`
}

// Bidder is the capability the auction consumes. Strategies live outside
// this package; the auction only asks for bids and reports outcomes.
type Bidder interface {
	// Bid returns the bidder's price for showing an ad to user, or nil to
	// decline the round.
	Bid(user UserID) (*float64, error)

	// Notify reports the round outcome to the bidder.
	Notify(n Notification) error
}

// RoundRecord is a single history entry. Every round appends one record per
// bidder, in bidder order.
type RoundRecord struct {
	Bidder     int      `json:"bidder" cbor:"bidder"`
	BidderName string   `json:"bidder_name" cbor:"bidder_name"`
	Round      int      `json:"round" cbor:"round"`
	Bid        *float64 `json:"bid" cbor:"bid"`
	User       UserID   `json:"user" cbor:"user"`
	Clicked    *bool    `json:"clicked,omitempty" cbor:"clicked,omitempty"`
	Balance    float64  `json:"balance" cbor:"balance"`
}

// RoundOutcome summarizes a completed round.
type RoundOutcome struct {
	Round         int
	User          UserID
	Winner        int
	ClearingPrice float64

	// Uncontested is true when no other bidder placed a real bid, so the
	// clearing price was resolved by the uncontested policy.
	Uncontested bool
	Clicked     bool

	// Bids holds the clamped bid of every bidder, nil where the bidder declined.
	Bids []*float64
}

// UncontestedPolicy decides how a round with a single real bid is priced.
type UncontestedPolicy int

const (
	// UncontestedZero charges nothing when there is no second bid.
	UncontestedZero UncontestedPolicy = iota

	// UncontestedReject fails the round with ErrUncontestedRound.
	UncontestedReject
)

// ParseUncontestedPolicy maps "zero" and "reject" to their policies.
func ParseUncontestedPolicy(s string) (UncontestedPolicy, error) {
	switch s {
	case "", "zero":
		return UncontestedZero, nil
	case "reject":
		return UncontestedReject, nil
	default:
		return UncontestedZero, fmt.Errorf("unknown uncontested policy %q", s)
	}
}

func (p UncontestedPolicy) String() string {
	if p == UncontestedReject {
		return "reject"
	}
	return "zero"
}

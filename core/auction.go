package core

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/shopspring/decimal"
)

// Options configures an Auction. The zero value uses the crypto random
// source, the UncontestedZero policy and no logging.
type Options struct {
	Rand        RandSource
	Uncontested UncontestedPolicy
	Logger      *slog.Logger
}

// Auction runs repeated second-price rounds over a fixed set of users and
// bidders. It is not safe for concurrent use; rounds execute strictly in order.
type Auction struct {
	users   []*User
	bidders []Bidder
	names   []string

	ledger  *ledger
	history []RoundRecord
	round   int

	randSource RandSource
	policy     UncontestedPolicy
	logger     *slog.Logger
}

// NewAuction creates an auction at round 1 with every balance at zero.
func NewAuction(users []*User, bidders []Bidder, opts Options) (*Auction, error) {
	if len(users) == 0 {
		return nil, ErrNoUsers
	}
	if len(bidders) == 0 {
		return nil, ErrNoBidders
	}

	randSource := opts.Rand
	if randSource == nil {
		randSource = defaultRandSource
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	names := make([]string, len(bidders))
	for i, bidder := range bidders {
		names[i] = BidderName(bidder, i)
	}

	return &Auction{
		users:      users,
		bidders:    bidders,
		names:      names,
		ledger:     newLedger(len(bidders)),
		history:    make([]RoundRecord, 0),
		round:      1,
		randSource: randSource,
		policy:     opts.Uncontested,
		logger:     logger,
	}, nil
}

// BidderName labels a bidder for history records: its String() when it
// implements fmt.Stringer, otherwise "b<index>".
func BidderName(bidder Bidder, index int) string {
	if s, ok := bidder.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("b%d", index)
}

// ExecuteRound runs a single round.
//
// Processing flow:
//  1. Pick a user uniformly at random
//  2. Collect and clamp a bid from every bidder
//  3. Determine the winner and clearing price (see selectWinner)
//  4. Draw the user's click outcome once
//  5. Notify every bidder and settle balances: the winner gains 1-price on
//     a click or loses price otherwise, every other bidder resets to zero
//  6. Append one record per bidder and advance the round counter
//
// Balances, history and the round counter change only when the round
// completes. An error from a bidder aborts the round and is returned wrapped.
func (a *Auction) ExecuteRound() (*RoundOutcome, error) {
	user := a.users[a.randSource.Intn(len(a.users))]

	bids, err := a.collectBids(user.ID())
	if err != nil {
		return nil, err
	}

	winner, secondPrice, err := selectWinner(bids, a.randSource)
	if err != nil {
		return nil, fmt.Errorf("round %d: %w", a.round, err)
	}

	price, uncontested := secondPrice, false
	if math.IsInf(secondPrice, -1) {
		if a.policy == UncontestedReject {
			return nil, fmt.Errorf("round %d winner %s: %w", a.round, a.names[winner], ErrUncontestedRound)
		}
		price, uncontested = 0, true
	}

	clicked := user.ShowAd(a.randSource)

	balances := a.ledger.stage()
	for i, bidder := range a.bidders {
		notification := Notification{Round: a.round, Won: i == winner, Price: price}
		if i == winner {
			notification.Clicked = &clicked
			balances[i] = SettleWinner(balances[i], price, clicked)
		} else {
			balances[i] = decimal.Zero
		}

		if err := bidder.Notify(notification); err != nil {
			return nil, fmt.Errorf("notify bidder %s in round %d: %w", a.names[i], a.round, err)
		}
	}
	a.ledger.commit(balances)

	for i := range a.bidders {
		record := RoundRecord{
			Bidder:     i,
			BidderName: a.names[i],
			Round:      a.round,
			Bid:        bids[i],
			User:       user.ID(),
			Balance:    a.ledger.float(i),
		}
		if i == winner {
			c := clicked
			record.Clicked = &c
		}
		a.history = append(a.history, record)
	}

	outcome := &RoundOutcome{
		Round:         a.round,
		User:          user.ID(),
		Winner:        winner,
		ClearingPrice: price,
		Uncontested:   uncontested,
		Clicked:       clicked,
		Bids:          bids,
	}

	a.logger.Debug("round complete",
		slog.Int("round", a.round),
		slog.String("user", user.String()),
		slog.String("winner", a.names[winner]),
		slog.Float64("price", price),
		slog.Bool("uncontested", uncontested),
		slog.Bool("clicked", clicked))

	a.round++
	return outcome, nil
}

// collectBids asks every bidder in order and clamps the results. Negative
// infinity clamps to zero like any negative price.
func (a *Auction) collectBids(user UserID) ([]*float64, error) {
	raw := make([]*float64, len(a.bidders))
	for i, bidder := range a.bidders {
		bid, err := bidder.Bid(user)
		if err != nil {
			return nil, fmt.Errorf("bid from %s in round %d: %w", a.names[i], a.round, err)
		}
		if bid != nil && math.IsInf(*bid, 1) {
			return nil, fmt.Errorf("bid from %s in round %d: %w", a.names[i], a.round, ErrInvalidBid)
		}
		raw[i] = bid
	}
	return clampBids(raw), nil
}

// Run executes rounds until n have completed or one fails.
func (a *Auction) Run(n int) ([]*RoundOutcome, error) {
	outcomes := make([]*RoundOutcome, 0, n)
	for range n {
		outcome, err := a.ExecuteRound()
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// Round returns the number of the next round to execute, starting at 1.
func (a *Auction) Round() int {
	return a.round
}

// History returns a copy of the append-only round log.
func (a *Auction) History() []RoundRecord {
	history := make([]RoundRecord, len(a.history))
	copy(history, a.history)
	return history
}

// Balance returns the current balance of the bidder at index i.
func (a *Auction) Balance(i int) float64 {
	return a.ledger.float(i)
}

// Balances returns every bidder's balance in bidder order.
func (a *Auction) Balances() []float64 {
	balances := make([]float64, len(a.bidders))
	for i := range balances {
		balances[i] = a.ledger.float(i)
	}
	return balances
}

// Bidders returns the bidders in index order.
func (a *Auction) Bidders() []Bidder {
	return a.bidders
}

// BidderNames returns a copy of the record labels, in bidder order.
func (a *Auction) BidderNames() []string {
	names := make([]string, len(a.names))
	copy(names, a.names)
	return names
}

// Users returns the population rounds pick from.
func (a *Auction) Users() []*User {
	return a.users
}

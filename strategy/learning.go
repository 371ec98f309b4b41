package strategy

import (
	"fmt"

	"github.com/cloudx-io/clickauction/core"
)

// userStats counts impressions won and clicks observed for one user.
type userStats struct {
	shows  int
	clicks int
}

// LearningBidder estimates each user's click rate from the rounds it wins
// and bids that estimate scaled by Shade. With a click valued at 1, bidding
// the estimated rate is the break-even price.
//
// Unseen users start from a uniform Beta(1,1) prior, estimate 0.5.
type LearningBidder struct {
	Shade float64

	stats    map[core.UserID]*userStats
	lastUser core.UserID
	asked    bool
	wins     int
}

func NewLearningBidder(shade float64) (*LearningBidder, error) {
	if shade <= 0 {
		return nil, fmt.Errorf("learning bidder shade must be positive, got %.4f", shade)
	}
	return &LearningBidder{
		Shade: shade,
		stats: make(map[core.UserID]*userStats),
	}, nil
}

// Estimate returns the posterior mean click rate for user.
func (b *LearningBidder) Estimate(user core.UserID) float64 {
	s, ok := b.stats[user]
	if !ok {
		return 0.5
	}
	return float64(s.clicks+1) / float64(s.shows+2)
}

func (b *LearningBidder) Bid(user core.UserID) (*float64, error) {
	b.lastUser = user
	b.asked = true
	price := b.Estimate(user) * b.Shade
	return &price, nil
}

// Notify attributes a won impression to the user last bid on.
func (b *LearningBidder) Notify(n core.Notification) error {
	if !n.Won {
		return nil
	}
	if !b.asked {
		return fmt.Errorf("learning bidder notified of a win without a bid")
	}
	if n.Clicked == nil {
		return fmt.Errorf("learning bidder win notification in round %d is missing the click outcome", n.Round)
	}

	s, ok := b.stats[b.lastUser]
	if !ok {
		s = &userStats{}
		b.stats[b.lastUser] = s
	}
	s.shows++
	if *n.Clicked {
		s.clicks++
	}
	b.wins++
	return nil
}

func (b *LearningBidder) Wins() int {
	return b.wins
}

func (b *LearningBidder) String() string {
	return fmt.Sprintf("learning-%.2f", b.Shade)
}

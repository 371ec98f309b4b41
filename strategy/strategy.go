// Package strategy provides concrete bidders for the click auction. The
// auction core treats them as opaque core.Bidder capabilities.
package strategy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudx-io/clickauction/core"
)

// FixedBidder bids the same price for every user.
type FixedBidder struct {
	Price float64
}

func NewFixedBidder(price float64) *FixedBidder {
	return &FixedBidder{Price: price}
}

func (b *FixedBidder) Bid(core.UserID) (*float64, error) {
	price := b.Price
	return &price, nil
}

func (b *FixedBidder) Notify(core.Notification) error {
	return nil
}

func (b *FixedBidder) String() string {
	return fmt.Sprintf("fixed-%.2f", b.Price)
}

// UniformBidder bids uniformly in [Min, Max) using its own random source,
// separate from the auction's.
type UniformBidder struct {
	Min, Max   float64
	randSource core.RandSource
}

func NewUniformBidder(lo, hi float64, randSource core.RandSource) (*UniformBidder, error) {
	if hi < lo {
		return nil, fmt.Errorf("uniform bidder range [%.4f, %.4f) is empty", lo, hi)
	}
	if randSource == nil {
		return nil, fmt.Errorf("uniform bidder requires a random source")
	}
	return &UniformBidder{Min: lo, Max: hi, randSource: randSource}, nil
}

func (b *UniformBidder) Bid(core.UserID) (*float64, error) {
	price := b.Min + (b.Max-b.Min)*b.randSource.Float64()
	return &price, nil
}

func (b *UniformBidder) Notify(core.Notification) error {
	return nil
}

func (b *UniformBidder) String() string {
	return fmt.Sprintf("uniform-%.2f-%.2f", b.Min, b.Max)
}

// AbstainingBidder declines to bid on a fixed set of users and otherwise
// defers to Inner.
type AbstainingBidder struct {
	Inner core.Bidder
	Skip  map[core.UserID]bool
}

func (b *AbstainingBidder) Bid(user core.UserID) (*float64, error) {
	if b.Skip[user] {
		return nil, nil
	}
	return b.Inner.Bid(user)
}

func (b *AbstainingBidder) Notify(n core.Notification) error {
	return b.Inner.Notify(n)
}

func (b *AbstainingBidder) String() string {
	return "abstaining-" + core.BidderName(b.Inner, 0)
}

// Parse builds a bidder from a compact description:
//
//	fixed:<price>
//	uniform:<min>:<max>
//	learning[:<shade>]
//
// randSource feeds bidders that draw their own prices.
func Parse(desc string, randSource core.RandSource) (core.Bidder, error) {
	parts := strings.Split(strings.TrimSpace(desc), ":")
	params := make([]float64, 0, len(parts)-1)
	for _, p := range parts[1:] {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("parse bidder %q: %w", desc, err)
		}
		params = append(params, v)
	}

	switch strings.ToLower(parts[0]) {
	case "fixed":
		if len(params) != 1 {
			return nil, fmt.Errorf("parse bidder %q: fixed takes one price", desc)
		}
		return NewFixedBidder(params[0]), nil
	case "uniform":
		if len(params) != 2 {
			return nil, fmt.Errorf("parse bidder %q: uniform takes min and max", desc)
		}
		return NewUniformBidder(params[0], params[1], randSource)
	case "learning":
		shade := 1.0
		if len(params) == 1 {
			shade = params[0]
		} else if len(params) > 1 {
			return nil, fmt.Errorf("parse bidder %q: learning takes at most a shade factor", desc)
		}
		return NewLearningBidder(shade)
	default:
		return nil, fmt.Errorf("parse bidder %q: unknown strategy %q", desc, parts[0])
	}
}

// ParseAll parses a comma-separated list of bidder descriptions.
func ParseAll(list string, randSource core.RandSource) ([]core.Bidder, error) {
	bidders := make([]core.Bidder, 0)
	for _, desc := range strings.Split(list, ",") {
		if strings.TrimSpace(desc) == "" {
			continue
		}
		bidder, err := Parse(desc, randSource)
		if err != nil {
			return nil, err
		}
		bidders = append(bidders, bidder)
	}
	if len(bidders) == 0 {
		return nil, core.ErrNoBidders
	}
	return bidders, nil
}

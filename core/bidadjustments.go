package core

import "math"

// ClampBid treats any negative or NaN price as zero. A nil bid (declined)
// stays nil. Positive infinity passes through; collectBids rejects it.
func ClampBid(price *float64) *float64 {
	if price == nil {
		return nil
	}
	clamped := *price
	if clamped < 0 || math.IsNaN(clamped) {
		clamped = 0
	}
	return &clamped
}

// clampBids returns clamped copies so bidders cannot mutate recorded prices.
func clampBids(bids []*float64) []*float64 {
	result := make([]*float64, len(bids))
	for i, bid := range bids {
		result[i] = ClampBid(bid)
	}
	return result
}

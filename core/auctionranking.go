package core

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	mathrand "math/rand"
)

// RandSource provides every random draw an auction makes: user selection,
// tie-breaking and click outcomes. This interface enables dependency
// injection for deterministic testing.
type RandSource interface {
	// Intn returns a random integer in [0, n). Panics if n <= 0.
	Intn(n int) int

	// Float64 returns a random float in [0, 1).
	Float64() float64
}

// cryptoRandSource wraps crypto/rand for unseeded runs
type cryptoRandSource struct{}

// Intn returns a cryptographically secure random integer in [0, n).
// Panics if n <= 0 (programmer error).
func (cryptoRandSource) Intn(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("cryptoRandSource.Intn: n must be positive, got %d", n))
	}
	// rand.Int does not error when using rand.Reader
	// https://pkg.go.dev/crypto/rand#Int
	nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(nBig.Int64())
}

// Float64 returns a uniformly distributed float in [0, 1) with 53 bits of precision.
func (c cryptoRandSource) Float64() float64 {
	return float64(c.Intn(1<<53)) / (1 << 53)
}

// defaultRandSource is used whenever a caller passes a nil RandSource
var defaultRandSource RandSource = cryptoRandSource{}

// NewCryptoRandSource returns the unseeded source backed by crypto/rand.
func NewCryptoRandSource() RandSource {
	return defaultRandSource
}

// NewSeededRandSource returns a reproducible source. Two auctions built from
// sources with the same seed and identical bidders produce identical histories.
func NewSeededRandSource(seed int64) RandSource {
	return mathrand.New(mathrand.NewSource(seed))
}

// selectWinner determines the round winner and the second-price reference.
//
// The highest clamped bid defines the tie set. With two or more tied bidders
// the winner is drawn uniformly from the tie set, then the reference is the
// bid of a uniformly drawn remaining member (two Intn draws, in that order).
// With a single top bidder the reference starts at negative infinity. Either
// way, the reference is then raised to the highest bid of any other bidder
// that exceeds it.
//
// A reference still at negative infinity on return means nobody else bid.
func selectWinner(bids []*float64, randSource RandSource) (winner int, secondPrice float64, err error) {
	highest := math.Inf(-1)
	found := false
	for _, bid := range bids {
		if bid != nil && (!found || *bid > highest) {
			highest = *bid
			found = true
		}
	}
	if !found {
		return -1, 0, ErrInvalidRoundState
	}

	tied := make([]int, 0, len(bids))
	for i, bid := range bids {
		if bid != nil && *bid == highest {
			tied = append(tied, i)
		}
	}

	secondPrice = math.Inf(-1)
	if len(tied) >= 2 {
		k := randSource.Intn(len(tied))
		winner = tied[k]
		rest := append(tied[:k:k], tied[k+1:]...)
		secondPrice = *bids[rest[randSource.Intn(len(rest))]]
	} else {
		winner = tied[0]
	}

	for i, bid := range bids {
		if i != winner && bid != nil && *bid > secondPrice {
			secondPrice = *bid
		}
	}

	return winner, secondPrice, nil
}

// Package core implements the repeated second-price click auction: user
// click model, bid collection, winner and clearing price determination with
// randomized tie-breaking, and the per-bidder balance ledger.
//
// Every random draw goes through a single injected RandSource. Per round the
// draws are, in order: the user pick (Intn), the tie-break winner and the
// second-price reference (two Intn draws, ties only), then the click (Float64).
package core

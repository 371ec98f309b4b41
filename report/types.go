package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/cloudx-io/clickauction/core"
)

// Envelope is the export unit for a simulation: the round-record stream in
// append order plus enough metadata to reproduce and check it.
type Envelope struct {
	SimulationID      uuid.UUID          `json:"simulation_id" cbor:"simulation_id"`
	Seed              int64              `json:"seed" cbor:"seed"`
	CreatedAt         time.Time          `json:"created_at" cbor:"created_at"`
	Rounds            int                `json:"rounds" cbor:"rounds"`
	Users             int                `json:"users" cbor:"users"`
	Bidders           []string           `json:"bidders" cbor:"bidders"`
	UncontestedPolicy string             `json:"uncontested_policy" cbor:"uncontested_policy"`
	HistoryHash       string             `json:"history_hash" cbor:"history_hash"`
	Records           []core.RoundRecord `json:"records" cbor:"records"`
}

// NewEnvelope snapshots an auction's history. Rounds counts completed rounds.
func NewEnvelope(auction *core.Auction, seed int64, policy core.UncontestedPolicy) *Envelope {
	records := auction.History()
	return &Envelope{
		SimulationID:      uuid.New(),
		Seed:              seed,
		CreatedAt:         time.Now().UTC(),
		Rounds:            auction.Round() - 1,
		Users:             len(auction.Users()),
		Bidders:           auction.BidderNames(),
		UncontestedPolicy: policy.String(),
		HistoryHash:       core.ComputeHistoryHash(records),
		Records:           records,
	}
}

// Format selects an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
	FormatCSV  Format = "csv"
)

// Series is one bidder's balance after each round, index 0 being round 1.
type Series struct {
	Bidder   int
	Name     string
	Balances []float64
	Wins     int
}

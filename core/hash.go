package core

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// ComputeRecordHash computes the digest of a single history record.
//
// Formula: SHA256(bidder + "|" + round + "|" + bid + "|" + user + "|" + clicked + "|" + balance)
//
// Prices and balances are formatted to exactly 6 decimal places; a declined
// bid and an unset click are written as "none".
func ComputeRecordHash(record RoundRecord) string {
	bid := "none"
	if record.Bid != nil {
		bid = fmt.Sprintf("%.6f", *record.Bid)
	}
	clicked := "none"
	if record.Clicked != nil {
		clicked = fmt.Sprintf("%t", *record.Clicked)
	}

	data := fmt.Sprintf("%d|%d|%s|%d|%s|%.6f", record.Bidder, record.Round, bid, record.User, clicked, record.Balance)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ComputeHistoryHash computes the digest of a whole history log in append order.
//
// Formula: SHA256(len + "|" + record_hash_1 + "|" + record_hash_2 + ...)
//
// Two seeded runs with identical bidder behavior produce the same hash.
func ComputeHistoryHash(records []RoundRecord) string {
	var data strings.Builder
	fmt.Fprintf(&data, "%d", len(records))
	for _, record := range records {
		data.WriteString("|")
		data.WriteString(ComputeRecordHash(record))
	}
	hash := sha256.Sum256([]byte(data.String()))
	return fmt.Sprintf("%x", hash)
}

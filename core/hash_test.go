package core

import (
	"crypto/sha256"
	"fmt"
	"testing"
)

func TestComputeRecordHash(t *testing.T) {
	clicked := true
	record := RoundRecord{Bidder: 1, Round: 3, Bid: bidPtr(0.5), User: 4, Clicked: &clicked, Balance: 0.7}

	hash := ComputeRecordHash(record)

	// Verify hash is 64 characters (SHA256 hex encoding)
	if len(hash) != 64 {
		t.Errorf("ComputeRecordHash() hash length = %d, want 64", len(hash))
	}

	// Same inputs should produce same hash (deterministic)
	if hash != ComputeRecordHash(record) {
		t.Errorf("ComputeRecordHash() not deterministic")
	}

	// Verify exact hash calculation
	expectedData := "1|3|0.500000|4|true|0.700000"
	expectedHash := fmt.Sprintf("%x", sha256.Sum256([]byte(expectedData)))
	if hash != expectedHash {
		t.Errorf("ComputeRecordHash() = %v, want %v", hash, expectedHash)
	}
}

func TestComputeRecordHash_AbsentFields(t *testing.T) {
	record := RoundRecord{Bidder: 0, Round: 1, User: 2}

	expectedData := "0|1|none|2|none|0.000000"
	expectedHash := fmt.Sprintf("%x", sha256.Sum256([]byte(expectedData)))
	if hash := ComputeRecordHash(record); hash != expectedHash {
		t.Errorf("ComputeRecordHash() = %v, want %v", hash, expectedHash)
	}

	// A zero bid is not the same as a declined bid
	zeroBid := record
	zeroBid.Bid = bidPtr(0)
	if ComputeRecordHash(zeroBid) == ComputeRecordHash(record) {
		t.Errorf("Zero bid and declined bid should produce different hashes")
	}
}

func TestComputeRecordHash_IgnoresBidderName(t *testing.T) {
	a := RoundRecord{Bidder: 0, BidderName: "fixed-0.50", Round: 1}
	b := RoundRecord{Bidder: 0, BidderName: "renamed", Round: 1}

	if ComputeRecordHash(a) != ComputeRecordHash(b) {
		t.Errorf("Bidder labels should not affect record hashes")
	}
}

func TestComputeHistoryHash(t *testing.T) {
	records := []RoundRecord{
		{Bidder: 0, Round: 1, Bid: bidPtr(0.5), Balance: 0.7},
		{Bidder: 1, Round: 1, Bid: bidPtr(0.3)},
	}

	hash := ComputeHistoryHash(records)

	expectedData := "2|" + ComputeRecordHash(records[0]) + "|" + ComputeRecordHash(records[1])
	expectedHash := fmt.Sprintf("%x", sha256.Sum256([]byte(expectedData)))
	if hash != expectedHash {
		t.Errorf("ComputeHistoryHash() = %v, want %v", hash, expectedHash)
	}

	// Order matters
	reversed := []RoundRecord{records[1], records[0]}
	if ComputeHistoryHash(reversed) == hash {
		t.Errorf("Reordered history should produce a different hash")
	}
}

func TestComputeHistoryHash_Empty(t *testing.T) {
	expectedHash := fmt.Sprintf("%x", sha256.Sum256([]byte("0")))
	if hash := ComputeHistoryHash(nil); hash != expectedHash {
		t.Errorf("Empty history should hash just the count")
	}
}

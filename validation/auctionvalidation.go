package validation

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/clickauction/core"
	"github.com/cloudx-io/clickauction/report"
)

// settlementPrecision is the number of decimal places compared when
// recomputing balances from exported floats.
const settlementPrecision int32 = 6

// HistoryValidationInput contains all inputs needed for history validation.
// Either Envelope or Signed must be set; Signed takes precedence.
type HistoryValidationInput struct {
	Envelope  *report.Envelope
	Signed    []byte           // COSE_Sign1 export
	PublicKey *ecdsa.PublicKey // Required with Signed
}

// ValidateHistory replays the auction rules over an exported history and verifies:
// - History holds exactly one record per bidder per round, in order
// - No recorded bid is negative
// - Each round has one winner whose bid equals the round's maximum
// - Every non-winner's balance is zero
// - Each winner's balance follows from its previous balance, the second price and the click
// - The history hash matches the records
//
// Returns:
//   - HistoryValidationResult with detailed results (call result.IsValid() to check overall status)
//   - error if validation cannot be performed (e.g., malformed input, missing key)
func ValidateHistory(input *HistoryValidationInput) (*HistoryValidationResult, error) {
	result := &HistoryValidationResult{
		BaseValidationResult: BaseValidationResult{ValidationDetails: []string{}},
	}

	if input == nil {
		return nil, fmt.Errorf("no export to validate")
	}

	env := input.Envelope
	if input.Signed != nil {
		if input.PublicKey == nil {
			return nil, fmt.Errorf("public key required to verify a signed export")
		}
		result.SignatureChecked = true

		verified, err := VerifyCOSESignature(input.Signed, input.PublicKey)
		if err != nil {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Signature validation failed: %v", err))
			// Still report rule checks on the unverified payload
			env, err = ExtractCOSEPayload(input.Signed)
			if err != nil {
				return nil, fmt.Errorf("decode signed export: %w", err)
			}
		} else {
			result.SignatureValid = true
			result.ValidationDetails = append(result.ValidationDetails, "Signature validation passed")
			env = verified
		}
	}

	if env == nil {
		return nil, fmt.Errorf("no export to validate")
	}
	if len(env.Bidders) == 0 {
		return nil, fmt.Errorf("export lists no bidders")
	}

	result.HashValid = validateHash(env, result)
	result.ClampingValid = validateClamping(env, result)

	result.GrowthValid = validateGrowth(env, result)
	if !result.GrowthValid {
		result.ValidationDetails = append(result.ValidationDetails, "Skipping round checks: history layout is invalid")
		return result, nil
	}

	rounds := splitRounds(env.Records, len(env.Bidders))

	winners, winnersValid := validateWinners(rounds, result)
	result.WinnerValid = winnersValid
	result.BalanceResetValid = validateBalanceReset(rounds, winners, result)

	if !winnersValid {
		result.ValidationDetails = append(result.ValidationDetails, "Skipping settlement check: winners could not be determined")
		return result, nil
	}
	result.SettlementValid = validateSettlement(env, rounds, winners, result)

	return result, nil
}

func splitRounds(records []core.RoundRecord, bidders int) [][]core.RoundRecord {
	rounds := make([][]core.RoundRecord, 0, len(records)/bidders)
	for start := 0; start < len(records); start += bidders {
		rounds = append(rounds, records[start:start+bidders])
	}
	return rounds
}

func validateHash(env *report.Envelope, result *HistoryValidationResult) bool {
	computed := core.ComputeHistoryHash(env.Records)
	if computed == env.HistoryHash {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("History hash validation passed: %s", computed))
		return true
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("History hash mismatch: computed %s, export has %s", computed, env.HistoryHash))
	return false
}

func validateClamping(env *report.Envelope, result *HistoryValidationResult) bool {
	for _, record := range env.Records {
		if record.Bid != nil && *record.Bid < 0 {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Negative bid %.6f recorded for bidder %d in round %d", *record.Bid, record.Bidder, record.Round))
			return false
		}
	}

	result.ValidationDetails = append(result.ValidationDetails, "Bid clamping validation passed")
	return true
}

func validateGrowth(env *report.Envelope, result *HistoryValidationResult) bool {
	bidders := len(env.Bidders)
	if len(env.Records) != env.Rounds*bidders {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("History length mismatch: expected %d records (%d rounds x %d bidders), got %d",
			env.Rounds*bidders, env.Rounds, bidders, len(env.Records)))
		return false
	}

	for i, record := range env.Records {
		if record.Round != i/bidders+1 || record.Bidder != i%bidders {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Record %d out of order: bidder %d round %d, expected bidder %d round %d",
				i, record.Bidder, record.Round, i%bidders, i/bidders+1))
			return false
		}
		if record.User != env.Records[i-i%bidders].User {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Round %d records disagree on the selected user", record.Round))
			return false
		}
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("History growth validation passed: %d rounds, %d records", env.Rounds, len(env.Records)))
	return true
}

// validateWinners identifies each round's winner as the only record carrying
// a click outcome. Returns winner indexes by round.
func validateWinners(rounds [][]core.RoundRecord, result *HistoryValidationResult) ([]int, bool) {
	winners := make([]int, len(rounds))

	for r, records := range rounds {
		winner := -1
		highest := 0.0
		found := false
		for i, record := range records {
			if record.Clicked != nil {
				if winner >= 0 {
					result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Winner validation failed: round %d has more than one winner", r+1))
					return nil, false
				}
				winner = i
			}
			if record.Bid != nil && (!found || *record.Bid > highest) {
				highest = *record.Bid
				found = true
			}
		}

		if winner < 0 {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Winner validation failed: round %d has no winner", r+1))
			return nil, false
		}
		if records[winner].Bid == nil || *records[winner].Bid != highest {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Winner validation failed: round %d winner %d did not place the highest bid %.6f", r+1, winner, highest))
			return nil, false
		}
		winners[r] = winner
	}

	result.ValidationDetails = append(result.ValidationDetails, "Winner validation passed: every winner placed the highest bid")
	return winners, true
}

func validateBalanceReset(rounds [][]core.RoundRecord, winners []int, result *HistoryValidationResult) bool {
	for r, records := range rounds {
		for i, record := range records {
			if winners != nil && i == winners[r] {
				continue
			}
			if record.Clicked == nil && record.Balance != 0 {
				result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Balance reset failed: bidder %d lost round %d with balance %.6f", i, r+1, record.Balance))
				return false
			}
		}
	}

	result.ValidationDetails = append(result.ValidationDetails, "Balance reset validation passed")
	return true
}

// validateSettlement recomputes each winner's balance from the second price:
// the highest bid among the other bidders, or zero when nobody else bid.
func validateSettlement(env *report.Envelope, rounds [][]core.RoundRecord, winners []int, result *HistoryValidationResult) bool {
	previous := make([]float64, len(env.Bidders))

	for r, records := range rounds {
		w := winners[r]

		price := 0.0
		contested := false
		for i, record := range records {
			if i != w && record.Bid != nil && (!contested || *record.Bid > price) {
				price = *record.Bid
				contested = true
			}
		}
		if !contested && env.UncontestedPolicy == core.UncontestedReject.String() {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Settlement failed: round %d is uncontested under the reject policy", r+1))
			return false
		}

		expected := core.SettleWinner(decimal.NewFromFloat(previous[w]), price, *records[w].Clicked).Round(settlementPrecision)
		actual := decimal.NewFromFloat(records[w].Balance).Round(settlementPrecision)
		if !expected.Equal(actual) {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Settlement failed: round %d winner %d expected balance %s at price %.6f, got %s",
				r+1, w, expected.String(), price, actual.String()))
			return false
		}

		for i, record := range records {
			previous[i] = record.Balance
		}
	}

	result.ValidationDetails = append(result.ValidationDetails, "Settlement validation passed")
	return true
}

package validation

// BaseValidationResult contains the signature outcome shared by every validation
type BaseValidationResult struct {
	SignatureChecked  bool
	SignatureValid    bool
	ValidationDetails []string
}

// HistoryValidationResult contains validation results for an exported history
type HistoryValidationResult struct {
	BaseValidationResult
	GrowthValid       bool
	ClampingValid     bool
	WinnerValid       bool
	BalanceResetValid bool
	SettlementValid   bool
	HashValid         bool
}

// IsValid returns true if all history checks passed, and the signature too
// when one was checked
func (r *HistoryValidationResult) IsValid() bool {
	if r.SignatureChecked && !r.SignatureValid {
		return false
	}
	return r.GrowthValid && r.ClampingValid && r.WinnerValid &&
		r.BalanceResetValid && r.SettlementValid && r.HashValid
}

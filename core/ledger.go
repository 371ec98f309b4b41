package core

import (
	"github.com/shopspring/decimal"
)

// clickValue is the assumed value of a single click to the winning bidder.
var clickValue = decimal.NewFromInt(1)

// SettleWinner returns the winner's new balance. A click earns the click
// value net of the clearing price; a non-click loses the clearing price.
// Uses decimal arithmetic so repeated settlement does not drift.
func SettleWinner(balance decimal.Decimal, price float64, clicked bool) decimal.Decimal {
	priceDecimal := decimal.NewFromFloat(price)
	if clicked {
		return balance.Add(clickValue.Sub(priceDecimal))
	}
	return balance.Sub(priceDecimal)
}

// ledger holds one balance per bidder, indexed by bidder position.
type ledger struct {
	balances []decimal.Decimal
}

func newLedger(bidders int) *ledger {
	balances := make([]decimal.Decimal, bidders)
	for i := range balances {
		balances[i] = decimal.Zero
	}
	return &ledger{balances: balances}
}

// stage returns a working copy; nothing is visible until commit.
func (l *ledger) stage() []decimal.Decimal {
	staged := make([]decimal.Decimal, len(l.balances))
	copy(staged, l.balances)
	return staged
}

func (l *ledger) commit(staged []decimal.Decimal) {
	l.balances = staged
}

func (l *ledger) float(i int) float64 {
	f, _ := l.balances[i].Float64()
	return f
}

package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/clickauction/core"
)

// BalanceSeries groups records by bidder, in bidder order, with one balance
// per round. Records must be in append order.
func BalanceSeries(records []core.RoundRecord) []Series {
	byBidder := make(map[int]*Series)
	order := make([]int, 0)

	for _, record := range records {
		s, ok := byBidder[record.Bidder]
		if !ok {
			s = &Series{Bidder: record.Bidder, Name: record.BidderName}
			byBidder[record.Bidder] = s
			order = append(order, record.Bidder)
		}
		s.Balances = append(s.Balances, record.Balance)
		if record.Clicked != nil {
			s.Wins++
		}
	}

	series := make([]Series, 0, len(order))
	for _, bidder := range order {
		series = append(series, *byBidder[bidder])
	}
	return series
}

// RenderChart writes bidder balances over rounds as an aligned text table,
// followed by a per-bidder summary. Amounts are formatted as dollars.
func RenderChart(w io.Writer, records []core.RoundRecord) error {
	series := BalanceSeries(records)
	if len(series) == 0 {
		_, err := fmt.Fprintln(w, "no rounds recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	header := []string{"Round"}
	for _, s := range series {
		header = append(header, s.Name)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	rounds := len(series[0].Balances)
	for r := range rounds {
		row := []string{fmt.Sprintf("%d", r+1)}
		for _, s := range series {
			row = append(row, FormatCurrency(s.Balances[r]))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("render balance table: %w", err)
	}

	fmt.Fprintln(w)
	for _, s := range series {
		lo, hi := s.Balances[0], s.Balances[0]
		for _, b := range s.Balances {
			lo = min(lo, b)
			hi = max(hi, b)
		}
		if _, err := fmt.Fprintf(w, "%s: wins=%d final=%s min=%s max=%s\n",
			s.Name, s.Wins, FormatCurrency(s.Balances[len(s.Balances)-1]), FormatCurrency(lo), FormatCurrency(hi)); err != nil {
			return err
		}
	}
	return nil
}

// FormatCurrency renders v as dollars with thousands separators, e.g. -$1,234.50.
func FormatCurrency(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(c)
	}
	return sign + "$" + grouped.String() + "." + frac
}

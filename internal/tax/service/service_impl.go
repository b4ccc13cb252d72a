package service

import (
	taxdomain "github.com/smallbiznis/orderdesk/internal/tax/domain"
)

type calculator struct{}

// NewCalculator returns the receipt-style (batch) totals calculator.
func NewCalculator() taxdomain.Calculator {
	return calculator{}
}

func (calculator) ComputeTotals(items []taxdomain.LineItem) taxdomain.OrderTotals {
	return ComputeTotals(items)
}

func (calculator) LineAmount(item taxdomain.LineItem) taxdomain.LineDisplay {
	return LineAmount(item)
}

// ComputeTotals aggregates active rows into OrderTotals.
//
// Exclusive rows are summed per rate first and tax is taken once on each sum,
// the way a POS receipt prints it. Inclusive rows only add to the subtotal.
func ComputeTotals(items []taxdomain.LineItem) taxdomain.OrderTotals {
	var totals taxdomain.OrderTotals

	for _, item := range items {
		if !item.Active() {
			continue
		}

		base := item.BaseAmount()
		totals.Subtotal = taxdomain.AddAmount(totals.Subtotal, base)
		totals.ItemCount = taxdomain.AddAmount(totals.ItemCount, item.Qty())

		if !item.Exclusive() {
			continue
		}
		switch item.RatePercent {
		case taxdomain.Rate8:
			totals.TaxableBase8 = taxdomain.AddAmount(totals.TaxableBase8, base)
		case taxdomain.Rate10:
			totals.TaxableBase10 = taxdomain.AddAmount(totals.TaxableBase10, base)
		}
	}

	totals.Tax8 = ComputeTaxExclusive(totals.TaxableBase8, taxdomain.Rate8)
	totals.Tax10 = ComputeTaxExclusive(totals.TaxableBase10, taxdomain.Rate10)
	totals.InnerTax = totals.Tax8 + totals.Tax10
	totals.GrandTotal = totals.Subtotal + totals.Tax8 + totals.Tax10

	return totals
}

// ComputeTaxExclusive calculates floor(base * rate / 100) without forming the
// product. Truncation happens only here to keep stored values integer-safe.
func ComputeTaxExclusive(base int64, rate taxdomain.RatePercent) int64 {
	if base <= 0 || !rate.Valid() {
		return 0
	}
	r := int64(rate)
	return base/100*r + base%100*r/100
}

// LineAmount returns the per-row display figure. For exclusive rows WithTax
// includes the row's own tax; the aggregate never reads it back.
func LineAmount(item taxdomain.LineItem) taxdomain.LineDisplay {
	base := item.BaseAmount()
	display := taxdomain.LineDisplay{BaseAmount: base, WithTax: base}
	if item.Exclusive() && item.RatePercent.Valid() {
		display.WithTax = base + ComputeTaxExclusive(base, item.RatePercent)
	}
	return display
}

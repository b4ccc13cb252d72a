package domain

// Calculator turns order rows into totals. Implementations must be pure:
// the same rows, in any order, always produce the same OrderTotals.
type Calculator interface {
	ComputeTotals(items []LineItem) OrderTotals
	LineAmount(item LineItem) LineDisplay
}

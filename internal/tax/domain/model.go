package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// TaxTreatment represents whether a unit price already contains consumption tax.
type TaxTreatment string

const (
	TaxInclusive TaxTreatment = "inclusive" // 税込: price already contains tax
	TaxExclusive TaxTreatment = "exclusive" // 税抜: tax is added on top of the price
)

// RatePercent is a consumption tax rate in whole percent.
type RatePercent int

// Only the two Japanese consumption tax rates are supported.
const (
	Rate8  RatePercent = 8  // reduced rate
	Rate10 RatePercent = 10 // standard rate
)

// Rates lists the supported rates in slip display order.
var Rates = []RatePercent{Rate8, Rate10}

// Defaults used by the order form when a row does not say otherwise.
const (
	DefaultTreatment = TaxInclusive
	DefaultRate      = Rate10
)

const (
	// MaxFieldValue is the largest quantity or unit price accepted. Larger
	// input is malformed and reads as 0.
	MaxFieldValue int64 = 1_000_000_000
	// MaxAmount caps every summed yen figure so that tax and grand total
	// stay within int64. A single row never exceeds it.
	MaxAmount int64 = MaxFieldValue * MaxFieldValue
)

// ClampField returns v when it is a usable quantity or price, otherwise 0.
func ClampField(v int64) int64 {
	if v < 0 || v > MaxFieldValue {
		return 0
	}
	return v
}

// AddAmount adds two non-negative amounts, saturating at MaxAmount.
func AddAmount(a, b int64) int64 {
	if a > MaxAmount-b {
		return MaxAmount
	}
	return a + b
}

// LineItem is one order row as seen by the totals engine.
// Quantity and UnitPrice are whole numbers in [0, MaxFieldValue] once coerced;
// the engine reads them through Qty and Price.
type LineItem struct {
	Name        string       `json:"name"`
	Quantity    int64        `json:"quantity"`
	UnitPrice   int64        `json:"unitPrice"`
	Treatment   TaxTreatment `json:"taxTreatment"`
	RatePercent RatePercent  `json:"taxRatePercent"`
}

// Active reports whether the row is counted in totals.
func (l LineItem) Active() bool {
	return l.Name != "" && (l.Qty() > 0 || l.Price() > 0)
}

// Qty is the quantity with out-of-range values read as 0.
func (l LineItem) Qty() int64 {
	return ClampField(l.Quantity)
}

// Price is the unit price with out-of-range values read as 0.
func (l LineItem) Price() int64 {
	return ClampField(l.UnitPrice)
}

// BaseAmount is quantity times unit price, before any exclusive tax. It is at
// most MaxAmount.
func (l LineItem) BaseAmount() int64 {
	return l.Qty() * l.Price()
}

// Exclusive reports whether tax is added on top of this row.
func (l LineItem) Exclusive() bool {
	return l.Treatment == TaxExclusive
}

// OrderTotals is the canonical totals breakdown of an order.
// All amounts are whole yen.
type OrderTotals struct {
	Subtotal      int64 `json:"subtotal"`
	TaxableBase8  int64 `json:"taxableBase8"`
	TaxableBase10 int64 `json:"taxableBase10"`
	Tax8          int64 `json:"tax8"`
	Tax10         int64 `json:"tax10"`
	ItemCount     int64 `json:"itemCount"`
	InnerTax      int64 `json:"innerTax"`
	GrandTotal    int64 `json:"grandTotal"`
}

// TaxableBase returns the exclusive taxable base for rate.
func (t OrderTotals) TaxableBase(rate RatePercent) int64 {
	switch rate {
	case Rate8:
		return t.TaxableBase8
	case Rate10:
		return t.TaxableBase10
	default:
		return 0
	}
}

// Tax returns the exclusive tax amount for rate.
func (t OrderTotals) Tax(rate RatePercent) int64 {
	switch rate {
	case Rate8:
		return t.Tax8
	case Rate10:
		return t.Tax10
	default:
		return 0
	}
}

// LineDisplay is the per-row figure shown next to a line in the form.
// WithTax is display only and never fed back into OrderTotals.
type LineDisplay struct {
	BaseAmount int64 `json:"baseAmount"`
	WithTax    int64 `json:"withTax"`
}

// ParseTreatment maps canonical tokens and the Japanese form labels to a treatment.
func ParseTreatment(raw string) (TaxTreatment, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "inclusive", "incl", "税込", "内税":
		return TaxInclusive, true
	case "exclusive", "excl", "税抜", "外税":
		return TaxExclusive, true
	default:
		return DefaultTreatment, false
	}
}

// ParseRate maps "8", "8%", "10", "10%" (half or full width percent) to a rate.
func ParseRate(raw string) (RatePercent, bool) {
	value := strings.TrimSpace(raw)
	value = strings.TrimSuffix(value, "%")
	value = strings.TrimSuffix(value, "％")
	switch strings.TrimSpace(value) {
	case "8", "８":
		return Rate8, true
	case "10", "１０":
		return Rate10, true
	default:
		return DefaultRate, false
	}
}

// Label returns the Japanese form label for the treatment.
func (t TaxTreatment) Label() string {
	if t == TaxExclusive {
		return "税抜"
	}
	return "税込"
}

// UnmarshalJSON accepts canonical tokens and Japanese labels; unknown values
// fall back to the default treatment.
func (t *TaxTreatment) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*t = DefaultTreatment
		return nil
	}
	*t, _ = ParseTreatment(raw)
	return nil
}

// Valid reports whether r is one of the supported rates.
func (r RatePercent) Valid() bool {
	return r == Rate8 || r == Rate10
}

// UnmarshalJSON accepts numbers and strings ("8", "8%"); unknown values fall
// back to the default rate.
func (r *RatePercent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			*r = DefaultRate
			return nil
		}
		*r, _ = ParseRate(raw)
		return nil
	}
	if f, err := strconv.ParseFloat(string(data), 64); err == nil && f >= 0 && f <= 100 {
		*r, _ = ParseRate(strconv.FormatInt(int64(f), 10))
		return nil
	}
	*r = DefaultRate
	return nil
}

package legacy

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/internal/order/form"
	taxdomain "github.com/smallbiznis/orderdesk/internal/tax/domain"
)

// record is the union of every order layout ever written, old key names
// included. Unknown keys are ignored.
type record struct {
	ID            json.RawMessage `json:"id"`
	SchemaVersion int             `json:"schemaVersion"`
	Status        domain.Status   `json:"status"`
	CreatedAt     flexTime        `json:"createdAt"`
	UpdatedAt     flexTime        `json:"updatedAt"`

	ReceptionDate   string `json:"receptionDate"`
	ReceptionMethod string `json:"receptionMethod"`
	StaffName       string `json:"staffName"`
	PickupAt        string `json:"orderDatetime"`
	DeliveryMethod  string `json:"deliveryMethod"`

	CustomerName    string `json:"customerName"`
	PhoneNumber     string `json:"phoneNumber"`
	DeliveryAddress string `json:"deliveryAddress"`
	Notes           string `json:"notes"`

	PaymentType     string   `json:"paymentType"`
	PaymentMethod   string   `json:"paymentMethod"`
	InvoiceRequired flexBool `json:"invoiceRequired"`
	BillingName     string   `json:"billingName"`
	Departments     []string `json:"departments"`

	// v1 kept a single treatment for the whole order.
	TaxType string `json:"taxType"`

	Products []product `json:"products"`

	Subtotal      *flexInt `json:"subtotal"`
	TaxableBase8  *flexInt `json:"taxableBase8"`
	TaxableBase10 *flexInt `json:"taxableBase10"`
	Tax8          *flexInt `json:"tax8"`
	Tax10         *flexInt `json:"tax10"`
	ItemCount     *flexInt `json:"itemCount"`
	InnerTax      *flexInt `json:"innerTax"`
	GrandTotal    *flexInt `json:"grandTotal"`

	TaxExcluded8Total  *flexInt `json:"taxExcluded8Total"`
	TaxExcluded10Total *flexInt `json:"taxExcluded10Total"`
	Tax8Amount         *flexInt `json:"tax8Amount"`
	Tax10Amount        *flexInt `json:"tax10Amount"`
	InnerTaxTotal      *flexInt `json:"innerTaxTotal"`
	TotalAmount        *flexInt `json:"totalAmount"`

	MigratedFrom int                    `json:"migratedFrom"`
	LegacyTotals *taxdomain.OrderTotals `json:"legacyTotals"`
}

type product struct {
	Name           string          `json:"name"`
	Quantity       flexInt         `json:"quantity"`
	Price          *flexInt        `json:"price"`
	UnitPrice      *flexInt        `json:"unitPrice"`
	TaxType        string          `json:"taxType"`
	TaxTreatment   string          `json:"taxTreatment"`
	TaxRate        json.RawMessage `json:"taxRate"`
	TaxRatePercent json.RawMessage `json:"taxRatePercent"`
	Subtotal       *flexInt        `json:"subtotal"`
}

func (p product) hasLineTax() bool {
	return p.TaxType != "" || p.TaxTreatment != "" || len(p.TaxRate) > 0 || len(p.TaxRatePercent) > 0
}

func (p product) unitPrice() int64 {
	if p.UnitPrice != nil {
		return taxdomain.ClampField(p.UnitPrice.value())
	}
	return taxdomain.ClampField(p.Price.value())
}

func (p product) treatment(orderLevel string) taxdomain.TaxTreatment {
	for _, raw := range []string{p.TaxTreatment, p.TaxType, orderLevel} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		treatment, _ := taxdomain.ParseTreatment(raw)
		return treatment
	}
	return taxdomain.DefaultTreatment
}

func (p product) rate() taxdomain.RatePercent {
	for _, raw := range []json.RawMessage{p.TaxRatePercent, p.TaxRate} {
		if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		var rate taxdomain.RatePercent
		_ = json.Unmarshal(raw, &rate)
		return rate
	}
	return taxdomain.DefaultRate
}

// flexInt reads numbers and numeric strings with the form's parse-or-default.
// Values above taxdomain.MaxAmount read as 0; rows clamp further to
// taxdomain.MaxFieldValue.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*f = 0
			return nil
		}
		*f = flexInt(form.ParseIntMax(s, taxdomain.MaxAmount))
		return nil
	}
	parsed, err := strconv.ParseFloat(string(data), 64)
	if err != nil || parsed < 0 || parsed > float64(taxdomain.MaxAmount) {
		*f = 0
		return nil
	}
	*f = flexInt(int64(parsed))
	return nil
}

func (f *flexInt) value() int64 {
	if f == nil {
		return 0
	}
	return int64(*f)
}

// flexBool reads JSON booleans and the 要 label.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = flexBool(form.ParseFlag(s))
		return nil
	}
	*b = false
	return nil
}

// flexTime reads RFC 3339 timestamps with or without fractions; anything else
// is the zero time.
type flexTime time.Time

func (t *flexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || strings.TrimSpace(s) == "" {
		*t = flexTime(time.Time{})
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		*t = flexTime(time.Time{})
		return nil
	}
	*t = flexTime(parsed.UTC())
	return nil
}

package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	taxdomain "github.com/smallbiznis/orderdesk/internal/tax/domain"
)

// CurrentSchemaVersion is the record layout written by this service.
// Records with lower versions are normalized on load.
const CurrentSchemaVersion = 4

// Status is the processing state of an order.
type Status string

const (
	StatusPending   Status = "pending"   // 未処理
	StatusProcessed Status = "processed" // 処理済み
)

// Label returns the Japanese label shown on lists.
func (s Status) Label() string {
	if s == StatusProcessed {
		return "処理済み"
	}
	return "未処理"
}

// Toggle flips between pending and processed.
func (s Status) Toggle() Status {
	if s == StatusProcessed {
		return StatusPending
	}
	return StatusProcessed
}

// ParseStatus accepts canonical values and Japanese labels.
func ParseStatus(raw string) (Status, bool) {
	switch strings.TrimSpace(raw) {
	case string(StatusPending), "未処理":
		return StatusPending, true
	case string(StatusProcessed), "処理済み":
		return StatusProcessed, true
	default:
		return StatusPending, false
	}
}

// UnmarshalJSON accepts Japanese labels written by older records.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = StatusPending
		return nil
	}
	*s, _ = ParseStatus(raw)
	return nil
}

// Line is a stored order row with its own base amount kept for display.
type Line struct {
	taxdomain.LineItem
	BaseAmount int64 `json:"baseAmount"`
}

// Order is a persisted order record. Totals are frozen at submit time; readers
// must not trust them and recompute from Items instead.
type Order struct {
	ID            snowflake.ID `json:"id"`
	SchemaVersion int          `json:"schemaVersion"`
	Status        Status       `json:"status"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`

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
	InvoiceRequired bool     `json:"invoiceRequired"`
	BillingName     string   `json:"billingName"`
	Departments     []string `json:"departments"`

	Items []Line `json:"products"`

	taxdomain.OrderTotals

	// MigratedFrom and LegacyTotals are set when a record written by an older
	// layout was normalized and its stored totals disagreed with the
	// recomputation. They are kept for audit only.
	MigratedFrom int                    `json:"migratedFrom,omitempty"`
	LegacyTotals *taxdomain.OrderTotals `json:"legacyTotals,omitempty"`
}

// LineItems returns the engine view of the stored rows.
func (o Order) LineItems() []taxdomain.LineItem {
	items := make([]taxdomain.LineItem, 0, len(o.Items))
	for _, line := range o.Items {
		items = append(items, line.LineItem)
	}
	return items
}

// ProductNames returns the row names in order.
func (o Order) ProductNames() []string {
	names := make([]string, 0, len(o.Items))
	for _, line := range o.Items {
		if line.Name == "" {
			continue
		}
		names = append(names, line.Name)
	}
	return names
}

package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/bwmarrin/snowflake"
	taxdomain "github.com/smallbiznis/orderdesk/internal/tax/domain"
)

// RawValue is a form field exactly as the front end sent it. JSON strings,
// numbers and booleans are all accepted so that coercion happens in one place.
type RawValue string

func (v *RawValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = RawValue(s)
		return nil
	}
	*v = RawValue(data)
	return nil
}

func (v RawValue) String() string {
	return string(v)
}

// RawLine is one product row of the order form.
type RawLine struct {
	Name         RawValue `json:"name"`
	Quantity     RawValue `json:"quantity"`
	UnitPrice    RawValue `json:"unitPrice"`
	TaxTreatment RawValue `json:"taxTreatment"`
	TaxRate      RawValue `json:"taxRatePercent"`
}

// SubmitRequest carries the raw order form.
type SubmitRequest struct {
	ReceptionDate   RawValue   `json:"receptionDate"`
	ReceptionMethod RawValue   `json:"receptionMethod"`
	StaffName       RawValue   `json:"staffName"`
	OrderDate       RawValue   `json:"orderDate"`
	OrderHour       RawValue   `json:"orderHour"`
	OrderMinute     RawValue   `json:"orderMinute"`
	DeliveryMethod  RawValue   `json:"deliveryMethod"`
	CustomerName    RawValue   `json:"customerName"`
	PhoneNumber     RawValue   `json:"phoneNumber"`
	DeliveryAddress RawValue   `json:"deliveryAddress"`
	Notes           RawValue   `json:"notes"`
	PaymentType     RawValue   `json:"paymentType"`
	InvoiceRequired RawValue   `json:"invoiceRequired"`
	BillingName     RawValue   `json:"billingName"`
	Departments     []RawValue `json:"departments"`
	Lines           []RawLine  `json:"products"`
}

// SubmitMode selects between creating a new order and replacing an existing one.
type SubmitMode struct {
	orderID snowflake.ID
	update  bool
}

// CreateMode submits a new order.
func CreateMode() SubmitMode {
	return SubmitMode{}
}

// UpdateMode resubmits the order with id.
func UpdateMode(id snowflake.ID) SubmitMode {
	return SubmitMode{orderID: id, update: true}
}

func (m SubmitMode) IsUpdate() bool {
	return m.update
}

func (m SubmitMode) OrderID() snowflake.ID {
	return m.orderID
}

func (m SubmitMode) String() string {
	if m.update {
		return "update"
	}
	return "create"
}

// Preview is the live running total for the form.
type Preview struct {
	Totals taxdomain.OrderTotals   `json:"totals"`
	Lines  []taxdomain.LineDisplay `json:"lines"`
}

// StatusFilter narrows List results.
type StatusFilter string

const (
	StatusFilterAll       StatusFilter = "all"
	StatusFilterPending   StatusFilter = "pending"
	StatusFilterProcessed StatusFilter = "processed"
)

type ListRequest struct {
	Search string
	Status string
}

type SummaryRequest struct {
	Search string
}

// SummaryItem is one row of the compact order list.
type SummaryItem struct {
	ID            string `json:"id"`
	ReceptionDate string `json:"receptionDate"`
	CustomerName  string `json:"customerName"`
	Products      string `json:"products"`
}

type Service interface {
	Preview(ctx context.Context, lines []RawLine) Preview
	Submit(ctx context.Context, mode SubmitMode, req SubmitRequest) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
	List(ctx context.Context, req ListRequest) ([]Order, error)
	Summary(ctx context.Context, req SummaryRequest) ([]SummaryItem, error)
	ToggleStatus(ctx context.Context, id string) (Order, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidCustomerName = errors.New("invalid_customer_name")
	ErrInvalidProducts     = errors.New("invalid_products")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrNotFound            = errors.New("not_found")
)

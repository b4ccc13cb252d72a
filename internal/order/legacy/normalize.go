// Package legacy reads order records written by every layout the order desk
// has ever used and brings them to the current one.
//
// Stored aggregates are never trusted. Totals are recomputed from the stored
// rows with the batch policy; when the stored figures disagree they are kept
// as LegacyTotals for audit. Records are never rewritten on read.
//
// Layout versions:
//
//	1  plain sum, no per-row tax; an optional order level taxType
//	2  per-row treatment and rate, tax rounded per row
//	3  batch tax, but innerTaxTotal held the tax embedded in inclusive rows
//	4  batch tax, innerTax = tax8 + tax10 (current)
package legacy

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/order/domain"
	taxdomain "github.com/smallbiznis/orderdesk/internal/tax/domain"
)

// ErrInvalidRecord is returned for data that is not a JSON object.
var ErrInvalidRecord = errors.New("invalid_record")

// Normalizer decodes stored order records of any version.
type Normalizer struct {
	calc taxdomain.Calculator
}

func NewNormalizer(calc taxdomain.Calculator) *Normalizer {
	return &Normalizer{calc: calc}
}

// Decode parses one stored record and normalizes it.
func (n *Normalizer) Decode(data []byte) (domain.Order, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return domain.Order{}, ErrInvalidRecord
	}
	var rec record
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return domain.Order{}, ErrInvalidRecord
	}
	return n.normalize(rec), nil
}

// DecodeAll parses a JSON array of stored records. Any element that fails to
// decode fails the whole batch.
func (n *Normalizer) DecodeAll(data []byte) ([]domain.Order, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrInvalidRecord
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, ErrInvalidRecord
	}
	orders := make([]domain.Order, 0, len(raw))
	for _, item := range raw {
		order, err := n.Decode(item)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (n *Normalizer) normalize(rec record) domain.Order {
	version := detectVersion(rec)

	order := domain.Order{
		ID:              parseID(rec.ID),
		SchemaVersion:   domain.CurrentSchemaVersion,
		Status:          rec.Status,
		CreatedAt:       time.Time(rec.CreatedAt),
		UpdatedAt:       time.Time(rec.UpdatedAt),
		ReceptionDate:   strings.TrimSpace(rec.ReceptionDate),
		ReceptionMethod: strings.TrimSpace(rec.ReceptionMethod),
		StaffName:       strings.TrimSpace(rec.StaffName),
		PickupAt:        strings.TrimSpace(rec.PickupAt),
		DeliveryMethod:  strings.TrimSpace(rec.DeliveryMethod),
		CustomerName:    strings.TrimSpace(rec.CustomerName),
		PhoneNumber:     strings.TrimSpace(rec.PhoneNumber),
		DeliveryAddress: strings.TrimSpace(rec.DeliveryAddress),
		Notes:           rec.Notes,
		PaymentType:     strings.TrimSpace(rec.PaymentType),
		InvoiceRequired: bool(rec.InvoiceRequired),
		BillingName:     strings.TrimSpace(rec.BillingName),
		Departments:     rec.Departments,
		MigratedFrom:    rec.MigratedFrom,
		LegacyTotals:    rec.LegacyTotals,
	}
	if order.Status == "" {
		order.Status = domain.StatusPending
	}
	if order.PaymentType == "" {
		order.PaymentType = strings.TrimSpace(rec.PaymentMethod)
	}
	if order.Departments == nil {
		order.Departments = []string{}
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}

	order.Items = make([]domain.Line, 0, len(rec.Products))
	for _, p := range rec.Products {
		item := taxdomain.LineItem{
			Name:        strings.TrimSpace(p.Name),
			Quantity:    taxdomain.ClampField(p.Quantity.value()),
			UnitPrice:   p.unitPrice(),
			Treatment:   p.treatment(rec.TaxType),
			RatePercent: p.rate(),
		}
		order.Items = append(order.Items, domain.Line{LineItem: item, BaseAmount: item.BaseAmount()})
	}
	order.OrderTotals = n.calc.ComputeTotals(order.LineItems())

	stored := storedTotals(rec, order.OrderTotals)
	if order.LegacyTotals == nil && stored != order.OrderTotals {
		order.LegacyTotals = &stored
	}
	if order.MigratedFrom == 0 && version < domain.CurrentSchemaVersion {
		order.MigratedFrom = version
	}
	return order
}

// detectVersion trusts an explicit schemaVersion and otherwise infers the
// layout from which keys are present.
func detectVersion(rec record) int {
	if rec.SchemaVersion > 0 {
		return rec.SchemaVersion
	}
	batch := rec.TaxExcluded8Total != nil || rec.TaxExcluded10Total != nil ||
		rec.TaxableBase8 != nil || rec.TaxableBase10 != nil
	if batch {
		tax := rec.Tax8Amount.value() + rec.Tax10Amount.value()
		if rec.InnerTaxTotal != nil && rec.InnerTaxTotal.value() != tax {
			return 3
		}
		return 4
	}
	for _, p := range rec.Products {
		if p.hasLineTax() {
			return 2
		}
	}
	return 1
}

// storedTotals reads the aggregate the record carried, whichever keys it used.
// Figures the layout never stored are taken from computed so that they do not
// register as a disagreement.
func storedTotals(rec record, computed taxdomain.OrderTotals) taxdomain.OrderTotals {
	pick := func(fallback int64, values ...*flexInt) int64 {
		for _, v := range values {
			if v != nil {
				return v.value()
			}
		}
		return fallback
	}
	totals := taxdomain.OrderTotals{
		TaxableBase8:  pick(computed.TaxableBase8, rec.TaxableBase8, rec.TaxExcluded8Total),
		TaxableBase10: pick(computed.TaxableBase10, rec.TaxableBase10, rec.TaxExcluded10Total),
		Tax8:          pick(computed.Tax8, rec.Tax8, rec.Tax8Amount),
		Tax10:         pick(computed.Tax10, rec.Tax10, rec.Tax10Amount),
		ItemCount:     pick(computed.ItemCount, rec.ItemCount),
		InnerTax:      pick(computed.InnerTax, rec.InnerTax, rec.InnerTaxTotal),
		GrandTotal:    pick(computed.GrandTotal, rec.GrandTotal, rec.TotalAmount),
	}
	// v1 records only stored the grand total, which was also the subtotal.
	totals.Subtotal = pick(computed.Subtotal, rec.Subtotal)
	legacyTotalOnly := rec.Subtotal == nil && rec.TaxExcluded8Total == nil && rec.TaxableBase8 == nil
	if legacyTotalOnly && (rec.TotalAmount != nil || rec.GrandTotal != nil) {
		totals.Subtotal = totals.GrandTotal
	}
	return totals
}

// parseID accepts quoted or bare numeric ids. Anything else reads as zero and
// is left for the caller to assign.
func parseID(raw json.RawMessage) snowflake.ID {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0
		}
	}
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return snowflake.ID(id)
}

package form

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/orderdesk/internal/order/domain"
	taxdomain "github.com/smallbiznis/orderdesk/internal/tax/domain"
)

// LineItem coerces a raw form row into an engine row.
func LineItem(raw domain.RawLine) taxdomain.LineItem {
	treatment, _ := taxdomain.ParseTreatment(raw.TaxTreatment.String())
	rate, _ := taxdomain.ParseRate(raw.TaxRate.String())
	return taxdomain.LineItem{
		Name:        Text(raw.Name),
		Quantity:    ParseInt(raw.Quantity.String()),
		UnitPrice:   ParseInt(raw.UnitPrice.String()),
		Treatment:   treatment,
		RatePercent: rate,
	}
}

// LineItems coerces every raw row, active or not.
func LineItems(rows []domain.RawLine) []taxdomain.LineItem {
	items := make([]taxdomain.LineItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, LineItem(row))
	}
	return items
}

// Preview computes the live running total and per-row figures.
func Preview(calc taxdomain.Calculator, rows []domain.RawLine) domain.Preview {
	items := LineItems(rows)
	lines := make([]taxdomain.LineDisplay, 0, len(items))
	for _, item := range items {
		lines = append(lines, calc.LineAmount(item))
	}
	return domain.Preview{
		Totals: calc.ComputeTotals(items),
		Lines:  lines,
	}
}

// Assemble builds an order record from the raw form. Only active rows are
// kept, each annotated with its base amount, and the computed totals are
// flattened onto the record. Identity, status and timestamps are left to the
// caller.
func Assemble(calc taxdomain.Calculator, req domain.SubmitRequest) domain.Order {
	items := LineItems(req.Lines)

	lines := make([]domain.Line, 0, len(items))
	for _, item := range items {
		if !item.Active() {
			continue
		}
		lines = append(lines, domain.Line{LineItem: item, BaseAmount: item.BaseAmount()})
	}

	return domain.Order{
		SchemaVersion:   domain.CurrentSchemaVersion,
		ReceptionDate:   Text(req.ReceptionDate),
		ReceptionMethod: Text(req.ReceptionMethod),
		StaffName:       Text(req.StaffName),
		PickupAt:        PickupAt(Text(req.OrderDate), Text(req.OrderHour), Text(req.OrderMinute)),
		DeliveryMethod:  Text(req.DeliveryMethod),
		CustomerName:    Text(req.CustomerName),
		PhoneNumber:     Text(req.PhoneNumber),
		DeliveryAddress: Text(req.DeliveryAddress),
		Notes:           strings.TrimRight(req.Notes.String(), " \t\r\n"),
		PaymentType:     Text(req.PaymentType),
		InvoiceRequired: ParseFlag(req.InvoiceRequired.String()),
		BillingName:     Text(req.BillingName),
		Departments:     departments(req.Departments),
		Items:           lines,
		OrderTotals:     calc.ComputeTotals(items),
	}
}

// PickupAt joins the pickup date and the hour/minute selects into
// YYYY-MM-DDTHH:MM. Minutes snap to 00 or 30; a missing hour reads as 00 and a
// missing date yields an empty value.
func PickupAt(date, hour, minute string) string {
	if date == "" {
		return ""
	}
	h := ParseInt(hour)
	if h > 23 {
		h = 0
	}
	m := "00"
	if ParseInt(minute) == 30 {
		m = "30"
	}
	return fmt.Sprintf("%sT%02d:%s", date, h, m)
}

func departments(raw []domain.RawValue) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, v := range raw {
		name := Text(v)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

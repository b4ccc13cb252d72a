// Package slip renders the customer copy of an order (ご注文承り書) as an
// A4 HTML page or a PDF.
package slip

import (
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/smallbiznis/orderdesk/internal/order/domain"
	taxdomain "github.com/smallbiznis/orderdesk/internal/tax/domain"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	dateLayout     = "2006年1月2日"
	dateTimeLayout = "2006年1月2日 15:04"
	fullWidthSpace = "　"
	noProducts     = "（商品なし）"
	invoiceLabel   = "要"
)

// Check is one labelled checkbox on the slip.
type Check struct {
	Label   string
	Checked bool
}

type LineView struct {
	Name      string
	Quantity  string
	UnitPrice string
	TaxLabel  string
	Amount    string
}

// TotalLine is one row of the totals block. Main marks the grand total.
type TotalLine struct {
	Text string
	Main bool
}

// View is everything a renderer needs. All strings are final display text.
type View struct {
	OrderID    string
	Title      string
	StoreName  string
	StorePhone string

	ReceptionDate   string
	ReceptionChecks []Check
	StaffName       string
	PickupAt        string
	DeliveryChecks  []Check

	CustomerName    string
	PhoneNumber     string
	Lines           []LineView
	EmptyLines      string
	TotalLines      []TotalLine
	Notes           []string
	DeliveryAddress string
	PaymentChecks   []Check
	InvoiceCheck    Check
	BillingName     string
	DeptChecks      []Check

	Totals taxdomain.OrderTotals
}

// BuildView prepares order for printing. Totals are recomputed from the
// stored lines; the aggregates stored on the record are ignored.
func BuildView(calc taxdomain.Calculator, order domain.Order, profile config.StoreProfile) View {
	totals := calc.ComputeTotals(order.LineItems())

	view := View{
		OrderID:         order.ID.String(),
		Title:           profile.SlipTitle,
		StoreName:       profile.StoreName,
		StorePhone:      profile.StorePhone,
		ReceptionDate:   FormatDate(order.ReceptionDate),
		ReceptionChecks: checks(profile.ReceptionMethods, order.ReceptionMethod),
		StaffName:       order.StaffName,
		PickupAt:        FormatDateTime(order.PickupAt),
		DeliveryChecks:  checks(profile.DeliveryMethods, order.DeliveryMethod),
		CustomerName:    order.CustomerName,
		PhoneNumber:     order.PhoneNumber,
		TotalLines:      TotalLines(totals),
		Notes:           notes(order.Notes),
		DeliveryAddress: order.DeliveryAddress,
		PaymentChecks:   checks(profile.PaymentOptions, order.PaymentType),
		InvoiceCheck:    Check{Label: invoiceLabel, Checked: order.InvoiceRequired},
		BillingName:     order.BillingName,
		DeptChecks:      checks(profile.Departments, order.Departments...),
		Totals:          totals,
	}

	for _, line := range order.Items {
		amount := calc.LineAmount(line.LineItem)
		view.Lines = append(view.Lines, LineView{
			Name:      line.Name,
			Quantity:  fmt.Sprintf("%d", line.Quantity),
			UnitPrice: Yen(line.UnitPrice),
			TaxLabel:  fmt.Sprintf("%s%d%%", line.Treatment.Label(), line.RatePercent),
			Amount:    Yen(amount.BaseAmount),
		})
	}
	if len(view.Lines) == 0 {
		view.EmptyLines = noProducts
	}
	return view
}

// TotalLines is the receipt style totals block: the subtotal, exclusive tax
// per rate when that rate has a taxable base, the item count, the grand
// total, and the tax included in it when there is any.
func TotalLines(t taxdomain.OrderTotals) []TotalLine {
	lines := []TotalLine{{Text: "小計" + fullWidthSpace + Yen(t.Subtotal)}}
	for _, rate := range taxdomain.Rates {
		base := t.TaxableBase(rate)
		if base <= 0 {
			continue
		}
		lines = append(lines,
			TotalLine{Text: fmt.Sprintf("（外税%d%%対象額%s%s）", rate, fullWidthSpace, Yen(base))},
			TotalLine{Text: fmt.Sprintf("外税額%s%d%%%s%s", fullWidthSpace, rate, fullWidthSpace, Yen(t.Tax(rate)))},
		)
	}
	lines = append(lines,
		TotalLine{Text: fmt.Sprintf("買上点数%s%d点", fullWidthSpace, t.ItemCount)},
		TotalLine{Text: "合計" + fullWidthSpace + Yen(t.GrandTotal), Main: true},
	)
	if t.InnerTax > 0 {
		lines = append(lines, TotalLine{Text: "（内消費税等" + fullWidthSpace + Yen(t.InnerTax) + "）"})
	}
	return lines
}

// Yen formats a whole yen amount with thousands separators.
func Yen(amount int64) string {
	return message.NewPrinter(language.Japanese).Sprintf("¥%d", amount)
}

// FormatDate turns a YYYY-MM-DD date into 2024年5月1日. Unparseable input is
// returned as is.
func FormatDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return raw
	}
	return t.Format(dateLayout)
}

// FormatDateTime turns a pickup time such as 2024-05-03T11:30 into
// 2024年5月3日 11:30.
func FormatDateTime(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range []string{"2006-01-02T15:04", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(dateTimeLayout)
		}
	}
	return raw
}

// Filename is the download name for a rendered slip.
func Filename(order domain.Order, ext string) string {
	name := "slip-" + order.ID.String()
	if s := slug.Make(order.CustomerName); s != "" {
		name += "-" + s
	}
	return name + "." + ext
}

func checks(options []string, selected ...string) []Check {
	out := make([]Check, 0, len(options))
	for _, option := range options {
		checked := false
		for _, s := range selected {
			if s == option {
				checked = true
				break
			}
		}
		out = append(out, Check{Label: option, Checked: checked})
	}
	return out
}

func notes(raw string) []string {
	raw = strings.TrimRight(raw, "\r\n")
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
}

package slip

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/johnfercher/maroto/v2/pkg/repository"
	"go.uber.org/zap"
)

const slipFontFamily = "slip-jp"

// PDFRenderer draws the slip with maroto. The built-in PDF fonts carry no
// Japanese glyphs, so a TrueType font path should be configured for
// production use.
type PDFRenderer struct {
	fontPath func() string
	log      *zap.Logger
}

// NewPDFRenderer reads the font path on every render so that a reloaded store
// profile takes effect without a restart.
func NewPDFRenderer(fontPath func() string, log *zap.Logger) *PDFRenderer {
	if fontPath == nil {
		fontPath = func() string { return "" }
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PDFRenderer{fontPath: fontPath, log: log.Named("slip.pdf")}
}

func (r *PDFRenderer) ContentType() string { return "application/pdf" }

func (r *PDFRenderer) Extension() string { return "pdf" }

func (r *PDFRenderer) Render(ctx context.Context, view View) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	builder := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(15).
		WithRightMargin(15).
		WithTopMargin(15)

	if path := strings.TrimSpace(r.fontPath()); path != "" {
		if _, err := os.Stat(path); err != nil {
			r.log.Warn("slip font unavailable, using built-in font", zap.String("path", path), zap.Error(err))
		} else {
			fonts, err := repository.New().
				AddUTF8Font(slipFontFamily, fontstyle.Normal, path).
				AddUTF8Font(slipFontFamily, fontstyle.Bold, path).
				Load()
			if err != nil {
				return nil, fmt.Errorf("load slip font: %w", err)
			}
			builder = builder.
				WithCustomFonts(fonts).
				WithDefaultFont(&props.Font{Family: slipFontFamily, Size: 10})
		}
	}

	m := maroto.New(builder.Build())

	m.AddRow(14,
		text.NewCol(12, view.Title, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Center,
		}),
	)

	m.AddRow(8,
		text.NewCol(2, "受付日", labelProps()),
		text.NewCol(3, view.ReceptionDate, valueProps()),
		text.NewCol(3, checkText(view.ReceptionChecks...), valueProps()),
		text.NewCol(2, "受注者", labelProps()),
		text.NewCol(2, view.StaffName, valueProps()),
	)
	m.AddRow(10,
		text.NewCol(2, "お受け取り日時", labelProps()),
		text.NewCol(6, view.PickupAt, props.Text{Size: 12, Style: fontstyle.Bold, Top: 2}),
		text.NewCol(4, checkText(view.DeliveryChecks...), props.Text{Size: 12, Top: 2}),
	)
	field(m, "お客様氏名", view.CustomerName)
	field(m, "お電話番号", view.PhoneNumber)

	m.AddRow(8,
		text.NewCol(5, "商品名", headerProps(align.Left)),
		text.NewCol(1, "個数", headerProps(align.Right)),
		text.NewCol(3, "単価", headerProps(align.Right)),
		text.NewCol(3, "合計金額", headerProps(align.Right)),
	)
	if len(view.Lines) == 0 {
		m.AddRow(7, text.NewCol(12, view.EmptyLines, valueProps()))
	}
	for _, line := range view.Lines {
		m.AddRow(7,
			text.NewCol(5, line.Name, valueProps()),
			text.NewCol(1, line.Quantity, cellProps(align.Right)),
			text.NewCol(3, line.UnitPrice+" ("+line.TaxLabel+")", cellProps(align.Right)),
			text.NewCol(3, line.Amount, cellProps(align.Right)),
		)
	}

	for _, total := range view.TotalLines {
		style := props.Text{Size: 9, Align: align.Right, Top: 1}
		height := 6.0
		if total.Main {
			style = props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Right, Top: 1}
			height = 9
		}
		m.AddRow(height, col.New(6), text.NewCol(6, total.Text, style))
	}

	field(m, "詳細・備考", strings.Join(view.Notes, " / "))
	field(m, "配達先住所", view.DeliveryAddress)
	field(m, "代金", checkText(view.PaymentChecks...))
	field(m, "納品請求書", checkText(view.InvoiceCheck))
	field(m, "領収書宛名", view.BillingName)
	field(m, "部門", checkText(view.DeptChecks...))

	m.AddRow(12,
		col.New(6),
		col.New(6).Add(
			text.New(view.StoreName, props.Text{Align: align.Right, Top: 2}),
			text.New(view.StorePhone, props.Text{Align: align.Right, Top: 7}),
		),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate slip pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

func field(m core.Maroto, label, value string) {
	m.AddRow(8,
		text.NewCol(2, label, labelProps()),
		text.NewCol(10, value, valueProps()),
	)
}

// checkText renders checkboxes as ■/□ followed by the label.
func checkText(checks ...Check) string {
	parts := make([]string, 0, len(checks))
	for _, c := range checks {
		mark := "□"
		if c.Checked {
			mark = "■"
		}
		parts = append(parts, mark+c.Label)
	}
	return strings.Join(parts, "  ")
}

func labelProps() props.Text {
	return props.Text{Size: 9, Style: fontstyle.Bold, Top: 2}
}

func valueProps() props.Text {
	return props.Text{Size: 10, Top: 2}
}

func headerProps(a align.Type) props.Text {
	return props.Text{Size: 9, Style: fontstyle.Bold, Align: a, Top: 2}
}

func cellProps(a align.Type) props.Text {
	return props.Text{Size: 9, Align: a, Top: 2}
}

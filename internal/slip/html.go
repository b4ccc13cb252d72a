package slip

import (
	"bytes"
	"context"
	"html/template"
)

const slipHTMLTemplate = `<!doctype html>
<html lang="ja">
<head>
  <meta charset="utf-8" />
  <title>{{.Title}} {{.OrderID}}</title>
  <style>
    @media print {
      @page { size: A4; margin: 0; }
      body { margin: 0; -webkit-print-color-adjust: exact; print-color-adjust: exact; }
    }
    * { box-sizing: border-box; }
    body { margin: 0; font-family: "Hiragino Kaku Gothic ProN", "Noto Sans JP", sans-serif; background: #fff; }
    .paper { width: 210mm; min-height: 297mm; margin: 0 auto; padding: 15mm; position: relative; }
    .paper-title { font-size: 24px; font-weight: bold; text-align: center; margin-bottom: 20px; letter-spacing: 2px; }
    .paper-table { width: 100%; border-collapse: collapse; table-layout: fixed; border: 2px solid #000; }
    .paper-table th, .paper-table td { border: 1px solid #000; padding: 6px; font-size: 11pt; vertical-align: middle; word-break: break-all; }
    .paper-table th { background: #f0f0f0; width: 28mm; }
    .pickup { background: #fffde7; font-size: 1.2em; font-weight: bold; }
    .products { display: flex; }
    .products table { flex: 1; border-collapse: collapse; }
    .products th, .products td { border: 1px solid #000; padding: 4px; font-size: 10pt; }
    .products th { background: transparent; width: auto; }
    .td-right { text-align: right; }
    .tax-label { font-size: 0.85em; }
    .total-details { width: 55mm; text-align: right; font-size: 10pt; line-height: 1.4; padding: 4px; }
    .total-main { font-size: 16pt; font-weight: bold; border-top: 2px solid #000; border-bottom: 2px solid #000; margin: 5px 0; padding: 5px 0; }
    .check-box { display: inline-block; width: 14px; height: 14px; border: 1px solid #000; text-align: center; line-height: 12px; font-size: 12px; margin-right: 2px; }
    .check-item { margin-right: 12px; display: inline-block; }
    .store-info { margin-top: 16px; text-align: right; }
  </style>
</head>
<body>
  <div class="paper">
    <h1 class="paper-title">{{.Title}}</h1>
    <table class="paper-table">
      <tr>
        <th>受付日</th>
        <td>{{.ReceptionDate}}</td>
        <td>{{range .ReceptionChecks}}{{template "check" .}}{{end}}</td>
        <th>受注者</th>
        <td>{{.StaffName}}</td>
      </tr>
      <tr>
        <th>お受け取り日時</th>
        <td colspan="2" class="pickup">{{.PickupAt}}</td>
        <td colspan="2">{{range .DeliveryChecks}}{{template "check" .}}{{end}}</td>
      </tr>
      <tr><th>お客様氏名</th><td colspan="4">{{.CustomerName}}</td></tr>
      <tr><th>お電話番号</th><td colspan="4">{{.PhoneNumber}}</td></tr>
      <tr>
        <th>ご注文品</th>
        <td colspan="4" style="padding: 0;">
          <div class="products">
            <table>
              <thead><tr><th style="width: 50%;">商品名</th><th>個数</th><th>単価</th><th>合計金額</th></tr></thead>
              <tbody>
              {{range .Lines}}
                <tr>
                  <td>{{.Name}}</td>
                  <td class="td-right">{{.Quantity}}</td>
                  <td class="td-right">{{.UnitPrice}}<br><span class="tax-label">({{.TaxLabel}})</span></td>
                  <td class="td-right">{{.Amount}}</td>
                </tr>
              {{else}}
                <tr><td colspan="4">{{.EmptyLines}}</td></tr>
              {{end}}
              </tbody>
            </table>
            <div class="total-details">
              {{range .TotalLines}}<div{{if .Main}} class="total-main"{{end}}>{{.Text}}</div>{{end}}
            </div>
          </div>
        </td>
      </tr>
      <tr><th>詳細・備考</th><td colspan="4">{{range $i, $n := .Notes}}{{if $i}}<br>{{end}}{{$n}}{{end}}</td></tr>
      <tr><th>配達先住所</th><td colspan="4">{{.DeliveryAddress}}</td></tr>
      <tr><th>代金</th><td colspan="4">{{range .PaymentChecks}}{{template "check" .}}{{end}}</td></tr>
      <tr><th>納品請求書</th><td colspan="4">{{template "check" .InvoiceCheck}}</td></tr>
      <tr><th>ご請求先<br>領収書宛名</th><td colspan="4">{{.BillingName}}</td></tr>
      <tr><th>部門</th><td colspan="4">{{range .DeptChecks}}{{template "check" .}}{{end}}</td></tr>
    </table>
    <div class="store-info">
      <div>{{.StoreName}}</div>
      <div>{{.StorePhone}}</div>
    </div>
  </div>
</body>
</html>
{{define "check"}}<span class="check-item"><span class="check-box">{{if .Checked}}✓{{end}}</span>{{.Label}}</span>{{end}}`

// Renderer turns a slip view into a printable document.
type Renderer interface {
	Render(ctx context.Context, view View) ([]byte, error)
	ContentType() string
	Extension() string
}

type HTMLRenderer struct {
	tpl *template.Template
}

func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		tpl: template.Must(template.New("slip").Parse(slipHTMLTemplate)),
	}
}

func (r *HTMLRenderer) Render(_ context.Context, view View) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *HTMLRenderer) ContentType() string { return "text/html; charset=utf-8" }

func (r *HTMLRenderer) Extension() string { return "html" }

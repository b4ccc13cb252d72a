package legacy

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/internal/order/form"
	taxdomain "github.com/smallbiznis/orderdesk/internal/tax/domain"
	taxservice "github.com/smallbiznis/orderdesk/internal/tax/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNormalizer() *Normalizer {
	return NewNormalizer(taxservice.NewCalculator())
}

func TestDecode_CurrentLayoutRoundTrip(t *testing.T) {
	order := form.Assemble(taxservice.NewCalculator(), domain.SubmitRequest{
		CustomerName: "ヤマダ 様",
		PaymentType:  "売掛",
		Lines: []domain.RawLine{
			{Name: "Apple", Quantity: "2", UnitPrice: "100", TaxTreatment: "inclusive", TaxRate: "8"},
			{Name: "Box", Quantity: "1", UnitPrice: "500", TaxTreatment: "exclusive", TaxRate: "10"},
		},
	})
	order.ID = snowflake.ID(42)
	order.Status = domain.StatusProcessed
	order.CreatedAt = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	order.UpdatedAt = order.CreatedAt

	data, err := json.Marshal(order)
	require.NoError(t, err)

	got, err := newNormalizer().Decode(data)
	require.NoError(t, err)
	assert.Equal(t, order, got)
	assert.Nil(t, got.LegacyTotals)
	assert.Zero(t, got.MigratedFrom)
}

func TestDecode_Version1PlainSum(t *testing.T) {
	data := `{
		"id": "1714000000000",
		"customerName": " スズキ 様 ",
		"paymentMethod": "代スミ",
		"status": "未処理",
		"createdAt": "2024-04-25T01:02:03.456Z",
		"products": [{"name": "Apple", "quantity": "2", "price": "100"}],
		"totalAmount": 200
	}`

	got, err := newNormalizer().Decode([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, snowflake.ID(1714000000000), got.ID)
	assert.Equal(t, "スズキ 様", got.CustomerName)
	assert.Equal(t, "代スミ", got.PaymentType)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, domain.CurrentSchemaVersion, got.SchemaVersion)
	assert.Equal(t, time.Date(2024, 4, 25, 1, 2, 3, 456000000, time.UTC), got.CreatedAt)
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)

	require.Len(t, got.Items, 1)
	assert.Equal(t, taxdomain.DefaultTreatment, got.Items[0].Treatment)
	assert.Equal(t, taxdomain.DefaultRate, got.Items[0].RatePercent)
	assert.Equal(t, int64(200), got.Items[0].BaseAmount)

	assert.Equal(t, int64(200), got.GrandTotal)
	assert.Nil(t, got.LegacyTotals)
	assert.Equal(t, 1, got.MigratedFrom)
}

func TestDecode_Version1OrderLevelTreatment(t *testing.T) {
	data := `{
		"id": 7,
		"customerName": "タナカ 様",
		"taxType": "税抜",
		"products": [{"name": "Gift", "quantity": 1, "price": 1000}],
		"totalAmount": 1000
	}`

	got, err := newNormalizer().Decode([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, snowflake.ID(7), got.ID)
	assert.Equal(t, taxdomain.TaxExclusive, got.Items[0].Treatment)
	assert.Equal(t, int64(100), got.Tax10)
	assert.Equal(t, int64(1100), got.GrandTotal)

	require.NotNil(t, got.LegacyTotals)
	assert.Equal(t, int64(1000), got.LegacyTotals.GrandTotal)
	assert.Equal(t, int64(1000), got.LegacyTotals.Subtotal)
	assert.Equal(t, 1, got.MigratedFrom)
}

func TestDecode_Version2PerRowRounding(t *testing.T) {
	data := `{
		"id": "9",
		"customerName": "サトウ 様",
		"products": [
			{"name": "Gum", "quantity": 1, "price": 15, "taxType": "税抜", "taxRate": 10, "subtotal": 16},
			{"name": "Candy", "quantity": 1, "price": 15, "taxType": "税抜", "taxRate": "10%", "subtotal": 16}
		],
		"totalAmount": 32
	}`

	got, err := newNormalizer().Decode([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, int64(3), got.Tax10)
	assert.Equal(t, int64(33), got.GrandTotal)
	require.NotNil(t, got.LegacyTotals)
	assert.Equal(t, int64(32), got.LegacyTotals.GrandTotal)
	assert.Equal(t, 2, got.MigratedFrom)
}

func TestDecode_Version3InnerTaxSemantics(t *testing.T) {
	data := `{
		"id": "11",
		"customerName": "ヤマダ 様",
		"status": "処理済み",
		"invoiceRequired": "要",
		"products": [
			{"name": "Apple", "quantity": 2, "unitPrice": 100, "taxType": "税込", "taxRate": 8},
			{"name": "Box", "quantity": 1, "unitPrice": 500, "taxType": "税抜", "taxRate": 10}
		],
		"subtotal": 700,
		"taxExcluded10Total": 500,
		"tax8Amount": 0,
		"tax10Amount": 50,
		"innerTaxTotal": 14,
		"totalAmount": 750
	}`

	got, err := newNormalizer().Decode([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusProcessed, got.Status)
	assert.True(t, got.InvoiceRequired)
	assert.Equal(t, int64(50), got.InnerTax)
	assert.Equal(t, int64(750), got.GrandTotal)
	require.NotNil(t, got.LegacyTotals)
	assert.Equal(t, int64(14), got.LegacyTotals.InnerTax)
	assert.Equal(t, int64(750), got.LegacyTotals.GrandTotal)
	assert.Equal(t, 3, got.MigratedFrom)
}

func TestDecode_Version4LegacyKeysMatch(t *testing.T) {
	data := `{
		"id": "12",
		"customerName": "ヤマダ 様",
		"products": [
			{"name": "Apple", "quantity": 2, "unitPrice": 100, "taxType": "税込", "taxRate": 8},
			{"name": "Box", "quantity": 1, "unitPrice": 500, "taxType": "税抜", "taxRate": 10}
		],
		"subtotal": 700,
		"taxExcluded8Total": 0,
		"taxExcluded10Total": 500,
		"tax8Amount": 0,
		"tax10Amount": 50,
		"innerTaxTotal": 50,
		"totalAmount": 750
	}`

	got, err := newNormalizer().Decode([]byte(data))
	require.NoError(t, err)

	assert.Nil(t, got.LegacyTotals)
	assert.Zero(t, got.MigratedFrom)
	assert.Equal(t, int64(3), got.ItemCount)
}

func TestDecode_RateAndQuantityCoercion(t *testing.T) {
	data := `{
		"customerName": "A",
		"products": [
			{"name": "One", "quantity": "３", "unitPrice": "¥1,000", "taxTreatment": "exclusive", "taxRatePercent": "8%"},
			{"name": "Two", "quantity": 1, "unitPrice": 100, "taxTreatment": "exclusive", "taxRatePercent": 5},
			{"name": "Three", "quantity": -2, "unitPrice": 100}
		]
	}`

	got, err := newNormalizer().Decode([]byte(data))
	require.NoError(t, err)

	require.Len(t, got.Items, 3)
	assert.Equal(t, int64(3), got.Items[0].Quantity)
	assert.Equal(t, int64(1000), got.Items[0].UnitPrice)
	assert.Equal(t, taxdomain.Rate8, got.Items[0].RatePercent)
	assert.Equal(t, taxdomain.DefaultRate, got.Items[1].RatePercent)
	assert.Equal(t, int64(0), got.Items[2].Quantity)

	assert.Equal(t, snowflake.ID(0), got.ID)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, []string{}, got.Departments)
}

func TestDecode_RejectsNonObjects(t *testing.T) {
	n := newNormalizer()
	for _, raw := range []string{"", "[]", "nope", `"x"`, "{"} {
		_, err := n.Decode([]byte(raw))
		assert.ErrorIs(t, err, ErrInvalidRecord, raw)
	}
}

func TestDecodeAll(t *testing.T) {
	n := newNormalizer()

	orders, err := n.DecodeAll([]byte(`[{"id":"1","customerName":"A"},{"id":2,"customerName":"B"}]`))
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, snowflake.ID(2), orders[1].ID)

	_, err = n.DecodeAll([]byte(`{"id":"1"}`))
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = n.DecodeAll([]byte(`[{"id":"1"}, 5]`))
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestDecode_OversizedNumbersReadAsZero(t *testing.T) {
	data := `{
		"id": "13",
		"customerName": "A",
		"products": [
			{"name": "Huge", "quantity": 1e20, "unitPrice": "100000000000", "taxType": "税抜", "taxRate": 10},
			{"name": "Wide", "quantity": 2000000000, "unitPrice": 300, "taxType": "税抜", "taxRate": 8},
			{"name": "Ok", "quantity": 2, "unitPrice": 1000000000, "taxType": "税抜", "taxRate": 10}
		],
		"totalAmount": 1e30
	}`

	got, err := newNormalizer().Decode([]byte(data))
	require.NoError(t, err)

	require.Len(t, got.Items, 3)
	assert.Zero(t, got.Items[0].Quantity)
	assert.Zero(t, got.Items[0].UnitPrice)
	assert.Zero(t, got.Items[1].Quantity)
	assert.Equal(t, int64(2_000_000_000), got.Items[2].BaseAmount)

	assert.Equal(t, int64(2_000_000_000), got.Subtotal)
	assert.Equal(t, int64(200_000_000), got.Tax10)
	assert.Equal(t, int64(2_200_000_000), got.GrandTotal)
	require.NotNil(t, got.LegacyTotals)
	assert.Zero(t, got.LegacyTotals.GrandTotal)
}

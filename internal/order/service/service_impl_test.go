package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/kvstore"
	"github.com/smallbiznis/orderdesk/internal/observability/metrics"
	"github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/internal/order/legacy"
	"github.com/smallbiznis/orderdesk/internal/order/repository"
	taxservice "github.com/smallbiznis/orderdesk/internal/tax/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc   domain.Service
	store kvstore.Store
	clock *clock.FakeClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := kvstore.NewRedisStore(client, "test")
	calc := taxservice.NewCalculator()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		Repo:    repository.New(store, legacy.NewNormalizer(calc)),
		Calc:    calc,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   fake,
		Metrics: metrics.NewNop(),
	})
	return fixture{svc: svc, store: store, clock: fake}
}

func request(name, date string, lines ...domain.RawLine) domain.SubmitRequest {
	return domain.SubmitRequest{
		ReceptionDate: domain.RawValue(date),
		CustomerName:  domain.RawValue(name),
		PhoneNumber:   "0193-63-0000",
		Lines:         lines,
	}
}

func line(name, qty, price, treatment, rate string) domain.RawLine {
	return domain.RawLine{
		Name:         domain.RawValue(name),
		Quantity:     domain.RawValue(qty),
		UnitPrice:    domain.RawValue(price),
		TaxTreatment: domain.RawValue(treatment),
		TaxRate:      domain.RawValue(rate),
	}
}

func TestSubmit_CreateAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.Submit(ctx, domain.CreateMode(), request("ヤマダ 様", "2024-05-01",
		line("Apple", "2", "100", "inclusive", "8"),
		line("Box", "1", "500", "exclusive", "10"),
		line("", "9", "900", "exclusive", "10"),
	))
	require.NoError(t, err)

	assert.NotZero(t, order.ID)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, f.clock.Now(), order.CreatedAt)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, int64(750), order.GrandTotal)
	assert.Equal(t, int64(50), order.InnerTax)

	got, err := f.svc.Get(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, order, got)
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, domain.CreateMode(), request(" ", "2024-05-01", line("A", "1", "100", "", "")))
	assert.ErrorIs(t, err, domain.ErrInvalidCustomerName)
	assert.True(t, IsValidation(err))

	_, err = f.svc.Submit(ctx, domain.CreateMode(), request("A", "2024-05-01", line("A", "0", "0", "", "")))
	assert.ErrorIs(t, err, domain.ErrInvalidProducts)

	orders, err := f.svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestSubmit_UpdateKeepsIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Submit(ctx, domain.CreateMode(), request("A", "2024-05-01", line("A", "1", "100", "", "")))
	require.NoError(t, err)
	_, err = f.svc.ToggleStatus(ctx, created.ID.String())
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	updated, err := f.svc.Submit(ctx, domain.UpdateMode(created.ID), request("B", "2024-05-02", line("B", "3", "100", "exclusive", "8")))
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, f.clock.Now(), updated.UpdatedAt)
	assert.Equal(t, domain.StatusProcessed, updated.Status)
	assert.Equal(t, "B", updated.CustomerName)
	assert.Equal(t, int64(324), updated.GrandTotal)

	orders, err := f.svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	_, err = f.svc.Submit(ctx, domain.UpdateMode(snowflake.ID(12345)), request("C", "", line("C", "1", "1", "", "")))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGet_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
	_, err = f.svc.Get(ctx, "-1")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
	_, err = f.svc.Get(ctx, "42")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGet_LegacyRecordRecomputed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	raw := `{"id":"77","customerName":"タナカ 様","taxType":"税抜",
		"products":[{"name":"Gift","quantity":1,"price":1000}],"totalAmount":1000}`
	require.NoError(t, f.store.Put(ctx, "order:77", []byte(raw)))

	order, err := f.svc.Get(ctx, "77")
	require.NoError(t, err)
	assert.Equal(t, int64(1100), order.GrandTotal)
	require.NotNil(t, order.LegacyTotals)
	assert.Equal(t, int64(1000), order.LegacyTotals.GrandTotal)
	assert.Equal(t, 1, order.MigratedFrom)

	stored, err := f.store.Get(ctx, "order:77")
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(stored))
}

func TestList_FiltersAndOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, domain.CreateMode(), request("Yamada", "2024-05-01", line("A", "1", "100", "", "")))
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	second, err := f.svc.Submit(ctx, domain.CreateMode(), request("Suzuki", "2024-05-02", line("B", "1", "100", "", "")))
	require.NoError(t, err)
	_, err = f.svc.ToggleStatus(ctx, second.ID.String())
	require.NoError(t, err)

	all, err := f.svc.List(ctx, domain.ListRequest{Status: "all"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	byName, err := f.svc.List(ctx, domain.ListRequest{Search: "yama"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, first.ID, byName[0].ID)

	byPhone, err := f.svc.List(ctx, domain.ListRequest{Search: "63-0000"})
	require.NoError(t, err)
	assert.Len(t, byPhone, 2)

	processed, err := f.svc.List(ctx, domain.ListRequest{Status: "処理済み"})
	require.NoError(t, err)
	require.Len(t, processed, 1)
	assert.Equal(t, second.ID, processed[0].ID)

	pending, err := f.svc.List(ctx, domain.ListRequest{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)

	_, err = f.svc.List(ctx, domain.ListRequest{Status: "shipped"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, domain.CreateMode(), request("Yamada", "2024-05-01",
		line("Apple", "1", "100", "", ""), line("Pear", "1", "100", "", "")))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, domain.CreateMode(), request("Suzuki", "2024-06-01", line("Box", "1", "100", "", "")))
	require.NoError(t, err)
	require.NoError(t, f.store.Put(ctx, "order:5", []byte(`{"id":5,"receptionDate":"2024-05-15","products":[]}`)))

	items, err := f.svc.Summary(ctx, domain.SummaryRequest{})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Suzuki", items[0].CustomerName)
	assert.Equal(t, noName, items[1].CustomerName)
	assert.Equal(t, noProducts, items[1].Products)
	assert.Equal(t, "Apple, Pear", items[2].Products)

	items, err = f.svc.Summary(ctx, domain.SummaryRequest{Search: "YAMA"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "2024-05-01", items[0].ReceptionDate)
}

func TestToggleAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.Submit(ctx, domain.CreateMode(), request("A", "", line("A", "1", "100", "", "")))
	require.NoError(t, err)

	toggled, err := f.svc.ToggleStatus(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessed, toggled.Status)
	toggled, err = f.svc.ToggleStatus(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, toggled.Status)

	require.NoError(t, f.svc.Delete(ctx, order.ID.String()))
	assert.ErrorIs(t, f.svc.Delete(ctx, order.ID.String()), domain.ErrNotFound)
	_, err = f.svc.Get(ctx, order.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, "x"), domain.ErrInvalidID)
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	preview := f.svc.Preview(context.Background(), []domain.RawLine{line("Gum", "1", "15", "exclusive", "10")})
	assert.Equal(t, int64(16), preview.Totals.GrandTotal)
}

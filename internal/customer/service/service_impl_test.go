package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/customer/domain"
	"github.com/smallbiznis/orderdesk/internal/customer/repository"
	"github.com/smallbiznis/orderdesk/internal/kvstore"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/internal/order/legacy"
	orderrepo "github.com/smallbiznis/orderdesk/internal/order/repository"
	taxservice "github.com/smallbiznis/orderdesk/internal/tax/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T) (domain.Service, kvstore.Store, *clock.FakeClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := kvstore.NewRedisStore(client, "test")
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	fake := clock.NewFakeClock(base)

	svc := New(Params{
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  fake,
		Repo:   repository.Provide(store),
		Orders: orderrepo.New(store, legacy.NewNormalizer(taxservice.NewCalculator())),
	})
	return svc, store, fake
}

func putOrder(t *testing.T, store kvstore.Store, id int64, name, phone string, at time.Time) {
	t.Helper()
	order := orderdomain.Order{
		ID:            snowflake.ID(id),
		SchemaVersion: orderdomain.CurrentSchemaVersion,
		Status:        orderdomain.StatusPending,
		CreatedAt:     at,
		UpdatedAt:     at,
		CustomerName:  name,
		PhoneNumber:   phone,
		Departments:   []string{},
	}
	data, err := json.Marshal(order)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "order:"+order.ID.String(), data))
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"":            "",
		"   ":         "",
		"やまだ":         "ヤマダ 様",
		" すずき たろう ":   "スズキ タロウ 様",
		"ヤマダ 様":       "ヤマダ 様",
		"やまだ様":        "やまだ様",
		"Tamakiya":    "Tamakiya 様",
		"山田 はなこ":      "山田 ハナコ 様",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeName(in), "input %q", in)
	}
}

func TestRegistryCRUD(t *testing.T) {
	svc, _, fake := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	yamada, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: " ヤマダ 様 ", Phone: "0193-11-1111"})
	require.NoError(t, err)
	assert.Equal(t, "ヤマダ 様", yamada.Name)
	assert.Equal(t, base, yamada.CreatedAt)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "サトウ 様", Phone: "0193-22-2222"})
	require.NoError(t, err)

	list, err := svc.List(ctx, domain.ListCustomerRequest{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "サトウ 様", list[0].Name)
	assert.Equal(t, "ヤマダ 様", list[1].Name)

	list, err = svc.List(ctx, domain.ListCustomerRequest{Search: "11-1111"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, yamada.ID, list[0].ID)

	fake.Advance(time.Hour)
	updated, err := svc.Update(ctx, domain.UpdateCustomerRequest{ID: yamada.ID.String(), Name: "ヤマダ 花子 様", Address: "盛岡"})
	require.NoError(t, err)
	assert.Equal(t, yamada.CreatedAt, updated.CreatedAt)
	assert.Equal(t, fake.Now(), updated.UpdatedAt)
	assert.Equal(t, "盛岡", updated.Address)
	assert.Empty(t, updated.Phone)

	_, err = svc.Update(ctx, domain.UpdateCustomerRequest{ID: "99", Name: "X"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Update(ctx, domain.UpdateCustomerRequest{ID: "nope", Name: "X"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	require.NoError(t, svc.Delete(ctx, yamada.ID.String()))
	assert.ErrorIs(t, svc.Delete(ctx, yamada.ID.String()), domain.ErrNotFound)
}

func TestDirectory(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	putOrder(t, store, 1, "ヤマダ 様", "old", base)
	putOrder(t, store, 2, "サトウ 様", "0193-22", base.Add(time.Hour))
	putOrder(t, store, 3, "ヤマダ 様", "new", base.Add(2*time.Hour))
	putOrder(t, store, 4, "", "none", base.Add(3*time.Hour))
	putOrder(t, store, 5, "タナカ 様", "0193-33", base.Add(-time.Hour))

	entries, err := svc.Directory(ctx, domain.DirectoryRequest{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"サトウ 様", "タナカ 様", "ヤマダ 様"}, names(entries))
	assert.Equal(t, "new", entries[2].Phone)
	assert.Equal(t, base.Add(2*time.Hour), entries[2].LastOrderAt)

	entries, err = svc.Directory(ctx, domain.DirectoryRequest{SortBy: "date", Order: "desc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ヤマダ 様", "サトウ 様", "タナカ 様"}, names(entries))

	entries, err = svc.Directory(ctx, domain.DirectoryRequest{SortBy: "name", Order: "desc", Search: "ta"})
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = svc.Directory(ctx, domain.DirectoryRequest{Search: "タナ"})
	require.NoError(t, err)
	assert.Equal(t, []string{"タナカ 様"}, names(entries))

	_, err = svc.Directory(ctx, domain.DirectoryRequest{SortBy: "phone"})
	assert.ErrorIs(t, err, domain.ErrInvalidSort)
	_, err = svc.Directory(ctx, domain.DirectoryRequest{Order: "up"})
	assert.ErrorIs(t, err, domain.ErrInvalidSort)
}

func TestPrefill(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	putOrder(t, store, 1, "ヤマダ 様", "old", base)
	putOrder(t, store, 2, "ヤマダ 様", "new", base.Add(time.Hour))

	prefill, err := svc.Prefill(ctx, " ヤマダ 様 ")
	require.NoError(t, err)
	assert.Equal(t, domain.Prefill{Name: "ヤマダ 様", Phone: "new"}, prefill)

	_, err = svc.Prefill(ctx, "サトウ 様")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Prefill(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func names(entries []domain.DirectoryEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/kvstore"
	"github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/internal/order/legacy"
)

const keyPrefix = "order:"

type repo struct {
	store      kvstore.Store
	normalizer *legacy.Normalizer
}

func New(store kvstore.Store, normalizer *legacy.Normalizer) domain.Repository {
	return &repo{store: store, normalizer: normalizer}
}

func key(id snowflake.ID) string {
	return keyPrefix + id.String()
}

func (r *repo) Insert(ctx context.Context, order *domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	if err := r.store.Create(ctx, key(order.ID), data); err != nil {
		return fmt.Errorf("insert order %s: %w", order.ID, err)
	}
	return nil
}

func (r *repo) Update(ctx context.Context, order *domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	if err := r.store.Put(ctx, key(order.ID), data); err != nil {
		return fmt.Errorf("update order %s: %w", order.ID, err)
	}
	return nil
}

// FindByID returns nil, nil when the order does not exist.
func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Order, error) {
	data, err := r.store.Get(ctx, key(id))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	order, err := r.decode(key(id), data)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repo) List(ctx context.Context) ([]domain.Order, error) {
	entries, err := r.store.List(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(entries))
	for _, entry := range entries {
		order, err := r.decode(entry.Key, entry.Value)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (r *repo) Delete(ctx context.Context, id snowflake.ID) error {
	err := r.store.Delete(ctx, key(id))
	if errors.Is(err, kvstore.ErrNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func (r *repo) ReplaceAll(ctx context.Context, orders []domain.Order) error {
	entries := make([]kvstore.Entry, 0, len(orders))
	for i := range orders {
		data, err := json.Marshal(&orders[i])
		if err != nil {
			return err
		}
		entries = append(entries, kvstore.Entry{
			Key:       key(orders[i].ID),
			Value:     data,
			UpdatedAt: orders[i].UpdatedAt,
		})
	}
	return r.store.ReplacePrefix(ctx, keyPrefix, entries)
}

// decode normalizes a stored record. Old records may lack an id field; the
// key then supplies it.
func (r *repo) decode(k string, data []byte) (domain.Order, error) {
	order, err := r.normalizer.Decode(data)
	if err != nil {
		return domain.Order{}, fmt.Errorf("decode %s: %w", k, err)
	}
	if order.ID == 0 {
		if id, err := snowflake.ParseString(strings.TrimPrefix(k, keyPrefix)); err == nil {
			order.ID = id
		}
	}
	return order, nil
}

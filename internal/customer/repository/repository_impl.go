package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/customer/domain"
	"github.com/smallbiznis/orderdesk/internal/kvstore"
)

const keyPrefix = "customer:"

type repo struct {
	store kvstore.Store
}

func Provide(store kvstore.Store) domain.Repository {
	return &repo{store: store}
}

func key(id snowflake.ID) string {
	return keyPrefix + id.String()
}

func (r *repo) Insert(ctx context.Context, customer *domain.Customer) error {
	data, err := json.Marshal(customer)
	if err != nil {
		return err
	}
	if err := r.store.Create(ctx, key(customer.ID), data); err != nil {
		return fmt.Errorf("insert customer %s: %w", customer.ID, err)
	}
	return nil
}

func (r *repo) Update(ctx context.Context, customer *domain.Customer) error {
	data, err := json.Marshal(customer)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, key(customer.ID), data)
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Customer, error) {
	data, err := r.store.Get(ctx, key(id))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var customer domain.Customer
	if err := json.Unmarshal(data, &customer); err != nil {
		return nil, fmt.Errorf("decode customer %s: %w", id, err)
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context) ([]domain.Customer, error) {
	entries, err := r.store.List(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	customers := make([]domain.Customer, 0, len(entries))
	for _, entry := range entries {
		var customer domain.Customer
		if err := json.Unmarshal(entry.Value, &customer); err != nil {
			return nil, fmt.Errorf("decode %s: %w", entry.Key, err)
		}
		customers = append(customers, customer)
	}
	return customers, nil
}

func (r *repo) Delete(ctx context.Context, id snowflake.ID) error {
	err := r.store.Delete(ctx, key(id))
	if errors.Is(err, kvstore.ErrNotFound) {
		return domain.ErrNotFound
	}
	return err
}

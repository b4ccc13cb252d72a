package domain

import (
	"context"
	"errors"
)

type CreateCustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type UpdateCustomerRequest struct {
	ID      string `json:"-"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type ListCustomerRequest struct {
	Search string
}

// Directory sort keys.
const (
	SortByName = "name"
	SortByDate = "date"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

type DirectoryRequest struct {
	Search string
	SortBy string
	Order  string
}

type Service interface {
	Create(ctx context.Context, req CreateCustomerRequest) (Customer, error)
	Update(ctx context.Context, req UpdateCustomerRequest) (Customer, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, req ListCustomerRequest) ([]Customer, error)
	Directory(ctx context.Context, req DirectoryRequest) ([]DirectoryEntry, error)
	Prefill(ctx context.Context, name string) (Prefill, error)
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidID   = errors.New("invalid_id")
	ErrInvalidSort = errors.New("invalid_sort")
	ErrNotFound    = errors.New("not_found")
)

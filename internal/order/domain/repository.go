package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Insert(ctx context.Context, order *Order) error
	Update(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id snowflake.ID) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	Delete(ctx context.Context, id snowflake.ID) error
	ReplaceAll(ctx context.Context, orders []Order) error
}

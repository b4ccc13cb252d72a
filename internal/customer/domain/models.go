package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Customer is a registry entry kept independently of orders.
type Customer struct {
	ID        snowflake.ID `json:"id"`
	Name      string       `json:"name"`
	Phone     string       `json:"phone"`
	Address   string       `json:"address"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// DirectoryEntry is a customer seen on stored orders. The most recent order
// for a name supplies the contact fields.
type DirectoryEntry struct {
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	LastOrderAt time.Time `json:"lastOrderAt"`
}

// Prefill holds the contact fields copied into a new order form.
type Prefill struct {
	Name    string `json:"customerName"`
	Phone   string `json:"phoneNumber"`
	Address string `json:"deliveryAddress"`
}

package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/superkart/kart-backend/pkg/pagination"
)

// CreateProductInput captures the payload for a new catalog listing.
type CreateProductInput struct {
	Name        string
	Brand       string
	Description *string
	Price       decimal.Decimal
	Inventory   int
	CategoryID  *uuid.UUID
}

// UpdateProductInput carries the mutable fields of a listing. Nil pointers
// leave the current value untouched.
type UpdateProductInput struct {
	Name          *string
	Brand         *string
	Description   *string
	Price         *decimal.Decimal
	Inventory     *int
	CategoryID    *uuid.UUID
	ClearCategory bool
}

// ListFilters narrows the catalog listing query.
type ListFilters struct {
	CategoryID *uuid.UUID
	Query      string
	PriceMin   *decimal.Decimal
	PriceMax   *decimal.Decimal
	InStock    *bool
}

// ListQuery bundles pagination and filters for catalog reads.
type ListQuery struct {
	Pagination pagination.Params
	Filters    ListFilters
}

// Summary is the projection served on catalog list endpoints.
type Summary struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Brand        string          `json:"brand"`
	Price        decimal.Decimal `json:"price"`
	Inventory    int             `json:"inventory"`
	CategoryID   *uuid.UUID      `json:"category_id,omitempty"`
	CategoryName *string         `json:"category_name,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ListResult wraps one page of catalog summaries.
type ListResult struct {
	Products   []Summary `json:"products"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

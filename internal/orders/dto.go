package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/superkart/kart-backend/pkg/db/models"
	"github.com/superkart/kart-backend/pkg/enums"
)

// ItemView is one order line projected for API responses. ProductID is nil
// when the catalog listing has since been deleted; the snapshots remain.
type ItemView struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   *uuid.UUID      `json:"product_id,omitempty"`
	ProductName string          `json:"product_name"`
	Brand       string          `json:"brand"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// View is the full order projection.
type View struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber string            `json:"order_number"`
	UserID      uuid.UUID         `json:"user_id"`
	OrderDate   time.Time         `json:"order_date"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Status      enums.OrderStatus `json:"status"`
	Items       []ItemView        `json:"items"`
}

// ListResult wraps one admin page of orders.
type ListResult struct {
	Orders     []View `json:"orders"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// NewView projects a stored order into its API shape.
func NewView(order *models.Order) View {
	view := View{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		OrderDate:   order.OrderDate,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		Items:       make([]ItemView, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, ItemView{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Brand:       item.Brand,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Subtotal:    item.Subtotal(),
		})
	}
	return view
}

package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineView is one cart line projected for API responses.
type LineView struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// View is the full cart projection: lines plus the exact decimal total.
type View struct {
	CartID uuid.UUID       `json:"cart_id"`
	UserID uuid.UUID       `json:"user_id"`
	Items  []LineView      `json:"items"`
	Total  decimal.Decimal `json:"total"`
}

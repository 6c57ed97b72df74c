package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/superkart/kart-backend/pkg/enums"
)

// Order is the immutable record of a completed checkout. TotalAmount is
// fixed at creation and never recomputed from live product prices.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber string            `gorm:"column:order_number;type:text;not null;uniqueIndex:idx_orders_number"`
	UserID      uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	OrderDate   time.Time         `gorm:"column:order_date;not null"`
	TotalAmount decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Items       []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

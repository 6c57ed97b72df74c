package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/superkart/kart-backend/internal/cart"
	product "github.com/superkart/kart-backend/internal/products"
	"github.com/superkart/kart-backend/pkg/db"
	"github.com/superkart/kart-backend/pkg/db/models"
	"github.com/superkart/kart-backend/pkg/enums"
	pkgerrors "github.com/superkart/kart-backend/pkg/errors"
	"github.com/superkart/kart-backend/pkg/metrics"
	"github.com/superkart/kart-backend/pkg/pagination"
	pkgstripe "github.com/superkart/kart-backend/pkg/stripe"
)

// A colliding order number rolls the whole placement back, so the retry
// wraps the full transaction.
const maxPlacementAttempts = 3

const paymentCurrency = "usd"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency, orderNumber string) (*pkgstripe.PaymentIntent, error)
}

// Service drives the cart-to-order workflow and order lifecycle.
type Service interface {
	Place(ctx context.Context, userID uuid.UUID) (*View, error)
	GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*View, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]View, error)
	ListAll(ctx context.Context, params pagination.Params) (*ListResult, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, rawStatus string) (*View, error)
	CreatePaymentIntent(ctx context.Context, userID, orderID uuid.UUID) (*pkgstripe.PaymentIntent, error)
}

type service struct {
	repo     *Repository
	carts    *cart.Repository
	products *product.Repository
	tx       txRunner
	gateway  paymentGateway
	metrics  *metrics.OrderMetrics
}

// NewService builds the order service. The payment gateway and metrics are
// optional; everything else is required.
func NewService(
	repo *Repository,
	carts *cart.Repository,
	products *product.Repository,
	tx txRunner,
	gateway paymentGateway,
	orderMetrics *metrics.OrderMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     repo,
		carts:    carts,
		products: products,
		tx:       tx,
		gateway:  gateway,
		metrics:  orderMetrics,
	}, nil
}

// Place converts the user's cart into an order in one transaction: the cart
// is read, every line's inventory is decremented under a guard, the order
// and its snapshots are written, and the consumed lines are removed from the
// cart. Any failure rolls the whole placement back, leaving cart and
// inventory untouched.
func (s *service) Place(ctx context.Context, userID uuid.UUID) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	started := time.Now()
	var placed *models.Order
	var err error
	for attempt := 0; attempt < maxPlacementAttempts; attempt++ {
		placed, err = s.placeOnce(ctx, userID)
		if err != nil && db.IsUniqueViolation(err) {
			continue
		}
		break
	}
	if err != nil {
		s.metrics.IncFailed(failureReason(err))
		s.metrics.ObserveDuration("failure", time.Since(started))
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place order")
		}
		return nil, err
	}

	s.metrics.IncPlaced()
	s.metrics.ObserveDuration("success", time.Since(started))
	view := NewView(placed)
	return &view, nil
}

func (s *service) placeOnce(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var placed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		productRepo := s.products.WithTx(tx)
		ordersRepo := s.repo.WithTx(tx)

		record, err := cartRepo.FindByUserWithItems(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(record.Items))
		lineIDs := make([]uuid.UUID, 0, len(record.Items))
		for _, line := range record.Items {
			listing, err := productRepo.FindByID(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product is no longer available")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}

			ok, err := productRepo.DecrementInventory(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement inventory")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient inventory").
					WithDetails(map[string]any{
						"product_id": listing.ID,
						"available":  listing.Inventory,
						"requested":  line.Quantity,
					})
			}

			productID := line.ProductID
			items = append(items, models.OrderItem{
				ProductID:   &productID,
				ProductName: listing.Name,
				Brand:       listing.Brand,
				Quantity:    line.Quantity,
				Price:       line.UnitPrice,
			})
			total = total.Add(line.Subtotal())
			lineIDs = append(lineIDs, line.ID)
		}

		order := &models.Order{
			OrderNumber: NewOrderNumber(),
			UserID:      userID,
			OrderDate:   time.Now().UTC(),
			TotalAmount: total.Round(2),
			Status:      enums.OrderStatusPending,
			Items:       items,
		}
		if _, err := ordersRepo.Create(ctx, order); err != nil {
			return err
		}

		// Clear only the lines this placement consumed; a line added by a
		// concurrent request after the snapshot survives for the next order.
		if err := cartRepo.DeleteItemsByID(ctx, record.ID, lineIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		placed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// GetForUser loads one order owned by the user. Orders belonging to someone
// else read as missing.
func (s *service) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*View, error) {
	order, err := s.loadOwned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	view := NewView(order)
	return &view, nil
}

// ListForUser returns the user's orders, most recent first.
func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	views := make([]View, 0, len(rows))
	for i := range rows {
		views = append(views, NewView(&rows[i]))
	}
	return views, nil
}

// ListAll returns one admin page across every user's orders.
func (s *service) ListAll(ctx context.Context, params pagination.Params) (*ListResult, error) {
	rows, nextCursor, err := s.repo.ListAll(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	result := &ListResult{
		Orders:     make([]View, 0, len(rows)),
		NextCursor: nextCursor,
	}
	for i := range rows {
		result.Orders = append(result.Orders, NewView(&rows[i]))
	}
	return result, nil
}

// UpdateStatus advances the order along the lifecycle. Moves outside the
// transition table are rejected, terminal states included.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, rawStatus string) (*View, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	next, err := enums.ParseOrderStatus(rawStatus)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if !order.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "status change is not allowed").
			WithDetails(map[string]any{
				"from": order.Status,
				"to":   next,
			})
	}

	if err := s.repo.UpdateStatus(ctx, order.ID, next); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	order.Status = next
	view := NewView(order)
	return &view, nil
}

// CreatePaymentIntent registers the order's total with the payment gateway.
// Only orders still awaiting payment qualify.
func (s *service) CreatePaymentIntent(ctx context.Context, userID, orderID uuid.UUID) (*pkgstripe.PaymentIntent, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway is not configured")
	}

	order, err := s.loadOwned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, order.TotalAmount, paymentCurrency, order.OrderNumber)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}
	return intent, nil
}

func (s *service) loadOwned(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func failureReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return strings.ToLower(string(typed.Code()))
	}
	return "internal"
}

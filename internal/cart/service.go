package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/superkart/kart-backend/pkg/db"
	"github.com/superkart/kart-backend/pkg/db/models"
	pkgerrors "github.com/superkart/kart-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes per-user cart operations. Each user owns exactly one
// cart, created lazily on first access.
type Service interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	View(ctx context.Context, userID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*View, error)
	UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) (*View, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*View, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo     *Repository
	tx       txRunner
	products productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo *Repository, tx txRunner, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, tx: tx, products: products}, nil
}

// GetOrCreate returns the user's cart, creating it on first access. A
// concurrent first access is resolved by the unique user index: the loser
// of the insert race refetches the winner's row.
func (s *service) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	cart, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	created, err := s.repo.Create(ctx, &models.Cart{UserID: userID})
	if err == nil {
		return created, nil
	}
	if db.IsUniqueViolation(err) {
		cart, err = s.repo.FindByUser(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
		}
		return cart, nil
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
}

// View returns the cart projection with exact decimal line subtotals and
// total.
func (s *service) View(ctx context.Context, userID uuid.UUID) (*View, error) {
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, s.repo, cart)
}

// AddItem merges the product into the cart. A product already present has
// its quantity incremented and keeps the unit price snapshotted when the
// line was first added; a new line snapshots the current catalog price.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*View, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	var view *View
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		merged, err := repo.IncrementItemQuantity(ctx, cart.ID, productID, qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge cart line")
		}
		if !merged {
			_, err = repo.CreateItem(ctx, &models.CartItem{
				CartID:    cart.ID,
				ProductID: productID,
				Quantity:  qty,
				UnitPrice: product.Price,
			})
			if err != nil {
				// Two concurrent first adds of the same product race on
				// the unique (cart, product) index; the loser merges.
				if db.IsUniqueViolation(err) {
					if _, mergeErr := repo.IncrementItemQuantity(ctx, cart.ID, productID, qty); mergeErr != nil {
						return pkgerrors.Wrap(pkgerrors.CodeDependency, mergeErr, "merge cart line after insert race")
					}
				} else {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert cart line")
				}
			}
		}

		view, err = s.buildView(ctx, repo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// UpdateQuantity overwrites the quantity of an existing line. Zero and
// negative values are rejected; removal is its own operation.
func (s *service) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) (*View, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.SetItemQuantity(ctx, cart.ID, productID, qty)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart")
	}
	return s.buildView(ctx, s.repo, cart)
}

// RemoveItem drops one line from the cart.
func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*View, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	removed, err := s.repo.DeleteItem(ctx, cart.ID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart line")
	}
	if !removed {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart")
	}
	return s.buildView(ctx, s.repo, cart)
}

// Clear empties the cart without deleting the cart row itself.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) buildView(ctx context.Context, repo *Repository, cart *models.Cart) (*View, error) {
	items, err := repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart lines")
	}

	view := &View{
		CartID: cart.ID,
		UserID: cart.UserID,
		Items:  make([]LineView, 0, len(items)),
		Total:  decimal.Zero,
	}
	for _, item := range items {
		line := LineView{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal(),
		}
		if product, err := s.products.FindByID(ctx, item.ProductID); err == nil {
			line.Name = product.Name
			line.Brand = product.Brand
		}
		view.Items = append(view.Items, line)
		view.Total = view.Total.Add(line.Subtotal)
	}
	return view, nil
}

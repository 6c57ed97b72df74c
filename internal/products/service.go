package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/superkart/kart-backend/pkg/db/models"
	pkgerrors "github.com/superkart/kart-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type categoryLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

// Service exposes catalog management operations.
type Service interface {
	Create(ctx context.Context, input CreateProductInput) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetPrice(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
	List(ctx context.Context, query ListQuery) (*ListResult, error)
	AdjustInventory(ctx context.Context, id uuid.UUID, delta int) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo       *Repository
	tx         txRunner
	categories categoryLoader
}

// NewService builds a product service backed by the provided stack.
func NewService(repo *Repository, tx txRunner, categories categoryLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category loader required")
	}
	return &service{repo: repo, tx: tx, categories: categories}, nil
}

// Create validates and persists a new catalog listing. Prices are stored at
// two decimal places using round half up.
func (s *service) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	brand := strings.TrimSpace(input.Brand)
	if brand == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product brand is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.Inventory < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory cannot be negative")
	}
	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        name,
		Brand:       brand,
		Description: input.Description,
		Price:       input.Price.Round(2),
		Inventory:   input.Inventory,
		CategoryID:  input.CategoryID,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert product")
	}
	return created, nil
}

// Update applies the provided patch to an existing listing.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
		}
		product.Name = name
	}
	if input.Brand != nil {
		brand := strings.TrimSpace(*input.Brand)
		if brand == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product brand is required")
		}
		product.Brand = brand
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		product.Price = input.Price.Round(2)
	}
	if input.Inventory != nil {
		if *input.Inventory < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory cannot be negative")
		}
		product.Inventory = *input.Inventory
	}
	if input.ClearCategory {
		product.CategoryID = nil
	} else if input.CategoryID != nil {
		if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = input.CategoryID
	}

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return updated, nil
}

// Get returns the product with its image metadata.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByIDWithImages(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

// GetPrice returns the current catalog price for one product.
func (s *service) GetPrice(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return product.Price, nil
}

// List returns one page of catalog summaries.
func (s *service) List(ctx context.Context, query ListQuery) (*ListResult, error) {
	result, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return result, nil
}

// AdjustInventory applies a signed delta to the product's stock level. The
// decrement runs as one guarded statement so a drop below zero aborts with
// an insufficient inventory error and leaves the level untouched.
func (s *service) AdjustInventory(ctx context.Context, id uuid.UUID, delta int) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory delta cannot be zero")
	}

	var result *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var applied bool
		var err error
		if delta < 0 {
			applied, err = repo.DecrementInventory(ctx, id, -delta)
		} else {
			applied, err = repo.IncrementInventory(ctx, id, delta)
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write inventory")
		}

		if !applied {
			product, err := repo.FindByID(ctx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient inventory").
				WithDetails(map[string]any{
					"product_id": product.ID,
					"available":  product.Inventory,
					"requested":  -delta,
				})
		}

		product, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product")
		}
		result = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the listing and scrubs live references atomically: cart
// lines pointing at it are dropped and historic order lines keep their
// snapshots with the product pointer nulled.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.RemoveCartReferences(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart references")
		}
		if err := repo.DetachOrderReferences(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach order references")
		}
		if err := repo.RemoveImages(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove product images")
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
		}
		return nil
	})
}

func (s *service) ensureCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if *id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "category id cannot be empty")
	}
	if _, err := s.categories.FindByID(ctx, *id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return nil
}

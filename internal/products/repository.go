package product

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/superkart/kart-backend/pkg/db/models"
	"github.com/superkart/kart-backend/pkg/pagination"
)

// Repository wires together product persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Update saves an existing product row.
func (r *Repository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDWithImages loads the product with its image metadata preloaded.
func (r *Repository) FindByIDWithImages(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, product_id, file_name, file_type, download_url, created_at, updated_at").
				Order("created_at ASC")
		}).
		First(&product, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// DecrementInventory subtracts qty in one guarded statement. The row lock
// taken by the UPDATE serializes concurrent writers, and the WHERE guard
// keeps inventory from ever dipping below zero. Returns false when the row
// is missing or the stock is short.
func (r *Repository) DecrementInventory(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND inventory >= ?", id, qty).
		UpdateColumn("inventory", gorm.Expr("inventory - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IncrementInventory adds qty back to the product's stock level.
func (r *Repository) IncrementInventory(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("inventory", gorm.Expr("inventory + ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Delete removes a product by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}

// RemoveImages drops all stored images for the product.
func (r *Repository) RemoveImages(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Delete(&models.ProductImage{}).
		Error
}

// RemoveCartReferences drops every cart line that points at the product.
func (r *Repository) RemoveCartReferences(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Delete(&models.CartItem{}).
		Error
}

// DetachOrderReferences nulls the product pointer on historic order lines
// while leaving their snapshots intact.
func (r *Repository) DetachOrderReferences(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("product_id = ?", productID).
		Update("product_id", nil).
		Error
}

// List returns one cursor page of catalog summaries, newest first.
func (r *Repository) List(ctx context.Context, query ListQuery) (*ListResult, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)
	if limitWithBuffer <= pageSize {
		limitWithBuffer = pageSize + 1
	}

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Table("products p").
		Select(strings.Join([]string{
			"p.id",
			"p.name",
			"p.brand",
			"p.price",
			"p.inventory",
			"p.category_id",
			"c.name AS category_name",
			"p.created_at",
			"p.updated_at",
		}, ", ")).
		Joins("LEFT JOIN categories c ON c.id = p.category_id")

	filter := query.Filters
	if filter.CategoryID != nil {
		qb = qb.Where("p.category_id = ?", *filter.CategoryID)
	}
	if filter.PriceMin != nil {
		qb = qb.Where("p.price >= ?", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		qb = qb.Where("p.price <= ?", *filter.PriceMax)
	}
	if filter.InStock != nil {
		if *filter.InStock {
			qb = qb.Where("p.inventory > 0")
		} else {
			qb = qb.Where("p.inventory = 0")
		}
	}
	if search := strings.TrimSpace(filter.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(p.name) LIKE ? OR LOWER(p.brand) LIKE ?)", pattern, pattern)
	}

	if cursor != nil {
		qb = qb.Where("(p.created_at < ?) OR (p.created_at = ? AND p.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	qb = qb.Order("p.created_at DESC").Order("p.id DESC").Limit(limitWithBuffer)

	var records []summaryRecord
	if err := qb.Scan(&records).Error; err != nil {
		return nil, err
	}

	resultRows := records
	nextCursor := ""
	if len(records) > pageSize {
		resultRows = records[:pageSize]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]Summary, 0, len(resultRows))
	for _, record := range resultRows {
		summaries = append(summaries, record.toSummary())
	}

	return &ListResult{
		Products:   summaries,
		NextCursor: nextCursor,
	}, nil
}

type summaryRecord struct {
	ID           uuid.UUID
	Name         string
	Brand        string
	Price        decimal.Decimal
	Inventory    int
	CategoryID   *uuid.UUID
	CategoryName sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r summaryRecord) toSummary() Summary {
	summary := Summary{
		ID:         r.ID,
		Name:       r.Name,
		Brand:      r.Brand,
		Price:      r.Price,
		Inventory:  r.Inventory,
		CategoryID: r.CategoryID,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.CategoryName.Valid {
		name := r.CategoryName.String
		summary.CategoryName = &name
	}
	return summary
}

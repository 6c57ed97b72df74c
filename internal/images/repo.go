package image

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/superkart/kart-backend/pkg/db/models"
)

// Repository wires together product image persistence helpers.
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

// Create inserts a new image row, bytes included.
func (r *Repository) Create(ctx context.Context, image *models.ProductImage) (*models.ProductImage, error) {
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		return nil, err
	}
	return image, nil
}

// FindByID loads the full image row including its bytes.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductImage, error) {
	var image models.ProductImage
	if err := r.db.WithContext(ctx).First(&image, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

// Update persists replacement bytes and metadata for an existing image.
func (r *Repository) Update(ctx context.Context, image *models.ProductImage) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductImage{}).
		Where("id = ?", image.ID).
		Updates(map[string]any{
			"file_name": image.FileName,
			"file_type": image.FileType,
			"data":      image.Data,
		}).
		Error
}

// ListByProduct returns image metadata for a product without the bytes.
func (r *Repository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.ProductImage, error) {
	var rows []models.ProductImage
	err := r.db.WithContext(ctx).
		Select("id, product_id, file_name, file_type, download_url, created_at, updated_at").
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&rows).
		Error
	return rows, err
}

// Delete removes an image row by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ProductImage{}).Error
}

package address

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/superkart/kart-backend/pkg/db/models"
)

// Repository persists shipping addresses.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, addr *models.Address) (*models.Address, error) {
	if err := r.db.WithContext(ctx).Create(addr).Error; err != nil {
		return nil, err
	}
	return addr, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	var addr models.Address
	if err := r.db.WithContext(ctx).First(&addr, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &addr, nil
}

// ListByUser returns the user's addresses with the default first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var addrs []models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC").
		Order("created_at ASC").
		Find(&addrs).Error
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

func (r *Repository) Update(ctx context.Context, addr *models.Address) error {
	return r.db.WithContext(ctx).Save(addr).Error
}

// ClearDefault unsets the default flag on every address the user owns.
func (r *Repository) ClearDefault(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("user_id = ? AND is_default", userID).
		Update("is_default", false).Error
}

// Delete removes the address and reports whether a row was affected.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Address{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

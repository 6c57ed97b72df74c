package address

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/superkart/kart-backend/pkg/db/models"
	pkgerrors "github.com/superkart/kart-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateInput carries the fields accepted when adding an address.
type CreateInput struct {
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2"`
	City       string  `json:"city" validate:"required"`
	State      string  `json:"state" validate:"required"`
	PostalCode string  `json:"postal_code" validate:"required"`
	Country    string  `json:"country" validate:"required"`
	IsDefault  bool    `json:"is_default"`
}

// UpdateInput patches an existing address. Nil fields are left untouched.
type UpdateInput struct {
	Line1      *string `json:"line1"`
	Line2      *string `json:"line2"`
	City       *string `json:"city"`
	State      *string `json:"state"`
	PostalCode *string `json:"postal_code"`
	Country    *string `json:"country"`
}

// Service manages a user's shipping addresses.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Address, error)
	Update(ctx context.Context, userID, addressID uuid.UUID, input UpdateInput) (*models.Address, error)
	SetDefault(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error)
	Delete(ctx context.Context, userID, addressID uuid.UUID) error
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService builds an address service backed by the provided stack.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	addrs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	return addrs, nil
}

// Create adds an address. The first address a user adds becomes the default
// even when the flag was not requested.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Address, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	addr := &models.Address{
		UserID:     userID,
		Line1:      strings.TrimSpace(input.Line1),
		Line2:      trimOptional(input.Line2),
		City:       strings.TrimSpace(input.City),
		State:      strings.TrimSpace(input.State),
		PostalCode: strings.TrimSpace(input.PostalCode),
		Country:    strings.TrimSpace(input.Country),
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.ListByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
		}
		addr.IsDefault = input.IsDefault || len(existing) == 0

		if addr.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
			}
		}
		if _, err := repo.Create(ctx, addr); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return addr, nil
}

func (s *service) Update(ctx context.Context, userID, addressID uuid.UUID, input UpdateInput) (*models.Address, error) {
	addr, err := s.loadOwned(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}

	if input.Line1 != nil {
		if strings.TrimSpace(*input.Line1) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line1 cannot be empty")
		}
		addr.Line1 = strings.TrimSpace(*input.Line1)
	}
	if input.Line2 != nil {
		addr.Line2 = trimOptional(input.Line2)
	}
	if input.City != nil {
		addr.City = strings.TrimSpace(*input.City)
	}
	if input.State != nil {
		addr.State = strings.TrimSpace(*input.State)
	}
	if input.PostalCode != nil {
		addr.PostalCode = strings.TrimSpace(*input.PostalCode)
	}
	if input.Country != nil {
		addr.Country = strings.TrimSpace(*input.Country)
	}

	if err := s.repo.Update(ctx, addr); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update address")
	}
	return addr, nil
}

// SetDefault promotes the address to the user's default, demoting any other.
func (s *service) SetDefault(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	addr, err := s.loadOwned(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}
	if addr.IsDefault {
		return addr, nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ClearDefault(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
		}
		addr.IsDefault = true
		if err := repo.Update(ctx, addr); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return addr, nil
}

func (s *service) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, userID, addressID); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, addressID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete address")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return nil
}

// loadOwned fetches the address and hides other users' rows behind not-found.
func (s *service) loadOwned(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	addr, err := s.repo.FindByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	if addr.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return addr, nil
}

func validateCreate(input CreateInput) error {
	required := map[string]string{
		"line1":       input.Line1,
		"city":        input.City,
		"state":       input.State,
		"postal_code": input.PostalCode,
		"country":     input.Country,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, field+" is required")
		}
	}
	return nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

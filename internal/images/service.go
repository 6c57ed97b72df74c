package image

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/superkart/kart-backend/pkg/db/models"
	pkgerrors "github.com/superkart/kart-backend/pkg/errors"
)

const maxUploadBytes = 5 * 1024 * 1024

var allowedMimeTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/webp": {},
	"image/gif":  {},
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service stores and serves product image blobs.
type Service interface {
	Upload(ctx context.Context, productID uuid.UUID, input UploadInput) (*models.ProductImage, error)
	Update(ctx context.Context, id uuid.UUID, input UploadInput) (*models.ProductImage, error)
	Download(ctx context.Context, id uuid.UUID) (*models.ProductImage, error)
	ListForProduct(ctx context.Context, productID uuid.UUID) ([]models.ProductImage, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UploadInput models one incoming image payload.
type UploadInput struct {
	FileName string
	FileType string
	Data     []byte
}

type service struct {
	repo     *Repository
	products productLoader
}

// NewService builds an image service backed by the provided stack.
func NewService(repo *Repository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("image repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, products: products}, nil
}

// Upload validates and stores the image bytes for an existing product.
func (s *service) Upload(ctx context.Context, productID uuid.UUID, input UploadInput) (*models.ProductImage, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	fileName, mimeType, err := validateUpload(input)
	if err != nil {
		return nil, err
	}

	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	image := &models.ProductImage{
		ID:        uuid.New(),
		ProductID: productID,
		FileName:  fileName,
		FileType:  mimeType,
		Data:      input.Data,
	}
	image.DownloadURL = downloadPath(productID, image.ID)

	created, err := s.repo.Create(ctx, image)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store image")
	}
	return created, nil
}

// Update replaces a stored image's bytes and metadata in place. The image
// keeps its ID and download URL, so existing links stay valid.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UploadInput) (*models.ProductImage, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image id is required")
	}
	fileName, mimeType, err := validateUpload(input)
	if err != nil {
		return nil, err
	}

	image, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load image")
	}

	image.FileName = fileName
	image.FileType = mimeType
	image.Data = input.Data
	if err := s.repo.Update(ctx, image); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace image")
	}
	return image, nil
}

// Download returns the full image row, bytes included.
func (s *service) Download(ctx context.Context, id uuid.UUID) (*models.ProductImage, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image id is required")
	}
	image, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load image")
	}
	return image, nil
}

// ListForProduct returns image metadata for a product.
func (s *service) ListForProduct(ctx context.Context, productID uuid.UUID) ([]models.ProductImage, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	rows, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list images")
	}
	return rows, nil
}

// Delete removes a stored image.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Download(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete image")
	}
	return nil
}

func validateUpload(input UploadInput) (fileName, mimeType string, err error) {
	fileName = strings.TrimSpace(input.FileName)
	if fileName == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "file name is required")
	}
	if len(input.Data) == 0 {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "image data is required")
	}
	if len(input.Data) > maxUploadBytes {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "image exceeds the maximum upload size")
	}
	mimeType, sniffErr := sniffMimeType(input.FileType)
	if sniffErr != nil {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, sniffErr.Error())
	}
	if _, ok := allowedMimeTypes[mimeType]; !ok {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "file type must be png, jpeg, webp, or gif")
	}
	return fileName, mimeType, nil
}

func downloadPath(productID, imageID uuid.UUID) string {
	return fmt.Sprintf("/api/v1/products/%s/images/%s", productID, imageID)
}

func sniffMimeType(value string) (string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", fmt.Errorf("mime type required")
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", fmt.Errorf("mime type invalid: %v", err)
	}
	return strings.ToLower(mediaType), nil
}

package image

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	product "github.com/superkart/kart-backend/internal/products"
	"github.com/superkart/kart-backend/pkg/db/models"
	pkgerrors "github.com/superkart/kart-backend/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Product{}, &models.ProductImage{}))
	return conn
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := openTestDB(t)
	svc, err := NewService(NewRepository(conn), product.NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func mustCreateProduct(t *testing.T, conn *gorm.DB) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:      "Widget",
		Brand:     "Acme",
		Price:     decimal.RequireFromString("5.00"),
		Inventory: 1,
	}
	require.NoError(t, conn.Create(p).Error)
	return p
}

func TestUploadAndDownloadRoundtrip(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	p := mustCreateProduct(t, conn)

	payload := bytes.Repeat([]byte{0xAB}, 64)
	created, err := svc.Upload(ctx, p.ID, UploadInput{
		FileName: "front.png",
		FileType: "image/png",
		Data:     payload,
	})
	require.NoError(t, err)
	assert.Contains(t, created.DownloadURL, created.ID.String())

	fetched, err := svc.Download(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, payload, fetched.Data)
	assert.Equal(t, "image/png", fetched.FileType)
}

func TestUploadRejectsUnknownProduct(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Upload(context.Background(), uuid.New(), UploadInput{
		FileName: "front.png",
		FileType: "image/png",
		Data:     []byte{0x01},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUploadRejectsDisallowedMime(t *testing.T) {
	svc, conn := newTestService(t)
	p := mustCreateProduct(t, conn)

	_, err := svc.Upload(context.Background(), p.ID, UploadInput{
		FileName: "doc.pdf",
		FileType: "application/pdf",
		Data:     []byte{0x01},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestUpdateReplacesBytesAndKeepsDownloadURL(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	p := mustCreateProduct(t, conn)

	created, err := svc.Upload(ctx, p.ID, UploadInput{
		FileName: "front.png",
		FileType: "image/png",
		Data:     bytes.Repeat([]byte{0xAB}, 64),
	})
	require.NoError(t, err)

	replacement := bytes.Repeat([]byte{0xCD}, 32)
	updated, err := svc.Update(ctx, created.ID, UploadInput{
		FileName: "front-v2.jpg",
		FileType: "image/jpeg",
		Data:     replacement,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.DownloadURL, updated.DownloadURL)

	fetched, err := svc.Download(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, replacement, fetched.Data)
	assert.Equal(t, "image/jpeg", fetched.FileType)
	assert.Equal(t, "front-v2.jpg", fetched.FileName)
}

func TestUpdateRejectsUnknownImageAndBadMime(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	p := mustCreateProduct(t, conn)

	_, err := svc.Update(ctx, uuid.New(), UploadInput{
		FileName: "front.png",
		FileType: "image/png",
		Data:     []byte{0x01},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	created, err := svc.Upload(ctx, p.ID, UploadInput{
		FileName: "front.png",
		FileType: "image/png",
		Data:     []byte{0x01},
	})
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, UploadInput{
		FileName: "doc.pdf",
		FileType: "application/pdf",
		Data:     []byte{0x01},
	})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestListForProductOmitsBytes(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	p := mustCreateProduct(t, conn)

	_, err := svc.Upload(ctx, p.ID, UploadInput{
		FileName: "front.png",
		FileType: "image/png",
		Data:     bytes.Repeat([]byte{0x01}, 32),
	})
	require.NoError(t, err)

	rows, err := svc.ListForProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Data)
	assert.Equal(t, "front.png", rows[0].FileName)
}

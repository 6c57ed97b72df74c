package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/superkart/kart-backend/api/responses"
	"github.com/superkart/kart-backend/api/validators"
	productsvc "github.com/superkart/kart-backend/internal/products"
	"github.com/superkart/kart-backend/pkg/db/models"
	pkgerrors "github.com/superkart/kart-backend/pkg/errors"
	"github.com/superkart/kart-backend/pkg/pagination"
)

type productResponse struct {
	ID          uuid.UUID              `json:"id"`
	Name        string                 `json:"name"`
	Brand       string                 `json:"brand"`
	Description *string                `json:"description,omitempty"`
	Price       decimal.Decimal        `json:"price"`
	Inventory   int                    `json:"inventory"`
	CategoryID  *uuid.UUID             `json:"category_id,omitempty"`
	Images      []productImageResponse `json:"images,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

type productImageResponse struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"file_name"`
	FileType    string    `json:"file_type"`
	DownloadURL string    `json:"download_url"`
	CreatedAt   time.Time `json:"created_at"`
}

func newProductResponse(p *models.Product) productResponse {
	resp := productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Brand:       p.Brand,
		Description: p.Description,
		Price:       p.Price,
		Inventory:   p.Inventory,
		CategoryID:  p.CategoryID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, img := range p.Images {
		resp.Images = append(resp.Images, newProductImageResponse(&img))
	}
	return resp
}

func newProductImageResponse(img *models.ProductImage) productImageResponse {
	return productImageResponse{
		ID:          img.ID,
		FileName:    img.FileName,
		FileType:    img.FileType,
		DownloadURL: img.DownloadURL,
		CreatedAt:   img.CreatedAt,
	}
}

// ListProducts serves the public catalog with cursor pagination and filters.
func ListProducts(svc productsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, err := parseListQuery(r)
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		result, err := svc.List(r.Context(), query)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, result)
	}
}

// GetProduct serves one catalog listing with its image metadata.
func GetProduct(svc productsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		product, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, newProductResponse(product))
	}
}

type createProductRequest struct {
	Name        string  `json:"name" validate:"required"`
	Brand       string  `json:"brand" validate:"required"`
	Description *string `json:"description,omitempty"`
	Price       string  `json:"price" validate:"required"`
	Inventory   int     `json:"inventory" validate:"min=0"`
	CategoryID  *string `json:"category_id,omitempty" validate:"omitempty,uuid"`
}

// CreateProduct handles admin catalog creation.
func CreateProduct(svc productsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(w, err)
			return
		}

		price, err := decimal.NewFromString(strings.TrimSpace(payload.Price))
		if err != nil {
			responses.WriteError(w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price"))
			return
		}

		input := productsvc.CreateProductInput{
			Name:        payload.Name,
			Brand:       payload.Brand,
			Description: payload.Description,
			Price:       price,
			Inventory:   payload.Inventory,
		}
		if payload.CategoryID != nil {
			cid, err := uuid.Parse(*payload.CategoryID)
			if err != nil {
				responses.WriteError(w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category id"))
				return
			}
			input.CategoryID = &cid
		}

		product, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusCreated, newProductResponse(product))
	}
}

type updateProductRequest struct {
	Name          *string `json:"name,omitempty"`
	Brand         *string `json:"brand,omitempty"`
	Description   *string `json:"description,omitempty"`
	Price         *string `json:"price,omitempty"`
	Inventory     *int    `json:"inventory,omitempty" validate:"omitempty,min=0"`
	CategoryID    *string `json:"category_id,omitempty" validate:"omitempty,uuid"`
	ClearCategory bool    `json:"clear_category,omitempty"`
}

// UpdateProduct patches an existing listing. Absent fields are untouched.
func UpdateProduct(svc productsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(w, err)
			return
		}

		input := productsvc.UpdateProductInput{
			Name:          payload.Name,
			Brand:         payload.Brand,
			Description:   payload.Description,
			Inventory:     payload.Inventory,
			ClearCategory: payload.ClearCategory,
		}
		if payload.Price != nil {
			price, err := decimal.NewFromString(strings.TrimSpace(*payload.Price))
			if err != nil {
				responses.WriteError(w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price"))
				return
			}
			input.Price = &price
		}
		if payload.CategoryID != nil {
			cid, err := uuid.Parse(*payload.CategoryID)
			if err != nil {
				responses.WriteError(w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category id"))
				return
			}
			input.CategoryID = &cid
		}

		product, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, newProductResponse(product))
	}
}

// DeleteProduct removes a listing, scrubbing cart lines and detaching order history.
func DeleteProduct(svc productsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

type adjustInventoryRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// AdjustInventory applies a signed stock delta; decrements below zero are rejected.
func AdjustInventory(svc productsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		var payload adjustInventoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(w, err)
			return
		}

		product, err := svc.AdjustInventory(r.Context(), id, payload.Delta)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, newProductResponse(product))
	}
}

func parseListQuery(r *http.Request) (productsvc.ListQuery, error) {
	q := r.URL.Query()

	limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
	if err != nil {
		return productsvc.ListQuery{}, err
	}

	query := productsvc.ListQuery{
		Pagination: pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(q.Get("cursor")),
		},
		Filters: productsvc.ListFilters{
			Query: strings.TrimSpace(q.Get("q")),
		},
	}

	if raw := strings.TrimSpace(q.Get("category_id")); raw != "" {
		cid, err := uuid.Parse(raw)
		if err != nil {
			return productsvc.ListQuery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category id")
		}
		query.Filters.CategoryID = &cid
	}
	if raw := strings.TrimSpace(q.Get("price_min")); raw != "" {
		min, err := decimal.NewFromString(raw)
		if err != nil {
			return productsvc.ListQuery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price_min")
		}
		query.Filters.PriceMin = &min
	}
	if raw := strings.TrimSpace(q.Get("price_max")); raw != "" {
		max, err := decimal.NewFromString(raw)
		if err != nil {
			return productsvc.ListQuery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price_max")
		}
		query.Filters.PriceMax = &max
	}
	inStock, err := validators.ParseQueryBool(r, "in_stock")
	if err != nil {
		return productsvc.ListQuery{}, err
	}
	query.Filters.InStock = inStock

	return query, nil
}

package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/superkart/kart-backend/api/responses"
	"github.com/superkart/kart-backend/api/validators"
	categorysvc "github.com/superkart/kart-backend/internal/categories"
	"github.com/superkart/kart-backend/pkg/db/models"
)

type categoryResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newCategoryResponse(c *models.Category) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ListCategories returns every category ordered by name. A "name" query
// parameter narrows the response to the single exact match.
func ListCategories(svc categorysvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if name := r.URL.Query().Get("name"); name != "" {
			category, err := svc.GetByName(r.Context(), name)
			if err != nil {
				responses.WriteError(w, err)
				return
			}
			responses.WriteSuccess(w, http.StatusOK, newCategoryResponse(category))
			return
		}

		categories, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		out := make([]categoryResponse, 0, len(categories))
		for i := range categories {
			out = append(out, newCategoryResponse(&categories[i]))
		}
		responses.WriteSuccess(w, http.StatusOK, out)
	}
}

// GetCategory returns a single category.
func GetCategory(svc categorysvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "categoryID")
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		category, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, newCategoryResponse(category))
	}
}

const maxCategoryNameLen = 120

type categoryRequest struct {
	Name string `json:"name" validate:"required"`
}

// CreateCategory adds a category with a unique name.
func CreateCategory(svc categorysvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload categoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(w, err)
			return
		}

		category, err := svc.Create(r.Context(), validators.SanitizeString(payload.Name, maxCategoryNameLen))
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusCreated, newCategoryResponse(category))
	}
}

// RenameCategory changes a category's unique name.
func RenameCategory(svc categorysvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "categoryID")
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		var payload categoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(w, err)
			return
		}

		category, err := svc.Rename(r.Context(), id, validators.SanitizeString(payload.Name, maxCategoryNameLen))
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, newCategoryResponse(category))
	}
}

// DeleteCategory removes the category and detaches its products.
func DeleteCategory(svc categorysvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "categoryID")
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

package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/superkart/kart-backend/api/responses"
	"github.com/superkart/kart-backend/api/validators"
	cartsvc "github.com/superkart/kart-backend/internal/cart"
	pkgerrors "github.com/superkart/kart-backend/pkg/errors"
)

// GetCart returns the caller's cart with snapshot prices and the running total.
func GetCart(svc cartsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		view, err := svc.View(r.Context(), userID)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, view)
	}
}

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// AddCartItem adds a product to the cart, merging with an existing line.
func AddCartItem(svc cartsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(w, err)
			return
		}
		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		view, err := svc.AddItem(r.Context(), userID, productID, payload.Quantity)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, view)
	}
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// UpdateCartItem replaces the quantity on an existing cart line.
func UpdateCartItem(svc cartsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(w, err)
			return
		}

		view, err := svc.UpdateQuantity(r.Context(), userID, productID, payload.Quantity)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, view)
	}
}

// RemoveCartItem drops one product line from the cart.
func RemoveCartItem(svc cartsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		view, err := svc.RemoveItem(r.Context(), userID, productID)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, view)
	}
}

// ClearCart empties the caller's cart.
func ClearCart(svc cartsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		if err := svc.Clear(r.Context(), userID); err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, map[string]string{"status": "cleared"})
	}
}

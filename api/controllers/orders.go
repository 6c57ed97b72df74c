package controllers

import (
	"net/http"
	"strings"

	"github.com/superkart/kart-backend/api/responses"
	"github.com/superkart/kart-backend/api/validators"
	ordersvc "github.com/superkart/kart-backend/internal/orders"
	"github.com/superkart/kart-backend/pkg/pagination"
)

// PlaceOrder converts the caller's cart into an order atomically.
func PlaceOrder(svc ordersvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		order, err := svc.Place(r.Context(), userID)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusCreated, order)
	}
}

// ListMyOrders returns the caller's order history, newest first.
func ListMyOrders(svc ordersvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		orders, err := svc.ListForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, orders)
	}
}

// GetMyOrder returns one of the caller's orders with its line items.
func GetMyOrder(svc ordersvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		order, err := svc.GetForUser(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, order)
	}
}

// CreateOrderPaymentIntent opens a payment intent for a pending order.
func CreateOrderPaymentIntent(svc ordersvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		intent, err := svc.CreatePaymentIntent(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusCreated, intent)
	}
}

// AdminListOrders pages through every order in the system.
func AdminListOrders(svc ordersvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		result, err := svc.ListAll(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, result)
	}
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminUpdateOrderStatus advances an order along its lifecycle.
func AdminUpdateOrderStatus(svc ordersvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		var payload updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(w, err)
			return
		}

		order, err := svc.UpdateStatus(r.Context(), orderID, payload.Status)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, order)
	}
}

package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/superkart/kart-backend/api/responses"
	"github.com/superkart/kart-backend/api/validators"
	addresssvc "github.com/superkart/kart-backend/internal/address"
	"github.com/superkart/kart-backend/pkg/db/models"
)

type addressResponse struct {
	ID         uuid.UUID `json:"id"`
	Line1      string    `json:"line1"`
	Line2      *string   `json:"line2,omitempty"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func newAddressResponse(a *models.Address) addressResponse {
	return addressResponse{
		ID:         a.ID,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		IsDefault:  a.IsDefault,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// ListAddresses returns the caller's saved addresses, default first.
func ListAddresses(svc addresssvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		addrs, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		out := make([]addressResponse, 0, len(addrs))
		for i := range addrs {
			out = append(out, newAddressResponse(&addrs[i]))
		}
		responses.WriteSuccess(w, http.StatusOK, out)
	}
}

// CreateAddress saves a new shipping address for the caller.
func CreateAddress(svc addresssvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		var payload addresssvc.CreateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(w, err)
			return
		}

		addr, err := svc.Create(r.Context(), userID, payload)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusCreated, newAddressResponse(addr))
	}
}

// UpdateAddress patches one of the caller's addresses.
func UpdateAddress(svc addresssvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		addressID, err := pathUUID(r, "addressID")
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		var payload addresssvc.UpdateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(w, err)
			return
		}

		addr, err := svc.Update(r.Context(), userID, addressID, payload)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, newAddressResponse(addr))
	}
}

// SetDefaultAddress promotes one address to the caller's default.
func SetDefaultAddress(svc addresssvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		addressID, err := pathUUID(r, "addressID")
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		addr, err := svc.SetDefault(r.Context(), userID, addressID)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, newAddressResponse(addr))
	}
}

// DeleteAddress removes one of the caller's addresses.
func DeleteAddress(svc addresssvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		addressID, err := pathUUID(r, "addressID")
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		if err := svc.Delete(r.Context(), userID, addressID); err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

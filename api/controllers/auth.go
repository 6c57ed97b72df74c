package controllers

import (
	"net/http"

	"github.com/superkart/kart-backend/api/middleware"
	"github.com/superkart/kart-backend/api/responses"
	"github.com/superkart/kart-backend/api/validators"
	authsvc "github.com/superkart/kart-backend/internal/auth"
	pkgerrors "github.com/superkart/kart-backend/pkg/errors"
)

// AuthLogin exchanges credentials for an access/refresh token pair.
func AuthLogin(svc authsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload authsvc.LoginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(w, err)
			return
		}

		resp, err := svc.Login(r.Context(), payload)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, resp)
	}
}

// AuthRegister creates a customer account.
func AuthRegister(svc authsvc.RegisterService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload authsvc.RegisterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(w, err)
			return
		}

		user, err := svc.Register(r.Context(), payload)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusCreated, user)
	}
}

// AuthRefresh rotates the refresh token tied to an expiring access token.
func AuthRefresh(svc authsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload authsvc.RefreshRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(w, err)
			return
		}

		resp, err := svc.Refresh(r.Context(), payload)
		if err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, resp)
	}
}

// AuthLogout revokes the session behind the presented token.
func AuthLogout(svc authsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessID := middleware.AccessIDFromContext(r.Context())
		if accessID == "" {
			responses.WriteError(w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session"))
			return
		}

		if err := svc.Logout(r.Context(), accessID); err != nil {
			responses.WriteError(w, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, map[string]string{"status": "logged_out"})
	}
}

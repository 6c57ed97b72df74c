package controllers

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/superkart/kart-backend/api/responses"
	"github.com/superkart/kart-backend/api/validators"
	"github.com/superkart/kart-backend/internal/users"
	pkgerrors "github.com/superkart/kart-backend/pkg/errors"
)

// CurrentUser returns the authenticated user's profile.
func CurrentUser(repo *users.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		user, err := repo.FindByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(w, pkgerrors.New(pkgerrors.CodeNotFound, "user not found"))
				return
			}
			responses.WriteError(w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user"))
			return
		}
		responses.WriteSuccess(w, http.StatusOK, users.FromModel(user))
	}
}

type updateProfileRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

// UpdateProfile renames the authenticated user.
func UpdateProfile(repo *users.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(w, err)
			return
		}

		var payload updateProfileRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(w, err)
			return
		}

		firstName := strings.TrimSpace(payload.FirstName)
		lastName := strings.TrimSpace(payload.LastName)
		if firstName == "" || lastName == "" {
			responses.WriteError(w, pkgerrors.New(pkgerrors.CodeValidation, "first and last name are required"))
			return
		}

		if err := repo.UpdateProfile(r.Context(), userID, firstName, lastName); err != nil {
			responses.WriteError(w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile"))
			return
		}

		user, err := repo.FindByID(r.Context(), userID)
		if err != nil {
			responses.WriteError(w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload user"))
			return
		}
		responses.WriteSuccess(w, http.StatusOK, users.FromModel(user))
	}
}

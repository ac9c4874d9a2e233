package controllers

import (
	"net/http"

	"github.com/pharmaline/catalog-backend/api/responses"
	"github.com/pharmaline/catalog-backend/api/validators"
	"github.com/pharmaline/catalog-backend/internal/categories"
	"github.com/pharmaline/catalog-backend/pkg/logger"
)

type createCategoryRequest struct {
	Label string `json:"label" validate:"required"`
}

type renameCategoryRequest struct {
	OldLabel string `json:"oldLabel" validate:"required"`
	NewLabel string `json:"newLabel" validate:"required"`
}

type deleteCategoryRequest struct {
	Label string `json:"label" validate:"required"`
}

// ListCategories returns the union of stored labels and labels referenced by
// catalog records.
func ListCategories(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		labels, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, labels)
	}
}

func CreateCategory(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createCategoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		labels, err := svc.Create(r.Context(), body.Label)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, labels)
	}
}

// RenameCategory renames a stored label and rewrites every record that
// references it.
func RenameCategory(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body renameCategoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		labels, err := svc.Rename(r.Context(), body.OldLabel, body.NewLabel)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, labels)
	}
}

func DeleteCategory(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body deleteCategoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		labels, err := svc.Delete(r.Context(), body.Label)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, labels)
	}
}

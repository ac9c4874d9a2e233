package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pharmaline/catalog-backend/api/responses"
	"github.com/pharmaline/catalog-backend/internal/catalog"
	pkgerrors "github.com/pharmaline/catalog-backend/pkg/errors"
	"github.com/pharmaline/catalog-backend/pkg/logger"
)

// ListMedicines returns active listings, or soft-deleted ones when the
// request carries ?deleted=true.
func ListMedicines(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeDeleted := r.URL.Query().Get("deleted") == "true"
		records, err := svc.List(r.Context(), includeDeleted)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, records)
	}
}

func GetMedicine(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// CreateMedicine accepts a multipart form with the listing fields plus any
// initial image files.
func CreateMedicine(svc catalog.Service, logg *logger.Logger, tempDir string, maxUploadMB int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		uploads, err := spoolUploads(r, tempDir, maxUploadMB)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.CreateInput{
			Name:                 r.FormValue("name"),
			Category:             r.FormValue("category"),
			CategoriesJSON:       r.FormValue("categories"),
			Price:                r.FormValue("price"),
			Form:                 r.FormValue("form"),
			Description:          r.FormValue("description"),
			Manufacturer:         r.FormValue("manufacturer"),
			Composition:          r.FormValue("composition"),
			RequiresPrescription: r.FormValue("requiresPrescription"),
			InStock:              r.FormValue("inStock"),
			Dosage:               r.FormValue("dosage"),
			Usage:                r.FormValue("usage"),
			DetailsJSON:          r.FormValue("details"),
		}

		record, err := svc.Create(r.Context(), input, uploads)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

// UpdateMedicine accepts a multipart form; only fields present in the form
// are applied.
func UpdateMedicine(svc catalog.Service, logg *logger.Logger, tempDir string, maxUploadMB int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		uploads, err := spoolUploads(r, tempDir, maxUploadMB)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.UpdateInput{
			Name:                 formValue(r, "name"),
			Category:             formValue(r, "category"),
			CategoriesJSON:       formValue(r, "categories"),
			Price:                formValue(r, "price"),
			Form:                 formValue(r, "form"),
			Description:          formValue(r, "description"),
			Manufacturer:         formValue(r, "manufacturer"),
			Composition:          formValue(r, "composition"),
			RequiresPrescription: formValue(r, "requiresPrescription"),
			InStock:              formValue(r, "inStock"),
			Dosage:               formValue(r, "dosage"),
			Usage:                formValue(r, "usage"),
			DetailsJSON:          formValue(r, "details"),
		}

		record, err := svc.Update(r.Context(), chi.URLParam(r, "id"), input, uploads)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func DeleteMedicine(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deletedAt, err := svc.Delete(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"ok": true, "deletedAt": deletedAt})
	}
}

func RestoreMedicine(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := svc.Restore(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// PurgeMedicines sweeps soft-deleted records past the retention window.
func PurgeMedicines(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := svc.PurgeExpired(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"ok": true, "removed": removed})
	}
}

// formValue reports presence, not just content: an absent field returns nil
// so updates never clobber fields the form did not carry.
func formValue(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pharmaline/catalog-backend/api/responses"
	"github.com/pharmaline/catalog-backend/api/validators"
	"github.com/pharmaline/catalog-backend/internal/catalog"
	pkgerrors "github.com/pharmaline/catalog-backend/pkg/errors"
	"github.com/pharmaline/catalog-backend/pkg/logger"
)

type removeImageRequest struct {
	URL string `json:"url" validate:"required"`
}

type reorderImagesRequest struct {
	Order []string `json:"order" validate:"required"`
}

// AddMedicineImages appends uploaded files to a listing's gallery.
func AddMedicineImages(svc catalog.Service, logg *logger.Logger, tempDir string, maxUploadMB int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uploads, err := spoolUploads(r, tempDir, maxUploadMB)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(uploads) == 0 {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "no image files provided"))
			return
		}

		record, err := svc.AddImages(r.Context(), chi.URLParam(r, "id"), uploads)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// RemoveMedicineImage detaches one gallery entry by its public URL and
// deletes the backing file.
func RemoveMedicineImage(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body removeImageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.RemoveImage(r.Context(), chi.URLParam(r, "id"), body.URL)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// ReorderMedicineImages applies a client-supplied ordering; URLs the record
// does not hold are ignored and omitted URLs keep their relative order.
func ReorderMedicineImages(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body reorderImagesRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.ReorderImages(r.Context(), chi.URLParam(r, "id"), body.Order)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

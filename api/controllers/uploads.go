package controllers

import (
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/pharmaline/catalog-backend/internal/images"
	pkgerrors "github.com/pharmaline/catalog-backend/pkg/errors"
)

// uploadFieldName is the multipart field the admin UI posts image files under.
const uploadFieldName = "images"

// spoolUploads parses the multipart form and copies each posted image into
// the spool directory. From here on the images.Upload values own the temp
// files; the catalog service moves or deletes them on every path.
func spoolUploads(r *http.Request, tempDir string, maxUploadMB int) ([]images.Upload, error) {
	if maxUploadMB <= 0 {
		maxUploadMB = 25
	}
	if err := r.ParseMultipartForm(int64(maxUploadMB) << 20); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[uploadFieldName]
	if len(headers) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "create upload spool directory")
	}

	uploads := make([]images.Upload, 0, len(headers))
	for _, header := range headers {
		upload, err := spoolOne(header, tempDir)
		if err != nil {
			removeSpooled(uploads)
			return nil, err
		}
		uploads = append(uploads, upload)
	}
	return uploads, nil
}

func spoolOne(header *multipart.FileHeader, tempDir string) (images.Upload, error) {
	src, err := header.Open()
	if err != nil {
		return images.Upload{}, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "open uploaded file")
	}
	defer src.Close()

	tmp, err := os.CreateTemp(tempDir, "upload-*")
	if err != nil {
		return images.Upload{}, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "create spool file")
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return images.Upload{}, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "spool uploaded file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return images.Upload{}, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "close spool file")
	}

	return images.Upload{
		TempPath:         tmp.Name(),
		OriginalFilename: header.Filename,
		DeclaredMimeType: header.Header.Get("Content-Type"),
	}, nil
}

func removeSpooled(uploads []images.Upload) {
	for _, upload := range uploads {
		os.Remove(upload.TempPath)
	}
}

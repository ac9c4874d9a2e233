package images

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// resolveExtension picks the extension a stored image file gets. Sniffed
// content wins, then the upload's declared type, then the original filename,
// then "jpg"; "jpeg" normalizes to "jpg" everywhere.
func resolveExtension(upload Upload) string {
	if mtype, err := mimetype.DetectFile(upload.TempPath); err == nil {
		if ext := normalizeExt(mtype.Extension()); ext != "" && imageExtensions["."+ext] {
			return ext
		}
	}
	if mtype := mimetype.Lookup(upload.DeclaredMimeType); mtype != nil {
		if ext := normalizeExt(mtype.Extension()); ext != "" {
			return ext
		}
	}
	if ext := normalizeExt(filepath.Ext(upload.OriginalFilename)); ext != "" {
		return ext
	}
	return "jpg"
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "jpeg" {
		return "jpg"
	}
	return ext
}

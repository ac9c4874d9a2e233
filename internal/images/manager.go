// Package images owns the on-disk image directories backing medicine
// listings: one flat directory per medicine id holding sequentially numbered
// files served as static assets.
package images

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	pkgerrors "github.com/pharmaline/catalog-backend/pkg/errors"
	"github.com/pharmaline/catalog-backend/pkg/logger"
	"go.uber.org/multierr"
)

// Upload describes one file handed over by the multipart layer. TempPath is a
// spool file owned by this package from the moment an operation receives it:
// it is either moved into a medicine directory or cleaned up.
type Upload struct {
	TempPath         string
	OriginalFilename string
	DeclaredMimeType string
}

// Manager maps medicine identities to image directories and performs every
// file operation the catalog needs.
type Manager interface {
	DirectoryFor(id string) string
	EnsureDirectory(id string) error
	NextSequence(dir string) int
	Ingest(ctx context.Context, uploads []Upload, id string, startSeq int) ([]string, error)
	ListOnDisk(id string) []string
	Relocate(ctx context.Context, oldID, newID string) error
	Remove(ctx context.Context, id string)
	RemoveFile(ctx context.Context, id, fileName string)
	CleanupTemp(ctx context.Context, uploads []Upload)
	URLFor(id, fileName string) string
}

type fsManager struct {
	root       string
	publicBase string
	logg       *logger.Logger
}

// NewManager constructs a filesystem-backed Manager rooted at the given
// directory, emitting URLs under publicBase.
func NewManager(root, publicBase string, logg *logger.Logger) (Manager, error) {
	if root == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image root required")
	}
	if publicBase == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "public base path required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger required")
	}
	return &fsManager{
		root:       root,
		publicBase: "/" + strings.Trim(publicBase, "/"),
		logg:       logg,
	}, nil
}

func (m *fsManager) DirectoryFor(id string) string {
	return filepath.Join(m.root, id)
}

func (m *fsManager) EnsureDirectory(id string) error {
	if err := os.MkdirAll(m.DirectoryFor(id), 0o755); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "create image directory")
	}
	return nil
}

func (m *fsManager) URLFor(id, fileName string) string {
	return path.Join(m.publicBase, id, fileName)
}

// NextSequence returns one past the highest leading integer among the
// directory's filenames, so legacy names like "1unnamed.jpg" still count.
func (m *fsManager) NextSequence(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 1
	}
	max := 0
	for _, entry := range entries {
		if n, ok := leadingInt(entry.Name()); ok && n > max {
			max = n
		}
	}
	return max + 1
}

func (m *fsManager) Ingest(ctx context.Context, uploads []Upload, id string, startSeq int) ([]string, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	if err := m.EnsureDirectory(id); err != nil {
		return nil, err
	}

	dir := m.DirectoryFor(id)
	seq := startSeq
	urls := make([]string, 0, len(uploads))
	moved := make([]string, 0, len(uploads))
	for i, upload := range uploads {
		fileName := fmt.Sprintf("%d.%s", seq, resolveExtension(upload))
		dest := filepath.Join(dir, fileName)
		if err := moveFile(upload.TempPath, dest); err != nil {
			m.rollbackIngest(ctx, moved, uploads[i:])
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "store uploaded image")
		}
		moved = append(moved, dest)
		urls = append(urls, m.URLFor(id, fileName))
		seq++
	}
	return urls, nil
}

// rollbackIngest undoes a partial ingest: files already placed in the medicine
// directory are removed along with the temp files that never made it.
func (m *fsManager) rollbackIngest(ctx context.Context, placed []string, remaining []Upload) {
	var errs error
	for _, dest := range placed {
		errs = multierr.Append(errs, os.Remove(dest))
	}
	for _, upload := range remaining {
		if err := os.Remove(upload.TempPath); err != nil && !os.IsNotExist(err) {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		m.logg.Warn(m.logg.WithField(ctx, "errors", errs.Error()), "ingest rollback left files behind")
	}
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
	".svg":  true,
}

// ListOnDisk returns the public URLs of the image files present in the
// medicine's directory, numerically ordered by leading integer with a lexical
// fallback. A missing directory yields an empty list.
func (m *fsManager) ListOnDisk(id string) []string {
	entries, err := os.ReadDir(m.DirectoryFor(id))
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			names = append(names, entry.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		ni, iok := leadingInt(names[i])
		nj, jok := leadingInt(names[j])
		if iok && jok && ni != nj {
			return ni < nj
		}
		if iok != jok {
			return iok
		}
		return names[i] < names[j]
	})
	urls := make([]string, len(names))
	for i, name := range names {
		urls[i] = m.URLFor(id, name)
	}
	return urls
}

// Relocate moves a medicine's entire directory to a new identity. It tries an
// atomic rename first and falls back to copy-then-delete; when neither works
// the caller receives a Locked error and must keep the old identity.
func (m *fsManager) Relocate(ctx context.Context, oldID, newID string) error {
	oldDir := m.DirectoryFor(oldID)
	newDir := m.DirectoryFor(newID)
	if oldDir == newDir {
		return nil
	}
	if _, err := os.Stat(oldDir); os.IsNotExist(err) {
		// Nothing to move; make sure the new identity has a home.
		return m.EnsureDirectory(newID)
	}
	if err := os.MkdirAll(filepath.Dir(newDir), 0o755); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "prepare image root")
	}

	renameErr := os.Rename(oldDir, newDir)
	if renameErr == nil {
		return nil
	}

	if copyErr := copyDir(oldDir, newDir); copyErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeLocked, multierr.Append(renameErr, copyErr),
			fmt.Sprintf("unable to relocate images folder (in use?); keeping id %q", oldID))
	}
	if err := os.RemoveAll(oldDir); err != nil {
		m.logg.Warn(m.logg.WithField(ctx, "dir", oldDir), "could not remove source directory after copy")
	}
	return nil
}

// Remove deletes a medicine's directory, logging rather than failing.
func (m *fsManager) Remove(ctx context.Context, id string) {
	dir := m.DirectoryFor(id)
	if err := os.RemoveAll(dir); err != nil {
		m.logg.Warn(m.logg.WithField(ctx, "dir", dir), "could not remove image directory")
	}
}

// RemoveFile deletes one file from a medicine's directory; a file that is
// already gone is not an error.
func (m *fsManager) RemoveFile(ctx context.Context, id, fileName string) {
	target := filepath.Join(m.DirectoryFor(id), filepath.Base(fileName))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		m.logg.Warn(m.logg.WithField(ctx, "file", target), "could not remove image file")
	}
}

// CleanupTemp deletes spooled upload files after a failed operation.
func (m *fsManager) CleanupTemp(ctx context.Context, uploads []Upload) {
	var errs error
	for _, upload := range uploads {
		if err := os.Remove(upload.TempPath); err != nil && !os.IsNotExist(err) {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		m.logg.Warn(m.logg.WithField(ctx, "errors", errs.Error()), "temp upload cleanup incomplete")
	}
}

func leadingInt(name string) (int, bool) {
	i := 0
	for i < len(name) && name[i] >= '0' && name[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(name[:i])
	if err != nil {
		return 0, false
	}
	return n, true
}

// moveFile renames when possible and copies across filesystems otherwise.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyDir(src, dest string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		destPath := filepath.Join(dest, entry.Name())
		if entry.IsDir() {
			if err := copyDir(srcPath, destPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, destPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

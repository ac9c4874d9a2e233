package catalog

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaline/catalog-backend/internal/images"
	pkgerrors "github.com/pharmaline/catalog-backend/pkg/errors"
	"github.com/pharmaline/catalog-backend/pkg/logger"
)

type allowAllCategories struct{}

func (allowAllCategories) ValidateLabel(ctx context.Context, label string) (string, error) {
	if label == "" || label == "Bogus" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid category; allowed: Antibiotics")
	}
	return label, nil
}

type testHarness struct {
	svc      Service
	store    Store
	imageDir string
	now      time.Time
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	root := t.TempDir()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	store, err := NewFileStore(filepath.Join(root, "medicines.json"))
	require.NoError(t, err)

	imageDir := filepath.Join(root, "public", "medicines")
	manager, err := images.NewManager(imageDir, "/medicines", logg)
	require.NoError(t, err)

	h := &testHarness{store: store, imageDir: imageDir, now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := NewService(ServiceParams{
		Store:      store,
		Images:     manager,
		Categories: allowAllCategories{},
		Logger:     logg,
		Now:        func() time.Time { return h.now },
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

// pngHeader is enough for content sniffing to identify the file as a PNG.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func spoolTestUpload(t *testing.T, name, declared string) images.Upload {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "upload-*")
	require.NoError(t, err)
	_, err = f.Write(pngHeader)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return images.Upload{TempPath: f.Name(), OriginalFilename: name, DeclaredMimeType: declared}
}

func TestServiceCreate(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	uploads := []images.Upload{
		spoolTestUpload(t, "front.png", "image/png"),
		spoolTestUpload(t, "back.png", "image/png"),
	}
	record, err := h.svc.Create(ctx, CreateInput{
		Name:     "Paracetamol 500mg & Co",
		Category: "Pain-Killers",
		Price:    "12.50",
	}, uploads)
	require.NoError(t, err)

	assert.Equal(t, "paracetamol-500mg-and-co", record.ID)
	assert.Equal(t, "Pain-Killers", record.Category)
	assert.Equal(t, 12.5, record.Price)
	assert.Equal(t, "Tablet", record.Form)
	assert.Equal(t, "Generic", record.Manufacturer)
	assert.True(t, record.InStock)
	assert.True(t, record.RequiresPrescription)
	assert.Equal(t, []string{
		"/medicines/paracetamol-500mg-and-co/1.png",
		"/medicines/paracetamol-500mg-and-co/2.png",
	}, record.Images)
	assert.Equal(t, record.Images[0], record.Image)

	for _, name := range []string{"1.png", "2.png"} {
		_, err := os.Stat(filepath.Join(h.imageDir, record.ID, name))
		assert.NoError(t, err, name)
	}
	for _, upload := range uploads {
		_, err := os.Stat(upload.TempPath)
		assert.True(t, os.IsNotExist(err), "spool file should be consumed")
	}
}

func TestServiceCreateDetailsMerged(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	record, err := h.svc.Create(ctx, CreateInput{
		Name:        "Azithral",
		Category:    "Antibiotics",
		DetailsJSON: `[{"label":"Strength","value":"500 mg"},{"label":"Origin","value":"India"}]`,
	}, nil)
	require.NoError(t, err)

	labels := PredefinedDetailLabels()
	require.Len(t, record.Details, len(labels)+1)
	for i, label := range labels {
		assert.Equal(t, label, record.Details[i].Label)
	}
	byLabel := map[string]string{}
	for _, row := range record.Details {
		byLabel[row.Label] = row.Value
	}
	assert.Equal(t, "Azithral", byLabel["Brand Name"])
	assert.Equal(t, "500 mg", byLabel["Strength"])
	assert.Equal(t, "Antibiotics", byLabel["Category"])
	assert.Equal(t, "India", byLabel["Origin"])
	assert.Equal(t, DetailRow{Label: "Origin", Value: "India"}, record.Details[len(labels)])
}

func TestServiceCreateValidation(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, CreateInput{Category: "Antibiotics"}, nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = h.svc.Create(ctx, CreateInput{Name: "Azithral", Category: "Bogus"}, nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = h.svc.Create(ctx, CreateInput{Name: "Azithral", Category: "Antibiotics"}, nil)
	require.NoError(t, err)
	_, err = h.svc.Create(ctx, CreateInput{Name: "AZITHRAL", Category: "Antibiotics"}, nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestServiceCreateBooleanCoercion(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	record, err := h.svc.Create(ctx, CreateInput{
		Name:                 "Dolo",
		Category:             "Pain-Killers",
		InStock:              "false",
		RequiresPrescription: "anything",
	}, nil)
	require.NoError(t, err)
	assert.False(t, record.InStock)
	assert.True(t, record.RequiresPrescription)
}

func TestServiceUpdateScalars(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	created, err := h.svc.Create(ctx, CreateInput{
		Name:        "Dolo",
		Category:    "Pain-Killers",
		Description: "fever reducer",
		Price:       "30",
	}, nil)
	require.NoError(t, err)

	price := "35.5"
	inStock := "false"
	updated, err := h.svc.Update(ctx, created.ID, UpdateInput{Price: &price, InStock: &inStock}, nil)
	require.NoError(t, err)

	assert.Equal(t, 35.5, updated.Price)
	assert.False(t, updated.InStock)
	// Fields absent from the request stay untouched.
	assert.Equal(t, "fever reducer", updated.Description)
	assert.Equal(t, "Dolo", updated.Name)
}

func TestServiceUpdateEmptyCategoryRejected(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	created, err := h.svc.Create(ctx, CreateInput{Name: "Dolo", Category: "Pain-Killers"}, nil)
	require.NoError(t, err)

	// A category field that is present but empty is a rejected value, not an
	// omitted one.
	empty := ""
	_, err = h.svc.Update(ctx, created.ID, UpdateInput{Category: &empty}, nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	record, err := h.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pain-Killers", record.Category)
}

func TestServiceUpdateRenameRelocatesImages(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	created, err := h.svc.Create(ctx, CreateInput{Name: "Old Name", Category: "Antibiotics"},
		[]images.Upload{spoolTestUpload(t, "a.png", "image/png")})
	require.NoError(t, err)
	require.Equal(t, "old-name", created.ID)

	newName := "New Name"
	updated, err := h.svc.Update(ctx, "old-name", UpdateInput{Name: &newName}, nil)
	require.NoError(t, err)

	assert.Equal(t, "new-name", updated.ID)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, []string{"/medicines/new-name/1.png"}, updated.Images)
	assert.Equal(t, "/medicines/new-name/1.png", updated.Image)

	_, err = os.Stat(filepath.Join(h.imageDir, "old-name"))
	assert.True(t, os.IsNotExist(err), "old directory should be gone")
	_, err = os.Stat(filepath.Join(h.imageDir, "new-name", "1.png"))
	assert.NoError(t, err)

	_, err = h.svc.Get(ctx, "old-name")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestServiceUpdateRenameConflict(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, CreateInput{Name: "First", Category: "Antibiotics"}, nil)
	require.NoError(t, err)
	_, err = h.svc.Create(ctx, CreateInput{Name: "Second", Category: "Antibiotics"}, nil)
	require.NoError(t, err)

	target := "First"
	_, err = h.svc.Update(ctx, "second", UpdateInput{Name: &target}, nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	// The losing record keeps its identity.
	record, err := h.svc.Get(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, "Second", record.Name)
}

func TestServiceUpdateReconcilesVanishedFiles(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	created, err := h.svc.Create(ctx, CreateInput{Name: "Gallery", Category: "Antibiotics"},
		[]images.Upload{
			spoolTestUpload(t, "a.png", "image/png"),
			spoolTestUpload(t, "b.png", "image/png"),
		})
	require.NoError(t, err)
	require.Len(t, created.Images, 2)

	// Simulate an external deletion of the first file.
	require.NoError(t, os.Remove(filepath.Join(h.imageDir, created.ID, "1.png")))

	updated, err := h.svc.Update(ctx, created.ID, UpdateInput{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/medicines/gallery/2.png"}, updated.Images)
	assert.Equal(t, "/medicines/gallery/2.png", updated.Image)
}

func TestServiceUpdateAdoptsUntrackedDiskFiles(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	created, err := h.svc.Create(ctx, CreateInput{Name: "Gallery", Category: "Antibiotics"},
		[]images.Upload{spoolTestUpload(t, "a.png", "image/png")})
	require.NoError(t, err)
	require.Equal(t, []string{"/medicines/gallery/1.png"}, created.Images)

	// A file placed in the directory outside the service joins the gallery
	// after the tracked entries.
	require.NoError(t, os.WriteFile(filepath.Join(h.imageDir, created.ID, "9.png"), pngHeader, 0o644))

	updated, err := h.svc.Update(ctx, created.ID, UpdateInput{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/medicines/gallery/1.png",
		"/medicines/gallery/9.png",
	}, updated.Images)
	assert.Equal(t, "/medicines/gallery/1.png", updated.Image)
}

func TestServiceUpdateAdoptsDiskOrderWhenNothingTracked(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	created, err := h.svc.Create(ctx, CreateInput{Name: "Gallery", Category: "Antibiotics"}, nil)
	require.NoError(t, err)
	require.Empty(t, created.Images)

	dir := filepath.Join(h.imageDir, created.ID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "10.png"), pngHeader, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2.png"), pngHeader, 0o644))

	updated, err := h.svc.Update(ctx, created.ID, UpdateInput{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/medicines/gallery/2.png",
		"/medicines/gallery/10.png",
	}, updated.Images)
	assert.Equal(t, "/medicines/gallery/2.png", updated.Image)
}

func TestServiceDeleteRestore(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	created, err := h.svc.Create(ctx, CreateInput{Name: "Dolo", Category: "Pain-Killers"}, nil)
	require.NoError(t, err)

	deletedAt, err := h.svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, h.now.UTC(), deletedAt)

	active, err := h.svc.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	trashed, err := h.svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, trashed, 1)
	assert.True(t, trashed[0].Deleted())

	restored, err := h.svc.Restore(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)

	active, err = h.svc.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	_, err = h.svc.Delete(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestServicePurgeExpired(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	expired, err := h.svc.Create(ctx, CreateInput{Name: "Expired", Category: "Antibiotics"},
		[]images.Upload{spoolTestUpload(t, "a.png", "image/png")})
	require.NoError(t, err)
	fresh, err := h.svc.Create(ctx, CreateInput{Name: "Fresh", Category: "Antibiotics"}, nil)
	require.NoError(t, err)
	boundary, err := h.svc.Create(ctx, CreateInput{Name: "Boundary", Category: "Antibiotics"}, nil)
	require.NoError(t, err)

	base := h.now

	h.now = base.Add(-7*24*time.Hour - time.Second)
	_, err = h.svc.Delete(ctx, expired.ID)
	require.NoError(t, err)

	h.now = base.Add(-6 * 24 * time.Hour)
	_, err = h.svc.Delete(ctx, fresh.ID)
	require.NoError(t, err)

	h.now = base.Add(-7 * 24 * time.Hour)
	_, err = h.svc.Delete(ctx, boundary.ID)
	require.NoError(t, err)

	h.now = base
	removed, err := h.svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{expired.ID}, removed)

	_, err = os.Stat(filepath.Join(h.imageDir, expired.ID))
	assert.True(t, os.IsNotExist(err), "purged image directory should be removed")

	trashed, err := h.svc.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, trashed, 2)
}

func TestServiceAddAndRemoveImages(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	created, err := h.svc.Create(ctx, CreateInput{Name: "Gallery", Category: "Antibiotics"},
		[]images.Upload{spoolTestUpload(t, "a.png", "image/png")})
	require.NoError(t, err)

	withMore, err := h.svc.AddImages(ctx, created.ID, []images.Upload{spoolTestUpload(t, "b.png", "image/png")})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/medicines/gallery/1.png",
		"/medicines/gallery/2.png",
	}, withMore.Images)

	trimmed, err := h.svc.RemoveImage(ctx, created.ID, "/medicines/gallery/1.png")
	require.NoError(t, err)
	assert.Equal(t, []string{"/medicines/gallery/2.png"}, trimmed.Images)
	assert.Equal(t, "/medicines/gallery/2.png", trimmed.Image)
	_, err = os.Stat(filepath.Join(h.imageDir, "gallery", "1.png"))
	assert.True(t, os.IsNotExist(err))

	_, err = h.svc.RemoveImage(ctx, created.ID, "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestServiceReorderImages(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	created, err := h.svc.Create(ctx, CreateInput{Name: "Gallery", Category: "Antibiotics"},
		[]images.Upload{
			spoolTestUpload(t, "a.png", "image/png"),
			spoolTestUpload(t, "b.png", "image/png"),
			spoolTestUpload(t, "c.png", "image/png"),
		})
	require.NoError(t, err)

	// Partial, stale payload: unknown URLs ignored, omitted images survive.
	reordered, err := h.svc.ReorderImages(ctx, created.ID, []string{
		"/medicines/gallery/3.png",
		"/medicines/gallery/nope.png",
		"/medicines/gallery/1.png",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/medicines/gallery/3.png",
		"/medicines/gallery/1.png",
		"/medicines/gallery/2.png",
	}, reordered.Images)
	assert.Equal(t, "/medicines/gallery/3.png", reordered.Image)

	_, err = h.svc.ReorderImages(ctx, created.ID, nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

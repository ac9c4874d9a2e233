package catalog

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/pharmaline/catalog-backend/internal/images"
	pkgerrors "github.com/pharmaline/catalog-backend/pkg/errors"
	"github.com/pharmaline/catalog-backend/pkg/logger"
	"github.com/pharmaline/catalog-backend/pkg/metrics"
	"github.com/pharmaline/catalog-backend/pkg/slug"
)

// CategoryValidator resolves a requested category label to its canonical form
// or rejects it with a validation error naming the allowed set.
type CategoryValidator interface {
	ValidateLabel(ctx context.Context, label string) (string, error)
}

// Service exposes the medicine record lifecycle: create, update, soft delete,
// restore, purge, and the image operations.
type Service interface {
	Create(ctx context.Context, input CreateInput, uploads []images.Upload) (*Medicine, error)
	Update(ctx context.Context, id string, input UpdateInput, uploads []images.Upload) (*Medicine, error)
	Delete(ctx context.Context, id string) (time.Time, error)
	Restore(ctx context.Context, id string) (*Medicine, error)
	PurgeExpired(ctx context.Context) ([]string, error)
	AddImages(ctx context.Context, id string, uploads []images.Upload) (*Medicine, error)
	RemoveImage(ctx context.Context, id, url string) (*Medicine, error)
	ReorderImages(ctx context.Context, id string, order []string) (*Medicine, error)
	List(ctx context.Context, includeDeleted bool) ([]Medicine, error)
	Get(ctx context.Context, id string) (*Medicine, error)
}

// CreateInput carries the raw form fields for a new listing. String fields
// keep their transmitted text form; coercion happens inside the operation.
type CreateInput struct {
	Name                 string
	Category             string
	CategoriesJSON       string
	Price                string
	Form                 string
	Description          string
	Manufacturer         string
	Composition          string
	RequiresPrescription string
	InStock              string
	Dosage               string
	Usage                string
	DetailsJSON          string
}

// UpdateInput carries optional form fields; nil means "not in the request".
type UpdateInput struct {
	Name                 *string
	Category             *string
	CategoriesJSON       *string
	Price                *string
	Form                 *string
	Description          *string
	Manufacturer         *string
	Composition          *string
	RequiresPrescription *string
	InStock              *string
	Dosage               *string
	Usage                *string
	DetailsJSON          *string
}

// ServiceParams wires the catalog service dependencies.
type ServiceParams struct {
	Store      Store
	Images     images.Manager
	Categories CategoryValidator
	Logger     *logger.Logger
	Metrics    *metrics.CatalogMetrics
	Retention  time.Duration
	Now        func() time.Time
}

type service struct {
	store      Store
	images     images.Manager
	categories CategoryValidator
	logg       *logger.Logger
	metrics    *metrics.CatalogMetrics
	retention  time.Duration
	now        func() time.Time

	// Serializes read-modify-write cycles against the collection file.
	mu sync.Mutex
}

const defaultRetention = 7 * 24 * time.Hour

// NewService constructs the catalog service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store required")
	}
	if params.Images == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image manager required")
	}
	if params.Categories == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category validator required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultRetention
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		store:      params.Store,
		images:     params.Images,
		categories: params.Categories,
		logg:       params.Logger,
		metrics:    params.Metrics,
		retention:  retention,
		now:        now,
	}, nil
}

func (s *service) track(operation string, start time.Time, err *error) {
	s.metrics.ObserveDuration(operation, time.Since(start))
	if err != nil && *err != nil {
		s.metrics.IncFailure(operation)
		return
	}
	s.metrics.IncSuccess(operation)
}

func (s *service) Create(ctx context.Context, input CreateInput, uploads []images.Upload) (_ *Medicine, err error) {
	defer s.track("create", time.Now(), &err)
	defer func() {
		if err != nil {
			s.images.CleanupTemp(ctx, uploads)
		}
	}()
	s.mu.Lock()
	defer s.mu.Unlock()

	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	normalized := make([]string, 0)
	for _, label := range parseCategoryList(input.CategoriesJSON) {
		canonical, err := s.categories.ValidateLabel(ctx, label)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, canonical)
	}
	var primary string
	if len(normalized) > 0 {
		primary = normalized[0]
	} else {
		canonical, err := s.categories.ValidateLabel(ctx, input.Category)
		if err != nil {
			return nil, err
		}
		primary = canonical
	}

	id := slug.Make(input.Name)
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if findRecord(records, id) != -1 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "duplicate medicine id").
			WithDetails(map[string]any{"id": id})
	}

	if err := s.images.EnsureDirectory(id); err != nil {
		return nil, err
	}
	startSeq := s.images.NextSequence(s.images.DirectoryFor(id))
	urls, err := s.images.Ingest(ctx, uploads, id, startSeq)
	if err != nil {
		return nil, err
	}

	entry := Medicine{
		ID:                   id,
		Name:                 input.Name,
		Category:             primary,
		Categories:           normalized,
		Price:                coercePrice(input.Price),
		Form:                 defaultString(input.Form, "Tablet"),
		Image:                firstOr(urls, ""),
		Images:               urls,
		InStock:              coerceBool(input.InStock),
		Description:          input.Description,
		Manufacturer:         defaultString(input.Manufacturer, "Generic"),
		Composition:          input.Composition,
		RequiresPrescription: coerceBool(input.RequiresPrescription),
		Dosage:               input.Dosage,
		Usage:                input.Usage,
	}
	if entry.Images == nil {
		entry.Images = []string{}
	}
	entry.Details = mergePredefinedDetails(&entry, parseDetailRows(input.DetailsJSON))

	records = append(records, entry)
	if err := s.store.Save(ctx, records); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithMedicineID(ctx, entry.ID), "medicine created")
	return &entry, nil
}

func (s *service) Update(ctx context.Context, id string, input UpdateInput, uploads []images.Upload) (_ *Medicine, err error) {
	defer s.track("update", time.Now(), &err)
	defer func() {
		if err != nil {
			s.images.CleanupTemp(ctx, uploads)
		}
	}()
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	idx := findRecord(records, id)
	if idx == -1 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
	}
	entry := records[idx]

	// Identity change via a renamed medicine: the image directory must move
	// first, and a failed move aborts the rename entirely.
	targetID := entry.ID
	if input.Name != nil && *input.Name != "" {
		if newID := slug.Make(*input.Name); newID != id {
			if findRecord(records, newID) != -1 {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "target medicine id already exists").
					WithDetails(map[string]any{"id": newID})
			}
			if err := s.images.Relocate(ctx, id, newID); err != nil {
				return nil, err
			}
			targetID = newID
		}
	}

	targetCat := entry.Category
	var pendingCategories []string
	if input.Category != nil || input.CategoriesJSON != nil {
		var requested []string
		if input.CategoriesJSON != nil {
			requested = parseCategoryList(*input.CategoriesJSON)
		}
		if len(requested) == 0 {
			single := targetCat
			if input.Category != nil {
				canonical, err := s.categories.ValidateLabel(ctx, *input.Category)
				if err != nil {
					return nil, err
				}
				single = canonical
			}
			pendingCategories = []string{single}
		} else {
			pendingCategories = make([]string, 0, len(requested))
			for _, label := range requested {
				canonical, err := s.categories.ValidateLabel(ctx, label)
				if err != nil {
					return nil, err
				}
				pendingCategories = append(pendingCategories, canonical)
			}
		}
		if len(pendingCategories) > 0 && pendingCategories[0] != "" {
			targetCat = pendingCategories[0]
		}
	}

	entry.ID = targetID
	entry.Category = targetCat
	if pendingCategories != nil {
		entry.Categories = pendingCategories
	}

	if err := s.images.EnsureDirectory(entry.ID); err != nil {
		return nil, err
	}
	dir := s.images.DirectoryFor(entry.ID)
	urls, err := s.images.Ingest(ctx, uploads, entry.ID, s.images.NextSequence(dir))
	if err != nil {
		return nil, err
	}
	entry.Images = append(entry.Images, urls...)

	applyScalarUpdates(&entry, input)

	if input.DetailsJSON != nil {
		if rows := parseDetailRows(*input.DetailsJSON); rows != nil {
			entry.Details = rows
		}
	}
	entry.Details = mergePredefinedDetails(&entry, entry.Details)

	// After an id change, rewrite tracked URLs to the new path, but only once
	// the new directory demonstrably holds files.
	if targetID != id && len(s.images.ListOnDisk(entry.ID)) > 0 {
		for i, u := range entry.Images {
			entry.Images[i] = s.images.URLFor(entry.ID, path.Base(u))
		}
	}

	entry.Images = s.reconcileImages(&entry)
	entry.Image = firstOr(entry.Images, entry.Image)

	records[idx] = entry
	if err := s.store.Save(ctx, records); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithMedicineID(ctx, entry.ID), "medicine updated")
	return &entry, nil
}

// reconcileImages merges the tracked image list with what is actually on
// disk: tracked order wins for surviving files, vanished files drop out, and
// untracked disk files append in disk order. An empty tracked list adopts the
// disk listing wholesale.
func (s *service) reconcileImages(entry *Medicine) []string {
	disk := s.images.ListOnDisk(entry.ID)
	if len(entry.Images) == 0 {
		return disk
	}
	onDisk := make(map[string]bool, len(disk))
	for _, u := range disk {
		onDisk[path.Base(u)] = true
	}
	kept := make([]string, 0, len(entry.Images))
	tracked := make(map[string]bool, len(entry.Images))
	for _, u := range entry.Images {
		base := path.Base(u)
		if onDisk[base] && !tracked[base] {
			kept = append(kept, u)
			tracked[base] = true
		}
	}
	for _, u := range disk {
		if !tracked[path.Base(u)] {
			kept = append(kept, u)
		}
	}
	return kept
}

func (s *service) Delete(ctx context.Context, id string) (_ time.Time, err error) {
	defer s.track("delete", time.Now(), &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.Load(ctx)
	if err != nil {
		return time.Time{}, err
	}
	idx := findRecord(records, id)
	if idx == -1 {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
	}
	deletedAt := s.now().UTC()
	records[idx].DeletedAt = &deletedAt
	if err := s.store.Save(ctx, records); err != nil {
		return time.Time{}, err
	}
	s.logg.Info(s.logg.WithMedicineID(ctx, id), "medicine soft-deleted")
	return deletedAt, nil
}

func (s *service) Restore(ctx context.Context, id string) (_ *Medicine, err error) {
	defer s.track("restore", time.Now(), &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	idx := findRecord(records, id)
	if idx == -1 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
	}
	records[idx].DeletedAt = nil
	if err := s.store.Save(ctx, records); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithMedicineID(ctx, id), "medicine restored")
	entry := records[idx]
	return &entry, nil
}

func (s *service) PurgeExpired(ctx context.Context) (_ []string, err error) {
	defer s.track("purge", time.Now(), &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := s.now().Add(-s.retention)
	kept := records[:0:0]
	removed := []string{}
	for _, record := range records {
		if record.DeletedAt != nil && record.DeletedAt.Before(cutoff) {
			s.images.Remove(ctx, record.ID)
			removed = append(removed, record.ID)
			continue
		}
		kept = append(kept, record)
	}
	if err := s.store.Save(ctx, kept); err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		s.logg.Info(s.logg.WithField(ctx, "removed", removed), "purged expired medicines")
	}
	return removed, nil
}

func (s *service) AddImages(ctx context.Context, id string, uploads []images.Upload) (_ *Medicine, err error) {
	defer s.track("add_images", time.Now(), &err)
	defer func() {
		if err != nil {
			s.images.CleanupTemp(ctx, uploads)
		}
	}()
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	idx := findRecord(records, id)
	if idx == -1 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
	}
	entry := records[idx]

	if err := s.images.EnsureDirectory(entry.ID); err != nil {
		return nil, err
	}
	dir := s.images.DirectoryFor(entry.ID)
	urls, err := s.images.Ingest(ctx, uploads, entry.ID, s.images.NextSequence(dir))
	if err != nil {
		return nil, err
	}
	entry.Images = append(entry.Images, urls...)
	entry.Images = s.reconcileImages(&entry)
	entry.Image = firstOr(entry.Images, entry.Image)

	records[idx] = entry
	if err := s.store.Save(ctx, records); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *service) RemoveImage(ctx context.Context, id, url string) (_ *Medicine, err error) {
	defer s.track("remove_image", time.Now(), &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	if url == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "url is required")
	}
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	idx := findRecord(records, id)
	if idx == -1 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
	}
	entry := records[idx]

	s.images.RemoveFile(ctx, entry.ID, path.Base(url))

	kept := entry.Images[:0:0]
	for _, u := range entry.Images {
		if u != url {
			kept = append(kept, u)
		}
	}
	entry.Images = kept
	entry.Image = firstOr(entry.Images, "")

	records[idx] = entry
	if err := s.store.Save(ctx, records); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *service) ReorderImages(ctx context.Context, id string, order []string) (_ *Medicine, err error) {
	defer s.track("reorder_images", time.Now(), &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must be an array of URLs")
	}
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	idx := findRecord(records, id)
	if idx == -1 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
	}
	entry := records[idx]

	current := make(map[string]bool, len(entry.Images))
	for _, u := range entry.Images {
		current[u] = true
	}
	next := make([]string, 0, len(entry.Images))
	placed := make(map[string]bool, len(entry.Images))
	for _, u := range order {
		if current[u] && !placed[u] {
			next = append(next, u)
			placed[u] = true
		}
	}
	// A stale or partial payload must never drop images.
	for _, u := range entry.Images {
		if !placed[u] {
			next = append(next, u)
			placed[u] = true
		}
	}
	entry.Images = next
	entry.Image = firstOr(entry.Images, "")

	records[idx] = entry
	if err := s.store.Save(ctx, records); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *service) List(ctx context.Context, includeDeleted bool) ([]Medicine, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Medicine, 0, len(records))
	for _, record := range records {
		if record.Deleted() == includeDeleted {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id string) (*Medicine, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	idx := findRecord(records, id)
	if idx == -1 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
	}
	entry := records[idx]
	return &entry, nil
}

func applyScalarUpdates(entry *Medicine, input UpdateInput) {
	if input.Name != nil && *input.Name != "" {
		entry.Name = *input.Name
	}
	if input.Price != nil {
		entry.Price = coercePrice(*input.Price)
	}
	if input.Form != nil {
		entry.Form = *input.Form
	}
	if input.Description != nil {
		entry.Description = *input.Description
	}
	if input.Manufacturer != nil {
		entry.Manufacturer = *input.Manufacturer
	}
	if input.Composition != nil {
		entry.Composition = *input.Composition
	}
	if input.RequiresPrescription != nil {
		entry.RequiresPrescription = coerceBool(*input.RequiresPrescription)
	}
	if input.InStock != nil {
		entry.InStock = coerceBool(*input.InStock)
	}
	if input.Dosage != nil {
		entry.Dosage = *input.Dosage
	}
	if input.Usage != nil {
		entry.Usage = *input.Usage
	}
}

func findRecord(records []Medicine, id string) int {
	for i, record := range records {
		if record.ID == id {
			return i
		}
	}
	return -1
}

func firstOr(urls []string, fallback string) string {
	if len(urls) > 0 {
		return urls[0]
	}
	return fallback
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

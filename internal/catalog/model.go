package catalog

import "time"

// DetailRow is one label/value specification row on a medicine listing.
type DetailRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Medicine is one listing in the catalog. The JSON field names are the
// persisted wire format; the storefront reads the same file.
type Medicine struct {
	ID                   string      `json:"id"`
	Name                 string      `json:"name"`
	Category             string      `json:"category"`
	Categories           []string    `json:"categories"`
	Price                float64     `json:"price"`
	Form                 string      `json:"form"`
	Image                string      `json:"image"`
	Images               []string    `json:"images"`
	InStock              bool        `json:"inStock"`
	Description          string      `json:"description"`
	Manufacturer         string      `json:"manufacturer"`
	Composition          string      `json:"composition"`
	RequiresPrescription bool        `json:"requiresPrescription"`
	Dosage               string      `json:"dosage"`
	Usage                string      `json:"usage"`
	Details              []DetailRow `json:"details"`
	DeletedAt            *time.Time  `json:"deletedAt,omitempty"`
}

// Deleted reports whether the record is soft-deleted.
func (m Medicine) Deleted() bool {
	return m.DeletedAt != nil
}

// predefinedDetailLabels is the fixed set of specification rows every listing
// carries, in the order the detail page renders them.
var predefinedDetailLabels = []string{
	"Brand Name",
	"Manufacturer",
	"Strength",
	"Composition",
	"Form",
	"Pack Size",
	"Packaging Type",
	"Tablets in a Strip",
	"Shelf Life",
	"Category",
	"Medicine Type",
	"Storage",
}

// PredefinedDetailLabels returns a copy of the canonical label order.
func PredefinedDetailLabels() []string {
	out := make([]string, len(predefinedDetailLabels))
	copy(out, predefinedDetailLabels)
	return out
}

// mergePredefinedDetails normalizes a detail list so that every predefined
// label appears exactly once, in canonical order, at the front. Values come
// from the incoming rows when supplied, otherwise from the entry's scalar
// fields, otherwise empty. Custom rows keep their first-seen order and are
// appended after the predefined block; a repeated label keeps its first
// position but takes the last value, matching map-insertion semantics the
// stored data was produced with.
func mergePredefinedDetails(entry *Medicine, incoming []DetailRow) []DetailRow {
	valueByLabel := make(map[string]string, len(incoming))
	order := make([]string, 0, len(incoming))
	for _, row := range incoming {
		if row.Label == "" {
			continue
		}
		if _, seen := valueByLabel[row.Label]; !seen {
			order = append(order, row.Label)
		}
		valueByLabel[row.Label] = row.Value
	}

	defaults := map[string]string{
		"Brand Name":   entry.Name,
		"Manufacturer": entry.Manufacturer,
		"Composition":  entry.Composition,
		"Form":         entry.Form,
		"Category":     entry.Category,
	}

	result := make([]DetailRow, 0, len(predefinedDetailLabels)+len(order))
	for _, label := range predefinedDetailLabels {
		value, supplied := valueByLabel[label]
		if !supplied {
			value = defaults[label]
		}
		result = append(result, DetailRow{Label: label, Value: value})
		delete(valueByLabel, label)
	}
	for _, label := range order {
		if value, ok := valueByLabel[label]; ok {
			result = append(result, DetailRow{Label: label, Value: value})
		}
	}
	return result
}

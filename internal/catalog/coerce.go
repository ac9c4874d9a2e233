package catalog

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Form values arrive as text, so the boolean and numeric fields need explicit
// coercion instead of strconv.ParseBool-style strictness: the admin UI sends
// "true"/"false" strings and omits untouched fields entirely.

// coerceBool treats anything except the literal string "false" as true.
func coerceBool(raw string) bool {
	return strings.TrimSpace(raw) != "false"
}

// coercePrice parses a price transmitted as text; unparseable input (including
// the empty string) coerces to zero rather than failing the whole request.
func coercePrice(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || price != price { // reject NaN
		return 0
	}
	return price
}

// parseDetailRows decodes a details payload sent as a JSON string. Malformed
// or non-array input is treated as empty.
func parseDetailRows(raw string) []DetailRow {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var rows []DetailRow
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil
	}
	return rows
}

// parseCategoryList decodes a categories payload sent as a JSON string array.
// Malformed input is treated as empty, deferring to the legacy single field.
func parseCategoryList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var labels []string
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		return nil
	}
	return labels
}

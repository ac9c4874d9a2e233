// Package slug derives URL-safe medicine identifiers from display names.
// The rules mirror the identifiers already baked into the served image URLs,
// so they cannot drift: lowercase, "&" becomes " and ", any run of
// non-alphanumerics collapses to a single hyphen, outer hyphens are trimmed.
package slug

import "strings"

// Make converts a display name into its canonical slug form.
func Make(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "&", " and ")

	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range s {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !alnum {
			pendingHyphen = b.Len() > 0
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

package categories

// legacyNames maps category labels that still appear in older records to
// their current canonical form. Plain lookup data; extend it when a label is
// renamed and old JSON survives in the wild.
var legacyNames = map[string]string{
	"Anti Cancer":             "Anti-Cancer",
	"Anti Malarial":           "Anti-Malarial",
	"Anti Viral":              "Anti-Viral",
	"Chronic / Cardiac":       "Chronic-Cardiac",
	"Erectile Dysfunction":    "ED",
	"Hormones & Steroids":     "Hormones-Steroids",
	"Pain Relief":             "Pain-Killers",
	"Skin / Allergy / Asthma": "Skin-Allergy-Asthma",
	"Supplements & Hair":      "Supplements-Vitamins-Hair",
}

// Normalize maps a legacy label to its canonical name, passing through
// anything already canonical.
func Normalize(label string) string {
	if canonical, ok := legacyNames[label]; ok {
		return canonical
	}
	return label
}

// defaultLabels seeds a fresh categories file.
var defaultLabels = []string{
	"Antibiotics",
	"Anti-Cancer",
	"Anti-Malarial",
	"Anti-Viral",
	"Chronic-Cardiac",
	"ED",
	"Hormones-Steroids",
	"Injections",
	"Pain-Killers",
	"Skin-Allergy-Asthma",
	"Supplements-Vitamins-Hair",
}

package constants

import "strings"

// EntityCategory is one bucket of the extracted entity record.
type EntityCategory string

const (
	CategoryNames        EntityCategory = "names"
	CategoryAddresses    EntityCategory = "addresses"
	CategoryPhoneNumbers EntityCategory = "phone_numbers"
	CategoryEmails       EntityCategory = "emails"
)

// Categories in output order.
var Categories = []EntityCategory{
	CategoryNames,
	CategoryAddresses,
	CategoryPhoneNumbers,
	CategoryEmails,
}

// CanonicalizeLabel maps a recognizer's entity label onto a category.
// Only person and geo-political labels are kept; everything else is discarded.
func CanonicalizeLabel(label string) (EntityCategory, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(label))

	// synonyms across recognizers
	synonyms := map[string]EntityCategory{
		"PERSON": CategoryNames,
		"PER":    CategoryNames,
		"GPE":    CategoryAddresses,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}
	return "", false
}

package entity

import (
	"encoding/json"
	"sort"
)

// FormField is one resolved key/value pair. Both sides are non-empty.
type FormField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// StringSet collapses duplicates. It serializes as a sorted array.
type StringSet map[string]struct{}

// NewStringSet builds a set from values.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add inserts a value; empty strings are ignored.
func (s StringSet) Add(v string) {
	if v == "" {
		return
	}
	s[v] = struct{}{}
}

// Union adds every member of other.
func (s StringSet) Union(other StringSet) {
	for v := range other {
		s[v] = struct{}{}
	}
}

// Has reports membership.
func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the members in lexical order.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *StringSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = NewStringSet(values...)
	return nil
}

// ExtractedEntities is the merged output of the recognizer and the pattern matchers.
type ExtractedEntities struct {
	Names        StringSet `json:"names"`
	Addresses    StringSet `json:"addresses"`
	PhoneNumbers StringSet `json:"phone_numbers"`
	Emails       StringSet `json:"emails"`
}

// NewExtractedEntities returns a record with every category initialized.
func NewExtractedEntities() ExtractedEntities {
	return ExtractedEntities{
		Names:        StringSet{},
		Addresses:    StringSet{},
		PhoneNumbers: StringSet{},
		Emails:       StringSet{},
	}
}

// Merge unions other into e, category by category.
func (e *ExtractedEntities) Merge(other ExtractedEntities) {
	e.Names.Union(other.Names)
	e.Addresses.Union(other.Addresses)
	e.PhoneNumbers.Union(other.PhoneNumbers)
	e.Emails.Union(other.Emails)
}

// Count returns the total number of entities across categories.
func (e ExtractedEntities) Count() int {
	return len(e.Names) + len(e.Addresses) + len(e.PhoneNumbers) + len(e.Emails)
}

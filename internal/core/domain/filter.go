package domain

import (
	"fmt"
	"sort"
	"strings"
)

// FilterValue is a metadata predicate: either an exact value or
// membership in a set of values.
type FilterValue struct {
	// Equals is the exact value to match when AnyOf is empty.
	Equals string `json:"equals,omitempty"`

	// AnyOf matches when the field equals any of the values, or when the
	// field is a list sharing at least one value with AnyOf.
	AnyOf []string `json:"anyOf,omitempty"`
}

// Eq builds an exact-match predicate.
func Eq(v string) FilterValue { return FilterValue{Equals: v} }

// In builds a set-membership predicate.
func In(vs ...string) FilterValue { return FilterValue{AnyOf: vs} }

// IsSet reports whether the predicate is set-membership.
func (f FilterValue) IsSet() bool { return len(f.AnyOf) > 0 }

// Values returns the accepted values.
func (f FilterValue) Values() []string {
	if f.IsSet() {
		return f.AnyOf
	}
	return []string{f.Equals}
}

// String renders the predicate for logs.
func (f FilterValue) String() string {
	if f.IsSet() {
		return "in(" + strings.Join(f.AnyOf, ",") + ")"
	}
	return f.Equals
}

// Filter maps metadata keys to predicates. All predicates must hold.
type Filter map[string]FilterValue

// Clone returns a copy of the filter.
func (f Filter) Clone() Filter {
	out := make(Filter, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Keys returns the filter keys in sorted order.
func (f Filter) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the filter for logs.
func (f Filter) String() string {
	parts := make([]string, 0, len(f))
	for _, k := range f.Keys() {
		parts = append(parts, fmt.Sprintf("%s=%s", k, f[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// Matches evaluates the filter against record metadata.
// Stores that cannot push a predicate down use this in-process.
func (f Filter) Matches(meta map[string]any) bool {
	for key, pred := range f {
		if !pred.matchesField(meta[key]) {
			return false
		}
	}
	return true
}

func (f FilterValue) matchesField(field any) bool {
	accepted := f.Values()
	for _, have := range fieldValues(field) {
		for _, want := range accepted {
			if have == want {
				return true
			}
		}
	}
	return false
}

// fieldValues normalises a metadata value into its string forms.
func fieldValues(field any) []string {
	switch v := field.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}

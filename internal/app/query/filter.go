package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/R3E-Network/thrones_api/internal/app/domain/character"
	"github.com/R3E-Network/thrones_api/internal/errors"
)

// Query parameter names beyond the schema attributes.
const (
	KeyAgeMoreThan = "age_more_than"
	KeyAgeLessThan = "age_less_than"
	KeySortAsc     = "sort_asc"
	KeySortDesc    = "sort_desc"
	KeyLimit       = "limit"
	KeySkip        = "skip"
)

// FilterKeys lists the accepted filter parameters in evaluation order.
var FilterKeys = append(append([]string{}, character.Attributes...), KeyAgeMoreThan, KeyAgeLessThan)

var controlKeys = map[string]bool{
	KeySortAsc: true, KeySortDesc: true, KeyLimit: true, KeySkip: true,
}

// Filter is a single attribute predicate taken from the query string.
type Filter struct {
	Key   string
	Value string
}

// IsFilterKey reports whether key narrows the record set.
func IsFilterKey(key string) bool {
	return character.IsAttribute(key) || key == KeyAgeMoreThan || key == KeyAgeLessThan
}

// ValidateKeys rejects any parameter that is neither a filter nor a
// sort/pagination control. Keys are checked in sorted order so the reported
// key is deterministic.
func ValidateKeys(values url.Values) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !IsFilterKey(key) && !controlKeys[key] {
			return errors.InvalidFilterAttribute(key)
		}
	}
	return nil
}

// ParseFilters extracts the filters present in values. Empty values are
// treated as absent.
func ParseFilters(values url.Values) []Filter {
	var filters []Filter
	for _, key := range FilterKeys {
		if v := values.Get(key); v != "" {
			filters = append(filters, Filter{Key: key, Value: v})
		}
	}
	return filters
}

// ApplyFilters narrows records by every filter in turn. The input slice is
// not modified and the output preserves input order.
func ApplyFilters(records []character.Character, filters []Filter) ([]character.Character, error) {
	out := records
	for _, f := range filters {
		match, err := f.predicate()
		if err != nil {
			return nil, err
		}
		narrowed := make([]character.Character, 0, len(out))
		for _, c := range out {
			if match(c) {
				narrowed = append(narrowed, c)
			}
		}
		out = narrowed
	}
	if out == nil {
		out = []character.Character{}
	}
	return out, nil
}

func (f Filter) predicate() (func(character.Character) bool, error) {
	switch f.Key {
	case character.AttrAge, KeyAgeMoreThan, KeyAgeLessThan:
		want, err := strconv.ParseInt(strings.TrimSpace(f.Value), 10, 64)
		if err != nil {
			return nil, errors.InvalidNumericParameter(f.Key)
		}
		cmp := func(age int64) bool { return age == want }
		if f.Key == KeyAgeMoreThan {
			cmp = func(age int64) bool { return age >= want }
		} else if f.Key == KeyAgeLessThan {
			cmp = func(age int64) bool { return age <= want }
		}
		return func(c character.Character) bool {
			return c.Age != nil && cmp(*c.Age)
		}, nil
	}

	if !character.IsAttribute(f.Key) {
		return nil, errors.InvalidFilterAttribute(f.Key)
	}
	needle := strings.ToLower(f.Value)
	return func(c character.Character) bool {
		v, _ := c.Text(f.Key)
		return v != nil && strings.Contains(strings.ToLower(*v), needle)
	}, nil
}

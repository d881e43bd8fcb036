package query

import (
	"net/url"
	"sort"

	"github.com/R3E-Network/thrones_api/internal/app/domain/character"
	"github.com/R3E-Network/thrones_api/internal/errors"
)

// Direction of a sort directive.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// SortDirective orders a collection by one attribute.
type SortDirective struct {
	Attribute string
	Direction Direction
}

// ParseSort reads sort_asc/sort_desc. It returns nil when neither is set.
func ParseSort(values url.Values) (*SortDirective, error) {
	asc, desc := values.Get(KeySortAsc), values.Get(KeySortDesc)

	var directive *SortDirective
	switch {
	case asc != "" && desc != "":
		return nil, errors.ConflictingSort()
	case asc != "":
		directive = &SortDirective{Attribute: asc, Direction: Ascending}
	case desc != "":
		directive = &SortDirective{Attribute: desc, Direction: Descending}
	default:
		return nil, nil
	}

	if !character.IsSortable(directive.Attribute) {
		return nil, errors.InvalidSortAttribute(directive.Attribute, character.SortableAttributes)
	}
	return directive, nil
}

// Sort returns a stably ordered copy of records. Records whose attribute is
// null come after every non-null record in both directions.
func Sort(records []character.Character, d SortDirective) []character.Character {
	out := make([]character.Character, len(records))
	copy(out, records)

	less := compareBy(d.Attribute)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		aNull, bNull := a.IsNull(d.Attribute), b.IsNull(d.Attribute)
		if aNull || bNull {
			return !aNull && bNull
		}
		if d.Direction == Descending {
			return less(b, a)
		}
		return less(a, b)
	})
	return out
}

// compareBy returns a strict ordering over non-null values of attr:
// numeric for integers, byte-wise for strings.
func compareBy(attr string) func(a, b character.Character) bool {
	if character.IsNumeric(attr) {
		return func(a, b character.Character) bool {
			av, _ := a.Int(attr)
			bv, _ := b.Int(attr)
			return *av < *bv
		}
	}
	return func(a, b character.Character) bool {
		av, _ := a.Text(attr)
		bv, _ := b.Text(attr)
		return *av < *bv
	}
}

package characters

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/thrones_api/internal/app/domain/character"
	"github.com/R3E-Network/thrones_api/internal/errors"
)

// Patch is a validated request body. Only attributes present in the body
// are recorded; a present attribute with a nil value is an explicit null.
type Patch struct {
	ages  map[string]*int64
	texts map[string]*string
}

// ParsePatch type-checks the schema attributes of a create body. Unknown
// keys, including id, are ignored.
func ParsePatch(payload []byte) (Patch, error) {
	return parsePatch(payload, true)
}

// ParseUpdate is ParsePatch for update bodies, whose type errors omit the
// "or null" suffix.
func ParseUpdate(payload []byte) (Patch, error) {
	return parsePatch(payload, false)
}

func parsePatch(payload []byte, nullable bool) (Patch, error) {
	if !gjson.ValidBytes(payload) {
		return Patch{}, errors.BadRequest("Request body must be valid JSON.")
	}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() {
		return Patch{}, errors.BadRequest("Request body must be a JSON object.")
	}

	p := Patch{ages: map[string]*int64{}, texts: map[string]*string{}}
	for _, name := range character.Attributes {
		v := root.Get(name)
		if !v.Exists() {
			continue
		}
		if character.IsNumeric(name) {
			n, err := integerValue(name, v, nullable)
			if err != nil {
				return Patch{}, err
			}
			p.ages[name] = n
			continue
		}
		switch v.Type {
		case gjson.Null:
			p.texts[name] = nil
		case gjson.String:
			s := v.Str
			p.texts[name] = &s
		default:
			return Patch{}, errors.FieldTypeMismatch(name, "str", nullable)
		}
	}
	return p, nil
}

// integerValue accepts null or a JSON number written without a fraction or
// exponent. Booleans are rejected.
func integerValue(name string, v gjson.Result, nullable bool) (*int64, error) {
	if v.Type == gjson.Null {
		return nil, nil
	}
	if v.Type != gjson.Number || strings.ContainsAny(v.Raw, ".eE") {
		return nil, errors.FieldTypeMismatch(name, "int", nullable)
	}
	n, err := strconv.ParseInt(v.Raw, 10, 64)
	if err != nil {
		return nil, errors.FieldTypeMismatch(name, "int", nullable)
	}
	return &n, nil
}

// Has reports whether the body carried name.
func (p Patch) Has(name string) bool {
	if _, ok := p.ages[name]; ok {
		return true
	}
	_, ok := p.texts[name]
	return ok
}

// Fields lists the attributes present, in schema order.
func (p Patch) Fields() []string {
	var out []string
	for _, name := range character.Attributes {
		if p.Has(name) {
			out = append(out, name)
		}
	}
	return out
}

// Apply writes the present attributes onto c and leaves the rest untouched.
func (p Patch) Apply(c *character.Character) {
	if v, ok := p.ages[character.AttrAge]; ok {
		c.SetAge(v)
	}
	for name, v := range p.texts {
		c.SetText(name, v)
	}
}

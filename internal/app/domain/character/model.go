package character

// Attribute names of the character schema.
const (
	AttrID       = "id"
	AttrAge      = "age"
	AttrAnimal   = "animal"
	AttrDeath    = "death"
	AttrHouse    = "house"
	AttrName     = "name"
	AttrNickname = "nickname"
	AttrRole     = "role"
	AttrStrength = "strength"
	AttrSymbol   = "symbol"
)

// Attributes lists the nine user-editable fields in schema order.
var Attributes = []string{
	AttrAge, AttrAnimal, AttrDeath, AttrHouse, AttrName,
	AttrNickname, AttrRole, AttrStrength, AttrSymbol,
}

// SortableAttributes lists every field a collection can be ordered by.
var SortableAttributes = []string{
	AttrAge, AttrAnimal, AttrDeath, AttrHouse, AttrID,
	AttrName, AttrNickname, AttrRole, AttrStrength, AttrSymbol,
}

// Character is a single record. Every field except ID is nullable and a nil
// pointer serialises as JSON null.
type Character struct {
	ID       int64   `json:"id" db:"id"`
	Age      *int64  `json:"age" db:"age"`
	Animal   *string `json:"animal" db:"animal"`
	Death    *string `json:"death" db:"death"`
	House    *string `json:"house" db:"house"`
	Name     *string `json:"name" db:"name"`
	Nickname *string `json:"nickname" db:"nickname"`
	Role     *string `json:"role" db:"role"`
	Strength *string `json:"strength" db:"strength"`
	Symbol   *string `json:"symbol" db:"symbol"`
}

// IsAttribute reports whether name is one of the nine schema fields.
func IsAttribute(name string) bool {
	return contains(Attributes, name)
}

// IsSortable reports whether a collection can be ordered by name.
func IsSortable(name string) bool {
	return contains(SortableAttributes, name)
}

// IsNumeric reports whether name holds an integer value.
func IsNumeric(name string) bool {
	return name == AttrAge || name == AttrID
}

// Int returns the integer value of a numeric attribute. ok is false for
// non-numeric attributes.
func (c Character) Int(name string) (value *int64, ok bool) {
	switch name {
	case AttrAge:
		return c.Age, true
	case AttrID:
		id := c.ID
		return &id, true
	}
	return nil, false
}

// Text returns the value of a string attribute. ok is false for numeric
// or unknown attributes.
func (c Character) Text(name string) (value *string, ok bool) {
	slot := c.stringSlot(name)
	if slot == nil {
		return nil, false
	}
	return *slot, true
}

// SetText assigns a string attribute. It returns false when name is not a
// string attribute.
func (c *Character) SetText(name string, value *string) bool {
	slot := c.stringSlot(name)
	if slot == nil {
		return false
	}
	*slot = cloneString(value)
	return true
}

// SetAge assigns the age attribute.
func (c *Character) SetAge(value *int64) {
	if value == nil {
		c.Age = nil
		return
	}
	v := *value
	c.Age = &v
}

// IsNull reports whether the attribute holds no value. Unknown names are
// treated as null.
func (c Character) IsNull(name string) bool {
	if v, ok := c.Int(name); ok {
		return v == nil
	}
	if v, ok := c.Text(name); ok {
		return v == nil
	}
	return true
}

// Clone returns a deep copy that shares no pointers with c.
func (c Character) Clone() Character {
	out := Character{ID: c.ID}
	out.SetAge(c.Age)
	for _, name := range Attributes {
		if name == AttrAge {
			continue
		}
		v, _ := c.Text(name)
		out.SetText(name, v)
	}
	return out
}

// CloneAll deep-copies a slice of characters.
func CloneAll(in []Character) []Character {
	out := make([]Character, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

func (c *Character) stringSlot(name string) **string {
	switch name {
	case AttrAnimal:
		return &c.Animal
	case AttrDeath:
		return &c.Death
	case AttrHouse:
		return &c.House
	case AttrName:
		return &c.Name
	case AttrNickname:
		return &c.Nickname
	case AttrRole:
		return &c.Role
	case AttrStrength:
		return &c.Strength
	case AttrSymbol:
		return &c.Symbol
	}
	return nil
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func contains(list []string, name string) bool {
	for _, item := range list {
		if item == name {
			return true
		}
	}
	return false
}

// Str and Int64 are pointer helpers for building characters in code.
func Str(s string) *string { return &s }

func Int64(v int64) *int64 { return &v }

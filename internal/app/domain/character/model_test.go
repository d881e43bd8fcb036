package character

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharacterJSONWritesExplicitNulls(t *testing.T) {
	c := Character{ID: 7, Name: Str("Arya Stark"), Age: Int64(11)}

	raw, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Len(t, decoded, 10)
	assert.Nil(t, decoded["house"])
	assert.Contains(t, decoded, "house")
	assert.Equal(t, "Arya Stark", decoded["name"])
	assert.EqualValues(t, 11, decoded["age"])
}

func TestCloneSharesNoPointers(t *testing.T) {
	orig := Character{ID: 1, Age: Int64(30), House: Str("Stark")}
	clone := orig.Clone()

	*clone.Age = 99
	*clone.House = "Lannister"

	assert.EqualValues(t, 30, *orig.Age)
	assert.Equal(t, "Stark", *orig.House)
}

func TestAccessors(t *testing.T) {
	c := Character{ID: 3, House: Str("Tully")}

	v, ok := c.Int(AttrID)
	require.True(t, ok)
	assert.EqualValues(t, 3, *v)

	_, ok = c.Int(AttrHouse)
	assert.False(t, ok)

	s, ok := c.Text(AttrHouse)
	require.True(t, ok)
	assert.Equal(t, "Tully", *s)

	assert.True(t, c.IsNull(AttrAge))
	assert.False(t, c.IsNull(AttrHouse))
	assert.True(t, c.IsNull("unknown"))

	assert.False(t, c.SetText(AttrAge, Str("x")))
	assert.True(t, c.SetText(AttrSymbol, Str("Trout")))
	assert.Equal(t, "Trout", *c.Symbol)
}

func TestAttributeSets(t *testing.T) {
	assert.Len(t, Attributes, 9)
	assert.Len(t, SortableAttributes, 10)
	assert.True(t, IsSortable(AttrID))
	assert.False(t, IsAttribute(AttrID))
	assert.True(t, IsNumeric(AttrAge))
	assert.False(t, IsNumeric(AttrName))
}

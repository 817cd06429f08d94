package doc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessorsReportAbsence(t *testing.T) {
	d := Document{
		"name":  Str("alice"),
		"price": Num(1.5),
		"ok":    Bool(true),
	}

	name, ok := d.GetString("name")
	assert.True(t, ok)
	assert.Equal(t, "alice", name)

	_, ok = d.GetString("price")
	assert.False(t, ok, "wrong kind must report absent")

	_, ok = d.GetNumber("missing")
	assert.False(t, ok)

	_, ok = d.Get("missing")
	assert.False(t, ok)

	b, ok := d.GetBool("ok")
	assert.True(t, ok)
	assert.True(t, b)
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"int and float", Int(2), Num(2.0), true},
		{"string vs number", Str("1"), Num(1), false},
		{"null", Null(), Value{}, true},
		{"lists", List(Int(1), Str("a")), List(Num(1), Str("a")), true},
		{"list order", List(Int(1), Int(2)), List(Int(2), Int(1)), false},
		{"maps", Map(map[string]Value{"a": Int(1)}), Map(map[string]Value{"a": Int(1)}), true},
		{"map extra key", Map(map[string]Value{"a": Int(1)}), Map(map[string]Value{"a": Int(1), "b": Null()}), false},
		{"bools", Bool(false), Bool(false), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := Document{
		"lines": List(Map(map[string]Value{"quantity": Int(1)})),
	}
	c := orig.Clone()

	lines, _ := c.GetList("lines")
	line, _ := lines[0].AsMap()
	line["quantity"] = Int(99)

	origLines, _ := orig.GetList("lines")
	origLine, _ := origLines[0].AsDocument()
	q, _ := origLine.GetNumber("quantity")
	assert.Equal(t, 1.0, q)
}

func TestMergeIsShallowAndSkips(t *testing.T) {
	d := Document{"a": Int(1), "b": Int(2), "id": Str("X001")}
	d.Merge(Document{"b": Int(3), "id": Str("OTHER")}, FieldID)

	assert.True(t, d.Equal(Document{"a": Int(1), "b": Int(3), "id": Str("X001")}))
}

func TestJSONRoundTrip(t *testing.T) {
	raw := `{"id":"CART001","lines":[{"product_id":"P1","quantity":2}],"total":21.6,"active":true,"note":null,"meta":{}}`

	d, err := Decode([]byte(raw))
	require.NoError(t, err)

	q, ok := d["lines"].l[0].m["quantity"].AsNumber()
	require.True(t, ok)
	assert.Equal(t, 2.0, q)
	assert.True(t, d["note"].IsNull())

	out, err := d.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestTextForms(t *testing.T) {
	assert.Equal(t, "alice", Str("alice").Text())
	assert.Equal(t, "199.99", Num(199.99).Text())
	assert.Equal(t, "3", Int(3).Text())
	assert.Equal(t, "true", Bool(true).Text())
	assert.Equal(t, "", Null().Text())
	assert.Equal(t, `["a"]`, List(Str("a")).Text())
}

func TestFromAny(t *testing.T) {
	var decoded any
	require.NoError(t, json.Unmarshal([]byte(`{"a":[1,"x",{"b":false}]}`), &decoded))

	v, err := FromAny(decoded)
	require.NoError(t, err)
	assert.Equal(t, KindMap, v.Kind())
	assert.Equal(t, decoded, v.ToAny())

	_, err = FromAny(struct{}{})
	assert.Error(t, err)

	v, err = FromAny(map[string]any{"qty": 3, "tags": []string{"a"}})
	require.NoError(t, err)
	m, _ := v.AsMap()
	assert.True(t, m["qty"].Equal(Num(3)))
	assert.Equal(t, KindList, m["tags"].Kind())
}

package schema

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := New("test", "Test", []Field{
		{Path: "name", Kind: KindText, Required: true, MinLen: 2},
		{Path: "site", Kind: KindText, Format: FormatURL},
		{Path: "share", Kind: KindNumber, Required: true, Min: Bound(0), Max: Bound(100)},
		{Path: "more", Kind: KindBool},
		{Path: "extra", Kind: KindList, MinLen: 2, VisibleWhen: "more"},
		{Path: "tags", Kind: KindList, Required: true},
		{Path: "kind", Kind: KindEnum, Options: []string{"a", "b"}},
		{Path: "school", Kind: KindGroupList, Default: 1, Sub: []Field{
			{Path: "degree", Kind: KindText, Required: true},
			{Path: "year", Kind: KindText},
		}},
		{Path: "limits.low", Kind: KindNumber},
		{Path: "limits.high", Kind: KindNumber},
	}, Rule{Field: "limits.high", Expr: `limits.low == "" || limits.high == "" || limits.high >= limits.low`, Message: "high must not be below low"})
	require.NoError(t, err)
	return s
}

func TestNewRejectsBadSchemas(t *testing.T) {
	_, err := New("dup", "", []Field{{Path: "a"}, {Path: "a"}})
	require.Error(t, err)

	_, err = New("enum", "", []Field{{Path: "a", Kind: KindEnum}})
	require.Error(t, err)

	_, err = New("vis", "", []Field{{Path: "a", VisibleWhen: "b"}, {Path: "b", Kind: KindText}})
	require.Error(t, err)

	_, err = New("rule", "", []Field{{Path: "a"}}, Rule{Field: "a", Expr: "a ==", Message: "x"})
	require.Error(t, err)
}

func TestDefaults(t *testing.T) {
	vals := testSchema(t).Defaults()
	assert.Equal(t, "", vals["name"])
	assert.Equal(t, false, vals["more"])
	assert.Equal(t, []string{}, vals["tags"])
	assert.Equal(t, []string{""}, vals["school.degree"])
	assert.Equal(t, []string{""}, vals["school.year"])
}

func TestValidate(t *testing.T) {
	s := testSchema(t)
	vals := s.Defaults()
	errs := s.Validate(vals)
	assert.Equal(t, "Must be at least 2 characters", errs["name"])
	assert.Equal(t, "Required", errs["share"])
	assert.Equal(t, "At least 1 item(s) required", errs["tags"])
	assert.Equal(t, "Required", errs["school[0].degree"])
	assert.NotContains(t, errs, "site")
	assert.NotContains(t, errs, "extra")

	vals["name"] = "ok"
	vals["share"] = "42"
	vals["tags"] = []string{"go", ""}
	vals["school.degree"] = []string{"BSc"}
	vals["site"] = "example.com"
	vals["kind"] = "c"
	errs = s.Validate(vals)
	assert.Equal(t, map[string]string{
		"tags[1]": "Required",
		"site":    "Invalid url",
		"kind":    "Invalid option: expected one of a|b",
	}, map[string]string(errs))
}

func TestHiddenFieldsSkipped(t *testing.T) {
	s := testSchema(t)
	vals := s.Defaults()
	vals["extra"] = []string{"x"}
	assert.NotContains(t, s.Validate(vals), "extra[0]")

	vals["more"] = true
	assert.Contains(t, s.Validate(vals), "extra[0]")
}

func TestNumberBounds(t *testing.T) {
	f := Field{Path: "n", Kind: KindNumber, Min: Bound(0), Max: Bound(100)}
	assert.Equal(t, "", CheckValue(f, float64(50)))
	assert.Equal(t, "", CheckValue(f, "0"))
	assert.Equal(t, "Must be less than or equal to 100", CheckValue(f, 150))
	assert.Equal(t, "Must be greater than or equal to 0", CheckValue(f, "-1"))
	assert.Equal(t, "Expected a number", CheckValue(f, "abc"))
	assert.Equal(t, "", CheckValue(f, ""))
}

func TestNonFiniteNumbersRejected(t *testing.T) {
	f := Field{Path: "n", Kind: KindNumber, Min: Bound(0), Max: Bound(100)}
	for _, raw := range []any{"NaN", "nan", "Inf", "+Inf", "-inf", math.NaN(), math.Inf(1)} {
		assert.Equal(t, "Expected a number", CheckValue(f, raw), "%v", raw)
		_, err := ParseNumber(raw)
		assert.Error(t, err, "%v", raw)
	}
}

func TestRuleOnNestedPaths(t *testing.T) {
	s := testSchema(t)
	vals := s.Defaults()
	vals["limits.low"] = float64(10)
	vals["limits.high"] = float64(5)
	assert.Equal(t, "high must not be below low", s.Validate(vals)["limits.high"])

	vals["limits.high"] = float64(20)
	assert.NotContains(t, s.Validate(vals), "limits.high")
}

func TestFieldLookup(t *testing.T) {
	s := testSchema(t)
	f, ok := s.Field("school.degree")
	require.True(t, ok)
	assert.True(t, f.Required)

	g, ok := s.Group("school.degree")
	require.True(t, ok)
	assert.Equal(t, "school", g.Path)

	_, ok = s.Group("limits.low")
	assert.False(t, ok)
	_, ok = s.Field("nope")
	assert.False(t, ok)
}

func TestElementPaths(t *testing.T) {
	ref, ok := ParseElement("founders.names[3]")
	require.True(t, ok)
	assert.Equal(t, ElementRef{Base: "founders.names", Index: 3}, ref)
	assert.Equal(t, "founders.names", ref.Key())

	ref, ok = ParseElement("education[0].degree")
	require.True(t, ok)
	assert.Equal(t, "education.degree", ref.Key())
	assert.Equal(t, "education[0].degree", ref.String())

	_, ok = ParseElement("founders.names")
	assert.False(t, ok)
}

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("a@b.co"))
	assert.False(t, IsEmail("a@b"))
	assert.False(t, IsEmail("Ada <a@b.co>"))
	assert.False(t, IsEmail("nope"))
}

package schema

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Values is a flat value set keyed by field path. Values are string, bool,
// float64 or []string; number fields may hold the raw string a user typed.
type Values map[string]any

func (v Values) String(path string) string {
	switch x := v[path].(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

func (v Values) Bool(path string) bool {
	b, _ := v[path].(bool)
	return b
}

// Number returns the numeric value at path. Empty strings report ok=false.
func (v Values) Number(path string) (float64, bool) {
	n, err := ParseNumber(v[path])
	return n, err == nil
}

func (v Values) List(path string) []string {
	l, _ := v[path].([]string)
	return l
}

// Clone deep-copies the value set.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = cloneValue(val)
	}
	return out
}

func cloneValue(val any) any {
	if l, ok := val.([]string); ok {
		return append([]string(nil), l...)
	}
	return val
}

var errNotNumber = fmt.Errorf("not a number")

// ParseNumber accepts float64, ints and numeric strings. NaN and the
// infinities are not numbers here.
func ParseNumber(val any) (float64, error) {
	var n float64
	switch x := val.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, errNotNumber
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errNotNumber
		}
		n = f
	default:
		return 0, errNotNumber
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, errNotNumber
	}
	return n, nil
}

var elementPath = regexp.MustCompile(`^([^\[\]]+)\[(\d+)\](?:\.([^\[\]]+))?$`)

// ElementRef is a parsed list or group-entry path such as "founders.names[0]"
// or "education[1].degree".
type ElementRef struct {
	Base  string
	Index int
	Sub   string
}

// Key is the storage key of the list the element lives in.
func (r ElementRef) Key() string {
	if r.Sub == "" {
		return r.Base
	}
	return r.Base + "." + r.Sub
}

func (r ElementRef) String() string {
	return ElementPath(r.Base, r.Index, r.Sub)
}

// ParseElement splits an element path; ok is false for plain paths.
func ParseElement(path string) (ElementRef, bool) {
	m := elementPath.FindStringSubmatch(path)
	if m == nil {
		return ElementRef{}, false
	}
	idx, err := strconv.Atoi(m[2])
	if err != nil {
		return ElementRef{}, false
	}
	return ElementRef{Base: m[1], Index: idx, Sub: m[3]}, true
}

// ElementPath formats the path of one list element or group entry field.
func ElementPath(base string, index int, sub string) string {
	if sub == "" {
		return fmt.Sprintf("%s[%d]", base, index)
	}
	return fmt.Sprintf("%s[%d].%s", base, index, sub)
}

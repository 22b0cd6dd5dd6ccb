package schema

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Kind is the logical type of a field; the renderer picks a control from it.
type Kind int

const (
	KindText Kind = iota
	KindLongText
	KindSecret
	KindNumber
	KindBool
	KindEnum
	KindMultiSelect
	KindList
	KindGroupList
)

var kindNames = map[Kind]string{
	KindText:        "text",
	KindLongText:    "long_text",
	KindSecret:      "secret",
	KindNumber:      "number",
	KindBool:        "bool",
	KindEnum:        "enum",
	KindMultiSelect: "multi_select",
	KindList:        "list",
	KindGroupList:   "group_list",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsList reports whether values of this kind are ordered string lists.
func (k Kind) IsList() bool {
	return k == KindList || k == KindMultiSelect
}

type Format int

const (
	FormatNone Format = iota
	FormatURL
	FormatEmail
	FormatDigits
)

// Field describes one form field. Fields are immutable once a Schema is built.
type Field struct {
	Path        string
	Label       string
	Placeholder string
	Description string
	Kind        Kind
	Required    bool
	MinLen      int
	MaxLen      int
	Format      Format
	Min         *float64
	Max         *float64
	Options     []string
	MinItems    int
	// VisibleWhen names a boolean field; when it is false this field is hidden,
	// skipped by validation and left out of payloads.
	VisibleWhen string
	// Message replaces the default text for any rule this field fails.
	Message string
	Default any
	// Sub holds the per-entry fields of a group list.
	Sub []Field
}

// Bound is a helper for Field.Min and Field.Max literals.
func Bound(v float64) *float64 { return &v }

// SubKey returns the storage key for a group sub-field, e.g. "education.degree".
func (f Field) SubKey(sub Field) string {
	return f.Path + "." + sub.Path
}

func (f Field) message(def string) string {
	if f.Message != "" {
		return f.Message
	}
	return def
}

// Rule is a cross-field constraint. Expr must evaluate to true for a valid
// value set; on failure Message is attached to Field.
type Rule struct {
	Field   string
	Expr    string
	Message string
}

type compiledRule struct {
	Rule
	program *vm.Program
}

// Schema is the ordered field set of one form.
type Schema struct {
	Name        string
	Title       string
	Description string
	Fields      []Field

	rules  []compiledRule
	byPath map[string]Field
}

// New builds a schema and compiles its rules.
func New(name, title string, fields []Field, rules ...Rule) (*Schema, error) {
	s := &Schema{
		Name:   name,
		Title:  title,
		Fields: fields,
		byPath: make(map[string]Field, len(fields)),
	}
	for _, f := range fields {
		if f.Path == "" {
			return nil, fmt.Errorf("schema %s: field with empty path", name)
		}
		if _, dup := s.byPath[f.Path]; dup {
			return nil, fmt.Errorf("schema %s: duplicate field %s", name, f.Path)
		}
		if f.Kind == KindGroupList && len(f.Sub) == 0 {
			return nil, fmt.Errorf("schema %s: group %s has no sub-fields", name, f.Path)
		}
		if (f.Kind == KindEnum || f.Kind == KindMultiSelect) && len(f.Options) == 0 {
			return nil, fmt.Errorf("schema %s: %s field %s has no options", name, f.Kind, f.Path)
		}
		s.byPath[f.Path] = f
	}
	for _, f := range fields {
		if f.VisibleWhen == "" {
			continue
		}
		ctrl, ok := s.byPath[f.VisibleWhen]
		if !ok || ctrl.Kind != KindBool {
			return nil, fmt.Errorf("schema %s: field %s depends on unknown boolean %s", name, f.Path, f.VisibleWhen)
		}
	}
	for _, r := range rules {
		if _, ok := s.byPath[r.Field]; !ok {
			return nil, fmt.Errorf("schema %s: rule targets unknown field %s", name, r.Field)
		}
		program, err := expr.Compile(r.Expr, expr.AsBool(), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("schema %s: compile rule %q: %w", name, r.Expr, err)
		}
		s.rules = append(s.rules, compiledRule{Rule: r, program: program})
	}
	return s, nil
}

// MustNew is New for package-level schema definitions.
func MustNew(name, title string, fields []Field, rules ...Rule) *Schema {
	s, err := New(name, title, fields, rules...)
	if err != nil {
		panic(err)
	}
	return s
}

// WithDescription returns s after setting its description.
func (s *Schema) WithDescription(desc string) *Schema {
	s.Description = desc
	return s
}

// Field looks up a top-level field or a group sub-field key ("education.degree").
func (s *Schema) Field(path string) (Field, bool) {
	if f, ok := s.byPath[path]; ok {
		return f, true
	}
	group, sub, found := strings.Cut(path, ".")
	if !found {
		return Field{}, false
	}
	g, ok := s.byPath[group]
	if !ok || g.Kind != KindGroupList {
		return Field{}, false
	}
	for _, sf := range g.Sub {
		if sf.Path == sub {
			return sf, true
		}
	}
	return Field{}, false
}

// Group returns the group-list field that owns a sub-field key, if any.
func (s *Schema) Group(key string) (Field, bool) {
	group, _, found := strings.Cut(key, ".")
	if !found {
		return Field{}, false
	}
	g, ok := s.byPath[group]
	if !ok || g.Kind != KindGroupList {
		return Field{}, false
	}
	return g, true
}

// Visible reports whether f is shown given the current values.
func (s *Schema) Visible(f Field, vals Values) bool {
	if f.VisibleWhen == "" {
		return true
	}
	return vals.Bool(f.VisibleWhen)
}

// Defaults returns the initial value set: declared defaults, false for
// booleans, empty lists for list kinds and empty strings otherwise.
func (s *Schema) Defaults() Values {
	vals := make(Values, len(s.Fields))
	for _, f := range s.Fields {
		switch {
		case f.Kind == KindGroupList:
			for _, sub := range f.Sub {
				vals[f.SubKey(sub)] = []string{}
			}
			if n, ok := f.Default.(int); ok {
				for _, sub := range f.Sub {
					vals[f.SubKey(sub)] = make([]string, n)
				}
			}
		case f.Default != nil:
			vals[f.Path] = cloneValue(f.Default)
		case f.Kind == KindBool:
			vals[f.Path] = false
		case f.Kind.IsList():
			vals[f.Path] = []string{}
		default:
			vals[f.Path] = ""
		}
	}
	return vals
}

// ruleEnv nests dotted paths so rules can say founders.coFounders.
func ruleEnv(vals Values) map[string]any {
	env := make(map[string]any, len(vals))
	for path, v := range vals {
		parts := strings.Split(path, ".")
		cur := env
		for i, p := range parts {
			if i == len(parts)-1 {
				cur[p] = v
				break
			}
			next, ok := cur[p].(map[string]any)
			if !ok {
				next = map[string]any{}
				cur[p] = next
			}
			cur = next
		}
	}
	return env
}

package schema

import (
	"fmt"
	"net/mail"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/expr-lang/expr"

	"launchpad/internal/domain"
)

// Validate checks vals against every visible field and cross-field rule.
// The result is empty when vals is valid.
func (s *Schema) Validate(vals Values) domain.FieldErrors {
	errs := domain.FieldErrors{}
	for _, f := range s.Fields {
		if !s.Visible(f, vals) {
			continue
		}
		switch {
		case f.Kind == KindGroupList:
			s.validateGroup(f, vals, errs)
		case f.Kind.IsList():
			validateList(f, vals.List(f.Path), errs)
		default:
			if msg := CheckValue(f, vals[f.Path]); msg != "" {
				errs[f.Path] = msg
			}
		}
	}
	if len(s.rules) > 0 {
		env := ruleEnv(vals)
		for _, r := range s.rules {
			if _, failed := errs[r.Field]; failed {
				continue
			}
			out, err := expr.Run(r.program, env)
			if err != nil {
				errs[r.Field] = fmt.Sprintf("rule error: %v", err)
				continue
			}
			if ok, _ := out.(bool); !ok {
				errs[r.Field] = r.Message
			}
		}
	}
	return errs
}

// ValidateField checks a single top-level field, ignoring visibility and rules.
func (s *Schema) ValidateField(path string, val any) string {
	f, ok := s.Field(path)
	if !ok {
		return ""
	}
	if f.Kind.IsList() {
		errs := domain.FieldErrors{}
		l, _ := val.([]string)
		validateList(f, l, errs)
		for _, p := range errs.Paths() {
			return errs[p]
		}
		return ""
	}
	return CheckValue(f, val)
}

func (s *Schema) validateGroup(f Field, vals Values, errs domain.FieldErrors) {
	n := GroupLen(f, vals)
	if n == 0 {
		if f.Required {
			errs[f.Path] = f.message("At least one entry is required")
		}
		return
	}
	for i := 0; i < n; i++ {
		for _, sub := range f.Sub {
			l := vals.List(f.SubKey(sub))
			var v string
			if i < len(l) {
				v = l[i]
			}
			if msg := CheckValue(sub, v); msg != "" {
				errs[ElementPath(f.Path, i, sub.Path)] = msg
			}
		}
	}
}

// GroupLen is the entry count of a group list: the longest of its sub-lists.
func GroupLen(f Field, vals Values) int {
	n := 0
	for _, sub := range f.Sub {
		if l := len(vals.List(f.SubKey(sub))); l > n {
			n = l
		}
	}
	return n
}

func validateList(f Field, items []string, errs domain.FieldErrors) {
	minItems := f.MinItems
	if f.Required && minItems == 0 {
		minItems = 1
	}
	if len(items) < minItems {
		if len(items) > 0 || f.Required {
			errs[f.Path] = f.message(fmt.Sprintf("At least %d item(s) required", minItems))
		}
		return
	}
	for i, item := range items {
		if msg := checkItem(f, item); msg != "" {
			errs[ElementPath(f.Path, i, "")] = msg
		}
	}
}

func checkItem(f Field, item string) string {
	if f.Kind == KindMultiSelect {
		if !slices.Contains(f.Options, item) {
			return fmt.Sprintf("Invalid option %q", item)
		}
		return ""
	}
	if item == "" {
		return f.message("Required")
	}
	return checkString(f, item)
}

// CheckValue validates one scalar value against f and returns the failure
// message, or "" when valid. Optional fields accept the empty value.
func CheckValue(f Field, val any) string {
	switch f.Kind {
	case KindBool:
		return ""
	case KindNumber:
		return checkNumber(f, val)
	}
	s, ok := val.(string)
	if !ok && val != nil {
		return f.message(fmt.Sprintf("Expected string, received %T", val))
	}
	if s == "" {
		if f.Required {
			if f.MinLen > 0 {
				return f.message(minLenMessage(f.MinLen))
			}
			return f.message("Required")
		}
		return ""
	}
	if f.Kind == KindEnum {
		if !slices.Contains(f.Options, s) {
			return f.message(fmt.Sprintf("Invalid option: expected one of %s", strings.Join(f.Options, "|")))
		}
		return ""
	}
	return checkString(f, s)
}

func checkString(f Field, s string) string {
	n := utf8.RuneCountInString(s)
	if f.MinLen > 0 && f.MinLen == f.MaxLen && n != f.MinLen {
		return f.message(fmt.Sprintf("Must be exactly %d characters", f.MinLen))
	}
	if f.MinLen > 0 && n < f.MinLen {
		return f.message(minLenMessage(f.MinLen))
	}
	if f.MaxLen > 0 && n > f.MaxLen {
		return f.message(fmt.Sprintf("Must be at most %d characters", f.MaxLen))
	}
	switch f.Format {
	case FormatURL:
		if !IsURL(s) {
			return f.message("Invalid url")
		}
	case FormatEmail:
		if !IsEmail(s) {
			return f.message("Invalid email address")
		}
	case FormatDigits:
		for _, r := range s {
			if r < '0' || r > '9' {
				return f.message("Must contain digits only")
			}
		}
	}
	return ""
}

func checkNumber(f Field, val any) string {
	if isBlank(val) {
		if f.Required {
			return f.message("Required")
		}
		return ""
	}
	n, err := ParseNumber(val)
	if err != nil {
		return f.message("Expected a number")
	}
	if f.Min != nil && n < *f.Min {
		return f.message("Must be greater than or equal to " + formatBound(*f.Min))
	}
	if f.Max != nil && n > *f.Max {
		return f.message("Must be less than or equal to " + formatBound(*f.Max))
	}
	return ""
}

func isBlank(val any) bool {
	if val == nil {
		return true
	}
	s, ok := val.(string)
	return ok && strings.TrimSpace(s) == ""
}

func minLenMessage(n int) string {
	if n == 1 {
		return "Required"
	}
	return fmt.Sprintf("Must be at least %d characters", n)
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// IsURL reports whether s is an absolute URL with a scheme and host.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// IsEmail reports whether s is a bare address such as a@b.co.
func IsEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	_, domainPart, _ := strings.Cut(s, "@")
	return strings.Contains(domainPart, ".")
}

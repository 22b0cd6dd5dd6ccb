package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"launchpad/internal/domain"
	"launchpad/internal/schema"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrType         = errors.New("type mismatch")
	ErrIndex        = errors.New("index out of range")
)

// Form holds the in-progress values and field errors of one schema.
type Form struct {
	mu     sync.Mutex
	schema *schema.Schema
	values schema.Values
	errs   domain.FieldErrors
}

func New(s *schema.Schema) *Form {
	return &Form{schema: s, values: s.Defaults(), errs: domain.FieldErrors{}}
}

// Restore builds a form from a saved value set. Keys the schema does not
// know are dropped; missing keys take their defaults.
func Restore(s *schema.Schema, vals schema.Values) (*Form, error) {
	f := New(s)
	for path, v := range vals {
		if _, ok := s.Field(path); !ok {
			continue
		}
		if err := f.SetField(path, v); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Form) Schema() *schema.Schema { return f.schema }

// SetField assigns a value. path may be a field ("company.name"), a group
// sub-list ("education.degree"), a list element ("founders.names[0]") or a
// group entry field ("education[0].degree"). The path's error is cleared.
func (f *Form) SetField(path string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ref, ok := schema.ParseElement(path); ok {
		return f.setElement(ref, value)
	}
	fd, ok := f.schema.Field(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, path)
	}
	_, inGroup := f.schema.Group(path)
	if inGroup || fd.Kind.IsList() {
		l, err := toList(value)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		f.values[path] = l
		f.clearErrors(path, true)
		return nil
	}
	if fd.Kind == schema.KindGroupList {
		return fmt.Errorf("%w: %s is a group; set its entries", ErrType, path)
	}
	v, err := coerce(fd, value)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	f.values[path] = v
	f.clearErrors(path, false)
	return nil
}

func (f *Form) setElement(ref schema.ElementRef, value any) error {
	key := ref.Key()
	fd, ok := f.schema.Field(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, ref)
	}
	_, inGroup := f.schema.Group(key)
	if !inGroup && !fd.Kind.IsList() {
		return fmt.Errorf("%w: %s is not a list", ErrType, key)
	}
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%s: %w: expected string, got %T", ref, ErrType, value)
	}
	l := f.values.List(key)
	if ref.Index < 0 || ref.Index >= len(l) {
		return fmt.Errorf("%s: %w", ref, ErrIndex)
	}
	l[ref.Index] = s
	delete(f.errs, ref.String())
	return nil
}

// GetField returns the value at path, including element paths.
func (f *Form) GetField(path string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ref, ok := schema.ParseElement(path); ok {
		l := f.values.List(ref.Key())
		if ref.Index < 0 || ref.Index >= len(l) {
			return nil, false
		}
		return l[ref.Index], true
	}
	v, ok := f.values[path]
	if !ok {
		return nil, false
	}
	return cloneList(v), true
}

// AppendListItem adds item to the end of a list. For a group list it adds one
// entry to every sub-list; item may then be nil or a map of sub-field values.
func (f *Form) AppendListItem(path string, item any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fd, ok := f.schema.Field(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, path)
	}
	switch {
	case fd.Kind == schema.KindGroupList:
		entry, err := toEntry(item)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for _, sub := range fd.Sub {
			key := fd.SubKey(sub)
			f.values[key] = append(f.values.List(key), entry[sub.Path])
		}
	case fd.Kind.IsList():
		s, ok := item.(string)
		if !ok {
			return fmt.Errorf("%s: %w: expected string, got %T", path, ErrType, item)
		}
		f.values[path] = append(f.values.List(path), s)
	default:
		return fmt.Errorf("%w: %s is not a list", ErrType, path)
	}
	delete(f.errs, path)
	return nil
}

// RemoveListItem deletes the element at index; later elements shift down.
// Element errors of the list are dropped since their indexes no longer hold.
func (f *Form) RemoveListItem(path string, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fd, ok := f.schema.Field(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, path)
	}
	var keys []string
	switch {
	case fd.Kind == schema.KindGroupList:
		if index < 0 || index >= schema.GroupLen(fd, f.values) {
			return fmt.Errorf("%s[%d]: %w", path, index, ErrIndex)
		}
		for _, sub := range fd.Sub {
			keys = append(keys, fd.SubKey(sub))
		}
	case fd.Kind.IsList():
		if index < 0 || index >= len(f.values.List(path)) {
			return fmt.Errorf("%s[%d]: %w", path, index, ErrIndex)
		}
		keys = []string{path}
	default:
		return fmt.Errorf("%w: %s is not a list", ErrType, path)
	}
	for _, k := range keys {
		l := f.values.List(k)
		if index < len(l) {
			f.values[k] = append(l[:index:index], l[index+1:]...)
		}
	}
	f.clearErrors(path, true)
	return nil
}

// RemoveElements removes each element path, such as "education[1]" or
// "founders.names[0]". Paths refer to the indexes before any removal.
func (f *Form) RemoveElements(paths ...string) error {
	refs := make([]schema.ElementRef, 0, len(paths))
	seen := map[schema.ElementRef]bool{}
	for _, p := range paths {
		ref, ok := schema.ParseElement(strings.TrimSpace(p))
		if !ok || ref.Sub != "" {
			return fmt.Errorf("%w: %q is not a list element", ErrUnknownField, p)
		}
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Index > refs[j].Index })
	for _, ref := range refs {
		if err := f.RemoveListItem(ref.Base, ref.Index); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns a deep copy of the current values.
func (f *Form) Snapshot() schema.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values.Clone()
}

// Validate runs the schema over the current values and stores the result.
func (f *Form) Validate() domain.FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = f.schema.Validate(f.values)
	return copyErrors(f.errs)
}

func (f *Form) SetErrors(errs domain.FieldErrors) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = copyErrors(errs)
}

func (f *Form) Errors() domain.FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyErrors(f.errs)
}

// Error returns the message attached to path, if any.
func (f *Form) Error(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[path]
}

// Reset restores the schema defaults and clears all errors.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = f.schema.Defaults()
	f.errs = domain.FieldErrors{}
}

func (f *Form) clearErrors(path string, elements bool) {
	delete(f.errs, path)
	if !elements {
		return
	}
	base := path
	if g, ok := f.schema.Group(path); ok {
		base = g.Path
	}
	for p := range f.errs {
		if strings.HasPrefix(p, base+"[") {
			delete(f.errs, p)
		}
	}
}

func coerce(fd schema.Field, value any) (any, error) {
	switch fd.Kind {
	case schema.KindBool:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: expected bool, got %T", ErrType, value)
		}
		return b, nil
	case schema.KindNumber:
		switch v := value.(type) {
		case string:
			return v, nil
		case nil:
			return "", nil
		default:
			n, err := schema.ParseNumber(v)
			if err != nil {
				return nil, fmt.Errorf("%w: expected number, got %T", ErrType, value)
			}
			return n, nil
		}
	default:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected string, got %T", ErrType, value)
		}
		return s, nil
	}
}

func toList(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return append([]string{}, v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, it := range v {
			s, ok := it.(string)
			if !ok {
				return nil, fmt.Errorf("%w: list item %T", ErrType, it)
			}
			out = append(out, s)
		}
		return out, nil
	case nil:
		return []string{}, nil
	default:
		return nil, fmt.Errorf("%w: expected list, got %T", ErrType, value)
	}
}

func toEntry(item any) (map[string]string, error) {
	switch v := item.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return v, nil
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, it := range v {
			s, ok := it.(string)
			if !ok {
				return nil, fmt.Errorf("%w: entry field %s is %T", ErrType, k, it)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected entry map, got %T", ErrType, item)
	}
}

func cloneList(v any) any {
	if l, ok := v.([]string); ok {
		return append([]string(nil), l...)
	}
	return v
}

func copyErrors(errs domain.FieldErrors) domain.FieldErrors {
	out := make(domain.FieldErrors, len(errs))
	for k, v := range errs {
		out[k] = v
	}
	return out
}

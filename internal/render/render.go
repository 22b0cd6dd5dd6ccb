package render

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"launchpad/internal/form"
	"launchpad/internal/schema"
)

// Binding ties one interactive control to one value path of a form. The
// control edits a local buffer; Commit writes the buffer back.
type Binding struct {
	Path    string
	Field   schema.Field
	Control huh.Field

	text  string
	flag  bool
	multi []string
}

// Plan is a rendered form: the huh form to run plus its bindings.
type Plan struct {
	Form     *huh.Form
	Bindings []*Binding
	Entries  []*EntryControl

	target       *form.Form
	restructured bool
}

// EntryControl adds or removes one entry of a group list. It is applied on
// Commit, after the bindings, and the plan then needs rendering again.
type EntryControl struct {
	Group   schema.Field
	Control huh.Field

	choice string
}

const entryKeep = ""

// Add asks for one more empty entry.
func (e *EntryControl) Add() { e.choice = "add" }

// Remove asks for entry i to be dropped; later entries shift down.
func (e *EntryControl) Remove(i int) { e.choice = "remove:" + strconv.Itoa(i) }

func (e *EntryControl) apply(f *form.Form) (bool, error) {
	switch {
	case e.choice == entryKeep:
		return false, nil
	case e.choice == "add":
		return true, f.AppendListItem(e.Group.Path, nil)
	case strings.HasPrefix(e.choice, "remove:"):
		i, err := strconv.Atoi(strings.TrimPrefix(e.choice, "remove:"))
		if err != nil {
			return false, err
		}
		return true, f.RemoveListItem(e.Group.Path, i)
	}
	return false, fmt.Errorf("%s: unknown entry action %q", e.Group.Path, e.choice)
}

type Options struct {
	Accessible bool
}

// Render builds the controls for every field of f's schema, seeded with the
// current values. Current field errors become the control descriptions.
func Render(f *form.Form, opts Options) *Plan {
	p := &Plan{target: f}
	s := f.Schema()
	vals := f.Snapshot()
	errs := f.Errors()

	var groups []*huh.Group
	var pending []huh.Field
	section := ""
	flush := func() {
		if len(pending) > 0 {
			groups = append(groups, huh.NewGroup(pending...).Title(titleFor(s, section)))
			pending = nil
		}
	}

	for _, fd := range s.Fields {
		var fields []huh.Field
		switch fd.Kind {
		case schema.KindGroupList:
			fields = p.groupControls(fd, vals, errs)
		default:
			b := newBinding(fd.Path, fd, vals[fd.Path], errs[fd.Path], func(raw string) error {
				return asError(s.ValidateField(fd.Path, parseFor(fd, raw)))
			})
			p.Bindings = append(p.Bindings, b)
			fields = []huh.Field{b.Control}
		}

		if fd.VisibleWhen != "" {
			flush()
			ctrl := p.binding(fd.VisibleWhen)
			g := huh.NewGroup(fields...).Title(fd.Label)
			if ctrl != nil {
				g = g.WithHideFunc(func() bool { return !ctrl.flag })
			}
			groups = append(groups, g)
			continue
		}
		if sec := sectionOf(fd); sec != section || fd.Kind == schema.KindGroupList {
			flush()
			section = sec
		}
		if fd.Kind == schema.KindGroupList {
			groups = append(groups, huh.NewGroup(fields...).Title(fd.Label))
			continue
		}
		pending = append(pending, fields...)
	}
	flush()

	p.Form = huh.NewForm(groups...).
		WithShowErrors(true).
		WithAccessible(opts.Accessible)
	return p
}

func (p *Plan) groupControls(fd schema.Field, vals schema.Values, errs map[string]string) []huh.Field {
	var out []huh.Field
	for i := 0; i < schema.GroupLen(fd, vals); i++ {
		for _, sub := range fd.Sub {
			path := schema.ElementPath(fd.Path, i, sub.Path)
			var cur any
			if l := vals.List(fd.SubKey(sub)); i < len(l) {
				cur = l[i]
			}
			label := sub
			label.Label = fmt.Sprintf("%s #%d: %s", fd.Label, i+1, sub.Label)
			b := newBinding(path, label, cur, errs[path], func(raw string) error {
				return asError(schema.CheckValue(sub, raw))
			})
			p.Bindings = append(p.Bindings, b)
			out = append(out, b.Control)
		}
	}
	return append(out, p.entryControl(fd, schema.GroupLen(fd, vals)))
}

func (p *Plan) entryControl(fd schema.Field, n int) huh.Field {
	e := &EntryControl{Group: fd}
	opts := []huh.Option[string]{
		huh.NewOption("Keep entries", entryKeep),
		huh.NewOption("Add an entry", "add"),
	}
	for i := 0; i < n; i++ {
		opts = append(opts, huh.NewOption(fmt.Sprintf("Remove entry #%d", i+1), "remove:"+strconv.Itoa(i)))
	}
	e.Control = huh.NewSelect[string]().
		Key(fd.Path + "#entries").
		Title(fd.Label + " entries").
		Options(opts...).
		Value(&e.choice)
	p.Entries = append(p.Entries, e)
	return e.Control
}

// Entry returns the add/remove control of a group list.
func (p *Plan) Entry(path string) (*EntryControl, bool) {
	for _, e := range p.Entries {
		if e.Group.Path == path {
			return e, true
		}
	}
	return nil, false
}

// Restructured reports whether the last Commit added or removed group
// entries, in which case the form must be rendered again to show them.
func (p *Plan) Restructured() bool { return p.restructured }

func (p *Plan) binding(path string) *Binding {
	for _, b := range p.Bindings {
		if b.Path == path {
			return b
		}
	}
	return nil
}

// Binding returns the binding for a value path such as "company.name" or
// "education[0].degree".
func (p *Plan) Binding(path string) (*Binding, bool) {
	b := p.binding(path)
	return b, b != nil
}

// Run shows the form and commits the edited values when the user completes it.
func (p *Plan) Run(ctx context.Context) error {
	if err := p.Form.RunWithContext(ctx); err != nil {
		return err
	}
	return p.Commit()
}

// Commit writes every binding buffer into the target form, then applies the
// entry controls.
func (p *Plan) Commit() error {
	var errs []error
	for _, b := range p.Bindings {
		if err := p.target.SetField(b.Path, b.value()); err != nil {
			errs = append(errs, err)
		}
	}
	for _, e := range p.Entries {
		changed, err := e.apply(p.target)
		if err != nil {
			errs = append(errs, err)
		}
		p.restructured = p.restructured || changed
		e.choice = entryKeep
	}
	return errors.Join(errs...)
}

func newBinding(path string, fd schema.Field, cur any, errMsg string, validate func(string) error) *Binding {
	b := &Binding{Path: path, Field: fd}
	desc := fd.Description
	if errMsg != "" {
		desc = "✗ " + errMsg
	}
	switch fd.Kind {
	case schema.KindBool:
		b.flag, _ = cur.(bool)
		b.Control = huh.NewConfirm().
			Key(path).
			Title(fd.Label).
			Description(desc).
			Affirmative("Yes").
			Negative("No").
			Value(&b.flag)
	case schema.KindEnum:
		b.text, _ = cur.(string)
		opts := huh.NewOptions(fd.Options...)
		if !fd.Required {
			opts = append([]huh.Option[string]{huh.NewOption("(none)", "")}, opts...)
		}
		b.Control = huh.NewSelect[string]().
			Key(path).
			Title(fd.Label).
			Description(desc).
			Options(opts...).
			Value(&b.text)
	case schema.KindMultiSelect:
		b.multi, _ = cur.([]string)
		b.multi = append([]string{}, b.multi...)
		b.Control = huh.NewMultiSelect[string]().
			Key(path).
			Title(fd.Label).
			Description(desc).
			Options(huh.NewOptions(fd.Options...)...).
			Value(&b.multi).
			Validate(func(l []string) error {
				return validate(strings.Join(l, "\n"))
			})
	case schema.KindList:
		l, _ := cur.([]string)
		b.text = strings.Join(l, "\n")
		b.Control = huh.NewText().
			Key(path).
			Title(fd.Label).
			Description(desc).
			Placeholder(fd.Placeholder).
			Value(&b.text).
			Validate(validate)
	case schema.KindLongText:
		b.text, _ = cur.(string)
		b.Control = huh.NewText().
			Key(path).
			Title(fd.Label).
			Description(desc).
			Placeholder(fd.Placeholder).
			Lines(4).
			Value(&b.text).
			Validate(validate)
	default:
		b.text = textOf(cur)
		in := huh.NewInput().
			Key(path).
			Title(fd.Label).
			Description(desc).
			Placeholder(fd.Placeholder).
			Value(&b.text).
			Validate(validate)
		if fd.Kind == schema.KindSecret {
			in = in.EchoMode(huh.EchoModePassword)
		}
		b.Control = in
	}
	return b
}

// Input sets the buffer from raw text the way a user would type it: lists
// take one item per line, multi-selects also accept commas and booleans
// accept true/false/yes/no.
func (b *Binding) Input(raw string) error {
	switch b.Field.Kind {
	case schema.KindBool:
		v, err := parseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", b.Path, err)
		}
		b.flag = v
	case schema.KindMultiSelect:
		b.multi = SplitOptions(raw)
	default:
		b.text = raw
	}
	return nil
}

func (b *Binding) value() any {
	switch b.Field.Kind {
	case schema.KindBool:
		return b.flag
	case schema.KindMultiSelect:
		return append([]string{}, b.multi...)
	case schema.KindList:
		return SplitLines(b.text)
	default:
		return b.text
	}
}

// SplitLines parses free-text list input: one item per line. Commas are part
// of an item ("Doe, Jane" is one name). Blank lines are dropped.
func SplitLines(raw string) []string {
	return split(raw, func(r rune) bool { return r == '\n' })
}

// SplitOptions parses multi-select input, where items may also be comma
// separated since option values hold no commas.
func SplitOptions(raw string) []string {
	return split(raw, func(r rune) bool { return r == '\n' || r == ',' })
}

func split(raw string, sep func(rune) bool) []string {
	out := []string{}
	for _, it := range strings.FieldsFunc(raw, sep) {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseFor(fd schema.Field, raw string) any {
	switch {
	case fd.Kind == schema.KindMultiSelect:
		return SplitOptions(raw)
	case fd.Kind.IsList():
		return SplitLines(raw)
	}
	return raw
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y":
		return true, nil
	case "no", "n", "":
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func textOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

func asError(msg string) error {
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}

func sectionOf(fd schema.Field) string {
	if sec, _, ok := strings.Cut(fd.Path, "."); ok {
		return sec
	}
	return ""
}

func titleFor(s *schema.Schema, section string) string {
	if section == "" {
		return s.Title
	}
	return strings.ToUpper(section[:1]) + section[1:]
}

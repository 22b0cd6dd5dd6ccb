// Package contract holds the JSON Schemas the dev gateway enforces on
// profile payloads before storing them.
package contract

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"launchpad/internal/domain"
)

//go:embed schemas/*.json
var schemasFS embed.FS

// ViolationError lists every payload location that failed the contract.
type ViolationError struct {
	Role       domain.Role
	Violations map[string]string
}

func (e *ViolationError) Error() string {
	locs := make([]string, 0, len(e.Violations))
	for loc := range e.Violations {
		locs = append(locs, loc)
	}
	sort.Strings(locs)
	parts := make([]string, 0, len(locs))
	for _, loc := range locs {
		parts = append(parts, fmt.Sprintf("%s: %s", loc, e.Violations[loc]))
	}
	return fmt.Sprintf("invalid %s profile: %s", e.Role, strings.Join(parts, "; "))
}

var (
	compileOnce sync.Once
	compiled    map[domain.Role]*jsonschema.Schema
	compileErr  error
)

func load() (map[domain.Role]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[domain.Role]*jsonschema.Schema, len(domain.Roles))
		for _, role := range domain.Roles {
			s, err := compile(role)
			if err != nil {
				compileErr = err
				return
			}
			compiled[role] = s
		}
	})
	return compiled, compileErr
}

func compile(role domain.Role) (*jsonschema.Schema, error) {
	name := fmt.Sprintf("schemas/%s.json", role)
	data, err := schemasFS.ReadFile(name)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("add schema resource for %s: %w", role, err)
	}
	s, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", role, err)
	}
	return s, nil
}

// Schema returns the raw JSON Schema document of role.
func Schema(role domain.Role) ([]byte, error) {
	return schemasFS.ReadFile(fmt.Sprintf("schemas/%s.json", role))
}

// Validate checks raw JSON against the profile contract of role. Contract
// failures are returned as *ViolationError.
func Validate(role domain.Role, raw []byte) error {
	schemas, err := load()
	if err != nil {
		return err
	}
	s, ok := schemas[role]
	if !ok {
		return fmt.Errorf("no contract for role %q", role)
	}
	doc, err := unmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &ViolationError{Role: role, Violations: map[string]string{"(root)": "body is not valid JSON"}}
	}
	err = s.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("validate %s profile: %w", role, err)
	}
	out := &ViolationError{Role: role, Violations: map[string]string{}}
	collect(ve, out.Violations)
	if len(out.Violations) == 0 {
		out.Violations["(root)"] = ve.Message
	}
	return out
}

// collect keeps the deepest message per instance location.
func collect(e *jsonschema.ValidationError, into map[string]string) {
	if len(e.Causes) == 0 {
		loc := e.InstanceLocation
		if loc == "" {
			loc = "(root)"
		}
		if _, seen := into[loc]; !seen {
			into[loc] = e.Message
		}
		return
	}
	for _, cause := range e.Causes {
		collect(cause, into)
	}
}

// unmarshalJSON decodes a single JSON value with json.Number precision, as
// jsonschema/v5 Schema.Validate expects.
func unmarshalJSON(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("invalid character after top-level value")
	}
	return doc, nil
}

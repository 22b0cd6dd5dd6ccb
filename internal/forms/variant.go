package forms

import (
	"fmt"
	"strings"

	"launchpad/internal/domain"
	"launchpad/internal/schema"
)

// Variant is the per-role capability set: the field schema, the mapping from
// a validated value set to the wire payload, and where to go after success.
type Variant interface {
	Role() domain.Role
	Schema() *schema.Schema
	// Payload maps a value set that already passed Schema().Validate.
	Payload(vals schema.Values, userID string) (domain.RoleProfile, error)
	Destination() string
	SuccessMessage() string
	FailureMessage() string
}

var variants = map[domain.Role]Variant{
	domain.RoleEntrepreneur: entrepreneurVariant{},
	domain.RoleInvestor:     investorVariant{},
	domain.RoleMentor:       mentorVariant{},
}

// ForRole returns the variant registered for role.
func ForRole(role domain.Role) (Variant, error) {
	v, ok := variants[role]
	if !ok {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	return v, nil
}

// All returns every role variant in registration order.
func All() []Variant {
	out := make([]Variant, 0, len(domain.Roles))
	for _, r := range domain.Roles {
		out = append(out, variants[r])
	}
	return out
}

// Build validates vals and maps them to the role payload. Exactly one of the
// returned profile and errors is non-empty on a nil error.
func Build(v Variant, vals schema.Values, userID string) (domain.RoleProfile, domain.FieldErrors, error) {
	if errs := v.Schema().Validate(vals); len(errs) > 0 {
		return nil, errs, nil
	}
	p, err := v.Payload(vals, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("map %s payload: %w", v.Role(), err)
	}
	return p, nil, nil
}

func number(vals schema.Values, path string) float64 {
	n, _ := vals.Number(path)
	return n
}

// compact drops blank entries and trims the rest.
func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func present(vals schema.Values, paths ...string) bool {
	for _, p := range paths {
		if strings.TrimSpace(vals.String(p)) != "" {
			return true
		}
	}
	return false
}

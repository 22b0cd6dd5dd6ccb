package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"launchpad/internal/domain"
	"launchpad/internal/repo"
)

// ProfileQuery selects profiles of one role. Match compares dotted document
// paths with a string: scalars must be equal, arrays must contain it. Filter
// is a boolean expression over the profile document, e.g.
// `funding.equityOffered <= 20 && stage == "idea"`.
type ProfileQuery struct {
	Role   domain.Role
	Match  map[string]string
	Filter string
	Limit  int
	Offset int
}

// FilterError reports an expression that does not compile or run.
type FilterError struct {
	Expr string
	Err  error
}

func (e FilterError) Error() string { return fmt.Sprintf("filter %q: %v", e.Expr, e.Err) }
func (e FilterError) Unwrap() error { return e.Err }

// ListProfiles returns the matching profiles of q.Role, newest first.
func (e Engine) ListProfiles(ctx context.Context, q ProfileQuery) ([]domain.RoleProfile, error) {
	var program *vm.Program
	if strings.TrimSpace(q.Filter) != "" {
		p, err := expr.Compile(q.Filter, expr.AsBool(), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, FilterError{Expr: q.Filter, Err: err}
		}
		program = p
	}
	filters := repo.ProfileFilters{Role: q.Role}
	if program == nil && len(q.Match) == 0 {
		filters.Limit, filters.Offset = q.Limit, q.Offset
	}
	recs, err := e.Repo.ListProfiles(ctx, filters)
	if err != nil {
		return nil, err
	}

	out := make([]domain.RoleProfile, 0, len(recs))
	skipped := 0
	for _, rec := range recs {
		if program != nil || len(q.Match) > 0 {
			doc := map[string]any{}
			if err := json.Unmarshal(rec.Payload, &doc); err != nil {
				return nil, fmt.Errorf("decode profile %s: %w", rec.ID, err)
			}
			if !matches(doc, q.Match) {
				continue
			}
			if program != nil {
				ok, err := expr.Run(program, doc)
				if err != nil {
					return nil, FilterError{Expr: q.Filter, Err: err}
				}
				if b, _ := ok.(bool); !b {
					continue
				}
			}
			if skipped < q.Offset {
				skipped++
				continue
			}
		}
		p, err := decodeProfile(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func matches(doc map[string]any, match map[string]string) bool {
	for path, want := range match {
		if !matchValue(lookup(doc, path), want) {
			return false
		}
	}
	return true
}

func lookup(doc map[string]any, path string) any {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func matchValue(v any, want string) bool {
	switch x := v.(type) {
	case string:
		return strings.EqualFold(x, want)
	case float64:
		n, err := strconv.ParseFloat(want, 64)
		return err == nil && n == x
	case bool:
		b, err := strconv.ParseBool(want)
		return err == nil && b == x
	case []any:
		for _, it := range x {
			if matchValue(it, want) {
				return true
			}
		}
	}
	return false
}

package orm

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Check reports whether value is acceptable. deps holds the values of the
// fields named in Rule.Deps, taken from the same input.
type Check func(ctx context.Context, value string, deps map[string]string) (bool, error)

type Rule struct {
	Field   string
	Message string
	Deps    []string
	Check   Check
}

// Ruleset is the validation list of one record type.
type Ruleset struct {
	Type  string
	Rules []Rule
}

func NewRuleset(typeName string, rules ...Rule) Ruleset {
	return Ruleset{Type: typeName, Rules: rules}
}

// Key returns the message key of a field, "Type.field".
func (rs Ruleset) Key(field string) string {
	return rs.Type + "." + field
}

// Validate runs the rules of every field present in input, in declaration
// order. The first failing rule of a field records its message and skips the
// rest of that field's rules. Fields absent from input are not checked.
// A Check error aborts validation.
func (rs Ruleset) Validate(ctx context.Context, input map[string]string) (ValidationErrors, error) {
	verrs := ValidationErrors{}
	for _, r := range rs.Rules {
		val, ok := input[r.Field]
		if !ok {
			continue
		}
		key := rs.Key(r.Field)
		if _, failed := verrs[key]; failed {
			continue
		}
		deps := make(map[string]string, len(r.Deps))
		for _, d := range r.Deps {
			deps[d] = input[d]
		}
		pass, err := r.Check(ctx, val, deps)
		if err != nil {
			return nil, fmt.Errorf("validate %s: %w", key, err)
		}
		if !pass {
			verrs[key] = r.Message
		}
	}
	return verrs, nil
}

// ValidationErrors maps "Type.field" to the message of the failed rule.
type ValidationErrors map[string]string

func (v ValidationErrors) OK() bool { return len(v) == 0 }

// Keys returns the failed keys in sorted order.
func (v ValidationErrors) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, k := range v.Keys() {
		parts = append(parts, k+": "+v[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Is(target error) bool { return target == ErrValidation }

// MinLen is a Check for a minimum length in characters.
func MinLen(n int) Check {
	return func(_ context.Context, value string, _ map[string]string) (bool, error) {
		return len([]rune(value)) >= n, nil
	}
}

// MaxLen is a Check for a maximum length in characters.
func MaxLen(n int) Check {
	return func(_ context.Context, value string, _ map[string]string) (bool, error) {
		return len([]rune(value)) <= n, nil
	}
}

// Equals is a Check passing when value equals the dependency named field.
func Equals(field string) Check {
	return func(_ context.Context, value string, deps map[string]string) (bool, error) {
		return value == deps[field], nil
	}
}

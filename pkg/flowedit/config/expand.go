package config

import (
	"fmt"
	"regexp"
	"strings"
)

// refPattern matches ${NAME} and ${NAME:-fallback}.
var refPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)(?::-([^}]*))?\}`)

// LookupFunc resolves a variable name, reporting whether it is defined.
// os.LookupEnv satisfies it.
type LookupFunc func(name string) (string, bool)

// UndefinedVariableError is returned when a file references variables that
// are neither defined nor given a fallback.
type UndefinedVariableError struct {
	Names []string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined variable: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined variables: %s", strings.Join(e.Names, ", "))
}

// ExpandString replaces ${NAME} references in s. A reference with a
// fallback (${NAME:-value}) uses the fallback when NAME is undefined.
// Only the brace form is recognised, so "$" in passwords and DSNs is left
// alone.
func ExpandString(s string, lookup LookupFunc) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}
	var missing []string
	out := refPattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := refPattern.FindStringSubmatch(match)
		if v, ok := lookup(sub[1]); ok {
			return v
		}
		if strings.Contains(match, ":-") {
			return sub[2]
		}
		missing = append(missing, sub[1])
		return match
	})
	if len(missing) > 0 {
		return out, &UndefinedVariableError{Names: missing}
	}
	return out, nil
}

// Expand returns a copy of c with every string value expanded, descending
// into nested sections and lists.
func (c Config) Expand(lookup LookupFunc) (Config, error) {
	v, err := expandValue(c.data, lookup)
	if err != nil {
		return Config{}, err
	}
	m, _ := asMap(v)
	return New(m), nil
}

func expandValue(v any, lookup LookupFunc) (any, error) {
	switch val := v.(type) {
	case string:
		return ExpandString(val, lookup)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			expanded, err := expandValue(item, lookup)
			if err != nil {
				return nil, err
			}
			out[i] = expanded
		}
		return out, nil
	default:
		m, ok := asMap(v)
		if !ok {
			return v, nil
		}
		out := make(map[string]any, len(m))
		for k, item := range m {
			expanded, err := expandValue(item, lookup)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = expanded
		}
		return out, nil
	}
}

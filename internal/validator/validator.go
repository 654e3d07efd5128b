package validator

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/obsidianstack/hekaconf/internal/plugin"
	"github.com/obsidianstack/hekaconf/internal/registry"
)

// Validate checks def against entry and returns the normalised parameters
// with defaults filled in. All violations are reported together in a
// *plugin.ValidationError.
//
// For ensure=absent only the name and ensure value are checked and the
// returned Params is empty: removing a file needs nothing but its path.
func Validate(entry *registry.Entry, def plugin.Definition) (plugin.Params, error) {
	ensure, err := plugin.ParseEnsure(string(def.Ensure))
	if err != nil {
		return nil, &plugin.ValidationError{Kind: def.Kind, Name: def.Name, Errs: []error{
			&plugin.InvalidDefinitionError{Kind: def.Kind, Name: def.Name, Reason: err.Error()},
		}}
	}
	if err := plugin.CheckName(def.Name); err != nil {
		return nil, &plugin.ValidationError{Kind: def.Kind, Name: def.Name, Errs: []error{err}}
	}
	if ensure == plugin.EnsureAbsent {
		return plugin.Params{}, nil
	}

	var errs []error
	out := make(plugin.Params, len(def.Parameters))

	for _, s := range entry.Specs() {
		raw, ok := def.Parameters[s.Name]
		if !ok || isEmpty(raw) {
			if s.Required {
				errs = append(errs, &plugin.MissingRequiredParameterError{Name: s.Name})
			} else if s.Default != nil {
				out[s.Name] = s.Default
			}
		}
	}

	keys := make([]string, 0, len(def.Parameters))
	for k := range def.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		s, ok := entry.Spec(k)
		if !ok {
			errs = append(errs, &plugin.UnknownParameterError{Name: k})
			continue
		}
		raw := def.Parameters[k]
		if isEmpty(raw) {
			continue
		}
		v, err := coerce(s, raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[k] = v
	}

	if len(errs) > 0 {
		return nil, &plugin.ValidationError{Kind: def.Kind, Name: def.Name, Errs: errs}
	}
	return out, nil
}

// isEmpty reports whether v counts as not supplied: nil, "" or an empty list.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

// coerce converts raw to the normalised Go type for s.Type.
func coerce(s plugin.ParamSpec, raw any) (any, error) {
	mismatch := &plugin.TypeMismatchError{Name: s.Name, Expected: s.Type, Got: typeName(raw)}

	switch s.Type {
	case plugin.TypeString:
		if v, ok := raw.(string); ok {
			return v, nil
		}
		return nil, mismatch

	case plugin.TypeBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
		}
		return nil, mismatch

	case plugin.TypeInt:
		switch v := raw.(type) {
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64:
			return v, nil
		case uint:
			if uint64(v) <= math.MaxInt64 {
				return int64(v), nil
			}
		case uint32:
			return int64(v), nil
		case uint64:
			if v <= math.MaxInt64 {
				return int64(v), nil
			}
		case float64:
			if v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64 {
				return int64(v), nil
			}
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return n, nil
			}
		}
		return nil, mismatch

	case plugin.TypeList:
		switch v := raw.(type) {
		case []string:
			return append([]string(nil), v...), nil
		case []any:
			out := make([]string, len(v))
			for i, item := range v {
				str, ok := item.(string)
				if !ok {
					return nil, &plugin.TypeMismatchError{
						Name:     s.Name,
						Expected: s.Type,
						Got:      fmt.Sprintf("list with %s element", typeName(item)),
					}
				}
				out[i] = str
			}
			return out, nil
		}
		return nil, mismatch
	}

	return nil, fmt.Errorf("validator: parameter %q has unsupported type %q", s.Name, s.Type)
}

// typeName names the dynamic type of v in the vocabulary of ParamType.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "int"
	case float32, float64:
		return "float"
	case []any, []string:
		return "list"
	case map[string]any:
		return "map"
	default:
		return fmt.Sprintf("%T", v)
	}
}

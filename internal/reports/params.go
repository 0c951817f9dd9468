package reports

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ParameterError reports one rejected parameter.
type ParameterError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (e ParameterError) Error() string { return e.Name + ": " + e.Message }

// validateParameters coerces supplied values to their declared types,
// applies defaults and rejects undeclared names. Names match case
// insensitively and blank strings count as absent.
func validateParameters(defs []Parameter, supplied map[string]any) (map[string]any, []ParameterError) {
	cleaned := make(map[string]any)
	var errs []ParameterError
	leftover := make(map[string]struct{}, len(supplied))
	for k := range supplied {
		leftover[strings.ToLower(k)] = struct{}{}
	}
	for _, p := range defs {
		raw, ok := findParam(p.Name, supplied)
		delete(leftover, strings.ToLower(p.Name))
		if s, isStr := raw.(string); ok && isStr && strings.TrimSpace(s) == "" {
			ok = false
		}
		if !ok {
			if p.Default != "" {
				raw, ok = p.Default, true
			} else if p.Required {
				errs = append(errs, ParameterError{Name: p.Name, Message: "required parameter missing"})
				continue
			} else {
				continue
			}
		}
		v, err := coerce(p, raw)
		if err != nil {
			errs = append(errs, ParameterError{Name: p.Name, Message: err.Error()})
			continue
		}
		cleaned[p.Name] = v
	}
	for name := range leftover {
		errs = append(errs, ParameterError{Name: name, Message: "parameter not declared"})
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Name < errs[j].Name })
	return cleaned, errs
}

func findParam(name string, supplied map[string]any) (any, bool) {
	if v, ok := supplied[name]; ok {
		return v, true
	}
	for k, v := range supplied {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

func coerce(p Parameter, raw any) (any, error) {
	if raw == nil {
		return nil, fmt.Errorf("parameter %s cannot be null", p.Name)
	}
	switch p.Type {
	case "string", "":
		s, ok := raw.(string)
		if !ok {
			s = fmt.Sprint(raw)
		}
		s = strings.TrimSpace(s)
		if len(p.Enum) > 0 && !contains(p.Enum, s) {
			return nil, fmt.Errorf("value must be one of: %s", strings.Join(p.Enum, ", "))
		}
		return s, nil
	case "date":
		switch v := raw.(type) {
		case time.Time:
			return truncateDay(v.UTC()), nil
		case string:
			t, err := time.Parse(dateLayout, strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("parameter %s expects a date (YYYY-MM-DD)", p.Name)
			}
			return t, nil
		}
		return nil, fmt.Errorf("parameter %s expects a date (YYYY-MM-DD)", p.Name)
	case "boolean":
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "1", "true", "yes", "on":
				return true, nil
			case "0", "false", "no", "off":
				return false, nil
			}
		case float64:
			return v != 0, nil
		}
		return nil, fmt.Errorf("parameter %s expects boolean", p.Name)
	case "integer":
		switch v := raw.(type) {
		case int:
			return v, nil
		case float64:
			if v != float64(int(v)) {
				return nil, fmt.Errorf("parameter %s expects integer", p.Name)
			}
			return int(v), nil
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("parameter %s expects integer", p.Name)
			}
			return n, nil
		}
		return nil, fmt.Errorf("parameter %s expects integer", p.Name)
	default:
		return nil, fmt.Errorf("unsupported parameter type %q", p.Type)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

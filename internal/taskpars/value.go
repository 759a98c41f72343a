package taskpars

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueError reports a value that does not fit its parameter.
type ValueError struct {
	Param string
	Value any
	Err   error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("taskpars: %s: invalid value %v: %v", e.Param, e.Value, e.Err)
}

func (e *ValueError) Unwrap() error {
	return e.Err
}

// coerce converts a raw value (YAML-decoded or typed by the user) into the
// parameter's Go representation: string, int64, float64 or bool. Empty
// numeric input yields nil, meaning "unset".
func coerce(p ParamSpec, raw any) (any, error) {
	switch p.Type {
	case TypeInteger:
		v, err := toInt(raw)
		if err != nil || v == nil {
			return v, err
		}
		return v, checkRange(p, float64(v.(int64)))
	case TypeFloat:
		v, err := toFloat(raw)
		if err != nil || v == nil {
			return v, err
		}
		return v, checkRange(p, v.(float64))
	case TypeBoolean:
		return toBool(raw)
	case TypeOption:
		if raw == nil {
			return p.Choices[0], nil
		}
		s := toString(raw)
		for _, choice := range p.Choices {
			if choice == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%q is not one of %s", s, strings.Join(p.Choices, ", "))
	default:
		return toString(raw), nil
	}
}

func toString(raw any) string {
	if raw == nil {
		return ""
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprint(raw)
}

func toInt(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("%v is not an integer", v)
		}
		return int64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" || strings.EqualFold(s, "none") {
			return nil, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", v)
		}
		return n, nil
	}
	return nil, fmt.Errorf("%T is not an integer", raw)
}

func toFloat(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" || strings.EqualFold(s, "none") {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", v)
		}
		return f, nil
	}
	return nil, fmt.Errorf("%T is not a number", raw)
}

func toBool(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "y", "on", "true", "1":
			return true, nil
		case "no", "n", "off", "false", "0", "":
			return false, nil
		}
		return nil, fmt.Errorf("%q is not a boolean", v)
	}
	return nil, fmt.Errorf("%T is not a boolean", raw)
}

func checkRange(p ParamSpec, v float64) error {
	if p.Min != nil && v < *p.Min {
		return fmt.Errorf("%v is below the minimum %v", v, *p.Min)
	}
	if p.Max != nil && v > *p.Max {
		return fmt.Errorf("%v is above the maximum %v", v, *p.Max)
	}
	return nil
}

// FormatValue renders a typed value for display and editing.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case bool:
		if t {
			return "yes"
		}
		return "no"
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}

// zeroValue is a representative value of the type, used when compiling rule
// bodies for unset fields.
func zeroValue(t ParamType) any {
	switch t {
	case TypeInteger:
		return int64(0)
	case TypeFloat:
		return float64(0)
	case TypeBoolean:
		return false
	}
	return ""
}

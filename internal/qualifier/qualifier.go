// Package qualifier implements value validation/canonicalization,
// grounded on edera/qualifier.py and edera/qualifiers.py. A Qualifier
// checks an arbitrary value and returns a canonical form plus a
// human-readable representation, the way Parameter descriptors use them
// in the distillation source.
package qualifier

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/edera-run/workflowd/internal/xtime"
)

// Qualifier validates and canonicalizes a value.
type Qualifier interface {
	Qualify(value any) (canonical any, representation string, err error)
}

// Func adapts a plain function to the Qualifier interface.
type Func func(value any) (any, string, error)

// Qualify implements Qualifier.
func (f Func) Qualify(value any) (any, string, error) { return f(value) }

// Any accepts every value unchanged.
var Any Qualifier = Func(func(value any) (any, string, error) {
	return value, fmt.Sprintf("%v", value), nil
})

// Boolean accepts only bool values.
var Boolean Qualifier = Func(func(value any) (any, string, error) {
	b, ok := value.(bool)
	if !ok {
		return nil, "", fmt.Errorf("%#v is not a bool", value)
	}
	return b, strconv.FormatBool(b), nil
})

// Integer accepts int and int64 values, canonicalized to int.
var Integer Qualifier = Func(func(value any) (any, string, error) {
	switch v := value.(type) {
	case int:
		return v, strconv.Itoa(v), nil
	case int64:
		return int(v), strconv.FormatInt(v, 10), nil
	default:
		return nil, "", fmt.Errorf("%#v is not an integer", value)
	}
})

var asciiOnly = regexp.MustCompile(`^[\x00-\x7F]*$`)

// String accepts ASCII-only strings, matching edera.qualifiers.String.
var String Qualifier = Func(func(value any) (any, string, error) {
	s, ok := value.(string)
	if !ok {
		return nil, "", fmt.Errorf("%#v is not a string", value)
	}
	if !asciiOnly.MatchString(s) {
		return nil, "", fmt.Errorf("%q is not ASCII", s)
	}
	return s, fmt.Sprintf("%q", s), nil
})

// Text accepts any Unicode string, matching edera.qualifiers.Text.
var Text Qualifier = Func(func(value any) (any, string, error) {
	s, ok := value.(string)
	if !ok {
		return nil, "", fmt.Errorf("%#v is not a string", value)
	}
	return s, fmt.Sprintf("%q", s), nil
})

// Date accepts an ISO-8601 date string.
var Date Qualifier = Func(func(value any) (any, string, error) {
	s, ok := value.(string)
	if !ok {
		return nil, "", fmt.Errorf("%#v is not a date string", value)
	}
	t, err := xtime.ParseDate(s)
	if err != nil {
		return nil, "", err
	}
	return t, t.Format("2006-01-02"), nil
})

// DateTime accepts a timezone-aware ISO-8601 datetime string and
// normalizes it to UTC, matching edera.qualifiers.DateTime.
var DateTime Qualifier = Func(func(value any) (any, string, error) {
	s, ok := value.(string)
	if !ok {
		return nil, "", fmt.Errorf("%#v is not a datetime string", value)
	}
	t, err := xtime.ParseDateTime(s)
	if err != nil {
		return nil, "", err
	}
	return t, xtime.FormatDateTime(t), nil
})

// TimeDelta accepts a restricted ISO-8601 duration string, matching
// edera.qualifiers.TimeDelta.
var TimeDelta Qualifier = Func(func(value any) (any, string, error) {
	s, ok := value.(string)
	if !ok {
		return nil, "", fmt.Errorf("%#v is not a duration string", value)
	}
	d, err := xtime.ParseDuration(s)
	if err != nil {
		return nil, "", err
	}
	return d, xtime.FormatDuration(d), nil
})

// Optional allows value to be nil, otherwise delegates to base.
func Optional(base Qualifier) Qualifier {
	return Func(func(value any) (any, string, error) {
		if value == nil {
			return nil, "None", nil
		}
		return base.Qualify(value)
	})
}

// List requires value to be a []any whose elements all satisfy item.
func List(item Qualifier) Qualifier {
	return Func(func(value any) (any, string, error) {
		values, ok := value.([]any)
		if !ok {
			return nil, "", fmt.Errorf("%#v is not a list", value)
		}
		canon := make([]any, len(values))
		reprs := make([]string, len(values))
		for i, v := range values {
			c, r, err := item.Qualify(v)
			if err != nil {
				return nil, "", fmt.Errorf("element %d: %w", i, err)
			}
			canon[i] = c
			reprs[i] = r
		}
		return canon, fmt.Sprintf("%v", reprs), nil
	})
}

package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleID accepts a JSON number or a numeric string.
type FlexibleID int64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", raw)
	}
	*f = FlexibleID(v)
	return nil
}

// OptionalFlag is a tri-state 0/1 flag; Set is false when the field was
// absent or null.
type OptionalFlag struct {
	Set   bool
	Value bool
}

// UnmarshalJSON accepts 0, 1, true, false and their string forms.
func (o *OptionalFlag) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*o = OptionalFlag{}
	case bool:
		*o = OptionalFlag{Set: true, Value: v}
	case float64:
		if v != 0 && v != 1 {
			return fmt.Errorf("flag must be 0 or 1")
		}
		*o = OptionalFlag{Set: true, Value: v == 1}
	case string:
		b := ParseFlag(v)
		if b == nil {
			return fmt.Errorf("flag must be 0 or 1")
		}
		*o = OptionalFlag{Set: true, Value: *b}
	default:
		return fmt.Errorf("flag must be 0 or 1")
	}
	return nil
}

// Ptr converts the flag to a *bool, nil when absent.
func (o OptionalFlag) Ptr() *bool {
	if !o.Set {
		return nil
	}
	v := o.Value
	return &v
}

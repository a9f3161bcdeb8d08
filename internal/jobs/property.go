package jobs

import (
	"strconv"
	"strings"

	"github.com/0xPuncker/cronwatch/pkg/types"
)

// Property is one parsed key:value assignment. SubKey is set for dotted keys
// such as headers.Accept, whose value is always kept as a string.
type Property struct {
	Key    string
	SubKey string
	Value  interface{}
}

func (p Property) Path() string {
	if p.SubKey == "" {
		return p.Key
	}
	return p.Key + "." + p.SubKey
}

// ParseProperties parses key:value tokens. One malformed token rejects the
// whole list.
func ParseProperties(tokens []string) ([]Property, error) {
	props := make([]Property, 0, len(tokens))
	for _, token := range tokens {
		key, value, ok := strings.Cut(token, ":")
		if !ok {
			return nil, types.NewError(types.InvalidInput, "parse_properties",
				"invalid property format %q, use key:value", token)
		}
		if key == "" {
			return nil, types.NewError(types.InvalidInput, "parse_properties", "property %q has an empty key", token)
		}

		if mainKey, subKey, dotted := strings.Cut(key, "."); dotted {
			if mainKey == "" || subKey == "" {
				return nil, types.NewError(types.InvalidInput, "parse_properties", "invalid nested key %q", key)
			}
			if isReserved(mainKey) {
				return nil, reservedKeyError(mainKey)
			}
			props = append(props, Property{Key: mainKey, SubKey: subKey, Value: value})
			continue
		}

		if isReserved(key) {
			return nil, reservedKeyError(key)
		}
		props = append(props, Property{Key: key, Value: coerce(value)})
	}
	return props, nil
}

// ApplyProperties sets every property on the record, or none of them when
// one conflicts with an existing non-mapping value.
func (r *Record) ApplyProperties(props []Property) error {
	extra := r.Extra.Clone()
	for _, p := range props {
		if p.SubKey == "" {
			extra.Set(p.Key, p.Value)
			continue
		}

		existing, ok := extra.Get(p.Key)
		if !ok {
			nested := NewProperties()
			nested.Set(p.SubKey, p.Value)
			extra.Set(p.Key, nested)
			continue
		}
		nested, isMapping := existing.(*Properties)
		if !isMapping {
			return types.NewError(types.InvalidInput, "apply_properties",
				"property %q already holds a plain value, cannot set %s", p.Key, p.Path())
		}
		nested.Set(p.SubKey, p.Value)
	}
	r.Extra = extra
	return nil
}

// coerce maps true/false to bool, digit strings to int and digit strings
// with a single dot to float. Everything else stays a string.
func coerce(value string) interface{} {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}

	if isDigits(value) {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return int(n)
		}
		return value
	}

	if strings.Count(value, ".") == 1 && isDigits(strings.Replace(value, ".", "", 1)) {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return value
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isReserved(key string) bool {
	return key == keyName || key == keyURL || key == keyFilter
}

func reservedKeyError(key string) error {
	return types.NewError(types.InvalidInput, "parse_properties",
		"%q cannot be set as a property, use edit or editfilter", key)
}

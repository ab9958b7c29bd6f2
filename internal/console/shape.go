package console

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// arrayFieldNames lists, in priority order, the envelope keys that may carry a list.
var arrayFieldNames = []string{"data", "items"}

// findArray returns the list carried by raw: the value itself when it is an array,
// otherwise the first of keys holding an array. ok is false when none matched.
func findArray(raw json.RawMessage, keys ...string) ([]json.RawMessage, bool) {
	var direct []json.RawMessage
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct, true
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	for _, key := range keys {
		value, present := obj[key]
		if !present {
			continue
		}
		var list []json.RawMessage
		if err := json.Unmarshal(value, &list); err == nil {
			return list, true
		}
	}
	return nil, false
}

// findObject returns the object carried by raw, unwrapping the first of keys that holds one.
func findObject(raw json.RawMessage, keys ...string) (map[string]json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	for _, key := range keys {
		value, present := obj[key]
		if !present {
			continue
		}
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(value, &inner); err == nil && inner != nil {
			return inner, true
		}
	}
	return obj, true
}

// stringField returns the first of keys holding a non-empty string or number, rendered as a string.
func stringField(obj map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		value, present := obj[key]
		if !present {
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			if s != "" {
				return s
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(value, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

// IntField returns the first of keys present in obj as an int. ok is false when no key
// was present with a numeric value.
func IntField(obj map[string]json.RawMessage, keys ...string) (int, bool) {
	for _, key := range keys {
		value, present := obj[key]
		if !present {
			continue
		}
		var n json.Number
		if err := json.Unmarshal(value, &n); err != nil {
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				continue
			}
			n = json.Number(s)
		}
		if i, err := strconv.Atoi(n.String()); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int(f), true
		}
	}
	return 0, false
}

// BoolField returns the value of key in obj. present is false when the key is missing or null.
func BoolField(obj map[string]json.RawMessage, key string) (value, present bool) {
	raw, ok := obj[key]
	if !ok {
		return false, false
	}
	var b *bool
	if err := json.Unmarshal(raw, &b); err != nil || b == nil {
		return false, false
	}
	return *b, true
}

// ArrayField returns the first of keys in obj holding an array.
func ArrayField(obj map[string]json.RawMessage, keys ...string) ([]json.RawMessage, bool) {
	for _, key := range keys {
		value, present := obj[key]
		if !present {
			continue
		}
		var list []json.RawMessage
		if err := json.Unmarshal(value, &list); err == nil && list != nil {
			return list, true
		}
	}
	return nil, false
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("expected a JSON object: %w", err)
	}
	return obj, nil
}

package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrInvalidOptions is returned when an option payload cannot be turned into
// an ordered list of strings.
var ErrInvalidOptions = errors.New("invalid options payload")

// NormalizeOptions converts a loosely-typed options payload into an ordered
// list of option strings. Accepted shapes:
//
//   - a JSON array whose elements are strings, numbers, booleans, or objects
//     carrying a "text", "label" or "value" field
//   - a JSON string containing one of the array shapes above
//   - an object keyed by "0", "1", ... (ordered numerically)
//
// Anything else is rejected with ErrInvalidOptions.
func NormalizeOptions(raw json.RawMessage) ([]string, error) {
	return normalizeOptions(raw, true)
}

func normalizeOptions(raw json.RawMessage, allowString bool) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidOptions)
	}

	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
		return optionStrings(items)

	case '{':
		var keyed map[string]json.RawMessage
		if err := json.Unmarshal(raw, &keyed); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
		return keyedOptions(keyed)

	case '"':
		if !allowString {
			return nil, fmt.Errorf("%w: nested string encoding", ErrInvalidOptions)
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
		return normalizeOptions(json.RawMessage(s), false)
	}

	return nil, fmt.Errorf("%w: unsupported shape %q", ErrInvalidOptions, string(raw[:1]))
}

func keyedOptions(keyed map[string]json.RawMessage) ([]string, error) {
	type entry struct {
		idx int
		val json.RawMessage
	}
	entries := make([]entry, 0, len(keyed))
	for k, v := range keyed {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("%w: non-numeric key %q", ErrInvalidOptions, k)
		}
		entries = append(entries, entry{idx: idx, val: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })

	items := make([]json.RawMessage, len(entries))
	for i, e := range entries {
		items[i] = e.val
	}
	return optionStrings(items)
}

func optionStrings(items []json.RawMessage) ([]string, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no options", ErrInvalidOptions)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, err := optionText(item)
		if err != nil {
			return nil, fmt.Errorf("option %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func optionText(item json.RawMessage) (string, error) {
	item = bytes.TrimSpace(item)
	if len(item) == 0 || bytes.Equal(item, []byte("null")) {
		return "", fmt.Errorf("%w: null option", ErrInvalidOptions)
	}

	switch item[0] {
	case '"':
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
		return s, nil
	case '{':
		var obj map[string]any
		if err := json.Unmarshal(item, &obj); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
		for _, key := range []string{"text", "label", "value"} {
			if v, ok := obj[key]; ok {
				return fmt.Sprint(v), nil
			}
		}
		return "", fmt.Errorf("%w: object option without text", ErrInvalidOptions)
	case '[':
		return "", fmt.Errorf("%w: nested array option", ErrInvalidOptions)
	}

	// Numbers and booleans keep their literal JSON spelling.
	var v any
	if err := json.Unmarshal(item, &v); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return string(item), nil
}

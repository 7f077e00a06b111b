// Package metadata implements the textual key/value codec used for
// item, user and collection records.
//
// A record is a flat block of "key = value" lines with
// case-insensitive keys. A fixed set of registered keys hold ordered
// string lists; their elements are percent-encoded and joined on
// single spaces so that values containing whitespace survive the
// round trip. Values containing newlines are continued on indented
// lines, matching the ini dialect the on-disk format descends from.
package metadata

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// MetaExt is the extension of every metadata file.
const MetaExt = ".ini"

// Fields maps lowercase keys to either a scalar string or an ordered
// []string for registered list keys.
type Fields map[string]any

// listKeys are the registered list-valued keys. Every other key is a
// scalar string.
var listKeys = map[string]bool{
	"items":   true,
	"systags": true,
	"langs":   true,
	"roles":   true,
	"tokens":  true,
	"images":  true,
}

// derivedKeys name data that is never serialized: they are recomputed
// from the identifier or from on-disk sibling files at load time.
var derivedKeys = map[string]bool{
	"id":       true,
	"datetime": true,
}

// IsListKey reports whether key holds an ordered list value.
func IsListKey(key string) bool {
	return listKeys[strings.ToLower(key)]
}

// Encode serializes fields into a textual block. Keys are emitted in
// sorted order so encoding is deterministic; derived keys and empty
// values are skipped.
//
// Returns an error when a registered list key holds a non-list value
// or vice versa, which indicates a programming error in the caller.
func Encode(fields Fields) (string, error) {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, strings.ToLower(key))
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		if derivedKeys[key] {
			continue
		}

		value, err := encodeValue(key, fields[key])
		if err != nil {
			return "", err
		}
		if value == "" {
			continue
		}

		// Multi-line scalars continue on indented lines.
		value = strings.ReplaceAll(value, "\n", "\n\t")
		fmt.Fprintf(&b, "%s = %s\n", key, value)
	}

	return b.String(), nil
}

func encodeValue(key string, value any) (string, error) {
	switch v := value.(type) {
	case string:
		if listKeys[key] {
			return "", fmt.Errorf("key %q holds a list, got scalar", key)
		}
		return v, nil
	case []string:
		if !listKeys[key] {
			return "", fmt.Errorf("key %q holds a scalar, got list", key)
		}
		encoded := make([]string, len(v))
		for i, elem := range v {
			encoded[i] = url.QueryEscape(elem)
		}
		return strings.Join(encoded, " "), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("key %q has unsupported value type %T", key, value)
	}
}

// Decode parses a textual block back into Fields. Registered list keys
// are re-expanded into ordered []string values; all other keys decode
// as scalar strings. Malformed input (a non-blank line with no '=' and
// no continuation indent, or an undecodable list element) returns an
// error.
func Decode(text string) (Fields, error) {
	fields := Fields{}
	var lastKey string

	for n, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		// Continuation of the previous value.
		if line[0] == ' ' || line[0] == '\t' {
			if lastKey == "" {
				return nil, fmt.Errorf("line %d: continuation without a key", n+1)
			}
			prev := fields[lastKey].(string)
			fields[lastKey] = prev + "\n" + strings.TrimLeft(line, " \t")
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("line %d: missing '=' separator", n+1)
		}

		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return nil, fmt.Errorf("line %d: empty key", n+1)
		}
		fields[key] = strings.TrimSpace(value)
		lastKey = key
	}

	// Expand registered list keys.
	for key, value := range fields {
		if !listKeys[key] {
			continue
		}
		joined := value.(string)
		if joined == "" {
			fields[key] = []string{}
			continue
		}
		parts := strings.Fields(joined)
		list := make([]string, len(parts))
		for i, part := range parts {
			elem, err := url.QueryUnescape(part)
			if err != nil {
				return nil, fmt.Errorf("key %q: undecodable list element %q: %w", key, part, err)
			}
			list[i] = elem
		}
		fields[key] = list
	}

	return fields, nil
}

// Scalar returns the scalar value of key, or "" when absent or
// list-valued.
func (f Fields) Scalar(key string) string {
	v, _ := f[strings.ToLower(key)].(string)
	return v
}

// List returns the list value of key, or nil when absent or scalar.
func (f Fields) List(key string) []string {
	v, _ := f[strings.ToLower(key)].([]string)
	return v
}

// SetScalar stores a scalar value unless it is empty.
func (f Fields) SetScalar(key, value string) {
	if value != "" {
		f[strings.ToLower(key)] = value
	}
}

// SetList stores a list value unless it is empty.
func (f Fields) SetList(key string, value []string) {
	if len(value) > 0 {
		f[strings.ToLower(key)] = value
	}
}

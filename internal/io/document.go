package io

import (
	"encoding/json"
	"math"
	"strings"
)

// Document is one loosely-typed JSON object from the channel ecosystem:
// a channel document entry, a UDP datagram, a discovery reply. Producers
// mix camelCase and snake_case keys, so every lookup accepts an alias
// list. The UDP sync service shares these helpers.
type Document map[string]any

// ParseDocument decodes a JSON object. A nil result means the input is
// missing, malformed, or not an object.
func ParseDocument(data []byte) Document {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil
	}
	return d
}

// channelList extracts the list of channel objects from a document that is
// either a bare JSON array or an object with a "channels" array. A nil
// result means the document is missing, malformed, or carries no list.
func channelList(document []byte) []Document {
	if len(document) == 0 {
		return nil
	}

	var direct []Document
	if err := json.Unmarshal(document, &direct); err == nil {
		return direct
	}

	var wrapped struct {
		Channels []Document `json:"channels"`
	}
	if err := json.Unmarshal(document, &wrapped); err == nil {
		return wrapped.Channels
	}
	return nil
}

// Text returns the first non-empty trimmed string among the given keys.
func (d Document) Text(keys ...string) string {
	for _, key := range keys {
		if s, ok := d[key].(string); ok {
			if t := strings.TrimSpace(s); t != "" {
				return t
			}
		}
	}
	return ""
}

// Number returns the first finite numeric value among the given keys,
// falling back to def. Malformed values fall back rather than error.
func (d Document) Number(def float64, keys ...string) float64 {
	if f, ok := d.Float(keys...); ok {
		return f
	}
	return def
}

// Float returns the first finite numeric value among the given keys.
func (d Document) Float(keys ...string) (float64, bool) {
	for _, key := range keys {
		v, ok := d[key]
		if !ok {
			continue
		}
		f, ok := asFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		return f, true
	}
	return 0, false
}

// Int returns the first numeric value among the given keys truncated to
// int, falling back to def.
func (d Document) Int(def int, keys ...string) int {
	for _, key := range keys {
		v, ok := d[key]
		if !ok {
			continue
		}
		if f, ok := asFloat(v); ok {
			return int(f)
		}
	}
	return def
}

// Object returns a nested object value, if present.
func (d Document) Object(key string) (Document, bool) {
	if m, ok := d[key].(map[string]any); ok {
		return Document(m), true
	}
	return nil, false
}

// Array returns the first nested array of objects among the given keys.
// Non-object elements are skipped. ok reports whether an array key was
// present at all, even if it held no usable objects.
func (d Document) Array(keys ...string) ([]Document, bool) {
	for _, key := range keys {
		raw, present := d[key]
		if !present {
			continue
		}
		items, isArray := raw.([]any)
		if !isArray {
			continue
		}
		out := make([]Document, 0, len(items))
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				out = append(out, Document(m))
			}
		}
		return out, true
	}
	return nil, false
}

// asFloat converts JSON number representations to float64.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

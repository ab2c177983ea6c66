package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Shape identifies which wrapper a list-returning endpoint used.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeEmpty
	ShapeBareArray
	ShapeItemsWrapper
	ShapeDataWrapper
)

func (s Shape) String() string {
	switch s {
	case ShapeEmpty:
		return "empty"
	case ShapeBareArray:
		return "bare_array"
	case ShapeItemsWrapper:
		return "items_wrapper"
	case ShapeDataWrapper:
		return "data_wrapper"
	default:
		return "unknown"
	}
}

var ErrUnknownShape = errors.New("unrecognized list payload shape")

type wrapper struct {
	Items json.RawMessage `json:"items"`
	Data  json.RawMessage `json:"data"`
}

// DetectShape classifies raw and returns the JSON array holding the list items.
//
//	[...]                  -> ShapeBareArray
//	{"items": [...]}       -> ShapeItemsWrapper
//	{"data": [...]}        -> ShapeDataWrapper
//	{"data": {"items": []}} -> ShapeDataWrapper
//	null / empty body      -> ShapeEmpty
func DetectShape(raw []byte) (Shape, json.RawMessage) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ShapeEmpty, nil
	}

	switch trimmed[0] {
	case '[':
		return ShapeBareArray, trimmed
	case '{':
		var w wrapper
		if err := json.Unmarshal(trimmed, &w); err != nil {
			return ShapeUnknown, nil
		}
		if isArray(w.Items) {
			return ShapeItemsWrapper, w.Items
		}
		if isArray(w.Data) {
			return ShapeDataWrapper, w.Data
		}
		var inner wrapper
		if isObject(w.Data) && json.Unmarshal(w.Data, &inner) == nil && isArray(inner.Items) {
			return ShapeDataWrapper, inner.Items
		}
		if isNull(w.Items) || isNull(w.Data) {
			return ShapeEmpty, nil
		}
	}
	return ShapeUnknown, nil
}

// DecodeList decodes a list payload in any supported shape into an ordered slice.
func DecodeList[T any](raw []byte) ([]T, Shape, error) {
	shape, items := DetectShape(raw)
	switch shape {
	case ShapeEmpty:
		return []T{}, shape, nil
	case ShapeBareArray, ShapeItemsWrapper, ShapeDataWrapper:
		var out []T
		if err := json.Unmarshal(items, &out); err != nil {
			return nil, shape, fmt.Errorf("decode %s payload: %w", shape, err)
		}
		if out == nil {
			out = []T{}
		}
		return out, shape, nil
	default:
		return nil, shape, ErrUnknownShape
	}
}

// DecodeObject unwraps a single-object payload that may be nested under "data".
func DecodeObject[T any](raw []byte, out *T) error {
	trimmed := bytes.TrimSpace(raw)
	var w struct {
		Data json.RawMessage `json:"data"`
	}
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Unmarshal(trimmed, &w) == nil && isObject(w.Data) {
		trimmed = w.Data
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("decode object payload: %w", err)
	}
	return nil
}

func isArray(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '['
}

func isObject(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '{'
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

package tado

import (
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var errMalformedJSON = errors.New("malformed JSON")

// node is one value of a decoded response. Every accessor checks that the
// field exists and has the expected kind before converting it.
type node struct {
	v    jsoniter.Any
	path string
}

func parseTree(data []byte) (node, error) {
	if !jsoniter.Valid(data) {
		return node{}, errMalformedJSON
	}
	return node{v: jsoniter.Get(data), path: "$"}, nil
}

func kindName(t jsoniter.ValueType) string {
	switch t {
	case jsoniter.StringValue:
		return "string"
	case jsoniter.NumberValue:
		return "number"
	case jsoniter.NilValue:
		return "null"
	case jsoniter.BoolValue:
		return "bool"
	case jsoniter.ArrayValue:
		return "array"
	case jsoniter.ObjectValue:
		return "object"
	default:
		return "nothing"
	}
}

func (n node) kind() jsoniter.ValueType {
	return n.v.ValueType()
}

func (n node) expect(want jsoniter.ValueType) error {
	if got := n.kind(); got != want {
		return fmt.Errorf("%s: expected %s, got %s", n.path, kindName(want), kindName(got))
	}
	return nil
}

// has reports whether n is an object containing key
func (n node) has(key string) bool {
	return n.kind() == jsoniter.ObjectValue && n.v.Get(key).ValueType() != jsoniter.InvalidValue
}

// field walks a chain of object keys
func (n node) field(keys ...string) (node, error) {
	cur := n
	for _, key := range keys {
		if err := cur.expect(jsoniter.ObjectValue); err != nil {
			return node{}, err
		}
		child := cur.v.Get(key)
		path := cur.path + "." + key
		if child.ValueType() == jsoniter.InvalidValue {
			return node{}, fmt.Errorf("%s: missing", path)
		}
		cur = node{v: child, path: path}
	}
	return cur, nil
}

func (n node) str(keys ...string) (string, error) {
	f, err := n.field(keys...)
	if err != nil {
		return "", err
	}
	if err := f.expect(jsoniter.StringValue); err != nil {
		return "", err
	}
	return f.v.ToString(), nil
}

func (n node) num(keys ...string) (float64, error) {
	f, err := n.field(keys...)
	if err != nil {
		return 0, err
	}
	if err := f.expect(jsoniter.NumberValue); err != nil {
		return 0, err
	}
	val := f.v.ToFloat64()
	if err := f.v.LastError(); err != nil {
		return 0, fmt.Errorf("%s: %w", f.path, err)
	}
	return val, nil
}

func (n node) integer(keys ...string) (int64, error) {
	f, err := n.field(keys...)
	if err != nil {
		return 0, err
	}
	if err := f.expect(jsoniter.NumberValue); err != nil {
		return 0, err
	}
	val := f.v.ToInt64()
	if err := f.v.LastError(); err != nil {
		return 0, fmt.Errorf("%s: %w", f.path, err)
	}
	return val, nil
}

// elements returns the members of an array node
func (n node) elements() ([]node, error) {
	if err := n.expect(jsoniter.ArrayValue); err != nil {
		return nil, err
	}
	size := n.v.Size()
	out := make([]node, 0, size)
	for i := 0; i < size; i++ {
		out = append(out, node{v: n.v.Get(i), path: fmt.Sprintf("%s[%d]", n.path, i)})
	}
	return out, nil
}

// hasError reports whether n is an error reply ("error" or "errors" present)
func (n node) hasError() bool {
	return n.has("error") || n.has("errors")
}

// errorMessage extracts a readable message from an error reply
func (n node) errorMessage() string {
	if msg, err := n.str("error"); err == nil {
		if desc, err := n.str("error_description"); err == nil && desc != "" {
			return msg + " (" + desc + ")"
		}
		return msg
	}

	if list, err := n.field("errors"); err == nil {
		if entries, err := list.elements(); err == nil {
			msgs := make([]string, 0, len(entries))
			for _, e := range entries {
				if title, err := e.str("title"); err == nil {
					msgs = append(msgs, title)
				} else if code, err := e.str("code"); err == nil {
					msgs = append(msgs, code)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}

	return "unspecified error"
}

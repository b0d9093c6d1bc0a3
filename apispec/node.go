package apispec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v4"
)

// Kind identifies the JSON type held by a Node.
type Kind uint8

const (
	// KindNull is the JSON null value. It is the zero Kind.
	KindNull Kind = iota
	// KindBool is a JSON boolean.
	KindBool
	// KindNumber is a JSON number. Integers beyond float64 precision keep
	// their exact decimal text.
	KindNumber
	// KindString is a JSON string.
	KindString
	// KindArray is a JSON array.
	KindArray
	// KindObject is a JSON object with ordered members.
	KindObject
)

var kindNames = [...]string{"null", "bool", "number", "string", "array", "object"}

// String returns the JSON type name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Member is one key/value pair of an object Node.
type Member struct {
	Key   string
	Value Node
}

// Node is an immutable JSON value tree. Object members keep their document
// order; Canonical produces the order-independent encoding used for hashing.
//
// The zero Node is JSON null.
type Node struct {
	kind    Kind
	boolean bool
	number  float64
	lit     string
	str     string
	items   []Node
	members []Member
}

// Null returns a null Node.
func Null() Node { return Node{} }

// Bool returns a boolean Node.
func Bool(b bool) Node { return Node{kind: KindBool, boolean: b} }

// Number returns a number Node.
func Number(f float64) Node { return Node{kind: KindNumber, number: f} }

// String returns a string Node.
func String(s string) Node { return Node{kind: KindString, str: s} }

// Array returns an array Node holding copies of items.
func Array(items ...Node) Node {
	return Node{kind: KindArray, items: append([]Node{}, items...)}
}

// Object returns an object Node. A later member with a repeated key replaces
// the earlier one in place.
func Object(members ...Member) Node {
	n := Node{kind: KindObject, members: make([]Member, 0, len(members))}
	for _, m := range members {
		n.members = setMember(n.members, m)
	}
	return n
}

// M is shorthand for building a Member.
func M(key string, value Node) Member { return Member{Key: key, Value: value} }

func setMember(members []Member, m Member) []Member {
	for i := range members {
		if members[i].Key == m.Key {
			members[i].Value = m.Value
			return members
		}
	}
	return append(members, m)
}

// Kind reports the JSON type of n.
func (n Node) Kind() Kind { return n.kind }

// IsNull reports whether n is JSON null.
func (n Node) IsNull() bool { return n.kind == KindNull }

// IsPrimitive reports whether n is a scalar (null, bool, number or string).
func (n Node) IsPrimitive() bool { return n.kind < KindArray }

// BoolValue returns the boolean value and whether n is a bool.
func (n Node) BoolValue() (bool, bool) { return n.boolean, n.kind == KindBool }

// NumberValue returns the numeric value and whether n is a number. Integers
// beyond float64 precision are rounded; Canonical keeps them exact.
func (n Node) NumberValue() (float64, bool) { return n.number, n.kind == KindNumber }

// StringValue returns the string value and whether n is a string.
func (n Node) StringValue() (string, bool) { return n.str, n.kind == KindString }

// Items returns a copy of the array elements, or nil when n is not an array.
func (n Node) Items() []Node {
	if n.kind != KindArray {
		return nil
	}
	return append([]Node{}, n.items...)
}

// Members returns a copy of the object members in document order, or nil
// when n is not an object.
func (n Node) Members() []Member {
	if n.kind != KindObject {
		return nil
	}
	return append([]Member{}, n.members...)
}

// Len returns the number of array items or object members.
func (n Node) Len() int {
	switch n.kind {
	case KindArray:
		return len(n.items)
	case KindObject:
		return len(n.members)
	default:
		return 0
	}
}

// Get returns the member value for key when n is an object.
func (n Node) Get(key string) (Node, bool) {
	if n.kind != KindObject {
		return Node{}, false
	}
	for _, m := range n.members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Node{}, false
}

// Equal reports whether n and other encode to the same canonical JSON.
func (n Node) Equal(other Node) bool {
	return bytes.Equal(n.Canonical(), other.Canonical())
}

// Canonical returns the compact JSON encoding of n with object keys sorted
// lexicographically at every depth.
func (n Node) Canonical() []byte {
	var buf bytes.Buffer
	n.encode(&buf, true)
	return buf.Bytes()
}

// MarshalJSON encodes n with object members in document order.
func (n Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	n.encode(&buf, false)
	return buf.Bytes(), nil
}

func (n Node) encode(buf *bytes.Buffer, sorted bool) {
	switch n.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(n.boolean))
	case KindNumber:
		if n.lit != "" {
			buf.WriteString(n.lit)
			break
		}
		buf.WriteString(formatNumber(n.number))
	case KindString:
		writeString(buf, n.str)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			item.encode(buf, sorted)
		}
		buf.WriteByte(']')
	case KindObject:
		members := n.members
		if sorted {
			members = append([]Member{}, members...)
			sort.Slice(members, func(i, j int) bool { return members[i].Key < members[j].Key })
		}
		buf.WriteByte('{')
		for i, m := range members {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, m.Key)
			buf.WriteByte(':')
			m.Value.encode(buf, sorted)
		}
		buf.WriteByte('}')
	}
}

// formatNumber follows encoding/json float formatting.
func formatNumber(f float64) string {
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	s := strconv.FormatFloat(f, format, -1, 64)
	if format == 'e' {
		// clean up e-09 to e-9
		n := len(s)
		if n >= 4 && s[n-4] == 'e' && s[n-3] == '-' && s[n-2] == '0' {
			s = s[:n-2] + s[n-1:]
		}
	}
	return s
}

// maxExactInt bounds the integers every float64 holds exactly.
const maxExactInt = 1 << 53

// integer returns a number Node for bi, keeping its decimal text when a
// float64 would round it.
func integer(bi *big.Int) Node {
	if bi.IsInt64() {
		if v := bi.Int64(); v >= -maxExactInt && v <= maxExactInt {
			return Number(float64(v))
		}
	}
	f, _ := new(big.Float).SetInt(bi).Float64()
	return Node{kind: KindNumber, number: f, lit: bi.String()}
}

// numberLiteral converts JSON number text into a Node.
func numberLiteral(text string) (Node, error) {
	if !strings.ContainsAny(text, ".eE") {
		if bi, ok := new(big.Int).SetString(text, 10); ok {
			return integer(bi), nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Node{}, fmt.Errorf("apispec: invalid number %q: %w", text, err)
	}
	return Number(f), nil
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	// Encode terminates with a newline.
	buf.Truncate(buf.Len() - 1)
}

// UnmarshalJSON decodes a JSON document into n, keeping object member order.
func (n *Node) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSON(dec)
	if err != nil {
		return err
	}
	if _, err := dec.Token(); err == nil {
		return fmt.Errorf("apispec: trailing data after JSON value")
	}
	*n = v
	return nil
}

func decodeJSON(dec *json.Decoder) (Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return Node{}, err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return numberLiteral(t.String())
	case json.Delim:
		switch t {
		case '[':
			out := Node{kind: KindArray, items: []Node{}}
			for dec.More() {
				item, err := decodeJSON(dec)
				if err != nil {
					return Node{}, err
				}
				out.items = append(out.items, item)
			}
			_, err := dec.Token()
			return out, err
		case '{':
			out := Node{kind: KindObject, members: []Member{}}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Node{}, err
				}
				key, _ := keyTok.(string)
				value, err := decodeJSON(dec)
				if err != nil {
					return Node{}, err
				}
				out.members = setMember(out.members, Member{Key: key, Value: value})
			}
			_, err := dec.Token()
			return out, err
		}
	}
	return Node{}, fmt.Errorf("apispec: unexpected JSON token %v", tok)
}

// UnmarshalYAML decodes a YAML node into n, keeping mapping order. Aliases
// are expanded; mapping keys must be scalars.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	v, err := fromYAML(value, 0)
	if err != nil {
		return err
	}
	*n = v
	return nil
}

// maxYAMLDepth bounds alias expansion so self-referencing anchors fail
// instead of recursing forever.
const maxYAMLDepth = 512

func fromYAML(value *yaml.Node, depth int) (Node, error) {
	if depth > maxYAMLDepth {
		return Node{}, fmt.Errorf("apispec: YAML nesting exceeds %d levels", maxYAMLDepth)
	}
	switch value.Kind {
	case yaml.DocumentNode:
		if len(value.Content) == 0 {
			return Null(), nil
		}
		return fromYAML(value.Content[0], depth+1)
	case yaml.AliasNode:
		if value.Alias == nil {
			return Null(), nil
		}
		return fromYAML(value.Alias, depth+1)
	case yaml.SequenceNode:
		out := Node{kind: KindArray, items: make([]Node, 0, len(value.Content))}
		for _, c := range value.Content {
			item, err := fromYAML(c, depth+1)
			if err != nil {
				return Node{}, err
			}
			out.items = append(out.items, item)
		}
		return out, nil
	case yaml.MappingNode:
		out := Node{kind: KindObject, members: make([]Member, 0, len(value.Content)/2)}
		for i := 0; i+1 < len(value.Content); i += 2 {
			k := value.Content[i]
			if k.Kind == yaml.AliasNode && k.Alias != nil {
				k = k.Alias
			}
			if k.Kind != yaml.ScalarNode {
				return Node{}, fmt.Errorf("apispec: line %d: mapping key must be a scalar", k.Line)
			}
			v, err := fromYAML(value.Content[i+1], depth+1)
			if err != nil {
				return Node{}, err
			}
			out.members = setMember(out.members, Member{Key: k.Value, Value: v})
		}
		return out, nil
	case yaml.ScalarNode:
		var raw any
		if err := value.Decode(&raw); err != nil {
			return Node{}, err
		}
		if _, isFloat := raw.(float64); isFloat {
			// Integers wider than 64 bits resolve as floats.
			if bi, ok := new(big.Int).SetString(strings.ReplaceAll(value.Value, "_", ""), 10); ok {
				return integer(bi), nil
			}
		}
		return NodeFromValue(raw)
	}
	return Node{}, fmt.Errorf("apispec: unsupported YAML node kind %v", value.Kind)
}

// MarshalYAML renders n as a YAML node in document order.
func (n Node) MarshalYAML() (any, error) {
	return n.toYAML(), nil
}

func (n Node) toYAML() *yaml.Node {
	switch n.kind {
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(n.boolean)}
	case KindNumber:
		if n.lit != "" {
			// Beyond 64 bits YAML resolves plain digits as a float.
			tag := "!!float"
			if _, err := strconv.ParseInt(n.lit, 10, 64); err == nil {
				tag = "!!int"
			} else if _, err := strconv.ParseUint(n.lit, 10, 64); err == nil {
				tag = "!!int"
			}
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: n.lit}
		}
		tag := "!!float"
		if n.number == math.Trunc(n.number) {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: formatNumber(n.number)}
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.str}
	case KindArray:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range n.items {
			out.Content = append(out.Content, item.toYAML())
		}
		return out
	case KindObject:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, m := range n.members {
			out.Content = append(out.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: m.Key},
				m.Value.toYAML())
		}
		return out
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

// NodeFromValue converts a decoded JSON or YAML value into a Node. Maps are
// emitted with sorted keys since Go maps carry no order. Values that have no
// JSON representation (channels, funcs, non-string map keys, NaN) are
// rejected.
func NodeFromValue(v any) (Node, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case Node:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return numberLiteral(t.String())
	case time.Time:
		return String(t.UTC().Format(time.RFC3339Nano)), nil
	case []any:
		out := Node{kind: KindArray, items: make([]Node, 0, len(t))}
		for i, item := range t {
			n, err := NodeFromValue(item)
			if err != nil {
				return Node{}, fmt.Errorf("[%d]: %w", i, err)
			}
			out.items = append(out.items, n)
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := Node{kind: KindObject, members: make([]Member, 0, len(t))}
		for _, k := range keys {
			n, err := NodeFromValue(t[k])
			if err != nil {
				return Node{}, fmt.Errorf("%s: %w", k, err)
			}
			out.members = append(out.members, Member{Key: k, Value: n})
		}
		return out, nil
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			ks, ok := k.(string)
			if !ok {
				return Node{}, fmt.Errorf("apispec: non-string object key %v", k)
			}
			m[ks] = val
		}
		return NodeFromValue(m)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return integer(big.NewInt(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return integer(new(big.Int).SetUint64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Node{}, fmt.Errorf("apispec: %v has no JSON representation", f)
		}
		return Number(f), nil
	}
	return Node{}, fmt.Errorf("apispec: unsupported value type %T", v)
}

// ParseNode decodes a JSON or YAML document into a Node.
func ParseNode(data []byte) (Node, error) {
	var n Node
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		if err := json.Unmarshal(trimmed, &n); err == nil {
			return n, nil
		}
	}
	if err := yaml.Unmarshal(data, &n); err != nil {
		return Node{}, err
	}
	return n, nil
}

// Package fingerprint canonicalizes endpoints and computes the content hashes
// used as the equality oracle for change detection.
//
// Normalize reduces an endpoint to an order-independent, volatility-free form:
//
//   - the method is upper-cased
//   - parameters are sorted by (in, name); duplicates are kept
//   - response codes become a sorted set
//   - the request body schema has its keys sorted and documentation-only
//     keywords (example, examples, default, description, title) removed
//
// Fingerprint hashes the canonical JSON of a normalized endpoint with SHA-256.
// SpecHash combines all endpoint fingerprints of a spec into one digest that
// serves as a cheap "anything changed" pre-check.
package fingerprint

import (
	"sort"
	"strings"

	"github.com/kzaorski/jmeter-test-generator-sub001/apispec"
)

// volatileKeys are schema keywords that never affect request shape.
var volatileKeys = map[string]bool{
	"example":     true,
	"examples":    true,
	"default":     true,
	"description": true,
	"title":       true,
}

// namedSchemaMaps hold user-chosen names mapped to subschemas. Their member
// names are data, not keywords, so volatile-key removal does not apply to
// them.
var namedSchemaMaps = map[string]bool{
	"properties":        true,
	"patternProperties": true,
	"definitions":       true,
	"$defs":             true,
}

// Normalized is the canonical form of an endpoint. Parameters and
// ResponseCodes are never nil.
type Normalized struct {
	Path              string
	Method            string
	OperationID       string
	HasRequestBody    bool
	RequestBodySchema *apispec.Node
	Parameters        []apispec.Parameter
	ResponseCodes     []string
}

// Key returns the endpoint identity.
func (n Normalized) Key() apispec.Key {
	return apispec.Key{Path: n.Path, Method: n.Method}
}

// Endpoint converts the normalized form back to an Endpoint. Normalizing the
// result yields n again.
func (n Normalized) Endpoint() apispec.Endpoint {
	e := apispec.Endpoint{
		Path:           n.Path,
		Method:         n.Method,
		OperationID:    n.OperationID,
		HasRequestBody: n.HasRequestBody,
		Parameters:     append([]apispec.Parameter{}, n.Parameters...),
		ResponseCodes:  append([]string{}, n.ResponseCodes...),
	}
	if n.RequestBodySchema != nil {
		schema := *n.RequestBodySchema
		e.RequestBodySchema = &schema
	}
	return e
}

// Normalize returns the canonical form of e. It is pure and total; e is not
// modified.
func Normalize(e apispec.Endpoint) Normalized {
	n := Normalized{
		Path:           e.Path,
		Method:         strings.ToUpper(e.Method),
		OperationID:    e.OperationID,
		HasRequestBody: e.HasRequestBody,
		Parameters:     append([]apispec.Parameter{}, e.Parameters...),
		ResponseCodes:  codeSet(e.ResponseCodes),
	}
	sort.SliceStable(n.Parameters, func(i, j int) bool {
		a, b := n.Parameters[i], n.Parameters[j]
		if a.In != b.In {
			return a.In < b.In
		}
		return a.Name < b.Name
	})
	if e.RequestBodySchema != nil {
		schema := NormalizeSchema(*e.RequestBodySchema)
		n.RequestBodySchema = &schema
	}
	return n
}

func codeSet(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// NormalizeSchema recursively canonicalizes a schema tree: object keys are
// sorted, volatile keywords dropped, arrays of primitives sorted. Arrays that
// contain objects or arrays keep their order; their elements are still
// normalized.
func NormalizeSchema(n apispec.Node) apispec.Node {
	switch n.Kind() {
	case apispec.KindObject:
		return normalizeObject(n, true)
	case apispec.KindArray:
		return normalizeArray(n)
	default:
		return n
	}
}

func normalizeObject(n apispec.Node, dropVolatile bool) apispec.Node {
	members := n.Members()
	out := make([]apispec.Member, 0, len(members))
	for _, m := range members {
		if dropVolatile && volatileKeys[m.Key] {
			continue
		}
		value := m.Value
		if namedSchemaMaps[m.Key] && value.Kind() == apispec.KindObject {
			value = normalizeNamedSchemas(value)
		} else {
			value = NormalizeSchema(value)
		}
		out = append(out, apispec.M(m.Key, value))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return apispec.Object(out...)
}

// normalizeNamedSchemas keeps every member name and normalizes each value as
// a schema.
func normalizeNamedSchemas(n apispec.Node) apispec.Node {
	members := n.Members()
	out := make([]apispec.Member, 0, len(members))
	for _, m := range members {
		out = append(out, apispec.M(m.Key, NormalizeSchema(m.Value)))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return apispec.Object(out...)
}

func normalizeArray(n apispec.Node) apispec.Node {
	items := n.Items()
	allPrimitive := true
	for i, item := range items {
		if !item.IsPrimitive() {
			allPrimitive = false
		}
		items[i] = NormalizeSchema(item)
	}
	if allPrimitive {
		sort.SliceStable(items, func(i, j int) bool { return primitiveLess(items[i], items[j]) })
	}
	return apispec.Array(items...)
}

// primitiveLess orders scalars by kind (null, bool, number, string), then by
// value.
func primitiveLess(a, b apispec.Node) bool {
	if a.Kind() != b.Kind() {
		return a.Kind() < b.Kind()
	}
	switch a.Kind() {
	case apispec.KindBool:
		av, _ := a.BoolValue()
		bv, _ := b.BoolValue()
		return !av && bv
	case apispec.KindNumber:
		av, _ := a.NumberValue()
		bv, _ := b.NumberValue()
		if av != bv {
			return av < bv
		}
		// Wide integers can round to the same float64.
		return string(a.Canonical()) < string(b.Canonical())
	case apispec.KindString:
		av, _ := a.StringValue()
		bv, _ := b.StringValue()
		return av < bv
	default:
		return false
	}
}

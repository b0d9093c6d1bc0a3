package apispec

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kzaorski/jmeter-test-generator-sub001/jmxerrors"
	"go.yaml.in/yaml/v4"
)

// Parameter locations.
const (
	InQuery  = "query"
	InPath   = "path"
	InHeader = "header"
	InCookie = "cookie"
)

// Parameter is the comparison-relevant part of an operation parameter.
type Parameter struct {
	Name     string `json:"name"     yaml:"name"`
	In       string `json:"in"       yaml:"in"`
	Required bool   `json:"required" yaml:"required"`
}

// Key returns the (in, name) identity of the parameter.
func (p Parameter) Key() ParamKey { return ParamKey{In: p.In, Name: p.Name} }

// ParamKey identifies a parameter within one endpoint.
type ParamKey struct {
	In   string
	Name string
}

// Endpoint is one (path, method) operation of an API spec. Endpoints are
// values: components copy rather than mutate them.
type Endpoint struct {
	Path        string
	Method      string
	OperationID string
	Summary     string

	HasRequestBody bool
	// RequestBodySchema is nil when the operation has no request body schema,
	// which is distinct from an empty schema object.
	RequestBodySchema *Node

	Parameters    []Parameter
	ResponseCodes []string

	// Fingerprint is set on endpoints restored from a snapshot and holds the
	// fingerprint recorded before redaction.
	Fingerprint string
}

// Key returns the identity of the endpoint with the method upper-cased.
func (e Endpoint) Key() Key { return Key{Path: e.Path, Method: strings.ToUpper(e.Method)} }

// Key identifies an endpoint within a spec.
type Key struct {
	Path   string
	Method string
}

// String renders the key as "METHOD path".
func (k Key) String() string { return k.Method + " " + k.Path }

// Spec is the normalized form of an API specification produced by the
// parsing front-end. A nil Endpoints slice means the collection is missing.
type Spec struct {
	Title     string     `json:"title,omitempty"    yaml:"title,omitempty"`
	Version   string     `json:"version,omitempty"  yaml:"version,omitempty"`
	BaseURL   string     `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Endpoints []Endpoint `json:"endpoints"          yaml:"endpoints"`
}

// Find returns the first endpoint matching the given path and method.
func (s *Spec) Find(path, method string) (Endpoint, bool) {
	if s == nil {
		return Endpoint{}, false
	}
	want := Key{Path: path, Method: strings.ToUpper(method)}
	for _, e := range s.Endpoints {
		if e.Key() == want {
			return e, true
		}
	}
	return Endpoint{}, false
}

// Endpoint record field names.
const (
	fieldPath        = "path"
	fieldMethod      = "method"
	fieldOperationID = "operationId"
	fieldSummary     = "summary"
	fieldRequestBody = "requestBody"
	fieldSchema      = "request_body_schema"
	fieldParameters  = "parameters"
	fieldResponses   = "responses"
	fieldFingerprint = "fingerprint"
)

// EndpointToNode renders an endpoint as a record using the persisted field
// names. An absent schema is written as null.
func EndpointToNode(e Endpoint) Node {
	params := make([]Node, 0, len(e.Parameters))
	for _, p := range e.Parameters {
		params = append(params, Object(
			M("name", String(p.Name)),
			M("in", String(p.In)),
			M("required", Bool(p.Required)),
		))
	}
	codes := make([]Node, 0, len(e.ResponseCodes))
	for _, c := range e.ResponseCodes {
		codes = append(codes, String(c))
	}
	schema := Null()
	if e.RequestBodySchema != nil {
		schema = *e.RequestBodySchema
	}

	members := []Member{
		M(fieldPath, String(e.Path)),
		M(fieldMethod, String(e.Method)),
		M(fieldOperationID, String(e.OperationID)),
	}
	if e.Summary != "" {
		members = append(members, M(fieldSummary, String(e.Summary)))
	}
	members = append(members,
		M(fieldRequestBody, Bool(e.HasRequestBody)),
		M(fieldSchema, schema),
		M(fieldParameters, Array(params...)),
		M(fieldResponses, Array(codes...)),
	)
	if e.Fingerprint != "" {
		members = append(members, M(fieldFingerprint, String(e.Fingerprint)))
	}
	return Object(members...)
}

// EndpointFromNode validates a persisted or externally supplied endpoint
// record. path and method are required; responses may be a list of codes or
// an object keyed by code.
func EndpointFromNode(n Node) (Endpoint, error) {
	if n.Kind() != KindObject {
		return Endpoint{}, &jmxerrors.FormatError{Message: "endpoint must be an object, got " + n.Kind().String()}
	}
	var e Endpoint
	var err error
	if e.Path, err = requiredString(n, fieldPath); err != nil {
		return Endpoint{}, err
	}
	if e.Method, err = requiredString(n, fieldMethod); err != nil {
		return Endpoint{}, err
	}
	if e.OperationID, err = optionalString(n, fieldOperationID); err != nil {
		return Endpoint{}, err
	}
	if e.Summary, err = optionalString(n, fieldSummary); err != nil {
		return Endpoint{}, err
	}
	if e.Fingerprint, err = optionalString(n, fieldFingerprint); err != nil {
		return Endpoint{}, err
	}
	if v, ok := n.Get(fieldRequestBody); ok && !v.IsNull() {
		b, isBool := v.BoolValue()
		if !isBool {
			return Endpoint{}, &jmxerrors.FormatError{Field: fieldRequestBody, Message: "expected boolean"}
		}
		e.HasRequestBody = b
	}
	if v, ok := n.Get(fieldSchema); ok && !v.IsNull() {
		schema := v
		e.RequestBodySchema = &schema
	}
	if e.Parameters, err = parametersFromNode(n); err != nil {
		return Endpoint{}, err
	}
	if e.ResponseCodes, err = responsesFromNode(n); err != nil {
		return Endpoint{}, err
	}
	return e, nil
}

func requiredString(n Node, field string) (string, error) {
	v, ok := n.Get(field)
	if !ok {
		return "", &jmxerrors.FormatError{Field: field}
	}
	s, isString := v.StringValue()
	if !isString || s == "" {
		return "", &jmxerrors.FormatError{Field: field, Message: "expected non-empty string"}
	}
	return s, nil
}

func optionalString(n Node, field string) (string, error) {
	v, ok := n.Get(field)
	if !ok || v.IsNull() {
		return "", nil
	}
	s, isString := v.StringValue()
	if !isString {
		return "", &jmxerrors.FormatError{Field: field, Message: "expected string"}
	}
	return s, nil
}

func parametersFromNode(n Node) ([]Parameter, error) {
	v, ok := n.Get(fieldParameters)
	if !ok || v.IsNull() {
		return nil, nil
	}
	if v.Kind() != KindArray {
		return nil, &jmxerrors.FormatError{Field: fieldParameters, Message: "expected array"}
	}
	items := v.Items()
	params := make([]Parameter, 0, len(items))
	for i, item := range items {
		field := fmt.Sprintf("%s[%d]", fieldParameters, i)
		if item.Kind() != KindObject {
			return nil, &jmxerrors.FormatError{Field: field, Message: "expected object"}
		}
		var p Parameter
		var err error
		if p.Name, err = optionalString(item, "name"); err != nil {
			return nil, &jmxerrors.FormatError{Field: field + ".name", Message: "expected string"}
		}
		if p.In, err = optionalString(item, "in"); err != nil {
			return nil, &jmxerrors.FormatError{Field: field + ".in", Message: "expected string"}
		}
		if r, ok := item.Get("required"); ok {
			p.Required, _ = r.BoolValue()
		}
		params = append(params, p)
	}
	return params, nil
}

func responsesFromNode(n Node) ([]string, error) {
	v, ok := n.Get(fieldResponses)
	if !ok || v.IsNull() {
		return nil, nil
	}
	switch v.Kind() {
	case KindObject:
		members := v.Members()
		codes := make([]string, 0, len(members))
		for _, m := range members {
			codes = append(codes, m.Key)
		}
		sort.Strings(codes)
		return codes, nil
	case KindArray:
		items := v.Items()
		codes := make([]string, 0, len(items))
		for i, item := range items {
			if s, ok := item.StringValue(); ok {
				codes = append(codes, s)
				continue
			}
			if f, ok := item.NumberValue(); ok {
				codes = append(codes, strconv.FormatFloat(f, 'f', -1, 64))
				continue
			}
			return nil, &jmxerrors.FormatError{Field: fmt.Sprintf("%s[%d]", fieldResponses, i), Message: "expected status code"}
		}
		return codes, nil
	default:
		return nil, &jmxerrors.FormatError{Field: fieldResponses, Message: "expected array or object"}
	}
}

// MarshalJSON encodes the endpoint as its persisted record.
func (e Endpoint) MarshalJSON() ([]byte, error) {
	return EndpointToNode(e).MarshalJSON()
}

// UnmarshalJSON decodes a persisted endpoint record.
func (e *Endpoint) UnmarshalJSON(data []byte) error {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	decoded, err := EndpointFromNode(n)
	if err != nil {
		return err
	}
	*e = decoded
	return nil
}

// MarshalYAML renders the endpoint as its persisted record.
func (e Endpoint) MarshalYAML() (any, error) {
	return EndpointToNode(e).MarshalYAML()
}

// UnmarshalYAML decodes a persisted endpoint record.
func (e *Endpoint) UnmarshalYAML(value *yaml.Node) error {
	var n Node
	if err := n.UnmarshalYAML(value); err != nil {
		return err
	}
	decoded, err := EndpointFromNode(n)
	if err != nil {
		return err
	}
	*e = decoded
	return nil
}

// DecodeSpec builds a Spec from a JSON or YAML document shaped like
// {endpoints: [...], version, title, base_url}. A missing endpoints key or a
// malformed endpoint entry is a *jmxerrors.FormatError naming the field.
func DecodeSpec(data []byte) (*Spec, error) {
	doc, err := ParseNode(data)
	if err != nil {
		return nil, &jmxerrors.FormatError{Message: "undecodable document: " + err.Error()}
	}
	return SpecFromNode(doc)
}

// SpecFromNode is DecodeSpec over an already decoded document.
func SpecFromNode(doc Node) (*Spec, error) {
	if doc.Kind() != KindObject {
		return nil, &jmxerrors.FormatError{Message: "spec must be an object, got " + doc.Kind().String()}
	}
	spec := &Spec{}
	spec.Title, _ = optionalString(doc, "title")
	spec.Version, _ = optionalString(doc, "version")
	spec.BaseURL, _ = optionalString(doc, "base_url")

	eps, ok := doc.Get("endpoints")
	if !ok || eps.IsNull() {
		return nil, &jmxerrors.FormatError{Field: "endpoints"}
	}
	if eps.Kind() != KindArray {
		return nil, &jmxerrors.FormatError{Field: "endpoints", Message: "expected array"}
	}
	items := eps.Items()
	spec.Endpoints = make([]Endpoint, 0, len(items))
	for i, item := range items {
		e, err := EndpointFromNode(item)
		if err != nil {
			return nil, prefixField(err, fmt.Sprintf("endpoints[%d]", i))
		}
		spec.Endpoints = append(spec.Endpoints, e)
	}
	return spec, nil
}

func prefixField(err error, prefix string) error {
	var fe *jmxerrors.FormatError
	if !errors.As(err, &fe) {
		return err
	}
	out := *fe
	if out.Field == "" {
		out.Field = prefix
	} else {
		out.Field = prefix + "." + out.Field
	}
	return &out
}

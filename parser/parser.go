package parser

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kzaorski/jmeter-test-generator-sub001/apispec"
	"github.com/kzaorski/jmeter-test-generator-sub001/jmxerrors"
	"github.com/kzaorski/jmeter-test-generator-sub001/logging"
)

// DefaultBaseURL is used when a document names no server.
const DefaultBaseURL = "http://localhost:8080"

// methodOrder is the order endpoints of one path are emitted in.
var methodOrder = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS", "TRACE"}

// Kind identifies the document family a spec was loaded from.
type Kind string

const (
	// KindOpenAPI is an OpenAPI 3.x document.
	KindOpenAPI Kind = "openapi"
	// KindSwagger is a Swagger 2.0 document.
	KindSwagger Kind = "swagger"
)

// Parser loads OpenAPI 3.x and Swagger 2.0 documents into the endpoint model.
type Parser struct {
	// AllowExternalRefs lets $ref point at other files relative to the
	// document. Only honored when loading from a path.
	AllowExternalRefs bool
	// Logger is the structured logger for debug output
	// If nil, logging is disabled (default)
	Logger logging.Logger
}

// New creates a new Parser instance with default settings
func New() *Parser {
	return &Parser{}
}

func (p *Parser) log() logging.Logger {
	return logging.OrNop(p.Logger)
}

// Load reads and parses the document at path.
func Load(path string) (*apispec.Spec, error) {
	return New().Load(path)
}

// Load reads and parses the document at path.
func (p *Parser) Load(path string) (*apispec.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &jmxerrors.SpecError{Path: path, Message: "reading file", Cause: err}
	}
	return p.load(data, path, true)
}

// LoadData parses an in-memory document. name identifies it in errors.
// Relative external references cannot be resolved.
func (p *Parser) LoadData(data []byte, name string) (*apispec.Spec, error) {
	return p.load(data, name, false)
}

func (p *Parser) load(data []byte, name string, fromFile bool) (*apispec.Spec, error) {
	raw, err := apispec.ParseNode(data)
	if err != nil {
		return nil, &jmxerrors.SpecError{Path: name, Message: "undecodable document", Cause: err}
	}
	kind, version, err := detect(raw, name)
	if err != nil {
		return nil, err
	}
	// kin-openapi decodes JSON; re-encoding also normalizes YAML-only
	// constructs such as integer response keys and bare version numbers.
	doc, err := withMember(raw, string(kind), apispec.String(version)).MarshalJSON()
	if err != nil {
		return nil, &jmxerrors.SpecError{Path: name, Message: "re-encoding document", Cause: err}
	}

	loader := openapi3.NewLoader()
	var location *url.URL
	if fromFile && p.AllowExternalRefs {
		loader.IsExternalRefsAllowed = true
		abs, absErr := filepath.Abs(name)
		if absErr != nil {
			return nil, &jmxerrors.SpecError{Path: name, Message: "resolving path", Cause: absErr}
		}
		location = &url.URL{Path: filepath.ToSlash(abs)}
	}

	var spec *apispec.Spec
	switch kind {
	case KindOpenAPI:
		spec, err = p.fromOpenAPI(loader, location, doc)
	default:
		spec, err = p.fromSwagger(loader, location, doc)
	}
	if err != nil {
		return nil, &jmxerrors.SpecError{Path: name, Message: "loading " + string(kind) + " " + version, Cause: err}
	}
	p.log().Debug("spec loaded",
		"path", name,
		"kind", string(kind),
		"version", version,
		"endpoints", len(spec.Endpoints))
	return spec, nil
}

// detect reads the version marker and checks the required top-level fields.
func detect(raw apispec.Node, name string) (Kind, string, error) {
	if raw.Kind() != apispec.KindObject {
		return "", "", &jmxerrors.SpecError{Path: name, Message: "document must be an object, got " + raw.Kind().String()}
	}

	var kind Kind
	var version string
	if v, ok := raw.Get("openapi"); ok {
		kind, version = KindOpenAPI, versionString(v)
		if major, _, _ := strings.Cut(version, "."); major != "3" {
			return "", "", &jmxerrors.SpecError{Path: name, Message: fmt.Sprintf("unsupported OpenAPI version %q, expected 3.x", version)}
		}
	} else if v, ok := raw.Get("swagger"); ok {
		kind, version = KindSwagger, versionString(v)
		if version != "2.0" {
			return "", "", &jmxerrors.SpecError{Path: name, Message: fmt.Sprintf("unsupported Swagger version %q, expected 2.0", version)}
		}
	} else {
		return "", "", &jmxerrors.SpecError{Path: name, Message: "missing version field, expected 'openapi' (3.x) or 'swagger' (2.0)"}
	}

	for _, field := range []string{"info", "paths"} {
		if v, ok := raw.Get(field); !ok || v.Kind() != apispec.KindObject {
			return "", "", &jmxerrors.SpecError{Path: name, Message: "missing required field '" + field + "'"}
		}
	}
	return kind, version, nil
}

func withMember(obj apispec.Node, key string, value apispec.Node) apispec.Node {
	members := obj.Members()
	for i := range members {
		if members[i].Key == key {
			members[i].Value = value
		}
	}
	return apispec.Object(members...)
}

// versionString accepts both quoted and bare YAML versions (2.0 decodes as a
// number).
func versionString(v apispec.Node) string {
	if s, ok := v.StringValue(); ok {
		return strings.TrimSpace(s)
	}
	if f, ok := v.NumberValue(); ok {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return v.Kind().String()
}

func (p *Parser) fromOpenAPI(loader *openapi3.Loader, location *url.URL, data []byte) (*apispec.Spec, error) {
	var doc *openapi3.T
	var err error
	if location != nil {
		doc, err = loader.LoadFromDataWithPath(data, location)
	} else {
		doc, err = loader.LoadFromData(data)
	}
	if err != nil {
		return nil, err
	}
	spec := newSpec(doc, serverURL(doc.Servers))
	spec.Endpoints, err = endpoints(doc.Paths, "")
	if err != nil {
		return nil, err
	}
	return spec, nil
}

func (p *Parser) fromSwagger(loader *openapi3.Loader, location *url.URL, data []byte) (*apispec.Spec, error) {
	var doc2 openapi2.T
	if err := doc2.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	doc, err := openapi2conv.ToV3WithLoader(&doc2, loader, location)
	if err != nil {
		return nil, err
	}
	spec := newSpec(doc, swaggerBaseURL(doc2.Host, doc2.Schemes))
	prefix := strings.TrimSuffix(doc2.BasePath, "/")
	spec.Endpoints, err = endpoints(doc.Paths, prefix)
	if err != nil {
		return nil, err
	}
	return spec, nil
}

func newSpec(doc *openapi3.T, baseURL string) *apispec.Spec {
	spec := &apispec.Spec{BaseURL: baseURL}
	if doc.Info != nil {
		spec.Title = doc.Info.Title
		spec.Version = doc.Info.Version
	}
	return spec
}

// serverURL prefers a localhost server so generated plans target a local
// deployment, then falls back to the first server.
func serverURL(servers openapi3.Servers) string {
	for _, s := range servers {
		if s != nil && strings.Contains(strings.ToLower(s.URL), "localhost") {
			return s.URL
		}
	}
	if len(servers) > 0 && servers[0] != nil && servers[0].URL != "" {
		return servers[0].URL
	}
	return DefaultBaseURL
}

// swaggerBaseURL builds scheme://host without basePath, which is prepended
// to each endpoint path instead.
func swaggerBaseURL(host string, schemes []string) string {
	if host == "" {
		host = "localhost:8080"
	}
	scheme := "http"
	for i, s := range schemes {
		if i == 0 {
			scheme = s
		}
		if s == "https" {
			scheme = s
			break
		}
	}
	return scheme + "://" + host
}

// endpoints flattens paths in path then method order. The result is never
// nil, so a document with no operations is a valid empty spec.
func endpoints(paths *openapi3.Paths, prefix string) ([]apispec.Endpoint, error) {
	out := []apispec.Endpoint{}
	if paths == nil {
		return out, nil
	}
	items := paths.Map()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, path := range keys {
		item := items[path]
		if item == nil {
			continue
		}
		ops := item.Operations()
		for _, method := range methodOrder {
			op, ok := ops[method]
			if !ok || op == nil {
				continue
			}
			e, err := endpoint(prefix+path, method, item.Parameters, op)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", method, path, err)
			}
			out = append(out, e)
		}
	}
	return out, nil
}

func endpoint(path, method string, shared openapi3.Parameters, op *openapi3.Operation) (apispec.Endpoint, error) {
	e := apispec.Endpoint{
		Path:        path,
		Method:      method,
		OperationID: op.OperationID,
		Summary:     op.Summary,
		Parameters:  mergeParameters(shared, op.Parameters),
	}
	if op.RequestBody != nil && op.RequestBody.Value != nil {
		e.HasRequestBody = true
		schema, err := requestSchema(op.RequestBody.Value.Content)
		if err != nil {
			return apispec.Endpoint{}, err
		}
		e.RequestBodySchema = schema
	}
	if op.Responses != nil {
		for code := range op.Responses.Map() {
			e.ResponseCodes = append(e.ResponseCodes, code)
		}
		sort.Strings(e.ResponseCodes)
	}
	return e, nil
}

// mergeParameters returns the path-level parameters overridden by the
// operation's own, keyed by (in, name).
func mergeParameters(shared, own openapi3.Parameters) []apispec.Parameter {
	var out []apispec.Parameter
	index := make(map[apispec.ParamKey]int)
	for _, list := range []openapi3.Parameters{shared, own} {
		for _, ref := range list {
			if ref == nil || ref.Value == nil {
				continue
			}
			p := apispec.Parameter{Name: ref.Value.Name, In: ref.Value.In, Required: ref.Value.Required}
			if i, ok := index[p.Key()]; ok {
				out[i] = p
				continue
			}
			index[p.Key()] = len(out)
			out = append(out, p)
		}
	}
	return out
}

// requestSchema picks the JSON media type when there is one, otherwise the
// first by name, and converts its schema with the top-level $ref resolved.
func requestSchema(content openapi3.Content) (*apispec.Node, error) {
	if len(content) == 0 {
		return nil, nil
	}
	media := content.Get("application/json")
	if media == nil {
		types := make([]string, 0, len(content))
		for t := range content {
			types = append(types, t)
		}
		sort.Strings(types)
		media = content[types[0]]
		for _, t := range types {
			if strings.Contains(t, "json") {
				media = content[t]
				break
			}
		}
	}
	if media == nil || media.Schema == nil {
		return nil, nil
	}

	var data []byte
	var err error
	if media.Schema.Value != nil {
		data, err = media.Schema.Value.MarshalJSON()
	} else {
		data, err = media.Schema.MarshalJSON()
	}
	if err != nil {
		return nil, fmt.Errorf("encoding request body schema: %w", err)
	}
	n, err := apispec.ParseNode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding request body schema: %w", err)
	}
	return &n, nil
}

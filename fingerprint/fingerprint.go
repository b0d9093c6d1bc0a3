package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/kzaorski/jmeter-test-generator-sub001/apispec"
)

// SpecHashPrefix prefixes every digest returned by SpecHash and HashBytes.
const SpecHashPrefix = "sha256:"

// Document returns the comparison-relevant subset of n as a JSON object.
// Its canonical encoding is what Fingerprint hashes.
func Document(n Normalized) apispec.Node {
	params := make([]apispec.Node, 0, len(n.Parameters))
	for _, p := range n.Parameters {
		params = append(params, apispec.Object(
			apispec.M("in", apispec.String(p.In)),
			apispec.M("name", apispec.String(p.Name)),
			apispec.M("required", apispec.Bool(p.Required)),
		))
	}
	codes := make([]apispec.Node, 0, len(n.ResponseCodes))
	for _, c := range n.ResponseCodes {
		codes = append(codes, apispec.String(c))
	}
	schema := apispec.Null()
	if n.RequestBodySchema != nil {
		schema = *n.RequestBodySchema
	}
	return apispec.Object(
		apispec.M("method", apispec.String(n.Method)),
		apispec.M("operation_id", apispec.String(n.OperationID)),
		apispec.M("parameters", apispec.Array(params...)),
		apispec.M("path", apispec.String(n.Path)),
		apispec.M("request_body", apispec.Bool(n.HasRequestBody)),
		apispec.M("request_body_schema", schema),
		apispec.M("responses", apispec.Array(codes...)),
	)
}

// Fingerprint returns the lowercase hex SHA-256 of the canonical JSON of n.
func Fingerprint(n Normalized) string {
	sum := sha256.Sum256(Document(n).Canonical())
	return hex.EncodeToString(sum[:])
}

// Of returns the fingerprint of e. Endpoints restored from a snapshot carry
// the fingerprint recorded before redaction, which takes precedence so that
// redacted schemas still compare equal to the live endpoint.
func Of(e apispec.Endpoint) string {
	if e.Fingerprint != "" {
		return e.Fingerprint
	}
	return Fingerprint(Normalize(e))
}

// SpecHash returns "sha256:" followed by the hex SHA-256 over the sorted list
// of "METHOD path fingerprint" entries of spec. Endpoint order does not
// affect the result.
func SpecHash(spec *apispec.Spec) string {
	var entries []string
	if spec != nil {
		entries = make([]string, 0, len(spec.Endpoints))
		for _, e := range spec.Endpoints {
			entries = append(entries, e.Key().String()+" "+Of(e))
		}
	}
	sort.Strings(entries)
	nodes := make([]apispec.Node, 0, len(entries))
	for _, s := range entries {
		nodes = append(nodes, apispec.String(s))
	}
	return HashBytes(apispec.Array(nodes...).Canonical())
}

// HashBytes returns "sha256:" followed by the hex SHA-256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return SpecHashPrefix + hex.EncodeToString(sum[:])
}

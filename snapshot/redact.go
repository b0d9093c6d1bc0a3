package snapshot

import (
	"regexp"

	"golang.org/x/text/cases"

	"github.com/kzaorski/jmeter-test-generator-sub001/apispec"
)

// sensitiveFields are removed wherever they appear, compared after case
// folding.
var sensitiveFields = []string{
	"example",
	"examples",
	"default",
	"x-api-key",
	"x-auth-token",
}

// sensitivePatterns match anywhere in a case-folded field name. ssn is
// delimited so names such as "classname" survive.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`api[_-]?key|apikey|api_secret`),
	regexp.MustCompile(`token|access[_-]?token|auth[_-]?token|bearer`),
	regexp.MustCompile(`password|passwd|pwd|secret|client[_-]?secret`),
	regexp.MustCompile(`authorization|auth|credential|credentials`),
	regexp.MustCompile(`(^|[_-])ssn($|[_-])|social[_-]?security|credit[_-]?card|cvv|cvv2`),
	regexp.MustCompile(`private[_-]?key|secret[_-]?key|encryption[_-]?key`),
}

// securitySubtrees are dropped whole, matched exactly.
var securitySubtrees = map[string]bool{
	"securitySchemes": true,
	"security":        true,
}

var folder = cases.Fold()

// IsSensitiveField reports whether a member named name is removed by Redact.
func IsSensitiveField(name string) bool {
	if securitySubtrees[name] {
		return true
	}
	folded := folder.String(name)
	for _, f := range sensitiveFields {
		if folded == f {
			return true
		}
	}
	for _, p := range sensitivePatterns {
		if p.MatchString(folded) {
			return true
		}
	}
	return false
}

// Redact returns a copy of n with every sensitive member removed at any
// depth. Array elements are redacted in place; other structure is preserved.
func Redact(n apispec.Node) apispec.Node {
	switch n.Kind() {
	case apispec.KindObject:
		members := n.Members()
		kept := make([]apispec.Member, 0, len(members))
		for _, m := range members {
			if IsSensitiveField(m.Key) {
				continue
			}
			kept = append(kept, apispec.M(m.Key, Redact(m.Value)))
		}
		return apispec.Object(kept...)
	case apispec.KindArray:
		items := n.Items()
		for i := range items {
			items[i] = Redact(items[i])
		}
		return apispec.Array(items...)
	default:
		return n
	}
}

// redactEndpoint redacts the persisted record of e. The request body schema
// is the only part that can carry sensitive member names.
func redactEndpoint(e apispec.Endpoint) (apispec.Endpoint, error) {
	return apispec.EndpointFromNode(Redact(apispec.EndpointToNode(e)))
}

package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kzaorski/jmeter-test-generator-sub001/apispec"
)

func TestIsSensitiveField(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"password", true},
		{"PASSWORD", true},
		{"userPassword", true},
		{"api_key", true},
		{"Api-Key", true},
		{"apikey", true},
		{"token", true},
		{"refresh_token", true},
		{"Authorization", true},
		{"client_secret", true},
		{"credentials", true},
		{"ssn", true},
		{"user_ssn", true},
		{"credit_card", true},
		{"cvv", true},
		{"private_key", true},
		{"example", true},
		{"Examples", true},
		{"default", true},
		{"X-API-KEY", true},
		{"x-auth-token", true},
		{"securitySchemes", true},
		{"security", true},
		{"name", false},
		{"type", false},
		{"properties", false},
		{"classname", false},
		{"email", false},
		{"id", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSensitiveField(tt.name))
		})
	}
}

func TestRedact_Totality(t *testing.T) {
	doc, err := apispec.ParseNode([]byte(`{
		"type": "object",
		"password": "top",
		"properties": {
			"name": {"type": "string", "example": "Rex"},
			"Password": {"type": "string"},
			"nested": {
				"type": "object",
				"properties": {
					"API_KEY": {"type": "string"},
					"items": [{"token": "a", "keep": 1}, {"deeper": {"password": "x", "ok": true}}]
				}
			}
		},
		"components": {"securitySchemes": {"bearer": {"type": "http"}}},
		"security": [{"bearer": []}]
	}`))
	require.NoError(t, err)

	redacted := Redact(doc)

	assert.Equal(t,
		`{"components":{},"properties":{"name":{"type":"string"},"nested":{"properties":{"items":[{"keep":1},{"deeper":{"ok":true}}]},"type":"object"}},"type":"object"}`,
		string(redacted.Canonical()))
	assertNoSensitive(t, redacted)
}

func assertNoSensitive(t *testing.T, n apispec.Node) {
	t.Helper()
	switch n.Kind() {
	case apispec.KindObject:
		for _, m := range n.Members() {
			assert.False(t, IsSensitiveField(m.Key), "sensitive field %q survived", m.Key)
			assertNoSensitive(t, m.Value)
		}
	case apispec.KindArray:
		for _, item := range n.Items() {
			assertNoSensitive(t, item)
		}
	}
}

func TestRedact_PreservesOrderAndPrimitives(t *testing.T) {
	doc := apispec.Object(
		apispec.M("z", apispec.Number(1)),
		apispec.M("a", apispec.Array(apispec.String("token"), apispec.Null())),
	)
	redacted := Redact(doc)
	assert.True(t, doc.Equal(redacted))

	data, err := redacted.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":["token",null]}`, string(data), "values are never inspected")

	assert.Equal(t, apispec.String("x"), Redact(apispec.String("x")))
}

func TestRedact_DoesNotMutateInput(t *testing.T) {
	doc := apispec.Object(apispec.M("password", apispec.String("x")), apispec.M("name", apispec.String("n")))
	_ = Redact(doc)
	_, ok := doc.Get("password")
	assert.True(t, ok)
}

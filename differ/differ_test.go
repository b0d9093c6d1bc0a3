package differ

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/kzaorski/jmeter-test-generator-sub001/apispec"
	"github.com/kzaorski/jmeter-test-generator-sub001/fingerprint"
	"github.com/kzaorski/jmeter-test-generator-sub001/jmxerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kzaorski/jmeter-test-generator-sub001/logging"
)

func schema(t *testing.T, doc string) *apispec.Node {
	t.Helper()
	n, err := apispec.ParseNode([]byte(doc))
	require.NoError(t, err)
	return &n
}

func petSpec(t *testing.T) *apispec.Spec {
	t.Helper()
	return &apispec.Spec{
		Title:   "Pets",
		Version: "1.0.0",
		Endpoints: []apispec.Endpoint{
			{Path: "/pets", Method: "GET", OperationID: "listPets",
				Parameters:    []apispec.Parameter{{Name: "limit", In: "query"}},
				ResponseCodes: []string{"200"}},
			{Path: "/pets", Method: "POST", OperationID: "createPet", HasRequestBody: true,
				RequestBodySchema: schema(t, `{"type": "object", "properties": {"name": {"type": "string"}}}`),
				ResponseCodes:     []string{"201", "400"}},
			{Path: "/pets/{id}", Method: "DELETE", OperationID: "deletePet",
				Parameters:    []apispec.Parameter{{Name: "id", In: "path", Required: true}},
				ResponseCodes: []string{"204"}},
		},
	}
}

func clone(s *apispec.Spec) *apispec.Spec {
	out := *s
	out.Endpoints = append([]apispec.Endpoint{}, s.Endpoints...)
	return &out
}

func TestNew(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	assert.False(t, d.StrictDuplicates)
	assert.Nil(t, d.SchemaFilter)

	_, err = New(WithClock(nil))
	assert.Error(t, err)
}

func TestCompare_IdenticalSpecsHaveNoChanges(t *testing.T) {
	s := petSpec(t)
	diff, err := Compare(s, clone(s))
	require.NoError(t, err)

	assert.False(t, diff.HasChanges)
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Removed)
	assert.Empty(t, diff.Modified)
	assert.Equal(t, Summary{}, diff.Summary)
	assert.Equal(t, diff.OldHash, diff.NewHash)
	assert.Regexp(t, `^sha256:`, diff.OldHash)
}

func TestCompare_ExactlyOneAdded(t *testing.T) {
	oldSpec := petSpec(t)
	newSpec := clone(oldSpec)
	newSpec.Endpoints = append(newSpec.Endpoints, apispec.Endpoint{Path: "/owners", Method: "get", OperationID: "listOwners"})

	diff, err := Compare(oldSpec, newSpec)
	require.NoError(t, err)

	assert.True(t, diff.HasChanges)
	assert.Equal(t, Summary{Added: 1}, diff.Summary)
	require.Len(t, diff.Added, 1)
	added := diff.Added[0]
	assert.Equal(t, "GET", added.Method)
	assert.Equal(t, "/owners", added.Path)
	assert.Equal(t, "listOwners", added.OperationID)
	assert.Equal(t, ChangeTypeAdded, added.Type)
	assert.Nil(t, added.Changes)
	assert.Equal(t, fingerprint.Of(newSpec.Endpoints[3]), added.Fingerprint)
	assert.NotEqual(t, diff.OldHash, diff.NewHash)
}

func TestCompare_ExactlyOneRemoved(t *testing.T) {
	newSpec := petSpec(t)
	oldSpec := clone(newSpec)
	oldSpec.Endpoints = append(oldSpec.Endpoints, apispec.Endpoint{Path: "/old", Method: "GET"})

	diff, err := Compare(oldSpec, newSpec)
	require.NoError(t, err)

	assert.Equal(t, Summary{Removed: 1}, diff.Summary)
	require.Len(t, diff.Removed, 1)
	assert.Equal(t, apispec.Key{Path: "/old", Method: "GET"}, diff.Removed[0].Key())
	assert.Equal(t, ChangeTypeRemoved, diff.Removed[0].Type)
}

func TestCompare_MethodCaseInsensitive(t *testing.T) {
	oldSpec := &apispec.Spec{Endpoints: []apispec.Endpoint{{Path: "/a", Method: "get"}}}
	newSpec := &apispec.Spec{Endpoints: []apispec.Endpoint{{Path: "/a", Method: "GET"}}}
	diff, err := Compare(oldSpec, newSpec)
	require.NoError(t, err)
	assert.False(t, diff.HasChanges)
}

func TestCompare_FieldChanges(t *testing.T) {
	oldSpec := petSpec(t)
	newSpec := clone(oldSpec)

	get := newSpec.Endpoints[0]
	get.OperationID = "getPets"
	get.Parameters = []apispec.Parameter{{Name: "limit", In: "query", Required: true}, {Name: "offset", In: "query"}}
	get.ResponseCodes = []string{"200", "401", "403"}
	newSpec.Endpoints[0] = get

	post := newSpec.Endpoints[1]
	post.HasRequestBody = false
	post.RequestBodySchema = nil
	newSpec.Endpoints[1] = post

	del := newSpec.Endpoints[2]
	del.Parameters = nil
	del.ResponseCodes = []string{}
	newSpec.Endpoints[2] = del

	diff, err := Compare(oldSpec, newSpec)
	require.NoError(t, err)
	require.Len(t, diff.Modified, 3)

	getChange := diff.Modified[0]
	assert.Equal(t, "getPets", getChange.OperationID)
	assert.Equal(t, fingerprint.Of(get), getChange.Fingerprint)
	require.NotNil(t, getChange.Changes)
	assert.Equal(t, &StringChange{Old: "listPets", New: "getPets"}, getChange.Changes.OperationID)
	assert.Equal(t, &SetChange{Added: []string{"401", "403"}, Removed: []string{}}, getChange.Changes.Responses)
	require.NotNil(t, getChange.Changes.Parameters)
	assert.Equal(t, []apispec.Parameter{{Name: "offset", In: "query"}}, getChange.Changes.Parameters.Added)
	assert.Empty(t, getChange.Changes.Parameters.Removed)
	assert.Equal(t, []ParameterModification{{
		Name: "limit", In: "query",
		Old: apispec.Parameter{Name: "limit", In: "query"},
		New: apispec.Parameter{Name: "limit", In: "query", Required: true},
	}}, getChange.Changes.Parameters.Modified)
	assert.Nil(t, getChange.Changes.RequestBody)
	assert.Nil(t, getChange.Changes.RequestBodySchema)
	assert.Equal(t, []string{"operation_id", "parameters", "responses"}, getChange.Changes.Fields())

	postChange := diff.Modified[1]
	assert.Equal(t, &BoolChange{Old: true, New: false}, postChange.Changes.RequestBody)
	require.NotNil(t, postChange.Changes.RequestBodySchema)
	assert.NotNil(t, postChange.Changes.RequestBodySchema.Old)
	assert.Nil(t, postChange.Changes.RequestBodySchema.New)

	delChange := diff.Modified[2]
	assert.Equal(t, []apispec.Parameter{{Name: "id", In: "path", Required: true}}, delChange.Changes.Parameters.Removed)
	assert.Equal(t, &SetChange{Added: []string{}, Removed: []string{"204"}}, delChange.Changes.Responses)
}

func TestCompare_SchemaChangeCarriesNormalizedSchemas(t *testing.T) {
	oldSpec := petSpec(t)
	newSpec := clone(oldSpec)
	post := newSpec.Endpoints[1]
	post.RequestBodySchema = schema(t, `{"type": "object", "description": "x", "properties": {"name": {"type": "string"}, "age": {"type": "integer"}}}`)
	newSpec.Endpoints[1] = post

	diff, err := Compare(oldSpec, newSpec)
	require.NoError(t, err)
	require.Len(t, diff.Modified, 1)

	sc := diff.Modified[0].Changes.RequestBodySchema
	require.NotNil(t, sc)
	assert.Equal(t, `{"properties":{"age":{"type":"integer"},"name":{"type":"string"}},"type":"object"}`, string(sc.New.Canonical()))
}

func TestCompare_VolatileOnlyChangeIsUnchanged(t *testing.T) {
	oldSpec := petSpec(t)
	newSpec := clone(oldSpec)
	post := newSpec.Endpoints[1]
	post.RequestBodySchema = schema(t, `{"title": "Pet", "type": "object", "properties": {"name": {"type": "string", "example": "Rex"}}}`)
	post.Summary = "Create a pet"
	newSpec.Endpoints[1] = post

	diff, err := Compare(oldSpec, newSpec)
	require.NoError(t, err)
	assert.False(t, diff.HasChanges)
}

func TestCompare_OrderFollowsInputLists(t *testing.T) {
	oldSpec := &apispec.Spec{Endpoints: []apispec.Endpoint{
		{Path: "/z", Method: "GET"}, {Path: "/m", Method: "GET"}, {Path: "/a", Method: "GET"},
	}}
	newSpec := &apispec.Spec{Endpoints: []apispec.Endpoint{
		{Path: "/y", Method: "POST"}, {Path: "/b", Method: "GET"},
	}}

	diff, err := Compare(oldSpec, newSpec)
	require.NoError(t, err)

	paths := func(cs []EndpointChange) []string {
		var out []string
		for _, c := range cs {
			out = append(out, c.Path)
		}
		return out
	}
	assert.Equal(t, []string{"/y", "/b"}, paths(diff.Added))
	assert.Equal(t, []string{"/z", "/m", "/a"}, paths(diff.Removed))

	sorted := diff.Sorted()
	assert.Equal(t, []string{"/b", "/y"}, paths(sorted.Added))
	assert.Equal(t, []string{"/a", "/m", "/z"}, paths(sorted.Removed))
	assert.Equal(t, []string{"/z", "/m", "/a"}, paths(diff.Removed), "Sorted must not reorder the receiver")
}

func TestCompare_FormatErrors(t *testing.T) {
	valid := petSpec(t)
	tests := []struct {
		name     string
		old, new *apispec.Spec
		side     string
		field    string
	}{
		{"nil old", nil, valid, "old", "endpoints"},
		{"missing old endpoints", &apispec.Spec{Title: "x"}, valid, "old", "endpoints"},
		{"missing new endpoints", valid, &apispec.Spec{}, "new", "endpoints"},
		{"endpoint without path", valid, &apispec.Spec{Endpoints: []apispec.Endpoint{{Method: "GET"}}}, "new", "endpoints[0].path"},
		{"endpoint without method", &apispec.Spec{Endpoints: []apispec.Endpoint{{Path: "/a"}}}, valid, "old", "endpoints[0].method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compare(tt.old, tt.new)
			require.Error(t, err)
			assert.ErrorIs(t, err, jmxerrors.ErrFormat)
			var fe *jmxerrors.FormatError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.side, fe.Side)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestCompare_EmptySpecsAreValid(t *testing.T) {
	empty := &apispec.Spec{Endpoints: []apispec.Endpoint{}}
	diff, err := Compare(empty, petSpec(t))
	require.NoError(t, err)
	assert.Equal(t, Summary{Added: 3}, diff.Summary)
}

func TestCompare_DuplicatesFirstWins(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	d, err := New(WithLogger(logging.NewZapAdapter(zap.New(core))))
	require.NoError(t, err)

	oldSpec := &apispec.Spec{Endpoints: []apispec.Endpoint{
		{Path: "/a", Method: "GET", OperationID: "first"},
	}}
	newSpec := &apispec.Spec{Endpoints: []apispec.Endpoint{
		{Path: "/a", Method: "GET", OperationID: "first"},
		{Path: "/a", Method: "get", OperationID: "shadowed"},
	}}

	diff, err := d.Compare(oldSpec, newSpec)
	require.NoError(t, err)
	assert.False(t, diff.HasChanges, "the shadowed duplicate must not be matched")
	assert.Equal(t, []Duplicate{{Side: "new", Path: "/a", Method: "GET", Index: 1, FirstIndex: 0}}, diff.Duplicates)
	assert.Equal(t, 1, logs.FilterMessage("duplicate endpoint ignored").Len())
}

func TestCompare_StrictDuplicates(t *testing.T) {
	d, err := New(WithStrictDuplicates(true))
	require.NoError(t, err)

	dup := &apispec.Spec{Endpoints: []apispec.Endpoint{{Path: "/a", Method: "GET"}, {Path: "/a", Method: "GET"}}}
	_, err = d.Compare(dup, &apispec.Spec{Endpoints: []apispec.Endpoint{}})
	var fe *jmxerrors.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "old", fe.Side)
	assert.Equal(t, "endpoints[1]", fe.Field)
	assert.Contains(t, fe.Message, "GET /a")
}

func TestCompare_RecordedFingerprintMasksRedaction(t *testing.T) {
	live := petSpec(t)
	post := live.Endpoints[1]

	// A snapshot restored endpoint: redacted schema, recorded fingerprint.
	restored := post
	restored.RequestBodySchema = schema(t, `{"type": "object", "properties": {}}`)
	restored.Fingerprint = fingerprint.Of(post)

	oldSpec := &apispec.Spec{Endpoints: []apispec.Endpoint{live.Endpoints[0], restored, live.Endpoints[2]}}
	diff, err := Compare(oldSpec, live)
	require.NoError(t, err)
	assert.False(t, diff.HasChanges)
}

func TestCompare_SchemaFilterAppliesToFieldComparison(t *testing.T) {
	dropAll := func(apispec.Node) apispec.Node { return apispec.Object() }
	d, err := New(WithSchemaFilter(dropAll))
	require.NoError(t, err)

	oldSpec := petSpec(t)
	newSpec := clone(oldSpec)
	post := newSpec.Endpoints[1]
	post.RequestBodySchema = schema(t, `{"type": "object", "properties": {"password": {"type": "string"}}}`)
	post.ResponseCodes = []string{"201"}
	newSpec.Endpoints[1] = post

	diff, err := d.Compare(oldSpec, newSpec)
	require.NoError(t, err)
	require.Len(t, diff.Modified, 1)
	assert.Nil(t, diff.Modified[0].Changes.RequestBodySchema)
	assert.NotNil(t, diff.Modified[0].Changes.Responses)
}

func TestCompare_EmptyChangeMapIsNotModified(t *testing.T) {
	// Differing recorded fingerprints with identical fields.
	oldSpec := &apispec.Spec{Endpoints: []apispec.Endpoint{{Path: "/a", Method: "GET", Fingerprint: "stale"}}}
	newSpec := &apispec.Spec{Endpoints: []apispec.Endpoint{{Path: "/a", Method: "GET"}}}

	diff, err := Compare(oldSpec, newSpec)
	require.NoError(t, err)
	assert.Empty(t, diff.Modified)
	assert.False(t, diff.HasChanges)
}

func TestCompare_TimestampAndVersions(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	d, err := New(WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	oldSpec := petSpec(t)
	newSpec := clone(oldSpec)
	newSpec.Version = "2.0.0"

	diff, err := d.Compare(oldSpec, newSpec)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", diff.OldVersion)
	assert.Equal(t, "2.0.0", diff.NewVersion)
	assert.Equal(t, fixed.UTC(), diff.Timestamp)
}

func TestNewSpecDiff(t *testing.T) {
	d := NewSpecDiff("1", "2", nil, []EndpointChange{{Path: "/a", Method: "GET", Type: ChangeTypeRemoved}}, nil)
	assert.True(t, d.HasChanges)
	assert.Equal(t, Summary{Removed: 1}, d.Summary)
	assert.NotNil(t, d.Added)
	assert.NotNil(t, d.Modified)
	assert.Len(t, d.Changes(), 1)

	empty := NewSpecDiff("", "", nil, nil, nil)
	assert.False(t, empty.HasChanges)
}

func TestSpecDiffJSON(t *testing.T) {
	oldSpec := petSpec(t)
	newSpec := clone(oldSpec)
	newSpec.Endpoints = newSpec.Endpoints[:2]

	diff, err := Compare(oldSpec, newSpec)
	require.NoError(t, err)

	data, err := json.Marshal(diff)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, true, decoded["has_changes"])
	assert.Equal(t, map[string]any{"added": 0.0, "removed": 1.0, "modified": 0.0}, decoded["summary"])
	removed := decoded["removed"].([]any)
	require.Len(t, removed, 1)
	rec := removed[0].(map[string]any)
	assert.Equal(t, "removed", rec["change_type"])
	assert.Equal(t, "deletePet", rec["operation_id"])
	assert.NotContains(t, rec, "changes")
}

func TestEndpointChangeString(t *testing.T) {
	assert.Equal(t, "+ POST /y (createY)", EndpointChange{Path: "/y", Method: "POST", OperationID: "createY", Type: ChangeTypeAdded}.String())
	assert.Equal(t, "- GET /old", EndpointChange{Path: "/old", Method: "GET", Type: ChangeTypeRemoved}.String())
	assert.Equal(t, "~ GET /a", EndpointChange{Path: "/a", Method: "GET", Type: ChangeTypeModified}.String())
}

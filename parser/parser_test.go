package parser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kzaorski/jmeter-test-generator-sub001/apispec"
	"github.com/kzaorski/jmeter-test-generator-sub001/internal/testutil"
	"github.com/kzaorski/jmeter-test-generator-sub001/jmxerrors"
)

const petsOpenAPI = `openapi: 3.0.3
info:
  title: Pets API
  version: 1.0.0
servers:
  - url: https://api.example.com/v1
  - url: http://localhost:3000
paths:
  /pets/{id}:
    parameters:
      - name: id
        in: path
        required: true
        schema: {type: string}
      - name: trace
        in: header
        schema: {type: string}
    delete:
      operationId: deletePet
      parameters:
        - name: trace
          in: header
          required: true
          schema: {type: string}
      responses:
        '204': {description: gone}
    get:
      operationId: getPet
      responses:
        200: {description: ok}
        404: {description: missing}
  /pets:
    post:
      operationId: createPet
      summary: Create a pet
      requestBody:
        content:
          application/xml:
            schema: {type: string}
          application/json:
            schema:
              $ref: '#/components/schemas/Pet'
      responses:
        '201': {description: created}
        default: {description: error}
    get:
      operationId: listPets
      parameters:
        - name: limit
          in: query
          schema: {type: integer}
      responses:
        '200': {description: ok}
components:
  schemas:
    Pet:
      type: object
      required: [name]
      properties:
        name: {type: string, example: Rex}
        tag: {$ref: '#/components/schemas/Tag'}
    Tag:
      type: string
`

const legacySwagger = `swagger: 2.0
info:
  title: Legacy
  version: "2"
host: legacy.example.com
basePath: /v2/
schemes: [http, https]
paths:
  /users:
    post:
      operationId: createUser
      consumes: [application/json]
      parameters:
        - in: body
          name: body
          schema:
            $ref: '#/definitions/User'
      responses:
        201: {description: created}
    get:
      operationId: listUsers
      parameters:
        - in: query
          name: page
          type: integer
      responses:
        200: {description: ok}
definitions:
  User:
    type: object
    properties:
      id: {type: integer}
`

func keys(spec *apispec.Spec) []string {
	out := make([]string, 0, len(spec.Endpoints))
	for _, e := range spec.Endpoints {
		out = append(out, e.Key().String())
	}
	return out
}

func TestLoadData_OpenAPI(t *testing.T) {
	spec, err := New().LoadData([]byte(petsOpenAPI), "pets.yaml")
	require.NoError(t, err)

	assert.Equal(t, "Pets API", spec.Title)
	assert.Equal(t, "1.0.0", spec.Version)
	assert.Equal(t, "http://localhost:3000", spec.BaseURL, "localhost server is preferred")
	assert.Equal(t, []string{
		"GET /pets",
		"POST /pets",
		"GET /pets/{id}",
		"DELETE /pets/{id}",
	}, keys(spec))

	list := spec.Endpoints[0]
	assert.Equal(t, "listPets", list.OperationID)
	assert.False(t, list.HasRequestBody)
	assert.Nil(t, list.RequestBodySchema)
	assert.Equal(t, []apispec.Parameter{{Name: "limit", In: "query"}}, list.Parameters)
	assert.Equal(t, []string{"200"}, list.ResponseCodes)

	create := spec.Endpoints[1]
	assert.Equal(t, "Create a pet", create.Summary)
	assert.True(t, create.HasRequestBody)
	assert.Equal(t, []string{"201", "default"}, create.ResponseCodes)
	require.NotNil(t, create.RequestBodySchema)
	schema := *create.RequestBodySchema
	typ, _ := schema.Get("type")
	s, _ := typ.StringValue()
	assert.Equal(t, "object", s, "JSON media type wins and its $ref is resolved")
	props, ok := schema.Get("properties")
	require.True(t, ok)
	tag, ok := props.Get("tag")
	require.True(t, ok)
	ref, ok := tag.Get("$ref")
	require.True(t, ok, "nested references are kept")
	refStr, _ := ref.StringValue()
	assert.Equal(t, "#/components/schemas/Tag", refStr)

	get := spec.Endpoints[2]
	assert.Equal(t, []string{"200", "404"}, get.ResponseCodes)
	assert.Equal(t, []apispec.Parameter{
		{Name: "id", In: "path", Required: true},
		{Name: "trace", In: "header"},
	}, get.Parameters)

	del := spec.Endpoints[3]
	assert.Equal(t, []apispec.Parameter{
		{Name: "id", In: "path", Required: true},
		{Name: "trace", In: "header", Required: true},
	}, del.Parameters, "operation parameters override path-level ones")
}

func TestLoadData_Swagger(t *testing.T) {
	spec, err := New().LoadData([]byte(legacySwagger), "legacy.yaml")
	require.NoError(t, err)

	assert.Equal(t, "Legacy", spec.Title)
	assert.Equal(t, "https://legacy.example.com", spec.BaseURL)
	assert.Equal(t, []string{"GET /v2/users", "POST /v2/users"}, keys(spec))

	list := spec.Endpoints[0]
	assert.Equal(t, []apispec.Parameter{{Name: "page", In: "query"}}, list.Parameters)
	assert.Equal(t, []string{"200"}, list.ResponseCodes)

	create := spec.Endpoints[1]
	assert.Equal(t, "createUser", create.OperationID)
	assert.True(t, create.HasRequestBody)
	assert.NotNil(t, create.RequestBodySchema)
	assert.Empty(t, create.Parameters, "body parameters become the request body")
	assert.Equal(t, []string{"201"}, create.ResponseCodes)
}

func TestLoadData_JSON(t *testing.T) {
	doc := `{"openapi":"3.0.0","info":{"title":"T","version":"1"},"paths":{"/a":{"put":{"responses":{"200":{"description":"ok"}}}}}}`
	spec, err := New().LoadData([]byte(doc), "a.json")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, spec.BaseURL)
	require.Len(t, spec.Endpoints, 1)
	assert.Equal(t, "PUT", spec.Endpoints[0].Method)
	assert.Empty(t, spec.Endpoints[0].OperationID)
}

func TestLoad_GeneratedDocuments(t *testing.T) {
	doc := map[string]any{
		"swagger":  "2.0",
		"info":     map[string]any{"title": "Orders", "version": "3"},
		"host":     "orders.local",
		"basePath": "/api",
		"paths": map[string]any{
			"/orders": map[string]any{
				"get":    map[string]any{"operationId": "listOrders", "responses": map[string]any{"200": map[string]any{"description": "ok"}}},
				"delete": map[string]any{"responses": map[string]any{"204": map[string]any{"description": "gone"}}},
			},
		},
	}

	for name, path := range map[string]string{
		"yaml": testutil.WriteTempYAML(t, doc),
		"json": testutil.WriteTempJSON(t, doc),
	} {
		t.Run(name, func(t *testing.T) {
			spec, err := New().Load(path)
			require.NoError(t, err)
			assert.Equal(t, "3", spec.Version)
			require.Len(t, spec.Endpoints, 2)
			assert.Equal(t, "/api/orders", spec.Endpoints[0].Path)
			assert.Equal(t, "GET", spec.Endpoints[0].Method)
			assert.Equal(t, "listOrders", spec.Endpoints[0].OperationID)
			assert.Equal(t, "DELETE", spec.Endpoints[1].Method)
		})
	}
}

func TestLoadData_EmptyPaths(t *testing.T) {
	spec, err := New().LoadData([]byte("openapi: 3.0.0\ninfo: {title: T, version: '1'}\npaths: {}\n"), "empty.yaml")
	require.NoError(t, err)
	assert.NotNil(t, spec.Endpoints)
	assert.Empty(t, spec.Endpoints)
}

func TestLoadData_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		message string
	}{
		{"undecodable", "openapi: [", "undecodable document"},
		{"not an object", "[1, 2]", "document must be an object"},
		{"no version", "info: {}\npaths: {}\n", "missing version field"},
		{"openapi 2", "openapi: 2.0.0\ninfo: {}\npaths: {}\n", `unsupported OpenAPI version "2.0.0"`},
		{"swagger 1.2", "swagger: '1.2'\ninfo: {}\npaths: {}\n", `unsupported Swagger version "1.2"`},
		{"missing info", "openapi: 3.0.0\npaths: {}\n", "missing required field 'info'"},
		{"missing paths", "openapi: 3.0.0\ninfo: {title: T}\n", "missing required field 'paths'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().LoadData([]byte(tt.doc), "bad.yaml")
			require.Error(t, err)
			assert.ErrorIs(t, err, jmxerrors.ErrSpec)
			var se *jmxerrors.SpecError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, "bad.yaml", se.Path)
			assert.Contains(t, se.Error(), tt.message)
		})
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "openapi.yaml", petsOpenAPI)

	spec, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, spec.Endpoints, 4)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, jmxerrors.ErrSpec)
}

func TestLoad_ExternalRefs(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "pet.yaml", "type: object\nproperties:\n  name: {type: string}\n")
	path := testutil.WriteFile(t, dir, "openapi.yaml", `openapi: 3.0.3
info: {title: Ext, version: '1'}
paths:
  /pets:
    post:
      requestBody:
        content:
          application/json:
            schema:
              $ref: 'pet.yaml'
      responses:
        '201': {description: created}
`)

	_, err := New().Load(path)
	assert.ErrorIs(t, err, jmxerrors.ErrSpec, "external references are refused by default")

	spec, err := LoadWithOptions(WithFilePath(path), WithExternalRefs(true))
	require.NoError(t, err)
	require.Len(t, spec.Endpoints, 1)
	require.NotNil(t, spec.Endpoints[0].RequestBodySchema)
	_, ok := spec.Endpoints[0].RequestBodySchema.Get("properties")
	assert.True(t, ok)
}

func TestLoadWithOptions(t *testing.T) {
	spec, err := LoadWithOptions(WithBytes([]byte(legacySwagger)), WithSourceName("legacy.yaml"))
	require.NoError(t, err)
	assert.Len(t, spec.Endpoints, 2)

	_, err = LoadWithOptions(WithBytes([]byte("{}")), WithSourceName("named.json"))
	var se *jmxerrors.SpecError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "named.json", se.Path)

	_, err = LoadWithOptions()
	assert.ErrorContains(t, err, "must specify an input source")

	_, err = LoadWithOptions(WithFilePath("a.yaml"), WithBytes([]byte("x")))
	assert.ErrorContains(t, err, "exactly one input source")

	_, err = LoadWithOptions(WithFilePath(""))
	assert.ErrorContains(t, err, "parser: invalid options")
}

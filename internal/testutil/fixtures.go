// Package testutil provides test utilities and fixtures for unit tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.yaml.in/yaml/v4"

	"github.com/kzaorski/jmeter-test-generator-sub001/apispec"
)

// NewPetSpec returns a small spec with three endpoints. POST /pets carries a
// request body schema that includes a password property.
func NewPetSpec() *apispec.Spec {
	schema := apispec.Object(
		apispec.M("type", apispec.String("object")),
		apispec.M("required", apispec.Array(apispec.String("name"))),
		apispec.M("properties", apispec.Object(
			apispec.M("name", apispec.Object(
				apispec.M("type", apispec.String("string")),
				apispec.M("example", apispec.String("Rex")),
			)),
			apispec.M("password", apispec.Object(apispec.M("type", apispec.String("string")))),
		)),
	)
	return &apispec.Spec{
		Title:   "Pets API",
		Version: "1.0.0",
		BaseURL: "https://api.example.com/v1",
		Endpoints: []apispec.Endpoint{
			{
				Path: "/pets", Method: "GET", OperationID: "listPets",
				Parameters:    []apispec.Parameter{{Name: "limit", In: apispec.InQuery}},
				ResponseCodes: []string{"200"},
			},
			{
				Path: "/pets", Method: "POST", OperationID: "createPet",
				HasRequestBody: true, RequestBodySchema: &schema,
				ResponseCodes: []string{"201", "400"},
			},
			{
				Path: "/pets/{id}", Method: "GET", OperationID: "getPet",
				Parameters:    []apispec.Parameter{{Name: "id", In: apispec.InPath, Required: true}},
				ResponseCodes: []string{"200", "404"},
			},
		},
	}
}

// CloneSpec returns a copy of s whose endpoint slice can be modified freely.
func CloneSpec(s *apispec.Spec) *apispec.Spec {
	out := *s
	out.Endpoints = append([]apispec.Endpoint{}, s.Endpoints...)
	return &out
}

// PetPlanJMX is a generated plan with samplers for GET /pets, POST /pets,
// GET /pets/${id} and GET /old, plus a user-added CSV data set.
const PetPlanJMX = `<?xml version="1.0" encoding="UTF-8"?>
<jmeterTestPlan version="1.2" properties="5.0" jmeter="5.6.3">
  <hashTree>
    <TestPlan guiclass="TestPlanGui" testclass="TestPlan" testname="Pets API" enabled="true">
      <stringProp name="TestPlan.comments"></stringProp>
      <boolProp name="TestPlan.functional_mode">false</boolProp>
    </TestPlan>
    <hashTree>
      <ThreadGroup guiclass="ThreadGroupGui" testclass="ThreadGroup" testname="Users" enabled="true">
        <stringProp name="ThreadGroup.num_threads">1</stringProp>
        <stringProp name="ThreadGroup.ramp_time">1</stringProp>
      </ThreadGroup>
      <hashTree>
        <CSVDataSet guiclass="TestBeanGUI" testclass="CSVDataSet" testname="users.csv" enabled="true">
          <stringProp name="filename">users.csv</stringProp>
        </CSVDataSet>
        <hashTree/>
        <HTTPSamplerProxy guiclass="HttpTestSampleGui" testclass="HTTPSamplerProxy" testname="listPets" enabled="true">
          <stringProp name="HTTPSampler.path">/pets</stringProp>
          <stringProp name="HTTPSampler.method">GET</stringProp>
        </HTTPSamplerProxy>
        <hashTree/>
        <HTTPSamplerProxy guiclass="HttpTestSampleGui" testclass="HTTPSamplerProxy" testname="createPet" enabled="true">
          <stringProp name="HTTPSampler.path">/pets</stringProp>
          <stringProp name="HTTPSampler.method">POST</stringProp>
        </HTTPSamplerProxy>
        <hashTree/>
        <HTTPSamplerProxy guiclass="HttpTestSampleGui" testclass="HTTPSamplerProxy" testname="getPet" enabled="true">
          <stringProp name="HTTPSampler.path">/pets/${id}</stringProp>
          <stringProp name="HTTPSampler.method">GET</stringProp>
        </HTTPSamplerProxy>
        <hashTree/>
        <HTTPSamplerProxy guiclass="HttpTestSampleGui" testclass="HTTPSamplerProxy" testname="oldEndpoint" enabled="true">
          <stringProp name="HTTPSampler.path">/old</stringProp>
          <stringProp name="HTTPSampler.method">GET</stringProp>
        </HTTPSamplerProxy>
        <hashTree/>
      </hashTree>
    </hashTree>
  </hashTree>
</jmeterTestPlan>
`

// WriteFile writes content to name inside dir and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// WriteTempYAML marshals a document to YAML and writes it to a temporary file.
// Returns the path to the temporary file.
// The file is automatically cleaned up when the test completes (via t.TempDir).
func WriteTempYAML(t *testing.T, doc any) string {
	t.Helper()

	data, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatalf("Failed to marshal document to YAML: %v", err)
	}

	tmpFile := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		t.Fatalf("Failed to write temporary YAML file: %v", err)
	}

	return tmpFile
}

// WriteTempJSON marshals a document to JSON and writes it to a temporary file.
// Returns the path to the temporary file.
// The file is automatically cleaned up when the test completes (via t.TempDir).
func WriteTempJSON(t *testing.T, doc any) string {
	t.Helper()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal document to JSON: %v", err)
	}

	tmpFile := filepath.Join(t.TempDir(), "test.json")
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		t.Fatalf("Failed to write temporary JSON file: %v", err)
	}

	return tmpFile
}

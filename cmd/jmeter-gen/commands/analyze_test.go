package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kzaorski/jmeter-test-generator-sub001/discover"
	"github.com/kzaorski/jmeter-test-generator-sub001/internal/testutil"
)

func TestHandleAnalyze_Args(t *testing.T) {
	var out bytes.Buffer
	assert.NoError(t, HandleAnalyze([]string{"--help"}, &out))
	assert.ErrorContains(t, HandleAnalyze([]string{"openapi.yaml"}, &out), "analyze command takes no arguments")
	assert.ErrorContains(t, HandleAnalyze([]string{"--format", "xml"}, &out), "invalid format")
}

func TestHandleAnalyze_RecommendsPlanName(t *testing.T) {
	p := newCLIProject(t)

	var out bytes.Buffer
	require.NoError(t, HandleAnalyze(p.args(), &out))
	got := out.String()
	assert.Contains(t, got, "Spec: "+p.spec+" (yaml)")
	assert.Contains(t, got, "API: Pets API 1.0.0")
	assert.Contains(t, got, "Base URL: http://localhost:8080/v1")
	assert.Contains(t, got, "Plan: "+filepath.Join(p.dir, "pets-api-test.jmx"))
	assert.Contains(t, got, "Status: Plan not found (recommended name: pets-api-test.jmx)")
	assert.NotContains(t, got, "Other specs found:")
}

func TestHandleAnalyze_ExistingPlan(t *testing.T) {
	p := newCLIProject(t)
	testutil.WriteFile(t, p.dir, "docs/swagger.json", "{}")

	var out bytes.Buffer
	require.NoError(t, HandleAnalyze(p.args("--jmx", p.jmx), &out))
	assert.Contains(t, out.String(), "Other specs found:\n  - "+filepath.Join(p.dir, "docs", "swagger.json"))
	assert.Contains(t, out.String(), "Status: No snapshot recorded")
	assert.Contains(t, out.String(), "Next step: jmeter-gen snapshot "+p.jmx)

	ctx := context.Background()
	require.NoError(t, HandleSnapshot(ctx, p.args(p.jmx), &bytes.Buffer{}))
	out.Reset()
	require.NoError(t, HandleAnalyze(p.args("--jmx", p.jmx), &out))
	assert.Contains(t, out.String(), "Status: Up to date")

	testutil.WriteFile(t, p.dir, "openapi.yaml", testutil.PetsOpenAPINext)
	out.Reset()
	require.NoError(t, HandleAnalyze(p.args("--jmx", p.jmx), &out), "analyze never fails on changes")
	assert.Contains(t, out.String(), "Status: Changed (1 added, 1 removed, 0 modified)")
	assert.Contains(t, out.String(), "Next step: jmeter-gen update "+p.jmx)
}

func TestHandleAnalyze_JSON(t *testing.T) {
	p := newCLIProject(t)

	var out bytes.Buffer
	require.NoError(t, HandleAnalyze(p.args("--format", "json", "--jmx", p.jmx), &out))
	var got struct {
		SpecPath       string `json:"spec_path"`
		RecommendedJMX string `json:"recommended_jmx"`
		JMXExists      bool   `json:"jmx_exists"`
		Check          struct {
			Status string `json:"status"`
		} `json:"check"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, p.spec, got.SpecPath)
	assert.Equal(t, "pets-api-test.jmx", got.RecommendedJMX)
	assert.True(t, got.JMXExists)
	assert.Equal(t, "new", got.Check.Status)
}

func TestHandleAnalyze_NoSpec(t *testing.T) {
	p := newCLIProject(t)
	require.NoError(t, os.Remove(p.spec))

	assert.ErrorIs(t, HandleAnalyze(p.args(), &bytes.Buffer{}), discover.ErrNotFound)
}

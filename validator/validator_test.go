package validator

import (
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kzaorski/jmeter-test-generator-sub001/internal/testutil"
	"github.com/kzaorski/jmeter-test-generator-sub001/jmxerrors"
	"github.com/kzaorski/jmeter-test-generator-sub001/logging"
)

// completePlan has every element the validator looks for.
const completePlan = `<?xml version="1.0" encoding="UTF-8"?>
<jmeterTestPlan version="1.2" properties="5.0" jmeter="5.6.3">
  <hashTree>
    <TestPlan guiclass="TestPlanGui" testclass="TestPlan" testname="Pets API" enabled="true"/>
    <hashTree>
      <ConfigTestElement guiclass="HttpDefaultsGui" testclass="ConfigTestElement" testname="HTTP Request Defaults" enabled="true">
        <stringProp name="HTTPSampler.domain">localhost</stringProp>
      </ConfigTestElement>
      <hashTree/>
      <HeaderManager guiclass="HeaderPanel" testclass="HeaderManager" testname="Headers" enabled="true"/>
      <hashTree/>
      <ThreadGroup guiclass="ThreadGroupGui" testclass="ThreadGroup" testname="Users" enabled="true">
        <elementProp name="ThreadGroup.main_controller" elementType="LoopController">
          <stringProp name="LoopController.loops">5</stringProp>
        </elementProp>
        <stringProp name="ThreadGroup.num_threads">20</stringProp>
        <stringProp name="ThreadGroup.ramp_time">10</stringProp>
      </ThreadGroup>
      <hashTree>
        <CSVDataSet guiclass="TestBeanGUI" testclass="CSVDataSet" testname="users.csv" enabled="true"/>
        <hashTree/>
        <ConstantTimer guiclass="ConstantTimerGui" testclass="ConstantTimer" testname="Think" enabled="true"/>
        <hashTree/>
        <HTTPSamplerProxy guiclass="HttpTestSampleGui" testclass="HTTPSamplerProxy" testname="listPets" enabled="true">
          <stringProp name="HTTPSampler.path">/pets</stringProp>
          <stringProp name="HTTPSampler.method">GET</stringProp>
        </HTTPSamplerProxy>
        <hashTree>
          <ResponseAssertion guiclass="AssertionGui" testclass="ResponseAssertion" testname="Status" enabled="true"/>
          <hashTree/>
          <DurationAssertion guiclass="DurationAssertionGui" testclass="DurationAssertion" testname="SLA" enabled="true"/>
          <hashTree/>
        </hashTree>
        <ResultCollector guiclass="SummaryReport" testclass="ResultCollector" testname="Summary" enabled="true"/>
        <hashTree/>
      </hashTree>
    </hashTree>
  </hashTree>
</jmeterTestPlan>
`

func TestValidateData_CompletePlan(t *testing.T) {
	v, err := New(WithLogger(logging.NopLogger{}))
	require.NoError(t, err)

	result, err := v.ValidateData([]byte(completePlan), "complete.jmx")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "complete.jmx", result.Path)
	assert.Equal(t, 1, result.Samplers)
	assert.Empty(t, result.Issues)
	assert.Empty(t, result.Recommendations)
}

func TestValidateData_Issues(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(string) string
		issues  []string
		samples int
	}{
		{
			name:   "wrong root",
			edit:   func(string) string { return "<testPlan><hashTree/></testPlan>" },
			issues: []string{"Root element must be 'jmeterTestPlan' (found: 'testPlan')"},
		},
		{
			name: "missing thread group",
			edit: func(s string) string {
				s = strings.Replace(s, "<ThreadGroup ", "<SetupThreadGroup ", 1)
				return strings.Replace(s, "</ThreadGroup>", "</SetupThreadGroup>", 1)
			},
			issues:  []string{"Missing ThreadGroup element"},
			samples: 1,
		},
		{
			name: "zero threads",
			edit: func(s string) string {
				return strings.Replace(s, `num_threads">20<`, `num_threads">0<`, 1)
			},
			issues:  []string{"ThreadGroup 'num_threads' must be > 0 (found: 0)"},
			samples: 1,
		},
		{
			name: "non-numeric threads",
			edit: func(s string) string {
				return strings.Replace(s, `num_threads">20<`, `num_threads">many<`, 1)
			},
			issues:  []string{"ThreadGroup 'num_threads' must be a valid number (found: 'many')"},
			samples: 1,
		},
		{
			name: "no ramp time",
			edit: func(s string) string {
				return strings.Replace(s, `<stringProp name="ThreadGroup.ramp_time">10</stringProp>`, "", 1)
			},
			issues:  []string{"ThreadGroup missing 'ramp_time' configuration"},
			samples: 1,
		},
		{
			name: "no loops and no scheduler",
			edit: func(s string) string {
				return strings.Replace(s, `<stringProp name="LoopController.loops">5</stringProp>`, "", 1)
			},
			issues:  []string{"ThreadGroup must have either scheduler enabled or loop count configured"},
			samples: 1,
		},
		{
			name: "scheduler without duration",
			edit: func(s string) string {
				return strings.Replace(s, `<stringProp name="LoopController.loops">5</stringProp>`,
					`<boolProp name="ThreadGroup.scheduler">true</boolProp>`, 1)
			},
			issues:  []string{"ThreadGroup has scheduler enabled but missing 'duration' configuration"},
			samples: 1,
		},
		{
			name: "sampler without path and method",
			edit: func(s string) string {
				s = strings.Replace(s, `<stringProp name="HTTPSampler.path">/pets</stringProp>`, "", 1)
				return strings.Replace(s, `<stringProp name="HTTPSampler.method">GET</stringProp>`,
					`<stringProp name="HTTPSampler.method"></stringProp>`, 1)
			},
			issues: []string{
				"Sampler 'listPets' missing path configuration",
				"Sampler 'listPets' missing HTTP method",
			},
			samples: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := New()
			require.NoError(t, err)
			result, err := v.ValidateData([]byte(tt.edit(completePlan)), "plan.jmx")
			require.NoError(t, err)
			assert.False(t, result.Valid)
			assert.Equal(t, tt.issues, result.Issues)
			assert.Equal(t, tt.samples, result.Samplers)
		})
	}
}

func TestValidateData_RuntimeThreadCount(t *testing.T) {
	plan := strings.Replace(completePlan, `num_threads">20<`, `num_threads">${__P(threads,50)}<`, 1)
	v, err := New()
	require.NoError(t, err)
	result, err := v.ValidateData([]byte(plan), "plan.jmx")
	require.NoError(t, err)
	assert.True(t, result.Valid, "property references are resolved by JMeter")
	assert.Empty(t, result.Recommendations)
}

func TestValidateData_Recommendations(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	// The generated fixture has samplers and a CSV data set but nothing else.
	result, err := v.ValidateData([]byte(testutil.PetPlanJMX), "pets.jmx")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, 4, result.Samplers)
	assert.Contains(t, result.Issues, "ThreadGroup must have either scheduler enabled or loop count configured")
	assert.Contains(t, result.Issues, "Sampler 'getPet' has no domain and no HTTP Request Defaults found")
	assert.Equal(t, []string{
		"Consider adding listeners (View Results Tree, Summary Report) for result analysis",
		"Consider adding timers to simulate realistic user think time",
		"Consider using HTTP Request Defaults to centralize server configuration",
		"Consider adding Header Manager for Content-Type and other headers",
		"Thread count is low (1). Consider increasing for realistic load testing",
		"No assertions found. Consider adding assertions to validate responses",
	}, result.Recommendations)
}

func TestValidateData_SamplerDomainWithoutDefaults(t *testing.T) {
	plan := strings.Replace(completePlan, `testclass="ConfigTestElement"`, `testclass="Arguments"`, 1)
	plan = strings.Replace(plan, `<stringProp name="HTTPSampler.path">/pets</stringProp>`,
		`<stringProp name="HTTPSampler.domain">api.example.com</stringProp>
          <stringProp name="HTTPSampler.path">/pets</stringProp>`, 1)
	v, err := New()
	require.NoError(t, err)
	result, err := v.ValidateData([]byte(plan), "plan.jmx")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, []string{"Consider using HTTP Request Defaults to centralize server configuration"}, result.Recommendations)
}

func TestValidateData_Errors(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	_, err = v.ValidateData([]byte("<jmeterTestPlan><hashTree>"), "broken.jmx")
	require.Error(t, err)
	assert.ErrorIs(t, err, jmxerrors.ErrParse)
	var pe *jmxerrors.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "broken.jmx", pe.Path)

	_, err = v.ValidateData([]byte("   "), "empty.jmx")
	assert.ErrorIs(t, err, jmxerrors.ErrParse)
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "tests/complete.jmx", completePlan)

	result, err := ValidateFile(path)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, path, result.Path)

	_, err = ValidateFile(filepath.Join(dir, "missing.jmx"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

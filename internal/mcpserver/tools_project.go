package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kzaorski/jmeter-test-generator-sub001/jmxsync"
	"github.com/kzaorski/jmeter-test-generator-sub001/validator"
)

type validateJMXInput struct {
	JMX string `json:"jmx" jsonschema:"Path to the JMeter plan (.jmx) to validate"`
}

type validateJMXOutput struct {
	Valid           bool     `json:"valid"`
	Samplers        int      `json:"samplers"`
	Issues          []string `json:"issues,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	Summary         string   `json:"summary"`
}

func (s *Server) handleValidateJMX(_ context.Context, _ *mcp.CallToolRequest, input validateJMXInput) (*mcp.CallToolResult, validateJMXOutput, error) {
	if input.JMX == "" {
		return errResult(errors.New("jmx is required")), validateJMXOutput{}, nil
	}
	v, err := validator.New(validator.WithLogger(s.cfg.logger))
	if err != nil {
		return errResult(err), validateJMXOutput{}, nil
	}
	res, err := v.ValidateFile(s.path(input.JMX))
	if err != nil {
		return errResult(err), validateJMXOutput{}, nil
	}

	output := validateJMXOutput{
		Valid:           res.Valid,
		Samplers:        res.Samplers,
		Issues:          makeSlice[string](len(res.Issues)),
		Recommendations: makeSlice[string](len(res.Recommendations)),
	}
	output.Issues = append(output.Issues, res.Issues...)
	output.Recommendations = append(output.Recommendations, res.Recommendations...)
	if res.Valid {
		output.Summary = fmt.Sprintf("Plan is valid (%s, %s).",
			formatCount(res.Samplers, "sampler"), formatCount(len(res.Recommendations), "recommendation"))
	} else {
		output.Summary = fmt.Sprintf("Plan is invalid: %s.", formatCount(len(res.Issues), "issue"))
	}
	return nil, output, nil
}

type analyzeProjectInput struct {
	JMX string `json:"jmx,omitempty" jsonschema:"Path to the JMeter plan (default: the name recommended from the API title, in the project directory)"`
}

type specFileOutput struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	InRoot bool   `json:"in_root"`
}

type analyzeProjectOutput struct {
	SpecPath       string           `json:"spec_path"`
	SpecFormat     string           `json:"spec_format"`
	Title          string           `json:"title"`
	APIVersion     string           `json:"api_version"`
	BaseURL        string           `json:"base_url"`
	Endpoints      int              `json:"endpoints"`
	RecommendedJMX string           `json:"recommended_jmx"`
	JMXPath        string           `json:"jmx_path"`
	JMXExists      bool             `json:"jmx_exists"`
	Status         string           `json:"status"`
	MultipleSpecs  bool             `json:"multiple_specs"`
	AvailableSpecs []specFileOutput `json:"available_specs"`
	Summary        string           `json:"summary"`
}

func (s *Server) handleAnalyzeProject(_ context.Context, _ *mcp.CallToolRequest, input analyzeProjectInput) (*mcp.CallToolResult, analyzeProjectOutput, error) {
	jmxPath := ""
	if input.JMX != "" {
		jmxPath = s.path(input.JMX)
	}
	res, err := s.comps.Service.Analyze(s.comps.ProjectDir, jmxPath)
	if err != nil {
		return errResult(err), analyzeProjectOutput{}, nil
	}

	output := analyzeProjectOutput{
		SpecPath:       s.rel(res.SpecPath),
		SpecFormat:     res.SpecFormat,
		Title:          res.Title,
		APIVersion:     res.APIVersion,
		BaseURL:        res.BaseURL,
		Endpoints:      res.Endpoints,
		RecommendedJMX: res.RecommendedJMX,
		JMXPath:        s.rel(res.JMXPath),
		JMXExists:      res.JMXExists,
		Status:         string(res.Check.Status),
		MultipleSpecs:  res.MultipleSpecs(),
		AvailableSpecs: make([]specFileOutput, 0, len(res.AvailableSpecs)),
	}
	for _, spec := range res.AvailableSpecs {
		output.AvailableSpecs = append(output.AvailableSpecs, specFileOutput{
			Path:   s.rel(spec.Path),
			Format: spec.Format,
			InRoot: spec.InRoot,
		})
	}
	output.Summary = buildAnalyzeSummary(res)
	return nil, output, nil
}

func buildAnalyzeSummary(res *jmxsync.AnalyzeResult) string {
	api := fmt.Sprintf("%s %s with %s", res.Title, res.APIVersion, formatCount(res.Endpoints, "endpoint"))
	switch {
	case !res.JMXExists:
		return api + "; no plan yet, recommended name " + res.RecommendedJMX + "."
	case res.Check.Status == jmxsync.StatusNew:
		return api + "; plan has no snapshot, run save_snapshot to record a baseline."
	case res.Check.Status == jmxsync.StatusUnchanged:
		return api + "; plan is up to date."
	default:
		return api + "; plan is out of date, " + formatCount(res.Check.Diff.Summary.Total(), "endpoint change") +
			" found. Run update_jmx to apply."
	}
}

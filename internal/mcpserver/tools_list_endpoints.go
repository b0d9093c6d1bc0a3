package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kzaorski/jmeter-test-generator-sub001/apispec"
)

type listEndpointsInput struct {
	Spec        specInput `json:"spec"                   jsonschema:"The spec to list"`
	Method      string    `json:"method,omitempty"       jsonschema:"Filter by HTTP method (get\\, post\\, put\\, delete\\, patch\\, etc.)"`
	Path        string    `json:"path,omitempty"         jsonschema:"Filter by path pattern (supports * and ** globs)"`
	OperationID string    `json:"operation_id,omitempty" jsonschema:"Select by operationId"`
	GroupBy     string    `json:"group_by,omitempty"     jsonschema:"Group results and return counts instead of individual items. Values: method"`
	Limit       int       `json:"limit,omitempty"        jsonschema:"Maximum number of results to return (default 100)"`
	Offset      int       `json:"offset,omitempty"       jsonschema:"Skip the first N results (for pagination)"`
}

type endpointSummary struct {
	Method         string   `json:"method"`
	Path           string   `json:"path"`
	OperationID    string   `json:"operation_id,omitempty"`
	Summary        string   `json:"summary,omitempty"`
	Parameters     []string `json:"parameters,omitempty"`
	HasRequestBody bool     `json:"has_request_body,omitempty"`
	ResponseCodes  []string `json:"response_codes,omitempty"`
}

type listEndpointsOutput struct {
	Title    string            `json:"title,omitempty"`
	Version  string            `json:"version,omitempty"`
	BaseURL  string            `json:"base_url,omitempty"`
	Total    int               `json:"total"`
	Matched  int               `json:"matched"`
	Returned int               `json:"returned"`
	Items    []endpointSummary `json:"items,omitempty"`
	Groups   []groupCount      `json:"groups,omitempty"`
}

var listEndpointsGroupBy = []string{"method"}

func (s *Server) handleListEndpoints(_ context.Context, _ *mcp.CallToolRequest, input listEndpointsInput) (*mcp.CallToolResult, listEndpointsOutput, error) {
	if err := validateGroupBy(input.GroupBy, listEndpointsGroupBy); err != nil {
		return errResult(err), listEndpointsOutput{}, nil
	}
	if input.Path != "" && !doublestar.ValidatePattern(escapeTemplate(input.Path)) {
		return errResult(fmt.Errorf("invalid path pattern %q", input.Path)), listEndpointsOutput{}, nil
	}

	spec, err := input.Spec.resolve(s.cache, s.comps.ProjectDir)
	if err != nil {
		return errResult(err), listEndpointsOutput{}, nil
	}

	matched := filterEndpoints(spec.Endpoints, input)
	output := listEndpointsOutput{
		Title:   spec.Title,
		Version: spec.Version,
		BaseURL: spec.BaseURL,
		Total:   len(spec.Endpoints),
		Matched: len(matched),
	}

	if input.GroupBy != "" {
		output.Groups = groupAndSort(matched, func(e apispec.Endpoint) []string {
			return []string{strings.ToUpper(e.Method)}
		})
		return nil, output, nil
	}

	returned := paginate(matched, input.Offset, input.Limit, s.cfg)
	output.Returned = len(returned)
	output.Items = makeSlice[endpointSummary](len(returned))
	for _, e := range returned {
		item := endpointSummary{
			Method:         e.Method,
			Path:           e.Path,
			OperationID:    e.OperationID,
			Summary:        e.Summary,
			HasRequestBody: e.HasRequestBody,
			ResponseCodes:  e.ResponseCodes,
			Parameters:     makeSlice[string](len(e.Parameters)),
		}
		for _, p := range e.Parameters {
			item.Parameters = append(item.Parameters, p.In+":"+p.Name)
		}
		output.Items = append(output.Items, item)
	}
	return nil, output, nil
}

// filterEndpoints applies all endpoint filters and returns the matching subset.
func filterEndpoints(endpoints []apispec.Endpoint, input listEndpointsInput) []apispec.Endpoint {
	var matched []apispec.Endpoint
	for _, e := range endpoints {
		if input.Method != "" && !strings.EqualFold(e.Method, input.Method) {
			continue
		}
		if input.OperationID != "" && e.OperationID != input.OperationID {
			continue
		}
		if input.Path != "" && !matchPath(e.Path, input.Path) {
			continue
		}
		matched = append(matched, e)
	}
	return matched
}

// templateBraces keeps {param} segments literal in doublestar patterns.
var templateBraces = strings.NewReplacer("{", `\{`, "}", `\}`)

func escapeTemplate(pattern string) string {
	return templateBraces.Replace(pattern)
}

// matchPath matches a path template against a glob where * is one segment
// and ** is any number of segments. The pattern is validated by the caller.
func matchPath(pathTemplate, pattern string) bool {
	if !strings.ContainsAny(pattern, "*?[") {
		return pathTemplate == pattern
	}
	ok, err := doublestar.Match(escapeTemplate(pattern), pathTemplate)
	return err == nil && ok
}

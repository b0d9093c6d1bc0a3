package mcpserver

import (
	"context"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kzaorski/jmeter-test-generator-sub001/differ"
)

type compareSpecsInput struct {
	Old    specInput `json:"old"              jsonschema:"The original spec"`
	New    specInput `json:"new"              jsonschema:"The revised spec to compare against the original"`
	Offset int       `json:"offset,omitempty" jsonschema:"Skip the first N changes (for pagination)"`
	Limit  int       `json:"limit,omitempty"  jsonschema:"Maximum number of changes to return (default 100)"`
}

type endpointChange struct {
	Change      string   `json:"change"`
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	OperationID string   `json:"operation_id,omitempty"`
	Fields      []string `json:"fields,omitempty"`
}

type diffOutput struct {
	OldVersion    string           `json:"old_version"`
	NewVersion    string           `json:"new_version"`
	AddedCount    int              `json:"added_count"`
	RemovedCount  int              `json:"removed_count"`
	ModifiedCount int              `json:"modified_count"`
	TotalChanges  int              `json:"total_changes"`
	Returned      int              `json:"returned"`
	Changes       []endpointChange `json:"changes,omitempty"`
	Duplicates    []string         `json:"duplicates,omitempty"`
	Summary       string           `json:"summary"`
}

func (s *Server) handleCompareSpecs(_ context.Context, _ *mcp.CallToolRequest, input compareSpecsInput) (*mcp.CallToolResult, diffOutput, error) {
	oldSpec, err := input.Old.resolve(s.cache, s.comps.ProjectDir)
	if err != nil {
		return errResult(err), diffOutput{}, nil
	}
	newSpec, err := input.New.resolve(s.cache, s.comps.ProjectDir)
	if err != nil {
		return errResult(err), diffOutput{}, nil
	}

	diff, err := s.comps.Differ.Compare(oldSpec, newSpec)
	if err != nil {
		return errResult(err), diffOutput{}, nil
	}
	return nil, s.buildDiffOutput(diff, input.Offset, input.Limit), nil
}

// buildDiffOutput lists added, removed and modified endpoints, each group
// ordered by path then method, and returns the requested page of them.
func (s *Server) buildDiffOutput(diff *differ.SpecDiff, offset, limit int) diffOutput {
	sorted := diff.Sorted()
	all := sorted.Changes()
	page := paginate(all, offset, limit, s.cfg)

	output := diffOutput{
		OldVersion:    diff.OldVersion,
		NewVersion:    diff.NewVersion,
		AddedCount:    diff.Summary.Added,
		RemovedCount:  diff.Summary.Removed,
		ModifiedCount: diff.Summary.Modified,
		TotalChanges:  len(all),
		Returned:      len(page),
		Changes:       makeSlice[endpointChange](len(page)),
		Duplicates:    makeSlice[string](len(diff.Duplicates)),
	}
	for _, c := range page {
		output.Changes = append(output.Changes, endpointChange{
			Change:      string(c.Type),
			Method:      c.Method,
			Path:        c.Path,
			OperationID: c.OperationID,
			Fields:      c.Changes.Fields(),
		})
	}
	for _, d := range diff.Duplicates {
		output.Duplicates = append(output.Duplicates,
			d.Side+" spec repeats "+d.Method+" "+d.Path+" at index "+strconv.Itoa(d.Index)+" (first at "+strconv.Itoa(d.FirstIndex)+")")
	}
	output.Summary = buildDiffSummary(output)
	return output
}

func buildDiffSummary(output diffOutput) string {
	if output.TotalChanges == 0 {
		return "No changes detected."
	}

	var parts []string
	if output.AddedCount > 0 {
		parts = append(parts, strconv.Itoa(output.AddedCount)+" added")
	}
	if output.RemovedCount > 0 {
		parts = append(parts, strconv.Itoa(output.RemovedCount)+" removed")
	}
	if output.ModifiedCount > 0 {
		parts = append(parts, strconv.Itoa(output.ModifiedCount)+" modified")
	}
	return formatCount(output.TotalChanges, "endpoint change") + " found (" + strings.Join(parts, ", ") + ")."
}

func formatCount(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

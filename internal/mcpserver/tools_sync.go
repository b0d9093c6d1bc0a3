package mcpserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kzaorski/jmeter-test-generator-sub001/discover"
	"github.com/kzaorski/jmeter-test-generator-sub001/jmxsync"
)

type planInput struct {
	Spec string `json:"spec,omitempty" jsonschema:"Path to the OpenAPI 3 or Swagger 2 file (default: discovered in the project directory)"`
	JMX  string `json:"jmx"            jsonschema:"Path to the generated JMeter plan (.jmx)"`
}

type detectChangesInput struct {
	Spec   string `json:"spec,omitempty"   jsonschema:"Path to the OpenAPI 3 or Swagger 2 file (default: discovered in the project directory)"`
	JMX    string `json:"jmx"              jsonschema:"Path to the generated JMeter plan (.jmx)"`
	Offset int    `json:"offset,omitempty" jsonschema:"Skip the first N changes (for pagination)"`
	Limit  int    `json:"limit,omitempty"  jsonschema:"Maximum number of changes to return (default 100)"`
}

type detectChangesOutput struct {
	Status       string      `json:"status"`
	HasChanges   bool        `json:"has_changes"`
	SnapshotPath string      `json:"snapshot_path,omitempty"`
	Endpoints    int         `json:"endpoints"`
	Diff         *diffOutput `json:"diff,omitempty"`
	Summary      string      `json:"summary"`
}

func (s *Server) handleDetectChanges(_ context.Context, _ *mcp.CallToolRequest, input detectChangesInput) (*mcp.CallToolResult, detectChangesOutput, error) {
	specPath, jmxPath, err := s.planPaths(input.Spec, input.JMX)
	if err != nil {
		return errResult(err), detectChangesOutput{}, nil
	}
	check, err := s.comps.Service.Check(specPath, jmxPath)
	if err != nil {
		return errResult(err), detectChangesOutput{}, nil
	}

	output := detectChangesOutput{
		Status:       string(check.Status),
		HasChanges:   check.HasChanges(),
		SnapshotPath: s.rel(check.SnapshotPath),
		Endpoints:    len(check.Spec.Endpoints),
	}
	switch check.Status {
	case jmxsync.StatusNew:
		output.Summary = "No snapshot found; run save_snapshot or update_jmx to record a baseline."
	default:
		diff := s.buildDiffOutput(check.Diff, input.Offset, input.Limit)
		output.Diff = &diff
		output.Summary = diff.Summary
	}
	return nil, output, nil
}

type updateJMXOutput struct {
	Status       string   `json:"status"`
	Success      bool     `json:"success"`
	Added        int      `json:"added"`
	Disabled     int      `json:"disabled"`
	Updated      int      `json:"updated"`
	BackupPath   string   `json:"backup_path,omitempty"`
	SnapshotPath string   `json:"snapshot_path,omitempty"`
	Errors       []string `json:"errors,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	Summary      string   `json:"summary"`
}

func (s *Server) handleUpdateJMX(ctx context.Context, _ *mcp.CallToolRequest, input planInput) (*mcp.CallToolResult, updateJMXOutput, error) {
	specPath, jmxPath, err := s.planPaths(input.Spec, input.JMX)
	if err != nil {
		return errResult(err), updateJMXOutput{}, nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.comps.Service.Sync(ctx, specPath, jmxPath)
	if err != nil {
		return errResult(err), updateJMXOutput{}, nil
	}

	output := updateJMXOutput{
		Status:       string(res.Check.Status),
		Success:      true,
		SnapshotPath: s.rel(res.SnapshotPath),
		Warnings:     makeSlice[string](len(res.Warnings)),
	}
	output.Warnings = append(output.Warnings, res.Warnings...)
	if u := res.Update; u != nil {
		output.Success = u.Success
		output.Added = u.ChangesApplied.Added
		output.Disabled = u.ChangesApplied.Disabled
		output.Updated = u.ChangesApplied.Updated
		output.BackupPath = s.rel(u.BackupPath)
		output.Errors = makeSlice[string](len(u.Errors))
		output.Errors = append(output.Errors, u.Errors...)
		output.Warnings = append(output.Warnings, u.Warnings...)
	}
	output.Summary = buildUpdateSummary(output)
	return nil, output, nil
}

func buildUpdateSummary(output updateJMXOutput) string {
	switch {
	case output.Status == string(jmxsync.StatusUnchanged):
		return "Plan is up to date."
	case output.Status == string(jmxsync.StatusNew):
		return "Baseline snapshot recorded; plan left untouched."
	case !output.Success:
		return "Update failed; plan restored from backup."
	}
	total := output.Added + output.Disabled + output.Updated
	if total == 0 {
		return "No sampler changes were needed."
	}
	return formatCount(total, "sampler change") + " applied (" +
		formatCount(output.Added, "added sampler") + ", " +
		formatCount(output.Disabled, "disabled sampler") + ", " +
		formatCount(output.Updated, "renamed sampler") + ")."
}

type saveSnapshotOutput struct {
	SnapshotPath string `json:"snapshot_path"`
	Endpoints    int    `json:"endpoints"`
}

func (s *Server) handleSaveSnapshot(ctx context.Context, _ *mcp.CallToolRequest, input planInput) (*mcp.CallToolResult, saveSnapshotOutput, error) {
	specPath, jmxPath, err := s.planPaths(input.Spec, input.JMX)
	if err != nil {
		return errResult(err), saveSnapshotOutput{}, nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	path, err := s.comps.Service.SaveSnapshot(ctx, specPath, jmxPath)
	if err != nil {
		return errResult(err), saveSnapshotOutput{}, nil
	}
	output := saveSnapshotOutput{SnapshotPath: s.rel(path)}
	// Served from the cache unless caching is disabled.
	if spec, err := s.cache.Load(specPath); err == nil {
		output.Endpoints = len(spec.Endpoints)
	}
	return nil, output, nil
}

// planPaths resolves the tool's spec and plan paths. An empty spec means the
// best spec discovered in the project directory.
func (s *Server) planPaths(spec, jmx string) (specPath, jmxPath string, err error) {
	if jmx == "" {
		return "", "", errors.New("jmx is required")
	}
	if spec == "" {
		found, err := discover.FindSpec(s.comps.ProjectDir)
		if err != nil {
			return "", "", err
		}
		return found.Path, s.path(jmx), nil
	}
	return s.path(spec), s.path(jmx), nil
}

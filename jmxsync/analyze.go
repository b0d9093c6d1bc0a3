package jmxsync

import (
	"os"
	"path/filepath"

	"github.com/kzaorski/jmeter-test-generator-sub001/discover"
)

// AnalyzeResult describes the spec discovered in a project and the state of
// the plan generated from it.
type AnalyzeResult struct {
	ProjectDir string `json:"project_dir" yaml:"project_dir"`
	SpecPath   string `json:"spec_path"   yaml:"spec_path"`
	SpecFormat string `json:"spec_format" yaml:"spec_format"`
	Title      string `json:"title"       yaml:"title"`
	APIVersion string `json:"api_version" yaml:"api_version"`
	BaseURL    string `json:"base_url"    yaml:"base_url"`
	Endpoints  int    `json:"endpoints"   yaml:"endpoints"`
	// RecommendedJMX is the plan file name derived from the API title.
	RecommendedJMX string `json:"recommended_jmx" yaml:"recommended_jmx"`
	JMXPath        string `json:"jmx_path"        yaml:"jmx_path"`
	JMXExists      bool   `json:"jmx_exists"      yaml:"jmx_exists"`
	// AvailableSpecs lists every spec found, best match first.
	AvailableSpecs []discover.SpecFile `json:"available_specs" yaml:"available_specs"`
	Check          *CheckResult        `json:"check"           yaml:"check"`
}

// MultipleSpecs reports whether more than one spec was found.
func (r *AnalyzeResult) MultipleSpecs() bool { return len(r.AvailableSpecs) > 1 }

// Analyze discovers the best spec under dir and checks it against the
// snapshot of jmxPath. An empty jmxPath means the recommended plan name in
// dir. A project without any spec fails with an error wrapping
// discover.ErrNotFound.
func (s *Service) Analyze(dir, jmxPath string) (*AnalyzeResult, error) {
	specs, err := discover.FindSpecs(dir)
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, discover.NotFound(dir)
	}
	best := specs[0]
	s.logger.Debug("spec discovered", "spec", best.Path, "candidates", len(specs))

	spec, err := s.loader.Load(best.Path)
	if err != nil {
		return nil, err
	}
	result := &AnalyzeResult{
		ProjectDir:     dir,
		SpecPath:       best.Path,
		SpecFormat:     best.Format,
		Title:          spec.Title,
		APIVersion:     spec.Version,
		BaseURL:        spec.BaseURL,
		Endpoints:      len(spec.Endpoints),
		RecommendedJMX: discover.PlanName(spec.Title),
		AvailableSpecs: specs,
	}
	if jmxPath == "" {
		jmxPath = filepath.Join(dir, result.RecommendedJMX)
	}
	result.JMXPath = jmxPath
	if info, err := os.Stat(jmxPath); err == nil && !info.IsDir() {
		result.JMXExists = true
	}

	result.Check, err = s.check(spec, best.Path, jmxPath)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Package discover locates OpenAPI/Swagger documents inside a project
// directory, so commands can work from a plan path alone.
//
// Only well-known file names are considered (see CommonSpecNames). The
// project root is searched first, then subdirectories up to MaxSearchDepth
// levels deep. Hidden directories and dependency or virtualenv directories
// are skipped.
package discover

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/kzaorski/jmeter-test-generator-sub001/jmxerrors"
)

// CommonSpecNames are the file names recognized as specs, most preferred
// first.
var CommonSpecNames = []string{
	"openapi.yaml",
	"openapi.yml",
	"openapi.json",
	"swagger.yaml",
	"swagger.yml",
	"swagger.json",
	"api-spec.yaml",
	"api.yaml",
}

// MaxSearchDepth is how many directory levels below the root are searched.
const MaxSearchDepth = 3

// skippedDirs are never descended into, in addition to hidden directories.
var skippedDirs = map[string]bool{
	"node_modules": true,
	"__pycache__":  true,
	"venv":         true,
	"env":          true,
}

// ErrNotFound is the cause of the FindSpec error for a directory without
// any spec.
var ErrNotFound = errors.New("no OpenAPI spec found")

// Spec formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// SpecFile is a spec found in a project.
type SpecFile struct {
	// Path is absolute.
	Path   string `json:"path"    yaml:"path"`
	Format string `json:"format"  yaml:"format"`
	InRoot bool   `json:"in_root" yaml:"in_root"`
}

// FindSpecs returns every spec under dir, best match first: specs in the
// root before those in subdirectories, then files named openapi.* before
// other names, then YAML before JSON. Remaining ties follow CommonSpecNames
// and then the path. An empty result is not an error; a dir that cannot be
// read is.
func FindSpecs(dir string) ([]SpecFile, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("discover: %s is not a directory", dir)
	}

	var found []SpecFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Unreadable subdirectories are skipped.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		depth := strings.Count(filepath.ToSlash(rel), "/") + 1
		if d.IsDir() {
			if path == root {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") || skippedDirs[d.Name()] || depth > MaxSearchDepth {
				return fs.SkipDir
			}
			return nil
		}
		if !slices.Contains(CommonSpecNames, d.Name()) || !d.Type().IsRegular() {
			return nil
		}
		found = append(found, SpecFile{Path: path, Format: formatOf(d.Name()), InRoot: depth == 1})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	slices.SortStableFunc(found, func(a, b SpecFile) int {
		if c := compareBool(a.InRoot, b.InRoot); c != 0 {
			return c
		}
		if c := compareBool(isOpenAPIName(a.Path), isOpenAPIName(b.Path)); c != 0 {
			return c
		}
		if c := compareBool(a.Format == FormatYAML, b.Format == FormatYAML); c != 0 {
			return c
		}
		if c := nameRank(a.Path) - nameRank(b.Path); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})
	return found, nil
}

// FindSpec returns the best spec under dir. When there is none the error is
// a *jmxerrors.SpecError wrapping ErrNotFound.
func FindSpec(dir string) (*SpecFile, error) {
	specs, err := FindSpecs(dir)
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, NotFound(dir)
	}
	return &specs[0], nil
}

// NotFound returns the error FindSpec reports for a dir without any spec.
func NotFound(dir string) error {
	return &jmxerrors.SpecError{
		Path:    dir,
		Message: "looked for " + strings.Join(CommonSpecNames, ", "),
		Cause:   ErrNotFound,
	}
}

// PlanName derives a plan file name from an API title:
// "User Management API" becomes "user-management-api-test.jmx". An empty
// or unusable title gives "test.jmx".
func PlanName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r == ' ' || r == '.' || r == '-':
			return '-'
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return r
		default:
			return -1
		}
	}, strings.ToLower(title))
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	name = strings.Trim(name, "-")
	if name == "" {
		return "test.jmx"
	}
	return name + "-test.jmx"
}

func formatOf(name string) string {
	if strings.HasSuffix(name, ".json") {
		return FormatJSON
	}
	return FormatYAML
}

func isOpenAPIName(path string) bool {
	return strings.Contains(strings.ToLower(filepath.Base(path)), "openapi")
}

func nameRank(path string) int {
	return slices.Index(CommonSpecNames, filepath.Base(path))
}

// compareBool orders true before false.
func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	default:
		return 1
	}
}

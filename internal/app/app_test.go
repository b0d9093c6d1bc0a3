package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kzaorski/jmeter-test-generator-sub001/apispec"
	"github.com/kzaorski/jmeter-test-generator-sub001/internal/config"
	"github.com/kzaorski/jmeter-test-generator-sub001/internal/testutil"
	"github.com/kzaorski/jmeter-test-generator-sub001/jmxsync"
	"github.com/kzaorski/jmeter-test-generator-sub001/logging"
	"github.com/kzaorski/jmeter-test-generator-sub001/parser"
	"github.com/kzaorski/jmeter-test-generator-sub001/snapshot"
)

// countingLoader counts the specs loaded through it.
type countingLoader struct {
	next  jmxsync.SpecLoader
	loads int
}

func (c *countingLoader) Load(path string) (*apispec.Spec, error) {
	c.loads++
	return c.next.Load(path)
}

func TestBuild_Defaults(t *testing.T) {
	dir := t.TempDir()
	comps, err := Build(dir, nil, nil)
	require.NoError(t, err)

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, abs, comps.ProjectDir)
	assert.Equal(t, filepath.Join(abs, snapshot.DirName, snapshot.SnapshotsDir), comps.Store.SnapshotDir())
	assert.False(t, comps.Parser.AllowExternalRefs)
	assert.False(t, comps.Differ.StrictDuplicates)
	assert.Same(t, comps.Store, comps.Service.Store())
}

func TestBuild_FollowsConfig(t *testing.T) {
	cfg := config.Default()
	cfg.ExternalRefs = true
	cfg.StrictDuplicates = true

	comps, err := Build(t.TempDir(), cfg, logging.NopLogger{}, WithVersionControl(snapshot.NoVersionControl{}))
	require.NoError(t, err)
	assert.True(t, comps.Parser.AllowExternalRefs)
	assert.True(t, comps.Differ.StrictDuplicates)
}

func TestBuild_WithLoader(t *testing.T) {
	dir := t.TempDir()
	spec := testutil.WriteFile(t, dir, "openapi.yaml", testutil.PetsOpenAPI)
	jmx := testutil.WriteFile(t, dir, "plan.jmx", testutil.PetPlanJMX)

	var counter *countingLoader
	comps, err := Build(dir, nil, nil,
		WithVersionControl(snapshot.NoVersionControl{}),
		WithLoader(func(p *parser.Parser) jmxsync.SpecLoader {
			counter = &countingLoader{next: p}
			return counter
		}))
	require.NoError(t, err)
	require.NotNil(t, counter)

	_, err = comps.Service.SaveSnapshot(context.Background(), spec, jmx)
	require.NoError(t, err)
	res, err := comps.Service.Check(spec, jmx)
	require.NoError(t, err)
	assert.Equal(t, jmxsync.StatusUnchanged, res.Status)
	assert.Equal(t, 2, counter.loads)
}

func TestBuild_Errors(t *testing.T) {
	bad := config.Default()
	bad.MaxBackups = 0
	_, err := Build(t.TempDir(), bad, nil)
	assert.ErrorContains(t, err, "max_backups must be at least 1")

	_, err = Build(t.TempDir(), nil, nil, WithVersionControl(nil))
	assert.ErrorContains(t, err, "app: invalid options: version control must not be nil")

	_, err = Build(t.TempDir(), nil, nil, WithLoader(nil))
	assert.ErrorContains(t, err, "loader constructor must not be nil")
}

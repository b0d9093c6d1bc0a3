package jmxsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kzaorski/jmeter-test-generator-sub001/apispec"
	"github.com/kzaorski/jmeter-test-generator-sub001/differ"
	"github.com/kzaorski/jmeter-test-generator-sub001/fingerprint"
	"github.com/kzaorski/jmeter-test-generator-sub001/logging"
	"github.com/kzaorski/jmeter-test-generator-sub001/snapshot"
	"github.com/kzaorski/jmeter-test-generator-sub001/updater"
)

// SpecLoader turns a spec file into the endpoint model. *parser.Parser
// implements it.
type SpecLoader interface {
	Load(path string) (*apispec.Spec, error)
}

// Status classifies an artifact against its current spec.
type Status string

const (
	// StatusNew means no snapshot exists for the artifact or the spec.
	StatusNew Status = "new"
	// StatusUnchanged means the spec matches the snapshot.
	StatusUnchanged Status = "unchanged"
	// StatusChanged means at least one endpoint was added, removed or modified.
	StatusChanged Status = "changed"
)

// CheckResult is the outcome of Check.
type CheckResult struct {
	Status   Status `json:"status"   yaml:"status"`
	SpecPath string `json:"spec_path" yaml:"spec_path"`
	JMXPath  string `json:"jmx_path" yaml:"jmx_path"`
	// SnapshotPath is the baseline that was compared against. Empty when
	// Status is StatusNew.
	SnapshotPath string `json:"snapshot_path,omitempty" yaml:"snapshot_path,omitempty"`
	// Diff is nil when Status is StatusNew.
	Diff *differ.SpecDiff `json:"diff,omitempty" yaml:"diff,omitempty"`

	// Spec is the freshly loaded spec.
	Spec *apispec.Spec `json:"-" yaml:"-"`
}

// HasChanges reports whether the artifact is out of date.
func (r *CheckResult) HasChanges() bool { return r.Status == StatusChanged }

// SyncResult is the outcome of Sync.
type SyncResult struct {
	Check *CheckResult `json:"check" yaml:"check"`
	// Update is nil when nothing had to be applied.
	Update       *updater.UpdateResult `json:"update,omitempty"        yaml:"update,omitempty"`
	SnapshotPath string                `json:"snapshot_path,omitempty" yaml:"snapshot_path,omitempty"`
	Warnings     []string              `json:"warnings"                yaml:"warnings"`
}

// Service runs the change detection and update flows over one project.
type Service struct {
	loader  SpecLoader
	differ  *differ.Differ
	store   *snapshot.Store
	updater *updater.Updater
	logger  logging.Logger
	now     func() time.Time
}

// Option is a function that configures a Service
type Option func(*config) error

type config struct {
	logger logging.Logger
	now    func() time.Time
}

// WithLogger sets the service's logger.
func WithLogger(l logging.Logger) Option {
	return func(cfg *config) error {
		cfg.logger = logging.OrNop(l)
		return nil
	}
}

// WithClock sets the time source for diffs produced without a comparison.
// Default: time.Now
func WithClock(now func() time.Time) Option {
	return func(cfg *config) error {
		if now == nil {
			return errors.New("clock must not be nil")
		}
		cfg.now = now
		return nil
	}
}

// New wires a Service from its collaborators. All of them are required.
func New(loader SpecLoader, d *differ.Differ, store *snapshot.Store, u *updater.Updater, opts ...Option) (*Service, error) {
	switch {
	case loader == nil:
		return nil, errors.New("jmxsync: spec loader is required")
	case d == nil:
		return nil, errors.New("jmxsync: differ is required")
	case store == nil:
		return nil, errors.New("jmxsync: snapshot store is required")
	case u == nil:
		return nil, errors.New("jmxsync: updater is required")
	}
	cfg := &config{logger: logging.NopLogger{}, now: time.Now}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("jmxsync: invalid options: %w", err)
		}
	}
	return &Service{
		loader:  loader,
		differ:  d,
		store:   store,
		updater: u,
		logger:  cfg.logger,
		now:     cfg.now,
	}, nil
}

// Store returns the snapshot store the service reads baselines from.
func (s *Service) Store() *snapshot.Store { return s.store }

// Check compares the spec at specPath with the snapshot of jmxPath. The
// snapshot is looked up by artifact first, then by spec path. When the spec
// hash matches the snapshot no per-endpoint diff is computed.
func (s *Service) Check(specPath, jmxPath string) (*CheckResult, error) {
	spec, err := s.loader.Load(specPath)
	if err != nil {
		return nil, err
	}
	return s.check(spec, specPath, jmxPath)
}

func (s *Service) check(spec *apispec.Spec, specPath, jmxPath string) (*CheckResult, error) {
	result := &CheckResult{SpecPath: specPath, JMXPath: jmxPath, Spec: spec}

	snap, snapPath, err := s.baseline(specPath, jmxPath)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		result.Status = StatusNew
		s.logger.Info("no snapshot found", "spec", specPath, "jmx", jmxPath)
		return result, nil
	}
	result.SnapshotPath = snapPath

	newHash := fingerprint.SpecHash(spec)
	if snap.SpecInfo.Hash == newHash {
		diff := differ.NewSpecDiff(snap.SpecInfo.APIVersion, spec.Version, nil, nil, nil)
		diff.OldHash, diff.NewHash = snap.SpecInfo.Hash, newHash
		diff.Timestamp = s.now().UTC()
		result.Status, result.Diff = StatusUnchanged, diff
		s.logger.Debug("spec hash matches snapshot", "spec", specPath, "hash", newHash)
		return result, nil
	}

	diff, err := s.snapshotDiffer().Compare(snap.Spec(), spec)
	if err != nil {
		return nil, err
	}
	// The snapshot side is redacted; report the recorded hash instead.
	diff.OldHash, diff.NewHash = snap.SpecInfo.Hash, newHash
	result.Diff = diff
	result.Status = StatusUnchanged
	if diff.HasChanges {
		result.Status = StatusChanged
	}
	s.logger.Info("spec checked",
		"spec", specPath,
		"status", string(result.Status),
		"added", diff.Summary.Added,
		"removed", diff.Summary.Removed,
		"modified", diff.Summary.Modified)
	return result, nil
}

func (s *Service) baseline(specPath, jmxPath string) (*snapshot.Snapshot, string, error) {
	snap, err := s.store.Load(jmxPath)
	if err != nil {
		return nil, "", err
	}
	if snap != nil {
		return snap, s.store.PathFor(jmxPath), nil
	}
	loc, err := s.store.FindBySpec(specPath)
	if err != nil || loc == nil {
		return nil, "", err
	}
	s.logger.Debug("snapshot found by spec path", "spec", specPath, "snapshot", loc.Path)
	return loc.Snapshot, loc.Path, nil
}

// snapshotDiffer returns a copy of the differ whose schema comparison sees
// both sides redacted, since snapshot schemas are stored redacted.
func (s *Service) snapshotDiffer() *differ.Differ {
	d := *s.differ
	base := d.SchemaFilter
	d.SchemaFilter = func(n apispec.Node) apispec.Node {
		if base != nil {
			n = base(n)
		}
		return snapshot.Redact(n)
	}
	return &d
}

// Sync brings the artifact at jmxPath up to date with the spec. A changed
// spec is applied through the updater and, when every mutation succeeded, a
// new snapshot is saved. Without a snapshot the current spec is recorded as
// the baseline. A spec whose hash moved without any endpoint change gets a
// fresh snapshot and leaves the artifact alone. Snapshot save failures are
// reported as warnings.
func (s *Service) Sync(ctx context.Context, specPath, jmxPath string) (*SyncResult, error) {
	check, err := s.Check(specPath, jmxPath)
	if err != nil {
		return nil, err
	}
	result := &SyncResult{Check: check, Warnings: []string{}}

	switch check.Status {
	case StatusUnchanged:
		if check.Diff != nil && check.Diff.OldHash != check.Diff.NewHash {
			// Only redacted members changed. Refresh the baseline so later
			// checks match on the hash.
			s.logger.Debug("refreshing snapshot", "jmx", jmxPath, "hash", check.Diff.NewHash)
			s.saveInto(ctx, result, specPath, jmxPath, check.Spec)
		}
		return result, nil
	case StatusNew:
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("No snapshot found for %s; current spec recorded as baseline", jmxPath))
		s.saveInto(ctx, result, specPath, jmxPath, check.Spec)
		return result, nil
	}

	update, err := s.updater.Update(jmxPath, check.Diff, check.Spec)
	if err != nil {
		return nil, err
	}
	result.Update = update
	if !update.Success {
		result.Warnings = append(result.Warnings, "Snapshot not saved: update reported errors")
		return result, nil
	}
	s.saveInto(ctx, result, specPath, jmxPath, check.Spec)
	return result, nil
}

func (s *Service) saveInto(ctx context.Context, result *SyncResult, specPath, jmxPath string, spec *apispec.Spec) {
	path, err := s.store.SaveContext(ctx, specPath, jmxPath, spec)
	if err != nil {
		s.logger.Warn("snapshot not saved", "jmx", jmxPath, "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not save snapshot: %v", err))
		return
	}
	result.SnapshotPath = path
}

// SaveSnapshot records the spec at specPath as the baseline for jmxPath.
func (s *Service) SaveSnapshot(ctx context.Context, specPath, jmxPath string) (string, error) {
	spec, err := s.loader.Load(specPath)
	if err != nil {
		return "", err
	}
	return s.store.SaveContext(ctx, specPath, jmxPath, spec)
}

// CompareSpecs diffs two spec files directly, without any snapshot.
func (s *Service) CompareSpecs(oldPath, newPath string) (*differ.SpecDiff, error) {
	oldSpec, err := s.loader.Load(oldPath)
	if err != nil {
		return nil, err
	}
	newSpec, err := s.loader.Load(newPath)
	if err != nil {
		return nil, err
	}
	return s.differ.Compare(oldSpec, newSpec)
}

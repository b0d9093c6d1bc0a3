package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kzaorski/jmeter-test-generator-sub001/apispec"
	"github.com/kzaorski/jmeter-test-generator-sub001/fingerprint"
	"github.com/kzaorski/jmeter-test-generator-sub001/internal/fileutil"
	"github.com/kzaorski/jmeter-test-generator-sub001/jmxerrors"
	"github.com/kzaorski/jmeter-test-generator-sub001/logging"
)

// Layout of the store under the project directory.
const (
	DirName        = ".jmeter-gen"
	SnapshotsDir   = "snapshots"
	BackupsDir     = "backups"
	SnapshotSuffix = ".spec.json"
	ExcludesFile   = ".gitignore"
)

// Snapshot record format.
const (
	FormatVersion = "1.0"
	FormatName    = "jmeter-gen-snapshot"
	SecurityNote  = "Sensitive data removed for git storage"
)

// DefaultMaxBackups is the number of backups kept per artifact.
const DefaultMaxBackups = 10

const excludesContent = `# JMeter Test Generator
# Backups are local only (not committed)
backups/

# Snapshots are committed for team collaboration
!snapshots/
`

// SpecInfo describes the spec a snapshot was taken from.
type SpecInfo struct {
	Path           string `json:"path"`
	Hash           string `json:"hash"`
	APIVersion     string `json:"api_version"`
	APITitle       string `json:"api_title"`
	BaseURL        string `json:"base_url"`
	EndpointsCount int    `json:"endpoints_count"`
}

// ArtifactInfo describes the JMX file linked to a snapshot. Hash is empty
// when the artifact did not exist at capture time.
type ArtifactInfo struct {
	Path string `json:"path"`
	Hash string `json:"hash,omitempty"`
}

// SecurityInfo marks the record as redacted.
type SecurityInfo struct {
	Filtered bool   `json:"filtered"`
	Note     string `json:"note"`
}

// Snapshot is the persisted, redacted baseline of one artifact's spec.
// Endpoints carry the fingerprints recorded before redaction.
type Snapshot struct {
	Version    string             `json:"version"`
	Format     string             `json:"format"`
	CapturedAt time.Time          `json:"captured_at"`
	CapturedBy string             `json:"captured_by"`
	GitCommit  string             `json:"git_commit,omitempty"`
	GitBranch  string             `json:"git_branch,omitempty"`
	GitAuthor  string             `json:"git_author,omitempty"`
	SpecInfo   SpecInfo           `json:"spec"`
	JMX        ArtifactInfo       `json:"jmx"`
	Endpoints  []apispec.Endpoint `json:"endpoints"`
	Security   SecurityInfo       `json:"security"`
}

// Spec returns the snapshot's endpoint set as a Spec suitable for diffing.
func (s *Snapshot) Spec() *apispec.Spec {
	return &apispec.Spec{
		Title:     s.SpecInfo.APITitle,
		Version:   s.SpecInfo.APIVersion,
		BaseURL:   s.SpecInfo.BaseURL,
		Endpoints: append([]apispec.Endpoint{}, s.Endpoints...),
	}
}

// Located is a snapshot together with the file it was read from.
type Located struct {
	Snapshot *Snapshot
	Path     string
}

// Store reads and writes snapshots and artifact backups under a project
// directory.
type Store struct {
	projectDir  string
	snapshotDir string
	backupDir   string
	maxBackups  int
	vcs         VersionControl
	logger      logging.Logger
	now         func() time.Time
}

// Option is a function that configures a Store
type Option func(*config) error

type config struct {
	maxBackups int
	vcs        VersionControl
	logger     logging.Logger
	now        func() time.Time
}

// WithMaxBackups sets how many backups are kept per artifact.
// Default: 10
func WithMaxBackups(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return fmt.Errorf("max backups must be at least 1, got %d", n)
		}
		cfg.maxBackups = n
		return nil
	}
}

// WithVersionControl sets the metadata source. nil disables it.
// Default: git in the project directory
func WithVersionControl(vc VersionControl) Option {
	return func(cfg *config) error {
		if vc == nil {
			vc = NoVersionControl{}
		}
		cfg.vcs = vc
		return nil
	}
}

// WithLogger sets the store's logger.
func WithLogger(l logging.Logger) Option {
	return func(cfg *config) error {
		cfg.logger = logging.OrNop(l)
		return nil
	}
}

// WithClock overrides the time source for captured_at and backup names.
func WithClock(now func() time.Time) Option {
	return func(cfg *config) error {
		if now == nil {
			return errors.New("clock must not be nil")
		}
		cfg.now = now
		return nil
	}
}

// NewStore creates a Store rooted at projectDir. Nothing is created on disk
// until the first write.
func NewStore(projectDir string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("snapshot: resolving project dir: %w", err)
	}
	cfg := &config{
		maxBackups: DefaultMaxBackups,
		logger:     logging.NopLogger{},
		now:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("snapshot: invalid options: %w", err)
		}
	}
	if cfg.vcs == nil {
		cfg.vcs = NewGit(abs)
	}
	base := filepath.Join(abs, DirName)
	return &Store{
		projectDir:  abs,
		snapshotDir: filepath.Join(base, SnapshotsDir),
		backupDir:   filepath.Join(base, BackupsDir),
		maxBackups:  cfg.maxBackups,
		vcs:         cfg.vcs,
		logger:      cfg.logger,
		now:         cfg.now,
	}, nil
}

// ProjectDir returns the absolute project directory.
func (s *Store) ProjectDir() string { return s.projectDir }

// SnapshotDir returns the directory holding snapshot records.
func (s *Store) SnapshotDir() string { return s.snapshotDir }

// BackupDir returns the directory holding artifact backups.
func (s *Store) BackupDir() string { return s.backupDir }

// PathFor returns the snapshot file for an artifact, keyed by its base name
// without extension.
func (s *Store) PathFor(jmxPath string) string {
	return filepath.Join(s.snapshotDir, stem(jmxPath)+SnapshotSuffix)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Save writes a redacted snapshot of spec for the artifact at jmxPath and
// returns the snapshot path. See SaveContext.
func (s *Store) Save(specPath, jmxPath string, spec *apispec.Spec) (string, error) {
	return s.SaveContext(context.Background(), specPath, jmxPath, spec)
}

// SaveContext writes a redacted snapshot. spec.hash is the SpecHash of the
// unredacted spec and each stored endpoint records its unredacted
// fingerprint. ctx bounds the version-control query. Every failure is a
// *jmxerrors.SnapshotSaveError.
func (s *Store) SaveContext(ctx context.Context, specPath, jmxPath string, spec *apispec.Spec) (string, error) {
	target := s.PathFor(jmxPath)
	if spec == nil {
		return "", &jmxerrors.SnapshotSaveError{Path: target, Cause: errors.New("spec is nil")}
	}

	endpoints := make([]apispec.Endpoint, 0, len(spec.Endpoints))
	for _, e := range spec.Endpoints {
		rec := e
		rec.Fingerprint = fingerprint.Of(e)
		redacted, err := redactEndpoint(rec)
		if err != nil {
			return "", &jmxerrors.SnapshotSaveError{Path: target, Cause: fmt.Errorf("redacting %s: %w", e.Key(), err)}
		}
		endpoints = append(endpoints, redacted)
	}

	jmxHash, err := hashFile(jmxPath)
	if err != nil {
		return "", &jmxerrors.SnapshotSaveError{Path: target, Cause: err}
	}

	snap := &Snapshot{
		Version:    FormatVersion,
		Format:     FormatName,
		CapturedAt: s.now().UTC(),
		CapturedBy: "unknown",
		SpecInfo: SpecInfo{
			Path:           s.relPath(specPath),
			Hash:           fingerprint.SpecHash(spec),
			APIVersion:     orUnknown(spec.Version),
			APITitle:       orUnknown(spec.Title),
			BaseURL:        spec.BaseURL,
			EndpointsCount: len(spec.Endpoints),
		},
		JMX:       ArtifactInfo{Path: s.relPath(jmxPath), Hash: jmxHash},
		Endpoints: endpoints,
		Security:  SecurityInfo{Filtered: true, Note: SecurityNote},
	}
	if meta, ok := s.vcs.Metadata(ctx); ok {
		snap.GitCommit = meta.Commit
		snap.GitBranch = meta.Branch
		snap.GitAuthor = meta.Author
		if meta.Author != "" {
			snap.CapturedBy = meta.Author
		}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", &jmxerrors.SnapshotSaveError{Path: target, Cause: err}
	}
	if err := os.MkdirAll(s.snapshotDir, fileutil.DirMode); err != nil {
		return "", &jmxerrors.SnapshotSaveError{Path: target, Cause: err}
	}
	if err := fileutil.WriteFileAtomic(target, append(data, '\n'), fileutil.ReadableByAll); err != nil {
		return "", &jmxerrors.SnapshotSaveError{Path: target, Cause: err}
	}
	if err := s.EnsureExcludes(); err != nil {
		return "", &jmxerrors.SnapshotSaveError{Path: target, Cause: err}
	}

	s.logger.Info("snapshot saved", "path", target, "endpoints", len(endpoints), "spec_hash", snap.SpecInfo.Hash)
	return target, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// hashFile returns the prefixed SHA-256 of the file, or "" when it does not
// exist.
func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // caller-supplied artifact path
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return fingerprint.HashBytes(data), nil
}

// Load reads the snapshot for the artifact at jmxPath. A missing snapshot is
// (nil, nil); a snapshot that exists but cannot be read or decoded is a
// *jmxerrors.SnapshotCorruptedError.
func (s *Store) Load(jmxPath string) (*Snapshot, error) {
	path := s.PathFor(jmxPath)
	snap, err := readSnapshot(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.logger.Debug("snapshot loaded", "path", path, "endpoints", len(snap.Endpoints))
	return snap, nil
}

// FindBySpec scans every stored snapshot and returns the first whose spec.path
// names the same file as specPath. A relative specPath is resolved against
// the working directory; relative recorded paths against the project
// directory. Any unreadable record fails the scan with a
// *jmxerrors.SnapshotCorruptedError. No match is (nil, nil).
func (s *Store) FindBySpec(specPath string) (*Located, error) {
	if _, err := os.Stat(s.snapshotDir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	names, err := doublestar.Glob(os.DirFS(s.snapshotDir), "*"+SnapshotSuffix, doublestar.WithFilesOnly())
	if err != nil {
		return nil, &jmxerrors.SnapshotCorruptedError{Path: s.snapshotDir, Cause: err}
	}
	want := s.relPath(specPath)
	for _, name := range names {
		path := filepath.Join(s.snapshotDir, name)
		snap, err := readSnapshot(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// Removed between listing and reading.
				continue
			}
			return nil, err
		}
		if s.recordedPath(snap.SpecInfo.Path) == want {
			return &Located{Snapshot: snap, Path: path}, nil
		}
	}
	return nil, nil
}

// relPath returns path relative to the project directory in slash form.
// Paths outside the project are kept absolute.
func (s *Store) relPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(filepath.Clean(path))
	}
	rel, err := filepath.Rel(s.projectDir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// recordedPath normalizes a path read from a snapshot record.
func (s *Store) recordedPath(path string) string {
	path = filepath.FromSlash(path)
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.projectDir, path)
	}
	return s.relPath(path)
}

func readSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path inside the snapshot directory
	if errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err != nil {
		return nil, &jmxerrors.SnapshotCorruptedError{Path: path, Cause: err}
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &jmxerrors.SnapshotCorruptedError{Path: path, Cause: err}
	}
	if snap.Endpoints == nil {
		return nil, &jmxerrors.SnapshotCorruptedError{Path: path, Cause: errors.New("missing endpoints")}
	}
	return &snap, nil
}

// EnsureExcludes writes .jmeter-gen/.gitignore so backups stay out of version
// control while snapshots are tracked.
func (s *Store) EnsureExcludes() error {
	dir := filepath.Join(s.projectDir, DirName)
	if err := os.MkdirAll(dir, fileutil.DirMode); err != nil {
		return err
	}
	path := filepath.Join(dir, ExcludesFile)
	if existing, err := os.ReadFile(path); err == nil && string(existing) == excludesContent { //nolint:gosec // fixed path
		return nil
	}
	return fileutil.WriteFileAtomic(path, []byte(excludesContent), fileutil.ReadableByAll)
}

package updater

import (
	"errors"
	"fmt"
	"os"

	"github.com/beevik/etree"

	"github.com/kzaorski/jmeter-test-generator-sub001/apispec"
	"github.com/kzaorski/jmeter-test-generator-sub001/differ"
	"github.com/kzaorski/jmeter-test-generator-sub001/internal/fileutil"
	"github.com/kzaorski/jmeter-test-generator-sub001/jmxerrors"
	"github.com/kzaorski/jmeter-test-generator-sub001/logging"
)

// BackupStore creates and restores artifact backups. *snapshot.Store
// implements it.
type BackupStore interface {
	Backup(jmxPath string) (backupPath string, err error)
	Restore(backupPath, target string) error
}

// ChangesApplied counts the mutations written to the artifact.
type ChangesApplied struct {
	Added    int `json:"added"    yaml:"added"`
	Disabled int `json:"disabled" yaml:"disabled"`
	Updated  int `json:"updated"  yaml:"updated"`
}

// Total returns the number of applied mutations.
func (c ChangesApplied) Total() int { return c.Added + c.Disabled + c.Updated }

// UpdateResult is the outcome of one Update. Success is true iff Errors is
// empty; warnings never affect it.
type UpdateResult struct {
	Success        bool           `json:"success"               yaml:"success"`
	JMXPath        string         `json:"jmx_path"              yaml:"jmx_path"`
	BackupPath     string         `json:"backup_path,omitempty" yaml:"backup_path,omitempty"`
	ChangesApplied ChangesApplied `json:"changes_applied"       yaml:"changes_applied"`
	Errors         []string       `json:"errors"                yaml:"errors"`
	Warnings       []string       `json:"warnings"              yaml:"warnings"`
}

func (r *UpdateResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *UpdateResult) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Updater applies a SpecDiff to a generated JMX file.
type Updater struct {
	backups       BackupStore
	logger        logging.Logger
	indent        int
	beforePersist func(*etree.Document) error
}

// Option is a function that configures an Updater
type Option func(*config) error

type config struct {
	logger        logging.Logger
	indent        int
	beforePersist func(*etree.Document) error
}

// WithLogger sets the updater's logger.
func WithLogger(l logging.Logger) Option {
	return func(cfg *config) error {
		cfg.logger = logging.OrNop(l)
		return nil
	}
}

// WithIndent sets the number of spaces per level when the artifact is
// rewritten.
// Default: 2
func WithIndent(spaces int) Option {
	return func(cfg *config) error {
		if spaces < 0 {
			return fmt.Errorf("indent must not be negative, got %d", spaces)
		}
		cfg.indent = spaces
		return nil
	}
}

// WithBeforePersist registers a hook that runs on the mutated tree just
// before it is written. An error from the hook rolls the artifact back.
func WithBeforePersist(fn func(*etree.Document) error) Option {
	return func(cfg *config) error {
		cfg.beforePersist = fn
		return nil
	}
}

// New creates an Updater that backs artifacts up through backups.
func New(backups BackupStore, opts ...Option) (*Updater, error) {
	if backups == nil {
		return nil, errors.New("updater: backup store is required")
	}
	cfg := &config{logger: logging.NopLogger{}, indent: 2}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("updater: invalid options: %w", err)
		}
	}
	return &Updater{
		backups:       backups,
		logger:        cfg.logger,
		indent:        cfg.indent,
		beforePersist: cfg.beforePersist,
	}, nil
}

// Update applies diff to the artifact at jmxPath. spec supplies the full
// definitions of added endpoints.
//
// The artifact is backed up first; a backup failure is returned unchanged and
// nothing is modified. Markup that cannot be parsed, or lacks the
// jmeterTestPlan root or a ThreadGroup with its hashTree, is a
// *jmxerrors.ParseError and leaves the file untouched. Per-endpoint failures
// are collected in the result. Any other failure after the backup restores
// the artifact and returns a *jmxerrors.UpdateError.
func (u *Updater) Update(jmxPath string, diff *differ.SpecDiff, spec *apispec.Spec) (result *UpdateResult, err error) {
	if diff == nil {
		return nil, errors.New("updater: diff is nil")
	}

	backupPath, err := u.backups.Backup(jmxPath)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, u.rollback(jmxPath, backupPath, fmt.Errorf("panic: %v", r))
		}
	}()

	doc, tree, err := parse(jmxPath)
	if err != nil {
		return nil, err
	}

	result = &UpdateResult{
		JMXPath:    jmxPath,
		BackupPath: backupPath,
		Errors:     []string{},
		Warnings:   []string{},
	}
	index := indexSamplers(doc.Root(), result)

	for _, change := range diff.Added {
		if err := isolate(func() error { return u.add(tree, index, change, spec, result) }); err != nil {
			result.errorf("Failed to add %s %s: %v", change.Method, change.Path, err)
		}
	}
	for _, change := range diff.Removed {
		if err := isolate(func() error { return u.disable(index, change, result) }); err != nil {
			result.errorf("Failed to disable %s %s: %v", change.Method, change.Path, err)
		}
	}
	for _, change := range diff.Modified {
		if err := isolate(func() error { return u.modify(index, change, result) }); err != nil {
			result.errorf("Failed to update %s %s: %v", change.Method, change.Path, err)
		}
	}

	if err := u.persist(doc, jmxPath); err != nil {
		return nil, u.rollback(jmxPath, backupPath, err)
	}

	result.Success = len(result.Errors) == 0
	u.logger.Info("jmx updated",
		"path", jmxPath,
		"added", result.ChangesApplied.Added,
		"disabled", result.ChangesApplied.Disabled,
		"updated", result.ChangesApplied.Updated,
		"warnings", len(result.Warnings),
		"errors", len(result.Errors))
	return result, nil
}

// isolate runs fn, turning a panic into an error.
func isolate(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func parse(jmxPath string) (*etree.Document, *etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(jmxPath); err != nil {
		return nil, nil, &jmxerrors.ParseError{Path: jmxPath, Message: "unparsable markup", Cause: err}
	}
	root := doc.Root()
	if root == nil {
		return nil, nil, &jmxerrors.ParseError{Path: jmxPath, Message: "document has no root element"}
	}
	if root.Tag != rootTag {
		return nil, nil, &jmxerrors.ParseError{
			Path:    jmxPath,
			Message: fmt.Sprintf("root element is %q, expected %q", root.Tag, rootTag),
		}
	}
	tree := findThreadGroupTree(root)
	if tree == nil {
		return nil, nil, &jmxerrors.ParseError{Path: jmxPath, Message: "no ThreadGroup followed by a hashTree"}
	}
	return doc, tree, nil
}

// indexSamplers maps each (path, METHOD) to its first sampler.
func indexSamplers(root *etree.Element, result *UpdateResult) map[apispec.Key]*etree.Element {
	index := make(map[apispec.Key]*etree.Element)
	for _, sampler := range root.FindElements(".//" + samplerTag) {
		key, ok := samplerKey(sampler)
		if !ok {
			result.warnf("Could not extract path/method from sampler: %s", sampler.SelectAttrValue("testname", "unknown"))
			continue
		}
		if _, dup := index[key]; dup {
			result.warnf("Duplicate sampler for %s, keeping first", key)
			continue
		}
		index[key] = sampler
	}
	return index
}

func (u *Updater) add(tree *etree.Element, index map[apispec.Key]*etree.Element, change differ.EndpointChange, spec *apispec.Spec, result *UpdateResult) error {
	key := change.Key()
	if existing, exists := index[key]; exists {
		if enableSampler(existing) {
			result.ChangesApplied.Added++
			u.logger.Debug("sampler re-enabled", "method", key.Method, "path", key.Path)
			return nil
		}
		result.warnf("Sampler for added endpoint %s already exists, not added", key)
		return nil
	}
	if spec == nil {
		result.warnf("Endpoint %s not found in spec data, sampler not added", key)
		return nil
	}
	endpoint, ok := spec.Find(key.Path, key.Method)
	if !ok {
		result.warnf("Endpoint %s not found in spec data, sampler not added", key)
		return nil
	}
	index[key] = appendSampler(tree, endpoint)
	result.ChangesApplied.Added++
	u.logger.Debug("sampler added", "method", key.Method, "path", key.Path)
	return nil
}

func (u *Updater) disable(index map[apispec.Key]*etree.Element, change differ.EndpointChange, result *UpdateResult) error {
	key := change.Key()
	sampler, ok := index[key]
	if !ok {
		result.warnf("Could not find sampler for removed endpoint: %s", key)
		return nil
	}
	disableSampler(sampler)
	result.ChangesApplied.Disabled++
	u.logger.Debug("sampler disabled", "method", key.Method, "path", key.Path)
	return nil
}

// modify applies the mutable subset of a modification: an operation id
// change renames the sampler. Other field changes stay in the diff.
func (u *Updater) modify(index map[apispec.Key]*etree.Element, change differ.EndpointChange, result *UpdateResult) error {
	key := change.Key()
	sampler, ok := index[key]
	if !ok {
		result.warnf("Could not find sampler for modified endpoint: %s", key)
		return nil
	}
	if change.Changes == nil || change.Changes.OperationID == nil {
		u.logger.Debug("modification not applied automatically", "method", key.Method, "path", key.Path,
			"fields", change.Changes.Fields())
		return nil
	}
	newName := change.Changes.OperationID.New
	if newName == "" {
		newName = key.String()
	}
	sampler.CreateAttr("testname", newName)
	result.ChangesApplied.Updated++
	u.logger.Debug("sampler renamed", "method", key.Method, "path", key.Path, "testname", newName)
	return nil
}

func (u *Updater) persist(doc *etree.Document, jmxPath string) error {
	if u.beforePersist != nil {
		if err := u.beforePersist(doc); err != nil {
			return err
		}
	}
	ensureDeclaration(doc)
	// Whitespace-only values such as a tab CSV delimiter are data.
	doc.IndentWithSettings(&etree.IndentSettings{Spaces: u.indent, PreserveLeafWhitespace: true})
	data, err := doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serializing: %w", err)
	}
	perm := fileutil.ReadableByAll
	if info, statErr := os.Stat(jmxPath); statErr == nil {
		perm = info.Mode().Perm()
	}
	if err := fileutil.WriteFileAtomic(jmxPath, data, perm); err != nil {
		return fmt.Errorf("writing: %w", err)
	}
	return nil
}

func (u *Updater) rollback(jmxPath, backupPath string, cause error) error {
	uerr := &jmxerrors.UpdateError{Path: jmxPath, BackupPath: backupPath, Cause: cause}
	if err := u.backups.Restore(backupPath, jmxPath); err != nil {
		uerr.RollbackErr = err
		u.logger.Error("rollback failed", "path", jmxPath, "backup", backupPath, "error", err)
		return uerr
	}
	uerr.RolledBack = true
	u.logger.Warn("update failed, artifact restored", "path", jmxPath, "backup", backupPath, "error", cause)
	return uerr
}

package differ

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kzaorski/jmeter-test-generator-sub001/apispec"
	"github.com/kzaorski/jmeter-test-generator-sub001/fingerprint"
	"github.com/kzaorski/jmeter-test-generator-sub001/jmxerrors"
	"github.com/kzaorski/jmeter-test-generator-sub001/logging"
)

// Differ compares two endpoint sets.
type Differ struct {
	// StrictDuplicates turns repeated (path, method) keys into a FormatError
	// instead of a warning.
	StrictDuplicates bool
	// SchemaFilter, when set, is applied to both request body schemas before
	// the field-level comparison. Fingerprint equality is unaffected.
	SchemaFilter func(apispec.Node) apispec.Node

	logger logging.Logger
	now    func() time.Time
}

// Option is a function that configures a Differ
type Option func(*config) error

type config struct {
	strictDuplicates bool
	schemaFilter     func(apispec.Node) apispec.Node
	logger           logging.Logger
	now              func() time.Time
}

// New creates a Differ. With no options it logs nothing, treats duplicate
// endpoint keys as warnings and stamps diffs with time.Now.
func New(opts ...Option) (*Differ, error) {
	cfg := &config{logger: logging.NopLogger{}, now: time.Now}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("differ: invalid options: %w", err)
		}
	}
	return &Differ{
		StrictDuplicates: cfg.strictDuplicates,
		SchemaFilter:     cfg.schemaFilter,
		logger:           cfg.logger,
		now:              cfg.now,
	}, nil
}

// WithStrictDuplicates rejects specs that repeat a (path, method) key.
// Default: false
func WithStrictDuplicates(strict bool) Option {
	return func(cfg *config) error {
		cfg.strictDuplicates = strict
		return nil
	}
}

// WithSchemaFilter sets a view applied to both schemas before they are
// compared field by field, e.g. the snapshot redaction when the old side was
// restored from a redacted snapshot.
func WithSchemaFilter(fn func(apispec.Node) apispec.Node) Option {
	return func(cfg *config) error {
		cfg.schemaFilter = fn
		return nil
	}
}

// WithLogger sets the logger for duplicate warnings and debug output.
func WithLogger(l logging.Logger) Option {
	return func(cfg *config) error {
		cfg.logger = logging.OrNop(l)
		return nil
	}
}

// WithClock overrides the time source used for SpecDiff.Timestamp.
func WithClock(now func() time.Time) Option {
	return func(cfg *config) error {
		if now == nil {
			return errors.New("clock must not be nil")
		}
		cfg.now = now
		return nil
	}
}

// Compare diffs two specs with a default Differ.
func Compare(oldSpec, newSpec *apispec.Spec) (*SpecDiff, error) {
	d, _ := New()
	return d.Compare(oldSpec, newSpec)
}

// Compare matches the endpoints of oldSpec and newSpec by (path, METHOD) and
// classifies every difference. A spec that is nil, lacks an endpoints
// collection, or has an endpoint without path or method fails with a
// *jmxerrors.FormatError naming the side.
func (d *Differ) Compare(oldSpec, newSpec *apispec.Spec) (*SpecDiff, error) {
	if err := validate("old", oldSpec); err != nil {
		return nil, err
	}
	if err := validate("new", newSpec); err != nil {
		return nil, err
	}

	oldIdx := buildIndex("old", oldSpec)
	newIdx := buildIndex("new", newSpec)
	duplicates := append(oldIdx.duplicates, newIdx.duplicates...)
	if len(duplicates) > 0 && d.StrictDuplicates {
		dup := duplicates[0]
		return nil, &jmxerrors.FormatError{
			Side:    dup.Side,
			Field:   fmt.Sprintf("endpoints[%d]", dup.Index),
			Message: fmt.Sprintf("duplicate endpoint %s %s (first at endpoints[%d])", dup.Method, dup.Path, dup.FirstIndex),
		}
	}
	for _, dup := range duplicates {
		d.logger.Warn("duplicate endpoint ignored",
			"side", dup.Side, "method", dup.Method, "path", dup.Path,
			"index", dup.Index, "first_index", dup.FirstIndex)
	}

	var added, removed, modified []EndpointChange

	for _, i := range newIdx.order {
		e := newSpec.Endpoints[i]
		if _, ok := oldIdx.byKey[e.Key()]; ok {
			continue
		}
		added = append(added, summaryChange(e, ChangeTypeAdded))
	}

	for _, i := range oldIdx.order {
		e := oldSpec.Endpoints[i]
		if _, ok := newIdx.byKey[e.Key()]; ok {
			continue
		}
		removed = append(removed, summaryChange(e, ChangeTypeRemoved))
	}

	for _, i := range newIdx.order {
		newEp := newSpec.Endpoints[i]
		j, ok := oldIdx.byKey[newEp.Key()]
		if !ok {
			continue
		}
		oldEp := oldSpec.Endpoints[j]
		newFP := fingerprint.Of(newEp)
		if fingerprint.Of(oldEp) == newFP {
			continue
		}
		changes := d.compareFields(fingerprint.Normalize(oldEp), fingerprint.Normalize(newEp))
		if changes.IsEmpty() {
			d.logger.Debug("fingerprint differs but no field changed",
				"method", newEp.Key().Method, "path", newEp.Path)
			continue
		}
		key := newEp.Key()
		modified = append(modified, EndpointChange{
			Path:        key.Path,
			Method:      key.Method,
			OperationID: newEp.OperationID,
			Type:        ChangeTypeModified,
			Changes:     changes,
			Fingerprint: newFP,
		})
	}

	diff := NewSpecDiff(oldSpec.Version, newSpec.Version, added, removed, modified)
	diff.OldHash = fingerprint.SpecHash(oldSpec)
	diff.NewHash = fingerprint.SpecHash(newSpec)
	diff.Duplicates = duplicates
	diff.Timestamp = d.now().UTC()
	return diff, nil
}

func summaryChange(e apispec.Endpoint, t ChangeType) EndpointChange {
	key := e.Key()
	return EndpointChange{
		Path:        key.Path,
		Method:      key.Method,
		OperationID: e.OperationID,
		Type:        t,
		Fingerprint: fingerprint.Of(e),
	}
}

func validate(side string, spec *apispec.Spec) error {
	if spec == nil {
		return &jmxerrors.FormatError{Side: side, Field: "endpoints", Message: "spec is nil"}
	}
	if spec.Endpoints == nil {
		return &jmxerrors.FormatError{Side: side, Field: "endpoints"}
	}
	for i, e := range spec.Endpoints {
		if e.Path == "" {
			return &jmxerrors.FormatError{Side: side, Field: fmt.Sprintf("endpoints[%d].path", i)}
		}
		if e.Method == "" {
			return &jmxerrors.FormatError{Side: side, Field: fmt.Sprintf("endpoints[%d].method", i)}
		}
	}
	return nil
}

// endpointIndex maps each key to the index of its first occurrence. order
// lists those first occurrences in spec order.
type endpointIndex struct {
	byKey      map[apispec.Key]int
	order      []int
	duplicates []Duplicate
}

func buildIndex(side string, spec *apispec.Spec) endpointIndex {
	idx := endpointIndex{byKey: make(map[apispec.Key]int, len(spec.Endpoints))}
	for i, e := range spec.Endpoints {
		key := e.Key()
		if first, ok := idx.byKey[key]; ok {
			idx.duplicates = append(idx.duplicates, Duplicate{
				Side: side, Path: key.Path, Method: key.Method, Index: i, FirstIndex: first,
			})
			continue
		}
		idx.byKey[key] = i
		idx.order = append(idx.order, i)
	}
	return idx
}

// compareFields builds the field-level change record of a matched pair.
func (d *Differ) compareFields(oldN, newN fingerprint.Normalized) *FieldChanges {
	changes := &FieldChanges{}

	if oldN.HasRequestBody != newN.HasRequestBody {
		changes.RequestBody = &BoolChange{Old: oldN.HasRequestBody, New: newN.HasRequestBody}
	}
	changes.Parameters = compareParameters(oldN.Parameters, newN.Parameters)
	changes.Responses = compareCodes(oldN.ResponseCodes, newN.ResponseCodes)
	if oldN.OperationID != newN.OperationID {
		changes.OperationID = &StringChange{Old: oldN.OperationID, New: newN.OperationID}
	}

	oldSchema, newSchema := d.filterSchema(oldN.RequestBodySchema), d.filterSchema(newN.RequestBodySchema)
	if !schemasEqual(oldSchema, newSchema) {
		changes.RequestBodySchema = &SchemaChange{Old: oldN.RequestBodySchema, New: newN.RequestBodySchema}
	}
	return changes
}

func (d *Differ) filterSchema(n *apispec.Node) *apispec.Node {
	if n == nil || d.SchemaFilter == nil {
		return n
	}
	filtered := d.SchemaFilter(*n)
	return &filtered
}

func schemasEqual(a, b *apispec.Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// compareParameters matches parameters by (name, in); the first occurrence
// of a repeated key wins.
func compareParameters(oldParams, newParams []apispec.Parameter) *ParameterChanges {
	oldByKey := paramIndex(oldParams)
	newByKey := paramIndex(newParams)

	pc := &ParameterChanges{
		Added:    []apispec.Parameter{},
		Removed:  []apispec.Parameter{},
		Modified: []ParameterModification{},
	}
	seen := make(map[apispec.ParamKey]bool, len(newParams))
	for _, p := range newParams {
		if seen[p.Key()] {
			continue
		}
		seen[p.Key()] = true
		old, ok := oldByKey[p.Key()]
		switch {
		case !ok:
			pc.Added = append(pc.Added, p)
		case old != p:
			pc.Modified = append(pc.Modified, ParameterModification{Name: p.Name, In: p.In, Old: old, New: p})
		}
	}
	seen = make(map[apispec.ParamKey]bool, len(oldParams))
	for _, p := range oldParams {
		if seen[p.Key()] {
			continue
		}
		seen[p.Key()] = true
		if _, ok := newByKey[p.Key()]; !ok {
			pc.Removed = append(pc.Removed, p)
		}
	}

	if len(pc.Added) == 0 && len(pc.Removed) == 0 && len(pc.Modified) == 0 {
		return nil
	}
	return pc
}

func paramIndex(params []apispec.Parameter) map[apispec.ParamKey]apispec.Parameter {
	out := make(map[apispec.ParamKey]apispec.Parameter, len(params))
	for _, p := range params {
		if _, ok := out[p.Key()]; !ok {
			out[p.Key()] = p
		}
	}
	return out
}

func compareCodes(oldCodes, newCodes []string) *SetChange {
	added := difference(newCodes, oldCodes)
	removed := difference(oldCodes, newCodes)
	if len(added) == 0 && len(removed) == 0 {
		return nil
	}
	return &SetChange{Added: added, Removed: removed}
}

// difference returns the sorted members of a that are not in b.
func difference(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, s := range b {
		inB[s] = true
	}
	out := []string{}
	for _, s := range a {
		if !inB[s] {
			out = append(out, s)
			inB[s] = true
		}
	}
	sort.Strings(out)
	return out
}

package differ

import (
	"sort"
	"time"

	"github.com/kzaorski/jmeter-test-generator-sub001/apispec"
)

// ChangeType indicates whether an endpoint was added, removed, or modified
type ChangeType string

const (
	// ChangeTypeAdded indicates an endpoint present only in the new spec
	ChangeTypeAdded ChangeType = "added"
	// ChangeTypeRemoved indicates an endpoint present only in the old spec
	ChangeTypeRemoved ChangeType = "removed"
	// ChangeTypeModified indicates an endpoint whose fingerprint changed
	ChangeTypeModified ChangeType = "modified"
)

// BoolChange records a boolean field flip.
type BoolChange struct {
	Old bool `json:"old" yaml:"old"`
	New bool `json:"new" yaml:"new"`
}

// StringChange records a changed string field.
type StringChange struct {
	Old string `json:"old" yaml:"old"`
	New string `json:"new" yaml:"new"`
}

// SchemaChange carries the whole normalized request body schema of each
// side. A nil side means the endpoint had no schema.
type SchemaChange struct {
	Old *apispec.Node `json:"old" yaml:"old"`
	New *apispec.Node `json:"new" yaml:"new"`
}

// SetChange is the symmetric difference of two string sets, each half sorted.
type SetChange struct {
	Added   []string `json:"added"   yaml:"added"`
	Removed []string `json:"removed" yaml:"removed"`
}

// ParameterModification is a parameter present on both sides, keyed by
// (name, in), whose record differs.
type ParameterModification struct {
	Name string            `json:"name" yaml:"name"`
	In   string            `json:"in"   yaml:"in"`
	Old  apispec.Parameter `json:"old"  yaml:"old"`
	New  apispec.Parameter `json:"new"  yaml:"new"`
}

// ParameterChanges lists parameter additions, removals and modifications.
type ParameterChanges struct {
	Added    []apispec.Parameter     `json:"added"    yaml:"added"`
	Removed  []apispec.Parameter     `json:"removed"  yaml:"removed"`
	Modified []ParameterModification `json:"modified" yaml:"modified"`
}

// FieldChanges is the field-level change record of a modified endpoint.
// Only changed fields are set.
type FieldChanges struct {
	RequestBody       *BoolChange       `json:"request_body,omitempty"        yaml:"request_body,omitempty"`
	Parameters        *ParameterChanges `json:"parameters,omitempty"          yaml:"parameters,omitempty"`
	Responses         *SetChange        `json:"responses,omitempty"           yaml:"responses,omitempty"`
	OperationID       *StringChange     `json:"operation_id,omitempty"        yaml:"operation_id,omitempty"`
	RequestBodySchema *SchemaChange     `json:"request_body_schema,omitempty" yaml:"request_body_schema,omitempty"`
}

// IsEmpty reports whether no field changed.
func (f *FieldChanges) IsEmpty() bool {
	return f == nil || (f.RequestBody == nil && f.Parameters == nil && f.Responses == nil &&
		f.OperationID == nil && f.RequestBodySchema == nil)
}

// Fields returns the names of the changed fields in a fixed order.
func (f *FieldChanges) Fields() []string {
	if f == nil {
		return nil
	}
	var out []string
	if f.OperationID != nil {
		out = append(out, "operation_id")
	}
	if f.RequestBody != nil {
		out = append(out, "request_body")
	}
	if f.Parameters != nil {
		out = append(out, "parameters")
	}
	if f.Responses != nil {
		out = append(out, "responses")
	}
	if f.RequestBodySchema != nil {
		out = append(out, "request_body_schema")
	}
	return out
}

// EndpointChange describes one added, removed, or modified endpoint.
type EndpointChange struct {
	Path        string        `json:"path"                  yaml:"path"`
	Method      string        `json:"method"                yaml:"method"`
	OperationID string        `json:"operation_id"          yaml:"operation_id"`
	Type        ChangeType    `json:"change_type"           yaml:"change_type"`
	Changes     *FieldChanges `json:"changes,omitempty"     yaml:"changes,omitempty"`
	Fingerprint string        `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
}

// Key returns the endpoint identity.
func (c EndpointChange) Key() apispec.Key {
	return apispec.Key{Path: c.Path, Method: c.Method}
}

// String returns a one-line description of the change.
func (c EndpointChange) String() string {
	var symbol string
	switch c.Type {
	case ChangeTypeAdded:
		symbol = "+"
	case ChangeTypeRemoved:
		symbol = "-"
	default:
		symbol = "~"
	}
	s := symbol + " " + c.Method + " " + c.Path
	if c.OperationID != "" {
		s += " (" + c.OperationID + ")"
	}
	return s
}

// Summary counts the entries of each change list.
type Summary struct {
	Added    int `json:"added"    yaml:"added"`
	Removed  int `json:"removed"  yaml:"removed"`
	Modified int `json:"modified" yaml:"modified"`
}

// Total returns the number of changed endpoints.
func (s Summary) Total() int { return s.Added + s.Removed + s.Modified }

// Duplicate reports an endpoint key that appears more than once in one spec.
// Only the first occurrence takes part in matching.
type Duplicate struct {
	Side       string `json:"side"        yaml:"side"`
	Path       string `json:"path"        yaml:"path"`
	Method     string `json:"method"      yaml:"method"`
	Index      int    `json:"index"       yaml:"index"`
	FirstIndex int    `json:"first_index" yaml:"first_index"`
}

// SpecDiff is the result of comparing two specs. Lists follow the iteration
// order of the matching pass: Added and Modified in new-spec order, Removed in
// old-spec order. Use Sorted for display order.
type SpecDiff struct {
	OldVersion string           `json:"old_version"          yaml:"old_version"`
	NewVersion string           `json:"new_version"          yaml:"new_version"`
	OldHash    string           `json:"old_hash"             yaml:"old_hash"`
	NewHash    string           `json:"new_hash"             yaml:"new_hash"`
	Added      []EndpointChange `json:"added"                yaml:"added"`
	Removed    []EndpointChange `json:"removed"              yaml:"removed"`
	Modified   []EndpointChange `json:"modified"             yaml:"modified"`
	Summary    Summary          `json:"summary"              yaml:"summary"`
	HasChanges bool             `json:"has_changes"          yaml:"has_changes"`
	Duplicates []Duplicate      `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	Timestamp  time.Time        `json:"timestamp"            yaml:"timestamp"`
}

// NewSpecDiff assembles a SpecDiff and derives Summary and HasChanges from
// the three lists. Nil lists become empty.
func NewSpecDiff(oldVersion, newVersion string, added, removed, modified []EndpointChange) *SpecDiff {
	d := &SpecDiff{
		OldVersion: oldVersion,
		NewVersion: newVersion,
		Added:      nonNil(added),
		Removed:    nonNil(removed),
		Modified:   nonNil(modified),
	}
	d.Summary = Summary{Added: len(d.Added), Removed: len(d.Removed), Modified: len(d.Modified)}
	d.HasChanges = d.Summary.Total() > 0
	return d
}

func nonNil(in []EndpointChange) []EndpointChange {
	if in == nil {
		return []EndpointChange{}
	}
	return in
}

// Changes returns added, removed and modified records in that order.
func (d *SpecDiff) Changes() []EndpointChange {
	out := make([]EndpointChange, 0, d.Summary.Total())
	out = append(out, d.Added...)
	out = append(out, d.Removed...)
	return append(out, d.Modified...)
}

// Sorted returns a copy of d with every list ordered by path, then method.
func (d *SpecDiff) Sorted() *SpecDiff {
	out := *d
	out.Added = sortedChanges(d.Added)
	out.Removed = sortedChanges(d.Removed)
	out.Modified = sortedChanges(d.Modified)
	out.Duplicates = append([]Duplicate(nil), d.Duplicates...)
	return &out
}

func sortedChanges(in []EndpointChange) []EndpointChange {
	out := append([]EndpointChange{}, in...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// Package catalog defines the read-only catalog snapshot consumed by the
// freshness engine: object metadata, write frontiers and dependency edges.
//
// A Snapshot is a projection taken at request time. Nothing in this package
// mutates a snapshot after it has been built.
package catalog

import (
	"sort"
	"strings"
	"time"
)

// UserObjectPrefix marks ids of user-created objects. System objects use
// other prefixes ("s", "si", ...).
const UserObjectPrefix = "u"

// Object is a computed catalog object: a source, table, view, materialized
// view, index or sink.
type Object struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Schema  string `json:"schema" yaml:"schema"`
	Type    string `json:"type" yaml:"type"`
	Cluster string `json:"cluster,omitempty" yaml:"cluster,omitempty"`
}

// IsUserObject reports whether the object was created by a user.
func (o Object) IsUserObject() bool {
	return IsUserID(o.ID)
}

// IsUserID reports whether id belongs to a user-created object.
func IsUserID(id string) bool {
	return strings.HasPrefix(id, UserObjectPrefix)
}

// Frontier is the current write frontier of an object. WriteFrontier is a
// logical timestamp in milliseconds since the Unix epoch; nil means the
// object has not produced any data yet.
type Frontier struct {
	ObjectID      string    `json:"object_id" yaml:"object_id"`
	WriteFrontier *uint64   `json:"write_frontier" yaml:"write_frontier"`
	SampledAt     time.Time `json:"sampled_at" yaml:"sampled_at,omitempty"`
}

// Known reports whether the frontier carries a usable timestamp.
// A zero frontier is treated the same as a missing one.
func (f Frontier) Known() bool {
	return f.WriteFrontier != nil && *f.WriteFrontier > 0
}

// Time translates the frontier into wall-clock time.
func (f Frontier) Time() time.Time {
	if !f.Known() {
		return time.Time{}
	}
	return time.UnixMilli(int64(*f.WriteFrontier)).UTC()
}

// Edge records that Target depends on Source.
type Edge struct {
	SourceID string `json:"source_id" yaml:"source"`
	TargetID string `json:"target_id" yaml:"target"`
}

// Snapshot is a consistent read of the catalog.
type Snapshot struct {
	Objects   []Object   `json:"objects" yaml:"objects"`
	Frontiers []Frontier `json:"frontiers" yaml:"frontiers"`
	Edges     []Edge     `json:"edges" yaml:"edges"`
	TakenAt   time.Time  `json:"taken_at" yaml:"taken_at,omitempty"`
}

// Index provides id lookups over a snapshot.
type Index struct {
	objects   map[string]Object
	frontiers map[string]Frontier
	ordered   []Object
}

// NewIndex builds lookups for the snapshot. Frontier rows that reference an
// object missing from the snapshot are dropped; the last row wins when an
// object has more than one.
func NewIndex(s *Snapshot) *Index {
	idx := &Index{
		objects:   make(map[string]Object),
		frontiers: make(map[string]Frontier),
	}
	if s == nil {
		return idx
	}

	for _, o := range s.Objects {
		idx.objects[o.ID] = o
	}
	for _, f := range s.Frontiers {
		if _, ok := idx.objects[f.ObjectID]; !ok {
			continue
		}
		idx.frontiers[f.ObjectID] = f
	}

	idx.ordered = make([]Object, 0, len(idx.objects))
	for _, o := range idx.objects {
		idx.ordered = append(idx.ordered, o)
	}
	sort.Slice(idx.ordered, func(i, j int) bool {
		return idx.ordered[i].ID < idx.ordered[j].ID
	})
	return idx
}

// Object returns the metadata for id.
func (x *Index) Object(id string) (Object, bool) {
	o, ok := x.objects[id]
	return o, ok
}

// Frontier returns the frontier row for id.
func (x *Index) Frontier(id string) (Frontier, bool) {
	f, ok := x.frontiers[id]
	return f, ok
}

// Objects returns all objects ordered by id.
func (x *Index) Objects() []Object {
	return x.ordered
}

// Resolve finds an object by name within a schema. When several objects
// share the name (different databases), the lowest id wins.
func (x *Index) Resolve(name, schema string) (Object, bool) {
	for _, o := range x.ordered {
		if o.Name == name && o.Schema == schema {
			return o, true
		}
	}
	return Object{}, false
}

// Len returns the number of indexed objects.
func (x *Index) Len() int {
	return len(x.ordered)
}

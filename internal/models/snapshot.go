// Package models - resolved-dependency snapshot data.
// A snapshot is the pre-resolved dependency data produced by an external
// package-manager invocation for one build target, ingested by this
// service and used to build dependency graphs. This core never invokes
// the package manager itself.
package models

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
)

// SnapshotFormatVersion is the snapshot format this build writes and
// accepts. Snapshots with a different major version are rejected.
const SnapshotFormatVersion = "1.0.0"

// ActionMerge is the conventional action tag a resolver puts on
// occurrence records it installed. Action tags are informational and
// pass through storage and graph construction untouched; every
// occurrence counts as present at its root regardless of tag.
const ActionMerge = "merge"

// DepdataMap maps a package full name (category/name-version[-r<n>]) to
// the occurrence records for that package. A package installed at more
// than one root simultaneously has one record per root.
type DepdataMap map[string][]*PackageOccurrence

// PackageOccurrence is one installation of a package at one root, with
// its direct dependencies as a nested map of the same shape. Shared
// dependency subtrees arrive duplicated verbatim; consumers must
// deduplicate on package identity rather than walking naively.
type PackageOccurrence struct {
	Action      string     `json:"action" yaml:"action"`
	Root        string     `json:"root" yaml:"root"`
	SourcePaths []string   `json:"source_paths,omitempty" yaml:"source_paths,omitempty"`
	Deps        DepdataMap `json:"deps,omitempty" yaml:"deps,omitempty"`
}

// Snapshot is one ingested resolved-dependency data set, keyed by sysroot
// path. Depdata is the target-rooted resolution and SDKDepdata the
// SDK-rooted resolution of the same requested packages; either may be
// empty.
type Snapshot struct {
	FormatVersion string     `json:"format_version" yaml:"format_version"`
	Board         string     `json:"board" yaml:"board"`
	SysrootPath   string     `json:"sysroot_path" yaml:"sysroot_path"`
	SDKRootPath   string     `json:"sdk_root_path" yaml:"sdk_root_path"`
	CreatedAt     time.Time  `json:"created_at" yaml:"created_at"`
	Depdata       DepdataMap `json:"depdata" yaml:"depdata"`
	SDKDepdata    DepdataMap `json:"sdk_depdata,omitempty" yaml:"sdk_depdata,omitempty"`
}

// Validate checks structural validity and format compatibility. A zero
// FormatVersion is filled in with the current format version.
func (s *Snapshot) Validate() error {
	if s.FormatVersion == "" {
		s.FormatVersion = SnapshotFormatVersion
	}
	if err := checkFormatVersion(s.FormatVersion); err != nil {
		return err
	}
	if s.SysrootPath == "" {
		return fmt.Errorf("snapshot sysroot path is required")
	}
	if s.SDKRootPath == "" {
		return fmt.Errorf("snapshot SDK root path is required")
	}
	if err := s.Depdata.validate("depdata"); err != nil {
		return err
	}
	return s.SDKDepdata.validate("sdk_depdata")
}

// checkFormatVersion accepts any format version with the same major
// version as SnapshotFormatVersion.
func checkFormatVersion(v string) error {
	got, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("invalid snapshot format version %q: %w", v, err)
	}
	want := semver.MustParse(SnapshotFormatVersion)
	if got.Major() != want.Major() {
		return fmt.Errorf("incompatible snapshot format version %s: this build accepts %d.x",
			v, want.Major())
	}
	return nil
}

// Clone returns a deep copy. Storage backends hand out clones so callers
// can never mutate cached data.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Depdata = s.Depdata.Clone()
	c.SDKDepdata = s.SDKDepdata.Clone()
	return &c
}

// Clone returns a deep copy of the map and every nested occurrence.
func (d DepdataMap) Clone() DepdataMap {
	if d == nil {
		return nil
	}
	out := make(DepdataMap, len(d))
	for name, occurrences := range d {
		cloned := make([]*PackageOccurrence, len(occurrences))
		for i, occ := range occurrences {
			if occ == nil {
				continue
			}
			c := *occ
			c.SourcePaths = append([]string(nil), occ.SourcePaths...)
			c.Deps = occ.Deps.Clone()
			cloned[i] = &c
		}
		out[name] = cloned
	}
	return out
}

// PackageCount reports the number of distinct top-level package entries
// across both resolutions.
func (s *Snapshot) PackageCount() int {
	seen := make(map[string]struct{}, len(s.Depdata)+len(s.SDKDepdata))
	for name := range s.Depdata {
		seen[name] = struct{}{}
	}
	for name := range s.SDKDepdata {
		seen[name] = struct{}{}
	}
	return len(seen)
}

func (d DepdataMap) validate(field string) error {
	for name, occurrences := range d {
		if name == "" {
			return fmt.Errorf("%s: empty package name", field)
		}
		if len(occurrences) == 0 {
			return fmt.Errorf("%s: package %s has no occurrence records", field, name)
		}
		for i, occ := range occurrences {
			if occ == nil {
				return fmt.Errorf("%s: package %s occurrence %d is null", field, name, i)
			}
			if occ.Root == "" {
				return fmt.Errorf("%s: package %s occurrence %d has no root path", field, name, i)
			}
			if err := occ.Deps.validate(field); err != nil {
				return err
			}
		}
	}
	return nil
}

// Package models - incoming API request types.
// Each request type validates itself before the service acts on it;
// validation failures surface as 4xx responses, never as partial results.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// GraphRequest asks for the merged build-target dependency graph of one
// sysroot, optionally restricted to a subset of the snapshot's packages.
type GraphRequest struct {
	SysrootPath string   `json:"sysroot_path"`
	Board       string   `json:"board,omitempty"`
	Packages    []string `json:"packages,omitempty"`
	IncludeSDK  bool     `json:"include_sdk,omitempty"`
}

// Validate checks required fields.
func (r *GraphRequest) Validate() error {
	if r.SysrootPath == "" {
		return errors.New("sysroot_path is required")
	}
	for _, p := range r.Packages {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("packages contains an empty entry")
		}
	}
	return nil
}

// Normalize trims surrounding whitespace from user-supplied fields.
func (r *GraphRequest) Normalize() {
	r.SysrootPath = strings.TrimSpace(r.SysrootPath)
	r.Board = strings.TrimSpace(r.Board)
	for i, p := range r.Packages {
		r.Packages[i] = strings.TrimSpace(p)
	}
}

// DependencyListRequest asks for the flat package list of one sysroot,
// optionally restricted to the packages affected by changed source paths
// or to an explicit package subset, and optionally widened with the
// transitive reverse closure.
type DependencyListRequest struct {
	SysrootPath    string   `json:"sysroot_path"`
	ChangedPaths   []string `json:"changed_paths,omitempty"`
	Packages       []string `json:"packages,omitempty"`
	IncludeReverse bool     `json:"include_reverse,omitempty"`
}

// Validate checks required fields.
func (r *DependencyListRequest) Validate() error {
	if r.SysrootPath == "" {
		return errors.New("sysroot_path is required")
	}
	for _, p := range r.ChangedPaths {
		if strings.TrimSpace(p) == "" {
			return errors.New("changed_paths contains an empty entry")
		}
	}
	for _, p := range r.Packages {
		if strings.TrimSpace(p) == "" {
			return errors.New("packages contains an empty entry")
		}
	}
	return nil
}

// Normalize trims surrounding whitespace from user-supplied fields.
func (r *DependencyListRequest) Normalize() {
	r.SysrootPath = strings.TrimSpace(r.SysrootPath)
	for i, p := range r.ChangedPaths {
		r.ChangedPaths[i] = strings.TrimSpace(p)
	}
	for i, p := range r.Packages {
		r.Packages[i] = strings.TrimSpace(p)
	}
}

// Package discovery turns resource declarations into candidate permissions.
//
// A declaration names a resource (e.g. "Post") and the actions it supports.
// Expanding it yields one candidate per action and guard, named
// "<action> <resource>" by default. Discovery never writes anything; the
// engine decides which candidates are missing and imports them on request.
package discovery

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultActions is the action set used when a declaration lists none.
var DefaultActions = []string{
	"view-any",
	"view",
	"create",
	"update",
	"delete",
	"restore",
	"force-delete",
}

// Declaration describes one resource whose permissions should exist.
type Declaration struct {
	Resource string   `json:"resource" yaml:"resource"`
	Actions  []string `json:"actions,omitempty" yaml:"actions,omitempty"`
	Guards   []string `json:"guards,omitempty" yaml:"guards,omitempty"`
}

// Candidate is a permission that discovery proposes to create.
type Candidate struct {
	Name  string `json:"name"`
	Guard string `json:"guard"`
}

// Namer builds a permission name from an action and a resource.
type Namer func(action, resource string) string

// DefaultNamer formats names as "<action> <resource>".
func DefaultNamer(action, resource string) string {
	return action + " " + resource
}

// Source supplies declarations.
type Source interface {
	Declarations(ctx context.Context) ([]Declaration, error)
}

// Static is a Source backed by an in-memory list.
type Static []Declaration

// Declarations returns a copy of the list.
func (s Static) Declarations(_ context.Context) ([]Declaration, error) {
	out := make([]Declaration, len(s))
	copy(out, s)
	return out, nil
}

// File is a Source that reads declarations from a YAML document of the form
//
//	resources:
//	  - resource: Post
//	    actions: [view, update]
//	    guards: [web]
type File struct {
	Path string
}

type fileDoc struct {
	Resources []Declaration `yaml:"resources"`
}

// Declarations reads and parses the file on every call.
func (f File) Declarations(_ context.Context) ([]Declaration, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("discovery: read %s: %w", f.Path, err)
	}
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("discovery: parse %s: %w", f.Path, err)
	}
	return doc.Resources, nil
}

// Expand produces the deduplicated candidates for decls, sorted by guard
// then name. Declarations without guards use defaultGuard; a nil namer
// means DefaultNamer. Blank resources and actions are skipped.
func Expand(decls []Declaration, defaultGuard string, namer Namer) []Candidate {
	if namer == nil {
		namer = DefaultNamer
	}
	seen := make(map[Candidate]struct{})
	out := make([]Candidate, 0)
	for _, d := range decls {
		resource := strings.TrimSpace(d.Resource)
		if resource == "" {
			continue
		}
		actions := d.Actions
		if len(actions) == 0 {
			actions = DefaultActions
		}
		guards := d.Guards
		if len(guards) == 0 {
			guards = []string{defaultGuard}
		}
		for _, g := range guards {
			for _, a := range actions {
				a = strings.TrimSpace(a)
				if a == "" {
					continue
				}
				c := Candidate{Name: namer(a, resource), Guard: strings.TrimSpace(g)}
				if _, dup := seen[c]; dup {
					continue
				}
				seen[c] = struct{}{}
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Guard != out[j].Guard {
			return out[i].Guard < out[j].Guard
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Resources returns the distinct resource names of decls, sorted. The API
// uses it to offer resource filters for the permission listing.
func Resources(decls []Declaration) []string {
	seen := make(map[string]struct{}, len(decls))
	out := make([]string, 0, len(decls))
	for _, d := range decls {
		r := strings.TrimSpace(d.Resource)
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

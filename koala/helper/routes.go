/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package helper

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kowabunga-cloud/koala/koala/common/metadata"
)

// RouteSet is a set of endpoint names, the identity of an endpoint.
type RouteSet map[string]struct{}

func NewRouteSet(endpoints ...metadata.Endpoint) RouteSet {
	set := RouteSet{}
	for _, e := range endpoints {
		set.Add(e.Name)
	}
	return set
}

// RouteSetOf collects the endpoints of the given aliases, or of all of them
// when none is specified.
func RouteSetOf(routes metadata.Routes, aliases ...string) RouteSet {
	set := RouteSet{}
	if len(aliases) == 0 {
		for _, endpoints := range routes {
			for _, e := range endpoints {
				set.Add(e.Name)
			}
		}
		return set
	}

	for _, alias := range aliases {
		for _, e := range routes[alias] {
			set.Add(e.Name)
		}
	}
	return set
}

func (s RouteSet) Add(name string) {
	s[name] = struct{}{}
}

func (s RouteSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s RouteSet) Merge(other RouteSet) {
	for name := range other {
		s.Add(name)
	}
}

func (s RouteSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DiffRoutes reports the endpoint names which appeared and vanished between
// two reconciliation passes.
func DiffRoutes(previous, current RouteSet) (added []string, removed []string) {
	added = []string{}
	removed = []string{}

	for _, name := range current.Names() {
		if !previous.Has(name) {
			added = append(added, name)
		}
	}

	for _, name := range previous.Names() {
		if !current.Has(name) {
			removed = append(removed, name)
		}
	}

	return added, removed
}

// BackendRoutes returns one server line per endpoint of alias, skipping the
// ones already added elsewhere. Lines are ordered by endpoint name.
func (r *SettingResolver) BackendRoutes(sticky bool, routes metadata.Routes, added RouteSet, alias string) []string {
	endpoints, ok := routes[alias]
	if !ok {
		return []string{}
	}

	sorted := make([]metadata.Endpoint, len(endpoints))
	copy(sorted, endpoints)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	servers := []string{}
	for _, e := range sorted {
		if added.Has(e.Name) {
			continue
		}
		servers = append(servers, r.serverLine(sticky, e))
	}

	return servers
}

func (r *SettingResolver) serverLine(sticky bool, e metadata.Endpoint) string {
	line := []string{
		"server",
		e.Name,
		fmt.Sprintf("%s:%s", e.Address, e.Port),
	}

	if sticky {
		line = append(line, "cookie", e.Name)
	}

	healthCheck := e.HealthCheck
	if healthCheck == "" {
		healthCheck = r.directives.HealthCheck
	}
	line = append(line, healthCheck)

	return strings.Join(line, " ")
}

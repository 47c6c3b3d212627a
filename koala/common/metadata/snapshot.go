/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package metadata

import (
	"os"
	"path/filepath"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"
)

// Snapshot is the declarative description of services handed over by the
// orchestrator: where they run, how they are exposed and how they are tuned.
// JSON documents are valid YAML, so both encodings are accepted.
type Snapshot struct {
	Routes  Routes       `json:"routes" yaml:"routes"`
	Details Details      `json:"details" yaml:"details"`
	VHosts  VirtualHosts `json:"vhosts" yaml:"vhosts"`
}

func ParseSnapshot(contents []byte) (*Snapshot, error) {
	snap := Snapshot{}
	err := yaml.Unmarshal(contents, &snap)
	if err != nil {
		return nil, errors.Annotate(err, "malformed services snapshot")
	}

	if snap.Routes == nil {
		snap.Routes = Routes{}
	}
	if snap.Details == nil {
		snap.Details = Details{}
	}

	for alias, endpoints := range snap.Routes {
		for _, e := range endpoints {
			if e.Name == "" {
				return nil, errors.NotValidf("unnamed endpoint for service %q", alias)
			}
		}
	}

	return &snap, nil
}

func LoadSnapshot(path string) (*Snapshot, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.Annotatef(err, "unable to read services snapshot %s", path)
	}

	return ParseSnapshot(contents)
}

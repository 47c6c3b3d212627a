/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package balancer

import (
	"context"
	"fmt"
	"strings"

	"github.com/kowabunga-cloud/koala/koala/common"
	"github.com/kowabunga-cloud/koala/koala/common/agents"
	"github.com/kowabunga-cloud/koala/koala/common/agents/templates"
	"github.com/kowabunga-cloud/koala/koala/common/klog"
	"github.com/kowabunga-cloud/koala/koala/common/metadata"
	"github.com/kowabunga-cloud/koala/koala/helper"
)

const (
	ErrorHaproxyCheck  = "haproxy config check failed: %v\n%s"
	ErrorHaproxyReload = "unable to reload %s: %w"
)

type Reconciler struct {
	resolver *helper.SettingResolver
	cfg      *KoalaHaproxyConfig
	svc      *agents.ManagedService
	exporter *Exporter

	// servers rendered by the last successful pass
	previous helper.RouteSet
	// installed configuration not applied yet by a successful reload
	pendingReload bool

	reload  func(ctx context.Context) error
	started func(ctx context.Context) (bool, error)
}

func NewReconciler(cfg *KoalaHaproxyConfig, exporter *Exporter) *Reconciler {
	configFile := agents.ConfigFile{
		TemplateContent: templates.HaproxyConfTemplate(AgentName),
		TargetPath:      cfg.ConfigPath,
	}
	if cfg.Binary != "" {
		configFile.Validate = haproxyCheck(cfg.Binary)
	}

	svc := &agents.ManagedService{
		UnitName:    cfg.Unit,
		User:        cfg.User,
		Group:       cfg.Group,
		ConfigPaths: []agents.ConfigFile{configFile},
	}

	if exporter == nil {
		exporter = NewExporter()
	}

	return &Reconciler{
		resolver: helper.NewSettingResolver(cfg.Directives),
		cfg:      cfg,
		svc:      svc,
		exporter: exporter,
		reload:   svc.ReloadOrRestart,
		started:  svc.IsServiceStarted,
	}
}

// haproxyCheck runs "haproxy -c" against a candidate configuration file.
func haproxyCheck(binary string) func(string) error {
	return func(path string) error {
		bin, err := common.LookupBinary(binary)
		if err != nil {
			return err
		}

		out, err := common.BinExecOut(bin, "-c", "-q", "-f", path)
		if err != nil {
			return fmt.Errorf(ErrorHaproxyCheck, err, strings.TrimSpace(out))
		}
		return nil
	}
}

func (r *Reconciler) templateValues(config *helper.Config) map[string]any {
	return map[string]any{
		"Global":   r.cfg.Global,
		"Defaults": r.cfg.Defaults,
		"Config":   config,
	}
}

func renderedRoutes(config *helper.Config) helper.RouteSet {
	set := helper.NewRouteSet()
	for _, b := range config.Backends {
		for _, s := range b.Servers {
			// server <name> <address> ...
			fields := strings.Fields(s)
			if len(fields) > 1 {
				set.Add(fields[1])
			}
		}
	}
	return set
}

// Pass runs one full reconciliation: snapshot to HAProxy configuration,
// then a unit reload whenever the configuration changed or HAProxy is down.
func (r *Reconciler) Pass(ctx context.Context) error {
	err := r.pass(ctx)
	r.exporter.ObserveReconciliation(err)
	return err
}

func (r *Reconciler) pass(ctx context.Context) error {
	snap, err := metadata.LoadSnapshot(r.cfg.Snapshot)
	if err != nil {
		return err
	}

	config := r.resolver.Compose(snap, r.cfg.BasicAuth)

	updated, err := r.svc.TemplateConfigs(r.templateValues(config))
	if err != nil {
		return err
	}

	current := renderedRoutes(config)
	if r.previous != nil {
		added, removed := helper.DiffRoutes(r.previous, current)
		for _, name := range added {
			klog.Infof("Backend server %s added", name)
		}
		for _, name := range removed {
			klog.Infof("Backend server %s removed", name)
		}
		r.exporter.ObserveRoutes(added, removed)
	}
	r.previous = current
	r.exporter.SetBackends(config.Backends)

	if updated {
		r.exporter.ObserveConfigUpdate()
		r.pendingReload = true
	}

	reload := r.pendingReload
	if !reload {
		running, err := r.started(ctx)
		if err != nil {
			klog.Warningf("Unable to get %s state: %v", r.cfg.Unit, err)
		}
		reload = !running
	}

	if !reload {
		klog.Debugf("%s is up to date", r.cfg.Unit)
		return nil
	}

	err = r.reload(ctx)
	r.exporter.ObserveReload(err)
	if err != nil {
		return fmt.Errorf(ErrorHaproxyReload, r.cfg.Unit, err)
	}
	r.pendingReload = false

	return nil
}

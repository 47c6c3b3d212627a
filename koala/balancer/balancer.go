/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package balancer

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/kowabunga-cloud/koala/koala/common"
	"github.com/kowabunga-cloud/koala/koala/common/agents"
	"github.com/kowabunga-cloud/koala/koala/common/klog"
)

const (
	AgentName = "koala"

	metricsShutdownTimeout = 5 * time.Second
)

type KoalaAgent struct {
	cfg        *KoalaAgentConfig
	exporter   *Exporter
	reconciler *Reconciler
}

func NewKoalaAgent(cfg *KoalaAgentConfig) *KoalaAgent {
	exporter := NewExporter()
	return &KoalaAgent{
		cfg:        cfg,
		exporter:   exporter,
		reconciler: NewReconciler(&cfg.Haproxy, exporter),
	}
}

// Run reconciles on every snapshot change, and periodically, until ctx is done.
func (k *KoalaAgent) Run(ctx context.Context) error {
	if k.cfg.Metrics.Enabled {
		srv := k.exporter.serveMetrics(k.cfg.Metrics)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	debounce := time.Duration(k.cfg.Haproxy.DebounceMs) * time.Millisecond
	watcher, err := NewSnapshotWatcher(k.cfg.Haproxy.Snapshot, debounce)
	if err != nil {
		return fmt.Errorf("unable to watch %s: %w", k.cfg.Haproxy.Snapshot, err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	ticker := time.NewTicker(time.Duration(k.cfg.Haproxy.ResyncSeconds) * time.Second)
	defer ticker.Stop()

	k.pass(ctx)
	for {
		select {
		case <-ctx.Done():
			klog.Infof("Shutting down %s", AgentName)
			return nil
		case <-watcher.Changes():
			klog.Debugf("Services snapshot %s changed", k.cfg.Haproxy.Snapshot)
			k.pass(ctx)
		case <-ticker.C:
			k.pass(ctx)
		}
	}
}

func (k *KoalaAgent) pass(ctx context.Context) {
	err := k.reconciler.Pass(ctx)
	if err != nil {
		klog.Errorf("Reconciliation failed: %v", err)
	}
}

func Daemonize() error {
	// parsing commands
	cmd := agents.ParseCommands()

	cfg, err := ParseConfig(cmd.ConfigFile)
	if err != nil {
		return fmt.Errorf("config: unable to unmarshal config (%s)", err)
	}

	// init our logger
	err = klog.Init(AgentName, cfg.Global.EffectiveLoggers(cmd.Debug))
	if err != nil {
		return err
	}

	if !common.IsRoot() {
		klog.Warning("Not running as root, HAProxy reload and ownership changes may fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	agent := NewKoalaAgent(cfg)
	if cmd.Once {
		return agent.reconciler.Pass(ctx)
	}

	return agent.Run(ctx)
}

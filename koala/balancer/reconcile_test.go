/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package balancer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kowabunga-cloud/koala/koala/common"
)

const testServicesSnapshot = `
routes:
  web-a:
    - name: WEB_A_2
      protocol: tcp
      port: 8080
      address: 10.0.0.2
    - name: WEB_A_1
      protocol: tcp
      port: 8080
      address: 10.0.0.1
  batch:
    - name: BATCH_1
      protocol: tcp
      port: 9000
      address: 10.0.1.1
details:
  web-a:
    balance: roundrobin
vhosts:
  - service_alias: web-a
    scheme: http
    host: a.com
    path: ""
    port: 80
`

const testServicesSnapshotScaled = testServicesSnapshot + `
  - service_alias: web-b
    scheme: http
    host: b.com
    path: ""
    port: 80
`

type fakeUnit struct {
	running   bool
	reloads   int
	reloadErr error
}

func (u *fakeUnit) reload(context.Context) error {
	u.reloads++
	return u.reloadErr
}

func (u *fakeUnit) started(context.Context) (bool, error) {
	return u.running, nil
}

func testReconciler(t *testing.T) (*Reconciler, *fakeUnit, string) {
	t.Helper()

	dir := t.TempDir()
	snapshot := filepath.Join(dir, "services.yml")
	writeSnapshot(t, snapshot, testServicesSnapshot)

	cfg := &KoalaAgentConfig{
		Haproxy: KoalaHaproxyConfig{
			ConfigPath: filepath.Join(dir, "haproxy", "haproxy.cfg"),
			Snapshot:   snapshot,
			BasicAuth:  "admin:secret",
		},
	}
	cfg.setDefaults()

	unit := &fakeUnit{running: true}
	r := NewReconciler(&cfg.Haproxy, nil)
	r.reload = unit.reload
	r.started = unit.started

	return r, unit, dir
}

func writeSnapshot(t *testing.T, path, contents string) {
	t.Helper()
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func scrape(t *testing.T, e *Exporter) string {
	t.Helper()
	rec := httptest.NewRecorder()
	e.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected metrics status: %d", rec.Code)
	}
	return rec.Body.String()
}

func TestReconcilerPass(t *testing.T) {
	r, unit, _ := testReconciler(t)
	ctx := context.Background()

	err := r.Pass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unit.reloads != 1 {
		t.Errorf("first pass should reload once, got %d", unit.reloads)
	}

	contents, err := os.ReadFile(r.cfg.ConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"# Generated by koala, do not edit manually.",
		"userlist haproxy_userlist",
		"backend SERVICE_web-a",
		"    acl need_auth http_auth(haproxy_userlist)",
		"    server WEB_A_1 10.0.0.1:8080 check inter 2000 rise 2 fall 3",
		"backend default_service",
		"    server BATCH_1 10.0.1.1:9000 check inter 2000 rise 2 fall 3",
		"    default_backend default_service",
	} {
		if !strings.Contains(string(contents), want) {
			t.Errorf("missing %q in:\n%s", want, contents)
		}
	}
	if strings.Index(string(contents), "WEB_A_1") > strings.Index(string(contents), "WEB_A_2") {
		t.Error("servers should be ordered by name")
	}

	// nothing changed, HAProxy up and running
	err = r.Pass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unit.reloads != 1 {
		t.Errorf("unchanged snapshot should not reload, got %d reloads", unit.reloads)
	}

	// nothing changed, HAProxy down
	unit.running = false
	err = r.Pass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unit.reloads != 2 {
		t.Errorf("stopped unit should be restarted, got %d reloads", unit.reloads)
	}

	metrics := scrape(t, r.exporter)
	for _, want := range []string{
		`koala_reconciliations_total{result="success"} 3`,
		`koala_haproxy_reloads_total{result="success"} 2`,
		`koala_config_updates_total 1`,
		`koala_backend_servers{backend="SERVICE_web-a"} 2`,
		`koala_backend_servers{backend="default_service"} 1`,
	} {
		if !strings.Contains(metrics, want) {
			t.Errorf("missing %q in metrics", want)
		}
	}
}

func TestReconcilerRouteChanges(t *testing.T) {
	r, unit, _ := testReconciler(t)
	ctx := context.Background()

	err := r.Pass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// BATCH_1 leaves the snapshot, WEB_A_3 joins it
	scaled := strings.Replace(testServicesSnapshot, "BATCH_1", "WEB_A_3", 1)
	writeSnapshot(t, r.cfg.Snapshot, scaled)

	err = r.Pass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unit.reloads != 2 {
		t.Errorf("changed snapshot should reload, got %d reloads", unit.reloads)
	}

	metrics := scrape(t, r.exporter)
	for _, want := range []string{
		`koala_routes_added_total 1`,
		`koala_routes_removed_total 1`,
		`koala_config_updates_total 2`,
	} {
		if !strings.Contains(metrics, want) {
			t.Errorf("missing %q in metrics", want)
		}
	}
	if r.previous.Has("BATCH_1") || !r.previous.Has("WEB_A_3") {
		t.Errorf("unexpected rendered routes: %v", r.previous.Names())
	}
}

func TestReconcilerNewBackend(t *testing.T) {
	r, _, _ := testReconciler(t)
	ctx := context.Background()

	err := r.Pass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	writeSnapshot(t, r.cfg.Snapshot, testServicesSnapshotScaled)
	err = r.Pass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	contents, err := os.ReadFile(r.cfg.ConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(contents), "backend SERVICE_web-b") {
		t.Errorf("missing web-b backend in:\n%s", contents)
	}
}

func TestReconcilerFailures(t *testing.T) {
	r, unit, _ := testReconciler(t)
	ctx := context.Background()

	writeSnapshot(t, r.cfg.Snapshot, "routes: [oops")
	err := r.Pass(ctx)
	if err == nil {
		t.Fatal("expected a snapshot error")
	}
	if unit.reloads != 0 {
		t.Error("a broken snapshot must not reload HAProxy")
	}
	if _, err := os.Stat(r.cfg.ConfigPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("a broken snapshot must not write any configuration")
	}

	writeSnapshot(t, r.cfg.Snapshot, testServicesSnapshot)
	unit.reloadErr = errors.New("unit is masked")
	err = r.Pass(ctx)
	if err == nil || !strings.Contains(err.Error(), "unit is masked") {
		t.Errorf("expected reload error, got %v", err)
	}

	metrics := scrape(t, r.exporter)
	for _, want := range []string{
		`koala_reconciliations_total{result="failure"} 2`,
		`koala_haproxy_reloads_total{result="failure"} 1`,
	} {
		if !strings.Contains(metrics, want) {
			t.Errorf("missing %q in metrics", want)
		}
	}
}

func TestReconcilerRetriesFailedReload(t *testing.T) {
	r, unit, _ := testReconciler(t)
	ctx := context.Background()

	unit.reloadErr = errors.New("unit is masked")
	err := r.Pass(ctx)
	if err == nil {
		t.Fatal("expected reload error")
	}
	if unit.reloads != 1 {
		t.Fatalf("expected one reload attempt, got %d", unit.reloads)
	}

	// the configuration is installed, the previous HAProxy still runs
	unit.reloadErr = nil
	err = r.Pass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unit.reloads != 2 {
		t.Errorf("unapplied configuration should be reloaded, got %d reloads", unit.reloads)
	}

	err = r.Pass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unit.reloads != 2 {
		t.Errorf("applied configuration should not reload again, got %d reloads", unit.reloads)
	}

	metrics := scrape(t, r.exporter)
	for _, want := range []string{
		`koala_config_updates_total 1`,
		`koala_haproxy_reloads_total{result="failure"} 1`,
		`koala_haproxy_reloads_total{result="success"} 1`,
	} {
		if !strings.Contains(metrics, want) {
			t.Errorf("missing %q in metrics", want)
		}
	}
}

func fakeHaproxy(t *testing.T, dir, name, script string) string {
	t.Helper()
	if _, err := common.LookupBinary("sh"); err != nil {
		t.Skip("no shell available")
	}

	path := filepath.Join(dir, name)
	err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0700)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReconcilerValidation(t *testing.T) {
	r, unit, dir := testReconciler(t)
	ctx := context.Background()

	bin := fakeHaproxy(t, dir, "haproxy-ko", `echo "[ALERT] parsing $4"; exit 1`)
	r.svc.ConfigPaths[0].Validate = haproxyCheck(bin)

	err := r.Pass(ctx)
	if err == nil || !strings.Contains(err.Error(), "[ALERT] parsing") {
		t.Fatalf("expected validation error, got %v", err)
	}
	if unit.reloads != 0 {
		t.Error("an invalid configuration must not reload HAProxy")
	}
	if _, err := os.Stat(r.cfg.ConfigPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("an invalid configuration must not be installed")
	}

	bin = fakeHaproxy(t, dir, "haproxy-ok", `test -f "$4"`)
	r.svc.ConfigPaths[0].Validate = haproxyCheck(bin)

	err = r.Pass(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unit.reloads != 1 {
		t.Errorf("expected one reload, got %d", unit.reloads)
	}
}

/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package balancer

import (
	"io"
	"os"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	"github.com/kowabunga-cloud/koala/koala/common/agents"
	"github.com/kowabunga-cloud/koala/koala/common/klog"
	"github.com/kowabunga-cloud/koala/koala/helper"
)

const (
	DefaultHaproxyUnit       = "haproxy.service"
	DefaultHaproxyConfigPath = "/etc/haproxy/haproxy.cfg"
	DefaultDebounceMs        = 500
	DefaultResyncSeconds     = 60
	DefaultMetricsAddress    = "127.0.0.1"
	DefaultMetricsPort       = 9101
)

var defaultHaproxyGlobal = []string{
	"daemon",
	"maxconn 4096",
	"log 127.0.0.1 local0",
	"tune.ssl.default-dh-param 2048",
}

var defaultHaproxyDefaults = []string{
	"log global",
	"mode http",
	"option httplog",
	"option redispatch",
	"option dontlognull",
	"timeout connect 5s",
	"timeout client 50s",
	"timeout server 50s",
	"timeout http-request 15s",
	"timeout http-keep-alive 15s",
}

type KoalaAgentConfig struct {
	Global  agents.KoalaAgentGlobalConfig `yaml:"global"`
	Haproxy KoalaHaproxyConfig            `yaml:"haproxy"`
	Metrics KoalaMetricsConfig            `yaml:"metrics"`
}

type KoalaHaproxyConfig struct {
	Unit          string            `yaml:"unit"`
	User          string            `yaml:"user"`
	Group         string            `yaml:"group"`
	Binary        string            `yaml:"binary"`
	ConfigPath    string            `yaml:"configPath"`
	Snapshot      string            `yaml:"snapshot"`
	BasicAuth     string            `yaml:"basicAuth"`
	Global        []string          `yaml:"global"`
	Defaults      []string          `yaml:"defaults"`
	Directives    helper.Directives `yaml:"directives"`
	DebounceMs    int               `yaml:"debounceMs"`
	ResyncSeconds int               `yaml:"resyncSeconds"`
}

type KoalaMetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

func (cfg *KoalaAgentConfig) setDefaults() {
	h := &cfg.Haproxy
	if h.Unit == "" {
		h.Unit = DefaultHaproxyUnit
	}
	if h.ConfigPath == "" {
		h.ConfigPath = DefaultHaproxyConfigPath
	}
	if h.Global == nil {
		h.Global = defaultHaproxyGlobal
	}
	if h.Defaults == nil {
		h.Defaults = defaultHaproxyDefaults
	}
	if h.DebounceMs == 0 {
		h.DebounceMs = DefaultDebounceMs
	}
	if h.ResyncSeconds == 0 {
		h.ResyncSeconds = DefaultResyncSeconds
	}
	h.Directives = h.Directives.WithDefaults()

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = DefaultMetricsAddress
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = DefaultMetricsPort
	}
}

func (cfg *KoalaAgentConfig) validate() error {
	if cfg.Global.LogLevel != "" && !klog.IsValidLevel(cfg.Global.LogLevel) {
		return errors.NotValidf("log level %q", cfg.Global.LogLevel)
	}

	if cfg.Haproxy.Snapshot == "" {
		return errors.NotValidf("missing haproxy services snapshot path")
	}

	if (cfg.Haproxy.User == "") != (cfg.Haproxy.Group == "") {
		return errors.NotValidf("haproxy user and group must be set together")
	}

	if cfg.Haproxy.DebounceMs < 0 || cfg.Haproxy.ResyncSeconds < 0 {
		return errors.NotValidf("negative haproxy timing")
	}

	if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
		return errors.NotValidf("metrics port %d", cfg.Metrics.Port)
	}

	return nil
}

func ParseConfigContents(contents []byte) (*KoalaAgentConfig, error) {
	var config KoalaAgentConfig

	err := yaml.Unmarshal(contents, &config)
	if err != nil {
		return nil, errors.Annotate(err, "malformed agent configuration")
	}

	config.setDefaults()
	err = config.validate()
	if err != nil {
		return nil, errors.Trace(err)
	}

	return &config, nil
}

func ParseConfig(f *os.File) (*KoalaAgentConfig, error) {
	defer func() {
		_ = f.Close()
	}()

	contents, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Annotatef(err, "unable to read %s", f.Name())
	}

	return ParseConfigContents(contents)
}

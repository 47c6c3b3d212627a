/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package agents

import (
	"github.com/kowabunga-cloud/koala/koala/common/klog"
)

const (
	DefaultLogLevel = "INFO"
)

type KoalaAgentGlobalConfig struct {
	LogLevel string                     `yaml:"logLevel"`
	Loggers  []klog.LoggerConfiguration `yaml:"loggers,omitempty"`
}

// EffectiveLoggers falls back to a console logger at the configured level
func (g *KoalaAgentGlobalConfig) EffectiveLoggers(debug bool) []klog.LoggerConfiguration {
	level := g.LogLevel
	if level == "" {
		level = DefaultLogLevel
	}
	if debug {
		level = "DEBUG"
	}

	if len(g.Loggers) == 0 {
		return klog.ConsoleLogger(level)
	}

	loggers := make([]klog.LoggerConfiguration, len(g.Loggers))
	copy(loggers, g.Loggers)
	if debug {
		for i := range loggers {
			loggers[i].Level = level
		}
	}
	return loggers
}

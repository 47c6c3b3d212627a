/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package klog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInit(t *testing.T) {
	logfile := filepath.Join(t.TempDir(), "koala.log")

	tests := []struct {
		name    string
		loggers []LoggerConfiguration
		fails   bool
	}{
		{
			name:    "console",
			loggers: ConsoleLogger("info"),
		},
		{
			name:    "disabled bogus logger",
			loggers: []LoggerConfiguration{{Type: "bogus", Enabled: false}},
		},
		{
			name:    "file",
			loggers: []LoggerConfiguration{{Type: LoggerFile, Enabled: true, Level: "DEBUG", File: logfile}},
		},
		{
			name:    "unknown level",
			loggers: []LoggerConfiguration{{Type: LoggerConsole, Enabled: true, Level: "LOUD"}},
			fails:   true,
		},
		{
			name:    "unknown type",
			loggers: []LoggerConfiguration{{Type: "bogus", Enabled: true, Level: "INFO"}},
			fails:   true,
		},
	}

	for _, test := range tests {
		err := Init("koala-test", test.loggers)
		if test.fails && err == nil {
			t.Errorf("%s: expected an error", test.name)
		}
		if !test.fails && err != nil {
			t.Errorf("%s: unexpected error: %v", test.name, err)
		}
	}
}

func TestFileLogger(t *testing.T) {
	logfile := filepath.Join(t.TempDir(), "koala.log")
	err := Init("koala-test", []LoggerConfiguration{{Type: LoggerFile, Enabled: true, Level: "INFO", File: logfile}})
	if err != nil {
		t.Fatal(err)
	}

	Debugf("hidden %d", 1)
	Infof("visible %d", 2)
	Errorf("failure %d", 3)

	contents, err := os.ReadFile(logfile)
	if err != nil {
		t.Fatal(err)
	}

	out := string(contents)
	if strings.Contains(out, "hidden 1") {
		t.Error("debug message logged at INFO level")
	}
	if !strings.Contains(out, "visible 2") {
		t.Error("info message is missing")
	}
	if !strings.Contains(out, "klog_test.go") || !strings.Contains(out, "failure 3") {
		t.Errorf("error message should carry its caller: %s", out)
	}

	_ = Init("koala-test", ConsoleLogger("INFO"))
}

func TestIsValidLevel(t *testing.T) {
	if !IsValidLevel("warning") || !IsValidLevel("DEBUG") {
		t.Error("known levels are rejected")
	}
	if IsValidLevel("TRACE") {
		t.Error("unknown level is accepted")
	}
}

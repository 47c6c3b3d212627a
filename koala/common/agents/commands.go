/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package agents

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
)

var version = "was not built correctly"  // set via the Makefile
var codename = "was not built correctly" // set via the Makefile

const (
	flagDescConfig  = "YAML config file to be used"
	flagDescDebug   = "Enable verbose/debug output"
	flagDescVersion = "Display version"
	flagDescOnce    = "Run a single reconciliation pass and exit"
)

type Commands struct {
	ConfigFile *os.File
	Debug      bool
	Once       bool
}

func ParseCommands() Commands {
	configFile := kingpin.Flag("config", flagDescConfig).Short('c').Required().File()
	debug := kingpin.Flag("debug", flagDescDebug).Short('d').Bool()
	vers := kingpin.Flag("version", flagDescVersion).Short('v').Bool()
	once := kingpin.Flag("once", flagDescOnce).Bool()

	kingpin.Parse()

	if *vers {
		fmt.Printf("%s (%s)\n", version, codename)
		os.Exit(0)
	}

	return Commands{
		ConfigFile: *configFile,
		Debug:      *debug,
		Once:       *once,
	}
}

/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package common

import (
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/kowabunga-cloud/koala/koala/common/klog"
)

func LookupBinary(bin string) (string, error) {
	path, err := exec.LookPath(bin)
	if err != nil {
		klog.Errorf("%s executable can't be found in $PATH", bin)
		return "", err
	}

	return path, nil
}

func binExec(bin string, args []string, stdout io.Writer) error {
	cmd := exec.Command(bin, args...)
	cmd.Env = os.Environ()
	cmd.Stdout = stdout
	cmd.Stderr = stdout

	klog.Debugf("Running %s", strings.Join(cmd.Args, " "))
	return cmd.Run()
}

// BinExecOut runs bin and returns its combined output
func BinExecOut(bin string, args ...string) (string, error) {
	var outbuf strings.Builder
	err := binExec(bin, args, &outbuf)
	return outbuf.String(), err
}

/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package common

import (
	"os"

	"github.com/kowabunga-cloud/koala/koala/common/klog"
)

type TmpFile struct {
	file *os.File
}

func (f *TmpFile) File() *os.File {
	return f.file
}

func (f *TmpFile) Name() string {
	return f.file.Name()
}

func (f *TmpFile) Remove() {
	err := f.file.Close()
	if err != nil && !os.IsNotExist(err) {
		klog.Debugf("closing %s: %v", f.file.Name(), err)
	}

	klog.Debugf("Cleaning leftover %s ...", f.file.Name())
	err = os.Remove(f.file.Name())
	if err != nil && !os.IsNotExist(err) {
		klog.Error(err)
	}
}

// NewTmpFile creates a temporary file pre-filled with contents
func NewTmpFile(prefix string, contents []byte) (*TmpFile, error) {
	f, err := os.CreateTemp("", prefix)
	if err != nil {
		return nil, err
	}

	tmp := &TmpFile{
		file: f,
	}

	_, err = f.Write(contents)
	if err == nil {
		err = f.Sync()
	}
	if err != nil {
		tmp.Remove()
		return nil, err
	}

	return tmp, nil
}

func IsRoot() bool {
	return os.Getuid() == 0
}

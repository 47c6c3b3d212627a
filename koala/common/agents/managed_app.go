/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package agents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"text/template"

	dbus "github.com/coreos/go-systemd/v22/dbus"

	"github.com/kowabunga-cloud/koala/koala/common"
	"github.com/kowabunga-cloud/koala/koala/common/klog"
)

const (
	SystemdActiveState             = "active"
	ErrorSystemdConnectionUserConn = "Has the user appropriate rights to interact with systemd ?"
	ErrorConfigValidation          = "rendered %s is invalid: %w"
	ErrorUnknownUnit               = "unknown systemd unit %s"

	configFileMode os.FileMode = 0640
	configDirMode  os.FileMode = 0750
)

type ManagedService struct {
	UnitName    string
	User        string
	Group       string
	ConfigPaths []ConfigFile
}

type ConfigFile struct {
	TemplateContent string
	TargetPath      string
	// Validate checks a candidate file before it replaces TargetPath.
	Validate func(path string) error
}

func (svc *ManagedService) ReloadOrRestart(ctx context.Context) error {
	systemdConnection, err := dbus.NewSystemdConnectionContext(ctx)
	if err != nil {
		return fmt.Errorf("%s -- %s", err, ErrorSystemdConnectionUserConn)
	}
	defer systemdConnection.Close()

	code, err := systemdConnection.ReloadOrRestartUnitContext(ctx, svc.UnitName, "replace", nil)
	if err != nil {
		return fmt.Errorf("%s | returned code : %d", err.Error(), code)
	}
	klog.Infof("Systemd unit %s has been reloaded (or restarted)", svc.UnitName)
	return nil
}

func (svc *ManagedService) IsServiceStarted(ctx context.Context) (bool, error) {
	systemdConnection, err := dbus.NewSystemdConnectionContext(ctx)
	if err != nil {
		return false, fmt.Errorf("%s -- %s", err.Error(), ErrorSystemdConnectionUserConn)
	}
	defer systemdConnection.Close()

	state, err := systemdConnection.ListUnitsByNamesContext(ctx, []string{svc.UnitName})
	if err != nil {
		return false, err
	}
	if len(state) == 0 {
		return false, fmt.Errorf(ErrorUnknownUnit, svc.UnitName)
	}
	return state[0].ActiveState == SystemdActiveState, nil
}

func renderTemplate(cfg ConfigFile, values any) ([]byte, error) {
	tpl := template.New(filepath.Base(cfg.TargetPath))
	common.LoadTemplateFunctions(tpl)
	tpl, err := tpl.Parse(cfg.TemplateContent)
	if err != nil {
		return nil, err
	}

	var buffer bytes.Buffer
	err = tpl.Execute(&buffer, values)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// TemplateConfigs renders every config file with values and replaces the
// ones whose content changed. It reports whether anything was written.
func (svc *ManagedService) TemplateConfigs(values any) (bool, error) {
	configUpdated := false
	for _, cfg := range svc.ConfigPaths {
		content, err := renderTemplate(cfg, values)
		if err != nil {
			return configUpdated, err
		}

		diff, err := hasDiff(content, cfg.TargetPath)
		if err != nil {
			return configUpdated, err
		}
		if !diff {
			klog.Debugf("No change to apply to %s", cfg.TargetPath)
			continue
		}

		if cfg.Validate != nil {
			err = validate(cfg, content)
			if err != nil {
				return configUpdated, err
			}
		}

		err = svc.install(cfg.TargetPath, content)
		if err != nil {
			return configUpdated, err
		}

		configUpdated = true
		klog.Infof("A change has been applied to %s", cfg.TargetPath)
	}
	return configUpdated, nil
}

func validate(cfg ConfigFile, content []byte) error {
	tmp, err := common.NewTmpFile(filepath.Base(cfg.TargetPath)+".", content)
	if err != nil {
		return err
	}
	defer tmp.Remove()

	err = cfg.Validate(tmp.Name())
	if err != nil {
		return fmt.Errorf(ErrorConfigValidation, cfg.TargetPath, err)
	}
	return nil
}

func (svc *ManagedService) owner() (int, int, error) {
	us, err := user.Lookup(svc.User)
	if err != nil {
		return -1, -1, err
	}
	uid, err := strconv.Atoi(us.Uid)
	if err != nil {
		return -1, -1, err
	}

	grp, err := user.LookupGroup(svc.Group)
	if err != nil {
		return -1, -1, err
	}
	gid, err := strconv.Atoi(grp.Gid)
	if err != nil {
		return -1, -1, err
	}

	return uid, gid, nil
}

// install atomically replaces target with content, owned by the service
// user when one is set.
func (svc *ManagedService) install(target string, content []byte) error {
	uid, gid := -1, -1
	if svc.User != "" {
		var err error
		uid, gid, err = svc.owner()
		if err != nil {
			return err
		}
	}

	targetDir := filepath.Dir(target)
	err := os.MkdirAll(targetDir, configDirMode)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(targetDir, "."+filepath.Base(target)+".")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(f.Name())
	}()

	_, err = f.Write(content)
	if err == nil {
		err = f.Chmod(configFileMode)
	}
	if err == nil {
		err = f.Close()
	} else {
		_ = f.Close()
	}
	if err != nil {
		return err
	}

	if uid >= 0 {
		err = os.Chown(f.Name(), uid, gid)
		if err != nil {
			return err
		}
	}

	return os.Rename(f.Name(), target)
}

func hasDiff(newValue []byte, targetOverrideFilePath string) (bool, error) {
	existingBytes, err := os.ReadFile(filepath.Clean(targetOverrideFilePath))
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return !bytes.Equal(newValue, existingBytes), nil
}

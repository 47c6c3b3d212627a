/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package balancer

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kowabunga-cloud/koala/koala/common/klog"
)

// SnapshotWatcher signals changes of the services snapshot file. Bursts of
// events are coalesced into one notification after the debounce delay.
type SnapshotWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	changes  chan struct{}
	done     chan struct{}
	once     sync.Once
}

func NewSnapshotWatcher(path string, debounce time.Duration) (*SnapshotWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// watch the parent directory, editors and orchestrators replace files
	err = fsWatcher.Add(filepath.Dir(path))
	if err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}

	w := &SnapshotWatcher{
		watcher:  fsWatcher,
		path:     filepath.Clean(path),
		debounce: debounce,
		changes:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	go w.watch()
	return w, nil
}

func (w *SnapshotWatcher) Changes() <-chan struct{} {
	return w.changes
}

func (w *SnapshotWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *SnapshotWatcher) notify() {
	select {
	case w.changes <- struct{}{}:
	default:
		// a notification is already pending
	}
}

func (w *SnapshotWatcher) watch() {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			klog.Debugf("Services snapshot event: %s", event)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.notify)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			klog.Errorf("Services snapshot watcher error: %v", err)
		}
	}
}

/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package klog

import (
	"fmt"
	"log/syslog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/op/go-logging"
)

const (
	LoggerConsole = "console"
	LoggerFile    = "file"
	LoggerSyslog  = "syslog"

	ErrorUnsupportedLevel  = "unsupported log-level value for %s logger: %s"
	ErrorUnsupportedLogger = "unsupported logger type: %s"
	ErrorLogFile           = "unable to open log file %s: %v"
)

// LoggerConfiguration defines custom configuration of a logging engine
type LoggerConfiguration struct {
	Type    string `yaml:"type"`
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
}

var logLevels = map[string]logging.Level{
	"CRITICAL": logging.CRITICAL,
	"ERROR":    logging.ERROR,
	"WARNING":  logging.WARNING,
	"NOTICE":   logging.NOTICE,
	"INFO":     logging.INFO,
	"DEBUG":    logging.DEBUG,
}

var syslogLevels = map[string]syslog.Priority{
	"CRITICAL": syslog.LOG_CRIT,
	"ERROR":    syslog.LOG_ERR,
	"WARNING":  syslog.LOG_WARNING,
	"NOTICE":   syslog.LOG_NOTICE,
	"INFO":     syslog.LOG_INFO,
	"DEBUG":    syslog.LOG_DEBUG,
}

var logger = logging.MustGetLogger("klog")

// IsValidLevel tells whether level is a known log-level name
func IsValidLevel(level string) bool {
	_, ok := logLevels[strings.ToUpper(level)]
	return ok
}

// ConsoleLogger is the default single console logger at the given level
func ConsoleLogger(level string) []LoggerConfiguration {
	return []LoggerConfiguration{
		{
			Type:    LoggerConsole,
			Enabled: true,
			Level:   strings.ToUpper(level),
		},
	}
}

func leveled(backend logging.Backend, level string) logging.LeveledBackend {
	l := logging.AddModuleLevel(backend)
	l.SetLevel(logLevels[level], "")
	return l
}

// Init initializes the custom logger sub-system
func Init(name string, loggers []LoggerConfiguration) error {
	logger = logging.MustGetLogger(name)

	backends := make([]logging.Backend, 0, len(loggers))
	for _, l := range loggers {
		if !l.Enabled {
			continue
		}

		level := strings.ToUpper(l.Level)
		switch l.Type {
		case LoggerConsole:
			if !IsValidLevel(level) {
				return fmt.Errorf(ErrorUnsupportedLevel, l.Type, l.Level)
			}
			consoleFmt := logging.MustStringFormatter(
				`%{color} ▶ [%{level:.4s} %{id:05x}%{color:reset}] %{message}`,
			)
			console := logging.NewLogBackend(os.Stdout, "", 0)
			backends = append(backends, leveled(logging.NewBackendFormatter(console, consoleFmt), level))
		case LoggerFile:
			if !IsValidLevel(level) {
				return fmt.Errorf(ErrorUnsupportedLevel, l.Type, l.Level)
			}
			logfile, err := os.OpenFile(l.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
			if err != nil {
				return fmt.Errorf(ErrorLogFile, l.File, err)
			}
			fileFmt := logging.MustStringFormatter(
				`[%{time:2006-01-02 15:04:05.000}] [%{level:.4s}] [%{id:05x}] %{message}`,
			)
			file := logging.NewLogBackend(logfile, "", 0)
			backends = append(backends, leveled(logging.NewBackendFormatter(file, fileFmt), level))
		case LoggerSyslog:
			prio, present := syslogLevels[level]
			if !present {
				return fmt.Errorf(ErrorUnsupportedLevel, l.Type, l.Level)
			}
			backend, err := logging.NewSyslogBackendPriority(logger.Module, prio)
			if err != nil {
				return err
			}
			backends = append(backends, backend)
		default:
			return fmt.Errorf(ErrorUnsupportedLogger, l.Type)
		}
	}

	// Set the backends to be used.
	logging.SetBackend(backends...)
	return nil
}

func runtimePC(msg string) string {
	pc, file, line, ok := runtime.Caller(3)
	if !ok {
		return msg
	}

	filename := file[strings.LastIndex(file, "/")+1:] + ":" + strconv.Itoa(line)
	funcname := runtime.FuncForPC(pc).Name()
	fn := funcname[strings.LastIndex(funcname, ".")+1:]
	return fmt.Sprintf("[%s][%s()] %s", filename, fn, msg)
}

func prependPC(args ...any) string {
	return runtimePC(fmt.Sprint(args...))
}

func prependPCf(format string, args ...any) string {
	return runtimePC(fmt.Sprintf(format, args...))
}

// Critical logs a simple message when severity is set to CRITICAL or above
func Critical(args ...any) {
	logger.Critical(prependPC(args...))
}

// Criticalf logs a formatted message when severity is set to CRITICAL or above
func Criticalf(format string, args ...any) {
	logger.Critical(prependPCf(format, args...))
}

// Error logs a simple message when severity is set to ERROR or above
func Error(args ...any) {
	logger.Error(prependPC(args...))
}

// Errorf logs a formatted message when severity is set to ERROR or above
func Errorf(format string, args ...any) {
	logger.Error(prependPCf(format, args...))
}

func Warning(args ...any) {
	logger.Warning(args...)
}

func Warningf(format string, args ...any) {
	logger.Warningf(format, args...)
}

func Notice(args ...any) {
	logger.Notice(args...)
}

func Noticef(format string, args ...any) {
	logger.Noticef(format, args...)
}

func Info(args ...any) {
	logger.Info(args...)
}

func Infof(format string, args ...any) {
	logger.Infof(format, args...)
}

func Debug(args ...any) {
	logger.Debug(args...)
}

func Debugf(format string, args ...any) {
	logger.Debugf(format, args...)
}

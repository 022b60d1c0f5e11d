// Copyright the dynslice authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"io"
	"log"
	"sync"
)

// LogLevel controls how much a LogGroup prints.
type LogLevel int

const (
	// ErrLevel is the minimum level of logging: only errors are printed.
	ErrLevel LogLevel = iota + 1

	// WarnLevel prints warnings and errors.
	WarnLevel

	// InfoLevel prints high-level progress and results, in addition to warnings and errors.
	InfoLevel

	// DebugLevel prints per-instruction debugging information. Fine for the testdata-sized
	// traces in this repo's test suite; expect a lot of output on a real log.
	DebugLevel

	// TraceLevel prints everything, including the aligned sequence and working set after
	// every translation block. Only useful on small synthesized traces.
	TraceLevel
)

// LogGroup is a set of level-gated *log.Logger instances, one per level, sharing an output
// writer unless reconfigured with SetAllOutput.
type LogGroup struct {
	level LogLevel
	trace *log.Logger
	debug *log.Logger
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger

	onceMu sync.Mutex
	warned map[string]bool
}

// NewLogGroup returns a LogGroup configured from cfg.LogLevel, with five
// independent *log.Logger instances (one per level, each with its own
// level-tagged prefix) sharing log.Default's output and flags.
func NewLogGroup(cfg *Config) *LogGroup {
	w := log.Default().Writer()
	flags := log.Default().Flags()
	newLevelLogger := func(prefix string) *log.Logger {
		return log.New(w, prefix, flags)
	}
	return &LogGroup{
		level:  LogLevel(cfg.LogLevel),
		trace:  newLevelLogger("[TRACE] "),
		debug:  newLevelLogger("[DEBUG] "),
		info:   newLevelLogger("[INFO] "),
		warn:   newLevelLogger("[WARN] "),
		err:    newLevelLogger("[ERROR] "),
		warned: map[string]bool{},
	}
}

// SetAllOutput redirects every logger in the group to w.
func (l *LogGroup) SetAllOutput(w io.Writer) {
	l.trace.SetOutput(w)
	l.debug.SetOutput(w)
	l.info.SetOutput(w)
	l.warn.SetOutput(w)
	l.err.SetOutput(w)
}

// SetAllFlags sets the log.Logger flag bits of every logger in the group.
func (l *LogGroup) SetAllFlags(x int) {
	l.trace.SetFlags(x)
	l.debug.SetFlags(x)
	l.info.SetFlags(x)
	l.warn.SetFlags(x)
	l.err.SetFlags(x)
}

// Tracef prints at TraceLevel.
func (l *LogGroup) Tracef(format string, v ...any) {
	if l.level >= TraceLevel {
		l.trace.Printf(format, v...)
	}
}

// Debugf prints at DebugLevel.
func (l *LogGroup) Debugf(format string, v ...any) {
	if l.level >= DebugLevel {
		l.debug.Printf(format, v...)
	}
}

// Infof prints at InfoLevel.
func (l *LogGroup) Infof(format string, v ...any) {
	if l.level >= InfoLevel {
		l.info.Printf(format, v...)
	}
}

// Warnf prints at WarnLevel.
func (l *LogGroup) Warnf(format string, v ...any) {
	if l.level >= WarnLevel {
		l.warn.Printf(format, v...)
	}
}

// Errorf prints at ErrLevel.
func (l *LogGroup) Errorf(format string, v ...any) {
	if l.level >= ErrLevel {
		l.err.Printf(format, v...)
	}
}

// WarnOnce prints the warning the first time it is called with a given key in this LogGroup's
// lifetime, and is silent on every subsequent call with the same key. Used for the
// documented-but-imprecise memcpy/memset/helper_in/helper_out handling: without this, a hot
// loop that calls memcpy a million times would otherwise flood the log with the same warning
// a million times.
func (l *LogGroup) WarnOnce(key, format string, v ...any) {
	l.onceMu.Lock()
	seen := l.warned[key]
	if !seen {
		l.warned[key] = true
	}
	l.onceMu.Unlock()
	if !seen {
		l.Warnf(format, v...)
	}
}

// GetDebug returns the debug-level logger, for callers that want a *log.Logger directly.
func (l *LogGroup) GetDebug() *log.Logger {
	return l.debug
}

// GetError returns the error-level logger, for callers that want a *log.Logger directly.
func (l *LogGroup) GetError() *log.Logger {
	return l.err
}

// SetError redirects only the error-level logger to w.
func (l *LogGroup) SetError(w io.Writer) {
	l.err.SetOutput(w)
}

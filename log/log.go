// Copyright 2026 The Hootmesh Authors
// This file is part of the Hootmesh library.
//
// The Hootmesh library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The Hootmesh library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the Hootmesh library. If not, see <http://www.gnu.org/licenses/>.

// Package log implements a small leveled logger used by the kademlia
// and gateway packages and the hootd command.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

var lvlNames = [...]string{"CRIT", "ERROR", "WARN", "INFO", "DEBUG", "TRACE"}

func (l Lvl) String() string {
	if int(l) < len(lvlNames) {
		return lvlNames[l]
	}
	return "UNKNOWN"
}

// Logger is the package-wide singleton; call SetRotatingFile/SetLevel at
// startup to redirect it to a rotating file.
var root = &logger{lvl: LvlInfo, out: defaultWriter()}

func defaultWriter() io.Writer {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return colorable.NewColorableStderr()
	}
	return os.Stderr
}

type logger struct {
	mu  sync.Mutex
	lvl Lvl
	out io.Writer
}

// SetLevel adjusts the minimum level that reaches the sink.
func SetLevel(l Lvl) {
	root.mu.Lock()
	defer root.mu.Unlock()
	root.lvl = l
}

// SetRotatingFile points the logger at a size/age rotated file, keeping
// the existing terminal sink silent once this is called.
func SetRotatingFile(path string, maxSizeMB, maxBackups, maxAgeDays int) {
	root.mu.Lock()
	defer root.mu.Unlock()
	root.out = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
}

func (lg *logger) write(lvl Lvl, msg string, ctx ...interface{}) {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	if lvl > lg.lvl {
		return
	}
	ts := time.Now().Format("2006-01-02T15:04:05.000")
	fmt.Fprintf(lg.out, "[%s] %-5s %s", ts, lvl, msg)
	for i := 0; i+1 < len(ctx); i += 2 {
		fmt.Fprintf(lg.out, " %v=%v", ctx[i], ctx[i+1])
	}
	fmt.Fprintln(lg.out)
}

func Crit(msg string, ctx ...interface{})  { root.write(LvlCrit, msg, ctx...) }
func Error(msg string, ctx ...interface{}) { root.write(LvlError, msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { root.write(LvlWarn, msg, ctx...) }
func Info(msg string, ctx ...interface{})  { root.write(LvlInfo, msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { root.write(LvlDebug, msg, ctx...) }
func Trace(msg string, ctx ...interface{}) { root.write(LvlTrace, msg, ctx...) }

func Errorf(format string, args ...interface{}) { root.write(LvlError, fmt.Sprintf(format, args...)) }
func Warnf(format string, args ...interface{})  { root.write(LvlWarn, fmt.Sprintf(format, args...)) }
func Infof(format string, args ...interface{})  { root.write(LvlInfo, fmt.Sprintf(format, args...)) }
func Debugf(format string, args ...interface{}) { root.write(LvlDebug, fmt.Sprintf(format, args...)) }
func Tracef(format string, args ...interface{}) { root.write(LvlTrace, fmt.Sprintf(format, args...)) }

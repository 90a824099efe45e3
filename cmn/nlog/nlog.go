// Package nlog is the bridge's own logger: buffered, timestamped,
// severity-leveled, rotating by size. Generalized from aistore's
// cmn/nlog for a single-process, single-file-pair target (no per-role
// log directories, no aistore-specific global config).
/*
 * Copyright (c) 2023, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arcbridge/pipebridge/cmn/mono"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

const sevChar = "IWE"

// MaxSize is the size, in bytes, at which the active log file is
// rotated. Default matches the teacher's default of 4MiB.
var MaxSize int64 = 4 * 1024 * 1024

type target struct {
	mu      sync.Mutex
	w       *bufio.Writer
	file    *os.File
	dir     string
	prefix  string
	sev     severity
	written int64
	last    int64
}

var (
	targets = [...]*target{
		sevInfo: {sev: sevInfo},
		sevWarn: {sev: sevWarn},
		sevErr:  {sev: sevErr},
	}
	toStderr bool
	initOnce sync.Once
	logDir   string
	prefix   = "bridge"
)

// SetPre points the logger at a directory and a filename prefix; until
// called, everything goes to stderr.
func SetPre(dir, pre string) {
	logDir, prefix = dir, pre
	for _, t := range targets {
		t.mu.Lock()
		t.dir, t.prefix = dir, pre
		t.mu.Unlock()
	}
}

// SetToStderr forces every line to stderr in addition to (or instead
// of, when no directory was set) the rotating file.
func SetToStderr(v bool) { toStderr = v }

func Infof(format string, args ...any)    { emit(sevInfo, 1, format, args...) }
func Infoln(args ...any)                  { emit(sevInfo, 1, "%s", lnString(args...)) }
func Warningf(format string, args ...any) { emit(sevWarn, 1, format, args...) }
func Warningln(args ...any)               { emit(sevWarn, 1, "%s", lnString(args...)) }
func Errorf(format string, args ...any)   { emit(sevErr, 1, format, args...) }
func Errorln(args ...any)                 { emit(sevErr, 1, "%s", lnString(args...)) }

// lnString renders args the way fmt.Println would, minus the newline
// that formatLine appends.
func lnString(args ...any) string { return strings.TrimSuffix(fmt.Sprintln(args...), "\n") }

// Flush forces buffered lines to disk. ActExit also syncs and closes
// the underlying files, used on orderly shutdown.
const (
	ActNone = iota
	ActExit
)

func Flush(act ...int) {
	exit := len(act) > 0 && act[0] == ActExit
	for _, t := range targets {
		t.mu.Lock()
		if t.w != nil {
			t.w.Flush()
			if exit && t.file != nil {
				t.file.Sync()
				t.file.Close()
			}
		}
		t.mu.Unlock()
	}
}

func emit(sev severity, depth int, format string, args ...any) {
	line := formatLine(sev, depth+1, format, args...)

	if toStderr || logDir == "" {
		os.Stderr.WriteString(line)
	}
	if logDir == "" {
		return
	}

	// warnings and errors are mirrored into the error-severity file
	for _, idx := range targetsFor(sev) {
		t := targets[idx]
		t.mu.Lock()
		t.write(line)
		t.mu.Unlock()
	}
}

func targetsFor(sev severity) []int {
	if sev >= sevWarn {
		return []int{int(sevInfo), int(sevErr)}
	}
	return []int{int(sevInfo)}
}

// write appends line to t's active file, rotating when MaxSize is
// exceeded. Caller holds t.mu.
func (t *target) write(line string) {
	initOnce.Do(func() {})
	if t.file == nil {
		if err := t.open(time.Now()); err != nil {
			os.Stderr.WriteString("nlog: " + err.Error() + "\n")
			return
		}
	}
	n, _ := t.w.WriteString(line)
	t.written += int64(n)
	t.last = mono.NanoTime()
	if t.written >= MaxSize {
		t.w.Flush()
		t.file.Close()
		t.file = nil
		t.written = 0
	}
}

func (t *target) open(now time.Time) error {
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("%s.%s.%04d%02d%02d-%02d%02d%02d.%d.log",
		t.prefix, sevName(t.sev), now.Year(), now.Month(), now.Day(),
		now.Hour(), now.Minute(), now.Second(), os.Getpid())
	f, err := os.OpenFile(filepath.Join(t.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	t.file = f
	t.w = bufio.NewWriterSize(f, 64*1024)
	return nil
}

func sevName(sev severity) string {
	switch sev {
	case sevWarn, sevErr:
		return "ERROR"
	default:
		return "INFO"
	}
}

func formatLine(sev severity, depth int, format string, args ...any) string {
	var sb strings.Builder
	sb.WriteByte(sevChar[sev])
	sb.WriteByte(' ')
	sb.WriteString(time.Now().Format("15:04:05.000000"))
	sb.WriteByte(' ')
	if _, fn, ln, ok := runtime.Caller(depth + 1); ok {
		if idx := strings.LastIndexByte(fn, filepath.Separator); idx >= 0 {
			fn = fn[idx+1:]
		}
		sb.WriteString(fn)
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(ln))
		sb.WriteByte(' ')
	}
	if format == "" {
		fmt.Fprintln(&sb, args...)
	} else {
		fmt.Fprintf(&sb, format, args...)
		sb.WriteByte('\n')
	}
	return sb.String()
}

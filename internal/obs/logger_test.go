// File: internal/obs/logger_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package obs

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Logf(level Level, format string, args ...any) {
	r.lines = append(r.lines, level.String())
}

func restoreDefault(t *testing.T) {
	t.Cleanup(func() {
		SetLogger(StdLogger{L: log.Default(), Min: Info})
	})
}

func TestSetLoggerAcceptsAnyImplementation(t *testing.T) {
	restoreDefault(t)
	// Implementations of different concrete types must be storable in
	// any order.
	SetLogger(NopLogger{})
	Infof("dropped")
	rec := &recordingLogger{}
	SetLogger(rec)
	Warnf("recorded")
	SetLogger(StdLogger{L: log.New(&bytes.Buffer{}, "", 0), Min: Debug})
	Debugf("std")

	if len(rec.lines) != 1 || rec.lines[0] != "WARN" {
		t.Errorf("recorded lines = %v", rec.lines)
	}
}

func TestSetLoggerNilFallsBackToNop(t *testing.T) {
	restoreDefault(t)
	SetLogger(nil)
	Errorf("must not panic")
}

func TestStdLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := StdLogger{L: log.New(&buf, "", 0), Min: Warn}
	l.Logf(Info, "hidden")
	l.Logf(Error, "shown %d", 7)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line passed the filter: %q", out)
	}
	if !strings.Contains(out, "[ERROR] shown 7") {
		t.Errorf("error line missing: %q", out)
	}
}

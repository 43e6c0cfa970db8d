package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/revyl/liveview/internal/loader"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(nil)
		SetQuiet(false)
	})
	return &buf
}

func TestQuietMode(t *testing.T) {
	buf := captureOutput(t)
	SetQuiet(true)

	PrintInfo("hidden %d", 1)
	PrintSuccess("hidden")
	PrintError("shown %s", "error")

	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Errorf("quiet output = %q, want info suppressed", got)
	}
	if !strings.Contains(got, "shown error") {
		t.Errorf("quiet output = %q, want the error", got)
	}
}

func TestShouldShowBanner_Quiet(t *testing.T) {
	if ShouldShowBanner(true) {
		t.Error("ShouldShowBanner(true) = true, want false")
	}
}

func TestPrintKeyValues(t *testing.T) {
	buf := captureOutput(t)

	PrintKeyValues("host", "127.0.0.1", "event port", "8323")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("PrintKeyValues() printed %d lines, want 2: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "127.0.0.1") || !strings.Contains(lines[1], "8323") {
		t.Errorf("PrintKeyValues() = %q", buf.String())
	}
}

func TestSourceExcerpt(t *testing.T) {
	lines := []string{"one", "two", "three", "four", "five", "six", "seven"}

	tests := []struct {
		name    string
		line    int
		want    []string
		notWant []string
	}{
		{name: "middle", line: 4, want: []string{"two", "four", "six"}, notWant: []string{"one", "seven"}},
		{name: "first line", line: 1, want: []string{"one", "three"}, notWant: []string{"four"}},
		{name: "last line", line: 7, want: []string{"five", "seven"}, notWant: []string{"four"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sourceExcerpt(lines, tt.line)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("sourceExcerpt(%d) = %q, missing %q", tt.line, got, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("sourceExcerpt(%d) = %q, should not contain %q", tt.line, got, w)
				}
			}
		})
	}

	if got := sourceExcerpt(lines, 0); got != "" {
		t.Errorf("sourceExcerpt(0) = %q, want empty", got)
	}
	if got := sourceExcerpt(lines, 99); got != "" {
		t.Errorf("sourceExcerpt(99) = %q, want empty", got)
	}
}

func TestRenderException(t *testing.T) {
	ev := &loader.UncaughtException{
		ModuleID: "/ui/window",
		Filename: "/ui/window.js",
		Err:      errors.New("ReferenceError: foo is not defined"),
		Line:     2,
		Lines:    []string{"var a = 1;", "foo();", "exports.a = a;"},
	}

	got := RenderException(ev)
	for _, want := range []string{"/ui/window", "/ui/window.js:2", "foo is not defined", "foo();"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderException() missing %q in:\n%s", want, got)
		}
	}
}

func TestPrintException_IgnoresQuiet(t *testing.T) {
	buf := captureOutput(t)
	SetQuiet(true)

	PrintException(&loader.UncaughtException{
		ModuleID: "app",
		Filename: "app.js",
		Err:      errors.New("boom"),
	})

	if !strings.Contains(buf.String(), "boom") {
		t.Fatalf("PrintException() output = %q, want the report", buf.String())
	}
}

package loader

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/dop251/goja"
)

// mapSource serves sources from a map and counts fetches per identifier.
type mapSource struct {
	files map[string]string
	calls map[string]int
	err   error
}

func newMapSource(files map[string]string) *mapSource {
	return &mapSource{files: files, calls: make(map[string]int)}
}

func (s *mapSource) Fetch(_ context.Context, id string) (string, bool, error) {
	s.calls[id]++
	if s.err != nil {
		return "", false, s.err
	}
	text, ok := s.files[id]
	return text, ok, nil
}

func newTestLoader(t *testing.T, src Source, mutate func(*Options)) *Loader {
	t.Helper()
	opts := Options{Source: src}
	if mutate != nil {
		mutate(&opts)
	}
	l, err := New(opts)
	if err != nil {
		t.Fatalf("New(): %v", err)
	}
	return l
}

func mustRequire(t *testing.T, l *Loader, id string) *goja.Object {
	t.Helper()
	v, err := l.Require(id)
	if err != nil {
		t.Fatalf("Require(%q): %v", id, err)
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		t.Fatalf("Require(%q) exports = %T, want object", id, v)
	}
	return obj
}

func TestNew_RequiresSource(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without source")
	}
}

func TestRequire_CacheIdempotence(t *testing.T) {
	src := newMapSource(map[string]string{
		"app": "exports.n = (global.count = (global.count || 0) + 1);",
	})
	l := newTestLoader(t, src, nil)

	first := mustRequire(t, l, "app")
	second := mustRequire(t, l, "app")

	if first != second {
		t.Fatal("second Require returned a different exports object")
	}
	if src.calls["app"] != 1 {
		t.Fatalf("fetches for app = %d, want 1", src.calls["app"])
	}
	if got := first.Get("n").ToInteger(); got != 1 {
		t.Fatalf("module ran %d times, want 1", got)
	}
}

func TestRequire_StripsExtension(t *testing.T) {
	src := newMapSource(map[string]string{"lib": "exports.v = 1;"})
	l := newTestLoader(t, src, nil)

	a := mustRequire(t, l, "lib.js")
	b := mustRequire(t, l, "lib")
	if a != b {
		t.Fatal("lib.js and lib should share a module")
	}
}

func TestRequire_IndexFallback(t *testing.T) {
	src := newMapSource(map[string]string{
		"foo/index": "exports.name = 'foo';",
		"bar":       "exports.name = 'bar';",
	})
	l := newTestLoader(t, src, nil)

	foo := mustRequire(t, l, "foo")
	if got := foo.Get("name").String(); got != "foo" {
		t.Fatalf("foo name = %q", got)
	}
	if again := mustRequire(t, l, "foo/index"); again != foo {
		t.Fatal("foo/index should return the module loaded as foo")
	}

	bar := mustRequire(t, l, "bar")
	before := src.calls["bar/index"]
	if again := mustRequire(t, l, "bar/index"); again != bar {
		t.Fatal("bar/index should return the module loaded as bar")
	}
	if src.calls["bar/index"] != before {
		t.Fatal("cached lookup should not fetch again")
	}
}

func TestRequire_RelativeResolution(t *testing.T) {
	src := newMapSource(map[string]string{
		"/a/b/c": "exports.d = require('../d').v; exports.e = require('./e').v;",
		"/a/d":   "exports.v = 'd';",
		"/a/b/e": "exports.v = 'e';",
	})
	l := newTestLoader(t, src, nil)

	c := mustRequire(t, l, "/a/b/c")
	if got := c.Get("d").String(); got != "d" {
		t.Fatalf("c.d = %q, want d", got)
	}
	if got := c.Get("e").String(); got != "e" {
		t.Fatalf("c.e = %q, want e", got)
	}
	if len(l.stack) != 0 {
		t.Fatalf("compile stack not empty after require: %v", l.stack)
	}
}

func TestRequire_Circular(t *testing.T) {
	src := newMapSource(map[string]string{
		"a": "exports.early = 1; var b = require('b'); exports.fromB = b.sawEarly;",
		"b": "exports.sawEarly = require('a').early;",
	})
	l := newTestLoader(t, src, nil)

	a := mustRequire(t, l, "a")
	if got := a.Get("fromB").ToInteger(); got != 1 {
		t.Fatalf("a.fromB = %d, want 1", got)
	}
}

func TestClearCache_Recompiles(t *testing.T) {
	src := newMapSource(map[string]string{"app": "exports.x = 1;"})
	l := newTestLoader(t, src, nil)

	first := mustRequire(t, l, "app")
	l.ClearCache()
	if l.Cached("app") {
		t.Fatal("app still cached after ClearCache")
	}
	second := mustRequire(t, l, "app")

	if first == second {
		t.Fatal("expected a fresh exports object after ClearCache")
	}
	if src.calls["app"] != 2 {
		t.Fatalf("fetches for app = %d, want 2", src.calls["app"])
	}
}

func TestCompileFailure_Isolated(t *testing.T) {
	src := newMapSource(map[string]string{
		"bad":  "exports.partial = true;\nthrow new Error('boom');",
		"good": "exports.ok = true;",
	})
	l := newTestLoader(t, src, nil)

	var events []*UncaughtException
	l.Process().On(EventUncaughtException, func(args ...any) {
		events = append(events, args[0].(*UncaughtException))
	})

	bad := mustRequire(t, l, "bad")
	if !bad.Get("partial").ToBoolean() {
		t.Fatal("partial exports should survive the failure")
	}
	if m := l.Module("bad"); m == nil || !m.Loaded {
		t.Fatal("failed module should be cached and marked loaded")
	}

	good := mustRequire(t, l, "good")
	if !good.Get("ok").ToBoolean() {
		t.Fatal("good module did not load")
	}

	if len(events) != 1 {
		t.Fatalf("uncaughtException events = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.ModuleID != "bad" {
		t.Fatalf("event module = %q, want bad", ev.ModuleID)
	}
	if want := []string{"exports.partial = true;", "throw new Error('boom');"}; !reflect.DeepEqual(ev.Lines, want) {
		t.Fatalf("event lines = %q, want %q", ev.Lines, want)
	}
	if ev.Line != 2 {
		t.Fatalf("event line = %d, want 2", ev.Line)
	}
	if ev.SourceLine() != "throw new Error('boom');" {
		t.Fatalf("SourceLine() = %q", ev.SourceLine())
	}

	// A failed module is not recompiled.
	mustRequire(t, l, "bad")
	if len(events) != 1 {
		t.Fatal("cached failed module was recompiled")
	}
}

func TestCompileFailure_SyntaxError(t *testing.T) {
	src := newMapSource(map[string]string{"broken": "var = ;"})
	l := newTestLoader(t, src, nil)

	var got *UncaughtException
	l.Process().On(EventUncaughtException, func(args ...any) {
		got = args[0].(*UncaughtException)
	})

	mustRequire(t, l, "broken")
	if got == nil || got.ModuleID != "broken" {
		t.Fatalf("expected syntax error event for broken, got %+v", got)
	}
}

func TestRequire_NativeFallback(t *testing.T) {
	natives := NewNativeRegistry()
	natives.Register("ti.ui", func(vm *goja.Runtime, module *goja.Object) {
		exports := module.Get("exports").(*goja.Object)
		_ = exports.Set("name", "ui")
	})
	src := newMapSource(map[string]string{
		"app": "exports.ui = require('ti.ui').name;",
	})
	l := newTestLoader(t, src, func(o *Options) { o.Natives = natives })

	app := mustRequire(t, l, "app")
	if got := app.Get("ui").String(); got != "ui" {
		t.Fatalf("app.ui = %q, want ui", got)
	}
	if m := l.Module("ti.ui"); m == nil || !m.Native {
		t.Fatal("expected ti.ui to be cached as a native module")
	}
}

func TestRequire_NotFound(t *testing.T) {
	src := newMapSource(nil)
	l := newTestLoader(t, src, nil)

	_, err := l.Require("missing")
	if !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("err = %v, want ErrModuleNotFound", err)
	}
	if l.Cached("missing") {
		t.Fatal("missing module should not be cached")
	}
}

func TestRequire_SourceErrorIsReturned(t *testing.T) {
	src := newMapSource(nil)
	src.err = &FetchError{Host: "10.0.0.2", Port: 8324, ID: "app", Err: context.DeadlineExceeded}
	l := newTestLoader(t, src, nil)

	_, err := l.Require("app")
	if !errors.Is(err, ErrFetchTimeout) {
		t.Fatalf("err = %v, want ErrFetchTimeout", err)
	}
}

func TestRequire_InteropRules(t *testing.T) {
	src := newMapSource(map[string]string{
		"/hyperloop/uikit/uiview": "exports.kind = 'view';",
	})
	l := newTestLoader(t, src, nil)

	v := mustRequire(t, l, "UIKit.UIView")
	if got := v.Get("kind").String(); got != "view" {
		t.Fatalf("kind = %q, want view", got)
	}
	if again := mustRequire(t, l, "UIKit.UIView"); again != v {
		t.Fatal("interop module should be cached under the requested id")
	}
	if ids := l.ModuleIDs(); !reflect.DeepEqual(ids, []string{"/hyperloop/uikit/uiview"}) {
		t.Fatalf("ModuleIDs() = %v", ids)
	}
}

func TestCandidates_Order(t *testing.T) {
	l := newTestLoader(t, newMapSource(nil), nil)

	got := l.candidates("Foo/Bar.Baz")
	want := []string{
		"Foo/Bar.Baz",
		"Foo/Bar.Baz/index",
		"/hyperloop/Foo/Bar.Baz",
		"/hyperloop/foo/bar.baz",
		"/hyperloop/foo/bar.baz/bar.baz",
		"/hyperloop/foo/bar/baz",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("candidates = %q\nwant %q", got, want)
	}
}

func TestCandidates_CustomTable(t *testing.T) {
	l := newTestLoader(t, newMapSource(nil), func(o *Options) {
		o.InteropRules = []InteropRule{}
	})
	if got := l.candidates("x"); !reflect.DeepEqual(got, []string{"x", "x/index"}) {
		t.Fatalf("candidates = %q", got)
	}
}

func TestInclude_InlinesSource(t *testing.T) {
	src := newMapSource(map[string]string{
		"main":  "var x = 1;\nTi.include('inc.js');\nexports.y = y;",
		"/inc":  "var y = x + 1;",
		"other": "Titanium.include('missing.js'); exports.after = true;",
	})
	l := newTestLoader(t, src, nil)

	var events []*UncaughtException
	l.Process().On(EventUncaughtException, func(args ...any) {
		events = append(events, args[0].(*UncaughtException))
	})

	main := mustRequire(t, l, "main")
	if got := main.Get("y").ToInteger(); got != 2 {
		t.Fatalf("y = %d, want 2", got)
	}

	other := mustRequire(t, l, "other")
	if !other.Get("after").ToBoolean() {
		t.Fatal("module should continue after a failed include")
	}
	if len(events) != 1 || events[0].ModuleID != "/missing" {
		t.Fatalf("events = %+v, want one for /missing", events)
	}
}

func TestInclude_MultipleFiles(t *testing.T) {
	src := newMapSource(map[string]string{
		"main": "Ti.include('a.js', 'missing.js', 'b.js');\nexports.sum = a + b;",
		"/a":   "var a = 1;",
		"/b":   "var b = a + 1;",
	})
	l := newTestLoader(t, src, nil)

	var events []*UncaughtException
	l.Process().On(EventUncaughtException, func(args ...any) {
		events = append(events, args[0].(*UncaughtException))
	})

	main := mustRequire(t, l, "main")
	if got := main.Get("sum").ToInteger(); got != 3 {
		t.Fatalf("sum = %d, want 3", got)
	}
	if len(events) != 1 || events[0].ModuleID != "/missing" {
		t.Fatalf("events = %+v, want one for /missing", events)
	}
}

func TestGlobalsAndLocalization(t *testing.T) {
	src := newMapSource(map[string]string{
		"/ui/app": `exports.a = L("hello"); exports.b = L("missing", "fallback"); exports.c = L("bare"); exports.d = appName; exports.f = __filename; exports.g = __dirname;`,
	})
	l := newTestLoader(t, src, func(o *Options) {
		o.Strings = map[string]string{"hello": "Bonjour"}
		o.Globals = map[string]any{"appName": "demo"}
	})

	app := mustRequire(t, l, "/ui/app")

	tests := map[string]string{
		"a": "Bonjour",
		"b": "fallback",
		"c": "bare",
		"d": "demo",
		"f": "/ui/app.js",
		"g": "/ui",
	}
	for key, want := range tests {
		if got := app.Get(key).String(); got != want {
			t.Errorf("exports.%s = %q, want %q", key, got, want)
		}
	}
}

func TestModuleExportsReassignment(t *testing.T) {
	src := newMapSource(map[string]string{
		"fn": "module.exports = function () { return 42; };",
	})
	l := newTestLoader(t, src, nil)

	v, err := l.Require("fn")
	if err != nil {
		t.Fatalf("Require(): %v", err)
	}
	call, ok := goja.AssertFunction(v)
	if !ok {
		t.Fatalf("exports = %T, want function", v)
	}
	res, err := call(goja.Undefined())
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if res.ToInteger() != 42 {
		t.Fatalf("result = %d, want 42", res.ToInteger())
	}
}

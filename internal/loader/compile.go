package loader

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dop251/goja"
)

// wrapperHeader precedes module source; it occupies exactly one line.
const (
	wrapperHeader = "(function (exports, require, module, __filename, __dirname, global, L) {\n"
	wrapperFooter = "\n})"
)

var (
	// reInclude matches Ti.include("a", "b", ...) and Titanium.include(...).
	reInclude = regexp.MustCompile(`\b(?:Ti|Titanium)\.include\(\s*([^()]*?)\s*\)\s*;?`)

	// reFrameLine matches "file:line:col" positions in goja stack traces.
	reFrameLine = regexp.MustCompile(`:(\d+):\d+`)

	// reSyntaxLine matches "Line N:M" in goja syntax errors.
	reSyntaxLine = regexp.MustCompile(`Line (\d+):\d+`)
)

// rewriteIncludes turns include directives into guarded inline evals of the
// included sources, one per argument in order. A failing file is reported and
// the remaining files are still included.
func rewriteIncludes(src string) string {
	return reInclude.ReplaceAllString(src,
		`for (let __lvInc of [$1]) { try { eval(__lvInclude(__lvInc)); } catch (__lvErr) { __lvIncludeFailed(__lvInc, __lvErr); } }`)
}

// compile runs a module's source with CommonJS bindings. It always marks the
// module loaded; script errors become uncaughtException events.
func (l *Loader) compile(m *Module) {
	l.stack = append(l.stack, m.ID)
	defer func() {
		l.stack = l.stack[:len(l.stack)-1]
		m.Loaded = true
	}()

	wrapped := wrapperHeader + rewriteIncludes(m.Source) + wrapperFooter
	prog, err := goja.Compile(m.Filename, wrapped, false)
	if err != nil {
		l.reportException(m.ID, m.Filename, m.Source, err)
		return
	}

	fnValue, err := l.vm.RunProgram(prog)
	if err != nil {
		l.reportException(m.ID, m.Filename, m.Source, err)
		return
	}
	fn, ok := goja.AssertFunction(fnValue)
	if !ok {
		l.reportException(m.ID, m.Filename, m.Source, fmt.Errorf("module wrapper is not callable"))
		return
	}

	exports := m.object.Get("exports")
	_, err = fn(exports,
		exports,
		l.vm.ToValue(l.requireFunc),
		m.object,
		l.vm.ToValue(m.Filename),
		l.vm.ToValue(dirname(m.ID)),
		l.vm.GlobalObject(),
		l.vm.ToValue(l.localize),
	)

	// Exports reflect whatever state module.exports reached, even on failure.
	m.Exports = m.object.Get("exports")
	if err != nil {
		l.reportException(m.ID, m.Filename, m.Source, err)
	}
}

// requireFunc is the require binding visible to scripts.
func (l *Loader) requireFunc(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).String()
	exports, err := l.Require(id)
	if err != nil {
		panic(l.vm.NewGoError(err))
	}
	return exports
}

// includeFunc returns the source of an included file for inline eval.
func (l *Loader) includeFunc(call goja.FunctionCall) goja.Value {
	id := l.includeID(call.Argument(0).String())

	l.fetches++
	text, found, err := l.source.Fetch(l.ctx, id)
	if err != nil {
		panic(l.vm.NewGoError(err))
	}
	if !found {
		panic(l.vm.NewGoError(fmt.Errorf("%w: include %s", ErrModuleNotFound, id)))
	}
	return l.vm.ToValue(rewriteIncludes(text))
}

// includeFailedFunc reports an error raised by an included file.
func (l *Loader) includeFailedFunc(call goja.FunctionCall) goja.Value {
	id := l.includeID(call.Argument(0).String())
	err := errors.New(call.Argument(1).String())
	if obj, ok := call.Argument(1).(*goja.Object); ok {
		if goErr, ok := obj.Export().(error); ok {
			err = goErr
		}
	}
	l.reportException(id, id+".js", "", err)
	return goja.Undefined()
}

// includeID resolves an include path. Includes are rooted at the resources
// directory unless they start with a relative marker.
func (l *Loader) includeID(raw string) string {
	id := normalizeID(raw)
	if IsRelative(id) {
		return ResolvePath(l.parentID(), id)
	}
	if !strings.HasPrefix(id, "/") {
		return "/" + id
	}
	return id
}

// localize implements L(key, hint).
func (l *Loader) localize(key string, hint goja.Value) string {
	if v, ok := l.strings[key]; ok {
		return v
	}
	if hint != nil && !goja.IsUndefined(hint) && !goja.IsNull(hint) {
		return hint.String()
	}
	return key
}

// reportException logs a script error and emits it on the Process.
func (l *Loader) reportException(id, filename, source string, err error) {
	ev := &UncaughtException{
		ModuleID: id,
		Filename: filename,
		Err:      err,
		Lines:    strings.Split(source, "\n"),
	}

	var ex *goja.Exception
	var syntax *goja.CompilerSyntaxError
	switch {
	case errors.As(err, &ex):
		ev.Backtrace = ex.String()
		ev.Line = scriptLine(reFrameLine, ex.String())
	case errors.As(err, &syntax):
		ev.Line = scriptLine(reSyntaxLine, syntax.Error())
	}

	l.logger.Error("uncaught exception in module",
		"module", id,
		"file", filename,
		"line", ev.Line,
		"error", err,
	)
	if ev.Backtrace != "" {
		l.logger.Debug(ev.Backtrace)
	}

	l.process.Emit(EventUncaughtException, ev)
}

// scriptLine returns the first line number matched by re, adjusted for the
// wrapper header, or 0.
func scriptLine(re *regexp.Regexp, text string) int {
	match := re.FindStringSubmatch(text)
	if match == nil {
		return 0
	}
	n, err := strconv.Atoi(match[1])
	if err != nil || n <= 1 {
		return 0
	}
	return n - 1
}

// installGlobals binds globals, console and the include helpers.
func (l *Loader) installGlobals(globals map[string]any) error {
	for name, value := range globals {
		if err := l.vm.Set(name, value); err != nil {
			return fmt.Errorf("failed to set global %q: %w", name, err)
		}
	}

	console := l.vm.NewObject()
	logFn := func(level string) func(call goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = arg.String()
			}
			msg := strings.Join(parts, " ")
			switch level {
			case "error":
				l.logger.Error(msg)
			case "warn":
				l.logger.Warn(msg)
			case "debug":
				l.logger.Debug(msg)
			default:
				l.logger.Info(msg)
			}
			return goja.Undefined()
		}
	}
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		if err := console.Set(level, logFn(level)); err != nil {
			return err
		}
	}

	bindings := map[string]any{
		"console":           console,
		"__lvInclude":       l.includeFunc,
		"__lvIncludeFailed": l.includeFailedFunc,
	}
	for name, value := range bindings {
		if err := l.vm.Set(name, value); err != nil {
			return fmt.Errorf("failed to set global %q: %w", name, err)
		}
	}
	return nil
}

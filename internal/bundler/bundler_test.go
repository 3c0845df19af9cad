package bundler

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/dop251/goja"

	"github.com/paeckchen/paeckchen/internal/config"
	"github.com/paeckchen/paeckchen/internal/fs"
	"github.com/paeckchen/paeckchen/internal/graph"
	"github.com/paeckchen/paeckchen/internal/js_ast"
	"github.com/paeckchen/paeckchen/internal/logger"
	"github.com/paeckchen/paeckchen/internal/runtime"
	"github.com/paeckchen/paeckchen/internal/test"
)

type bundled struct {
	files       map[string]string
	entryPath   string
	options     config.Options
	expectedLog string
}

type bundleHarness struct {
	t       *testing.T
	fs      fs.FS
	bundler *Bundler
}

func (args bundled) start(t *testing.T) *bundleHarness {
	t.Helper()
	options := args.options
	options.EntryPoint = args.entryPath
	options.ApplyDefaults()
	files := fs.MockFS(args.files, "/project")
	return &bundleHarness{
		t:       t,
		fs:      files,
		bundler: NewBundler(files, &options, nil, nil),
	}
}

// Builds and checks the log. Fails the test on any build error.
func (h *bundleHarness) build(expectedLog string) Result {
	h.t.Helper()
	log := logger.NewDeferLog()
	result, err := h.bundler.Build(context.Background(), log, nil)
	test.AssertEqualWithDiff(h.t, test.LogText(log.Done()), expectedLog)
	if err != nil {
		h.t.Fatal(err)
	}
	return result
}

// Builds expecting failure and returns the error
func (h *bundleHarness) buildError(expectedLog string) error {
	h.t.Helper()
	log := logger.NewDeferLog()
	_, err := h.bundler.Build(context.Background(), log, nil)
	test.AssertEqualWithDiff(h.t, test.LogText(log.Done()), expectedLog)
	if err == nil {
		h.t.Fatal("Expected the build to fail")
	}
	return err
}

func (h *bundleHarness) moduleNames() string {
	var names []string
	for _, module := range h.bundler.State().Registry.Modules() {
		names = append(names, string(module.Name))
	}
	return strings.Join(names, "\n")
}

func expectBundled(t *testing.T, args bundled) (*bundleHarness, Result) {
	t.Helper()
	h := args.start(t)
	return h, h.build(args.expectedLog)
}

// Runs the bundle and then evaluates "expr" in the same VM. The "setup"
// script runs first and can provide host globals.
func runBundle(t *testing.T, js []byte, setup string, expr string) string {
	t.Helper()
	vm := goja.New()
	if setup != "" {
		if _, err := vm.RunString(setup); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := vm.RunString(string(js)); err != nil {
		t.Fatalf("%v\n%s", err, js)
	}
	value, err := vm.RunString(expr)
	if err != nil {
		t.Fatal(err)
	}
	return value.String()
}

func TestRequireLiteral(t *testing.T) {
	_, result := expectBundled(t, bundled{
		files: map[string]string{
			"/project/src/index.js": "var m = require('./lib');\nglobalThis.m = m;\n",
			"/project/src/lib.js":   "module.exports = 42;\n",
		},
		entryPath: "src/index.js",
	})

	test.AssertEqualWithDiff(t, string(result.JS), "(function () {\n"+runtime.Prelude+`var modules = [
function _0(module, exports) {
var m = __paeckchen_require__(1).exports;
globalThis.m = m;

},
function _1(module, exports) {
module.exports = 42;

}
];
__paeckchen_require__(0);
})();
`)
	test.AssertEqual(t, runBundle(t, result.JS, "", "String(globalThis.m === 42)"), "true")
	test.AssertEqual(t, result.Modules, 2)
	test.AssertEqual(t, result.Processed, 2)
}

func TestRequireKeepsComments(t *testing.T) {
	_, result := expectBundled(t, bundled{
		files: map[string]string{
			"/project/index.js": "#!/usr/bin/env node\n// entry\nvar a = /* dep */ require(\"./a\").value;\nglobalThis.out = a;",
			"/project/a.js":     "exports.value = 'a'; // done",
		},
		entryPath: "index.js",
	})
	js := string(result.JS)
	test.AssertEqual(t, strings.Contains(js, "#!"), false)
	test.AssertEqual(t, strings.Contains(js, "// entry\nvar a = /* dep */ __paeckchen_require__(1).exports.value;"), true)
	test.AssertEqual(t, strings.Contains(js, "exports.value = 'a'; // done\n}"), true)
	test.AssertEqual(t, runBundle(t, result.JS, "", "globalThis.out"), "a")
}

func TestCycle(t *testing.T) {
	h, result := expectBundled(t, bundled{
		files: map[string]string{
			"/project/src/index.js": "exports.early = 1;\nvar b = require('./b');\nexports.late = 2;\nglobalThis.out = b.seen;\n",
			"/project/src/b.js":     "var a = require('./index');\nexports.seen = a.early + ':' + a.late;\n",
		},
		entryPath: "src/index.js",
	})
	test.AssertEqual(t, result.Modules, 2)
	test.AssertEqual(t, runBundle(t, result.JS, "", "globalThis.out"), "1:undefined")

	module, _ := h.bundler.State().Registry.Lookup("/project/src/b.js")
	test.AssertEqual(t, len(module.Dependencies), 1)
	test.AssertEqual(t, module.Dependencies[0], graph.ModulePath("/project/src/index.js"))
}

func TestSharedDependencyIsBundledOnce(t *testing.T) {
	_, result := expectBundled(t, bundled{
		files: map[string]string{
			"/project/index.js":  "require('./a'); require('./b'); require('./shared.js'); globalThis.out = require('./shared').count;",
			"/project/a.js":      "require('./shared');",
			"/project/b.js":      "require('./shared.js');",
			"/project/shared.js": "globalThis.runs = (globalThis.runs || 0) + 1; exports.count = globalThis.runs;",
		},
		entryPath: "index.js",
	})
	test.AssertEqual(t, result.Modules, 4)
	test.AssertEqual(t, strings.Count(string(result.JS), "function _3("), 1)
	test.AssertEqual(t, runBundle(t, result.JS, "", "globalThis.out + ':' + globalThis.runs"), "1:1")
}

func TestBatchOrderIsStable(t *testing.T) {
	files := map[string]string{
		"/project/index.js": "require('./a'); require('./b'); require('./c'); require('./d'); require('./e'); require('./f');",
	}
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		files["/project/"+name+".js"] = "require('./" + name + "1');"
		files["/project/"+name+"1.js"] = ""
	}

	for i := 0; i < 10; i++ {
		h, _ := expectBundled(t, bundled{files: files, entryPath: "index.js"})
		test.AssertEqualWithDiff(t, h.moduleNames(), strings.Join([]string{
			"/project/index.js",
			"/project/a.js", "/project/b.js", "/project/c.js", "/project/d.js", "/project/e.js", "/project/f.js",
			"/project/a1.js", "/project/b1.js", "/project/c1.js", "/project/d1.js", "/project/e1.js", "/project/f1.js",
		}, "\n"))
	}
}

func TestMissingModule(t *testing.T) {
	h, result := expectBundled(t, bundled{
		files: map[string]string{
			"/project/src/index.js": "try { require('./nope') } catch (e) { globalThis.out = e.message }\n" +
				"try { require('left-pad') } catch (e) { globalThis.out2 = e.message }\n",
		},
		entryPath: "src/index.js",
		expectedLog: `src/index.js: warning: Could not resolve "./nope"
src/index.js: warning: Could not resolve "left-pad"
`,
	})
	test.AssertEqual(t, runBundle(t, result.JS, "", "globalThis.out"), "Module 'src/nope' not found")
	test.AssertEqual(t, runBundle(t, result.JS, "", "globalThis.out2"), "Module 'left-pad' not found")

	module, _ := h.bundler.State().Registry.Lookup("/project/src/index.js")
	test.AssertEqual(t, module.HasUnresolved, true)
}

func TestMissingModuleOnlyThrowsWhenRequired(t *testing.T) {
	_, result := expectBundled(t, bundled{
		files: map[string]string{
			"/project/index.js": "globalThis.out = 'ok'; if (false) require('./nope');",
		},
		entryPath:   "index.js",
		expectedLog: "index.js: warning: Could not resolve \"./nope\"\n",
	})
	test.AssertEqual(t, runBundle(t, result.JS, "", "globalThis.out"), "ok")
}

func TestDynamicRequire(t *testing.T) {
	_, result := expectBundled(t, bundled{
		files: map[string]string{
			"/project/index.js": "var name = './a'; var a = require(name); var b = require();",
		},
		entryPath: "index.js",
		expectedLog: `index.js: warning: This call to "require" will not be bundled because the argument is not a string literal
index.js: warning: This call to "require" will not be bundled because the argument is not a string literal
`,
	})
	test.AssertEqual(t, strings.Contains(string(result.JS), "var a = require(name); var b = require();"), true)
	test.AssertEqual(t, result.Modules, 1)
}

func TestRequireWithExtraArguments(t *testing.T) {
	_, result := expectBundled(t, bundled{
		files: map[string]string{
			"/project/index.js": "var a = require('./a', 1);",
			"/project/a.js":     "module.exports = 1;",
		},
		entryPath:   "index.js",
		expectedLog: "index.js: warning: This call to \"require\" will not be bundled because it has more than one argument\n",
	})
	test.AssertEqual(t, strings.Contains(string(result.JS), "var a = require('./a', 1);"), true)
	test.AssertEqual(t, result.Modules, 1)
}

func TestRequireInsideRequireArguments(t *testing.T) {
	_, result := expectBundled(t, bundled{
		files: map[string]string{
			"/project/index.js": "globalThis.out = require(require('./name'));",
			"/project/name.js":  "module.exports = './a';",
		},
		entryPath:   "index.js",
		expectedLog: "index.js: warning: This call to \"require\" will not be bundled because the argument is not a string literal\n",
	})
	test.AssertEqual(t, strings.Contains(string(result.JS), "require(__paeckchen_require__(1).exports)"), true)
}

func TestExternals(t *testing.T) {
	_, result := expectBundled(t, bundled{
		files: map[string]string{
			"/project/index.js": "var $ = require('jquery'); var fs = require('fs'); var j = require('$');\n" +
				"globalThis.out = $.version + ':' + JSON.stringify(fs) + ':' + (j === $);",
		},
		entryPath: "index.js",
		options: config.Options{
			Externals: map[string]config.External{
				"jquery": {GlobalName: "jQuery"},
				"fs":     {},
			},
			Alias: map[string]string{"$": "jquery"},
		},
	})
	test.AssertEqual(t, result.Modules, 3)
	test.AssertEqual(t, runBundle(t, result.JS, "globalThis.jQuery = { version: '3' };", "globalThis.out"), "3:{}:true")
}

func TestJSONModule(t *testing.T) {
	_, result := expectBundled(t, bundled{
		files: map[string]string{
			"/project/index.js":     "globalThis.out = require('./data').name + require('./data.json').list.length;",
			"/project/data.json":    "\uFEFF{\"name\": \"paeckchen\", \"list\": [1, 2]}\n",
			"/project/unused.json":  "{",
			"/project/package.json": "{}",
		},
		entryPath: "index.js",
	})
	test.AssertEqual(t, result.Modules, 2)
	test.AssertEqual(t, runBundle(t, result.JS, "", "globalThis.out"), "paeckchen2")
}

func TestInvalidJSON(t *testing.T) {
	h := bundled{
		files: map[string]string{
			"/project/index.js":  "require('./data.json');",
			"/project/data.json": "{\"a\": }",
		},
		entryPath: "index.js",
	}.start(t)
	err := h.buildError("data.json: error: Invalid JSON: invalid character '}' looking for beginning of value\n")
	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("Expected a syntax error, got %v", err)
	}
	test.AssertEqual(t, syntaxErr.Path, "data.json")
}

func TestSyntaxError(t *testing.T) {
	h := bundled{
		files: map[string]string{
			"/project/index.js": "require('./a');",
			"/project/a.js":     "\nfunction f() {\n",
		},
		entryPath: "index.js",
	}.start(t)
	err := h.buildError("a.js: error: Expected \"}\" but found end of file\n")
	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("Expected a syntax error, got %v", err)
	}
	test.AssertEqual(t, syntaxErr.Path, "a.js")
	test.AssertEqual(t, syntaxErr.Line, 3)
	test.AssertEqual(t, syntaxErr.Text, "Expected \"}\" but found end of file")

	// The module that failed is retried once it's fixed
	test.AssertEqual(t, h.bundler.State().Worklist.Contains("/project/b.js"), true)
	h.fs.WriteFile("/project/a.js", []byte("function f() {}"))
	h.bundler.Invalidate("/project/a.js", false)
	result := h.build("")
	test.AssertEqual(t, result.Modules, 2)
}

func TestSourceLevel(t *testing.T) {
	h := bundled{
		files: map[string]string{
			"/project/index.js": "var f = () => 1;",
		},
		entryPath: "index.js",
		options:   config.Options{Source: config.ES5},
	}.start(t)
	err := h.buildError("index.js: error: \"=>\" is not available in the configured source level (es5)\n")
	test.AssertEqual(t, err.Error(), "index.js:1:11: \"=>\" is not available in the configured source level (es5)")
}

func TestMissingEntryPoint(t *testing.T) {
	h := bundled{files: map[string]string{}}.start(t)
	err := h.buildError("error: Missing entry point\n")
	var graphErr *GraphError
	test.AssertEqual(t, errors.As(err, &graphErr), true)

	h = bundled{files: map[string]string{}, entryPath: "src/index.js"}.start(t)
	err = h.buildError("error: Could not resolve entry point \"src/index.js\"\n")
	test.AssertEqual(t, errors.As(err, &graphErr), true)
	test.AssertEqual(t, h.bundler.State().Registry.Len(), 0)
}

func TestModuleLimit(t *testing.T) {
	h := bundled{
		files: map[string]string{
			"/project/index.js": "require('./a'); require('./b');",
			"/project/a.js":     "",
			"/project/b.js":     "",
		},
		entryPath: "index.js",
		options:   config.Options{MaxModules: 2},
	}.start(t)
	err := h.buildError("error: The module graph has more than 2 modules\n")
	var graphErr *GraphError
	test.AssertEqual(t, errors.As(err, &graphErr), true)
}

// Edits the other module of a pair and queues it again every time one of them
// is rewritten, so the graph never settles
type pingPongPass struct {
	fs    fs.FS
	pairs map[graph.ModulePath]graph.ModulePath
	edits int
}

func (*pingPongPass) Name() string {
	return "ping-pong"
}

func (p *pingPongPass) Apply(tree *js_ast.AST, path graph.ModulePath, ctx *PassContext) error {
	other, ok := p.pairs[path]
	if !ok {
		return nil
	}
	p.edits++
	if err := p.fs.WriteFile(string(other), []byte(strings.Repeat(" ", p.edits))); err != nil {
		return err
	}
	ctx.State.Registry.Invalidate(other, false)
	ctx.State.Worklist.Enqueue(other)
	return nil
}

func TestRevisitLimit(t *testing.T) {
	h := bundled{
		files: map[string]string{
			"/project/index.js": "require('./a'); require('./b');",
			"/project/a.js":     "",
			"/project/b.js":     "",
		},
		entryPath: "index.js",
		options:   config.Options{RevisitLimit: 3},
	}.start(t)
	h.bundler.passes = append(DefaultPasses(), &pingPongPass{
		fs: h.fs,
		pairs: map[graph.ModulePath]graph.ModulePath{
			"/project/a.js": "/project/b.js",
			"/project/b.js": "/project/a.js",
		},
	})

	err := h.buildError("error: The module \"b.js\" was queued more than 3 times in one build\n")
	var graphErr *GraphError
	test.AssertEqual(t, errors.As(err, &graphErr), true)
	test.AssertEqual(t, err.Error(), "The module \"b.js\" was queued more than 3 times in one build")

	// The module that hit the limit is still queued for the next build
	test.AssertEqual(t, h.bundler.State().Worklist.Contains("/project/b.js"), true)
}

func TestCanceledBuild(t *testing.T) {
	h := bundled{
		files:     map[string]string{"/project/index.js": "globalThis.out = 1;"},
		entryPath: "index.js",
	}.start(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.bundler.Build(ctx, logger.NewDeferLog(), nil)
	test.AssertEqual(t, errors.Is(err, context.Canceled), true)
	test.AssertEqual(t, h.bundler.State().Worklist.Len(), 1)

	result := h.build("")
	test.AssertEqual(t, runBundle(t, result.JS, "", "String(globalThis.out)"), "1")
}

func TestRebuildIsIdempotent(t *testing.T) {
	h, first := expectBundled(t, bundled{
		files: map[string]string{
			"/project/index.js": "globalThis.out = require('./lib') + process.platform;",
			"/project/lib.js":   "module.exports = 'x';",
		},
		entryPath: "index.js",
	})
	second := h.build("")
	test.AssertEqualWithDiff(t, string(second.JS), string(first.JS))
	test.AssertEqual(t, second.Processed, 0)
	test.AssertEqual(t, second.BuildID != first.BuildID, true)
}

func TestRebuildAfterChange(t *testing.T) {
	h, first := expectBundled(t, bundled{
		files: map[string]string{
			"/project/index.js": "globalThis.out = require('./lib');",
			"/project/lib.js":   "module.exports = 42;",
		},
		entryPath: "index.js",
	})
	test.AssertEqual(t, runBundle(t, first.JS, "", "String(globalThis.out)"), "42")

	h.fs.WriteFile("/project/lib.js", []byte("module.exports = 43;"))
	test.AssertEqual(t, h.bundler.Invalidate("/project/lib.js", false), true)
	second := h.build("")
	test.AssertEqual(t, second.Processed, 1)
	test.AssertEqual(t, runBundle(t, second.JS, "", "String(globalThis.out)"), "43")

	// Touching a file without changing it reuses the previous body
	test.AssertEqual(t, h.bundler.Invalidate("/project/index.js", false), true)
	third := h.build("")
	test.AssertEqual(t, third.Processed, 0)
	test.AssertEqual(t, third.Reused, 1)
	test.AssertEqualWithDiff(t, string(third.JS), string(second.JS))
}

func TestIndicesSurviveRebuilds(t *testing.T) {
	h, _ := expectBundled(t, bundled{
		files: map[string]string{
			"/project/index.js": "require('./a'); require('./b');",
			"/project/a.js":     "",
			"/project/b.js":     "",
		},
		entryPath: "index.js",
	})
	before := h.moduleNames()

	// Dropping a dependency and adding a new one keeps every existing index
	h.fs.WriteFile("/project/index.js", []byte("require('./c'); require('./b');"))
	h.fs.WriteFile("/project/c.js", []byte(""))
	h.bundler.Invalidate("/project/index.js", false)
	result := h.build("")

	test.AssertEqualWithDiff(t, h.moduleNames(), before+"\n/project/c.js")
	test.AssertEqual(t, strings.Contains(string(result.JS), "__paeckchen_require__(3).exports; __paeckchen_require__(2).exports;"), true)
}

func TestRemovedModule(t *testing.T) {
	h, _ := expectBundled(t, bundled{
		files: map[string]string{
			"/project/src/index.js": "try { require('./lib') } catch (e) { globalThis.out = e.message }",
			"/project/src/lib.js":   "",
		},
		entryPath: "src/index.js",
	})

	h.fs.RemoveFile("/project/src/lib.js")
	test.AssertEqual(t, h.bundler.Invalidate("/project/src/lib.js", true), true)
	result := h.build("")
	test.AssertEqual(t, result.Processed, 1)
	test.AssertEqual(t, runBundle(t, result.JS, "", "globalThis.out"), "Module 'src/lib.js' was removed")

	// Coming back clears the removed state
	h.fs.WriteFile("/project/src/lib.js", []byte("globalThis.out = 'back';"))
	h.bundler.Invalidate("/project/src/lib.js", false)
	result = h.build("")
	test.AssertEqual(t, runBundle(t, result.JS, "", "globalThis.out"), "back")
}

func TestNewFileSatisfiesMissingModule(t *testing.T) {
	h, _ := expectBundled(t, bundled{
		files: map[string]string{
			"/project/index.js": "globalThis.out = require('./later');",
		},
		entryPath:   "index.js",
		expectedLog: "index.js: warning: Could not resolve \"./later\"\n",
	})

	h.fs.WriteFile("/project/later.js", []byte("module.exports = 'found';"))
	test.AssertEqual(t, h.bundler.Invalidate("/project/later.js", false), false)
	result := h.build("")
	test.AssertEqual(t, runBundle(t, result.JS, "", "globalThis.out"), "found")

	// The stub for the path that was tried first keeps its index
	test.AssertEqualWithDiff(t, h.moduleNames(), "/project/index.js\n/project/later\n/project/later.js")
	module, _ := h.bundler.State().Registry.Lookup("/project/index.js")
	test.AssertEqual(t, module.HasUnresolved, false)
}

func TestGlobalsInjectedOnce(t *testing.T) {
	h, result := expectBundled(t, bundled{
		files: map[string]string{
			"/project/index.js": "require('./a'); globalThis.out = typeof process.nextTick;",
			"/project/a.js":     "exports.b = Buffer.from('hi').toString('hex'); exports.env = process.env;",
		},
		entryPath: "index.js",
	})
	js := string(result.JS)
	test.AssertEqual(t, strings.Count(js, "var process = __paeckchen_require__(2).exports;\n"), 1)
	test.AssertEqual(t, strings.Count(js, "var Buffer = __paeckchen_require__(3).exports;\n"), 1)
	test.AssertEqual(t, strings.Contains(js, "var global ="), false)
	test.AssertEqual(t, strings.HasSuffix(js, "var Buffer = __paeckchen_require__(3).exports;\n__paeckchen_require__(0);\n})();\n"), true)
	test.AssertEqual(t, runBundle(t, result.JS, "", "globalThis.out"), "function")

	// Another module using the same globals adds nothing
	h.fs.WriteFile("/project/a.js", []byte("exports.p = process; exports.b = Buffer; exports.g = global;"))
	h.bundler.Invalidate("/project/a.js", false)
	result = h.build("")
	js = string(result.JS)
	test.AssertEqual(t, strings.Count(js, "var process ="), 1)
	test.AssertEqual(t, strings.Count(js, "var Buffer ="), 1)
	test.AssertEqual(t, strings.Count(js, "var global = __paeckchen_require__(4).exports;\n"), 1)
	test.AssertEqual(t, len(h.bundler.State().Bindings), 3)
}

func TestGlobalsNotDetected(t *testing.T) {
	_, result := expectBundled(t, bundled{
		files: map[string]string{
			"/project/index.js": "var global = 1; exports.process = {process: 2}.process; function Buffer() {}",
		},
		entryPath: "index.js",
	})
	test.AssertEqual(t, result.Modules, 1)
	test.AssertEqual(t, strings.Contains(string(result.JS), "var process ="), false)
}

type recordingWatcher struct {
	mutex sync.Mutex
	files []string
}

func (w *recordingWatcher) WatchFile(path string) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.files = append(w.files, path)
	return nil
}

func TestWatchedFiles(t *testing.T) {
	options := config.Options{EntryPoint: "index.js"}
	options.ApplyDefaults()
	files := fs.MockFS(map[string]string{
		"/project/index.js": "require('./a'); require('./gone'); require('fs');",
		"/project/a.js":     "",
	}, "/project")
	watcher := &recordingWatcher{}
	b := NewBundler(files, &options, nil, watcher)
	log := logger.NewDeferLog()
	if _, err := b.Build(context.Background(), log, nil); err != nil {
		t.Fatal(err)
	}

	sort.Strings(watcher.files)
	test.AssertEqualWithDiff(t, strings.Join(watcher.files, "\n"), strings.Join([]string{
		"/project/a.js",
		"/project/gone",
		"/project/gone.js",
		"/project/gone.json",
		"/project/gone/index.js",
		"/project/gone/index.json",
		"/project/index.js",
	}, "\n"))
}

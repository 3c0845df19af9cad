package resolver

import (
	"errors"
	"testing"

	"github.com/paeckchen/paeckchen/internal/config"
	"github.com/paeckchen/paeckchen/internal/fs"
	"github.com/paeckchen/paeckchen/internal/graph"
	"github.com/paeckchen/paeckchen/internal/test"
)

func newTestResolver(files map[string]string, options config.Options) *Resolver {
	options.ApplyDefaults()
	return NewResolver(fs.MockFS(files, "/project"), &options, nil)
}

func expectResolved(t *testing.T, r *Resolver, specifier string, from graph.ModulePath, expected graph.ModulePath) {
	t.Helper()
	t.Run(specifier, func(t *testing.T) {
		t.Helper()
		path, err := r.Resolve(specifier, from)
		if err != nil {
			t.Fatal(err)
		}
		test.AssertEqual(t, path, expected)
	})
}

func TestResolveOrder(t *testing.T) {
	r := newTestResolver(map[string]string{
		"/project/src/index.js":        "",
		"/project/src/exact":           "",
		"/project/src/both.js":         "",
		"/project/src/both.json":       "",
		"/project/src/data.json":       "",
		"/project/src/dir/index.json":  "",
		"/project/src/dir2/index.js":   "",
		"/project/src/dir2/index.json": "",
		"/project/lib/util.js":         "",
	}, config.Options{})

	from := graph.ModulePath("/project/src/index.js")
	expectResolved(t, r, "./exact", from, "/project/src/exact")
	expectResolved(t, r, "./both", from, "/project/src/both.js")
	expectResolved(t, r, "./both.json", from, "/project/src/both.json")
	expectResolved(t, r, "./data", from, "/project/src/data.json")
	expectResolved(t, r, "./dir", from, "/project/src/dir/index.json")
	expectResolved(t, r, "./dir2", from, "/project/src/dir2/index.js")
	expectResolved(t, r, "../lib/util", from, "/project/lib/util.js")
	expectResolved(t, r, "/project/lib/util", from, "/project/lib/util.js")
	expectResolved(t, r, ".", from, "/project/src/index.js")
}

func TestResolveExtensionOrder(t *testing.T) {
	r := newTestResolver(map[string]string{
		"/project/a.js":   "",
		"/project/a.json": "",
	}, config.Options{ExtensionOrder: []string{".json", ".js"}})
	expectResolved(t, r, "./a", "/project/main.js", "/project/a.json")
}

func TestResolveNodeModules(t *testing.T) {
	r := newTestResolver(map[string]string{
		"/project/src/deep/index.js":                  "",
		"/project/node_modules/pkg/package.json":      `{"main": "./lib/main"}`,
		"/project/node_modules/pkg/lib/main.js":       "",
		"/project/node_modules/pkg/fp.js":             "",
		"/project/node_modules/plain/index.js":        "",
		"/project/node_modules/broken/package.json":   `{`,
		"/project/node_modules/broken/index.js":       "",
		"/project/src/node_modules/pkg/index.js":      "",
		"/project/node_modules/maindir/package.json":  `{"main": "dist"}`,
		"/project/node_modules/maindir/dist/index.js": "",
	}, config.Options{})

	from := graph.ModulePath("/project/src/deep/index.js")
	expectResolved(t, r, "pkg", from, "/project/src/node_modules/pkg/index.js")
	expectResolved(t, r, "pkg/fp", "/project/main.js", "/project/node_modules/pkg/fp.js")
	expectResolved(t, r, "pkg", "/project/main.js", "/project/node_modules/pkg/lib/main.js")
	expectResolved(t, r, "plain", from, "/project/node_modules/plain/index.js")
	expectResolved(t, r, "broken", from, "/project/node_modules/broken/index.js")
	expectResolved(t, r, "maindir", from, "/project/node_modules/maindir/dist/index.js")
}

func TestResolveFailure(t *testing.T) {
	r := newTestResolver(map[string]string{
		"/project/src/index.js": "",
	}, config.Options{})

	path, err := r.Resolve("./missing", "/project/src/index.js")
	test.AssertEqual(t, path, graph.ModulePath("/project/src/missing"))
	var resolutionErr *ResolutionError
	if !errors.As(err, &resolutionErr) {
		t.Fatalf("Expected a resolution error, got %v", err)
	}
	test.AssertEqual(t, resolutionErr.Specifier, "./missing")
	test.AssertEqual(t, err.Error(), "Could not resolve \"./missing\" from \"/project/src/index.js\"")

	path, err = r.Resolve("left-pad", "/project/src/index.js")
	test.AssertEqual(t, path, graph.ModulePath("left-pad"))
	test.AssertEqual(t, err != nil, true)
}

func TestResolveExternalsAndAliases(t *testing.T) {
	r := newTestResolver(map[string]string{
		"/project/src/index.js":    "",
		"/project/shims/events.js": "",
	}, config.Options{
		Externals: map[string]config.External{
			"fs":     {},
			"jquery": {GlobalName: "jQuery"},
		},
		Alias: map[string]string{
			"events": "./shims/events",
			"$":      "jquery",
		},
	})

	from := graph.ModulePath("/project/src/index.js")
	expectResolved(t, r, "fs", from, "fs")
	expectResolved(t, r, "jquery", from, "jquery")
	expectResolved(t, r, "$", from, "jquery")
	expectResolved(t, r, "events", from, "/project/shims/events.js")
}

func TestResolveEntry(t *testing.T) {
	r := newTestResolver(map[string]string{
		"/project/src/index.js": "",
	}, config.Options{})

	path, err := r.ResolveEntry("src/index")
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, path, graph.ModulePath("/project/src/index.js"))

	_, err = r.ResolveEntry("nope.js")
	test.AssertEqual(t, err.Error(), "Could not resolve \"nope.js\"")
}

func TestPrettyPath(t *testing.T) {
	r := newTestResolver(nil, config.Options{})
	test.AssertEqual(t, r.PrettyPath("/project/src/a.js"), "src/a.js")
	test.AssertEqual(t, r.PrettyPath("/other/a.js"), "/other/a.js")
	test.AssertEqual(t, r.PrettyPath("paeckchen:process"), "paeckchen:process")
	test.AssertEqual(t, r.PrettyPath("jquery"), "jquery")
}

func TestIsPackagePath(t *testing.T) {
	test.AssertEqual(t, IsPackagePath("lodash"), true)
	test.AssertEqual(t, IsPackagePath("@scope/pkg"), true)
	test.AssertEqual(t, IsPackagePath("./a"), false)
	test.AssertEqual(t, IsPackagePath("../a"), false)
	test.AssertEqual(t, IsPackagePath("."), false)
	test.AssertEqual(t, IsPackagePath("/a"), false)
}

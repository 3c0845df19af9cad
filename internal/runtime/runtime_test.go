package runtime

import (
	"testing"

	"github.com/dop251/goja"

	"github.com/paeckchen/paeckchen/internal/test"
)

// Runs a polyfill the way the bundle would and returns its exports
func runPolyfill(t *testing.T, vm *goja.Runtime, info GlobalInfo) goja.Value {
	t.Helper()
	script := "var module = { exports: {} };\n(function (module, exports) {\n" + info.Source + "\n})(module, module.exports);\nmodule.exports"
	value, err := vm.RunString(script)
	if err != nil {
		t.Fatalf("%s: %v", info.Name, err)
	}
	return value
}

func evalString(t *testing.T, vm *goja.Runtime, script string) string {
	t.Helper()
	value, err := vm.RunString(script)
	if err != nil {
		t.Fatal(err)
	}
	return value.String()
}

func TestGlobalPolyfill(t *testing.T) {
	vm := goja.New()
	info, _ := GlobalByName("global")
	vm.Set("exported", runPolyfill(t, vm, info))
	test.AssertEqual(t, evalString(t, vm, "String(exported === globalThis)"), "true")
}

func TestProcessPolyfill(t *testing.T) {
	vm := goja.New()
	info, _ := GlobalByName("process")
	vm.Set("p", runPolyfill(t, vm, info))
	test.AssertEqual(t, evalString(t, vm, "p.platform"), "browser")
	test.AssertEqual(t, evalString(t, vm, "typeof p.env"), "object")
	test.AssertEqual(t, evalString(t, vm, "p.cwd()"), "/")

	// The host's own object wins when there is one
	vm = goja.New()
	if _, err := vm.RunString("globalThis.process = { nextTick: function () {}, platform: 'host' }"); err != nil {
		t.Fatal(err)
	}
	vm.Set("p", runPolyfill(t, vm, info))
	test.AssertEqual(t, evalString(t, vm, "p.platform"), "host")
}

func TestBufferPolyfill(t *testing.T) {
	vm := goja.New()
	info, _ := GlobalByName("Buffer")
	vm.Set("B", runPolyfill(t, vm, info))
	test.AssertEqual(t, evalString(t, vm, "B.from('h\\u00e9llo \\ud83d\\ude00').toString()"), "h\u00e9llo \U0001F600")
	test.AssertEqual(t, evalString(t, vm, "B.from('abc').toString('hex')"), "616263")
	test.AssertEqual(t, evalString(t, vm, "B.from('616263', 'hex').toString()"), "abc")
	test.AssertEqual(t, evalString(t, vm, "String(B.isBuffer(B.alloc(2)))"), "true")
	test.AssertEqual(t, evalString(t, vm, "String(B.isBuffer({}))"), "false")
	test.AssertEqual(t, evalString(t, vm, "String(B.byteLength('\\u00e9'))"), "2")
	test.AssertEqual(t, evalString(t, vm, "B.concat([B.from('a'), B.from('b')]).toString()"), "ab")
}

func TestPrelude(t *testing.T) {
	vm := goja.New()
	script := Prelude + `
var log = [];
var ` + TableName + ` = [
  function _0(module, exports) { log.push('a'); exports.b = ` + RequireExpr(1) + `.value; },
  function _1(module, exports) { log.push('b'); module.exports = { value: 42 }; }
];
` + Bootstrap + `
` + RequireName + `(0);
log.join(',') + ':' + ` + RequireExpr(0) + `.b`
	test.AssertEqual(t, evalString(t, vm, script), "a,b:42")
	test.AssertEqual(t, WrapperName(12), "_12")
}

func TestGlobalLookup(t *testing.T) {
	info, ok := GlobalByPath("paeckchen:buffer")
	test.AssertEqual(t, ok, true)
	test.AssertEqual(t, info.Name, "Buffer")
	_, ok = GlobalByName("window")
	test.AssertEqual(t, ok, false)
	for i, info := range Globals {
		test.AssertEqual(t, info.Flag, Global(1<<i))
	}
}

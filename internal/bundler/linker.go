package bundler

import (
	"fmt"

	"github.com/paeckchen/paeckchen/internal/helpers"
	"github.com/paeckchen/paeckchen/internal/js_printer"
	"github.com/paeckchen/paeckchen/internal/runtime"
)

// Prints the finished module table as a single program:
//
//	(function () {
//	<loader>
//	var modules = [
//	function _0(module, exports) { ... },
//	...
//	];
//	var process = __paeckchen_require__(3).exports;
//	__paeckchen_require__(0);
//	})();
func (b *Bundler) link() ([]byte, error) {
	registry := b.state.Registry
	table := registry.Table()

	j := helpers.Joiner{}
	j.AddString("(function () {\n")
	j.AddString(runtime.Prelude)
	j.EnsureNewlineAtEnd()
	j.AddString("var " + runtime.TableName + " = [\n")
	for i, wrapped := range table {
		if wrapped == nil {
			return nil, &GraphError{Reason: fmt.Sprintf("Internal error: module %q was never processed",
				b.resolver.PrettyPath(registry.ModuleAt(uint32(i)).Name))}
		}
		if i > 0 {
			j.AddString(",\n")
		}
		j.AddBytes(js_printer.Print(wrapped, js_printer.Options{}))
	}
	j.AddString("\n];\n")

	for _, binding := range b.state.Bindings {
		j.AddString("var " + binding.Name + " = " + runtime.RequireExpr(binding.Index) + ";\n")
	}

	j.AddString(runtime.Bootstrap)
	j.AddString("})();\n")
	return j.Done(), nil
}

package bundler

import (
	"fmt"

	"github.com/paeckchen/paeckchen/internal/config"
	"github.com/paeckchen/paeckchen/internal/helpers"
	"github.com/paeckchen/paeckchen/internal/js_ast"
	"github.com/paeckchen/paeckchen/internal/runtime"
)

// A module body that was generated instead of parsed
func generatedBody(code string) *js_ast.AST {
	tree := js_ast.NewAST()
	raw := tree.Add(js_ast.Node{Kind: js_ast.KRaw, Text: code})
	root := tree.Node(tree.Root)
	root.Children = append(root.Children, raw)
	return tree
}

func missingBody(prettyPath string) *js_ast.AST {
	return generatedBody(fmt.Sprintf("throw new Error(%s);",
		helpers.QuoteForJS(fmt.Sprintf("Module '%s' not found", prettyPath))))
}

func removedBody(prettyPath string) *js_ast.AST {
	return generatedBody(fmt.Sprintf("throw new Error(%s);",
		helpers.QuoteForJS(fmt.Sprintf("Module '%s' was removed", prettyPath))))
}

func externalBody(external config.External) *js_ast.AST {
	if external.GlobalName == "" {
		return generatedBody("module.exports = {};")
	}
	return generatedBody("module.exports = " + external.GlobalName + ";")
}

func jsonBody(json string) *js_ast.AST {
	return generatedBody("module.exports = " + json + ";")
}

// Turns a module body into the function that goes into its table slot
func wrapModule(tree *js_ast.AST, index uint32) *js_ast.AST {
	return js_ast.Wrap(tree, runtime.WrapperName(index), runtime.WrapperParams...)
}

package js_printer

import (
	"strings"

	"github.com/paeckchen/paeckchen/internal/helpers"
	"github.com/paeckchen/paeckchen/internal/js_ast"
)

type Options struct {
	// Prefixed to every line of a wrapped module's body. Parsed text is
	// printed as-is, so this only applies to the lines the wrapper adds.
	Indent string
}

type printer struct {
	tree    *js_ast.AST
	options Options
	js      helpers.Joiner
}

func (p *printer) print(text string) {
	p.js.AddString(text)
}

func (p *printer) printNode(index js_ast.Index) {
	node := p.tree.Node(index)

	switch node.Kind {
	case js_ast.KProgram:
		for _, child := range node.Children {
			p.printNode(child)
		}
		p.print(node.CloseTrivia)

	case js_ast.KCall:
		for _, child := range node.Children {
			p.printNode(child)
		}

	case js_ast.KGroup:
		p.print(node.Trivia)
		p.print(node.Text)
		for _, child := range node.Children {
			p.printNode(child)
		}
		p.print(node.CloseTrivia)
		p.print(node.Close)

	default:
		p.print(node.Trivia)
		p.print(node.Text)
	}
}

// Prints the tree back to source text. Comments and whitespace come out
// exactly as they were parsed.
func Print(tree *js_ast.AST, options Options) []byte {
	p := &printer{tree: tree, options: options}

	if wrapper := tree.Wrapper; wrapper != nil {
		p.print(options.Indent)
		p.print("function ")
		p.print(wrapper.Name)
		p.print("(")
		p.print(strings.Join(wrapper.Params, ", "))
		p.print(") {\n")
		p.printNode(tree.Root)
		p.print("\n")
		p.print(options.Indent)
		p.print("}")
	} else {
		if tree.Hashbang != "" {
			p.print(tree.Hashbang)
		}
		p.printNode(tree.Root)
	}

	return p.js.Done()
}

package js_ast

// Every module is parsed into a token tree. Brackets nest, everything else is
// a flat run of tokens, and each node keeps the exact text it was parsed from
// together with the whitespace and comments in front of it. Printing the tree
// unchanged gives back the original file byte for byte.
//
// Nodes live in one slice and refer to each other by Index. Rewriting a node
// overwrites its slot, so every parent that points at it sees the new node and
// no parent pointers ever need to be fixed up.

import "github.com/paeckchen/paeckchen/internal/logger"

type Index uint32

const InvalidIndex = ^Index(0)

type Kind uint8

const (
	KProgram Kind = iota

	// Any token without special meaning to the bundler
	KToken

	KIdentifier
	KString

	// "(...)", "[...]", "{...}", or a template literal with substitutions
	KGroup

	// An identifier directly followed by a parenthesized argument list. Only
	// created for names the parser was asked to look for (e.g. "require").
	KCall

	// Text that was produced by the bundler instead of parsed
	KRaw
)

type Flags uint8

const (
	// "b" in "a.b" or "a?.b"
	FlagMemberName Flags = 1 << iota

	// "b" in "{b: c}" or a label
	FlagPropertyKey

	// "b" in "function b() {}" or "class b {}"
	FlagDeclarationName
)

func (flags Flags) Has(flag Flags) bool {
	return flags&flag != 0
}

type Node struct {
	Kind  Kind
	Flags Flags
	Loc   logger.Loc

	// Whitespace and comments in front of this node
	Trivia string

	// The raw text of a token, or the opening text of a group
	Text string

	// The decoded value of a string literal
	Value string

	// The closing text of a group and the trivia in front of it. For the
	// program node this holds the trivia at the end of the file.
	Close       string
	CloseTrivia string

	Children []Index
}

// A wrapped module is printed as a function declaration around its body
type Wrapper struct {
	Name   string
	Params []string
}

type AST struct {
	Nodes    []Node
	Root     Index
	Hashbang string
	Wrapper  *Wrapper
}

func NewAST() *AST {
	tree := &AST{}
	tree.Root = tree.Add(Node{Kind: KProgram})
	return tree
}

func (tree *AST) Add(node Node) Index {
	tree.Nodes = append(tree.Nodes, node)
	return Index(len(tree.Nodes) - 1)
}

func (tree *AST) Node(index Index) *Node {
	return &tree.Nodes[index]
}

// The trivia printed in front of a node. Calls keep theirs on the callee.
func (tree *AST) LeadingTrivia(index Index) string {
	node := &tree.Nodes[index]
	if node.Kind == KCall && len(node.Children) > 0 {
		return tree.LeadingTrivia(node.Children[0])
	}
	return node.Trivia
}

// Swaps the node at "index" for a different one. The trivia in front of the
// old node moves over so comments and indentation survive the rewrite.
func (tree *AST) Replace(index Index, node Node) {
	node.Trivia = tree.LeadingTrivia(index)
	if node.Loc == (logger.Loc{}) {
		node.Loc = tree.Nodes[index].Loc
	}
	tree.Nodes[index] = node
}

// Visits every node reachable from the root in source order. Returning false
// from the callback skips the node's children.
func (tree *AST) Visit(callback func(index Index, node *Node) bool) {
	var visit func(index Index)
	visit = func(index Index) {
		if !callback(index, &tree.Nodes[index]) {
			return
		}
		for _, child := range tree.Nodes[index].Children {
			visit(child)
		}
	}
	visit(tree.Root)
}

// Splits the contents of a call's argument list at top-level commas
func (tree *AST) CallArguments(call Index) [][]Index {
	node := &tree.Nodes[call]
	if node.Kind != KCall || len(node.Children) < 2 {
		return nil
	}
	group := &tree.Nodes[node.Children[1]]
	var args [][]Index
	var current []Index
	for _, child := range group.Children {
		if c := &tree.Nodes[child]; c.Kind == KToken && c.Text == "," {
			args = append(args, current)
			current = nil
			continue
		}
		current = append(current, child)
	}
	if len(current) > 0 {
		args = append(args, current)
	}
	return args
}

func (tree *AST) CalleeName(call Index) string {
	node := &tree.Nodes[call]
	if node.Kind != KCall || len(node.Children) == 0 {
		return ""
	}
	return tree.Nodes[node.Children[0]].Text
}

// Turns the module's statements into the body of a function. The hashbang is
// dropped since it's only valid on the first line of a file.
func Wrap(tree *AST, name string, params ...string) *AST {
	return &AST{
		Nodes:   tree.Nodes,
		Root:    tree.Root,
		Wrapper: &Wrapper{Name: name, Params: params},
	}
}

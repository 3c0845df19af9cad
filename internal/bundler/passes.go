package bundler

import (
	"errors"
	"fmt"

	"github.com/paeckchen/paeckchen/internal/graph"
	"github.com/paeckchen/paeckchen/internal/js_ast"
	"github.com/paeckchen/paeckchen/internal/logger"
	"github.com/paeckchen/paeckchen/internal/resolver"
	"github.com/paeckchen/paeckchen/internal/runtime"
)

// A rewrite pass sees every parsed module once per build in which the module
// changed. Passes run one after another in a fixed order and may change the
// tree in place.
type RewritePass interface {
	Name() string
	Apply(tree *js_ast.AST, path graph.ModulePath, ctx *PassContext) error
}

// Everything a pass may read or update while rewriting one module
type PassContext struct {
	Log      logger.Log
	Source   *logger.Source
	Resolver *resolver.Resolver
	State    *State
	Tracer   *logger.Tracer

	// Filled in by the passes and stored on the module record afterward
	Dependencies  []graph.ModulePath
	HasUnresolved bool
}

// Adds a dependency to the graph and queues it if it still needs work.
// Returns the dependency's index in the module table.
func (ctx *PassContext) AddDependency(path graph.ModulePath) uint32 {
	index := ctx.State.Registry.IndexOf(path)
	ctx.Dependencies = append(ctx.Dependencies, path)
	if ctx.State.Registry.NeedsProcessing(path) && ctx.State.Worklist.Enqueue(path) {
		ctx.Tracer.Trace("enqueue", "path", string(path), "index", index)
	}
	return index
}

func DefaultPasses() []RewritePass {
	return []RewritePass{globalsPass{}, commonJSPass{}}
}

// Notes which of the host globals the module refers to without declaring
type globalsPass struct{}

func (globalsPass) Name() string {
	return "globals"
}

func (globalsPass) Apply(tree *js_ast.AST, path graph.ModulePath, ctx *PassContext) error {
	var used, declared runtime.Global

	tree.Visit(func(index js_ast.Index, node *js_ast.Node) bool {
		if node.Kind != js_ast.KGroup && node.Kind != js_ast.KProgram {
			return true
		}
		var prev *js_ast.Node
		for _, child := range node.Children {
			c := tree.Node(child)
			if c.Kind == js_ast.KIdentifier && c.Flags == 0 {
				if info, ok := runtime.GlobalByName(c.Text); ok {
					if prev != nil && prev.Kind == js_ast.KIdentifier && isDeclarationKeyword(prev.Text) {
						declared |= info.Flag
					} else {
						used |= info.Flag
					}
				}
			}
			prev = c
		}
		return true
	})

	if found := used &^ declared; found != 0 {
		for _, info := range runtime.Globals {
			if found&info.Flag != 0 && ctx.State.Globals&info.Flag == 0 {
				ctx.Tracer.Trace("global detected", "name", info.Name, "path", string(path))
			}
		}
		ctx.State.Globals |= found
	}
	return nil
}

func isDeclarationKeyword(text string) bool {
	switch text {
	case "var", "let", "const":
		return true
	}
	return false
}

// Rewrites "require('x')" into a lookup in the module table
type commonJSPass struct{}

func (commonJSPass) Name() string {
	return "commonjs"
}

func (commonJSPass) Apply(tree *js_ast.AST, path graph.ModulePath, ctx *PassContext) error {
	var err error

	tree.Visit(func(index js_ast.Index, node *js_ast.Node) bool {
		if err != nil {
			return false
		}
		if node.Kind != js_ast.KCall || tree.CalleeName(index) != "require" {
			return true
		}

		args := tree.CallArguments(index)
		r := logger.Range{Loc: node.Loc, Len: int32(len("require"))}
		if len(args) > 1 {
			ctx.Log.AddRangeWarning(ctx.Source, r,
				"This call to \"require\" will not be bundled because it has more than one argument")
			return true
		}
		if len(args) == 0 || len(args[0]) != 1 || tree.Node(args[0][0]).Kind != js_ast.KString {
			ctx.Log.AddRangeWarning(ctx.Source, r,
				"This call to \"require\" will not be bundled because the argument is not a string literal")
			return true
		}

		arg := tree.Node(args[0][0])
		specifier := arg.Value
		dep, resolveErr := ctx.Resolver.Resolve(specifier, path)
		if resolveErr != nil {
			var resolutionErr *resolver.ResolutionError
			if !errors.As(resolveErr, &resolutionErr) {
				err = resolveErr
				return false
			}
			argRange := logger.Range{Loc: arg.Loc, Len: int32(len(arg.Text))}
			ctx.Log.AddRangeWarning(ctx.Source, argRange, fmt.Sprintf("Could not resolve %q", specifier))
			ctx.HasUnresolved = true
		}

		depIndex := ctx.AddDependency(dep)
		tree.Replace(index, js_ast.Node{Kind: js_ast.KRaw, Text: runtime.RequireExpr(depIndex)})
		return false
	})

	return err
}

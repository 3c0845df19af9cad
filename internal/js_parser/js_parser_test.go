package js_parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/paeckchen/paeckchen/internal/config"
	"github.com/paeckchen/paeckchen/internal/js_ast"
	"github.com/paeckchen/paeckchen/internal/logger"
	"github.com/paeckchen/paeckchen/internal/test"
)

func expectParseError(t *testing.T, contents string, expected string) {
	t.Helper()
	expectParseErrorWithOptions(t, contents, expected, Options{})
}

func expectParseErrorTarget(t *testing.T, target config.LanguageTarget, contents string, expected string) {
	t.Helper()
	expectParseErrorWithOptions(t, contents, expected, Options{Target: target})
}

func expectParseErrorWithOptions(t *testing.T, contents string, expected string, options Options) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		log := logger.NewDeferLog()
		_, ok := Parse(log, test.SourceForTest(contents), options)
		msgs := log.Done()
		text := ""
		for _, msg := range msgs {
			text += msg.String(logger.OutputOptions{IncludeSource: true}, logger.TerminalInfo{})
		}
		test.AssertEqualWithDiff(t, text, expected)
		test.AssertEqual(t, ok, expected == "")
	})
}

// Summarizes the interesting nodes: calls with their string arguments and
// identifiers with their flags
func describe(tree *js_ast.AST) string {
	var parts []string
	tree.Visit(func(index js_ast.Index, node *js_ast.Node) bool {
		switch node.Kind {
		case js_ast.KCall:
			var args []string
			for _, arg := range tree.CallArguments(index) {
				if len(arg) == 1 && tree.Node(arg[0]).Kind == js_ast.KString {
					args = append(args, fmt.Sprintf("%q", tree.Node(arg[0]).Value))
				} else {
					args = append(args, "?")
				}
			}
			parts = append(parts, fmt.Sprintf("call %s(%s)", tree.CalleeName(index), strings.Join(args, ", ")))
			return false

		case js_ast.KIdentifier:
			var flags []string
			if node.Flags.Has(js_ast.FlagMemberName) {
				flags = append(flags, "member")
			}
			if node.Flags.Has(js_ast.FlagPropertyKey) {
				flags = append(flags, "key")
			}
			if node.Flags.Has(js_ast.FlagDeclarationName) {
				flags = append(flags, "decl")
			}
			if len(flags) > 0 {
				parts = append(parts, fmt.Sprintf("%s[%s]", node.Text, strings.Join(flags, ",")))
			} else {
				parts = append(parts, node.Text)
			}
		}
		return true
	})
	return strings.Join(parts, " ")
}

func expectTree(t *testing.T, contents string, expected string) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		log := logger.NewDeferLog()
		tree, ok := Parse(log, test.SourceForTest(contents), Options{})
		test.AssertEqualWithDiff(t, test.LogText(log.Done()), "")
		if !ok {
			t.Fatal("Parse error")
		}
		test.AssertEqualWithDiff(t, describe(tree), expected)
	})
}

func TestRequireCalls(t *testing.T) {
	expectTree(t, "require('./a')", "call require(\"./a\")")
	expectTree(t, "var x = require(\"./b\").y", "var x call require(\"./b\") y[member]")
	expectTree(t, "require(a + '.js')", "call require(?)")
	expectTree(t, "require('a', 'b')", "call require(\"a\", \"b\")")
	expectTree(t, "require()", "call require()")
	expectTree(t, "a.require('x')", "a require[member]")
	expectTree(t, "function require(x) {}", "function require[decl] x")
	expectTree(t, "var r = require; r('x')", "var r require r")
	expectTree(t, "f(require('./a'), [require('./b')])", "f call require(\"./a\") call require(\"./b\")")
	expectTree(t, "`${require('./a')}`", "call require(\"./a\")")
}

func TestIdentifierFlags(t *testing.T) {
	expectTree(t, "x = { process: 1, b: process }", "x process[key] b[key] process")
	expectTree(t, "a ? process : b", "a process b")
	expectTree(t, "a ? x + process : b", "a x process b")
	expectTree(t, "switch (a) { case process: break }", "switch a case process break")
	expectTree(t, "label: for (;;) break label", "label[key] for break label")
	expectTree(t, "a?.process", "a process[member]")
	expectTree(t, "class Buffer {}", "class Buffer[decl]")
	expectTree(t, "x = { a: b ? c : d, e: f }", "x a[key] b c d e[key] f")
}

func TestSyntaxErrors(t *testing.T) {
	expectParseError(t, "a(", "<stdin>:1:2: error: Expected \")\" but found end of file\na(\n  ^\n")
	expectParseError(t, "(a}", "<stdin>:1:2: error: Expected \")\" but found \"}\"\n(a}\n  ^\n")
	expectParseError(t, "a)", "<stdin>:1:1: error: Unexpected \")\"\na)\n ^\n")
	expectParseError(t, "'abc", "<stdin>:1:0: error: Unterminated string literal\n'abc\n~~~~\n")
}

func TestSourceLevel(t *testing.T) {
	expectParseErrorTarget(t, config.ES5, "var f = x => x",
		"<stdin>:1:10: error: \"=>\" is not available in the configured source level (es5)\nvar f = x => x\n          ~~\n")
	expectParseErrorTarget(t, config.ES5, "const a = 1",
		"<stdin>:1:0: error: const is not available in the configured source level (es5)\nconst a = 1\n~~~~~\n")
	expectParseErrorTarget(t, config.ES2015, "a ** 2",
		"<stdin>:1:2: error: \"**\" is not available in the configured source level (es2015)\na ** 2\n  ~~\n")
	expectParseErrorTarget(t, config.ES2019, "a ?? b",
		"<stdin>:1:2: error: \"??\" is not available in the configured source level (es2019)\na ?? b\n  ~~\n")
	expectParseErrorTarget(t, config.ES5, "var a = { const: 1 }; a.class", "")
	expectParseErrorTarget(t, config.ES2020, "a ?? b", "")
}

func TestValidateSyntax(t *testing.T) {
	options := Options{ValidateSyntax: true}
	expectParseErrorWithOptions(t, "#!/usr/bin/env node\nreturn module.exports = 1", "", options)
	expectParseErrorWithOptions(t, "var a = ;", "<stdin>:1:8: error: Unexpected token ;\nvar a = ;\n        ^\n", options)
}

func TestParseJSON(t *testing.T) {
	log := logger.NewDeferLog()
	text, ok := ParseJSON(log, test.SourceForTest(" {\"a\": [1, 2]}\n"))
	test.AssertEqual(t, ok, true)
	test.AssertEqual(t, text, "{\"a\": [1, 2]}")

	text, ok = ParseJSON(log, test.SourceForTest("\uFEFF[true]"))
	test.AssertEqual(t, ok, true)
	test.AssertEqual(t, text, "[true]")
	test.AssertEqual(t, len(log.Done()), 0)

	log = logger.NewDeferLog()
	_, ok = ParseJSON(log, test.SourceForTest("{\"a\": }"))
	test.AssertEqual(t, ok, false)
	msgs := log.Done()
	test.AssertEqual(t, len(msgs), 1)
	test.AssertEqual(t, strings.HasPrefix(msgs[0].Text, "Invalid JSON: "), true)
	test.AssertEqual(t, msgs[0].Location.Column, 6)
}

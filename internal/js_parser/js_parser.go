package js_parser

// This parser doesn't build a full syntax tree. The bundler only ever rewrites
// "require()" calls and looks at free identifiers, so a tree of tokens nested
// by brackets is enough. Every node keeps its original text, which means an
// unmodified tree prints back to the exact input.
//
// That also means this parser accepts a lot of invalid code. A full grammar
// check is available through the "ValidateSyntax" option.

import (
	"fmt"

	"github.com/paeckchen/paeckchen/internal/config"
	"github.com/paeckchen/paeckchen/internal/js_ast"
	"github.com/paeckchen/paeckchen/internal/js_lexer"
	"github.com/paeckchen/paeckchen/internal/logger"
)

type Options struct {
	Target config.LanguageTarget

	// Identifiers that become a "KCall" node when directly followed by an
	// argument list. Defaults to "require".
	CallNames []string

	ValidateSyntax bool
}

type parser struct {
	log     logger.Log
	source  logger.Source
	lexer   js_lexer.Lexer
	options Options
	tree    *js_ast.AST

	callNames map[string]bool

	prevToken T
	prevRaw   string

	// One counter per open bracket for each "?" and "case" still waiting for
	// its ":". A ":" that doesn't belong to one of those follows a property
	// key or a label.
	pendingColons []int

	hasErrors bool
}

type T = js_lexer.T

func Parse(log logger.Log, source logger.Source, options Options) (result *js_ast.AST, ok bool) {
	ok = true
	defer func() {
		r := recover()
		if _, isLexerPanic := r.(js_lexer.LexerPanic); isLexerPanic {
			result = nil
			ok = false
		} else if r != nil {
			panic(r)
		}
	}()

	p := newParser(log, source, options)
	tree := p.tree

	if p.lexer.Token == js_lexer.THashbang {
		tree.Hashbang = p.lexer.Identifier
		p.next()
	}

	children := p.parseSequence(js_lexer.TEndOfFile)
	root := tree.Node(tree.Root)
	root.Children = children
	root.CloseTrivia = p.lexer.Trivia()

	if p.hasErrors {
		return nil, false
	}
	if options.ValidateSyntax && !validateSyntax(log, &source) {
		return nil, false
	}
	return tree, true
}

func newParser(log logger.Log, source logger.Source, options Options) *parser {
	callNames := options.CallNames
	if callNames == nil {
		callNames = []string{"require"}
	}
	p := &parser{
		log:       log,
		source:    source,
		options:   options,
		tree:      js_ast.NewAST(),
		callNames: make(map[string]bool, len(callNames)),
		prevToken: js_lexer.TEndOfFile,
	}
	for _, name := range callNames {
		p.callNames[name] = true
	}
	p.lexer = js_lexer.NewLexer(log, source)
	return p
}

func (p *parser) next() {
	p.prevToken = p.lexer.Token
	p.prevRaw = p.lexer.Raw()
	p.lexer.Next()
}

func closingToken(open T) T {
	switch open {
	case js_lexer.TOpenParen:
		return js_lexer.TCloseParen
	case js_lexer.TOpenBracket:
		return js_lexer.TCloseBracket
	case js_lexer.TOpenBrace:
		return js_lexer.TCloseBrace
	case js_lexer.TTemplateHead:
		return js_lexer.TTemplateTail
	default:
		panic("Internal error")
	}
}

// Parses nodes until the given closing token, which is not consumed. A
// template literal is closed by its tail and interrupted by its middle pieces.
func (p *parser) parseSequence(close T) []js_ast.Index {
	var children []js_ast.Index
	p.pendingColons = append(p.pendingColons, 0)
	defer func() { p.pendingColons = p.pendingColons[:len(p.pendingColons)-1] }()

	for {
		switch p.lexer.Token {
		case close:
			return children

		case js_lexer.TTemplateMiddle:
			if close == js_lexer.TTemplateTail {
				return children
			}
			p.lexer.Unexpected()

		case js_lexer.TEndOfFile:
			p.lexer.ExpectedString(close.String())

		case js_lexer.TCloseParen, js_lexer.TCloseBracket, js_lexer.TCloseBrace, js_lexer.TTemplateTail:
			if close == js_lexer.TEndOfFile {
				p.lexer.Unexpected()
			}
			p.lexer.ExpectedString(close.String())
		}

		children = append(children, p.parseNode())
	}
}

func (p *parser) parseNode() js_ast.Index {
	trivia := p.lexer.Trivia()
	loc := p.lexer.Loc()
	raw := p.lexer.Raw()
	token := p.lexer.Token

	switch token {
	case js_lexer.TOpenParen, js_lexer.TOpenBracket, js_lexer.TOpenBrace:
		return p.parseGroup(trivia, loc, raw, closingToken(token))

	case js_lexer.TTemplateHead:
		p.checkFeature(config.ES2015, "template literal")
		return p.parseGroup(trivia, loc, raw, js_lexer.TTemplateTail)

	case js_lexer.TNoSubstitutionTemplateLiteral:
		p.checkFeature(config.ES2015, "template literal")

	case js_lexer.TStringLiteral:
		value := p.lexer.StringLiteral
		p.next()
		return p.tree.Add(js_ast.Node{Kind: js_ast.KString, Loc: loc, Trivia: trivia, Text: raw, Value: value})

	case js_lexer.TIdentifier:
		return p.parseIdentifier(trivia, loc, raw)

	case js_lexer.TPrivateIdentifier:
		p.checkFeature(config.ESNext, "private name")

	case js_lexer.TQuestion:
		p.pendingColons[len(p.pendingColons)-1]++

	case js_lexer.TColon:
		if pending := &p.pendingColons[len(p.pendingColons)-1]; *pending > 0 {
			*pending--
		}

	case js_lexer.TEqualsGreaterThan, js_lexer.TDotDotDot:
		p.checkFeature(config.ES2015, fmt.Sprintf("%q", raw))

	case js_lexer.TAsteriskAsterisk, js_lexer.TAsteriskAsteriskEquals:
		p.checkFeature(config.ES2016, fmt.Sprintf("%q", raw))

	case js_lexer.TQuestionDot, js_lexer.TQuestionQuestion:
		p.checkFeature(config.ES2020, fmt.Sprintf("%q", raw))

	case js_lexer.TQuestionQuestionEquals, js_lexer.TBarBarEquals, js_lexer.TAmpersandAmpersandEquals:
		p.checkFeature(config.ESNext, fmt.Sprintf("%q", raw))
	}

	p.next()
	return p.tree.Add(js_ast.Node{Kind: js_ast.KToken, Loc: loc, Trivia: trivia, Text: raw})
}

func (p *parser) parseGroup(trivia string, loc logger.Loc, open string, close T) js_ast.Index {
	p.next()
	var children []js_ast.Index

	for {
		children = append(children, p.parseSequence(close)...)

		// Template literals continue after each substitution
		if p.lexer.Token != js_lexer.TTemplateMiddle {
			break
		}
		children = append(children, p.tree.Add(js_ast.Node{
			Kind:   js_ast.KToken,
			Loc:    p.lexer.Loc(),
			Trivia: p.lexer.Trivia(),
			Text:   p.lexer.Raw(),
		}))
		p.next()
	}

	closeTrivia := p.lexer.Trivia()
	closeText := p.lexer.Raw()
	p.next()

	return p.tree.Add(js_ast.Node{
		Kind:        js_ast.KGroup,
		Loc:         loc,
		Trivia:      trivia,
		Text:        open,
		Close:       closeText,
		CloseTrivia: closeTrivia,
		Children:    children,
	})
}

func (p *parser) parseIdentifier(trivia string, loc logger.Loc, name string) js_ast.Index {
	var flags js_ast.Flags
	switch p.prevToken {
	case js_lexer.TDot, js_lexer.TQuestionDot:
		flags |= js_ast.FlagMemberName

	case js_lexer.TIdentifier:
		if p.prevRaw == "function" || p.prevRaw == "class" {
			flags |= js_ast.FlagDeclarationName
		}
	}

	r := p.lexer.Range()
	p.next()

	if p.lexer.Token == js_lexer.TColon && p.pendingColons[len(p.pendingColons)-1] == 0 && !flags.Has(js_ast.FlagMemberName) {
		flags |= js_ast.FlagPropertyKey
	}

	if flags == 0 {
		switch name {
		case "case":
			p.pendingColons[len(p.pendingColons)-1]++

		case "class", "const":
			p.checkFeatureAt(r, config.ES2015, name)
		}
	}

	ident := p.tree.Add(js_ast.Node{Kind: js_ast.KIdentifier, Flags: flags, Loc: loc, Trivia: trivia, Text: name})

	if p.lexer.Token == js_lexer.TOpenParen && p.callNames[name] && flags == 0 {
		args := p.parseGroup(p.lexer.Trivia(), p.lexer.Loc(), p.lexer.Raw(), js_lexer.TCloseParen)
		return p.tree.Add(js_ast.Node{Kind: js_ast.KCall, Loc: loc, Children: []js_ast.Index{ident, args}})
	}
	return ident
}

func (p *parser) checkFeature(minimum config.LanguageTarget, what string) {
	p.checkFeatureAt(p.lexer.Range(), minimum, what)
}

func (p *parser) checkFeatureAt(r logger.Range, minimum config.LanguageTarget, what string) {
	if p.options.Target < minimum {
		p.log.AddRangeError(&p.source, r,
			fmt.Sprintf("%s is not available in the configured source level (%s)", what, p.options.Target))
		p.hasErrors = true
	}
}

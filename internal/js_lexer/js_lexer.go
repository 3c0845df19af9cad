package js_lexer

// The lexer turns a source file into tokens without losing anything: the text
// between two tokens (whitespace and comments) is available as trivia, so the
// file can be printed back exactly.
//
// Whether "/" starts a regular expression depends on the grammar. The lexer
// doesn't know the grammar, so it decides from the previous token the same
// way most syntax highlighters do. After ")" and "}" that isn't enough, so
// every open bracket remembers whether it starts a statement block or the
// head of "if", "for", "while" or "with". Template literals are tracked with
// the same stack of open braces so "}" can continue a template after a
// substitution.

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/paeckchen/paeckchen/internal/logger"
)

type T uint8

const (
	TEndOfFile T = iota
	THashbang

	// Literals
	TNoSubstitutionTemplateLiteral
	TNumericLiteral
	TStringLiteral
	TRegExpLiteral

	// Pieces of a template literal with substitutions
	TTemplateHead
	TTemplateMiddle
	TTemplateTail

	TIdentifier
	TPrivateIdentifier

	// Punctuation the parser needs to tell apart
	TOpenParen
	TCloseParen
	TOpenBracket
	TCloseBracket
	TOpenBrace
	TCloseBrace
	TColon
	TComma
	TDot
	TQuestion
	TQuestionDot
	TSemicolon
	TPlusPlus
	TMinusMinus

	// Punctuation that only matters for the source level check
	TDotDotDot
	TEqualsGreaterThan
	TAsteriskAsterisk
	TAsteriskAsteriskEquals
	TQuestionQuestion
	TQuestionQuestionEquals
	TBarBarEquals
	TAmpersandAmpersandEquals

	// Every other operator
	TPunctuator
)

var tokenToString = map[T]string{
	TEndOfFile:                     "end of file",
	THashbang:                      "hashbang comment",
	TNoSubstitutionTemplateLiteral: "template literal",
	TNumericLiteral:                "number",
	TStringLiteral:                 "string",
	TRegExpLiteral:                 "regular expression",
	TTemplateHead:                  "template literal",
	TTemplateMiddle:                "template literal",
	TTemplateTail:                  "template literal",
	TIdentifier:                    "identifier",
	TPrivateIdentifier:             "private identifier",
	TOpenParen:                     "\"(\"",
	TCloseParen:                    "\")\"",
	TOpenBracket:                   "\"[\"",
	TCloseBracket:                  "\"]\"",
	TOpenBrace:                     "\"{\"",
	TCloseBrace:                    "\"}\"",
	TColon:                         "\":\"",
	TComma:                         "\",\"",
	TDot:                           "\".\"",
	TQuestion:                      "\"?\"",
	TQuestionDot:                   "\"?.\"",
	TSemicolon:                     "\";\"",
	TPlusPlus:                      "\"++\"",
	TMinusMinus:                    "\"--\"",
	TDotDotDot:                     "\"...\"",
	TEqualsGreaterThan:             "\"=>\"",
	TAsteriskAsterisk:              "\"**\"",
	TAsteriskAsteriskEquals:        "\"**=\"",
	TQuestionQuestion:              "\"??\"",
	TQuestionQuestionEquals:        "\"??=\"",
	TBarBarEquals:                  "\"||=\"",
	TAmpersandAmpersandEquals:      "\"&&=\"",
}

func (t T) String() string {
	if text, ok := tokenToString[t]; ok {
		return text
	}
	return "operator"
}

// Longest first so that e.g. ">>>=" wins over ">>"
var punctuators = []struct {
	text  string
	token T
}{
	{">>>=", TPunctuator},
	{"...", TDotDotDot},
	{"===", TPunctuator},
	{"!==", TPunctuator},
	{"**=", TAsteriskAsteriskEquals},
	{"<<=", TPunctuator},
	{">>=", TPunctuator},
	{">>>", TPunctuator},
	{"??=", TQuestionQuestionEquals},
	{"||=", TBarBarEquals},
	{"&&=", TAmpersandAmpersandEquals},
	{"=>", TEqualsGreaterThan},
	{"==", TPunctuator},
	{"!=", TPunctuator},
	{"<=", TPunctuator},
	{">=", TPunctuator},
	{"&&", TPunctuator},
	{"||", TPunctuator},
	{"??", TQuestionQuestion},
	{"++", TPlusPlus},
	{"--", TMinusMinus},
	{"+=", TPunctuator},
	{"-=", TPunctuator},
	{"*=", TPunctuator},
	{"/=", TPunctuator},
	{"%=", TPunctuator},
	{"&=", TPunctuator},
	{"|=", TPunctuator},
	{"^=", TPunctuator},
	{"**", TAsteriskAsterisk},
	{"<<", TPunctuator},
	{">>", TPunctuator},
	{"(", TOpenParen},
	{")", TCloseParen},
	{"[", TOpenBracket},
	{"]", TCloseBracket},
	{"{", TOpenBrace},
	{"}", TCloseBrace},
	{":", TColon},
	{",", TComma},
	{".", TDot},
	{"?", TQuestion},
	{";", TSemicolon},
	{"=", TPunctuator},
	{"<", TPunctuator},
	{">", TPunctuator},
	{"+", TPunctuator},
	{"-", TPunctuator},
	{"*", TPunctuator},
	{"/", TPunctuator},
	{"%", TPunctuator},
	{"&", TPunctuator},
	{"|", TPunctuator},
	{"^", TPunctuator},
	{"!", TPunctuator},
	{"~", TPunctuator},
	{"@", TPunctuator},
}

// Keywords after which an expression (and therefore a regular expression)
// may start
var keywordsBeforeExpression = map[string]bool{
	"await":      true,
	"case":       true,
	"delete":     true,
	"do":         true,
	"else":       true,
	"in":         true,
	"instanceof": true,
	"new":        true,
	"of":         true,
	"return":     true,
	"throw":      true,
	"typeof":     true,
	"void":       true,
	"yield":      true,
}

type Lexer struct {
	log    logger.Log
	source logger.Source

	current   int
	start     int
	end       int
	codePoint rune

	// Start of the whitespace and comments in front of the current token
	triviaStart int

	Token            T
	HasNewlineBefore bool

	// The raw text of identifiers and the decoded value of string literals
	Identifier    string
	StringLiteral string

	previousToken      T
	previousIdentifier string

	braceStack []braceContext

	// One entry per open "(". True for the head of a control flow statement.
	parenStack []bool

	// Set when the last ")" or "}" ended a control flow head or a block, so a
	// "/" right after it starts a regular expression
	closedStatement bool
}

type braceContext struct {
	// Opened by "${" in a template
	isTemplate bool

	// A statement block or class body as opposed to an object literal
	isBlock bool
}

var controlFlowKeywords = map[string]bool{
	"for":   true,
	"if":    true,
	"while": true,
	"with":  true,
}

type LexerPanic struct{}

func NewLexer(log logger.Log, source logger.Source) Lexer {
	lexer := Lexer{
		log:    log,
		source: source,
	}
	lexer.step()
	lexer.Next()
	return lexer
}

func (lexer *Lexer) Loc() logger.Loc {
	return logger.Loc{Start: int32(lexer.start)}
}

func (lexer *Lexer) Range() logger.Range {
	return logger.Range{Loc: logger.Loc{Start: int32(lexer.start)}, Len: int32(lexer.end - lexer.start)}
}

func (lexer *Lexer) Raw() string {
	return lexer.source.Contents[lexer.start:lexer.end]
}

func (lexer *Lexer) Trivia() string {
	return lexer.source.Contents[lexer.triviaStart:lexer.start]
}

func (lexer *Lexer) Source() *logger.Source {
	return &lexer.source
}

func (lexer *Lexer) SyntaxError() {
	loc := logger.Loc{Start: int32(lexer.end)}
	message := "Unexpected end of file"
	if lexer.end < len(lexer.source.Contents) {
		c, _ := utf8.DecodeRuneInString(lexer.source.Contents[lexer.end:])
		if c < 0x20 {
			message = fmt.Sprintf("Syntax error \"\\x%02X\"", c)
		} else if c >= 0x80 {
			message = fmt.Sprintf("Syntax error \"\\u{%x}\"", c)
		} else if c != '"' {
			message = fmt.Sprintf("Syntax error \"%c\"", c)
		} else {
			message = "Syntax error '\"'"
		}
	}
	lexer.addError(loc, message)
	panic(LexerPanic{})
}

func (lexer *Lexer) ExpectedString(text string) {
	found := fmt.Sprintf("%q", lexer.Raw())
	if lexer.start == len(lexer.source.Contents) {
		found = "end of file"
	}
	lexer.addRangeError(lexer.Range(), fmt.Sprintf("Expected %s but found %s", text, found))
	panic(LexerPanic{})
}

func (lexer *Lexer) Unexpected() {
	found := fmt.Sprintf("%q", lexer.Raw())
	if lexer.start == len(lexer.source.Contents) {
		found = "end of file"
	}
	lexer.addRangeError(lexer.Range(), fmt.Sprintf("Unexpected %s", found))
	panic(LexerPanic{})
}

func (lexer *Lexer) regExpAllowed() bool {
	switch lexer.previousToken {
	case TIdentifier:
		return keywordsBeforeExpression[lexer.previousIdentifier]

	case TCloseParen, TCloseBrace:
		return lexer.closedStatement

	case TNumericLiteral, TStringLiteral, TRegExpLiteral, TNoSubstitutionTemplateLiteral, TTemplateTail,
		TPrivateIdentifier, TCloseBracket, TPlusPlus, TMinusMinus:
		return false
	}
	return true
}

// Decides from the tokens in front of a "{" whether it opens a block. Object
// literals only appear where an expression is expected.
func (lexer *Lexer) braceStartsBlock() bool {
	switch lexer.previousToken {
	case TEndOfFile, THashbang, TSemicolon, TOpenBrace, TCloseBrace, TCloseParen, TEqualsGreaterThan:
		return true

	case TColon:
		// A label or "case" inside a block, a property value inside an object
		if n := len(lexer.braceStack); n > 0 {
			return lexer.braceStack[n-1].isBlock
		}
		return true

	case TIdentifier:
		switch lexer.previousIdentifier {
		case "else", "do":
			return true
		case "return", "yield":
			return lexer.HasNewlineBefore
		}
		// "class Foo {" and "try {" open blocks, "typeof {}" doesn't
		return !keywordsBeforeExpression[lexer.previousIdentifier]
	}
	return false
}

func (lexer *Lexer) Next() {
	lexer.previousToken = lexer.Token
	if lexer.Token == TIdentifier {
		lexer.previousIdentifier = lexer.Identifier
	}
	lexer.HasNewlineBefore = lexer.end == 0
	lexer.triviaStart = lexer.end

	for {
		lexer.start = lexer.end
		lexer.Token = 0

		switch lexer.codePoint {
		case -1:
			lexer.Token = TEndOfFile

		case '#':
			if lexer.start == 0 && strings.HasPrefix(lexer.source.Contents, "#!") {
				// "#!/usr/bin/env node"
				lexer.Token = THashbang
				for lexer.codePoint != -1 && !isLineTerminator(lexer.codePoint) {
					lexer.step()
				}
				lexer.Identifier = lexer.Raw()
			} else {
				// "#foo"
				lexer.step()
				if !IsIdentifierStart(lexer.codePoint) {
					lexer.SyntaxError()
				}
				lexer.scanIdentifierRest()
				lexer.Identifier = lexer.Raw()
				lexer.Token = TPrivateIdentifier
			}

		case '\r', '\n', '\u2028', '\u2029':
			lexer.step()
			lexer.HasNewlineBefore = true
			continue

		case '\t', ' ', '\v', '\f', '\u00A0', '\uFEFF':
			lexer.step()
			continue

		case '/':
			next := lexer.peek()
			switch {
			case next == '/':
				lexer.skipSingleLineComment()
				continue

			case next == '*':
				lexer.skipMultiLineComment()
				continue

			case lexer.regExpAllowed():
				lexer.scanRegExp()

			default:
				lexer.scanPunctuator()
			}

		case '<':
			// "<!--" starts a single-line comment in scripts
			if strings.HasPrefix(lexer.source.Contents[lexer.start:], "<!--") {
				lexer.skipSingleLineComment()
				continue
			}
			lexer.scanPunctuator()

		case '\'', '"':
			lexer.scanString()

		case '`':
			lexer.step()
			lexer.scanTemplate(TNoSubstitutionTemplateLiteral, TTemplateHead)

		case '{':
			lexer.step()
			lexer.braceStack = append(lexer.braceStack, braceContext{isBlock: lexer.braceStartsBlock()})
			lexer.Token = TOpenBrace

		case '}':
			lexer.step()
			lexer.closedStatement = false
			if n := len(lexer.braceStack); n > 0 {
				brace := lexer.braceStack[n-1]
				lexer.braceStack = lexer.braceStack[:n-1]
				if brace.isTemplate {
					lexer.scanTemplate(TTemplateTail, TTemplateMiddle)
					break
				}
				lexer.closedStatement = brace.isBlock
			}
			lexer.Token = TCloseBrace

		case '(':
			lexer.step()
			lexer.parenStack = append(lexer.parenStack,
				lexer.previousToken == TIdentifier && controlFlowKeywords[lexer.previousIdentifier])
			lexer.Token = TOpenParen

		case ')':
			lexer.step()
			lexer.closedStatement = false
			if n := len(lexer.parenStack); n > 0 {
				lexer.closedStatement = lexer.parenStack[n-1]
				lexer.parenStack = lexer.parenStack[:n-1]
			}
			lexer.Token = TCloseParen

		case '.':
			if next := lexer.peek(); next >= '0' && next <= '9' {
				lexer.scanNumber()
			} else {
				lexer.scanPunctuator()
			}

		case '?':
			// "?." is not optional chaining when followed by a digit: "a?.5:b"
			if strings.HasPrefix(lexer.source.Contents[lexer.start:], "?.") {
				rest := lexer.source.Contents[lexer.start+2:]
				if len(rest) == 0 || rest[0] < '0' || rest[0] > '9' {
					lexer.step()
					lexer.step()
					lexer.Token = TQuestionDot
					break
				}
				lexer.step()
				lexer.Token = TQuestion
				break
			}
			lexer.scanPunctuator()

		default:
			switch {
			case lexer.codePoint >= '0' && lexer.codePoint <= '9':
				lexer.scanNumber()

			case IsIdentifierStart(lexer.codePoint) || lexer.codePoint == '\\':
				lexer.scanIdentifierRest()
				lexer.Identifier = lexer.Raw()
				lexer.Token = TIdentifier

			default:
				lexer.scanPunctuator()
			}
		}

		return
	}
}

func (lexer *Lexer) peek() rune {
	codePoint, width := utf8.DecodeRuneInString(lexer.source.Contents[lexer.current:])
	if width == 0 {
		return -1
	}
	return codePoint
}

func (lexer *Lexer) scanPunctuator() {
	text := lexer.source.Contents[lexer.start:]
	for _, p := range punctuators {
		if strings.HasPrefix(text, p.text) {
			for range p.text {
				lexer.step()
			}
			lexer.Token = p.token
			return
		}
	}
	lexer.SyntaxError()
}

func (lexer *Lexer) skipSingleLineComment() {
	for lexer.codePoint != -1 && !isLineTerminator(lexer.codePoint) {
		lexer.step()
	}
}

func (lexer *Lexer) skipMultiLineComment() {
	startRange := logger.Range{Loc: logger.Loc{Start: int32(lexer.end)}, Len: 2}
	lexer.step()
	lexer.step()
	for {
		switch lexer.codePoint {
		case '*':
			lexer.step()
			if lexer.codePoint == '/' {
				lexer.step()
				return
			}
			continue

		case '\r', '\n', '\u2028', '\u2029':
			lexer.HasNewlineBefore = true

		case -1:
			lexer.start = lexer.end
			lexer.addRangeError(startRange, "Expected \"*/\" to terminate multi-line comment")
			panic(LexerPanic{})
		}
		lexer.step()
	}
}

func (lexer *Lexer) scanIdentifierRest() {
	for {
		if lexer.codePoint == '\\' {
			// "\u0061" or "\u{61}"
			lexer.step()
			if lexer.codePoint != 'u' {
				lexer.SyntaxError()
			}
			lexer.step()
			if lexer.codePoint == '{' {
				for lexer.codePoint != '}' {
					if lexer.codePoint == -1 {
						lexer.SyntaxError()
					}
					lexer.step()
				}
				lexer.step()
			} else {
				for i := 0; i < 4; i++ {
					if !isHexDigit(lexer.codePoint) {
						lexer.SyntaxError()
					}
					lexer.step()
				}
			}
			continue
		}
		if lexer.start == lexer.end || IsIdentifierContinue(lexer.codePoint) {
			if lexer.codePoint == -1 {
				return
			}
			lexer.step()
			continue
		}
		return
	}
}

func (lexer *Lexer) scanNumber() {
	isHex := lexer.codePoint == '0' && (lexer.peek() == 'x' || lexer.peek() == 'X')
	for {
		c := lexer.codePoint
		switch {
		case (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '.':
			lexer.step()
			if !isHex && (c == 'e' || c == 'E') && (lexer.codePoint == '+' || lexer.codePoint == '-') {
				lexer.step()
			}
			continue
		}
		break
	}
	lexer.Token = TNumericLiteral
}

func (lexer *Lexer) scanString() {
	quote := lexer.codePoint
	lexer.step()
	sb := strings.Builder{}

	for {
		switch lexer.codePoint {
		case '\\':
			lexer.step()
			lexer.decodeEscape(&sb)
			continue

		case -1, '\r', '\n':
			lexer.addRangeError(logger.Range{Loc: lexer.Loc(), Len: int32(lexer.end - lexer.start)}, "Unterminated string literal")
			panic(LexerPanic{})

		case quote:
			lexer.step()
			lexer.StringLiteral = sb.String()
			lexer.Token = TStringLiteral
			return
		}
		sb.WriteRune(lexer.codePoint)
		lexer.step()
	}
}

// The lexer is positioned right after the backslash
func (lexer *Lexer) decodeEscape(sb *strings.Builder) {
	c := lexer.codePoint
	switch c {
	case -1:
		lexer.SyntaxError()

	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'v':
		sb.WriteByte('\v')
	case '0':
		if next := lexer.peek(); next < '0' || next > '9' {
			sb.WriteByte(0)
			break
		}
		sb.WriteRune(c)

	case '\r':
		// Line continuation
		lexer.step()
		if lexer.codePoint == '\n' {
			lexer.step()
		}
		return
	case '\n', '\u2028', '\u2029':
		lexer.step()
		return

	case 'x':
		lexer.step()
		lexer.writeHexEscape(sb, 2)
		return

	case 'u':
		lexer.step()
		if lexer.codePoint == '{' {
			lexer.step()
			start := lexer.end
			for lexer.codePoint != '}' {
				if !isHexDigit(lexer.codePoint) {
					lexer.SyntaxError()
				}
				lexer.step()
			}
			value, err := strconv.ParseUint(lexer.source.Contents[start:lexer.end], 16, 32)
			if err != nil || value > utf8.MaxRune {
				lexer.SyntaxError()
			}
			sb.WriteRune(rune(value))
			lexer.step()
			return
		}
		lexer.writeHexEscape(sb, 4)
		return

	default:
		sb.WriteRune(c)
	}
	lexer.step()
}

func (lexer *Lexer) writeHexEscape(sb *strings.Builder, digits int) {
	start := lexer.end
	for i := 0; i < digits; i++ {
		if !isHexDigit(lexer.codePoint) {
			lexer.SyntaxError()
		}
		lexer.step()
	}
	value, _ := strconv.ParseUint(lexer.source.Contents[start:lexer.end], 16, 32)
	sb.WriteRune(rune(value))
}

// Scans the rest of a template literal up to the closing backtick or the next
// substitution. The opening "`" or "}" has already been consumed.
func (lexer *Lexer) scanTemplate(whenDone T, whenSubstitution T) {
	for {
		switch lexer.codePoint {
		case '\\':
			lexer.step()
			if lexer.codePoint == -1 {
				lexer.SyntaxError()
			}

		case '`':
			lexer.step()
			lexer.Token = whenDone
			return

		case '$':
			if lexer.peek() == '{' {
				lexer.step()
				lexer.step()
				lexer.braceStack = append(lexer.braceStack, braceContext{isTemplate: true})
				lexer.Token = whenSubstitution
				return
			}

		case -1:
			lexer.addRangeError(logger.Range{Loc: lexer.Loc(), Len: 1}, "Unterminated template literal")
			panic(LexerPanic{})
		}
		lexer.step()
	}
}

func (lexer *Lexer) scanRegExp() {
	lexer.step()
	isInClass := false
	for {
		switch lexer.codePoint {
		case '\\':
			lexer.step()

		case '[':
			isInClass = true

		case ']':
			isInClass = false

		case '/':
			if !isInClass {
				lexer.step()
				for IsIdentifierContinue(lexer.codePoint) {
					lexer.step()
				}
				lexer.Token = TRegExpLiteral
				return
			}
		}

		if lexer.codePoint == -1 || isLineTerminator(lexer.codePoint) {
			lexer.addRangeError(logger.Range{Loc: lexer.Loc(), Len: 1}, "Unterminated regular expression")
			panic(LexerPanic{})
		}
		lexer.step()
	}
}

func (lexer *Lexer) step() {
	codePoint, width := utf8.DecodeRuneInString(lexer.source.Contents[lexer.current:])

	// Use -1 to indicate the end of the file
	if width == 0 {
		codePoint = -1
	}

	lexer.codePoint = codePoint
	lexer.end = lexer.current
	lexer.current += width
}

func (lexer *Lexer) addError(loc logger.Loc, text string) {
	lexer.log.AddError(&lexer.source, loc, text)
}

func (lexer *Lexer) addRangeError(r logger.Range, text string) {
	lexer.log.AddRangeError(&lexer.source, r, text)
}

func isLineTerminator(c rune) bool {
	return c == '\r' || c == '\n' || c == '\u2028' || c == '\u2029'
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func IsIdentifierStart(codePoint rune) bool {
	switch codePoint {
	case '_', '$',
		'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm',
		'n', 'o', 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z',
		'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M',
		'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z':
		return true
	}

	// All ASCII identifier start code points are listed above
	if codePoint < 0x7F {
		return false
	}

	return unicode.IsLetter(codePoint) || unicode.Is(unicode.Nl, codePoint)
}

func IsIdentifierContinue(codePoint rune) bool {
	switch codePoint {
	case '_', '$', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
		'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm',
		'n', 'o', 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z',
		'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M',
		'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z':
		return true
	}

	// All ASCII identifier continue code points are listed above
	if codePoint < 0x7F {
		return false
	}

	// ZWNJ and ZWJ are allowed in identifiers
	if codePoint == 0x200C || codePoint == 0x200D {
		return true
	}

	return unicode.IsLetter(codePoint) || unicode.Is(unicode.Nl, codePoint) ||
		unicode.Is(unicode.Mn, codePoint) || unicode.Is(unicode.Mc, codePoint) ||
		unicode.Is(unicode.Nd, codePoint) || unicode.Is(unicode.Pc, codePoint)
}

func IsIdentifier(text string) bool {
	if len(text) == 0 {
		return false
	}
	for i, codePoint := range text {
		if i == 0 {
			if !IsIdentifierStart(codePoint) {
				return false
			}
		} else if !IsIdentifierContinue(codePoint) {
			return false
		}
	}
	return true
}

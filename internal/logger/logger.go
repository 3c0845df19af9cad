package logger

// Diagnostics are rendered in the style of clang's error format. Each message
// is written to stderr as soon as it's added, contains the text of the line
// the message refers to, and the number of errors printed can be limited.

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

type Log struct {
	AddMsg    func(Msg)
	HasErrors func() bool
	Done      func() []Msg
}

type LogLevel int8

const (
	LevelNone LogLevel = iota
	LevelDebug
	LevelInfo
	LevelWarning
	LevelError
	LevelSilent
)

type MsgKind uint8

const (
	Error MsgKind = iota
	Warning
	Info
	Debug
)

func (kind MsgKind) String() string {
	switch kind {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Debug:
		return "debug"
	default:
		panic("Internal error")
	}
}

type Msg struct {
	Kind     MsgKind
	Text     string
	Location *MsgLocation
}

type MsgLocation struct {
	File     string
	Line     int // 1-based
	Column   int // 0-based, in bytes
	Length   int // in bytes
	LineText string
}

type Loc struct {
	// The 0-based byte offset of this location from the start of the file
	Start int32
}

type Range struct {
	Loc Loc
	Len int32
}

func (r Range) End() int32 {
	return r.Loc.Start + r.Len
}

type Source struct {
	Index uint32

	// The key used to identify this file. It's either an absolute path or a
	// virtual name such as "paeckchen:process" for generated modules.
	KeyPath string

	// Relative to the working directory where possible. Only used for display.
	PrettyPath string

	Contents string
}

// Returns the byte offset for a 1-based line and a 0-based column. The column
// is clamped to the length of the line.
func (s *Source) OffsetForLineColumn(line int, column int) int32 {
	offset := 0
	for current := 1; current < line; current++ {
		next := strings.IndexByte(s.Contents[offset:], '\n')
		if next < 0 {
			return int32(len(s.Contents))
		}
		offset += next + 1
	}
	end := strings.IndexByte(s.Contents[offset:], '\n')
	if end < 0 {
		end = len(s.Contents) - offset
	}
	if column > end {
		column = end
	}
	if column < 0 {
		column = 0
	}
	return int32(offset + column)
}

func sortMsgs(msgs []Msg) {
	sort.SliceStable(msgs, func(i int, j int) bool {
		li, lj := msgs[i].Location, msgs[j].Location
		if li == nil || lj == nil {
			return li == nil && lj != nil
		}
		if li.File != lj.File {
			return li.File < lj.File
		}
		if li.Line != lj.Line {
			return li.Line < lj.Line
		}
		if li.Column != lj.Column {
			return li.Column < lj.Column
		}
		return msgs[i].Kind < msgs[j].Kind
	})
}

func plural(prefix string, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, prefix)
	}
	return fmt.Sprintf("%d %ss", count, prefix)
}

func errorAndWarningSummary(errors int, warnings int) string {
	switch {
	case errors == 0:
		return plural("warning", warnings)
	case warnings == 0:
		return plural("error", errors)
	default:
		return fmt.Sprintf("%s and %s", plural("warning", warnings), plural("error", errors))
	}
}

type TerminalInfo struct {
	IsTTY           bool
	UseColorEscapes bool
	Width           int
}

type UseColor uint8

const (
	ColorIfTerminal UseColor = iota
	ColorNever
	ColorAlways
)

type OutputOptions struct {
	IncludeSource bool
	ErrorLimit    int
	Color         UseColor
	LogLevel      LogLevel
}

func (level LogLevel) allows(kind MsgKind) bool {
	switch kind {
	case Error:
		return level <= LevelError
	case Warning:
		return level <= LevelWarning
	case Info:
		return level <= LevelInfo
	default:
		return level <= LevelDebug
	}
}

func hasNoColorEnvironmentVariable() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func NewStderrLog(options OutputOptions) Log {
	var mutex sync.Mutex
	var msgs []Msg
	terminalInfo := GetTerminalInfo(os.Stderr)
	errors := 0
	warnings := 0
	errorLimitWasHit := false

	switch options.Color {
	case ColorNever:
		terminalInfo.UseColorEscapes = false
	case ColorAlways:
		terminalInfo.UseColorEscapes = SupportsColorEscapes
	}

	return Log{
		AddMsg: func(msg Msg) {
			mutex.Lock()
			defer mutex.Unlock()
			msgs = append(msgs, msg)

			if errorLimitWasHit {
				return
			}

			switch msg.Kind {
			case Error:
				errors++
			case Warning:
				warnings++
			}
			if options.LogLevel.allows(msg.Kind) {
				writeStringWithColor(os.Stderr, msg.String(options, terminalInfo))
			}

			if options.ErrorLimit != 0 && errors >= options.ErrorLimit {
				errorLimitWasHit = true
				if options.LogLevel <= LevelError {
					writeStringWithColor(os.Stderr, fmt.Sprintf(
						"%s reached (disable error limit with --error-limit=0)\n", errorAndWarningSummary(errors, warnings)))
				}
			}
		},
		HasErrors: func() bool {
			mutex.Lock()
			defer mutex.Unlock()
			return errors > 0
		},
		Done: func() []Msg {
			mutex.Lock()
			defer mutex.Unlock()

			if !errorLimitWasHit && options.LogLevel <= LevelInfo && (warnings != 0 || errors != 0) {
				writeStringWithColor(os.Stderr, fmt.Sprintf("%s\n", errorAndWarningSummary(errors, warnings)))
			}

			sortMsgs(msgs)
			return msgs
		},
	}
}

func PrintErrorToStderr(osArgs []string, text string) {
	options := OutputOptions{IncludeSource: true}

	// The flags that affect how errors look are handled here directly so they
	// still work when the command line itself could not be parsed
	for _, arg := range osArgs {
		switch arg {
		case "--color=false":
			options.Color = ColorNever
		case "--color=true":
			options.Color = ColorAlways
		case "--log-level=silent":
			options.LogLevel = LevelSilent
		}
	}

	log := NewStderrLog(options)
	log.AddMsg(Msg{Kind: Error, Text: text})
	log.Done()
}

// Collects messages without printing them. The API hands these back to the
// caller and the tests compare them against expected output.
func NewDeferLog() Log {
	var msgs []Msg
	var mutex sync.Mutex
	var hasErrors bool

	return Log{
		AddMsg: func(msg Msg) {
			mutex.Lock()
			defer mutex.Unlock()
			if msg.Kind == Error {
				hasErrors = true
			}
			msgs = append(msgs, msg)
		},
		HasErrors: func() bool {
			mutex.Lock()
			defer mutex.Unlock()
			return hasErrors
		},
		Done: func() []Msg {
			mutex.Lock()
			defer mutex.Unlock()
			sortMsgs(msgs)
			return msgs
		},
	}
}

const colorReset = "\033[0m"
const colorRed = "\033[31m"
const colorGreen = "\033[32m"
const colorBlue = "\033[34m"
const colorMagenta = "\033[35m"
const colorDim = "\033[37m"
const colorBold = "\033[1m"
const colorResetBold = "\033[0;1m"

func (msg Msg) String(options OutputOptions, terminalInfo TerminalInfo) string {
	kind := msg.Kind.String()
	kindColor := colorRed
	switch msg.Kind {
	case Warning:
		kindColor = colorMagenta
	case Info:
		kindColor = colorBlue
	case Debug:
		kindColor = colorDim
	}

	if msg.Location == nil {
		if terminalInfo.UseColorEscapes {
			return fmt.Sprintf("%s%s%s: %s%s%s\n",
				colorBold, kindColor, kind, colorResetBold, msg.Text, colorReset)
		}
		return fmt.Sprintf("%s: %s\n", kind, msg.Text)
	}

	if !options.IncludeSource {
		if terminalInfo.UseColorEscapes {
			return fmt.Sprintf("%s%s: %s%s: %s%s%s\n",
				colorBold, msg.Location.File, kindColor, kind, colorResetBold, msg.Text, colorReset)
		}
		return fmt.Sprintf("%s: %s: %s\n", msg.Location.File, kind, msg.Text)
	}

	d := detailStruct(msg, terminalInfo)

	if terminalInfo.UseColorEscapes {
		return fmt.Sprintf("%s%s:%d:%d: %s%s: %s%s\n%s%s%s%s%s%s\n%s%s%s%s\n",
			colorBold, d.Path, d.Line, d.Column,
			kindColor, kind,
			colorResetBold, msg.Text,
			colorReset, d.SourceBefore, colorGreen, d.SourceMarked, colorReset, d.SourceAfter,
			colorGreen, d.Indent, d.Marker, colorReset)
	}

	return fmt.Sprintf("%s:%d:%d: %s: %s\n%s\n%s%s\n",
		d.Path, d.Line, d.Column, kind, msg.Text, d.Source, d.Indent, d.Marker)
}

type MsgDetail struct {
	Path   string
	Line   int
	Column int

	// Source == SourceBefore + SourceMarked + SourceAfter
	Source       string
	SourceBefore string
	SourceMarked string
	SourceAfter  string

	Indent string
	Marker string
}

// Returns the 0-based line and column of the byte offset, and the bounds of
// the line containing it.
func computeLineAndColumn(contents string, offset int) (line int, column int, lineStart int, lineEnd int) {
	if offset > len(contents) {
		offset = len(contents)
	}

	var prev rune
	for i, c := range contents[:offset] {
		switch c {
		case '\n':
			lineStart = i + 1
			if prev != '\r' {
				line++
			}
		case '\r', '\u2028', '\u2029':
			lineStart = i + len(string(c))
			line++
		}
		prev = c
	}

	lineEnd = len(contents)
	if i := strings.IndexAny(contents[offset:], "\r\n\u2028\u2029"); i >= 0 {
		lineEnd = offset + i
	}

	column = offset - lineStart
	return
}

func LocationOrNil(source *Source, r Range) *MsgLocation {
	if source == nil {
		return nil
	}

	line, column, lineStart, lineEnd := computeLineAndColumn(source.Contents, int(r.Loc.Start))
	return &MsgLocation{
		File:     source.PrettyPath,
		Line:     line + 1,
		Column:   column,
		Length:   int(r.Len),
		LineText: source.Contents[lineStart:lineEnd],
	}
}

func detailStruct(msg Msg, terminalInfo TerminalInfo) MsgDetail {
	loc := *msg.Location
	if loc.Column < 0 {
		loc.Column = 0
	}
	if loc.Column > len(loc.LineText) {
		loc.Column = len(loc.LineText)
	}
	if loc.Length < 0 {
		loc.Length = 0
	}
	if loc.Length > len(loc.LineText)-loc.Column {
		loc.Length = len(loc.LineText) - loc.Column
	}

	const spacesPerTab = 2
	lineText := renderTabStops(loc.LineText, spacesPerTab)
	markerStart := len(renderTabStops(loc.LineText[:loc.Column], spacesPerTab))
	markerEnd := markerStart
	if loc.Length > 0 {
		markerEnd = len(renderTabStops(loc.LineText[:loc.Column+loc.Length], spacesPerTab))
	}

	// Cut long lines down to the terminal width, keeping the marker visible
	width := terminalInfo.Width
	if width < 1 {
		width = 80
	}
	if len(lineText) > width {
		sliceStart := markerStart - width/5
		if sliceStart > len(lineText)-width {
			sliceStart = len(lineText) - width
		}
		if sliceStart < 0 {
			sliceStart = 0
		}
		sliceEnd := sliceStart + width
		sliced := lineText[sliceStart:sliceEnd]
		markerStart -= sliceStart
		markerEnd -= sliceStart
		if sliceStart > 0 && len(sliced) > 3 {
			sliced = "..." + sliced[3:]
			if markerStart < 3 {
				markerStart = 3
			}
		}
		if sliceEnd < len(lineText) && len(sliced) > 3 {
			sliced = sliced[:len(sliced)-3] + "..."
		}
		if markerEnd > len(sliced) {
			markerEnd = len(sliced)
		}
		if markerEnd < markerStart {
			markerEnd = markerStart
		}
		lineText = sliced
	}
	if markerStart > len(lineText) {
		markerStart = len(lineText)
	}
	if markerEnd > len(lineText) {
		markerEnd = len(lineText)
	}

	marker := "^"
	if markerEnd-markerStart > 1 {
		marker = strings.Repeat("~", markerEnd-markerStart)
	}

	return MsgDetail{
		Path:   loc.File,
		Line:   loc.Line,
		Column: loc.Column,

		Source:       lineText,
		SourceBefore: lineText[:markerStart],
		SourceMarked: lineText[markerStart:markerEnd],
		SourceAfter:  lineText[markerEnd:],

		Indent: strings.Repeat(" ", markerStart),
		Marker: marker,
	}
}

func renderTabStops(withTabs string, spacesPerTab int) string {
	if !strings.ContainsRune(withTabs, '\t') {
		return withTabs
	}

	sb := strings.Builder{}
	count := 0
	for _, c := range withTabs {
		if c == '\t' {
			for spaces := spacesPerTab - count%spacesPerTab; spaces > 0; spaces-- {
				sb.WriteByte(' ')
				count++
			}
		} else {
			sb.WriteRune(c)
			count++
		}
	}
	return sb.String()
}

func (log Log) AddError(source *Source, loc Loc, text string) {
	log.AddMsg(Msg{Kind: Error, Text: text, Location: LocationOrNil(source, Range{Loc: loc})})
}

func (log Log) AddWarning(source *Source, loc Loc, text string) {
	log.AddMsg(Msg{Kind: Warning, Text: text, Location: LocationOrNil(source, Range{Loc: loc})})
}

func (log Log) AddRangeError(source *Source, r Range, text string) {
	log.AddMsg(Msg{Kind: Error, Text: text, Location: LocationOrNil(source, r)})
}

func (log Log) AddRangeWarning(source *Source, r Range, text string) {
	log.AddMsg(Msg{Kind: Warning, Text: text, Location: LocationOrNil(source, r)})
}

func (log Log) AddDebug(text string) {
	log.AddMsg(Msg{Kind: Debug, Text: text})
}

type Colors struct {
	Reset string
	Bold  string
	Dim   string
	Red   string
	Green string
}

var TerminalColors = Colors{
	Reset: colorReset,
	Bold:  colorBold,
	Dim:   colorDim,
	Red:   colorRed,
	Green: colorGreen,
}

// Status lines such as "[watch] build finished" go through here so they follow
// the same color settings as diagnostics.
func PrintTextWithColor(file *os.File, useColor UseColor, callback func(Colors) string) {
	var useColorEscapes bool
	switch useColor {
	case ColorNever:
		useColorEscapes = false
	case ColorAlways:
		useColorEscapes = SupportsColorEscapes
	case ColorIfTerminal:
		useColorEscapes = GetTerminalInfo(file).UseColorEscapes
	}

	var colors Colors
	if useColorEscapes {
		colors = TerminalColors
	}
	writeStringWithColor(file, callback(colors))
}

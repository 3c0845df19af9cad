package js_parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paeckchen/paeckchen/internal/logger"
)

// Checks that a data file holds exactly one JSON value and returns the text
// that can be used as a JavaScript expression in its place
func ParseJSON(log logger.Log, source logger.Source) (string, bool) {
	contents := source.Contents
	offset := 0
	if strings.HasPrefix(contents, "\uFEFF") {
		offset = len("\uFEFF")
		contents = contents[offset:]
	}

	var value interface{}
	err := json.Unmarshal([]byte(contents), &value)
	if err == nil {
		return strings.TrimSpace(contents), true
	}

	loc := logger.Loc{Start: int32(offset)}
	if syntaxErr, ok := err.(*json.SyntaxError); ok {
		errorOffset := int(syntaxErr.Offset) - 1
		if errorOffset < 0 {
			errorOffset = 0
		}
		loc.Start = int32(offset + errorOffset)
	}
	log.AddError(&source, loc, fmt.Sprintf("Invalid JSON: %s", err.Error()))
	return "", false
}

package js_parser

import (
	"strings"

	gojaparser "github.com/dop251/goja/parser"

	"github.com/paeckchen/paeckchen/internal/logger"
)

// Modules are checked inside the same function they end up in, so "return"
// at the top level is allowed just like in node
const validatePrefix = "(function (exports, require, module, __filename, __dirname) {\n"
const validateSuffix = "\n})"

// Runs the file through a complete JavaScript parser. Errors are reported
// against the original file.
func validateSyntax(log logger.Log, source *logger.Source) bool {
	contents := source.Contents
	if strings.HasPrefix(contents, "#!") {
		contents = "//" + contents[2:]
	}

	_, err := gojaparser.ParseFile(nil, source.PrettyPath, validatePrefix+contents+validateSuffix, 0, gojaparser.WithDisableSourceMaps)
	if err == nil {
		return true
	}

	list, ok := err.(gojaparser.ErrorList)
	if !ok || len(list) == 0 {
		log.AddError(source, logger.Loc{}, err.Error())
		return false
	}

	// Later errors are usually caused by the first one
	first := list[0]

	// Both are 1-based and the wrapper adds a line in front
	line := first.Position.Line - 1
	column := first.Position.Column - 1
	if line < 1 {
		line, column = 1, 0
	}
	if column < 0 {
		column = 0
	}
	log.AddError(source, logger.Loc{Start: source.OffsetForLineColumn(line, column)}, first.Message)
	return false
}

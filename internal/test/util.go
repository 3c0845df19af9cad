package test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kylelemons/godebug/diff"

	"github.com/paeckchen/paeckchen/internal/logger"
)

func AssertEqual(t *testing.T, observed interface{}, expected interface{}) {
	t.Helper()
	if observed != expected {
		t.Fatalf("%s != %s", observed, expected)
	}
}

func AssertEqualWithDiff(t *testing.T, observed interface{}, expected interface{}) {
	t.Helper()
	if observed != expected {
		stringA := fmt.Sprintf("%v", observed)
		stringB := fmt.Sprintf("%v", expected)
		if strings.Contains(stringA, "\n") || strings.Contains(stringB, "\n") {
			t.Fatal("\n" + diff.Diff(stringB, stringA))
		} else {
			t.Fatalf("%s != %s", stringA, stringB)
		}
	}
}

// Renders messages the way the terminal shows them with colors disabled, so
// expected logs can be written as plain strings.
func LogText(msgs []logger.Msg) string {
	text := ""
	for _, msg := range msgs {
		text += msg.String(logger.OutputOptions{}, logger.TerminalInfo{})
	}
	return text
}

func SourceForTest(contents string) logger.Source {
	return logger.Source{
		Index:      0,
		KeyPath:    "<stdin>",
		PrettyPath: "<stdin>",
		Contents:   contents,
	}
}

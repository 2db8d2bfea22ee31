package formatter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/nickwells/location.mod/location"

	tt "github.com/gnolang/jmp/internal/types"
)

const tabWidth = 8

var (
	errorStyle   = color.New(color.FgRed, color.Bold)
	classStyle   = color.New(color.FgYellow, color.Bold)
	fileStyle    = color.New(color.FgCyan, color.Bold)
	lineStyle    = color.New(color.FgHiBlue, color.Bold)
	messageStyle = color.New(color.FgRed, color.Bold)
	noteStyle    = color.New(color.FgGreen, color.Bold)
)

// Position is a 1-based line and column.
type Position struct {
	Line   int
	Column int
}

// PositionOf converts a rune offset in source to a line and column.
// Offsets past the end are clamped to the end.
func PositionOf(source string, offset int) Position {
	pos := Position{Line: 1, Column: 1}
	i := 0
	for _, r := range source {
		if i == offset {
			break
		}
		if r == '\n' {
			pos.Line++
			pos.Column = 1
		} else {
			pos.Column++
		}
		i++
	}
	return pos
}

// FormatError renders err for a terminal. Processor errors get a header
// naming their class, a location and a snippet of the text the scanner was
// reading; anything else is printed as a plain error line.
//
// input is the text given to the processor. When the error was found in
// text produced by an expansion, the snippet is of the rewritten buffer and
// a note says so.
func FormatError(err error, filename, input string) string {
	var te *tt.Error
	if !errors.As(err, &te) {
		return errorStyle.Sprint("error: ") + err.Error() + "\n"
	}

	var b strings.Builder
	b.WriteString(errorStyle.Sprint("error"))
	b.WriteString(classStyle.Sprintf("[%s]", te.Class()))
	b.WriteString(errorStyle.Sprint(": "))
	b.WriteString(te.Msg + "\n")

	if te.Offset < 0 {
		return b.String()
	}

	source := te.Source
	if source == "" {
		source = input
	}
	pos := PositionOf(source, te.Offset)

	b.WriteString(lineStyle.Sprint(" --> "))
	b.WriteString(fileStyle.Sprintf("%s:%d", locationOf(filename, pos.Line), pos.Column))
	b.WriteString("\n")
	b.WriteString(snippet(source, pos, te.Kind.String()))

	if te.Source != "" && te.Source != input {
		b.WriteString(noteStyle.Sprint("  = note: "))
		b.WriteString("the text shown is the input after earlier expansions\n")
	}
	return b.String()
}

// locationOf names a line the way the rest of the tool does: "file:line".
func locationOf(filename string, line int) string {
	if filename == "" {
		filename = "<stdin>"
	}
	loc := location.New(filename)
	for i := 0; i < line; i++ {
		loc.Incr()
	}
	return loc.String()
}

func snippet(source string, pos Position, label string) string {
	lines := strings.Split(source, "\n")
	if pos.Line > len(lines) {
		return ""
	}

	lineNumberStr := fmt.Sprintf("%d", pos.Line)
	padding := strings.Repeat(" ", len(lineNumberStr)-1)

	var result strings.Builder
	result.WriteString(lineStyle.Sprintf("  %s|\n", padding))

	line := expandTabs(lines[pos.Line-1])
	result.WriteString(lineStyle.Sprintf("%s | ", lineNumberStr))
	result.WriteString(line + "\n")

	visualColumn := calculateVisualColumn(lines[pos.Line-1], pos.Column)
	result.WriteString(lineStyle.Sprintf("  %s| ", padding))
	result.WriteString(strings.Repeat(" ", visualColumn))
	result.WriteString(messageStyle.Sprintf("^ %s\n", label))

	return result.String()
}

func expandTabs(line string) string {
	var expanded strings.Builder
	col := 0
	for _, ch := range line {
		if ch == '\t' {
			spaceCount := tabWidth - (col % tabWidth)
			expanded.WriteString(strings.Repeat(" ", spaceCount))
			col += spaceCount
		} else {
			expanded.WriteRune(ch)
			col++
		}
	}
	return expanded.String()
}

func calculateVisualColumn(line string, column int) int {
	visualColumn := 0
	i := 0
	for _, ch := range line {
		if i+1 == column {
			break
		}
		if ch == '\t' {
			visualColumn += tabWidth - (visualColumn % tabWidth)
		} else {
			visualColumn++
		}
		i++
	}
	return visualColumn
}

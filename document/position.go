package document

import (
	"sort"
	"unicode/utf16"

	"github.com/LukasParke/treeviewer/protocol"
)

// LineIndex maps between byte offsets and LSP positions (line, UTF-16
// column) for one text. Building it costs one pass over the text; each
// lookup after that only scans the line involved, which matters when a
// whole tree level of node spans is converted at once.
type LineIndex struct {
	text   string
	starts []int
}

// NewLineIndex indexes the line starts of text.
func NewLineIndex(text string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{text: text, starts: starts}
}

// Lines is the number of lines; a trailing newline starts an empty one.
func (x *LineIndex) Lines() int { return len(x.starts) }

// Line returns the text of the zero-based line without its newline, or ""
// past the end.
func (x *LineIndex) Line(line uint32) string {
	if int(line) >= len(x.starts) {
		return ""
	}
	start := x.starts[line]
	end := len(x.text)
	if int(line)+1 < len(x.starts) {
		end = x.starts[line+1] - 1
	}
	return x.text[start:end]
}

// Position converts a byte offset, clamped to the text, to a position.
func (x *LineIndex) Position(offset int) protocol.Position {
	offset = max(0, min(offset, len(x.text)))
	line := sort.SearchInts(x.starts, offset+1) - 1
	col := utf16Len(x.text[x.starts[line]:offset])
	return protocol.Position{Line: uint32(line), Character: uint32(col)}
}

// Offset converts a position to a byte offset. Lines past the end map to
// the end of the text; columns past the end of a line to its end.
func (x *LineIndex) Offset(pos protocol.Position) int {
	if int(pos.Line) >= len(x.starts) {
		return len(x.text)
	}
	start := x.starts[pos.Line]
	return start + utf16Prefix(x.Line(pos.Line), int(pos.Character))
}

// Range converts a byte span to a range.
func (x *LineIndex) Range(start, end int) protocol.Range {
	return protocol.Range{Start: x.Position(start), End: x.Position(end)}
}

// OffsetAt converts an LSP position to a byte offset in text.
func OffsetAt(text string, pos protocol.Position) int {
	return NewLineIndex(text).Offset(pos)
}

// PositionAt converts a byte offset in text to an LSP position.
func PositionAt(text string, offset int) protocol.Position {
	return NewLineIndex(text).Position(offset)
}

// LineAt returns the zero-based line of text without its newline.
func LineAt(text string, line uint32) string {
	return NewLineIndex(text).Line(line)
}

// runeUnits is the UTF-16 length of r. Invalid bytes count as one unit.
func runeUnits(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

// utf16Prefix is the byte length of the longest prefix of line spanning at
// most units UTF-16 code units.
func utf16Prefix(line string, units int) int {
	n := 0
	for i, r := range line {
		if n >= units {
			return i
		}
		n += runeUnits(r)
	}
	return len(line)
}

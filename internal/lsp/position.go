package lsp

import (
	"strings"
	"unicode/utf16"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Pos is a 1-based line and byte column, as the lexer reports them.
type Pos struct {
	Line int
	Col  int
}

func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

func byteColToUTF16(lineText string, byteCol int) uint32 {
	if byteCol <= 1 {
		return 0
	}
	limit := byteCol - 1
	if limit > len(lineText) {
		return uint32(utf16Len(lineText) + limit - len(lineText))
	}
	return uint32(utf16Len(lineText[:limit]))
}

func utf16ColToByte(lineText string, utf16Col int) int {
	if utf16Col <= 0 {
		return 1
	}
	count := 0
	for idx, r := range lineText {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if count+n > utf16Col {
			return idx + 1
		}
		count += n
	}
	return len(lineText) + 1
}

func utf16Len(s string) int {
	count := 0
	for _, r := range s {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		count += n
	}
	return count
}

func positionToByte(text string, pos protocol.Position) (Pos, bool) {
	lines := splitLines(text)
	lineIdx := int(pos.Line)
	if lineIdx < 0 || lineIdx >= len(lines) {
		return Pos{}, false
	}
	return Pos{Line: lineIdx + 1, Col: utf16ColToByte(lines[lineIdx], int(pos.Character))}, true
}

func rangeOfToken(text string, line, col int, literal string) protocol.Range {
	lines := splitLines(text)
	if line <= 0 || line > len(lines) {
		return protocol.Range{}
	}
	lineText := lines[line-1]
	start := protocol.Position{Line: uint32(line - 1), Character: byteColToUTF16(lineText, col)}
	end := protocol.Position{Line: start.Line, Character: start.Character + uint32(max(1, utf16Len(literal)))}
	return protocol.Range{Start: start, End: end}
}

package scanner

import (
	"strings"
	"unicode"

	tt "github.com/gnolang/jmp/internal/types"
)

// State is a state of the scanner's character-level machine.
type State int8

// States of the machine. Every call to Next starts in Idle and returns as
// soon as a token is complete:
//
//	Idle         --'@'--> At
//	Idle         --'{'--> BlockReading (depth 1)
//	Idle         --'}' '$'--> error
//	Idle         --space (ignore mode)--> Idle
//	Idle         --other--> Text (emit Char)
//	At           --'{' '}' '@' '$'--> Char (emit Char)
//	At           --name start--> MacroName
//	At           --other--> error
//	MacroName    --name char--> MacroName
//	MacroName    --other--> push back, emit MacroName
//	BlockReading --'@'--> BlockEscape
//	BlockReading --'{'--> BlockReading (depth+1)
//	BlockReading --'}'--> BlockReading (depth-1), Block (emit) at depth 0
//	BlockEscape  --any--> BlockReading
//
// End of input in BlockReading or BlockEscape is a block-not-closed error.
const (
	Idle State = iota
	Text
	At
	Char
	BlockReading
	Block
	BlockEscape
	MacroName
)

var stateNames = [...]string{
	Idle:         "Idle",
	Text:         "Text",
	At:           "At",
	Char:         "Char",
	BlockReading: "BlockReading",
	Block:        "Block",
	BlockEscape:  "BlockEscape",
	MacroName:    "MacroName",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(?)"
}

// SpaceMode controls what happens to whitespace outside blocks and names.
type SpaceMode int

const (
	SpacesAccept SpaceMode = iota // whitespace is passed through as Char tokens
	SpacesIgnore                  // whitespace is skipped
)

// Scanner turns the content of a Buffer into tokens, one at a time.
type Scanner struct {
	buf   *Buffer
	state State
	mode  SpaceMode
}

// New creates a scanner reading from buf in SpacesAccept mode.
func New(buf *Buffer) *Scanner {
	return &Scanner{
		buf:   buf,
		state: Idle,
		mode:  SpacesAccept,
	}
}

// Mode returns the current whitespace mode.
func (s *Scanner) Mode() SpaceMode { return s.mode }

// SetMode changes the whitespace mode. It takes effect for the next token.
func (s *Scanner) SetMode(mode SpaceMode) { s.mode = mode }

// State returns the state the machine stopped in after the last call.
func (s *Scanner) State() State { return s.state }

// Next scans the next token. It returns (nil, nil) at the end of input.
func (s *Scanner) Next() (*Token, error) {
	s.state = Idle
	start := s.buf.Pos()
	depth := 0

	var text, value strings.Builder

	for {
		c := s.buf.Next()
		pos := s.buf.Pos() - 1

		switch s.state {
		case Idle:
			switch {
			case c == EOF:
				return nil, nil
			case c == '@':
				s.state = At
			case c == '{':
				depth = 1
				s.state = BlockReading
			case c == '}' || c == '$':
				return nil, tt.Errorf(tt.KindIllegalCharSequence, pos,
					"unexpected '%c' outside a block, write it as '@%c'", c, c)
			case s.mode == SpacesIgnore && unicode.IsSpace(c):
				start = s.buf.Pos()
			default:
				s.state = Text
				return s.emit(TokenChar, string(c), start), nil
			}

		case At:
			switch {
			case isEscapable(c):
				s.state = Char
				return s.emit(TokenChar, string(c), start), nil
			case isNameStart(c):
				text.WriteRune('@')
				text.WriteRune(c)
				s.state = MacroName
			case c == EOF:
				return nil, tt.Errorf(tt.KindIllegalCharSequence, start,
					"input ends after '@'")
			default:
				return nil, tt.Errorf(tt.KindIllegalCharSequence, start,
					"illegal sequence '@%c'", c)
			}

		case MacroName:
			if isNameChar(c) {
				text.WriteRune(c)
				continue
			}
			if c != EOF {
				s.buf.Pushback(1)
			}
			return s.emit(TokenMacroName, text.String(), start), nil

		case BlockReading:
			switch c {
			case EOF:
				return nil, tt.Errorf(tt.KindBlockNotClosed, start,
					"block is not closed, %d '}' missing", depth)
			case '@':
				text.WriteRune(c)
				s.state = BlockEscape
			case '{':
				depth++
				text.WriteRune(c)
				value.WriteRune(c)
			case '}':
				depth--
				if depth == 0 {
					s.state = Block
					tok := s.emit(TokenBlock, text.String(), start)
					tok.Value = value.String()
					return tok, nil
				}
				text.WriteRune(c)
				value.WriteRune(c)
			default:
				text.WriteRune(c)
				value.WriteRune(c)
			}

		case BlockEscape:
			// '@{', '@}' and '@@' never change the depth; any other
			// '@x' is plain text, so copying c is right either way.
			if c == EOF {
				return nil, tt.Errorf(tt.KindBlockNotClosed, start,
					"block is not closed, %d '}' missing", depth)
			}
			text.WriteRune(c)
			if !isBlockEscapable(c) {
				value.WriteRune('@')
			}
			value.WriteRune(c)
			s.state = BlockReading
		}
	}
}

// NextArgument skips whitespace, whatever the mode, and scans the next
// token. Macro arguments may be separated by whitespace.
func (s *Scanner) NextArgument() (*Token, error) {
	for {
		c := s.buf.Next()
		if c == EOF {
			break
		}
		if !unicode.IsSpace(c) {
			s.buf.Pushback(1)
			break
		}
	}
	return s.Next()
}

func (s *Scanner) emit(kind TokenKind, text string, start int) *Token {
	return &Token{
		Kind: kind,
		Text: text,
		Raw:  s.buf.Slice(start, s.buf.Pos()),
		Pos:  start,
	}
}

func isEscapable(c rune) bool {
	return c == '{' || c == '}' || c == '@' || c == '$'
}

// isBlockEscapable reports whether '@c' inside a block stands for c alone.
func isBlockEscapable(c rune) bool {
	return c == '{' || c == '}' || c == '@'
}

// a digit may start a macro name, unlike a parameter identifier
func isNameStart(c rune) bool {
	return isNameChar(c)
}

func isNameChar(c rune) bool {
	return c == '_' || isASCIILetter(c) || isASCIIDigit(c)
}

// IsIdentStart reports whether c may start a parameter identifier.
func IsIdentStart(c rune) bool {
	return c == '_' || isASCIILetter(c)
}

// IsIdentChar reports whether c may continue a parameter identifier.
func IsIdentChar(c rune) bool {
	return isNameChar(c)
}

func isASCIILetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isASCIIDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

package scanner

import (
	"fmt"
	"strconv"
)

// TokenKind defines the kinds of tokens produced by the scanner.
type TokenKind int

const (
	TokenChar      TokenKind = iota + 1 // a single character, plain or escaped
	TokenBlock                          // { ... }
	TokenMacroName                      // @name
)

func (k TokenKind) String() string {
	switch k {
	case TokenChar:
		return "character"
	case TokenBlock:
		return "block"
	case TokenMacroName:
		return "macro name"
	default:
		return "unknown"
	}
}

// Token is a single lexical token. Tokens live for one engine iteration.
type Token struct {
	Kind TokenKind
	// Text is the token value: the (unescaped) character for TokenChar,
	// the inner text of a block without its outer braces for TokenBlock,
	// and the name including its leading '@' for TokenMacroName.
	Text string
	// Value is, for TokenBlock, the inner text with '@{', '@}' and '@@'
	// resolved to the bare character. It is what a block outside any
	// invocation contributes to the output.
	Value string
	// Raw is the source text the token was scanned from.
	Raw string
	// Pos is the rune offset of the token start in the buffer.
	Pos int
}

// Arg returns the text a token contributes when it is passed as a macro
// argument. Escaped characters keep their escape so the value survives
// being spliced back into the buffer and rescanned.
func (t *Token) Arg() string {
	if t.Kind == TokenChar {
		return t.Raw
	}
	return t.Text
}

func (t *Token) String() string {
	return fmt.Sprintf("%s(%s)@%d", t.Kind, strconv.Quote(t.Raw), t.Pos)
}

package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tt "github.com/gnolang/jmp/internal/types"
)

func scanAll(t *testing.T, input string, mode SpaceMode) []*Token {
	t.Helper()
	s := New(NewBuffer(input))
	s.SetMode(mode)

	var tokens []*Token
	for {
		tok, err := s.Next()
		require.NoError(t, err)
		if tok == nil {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

func TestScanner_Tokens(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  []Token
	}{
		{
			name:  "plain characters",
			input: "ab",
			want: []Token{
				{Kind: TokenChar, Text: "a", Raw: "a", Pos: 0},
				{Kind: TokenChar, Text: "b", Raw: "b", Pos: 1},
			},
		},
		{
			name:  "escapes",
			input: "@@@{@}@$",
			want: []Token{
				{Kind: TokenChar, Text: "@", Raw: "@@", Pos: 0},
				{Kind: TokenChar, Text: "{", Raw: "@{", Pos: 2},
				{Kind: TokenChar, Text: "}", Raw: "@}", Pos: 4},
				{Kind: TokenChar, Text: "$", Raw: "@$", Pos: 6},
			},
		},
		{
			name:  "macro name ends at non-name character",
			input: "@foo_1+",
			want: []Token{
				{Kind: TokenMacroName, Text: "@foo_1", Raw: "@foo_1", Pos: 0},
				{Kind: TokenChar, Text: "+", Raw: "+", Pos: 6},
			},
		},
		{
			name:  "macro name at end of input",
			input: "@x",
			want: []Token{
				{Kind: TokenMacroName, Text: "@x", Raw: "@x", Pos: 0},
			},
		},
		{
			name:  "adjacent macro names",
			input: "@a@b",
			want: []Token{
				{Kind: TokenMacroName, Text: "@a", Raw: "@a", Pos: 0},
				{Kind: TokenMacroName, Text: "@b", Raw: "@b", Pos: 2},
			},
		},
		{
			name:  "nested block",
			input: "{A{x}B}c",
			want: []Token{
				{Kind: TokenBlock, Text: "A{x}B", Value: "A{x}B", Raw: "{A{x}B}", Pos: 0},
				{Kind: TokenChar, Text: "c", Raw: "c", Pos: 7},
			},
		},
		{
			name:  "escaped braces do not change depth",
			input: "{a@}b@{}",
			want: []Token{
				{Kind: TokenBlock, Text: "a@}b@{", Value: "a}b{", Raw: "{a@}b@{}", Pos: 0},
			},
		},
		{
			name:  "other at-sequences inside a block are verbatim",
			input: "{@m $x @@}",
			want: []Token{
				{Kind: TokenBlock, Text: "@m $x @@", Value: "@m $x @", Raw: "{@m $x @@}", Pos: 0},
			},
		},
		{
			name:  "empty block",
			input: "{}",
			want: []Token{
				{Kind: TokenBlock, Text: "", Value: "", Raw: "{}", Pos: 0},
			},
		},
		{
			name:  "whitespace is kept in accept mode",
			input: "a b",
			want: []Token{
				{Kind: TokenChar, Text: "a", Raw: "a", Pos: 0},
				{Kind: TokenChar, Text: " ", Raw: " ", Pos: 1},
				{Kind: TokenChar, Text: "b", Raw: "b", Pos: 2},
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := scanAll(t, tc.input, SpacesAccept)
			require.Len(t, got, len(tc.want))
			for i := range tc.want {
				assert.Equal(t, tc.want[i], *got[i], "token %d", i)
			}
		})
	}
}

func TestScanner_IgnoreSpaces(t *testing.T) {
	t.Parallel()
	got := scanAll(t, " a \t\n{ b }  ", SpacesIgnore)

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Text)
	assert.Equal(t, 1, got[0].Pos)
	assert.Equal(t, TokenBlock, got[1].Kind)
	assert.Equal(t, " b ", got[1].Text)
}

func TestScanner_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		input      string
		wantKind   error
		wantOffset int
	}{
		{
			name:       "bare closing brace",
			input:      "ab}",
			wantKind:   tt.ErrIllegalCharSequence,
			wantOffset: 2,
		},
		{
			name:       "bare dollar",
			input:      "$x",
			wantKind:   tt.ErrIllegalCharSequence,
			wantOffset: 0,
		},
		{
			name:       "unknown escape",
			input:      "x@!",
			wantKind:   tt.ErrIllegalCharSequence,
			wantOffset: 1,
		},
		{
			name:       "at sign at end of input",
			input:      "@",
			wantKind:   tt.ErrIllegalCharSequence,
			wantOffset: 0,
		},
		{
			name:       "unterminated block",
			input:      "{body",
			wantKind:   tt.ErrBlockNotClosed,
			wantOffset: 0,
		},
		{
			name:       "unterminated nested block",
			input:      "x{a{b}",
			wantKind:   tt.ErrBlockNotClosed,
			wantOffset: 1,
		},
		{
			name:       "escape at end of block",
			input:      "{a@",
			wantKind:   tt.ErrBlockNotClosed,
			wantOffset: 0,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := New(NewBuffer(tc.input))

			var err error
			for {
				var tok *Token
				tok, err = s.Next()
				if err != nil || tok == nil {
					break
				}
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantKind)
			assert.ErrorIs(t, err, tt.ErrSyntax)

			var e *tt.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tc.wantOffset, e.Offset)
		})
	}
}

func TestScanner_NextArgumentSkipsSpaces(t *testing.T) {
	t.Parallel()
	s := New(NewBuffer("@def  @m \n{$x}   "))

	tok, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "@def", tok.Text)

	tok, err = s.NextArgument()
	require.NoError(t, err)
	assert.Equal(t, TokenMacroName, tok.Kind)
	assert.Equal(t, "@m", tok.Text)

	tok, err = s.NextArgument()
	require.NoError(t, err)
	assert.Equal(t, TokenBlock, tok.Kind)
	assert.Equal(t, "$x", tok.Text)

	tok, err = s.NextArgument()
	require.NoError(t, err)
	assert.Nil(t, tok)
}

func TestToken_Arg(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "@{", (&Token{Kind: TokenChar, Text: "{", Raw: "@{"}).Arg())
	assert.Equal(t, "x", (&Token{Kind: TokenChar, Text: "x", Raw: "x"}).Arg())
	assert.Equal(t, "in{ner}", (&Token{Kind: TokenBlock, Text: "in{ner}", Raw: "{in{ner}}"}).Arg())
	assert.Equal(t, "@m", (&Token{Kind: TokenMacroName, Text: "@m", Raw: "@m"}).Arg())
}

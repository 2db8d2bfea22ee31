/*
Package scanner provides the mutable text buffer and the character-level
scanner of the macro processor.

# Buffer

A Buffer owns the text and a read cursor. Besides reading it supports a
checkpoint (Mark/Restore) and in-place replacement of a span (Splice).
The engine uses the three together for every expansion:

	from := buf.Mark()             // before scanning the invocation
	... scan name and arguments ...
	buf.Splice(expansion, from, buf.Pos())
	buf.Restore()                  // cursor back to from

so the expansion text is scanned again from its first character.

# Tokens

The scanner produces three kinds of tokens:

  - TokenChar: one character. Either a plain character or one of the
    escapes "@@", "@{", "@}" and "@$".

  - TokenBlock: a brace-delimited, nestable block. Inside a block "@{",
    "@}" and "@@" do not count as braces; every other "@x" is plain text.
    The token text is the inner content, escapes included.

  - TokenMacroName: "@" followed by letters, digits and underscores.

A bare '}' or '$' outside a block is an error, as is an '@' followed by
anything not listed above.

# Whitespace

In SpacesIgnore mode whitespace between tokens is dropped. Whitespace inside
blocks is always kept.
*/
package scanner

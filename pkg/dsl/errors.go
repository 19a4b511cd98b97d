package dsl

import "fmt"

// Pos is a position in DSL source. Line and Col are 1-based; Offset is a
// 0-based byte offset.
type Pos struct {
	Offset int
	Line   int
	Col    int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// SyntaxError reports source text that does not match the grammar.
type SyntaxError struct {
	Pos Pos
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %s: %s", e.Pos, e.Msg)
}

// SemanticError reports a well-formed statement whose tokens cannot be
// typed, such as a duplicate name or an invalid operation.
type SemanticError struct {
	Pos Pos
	Msg string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("semantic error at %s: %s", e.Pos, e.Msg)
}

func syntaxErrorf(pos Pos, format string, args ...any) *SyntaxError {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func semanticErrorf(pos Pos, format string, args ...any) *SemanticError {
	return &SemanticError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

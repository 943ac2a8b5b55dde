// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package query

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TokenKind classifies one scanned token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenKey
	TokenOperator
	TokenLParen
	TokenRParen
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "end of query"
	case TokenKey:
		return "key"
	case TokenOperator:
		return "operator"
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	default:
		return "unknown"
	}
}

// Token is one lexical unit. For TokenOperator, Text holds the canonical
// operator keyword regardless of whether the source used the keyword or
// its symbol form.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
}

// Scanner splits a query string into tokens.
//
// Key literals are either bare words (any run of characters excluding
// whitespace, parentheses and operator symbols) or double-quoted strings
// with backslash escapes for keys that contain reserved characters.
// A bare word matching an operator keyword scans as that operator.
type Scanner struct {
	input string
	pos   int
}

// NewScanner returns a scanner over input.
func NewScanner(input string) *Scanner {
	return &Scanner{input: input}
}

// Next returns the next token, or a lexical error with its position.
func (s *Scanner) Next() (Token, error) {
	s.skipSpace()
	start := s.pos
	if s.pos >= len(s.input) {
		return Token{Kind: TokenEOF, Pos: start}, nil
	}

	r, size := utf8.DecodeRuneInString(s.input[s.pos:])
	switch {
	case r == '(':
		s.pos += size
		return Token{Kind: TokenLParen, Text: "(", Pos: start}, nil
	case r == ')':
		s.pos += size
		return Token{Kind: TokenRParen, Text: ")", Pos: start}, nil
	case r == '"':
		return s.scanQuoted(start)
	default:
		if name, ok := operatorSymbols[r]; ok {
			s.pos += size
			return Token{Kind: TokenOperator, Text: name, Pos: start}, nil
		}
		return s.scanWord(start), nil
	}
}

func (s *Scanner) skipSpace() {
	for s.pos < len(s.input) {
		switch s.input[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

func (s *Scanner) scanWord(start int) Token {
	for s.pos < len(s.input) {
		r, size := utf8.DecodeRuneInString(s.input[s.pos:])
		if r == '(' || r == ')' || r == '"' || isSpace(r) {
			break
		}
		if _, ok := operatorSymbols[r]; ok {
			break
		}
		s.pos += size
	}
	word := s.input[start:s.pos]
	if op, ok := operators[word]; ok {
		return Token{Kind: TokenOperator, Text: op.Name, Pos: start}
	}
	return Token{Kind: TokenKey, Text: word, Pos: start}
}

func (s *Scanner) scanQuoted(start int) (Token, error) {
	var b strings.Builder
	s.pos++ // opening quote
	for s.pos < len(s.input) {
		r, size := utf8.DecodeRuneInString(s.input[s.pos:])
		s.pos += size
		switch r {
		case '"':
			return Token{Kind: TokenKey, Text: b.String(), Pos: start}, nil
		case '\\':
			if s.pos >= len(s.input) {
				return Token{}, fmt.Errorf("unterminated escape at position %d", s.pos-size)
			}
			next, nextSize := utf8.DecodeRuneInString(s.input[s.pos:])
			s.pos += nextSize
			b.WriteRune(next)
		default:
			b.WriteRune(r)
		}
	}
	return Token{}, fmt.Errorf("unterminated quoted key starting at position %d", start)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

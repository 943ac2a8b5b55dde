// Copyright (C) 2025 Driftline Systems (eng@driftline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package query

import (
	"errors"
	"fmt"
)

// ErrParse wraps every lexical or grammatical failure. Callers surface it
// as an invalid-argument condition; the store is never touched for a
// query that fails to parse.
var ErrParse = errors.New("query parse error")

// Parse scans and parses a query into its tree.
//
// Grammar, single pass, operators left-associative at equal precedence:
//
//	expr := term { OP term }
//	term := KEY | '(' expr ')'
//
// Every failure is wrapped in ErrParse with the offending position.
func Parse(input string) (Node, error) {
	p := &parser{scanner: NewScanner(input)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	root, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != TokenEOF {
		return nil, fmt.Errorf("%w: unexpected %s %q at position %d",
			ErrParse, p.tok.Kind, p.tok.Text, p.tok.Pos)
	}
	return root, nil
}

type parser struct {
	scanner *Scanner
	tok     Token
}

func (p *parser) advance() error {
	tok, err := p.scanner.Next()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	p.tok = tok
	return nil
}

func (p *parser) parseExpression() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == TokenOperator {
		op := operators[p.tok.Text]
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &OpNode{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (Node, error) {
	switch p.tok.Kind {
	case TokenKey:
		node := &KeyNode{Key: p.tok.Text}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return node, nil
	case TokenLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.tok.Kind != TokenRParen {
			return nil, fmt.Errorf("%w: expected ')' but found %s %q at position %d",
				ErrParse, p.tok.Kind, p.tok.Text, p.tok.Pos)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, fmt.Errorf("%w: expected key or '(' but found %s %q at position %d",
			ErrParse, p.tok.Kind, p.tok.Text, p.tok.Pos)
	}
}

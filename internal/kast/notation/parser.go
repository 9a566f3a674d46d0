package notation

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/gnoswap-labs/kprove/internal/kast"
)

// Parser consumes tokens produced by the lexer and builds a term.
type Parser struct {
	tokens  []Token
	current int
	fresh   int
	sorts   map[string]kast.Sort // declared sort of each annotated variable
}

// NewParser creates a parser over tokens.
func NewParser(tokens []Token) *Parser {
	return &Parser{
		tokens: tokens,
		sorts:  make(map[string]kast.Sort),
	}
}

// ParseTerm parses a term. Sort annotations given on one occurrence of a
// variable apply to all its occurrences.
func ParseTerm(input string) (kast.Term, error) {
	tokens, err := NewLexer(input).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(tokens).Parse()
}

// ParseCondition parses a Bool term and converts it to a condition. The
// empty input is #Top.
func ParseCondition(input string) (kast.Condition, error) {
	if strings.TrimSpace(input) == "" {
		return kast.Top{}, nil
	}
	t, err := ParseTerm(input)
	if err != nil {
		return nil, err
	}
	return kast.BoolPred(t), nil
}

// Parse parses the whole token stream as one term.
func (p *Parser) Parse() (kast.Term, error) {
	t, err := p.parseRewrite()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != TokenEOF {
		return nil, p.unexpected(tok)
	}
	return p.applySorts(t), nil
}

func (p *Parser) applySorts(t kast.Term) kast.Term {
	if len(p.sorts) == 0 {
		return t
	}
	return kast.BottomUp(t, func(x kast.Term) kast.Term {
		if v, ok := x.(kast.Var); ok && v.Sort == "" {
			if s, ok := p.sorts[v.Name]; ok {
				return kast.Var{Name: v.Name, Sort: s}
			}
		}
		return x
	})
}

func (p *Parser) peek() Token {
	if p.current >= len(p.tokens) {
		return Token{Type: TokenEOF, Position: -1}
	}
	return p.tokens[p.current]
}

func (p *Parser) next() Token {
	tok := p.peek()
	if p.current < len(p.tokens) {
		p.current++
	}
	return tok
}

func (p *Parser) isOp(value string) bool {
	tok := p.peek()
	return tok.Type == TokenOp && tok.Value == value
}

func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.next()
	if tok.Type != tt {
		return tok, &SyntaxError{Position: tok.Position, Msg: fmt.Sprintf("expected %s, found %s", tt, tok)}
	}
	return tok, nil
}

func (p *Parser) unexpected(tok Token) error {
	return &SyntaxError{Position: tok.Position, Msg: fmt.Sprintf("unexpected %s", tok)}
}

// parseRewrite: term ( => term )?
func (p *Parser) parseRewrite() (kast.Term, error) {
	lhs, err := p.parseSeq()
	if err != nil {
		return nil, err
	}
	if !p.isOp("=>") {
		return lhs, nil
	}
	p.next()
	rhs, err := p.parseRewrite()
	if err != nil {
		return nil, err
	}
	return kast.Rewrite{LHS: lhs, RHS: rhs}, nil
}

// parseSeq: juxt ( ~> juxt )*
func (p *Parser) parseSeq() (kast.Term, error) {
	first, err := p.parseJuxt()
	if err != nil {
		return nil, err
	}
	items := []kast.Term{first}
	for p.isOp("~>") {
		p.next()
		item, err := p.parseJuxt()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if len(items) == 1 {
		return first, nil
	}
	return kast.NewSeq(items...), nil
}

func (p *Parser) startsTerm() bool {
	switch tok := p.peek(); tok.Type {
	case TokenInt, TokenString, TokenVar, TokenIdent, TokenCellOpen, TokenLParen:
		return true
	case TokenOp:
		return tok.Value == "notBool"
	}
	return false
}

// parseJuxt parses juxtaposed cells or map entries into one collection.
func (p *Parser) parseJuxt() (kast.Term, error) {
	start := p.peek()
	first, err := p.parseMapsTo()
	if err != nil {
		return nil, err
	}
	items := []kast.Term{first}
	for p.startsTerm() {
		item, err := p.parseMapsTo()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if len(items) == 1 {
		return first, nil
	}
	return juxtapose(items, start.Position)
}

func juxtapose(items []kast.Term, pos int) (kast.Term, error) {
	var (
		cells   []kast.Term
		entries []kast.MapEntry
		frame   kast.Term
	)
	for _, it := range items {
		switch x := it.(type) {
		case kast.App:
			if !x.IsCell() {
				return nil, &SyntaxError{Position: pos, Msg: fmt.Sprintf("%s cannot be juxtaposed", x)}
			}
			cells = append(cells, x)
		case kast.Cells:
			cells = append(cells, x.Items...)
			if x.Frame != nil {
				if frame != nil {
					return nil, &SyntaxError{Position: pos, Msg: "more than one frame"}
				}
				frame = x.Frame
			}
		case kast.Map:
			entries = append(entries, x.Entries...)
			if x.Frame != nil {
				if frame != nil {
					return nil, &SyntaxError{Position: pos, Msg: "more than one frame"}
				}
				frame = x.Frame
			}
		case kast.Var:
			if frame != nil {
				return nil, &SyntaxError{Position: pos, Msg: "more than one frame"}
			}
			frame = x
		default:
			return nil, &SyntaxError{Position: pos, Msg: fmt.Sprintf("%s cannot be juxtaposed", it)}
		}
	}
	switch {
	case len(cells) > 0 && len(entries) > 0:
		return nil, &SyntaxError{Position: pos, Msg: "cells and map entries mixed"}
	case len(cells) > 0:
		if v, ok := frame.(kast.Var); ok && v.Sort == "" {
			frame = kast.Var{Name: v.Name, Sort: kast.SortCells}
		}
		return kast.NewCells(cells, frame), nil
	}
	if v, ok := frame.(kast.Var); ok && v.Sort == "" {
		frame = kast.Var{Name: v.Name, Sort: kast.SortMap}
	}
	return kast.NewMap(entries, frame), nil
}

// parseMapsTo: or ( |-> or )?
func (p *Parser) parseMapsTo() (kast.Term, error) {
	key, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.isOp("|->") {
		return key, nil
	}
	p.next()
	value, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	return kast.NewMap([]kast.MapEntry{{Key: key, Value: value}}, nil), nil
}

func (p *Parser) parseOr() (kast.Term, error) {
	return p.parseLeftAssoc(p.parseAnd, "orBool")
}

func (p *Parser) parseAnd() (kast.Term, error) {
	return p.parseLeftAssoc(p.parseNot, "andBool")
}

func (p *Parser) parseNot() (kast.Term, error) {
	if !p.isOp("notBool") {
		return p.parseCompare()
	}
	p.next()
	arg, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	return kast.NewApp(operators["notBool"], arg), nil
}

// parseCompare: additive ( cmp additive )?
func (p *Parser) parseCompare() (kast.Term, error) {
	lhs, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	if tok.Type != TokenOp || !isComparison(tok.Value) {
		return lhs, nil
	}
	p.next()
	rhs, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return kast.NewApp(operators[tok.Value], lhs, rhs), nil
}

func isComparison(op string) bool {
	switch op {
	case "==K", "=/=K", "==Int", "=/=Int", "<Int", "<=Int", ">Int", ">=Int":
		return true
	}
	return false
}

func (p *Parser) parseAdditive() (kast.Term, error) {
	return p.parseLeftAssoc(p.parseMultiplicative, "+Int", "-Int")
}

func (p *Parser) parseMultiplicative() (kast.Term, error) {
	return p.parseLeftAssoc(p.parsePrimary, "*Int", "/Int", "%Int")
}

func (p *Parser) parseLeftAssoc(operand func() (kast.Term, error), ops ...string) (kast.Term, error) {
	lhs, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.Type != TokenOp || !contains(ops, tok.Value) {
			return lhs, nil
		}
		p.next()
		rhs, err := operand()
		if err != nil {
			return nil, err
		}
		lhs = kast.NewApp(operators[tok.Value], lhs, rhs)
	}
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func (p *Parser) parsePrimary() (kast.Term, error) {
	tok := p.next()
	switch tok.Type {
	case TokenInt:
		n, ok := new(big.Int).SetString(tok.Value, 10)
		if !ok {
			return nil, &SyntaxError{Position: tok.Position, Msg: "invalid integer " + tok.Value}
		}
		return kast.BigInt(n), nil
	case TokenString:
		s, err := strconv.Unquote(tok.Value)
		if err != nil {
			return nil, &SyntaxError{Position: tok.Position, Msg: "invalid string " + tok.Value}
		}
		return kast.Str(s), nil
	case TokenVar:
		return p.variable(tok)
	case TokenIdent:
		return p.application(tok)
	case TokenCellOpen:
		return p.parseCell(tok)
	case TokenLParen:
		t, err := p.parseRewrite()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return t, nil
	}
	return nil, p.unexpected(tok)
}

func (p *Parser) variable(tok Token) (kast.Term, error) {
	name, sort, annotated := strings.Cut(tok.Value, ":")
	if name == "_" {
		p.fresh++
		name = fmt.Sprintf("_Gen%d", p.fresh)
	}
	if name == "" || (annotated && sort == "") {
		return nil, &SyntaxError{Position: tok.Position, Msg: "invalid variable " + tok.Value}
	}
	if annotated {
		if prev, ok := p.sorts[name]; ok && prev != kast.Sort(sort) {
			return nil, &SyntaxError{Position: tok.Position, Msg: fmt.Sprintf("variable %s declared with sorts %s and %s", name, prev, sort)}
		}
		p.sorts[name] = kast.Sort(sort)
	}
	return kast.Var{Name: name, Sort: kast.Sort(sort)}, nil
}

func (p *Parser) application(tok Token) (kast.Term, error) {
	switch tok.Value {
	case "true":
		return kast.True, nil
	case "false":
		return kast.False, nil
	case ".K":
		return kast.DotK, nil
	case ".Map":
		return kast.NewMap(nil, nil), nil
	}
	if p.peek().Type != TokenLParen {
		return kast.NewApp(tok.Value), nil
	}
	p.next()
	var args []kast.Term
	if p.peek().Type == TokenRParen {
		p.next()
		return kast.NewApp(tok.Value), nil
	}
	for {
		arg, err := p.parseRewrite()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		sep := p.next()
		if sep.Type == TokenRParen {
			break
		}
		if sep.Type != TokenComma {
			return nil, p.unexpected(sep)
		}
	}
	return kast.NewApp(tok.Value, args...), nil
}

// parseCell parses <c> content [...] </c>. Trailing dots stand for an
// anonymous frame whose sort follows the content.
func (p *Parser) parseCell(open Token) (kast.Term, error) {
	var content kast.Term = kast.DotK
	if p.startsTerm() {
		t, err := p.parseRewrite()
		if err != nil {
			return nil, err
		}
		content = t
	}
	if p.peek().Type == TokenDots {
		p.next()
		content = p.withFrame(content)
	}
	closing, err := p.expect(TokenCellClose)
	if err != nil {
		return nil, err
	}
	if closing.Value != open.Value {
		return nil, &SyntaxError{Position: closing.Position, Msg: fmt.Sprintf("cell %s closed by %s", open.Value, closing.Value)}
	}
	return kast.NewApp(open.Value, content), nil
}

func (p *Parser) withFrame(content kast.Term) kast.Term {
	name := fmt.Sprintf("_DotVar%d", p.fresh)
	p.fresh++
	switch x := content.(type) {
	case kast.Map:
		if x.Frame == nil {
			return kast.NewMap(x.Entries, kast.Var{Name: name, Sort: kast.SortMap})
		}
	case kast.Cells:
		if x.Frame == nil {
			return kast.NewCells(x.Items, kast.Var{Name: name, Sort: kast.SortCells})
		}
	case kast.App:
		if x.IsCell() {
			return kast.NewCells([]kast.Term{x}, kast.Var{Name: name, Sort: kast.SortCells})
		}
	}
	return kast.NewSeq(content, kast.Var{Name: name, Sort: kast.SortK})
}

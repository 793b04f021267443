package rule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quantforge/ruleback/internal/indicator"
	"github.com/quantforge/ruleback/internal/types"
	"github.com/quantforge/ruleback/pkg/errors"
)

// Compile parses rule text into an immutable condition tree. Parsing is
// all-or-nothing: any failure returns a ParseError carrying the offending
// fragment and no partial tree. The optional registry is consulted for
// generic indicator kinds outside the builtin set; a reference to a kind
// neither builtin nor registered is an InvalidRule error at compile time.
func Compile(text string, registry *indicator.Registry) (*Rule, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New(errors.ErrCodeNullInput, "empty rule text")
	}

	p := &parser{
		lex:      newLexer(text),
		input:    text,
		registry: registry,
	}
	p.advance()

	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if p.cur.kind != tokenEOF {
		return nil, p.errorf(p.cur, "unexpected trailing input")
	}

	rule := &Rule{
		Text: text,
		Root: root,
		Keys: p.keys,
	}

	return rule, nil
}

type parser struct {
	lex      *lexer
	input    string
	cur      token
	registry *indicator.Registry
	keys     []indicator.Key
}

func (p *parser) advance() {
	p.cur = p.lex.next()
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	fragment := tok.text
	if tok.kind == tokenEOF {
		fragment = ""
	}

	return errors.Wrap(errors.ErrCodeParse, "rule compilation failed",
		errors.NewParseError(p.input, fragment, tok.pos, fmt.Sprintf(format, args...)))
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	if p.cur.kind != kind {
		return token{}, p.errorf(p.cur, "expected %s", what)
	}

	tok := p.cur
	p.advance()

	return tok, nil
}

// parseExpr parses one condition node: a combinator or a leaf comparison.
func (p *parser) parseExpr() (*Node, error) {
	tok, err := p.expect(tokenIdent, "condition name")
	if err != nil {
		return nil, err
	}

	name := upper(tok.text)

	if _, err := p.expect(tokenLParen, "'('"); err != nil {
		return nil, err
	}

	var node *Node

	switch name {
	case "AND", "OR":
		node, err = p.parseVariadic(name)
	case "NOT":
		node, err = p.parseNot()
	case "CONSECUTIVE", "ANY_OF":
		node, err = p.parseWindowed(name)
	case "ABOVE", "BELOW", "EQUALS", "CROSS_ABOVE", "CROSS_BELOW":
		node, err = p.parseComparison(name)
	case "BETWEEN":
		node, err = p.parseBetween()
	default:
		return nil, p.errorf(tok, "unknown condition %q", tok.text)
	}

	if err != nil {
		return nil, err
	}

	if _, err := p.expect(tokenRParen, "')'"); err != nil {
		return nil, err
	}

	return node, nil
}

func (p *parser) parseVariadic(name string) (*Node, error) {
	kind := NodeAnd
	if name == "OR" {
		kind = NodeOr
	}

	children := []*Node{}

	child, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	children = append(children, child)

	for p.cur.kind == tokenComma {
		p.advance()

		child, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		children = append(children, child)
	}

	if len(children) < 2 {
		return nil, p.errorf(p.cur, "%s requires at least two children", name)
	}

	return &Node{Kind: kind, Children: children}, nil
}

func (p *parser) parseNot() (*Node, error) {
	child, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	return &Node{Kind: NodeNot, Children: []*Node{child}}, nil
}

func (p *parser) parseWindowed(name string) (*Node, error) {
	kind := NodeConsecutive
	if name == "ANY_OF" {
		kind = NodeAnyOf
	}

	child, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(tokenComma, "','"); err != nil {
		return nil, err
	}

	tok, err := p.expect(tokenNumber, "window size")
	if err != nil {
		return nil, err
	}

	window, convErr := strconv.Atoi(tok.text)
	if convErr != nil || window < 1 {
		return nil, p.errorf(tok, "window must be a positive integer")
	}

	return &Node{Kind: kind, Children: []*Node{child}, Window: window}, nil
}

func (p *parser) parseComparison(name string) (*Node, error) {
	kinds := map[string]NodeKind{
		"ABOVE":       NodeAbove,
		"BELOW":       NodeBelow,
		"EQUALS":      NodeEquals,
		"CROSS_ABOVE": NodeCrossAbove,
		"CROSS_BELOW": NodeCrossBelow,
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(tokenComma, "','"); err != nil {
		return nil, err
	}

	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	return &Node{Kind: kinds[name], Left: left, Right: right}, nil
}

func (p *parser) parseBetween() (*Node, error) {
	operand, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(tokenComma, "','"); err != nil {
		return nil, err
	}

	lo, err := p.parseNumber("lower bound")
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(tokenComma, "','"); err != nil {
		return nil, err
	}

	hi, err := p.parseNumber("upper bound")
	if err != nil {
		return nil, err
	}

	if lo > hi {
		return nil, p.errorf(p.cur, "BETWEEN bounds out of order: %g > %g", lo, hi)
	}

	return &Node{Kind: NodeBetween, Left: operand, Lo: lo, Hi: hi}, nil
}

func (p *parser) parseNumber(what string) (float64, error) {
	tok, err := p.expect(tokenNumber, what)
	if err != nil {
		return 0, err
	}

	v, convErr := strconv.ParseFloat(tok.text, 64)
	if convErr != nil {
		return 0, p.errorf(tok, "malformed number")
	}

	return v, nil
}

// parseOperand parses a numeric literal, a raw bar field, or an indicator
// reference.
func (p *parser) parseOperand() (Operand, error) {
	if p.cur.kind == tokenNumber {
		tok := p.cur
		p.advance()

		v, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return Operand{}, p.errorf(tok, "malformed number")
		}

		return Operand{Kind: OperandNumber, Number: v}, nil
	}

	tok, err := p.expect(tokenIdent, "operand")
	if err != nil {
		return Operand{}, err
	}

	name := upper(tok.text)

	switch name {
	case "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME":
		return Operand{Kind: OperandField, Field: types.BarField(strings.ToLower(name))}, nil
	}

	return p.parseIndicatorOperand(tok)
}

// parseIndicatorOperand parses an indicator reference, mapping identifiers
// to (signature, output line). Multi-output kinds expose one identifier per
// line (MACD/MACD_SIGNAL, BB_UPPER/BB_MIDDLE/BB_LOWER, STOCH_K/STOCH_D).
func (p *parser) parseIndicatorOperand(tok token) (Operand, error) {
	params, err := p.parseParamList()
	if err != nil {
		return Operand{}, err
	}

	name := upper(tok.text)

	var (
		key  indicator.Key
		line int
	)

	switch name {
	case "SMA", "EMA", "RSI":
		if len(params) != 1 {
			return Operand{}, p.errorf(tok, "%s requires exactly 1 parameter, got %d", name, len(params))
		}

		key = indicator.Key{Kind: indicator.Kind(strings.ToLower(name)), Params: params}
	case "MACD", "MACD_SIGNAL":
		if len(params) != 3 {
			return Operand{}, p.errorf(tok, "%s requires exactly 3 parameters, got %d", name, len(params))
		}

		key = indicator.Key{Kind: indicator.KindMACD, Params: params}
		if name == "MACD_SIGNAL" {
			line = indicator.LineMACDSignal
		}
	case "BB_UPPER", "BB_MIDDLE", "BB_LOWER":
		if len(params) != 2 {
			return Operand{}, p.errorf(tok, "%s requires exactly 2 parameters, got %d", name, len(params))
		}

		key = indicator.Key{Kind: indicator.KindBollinger, Params: params}

		switch name {
		case "BB_MIDDLE":
			line = indicator.LineBollingerMiddle
		case "BB_LOWER":
			line = indicator.LineBollingerLower
		}
	case "STOCH_K", "STOCH_D":
		if len(params) != 2 {
			return Operand{}, p.errorf(tok, "%s requires exactly 2 parameters, got %d", name, len(params))
		}

		key = indicator.Key{Kind: indicator.KindStochastic, Params: params}
		if name == "STOCH_D" {
			line = indicator.LineStochasticD
		}
	case "PIVOT":
		if len(params) != 0 {
			return Operand{}, p.errorf(tok, "PIVOT takes no parameters, got %d", len(params))
		}

		key = indicator.Key{Kind: indicator.KindPivot}
	default:
		// Generic kind+period dispatch for registered extensions.
		kind := indicator.Kind(strings.ToLower(name))
		if p.registry == nil {
			return Operand{}, errors.Wrap(errors.ErrCodeInvalidRule, "rule references unknown indicator",
				errors.NewParseError(p.input, tok.text, tok.pos, "unknown indicator kind"))
		}

		if _, ok := p.registry.Lookup(kind); !ok {
			return Operand{}, errors.Wrap(errors.ErrCodeInvalidRule, "rule references unknown indicator",
				errors.NewParseError(p.input, tok.text, tok.pos, "unknown indicator kind"))
		}

		if len(params) != 1 {
			return Operand{}, p.errorf(tok, "%s requires exactly 1 parameter, got %d", name, len(params))
		}

		key = indicator.Key{Kind: kind, Params: params}
	}

	p.recordKey(key)

	return Operand{Kind: OperandIndicator, Key: key, Line: line}, nil
}

// parseParamList parses "( num, num, ... )" after an indicator identifier.
func (p *parser) parseParamList() ([]float64, error) {
	if _, err := p.expect(tokenLParen, "'('"); err != nil {
		return nil, err
	}

	params := []float64{}

	if p.cur.kind == tokenRParen {
		p.advance()

		return params, nil
	}

	for {
		v, err := p.parseNumber("indicator parameter")
		if err != nil {
			return nil, err
		}

		params = append(params, v)

		if p.cur.kind != tokenComma {
			break
		}

		p.advance()
	}

	if _, err := p.expect(tokenRParen, "')'"); err != nil {
		return nil, err
	}

	return params, nil
}

// recordKey deduplicates referenced indicator signatures.
func (p *parser) recordKey(key indicator.Key) {
	for _, existing := range p.keys {
		if existing.String() == key.String() {
			return
		}
	}

	p.keys = append(p.keys, key)
}

package expr

import (
	"fmt"
	"strconv"

	"github.com/zoeflow/ragcore/internal/ragerr"
)

// Parser is a recursive-descent parser over the token stream produced by
// Lexer, implementing: orExpr := andExpr (OR andExpr)*; andExpr := notExpr
// (AND notExpr)*; notExpr := NOT notExpr | comparison; comparison :=
// additive (compOp additive)?; additive := multiplicative ((+|-)
// multiplicative)*; multiplicative := unary ((*|/) unary)*; unary :=
// (-|NOT)? postfix; postfix := primary ('.' Ident | '[' orExpr ']')*.
type Parser struct {
	lex  *Lexer
	cur  Token
	peek Token
}

// NewParser returns a parser for input.
func NewParser(input string) *Parser {
	lex := NewLexer(input)
	p := &Parser{lex: lex}
	p.cur = lex.Next()
	p.peek = lex.Next()
	return p
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.lex.Next()
}

func (p *Parser) errf(format string, args ...any) error {
	return ragerr.Newf(ragerr.Validation, "expr: %s at %d:%d", fmt.Sprintf(format, args...), p.cur.Pos.Line, p.cur.Pos.Column)
}

// Parse parses the full expression, failing if trailing tokens remain.
func Parse(input string) (Expr, error) {
	p := NewParser(input)
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != EOF {
		return nil, p.errf("unexpected trailing token %q", p.cur.Literal)
	}
	return e, nil
}

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == Or {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: Or, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == And {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: And, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.cur.Kind == Not {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return Unary{Op: Not, Operand: operand}, nil
	}
	return p.parseComparison()
}

func isCompareOp(k Kind) bool {
	switch k {
	case Eq, Ne, Gt, Ge, Lt, Le:
		return true
	default:
		return false
	}
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if !isCompareOp(p.cur.Kind) {
		return left, nil
	}
	op := p.cur.Kind
	p.next()
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return Binary{Op: op, Left: left, Right: right}, nil
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == Plus || p.cur.Kind == Minus {
		op := p.cur.Kind
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == Star || p.cur.Kind == Slash {
		op := p.cur.Kind
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.cur.Kind == Minus {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Unary{Op: Minus, Operand: operand}, nil
	}
	if p.cur.Kind == Not {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Unary{Op: Not, Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Expr, error) {
	target, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur.Kind {
		case Dot:
			p.next()
			if p.cur.Kind != Ident {
				return nil, p.errf("expected property name after '.', got %q", p.cur.Literal)
			}
			name := p.cur.Literal
			p.next()
			target = Field{Target: target, Name: name}
		case LBracket:
			p.next()
			idx, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if p.cur.Kind != RBracket {
				return nil, p.errf("expected ']', got %q", p.cur.Literal)
			}
			p.next()
			target = Index{Target: target, IndexExpr: idx}
		default:
			return target, nil
		}
	}
}

func (p *Parser) parsePrimary() (Expr, error) {
	switch p.cur.Kind {
	case Ident:
		name := p.cur.Literal
		p.next()
		return Ident{Name: name}, nil
	case String:
		v := p.cur.Literal
		p.next()
		return Literal{Value: v}, nil
	case Number:
		lit := p.cur.Literal
		p.next()
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return nil, p.errf("invalid number %q", lit)
		}
		return Literal{Value: f}, nil
	case Bool:
		v := p.cur.Literal == "true"
		p.next()
		return Literal{Value: v}, nil
	case Null:
		p.next()
		return Literal{Value: nil}, nil
	case LParen:
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.Kind != RParen {
			return nil, p.errf("expected ')'")
		}
		p.next()
		return inner, nil
	default:
		return nil, p.errf("unexpected token %q", p.cur.Literal)
	}
}

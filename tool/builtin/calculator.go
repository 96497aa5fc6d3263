// Package builtin ships the deterministic tool set: a calculator and
// three lookup tools backed by public HTTP APIs. Results get tool-specific
// TTLs — the more volatile the data, the shorter the TTL.
package builtin

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/windmark/prism/tool"
)

// Calculator evaluates arithmetic expressions with the usual precedence
// rules. It is pure, so its results effectively never go stale.
func Calculator() tool.Definition {
	return tool.Must("calculator", runCalculator,
		tool.Description("Evaluates an arithmetic expression with +, -, *, /, ^ and parentheses."),
		tool.Parameters(tool.ObjectSchema(tool.Property{
			Name:        "expression",
			Type:        "string",
			Description: "The arithmetic expression to evaluate.",
			Required:    true,
		})),
		tool.TTL(24*time.Hour),
	)
}

func runCalculator(_ context.Context, args map[string]any) (any, error) {
	expr, _ := args["expression"].(string)
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("expression is required")
	}

	p := &exprParser{input: expr}
	v, err := p.parse()
	if err != nil {
		return nil, err
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

// exprParser is a small recursive-descent evaluator. Precedence, lowest
// first: +- , */ , ^ (right associative), unary minus, parentheses.
type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) parse() (float64, error) {
	v, err := p.sum()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected %q at offset %d", p.input[p.pos], p.pos)
	}
	return v, nil
}

func (p *exprParser) sum() (float64, error) {
	v, err := p.product()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch {
		case p.eat('+'):
			rhs, err := p.product()
			if err != nil {
				return 0, err
			}
			v += rhs
		case p.eat('-'):
			rhs, err := p.product()
			if err != nil {
				return 0, err
			}
			v -= rhs
		default:
			return v, nil
		}
	}
}

func (p *exprParser) product() (float64, error) {
	v, err := p.power()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch {
		case p.eat('*'):
			rhs, err := p.power()
			if err != nil {
				return 0, err
			}
			v *= rhs
		case p.eat('/'):
			rhs, err := p.power()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v /= rhs
		default:
			return v, nil
		}
	}
}

func (p *exprParser) power() (float64, error) {
	v, err := p.unary()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.eat('^') {
		exp, err := p.power()
		if err != nil {
			return 0, err
		}
		return math.Pow(v, exp), nil
	}
	return v, nil
}

func (p *exprParser) unary() (float64, error) {
	p.skipSpaces()
	if p.eat('-') {
		v, err := p.unary()
		return -v, err
	}
	return p.primary()
}

func (p *exprParser) primary() (float64, error) {
	p.skipSpaces()
	if p.eat('(') {
		v, err := p.sum()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if !p.eat(')') {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		return v, nil
	}

	start := p.pos
	for p.pos < len(p.input) {
		c := rune(p.input[p.pos])
		if unicode.IsDigit(c) || c == '.' {
			p.pos++
			continue
		}
		break
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected a number at offset %d", p.pos)
	}
	return strconv.ParseFloat(p.input[start:p.pos], 64)
}

func (p *exprParser) eat(c byte) bool {
	if p.pos < len(p.input) && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

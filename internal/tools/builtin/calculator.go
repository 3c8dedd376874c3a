package builtin

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/adpilot-ai/adpilot/internal/fault"
	"github.com/adpilot-ai/adpilot/internal/tools"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

func calculatorDescriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "calculator",
		Description: "Evaluate an arithmetic expression. Supports + - * / % ^ and parentheses.",
		Category:    models.CategoryBuiltin,
		Parameters: []models.ParamSpec{
			{Name: "expression", Type: models.ParamString, Required: true,
				Description: "Expression to evaluate, e.g. (120 * 0.85) + 40."},
		},
		Returns: "The numeric result.",
	}
}

func calculatorHandler(_ context.Context, params map[string]any, _ tools.Context) (any, error) {
	expr, _ := params["expression"].(string)
	result, err := evalExpression(expr)
	if err != nil {
		return nil, err
	}
	return map[string]any{"expression": expr, "result": result}, nil
}

// evalExpression evaluates an infix arithmetic expression by recursive
// descent. Grammar, loosest binding first:
//
//	expr    = term   { ("+" | "-") term }
//	term    = unary  { ("*" | "/" | "%") unary }
//	unary   = "-" unary | power
//	power   = primary [ "^" unary ]          (right associative)
//	primary = number | "(" expr ")"
func evalExpression(expr string) (float64, error) {
	p := &exprParser{input: strings.TrimSpace(expr)}
	if p.input == "" {
		return 0, fault.New(fault.CodeValidation, "empty expression")
	}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return 0, fault.Newf(fault.CodeValidation, "unexpected %q at position %d", string(p.input[p.pos]), p.pos)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fault.New(fault.CodeValidation, "result is not a finite number")
	}
	return v, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' && op != '%' {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		switch op {
		case '*':
			left *= right
		case '/':
			if right == 0 {
				return 0, fault.New(fault.CodeValidation, "division by zero")
			}
			left /= right
		case '%':
			if right == 0 {
				return 0, fault.New(fault.CodeValidation, "division by zero")
			}
			left = math.Mod(left, right)
		}
	}
}

func (p *exprParser) parseUnary() (float64, error) {
	if p.peek() == '-' {
		p.pos++
		v, err := p.parseUnary()
		return -v, err
	}
	return p.parsePower()
}

func (p *exprParser) parsePower() (float64, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return 0, err
	}
	if p.peek() != '^' {
		return base, nil
	}
	p.pos++
	exp, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	return math.Pow(base, exp), nil
}

func (p *exprParser) parsePrimary() (float64, error) {
	c := p.peek()
	switch {
	case c == '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fault.New(fault.CodeValidation, "unbalanced parentheses")
		}
		p.pos++
		return v, nil
	case c >= '0' && c <= '9' || c == '.':
		start := p.pos
		for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
			p.pos++
		}
		v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
		if err != nil {
			return 0, fault.Newf(fault.CodeValidation, "bad number %q", p.input[start:p.pos])
		}
		return v, nil
	case c == 0:
		return 0, fault.New(fault.CodeValidation, "unexpected end of expression")
	default:
		return 0, fault.Newf(fault.CodeValidation, "unexpected %q at position %d", string(c), p.pos)
	}
}

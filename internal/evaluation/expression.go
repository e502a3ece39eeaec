package evaluation

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
	"strings"
)

// Placeholders usable in limit expressions.
const (
	// PlaceholderMean is the mean of the bound histogram.
	PlaceholderMean = "MEAN"
	// PlaceholderRMS is the RMS of the bound histogram.
	PlaceholderRMS = "RMS"
	// PlaceholderEntries is the number of entries of the bound histogram.
	PlaceholderEntries = "ENTRIES"
)

var (
	// errExpression is returned for unparsable or unsupported expressions.
	errExpression = errors.New("invalid limit expression")
	// errDivisionByZero is returned when an expression divides by zero.
	errDivisionByZero = errors.New("division by zero")
)

// Resolver returns the value of a placeholder.
type Resolver func(name string) (float64, error)

// Expression is a parsed limit: a number or arithmetic over placeholders.
type Expression struct {
	// text is the source text.
	text string
	// root is the parsed tree.
	root ast.Expr
}

// ParseExpression parses text. Placeholders are case-insensitive; only
// numbers, + - * /, unary minus and parentheses are accepted.
func ParseExpression(text string) (Expression, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Expression{}, fmt.Errorf("%w: empty", errExpression)
	}

	root, err := parser.ParseExpr(trimmed)
	if err != nil {
		return Expression{}, fmt.Errorf("%w %q: %w", errExpression, text, err)
	}

	if err = check(root); err != nil {
		return Expression{}, fmt.Errorf("%w %q: %w", errExpression, text, err)
	}

	return Expression{text: trimmed, root: root}, nil
}

// String returns the source text.
func (e Expression) String() string {
	return e.text
}

// Placeholders returns the placeholder names used, upper-cased.
func (e Expression) Placeholders() []string {
	var names []string

	ast.Inspect(e.root, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok {
			names = append(names, strings.ToUpper(id.Name))
		}

		return true
	})

	return names
}

// Eval computes the expression.
func (e Expression) Eval(resolve Resolver) (float64, error) {
	if e.root == nil {
		return 0, fmt.Errorf("%w: empty", errExpression)
	}

	return eval(e.root, resolve)
}

// check rejects nodes outside the supported grammar.
func check(node ast.Expr) error {
	switch n := node.(type) {
	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return fmt.Errorf("unsupported literal %s", n.Value)
		}
	case *ast.Ident:
		switch strings.ToUpper(n.Name) {
		case PlaceholderMean, PlaceholderRMS, PlaceholderEntries:
		default:
			return fmt.Errorf("unknown placeholder %s", n.Name)
		}
	case *ast.ParenExpr:
		return check(n.X)
	case *ast.UnaryExpr:
		if n.Op != token.SUB && n.Op != token.ADD {
			return fmt.Errorf("unsupported operator %s", n.Op)
		}

		return check(n.X)
	case *ast.BinaryExpr:
		switch n.Op {
		case token.ADD, token.SUB, token.MUL, token.QUO:
		default:
			return fmt.Errorf("unsupported operator %s", n.Op)
		}

		if err := check(n.X); err != nil {
			return err
		}

		return check(n.Y)
	default:
		return fmt.Errorf("unsupported syntax %T", node)
	}

	return nil
}

// eval walks a checked tree.
func eval(node ast.Expr, resolve Resolver) (float64, error) {
	switch n := node.(type) {
	case *ast.BasicLit:
		return parseNumber(n)
	case *ast.Ident:
		if resolve == nil {
			return 0, fmt.Errorf("%w: no value for %s", errExpression, n.Name)
		}

		return resolve(strings.ToUpper(n.Name))
	case *ast.ParenExpr:
		return eval(n.X, resolve)
	case *ast.UnaryExpr:
		v, err := eval(n.X, resolve)
		if err != nil {
			return 0, err
		}

		if n.Op == token.SUB {
			return -v, nil
		}

		return v, nil
	case *ast.BinaryExpr:
		x, err := eval(n.X, resolve)
		if err != nil {
			return 0, err
		}

		y, err := eval(n.Y, resolve)
		if err != nil {
			return 0, err
		}

		return binary(n.Op, x, y)
	default:
		return 0, fmt.Errorf("%w: unsupported syntax %T", errExpression, node)
	}
}

// parseNumber reads an INT or FLOAT literal. Digit separators are dropped;
// integers may carry a 0x, 0o or 0b prefix and a plain leading zero stays
// decimal.
func parseNumber(lit *ast.BasicLit) (float64, error) {
	text := strings.ReplaceAll(lit.Value, "_", "")

	if lit.Kind == token.INT && strings.IndexFunc(text, notDigit) >= 0 {
		i, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", errExpression, err)
		}

		return float64(i), nil
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errExpression, err)
	}

	return v, nil
}

func notDigit(r rune) bool {
	return r < '0' || r > '9'
}

// binary applies an arithmetic operator.
func binary(op token.Token, x, y float64) (float64, error) {
	switch op {
	case token.ADD:
		return x + y, nil
	case token.SUB:
		return x - y, nil
	case token.MUL:
		return x * y, nil
	case token.QUO:
		if y == 0 {
			return math.NaN(), errDivisionByZero
		}

		return x / y, nil
	default:
		return 0, fmt.Errorf("%w: unsupported operator %s", errExpression, op)
	}
}

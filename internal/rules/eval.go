package rules

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"sort"
	"strconv"
)

// Python-style boolean spellings in rule files are rewritten before
// parsing so existing rules.yaml entries keep working.
var (
	andRe = regexp.MustCompile(`\band\b`)
	orRe  = regexp.MustCompile(`\bor\b`)
	notRe = regexp.MustCompile(`\bnot\b`)
)

var helperNames = map[string]bool{
	"cross_up": true,
	"pct":      true,
	"true":     true,
	"false":    true,
	"True":     true,
	"False":    true,
}

func normalize(expr string) string {
	expr = andRe.ReplaceAllString(expr, "&&")
	expr = orRe.ReplaceAllString(expr, "||")
	expr = notRe.ReplaceAllString(expr, "!")
	return expr
}

// value is the result of evaluating a sub-expression: a number or a bool.
type value struct {
	num    float64
	truth  bool
	isBool bool
}

func numValue(f float64) value { return value{num: f} }
func boolValue(b bool) value   { return value{truth: b, isBool: true} }

func (v value) asBool() bool {
	if v.isBool {
		return v.truth
	}
	return v.num != 0
}

// Eval evaluates a rule expression against the context and returns
// whether it passed. The grammar is restricted to numeric literals,
// context identifiers, comparisons, boolean operators, basic
// arithmetic, parentheses and the helpers cross_up(a, b) and
// pct(a, b). Anything else is an error.
func Eval(expr string, ctx *Context) (bool, error) {
	node, err := parser.ParseExpr(normalize(expr))
	if err != nil {
		return false, fmt.Errorf("failed to parse rule %q: %w", expr, err)
	}
	v, err := eval(node, ctx)
	if err != nil {
		return false, err
	}
	return v.asBool(), nil
}

// NamesRequired returns the identifiers a rule references, excluding
// helper functions and boolean literals, sorted and deduplicated.
func NamesRequired(expr string) ([]string, error) {
	node, err := parser.ParseExpr(normalize(expr))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rule %q: %w", expr, err)
	}

	seen := map[string]bool{}
	ast.Inspect(node, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok && !helperNames[id.Name] {
			seen[id.Name] = true
		}
		return true
	})

	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names, nil
}

func eval(node ast.Expr, ctx *Context) (value, error) {
	switch n := node.(type) {
	case *ast.ParenExpr:
		return eval(n.X, ctx)

	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return value{}, fmt.Errorf("unsupported literal %s", n.Value)
		}
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return value{}, fmt.Errorf("bad numeric literal %q: %w", n.Value, err)
		}
		return numValue(f), nil

	case *ast.Ident:
		switch n.Name {
		case "true", "True":
			return boolValue(true), nil
		case "false", "False":
			return boolValue(false), nil
		}
		v, ok := ctx.Value(n.Name)
		if !ok {
			return value{}, fmt.Errorf("unknown identifier %q", n.Name)
		}
		return numValue(v), nil

	case *ast.UnaryExpr:
		return evalUnary(n, ctx)

	case *ast.BinaryExpr:
		return evalBinary(n, ctx)

	case *ast.CallExpr:
		return evalCall(n, ctx)

	default:
		return value{}, fmt.Errorf("unsupported expression %T", node)
	}
}

func evalUnary(n *ast.UnaryExpr, ctx *Context) (value, error) {
	v, err := eval(n.X, ctx)
	if err != nil {
		return value{}, err
	}
	switch n.Op {
	case token.NOT:
		return boolValue(!v.asBool()), nil
	case token.SUB:
		if v.isBool {
			return value{}, fmt.Errorf("cannot negate a boolean")
		}
		return numValue(-v.num), nil
	case token.ADD:
		if v.isBool {
			return value{}, fmt.Errorf("cannot apply unary plus to a boolean")
		}
		return v, nil
	default:
		return value{}, fmt.Errorf("unsupported unary operator %s", n.Op)
	}
}

func evalBinary(n *ast.BinaryExpr, ctx *Context) (value, error) {
	// Boolean operators short-circuit.
	switch n.Op {
	case token.LAND:
		l, err := eval(n.X, ctx)
		if err != nil {
			return value{}, err
		}
		if !l.asBool() {
			return boolValue(false), nil
		}
		r, err := eval(n.Y, ctx)
		if err != nil {
			return value{}, err
		}
		return boolValue(r.asBool()), nil

	case token.LOR:
		l, err := eval(n.X, ctx)
		if err != nil {
			return value{}, err
		}
		if l.asBool() {
			return boolValue(true), nil
		}
		r, err := eval(n.Y, ctx)
		if err != nil {
			return value{}, err
		}
		return boolValue(r.asBool()), nil
	}

	l, err := evalNum(n.X, ctx)
	if err != nil {
		return value{}, err
	}
	r, err := evalNum(n.Y, ctx)
	if err != nil {
		return value{}, err
	}

	switch n.Op {
	case token.EQL:
		return boolValue(l == r), nil
	case token.NEQ:
		return boolValue(l != r), nil
	case token.LSS:
		return boolValue(l < r), nil
	case token.LEQ:
		return boolValue(l <= r), nil
	case token.GTR:
		return boolValue(l > r), nil
	case token.GEQ:
		return boolValue(l >= r), nil
	case token.ADD:
		return numValue(l + r), nil
	case token.SUB:
		return numValue(l - r), nil
	case token.MUL:
		return numValue(l * r), nil
	case token.QUO:
		if r == 0 {
			return value{}, fmt.Errorf("division by zero")
		}
		return numValue(l / r), nil
	default:
		return value{}, fmt.Errorf("unsupported operator %s", n.Op)
	}
}

func evalNum(node ast.Expr, ctx *Context) (float64, error) {
	v, err := eval(node, ctx)
	if err != nil {
		return 0, err
	}
	if v.isBool {
		return 0, fmt.Errorf("expected a number, got a boolean")
	}
	return v.num, nil
}

func evalCall(call *ast.CallExpr, ctx *Context) (value, error) {
	ident, ok := call.Fun.(*ast.Ident)
	if !ok {
		return value{}, fmt.Errorf("unsupported call expression")
	}

	switch ident.Name {
	case "cross_up":
		if len(call.Args) != 2 {
			return value{}, fmt.Errorf("cross_up expects 2 arguments, got %d", len(call.Args))
		}
		a, err := seriesArg(call.Args[0], ctx)
		if err != nil {
			return value{}, err
		}
		b, err := seriesArg(call.Args[1], ctx)
		if err != nil {
			return value{}, err
		}
		return boolValue(crossUp(a, b)), nil

	case "pct":
		if len(call.Args) != 2 {
			return value{}, fmt.Errorf("pct expects 2 arguments, got %d", len(call.Args))
		}
		a, err := evalNum(call.Args[0], ctx)
		if err != nil {
			return value{}, err
		}
		b, err := evalNum(call.Args[1], ctx)
		if err != nil {
			return value{}, err
		}
		if b == 0 {
			return value{}, fmt.Errorf("pct division by zero")
		}
		return numValue((a - b) / b), nil

	default:
		return value{}, fmt.Errorf("unknown function %q", ident.Name)
	}
}

func seriesArg(arg ast.Expr, ctx *Context) ([]float64, error) {
	ident, ok := arg.(*ast.Ident)
	if !ok {
		return nil, fmt.Errorf("cross_up arguments must be series names")
	}
	s, ok := ctx.Series(ident.Name)
	if !ok {
		return nil, fmt.Errorf("unknown series %q", ident.Name)
	}
	return s, nil
}

// crossUp reports whether a crossed above b at the newest bar.
func crossUp(a, b []float64) bool {
	if len(a) < 2 || len(b) < 2 {
		return false
	}
	la, pa := a[len(a)-1], a[len(a)-2]
	lb, pb := b[len(b)-1], b[len(b)-2]
	return la > lb && pa <= pb
}

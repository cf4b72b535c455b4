package assist

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/tools"
)

var calculator tools.Tool = tools.Calculator{}

var (
	implicitMul = regexp.MustCompile(`(\d)\s*([a-zA-Z(])`)
	parenMul    = regexp.MustCompile(`\)\s*([0-9a-zA-Z(])`)
	power       = regexp.MustCompile(`(\w+(?:\.\d+)?|\([^()]*\))\s*\^\s*(\w+(?:\.\d+)?|\([^()]*\))`)
	identifier  = regexp.MustCompile(`[a-zA-Z_]\w*`)
)

var mathFuncs = map[string]bool{
	"sqrt": true, "pow": true, "sin": true, "cos": true, "tan": true,
	"log": true, "exp": true, "abs": true, "floor": true, "ceil": true,
	"pi": true, "e": true,
}

// normalizeExpr rewrites common notation into a form the calculator accepts.
func normalizeExpr(s string) string {
	s = strings.NewReplacer("×", "*", "·", "*", "÷", "/", "−", "-", "$", "", "\\cdot", "*", "\\times", "*").Replace(s)
	s = power.ReplaceAllString(s, "pow($1, $2)")
	s = implicitMul.ReplaceAllString(s, "$1*$2")
	s = parenMul.ReplaceAllString(s, ")*$1")
	return strings.TrimSpace(s)
}

// unknown returns the single-letter variable in expr, if any.
func unknown(expr string) string {
	for _, id := range identifier.FindAllString(expr, -1) {
		if len(id) == 1 && !mathFuncs[id] {
			return id
		}
	}
	return ""
}

func evaluate(ctx context.Context, expr string) (float64, error) {
	out, err := calculator.Call(ctx, expr)
	if err != nil {
		return 0, err
	}
	out = strings.TrimSpace(out)
	if strings.HasPrefix(out, "error") {
		return 0, errors.New(out)
	}
	v, err := strconv.ParseFloat(out, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", out)
	}
	return v, nil
}

func formatNum(v float64) string {
	r := math.Round(v*1e9) / 1e9
	if r == 0 {
		r = 0 // no "-0"
	}
	return strconv.FormatFloat(r, 'g', -1, 64)
}

// solveExpression evaluates an arithmetic expression or solves a linear or
// quadratic equation in one unknown. The result is step-by-step markdown with
// LaTeX math.
func solveExpression(ctx context.Context, problem string) (string, error) {
	expr := normalizeExpr(problem)
	if expr == "" {
		return "", errors.New("empty expression")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Problem:** $%s$\n\n", strings.TrimSpace(problem))

	lhs, rhs, isEquation := strings.Cut(expr, "=")
	lhs, rhs = strings.TrimSpace(lhs), strings.TrimSpace(rhs)
	if strings.Contains(rhs, "=") {
		return "", errors.New("more than one '=' in equation")
	}

	if !isEquation {
		v, err := evaluate(ctx, expr)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "**Step 1.** Apply the order of operations: parentheses, powers, multiplication and division, then addition and subtraction.\n\n")
		fmt.Fprintf(&b, "$$%s = %s$$\n\n", expr, formatNum(v))
		fmt.Fprintf(&b, "**Answer:** $\\boxed{%s}$", formatNum(v))
		return b.String(), nil
	}

	x := unknown(expr)
	if x == "" {
		l, err := evaluate(ctx, lhs)
		if err != nil {
			return "", err
		}
		r, err := evaluate(ctx, rhs)
		if err != nil {
			return "", err
		}
		verdict := "true"
		if math.Abs(l-r) > 1e-9 {
			verdict = "false"
		}
		fmt.Fprintf(&b, "**Step 1.** Evaluate both sides: the left side is $%s$ and the right side is $%s$.\n\n", formatNum(l), formatNum(r))
		fmt.Fprintf(&b, "**Answer:** $\\boxed{\\text{%s}}$", verdict)
		return b.String(), nil
	}

	// f(t) = lhs - rhs with the unknown replaced by t.
	varRe := regexp.MustCompile(`\b` + x + `\b`)
	f := func(t int) (float64, error) {
		e := varRe.ReplaceAllString("("+lhs+")-("+rhs+")", "("+strconv.Itoa(t)+")")
		return evaluate(ctx, e)
	}
	var fs [4]float64
	for t := range fs {
		v, err := f(t)
		if err != nil {
			return "", err
		}
		fs[t] = v
	}

	a := (fs[2] - 2*fs[1] + fs[0]) / 2
	bc := fs[1] - fs[0] - a
	c := fs[0]
	if math.Abs(9*a+3*bc+c-fs[3]) > 1e-6 {
		return "", fmt.Errorf("only linear and quadratic equations in %s are supported", x)
	}

	fmt.Fprintf(&b, "**Step 1.** Move every term to one side: $(%s) - (%s) = 0$.\n\n", lhs, rhs)

	if math.Abs(a) < 1e-12 {
		if math.Abs(bc) < 1e-12 {
			if math.Abs(c) < 1e-12 {
				fmt.Fprintf(&b, "**Step 2.** Every term cancels, so the equation holds for all $%s$.\n\n", x)
				fmt.Fprintf(&b, "**Answer:** $\\boxed{%s \\in \\mathbb{R}}$", x)
			} else {
				fmt.Fprintf(&b, "**Step 2.** The unknown cancels, leaving $%s = 0$, which is false.\n\n", formatNum(c))
				fmt.Fprintf(&b, "**Answer:** $\\boxed{\\text{no solution}}$")
			}
			return b.String(), nil
		}
		root := -c / bc
		fmt.Fprintf(&b, "**Step 2.** Collect like terms: $%s%s %s = 0$.\n\n", formatNum(bc), x, signed(c))
		fmt.Fprintf(&b, "**Step 3.** Isolate $%s$ by dividing by $%s$.\n\n", x, formatNum(bc))
		fmt.Fprintf(&b, "$$%s = %s$$\n\n", x, formatNum(root))
		fmt.Fprintf(&b, "**Answer:** $\\boxed{%s = %s}$", x, formatNum(root))
		return b.String(), nil
	}

	disc := bc*bc - 4*a*c
	fmt.Fprintf(&b, "**Step 2.** Collect like terms: $%s%s^2 %s%s %s = 0$.\n\n", formatNum(a), x, signed(bc), x, signed(c))
	fmt.Fprintf(&b, "**Step 3.** Use the quadratic formula $%s = \\frac{-b \\pm \\sqrt{b^2 - 4ac}}{2a}$ with discriminant $b^2 - 4ac = %s$.\n\n", x, formatNum(disc))
	switch {
	case disc < -1e-12:
		fmt.Fprintf(&b, "The discriminant is negative, so there are no real roots.\n\n")
		fmt.Fprintf(&b, "**Answer:** $\\boxed{\\text{no real solution}}$")
	case math.Abs(disc) <= 1e-12:
		root := -bc / (2 * a)
		fmt.Fprintf(&b, "$$%s = %s$$\n\n", x, formatNum(root))
		fmt.Fprintf(&b, "**Answer:** $\\boxed{%s = %s}$", x, formatNum(root))
	default:
		sq := math.Sqrt(disc)
		r1, r2 := (-bc-sq)/(2*a), (-bc+sq)/(2*a)
		if r1 > r2 {
			r1, r2 = r2, r1
		}
		fmt.Fprintf(&b, "$$%s_1 = %s, \\quad %s_2 = %s$$\n\n", x, formatNum(r1), x, formatNum(r2))
		fmt.Fprintf(&b, "**Answer:** $\\boxed{%s = %s \\text{ or } %s = %s}$", x, formatNum(r1), x, formatNum(r2))
	}
	return b.String(), nil
}

func signed(v float64) string {
	if v < 0 {
		return "- " + formatNum(-v)
	}
	return "+ " + formatNum(v)
}

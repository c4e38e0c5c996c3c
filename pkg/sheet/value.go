package sheet

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Functions returns the functions cell expressions may call
func Functions() map[string]function.Function {
	return map[string]function.Function{
		"abs":      stdlib.AbsoluteFunc,
		"ceil":     stdlib.CeilFunc,
		"coalesce": stdlib.CoalesceFunc,
		"concat":   stdlib.ConcatFunc,
		"floor":    stdlib.FloorFunc,
		"format":   stdlib.FormatFunc,
		"join":     stdlib.JoinFunc,
		"length":   stdlib.LengthFunc,
		"lower":    stdlib.LowerFunc,
		"max":      stdlib.MaxFunc,
		"min":      stdlib.MinFunc,
		"upper":    stdlib.UpperFunc,
	}
}

// ParseValue reads a literal written in HCL syntax, such as 42, "text",
// [1, 2] or upper("a"). Anything that is not a constant expression is taken
// as a plain string.
func ParseValue(text string) cty.Value {
	expr, diags := hclsyntax.ParseExpression([]byte(text), "<value>", hcl.InitialPos)
	if diags.HasErrors() {
		return cty.StringVal(text)
	}
	val, diags := expr.Value(&hcl.EvalContext{Functions: Functions()})
	if diags.HasErrors() {
		return cty.StringVal(text)
	}
	return val
}

// FormatValue renders v in HCL syntax
func FormatValue(v cty.Value) string {
	if !v.IsWhollyKnown() {
		return "(unknown)"
	}
	return string(hclwrite.TokensForValue(v).Bytes())
}

func rawEqual(a, b cty.Value) bool {
	return a.RawEquals(b)
}

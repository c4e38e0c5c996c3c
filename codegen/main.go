package main

import (
	"fmt"
	"os"
	"strings"
)

func numbered(n int, format string) []string {
	result := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		result = append(result, strings.ReplaceAll(format, "#", fmt.Sprint(i)))
	}
	return result
}

func generateLift(n int) string {
	var sb strings.Builder

	typeParams := append(numbered(n, "A#"), "T any")
	operands := numbered(n, "o# Operand[A#]")
	args := numbered(n, "A#")

	sb.WriteString(fmt.Sprintf("// Lift%d lifts a function of %d arguments over operands\n", n, n))
	sb.WriteString(fmt.Sprintf("func Lift%d[%s](\n", n, strings.Join(typeParams, ", ")))
	for _, op := range operands {
		sb.WriteString(fmt.Sprintf("\t%s,\n", op))
	}
	sb.WriteString(fmt.Sprintf("\tfn func(%s) T,\n", strings.Join(args, ", ")))
	sb.WriteString(") Expr[T] {\n")
	sb.WriteString(fmt.Sprintf("\t%s := %s\n",
		strings.Join(numbered(n, "e#"), ", "), strings.Join(numbered(n, "o#.expr()"), ", ")))
	sb.WriteString(fmt.Sprintf("\t%s := %s\n",
		strings.Join(numbered(n, "f#"), ", "), strings.Join(numbered(n, "e#.eval"), ", ")))
	sb.WriteString("\treturn Expr[T]{\n")
	sb.WriteString(fmt.Sprintf("\t\tgraph:  sameGraph(\"lift\", %s),\n", strings.Join(numbered(n, "e#.graph"), ", ")))
	sb.WriteString(fmt.Sprintf("\t\teval:   func() T { return fn(%s) },\n", strings.Join(numbered(n, "f#()"), ", ")))
	sb.WriteString(fmt.Sprintf("\t\tleaves: joinLeaves(%s),\n", strings.Join(numbered(n, "e#.leaves"), ", ")))
	sb.WriteString("\t}\n")
	sb.WriteString("}\n\n")

	return sb.String()
}

func generateDerive(n int) string {
	var sb strings.Builder

	typeParams := append(numbered(n, "A#"), "T any")
	operands := numbered(n, "o# Operand[A#]")
	args := numbered(n, "A#")
	refs := append(numbered(n, "o#"), "fn")

	sb.WriteString(fmt.Sprintf("// Derive%d creates a node computed from %d operands\n", n, n))
	sb.WriteString(fmt.Sprintf("func Derive%d[%s](\n", n, strings.Join(typeParams, ", ")))
	for _, op := range operands {
		sb.WriteString(fmt.Sprintf("\t%s,\n", op))
	}
	sb.WriteString(fmt.Sprintf("\tfn func(%s) T,\n", strings.Join(args, ", ")))
	sb.WriteString("\topts ...NodeOption,\n")
	sb.WriteString(") Signal[T] {\n")
	sb.WriteString(fmt.Sprintf("\treturn Compute(Lift%d(%s), opts...)\n", n, strings.Join(refs, ", ")))
	sb.WriteString("}\n\n")

	return sb.String()
}

func main() {
	var output strings.Builder

	for i := 1; i <= 4; i++ {
		output.WriteString(generateLift(i))
		output.WriteString(generateDerive(i))
	}

	if len(os.Args) > 1 && os.Args[1] == "-w" {
		file, err := os.OpenFile("derive_generated.go", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			panic(err)
		}
		defer file.Close()

		file.WriteString("// Code generated by codegen/main.go. DO NOT EDIT.\n\n")
		file.WriteString("package ripple\n\n")
		file.WriteString("//go:generate go run codegen/main.go -w\n\n")
		file.WriteString(strings.TrimSuffix(output.String(), "\n"))
		fmt.Println("Generated derive_generated.go")
		return
	}

	fmt.Print(output.String())
}

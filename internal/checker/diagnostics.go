package checker

import (
	"fmt"

	"github.com/tangzhangming/yulc/internal/ast"
	"github.com/tangzhangming/yulc/internal/errors"
	"github.com/tangzhangming/yulc/internal/stacklayout"
)

// StackHint W0100 附带的修复建议
const StackHint = "declare variables in nested blocks so they are popped earlier, or keep values in memory"

// Diagnostics 为报告中裕量为负的单元生成 W0100 警告
//
// 同名函数的每个定义各一条。最远的访问是变量时加一个标签指向它的声明，
// 是函数出口时加一条说明。标签与说明取自最近一次 Check。
func (c *Checker) Diagnostics(filename string, block *ast.Block, report Report) []*errors.CompileError {
	var out []*errors.CompileError
	for _, entry := range report.Unreachable() {
		if entry.Name == TopLevel {
			out = append(out, c.diagnostic(filename, block, entry))
			continue
		}
		for _, fn := range ast.Functions(block) {
			if fn.Name == entry.Name {
				out = append(out, c.diagnostic(filename, fn, entry))
			}
		}
	}
	return out
}

func (c *Checker) diagnostic(filename string, unit ast.Node, entry Entry) *errors.CompileError {
	pos := unit.Pos()
	deficit := -entry.Margin
	msg := fmt.Sprintf("%s accesses a stack slot %d %s beyond the reachable window",
		entry.DisplayName(), deficit, slots(deficit))

	diag := errors.NewCompileError(errors.W0100, filename, pos.Line, pos.Column, msg)
	if fn, ok := unit.(*ast.FunctionDefinition); ok {
		diag.EndColumn = pos.Column + len("function ") + len(fn.Name)
	}
	diag.Hints = []string{StackHint}

	access, ok := c.Deepest(entry.Name)
	switch {
	case !ok || access.Depth < 0:
	case access.Name == stacklayout.FunctionExit:
		diag.Notes = append(diag.Notes, fmt.Sprintf(
			"returning from %s swaps across %d stack %s; fewer parameters or return variables shorten the exit",
			entry.DisplayName(), access.Depth, slots(access.Depth)))
	default:
		if decl := declaration(unit, access.Name); decl != nil {
			p := decl.Pos()
			diag.Labels = append(diag.Labels, errors.Label{
				Line:    p.Line,
				Column:  p.Column,
				Length:  len(decl.Name),
				Message: fmt.Sprintf("%s is accessed %d %s below the top of the stack", access.Name, access.Depth, slots(access.Depth)),
			})
		}
	}
	return diag
}

// declaration 返回单元内第一个名为 name 的声明，不进入嵌套函数
func declaration(unit ast.Node, name string) *ast.TypedName {
	var found *ast.TypedName
	ast.Walk(unit, func(node ast.Node) bool {
		if found != nil {
			return false
		}
		switch n := node.(type) {
		case *ast.FunctionDefinition:
			return n == unit
		case *ast.TypedName:
			if n.Name == name {
				found = n
			}
		}
		return true
	})
	return found
}

func slots(n int) string {
	if n == 1 {
		return "slot"
	}
	return "slots"
}

package checker

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tangzhangming/yulc/internal/assembly"
	"github.com/tangzhangming/yulc/internal/ast"
	"github.com/tangzhangming/yulc/internal/dialect"
	"github.com/tangzhangming/yulc/internal/errors"
	"github.com/tangzhangming/yulc/internal/logger"
	"github.com/tangzhangming/yulc/internal/parser"
	"github.com/tangzhangming/yulc/internal/stacklayout"
)

func parse(t *testing.T, source string) *ast.Block {
	t.Helper()
	block, err := parser.ParseString(source, "test.yul")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return block
}

func window(t *testing.T, n int, subroutines bool) *dialect.Dialect {
	t.Helper()
	d, err := dialect.New("test", n, subroutines)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

const program = `{
	let a := 1
	let b := 2
	let c := 3
	pop(a)

	function deep() {
		let x := 1 let y := 2 let z := 3 let w := 4
		pop(x)
	}

	function shallow(p) -> r {
		r := add(p, 1)
	}

	function outer() {
		function inner() -> v {
			let q := 1 let s := 2
			v := q
		}
		pop(inner())
	}
}`

func TestCheckProgram(t *testing.T) {
	report, err := Check(window(t, 2, false), parse(t, program))
	if err != nil {
		t.Fatal(err)
	}

	want := Report{
		TopLevel:  0,
		"deep":    -1,
		"shallow": 0,
		"outer":   2,
		"inner":   -1,
	}
	if len(report) != len(want) {
		t.Fatalf("report = %v, want %v", report, want)
	}
	for name, margin := range want {
		if got, ok := report[name]; !ok || got != margin {
			t.Errorf("%q: margin = %d (present %v), want %d", name, got, ok, margin)
		}
	}

	if report.Reachable() {
		t.Error("report should not be reachable")
	}
	worst, ok := report.Worst()
	if !ok || worst.Name != "deep" || worst.Margin != -1 {
		t.Errorf("Worst() = %+v, %v", worst, ok)
	}
	unreachable := report.Unreachable()
	if len(unreachable) != 2 || unreachable[0].Name != "deep" || unreachable[1].Name != "inner" {
		t.Errorf("Unreachable() = %+v", unreachable)
	}
	if names := report.Names(); strings.Join(names, ",") != ",deep,inner,outer,shallow" {
		t.Errorf("Names() = %q", names)
	}
}

func TestCheckFunctionScenarios(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   int
	}{
		{"exactly reachable", "{ function f() { let a := 1 let b := 2 let c := 3 pop(a) } }", 0},
		{"unreachable by one", "{ function f() { let a := 1 let b := 2 let c := 3 let d := 4 pop(a) } }", -1},
		{"unreferenced deep variable", "{ function f() { let a := 1 let b := 2 let c := 3 let d := 4 } }", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block := parse(t, tt.source)
			fn := block.Statements[0].(*ast.FunctionDefinition)

			// 子程序模式没有返回地址，结果相同
			for _, subroutines := range []bool{false, true} {
				got, err := CheckFunction(window(t, 2, subroutines), fn)
				if err != nil {
					t.Fatal(err)
				}
				if got != tt.want {
					t.Errorf("subroutines=%v: margin = %d, want %d", subroutines, got, tt.want)
				}
			}
		})
	}
}

func TestExitSequenceCountsReturnAddress(t *testing.T) {
	// 函数体内 p 和 r 的距离都是 1；跳转表模式的出口要把 r 换到返回地址下面（SWAP2）
	block := parse(t, "{ function f(p) -> r { r := p } }")
	fn := block.Statements[0].(*ast.FunctionDefinition)

	for subroutines, want := range map[bool]int{false: -1, true: 0} {
		got, err := CheckFunction(window(t, 1, subroutines), fn)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("subroutines=%v: margin = %d, want %d", subroutines, got, want)
		}
	}
}

func TestExitSequenceBeyondWindow(t *testing.T) {
	params := make([]string, 17)
	for i := range params {
		params[i] = fmt.Sprintf("a%d", i+1)
	}
	block := parse(t, "{ function f("+strings.Join(params, ", ")+") -> r { r := a1 } pop(f("+strings.Repeat("0, ", 16)+"0)) }")

	tests := []struct {
		d     *dialect.Dialect
		want  int
		depth int
	}{
		{dialect.EVM(), -2, 18},
		{dialect.EVM15(), -1, 17},
	}
	for _, tt := range tests {
		c := New(tt.d)
		report, err := c.Check(block)
		if err != nil {
			t.Fatalf("%s: %v", tt.d.Name(), err)
		}
		if report["f"] != tt.want {
			t.Errorf("%s: f = %d, want %d", tt.d.Name(), report["f"], tt.want)
		}
		if report.Reachable() {
			t.Errorf("%s: report should not be reachable", tt.d.Name())
		}
		if a, ok := c.Deepest("f"); !ok || a.Name != stacklayout.FunctionExit || a.Depth != tt.depth {
			t.Errorf("%s: Deepest(f) = %+v, %v", tt.d.Name(), a, ok)
		}
	}
}

func TestSiblingScopesReuseFunctionName(t *testing.T) {
	src := `{
		{ function g(a) -> r { r := a } pop(g(1)) }
		{ function g() -> r { r := 1 } function f() -> x { x := g() } pop(f()) }
	}`
	block := parse(t, src)

	report, err := Check(dialect.EVM(), block)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{TopLevel, "g", "f"} {
		if _, ok := report[name]; !ok {
			t.Errorf("%q missing from report %v", name, report)
		}
	}

	if _, err := New(dialect.EVM()).CheckConcurrent(context.Background(), block, 2); err != nil {
		t.Errorf("concurrent: %v", err)
	}
}

func TestInnerDefinitionShadowsOuter(t *testing.T) {
	// f 内部定义的 g 遮蔽外层的 g，嵌套函数 h 看到的是 f 里的 g
	src := `{
		function g(a) -> r { r := a }
		function f() -> x {
			function g() -> y { y := 2 }
			function h() -> z { z := g() }
			x := h()
		}
	}`
	if _, err := Check(dialect.EVM(), parse(t, src)); err != nil {
		t.Fatal(err)
	}
}

func TestDeepest(t *testing.T) {
	c := New(window(t, 2, false))
	if _, err := c.Check(parse(t, program)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		want Access
	}{
		{"deep", Access{Name: "x", Depth: 3}},
		{TopLevel, Access{Name: "a", Depth: 2}},
		{"outer", Access{Depth: -1}},
	}
	for _, tt := range tests {
		if got, ok := c.Deepest(tt.name); !ok || got != tt.want {
			t.Errorf("Deepest(%q) = %+v, %v; want %+v", tt.name, got, ok, tt.want)
		}
	}
	if _, ok := c.Deepest("missing"); ok {
		t.Error("unknown unit should have no access")
	}
}

func TestUnrestrictedIsNeverNegative(t *testing.T) {
	report, err := Check(dialect.Yul(), parse(t, program))
	if err != nil {
		t.Fatal(err)
	}
	for name, margin := range report {
		if margin != stacklayout.Unrestricted {
			t.Errorf("%q: margin = %d, want Unrestricted", name, margin)
		}
	}
	if !report.Reachable() {
		t.Error("unrestricted report should be reachable")
	}
}

func TestDeterministicAndOrderIndependent(t *testing.T) {
	d := window(t, 2, false)
	block := parse(t, program)
	functions := ast.ScopedFunctions(block)

	c := New(d)
	first, err := c.Check(block)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Check(block)
	if err != nil {
		t.Fatal(err)
	}
	for name, margin := range first {
		if second[name] != margin {
			t.Errorf("%q: %d then %d", name, margin, second[name])
		}
	}

	// 逆序逐个分析
	for i := len(functions) - 1; i >= 0; i-- {
		fn := functions[i].Function
		got, err := c.CheckFunction(fn, functions[i].Visible...)
		if err != nil {
			t.Fatal(err)
		}
		if got != first[fn.Name] {
			t.Errorf("%s: reversed order margin %d, want %d", fn.Name, got, first[fn.Name])
		}
	}
}

func TestCheckDoesNotMutateAST(t *testing.T) {
	block := parse(t, program)
	before := ast.Print(block)
	if _, err := Check(window(t, 2, false), block); err != nil {
		t.Fatal(err)
	}
	if after := ast.Print(block); after != before {
		t.Errorf("AST changed:\n%s\nwant:\n%s", after, before)
	}
}

func TestDuplicateNamesKeepWorst(t *testing.T) {
	src := `{
		{ function f() { let a := 1 pop(a) } }
		{ function f() { let a := 1 let b := 2 let c := 3 let d := 4 pop(a) } }
	}`
	c := New(window(t, 2, false))
	report, err := c.Check(parse(t, src))
	if err != nil {
		t.Fatal(err)
	}
	if report["f"] != -1 {
		t.Errorf("f = %d, want -1", report["f"])
	}
	// 两个 f 都分析过，报告里只有一项
	if c.Analysed() != 3 || len(report) != 2 {
		t.Errorf("Analysed() = %d, entries = %d", c.Analysed(), len(report))
	}
	if a, _ := c.Deepest("f"); a.Name != "a" || a.Depth != 3 {
		t.Errorf("Deepest(f) = %+v", a)
	}
}

func TestContractViolationAbortsWithPartialReport(t *testing.T) {
	src := `{
		function first() { let a := 1 pop(a) }
		function second() { pop(1) }
		function third() { let b := 2 pop(b) }
	}`

	// 子程序方言配跳转表后端：遇到第一个函数定义就违约
	c := New(window(t, 2, true), WithBackend(func(d *dialect.Dialect) assembly.Assembly {
		return assembly.NewNull(false)
	}))
	report, err := c.Check(parse(t, src))
	if err == nil {
		t.Fatal("expected contract violation")
	}
	if !errors.IsContractViolation(err) {
		t.Fatalf("error %v is not a contract violation", err)
	}
	if !strings.Contains(err.Error(), "function first") {
		t.Errorf("error %q does not name the function", err)
	}

	// 顶层块已完成，之后的函数都没有结果
	if len(report) != 1 {
		t.Errorf("report = %v, want only the top-level entry", report)
	}
	if _, ok := report[TopLevel]; !ok {
		t.Error("top-level result missing")
	}
	if c.Analysed() != 1 {
		t.Errorf("Analysed() = %d, want 1", c.Analysed())
	}
}

func TestUndefinedIdentifierIsContractViolation(t *testing.T) {
	_, err := Check(dialect.EVM(), parse(t, "{ pop(missing) }"))
	if !errors.IsContractViolation(err) || !strings.Contains(err.Error(), "top-level block") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestCheckConcurrent(t *testing.T) {
	d := window(t, 2, false)
	block := parse(t, program)

	want, err := Check(d, block)
	if err != nil {
		t.Fatal(err)
	}

	for _, workers := range []int{0, 1, 3} {
		c := New(d)
		got, err := c.CheckConcurrent(context.Background(), block, workers)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if len(got) != len(want) {
			t.Fatalf("workers=%d: report = %v, want %v", workers, got, want)
		}
		for name, margin := range want {
			if got[name] != margin {
				t.Errorf("workers=%d: %q = %d, want %d", workers, name, got[name], margin)
			}
		}
		if c.Analysed() != int64(len(want)) {
			t.Errorf("workers=%d: Analysed() = %d", workers, c.Analysed())
		}
	}
}

func TestCheckConcurrentViolation(t *testing.T) {
	c := New(dialect.EVM())
	_, err := c.CheckConcurrent(context.Background(), parse(t, "{ function f() { pop(nope) } }"), 2)
	if !errors.IsContractViolation(err) {
		t.Errorf("expected contract violation, got %v", err)
	}
}

func TestCheckConcurrentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New(dialect.EVM()).CheckConcurrent(ctx, parse(t, program), 1)
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(report) != 0 {
		t.Errorf("report = %v, want empty", report)
	}
}

func TestReportJSON(t *testing.T) {
	report := Report{TopLevel: 3, "f": -2}
	data, err := report.JSON("evm")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`"dialect": "evm"`,
		`"reachable": false`,
		`"worst": {`,
		`"name": "f"`,
		`"margin": -2`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("JSON missing %s:\n%s", want, data)
		}
	}
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := New(window(t, 2, false), WithLogger(logger.NewWithCore(core, true)))
	if _, err := c.Check(parse(t, program)); err != nil {
		t.Fatal(err)
	}

	if logs.FilterMessageSnippet(`deep: margin -1`).Len() != 1 {
		t.Errorf("missing per-function entry, got %v", logs.All())
	}
	if logs.FilterMessageSnippet("checked 5 unit(s) as 5 report entries").Len() != 1 {
		t.Errorf("missing unit count, got %v", logs.All())
	}
	if logs.FilterMessageSnippet("worst margin -1 in deep").Len() != 1 {
		t.Errorf("missing summary entry, got %v", logs.All())
	}
}

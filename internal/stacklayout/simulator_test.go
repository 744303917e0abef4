package stacklayout

import (
	"fmt"
	"strings"
	"testing"

	"github.com/holiman/uint256"

	"github.com/tangzhangming/yulc/internal/assembly"
	"github.com/tangzhangming/yulc/internal/ast"
	"github.com/tangzhangming/yulc/internal/codegen"
	"github.com/tangzhangming/yulc/internal/dialect"
	"github.com/tangzhangming/yulc/internal/errors"
	"github.com/tangzhangming/yulc/internal/evm"
	"github.com/tangzhangming/yulc/internal/parser"
)

func window(t *testing.T, n int) *dialect.Dialect {
	t.Helper()
	d, err := dialect.New("test", n, false)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// simulate 遍历顶层块并返回裕量
func simulate(t *testing.T, d *dialect.Dialect, source string) (margin int, err error) {
	t.Helper()
	block, perr := parser.ParseString(source, "test.yul")
	if perr != nil {
		t.Fatalf("parse error: %v", perr)
	}
	asm := assembly.NewNull(d.Subroutines())
	sim := New(asm, d)
	defer errors.Recover(&err)
	codegen.New(asm, d, sim, codegen.Options{SkipFunctions: true}).Block(block)
	return sim.Margin(), nil
}

func TestMarginScenarios(t *testing.T) {
	tests := []struct {
		name   string
		window int
		source string
		want   int
	}{
		{"exactly reachable", 2, "{ let a := 1 let b := 2 let c := 3 pop(a) }", 0},
		{"unreachable by one", 2, "{ let a := 1 let b := 2 let c := 3 let d := 4 pop(a) }", -1},
		{"no references", 2, "{ let a := 1 let b := 2 let c := 3 let d := 4 }", 2},
		{"top of stack", 2, "{ let a := 1 pop(a) }", 2},
		{"argument pushes count", 2, "{ let a := 1 let b := 2 pop(add(a, 7)) }", 0},
		{"assignment counts", 1, "{ let a := 1 let b := 2 a := 3 }", -1},
		{"worst reference wins", 3, "{ let a := 1 let b := 2 let c := 3 let d := 4 let e := 5 pop(d) pop(a) }", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := simulate(t, window(t, tt.window), tt.source)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("margin = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExtraValuesGiveNegativeMargin(t *testing.T) {
	// window+k 个值压在 a 之上，引用 a 得到 -k
	for k := 1; k <= 4; k++ {
		src := "{ let a := 0"
		for i := 0; i < 2+k; i++ {
			src += " let v" + string(rune('a'+i)) + " := 1"
		}
		src += " pop(a) }"

		got, err := simulate(t, window(t, 2), src)
		if err != nil {
			t.Fatal(err)
		}
		if got != -k {
			t.Errorf("k=%d: margin = %d, want %d", k, got, -k)
		}
	}
}

func TestUnrestrictedNeverFolds(t *testing.T) {
	src := "{ let a := 1 let b := 2 let c := 3 let d := 4 let e := 5 pop(a) }"
	got, err := simulate(t, dialect.Yul(), src)
	if err != nil {
		t.Fatal(err)
	}
	if got != Unrestricted {
		t.Errorf("margin = %d, want Unrestricted", got)
	}
}

func TestShadowing(t *testing.T) {
	// 内层 x 离栈顶 1，外层 x 在内层块结束后离栈顶 0
	src := "{ let x := 1 { let x := 2 let y := 3 pop(x) } pop(x) }"
	got, err := simulate(t, window(t, 1), src)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("margin = %d, want 0", got)
	}
}

func TestFunctionExitCountsTowardsMargin(t *testing.T) {
	params := make([]string, 17)
	for i := range params {
		params[i] = fmt.Sprintf("a%d", i+1)
	}
	source := "{ function f(" + strings.Join(params, ", ") + ") -> r { r := a1 } }"

	tests := []struct {
		d     *dialect.Dialect
		want  int
		depth int
	}{
		{dialect.EVM(), -2, 18},
		{dialect.EVM15(), -1, 17},
	}
	for _, tt := range tests {
		block, err := parser.ParseString(source, "test.yul")
		if err != nil {
			t.Fatal(err)
		}
		fn := block.Statements[0].(*ast.FunctionDefinition)

		asm := assembly.NewNull(tt.d.Subroutines())
		sim := New(asm, tt.d)
		func() {
			defer errors.Recover(&err)
			codegen.New(asm, tt.d, sim, codegen.Options{SkipFunctions: true}).Function(fn)
		}()
		if err != nil {
			t.Fatalf("%s: %v", tt.d.Name(), err)
		}
		if sim.Margin() != tt.want {
			t.Errorf("%s: margin = %d, want %d", tt.d.Name(), sim.Margin(), tt.want)
		}
		if name, depth := sim.Deepest(); name != FunctionExit || depth != tt.depth {
			t.Errorf("%s: Deepest() = %s, %d", tt.d.Name(), name, depth)
		}
	}
}

func TestManualEvents(t *testing.T) {
	asm := assembly.NewNull(false)
	sim := New(asm, window(t, 2))

	sim.ScopeEntered()
	for _, name := range []string{"a", "b", "c"} {
		asm.EmitConstant(uint256.NewInt(0))
		sim.VariablesDeclared([]string{name})
	}

	for name, want := range map[string]int{"a": 2, "b": 1, "c": 0} {
		if got, ok := sim.Distance(name); !ok || got != want {
			t.Errorf("Distance(%s) = %d, %v; want %d", name, got, ok, want)
		}
	}

	// 压栈改变所有距离
	asm.EmitConstant(uint256.NewInt(0))
	if got, _ := sim.Distance("a"); got != 3 {
		t.Errorf("Distance(a) after push = %d, want 3", got)
	}
	asm.Emit(evm.POP)

	sim.VariableReferenced("a")
	if sim.Margin() != 0 || sim.References() != 1 {
		t.Errorf("margin = %d, references = %d", sim.Margin(), sim.References())
	}
	if name, depth := sim.Deepest(); name != "a" || depth != 2 {
		t.Errorf("Deepest() = %s, %d", name, depth)
	}
	if sim.Live() != 3 {
		t.Errorf("Live() = %d", sim.Live())
	}

	sim.StackAccessed(2)
	if sim.Margin() != 0 || sim.References() != 2 {
		t.Errorf("after access: margin = %d, references = %d", sim.Margin(), sim.References())
	}

	sim.ScopeExited()
	if _, ok := sim.Distance("a"); ok {
		t.Error("binding survived scope exit")
	}
}

func TestSimulatorContractViolations(t *testing.T) {
	tests := []struct {
		name string
		run  func(sim *Simulator, asm assembly.Assembly)
	}{
		{"unknown variable", func(sim *Simulator, asm assembly.Assembly) {
			sim.ScopeEntered()
			sim.VariableReferenced("x")
		}},
		{"declare outside scope", func(sim *Simulator, asm assembly.Assembly) {
			asm.EmitConstant(uint256.NewInt(0))
			sim.VariablesDeclared([]string{"x"})
		}},
		{"declare without values", func(sim *Simulator, asm assembly.Assembly) {
			sim.ScopeEntered()
			sim.VariablesDeclared([]string{"x"})
		}},
		{"negative distance", func(sim *Simulator, asm assembly.Assembly) {
			sim.ScopeEntered()
			asm.EmitConstant(uint256.NewInt(0))
			sim.VariablesDeclared([]string{"x"})
			asm.Emit(evm.POP)
			sim.VariableReferenced("x")
		}},
		{"access below stack", func(sim *Simulator, asm assembly.Assembly) {
			asm.EmitConstant(uint256.NewInt(0))
			sim.StackAccessed(1)
		}},
		{"unbalanced exit", func(sim *Simulator, asm assembly.Assembly) {
			sim.ScopeExited()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asm := assembly.NewNull(false)
			sim := New(asm, window(t, 2))
			var err error
			func() {
				defer errors.Recover(&err)
				tt.run(sim, asm)
			}()
			if !errors.IsContractViolation(err) {
				t.Errorf("expected contract violation, got %v", err)
			}
		})
	}
}

// Package codegen 把中间语言 AST 翻译成对抽象目标接口的调用
package codegen

import (
	"github.com/holiman/uint256"

	"github.com/tangzhangming/yulc/internal/assembly"
	"github.com/tangzhangming/yulc/internal/ast"
	"github.com/tangzhangming/yulc/internal/dialect"
	"github.com/tangzhangming/yulc/internal/errors"
	"github.com/tangzhangming/yulc/internal/evm"
)

// ============================================================================
// CodeTransform - 代码生成遍历
// ============================================================================
//
// 栈布局约定：
//   - 变量按声明顺序压栈，多值声明中最后一个变量在栈顶
//   - 实参从右到左求值，第一个参数在栈顶
//   - 函数返回后返回值按声明顺序留在栈上，最后一个返回值在栈顶
//   - 跳转表模式下返回地址位于参数之下
//
// 名称无法解析、参数个数不符等情况说明前端没有做好检查，按契约违例处理。
//
// ============================================================================

// Options 遍历选项
type Options struct {
	// SkipFunctions 不在定义处展开函数体
	SkipFunctions bool
	// Functions 被遍历的树之外、但在调用处可见的函数，同名时靠前者优先
	Functions []*ast.FunctionDefinition
}

// Local 局部变量
type Local struct {
	Name  string
	Depth int // 作用域深度
	Slot  int // 绝对栈位置
}

type loopContext struct {
	height        int // 循环体开始时的栈高度
	breakLabel    assembly.LabelID
	continueLabel assembly.LabelID
}

type functionContext struct {
	height    int // 返回变量初始化之后的栈高度
	exitLabel assembly.LabelID
}

// CodeTransform 代码生成遍历器
type CodeTransform struct {
	asm      assembly.Assembly
	dialect  *dialect.Dialect
	observer Observer
	opts     Options

	scopeDepth   int
	scopeHeights []int
	locals       []Local
	localBase    int // 当前函数可见的第一个局部变量下标

	functions []map[string]*ast.FunctionDefinition // 每层作用域定义的函数
	external  map[string]*ast.FunctionDefinition

	loop     *loopContext
	function *functionContext

	dataIDs map[string]assembly.SubID
}

// New 创建遍历器，observer 为 nil 时使用 NopObserver
func New(asm assembly.Assembly, d *dialect.Dialect, observer Observer, opts Options) *CodeTransform {
	if observer == nil {
		observer = NopObserver{}
	}
	external := make(map[string]*ast.FunctionDefinition, len(opts.Functions))
	for _, fn := range opts.Functions {
		if _, ok := external[fn.Name]; !ok {
			external[fn.Name] = fn
		}
	}
	return &CodeTransform{
		asm:      asm,
		dialect:  d,
		observer: observer,
		opts:     opts,
		external: external,
		dataIDs:  make(map[string]assembly.SubID),
	}
}

// Block 遍历一个块，块结束时栈高度回到进入时的值
func (t *CodeTransform) Block(b *ast.Block) {
	t.beginScope()
	t.registerFunctions(b.Statements)
	for _, stmt := range b.Statements {
		t.statement(stmt)
	}
	t.endScope()
}

// Function 单独遍历一个函数定义，开始和结束时的栈高度相同
func (t *CodeTransform) Function(fn *ast.FunctionDefinition) {
	t.beginScope()
	t.functions[len(t.functions)-1][fn.Name] = fn
	t.functionDefinition(fn)
	t.endScope()
}

// ============================================================================
// 语句
// ============================================================================

func (t *CodeTransform) statement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.VariableDeclaration:
		t.variableDeclaration(s)
	case *ast.Assignment:
		t.assignment(s)
	case *ast.ExpressionStatement:
		for n := t.expression(s.Expr); n > 0; n-- {
			t.asm.Emit(evm.POP)
		}
	case *ast.Block:
		t.Block(s)
	case *ast.If:
		t.ifStatement(s)
	case *ast.Switch:
		t.switchStatement(s)
	case *ast.ForLoop:
		t.forLoop(s)
	case *ast.Break:
		errors.Assert(t.loop != nil, "break outside of loop at %s", s.Pos())
		t.jumpOut(t.loop.height, t.loop.breakLabel)
	case *ast.Continue:
		errors.Assert(t.loop != nil, "continue outside of loop at %s", s.Pos())
		t.jumpOut(t.loop.height, t.loop.continueLabel)
	case *ast.Leave:
		errors.Assert(t.function != nil, "leave outside of function at %s", s.Pos())
		t.jumpOut(t.function.height, t.function.exitLabel)
	case *ast.FunctionDefinition:
		if !t.opts.SkipFunctions {
			t.functionDefinition(s)
		}
	default:
		errors.Fail("unsupported statement %T", stmt)
	}
}

func (t *CodeTransform) variableDeclaration(s *ast.VariableDeclaration) {
	names := make([]string, len(s.Variables))
	for i, v := range s.Variables {
		names[i] = v.Name
	}

	if s.Value != nil {
		n := t.expression(s.Value)
		errors.Assert(n == len(names), "%s: declaring %d variable(s) from %d value(s)", s.Pos(), len(names), n)
	} else {
		for range names {
			t.asm.EmitConstant(new(uint256.Int))
		}
	}
	t.declare(names)
}

func (t *CodeTransform) assignment(s *ast.Assignment) {
	n := t.expression(s.Value)
	errors.Assert(n == len(s.Variables), "%s: assigning %d value(s) to %d variable(s)", s.Pos(), n, len(s.Variables))

	// 栈顶对应最后一个变量
	for i := len(s.Variables) - 1; i >= 0; i-- {
		local := t.reference(s.Variables[i].Name, s.Variables[i])
		depth := t.asm.StackHeight() - 1 - local.Slot
		errors.Assert(depth >= 1, "assignment to %s at depth %d", local.Name, depth)
		t.asm.Swap(depth)
		t.asm.Emit(evm.POP)
	}
}

func (t *CodeTransform) ifStatement(s *ast.If) {
	t.condition(s.Condition)
	t.asm.Emit(evm.ISZERO)
	end := t.asm.NewLabelID()
	t.asm.JumpToIf(end)
	t.Block(s.Body)
	t.asm.DefineLabel(end)
}

func (t *CodeTransform) switchStatement(s *ast.Switch) {
	t.condition(s.Expr)
	end := t.asm.NewLabelID()

	for _, c := range s.Cases {
		if c.Value == nil {
			t.Block(c.Body)
			continue
		}
		next := t.asm.NewLabelID()
		t.asm.Emit(evm.DUP1)
		t.literal(c.Value)
		t.asm.Emit(evm.EQ)
		t.asm.Emit(evm.ISZERO)
		t.asm.JumpToIf(next)
		t.Block(c.Body)
		t.asm.JumpTo(end, 0)
		t.asm.DefineLabel(next)
	}

	t.asm.DefineLabel(end)
	t.asm.Emit(evm.POP)
}

func (t *CodeTransform) forLoop(s *ast.ForLoop) {
	// 初始化部分的变量在整个循环内可见
	t.beginScope()
	t.registerFunctions(s.Pre.Statements)
	for _, stmt := range s.Pre.Statements {
		t.statement(stmt)
	}

	start := t.asm.NewLabelID()
	post := t.asm.NewLabelID()
	end := t.asm.NewLabelID()

	t.asm.DefineLabel(start)
	t.condition(s.Condition)
	t.asm.Emit(evm.ISZERO)
	t.asm.JumpToIf(end)

	outer := t.loop
	t.loop = &loopContext{height: t.asm.StackHeight(), breakLabel: end, continueLabel: post}
	t.Block(s.Body)
	t.loop = nil

	t.asm.DefineLabel(post)
	t.Block(s.Post)
	t.asm.JumpTo(start, 0)
	t.loop = outer

	t.asm.DefineLabel(end)
	t.endScope()
}

// jumpOut 弹出到 height 后跳转，并恢复跳转之前的静态栈高度
func (t *CodeTransform) jumpOut(height int, target assembly.LabelID) {
	k := t.asm.StackHeight() - height
	errors.Assert(k >= 0, "jump target height %d above current height %d", height, t.asm.StackHeight())
	for i := 0; i < k; i++ {
		t.asm.Emit(evm.POP)
	}
	t.asm.JumpTo(target, k)
}

// ============================================================================
// 函数
// ============================================================================

func (t *CodeTransform) functionDefinition(fn *ast.FunctionDefinition) {
	params, rets := len(fn.Parameters), len(fn.ReturnVariables)
	subroutines := t.dialect.Subroutines()

	start := t.asm.StackHeight()
	entry := t.asm.NamedLabel(fn.Name)
	after := t.asm.NewLabelID()

	if subroutines {
		t.asm.JumpTo(after, 0)
		t.asm.BeginSub(entry, params)
	} else {
		// 入口处栈上是返回地址和参数
		t.asm.JumpTo(after, params+1)
		t.asm.DefineLabel(entry)
	}

	outerBase, outerLoop, outerFunction := t.localBase, t.loop, t.function
	t.localBase = len(t.locals)
	t.loop = nil

	t.beginScope()

	// 第一个参数在栈顶
	paramNames := make([]string, params)
	for i, p := range fn.Parameters {
		paramNames[params-1-i] = p.Name
	}
	t.declare(paramNames)

	retNames := make([]string, rets)
	for i, r := range fn.ReturnVariables {
		retNames[i] = r.Name
		t.asm.EmitConstant(new(uint256.Int))
	}
	t.declare(retNames)

	t.function = &functionContext{height: t.asm.StackHeight(), exitLabel: t.asm.NewLabelID()}
	t.Block(fn.Body)
	t.asm.DefineLabel(t.function.exitLabel)

	for _, r := range fn.ReturnVariables {
		t.reference(r.Name, r)
	}
	t.closeScope(false)

	// layout[i] 为第 i 个槽的目标位置，-1 表示丢弃
	var layout []int
	if !subroutines {
		layout = append(layout, rets)
	}
	for i := 0; i < params; i++ {
		layout = append(layout, -1)
	}
	for i := 0; i < rets; i++ {
		layout = append(layout, i)
	}
	t.shuffle(layout)

	if subroutines {
		t.asm.ReturnSub(rets, 0)
	} else {
		t.asm.Jump(-rets)
	}

	t.locals = t.locals[:t.localBase]
	t.localBase, t.loop, t.function = outerBase, outerLoop, outerFunction

	t.asm.DefineLabel(after)
	errors.Assert(t.asm.StackHeight() == start, "function %s changed stack height from %d to %d",
		fn.Name, start, t.asm.StackHeight())
}

// shuffle 用 SWAP/POP 把栈顶的 len(layout) 个槽整理成目标顺序，每次 SWAP 都通知观察者
func (t *CodeTransform) shuffle(layout []int) {
	for len(layout) > 0 && layout[len(layout)-1] != len(layout)-1 {
		top := layout[len(layout)-1]
		if top < 0 {
			t.asm.Emit(evm.POP)
			layout = layout[:len(layout)-1]
			continue
		}
		depth := len(layout) - 1 - top
		t.observer.StackAccessed(depth)
		t.asm.Swap(depth)
		layout[top], layout[len(layout)-1] = layout[len(layout)-1], layout[top]
	}
}

func (t *CodeTransform) registerFunctions(stmts []ast.Statement) {
	scope := t.functions[len(t.functions)-1]
	for _, stmt := range stmts {
		if fn, ok := stmt.(*ast.FunctionDefinition); ok {
			scope[fn.Name] = fn
		}
	}
}

func (t *CodeTransform) lookupFunction(name string) *ast.FunctionDefinition {
	for i := len(t.functions) - 1; i >= 0; i-- {
		if fn, ok := t.functions[i][name]; ok {
			return fn
		}
	}
	return t.external[name]
}

// ============================================================================
// 表达式
// ============================================================================

// expression 生成表达式并返回压栈的值个数
func (t *CodeTransform) expression(expr ast.Expression) int {
	switch e := expr.(type) {
	case *ast.Literal:
		t.literal(e)
		return 1
	case *ast.Identifier:
		local := t.reference(e.Name, e)
		t.asm.Dup(t.asm.StackHeight() - local.Slot)
		return 1
	case *ast.FunctionCall:
		return t.call(e)
	}
	errors.Fail("unsupported expression %T", expr)
	return 0
}

// condition 生成恰好产生一个值的表达式
func (t *CodeTransform) condition(expr ast.Expression) {
	n := t.expression(expr)
	errors.Assert(n == 1, "%s: expression produces %d values, want 1", expr.Pos(), n)
}

func (t *CodeTransform) literal(lit *ast.Literal) {
	word, err := lit.Word()
	errors.Assert(err == nil, "%s: %v", lit.Pos(), err)
	t.asm.EmitConstant(word)
}

func (t *CodeTransform) call(c *ast.FunctionCall) int {
	name := c.Name.Name

	if b, ok := t.dialect.Builtin(name); ok {
		errors.Assert(len(c.Args) == b.Args, "%s: function %s expects %d arguments, got %d",
			c.Pos(), name, b.Args, len(c.Args))
		if b.LiteralArgs {
			t.literalArgBuiltin(b, c)
			return b.Rets
		}
		t.arguments(c.Args)
		t.asm.Emit(b.Instruction)
		return b.Rets
	}

	fn := t.lookupFunction(name)
	errors.Assert(fn != nil, "%s: undefined function %q", c.Pos(), name)
	args, rets := len(fn.Parameters), len(fn.ReturnVariables)
	errors.Assert(len(c.Args) == args, "%s: function %s expects %d arguments, got %d",
		c.Pos(), name, args, len(c.Args))

	entry := t.asm.NamedLabel(name)
	if t.dialect.Subroutines() {
		t.arguments(c.Args)
		t.asm.JumpSub(entry, args, rets)
		return rets
	}

	ret := t.asm.NewLabelID()
	t.asm.ReferenceLabel(ret)
	t.arguments(c.Args)
	t.asm.JumpTo(entry, rets-args-1)
	t.asm.DefineLabel(ret)
	return rets
}

// arguments 从右到左求值实参
func (t *CodeTransform) arguments(args []ast.Expression) {
	for i := len(args) - 1; i >= 0; i-- {
		t.condition(args[i])
	}
}

func (t *CodeTransform) literalArgBuiltin(b *evm.Builtin, c *ast.FunctionCall) {
	lit, ok := c.Args[0].(*ast.Literal)
	errors.Assert(ok && lit.Kind == ast.StringLiteral, "%s: %s expects a string literal", c.Pos(), b.Name)

	switch b.Kind {
	case evm.BuiltinDataSize:
		t.asm.SubProgramSize(t.dataID(lit.Value))
	case evm.BuiltinDataOffset:
		t.asm.SubProgramOffset(t.dataID(lit.Value))
	case evm.BuiltinLinkerSymbol:
		t.asm.LinkerSymbol(lit.Value)
	default:
		errors.Fail("builtin %s has no literal form", b.Name)
	}
}

func (t *CodeTransform) dataID(name string) assembly.SubID {
	if id, ok := t.dataIDs[name]; ok {
		return id
	}
	id := t.asm.EmbedData([]byte(name))
	t.dataIDs[name] = id
	return id
}

// ============================================================================
// 作用域与变量
// ============================================================================

func (t *CodeTransform) beginScope() {
	t.scopeDepth++
	t.scopeHeights = append(t.scopeHeights, t.asm.StackHeight())
	t.functions = append(t.functions, make(map[string]*ast.FunctionDefinition))
	t.observer.ScopeEntered()
}

func (t *CodeTransform) endScope() {
	t.closeScope(true)
}

// closeScope 离开作用域；pop 为 false 时变量留在栈上由调用方处理
func (t *CodeTransform) closeScope(pop bool) {
	t.observer.ScopeExited()

	for len(t.locals) > t.localBase && t.locals[len(t.locals)-1].Depth == t.scopeDepth {
		if pop {
			t.asm.Emit(evm.POP)
		}
		t.locals = t.locals[:len(t.locals)-1]
	}

	start := t.scopeHeights[len(t.scopeHeights)-1]
	t.scopeHeights = t.scopeHeights[:len(t.scopeHeights)-1]
	if pop {
		errors.Assert(t.asm.StackHeight() == start, "scope left stack height %d, entered at %d",
			t.asm.StackHeight(), start)
	}

	t.functions = t.functions[:len(t.functions)-1]
	t.scopeDepth--
}

// declare 把栈顶 len(names) 个槽绑定为变量
func (t *CodeTransform) declare(names []string) {
	if len(names) == 0 {
		return
	}
	base := t.asm.StackHeight() - len(names)
	for i, name := range names {
		t.locals = append(t.locals, Local{Name: name, Depth: t.scopeDepth, Slot: base + i})
	}
	t.observer.VariablesDeclared(names)
}

// reference 解析变量并通知观察者
func (t *CodeTransform) reference(name string, at ast.Node) Local {
	for i := len(t.locals) - 1; i >= t.localBase; i-- {
		if t.locals[i].Name == name {
			t.observer.VariableReferenced(name)
			return t.locals[i]
		}
	}
	errors.Fail("%s: undefined identifier %q", at.Pos(), name)
	return Local{}
}

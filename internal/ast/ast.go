package ast

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	"github.com/tangzhangming/yulc/internal/token"
)

// Node 是所有 AST 节点的基接口
type Node interface {
	Pos() token.Position // 返回节点在源代码中的位置
	String() string      // 返回节点的单行字符串表示（用于调试）
}

// Expression 表示一个表达式节点
type Expression interface {
	Node
	exprNode()
}

// Statement 表示一个语句节点
type Statement interface {
	Node
	stmtNode()
}

// ============================================================================
// 表达式
// ============================================================================

// LiteralKind 字面量种类
type LiteralKind int

const (
	NumberLiteral LiteralKind = iota
	BoolLiteral
	StringLiteral
)

// Literal 字面量
type Literal struct {
	Token token.Token
	Kind  LiteralKind
	Value string // 数字的原始文本、true/false、或字符串内容
	Type  string // 可选类型标注（如 u256）
}

func (e *Literal) Pos() token.Position { return e.Token.Pos }
func (e *Literal) exprNode()           {}
func (e *Literal) String() string {
	var s string
	switch e.Kind {
	case StringLiteral:
		s = fmt.Sprintf("%q", e.Value)
	default:
		s = e.Value
	}
	if e.Type != "" {
		s += ":" + e.Type
	}
	return s
}

// Word 返回字面量对应的 256 位字
//
// 数字超过 2^256-1 或字符串超过 32 字节时返回错误；字符串左对齐。
func (e *Literal) Word() (*uint256.Int, error) {
	switch e.Kind {
	case BoolLiteral:
		if e.Value == "true" {
			return uint256.NewInt(1), nil
		}
		return uint256.NewInt(0), nil

	case StringLiteral:
		if len(e.Value) > 32 {
			return nil, fmt.Errorf("string literal too long (%d > 32 bytes)", len(e.Value))
		}
		var word [32]byte
		copy(word[:], e.Value)
		return new(uint256.Int).SetBytes(word[:]), nil

	default:
		b, ok := new(big.Int).SetString(e.Value, 0)
		if !ok || b.Sign() < 0 {
			return nil, fmt.Errorf("invalid number literal %q", e.Value)
		}
		v, overflow := uint256.FromBig(b)
		if overflow {
			return nil, fmt.Errorf("number literal %s does not fit into 256 bits", e.Value)
		}
		return v, nil
	}
}

// Identifier 标识符引用（读取变量）
type Identifier struct {
	Token token.Token
	Name  string
}

func (e *Identifier) Pos() token.Position { return e.Token.Pos }
func (e *Identifier) String() string      { return e.Name }
func (e *Identifier) exprNode()           {}

// FunctionCall 函数调用（内建函数或用户函数）
type FunctionCall struct {
	Name *Identifier
	Args []Expression
}

func (e *FunctionCall) Pos() token.Position { return e.Name.Pos() }
func (e *FunctionCall) exprNode()           {}
func (e *FunctionCall) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return e.Name.Name + "(" + strings.Join(args, ", ") + ")"
}

// ============================================================================
// 语句
// ============================================================================

// TypedName 带可选类型的名字，用于 let、函数参数和返回变量
type TypedName struct {
	Token token.Token
	Name  string
	Type  string
}

func (n *TypedName) Pos() token.Position { return n.Token.Pos }
func (n *TypedName) String() string {
	if n.Type != "" {
		return n.Name + ":" + n.Type
	}
	return n.Name
}

// Block 代码块，同时也是变量作用域
type Block struct {
	LBrace     token.Token
	Statements []Statement
}

func (s *Block) Pos() token.Position { return s.LBrace.Pos }
func (s *Block) stmtNode()           {}
func (s *Block) String() string {
	parts := make([]string, len(s.Statements))
	for i, st := range s.Statements {
		parts[i] = st.String()
	}
	if len(parts) == 0 {
		return "{ }"
	}
	return "{ " + strings.Join(parts, " ") + " }"
}

// VariableDeclaration let a, b := value
type VariableDeclaration struct {
	LetToken  token.Token
	Variables []*TypedName
	Value     Expression // 可为 nil，表示初始化为零
}

func (s *VariableDeclaration) Pos() token.Position { return s.LetToken.Pos }
func (s *VariableDeclaration) stmtNode()           {}
func (s *VariableDeclaration) String() string {
	names := make([]string, len(s.Variables))
	for i, v := range s.Variables {
		names[i] = v.String()
	}
	out := "let " + strings.Join(names, ", ")
	if s.Value != nil {
		out += " := " + s.Value.String()
	}
	return out
}

// Assignment a, b := value
type Assignment struct {
	Variables []*Identifier
	Value     Expression
}

func (s *Assignment) Pos() token.Position { return s.Variables[0].Pos() }
func (s *Assignment) stmtNode()           {}
func (s *Assignment) String() string {
	names := make([]string, len(s.Variables))
	for i, v := range s.Variables {
		names[i] = v.Name
	}
	return strings.Join(names, ", ") + " := " + s.Value.String()
}

// ExpressionStatement 表达式语句（通常是无返回值的调用）
type ExpressionStatement struct {
	Expr Expression
}

func (s *ExpressionStatement) Pos() token.Position { return s.Expr.Pos() }
func (s *ExpressionStatement) String() string      { return s.Expr.String() }
func (s *ExpressionStatement) stmtNode()           {}

// If if cond { ... }
type If struct {
	IfToken   token.Token
	Condition Expression
	Body      *Block
}

func (s *If) Pos() token.Position { return s.IfToken.Pos }
func (s *If) stmtNode()           {}
func (s *If) String() string {
	return "if " + s.Condition.String() + " " + s.Body.String()
}

// Case switch 分支，Value 为 nil 表示 default
type Case struct {
	Token token.Token
	Value *Literal
	Body  *Block
}

func (c *Case) Pos() token.Position { return c.Token.Pos }
func (c *Case) String() string {
	if c.Value == nil {
		return "default " + c.Body.String()
	}
	return "case " + c.Value.String() + " " + c.Body.String()
}

// Switch switch expr case ... default ...
type Switch struct {
	SwitchToken token.Token
	Expr        Expression
	Cases       []*Case
}

func (s *Switch) Pos() token.Position { return s.SwitchToken.Pos }
func (s *Switch) stmtNode()           {}
func (s *Switch) String() string {
	parts := []string{"switch " + s.Expr.String()}
	for _, c := range s.Cases {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, " ")
}

// ForLoop for { pre } cond { post } { body }
//
// Pre 中声明的变量在整个循环期间存活。
type ForLoop struct {
	ForToken  token.Token
	Pre       *Block
	Condition Expression
	Post      *Block
	Body      *Block
}

func (s *ForLoop) Pos() token.Position { return s.ForToken.Pos }
func (s *ForLoop) stmtNode()           {}
func (s *ForLoop) String() string {
	return "for " + s.Pre.String() + " " + s.Condition.String() + " " + s.Post.String() + " " + s.Body.String()
}

// Break break
type Break struct{ Token token.Token }

func (s *Break) Pos() token.Position { return s.Token.Pos }
func (s *Break) String() string      { return "break" }
func (s *Break) stmtNode()           {}

// Continue continue
type Continue struct{ Token token.Token }

func (s *Continue) Pos() token.Position { return s.Token.Pos }
func (s *Continue) String() string      { return "continue" }
func (s *Continue) stmtNode()           {}

// Leave leave（提前退出当前函数）
type Leave struct{ Token token.Token }

func (s *Leave) Pos() token.Position { return s.Token.Pos }
func (s *Leave) String() string      { return "leave" }
func (s *Leave) stmtNode()           {}

// FunctionDefinition function f(a, b) -> r { ... }
type FunctionDefinition struct {
	FuncToken       token.Token
	Name            string
	Parameters      []*TypedName
	ReturnVariables []*TypedName
	Body            *Block
}

func (s *FunctionDefinition) Pos() token.Position { return s.FuncToken.Pos }
func (s *FunctionDefinition) stmtNode()           {}
func (s *FunctionDefinition) String() string {
	params := make([]string, len(s.Parameters))
	for i, p := range s.Parameters {
		params[i] = p.String()
	}
	out := "function " + s.Name + "(" + strings.Join(params, ", ") + ")"
	if len(s.ReturnVariables) > 0 {
		rets := make([]string, len(s.ReturnVariables))
		for i, r := range s.ReturnVariables {
			rets[i] = r.String()
		}
		out += " -> " + strings.Join(rets, ", ")
	}
	return out + " " + s.Body.String()
}

// ============================================================================
// 遍历
// ============================================================================

// Visitor 访问者函数类型，返回 false 时不再进入子节点
type Visitor func(node Node) bool

// Walk 按源代码顺序深度优先遍历 AST 节点
func Walk(node Node, visitor Visitor) {
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	switch n := node.(type) {
	case *Block:
		for _, stmt := range n.Statements {
			Walk(stmt, visitor)
		}

	case *VariableDeclaration:
		for _, v := range n.Variables {
			Walk(v, visitor)
		}
		if n.Value != nil {
			Walk(n.Value, visitor)
		}

	case *Assignment:
		for _, v := range n.Variables {
			Walk(v, visitor)
		}
		Walk(n.Value, visitor)

	case *ExpressionStatement:
		Walk(n.Expr, visitor)

	case *If:
		Walk(n.Condition, visitor)
		Walk(n.Body, visitor)

	case *Switch:
		Walk(n.Expr, visitor)
		for _, c := range n.Cases {
			Walk(c, visitor)
		}

	case *Case:
		if n.Value != nil {
			Walk(n.Value, visitor)
		}
		Walk(n.Body, visitor)

	case *ForLoop:
		Walk(n.Pre, visitor)
		Walk(n.Condition, visitor)
		Walk(n.Post, visitor)
		Walk(n.Body, visitor)

	case *FunctionDefinition:
		for _, p := range n.Parameters {
			Walk(p, visitor)
		}
		for _, r := range n.ReturnVariables {
			Walk(r, visitor)
		}
		Walk(n.Body, visitor)

	case *FunctionCall:
		// 函数名不是变量引用，不进入
		for _, a := range n.Args {
			Walk(a, visitor)
		}
	}
}

// Functions 按前序返回 block 中（含嵌套）定义的全部函数
func Functions(root *Block) []*FunctionDefinition {
	var fns []*FunctionDefinition
	Walk(root, func(node Node) bool {
		if fn, ok := node.(*FunctionDefinition); ok {
			fns = append(fns, fn)
		}
		return true
	})
	return fns
}

// ScopedFunction 函数定义及其定义处可见的外部函数
type ScopedFunction struct {
	Function *FunctionDefinition
	// Visible 外围各层块中定义的函数，由内向外排列，同名时靠前者遮蔽靠后者
	Visible []*FunctionDefinition
}

// ScopedFunctions 按与 Functions 相同的前序返回每个函数及其可见函数
//
// 函数在定义它的整个块内可见，包括嵌套的块和嵌套的函数体；
// for 循环初始化部分定义的函数在整个循环内可见。
func ScopedFunctions(root *Block) []ScopedFunction {
	var out []ScopedFunction

	var statement func(s Statement, scope []*FunctionDefinition)
	block := func(b *Block, outer []*FunctionDefinition) {
		scope := append(definedIn(b.Statements), outer...)
		for _, s := range b.Statements {
			statement(s, scope)
		}
	}
	statement = func(s Statement, scope []*FunctionDefinition) {
		switch n := s.(type) {
		case *Block:
			block(n, scope)
		case *If:
			block(n.Body, scope)
		case *Switch:
			for _, c := range n.Cases {
				block(c.Body, scope)
			}
		case *ForLoop:
			inner := append(definedIn(n.Pre.Statements), scope...)
			for _, pre := range n.Pre.Statements {
				statement(pre, inner)
			}
			block(n.Post, inner)
			block(n.Body, inner)
		case *FunctionDefinition:
			out = append(out, ScopedFunction{Function: n, Visible: scope})
			block(n.Body, scope)
		}
	}

	block(root, nil)
	return out
}

func definedIn(stmts []Statement) []*FunctionDefinition {
	var fns []*FunctionDefinition
	for _, s := range stmts {
		if fn, ok := s.(*FunctionDefinition); ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

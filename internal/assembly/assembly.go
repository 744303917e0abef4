// Package assembly 定义代码生成器面向的抽象目标接口及其实现
//
// 接口覆盖代码生成器可能发出的全部栈相关操作。实现分两种：
//   - NullAssembly 只维护栈高度，用于分析
//   - TextAssembly 生成可读的汇编清单，用于调试
//
// 两种实现共享同一套栈高度规则（见 stackCounter）。
package assembly

import (
	"github.com/holiman/uint256"

	"github.com/tangzhangming/yulc/internal/errors"
	"github.com/tangzhangming/yulc/internal/evm"
)

// LabelID 跳转目标句柄
type LabelID uint64

// SubID 子程序或数据块句柄
type SubID uint64

// Assembly 抽象目标接口
type Assembly interface {
	// StackHeight 返回当前栈高度
	StackHeight() int

	// Emit 追加一条指令并应用其栈效果
	Emit(op evm.Instruction)
	// EmitConstant 压入一个常量，效果 (0,1)
	EmitConstant(v *uint256.Int)
	// Dup 复制距栈顶 depth 个槽的值，depth 从 1 开始，不限于 16
	Dup(depth int)
	// Swap 交换栈顶与其下第 depth 个槽，不限于 16
	Swap(depth int)

	// NewLabelID 分配匿名标签
	NewLabelID() LabelID
	// NamedLabel 返回与名称对应的标签，同名返回同一句柄
	NamedLabel(name string) LabelID
	// DefineLabel 在当前位置定义标签，栈效果为零
	DefineLabel(id LabelID)
	// ReferenceLabel 压入标签地址，仅跳转表模式
	ReferenceLabel(id LabelID)

	// Jump 跳转到栈顶地址，之后栈高度再加 diffAfter，仅跳转表模式
	Jump(diffAfter int)
	// JumpTo 无条件跳转到标签，之后栈高度再加 diffAfter
	JumpTo(id LabelID, diffAfter int)
	// JumpToIf 栈顶非零时跳转到标签，弹出条件
	JumpToIf(id LabelID)

	// BeginSub 子程序入口，参数已在栈上，高度加 args，仅子程序模式
	BeginSub(id LabelID, args int)
	// JumpSub 调用子程序，净效果 rets-args，仅子程序模式
	JumpSub(id LabelID, args, rets int)
	// ReturnSub 子程序返回，净效果 diffAfter-rets，仅子程序模式
	ReturnSub(rets, diffAfter int)

	// LinkerSymbol 压入链接期填充的地址，效果 (0,1)
	LinkerSymbol(name string)

	// CreateSubAssembly 创建嵌入的子程序
	CreateSubAssembly() (Assembly, SubID)
	// SubProgramOffset 压入子程序偏移，效果 (0,1)
	SubProgramOffset(id SubID)
	// SubProgramSize 压入子程序大小，效果 (0,1)
	SubProgramSize(id SubID)
	// AssemblySize 压入整个程序的大小，效果 (0,1)
	AssemblySize()
	// EmbedData 登记数据块，栈效果为零
	EmbedData(data []byte) SubID
}

// ============================================================================
// 栈高度计数
// ============================================================================

// stackCounter 两种实现共用的栈高度与链接模式检查
type stackCounter struct {
	height      int
	subroutines bool
}

// adjust 调整栈高度，结果为负时违反契约
func (c *stackCounter) adjust(delta int, what string) {
	c.height += delta
	errors.Assert(c.height >= 0, "stack height became %d after %s", c.height, what)
}

// require 检查当前栈上至少有 n 个槽
func (c *stackCounter) require(n int, what string) {
	errors.Assert(c.height >= n, "%s needs %d stack slot(s), height is %d", what, n, c.height)
}

func (c *stackCounter) emit(op evm.Instruction) {
	info, ok := evm.Info(op)
	errors.Assert(ok, "unknown instruction 0x%02x", byte(op))
	c.require(info.Args, info.Name)
	c.adjust(info.Effect(), info.Name)
}

func (c *stackCounter) dup(depth int) {
	errors.Assert(depth >= 1, "DUP at depth %d", depth)
	c.require(depth, "DUP")
	c.adjust(1, "DUP")
}

func (c *stackCounter) swap(depth int) {
	errors.Assert(depth >= 1, "SWAP at depth %d", depth)
	c.require(depth+1, "SWAP")
}

func (c *stackCounter) jumpTableOnly(what string) {
	errors.Assert(!c.subroutines, "%s is not available in subroutine mode", what)
}

func (c *stackCounter) subroutinesOnly(what string) {
	errors.Assert(c.subroutines, "%s is only available in subroutine mode", what)
}

func (c *stackCounter) jumpTo(diffAfter int) {
	if c.subroutines {
		c.adjust(diffAfter, "JUMPTO")
		return
	}
	c.adjust(1, "label reference")
	c.emit(evm.JUMP)
	c.adjust(diffAfter, "JUMP")
}

func (c *stackCounter) jumpToIf() {
	if c.subroutines {
		c.require(1, "JUMPIF")
		c.adjust(-1, "JUMPIF")
		return
	}
	c.adjust(1, "label reference")
	c.emit(evm.JUMPI)
}

func (c *stackCounter) jump(diffAfter int) {
	c.jumpTableOnly("Jump")
	c.emit(evm.JUMP)
	c.adjust(diffAfter, "JUMP")
}

func (c *stackCounter) beginSub(args int) {
	c.subroutinesOnly("BeginSub")
	errors.Assert(args >= 0, "BeginSub with %d arguments", args)
	c.adjust(args, "BEGINSUB")
}

func (c *stackCounter) jumpSub(args, rets int) {
	c.subroutinesOnly("JumpSub")
	errors.Assert(args >= 0 && rets >= 0, "JumpSub with %d arguments and %d returns", args, rets)
	c.require(args, "JUMPSUB")
	c.adjust(rets-args, "JUMPSUB")
}

func (c *stackCounter) returnSub(rets, diffAfter int) {
	c.subroutinesOnly("ReturnSub")
	errors.Assert(rets >= 0, "ReturnSub with %d returns", rets)
	c.require(rets, "RETURNSUB")
	c.adjust(diffAfter-rets, "RETURNSUB")
}

package assembly

import (
	"github.com/holiman/uint256"

	"github.com/tangzhangming/yulc/internal/errors"
	"github.com/tangzhangming/yulc/internal/evm"
)

// placeholder NullAssembly 分配的所有标签与子程序句柄
const placeholder = 1

// NullAssembly 只做栈高度记账的后端
//
// 不产生任何输出，标签与子程序句柄固定为 1。每次分析创建一个新实例。
type NullAssembly struct {
	counter stackCounter
}

// NewNull 创建空后端，subroutines 选择链接模式
func NewNull(subroutines bool) *NullAssembly {
	return &NullAssembly{counter: stackCounter{subroutines: subroutines}}
}

// StackHeight 返回当前栈高度
func (a *NullAssembly) StackHeight() int { return a.counter.height }

// Emit 应用指令的栈效果
func (a *NullAssembly) Emit(op evm.Instruction) { a.counter.emit(op) }

// EmitConstant 压入一个槽
func (a *NullAssembly) EmitConstant(*uint256.Int) { a.counter.adjust(1, "constant") }

func (a *NullAssembly) Dup(depth int) { a.counter.dup(depth) }

func (a *NullAssembly) Swap(depth int) { a.counter.swap(depth) }

func (a *NullAssembly) NewLabelID() LabelID { return placeholder }

func (a *NullAssembly) NamedLabel(string) LabelID { return placeholder }

// DefineLabel 等价于一条 JUMPDEST
func (a *NullAssembly) DefineLabel(LabelID) { a.counter.emit(evm.JUMPDEST) }

func (a *NullAssembly) ReferenceLabel(LabelID) {
	a.counter.jumpTableOnly("ReferenceLabel")
	a.counter.adjust(1, "label reference")
}

func (a *NullAssembly) Jump(diffAfter int) { a.counter.jump(diffAfter) }

func (a *NullAssembly) JumpTo(_ LabelID, diffAfter int) { a.counter.jumpTo(diffAfter) }

func (a *NullAssembly) JumpToIf(LabelID) { a.counter.jumpToIf() }

func (a *NullAssembly) BeginSub(_ LabelID, args int) { a.counter.beginSub(args) }

func (a *NullAssembly) JumpSub(_ LabelID, args, rets int) { a.counter.jumpSub(args, rets) }

func (a *NullAssembly) ReturnSub(rets, diffAfter int) { a.counter.returnSub(rets, diffAfter) }

func (a *NullAssembly) LinkerSymbol(string) { a.counter.adjust(1, "linker symbol") }

// CreateSubAssembly 空后端不能嵌入子程序
func (a *NullAssembly) CreateSubAssembly() (Assembly, SubID) {
	errors.Fail("sub-assemblies are not supported by the null backend")
	return nil, 0
}

func (a *NullAssembly) SubProgramOffset(SubID) { a.counter.adjust(1, "sub-program offset") }

func (a *NullAssembly) SubProgramSize(SubID) { a.counter.adjust(1, "sub-program size") }

func (a *NullAssembly) AssemblySize() { a.counter.adjust(1, "assembly size") }

func (a *NullAssembly) EmbedData([]byte) SubID { return placeholder }

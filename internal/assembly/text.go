package assembly

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/holiman/uint256"

	"github.com/tangzhangming/yulc/internal/evm"
)

// ============================================================================
// TextAssembly - 汇编清单后端
// ============================================================================
//
// 每条操作输出一行文本，栈高度规则与 NullAssembly 完全一致。
// 标签唯一；具名标签直接使用名称，匿名标签命名为 tag_N。
// 子程序与数据块共用一个句柄计数器，输出时附在主清单之后。
// 超出 16 的 DUP/SWAP 照常计入栈高度，行尾标记 stack too deep 并记录在 TooDeep 中。
//
// ============================================================================

// TextAssembly 汇编清单后端
type TextAssembly struct {
	counter stackCounter

	lines   []string
	tooDeep []string
	labels []string           // LabelID-1 -> 显示名
	named  map[string]LabelID // 具名标签

	nextSub SubID
	subs    map[SubID]*TextAssembly
	data    map[SubID][]byte
}

// NewText 创建清单后端
func NewText(subroutines bool) *TextAssembly {
	return &TextAssembly{
		counter: stackCounter{subroutines: subroutines},
		named:   make(map[string]LabelID),
		subs:    make(map[SubID]*TextAssembly),
		data:    make(map[SubID][]byte),
	}
}

func (a *TextAssembly) write(format string, args ...interface{}) {
	a.lines = append(a.lines, "  "+fmt.Sprintf(format, args...))
}

func (a *TextAssembly) labelName(id LabelID) string {
	if id == 0 || int(id) > len(a.labels) {
		return fmt.Sprintf("tag_?%d", id)
	}
	return a.labels[id-1]
}

// StackHeight 返回当前栈高度
func (a *TextAssembly) StackHeight() int { return a.counter.height }

// Emit 输出指令助记符
func (a *TextAssembly) Emit(op evm.Instruction) {
	a.counter.emit(op)
	a.write("%s", op)
}

// EmitConstant 输出 PUSH 常量
func (a *TextAssembly) EmitConstant(v *uint256.Int) {
	a.counter.adjust(1, "constant")
	a.write("PUSH %s", v.Hex())
}

// Dup 输出 DUPn
func (a *TextAssembly) Dup(depth int) {
	a.counter.dup(depth)
	op, ok := evm.Dup(depth)
	a.stackAccess(op, ok, "DUP", depth)
}

// Swap 输出 SWAPn
func (a *TextAssembly) Swap(depth int) {
	a.counter.swap(depth)
	op, ok := evm.Swap(depth)
	a.stackAccess(op, ok, "SWAP", depth)
}

func (a *TextAssembly) stackAccess(op evm.Instruction, ok bool, name string, depth int) {
	if ok {
		a.write("%s", op)
		return
	}
	mnemonic := fmt.Sprintf("%s%d", name, depth)
	a.tooDeep = append(a.tooDeep, mnemonic)
	a.write("%s ; stack too deep", mnemonic)
}

// TooDeep 返回无法编码的 DUP/SWAP，按出现顺序，含子清单
func (a *TextAssembly) TooDeep() []string {
	out := append([]string(nil), a.tooDeep...)
	ids := make([]SubID, 0, len(a.subs))
	for id := range a.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		out = append(out, a.subs[id].TooDeep()...)
	}
	return out
}

// NewLabelID 分配匿名标签
func (a *TextAssembly) NewLabelID() LabelID {
	a.labels = append(a.labels, fmt.Sprintf("tag_%d", len(a.labels)+1))
	return LabelID(len(a.labels))
}

// NamedLabel 返回具名标签，同名共享
func (a *TextAssembly) NamedLabel(name string) LabelID {
	if id, ok := a.named[name]; ok {
		return id
	}
	a.labels = append(a.labels, name)
	id := LabelID(len(a.labels))
	a.named[name] = id
	return id
}

// DefineLabel 输出标签定义
func (a *TextAssembly) DefineLabel(id LabelID) {
	a.counter.emit(evm.JUMPDEST)
	a.lines = append(a.lines, a.labelName(id)+":")
}

// ReferenceLabel 输出标签地址压栈
func (a *TextAssembly) ReferenceLabel(id LabelID) {
	a.counter.jumpTableOnly("ReferenceLabel")
	a.counter.adjust(1, "label reference")
	a.write("PUSH [%s]", a.labelName(id))
}

func (a *TextAssembly) Jump(diffAfter int) {
	a.counter.jump(diffAfter)
	a.write("JUMP")
}

func (a *TextAssembly) JumpTo(id LabelID, diffAfter int) {
	a.counter.jumpTo(diffAfter)
	if a.counter.subroutines {
		a.write("JUMPTO %s", a.labelName(id))
		return
	}
	a.write("PUSH [%s]", a.labelName(id))
	a.write("JUMP")
}

func (a *TextAssembly) JumpToIf(id LabelID) {
	a.counter.jumpToIf()
	if a.counter.subroutines {
		a.write("JUMPIF %s", a.labelName(id))
		return
	}
	a.write("PUSH [%s]", a.labelName(id))
	a.write("JUMPI")
}

func (a *TextAssembly) BeginSub(id LabelID, args int) {
	a.counter.beginSub(args)
	a.lines = append(a.lines, a.labelName(id)+":")
	a.write("BEGINSUB %d", args)
}

func (a *TextAssembly) JumpSub(id LabelID, args, rets int) {
	a.counter.jumpSub(args, rets)
	a.write("JUMPSUB %s %d %d", a.labelName(id), args, rets)
}

func (a *TextAssembly) ReturnSub(rets, diffAfter int) {
	a.counter.returnSub(rets, diffAfter)
	a.write("RETURNSUB %d", rets)
}

func (a *TextAssembly) LinkerSymbol(name string) {
	a.counter.adjust(1, "linker symbol")
	a.write("PUSHLIB %q", name)
}

// CreateSubAssembly 创建同链接模式的子清单
func (a *TextAssembly) CreateSubAssembly() (Assembly, SubID) {
	a.nextSub++
	sub := NewText(a.counter.subroutines)
	a.subs[a.nextSub] = sub
	return sub, a.nextSub
}

func (a *TextAssembly) SubProgramOffset(id SubID) {
	a.counter.adjust(1, "sub-program offset")
	a.write("PUSH [$sub_%d]", id)
}

func (a *TextAssembly) SubProgramSize(id SubID) {
	a.counter.adjust(1, "sub-program size")
	a.write("PUSH #[$sub_%d]", id)
}

func (a *TextAssembly) AssemblySize() {
	a.counter.adjust(1, "assembly size")
	a.write("PUSHSIZE")
}

// EmbedData 登记数据块
func (a *TextAssembly) EmbedData(data []byte) SubID {
	a.nextSub++
	a.data[a.nextSub] = append([]byte(nil), data...)
	return a.nextSub
}

// Lines 返回主清单的行
func (a *TextAssembly) Lines() []string {
	return a.lines
}

// String 返回完整清单，子程序与数据块按句柄顺序附后
func (a *TextAssembly) String() string {
	var sb strings.Builder
	a.writeTo(&sb, "")
	return sb.String()
}

func (a *TextAssembly) writeTo(sb *strings.Builder, indent string) {
	for _, line := range a.lines {
		sb.WriteString(indent + line + "\n")
	}

	ids := make([]SubID, 0, len(a.subs)+len(a.data))
	for id := range a.subs {
		ids = append(ids, id)
	}
	for id := range a.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if sub, ok := a.subs[id]; ok {
			sb.WriteString(fmt.Sprintf("%ssub_%d: {\n", indent, id))
			sub.writeTo(sb, indent+"  ")
			sb.WriteString(indent + "}\n")
			continue
		}
		sb.WriteString(fmt.Sprintf("%sdata_%d: 0x%s\n", indent, id, hex.EncodeToString(a.data[id])))
	}
}

package evm

import "strings"

// ============================================================================
// 内建函数
// ============================================================================
//
// 中间语言中每个内建函数对应一条指令，参数个数与返回值个数等于指令的栈效果。
// 控制流与栈操作指令（JUMP、DUPn、SWAPn、PUSHn 等）不能作为内建函数调用，
// 它们只由代码生成器内部使用。
//
// ============================================================================

// BuiltinKind 内建函数种类
type BuiltinKind int

const (
	BuiltinInstruction BuiltinKind = iota // 直接映射到一条指令
	BuiltinDataSize                       // datasize("name")
	BuiltinDataOffset                     // dataoffset("name")
	BuiltinLinkerSymbol                   // linkersymbol("name")
)

// Builtin 内建函数描述
type Builtin struct {
	Name        string
	Kind        BuiltinKind
	Instruction Instruction // Kind 为 BuiltinInstruction 时有效
	Args        int
	Rets        int
	LiteralArgs bool // 参数必须是字符串字面量，不求值
}

// reserved 不对外暴露为内建函数的指令
var reserved = map[Instruction]bool{
	JUMP:      true,
	JUMPI:     true,
	JUMPDEST:  true,
	PC:        true,
	JUMPTO:    true,
	JUMPIF:    true,
	JUMPSUB:   true,
	BEGINSUB:  true,
	RETURNSUB: true,
}

var builtins = buildBuiltins()

func buildBuiltins() map[string]*Builtin {
	table := make(map[string]*Builtin, len(infos)+4)
	for op, info := range infos {
		if reserved[op] {
			continue
		}
		name := strings.ToLower(info.Name)
		table[name] = &Builtin{
			Name:        name,
			Kind:        BuiltinInstruction,
			Instruction: op,
			Args:        info.Args,
			Rets:        info.Rets,
		}
	}

	table["datasize"] = &Builtin{Name: "datasize", Kind: BuiltinDataSize, Args: 1, Rets: 1, LiteralArgs: true}
	table["dataoffset"] = &Builtin{Name: "dataoffset", Kind: BuiltinDataOffset, Args: 1, Rets: 1, LiteralArgs: true}
	table["linkersymbol"] = &Builtin{Name: "linkersymbol", Kind: BuiltinLinkerSymbol, Args: 1, Rets: 1, LiteralArgs: true}
	table["datacopy"] = &Builtin{Name: "datacopy", Kind: BuiltinInstruction, Instruction: CODECOPY, Args: 3, Rets: 0}
	return table
}

// LookupBuiltin 按名称查找内建函数
func LookupBuiltin(name string) (*Builtin, bool) {
	b, ok := builtins[name]
	return b, ok
}

// IsBuiltin 判断名称是否为内建函数
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

// BuiltinNames 返回所有内建函数名（无序）
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	return names
}

// Package evm 定义目标栈机的指令集及每条指令的栈效果
package evm

import "fmt"

// ============================================================================
// 指令定义
// ============================================================================

// Instruction 指令操作码
type Instruction byte

const (
	STOP       Instruction = 0x00
	ADD        Instruction = 0x01
	MUL        Instruction = 0x02
	SUB        Instruction = 0x03
	DIV        Instruction = 0x04
	SDIV       Instruction = 0x05
	MOD        Instruction = 0x06
	SMOD       Instruction = 0x07
	ADDMOD     Instruction = 0x08
	MULMOD     Instruction = 0x09
	EXP        Instruction = 0x0a
	SIGNEXTEND Instruction = 0x0b

	LT     Instruction = 0x10
	GT     Instruction = 0x11
	SLT    Instruction = 0x12
	SGT    Instruction = 0x13
	EQ     Instruction = 0x14
	ISZERO Instruction = 0x15
	AND    Instruction = 0x16
	OR     Instruction = 0x17
	XOR    Instruction = 0x18
	NOT    Instruction = 0x19
	BYTE   Instruction = 0x1a
	SHL    Instruction = 0x1b
	SHR    Instruction = 0x1c
	SAR    Instruction = 0x1d

	KECCAK256 Instruction = 0x20

	ADDRESS        Instruction = 0x30
	BALANCE        Instruction = 0x31
	ORIGIN         Instruction = 0x32
	CALLER         Instruction = 0x33
	CALLVALUE      Instruction = 0x34
	CALLDATALOAD   Instruction = 0x35
	CALLDATASIZE   Instruction = 0x36
	CALLDATACOPY   Instruction = 0x37
	CODESIZE       Instruction = 0x38
	CODECOPY       Instruction = 0x39
	GASPRICE       Instruction = 0x3a
	EXTCODESIZE    Instruction = 0x3b
	EXTCODECOPY    Instruction = 0x3c
	RETURNDATASIZE Instruction = 0x3d
	RETURNDATACOPY Instruction = 0x3e
	EXTCODEHASH    Instruction = 0x3f

	BLOCKHASH   Instruction = 0x40
	COINBASE    Instruction = 0x41
	TIMESTAMP   Instruction = 0x42
	NUMBER      Instruction = 0x43
	DIFFICULTY  Instruction = 0x44
	GASLIMIT    Instruction = 0x45
	CHAINID     Instruction = 0x46
	SELFBALANCE Instruction = 0x47

	POP      Instruction = 0x50
	MLOAD    Instruction = 0x51
	MSTORE   Instruction = 0x52
	MSTORE8  Instruction = 0x53
	SLOAD    Instruction = 0x54
	SSTORE   Instruction = 0x55
	JUMP     Instruction = 0x56
	JUMPI    Instruction = 0x57
	PC       Instruction = 0x58
	MSIZE    Instruction = 0x59
	GAS      Instruction = 0x5a
	JUMPDEST Instruction = 0x5b

	PUSH1  Instruction = 0x60
	PUSH20 Instruction = 0x73
	PUSH32 Instruction = 0x7f
	DUP1   Instruction = 0x80
	DUP16  Instruction = 0x8f
	SWAP1  Instruction = 0x90
	SWAP16 Instruction = 0x9f

	LOG0 Instruction = 0xa0
	LOG1 Instruction = 0xa1
	LOG2 Instruction = 0xa2
	LOG3 Instruction = 0xa3
	LOG4 Instruction = 0xa4

	// 子程序扩展（仅子程序链接模式使用，栈效果由 Assembly 的专用方法给出）
	JUMPTO    Instruction = 0xb0
	JUMPIF    Instruction = 0xb1
	JUMPSUB   Instruction = 0xb3
	BEGINSUB  Instruction = 0xb5
	RETURNSUB Instruction = 0xb7

	CREATE       Instruction = 0xf0
	CALL         Instruction = 0xf1
	CALLCODE     Instruction = 0xf2
	RETURN       Instruction = 0xf3
	DELEGATECALL Instruction = 0xf4
	CREATE2      Instruction = 0xf5
	STATICCALL   Instruction = 0xfa
	REVERT       Instruction = 0xfd
	INVALID      Instruction = 0xfe
	SELFDESTRUCT Instruction = 0xff
)

// InstructionInfo 指令信息：名称与栈效果
type InstructionInfo struct {
	Name string
	Args int // 弹出的栈槽数
	Rets int // 压入的栈槽数
}

// Effect 返回净栈效果
func (info InstructionInfo) Effect() int {
	return info.Rets - info.Args
}

// infos 指令信息表，未出现的操作码视为无效
var infos = map[Instruction]InstructionInfo{
	STOP:       {"STOP", 0, 0},
	ADD:        {"ADD", 2, 1},
	MUL:        {"MUL", 2, 1},
	SUB:        {"SUB", 2, 1},
	DIV:        {"DIV", 2, 1},
	SDIV:       {"SDIV", 2, 1},
	MOD:        {"MOD", 2, 1},
	SMOD:       {"SMOD", 2, 1},
	ADDMOD:     {"ADDMOD", 3, 1},
	MULMOD:     {"MULMOD", 3, 1},
	EXP:        {"EXP", 2, 1},
	SIGNEXTEND: {"SIGNEXTEND", 2, 1},

	LT:     {"LT", 2, 1},
	GT:     {"GT", 2, 1},
	SLT:    {"SLT", 2, 1},
	SGT:    {"SGT", 2, 1},
	EQ:     {"EQ", 2, 1},
	ISZERO: {"ISZERO", 1, 1},
	AND:    {"AND", 2, 1},
	OR:     {"OR", 2, 1},
	XOR:    {"XOR", 2, 1},
	NOT:    {"NOT", 1, 1},
	BYTE:   {"BYTE", 2, 1},
	SHL:    {"SHL", 2, 1},
	SHR:    {"SHR", 2, 1},
	SAR:    {"SAR", 2, 1},

	KECCAK256: {"KECCAK256", 2, 1},

	ADDRESS:        {"ADDRESS", 0, 1},
	BALANCE:        {"BALANCE", 1, 1},
	ORIGIN:         {"ORIGIN", 0, 1},
	CALLER:         {"CALLER", 0, 1},
	CALLVALUE:      {"CALLVALUE", 0, 1},
	CALLDATALOAD:   {"CALLDATALOAD", 1, 1},
	CALLDATASIZE:   {"CALLDATASIZE", 0, 1},
	CALLDATACOPY:   {"CALLDATACOPY", 3, 0},
	CODESIZE:       {"CODESIZE", 0, 1},
	CODECOPY:       {"CODECOPY", 3, 0},
	GASPRICE:       {"GASPRICE", 0, 1},
	EXTCODESIZE:    {"EXTCODESIZE", 1, 1},
	EXTCODECOPY:    {"EXTCODECOPY", 4, 0},
	RETURNDATASIZE: {"RETURNDATASIZE", 0, 1},
	RETURNDATACOPY: {"RETURNDATACOPY", 3, 0},
	EXTCODEHASH:    {"EXTCODEHASH", 1, 1},

	BLOCKHASH:   {"BLOCKHASH", 1, 1},
	COINBASE:    {"COINBASE", 0, 1},
	TIMESTAMP:   {"TIMESTAMP", 0, 1},
	NUMBER:      {"NUMBER", 0, 1},
	DIFFICULTY:  {"DIFFICULTY", 0, 1},
	GASLIMIT:    {"GASLIMIT", 0, 1},
	CHAINID:     {"CHAINID", 0, 1},
	SELFBALANCE: {"SELFBALANCE", 0, 1},

	POP:      {"POP", 1, 0},
	MLOAD:    {"MLOAD", 1, 1},
	MSTORE:   {"MSTORE", 2, 0},
	MSTORE8:  {"MSTORE8", 2, 0},
	SLOAD:    {"SLOAD", 1, 1},
	SSTORE:   {"SSTORE", 2, 0},
	JUMP:     {"JUMP", 1, 0},
	JUMPI:    {"JUMPI", 2, 0},
	PC:       {"PC", 0, 1},
	MSIZE:    {"MSIZE", 0, 1},
	GAS:      {"GAS", 0, 1},
	JUMPDEST: {"JUMPDEST", 0, 0},

	LOG0: {"LOG0", 2, 0},
	LOG1: {"LOG1", 3, 0},
	LOG2: {"LOG2", 4, 0},
	LOG3: {"LOG3", 5, 0},
	LOG4: {"LOG4", 6, 0},

	JUMPTO:    {"JUMPTO", 0, 0},
	JUMPIF:    {"JUMPIF", 1, 0},
	JUMPSUB:   {"JUMPSUB", 0, 0},
	BEGINSUB:  {"BEGINSUB", 0, 0},
	RETURNSUB: {"RETURNSUB", 0, 0},

	CREATE:       {"CREATE", 3, 1},
	CALL:         {"CALL", 7, 1},
	CALLCODE:     {"CALLCODE", 7, 1},
	RETURN:       {"RETURN", 2, 0},
	DELEGATECALL: {"DELEGATECALL", 6, 1},
	CREATE2:      {"CREATE2", 4, 1},
	STATICCALL:   {"STATICCALL", 6, 1},
	REVERT:       {"REVERT", 2, 0},
	INVALID:      {"INVALID", 0, 0},
	SELFDESTRUCT: {"SELFDESTRUCT", 1, 0},
}

// Info 返回指令信息
//
// PUSH/DUP/SWAP 按区间计算：DUPn 读取 n 个槽并多压入一个，SWAPn 涉及 n+1 个槽。
func Info(op Instruction) (InstructionInfo, bool) {
	switch {
	case op >= PUSH1 && op <= PUSH32:
		return InstructionInfo{fmt.Sprintf("PUSH%d", op-PUSH1+1), 0, 1}, true
	case op >= DUP1 && op <= DUP16:
		n := int(op-DUP1) + 1
		return InstructionInfo{fmt.Sprintf("DUP%d", n), n, n + 1}, true
	case op >= SWAP1 && op <= SWAP16:
		n := int(op-SWAP1) + 1
		return InstructionInfo{fmt.Sprintf("SWAP%d", n), n + 1, n + 1}, true
	}
	info, ok := infos[op]
	return info, ok
}

// MustInfo 返回指令信息，未知操作码时 panic（仅用于内部已知指令）
func MustInfo(op Instruction) InstructionInfo {
	info, ok := Info(op)
	if !ok {
		panic(fmt.Sprintf("unknown instruction 0x%02x", byte(op)))
	}
	return info
}

// String 返回指令助记符
func (op Instruction) String() string {
	if info, ok := Info(op); ok {
		return info.Name
	}
	return fmt.Sprintf("INVALID(0x%02x)", byte(op))
}

// Push 返回压入 n 字节立即数的 PUSH 指令，n 取值 1..32
func Push(n int) Instruction {
	if n < 1 || n > 32 {
		panic(fmt.Sprintf("invalid push width %d", n))
	}
	return PUSH1 + Instruction(n-1)
}

// MaxStackAccess DUP/SWAP 能够到达的最大深度
const MaxStackAccess = 16

// Dup 返回复制距栈顶 depth 个槽（depth 从 1 开始）的 DUP 指令
//
// 超出 DUP16 时 ok 为 false，调用方自行处理。
func Dup(depth int) (op Instruction, ok bool) {
	if depth < 1 {
		panic(fmt.Sprintf("invalid dup depth %d", depth))
	}
	if depth > MaxStackAccess {
		return INVALID, false
	}
	return DUP1 + Instruction(depth-1), true
}

// Swap 返回交换栈顶与其下第 depth 个槽的 SWAP 指令，超出 SWAP16 时 ok 为 false
func Swap(depth int) (op Instruction, ok bool) {
	if depth < 1 {
		panic(fmt.Sprintf("invalid swap depth %d", depth))
	}
	if depth > MaxStackAccess {
		return INVALID, false
	}
	return SWAP1 + Instruction(depth-1), true
}

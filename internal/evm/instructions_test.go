package evm

import "testing"

func TestInfoStackEffects(t *testing.T) {
	tests := []struct {
		op   Instruction
		name string
		args int
		rets int
	}{
		{ADD, "ADD", 2, 1},
		{POP, "POP", 1, 0},
		{ISZERO, "ISZERO", 1, 1},
		{JUMP, "JUMP", 1, 0},
		{JUMPI, "JUMPI", 2, 0},
		{JUMPDEST, "JUMPDEST", 0, 0},
		{CALL, "CALL", 7, 1},
		{PUSH1, "PUSH1", 0, 1},
		{PUSH32, "PUSH32", 0, 1},
		{DUP1, "DUP1", 1, 2},
		{DUP16, "DUP16", 16, 17},
		{SWAP1, "SWAP1", 2, 2},
		{SWAP16, "SWAP16", 17, 17},
	}

	for _, tt := range tests {
		info, ok := Info(tt.op)
		if !ok {
			t.Fatalf("Info(%#x) not found", byte(tt.op))
		}
		if info.Name != tt.name || info.Args != tt.args || info.Rets != tt.rets {
			t.Errorf("Info(%s) = %+v, want {%s %d %d}", tt.name, info, tt.name, tt.args, tt.rets)
		}
	}
}

func TestUnknownInstruction(t *testing.T) {
	if _, ok := Info(Instruction(0x0c)); ok {
		t.Error("0x0c should be unknown")
	}
	if got := Instruction(0x0c).String(); got != "INVALID(0x0c)" {
		t.Errorf("String() = %q", got)
	}
}

func TestDupSwapDepth(t *testing.T) {
	tests := []struct {
		depth int
		dup   Instruction
		swap  Instruction
		ok    bool
	}{
		{1, DUP1, SWAP1, true},
		{16, DUP16, SWAP16, true},
		{17, INVALID, INVALID, false},
		{20, INVALID, INVALID, false},
	}
	for _, tt := range tests {
		if op, ok := Dup(tt.depth); op != tt.dup || ok != tt.ok {
			t.Errorf("Dup(%d) = %s, %v", tt.depth, op, ok)
		}
		if op, ok := Swap(tt.depth); op != tt.swap || ok != tt.ok {
			t.Errorf("Swap(%d) = %s, %v", tt.depth, op, ok)
		}
	}
	if Push(1) != PUSH1 || Push(32) != PUSH32 || Push(20) != PUSH20 {
		t.Error("Push mapping wrong")
	}
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		name string
		args int
		rets int
	}{
		{"add", 2, 1},
		{"mstore", 2, 0},
		{"pop", 1, 0},
		{"calldataload", 1, 1},
		{"datasize", 1, 1},
		{"dataoffset", 1, 1},
		{"datacopy", 3, 0},
		{"linkersymbol", 1, 1},
	}
	for _, tt := range tests {
		b, ok := LookupBuiltin(tt.name)
		if !ok {
			t.Errorf("builtin %s missing", tt.name)
			continue
		}
		if b.Args != tt.args || b.Rets != tt.rets {
			t.Errorf("builtin %s = (%d, %d), want (%d, %d)", tt.name, b.Args, b.Rets, tt.args, tt.rets)
		}
	}

	for _, name := range []string{"jump", "jumpi", "jumpdest", "dup1", "swap1", "push1", "pc"} {
		if IsBuiltin(name) {
			t.Errorf("%s must not be a builtin", name)
		}
	}
}

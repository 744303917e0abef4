// Package dialect 描述目标栈机的方言：可达窗口大小与函数链接模式
package dialect

import (
	"fmt"
	"math"

	"github.com/tangzhangming/yulc/internal/evm"
)

// Unrestricted 无限制方言下报告的裕量哨兵值
const Unrestricted = math.MaxInt32

// MaxStackWindow 目标机器 DUP/SWAP 指令所能达到的最大深度
const MaxStackWindow = 16

// Dialect 方言描述
type Dialect struct {
	name        string
	stackWindow int  // 0 表示不限制
	subroutines bool // true 表示使用子程序原语链接函数，否则使用跳转表
}

// New 创建方言，stackWindow 为 0 表示不限制
func New(name string, stackWindow int, subroutines bool) (*Dialect, error) {
	if name == "" {
		return nil, fmt.Errorf("dialect name must not be empty")
	}
	if stackWindow < 0 {
		return nil, fmt.Errorf("dialect %s: stack window must not be negative, got %d", name, stackWindow)
	}
	return &Dialect{name: name, stackWindow: stackWindow, subroutines: subroutines}, nil
}

// Yul 不限制栈深的通用方言
func Yul() *Dialect {
	return &Dialect{name: "yul"}
}

// EVM 跳转表链接的目标机器方言
func EVM() *Dialect {
	return &Dialect{name: "evm", stackWindow: MaxStackWindow}
}

// EVM15 子程序链接的目标机器方言
func EVM15() *Dialect {
	return &Dialect{name: "evm15", stackWindow: MaxStackWindow, subroutines: true}
}

// ByName 按名称查找内置方言
func ByName(name string) (*Dialect, error) {
	switch name {
	case "yul":
		return Yul(), nil
	case "evm":
		return EVM(), nil
	case "evm15":
		return EVM15(), nil
	}
	return nil, fmt.Errorf("unknown dialect %q (want yul, evm or evm15)", name)
}

// Name 方言名称
func (d *Dialect) Name() string { return d.name }

// StackWindow 可达窗口大小，0 表示不限制
func (d *Dialect) StackWindow() int { return d.stackWindow }

// Restricted 是否限制栈深
func (d *Dialect) Restricted() bool { return d.stackWindow > 0 }

// Subroutines 是否使用子程序链接模式
func (d *Dialect) Subroutines() bool { return d.subroutines }

// Builtin 查找内建函数
func (d *Dialect) Builtin(name string) (*evm.Builtin, bool) {
	return evm.LookupBuiltin(name)
}

// String 返回方言描述
func (d *Dialect) String() string {
	mode := "jump-table"
	if d.subroutines {
		mode = "subroutines"
	}
	if !d.Restricted() {
		return fmt.Sprintf("%s (unrestricted, %s)", d.name, mode)
	}
	return fmt.Sprintf("%s (window %d, %s)", d.name, d.stackWindow, mode)
}

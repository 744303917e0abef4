// Package optimiser 包含作用于中间语言 AST 的改写步骤
package optimiser

import (
	"strconv"
	"strings"

	"github.com/tangzhangming/yulc/internal/ast"
)

// ============================================================================
// VarNameCleaner - 变量名清理
// ============================================================================
//
// 去掉变量名末尾形如 (_[0-9]+)+ 的后缀，同时保持名称唯一：
//   a, a_1, a_1_2        -> a, a_1, a_2
//   a, a_1, a_1_2, a_2   -> a, a_1, a_2, a_3
//   a_15, a_17           -> a, a_2
//   abi_decode_256       -> abi_decode
//
// 只改写变量声明及其后续引用，函数名、参数和返回变量保持不变。
//
// ============================================================================

// VarNameCleaner 变量名清理器
type VarNameCleaner struct {
	usedNames map[string]string // 原名或新名 -> 新名
}

// NewVarNameCleaner 创建清理器
func NewVarNameCleaner() *VarNameCleaner {
	return &VarNameCleaner{usedNames: make(map[string]string)}
}

// CleanVarNames 对 block 原地执行变量名清理
func CleanVarNames(block *ast.Block) {
	NewVarNameCleaner().Run(block)
}

// Run 按源代码顺序改写 block
func (c *VarNameCleaner) Run(block *ast.Block) {
	ast.Walk(block, func(node ast.Node) bool {
		switch n := node.(type) {
		case *ast.VariableDeclaration:
			for _, v := range n.Variables {
				if newName, ok := c.makeCleanName(v.Name); ok {
					v.Name = newName
				}
			}
		case *ast.Identifier:
			if newName, ok := c.cleanName(n.Name); ok {
				n.Name = newName
			}
		}
		return true
	})
}

// makeCleanName 为声明生成干净且唯一的名称，并记住映射
func (c *VarNameCleaner) makeCleanName(name string) (string, bool) {
	base, ok := StripSuffix(name)
	if !ok {
		c.usedNames[name] = name
		return "", false
	}

	if _, used := c.usedNames[base]; !used {
		c.usedNames[name] = base
		c.usedNames[base] = base
		return base, true
	}

	for i := 1; ; i++ {
		candidate := base + "_" + strconv.Itoa(i)
		if _, used := c.usedNames[candidate]; !used {
			c.usedNames[name] = candidate
			c.usedNames[candidate] = candidate
			return candidate, true
		}
	}
}

// cleanName 返回引用对应的新名称，名称未被改写时 ok 为 false
func (c *VarNameCleaner) cleanName(name string) (string, bool) {
	newName, ok := c.usedNames[name]
	if !ok || newName == name {
		return "", false
	}
	return newName, true
}

// StripSuffix 去掉第一个合法的 (_[0-9]+)+ 后缀；以下划线开头的名称不处理
func StripSuffix(name string) (string, bool) {
	for i := strings.IndexByte(name, '_'); i > 0; {
		if isValidSuffix(name[i:]) {
			return name[:i], true
		}
		next := strings.IndexByte(name[i+1:], '_')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return "", false
}

func isValidSuffix(suffix string) bool {
	if len(suffix) < 2 {
		return false
	}
	for i := 0; i < len(suffix); i++ {
		if c := suffix[i]; c != '_' && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

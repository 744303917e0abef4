// Package stacklayout 跟踪变量在栈上的位置并计算可达裕量
package stacklayout

import (
	"github.com/tangzhangming/yulc/internal/assembly"
	"github.com/tangzhangming/yulc/internal/dialect"
	"github.com/tangzhangming/yulc/internal/errors"
)

// Unrestricted 不限制栈深时报告的裕量
const Unrestricted = dialect.Unrestricted

// FunctionExit Deepest 对函数出口整理返回地址的访问使用的名字
const FunctionExit = "<function exit>"

// ============================================================================
// Simulator - 栈布局模拟器
// ============================================================================
//
// 作为代码生成遍历的观察者运行。每个变量在声明时记录绝对栈位置 slot，
// 引用时的距离为 height-1-slot，其中 height 取自同一个后端。
// 裕量是所有引用上 window-distance 的最小值，初始为 window。
// 函数出口的 SWAP 不对应变量，以 StackAccessed 报告，深度同样折叠进裕量。
// 不限制栈深的方言不做折叠，裕量始终为 Unrestricted。
//
// ============================================================================

// Simulator 栈布局模拟器
type Simulator struct {
	asm        assembly.Assembly
	window     int
	restricted bool

	scopes []map[string]int // 每层作用域：变量名 -> 绝对栈位置
	margin int

	references int
	worstName  string
	worstDepth int
}

// New 创建模拟器，asm 必须是同一次遍历使用的后端
func New(asm assembly.Assembly, d *dialect.Dialect) *Simulator {
	s := &Simulator{
		asm:        asm,
		window:     d.StackWindow(),
		restricted: d.Restricted(),
		margin:     Unrestricted,
		worstDepth: -1,
	}
	if s.restricted {
		s.margin = s.window
	}
	return s
}

// ScopeEntered 打开一层作用域
func (s *Simulator) ScopeEntered() {
	s.scopes = append(s.scopes, make(map[string]int))
}

// ScopeExited 丢弃最内层作用域的绑定，外层同名变量随之恢复可见
func (s *Simulator) ScopeExited() {
	errors.Assert(len(s.scopes) > 0, "scope exit without matching entry")
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// VariablesDeclared 绑定栈顶 len(names) 个槽，最后一个名字在栈顶
func (s *Simulator) VariablesDeclared(names []string) {
	errors.Assert(len(s.scopes) > 0, "variables %v declared outside of any scope", names)
	height := s.asm.StackHeight()
	errors.Assert(height >= len(names), "declaring %d variable(s) at stack height %d", len(names), height)

	scope := s.scopes[len(s.scopes)-1]
	base := height - len(names)
	for i, name := range names {
		scope[name] = base + i
	}
}

// VariableReferenced 计算变量到栈顶的距离并折叠进裕量
func (s *Simulator) VariableReferenced(name string) {
	slot, ok := s.lookup(name)
	errors.Assert(ok, "reference to unknown variable %q", name)

	distance := s.asm.StackHeight() - 1 - slot
	errors.Assert(distance >= 0, "variable %q referenced at negative distance %d", name, distance)

	s.fold(name, distance)
}

// StackAccessed 把一次不对应变量的 SWAP 深度折叠进裕量
func (s *Simulator) StackAccessed(depth int) {
	errors.Assert(depth >= 1 && depth < s.asm.StackHeight(),
		"stack access at depth %d with height %d", depth, s.asm.StackHeight())
	s.fold(FunctionExit, depth)
}

func (s *Simulator) fold(name string, distance int) {
	s.references++
	if distance > s.worstDepth {
		s.worstName, s.worstDepth = name, distance
	}
	if !s.restricted {
		return
	}
	if m := s.window - distance; m < s.margin {
		s.margin = m
	}
}

// Distance 返回变量当前到栈顶的距离
func (s *Simulator) Distance(name string) (int, bool) {
	slot, ok := s.lookup(name)
	if !ok {
		return 0, false
	}
	return s.asm.StackHeight() - 1 - slot, true
}

// Margin 返回目前为止的最差裕量
func (s *Simulator) Margin() int {
	return s.margin
}

// References 返回已处理的访问次数，包括函数出口的 SWAP
func (s *Simulator) References() int {
	return s.references
}

// Deepest 返回引用距离最大的变量及其距离，没有引用时 depth 为 -1
func (s *Simulator) Deepest() (name string, depth int) {
	return s.worstName, s.worstDepth
}

// Live 返回当前可见的绑定数（同名只计一次）
func (s *Simulator) Live() int {
	seen := make(map[string]bool)
	for _, scope := range s.scopes {
		for name := range scope {
			seen[name] = true
		}
	}
	return len(seen)
}

func (s *Simulator) lookup(name string) (int, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if slot, ok := s.scopes[i][name]; ok {
			return slot, true
		}
	}
	return 0, false
}

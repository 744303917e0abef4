package codegen

// Observer 接收遍历过程中与变量布局相关的事件
//
// 事件发生的时刻与真实后端读写栈的时刻一致，观察者据此可以独立地
// 还原每个变量在栈上的位置。
type Observer interface {
	// ScopeEntered 进入一个词法块
	ScopeEntered()
	// VariablesDeclared 一组变量的初始值已经压栈，names 按栈序排列，最后一个在栈顶
	VariablesDeclared(names []string)
	// VariableReferenced 即将读取（DUP）或赋值（SWAP）变量
	VariableReferenced(name string)
	// ScopeExited 即将离开词法块，块内变量随后被弹出
	ScopeExited()
	// StackAccessed 即将访问不对应任何变量的槽，depth 为 SWAP 的深度
	//
	// 函数出口整理返回地址与返回值时发出。
	StackAccessed(depth int)
}

// NopObserver 忽略所有事件
type NopObserver struct{}

func (NopObserver) ScopeEntered()              {}
func (NopObserver) VariablesDeclared([]string) {}
func (NopObserver) VariableReferenced(string)  {}
func (NopObserver) ScopeExited()               {}
func (NopObserver) StackAccessed(int)          {}

package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// 契约违例
// ============================================================================
//
// 后端与遍历器之间的前置条件一旦被破坏（栈高度变为负数、在错误的链接模式下
// 调用跳转原语、引用未声明的变量等），当前这次分析已经没有意义，只能整体放弃。
// 违例以 panic(*ContractViolation) 的形式抛出，在分析入口处用 Recover 转换为
// 普通 error 返回给调用方。
//
// ============================================================================

// ContractViolation 后端契约违例
type ContractViolation struct {
	Message string
}

// Error 实现 error 接口
func (e *ContractViolation) Error() string {
	return "contract violation: " + e.Message
}

// Violation 构造契约违例
func Violation(format string, args ...interface{}) *ContractViolation {
	return &ContractViolation{Message: fmt.Sprintf(format, args...)}
}

// Assert 条件不成立时抛出契约违例
func Assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(Violation(format, args...))
	}
}

// Fail 无条件抛出契约违例
func Fail(format string, args ...interface{}) {
	panic(Violation(format, args...))
}

// Recover 捕获契约违例并写入 *errp，其他 panic 继续向上传播
//
// 用法：defer errors.Recover(&err)
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if cv, ok := r.(*ContractViolation); ok {
		*errp = cv
		return
	}
	panic(r)
}

// IsContractViolation 判断 err 链中是否包含契约违例
func IsContractViolation(err error) bool {
	var cv *ContractViolation
	return errors.As(err, &cv)
}

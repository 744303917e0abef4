// Package errors 提供 yulc 的诊断与契约违例处理
package errors

// ============================================================================
// 错误级别
// ============================================================================

// Level 诊断级别
type Level int

const (
	LevelError   Level = iota // 错误
	LevelWarning              // 警告
	LevelNote                 // 提示
	LevelHelp                 // 帮助
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelNote:
		return "note"
	case LevelHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ============================================================================
// 诊断码
// ============================================================================

const (
	// E0001-E0099: 语法错误
	E0001 = "E0001" // 语法错误
	E0002 = "E0002" // 意外的字符
	E0003 = "E0003" // 未闭合的字符串
	E0004 = "E0004" // 未闭合的注释
	E0005 = "E0005" // 无效的数字

	// E0100-E0199: 名称错误
	E0100 = "E0100" // 未定义的标识符
	E0101 = "E0101" // 参数数量不匹配

	// E0900-E0999: 后端契约
	E0900 = "E0900" // 后端契约违例

	// W0100-W0199: 栈可达性
	W0100 = "W0100" // 变量超出可达窗口
)

// ErrorInfo 诊断码信息
type ErrorInfo struct {
	Code     string // 诊断码
	Level    Level  // 级别
	Title    string // 简短标题
	Category string // 分类
}

var codeInfos = map[string]ErrorInfo{
	E0001: {E0001, LevelError, "syntax error", "syntax"},
	E0002: {E0002, LevelError, "unexpected character", "syntax"},
	E0003: {E0003, LevelError, "unterminated string", "syntax"},
	E0004: {E0004, LevelError, "unterminated comment", "syntax"},
	E0005: {E0005, LevelError, "invalid number literal", "syntax"},

	E0100: {E0100, LevelError, "undefined identifier", "name"},
	E0101: {E0101, LevelError, "argument count mismatch", "name"},

	E0900: {E0900, LevelError, "backend contract violation", "backend"},

	W0100: {W0100, LevelWarning, "stack too deep", "stack"},
}

// GetErrorInfo 获取诊断码信息
func GetErrorInfo(code string) (ErrorInfo, bool) {
	info, ok := codeInfos[code]
	return info, ok
}

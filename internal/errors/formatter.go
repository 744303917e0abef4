package errors

import (
	"fmt"
	"strings"
)

// ============================================================================
// 诊断
// ============================================================================

// Label 代码标签（用于标注附加位置）
type Label struct {
	Line    int    // 行号（1-based）
	Column  int    // 列号（1-based）
	Length  int    // 标注长度
	Message string // 标签消息
	Primary bool   // 是否为主要标签
}

// CompileError 一条带位置的诊断
type CompileError struct {
	Code      string   // 诊断码 (E0001)
	Level     Level    // 级别
	Message   string   // 主消息
	File      string   // 文件路径
	Line      int      // 行号
	Column    int      // 列号
	EndColumn int      // 结束列
	Labels    []Label  // 代码标签
	Hints     []string // 修复建议
	Notes     []string // 附加说明
}

// Error 实现 error 接口
func (e *CompileError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
}

// NewCompileError 按诊断码创建诊断，级别取自诊断码表
func NewCompileError(code, file string, line, col int, message string) *CompileError {
	level := LevelError
	if info, ok := GetErrorInfo(code); ok {
		level = info.Level
	}
	return &CompileError{
		Code:    code,
		Level:   level,
		Message: message,
		File:    file,
		Line:    line,
		Column:  col,
	}
}

// ============================================================================
// 格式化器
// ============================================================================

// Formatter 诊断格式化器
type Formatter struct {
	Colors     bool // 是否使用颜色
	ShowSource bool // 是否显示源代码
	ShowHints  bool // 是否显示修复建议
	TabWidth   int  // Tab 宽度
}

// NewFormatter 创建默认格式化器，是否着色取决于终端
func NewFormatter() *Formatter {
	return &Formatter{
		Colors:     ColorsEnabled(),
		ShowSource: true,
		ShowHints:  true,
		TabWidth:   4,
	}
}

// FormatCompileError 格式化一条诊断
func (f *Formatter) FormatCompileError(err *CompileError, sourceLines []string) string {
	var sb strings.Builder

	// 头部: error[E0001]: expected '}'
	levelStr := f.colorize(err.Level.String(), f.levelColor(err.Level))
	codeStr := f.colorize(fmt.Sprintf("[%s]", err.Code), f.levelColor(err.Level))
	sb.WriteString(fmt.Sprintf("%s%s: %s\n", levelStr, codeStr, err.Message))

	// 位置: --> file.yul:5:12
	arrow := f.colorize("-->", ColorCyan)
	location := f.colorize(fmt.Sprintf("%s:%d:%d", err.File, err.Line, err.Column), ColorCyan)
	sb.WriteString(fmt.Sprintf(" %s %s\n", arrow, location))

	if f.ShowSource && len(sourceLines) > 0 && err.Line > 0 && err.Line <= len(sourceLines) {
		sb.WriteString(f.formatSourceContext(sourceLines, err.Line, err.Column, err.EndColumn, err.Labels))
	}

	if f.ShowHints {
		for _, hint := range err.Hints {
			sb.WriteString(fmt.Sprintf("%s %s\n", f.colorize(" = help:", ColorCyan), hint))
		}
	}

	for _, note := range err.Notes {
		sb.WriteString(fmt.Sprintf("%s %s\n", f.colorize(" = note:", ColorCyan), note))
	}

	return sb.String()
}

// formatSourceContext 格式化源代码上下文
func (f *Formatter) formatSourceContext(lines []string, errorLine, startCol, endCol int, labels []Label) string {
	var sb strings.Builder

	maxLine := errorLine
	for _, label := range labels {
		if label.Line > maxLine && label.Line <= len(lines) {
			maxLine = label.Line
		}
	}
	lineNumWidth := len(fmt.Sprintf("%d", maxLine))

	separator := f.colorize(strings.Repeat(" ", lineNumWidth)+" |", ColorBlue)
	sb.WriteString(separator + "\n")

	line := lines[errorLine-1]
	lineNum := f.colorize(fmt.Sprintf("%*d", lineNumWidth, errorLine), ColorBlue)
	pipe := f.colorize(" |", ColorBlue)
	sb.WriteString(fmt.Sprintf("%s%s %s\n", lineNum, pipe, f.expandTabs(line)))

	if endCol == 0 {
		endCol = startCol + 1
	}
	length := endCol - startCol
	if length < 1 {
		length = 1
	}
	actualCol := f.calculateActualColumn(line, startCol)
	underline := strings.Repeat(" ", lineNumWidth+3+actualCol) +
		f.colorize(strings.Repeat("^", length), ColorRed)
	sb.WriteString(underline + "\n")

	// 与诊断同一行的标签只补一行标注，不重复源代码
	for _, label := range labels {
		if label.Line <= 0 || label.Line > len(lines) {
			continue
		}
		line := lines[label.Line-1]
		if label.Line != errorLine {
			lineNum := f.colorize(fmt.Sprintf("%*d", lineNumWidth, label.Line), ColorBlue)
			sb.WriteString(fmt.Sprintf("%s%s %s\n", lineNum, pipe, f.expandTabs(line)))
		}

		if label.Message != "" {
			actualCol := f.calculateActualColumn(line, label.Column)
			msgLine := strings.Repeat(" ", lineNumWidth+3+actualCol) +
				f.colorize(strings.Repeat("^", label.Length)+" "+label.Message, f.labelColor(label.Primary))
			sb.WriteString(msgLine + "\n")
		}
	}

	return sb.String()
}

// expandTabs 展开 Tab 为空格
func (f *Formatter) expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", f.TabWidth))
}

// calculateActualColumn 计算列前的显示宽度（考虑 Tab）
func (f *Formatter) calculateActualColumn(line string, col int) int {
	if col <= 0 {
		return 0
	}
	actual := 0
	for i := 0; i < col-1 && i < len(line); i++ {
		if line[i] == '\t' {
			actual += f.TabWidth
		} else {
			actual++
		}
	}
	return actual
}

// levelColor 获取级别对应的颜色
func (f *Formatter) levelColor(level Level) Color {
	switch level {
	case LevelError:
		return ColorRed
	case LevelWarning:
		return ColorYellow
	case LevelNote:
		return ColorCyan
	case LevelHelp:
		return ColorGreen
	default:
		return ColorWhite
	}
}

func (f *Formatter) labelColor(primary bool) Color {
	if primary {
		return ColorRed
	}
	return ColorYellow
}

func (f *Formatter) colorize(s string, color Color) string {
	if !f.Colors {
		return s
	}
	return paint(s, color)
}

// Paint 按本格式化器的设置着色，与全局设置无关
func (f *Formatter) Paint(s string, color Color) string {
	return f.colorize(s, color)
}

// FormatCompileErrors 格式化多条诊断并附加计数
func (f *Formatter) FormatCompileErrors(errs []*CompileError, sourceCache map[string][]string) string {
	var sb strings.Builder

	errorCount, warningCount := 0, 0
	for i, err := range errs {
		if i > 0 {
			sb.WriteString("\n")
		}
		var lines []string
		if sourceCache != nil {
			lines = sourceCache[err.File]
		}
		sb.WriteString(f.FormatCompileError(err, lines))

		if err.Level == LevelWarning {
			warningCount++
		} else if err.Level == LevelError {
			errorCount++
		}
	}

	if len(errs) > 0 {
		sb.WriteString("\n")
		sb.WriteString(f.FormatSummary(errorCount, warningCount) + "\n")
	}

	return sb.String()
}

// FormatSummary 格式化错误与警告计数行
func (f *Formatter) FormatSummary(errorCount, warningCount int) string {
	summary := fmt.Sprintf("%d error(s), %d warning(s)", errorCount, warningCount)
	color := ColorYellow
	if errorCount > 0 {
		color = ColorRed
	}
	return f.colorize(summary, color)
}

package errors

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// ============================================================================
// 诊断报告器
// ============================================================================

// Reporter 收集诊断并输出到 writer
type Reporter struct {
	formatter   *Formatter
	out         io.Writer
	sourceCache map[string][]string // 源代码缓存
	errors      []*CompileError
	warnings    []*CompileError
}

// NewReporter 创建输出到 w 的报告器
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{
		formatter:   NewFormatter(),
		out:         w,
		sourceCache: make(map[string][]string),
	}
}

// SetFormatter 设置格式化器
func (r *Reporter) SetFormatter(f *Formatter) {
	r.formatter = f
}

// LoadSource 加载源文件
func (r *Reporter) LoadSource(filename string) error {
	if _, ok := r.sourceCache[filename]; ok {
		return nil
	}

	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	r.sourceCache[filename] = lines
	return nil
}

// SetSource 设置源代码（用于标准输入或内存中的源代码）
func (r *Reporter) SetSource(filename string, content string) {
	r.sourceCache[filename] = strings.Split(content, "\n")
}

// GetSourceLines 获取源代码行
func (r *Reporter) GetSourceLines(filename string) []string {
	return r.sourceCache[filename]
}

// ============================================================================
// 报告
// ============================================================================

// Report 按级别记录并输出一条诊断
func (r *Reporter) Report(err *CompileError) {
	_ = r.LoadSource(err.File)

	if err.Level == LevelWarning {
		r.warnings = append(r.warnings, err)
	} else {
		r.errors = append(r.errors, err)
	}

	if r.out != nil {
		io.WriteString(r.out, r.formatter.FormatCompileError(err, r.GetSourceLines(err.File)))
	}
}

// ReportSimple 从位置和消息构造诊断并报告，诊断码按消息推断
func (r *Reporter) ReportSimple(file string, line, col int, message string) {
	r.Report(NewCompileError(InferCode(message), file, line, col, message))
}

// InferCode 从前端错误消息推断诊断码
func InferCode(message string) string {
	msg := strings.ToLower(message)

	switch {
	case strings.Contains(msg, "unexpected character"):
		return E0002
	case strings.Contains(msg, "unterminated string"):
		return E0003
	case strings.Contains(msg, "unterminated block comment"):
		return E0004
	case strings.Contains(msg, "number literal"), strings.Contains(msg, "hex literal"),
		strings.Contains(msg, "does not fit"):
		return E0005
	case strings.Contains(msg, "undefined"):
		return E0100
	case strings.Contains(msg, "expects") && strings.Contains(msg, "argument"):
		return E0101
	case strings.Contains(msg, "contract violation"):
		return E0900
	}
	return E0001
}

// ============================================================================
// 状态查询
// ============================================================================

// HasErrors 是否有错误
func (r *Reporter) HasErrors() bool {
	return len(r.errors) > 0
}

// HasWarnings 是否有警告
func (r *Reporter) HasWarnings() bool {
	return len(r.warnings) > 0
}

// Errors 获取所有错误
func (r *Reporter) Errors() []*CompileError {
	return r.errors
}

// Warnings 获取所有警告
func (r *Reporter) Warnings() []*CompileError {
	return r.warnings
}

// Summary 返回错误与警告计数行，没有诊断时为空
func (r *Reporter) Summary() string {
	if len(r.errors) == 0 && len(r.warnings) == 0 {
		return ""
	}
	return r.formatter.FormatSummary(len(r.errors), len(r.warnings))
}

// Clear 清空错误和警告
func (r *Reporter) Clear() {
	r.errors = nil
	r.warnings = nil
}

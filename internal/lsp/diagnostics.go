package lsp

import (
	stderrors "errors"

	"go.lsp.dev/protocol"
	"go.uber.org/multierr"

	"github.com/tangzhangming/yulc/internal/checker"
	"github.com/tangzhangming/yulc/internal/dialect"
	"github.com/tangzhangming/yulc/internal/errors"
	"github.com/tangzhangming/yulc/internal/lexer"
	"github.com/tangzhangming/yulc/internal/parser"
	"github.com/tangzhangming/yulc/internal/token"
)

// Source 诊断来源
const Source = "yulc"

// Diagnose 解析并检查源代码，返回诊断信息
// 有语法错误时只报告语法错误；否则报告每个超出可达窗口的函数
func Diagnose(d *dialect.Dialect, source, filename string) []protocol.Diagnostic {
	p := parser.New(source, filename)
	block := p.Parse()
	if err := p.Err(); err != nil {
		return syntaxDiagnostics(err)
	}

	c := checker.New(d)
	report, err := c.Check(block)
	var diagnostics []protocol.Diagnostic
	for _, e := range c.Diagnostics(filename, block, report) {
		diagnostics = append(diagnostics, compileErrorToDiagnostic(e))
	}
	if err != nil {
		diagnostics = append(diagnostics, ErrorCodeToDiagnostic(errors.E0900, err.Error(), 1, 1))
	}
	return diagnostics
}

func syntaxDiagnostics(err error) []protocol.Diagnostic {
	var diagnostics []protocol.Diagnostic
	for _, e := range multierr.Errors(err) {
		var pos token.Position
		var message string

		var lexErr lexer.Error
		var parseErr parser.Error
		switch {
		case stderrors.As(e, &lexErr):
			pos, message = lexErr.Pos, lexErr.Message
		case stderrors.As(e, &parseErr):
			pos, message = parseErr.Pos, parseErr.Message
		default:
			pos, message = token.Position{Line: 1, Column: 1}, e.Error()
		}
		diagnostics = append(diagnostics, ErrorCodeToDiagnostic(errors.InferCode(message), message, pos.Line, pos.Column))
	}
	return diagnostics
}

// compileErrorToDiagnostic 转换一条诊断，标签成为相关信息，建议与说明附在消息后
func compileErrorToDiagnostic(e *errors.CompileError) protocol.Diagnostic {
	message := e.Message
	if info, ok := errors.GetErrorInfo(e.Code); ok {
		message = info.Title + ": " + message
	}
	for _, hint := range e.Hints {
		message += "\nhelp: " + hint
	}
	for _, note := range e.Notes {
		message += "\nnote: " + note
	}

	diag := ErrorCodeToDiagnostic(e.Code, message, e.Line, e.Column)
	if e.EndColumn > e.Column {
		diag.Range.End.Character = uint32(e.EndColumn - 1)
	}

	uri := protocol.DocumentURI(PathToURI(e.File))
	for _, label := range e.Labels {
		start := protocol.Position{Line: uint32(label.Line - 1), Character: uint32(label.Column - 1)}
		end := start
		end.Character += uint32(label.Length)
		diag.RelatedInformation = append(diag.RelatedInformation, protocol.DiagnosticRelatedInformation{
			Location: protocol.Location{URI: uri, Range: protocol.Range{Start: start, End: end}},
			Message:  label.Message,
		})
	}
	return diag
}

// ErrorCodeToDiagnostic 将诊断码转换为诊断信息，line 和 col 从 1 开始
func ErrorCodeToDiagnostic(code, message string, line, col int) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError

	// 根据诊断码前缀判断严重程度
	if len(code) > 0 {
		switch code[0] {
		case 'W':
			severity = protocol.DiagnosticSeverityWarning
		case 'I':
			severity = protocol.DiagnosticSeverityInformation
		case 'H':
			severity = protocol.DiagnosticSeverityHint
		}
	}

	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}

	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{
				Line:      uint32(line - 1), // LSP 行号从 0 开始
				Character: uint32(col - 1),
			},
			End: protocol.Position{
				Line:      uint32(line - 1),
				Character: uint32(col + 10), // 估计错误范围
			},
		},
		Severity: severity,
		Code:     code,
		Source:   Source,
		Message:  message,
	}
}

// Package repl 提供交互式的栈可达性检查
//
// 支持：
// - 多行输入（花括号未闭合时继续读取）
// - 历史记录与补全
// - 切换方言、窗口大小和链接模式
// - 查看生成的汇编清单
package repl

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/tangzhangming/yulc/internal/assembly"
	"github.com/tangzhangming/yulc/internal/checker"
	"github.com/tangzhangming/yulc/internal/codegen"
	"github.com/tangzhangming/yulc/internal/dialect"
	"github.com/tangzhangming/yulc/internal/errors"
	"github.com/tangzhangming/yulc/internal/evm"
	"github.com/tangzhangming/yulc/internal/parser"
)

// REPL 交互式检查器
type REPL struct {
	writer  io.Writer
	dialect *dialect.Dialect
	showAsm bool
	history []string

	buffer    strings.Builder
	multiline bool
	quit      bool

	promptPrimary  string
	promptContinue string

	formatter *errors.Formatter
	reporter  *errors.Reporter // 只收集，每次求值后统一输出
}

// Config REPL 配置
type Config struct {
	Dialect        *dialect.Dialect
	PromptPrimary  string
	PromptContinue string
	Colors         bool
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Dialect:        dialect.EVM(),
		PromptPrimary:  "yul> ",
		PromptContinue: "...  ",
		Colors:         errors.ColorsEnabled(),
	}
}

// New 创建 REPL，输出写入 w
func New(config Config, w io.Writer) *REPL {
	if config.Dialect == nil {
		config.Dialect = dialect.EVM()
	}
	formatter := errors.NewFormatter()
	formatter.Colors = config.Colors
	reporter := errors.NewReporter(nil)
	reporter.SetFormatter(formatter)

	return &REPL{
		writer:         w,
		dialect:        config.Dialect,
		promptPrimary:  config.PromptPrimary,
		promptContinue: config.PromptContinue,
		formatter:      formatter,
		reporter:       reporter,
	}
}

// Dialect 返回当前方言
func (r *REPL) Dialect() *dialect.Dialect {
	return r.dialect
}

// Done 是否已请求退出
func (r *REPL) Done() bool {
	return r.quit
}

// Prompt 返回当前提示符
func (r *REPL) Prompt() string {
	if r.multiline {
		return r.promptContinue
	}
	return r.promptPrimary
}

// Run 在终端上运行 REPL
func (r *REPL) Run() error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(r.GetCompletions)

	r.printWelcome()
	for !r.quit {
		input, err := line.Prompt(r.Prompt())
		if err == liner.ErrPromptAborted {
			r.buffer.Reset()
			r.multiline = false
			continue
		}
		if err == io.EOF {
			fmt.Fprintln(r.writer, "\nBye!")
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading input: %w", err)
		}

		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		r.Eval(input)
	}
	return nil
}

func (r *REPL) printWelcome() {
	fmt.Fprintf(r.writer, "yulc stack reachability REPL, %s\n", r.dialect)
	fmt.Fprintln(r.writer, "Type :help for help, :quit to exit")
	fmt.Fprintln(r.writer)
}

// Eval 处理一行输入
func (r *REPL) Eval(line string) {
	line = strings.TrimRight(line, "\r\n")

	if !r.multiline && strings.HasPrefix(strings.TrimSpace(line), ":") {
		r.handleCommand(strings.TrimSpace(line))
		return
	}

	if r.multiline {
		r.buffer.WriteString("\n")
	}
	r.buffer.WriteString(line)

	if needsMoreInput(r.buffer.String()) {
		r.multiline = true
		return
	}

	input := r.buffer.String()
	r.buffer.Reset()
	r.multiline = false

	if strings.TrimSpace(input) == "" {
		return
	}

	r.addHistory(input)
	r.execute(input, "<repl>")
}

// handleCommand 处理特殊命令
func (r *REPL) handleCommand(line string) {
	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case ":help", ":h", ":?":
		r.printHelp()

	case ":quit", ":q", ":exit":
		fmt.Fprintln(r.writer, "Bye!")
		r.quit = true

	case ":dialect":
		if len(args) < 1 {
			fmt.Fprintf(r.writer, "Current dialect: %s\n", r.dialect)
			return
		}
		d, err := dialect.ByName(args[0])
		if err != nil {
			fmt.Fprintf(r.writer, "Error: %v\n", err)
			return
		}
		r.dialect = d
		fmt.Fprintf(r.writer, "Dialect: %s\n", r.dialect)

	case ":window":
		if len(args) < 1 {
			fmt.Fprintln(r.writer, "Usage: :window <n>")
			return
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(r.writer, "Error: invalid window %q\n", args[0])
			return
		}
		r.rebuild(n, r.dialect.Subroutines())

	case ":subroutines":
		if len(args) < 1 || (args[0] != "on" && args[0] != "off") {
			fmt.Fprintln(r.writer, "Usage: :subroutines on|off")
			return
		}
		r.rebuild(r.dialect.StackWindow(), args[0] == "on")

	case ":asm":
		r.showAsm = !r.showAsm
		state := "off"
		if r.showAsm {
			state = "on"
		}
		fmt.Fprintf(r.writer, "Assembly listing %s\n", state)

	case ":load", ":l":
		if len(args) < 1 {
			fmt.Fprintln(r.writer, "Usage: :load <filename>")
			return
		}
		source, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(r.writer, "Error loading file: %v\n", err)
			return
		}
		r.execute(string(source), args[0])

	case ":history", ":hist":
		for i, input := range r.history {
			fmt.Fprintf(r.writer, "%4d  %s\n", i+1, input)
		}

	default:
		fmt.Fprintf(r.writer, "Unknown command: %s\n", cmd)
		fmt.Fprintln(r.writer, "Type :help for available commands.")
	}
}

func (r *REPL) rebuild(window int, subroutines bool) {
	d, err := dialect.New(r.dialect.Name(), window, subroutines)
	if err != nil {
		fmt.Fprintf(r.writer, "Error: %v\n", err)
		return
	}
	r.dialect = d
	fmt.Fprintf(r.writer, "Dialect: %s\n", r.dialect)
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.writer, "Available commands:")
	fmt.Fprintln(r.writer, "  :help, :h, :?          Show this help message")
	fmt.Fprintln(r.writer, "  :quit, :q, :exit       Exit the REPL")
	fmt.Fprintln(r.writer, "  :dialect [name]        Show or select the dialect (yul, evm, evm15)")
	fmt.Fprintln(r.writer, "  :window <n>            Set the reachable window size (0 = unrestricted)")
	fmt.Fprintln(r.writer, "  :subroutines on|off    Select the linkage mode")
	fmt.Fprintln(r.writer, "  :asm                   Toggle the assembly listing")
	fmt.Fprintln(r.writer, "  :load <file>           Check a file")
	fmt.Fprintln(r.writer, "  :history, :hist        Show input history")
	fmt.Fprintln(r.writer)
	fmt.Fprintln(r.writer, "Enter a block to check it, e.g.:")
	fmt.Fprintln(r.writer, "  yul> {")
	fmt.Fprintln(r.writer, "  ...    function f(a) -> r { r := add(a, 1) }")
	fmt.Fprintln(r.writer, "  ...  }")
}

// execute 检查一个程序并打印报告，诊断在最后一并输出
func (r *REPL) execute(source, filename string) {
	r.reporter.Clear()
	r.reporter.SetSource(filename, source)
	defer r.flushDiagnostics(filename)

	p := parser.New(source, filename)
	block := p.Parse()
	if p.HasErrors() {
		for _, e := range p.LexErrors() {
			r.reporter.ReportSimple(filename, e.Pos.Line, e.Pos.Column, e.Message)
		}
		for _, e := range p.Errors() {
			r.reporter.ReportSimple(filename, e.Pos.Line, e.Pos.Column, e.Message)
		}
		return
	}

	c := checker.New(r.dialect)
	report, err := c.Check(block)
	for _, entry := range report.Entries() {
		status := "ok"
		if entry.Margin < 0 {
			status = r.formatter.Paint("stack too deep", errors.ColorRed)
		}
		fmt.Fprintf(r.writer, "  %-16s %s  %s\n", entry.DisplayName(), formatMargin(entry.Margin), status)
	}
	if err != nil {
		r.reporter.Report(errors.NewCompileError(errors.E0900, filename, 0, 0, err.Error()))
		return
	}
	for _, diag := range c.Diagnostics(filename, block, report) {
		r.reporter.Report(diag)
	}

	if r.showAsm {
		asm := assembly.NewText(r.dialect.Subroutines())
		if err := codegen.Generate(asm, r.dialect, block); err != nil {
			r.reporter.Report(errors.NewCompileError(errors.E0900, filename, 0, 0, err.Error()))
			return
		}
		fmt.Fprint(r.writer, asm.String())
	}
}

func (r *REPL) flushDiagnostics(filename string) {
	diags := append(append([]*errors.CompileError(nil), r.reporter.Errors()...), r.reporter.Warnings()...)
	if len(diags) == 0 {
		return
	}
	sources := map[string][]string{filename: r.reporter.GetSourceLines(filename)}
	fmt.Fprint(r.writer, r.formatter.FormatCompileErrors(diags, sources))
}

func formatMargin(margin int) string {
	if margin == dialect.Unrestricted {
		return "unrestricted"
	}
	return fmt.Sprintf("margin %d", margin)
}

// addHistory 添加到历史记录
func (r *REPL) addHistory(input string) {
	if len(r.history) > 0 && r.history[len(r.history)-1] == input {
		return
	}
	r.history = append(r.history, input)
	if len(r.history) > 1000 {
		r.history = r.history[len(r.history)-1000:]
	}
}

// needsMoreInput 花括号或圆括号未闭合、或处于字符串中时需要更多输入
func needsMoreInput(input string) bool {
	braceDepth := 0
	parenDepth := 0
	inString := false
	escaped := false

	for i := 0; i < len(input); i++ {
		c := input[i]

		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			braceDepth++
		case '}':
			braceDepth--
		case '(':
			parenDepth++
		case ')':
			parenDepth--
		case '/':
			// 行注释到行尾为止
			if i+1 < len(input) && input[i+1] == '/' {
				for i < len(input) && input[i] != '\n' {
					i++
				}
			}
		}
	}

	return braceDepth > 0 || parenDepth > 0 || inString
}

// GetCompletions 获取补全建议
func (r *REPL) GetCompletions(line string) []string {
	var completions []string

	if strings.HasPrefix(line, ":") {
		commands := []string{":help", ":quit", ":dialect", ":window", ":subroutines", ":asm", ":load", ":history"}
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, line) {
				completions = append(completions, cmd)
			}
		}
		return completions
	}

	// 只补全最后一个单词
	idx := strings.LastIndexAny(line, " \t({,")
	head, prefix := line[:idx+1], line[idx+1:]
	if prefix == "" {
		return nil
	}

	keywords := []string{"function", "let", "if", "switch", "case", "default", "for", "break", "continue", "leave", "true", "false"}
	for _, kw := range keywords {
		if strings.HasPrefix(kw, prefix) {
			completions = append(completions, head+kw)
		}
	}
	for _, name := range evm.BuiltinNames() {
		if strings.HasPrefix(name, prefix) {
			completions = append(completions, head+name)
		}
	}
	sort.Strings(completions)
	return completions
}

package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tangzhangming/yulc/internal/ast"
	"github.com/tangzhangming/yulc/internal/config"
	"github.com/tangzhangming/yulc/internal/dialect"
	"github.com/tangzhangming/yulc/internal/errors"
	"github.com/tangzhangming/yulc/internal/logger"
	"github.com/tangzhangming/yulc/internal/parser"
)

// dialectFlags 各子命令共用的方言选项，命令行优先于配置文件
type dialectFlags struct {
	configPath  string
	dialect     string
	window      int
	subroutines bool
	format      string
	debug       bool
	logPath     string
	color       bool

	set map[string]bool // 命令行上显式给出的选项
}

func newFlagSet(name string, stderr io.Writer, usage string) (*flag.FlagSet, *dialectFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	df := &dialectFlags{}
	fs.StringVar(&df.configPath, "config", "", "Path to yulc.toml (default: search upwards from the input)")
	fs.StringVar(&df.dialect, "dialect", "", "Dialect: yul, evm or evm15")
	fs.IntVar(&df.window, "window", 0, "Reachable window size, 0 for unrestricted")
	fs.BoolVar(&df.subroutines, "subroutines", false, "Link functions with subroutine primitives")
	fs.BoolVar(&df.debug, "debug", false, "Enable debug logging (also "+logger.EnvDebug+"=1)")
	fs.StringVar(&df.logPath, "log", "", "Write log output to this file")
	fs.BoolVar(&df.color, "color", true, "Colorize output (default: output.color from the config, if the terminal supports it)")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: yulc "+name+" [options] "+usage)
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}
	return fs, df
}

// parse 解析参数并记录显式给出的选项
func (df *dialectFlags) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	df.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { df.set[f.Name] = true })
	return nil
}

// resolve 合并配置文件与命令行选项
func (df *dialectFlags) resolve(input string) (*config.Config, *dialect.Dialect, error) {
	cfg := config.Default()

	path := df.configPath
	if path == "" && input != "" {
		path = config.Find(input)
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}

	if df.set["dialect"] {
		cfg.Dialect.Name = df.dialect
	}
	if df.set["format"] {
		cfg.Output.Format = df.format
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	d, err := cfg.BuildDialect()
	if err != nil {
		return nil, nil, err
	}
	if df.set["window"] || df.set["subroutines"] {
		window, subroutines := d.StackWindow(), d.Subroutines()
		if df.set["window"] {
			window = df.window
		}
		if df.set["subroutines"] {
			subroutines = df.subroutines
		}
		if d, err = dialect.New(d.Name(), window, subroutines); err != nil {
			return nil, nil, err
		}
	}

	return cfg, d, nil
}

// formatter 按命令行与该文件的配置创建格式化器，不修改全局颜色设置
func (df *dialectFlags) formatter(cfg *config.Config) *errors.Formatter {
	f := errors.NewFormatter()
	if df.set["color"] {
		f.Colors = df.color
	} else {
		f.Colors = f.Colors && cfg.Output.Color
	}
	return f
}

// logger 按选项创建日志器
func (df *dialectFlags) logger() *logger.Logger {
	return logger.NewWithDebug(df.debug || logger.DebugFromEnv(), df.logPath)
}

// parseFile 读取并解析源文件，语法错误通过 reporter 输出
func parseFile(filename string, reporter *errors.Reporter) (*ast.Block, string, bool) {
	source, err := os.ReadFile(filename)
	if err != nil {
		reporter.Report(errors.NewCompileError(errors.E0001, filename, 0, 0, fmt.Sprintf("failed to read file: %v", err)))
		return nil, "", false
	}
	reporter.SetSource(filename, string(source))

	p := parser.New(string(source), filename)
	block := p.Parse()
	if !p.HasErrors() {
		return block, string(source), true
	}
	for _, e := range syntaxErrors(p) {
		reporter.ReportSimple(filename, e.line, e.col, e.message)
	}
	return nil, "", false
}

type syntaxError struct {
	line, col int
	message   string
}

func syntaxErrors(p *parser.Parser) []syntaxError {
	var out []syntaxError
	for _, e := range p.LexErrors() {
		out = append(out, syntaxError{e.Pos.Line, e.Pos.Column, e.Message})
	}
	for _, e := range p.Errors() {
		out = append(out, syntaxError{e.Pos.Line, e.Pos.Column, e.Message})
	}
	return out
}

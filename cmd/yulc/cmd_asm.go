package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/tangzhangming/yulc/internal/assembly"
	"github.com/tangzhangming/yulc/internal/ast"
	"github.com/tangzhangming/yulc/internal/checker"
	"github.com/tangzhangming/yulc/internal/codegen"
	"github.com/tangzhangming/yulc/internal/errors"
	"github.com/tangzhangming/yulc/internal/optimiser"
)

// cmdAsm 输出生成的汇编清单
//
// 超出 16 的 DUP/SWAP 在清单中标记出来，同时报告 W0100 并返回 exitUnreachable。
func cmdAsm(args []string, stdout, stderr io.Writer) int {
	fs, df := newFlagSet("asm", stderr, "<file>")
	if err := df.parse(fs, args); err != nil {
		return exitFailure
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitFailure
	}

	filename := fs.Arg(0)
	cfg, d, err := df.resolve(filename)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	reporter := errors.NewReporter(stderr)
	reporter.SetFormatter(df.formatter(cfg))
	block, _, ok := parseFile(filename, reporter)
	if !ok {
		fmt.Fprintln(stderr, reporter.Summary())
		return exitFailure
	}

	asm := assembly.NewText(d.Subroutines())
	if err := codegen.Generate(asm, d, block); err != nil {
		reporter.Report(errors.NewCompileError(errors.E0900, filename, 0, 0, err.Error()))
		return exitFailure
	}
	fmt.Fprint(stdout, asm.String())

	if tooDeep := asm.TooDeep(); len(tooDeep) > 0 {
		diag := errors.NewCompileError(errors.W0100, filename, 0, 0,
			fmt.Sprintf("%d stack access(es) cannot be encoded: %s", len(tooDeep), strings.Join(tooDeep, ", ")))
		diag.Hints = []string{checker.StackHint}
		reporter.Report(diag)
		fmt.Fprintln(stderr, reporter.Summary())
		return exitUnreachable
	}
	return exitOK
}

// cmdClean 去掉变量名中的编译器后缀后重新打印程序
func cmdClean(args []string, stdout, stderr io.Writer) int {
	fs, df := newFlagSet("clean", stderr, "<file>")
	if err := df.parse(fs, args); err != nil {
		return exitFailure
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitFailure
	}

	filename := fs.Arg(0)
	reporter := errors.NewReporter(stderr)
	block, _, ok := parseFile(filename, reporter)
	if !ok {
		fmt.Fprintln(stderr, reporter.Summary())
		return exitFailure
	}

	optimiser.CleanVarNames(block)
	fmt.Fprintln(stdout, ast.Print(block))
	return exitOK
}

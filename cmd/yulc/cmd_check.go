package main

import (
	"context"
	"fmt"
	"io"

	"github.com/segmentio/encoding/json"
	"go.lsp.dev/protocol"

	"github.com/tangzhangming/yulc/internal/ast"
	"github.com/tangzhangming/yulc/internal/checker"
	"github.com/tangzhangming/yulc/internal/config"
	"github.com/tangzhangming/yulc/internal/dialect"
	"github.com/tangzhangming/yulc/internal/errors"
	"github.com/tangzhangming/yulc/internal/lsp"
)

// cmdCheck 检查源文件，存在不可达变量时返回 exitUnreachable
func cmdCheck(args []string, stdout, stderr io.Writer) int {
	fs, df := newFlagSet("check", stderr, "<file>...")
	fs.StringVar(&df.format, "format", config.FormatText, "Output format: text, json or lsp")
	showAST := fs.Bool("ast", false, "Dump the parsed syntax tree")
	workers := fs.Int("j", 0, "Check functions concurrently with this many workers (0 = sequential)")

	if err := df.parse(fs, args); err != nil {
		return exitFailure
	}
	if fs.NArg() < 1 {
		fs.Usage()
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "no input files")
		return exitFailure
	}

	log := df.logger()
	defer log.Close()

	status := exitOK
	for _, filename := range fs.Args() {
		cfg, d, err := df.resolve(filename)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}

		formatter := df.formatter(cfg)
		reporter := errors.NewReporter(stderr)
		reporter.SetFormatter(formatter)
		block, source, ok := parseFile(filename, reporter)
		if !ok {
			fmt.Fprintln(stderr, reporter.Summary())
			status = exitFailure
			continue
		}
		if *showAST {
			ast.Fdump(stdout, block)
		}

		c := checker.New(d, checker.WithLogger(log.With("file", filename)))
		var report checker.Report
		if *workers > 0 {
			report, err = c.CheckConcurrent(context.Background(), block, *workers)
		} else {
			report, err = c.Check(block)
		}
		if err != nil {
			reporter.Report(errors.NewCompileError(errors.E0900, filename, 0, 0, err.Error()))
			fmt.Fprintln(stderr, reporter.Summary())
			status = exitFailure
			continue
		}

		out := reportOutput{filename: filename, source: source, block: block, checker: c, report: report, reporter: reporter, formatter: formatter}
		if err := writeReport(stdout, cfg.Output.Format, out); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
		if !report.Reachable() && status == exitOK {
			status = exitUnreachable
		}
	}
	return status
}

// reportOutput 一个文件的检查结果
type reportOutput struct {
	filename  string
	source    string
	block     *ast.Block
	checker   *checker.Checker
	report    checker.Report
	reporter  *errors.Reporter
	formatter *errors.Formatter
}

func writeReport(w io.Writer, format string, out reportOutput) error {
	d := out.checker.Dialect()
	switch format {
	case config.FormatJSON:
		data, err := out.report.JSON(d.Name())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err

	case config.FormatLSP:
		diagnostics := lsp.Diagnose(d, out.source, out.filename)
		if diagnostics == nil {
			diagnostics = []protocol.Diagnostic{}
		}
		data, err := json.MarshalIndent(protocol.PublishDiagnosticsParams{
			URI:         protocol.DocumentURI(lsp.PathToURI(out.filename)),
			Diagnostics: diagnostics,
		}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err

	default:
		writeText(w, out)
		return nil
	}
}

// writeText 输出每个函数的裕量，不可达的函数同时报告警告
func writeText(w io.Writer, out reportOutput) {
	fmt.Fprintf(w, "%s (%s), %d unit(s) analysed\n", out.filename, out.checker.Dialect(), out.checker.Analysed())
	for _, entry := range out.report.Entries() {
		margin := fmt.Sprintf("%d", entry.Margin)
		if entry.Margin == dialect.Unrestricted {
			margin = "unrestricted"
		}
		status := out.formatter.Paint("ok", errors.ColorGreen)
		if entry.Margin < 0 {
			status = out.formatter.Paint("stack too deep", errors.ColorRed)
		}
		fmt.Fprintf(w, "  %-24s %12s  %s\n", entry.DisplayName(), margin, status)
	}

	for _, diag := range out.checker.Diagnostics(out.filename, out.block, out.report) {
		out.reporter.Report(diag)
	}
	if out.reporter.HasWarnings() {
		fmt.Fprintln(w, out.reporter.Summary())
	}
}

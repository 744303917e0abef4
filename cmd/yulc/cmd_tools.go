package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/tangzhangming/yulc/internal/lsp"
	"github.com/tangzhangming/yulc/internal/repl"
)

// cmdRepl 启动交互式会话
func cmdRepl(args []string, stdout, stderr io.Writer) int {
	fs, df := newFlagSet("repl", stderr, "")
	if err := df.parse(fs, args); err != nil {
		return exitFailure
	}

	wd, _ := os.Getwd()
	conf, d, err := df.resolve(wd)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	cfg := repl.DefaultConfig()
	cfg.Dialect = d
	cfg.Colors = df.formatter(conf).Colors
	if err := repl.New(cfg, stdout).Run(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	return exitOK
}

// cmdLSP 通过标准输入输出提供语言服务
func cmdLSP(args []string, stdout, stderr io.Writer) int {
	fs, df := newFlagSet("lsp", stderr, "")
	if err := df.parse(fs, args); err != nil {
		return exitFailure
	}

	wd, _ := os.Getwd()
	_, d, err := df.resolve(wd)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	log := df.logger()
	defer log.Close()

	server := lsp.NewServer(os.Stdin, stdout, d, log)
	if err := server.Run(context.Background()); err != nil {
		fmt.Fprintf(stderr, "LSP server error: %v\n", err)
		return exitFailure
	}
	return exitOK
}

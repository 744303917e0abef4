// yulc 检查中间语言程序中的变量是否都在栈机的可达窗口之内
package main

import (
	"fmt"
	"io"
	"os"
)

const (
	Version = "0.1.0"
)

// 退出码
const (
	exitOK          = 0 // 全部可达
	exitUnreachable = 1 // 存在不可达的变量，或清单中有无法编码的栈访问
	exitFailure     = 2 // 参数、输入或后端契约错误
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run 执行一条子命令并返回退出码
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stdout)
		return exitOK
	}

	command := args[0]

	switch command {
	case "check":
		return cmdCheck(args[1:], stdout, stderr)
	case "asm":
		return cmdAsm(args[1:], stdout, stderr)
	case "clean":
		return cmdClean(args[1:], stdout, stderr)
	case "init":
		return cmdInit(args[1:], stdout, stderr)
	case "repl":
		return cmdRepl(args[1:], stdout, stderr)
	case "lsp":
		return cmdLSP(args[1:], stdout, stderr)
	case "version", "-v", "--version":
		fmt.Fprintf(stdout, "yulc v%s\n", Version)
		return exitOK
	case "help", "-h", "--help":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n\n", command)
		printUsage(stderr)
		return exitFailure
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "yulc v%s - stack reachability checker\n\n", Version)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  yulc <command> [options] [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  check <file>...   Report the reachability margin of every function")
	fmt.Fprintln(w, "  asm <file>        Print the generated assembly listing")
	fmt.Fprintln(w, "  clean <file>      Print the program with cleaned-up variable names")
	fmt.Fprintln(w, "  init              Create a yulc.toml in the current directory")
	fmt.Fprintln(w, "  repl              Start an interactive session")
	fmt.Fprintln(w, "  lsp               Serve diagnostics over the language server protocol")
	fmt.Fprintln(w, "  version           Show version information")
	fmt.Fprintln(w, "  help              Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  yulc check main.yul")
	fmt.Fprintln(w, "  yulc check -dialect evm15 -format json main.yul")
	fmt.Fprintln(w, "  yulc asm -window 4 main.yul")
}

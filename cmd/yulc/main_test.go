package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/segmentio/encoding/json"

	"github.com/tangzhangming/yulc/internal/checker"
	"github.com/tangzhangming/yulc/internal/config"
	"github.com/tangzhangming/yulc/internal/errors"
)

const (
	shallowSource = "{ function f(a) -> b { b := add(a, 1) } pop(f(1)) }"
	deepSource    = "{ function f() { let a := 1 let b := 2 let c := 3 let d := 4 pop(a) } }"
)

func writeSource(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(source), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	errors.SetColorsEnabled(false)
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersionAndUsage(t *testing.T) {
	code, out, _ := runCommand(t, "version")
	if code != exitOK || !strings.Contains(out, "yulc v"+Version) {
		t.Errorf("version: code %d, output %q", code, out)
	}

	code, out, _ = runCommand(t)
	if code != exitOK || !strings.Contains(out, "Commands:") {
		t.Errorf("usage: code %d, output %q", code, out)
	}

	code, _, errOut := runCommand(t, "frobnicate")
	if code != exitFailure || !strings.Contains(errOut, "unknown command") {
		t.Errorf("unknown command: code %d, stderr %q", code, errOut)
	}
}

func TestCheckReachable(t *testing.T) {
	path := writeSource(t, t.TempDir(), "ok.yul", shallowSource)

	code, out, errOut := runCommand(t, "check", path)
	if code != exitOK {
		t.Fatalf("code %d, stderr %s", code, errOut)
	}
	for _, want := range []string{"<top-level>", "f ", "ok", "window 16"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckUnreachable(t *testing.T) {
	path := writeSource(t, t.TempDir(), "deep.yul", deepSource)

	code, out, errOut := runCommand(t, "check", "-window", "2", path)
	if code != exitUnreachable {
		t.Fatalf("code %d, want %d\n%s\n%s", code, exitUnreachable, out, errOut)
	}
	if !strings.Contains(out, "stack too deep") || !strings.Contains(out, "0 error(s), 1 warning(s)") {
		t.Errorf("output:\n%s", out)
	}
	for _, want := range []string{
		"warning[W0100]: f accesses a stack slot 1 slot beyond the reachable window",
		"deep.yul:1:3",
		"^ a is accessed 3 slots below the top of the stack",
		"= help: " + checker.StackHint,
	} {
		if !strings.Contains(errOut, want) {
			t.Errorf("stderr missing %q:\n%s", want, errOut)
		}
	}
	if !strings.Contains(out, "2 unit(s) analysed") {
		t.Errorf("output missing unit count:\n%s", out)
	}

	// 子程序模式同样不可达
	if code, _, _ := runCommand(t, "check", "-window", "2", "-subroutines", "-j", "4", path); code != exitUnreachable {
		t.Errorf("subroutines: code %d", code)
	}
}

func TestCheckJSON(t *testing.T) {
	path := writeSource(t, t.TempDir(), "deep.yul", deepSource)

	code, out, _ := runCommand(t, "check", "-window", "2", "-format", "json", path)
	if code != exitUnreachable {
		t.Fatalf("code %d", code)
	}

	var decoded struct {
		Dialect   string `json:"dialect"`
		Reachable bool   `json:"reachable"`
		Functions []struct {
			Name   string `json:"name"`
			Margin int    `json:"margin"`
		} `json:"functions"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if decoded.Dialect != "evm" || decoded.Reachable || len(decoded.Functions) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
	if f := decoded.Functions[1]; f.Name != "f" || f.Margin != -1 {
		t.Errorf("f = %+v", f)
	}
}

func TestCheckLSPFormat(t *testing.T) {
	path := writeSource(t, t.TempDir(), "deep.yul", deepSource)

	code, out, _ := runCommand(t, "check", "-window", "2", "-format", "lsp", path)
	if code != exitUnreachable {
		t.Fatalf("code %d", code)
	}
	if !strings.Contains(out, `"W0100"`) || !strings.Contains(out, "file://") {
		t.Errorf("output:\n%s", out)
	}
}

func TestCheckUsesConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Dialect.StackWindow = 2
	cfg.Output.Format = config.FormatJSON
	if err := cfg.Save(filepath.Join(dir, config.ConfigFileName)); err != nil {
		t.Fatal(err)
	}
	path := writeSource(t, dir, "deep.yul", deepSource)

	code, out, _ := runCommand(t, "check", path)
	if code != exitUnreachable || !strings.Contains(out, `"reachable": false`) {
		t.Errorf("code %d, output:\n%s", code, out)
	}

	// 命令行选项优先
	code, out, _ = runCommand(t, "check", "-window", "16", "-format", "text", path)
	if code != exitOK || !strings.Contains(out, "window 16") {
		t.Errorf("override: code %d, output:\n%s", code, out)
	}
}

func TestCheckFailures(t *testing.T) {
	dir := t.TempDir()

	syntax := writeSource(t, dir, "syntax.yul", "{ let := }")
	code, _, errOut := runCommand(t, "check", syntax)
	if code != exitFailure || !strings.Contains(errOut, "error[E") {
		t.Errorf("syntax: code %d, stderr:\n%s", code, errOut)
	}

	undefined := writeSource(t, dir, "undefined.yul", "{ pop(x) }")
	code, _, errOut = runCommand(t, "check", undefined)
	if code != exitFailure || !strings.Contains(errOut, "E0900") || !strings.Contains(errOut, `undefined identifier "x"`) {
		t.Errorf("violation: code %d, stderr:\n%s", code, errOut)
	}

	code, _, _ = runCommand(t, "check", filepath.Join(dir, "missing.yul"))
	if code != exitFailure {
		t.Errorf("missing file: code %d", code)
	}

	code, _, _ = runCommand(t, "check", "-dialect", "wasm", undefined)
	if code != exitFailure {
		t.Errorf("bad dialect: code %d", code)
	}

	code, _, _ = runCommand(t, "check")
	if code != exitFailure {
		t.Errorf("no input: code %d", code)
	}
}

func TestAsm(t *testing.T) {
	path := writeSource(t, t.TempDir(), "prog.yul", "{ let a := 1 }")

	code, out, errOut := runCommand(t, "asm", path)
	if code != exitOK {
		t.Fatalf("code %d, stderr %s", code, errOut)
	}
	if out != "  PUSH 0x1\n  POP\n" {
		t.Errorf("listing = %q", out)
	}
}

func TestAsmReportsTooDeepAccess(t *testing.T) {
	params := make([]string, 17)
	for i := range params {
		params[i] = fmt.Sprintf("a%d", i+1)
	}
	path := writeSource(t, t.TempDir(), "wide.yul", "{ function f("+strings.Join(params, ", ")+") -> r { r := a1 } }")

	code, out, errOut := runCommand(t, "asm", path)
	if code != exitUnreachable {
		t.Fatalf("code %d, stderr %s", code, errOut)
	}
	if !strings.Contains(out, "  SWAP18 ; stack too deep\n") {
		t.Errorf("listing:\n%s", out)
	}
	if !strings.Contains(errOut, "warning[W0100]") || !strings.Contains(errOut, "SWAP18, SWAP17") {
		t.Errorf("stderr:\n%s", errOut)
	}

	// check 对同一个函数给出负裕量
	code, out, errOut = runCommand(t, "check", path)
	if code != exitUnreachable || !strings.Contains(out, "-2  stack too deep") {
		t.Errorf("check: code %d, output:\n%s", code, out)
	}
	if !strings.Contains(errOut, "returning from f swaps across 18 stack slots") {
		t.Errorf("check stderr:\n%s", errOut)
	}
}

func TestColorPerFile(t *testing.T) {
	errors.SetColorsEnabled(true)
	defer errors.SetColorsEnabled(false)

	plainDir := t.TempDir()
	cfg := config.Default()
	cfg.Output.Color = false
	if err := cfg.Save(filepath.Join(plainDir, config.ConfigFileName)); err != nil {
		t.Fatal(err)
	}
	plain := writeSource(t, plainDir, "plain.yul", deepSource)
	colored := writeSource(t, t.TempDir(), "colored.yul", deepSource)

	// 第一个文件关闭颜色不影响第二个文件
	var stdout, stderr bytes.Buffer
	if code := run([]string{"check", "-window", "2", plain, colored}, &stdout, &stderr); code != exitUnreachable {
		t.Fatalf("code %d, stderr %s", code, stderr.String())
	}
	out := stdout.String()
	i := strings.Index(out, colored)
	if i < 0 {
		t.Fatalf("output:\n%s", out)
	}
	if strings.Contains(out[:i], "\033[") {
		t.Errorf("plain.yul output is colored:\n%q", out[:i])
	}
	if !strings.Contains(out[i:], "\033[") {
		t.Errorf("colored.yul output is plain:\n%q", out[i:])
	}

	// 命令行选项优先于配置和终端
	stdout.Reset()
	run([]string{"check", "-window", "2", "-color=false", colored}, &stdout, &stderr)
	if strings.Contains(stdout.String(), "\033[") {
		t.Errorf("-color=false output is colored:\n%q", stdout.String())
	}
	stdout.Reset()
	run([]string{"check", "-window", "2", "-color", plain}, &stdout, &stderr)
	if !strings.Contains(stdout.String(), "\033[") {
		t.Errorf("-color output is plain:\n%q", stdout.String())
	}
	if !errors.ColorsEnabled() {
		t.Error("checking files changed the global color setting")
	}
}

func TestClean(t *testing.T) {
	path := writeSource(t, t.TempDir(), "prog.yul", "{ let x_1 := 1 pop(x_1) }")

	code, out, _ := runCommand(t, "clean", path)
	if code != exitOK {
		t.Fatalf("code %d", code)
	}
	if !strings.Contains(out, "let x := 1") || !strings.Contains(out, "pop(x)") {
		t.Errorf("output:\n%s", out)
	}
}

func TestInit(t *testing.T) {
	dir := t.TempDir()

	code, out, errOut := runCommand(t, "init", "-dir", dir, "-dialect", "evm15", "-window", "8")
	if code != exitOK {
		t.Fatalf("code %d, stderr %s", code, errOut)
	}
	if !strings.Contains(out, "evm15") {
		t.Errorf("output %q", out)
	}

	cfg, err := config.Load(filepath.Join(dir, config.ConfigFileName))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dialect.Name != "evm15" || cfg.Dialect.StackWindow != 8 {
		t.Errorf("config = %+v", cfg.Dialect)
	}

	if code, _, _ := runCommand(t, "init", "-dir", dir); code != exitFailure {
		t.Errorf("second init: code %d", code)
	}
}

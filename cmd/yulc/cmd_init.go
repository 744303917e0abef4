package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tangzhangming/yulc/internal/config"
	"github.com/tangzhangming/yulc/internal/dialect"
)

// cmdInit 在当前目录生成 yulc.toml
func cmdInit(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("dir", ".", "Directory to create the config file in")
	name := fs.String("dialect", "evm", "Dialect: yul, evm or evm15")
	window := fs.Int("window", 0, "Reachable window size, 0 for the dialect default")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: yulc init [options]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return exitFailure
	}

	configPath := filepath.Join(*dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(stderr, "Error: %s already exists\n", configPath)
		return exitFailure
	}

	cfg := config.Default()
	cfg.Dialect.Name = *name
	cfg.Dialect.StackWindow = *window
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	d, _ := cfg.BuildDialect()
	fmt.Fprintf(stdout, "Created %s for %s\n", configPath, describe(d))
	return exitOK
}

func describe(d *dialect.Dialect) string {
	if d == nil {
		return "unknown dialect"
	}
	return d.String()
}

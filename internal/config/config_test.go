package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/multierr"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)

	sub := true
	cfg := Default()
	cfg.Dialect.Name = "evm"
	cfg.Dialect.StackWindow = 8
	cfg.Dialect.Subroutines = &sub
	cfg.Output.Format = FormatJSON
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "# 可达窗口大小") {
		t.Errorf("saved config lacks comments:\n%s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Dialect.Name != "evm" || loaded.Dialect.StackWindow != 8 ||
		loaded.Dialect.Subroutines == nil || !*loaded.Dialect.Subroutines ||
		loaded.Output.Format != FormatJSON {
		t.Errorf("loaded config = %+v", loaded)
	}

	d, err := loaded.BuildDialect()
	if err != nil {
		t.Fatal(err)
	}
	if d.StackWindow() != 8 || !d.Subroutines() || d.Name() != "evm" {
		t.Errorf("dialect = %s", d)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	writeFile(t, path, "[dialect]\nname = \"evm15\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output.Format != FormatText || !cfg.Output.Color {
		t.Errorf("output defaults lost: %+v", cfg.Output)
	}

	d, err := cfg.BuildDialect()
	if err != nil {
		t.Fatal(err)
	}
	if d.Name() != "evm15" || !d.Subroutines() || d.StackWindow() != 16 {
		t.Errorf("dialect = %s", d)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Dialect: DialectConfig{Name: "wasm", StackWindow: -2},
		Output:  OutputConfig{Format: "xml"},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	if n := len(multierr.Errors(err)); n != 3 {
		t.Errorf("got %d errors, want 3: %v", n, err)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.toml")
	writeFile(t, bad, "[dialect\nname = ")
	if _, err := Load(bad); err == nil || !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("unexpected error %v", err)
	}

	invalid := filepath.Join(dir, "invalid.toml")
	writeFile(t, invalid, "[output]\nformat = \"xml\"\n")
	if _, err := Load(invalid); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, ConfigFileName), "")
	source := filepath.Join(nested, "main.yul")
	writeFile(t, source, "{ }")

	want, _ := filepath.Abs(filepath.Join(root, ConfigFileName))
	if got := Find(source); got != want {
		t.Errorf("Find(file) = %q, want %q", got, want)
	}
	if got := Find(nested); got != want {
		t.Errorf("Find(dir) = %q, want %q", got, want)
	}
	if got := Find(filepath.Join(root, "nope")); got != "" {
		t.Errorf("Find(missing) = %q", got)
	}
}

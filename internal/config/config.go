// Package config 读写 yulc.toml 配置文件
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"

	"github.com/tangzhangming/yulc/internal/dialect"
)

// 常量定义
const (
	ConfigFileName = "yulc.toml" // 配置文件名
)

// 输出格式
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatLSP  = "lsp"
)

// Config 配置
type Config struct {
	Dialect DialectConfig `toml:"dialect"`
	Output  OutputConfig  `toml:"output"`
}

// DialectConfig 方言配置
type DialectConfig struct {
	// Name 内置方言名（yul、evm、evm15）
	Name string `toml:"name"`

	// StackWindow 覆盖可达窗口大小，0 表示使用方言默认值
	StackWindow int `toml:"stack_window"`

	// Subroutines 覆盖链接模式，未设置时使用方言默认值
	Subroutines *bool `toml:"subroutines"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	// Format 报告格式（text、json、lsp）
	Format string `toml:"format"`

	// Color 是否着色
	Color bool `toml:"color"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Dialect: DialectConfig{Name: "evm"},
		Output:  OutputConfig{Format: FormatText, Color: true},
	}
}

// Load 从文件加载配置，未出现的字段保持默认值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return config, nil
}

// Validate 检查配置，返回所有问题
func (c *Config) Validate() error {
	var err error
	if _, e := dialect.ByName(c.Dialect.Name); e != nil {
		err = multierr.Append(err, e)
	}
	if c.Dialect.StackWindow < 0 {
		err = multierr.Append(err, fmt.Errorf("stack_window must not be negative, got %d", c.Dialect.StackWindow))
	}
	switch c.Output.Format {
	case FormatText, FormatJSON, FormatLSP:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown output format %q (want text, json or lsp)", c.Output.Format))
	}
	return err
}

// BuildDialect 根据配置构造方言
func (c *Config) BuildDialect() (*dialect.Dialect, error) {
	base, err := dialect.ByName(c.Dialect.Name)
	if err != nil {
		return nil, err
	}
	if c.Dialect.StackWindow == 0 && c.Dialect.Subroutines == nil {
		return base, nil
	}

	window := base.StackWindow()
	if c.Dialect.StackWindow != 0 {
		window = c.Dialect.StackWindow
	}
	subroutines := base.Subroutines()
	if c.Dialect.Subroutines != nil {
		subroutines = *c.Dialect.Subroutines
	}
	return dialect.New(base.Name(), window, subroutines)
}

// Save 保存配置到文件
func (c *Config) Save(path string) error {
	content := generateConfigWithComments(c)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateConfigWithComments 生成带注释的配置文件内容
func generateConfigWithComments(c *Config) string {
	var sb strings.Builder

	sb.WriteString("[dialect]\n")
	sb.WriteString("# 目标方言：yul（不限制栈深）、evm（跳转表）、evm15（子程序）\n")
	sb.WriteString(fmt.Sprintf("name = %q\n\n", c.Dialect.Name))
	sb.WriteString("# 可达窗口大小，0 表示使用方言默认值\n")
	sb.WriteString(fmt.Sprintf("stack_window = %d\n", c.Dialect.StackWindow))
	if c.Dialect.Subroutines != nil {
		sb.WriteString("\n# 覆盖方言的链接模式\n")
		sb.WriteString(fmt.Sprintf("subroutines = %t\n", *c.Dialect.Subroutines))
	}

	sb.WriteString("\n[output]\n")
	sb.WriteString("# 报告格式：text、json、lsp\n")
	sb.WriteString(fmt.Sprintf("format = %q\n\n", c.Output.Format))
	sb.WriteString("# 终端输出是否着色\n")
	sb.WriteString(fmt.Sprintf("color = %t\n", c.Output.Color))

	return sb.String()
}

// Find 从指定路径向上查找配置文件
// 返回配置文件的完整路径，如果找不到则返回空字符串
func Find(startPath string) string {
	info, err := os.Stat(startPath)
	if err != nil {
		return ""
	}

	var dir string
	if info.IsDir() {
		dir = startPath
	} else {
		dir = filepath.Dir(startPath)
	}

	dir, err = filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// 已到达根目录
			return ""
		}
		dir = parent
	}
}

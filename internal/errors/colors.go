package errors

import "os"

// Color 终端颜色
type Color int

const (
	ColorReset Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorCyan
	ColorWhite
	ColorBoldRed
	ColorBoldYellow
	ColorBoldWhite
)

// ANSI 颜色代码
var ansiCodes = map[Color]string{
	ColorReset:      "\033[0m",
	ColorRed:        "\033[31m",
	ColorGreen:      "\033[32m",
	ColorYellow:     "\033[33m",
	ColorBlue:       "\033[34m",
	ColorCyan:       "\033[36m",
	ColorWhite:      "\033[37m",
	ColorBoldRed:    "\033[1;31m",
	ColorBoldYellow: "\033[1;33m",
	ColorBoldWhite:  "\033[1;37m",
}

// colorsEnabled 终端是否支持颜色，是 NewFormatter 的默认值
var colorsEnabled = detectColorSupport()

// detectColorSupport 检测终端是否支持颜色
func detectColorSupport() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) != 0 {
			return true
		}
	}
	return os.Getenv("COLORTERM") != ""
}

// ColorsEnabled 返回终端颜色默认值
func ColorsEnabled() bool {
	return colorsEnabled
}

// SetColorsEnabled 覆盖终端颜色默认值，只影响之后创建的格式化器
func SetColorsEnabled(enabled bool) {
	colorsEnabled = enabled
}

func paint(s string, color Color) string {
	code, ok := ansiCodes[color]
	if !ok {
		return s
	}
	return code + s + ansiCodes[ColorReset]
}

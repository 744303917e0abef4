package lexer

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/tangzhangming/yulc/internal/token"
)

// ============================================================================
// Lexer - 词法分析器
// ============================================================================
//
// 词法分析器负责将中间语言源代码转换为 Token 序列。
// 中间语言只使用 ASCII 标点，标识符和数字也都是 ASCII，
// 因此按字节扫描即可；字符串字面量中的非 ASCII 字节原样保留。
//
// ============================================================================

// Lexer 词法分析器结构体
type Lexer struct {
	source   string        // 源代码字符串
	filename string        // 源文件名（用于错误报告）
	tokens   []token.Token // 已扫描的 Token 列表

	start     int // 当前 Token 的起始位置（字节偏移）
	current   int // 当前扫描位置（字节偏移）
	line      int // 当前行号（从1开始）
	column    int // 当前列号（从1开始）
	startLine int // 当前 Token 起始行
	startCol  int // 当前 Token 起始列

	errors []Error // 词法错误列表
}

// Error 表示词法分析错误
type Error struct {
	Pos     token.Position // 错误位置
	Message string         // 错误信息
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// New 创建一个新的词法分析器
func New(source, filename string) *Lexer {
	estimatedTokens := len(source) / 4
	if estimatedTokens < 16 {
		estimatedTokens = 16
	}

	return &Lexer{
		source:   source,
		filename: filename,
		tokens:   make([]token.Token, 0, estimatedTokens),
		line:     1,
		column:   1,
	}
}

// ScanTokens 扫描所有 tokens，最后一个 Token 总是 EOF
func (l *Lexer) ScanTokens() []token.Token {
	for !l.isAtEnd() {
		l.start = l.current
		l.startLine = l.line
		l.startCol = l.column
		l.scanToken()
	}

	l.start = l.current
	l.startLine = l.line
	l.startCol = l.column
	l.tokens = append(l.tokens, token.Token{
		Type: token.EOF,
		Pos:  l.currentPos(),
	})

	return l.tokens
}

// Errors 返回所有词法错误
func (l *Lexer) Errors() []Error {
	return l.errors
}

// HasErrors 检查是否有错误
func (l *Lexer) HasErrors() bool {
	return len(l.errors) > 0
}

// Err 将所有词法错误合并为一个 error，没有错误时返回 nil
func (l *Lexer) Err() error {
	var err error
	for _, e := range l.errors {
		err = multierr.Append(err, e)
	}
	return err
}

// ============================================================================
// 核心扫描逻辑
// ============================================================================

func (l *Lexer) scanToken() {
	ch := l.advance()

	switch ch {
	case ' ', '\t', '\r':
		// 空白
	case '\n':
		l.newLine()

	case '{':
		l.addToken(token.LBRACE)
	case '}':
		l.addToken(token.RBRACE)
	case '(':
		l.addToken(token.LPAREN)
	case ')':
		l.addToken(token.RPAREN)
	case ',':
		l.addToken(token.COMMA)

	case ':':
		if l.match('=') {
			l.addToken(token.ASSIGN)
		} else {
			l.addToken(token.COLON)
		}

	case '-':
		if l.match('>') {
			l.addToken(token.ARROW)
		} else {
			l.error("unexpected character '-'")
		}

	case '/':
		if l.match('/') {
			l.lineComment()
		} else if l.match('*') {
			l.blockComment()
		} else {
			l.error("unexpected character '/'")
		}

	case '"':
		l.string()

	default:
		switch {
		case isDigit(ch):
			l.number()
		case isIdentStart(ch):
			l.identifier()
		default:
			l.error(fmt.Sprintf("unexpected character %q", ch))
		}
	}
}

func (l *Lexer) lineComment() {
	for !l.isAtEnd() && l.peek() != '\n' {
		l.advance()
	}
}

func (l *Lexer) blockComment() {
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekNext() == '/' {
			l.advance()
			l.advance()
			return
		}
		if l.advance() == '\n' {
			l.newLine()
		}
	}
	l.error("unterminated block comment")
}

// string 扫描字符串字面量，Literal 保存转义处理后的内容
func (l *Lexer) string() {
	var sb strings.Builder
	for !l.isAtEnd() && l.peek() != '"' {
		ch := l.advance()
		if ch == '\n' {
			l.error("unterminated string literal")
			l.newLine()
			return
		}
		if ch != '\\' {
			sb.WriteByte(ch)
			continue
		}
		if l.isAtEnd() {
			break
		}
		switch esc := l.advance(); esc {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '\\', '"', '\'':
			sb.WriteByte(esc)
		case 'x':
			hi, lo := l.advance(), l.advance()
			if !isHexDigit(hi) || !isHexDigit(lo) {
				l.error("invalid \\x escape sequence")
				return
			}
			sb.WriteByte(hexValue(hi)<<4 | hexValue(lo))
		default:
			l.error(fmt.Sprintf("invalid escape sequence \\%c", esc))
			return
		}
	}

	if l.isAtEnd() {
		l.error("unterminated string literal")
		return
	}
	l.advance() // 结束引号

	l.tokens = append(l.tokens, token.Token{
		Type:    token.STRING,
		Literal: sb.String(),
		Pos:     l.currentPos(),
	})
}

// number 扫描十进制或 0x 十六进制数字
func (l *Lexer) number() {
	if l.source[l.start] == '0' && (l.peek() == 'x' || l.peek() == 'X') {
		l.advance()
		if !isHexDigit(l.peek()) {
			l.error("hex literal without digits")
			return
		}
		for isHexDigit(l.peek()) {
			l.advance()
		}
	} else {
		for isDigit(l.peek()) {
			l.advance()
		}
	}

	// 数字后面紧跟标识符字符视为非法，例如 12abc
	if isIdentPart(l.peek()) {
		for isIdentPart(l.peek()) {
			l.advance()
		}
		l.error(fmt.Sprintf("invalid number literal %q", l.source[l.start:l.current]))
		return
	}

	l.addToken(token.NUMBER)
}

func (l *Lexer) identifier() {
	for isIdentPart(l.peek()) {
		l.advance()
	}
	l.addToken(token.LookupIdent(l.source[l.start:l.current]))
}

// ============================================================================
// 辅助方法
// ============================================================================

func (l *Lexer) isAtEnd() bool {
	return l.current >= len(l.source)
}

func (l *Lexer) advance() byte {
	if l.isAtEnd() {
		return 0
	}
	b := l.source[l.current]
	l.current++
	l.column++
	return b
}

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.current]
}

func (l *Lexer) peekNext() byte {
	if l.current+1 >= len(l.source) {
		return 0
	}
	return l.source[l.current+1]
}

func (l *Lexer) match(expected byte) bool {
	if l.peek() != expected || l.isAtEnd() {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) newLine() {
	l.line++
	l.column = 1
}

func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Filename: l.filename,
		Line:     l.startLine,
		Column:   l.startCol,
		Offset:   l.start,
	}
}

func (l *Lexer) addToken(tokenType token.TokenType) {
	l.tokens = append(l.tokens, token.Token{
		Type:    tokenType,
		Literal: l.source[l.start:l.current],
		Pos:     l.currentPos(),
	})
}

func (l *Lexer) error(message string) {
	l.errors = append(l.errors, Error{
		Pos:     l.currentPos(),
		Message: message,
	})
	l.addToken(token.ILLEGAL)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '$'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '.'
}

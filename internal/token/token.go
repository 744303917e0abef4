package token

import "fmt"

// ============================================================================
// Token 类型定义
// ============================================================================
//
// 中间语言的词法单元很少，按类别分组：
// 1. 特殊标记（ILLEGAL, EOF）
// 2. 字面量（标识符、数字、字符串）
// 3. 分隔符（括号、逗号、赋值、箭头）
// 4. 关键字
//
// ============================================================================

// TokenType 表示 Token 的类型
type TokenType int

const (
	// ----------------------------------------------------------
	// 特殊标记
	// ----------------------------------------------------------
	ILLEGAL TokenType = iota // 非法字符
	EOF                      // 文件结束

	// ----------------------------------------------------------
	// 字面量
	// ----------------------------------------------------------
	IDENT  // 标识符（变量名、函数名、内建函数名）
	NUMBER // 数字字面量（十进制或 0x 十六进制）
	STRING // 字符串字面量

	// ----------------------------------------------------------
	// 分隔符
	// ----------------------------------------------------------
	LBRACE // {
	RBRACE // }
	LPAREN // (
	RPAREN // )
	COMMA  // ,
	COLON  // :
	ASSIGN // :=
	ARROW  // ->

	// ----------------------------------------------------------
	// 关键字
	// ----------------------------------------------------------
	keyword_beg
	FUNCTION // function
	LET      // let
	IF       // if
	SWITCH   // switch
	CASE     // case
	DEFAULT  // default
	FOR      // for
	BREAK    // break
	CONTINUE // continue
	LEAVE    // leave
	TRUE     // true
	FALSE    // false
	keyword_end
)

// tokenNames Token 类型名称
var tokenNames = map[TokenType]string{
	ILLEGAL:  "ILLEGAL",
	EOF:      "EOF",
	IDENT:    "IDENT",
	NUMBER:   "NUMBER",
	STRING:   "STRING",
	LBRACE:   "{",
	RBRACE:   "}",
	LPAREN:   "(",
	RPAREN:   ")",
	COMMA:    ",",
	COLON:    ":",
	ASSIGN:   ":=",
	ARROW:    "->",
	FUNCTION: "function",
	LET:      "let",
	IF:       "if",
	SWITCH:   "switch",
	CASE:     "case",
	DEFAULT:  "default",
	FOR:      "for",
	BREAK:    "break",
	CONTINUE: "continue",
	LEAVE:    "leave",
	TRUE:     "true",
	FALSE:    "false",
}

// keywords 关键字表
var keywords = map[string]TokenType{
	"function": FUNCTION,
	"let":      LET,
	"if":       IF,
	"switch":   SWITCH,
	"case":     CASE,
	"default":  DEFAULT,
	"for":      FOR,
	"break":    BREAK,
	"continue": CONTINUE,
	"leave":    LEAVE,
	"true":     TRUE,
	"false":    FALSE,
}

// LookupIdent 判断标识符是否为关键字
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword 判断 TokenType 是否为关键字
func IsKeyword(t TokenType) bool {
	return t > keyword_beg && t < keyword_end
}

// String 返回 TokenType 的字符串表示
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", t)
}

// ============================================================================
// Position - 源代码位置
// ============================================================================

// Position 表示源代码中的位置
type Position struct {
	Filename string // 文件名
	Line     int    // 行号 (从1开始)
	Column   int    // 列号 (从1开始)
	Offset   int    // 字节偏移量 (从0开始)
}

// String 返回位置的字符串表示，格式为 "filename:line:column"
func (p Position) String() string {
	if p.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsValid 检查位置是否有效
func (p Position) IsValid() bool {
	return p.Line > 0
}

// ============================================================================
// Token - 词法单元
// ============================================================================

// Token 表示一个词法单元
type Token struct {
	Type    TokenType // Token 类型
	Literal string    // 原始字面量（字符串字面量为去掉引号并处理转义后的内容）
	Pos     Position  // 位置信息
}

// String 返回 Token 的字符串表示（用于调试）
func (t Token) String() string {
	switch t.Type {
	case IDENT, NUMBER, STRING:
		return fmt.Sprintf("%s(%s) at %s", t.Type, t.Literal, t.Pos)
	default:
		return fmt.Sprintf("%s at %s", t.Type, t.Pos)
	}
}

// New 创建一个新的 Token
func New(tokenType TokenType, literal string, pos Position) Token {
	return Token{
		Type:    tokenType,
		Literal: literal,
		Pos:     pos,
	}
}

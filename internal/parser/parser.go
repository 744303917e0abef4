package parser

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/tangzhangming/yulc/internal/ast"
	"github.com/tangzhangming/yulc/internal/lexer"
	"github.com/tangzhangming/yulc/internal/token"
)

// Parser 语法分析器
type Parser struct {
	lexer     *lexer.Lexer
	tokens    []token.Token
	current   int
	errors    []Error
	filename  string
	panicMode bool // 错误恢复模式标志，用于避免级联报错
	depth     int  // 块/表达式嵌套深度，防止栈溢出
}

// maxDepth 最大嵌套深度
const maxDepth = 256

// maxParseErrors 最大错误数量限制，防止错误爆炸
const maxParseErrors = 50

// Error 语法分析错误
type Error struct {
	Pos     token.Position
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// New 创建一个新的语法分析器
func New(source, filename string) *Parser {
	l := lexer.New(source, filename)
	tokens := l.ScanTokens()

	return &Parser{
		lexer:    l,
		tokens:   tokens,
		filename: filename,
	}
}

// ParseString 解析源代码，返回最外层代码块；词法或语法错误合并为一个 error
func ParseString(source, filename string) (*ast.Block, error) {
	p := New(source, filename)
	block := p.Parse()
	if err := p.Err(); err != nil {
		return nil, err
	}
	return block, nil
}

// Parse 解析整个源文件，源文件必须恰好是一个代码块
func (p *Parser) Parse() *ast.Block {
	block := p.parseBlock()
	if block == nil {
		return &ast.Block{}
	}
	if !p.isAtEnd() {
		p.panicMode = false
		p.error(fmt.Sprintf("unexpected %s after top-level block", p.peek().Type))
	}
	return block
}

// Errors 返回所有语法错误
func (p *Parser) Errors() []Error {
	return p.errors
}

// LexErrors 返回词法错误
func (p *Parser) LexErrors() []lexer.Error {
	return p.lexer.Errors()
}

// HasErrors 检查是否有错误（含词法错误）
func (p *Parser) HasErrors() bool {
	return len(p.errors) > 0 || p.lexer.HasErrors()
}

// Err 将词法错误和语法错误合并为一个 error
func (p *Parser) Err() error {
	err := p.lexer.Err()
	for _, e := range p.errors {
		err = multierr.Append(err, e)
	}
	return err
}

// ============================================================================
// 语句
// ============================================================================

func (p *Parser) parseBlock() *ast.Block {
	lbrace := p.consume(token.LBRACE, "expected '{'")
	if p.panicMode {
		return nil
	}

	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		p.error("nesting too deep")
		p.panicMode = true
		return nil
	}

	block := &ast.Block{LBrace: lbrace}
	for !p.check(token.RBRACE) && !p.isAtEnd() {
		p.panicMode = false
		stmt := p.parseStatement()
		if p.panicMode {
			p.synchronize()
			continue
		}
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
	}

	p.panicMode = false
	p.consume(token.RBRACE, "expected '}'")
	return block
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.peek().Type {
	case token.LBRACE:
		if b := p.parseBlock(); b != nil {
			return b
		}
		return nil
	case token.FUNCTION:
		return p.parseFunctionDefinition()
	case token.LET:
		return p.parseVariableDeclaration()
	case token.IF:
		return p.parseIf()
	case token.SWITCH:
		return p.parseSwitch()
	case token.FOR:
		return p.parseFor()
	case token.BREAK:
		return &ast.Break{Token: p.advance()}
	case token.CONTINUE:
		return &ast.Continue{Token: p.advance()}
	case token.LEAVE:
		return &ast.Leave{Token: p.advance()}
	case token.IDENT:
		return p.parseIdentifierStatement()
	default:
		p.error(fmt.Sprintf("unexpected %s", p.peek().Type))
		p.panicMode = true
		return nil
	}
}

func (p *Parser) parseFunctionDefinition() ast.Statement {
	fn := &ast.FunctionDefinition{FuncToken: p.advance()}

	name := p.consume(token.IDENT, "expected function name")
	if p.panicMode {
		return nil
	}
	fn.Name = name.Literal

	p.consume(token.LPAREN, "expected '(' after function name")
	if p.panicMode {
		return nil
	}
	if !p.check(token.RPAREN) {
		fn.Parameters = p.parseTypedNameList()
		if p.panicMode {
			return nil
		}
	}
	p.consume(token.RPAREN, "expected ')' after parameters")
	if p.panicMode {
		return nil
	}

	if p.match(token.ARROW) {
		fn.ReturnVariables = p.parseTypedNameList()
		if p.panicMode {
			return nil
		}
	}

	fn.Body = p.parseBlock()
	if fn.Body == nil {
		return nil
	}
	return fn
}

func (p *Parser) parseVariableDeclaration() ast.Statement {
	decl := &ast.VariableDeclaration{LetToken: p.advance()}
	decl.Variables = p.parseTypedNameList()
	if p.panicMode {
		return nil
	}
	if p.match(token.ASSIGN) {
		decl.Value = p.parseExpression()
		if p.panicMode {
			return nil
		}
	}
	return decl
}

// parseIdentifierStatement 以标识符开头的语句：赋值或表达式语句
func (p *Parser) parseIdentifierStatement() ast.Statement {
	if p.peekNext().Type == token.LPAREN {
		expr := p.parseExpression()
		if p.panicMode {
			return nil
		}
		return &ast.ExpressionStatement{Expr: expr}
	}

	var names []*ast.Identifier
	for {
		tok := p.consume(token.IDENT, "expected identifier")
		if p.panicMode {
			return nil
		}
		names = append(names, &ast.Identifier{Token: tok, Name: tok.Literal})
		if !p.match(token.COMMA) {
			break
		}
	}

	if !p.match(token.ASSIGN) {
		if len(names) == 1 {
			// 单独的标识符作为表达式语句
			return &ast.ExpressionStatement{Expr: names[0]}
		}
		p.error("expected ':=' after identifier list")
		p.panicMode = true
		return nil
	}

	value := p.parseExpression()
	if p.panicMode {
		return nil
	}
	return &ast.Assignment{Variables: names, Value: value}
}

func (p *Parser) parseIf() ast.Statement {
	stmt := &ast.If{IfToken: p.advance()}
	stmt.Condition = p.parseExpression()
	if p.panicMode {
		return nil
	}
	stmt.Body = p.parseBlock()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseSwitch() ast.Statement {
	stmt := &ast.Switch{SwitchToken: p.advance()}
	stmt.Expr = p.parseExpression()
	if p.panicMode {
		return nil
	}

	for p.check(token.CASE) {
		c := &ast.Case{Token: p.advance()}
		lit := p.parseLiteral()
		if p.panicMode {
			return nil
		}
		c.Value = lit
		c.Body = p.parseBlock()
		if c.Body == nil {
			return nil
		}
		stmt.Cases = append(stmt.Cases, c)
	}

	if p.check(token.DEFAULT) {
		c := &ast.Case{Token: p.advance()}
		c.Body = p.parseBlock()
		if c.Body == nil {
			return nil
		}
		stmt.Cases = append(stmt.Cases, c)
	}

	if len(stmt.Cases) == 0 {
		p.error("switch statement without any cases")
		p.panicMode = true
		return nil
	}
	return stmt
}

func (p *Parser) parseFor() ast.Statement {
	stmt := &ast.ForLoop{ForToken: p.advance()}
	if stmt.Pre = p.parseBlock(); stmt.Pre == nil {
		return nil
	}
	if stmt.Condition = p.parseExpression(); p.panicMode {
		return nil
	}
	if stmt.Post = p.parseBlock(); stmt.Post == nil {
		return nil
	}
	if stmt.Body = p.parseBlock(); stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseTypedNameList() []*ast.TypedName {
	var names []*ast.TypedName
	for {
		tok := p.consume(token.IDENT, "expected identifier")
		if p.panicMode {
			return nil
		}
		name := &ast.TypedName{Token: tok, Name: tok.Literal}
		if p.match(token.COLON) {
			typ := p.consume(token.IDENT, "expected type name after ':'")
			if p.panicMode {
				return nil
			}
			name.Type = typ.Literal
		}
		names = append(names, name)
		if !p.match(token.COMMA) {
			return names
		}
	}
}

// ============================================================================
// 表达式
// ============================================================================

func (p *Parser) parseExpression() ast.Expression {
	switch p.peek().Type {
	case token.IDENT:
		tok := p.advance()
		ident := &ast.Identifier{Token: tok, Name: tok.Literal}
		if !p.check(token.LPAREN) {
			return ident
		}
		return p.parseCall(ident)
	case token.NUMBER, token.STRING, token.TRUE, token.FALSE:
		if lit := p.parseLiteral(); lit != nil {
			return lit
		}
		return nil
	default:
		p.error(fmt.Sprintf("expected expression, found %s", p.peek().Type))
		p.panicMode = true
		return nil
	}
}

func (p *Parser) parseCall(name *ast.Identifier) ast.Expression {
	p.advance() // (

	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		p.error("expression nesting too deep")
		p.panicMode = true
		return nil
	}

	call := &ast.FunctionCall{Name: name}
	if !p.check(token.RPAREN) {
		for {
			arg := p.parseExpression()
			if p.panicMode {
				return nil
			}
			call.Args = append(call.Args, arg)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "expected ')' after arguments")
	if p.panicMode {
		return nil
	}
	return call
}

func (p *Parser) parseLiteral() *ast.Literal {
	tok := p.peek()
	lit := &ast.Literal{Token: tok, Value: tok.Literal}
	switch tok.Type {
	case token.NUMBER:
		lit.Kind = ast.NumberLiteral
	case token.STRING:
		lit.Kind = ast.StringLiteral
	case token.TRUE, token.FALSE:
		lit.Kind = ast.BoolLiteral
	default:
		p.error(fmt.Sprintf("expected literal, found %s", tok.Type))
		p.panicMode = true
		return nil
	}
	p.advance()

	if p.match(token.COLON) {
		typ := p.consume(token.IDENT, "expected type name after ':'")
		if p.panicMode {
			return nil
		}
		lit.Type = typ.Literal
	}

	// 字面量必须能放进一个 256 位字
	if _, err := lit.Word(); err != nil {
		p.errorAt(tok.Pos, err.Error())
	}
	return lit
}

// ============================================================================
// 辅助方法
// ============================================================================

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == token.EOF
}

func (p *Parser) peek() token.Token {
	return p.tokens[p.current]
}

func (p *Parser) peekNext() token.Token {
	if p.current+1 >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current+1]
}

func (p *Parser) previous() token.Token {
	return p.tokens[p.current-1]
}

func (p *Parser) advance() token.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) check(t token.TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) match(types ...token.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) consume(t token.TokenType, message string) token.Token {
	if p.check(t) {
		return p.advance()
	}
	p.error(fmt.Sprintf("%s, found %s", message, p.peek().Type))
	p.panicMode = true
	return token.Token{}
}

func (p *Parser) error(message string) {
	p.errorAt(p.peek().Pos, message)
}

func (p *Parser) errorAt(pos token.Position, message string) {
	// panicMode 下跳过后续错误，避免级联报错
	if p.panicMode {
		return
	}

	// 避免在同一位置重复报错
	if len(p.errors) > 0 {
		last := p.errors[len(p.errors)-1]
		if last.Pos.Line == pos.Line && last.Pos.Column == pos.Column {
			return
		}
	}

	if len(p.errors) >= maxParseErrors {
		p.errors = append(p.errors, Error{Pos: pos, Message: "too many errors, aborting"})
		p.panicMode = true
		return
	}

	p.errors = append(p.errors, Error{Pos: pos, Message: message})
}

// synchronize 跳到下一个安全点（右大括号之后或语句关键字之前）
func (p *Parser) synchronize() {
	for !p.isAtEnd() {
		switch p.peek().Type {
		case token.RBRACE:
			return
		case token.FUNCTION, token.LET, token.IF, token.SWITCH, token.FOR,
			token.BREAK, token.CONTINUE, token.LEAVE, token.LBRACE:
			return
		}
		p.advance()
	}
}

package ast

import (
	"strings"
)

// Printer AST 打印器，输出带缩进的源代码形式
type Printer struct {
	buf        strings.Builder
	indent     int
	indentSize int
}

// NewPrinter 创建打印器
func NewPrinter(indentSize int) *Printer {
	if indentSize <= 0 {
		indentSize = 4
	}
	return &Printer{indentSize: indentSize}
}

// Print 以四空格缩进打印一个代码块
func Print(block *Block) string {
	return NewPrinter(4).Print(block)
}

// Print 打印代码块并返回源代码，末尾带换行
func (p *Printer) Print(block *Block) string {
	p.buf.Reset()
	p.indent = 0
	p.printBlock(block)
	p.buf.WriteString("\n")
	return p.buf.String()
}

func (p *Printer) printBlock(b *Block) {
	if len(b.Statements) == 0 {
		p.write("{ }")
		return
	}
	p.write("{")
	p.indent++
	for _, stmt := range b.Statements {
		p.newline()
		p.printStatement(stmt)
	}
	p.indent--
	p.newline()
	p.write("}")
}

func (p *Printer) printStatement(stmt Statement) {
	switch s := stmt.(type) {
	case *Block:
		p.printBlock(s)

	case *FunctionDefinition:
		p.write(strings.TrimSuffix(s.String(), s.Body.String()))
		p.printBlock(s.Body)

	case *If:
		p.write("if " + s.Condition.String() + " ")
		p.printBlock(s.Body)

	case *Switch:
		p.write("switch " + s.Expr.String())
		for _, c := range s.Cases {
			p.newline()
			if c.Value == nil {
				p.write("default ")
			} else {
				p.write("case " + c.Value.String() + " ")
			}
			p.printBlock(c.Body)
		}

	case *ForLoop:
		p.write("for ")
		p.printBlock(s.Pre)
		p.write(" " + s.Condition.String() + " ")
		p.printBlock(s.Post)
		p.write(" ")
		p.printBlock(s.Body)

	default:
		p.write(stmt.String())
	}
}

func (p *Printer) write(s string) {
	p.buf.WriteString(s)
}

func (p *Printer) newline() {
	p.buf.WriteString("\n")
	p.buf.WriteString(strings.Repeat(" ", p.indent*p.indentSize))
}

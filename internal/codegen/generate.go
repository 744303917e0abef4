package codegen

import (
	"github.com/tangzhangming/yulc/internal/assembly"
	"github.com/tangzhangming/yulc/internal/ast"
	"github.com/tangzhangming/yulc/internal/dialect"
	"github.com/tangzhangming/yulc/internal/errors"
)

// Generate 翻译整个程序，函数在定义处展开；契约违例以 error 返回
func Generate(asm assembly.Assembly, d *dialect.Dialect, block *ast.Block) (err error) {
	defer errors.Recover(&err)
	New(asm, d, nil, Options{}).Block(block)
	return nil
}

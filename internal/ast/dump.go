package ast

import (
	"io"

	"github.com/davecgh/go-spew/spew"
)

// dumpConfig 省略指针地址和容量，便于比较输出
var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Dump 返回节点的完整结构转储（用于 -ast 调试输出）
func Dump(node Node) string {
	return dumpConfig.Sdump(node)
}

// Fdump 将节点结构转储写入 w
func Fdump(w io.Writer, node Node) {
	dumpConfig.Fdump(w, node)
}

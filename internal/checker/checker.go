// Package checker 对整个程序做栈可达性检查
package checker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/tangzhangming/yulc/internal/assembly"
	"github.com/tangzhangming/yulc/internal/ast"
	"github.com/tangzhangming/yulc/internal/codegen"
	"github.com/tangzhangming/yulc/internal/dialect"
	"github.com/tangzhangming/yulc/internal/errors"
	"github.com/tangzhangming/yulc/internal/logger"
	"github.com/tangzhangming/yulc/internal/stacklayout"
)

// ============================================================================
// Checker - 可达性检查器
// ============================================================================
//
// 每个函数（以及顶层语句）单独分析：新建一个后端，以模拟器为观察者运行
// 代码生成遍历，得到一个裕量。嵌套的函数定义不在外层展开，各自单独分析，
// 调用只解析到定义处词法可见的函数。
// 契约违例终止整次检查，已经完成的函数结果随错误一起返回。
//
// ============================================================================

// Backend 为每次分析创建新的后端
type Backend func(d *dialect.Dialect) assembly.Assembly

// NullBackend 默认后端
func NullBackend(d *dialect.Dialect) assembly.Assembly {
	return assembly.NewNull(d.Subroutines())
}

// Option 检查器选项
type Option func(*Checker)

// WithLogger 设置日志记录器
func WithLogger(l *logger.Logger) Option {
	return func(c *Checker) { c.log = l }
}

// WithBackend 设置后端工厂
func WithBackend(b Backend) Option {
	return func(c *Checker) { c.backend = b }
}

// Access 单元内距栈顶最远的一次访问
type Access struct {
	Name  string // 变量名，函数出口为 stacklayout.FunctionExit
	Depth int    // 距栈顶的槽数，没有访问时为 -1
}

// Checker 可达性检查器
type Checker struct {
	dialect  *dialect.Dialect
	backend  Backend
	log      *logger.Logger
	analysed *atomic.Int64

	mu      sync.Mutex
	deepest map[string]Access
}

// New 创建检查器
func New(d *dialect.Dialect, opts ...Option) *Checker {
	c := &Checker{
		dialect:  d,
		backend:  NullBackend,
		log:      logger.Nop(),
		analysed: atomic.NewInt64(0),
		deepest:  make(map[string]Access),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dialect 返回检查使用的方言
func (c *Checker) Dialect() *dialect.Dialect {
	return c.dialect
}

// Analysed 返回最近一次 Check 或 CheckConcurrent 开始后完成分析的单元数（函数与顶层块）
//
// 同名函数各计一次，因此可能大于报告的项数。
func (c *Checker) Analysed() int64 {
	return c.analysed.Load()
}

// Deepest 返回最近一次检查中该单元最远的访问，同名函数取最深者
func (c *Checker) Deepest(name string) (Access, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.deepest[name]
	return a, ok
}

func (c *Checker) recordDeepest(name string, a Access) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.deepest[name]; ok && old.Depth >= a.Depth {
		return
	}
	c.deepest[name] = a
}

func (c *Checker) reset() {
	c.mu.Lock()
	c.deepest = make(map[string]Access)
	c.mu.Unlock()
	c.analysed.Store(0)
}

// CheckFunction 分析单个函数并返回裕量
//
// visible 为函数体内可调用、但定义在函数之外的函数，同名时靠前者优先，
// 通常取自 ast.ScopedFunctions。
func (c *Checker) CheckFunction(fn *ast.FunctionDefinition, visible ...*ast.FunctionDefinition) (margin int, err error) {
	return c.analyse(fn.Name, visible, func(t *codegen.CodeTransform) { t.Function(fn) })
}

// CheckBlock 分析顶层语句（跳过其中的函数定义）并返回裕量
//
// 块内定义的函数在遍历到所在的块时登记，不需要外部函数表。
func (c *Checker) CheckBlock(block *ast.Block) (int, error) {
	return c.analyse(TopLevel, nil, func(t *codegen.CodeTransform) { t.Block(block) })
}

func (c *Checker) analyse(name string, visible []*ast.FunctionDefinition, run func(t *codegen.CodeTransform)) (margin int, err error) {
	defer errors.Recover(&err)

	asm := c.backend(c.dialect)
	sim := stacklayout.New(asm, c.dialect)
	run(codegen.New(asm, c.dialect, sim, codegen.Options{SkipFunctions: true, Functions: visible}))

	c.analysed.Inc()
	deepest, depth := sim.Deepest()
	c.recordDeepest(name, Access{Name: deepest, Depth: depth})
	if c.log.IsEnabled() {
		c.log.Debug("%s: margin %d, %d reference(s), deepest %q at %d",
			Entry{Name: name}.DisplayName(), sim.Margin(), sim.References(), deepest, depth)
	}
	return sim.Margin(), nil
}

// Check 依次分析顶层语句和所有函数
func (c *Checker) Check(block *ast.Block) (Report, error) {
	c.reset()
	functions := ast.ScopedFunctions(block)
	report := make(Report, len(functions)+1)

	margin, err := c.CheckBlock(block)
	if err != nil {
		return report, fmt.Errorf("top-level block: %w", err)
	}
	report.record(TopLevel, margin)

	for _, scoped := range functions {
		fn := scoped.Function
		margin, err := c.CheckFunction(fn, scoped.Visible...)
		if err != nil {
			return report, fmt.Errorf("function %s: %w", fn.Name, err)
		}
		report.record(fn.Name, margin)
	}

	c.summarize(report)
	return report, nil
}

// CheckConcurrent 并行分析，workers 不大于 0 时不限制并发数
//
// 没有错误时结果与 Check 相同；出错时报告只包含已经完成的单元。
func (c *Checker) CheckConcurrent(ctx context.Context, block *ast.Block, workers int) (Report, error) {
	c.reset()
	functions := ast.ScopedFunctions(block)

	// 下标 0 为顶层块
	margins := make([]int, len(functions)+1)
	done := make([]bool, len(functions)+1)

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		margin, err := c.CheckBlock(block)
		if err != nil {
			return fmt.Errorf("top-level block: %w", err)
		}
		margins[0], done[0] = margin, true
		return nil
	})

	for i, scoped := range functions {
		i, fn, visible := i, scoped.Function, scoped.Visible
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			margin, err := c.CheckFunction(fn, visible...)
			if err != nil {
				return fmt.Errorf("function %s: %w", fn.Name, err)
			}
			margins[i+1], done[i+1] = margin, true
			return nil
		})
	}

	err := g.Wait()

	report := make(Report, len(functions)+1)
	if done[0] {
		report.record(TopLevel, margins[0])
	}
	for i, scoped := range functions {
		if done[i+1] {
			report.record(scoped.Function.Name, margins[i+1])
		}
	}
	if err != nil {
		return report, err
	}

	c.summarize(report)
	return report, nil
}

func (c *Checker) summarize(report Report) {
	worst, ok := report.Worst()
	if !ok {
		return
	}
	c.log.Info("checked %d unit(s) as %d report entries with %s, worst margin %d in %s",
		c.Analysed(), len(report), c.dialect, worst.Margin, worst.DisplayName())
}

// ============================================================================
// 便捷函数
// ============================================================================

// CheckFunction 用默认后端分析单个函数
func CheckFunction(d *dialect.Dialect, fn *ast.FunctionDefinition) (int, error) {
	return New(d).CheckFunction(fn)
}

// Check 用默认后端分析整个程序
func Check(d *dialect.Dialect, block *ast.Block) (Report, error) {
	return New(d).Check(block)
}

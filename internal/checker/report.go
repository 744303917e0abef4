package checker

import (
	"sort"

	"github.com/segmentio/encoding/json"
)

// TopLevel 顶层语句在报告中的键
const TopLevel = ""

// Report 函数名到可达裕量的映射，顶层语句使用键 TopLevel
type Report map[string]int

// Entry 报告中的一项
type Entry struct {
	Name   string `json:"name"`
	Margin int    `json:"margin"`
}

// DisplayName 返回用于输出的名称
func (e Entry) DisplayName() string {
	if e.Name == TopLevel {
		return "<top-level>"
	}
	return e.Name
}

// record 记录裕量，同名函数保留较差的一个
func (r Report) record(name string, margin int) {
	if old, ok := r[name]; ok && old <= margin {
		return
	}
	r[name] = margin
}

// Names 返回排序后的函数名
func (r Report) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries 按名称排序返回所有项
func (r Report) Entries() []Entry {
	entries := make([]Entry, 0, len(r))
	for _, name := range r.Names() {
		entries = append(entries, Entry{Name: name, Margin: r[name]})
	}
	return entries
}

// Worst 返回裕量最小的项，多个时取名称最小者；报告为空时 ok 为 false
func (r Report) Worst() (Entry, bool) {
	var worst Entry
	found := false
	for _, e := range r.Entries() {
		if !found || e.Margin < worst.Margin {
			worst, found = e, true
		}
	}
	return worst, found
}

// Reachable 所有函数的裕量都不为负
func (r Report) Reachable() bool {
	for _, margin := range r {
		if margin < 0 {
			return false
		}
	}
	return true
}

// Unreachable 返回裕量为负的项
func (r Report) Unreachable() []Entry {
	var entries []Entry
	for _, e := range r.Entries() {
		if e.Margin < 0 {
			entries = append(entries, e)
		}
	}
	return entries
}

type jsonReport struct {
	Dialect   string  `json:"dialect"`
	Reachable bool    `json:"reachable"`
	Worst     *Entry  `json:"worst,omitempty"`
	Functions []Entry `json:"functions"`
}

// JSON 序列化报告
func (r Report) JSON(dialectName string) ([]byte, error) {
	out := jsonReport{
		Dialect:   dialectName,
		Reachable: r.Reachable(),
		Functions: r.Entries(),
	}
	if worst, ok := r.Worst(); ok {
		out.Worst = &worst
	}
	return json.MarshalIndent(out, "", "  ")
}

package lsp

import (
	"sync"

	"go.lsp.dev/uri"
)

// Document 打开的文档
type Document struct {
	URI     string
	Content string
	Version int
}

// Path 返回文档对应的文件路径
func (d *Document) Path() string {
	return uriToPath(d.URI)
}

// DocumentManager 管理打开的文档，全量同步
type DocumentManager struct {
	documents map[string]*Document
	mu        sync.RWMutex
}

// NewDocumentManager 创建文档管理器
func NewDocumentManager() *DocumentManager {
	return &DocumentManager{
		documents: make(map[string]*Document),
	}
}

// Open 打开文档
func (m *DocumentManager) Open(docURI, content string, version int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[docURI] = &Document{URI: docURI, Content: content, Version: version}
}

// Update 替换文档内容，文档未打开时忽略
func (m *DocumentManager) Update(docURI, content string, version int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc, ok := m.documents[docURI]; ok {
		doc.Content = content
		if version > 0 {
			doc.Version = version
		}
	}
}

// Close 关闭文档
func (m *DocumentManager) Close(docURI string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.documents, docURI)
}

// Get 获取文档的快照
func (m *DocumentManager) Get(docURI string) *Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[docURI]
	if !ok {
		return nil
	}
	copied := *doc
	return &copied
}

// uriToPath 将 URI 转换为文件路径
func uriToPath(docURI string) string {
	u, err := uri.Parse(docURI)
	if err != nil {
		return docURI
	}
	return u.Filename()
}

// PathToURI 将文件路径转换为 URI
func PathToURI(path string) string {
	return string(uri.File(path))
}

// Package lsp 以语言服务器协议发布栈可达性诊断
package lsp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/segmentio/encoding/json"
	"go.lsp.dev/protocol"

	"github.com/tangzhangming/yulc/internal/dialect"
	"github.com/tangzhangming/yulc/internal/logger"
)

// Version 服务器版本
const Version = "0.1.0"

// Server LSP 服务器
type Server struct {
	documents *DocumentManager
	dialect   *dialect.Dialect
	log       *logger.Logger

	// 工作区根目录
	workspaceRoot string

	// 输入输出
	reader *bufio.Reader
	writer io.Writer
	mu     sync.Mutex

	// 服务器状态
	initialized bool
	shutdown    bool
}

// NewServer 创建 LSP 服务器，log 为 nil 时不记录日志
func NewServer(r io.Reader, w io.Writer, d *dialect.Dialect, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		documents: NewDocumentManager(),
		dialect:   d,
		log:       log,
		reader:    bufio.NewReader(r),
		writer:    w,
	}
}

// Documents 返回文档管理器
func (s *Server) Documents() *DocumentManager {
	return s.documents
}

// Run 启动 LSP 服务器主循环，直到收到 exit 或输入结束
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("yulc language server started with %s", s.dialect)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				s.log.Info("client disconnected")
				return nil
			}
			s.log.Warn("error reading message: %v", err)
			if err == io.ErrUnexpectedEOF {
				return err
			}
			continue
		}

		s.handleMessage(msg)

		if s.shutdown {
			s.log.Info("server shutdown")
			return nil
		}
	}
}

// readMessage 读取 LSP 消息
func (s *Server) readMessage() ([]byte, error) {
	var contentLength int
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF && line != "" {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		line = strings.TrimSpace(line)

		if line == "" {
			// 头部结束
			break
		}

		if strings.HasPrefix(line, "Content-Length:") {
			lengthStr := strings.TrimSpace(strings.TrimPrefix(line, "Content-Length:"))
			contentLength, err = strconv.Atoi(lengthStr)
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length: %s", lengthStr)
			}
		}
	}

	if contentLength == 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	content := make([]byte, contentLength)
	if _, err := io.ReadFull(s.reader, content); err != nil {
		return nil, err
	}

	s.log.Debug("received: %s", content)
	return content, nil
}

// sendMessage 发送 LSP 消息
func (s *Server) sendMessage(msg interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.writer, "Content-Length: %d\r\n\r\n", len(content)); err != nil {
		return err
	}
	_, err = s.writer.Write(content)
	return err
}

// baseMessage 请求或通知的公共部分
type baseMessage struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// handleMessage 分发消息
func (s *Server) handleMessage(msg []byte) {
	var baseMsg baseMessage
	if err := json.Unmarshal(msg, &baseMsg); err != nil {
		s.log.Warn("error parsing message: %v", err)
		return
	}

	switch baseMsg.Method {
	case "initialize":
		s.handleInitialize(baseMsg.ID, baseMsg.Params)
	case "initialized":
		s.initialized = true
		s.log.Info("server initialized")
	case "shutdown":
		s.sendResult(baseMsg.ID, nil)
	case "exit":
		s.shutdown = true
	case "textDocument/didOpen":
		s.handleDidOpen(baseMsg.Params)
	case "textDocument/didChange":
		s.handleDidChange(baseMsg.Params)
	case "textDocument/didSave":
		s.handleDidSave(baseMsg.Params)
	case "textDocument/didClose":
		s.handleDidClose(baseMsg.Params)
	case "$/cancelRequest":
		// 所有请求都同步完成
	default:
		s.log.Debug("unknown method: %s", baseMsg.Method)
		if baseMsg.ID != nil {
			s.sendError(baseMsg.ID, -32601, "Method not found: "+baseMsg.Method)
		}
	}
}

// handleInitialize 处理初始化请求
func (s *Server) handleInitialize(id json.RawMessage, params json.RawMessage) {
	var initParams protocol.InitializeParams
	if err := json.Unmarshal(params, &initParams); err != nil {
		s.sendError(id, -32700, "Parse error")
		return
	}

	if initParams.RootURI != "" {
		s.workspaceRoot = uriToPath(string(initParams.RootURI))
	}
	s.log.Info("initialize: workspace=%s", s.workspaceRoot)

	result := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"textDocumentSync": map[string]interface{}{
				"openClose": true,
				"change":    protocol.TextDocumentSyncKindFull,
				"save": map[string]interface{}{
					"includeText": true,
				},
			},
		},
		"serverInfo": map[string]interface{}{
			"name":    "yulc",
			"version": Version,
		},
	}

	s.sendResult(id, result)
}

// handleDidOpen 处理文档打开
func (s *Server) handleDidOpen(params json.RawMessage) {
	var p protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		s.log.Warn("error parsing didOpen params: %v", err)
		return
	}

	docURI := string(p.TextDocument.URI)
	s.log.Debug("document opened: %s", docURI)

	s.documents.Open(docURI, p.TextDocument.Text, int(p.TextDocument.Version))
	s.publishDiagnostics(docURI)
}

// handleDidChange 处理文档变更，全量同步只取最后一次变更
func (s *Server) handleDidChange(params json.RawMessage) {
	var p protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		s.log.Warn("error parsing didChange params: %v", err)
		return
	}
	if len(p.ContentChanges) == 0 {
		return
	}

	docURI := string(p.TextDocument.URI)
	last := p.ContentChanges[len(p.ContentChanges)-1]
	s.documents.Update(docURI, last.Text, int(p.TextDocument.Version))
	s.publishDiagnostics(docURI)
}

// handleDidSave 处理文档保存
func (s *Server) handleDidSave(params json.RawMessage) {
	var p protocol.DidSaveTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		s.log.Warn("error parsing didSave params: %v", err)
		return
	}

	docURI := string(p.TextDocument.URI)
	if p.Text != "" {
		s.documents.Update(docURI, p.Text, 0)
	}
	s.publishDiagnostics(docURI)
}

// handleDidClose 处理文档关闭并清除诊断
func (s *Server) handleDidClose(params json.RawMessage) {
	var p protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		s.log.Warn("error parsing didClose params: %v", err)
		return
	}

	s.documents.Close(string(p.TextDocument.URI))
	s.sendNotification("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         p.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
}

// publishDiagnostics 发布诊断信息
func (s *Server) publishDiagnostics(docURI string) {
	doc := s.documents.Get(docURI)
	if doc == nil {
		return
	}

	diagnostics := Diagnose(s.dialect, doc.Content, doc.Path())
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	s.log.Debug("publishing %d diagnostic(s) for %s", len(diagnostics), docURI)

	s.sendNotification("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(docURI),
		Version:     uint32(doc.Version),
		Diagnostics: diagnostics,
	})
}

// sendResult 发送成功响应
func (s *Server) sendResult(id json.RawMessage, result interface{}) {
	s.sendMessage(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	})
}

// sendError 发送错误响应
func (s *Server) sendError(id json.RawMessage, code int, message string) {
	s.sendMessage(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

// sendNotification 发送通知
func (s *Server) sendNotification(method string, params interface{}) {
	s.sendMessage(map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	})
}

// Package mcp exposes the tools to an MCP client over JSON-RPC 2.0.
package mcp

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/effective-security/gptbridge/errcode"
	"github.com/effective-security/gptbridge/mcp/internal/protocol"
	"github.com/effective-security/gptbridge/tools"
	"github.com/effective-security/xlog"
	mcp_golang "github.com/metoro-io/mcp-golang"
	"github.com/metoro-io/mcp-golang/transport"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/gptbridge", "mcp")

// Server identity and protocol revision announced on initialize
const (
	ServerName      = "chatgpt-bridge"
	ServerVersion   = "1.0.0"
	ProtocolVersion = "2024-11-05"
)

// ToolService lists and executes the tools
type ToolService interface {
	ListTools() []*tools.Definition
	CallTool(ctx context.Context, name string, arguments json.RawMessage) (*mcp_golang.ToolResponse, error)
}

// Implementation describes the server
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolsCapability is announced when the server offers tools
type ToolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

// ServerCapabilities lists the capabilities of the server
type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// InitializeResult is the response to initialize
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
}

// ListToolsResult is the response to tools/list
type ListToolsResult struct {
	Tools []*tools.Definition `json:"tools"`
}

// CallToolParams are the params of tools/call
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Server handles the MCP methods
type Server struct {
	service  ToolService
	info     Implementation
	protocol *protocol.Protocol

	closeOnce sync.Once
	done      chan struct{}
}

// Option configures the Server
type Option func(*Server)

// WithServerInfo overrides the announced server identity
func WithServerInfo(name, version string) Option {
	return func(s *Server) {
		s.info = Implementation{Name: name, Version: version}
	}
}

// NewServer returns a Server for the tools
func NewServer(service ToolService, opts ...Option) *Server {
	s := &Server{
		service:  service,
		info:     Implementation{Name: ServerName, Version: ServerVersion},
		protocol: protocol.New(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.protocol.SetRequestHandler("initialize", s.handleInitialize)
	s.protocol.SetRequestHandler("ping", s.handlePing)
	s.protocol.SetRequestHandler("tools/list", s.handleListTools)
	s.protocol.SetRequestHandler("tools/call", s.handleCallTool)
	s.protocol.OnClose = s.markDone

	return s
}

// Serve connects the server to the transport and starts receiving messages.
// It does not block, use Done to wait for the transport to close.
func (s *Server) Serve(ctx context.Context, tr transport.Transport) error {
	return s.protocol.Connect(ctx, tr)
}

// Close waits for the in-flight requests to be cancelled and closes the transport
func (s *Server) Close() error {
	err := s.protocol.Close()
	s.markDone()
	return err
}

// Done is closed when the transport is closed
func (s *Server) Done() <-chan struct{} {
	return s.done
}

func (s *Server) markDone() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Server) handleInitialize(_ context.Context, request *transport.BaseJSONRPCRequest) (any, error) {
	var params struct {
		ProtocolVersion string         `json:"protocolVersion"`
		ClientInfo      Implementation `json:"clientInfo"`
	}
	if len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params, &params); err != nil {
			return nil, errcode.InvalidArgument("invalid initialize params: %s", err.Error())
		}
	}

	logger.KV(xlog.INFO,
		"status", "initialize",
		"client", params.ClientInfo.Name,
		"client_version", params.ClientInfo.Version,
		"protocol", params.ProtocolVersion,
	)

	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{},
		},
		ServerInfo: s.info,
	}, nil
}

func (s *Server) handlePing(_ context.Context, _ *transport.BaseJSONRPCRequest) (any, error) {
	return map[string]any{}, nil
}

func (s *Server) handleListTools(_ context.Context, _ *transport.BaseJSONRPCRequest) (any, error) {
	return &ListToolsResult{Tools: s.service.ListTools()}, nil
}

func (s *Server) handleCallTool(ctx context.Context, request *transport.BaseJSONRPCRequest) (any, error) {
	var params CallToolParams
	if err := json.Unmarshal(request.Params, &params); err != nil {
		return nil, errcode.InvalidArgument("invalid tools/call params: %s", err.Error())
	}
	if params.Name == "" {
		return nil, errcode.InvalidArgument("missing required argument: name")
	}
	return s.service.CallTool(ctx, params.Name, params.Arguments)
}

// Package mcp binds tool.Definitions to tools exposed by a remote MCP
// (Model Context Protocol) server, so the conversation runtime can invoke
// them through the same tool.Executor interface as a local tool.
//
// Connection is lazy - established the first time Definitions is called -
// and split by transport: stdio subprocess communication goes through
// github.com/mark3labs/mcp-go/client, while sse and streamable-http go
// through pkg/httpclient's retrying Do, since mcp-go's own HTTP transports
// predate the retry/backoff behavior this module wants for rate-limited
// servers.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kadirpekel/hector-core/pkg/event"
	"github.com/kadirpekel/hector-core/pkg/httpclient"
	"github.com/kadirpekel/hector-core/pkg/tool"
)

// DefaultSSEResponseTimeout bounds how long a streamable-http/SSE call
// waits for its first complete JSON-RPC message.
const DefaultSSEResponseTimeout = 5 * time.Minute

// Config configures a connection to one MCP server.
type Config struct {
	// Name prefixes this server's tool names, so two servers can expose a
	// tool with the same underlying name without colliding.
	Name string

	// Transport is one of "stdio", "sse", "streamable-http". Inferred as
	// stdio when Command is set and URL is not.
	Transport string

	// URL is the MCP server endpoint (sse, streamable-http).
	URL string

	// Command, Args, Env launch a subprocess MCP server (stdio).
	Command string
	Args    []string
	Env     map[string]string

	// Filter limits which server-advertised tools are exposed. Empty
	// means all tools are exposed.
	Filter []string

	// MaxRetries bounds HTTP retry attempts (default 3).
	MaxRetries int

	// SSETimeout bounds how long a streamable-http/SSE read waits for a
	// complete response (default DefaultSSEResponseTimeout).
	SSETimeout time.Duration
}

func (cfg Config) transport() string {
	if cfg.Transport != "" {
		return cfg.Transport
	}
	if cfg.Command != "" {
		return "stdio"
	}
	return "streamable-http"
}

// Client is a lazily-connected MCP session. One Client serves every tool
// a given server advertises.
type Client struct {
	cfg       Config
	filterSet map[string]bool

	mu          sync.Mutex
	stdio       *mcpclient.Client
	httpClient  *httpclient.Client
	connected   bool
	definitions []tool.Definition

	sessionMu sync.RWMutex
	sessionID string

	closeOnce sync.Once
	closeErr  error
}

// New validates cfg and builds an unconnected Client. The connection is
// established on the first call to Definitions.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" && cfg.Command == "" {
		return nil, fmt.Errorf("mcp: either url or command is required")
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.SSETimeout == 0 {
		cfg.SSETimeout = DefaultSSEResponseTimeout
	}

	var filterSet map[string]bool
	if len(cfg.Filter) > 0 {
		filterSet = make(map[string]bool, len(cfg.Filter))
		for _, name := range cfg.Filter {
			filterSet[name] = true
		}
	}

	return &Client{cfg: cfg, filterSet: filterSet}, nil
}

// Definitions returns the tool.Definitions this server exposes, connecting
// on first call.
func (c *Client) Definitions(ctx context.Context) ([]tool.Definition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		if err := c.connect(ctx); err != nil {
			return nil, fmt.Errorf("mcp: connect to %q: %w", c.cfg.Name, err)
		}
	}
	return c.definitions, nil
}

// Factory adapts cfg into a tool.Factory: resolving it connects to the MCP
// server and returns its (filtered) tool set. state is unused - an MCP
// server's tool set doesn't depend on which conversation is asking - but
// the parameter is required to satisfy tool.Factory.
func Factory(cfg Config) tool.Factory {
	return func(tool.ConversationState) ([]tool.Definition, error) {
		c, err := New(cfg)
		if err != nil {
			return nil, err
		}
		return c.Definitions(context.Background())
	}
}

func (c *Client) connect(ctx context.Context) error {
	if c.cfg.transport() == "stdio" {
		return c.connectStdio(ctx)
	}
	return c.connectHTTP(ctx)
}

func (c *Client) connectStdio(ctx context.Context) error {
	mc, err := mcpclient.NewStdioMCPClient(c.cfg.Command, envSlice(c.cfg.Env), c.cfg.Args...)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	if err := mc.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "hector-core", Version: "0.1.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"
	if _, err := mc.Initialize(ctx, initReq); err != nil {
		mc.Close()
		return fmt.Errorf("initialize: %w", err)
	}

	listResp, err := mc.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mc.Close()
		return fmt.Errorf("list tools: %w", err)
	}

	defs := make([]tool.Definition, 0, len(listResp.Tools))
	for _, t := range listResp.Tools {
		if c.filterSet != nil && !c.filterSet[t.Name] {
			continue
		}
		defs = append(defs, c.definitionFor(t.Name, t.Description, convertSchema(t.InputSchema)))
	}

	c.stdio = mc
	c.definitions = defs
	c.connected = true
	slog.Info("mcp: connected", "name", c.cfg.Name, "transport", "stdio", "tools", len(defs))
	return nil
}

func (c *Client) connectHTTP(ctx context.Context) error {
	c.httpClient = httpclient.New(
		httpclient.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		httpclient.WithMaxRetries(c.cfg.MaxRetries),
		httpclient.WithBaseDelay(2*time.Second),
	)

	initResp, err := c.rpc(ctx, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"clientInfo":      map[string]any{"name": "hector-core", "version": "0.1.0"},
		"capabilities":    map[string]any{},
	})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if initResp.Error != nil {
		return fmt.Errorf("initialize: %s", initResp.Error.Message)
	}

	listResp, err := c.rpc(ctx, "tools/list", nil)
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}
	if listResp.Error != nil {
		return fmt.Errorf("list tools: %s", listResp.Error.Message)
	}

	resultMap, ok := listResp.Result.(map[string]any)
	if !ok {
		return fmt.Errorf("unexpected tools/list result shape")
	}
	toolsList, _ := resultMap["tools"].([]any)

	defs := make([]tool.Definition, 0, len(toolsList))
	for _, raw := range toolsList {
		toolMap, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := toolMap["name"].(string)
		if c.filterSet != nil && !c.filterSet[name] {
			continue
		}
		desc, _ := toolMap["description"].(string)
		schema, _ := toolMap["inputSchema"].(map[string]any)
		defs = append(defs, c.definitionFor(name, desc, schema))
	}

	c.definitions = defs
	c.connected = true
	slog.Info("mcp: connected", "name", c.cfg.Name, "transport", c.cfg.transport(), "url", c.cfg.URL, "tools", len(defs))
	return nil
}

func (c *Client) definitionFor(name, description string, schema map[string]any) tool.Definition {
	return tool.Definition{
		Name:        name,
		Description: description,
		InputSchema: schema,
		Executor:    &executor{client: c, toolName: name},
	}
}

// Close releases the underlying connection. Safe to call more than once
// and from any of this server's tool executors.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.stdio != nil {
			c.closeErr = c.stdio.Close()
			c.stdio = nil
		}
		c.httpClient = nil
		c.connected = false
	})
	return c.closeErr
}

// executor adapts one MCP tool to tool.Executor.
type executor struct {
	client   *Client
	toolName string
}

func (e *executor) Close() error { return e.client.Close() }

func (e *executor) Execute(ctx context.Context, argumentsJSON string) (event.ObservationPayload, error) {
	var args map[string]any
	if argumentsJSON != "" {
		if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
			return event.ObservationPayload{}, fmt.Errorf("mcp: invalid arguments for %q: %w", e.toolName, err)
		}
	}

	if e.client.cfg.transport() == "stdio" {
		return e.executeStdio(ctx, args)
	}
	return e.executeHTTP(ctx, args)
}

func (e *executor) executeStdio(ctx context.Context, args map[string]any) (event.ObservationPayload, error) {
	e.client.mu.Lock()
	mc := e.client.stdio
	e.client.mu.Unlock()
	if mc == nil {
		return event.ObservationPayload{}, fmt.Errorf("mcp: %q not connected", e.client.cfg.Name)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = e.toolName
	req.Params.Arguments = args

	resp, err := mc.CallTool(ctx, req)
	if err != nil {
		return event.ObservationPayload{}, fmt.Errorf("mcp: call %q: %w", e.toolName, err)
	}

	return observationFromStdioResult(e.toolName, resp), nil
}

func observationFromStdioResult(toolName string, resp *mcp.CallToolResult) event.ObservationPayload {
	var texts []string
	for _, content := range resp.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	content := strings.Join(texts, "\n")
	if resp.IsError && content == "" {
		content = "unknown error"
	}
	return event.ObservationPayload{ToolName: toolName, Content: content, IsError: resp.IsError}
}

func (e *executor) executeHTTP(ctx context.Context, args map[string]any) (event.ObservationPayload, error) {
	resp, err := e.client.rpc(ctx, "tools/call", map[string]any{"name": e.toolName, "arguments": args})
	if err != nil {
		return event.ObservationPayload{}, fmt.Errorf("mcp: call %q: %w", e.toolName, err)
	}
	if resp.Error != nil {
		return event.ObservationPayload{ToolName: e.toolName, Content: resp.Error.Message, IsError: true}, nil
	}

	resultMap, ok := resp.Result.(map[string]any)
	if !ok {
		data, _ := json.Marshal(resp.Result)
		return event.ObservationPayload{ToolName: e.toolName, Content: string(data)}, nil
	}

	if isError, _ := resultMap["isError"].(bool); isError {
		return event.ObservationPayload{ToolName: e.toolName, Content: extractText(resultMap, "unknown error"), IsError: true}, nil
	}
	return event.ObservationPayload{ToolName: e.toolName, Content: extractText(resultMap, "")}, nil
}

func extractText(resultMap map[string]any, fallback string) string {
	content, ok := resultMap["content"].([]any)
	if !ok {
		return fallback
	}
	var texts []string
	for _, c := range content {
		cm, ok := c.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := cm["text"].(string); ok {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return fallback
	}
	return strings.Join(texts, "\n")
}

// JSON-RPC plumbing for the sse/streamable-http transports.

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      int        `json:"id"`
	Result  any        `json:"result,omitempty"`
	Error   *rpcError  `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) rpc(ctx context.Context, method string, params any) (*rpcResponse, error) {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")

	c.sessionMu.RLock()
	sessionID := c.sessionID
	c.sessionMu.RUnlock()
	if sessionID != "" {
		httpReq.Header.Set("mcp-session-id", sessionID)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if newSessionID := httpResp.Header.Get("mcp-session-id"); newSessionID != "" {
		c.sessionMu.Lock()
		c.sessionID = newSessionID
		c.sessionMu.Unlock()
	}

	if httpResp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, string(b))
	}

	if strings.Contains(httpResp.Header.Get("Content-Type"), "text/event-stream") {
		return readSSEResponse(httpResp, c.cfg.SSETimeout)
	}

	b, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var resp rpcResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &resp, nil
}

// readSSEResponse reads the first complete JSON-RPC message from an SSE
// body, enforcing timeout as a hard deadline on the whole read.
func readSSEResponse(resp *http.Response, timeout time.Duration) (*rpcResponse, error) {
	type result struct {
		resp *rpcResponse
		err  error
	}
	done := make(chan result, 1)

	go func() {
		defer resp.Body.Close()
		reader := bufio.NewReader(resp.Body)
		var data strings.Builder

		for {
			line, err := reader.ReadBytes('\n')
			if err != nil {
				break
			}
			text := strings.TrimSpace(string(line))
			if text == "" {
				if data.Len() == 0 {
					continue
				}
				var parsed rpcResponse
				if err := json.Unmarshal([]byte(data.String()), &parsed); err == nil {
					done <- result{resp: &parsed}
					return
				}
				data.Reset()
				continue
			}
			if strings.HasPrefix(text, "data:") {
				data.WriteString(strings.TrimSpace(strings.TrimPrefix(text, "data:")))
			}
		}
		done <- result{err: fmt.Errorf("SSE stream ended without a complete message")}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-time.After(timeout):
		return nil, fmt.Errorf("timeout reading SSE response after %v", timeout)
	}
}

func envSlice(env map[string]string) []string {
	if env == nil {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

// convertSchema normalizes an mcp-go ToolInputSchema into the plain
// map[string]any the tool package's validator expects.
func convertSchema(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

var _ tool.Executor = (*executor)(nil)

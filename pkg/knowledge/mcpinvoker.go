package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// rpcMessage is a minimal JSON-RPC 2.0 envelope for tool calls over a
// persistent MCP-style WebSocket connection.
type rpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MCPInvoker implements ToolInvoker over a single long-lived WebSocket
// connection to an MCP-style tool endpoint, one JSON-RPC "tools/call"
// request per InvokeTool.
type MCPInvoker struct {
	conn    *websocket.Conn
	timeout time.Duration

	mu        sync.Mutex
	messageID int
}

// DialMCPInvoker connects to endpoint (a ws:// or wss:// URL) and
// returns an MCPInvoker bound to the connection. The caller owns the
// connection lifetime via Close.
func DialMCPInvoker(ctx context.Context, endpoint string, timeout time.Duration) (*MCPInvoker, error) {
	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, permanent("dial_mcp_endpoint", err)
	}
	return &MCPInvoker{conn: conn, timeout: timeout}, nil
}

// Close closes the underlying connection.
func (m *MCPInvoker) Close() error {
	return m.conn.Close(websocket.StatusNormalClosure, "invoker closing")
}

func (m *MCPInvoker) nextID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messageID++
	return m.messageID
}

// InvokeTool sends a single "tools/call" JSON-RPC request and returns
// the raw result payload. Satisfies ToolInvoker.
func (m *MCPInvoker) InvokeTool(ctx context.Context, name string, params map[string]interface{}) (json.RawMessage, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	paramsJSON, err := json.Marshal(map[string]interface{}{
		"name":      name,
		"arguments": params,
	})
	if err != nil {
		return nil, permanent("marshal_tool_params", err)
	}

	req := rpcMessage{
		JSONRPC: "2.0",
		ID:      m.nextID(),
		Method:  "tools/call",
		Params:  paramsJSON,
	}
	if err := wsjson.Write(callCtx, m.conn, req); err != nil {
		return nil, transient("write_tool_call", err)
	}

	var resp rpcMessage
	if err := wsjson.Read(callCtx, m.conn, &resp); err != nil {
		return nil, transient("read_tool_response", err)
	}
	if resp.Error != nil {
		return nil, permanent("tool_call", fmt.Errorf("rpc error %d: %s", resp.Error.Code, resp.Error.Message))
	}
	return resp.Result, nil
}

package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
	logx "github.com/tanpawarit/chative-support-a2a/pkg/logger"
)

var _ contractx.ToolCaller = (*Client)(nil)

type ClientConfig struct {
	URL     string        `envconfig:"URL" default:"http://localhost:5001/mcp"`
	Timeout time.Duration `split_words:"true" default:"10s"`
}

// Client calls data tools on a bridge server.
type Client struct {
	endpoint   string
	httpClient *http.Client
	nextID     atomic.Int64
}

type ClientOption func(*Client)

func WithClientHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(cfg ClientConfig, opts ...ClientOption) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.URL)
	if endpoint == "" {
		return nil, errors.New("bridge url is required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid bridge url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Call invokes a tool. Transport and protocol failures come back as an unsuccessful result.
func (c *Client) Call(ctx context.Context, name string, args map[string]any) statex.ToolResult {
	if args == nil {
		args = map[string]any{}
	}
	resp, err := c.roundTrip(ctx, string(mcp.MethodToolsCall), map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		logx.Warn().Err(err).Str("tool", name).Msg("tool call transport failure")
		return statex.Failure(name, err.Error())
	}
	if resp.Error != nil {
		return statex.Failure(name, fmt.Sprintf("rpc error %d: %s", resp.Error.Code, resp.Error.Message))
	}

	var cr callResult
	if err := json.Unmarshal(resp.Result, &cr); err != nil {
		return statex.Failure(name, "decode tool result: "+err.Error())
	}
	if len(cr.Content) == 0 {
		return statex.Failure(name, "tool returned no content")
	}

	var out statex.ToolResult
	if err := json.Unmarshal([]byte(cr.Content[0].Text), &out); err != nil {
		return statex.Failure(name, "decode tool payload: "+err.Error())
	}
	out.Tool = name
	if cr.IsError && out.Success {
		out.Success = false
	}
	return out
}

// Initialize performs the protocol handshake and returns the server identity.
func (c *Client) Initialize(ctx context.Context) (mcp.Implementation, error) {
	resp, err := c.roundTrip(ctx, string(mcp.MethodInitialize), map[string]any{
		"protocolVersion": ProtocolVersion,
		"clientInfo":      map[string]any{"name": "support-orchestrator", "version": ServerVersion},
	})
	if err != nil {
		return mcp.Implementation{}, err
	}
	if resp.Error != nil {
		return mcp.Implementation{}, resp.Error
	}

	var out initializeResult
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		return mcp.Implementation{}, fmt.Errorf("decode initialize result: %w", err)
	}
	if out.ProtocolVersion != ProtocolVersion {
		logx.Warn().Str("server", out.ProtocolVersion).Str("client", ProtocolVersion).Msg("protocol version mismatch")
	}
	return out.ServerInfo, nil
}

func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	resp, err := c.roundTrip(ctx, string(mcp.MethodToolsList), nil)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	var out mcp.ListToolsResult
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		return nil, fmt.Errorf("decode tools/list result: %w", err)
	}
	return out.Tools, nil
}

func (c *Client) roundTrip(ctx context.Context, method string, params any) (Response, error) {
	req := Request{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      json.RawMessage(strconv.FormatInt(c.nextID.Add(1), 10)),
		Method:  method,
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return Response{}, fmt.Errorf("marshal params: %w", err)
		}
		req.Params = raw
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("post %s: %w", c.endpoint, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < http.StatusOK || httpResp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return Response{}, fmt.Errorf("bridge http status=%d body=%s", httpResp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var (
		found   bool
		out     Response
		lastErr error
	)
	err = ReadFrames(httpResp.Body, func(payload []byte) bool {
		var candidate Response
		if err := json.Unmarshal(payload, &candidate); err != nil {
			lastErr = fmt.Errorf("decode frame: %w", err)
			return true
		}
		if len(candidate.Result) == 0 && candidate.Error == nil {
			return true
		}
		out, found = candidate, true
		return false
	})
	if err != nil {
		return Response{}, err
	}
	if !found {
		if lastErr != nil {
			return Response{}, lastErr
		}
		return Response{}, errors.New("no response frame received")
	}
	return out, nil
}

package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/xeipuuv/gojsonschema"
	logx "github.com/tanpawarit/chative-support-a2a/pkg/logger"
	metricsx "github.com/tanpawarit/chative-support-a2a/pkg/metrics"
)

const maxRequestBytes = 1 << 20

type ServerConfig struct {
	Addr         string        `split_words:"true" default:":5001"`
	ReadTimeout  time.Duration `split_words:"true" default:"10s"`
	WriteTimeout time.Duration `split_words:"true" default:"30s"`
}

// Server answers JSON-RPC 2.0 requests on POST /mcp with a single framed response.
type Server struct {
	tools   map[string]server.ServerTool
	catalog []mcp.Tool
	schemas map[string]*gojsonschema.Schema
	metrics *metricsx.Metrics
	health  func(context.Context) error
}

type ServerOption func(*Server)

func WithMetrics(m *metricsx.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithHealthCheck makes GET /health report the check's error as 503.
func WithHealthCheck(check func(context.Context) error) ServerOption {
	return func(s *Server) { s.health = check }
}

func NewServer(tools []server.ServerTool, opts ...ServerOption) (*Server, error) {
	if len(tools) == 0 {
		return nil, errors.New("at least one tool is required")
	}

	s := &Server{
		tools:   make(map[string]server.ServerTool, len(tools)),
		catalog: make([]mcp.Tool, 0, len(tools)),
	}
	for _, t := range tools {
		if t.Handler == nil {
			return nil, fmt.Errorf("tool %s has no handler", t.Tool.Name)
		}
		if _, dup := s.tools[t.Tool.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %s", t.Tool.Name)
		}
		s.tools[t.Tool.Name] = t
		s.catalog = append(s.catalog, t.Tool)
	}

	schemas, err := compileSchemas(s.catalog)
	if err != nil {
		return nil, err
	}
	s.schemas = schemas

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /mcp", s.serveRPC)
	mux.HandleFunc("GET /health", s.serveHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

func (s *Server) serveRPC(w http.ResponseWriter, r *http.Request) {
	var resp Response
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		resp = errorResponse(nil, mcp.PARSE_ERROR, "Parse error: "+err.Error())
	} else {
		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			resp = errorResponse(nil, mcp.PARSE_ERROR, "Parse error: "+err.Error())
		} else {
			resp = s.Dispatch(r.Context(), req)
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if err := WriteFrame(w, resp); err != nil {
		logx.Warn().Err(err).Msg("write rpc frame")
		return
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			status, code = err.Error(), http.StatusServiceUnavailable
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"status": status, "tools": len(s.catalog)})
}

// Dispatch handles one decoded request.
func (s *Server) Dispatch(ctx context.Context, req Request) Response {
	var resp Response
	switch mcp.MCPMethod(req.Method) {
	case mcp.MethodInitialize:
		resp = resultResponse(req.ID, initializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    map[string]any{"tools": map[string]any{}},
			ServerInfo:      mcp.Implementation{Name: ServerName, Version: ServerVersion},
		})
	case mcp.MethodToolsList:
		resp = resultResponse(req.ID, mcp.ListToolsResult{Tools: s.catalog})
	case mcp.MethodToolsCall:
		resp = s.call(ctx, req)
	default:
		resp = errorResponse(req.ID, mcp.METHOD_NOT_FOUND, "Method not found: "+req.Method)
	}

	code := 0
	if resp.Error != nil {
		code = resp.Error.Code
	}
	s.metrics.ObserveRPC(req.Method, code)
	return resp
}

func (s *Server) call(ctx context.Context, req Request) (resp Response) {
	var params callParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, "Invalid params: "+err.Error())
		}
	}

	t, ok := s.tools[params.Name]
	if !ok {
		return errorResponse(req.ID, mcp.METHOD_NOT_FOUND, fmt.Errorf("%w: %s", ErrUnknownTool, params.Name).Error())
	}
	if err := validateArguments(s.schemas[params.Name], params.Arguments); err != nil {
		return errorResponse(req.ID, mcp.INVALID_PARAMS, "Invalid params: "+err.Error())
	}

	args := map[string]any{}
	if len(params.Arguments) > 0 && string(params.Arguments) != "null" {
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, "Invalid params: "+err.Error())
		}
	}

	defer func() {
		if r := recover(); r != nil {
			logx.Error().Interface("panic", r).Str("tool", params.Name).Msg("tool handler panicked")
			resp = errorResponse(req.ID, mcp.INTERNAL_ERROR, fmt.Sprintf("Tool execution error: %v", r))
		}
	}()

	callReq := mcp.CallToolRequest{}
	callReq.Params.Name = params.Name
	callReq.Params.Arguments = args

	start := time.Now()
	result, err := t.Handler(ctx, callReq)
	s.metrics.ObserveToolCall(params.Name, err == nil, time.Since(start))
	if err != nil {
		if errors.Is(err, ErrInvalidParams) {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, "Invalid params: "+err.Error())
		}
		return errorResponse(req.ID, mcp.INTERNAL_ERROR, "Tool execution error: "+err.Error())
	}

	logx.Debug().Str("tool", params.Name).Dur("elapsed", time.Since(start)).Msg("tool call served")
	return resultResponse(req.ID, result)
}

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the agents and the tool bridge.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	NodeVisitsTotal   *prometheus.CounterVec
	DataOpsTotal      *prometheus.CounterVec
	NegotiationsTotal *prometheus.CounterVec
	SessionsTotal     *prometheus.CounterVec
	SessionSteps      prometheus.Histogram

	ToolCallsTotal   *prometheus.CounterVec
	ToolCallDuration *prometheus.HistogramVec
	RPCRequestsTotal *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		NodeVisitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_node_visits_total",
				Help: "Total number of graph node invocations",
			},
			[]string{"node"},
		),
		DataOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_data_ops_total",
				Help: "Total number of data operations executed by the data agent",
			},
			[]string{"op", "status"},
		),
		NegotiationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_negotiations_total",
				Help: "Total number of data requests raised by the support agent",
			},
			[]string{"kind"},
		),
		SessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_sessions_total",
				Help: "Total number of finished sessions",
			},
			[]string{"outcome"},
		),
		SessionSteps: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agent_session_steps",
				Help:    "Router steps used per session",
				Buckets: prometheus.LinearBuckets(1, 2, 10),
			},
		),

		ToolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_tool_calls_total",
				Help: "Total number of tools/call requests served",
			},
			[]string{"tool", "status"},
		),
		ToolCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_tool_call_duration_seconds",
				Help:    "Duration of tool handlers in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		RPCRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_rpc_requests_total",
				Help: "Total number of JSON-RPC requests by method and error code",
			},
			[]string{"method", "code"},
		),
	}

	registry.MustRegister(
		m.NodeVisitsTotal,
		m.DataOpsTotal,
		m.NegotiationsTotal,
		m.SessionsTotal,
		m.SessionSteps,
		m.ToolCallsTotal,
		m.ToolCallDuration,
		m.RPCRequestsTotal,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveNode(node string) {
	if m == nil {
		return
	}
	m.NodeVisitsTotal.WithLabelValues(node).Inc()
}

func (m *Metrics) ObserveDataOp(op string, ok bool) {
	if m == nil {
		return
	}
	m.DataOpsTotal.WithLabelValues(op, status(ok)).Inc()
}

func (m *Metrics) ObserveNegotiation(kind string) {
	if m == nil {
		return
	}
	m.NegotiationsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveSession(outcome string, steps int) {
	if m == nil {
		return
	}
	m.SessionsTotal.WithLabelValues(outcome).Inc()
	m.SessionSteps.Observe(float64(steps))
}

func (m *Metrics) ObserveToolCall(tool string, ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ToolCallsTotal.WithLabelValues(tool, status(ok)).Inc()
	m.ToolCallDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRPC(method string, code int) {
	if m == nil {
		return
	}
	m.RPCRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}

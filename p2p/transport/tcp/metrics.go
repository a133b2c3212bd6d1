package tcp

import (
	"net"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics tracks connection churn with Prometheus counters: a
// smaller counter set than full per-socket RTT/segment sampling would
// need, since that requires a platform-specific accept path this
// module doesn't carry.
//
// Counters are package-level and registered exactly once, because
// every *metrics instance shares one Prometheus default registry:
// registering per instance would panic on the second WithMetrics()
// transport in a process.
var (
	newConns        *prometheus.CounterVec
	closedConns     *prometheus.CounterVec
	initMetricsOnce sync.Once
)

func initMetrics() {
	newConns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airio_tcp_connections_new_total",
		Help: "TCP connections opened, by direction.",
	}, []string{"direction"})
	closedConns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airio_tcp_connections_closed_total",
		Help: "TCP connections closed, by direction.",
	}, []string{"direction"})
	prometheus.MustRegister(newConns, closedConns)
}

type metrics struct {
	newConns    *prometheus.CounterVec
	closedConns *prometheus.CounterVec
}

func newMetrics() *metrics {
	initMetricsOnce.Do(initMetrics)
	return &metrics{newConns: newConns, closedConns: closedConns}
}

func (m *metrics) wrap(conn net.Conn, inbound bool) net.Conn {
	direction := "outbound"
	if inbound {
		direction = "inbound"
	}
	m.newConns.WithLabelValues(direction).Inc()
	return &tracingConn{Conn: conn, m: m, direction: direction}
}

type tracingConn struct {
	net.Conn
	m         *metrics
	direction string
	closeOnce sync.Once
}

func (c *tracingConn) Close() error {
	err := c.Conn.Close()
	c.closeOnce.Do(func() {
		c.m.closedConns.WithLabelValues(c.direction).Inc()
	})
	return err
}

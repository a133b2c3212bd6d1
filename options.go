package airio

import (
	"time"

	"github.com/TheNoobiCat/go-airio/p2p/security/plain"
	"github.com/TheNoobiCat/go-airio/p2p/transport/tcp"
)

// WithIdentity sets the node's authentication identity explicitly,
// instead of generating a random one.
func WithIdentity(id *plain.Identity) Option {
	return func(cfg *Config) error {
		cfg.identity = id
		return nil
	}
}

// WithTCPOption appends a raw tcp.Option to the transport this node
// builds, for settings New doesn't expose directly.
func WithTCPOption(opt tcp.Option) Option {
	return func(cfg *Config) error {
		cfg.tcpOptions = append(cfg.tcpOptions, opt)
		return nil
	}
}

// WithConnectTimeout sets the TCP dial timeout.
func WithConnectTimeout(d time.Duration) Option {
	return WithTCPOption(tcp.WithConnectionTimeout(d))
}

// WithTCPMetrics enables Prometheus counters on the TCP transport.
func WithTCPMetrics() Option {
	return WithTCPOption(tcp.WithMetrics())
}

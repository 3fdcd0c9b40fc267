// Package config loads a client setup from YAML and turns it into a connected client.
//
//	transport:
//	  kind: tcp            # stdio | tcp | websocket | http
//	  address: 127.0.0.1:9000
//	  heartbeat: 30s
//	  # or several peers, one picked per dial with the rest as fallbacks:
//	  # endpoints: [{address: 10.0.0.1:9000, weight: 2}, {address: 10.0.0.2:9000}]
//	  # balance: weighted_random
//	client:
//	  send_timeout: 5s
//	  rate_limit: 100      # sends per second, 0 disables
//	  burst: 10
//	log:
//	  level: info
package config

import (
	"context"
	"errors"
	"fmt"
	"mini-jsonrpc/client"
	"mini-jsonrpc/loadbalance"
	"mini-jsonrpc/message"
	"mini-jsonrpc/middleware"
	"mini-jsonrpc/transport"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/creachadair/jrpc2/channel"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Transport kinds.
const (
	KindStdio     = "stdio"
	KindTCP       = "tcp"
	KindWebSocket = "websocket"
	KindHTTP      = "http"
)

// Stream framings.
const (
	FramingLine = "line"
	FramingLSP  = "lsp"
)

// Request id schemes.
const (
	IDsUUID     = "uuid"
	IDsSequence = "sequence"
)

type Config struct {
	Transport TransportConfig `yaml:"transport"`
	Client    ClientConfig    `yaml:"client"`
	Log       LogConfig       `yaml:"log"`

	balancerOnce sync.Once
	balancer     loadbalance.Balancer // Shared by every Dial, so round robin advances
	balancerErr  error
}

type TransportConfig struct {
	Kind        string                 `yaml:"kind"`
	Address     string                 `yaml:"address"`      // tcp
	URL         string                 `yaml:"url"`          // websocket, http
	Framing     string                 `yaml:"framing"`      // stdio
	Headers     map[string]string      `yaml:"headers"`      // websocket, http
	Endpoints   []loadbalance.Endpoint `yaml:"endpoints"`    // Alternatives to address/url
	Balance     string                 `yaml:"balance"`      // round_robin | weighted_random | consistent_hash
	AffinityKey string                 `yaml:"affinity_key"` // consistent_hash key
	Heartbeat   time.Duration          `yaml:"heartbeat"`
	DialTimeout time.Duration          `yaml:"dial_timeout"`
}

type ClientConfig struct {
	SendTimeout time.Duration `yaml:"send_timeout"`
	RateLimit   float64       `yaml:"rate_limit"`
	Burst       int           `yaml:"burst"`
	IDs         string        `yaml:"ids"`
	LogSends    bool          `yaml:"log_sends"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default talks newline-delimited JSON over stdio.
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			Kind:        KindStdio,
			Framing:     FramingLine,
			DialTimeout: 10 * time.Second,
		},
		Client: ClientConfig{IDs: IDsUUID},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads and validates the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs *multierror.Error

	switch c.Transport.Kind {
	case KindStdio:
		if c.Transport.Framing != FramingLine && c.Transport.Framing != FramingLSP {
			errs = multierror.Append(errs, fmt.Errorf("transport.framing: unknown framing %q", c.Transport.Framing))
		}
	case KindTCP:
		if c.Transport.Address == "" && len(c.Transport.Endpoints) == 0 {
			errs = multierror.Append(errs, errors.New("transport.address or transport.endpoints is required for tcp"))
		}
	case KindWebSocket, KindHTTP:
		if c.Transport.URL == "" && len(c.Transport.Endpoints) == 0 {
			errs = multierror.Append(errs, fmt.Errorf("transport.url or transport.endpoints is required for %s", c.Transport.Kind))
		}
	default:
		errs = multierror.Append(errs, fmt.Errorf("transport.kind: unknown kind %q", c.Transport.Kind))
	}
	for i, ep := range c.Transport.Endpoints {
		if ep.Address == "" {
			errs = multierror.Append(errs, fmt.Errorf("transport.endpoints[%d].address is empty", i))
		}
	}
	if _, err := loadbalance.New(c.Transport.Balance, c.Transport.AffinityKey); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("transport.balance: %w", err))
	}
	if c.Transport.Heartbeat < 0 {
		errs = multierror.Append(errs, errors.New("transport.heartbeat must not be negative"))
	}

	if c.Client.SendTimeout < 0 {
		errs = multierror.Append(errs, errors.New("client.send_timeout must not be negative"))
	}
	if c.Client.RateLimit < 0 {
		errs = multierror.Append(errs, errors.New("client.rate_limit must not be negative"))
	}
	if c.Client.Burst < 0 {
		errs = multierror.Append(errs, errors.New("client.burst must not be negative"))
	}
	if c.Client.IDs != IDsUUID && c.Client.IDs != IDsSequence {
		errs = multierror.Append(errs, fmt.Errorf("client.ids: unknown scheme %q", c.Client.IDs))
	}

	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errs.ErrorOrNil()
}

// NewLogger builds the logger described by the log section. It writes to stderr,
// so stdout stays free for a stdio transport.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

// Dial connects the configured transport and wraps it in a client.
func (c *Config) Dial(ctx context.Context, logger *zap.Logger) (*client.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	t, err := c.dialTransport(ctx, logger)
	if err != nil {
		return nil, err
	}
	return client.New(t, c.clientOptions(logger)...), nil
}

func (c *Config) dialTransport(ctx context.Context, logger *zap.Logger) (transport.Transport, error) {
	if c.Transport.Kind == KindStdio {
		return transport.Stdio(framing(c.Transport.Framing)), nil
	}

	candidates, err := c.candidates()
	if err != nil {
		return nil, err
	}

	if c.Transport.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Transport.DialTimeout)
		defer cancel()
	}

	// Try each endpoint in turn; the first one that connects wins
	var errs *multierror.Error
	for _, ep := range candidates {
		t, err := c.dialEndpoint(ctx, ep.Address, logger)
		if err == nil {
			return t, nil
		}
		logger.Warn("dial failed", zap.String("endpoint", ep.Address), zap.Error(err))
		errs = multierror.Append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errs.ErrorOrNil()
}

// candidates lists the endpoints to dial, in order.
func (c *Config) candidates() ([]loadbalance.Endpoint, error) {
	tc := c.Transport
	if len(tc.Endpoints) == 0 {
		addr := tc.URL
		if tc.Kind == KindTCP {
			addr = tc.Address
		}
		return []loadbalance.Endpoint{{Address: addr}}, nil
	}

	c.balancerOnce.Do(func() {
		c.balancer, c.balancerErr = loadbalance.New(tc.Balance, tc.AffinityKey)
	})
	if c.balancerErr != nil {
		return nil, c.balancerErr
	}
	return loadbalance.DialOrder(c.balancer, tc.Endpoints)
}

func (c *Config) dialEndpoint(ctx context.Context, addr string, logger *zap.Logger) (transport.Transport, error) {
	tc := c.Transport
	switch tc.Kind {
	case KindTCP:
		t, err := transport.DialTCP(ctx, addr, tc.Heartbeat, logger)
		if err != nil {
			return nil, fmt.Errorf("dial tcp %s: %w", addr, err)
		}
		return t, nil
	case KindWebSocket:
		opts := &websocket.DialOptions{HTTPHeader: http.Header{}}
		for k, v := range tc.Headers {
			opts.HTTPHeader.Set(k, v)
		}
		t, err := transport.DialWebSocket(ctx, addr, opts)
		if err != nil {
			return nil, fmt.Errorf("dial websocket %s: %w", addr, err)
		}
		return t, nil
	case KindHTTP:
		// Nothing to dial: connections are made per request
		return transport.NewHTTP(addr, transport.HTTPOptions{Headers: tc.Headers}), nil
	}
	return nil, fmt.Errorf("unknown transport kind %q", tc.Kind)
}

func (c *Config) clientOptions(logger *zap.Logger) []client.Option {
	opts := []client.Option{client.WithLogger(logger)}
	if c.Client.IDs == IDsSequence {
		opts = append(opts, client.WithIDGenerator(message.Sequence()))
	}

	// Outermost first: the timeout bounds time spent waiting for the limiter too
	var mws []middleware.Middleware
	if c.Client.SendTimeout > 0 {
		mws = append(mws, middleware.TimeoutMiddleware(c.Client.SendTimeout))
	}
	if c.Client.RateLimit > 0 {
		burst := c.Client.Burst
		if burst == 0 {
			burst = 1
		}
		mws = append(mws, middleware.ThrottleMiddleware(c.Client.RateLimit, burst))
	}
	if c.Client.LogSends {
		mws = append(mws, middleware.LoggingMiddleware(logger))
	}
	if len(mws) > 0 {
		opts = append(opts, client.WithMiddleware(mws...))
	}
	return opts
}

func framing(name string) channel.Framing {
	if name == FramingLSP {
		return channel.LSP
	}
	return channel.Line
}

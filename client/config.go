package client

import (
	"crypto/tls"
	"fmt"
	"math"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wippyai/glide-ffi/errors"
)

// TLSMode selects transport security.
type TLSMode uint8

const (
	NoTLS TLSMode = iota
	SecureTLS
	InsecureTLS
)

// ReadFrom selects which nodes serve read-only commands.
type ReadFrom uint8

const (
	ReadFromPrimary ReadFrom = iota
	ReadFromPreferReplica
	ReadFromAZAffinity
	ReadFromAZAffinityReplicasAndPrimary
)

// Protocol is the RESP version spoken to the server.
type Protocol uint8

const (
	RESP3 Protocol = iota
	RESP2
)

const (
	DefaultHost                  = "localhost"
	DefaultPort                  = 6379
	DefaultRequestTimeout        = 250 * time.Millisecond
	DefaultConnectionTimeout     = 250 * time.Millisecond
	DefaultInflightRequestsLimit = 1000

	// maxBackoff caps the reconnect delay derived from the backoff strategy.
	maxBackoff = 30 * time.Second
)

// NodeAddress is one seed node.
type NodeAddress struct {
	Host string
	Port uint16
}

func (a NodeAddress) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

// Backoff describes reconnect attempts: up to Retries attempts with delays
// growing as Factor * ExponentBase^n.
type Backoff struct {
	Retries      uint32
	Factor       time.Duration
	ExponentBase uint32
}

// Config is a connection request.
type Config struct {
	Username          string
	Password          string
	ClientName        string
	ClientAZ          string
	Addresses         []NodeAddress
	Backoff           Backoff
	RequestTimeout    time.Duration
	ConnectionTimeout time.Duration
	DatabaseID        uint32
	// InflightRequestsLimit bounds concurrently running commands per handle.
	InflightRequestsLimit uint32
	TLS                   TLSMode
	ReadFrom              ReadFrom
	Protocol              Protocol
	Cluster               bool
	LazyConnect           bool
}

// WithDefaults fills unset timeouts, ports and limits.
func (c Config) WithDefaults() Config {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.ConnectionTimeout == 0 {
		c.ConnectionTimeout = DefaultConnectionTimeout
	}
	if c.InflightRequestsLimit == 0 {
		c.InflightRequestsLimit = DefaultInflightRequestsLimit
	}
	addrs := make([]NodeAddress, len(c.Addresses))
	for i, a := range c.Addresses {
		if a.Port == 0 {
			a.Port = DefaultPort
		}
		addrs[i] = a
	}
	c.Addresses = addrs
	return c
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if len(c.Addresses) == 0 {
		return errors.InvalidData(errors.PhaseConnect, []string{"addresses"}, "at least one address is required")
	}
	for i, a := range c.Addresses {
		if a.Host == "" {
			return errors.New(errors.PhaseConnect, errors.KindEmpty).
				Path(fmt.Sprintf("addresses[%d]", i), "host").
				Detail("Null value passed for host").
				Build()
		}
	}
	if c.TLS > InsecureTLS {
		return errors.InvalidEnum(errors.PhaseConnect, []string{"tls_mode"}, c.TLS, "TlsMode")
	}
	if c.ReadFrom > ReadFromAZAffinityReplicasAndPrimary {
		return errors.InvalidEnum(errors.PhaseConnect, []string{"read_from"}, c.ReadFrom, "ReadFrom")
	}
	if c.Protocol > RESP2 {
		return errors.InvalidEnum(errors.PhaseConnect, []string{"protocol"}, c.Protocol, "ProtocolVersion")
	}
	if (c.ReadFrom == ReadFromAZAffinity || c.ReadFrom == ReadFromAZAffinityReplicasAndPrimary) && c.ClientAZ == "" {
		return errors.InvalidData(errors.PhaseConnect, []string{"client_az"}, "AZ affinity requires a client availability zone")
	}
	if c.Cluster && c.DatabaseID != 0 {
		return errors.InvalidData(errors.PhaseConnect, []string{"database_id"}, "cluster mode supports only database 0")
	}
	if c.InflightRequestsLimit > math.MaxInt32 {
		return errors.Overflow(errors.PhaseConnect, []string{"inflight_requests_limit"}, c.InflightRequestsLimit, "int32")
	}
	return nil
}

func (c Config) tlsConfig() *tls.Config {
	switch c.TLS {
	case SecureTLS:
		return &tls.Config{MinVersion: tls.VersionTLS12, ServerName: c.Addresses[0].Host}
	case InsecureTLS:
		return &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: true} //nolint:gosec // requested by the caller
	}
	return nil
}

func (c Config) protocol() int {
	if c.Protocol == RESP2 {
		return 2
	}
	return 3
}

// retryBackoff maps the reconnect strategy onto go-redis retry settings.
func (c Config) retryBackoff() (retries int, lo, hi time.Duration) {
	b := c.Backoff
	if b.Retries == 0 && b.Factor == 0 {
		return 0, 0, 0
	}
	retries = int(b.Retries)
	if retries == 0 {
		retries = -1
	}
	lo = b.Factor
	hi = b.Factor
	base := time.Duration(b.ExponentBase)
	if base < 2 {
		return retries, lo, hi
	}
	for i := uint32(0); i < b.Retries && hi < maxBackoff; i++ {
		hi *= base
	}
	if hi > maxBackoff {
		hi = maxBackoff
	}
	return retries, lo, hi
}

func (c Config) standaloneOptions() *redis.Options {
	retries, lo, hi := c.retryBackoff()
	return &redis.Options{
		Addr:            c.Addresses[0].String(),
		Protocol:        c.protocol(),
		Username:        c.Username,
		Password:        c.Password,
		DB:              int(c.DatabaseID),
		ClientName:      c.ClientName,
		DialTimeout:     c.ConnectionTimeout,
		ReadTimeout:     c.RequestTimeout,
		WriteTimeout:    c.RequestTimeout,
		MaxRetries:      retries,
		MinRetryBackoff: lo,
		MaxRetryBackoff: hi,
		TLSConfig:       c.tlsConfig(),
		PoolSize:        poolSize(c.InflightRequestsLimit),
	}
}

func (c Config) clusterOptions() *redis.ClusterOptions {
	retries, lo, hi := c.retryBackoff()
	addrs := make([]string, len(c.Addresses))
	for i, a := range c.Addresses {
		addrs[i] = a.String()
	}
	opts := &redis.ClusterOptions{
		Addrs:           addrs,
		Protocol:        c.protocol(),
		Username:        c.Username,
		Password:        c.Password,
		ClientName:      c.ClientName,
		DialTimeout:     c.ConnectionTimeout,
		ReadTimeout:     c.RequestTimeout,
		WriteTimeout:    c.RequestTimeout,
		MaxRetries:      retries,
		MinRetryBackoff: lo,
		MaxRetryBackoff: hi,
		TLSConfig:       c.tlsConfig(),
		PoolSize:        poolSize(c.InflightRequestsLimit),
	}
	switch c.ReadFrom {
	case ReadFromPreferReplica:
		opts.ReadOnly = true
	case ReadFromAZAffinity, ReadFromAZAffinityReplicasAndPrimary:
		// nodes in the caller's zone answer fastest
		opts.ReadOnly = true
		opts.RouteByLatency = true
	}
	return opts
}

// poolSize keeps the connection pool proportional to the inflight limit
// without opening one socket per request.
func poolSize(limit uint32) int {
	n := int(limit) / 50
	if n < 10 {
		n = 10
	}
	return n
}

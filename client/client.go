// Package client wraps the go-redis standalone and cluster clients behind
// the connection request and command shapes used at the boundary.
package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wippyai/glide-ffi/command"
	"github.com/wippyai/glide-ffi/errors"
	"github.com/wippyai/glide-ffi/logging"
	"github.com/wippyai/glide-ffi/parameter"
	"github.com/wippyai/glide-ffi/routing"
	"github.com/wippyai/glide-ffi/value"
)

// Client is a connected store client. It is safe for concurrent use.
type Client struct {
	cfg     Config
	uc      redis.UniversalClient
	cluster *redis.ClusterClient
	log     *zap.Logger
}

// Connect builds the client described by cfg and, unless LazyConnect is
// set, waits for the first PING within the connection timeout.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	installRedisLogger()

	c := &Client{cfg: cfg, log: logging.Named("glide")}
	if cfg.Cluster {
		c.cluster = redis.NewClusterClient(cfg.clusterOptions())
		c.uc = c.cluster
	} else {
		c.uc = redis.NewClient(cfg.standaloneOptions())
	}

	if cfg.LazyConnect {
		c.log.Debug("lazy connect", zap.Stringer("address", cfg.Addresses[0]), zap.Bool("cluster", cfg.Cluster))
		return c, nil
	}

	pctx, cancel := context.WithTimeout(ctx, cfg.ConnectionTimeout)
	defer cancel()
	if err := c.uc.Ping(pctx).Err(); err != nil {
		_ = c.uc.Close()
		cerr := classify(err, cfg.Cluster)
		c.log.Warn("connect failed",
			zap.Stringer("address", cfg.Addresses[0]),
			zap.Stringer("category", cerr.Category),
			zap.Error(err))
		return nil, cerr
	}
	c.log.Debug("connected", zap.Stringer("address", cfg.Addresses[0]), zap.Bool("cluster", cfg.Cluster))
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Close releases every connection.
func (c *Client) Close() error {
	return c.uc.Close()
}

// Command sends one command and returns the raw reply. A nil reply from the
// server is returned as nil without error.
func (c *Client) Command(ctx context.Context, spec command.Spec, args []parameter.Arg, route *routing.Route) (any, error) {
	wire, err := spec.Args(args)
	if err != nil {
		return nil, err
	}
	if ce := c.log.Check(zap.DebugLevel, "sending command"); ce != nil {
		fields := []zap.Field{zap.String("command", commandName(spec, wire)), zap.Int("args", len(wire))}
		if route != nil {
			fields = append(fields, zap.Stringer("route", route))
		}
		ce.Write(fields...)
	}

	reply, err := c.send(ctx, wire, route)
	if stderrors.Is(err, redis.Nil) {
		return nil, nil
	}
	return reply, err
}

// Do sends one command and converts the reply to a Value. Status replies
// of the resolved command become simple strings, or Okay for "OK", and set
// replies become sets.
func (c *Client) Do(ctx context.Context, spec command.Spec, args []parameter.Arg, route *routing.Route) (value.Value, error) {
	reply, err := c.Command(ctx, spec, args, route)
	if err != nil {
		return value.Value{}, err
	}
	return ToValue(resolveCustom(spec, args), reply)
}

func (c *Client) send(ctx context.Context, wire []any, route *routing.Route) (any, error) {
	if c.cluster == nil || route == nil || route.Kind == routing.Random {
		return c.uc.Do(ctx, wire...).Result()
	}
	switch route.Kind {
	case routing.AllNodes:
		return fanOut(ctx, wire, c.cluster.ForEachShard)
	case routing.AllPrimaries:
		return fanOut(ctx, wire, c.cluster.ForEachMaster)
	case routing.SlotKey:
		node, err := c.keyOwner(ctx, route.SlotKey, route.SlotType)
		if err != nil {
			return nil, err
		}
		return node.Do(ctx, wire...).Result()
	case routing.SlotID:
		addr, err := c.slotOwner(ctx, uint16(route.SlotID), route.SlotType)
		if err != nil {
			return nil, err
		}
		return c.sendTo(ctx, addr, wire)
	case routing.ByAddress:
		return c.sendTo(ctx, route.Address(), wire)
	}
	return nil, errors.InvalidEnum(errors.PhaseRoute, []string{"route", "kind"}, uint32(route.Kind), "ERouteKind")
}

type shardWalker func(ctx context.Context, fn func(ctx context.Context, client *redis.Client) error) error

// fanOut runs wire on every node the walker visits and keys the replies by
// node address.
func fanOut(ctx context.Context, wire []any, walk shardWalker) (any, error) {
	var mu sync.Mutex
	replies := make(map[string]any)
	err := walk(ctx, func(ctx context.Context, node *redis.Client) error {
		reply, err := node.Do(ctx, wire...).Result()
		if stderrors.Is(err, redis.Nil) {
			reply, err = nil, nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", node.Options().Addr, err)
		}
		mu.Lock()
		replies[node.Options().Addr] = reply
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return replies, nil
}

// keyOwner returns the node serving key. Replica routes fall back to the
// primary when the shard has no healthy replica.
func (c *Client) keyOwner(ctx context.Context, key string, st routing.SlotType) (*redis.Client, error) {
	if st == routing.Replica {
		return c.cluster.SlaveForKey(ctx, key)
	}
	return c.cluster.MasterForKey(ctx, key)
}

// slotOwner returns the address serving slot. A replica is used only when
// the shard has one; otherwise the primary answers.
func (c *Client) slotOwner(ctx context.Context, slot uint16, st routing.SlotType) (string, error) {
	slots, err := c.cluster.ClusterSlots(ctx).Result()
	if err != nil {
		return "", err
	}
	for _, s := range slots {
		if int(slot) < s.Start || int(slot) > s.End || len(s.Nodes) == 0 {
			continue
		}
		if st == routing.Replica && len(s.Nodes) > 1 {
			return s.Nodes[1].Addr, nil
		}
		return s.Nodes[0].Addr, nil
	}
	return "", errors.New(errors.PhaseRoute, errors.KindNotFound).
		Path("route", "slot").
		Value(slot).
		Detail("no node serves slot %d", slot).
		Build()
}

// sendTo runs wire on the node listening at addr.
func (c *Client) sendTo(ctx context.Context, addr string, wire []any) (any, error) {
	var (
		mu    sync.Mutex
		reply any
		err   error
		found bool
	)
	walkErr := c.cluster.ForEachShard(ctx, func(ctx context.Context, node *redis.Client) error {
		if node.Options().Addr != addr {
			return nil
		}
		r, e := node.Do(ctx, wire...).Result()
		mu.Lock()
		reply, err, found = r, e, true
		mu.Unlock()
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	if !found {
		return nil, errors.New(errors.PhaseRoute, errors.KindNotFound).
			Path("route", "address").
			Value(addr).
			Detail("no node at %s", addr).
			Build()
	}
	return reply, err
}

// ToValue converts a raw reply for spec. Fan-out replies are shaped per
// node.
func ToValue(spec command.Spec, reply any) (value.Value, error) {
	v, err := value.FromReply(reply)
	if err != nil || !spec.Status && !spec.Set {
		return v, err
	}
	if _, fanned := reply.(map[string]any); fanned && v.Kind == value.KindMap {
		for i, p := range v.Pairs {
			v.Pairs[i].Value = shape(spec, p.Value)
		}
		return v, nil
	}
	return shape(spec, v), nil
}

// shape applies the reply type a command is known to answer with: status
// replies become simple strings and set replies become sets.
func shape(spec command.Spec, v value.Value) value.Value {
	switch {
	case spec.Status && v.Kind == value.KindBulkString:
		return value.Status(string(v.Bytes))
	case spec.Set && v.Kind == value.KindArray:
		v.Kind = value.KindSet
	}
	return v
}

// resolveCustom looks a custom command up by its leading words so status
// replies are recognised regardless of how the command was sent.
func resolveCustom(spec command.Spec, args []parameter.Arg) command.Spec {
	if spec.Type != command.CustomCommand {
		return spec
	}
	var words []string
	for _, a := range args {
		s, ok := a.(parameter.String)
		if !ok || len(words) == 2 {
			break
		}
		words = append(words, strings.ToUpper(string(s)))
	}
	if known, _, ok := command.ByName(words); ok {
		return known
	}
	return spec
}

// commandName renders the command for logs without its arguments.
func commandName(spec command.Spec, wire []any) string {
	if spec.Type != command.CustomCommand {
		return spec.String()
	}
	if len(wire) > 0 {
		if b, ok := wire[0].([]byte); ok {
			return strings.ToUpper(string(b))
		}
	}
	return spec.String()
}

type redisLogger struct {
	log *zap.Logger
}

func (l redisLogger) Printf(_ context.Context, format string, v ...any) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

var redisLoggerOnce sync.Once

// installRedisLogger routes go-redis internal messages to the "redis" target.
func installRedisLogger() {
	redisLoggerOnce.Do(func() {
		redis.SetLogger(redisLogger{log: logging.Named("redis")})
	})
}

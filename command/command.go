// Package command maps request-type identifiers to wire command names.
package command

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wippyai/glide-ffi/errors"
	"github.com/wippyai/glide-ffi/parameter"
)

// RequestType is the logical command identifier callers pass to dispatch.
// Identifiers are grouped by data type in blocks of one hundred.
type RequestType uint32

// CustomCommand takes the command name from its first argument.
const CustomCommand RequestType = 1

// Spec describes how a request type goes on the wire.
type Spec struct {
	Name []string
	Type RequestType
	// Status marks commands answering with a status reply, which the
	// client surfaces as a plain string.
	Status bool
	// Set marks commands answering with a set, which RESP2 and the store
	// client both deliver as an array.
	Set bool
}

// String returns the command name as typed in a shell.
func (s Spec) String() string {
	if s.Type == CustomCommand {
		return "CUSTOM"
	}
	return strings.Join(s.Name, " ")
}

// Args builds the full wire argument list: name words, then args in order.
func (s Spec) Args(args []parameter.Arg) ([]any, error) {
	if s.Type == CustomCommand {
		if len(args) == 0 {
			return nil, errors.InvalidData(errors.PhaseCommand, []string{"args"}, "custom command requires a command name")
		}
		return parameter.Wire(args), nil
	}
	out := make([]any, 0, len(s.Name)+len(args))
	for _, word := range s.Name {
		out = append(out, word)
	}
	for _, a := range args {
		out = a.AppendWire(out)
	}
	return out, nil
}

func (t RequestType) String() string {
	if s, ok := table[t]; ok {
		return s.String()
	}
	return fmt.Sprintf("RequestType(%d)", uint32(t))
}

type group struct {
	base  RequestType
	names []string
}

// Entries ending in "!" answer with a status reply, those ending in "~"
// with a set.
var groups = []group{
	{100, []string{
		"DEL", "EXISTS", "EXPIRE", "PEXPIRE", "EXPIREAT", "TTL", "PTTL", "PERSIST",
		"TYPE!", "RENAME!", "RENAMENX", "UNLINK", "TOUCH", "KEYS", "SCAN",
		"RANDOMKEY", "COPY", "DUMP", "RESTORE!", "OBJECT ENCODING", "SORT",
	}},
	{200, []string{
		"GET", "SET!", "GETDEL", "GETEX", "GETRANGE", "SETRANGE", "APPEND",
		"STRLEN", "INCR", "INCRBY", "INCRBYFLOAT", "DECR", "DECRBY", "MGET",
		"MSET!", "MSETNX", "GETSET", "LCS",
	}},
	{300, []string{
		"HGET", "HSET", "HSETNX", "HDEL", "HEXISTS", "HGETALL", "HKEYS", "HVALS",
		"HLEN", "HMGET", "HINCRBY", "HINCRBYFLOAT", "HSTRLEN", "HRANDFIELD", "HSCAN",
	}},
	{400, []string{
		"LPUSH", "RPUSH", "LPOP", "RPOP", "LLEN", "LRANGE", "LINDEX", "LSET!",
		"LREM", "LTRIM!", "LINSERT", "LPOS", "LMOVE", "BLPOP", "BRPOP", "LPUSHX",
		"RPUSHX",
	}},
	{500, []string{
		"SADD", "SREM", "SMEMBERS~", "SCARD", "SISMEMBER", "SMISMEMBER", "SPOP",
		"SRANDMEMBER", "SINTER~", "SUNION~", "SDIFF~", "SINTERSTORE", "SUNIONSTORE",
		"SDIFFSTORE", "SMOVE", "SSCAN",
	}},
	{600, []string{
		"ZADD", "ZREM", "ZRANGE", "ZCARD", "ZSCORE", "ZINCRBY", "ZRANK",
		"ZREVRANK", "ZCOUNT", "ZPOPMIN", "ZPOPMAX", "ZMSCORE", "ZSCAN",
	}},
	{700, []string{
		"PING!", "ECHO", "INFO", "DBSIZE", "FLUSHALL!", "FLUSHDB!", "SELECT!",
		"TIME", "CLIENT GETNAME", "CLIENT SETNAME!", "CLIENT ID", "CONFIG GET",
		"CONFIG SET!", "LASTSAVE",
	}},
	{800, []string{
		"EVAL", "EVALSHA", "SCRIPT LOAD", "SCRIPT EXISTS", "SCRIPT FLUSH!", "FCALL",
	}},
	{900, []string{"PUBLISH", "PUBSUB CHANNELS", "PUBSUB NUMSUB"}},
	{1000, []string{"PFADD", "PFCOUNT", "PFMERGE!"}},
	{1100, []string{"GEOADD", "GEODIST", "GEOPOS", "GEOHASH", "GEOSEARCH"}},
	{1200, []string{
		"XADD", "XLEN", "XRANGE", "XREVRANGE", "XDEL", "XTRIM", "XREAD",
		"XGROUP CREATE!", "XACK",
	}},
	{1300, []string{"SETBIT", "GETBIT", "BITCOUNT", "BITPOS", "BITOP"}},
	{1400, []string{"CLUSTER INFO", "CLUSTER NODES", "CLUSTER KEYSLOT", "CLUSTER SHARDS"}},
}

var (
	table  = map[RequestType]Spec{}
	byName = map[string]Spec{}
)

func init() {
	table[CustomCommand] = Spec{Type: CustomCommand}
	for _, g := range groups {
		for i, entry := range g.names {
			name := strings.TrimRight(entry, "!~")
			s := Spec{
				Type:   g.base + RequestType(i),
				Name:   strings.Fields(name),
				Status: strings.HasSuffix(entry, "!"),
				Set:    strings.HasSuffix(entry, "~"),
			}
			table[s.Type] = s
			byName[name] = s
		}
	}
}

// Lookup resolves a request type.
func Lookup(t RequestType) (Spec, bool) {
	s, ok := table[t]
	return s, ok
}

// Resolve resolves a request type or returns an unknown-command error.
func Resolve(t RequestType) (Spec, error) {
	s, ok := table[t]
	if !ok {
		return Spec{}, errors.UnknownCommand(uint32(t))
	}
	return s, nil
}

// ByName finds the spec for a command typed in a shell. Two-word commands
// are matched first; the number of words consumed is returned.
func ByName(words []string) (Spec, int, bool) {
	if len(words) >= 2 {
		if s, ok := byName[strings.ToUpper(words[0]+" "+words[1])]; ok {
			return s, 2, true
		}
	}
	if len(words) >= 1 {
		if s, ok := byName[strings.ToUpper(words[0])]; ok {
			return s, 1, true
		}
	}
	return Spec{}, 0, false
}

// All returns every known spec ordered by request type.
func All() []Spec {
	out := make([]Spec, 0, len(table))
	for _, s := range table {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

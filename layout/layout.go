package layout

import (
	"fmt"
	"sync"
	"unsafe"

	glideffi "github.com/wippyai/glide-ffi"
)

// ParameterInfo is the layout of
//
//	struct Parameter { EParameterKind kind; ParameterValue value; uint32_t value_length; };
type ParameterInfo struct {
	Kind, Value, Length uint64
	Size                uint64
}

// KeyParameterPairInfo is the layout of
//
//	struct KeyParameterPair { const char *key; uint32_t key_length; Parameter value; };
type KeyParameterPairInfo struct {
	Key, KeyLength, Value uint64
	Size                  uint64
}

// ValueInfo is the layout of the encoded result value
//
//	struct Value { EValueKind kind; uint32_t length; ValueData data; };
type ValueInfo struct {
	Kind, Length, Data uint64
	Size               uint64
}

// KeyValuePairInfo is the layout of
//
//	struct KeyValuePair { Value key; Value value; };
type KeyValuePairInfo struct {
	Key, Value uint64
	Size       uint64
}

// RoutingInfoInfo is the layout of
//
//	struct RoutingInfo {
//	    ERouteKind kind; ESlotType slot_type; int32_t slot_id;
//	    const char *slot_key; uint32_t slot_key_length;
//	    const char *host; uint32_t host_length; uint16_t port;
//	};
type RoutingInfoInfo struct {
	Kind, SlotType, SlotID       uint64
	SlotKey, SlotKeyLength       uint64
	Host, HostLength, Port, Size uint64
}

// NodeAddressInfo is the layout of
//
//	struct NodeAddress { const char *host; uint16_t port; };
type NodeAddressInfo struct {
	Host, Port uint64
	Size       uint64
}

// ConnectionRequestInfo is the layout of struct ConnectionRequest.
type ConnectionRequestInfo struct {
	Addresses, AddressCount           uint64
	TLSMode, ClusterMode              uint64
	ReadFrom, Protocol                uint64
	RequestTimeout, ConnectionTimeout uint64
	Username, Password                uint64
	ClientName, ClientAZ              uint64
	DatabaseID                        uint64
	Retries, BackoffFactor            uint64
	BackoffExponentBase               uint64
	InflightRequestsLimit             uint64
	LazyConnect                       uint64
	Size                              uint64
}

// Layout groups every boundary struct for one pointer size.
type Layout struct {
	PointerSize       uint64
	Parameter         ParameterInfo
	KeyParameterPair  KeyParameterPairInfo
	Value             ValueInfo
	KeyValuePair      KeyValuePairInfo
	RoutingInfo       RoutingInfoInfo
	NodeAddress       NodeAddressInfo
	ConnectionRequest ConnectionRequestInfo
}

var (
	cache   = map[uint64]*Layout{}
	cacheMu sync.Mutex
)

// Native is the layout for callers in this process.
var Native = For(uint64(unsafe.Sizeof(uintptr(0))))

// Wasm32 is the layout for wasm32 guests.
var Wasm32 = For(4)

// For returns the layout for the given pointer size (4 or 8).
func For(pointerSize uint64) *Layout {
	if pointerSize != 4 && pointerSize != 8 {
		panic(fmt.Sprintf("layout: unsupported pointer size %d", pointerSize))
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if l, ok := cache[pointerSize]; ok {
		return l
	}
	l := compute(pointerSize)
	cache[pointerSize] = l
	return l
}

func compute(ptr uint64) *Layout {
	pointer := func(name string) Field { return Field{Name: name, Size: ptr, Align: ptr} }
	// unions hold at most an 8-byte scalar or a pointer
	union := func(name string) Field { return Field{Name: name, Size: 8, Align: 8} }

	l := &Layout{PointerSize: ptr}

	param := Record(U32("kind"), union("value"), U32("value_length"))
	l.Parameter = ParameterInfo{
		Kind:   param.Offset("kind"),
		Value:  param.Offset("value"),
		Length: param.Offset("value_length"),
		Size:   param.Size,
	}

	pair := Record(pointer("key"), U32("key_length"), Nested("value", param))
	l.KeyParameterPair = KeyParameterPairInfo{
		Key:       pair.Offset("key"),
		KeyLength: pair.Offset("key_length"),
		Value:     pair.Offset("value"),
		Size:      pair.Size,
	}

	val := Record(U32("kind"), U32("length"), union("data"))
	l.Value = ValueInfo{
		Kind:   val.Offset("kind"),
		Length: val.Offset("length"),
		Data:   val.Offset("data"),
		Size:   val.Size,
	}

	kv := Record(Nested("key", val), Nested("value", val))
	l.KeyValuePair = KeyValuePairInfo{
		Key:   kv.Offset("key"),
		Value: kv.Offset("value"),
		Size:  kv.Size,
	}

	route := Record(
		U32("kind"), U32("slot_type"), U32("slot_id"),
		pointer("slot_key"), U32("slot_key_length"),
		pointer("host"), U32("host_length"), U16("port"),
	)
	l.RoutingInfo = RoutingInfoInfo{
		Kind:          route.Offset("kind"),
		SlotType:      route.Offset("slot_type"),
		SlotID:        route.Offset("slot_id"),
		SlotKey:       route.Offset("slot_key"),
		SlotKeyLength: route.Offset("slot_key_length"),
		Host:          route.Offset("host"),
		HostLength:    route.Offset("host_length"),
		Port:          route.Offset("port"),
		Size:          route.Size,
	}

	node := Record(pointer("host"), U16("port"))
	l.NodeAddress = NodeAddressInfo{
		Host: node.Offset("host"),
		Port: node.Offset("port"),
		Size: node.Size,
	}

	req := Record(
		pointer("addresses"), U32("address_count"),
		U8("tls_mode"), U8("cluster_mode"), U8("read_from"), U8("protocol"),
		U32("request_timeout_ms"), U32("connection_timeout_ms"),
		pointer("username"), pointer("password"),
		pointer("client_name"), pointer("client_az"),
		U32("database_id"),
		U32("retries"), U32("backoff_factor_ms"), U32("backoff_exponent_base"),
		U32("inflight_requests_limit"),
		U8("lazy_connect"),
	)
	l.ConnectionRequest = ConnectionRequestInfo{
		Addresses:             req.Offset("addresses"),
		AddressCount:          req.Offset("address_count"),
		TLSMode:               req.Offset("tls_mode"),
		ClusterMode:           req.Offset("cluster_mode"),
		ReadFrom:              req.Offset("read_from"),
		Protocol:              req.Offset("protocol"),
		RequestTimeout:        req.Offset("request_timeout_ms"),
		ConnectionTimeout:     req.Offset("connection_timeout_ms"),
		Username:              req.Offset("username"),
		Password:              req.Offset("password"),
		ClientName:            req.Offset("client_name"),
		ClientAZ:              req.Offset("client_az"),
		DatabaseID:            req.Offset("database_id"),
		Retries:               req.Offset("retries"),
		BackoffFactor:         req.Offset("backoff_factor_ms"),
		BackoffExponentBase:   req.Offset("backoff_exponent_base"),
		InflightRequestsLimit: req.Offset("inflight_requests_limit"),
		LazyConnect:           req.Offset("lazy_connect"),
		Size:                  req.Size,
	}

	return l
}

// ReadPointer reads a caller pointer stored at addr.
func (l *Layout) ReadPointer(mem glideffi.Memory, addr uint64) (uint64, error) {
	if l.PointerSize == 4 {
		v, err := mem.ReadU32(addr)
		return uint64(v), err
	}
	return mem.ReadU64(addr)
}

// WritePointer stores a caller pointer at addr.
func (l *Layout) WritePointer(mem glideffi.Memory, addr, ptr uint64) error {
	if l.PointerSize == 4 {
		return mem.WriteU32(addr, uint32(ptr))
	}
	return mem.WriteU64(addr, ptr)
}

// ReadCString reads a NUL-terminated string starting at addr, copying it out
// of caller memory one byte at a time, so a bounds-checked memory reports an
// unterminated string as an overrun.
func ReadCString(mem glideffi.Memory, addr uint64) ([]byte, error) {
	var out []byte
	for {
		b, err := mem.ReadU8(addr)
		if err != nil {
			return nil, err
		}
		if b == 0 {
			return out, nil
		}
		out = append(out, b)
		addr++
	}
}

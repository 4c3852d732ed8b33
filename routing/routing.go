// Package routing decodes the optional RoutingInfo that targets a command at
// specific nodes of a cluster.
package routing

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	glideffi "github.com/wippyai/glide-ffi"
	"github.com/wippyai/glide-ffi/errors"
	"github.com/wippyai/glide-ffi/layout"
)

// Kind selects how a command is routed.
type Kind uint32

const (
	Random Kind = iota
	AllNodes
	AllPrimaries
	SlotID
	SlotKey
	ByAddress
)

var kindNames = [...]string{"Random", "AllNodes", "AllPrimaries", "SlotID", "SlotKey", "ByAddress"}

func (k Kind) String() string {
	if k <= ByAddress {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint32(k))
}

// SlotType selects the primary or a replica of the shard owning a slot.
type SlotType uint32

const (
	Primary SlotType = iota
	Replica
)

func (t SlotType) String() string {
	switch t {
	case Primary:
		return "Primary"
	case Replica:
		return "Replica"
	}
	return fmt.Sprintf("SlotType(%d)", uint32(t))
}

// SlotCount is the number of hash slots in a cluster.
const SlotCount = 16384

// Route is a decoded routing directive.
type Route struct {
	SlotKey  string
	Host     string
	Kind     Kind
	SlotType SlotType
	SlotID   int32
	Port     uint16
}

// Address returns host:port for ByAddress routes.
func (r *Route) Address() string {
	return r.Host + ":" + strconv.Itoa(int(r.Port))
}

func (r *Route) String() string {
	switch r.Kind {
	case SlotID:
		return fmt.Sprintf("%s(%d, %s)", r.Kind, r.SlotID, r.SlotType)
	case SlotKey:
		return fmt.Sprintf("%s(%q, %s)", r.Kind, r.SlotKey, r.SlotType)
	case ByAddress:
		return fmt.Sprintf("%s(%s)", r.Kind, r.Address())
	}
	return r.Kind.String()
}

const incomplete = "Routing info incomplete, null value passed in string"

// Decode reads the RoutingInfo at addr. A null addr means no routing and
// yields a nil route.
func Decode(mem glideffi.Memory, l *layout.Layout, addr uint64) (*Route, error) {
	if addr == 0 {
		return nil, nil
	}
	info := l.RoutingInfo
	path := []string{"route"}

	r, err := decode(mem, l, addr, info, path)
	if err != nil {
		if _, ok := err.(*errors.Error); ok {
			return nil, err
		}
		return nil, errors.OutOfBounds(errors.PhaseRoute, path, err)
	}
	return r, nil
}

func decode(mem glideffi.Memory, l *layout.Layout, addr uint64, info layout.RoutingInfoInfo, path []string) (*Route, error) {
	kind, err := mem.ReadU32(addr + info.Kind)
	if err != nil {
		return nil, err
	}
	r := &Route{Kind: Kind(kind)}

	switch r.Kind {
	case Random, AllNodes, AllPrimaries:
		return r, nil

	case SlotID, SlotKey:
		slotType, err := mem.ReadU32(addr + info.SlotType)
		if err != nil {
			return nil, err
		}
		r.SlotType = SlotType(slotType)
		if r.SlotType != Primary && r.SlotType != Replica {
			return nil, errors.InvalidEnum(errors.PhaseRoute, append(path, "slot_type"), slotType, "ESlotType")
		}
		if r.Kind == SlotID {
			id, err := mem.ReadU32(addr + info.SlotID)
			if err != nil {
				return nil, err
			}
			r.SlotID = int32(id)
			if r.SlotID < 0 || r.SlotID >= SlotCount {
				return nil, errors.New(errors.PhaseRoute, errors.KindInvalidData).
					Path(append(path, "slot_id")...).
					Value(r.SlotID).
					Detail("slot id %d outside 0..%d", r.SlotID, SlotCount-1).
					Build()
			}
			return r, nil
		}
		key, err := readString(mem, l, addr+info.SlotKey, addr+info.SlotKeyLength, append(path, "slot_key"))
		if err != nil {
			return nil, err
		}
		r.SlotKey = key
		return r, nil

	case ByAddress:
		host, err := readString(mem, l, addr+info.Host, addr+info.HostLength, append(path, "host"))
		if err != nil {
			return nil, err
		}
		port, err := mem.ReadU16(addr + info.Port)
		if err != nil {
			return nil, err
		}
		r.Host = host
		r.Port = port
		return r, nil
	}

	return nil, errors.InvalidEnum(errors.PhaseRoute, append(path, "kind"), kind, "ERouteKind")
}

func readString(mem glideffi.Memory, l *layout.Layout, ptrAddr, lenAddr uint64, path []string) (string, error) {
	ptr, err := l.ReadPointer(mem, ptrAddr)
	if err != nil {
		return "", err
	}
	if ptr == 0 {
		return "", errors.New(errors.PhaseRoute, errors.KindEmpty).Path(path...).Detail(incomplete).Build()
	}
	n, err := mem.ReadU32(lenAddr)
	if err != nil {
		return "", err
	}
	b, err := mem.Read(ptr, uint64(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.InvalidUTF8(errors.PhaseRoute, path, b)
	}
	return string(b), nil
}

// Encode writes r as a RoutingInfo at addr. String fields must already be
// in caller memory at the given addresses.
func Encode(mem glideffi.Memory, l *layout.Layout, addr uint64, r *Route, keyPtr, hostPtr uint64) error {
	info := l.RoutingInfo
	if err := mem.Write(addr, make([]byte, info.Size)); err != nil {
		return err
	}
	if err := mem.WriteU32(addr+info.Kind, uint32(r.Kind)); err != nil {
		return err
	}
	if err := mem.WriteU32(addr+info.SlotType, uint32(r.SlotType)); err != nil {
		return err
	}
	if err := mem.WriteU32(addr+info.SlotID, uint32(r.SlotID)); err != nil {
		return err
	}
	if err := l.WritePointer(mem, addr+info.SlotKey, keyPtr); err != nil {
		return err
	}
	if err := mem.WriteU32(addr+info.SlotKeyLength, uint32(len(r.SlotKey))); err != nil {
		return err
	}
	if err := l.WritePointer(mem, addr+info.Host, hostPtr); err != nil {
		return err
	}
	if err := mem.WriteU32(addr+info.HostLength, uint32(len(r.Host))); err != nil {
		return err
	}
	return mem.WriteU16(addr+info.Port, r.Port)
}

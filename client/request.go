package client

import (
	"fmt"
	"time"
	"unicode/utf8"

	glideffi "github.com/wippyai/glide-ffi"
	"github.com/wippyai/glide-ffi/errors"
	"github.com/wippyai/glide-ffi/layout"
)

// DecodeRequest reads the ConnectionRequest at addr. Only host strings are
// mandatory; null optional strings decode as empty.
func DecodeRequest(mem glideffi.Memory, l *layout.Layout, addr uint64) (Config, error) {
	if addr == 0 {
		return Config{}, errors.Empty(errors.PhaseConnect, []string{"request"})
	}
	cfg, err := decodeRequest(mem, l, addr)
	if err != nil {
		if _, ok := err.(*errors.Error); ok {
			return Config{}, err
		}
		return Config{}, errors.OutOfBounds(errors.PhaseConnect, []string{"request"}, err)
	}
	return cfg, nil
}

func decodeRequest(mem glideffi.Memory, l *layout.Layout, addr uint64) (Config, error) {
	info := l.ConnectionRequest
	var cfg Config

	list, err := l.ReadPointer(mem, addr+info.Addresses)
	if err != nil {
		return cfg, err
	}
	count, err := mem.ReadU32(addr + info.AddressCount)
	if err != nil {
		return cfg, err
	}
	if count > 0 && list == 0 {
		return cfg, errors.Empty(errors.PhaseConnect, []string{"addresses"})
	}
	cfg.Addresses = make([]NodeAddress, count)
	for i := range cfg.Addresses {
		node := list + uint64(i)*l.NodeAddress.Size
		path := []string{fmt.Sprintf("addresses[%d]", i), "host"}
		host, err := readCString(mem, l, node+l.NodeAddress.Host, path)
		if err != nil {
			return cfg, err
		}
		if host == nil {
			return cfg, errors.New(errors.PhaseConnect, errors.KindEmpty).
				Path(path...).
				Detail("Null value passed for host").
				Build()
		}
		port, err := mem.ReadU16(node + l.NodeAddress.Port)
		if err != nil {
			return cfg, err
		}
		cfg.Addresses[i] = NodeAddress{Host: *host, Port: port}
	}

	u8 := func(off uint64) uint8 {
		if err != nil {
			return 0
		}
		var v uint8
		v, err = mem.ReadU8(addr + off)
		return v
	}
	u32 := func(off uint64) uint32 {
		if err != nil {
			return 0
		}
		var v uint32
		v, err = mem.ReadU32(addr + off)
		return v
	}
	cfg.TLS = TLSMode(u8(info.TLSMode))
	cfg.Cluster = u8(info.ClusterMode) != 0
	cfg.ReadFrom = ReadFrom(u8(info.ReadFrom))
	cfg.Protocol = Protocol(u8(info.Protocol))
	cfg.RequestTimeout = time.Duration(u32(info.RequestTimeout)) * time.Millisecond
	cfg.ConnectionTimeout = time.Duration(u32(info.ConnectionTimeout)) * time.Millisecond
	cfg.DatabaseID = u32(info.DatabaseID)
	cfg.Backoff = Backoff{
		Retries:      u32(info.Retries),
		Factor:       time.Duration(u32(info.BackoffFactor)) * time.Millisecond,
		ExponentBase: u32(info.BackoffExponentBase),
	}
	cfg.InflightRequestsLimit = u32(info.InflightRequestsLimit)
	cfg.LazyConnect = u8(info.LazyConnect) != 0
	if err != nil {
		return cfg, err
	}

	optional := []struct {
		dst  *string
		off  uint64
		name string
	}{
		{&cfg.Username, info.Username, "username"},
		{&cfg.Password, info.Password, "password"},
		{&cfg.ClientName, info.ClientName, "client_name"},
		{&cfg.ClientAZ, info.ClientAZ, "client_az"},
	}
	for _, o := range optional {
		s, err := readCString(mem, l, addr+o.off, []string{o.name})
		if err != nil {
			return cfg, err
		}
		if s != nil {
			*o.dst = *s
		}
	}
	return cfg, nil
}

// readCString follows the pointer stored at ptrAddr. A null pointer yields nil.
func readCString(mem glideffi.Memory, l *layout.Layout, ptrAddr uint64, path []string) (*string, error) {
	ptr, err := l.ReadPointer(mem, ptrAddr)
	if err != nil {
		return nil, err
	}
	if ptr == 0 {
		return nil, nil
	}
	b, err := layout.ReadCString(mem, ptr)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(b) {
		return nil, errors.InvalidUTF8(errors.PhaseConnect, path, b)
	}
	s := string(b)
	return &s, nil
}

// EncodeRequest lowers cfg into caller memory as a ConnectionRequest and
// returns its address. Every allocation is appended to owned so the caller
// can release the request as a unit.
func EncodeRequest(mem glideffi.Memory, alloc glideffi.Allocator, l *layout.Layout, cfg Config, owned *[]uint64) (uint64, error) {
	track := func(size, align uint64) (uint64, error) {
		addr, err := alloc.Alloc(size, align)
		if err != nil {
			return 0, errors.AllocationFailed(errors.PhaseEncode, size, align, err)
		}
		*owned = append(*owned, addr)
		return addr, nil
	}
	cstring := func(s string) (uint64, error) {
		if s == "" {
			return 0, nil
		}
		addr, err := track(uint64(len(s))+1, 1)
		if err != nil {
			return 0, err
		}
		return addr, mem.Write(addr, append([]byte(s), 0))
	}

	info := l.ConnectionRequest
	req, err := track(info.Size, l.PointerSize)
	if err != nil {
		return 0, err
	}
	if err := mem.Write(req, make([]byte, info.Size)); err != nil {
		return 0, err
	}

	var list uint64
	if len(cfg.Addresses) > 0 {
		list, err = track(uint64(len(cfg.Addresses))*l.NodeAddress.Size, l.PointerSize)
		if err != nil {
			return 0, err
		}
		for i, a := range cfg.Addresses {
			node := list + uint64(i)*l.NodeAddress.Size
			host, err := track(uint64(len(a.Host))+1, 1)
			if err != nil {
				return 0, err
			}
			if err := mem.Write(host, append([]byte(a.Host), 0)); err != nil {
				return 0, err
			}
			if err := l.WritePointer(mem, node+l.NodeAddress.Host, host); err != nil {
				return 0, err
			}
			if err := mem.WriteU16(node+l.NodeAddress.Port, a.Port); err != nil {
				return 0, err
			}
		}
	}

	werr := l.WritePointer(mem, req+info.Addresses, list)
	put32 := func(off uint64, v uint32) {
		if werr == nil {
			werr = mem.WriteU32(req+off, v)
		}
	}
	put8 := func(off uint64, v uint8) {
		if werr == nil {
			werr = mem.WriteU8(req+off, v)
		}
	}
	flag := func(b bool) uint8 {
		if b {
			return 1
		}
		return 0
	}
	put32(info.AddressCount, uint32(len(cfg.Addresses)))
	put8(info.TLSMode, uint8(cfg.TLS))
	put8(info.ClusterMode, flag(cfg.Cluster))
	put8(info.ReadFrom, uint8(cfg.ReadFrom))
	put8(info.Protocol, uint8(cfg.Protocol))
	put32(info.RequestTimeout, uint32(cfg.RequestTimeout/time.Millisecond))
	put32(info.ConnectionTimeout, uint32(cfg.ConnectionTimeout/time.Millisecond))
	put32(info.DatabaseID, cfg.DatabaseID)
	put32(info.Retries, cfg.Backoff.Retries)
	put32(info.BackoffFactor, uint32(cfg.Backoff.Factor/time.Millisecond))
	put32(info.BackoffExponentBase, cfg.Backoff.ExponentBase)
	put32(info.InflightRequestsLimit, cfg.InflightRequestsLimit)
	put8(info.LazyConnect, flag(cfg.LazyConnect))
	if werr != nil {
		return 0, werr
	}

	for _, s := range []struct {
		v   string
		off uint64
	}{
		{cfg.Username, info.Username},
		{cfg.Password, info.Password},
		{cfg.ClientName, info.ClientName},
		{cfg.ClientAZ, info.ClientAZ},
	} {
		ptr, err := cstring(s.v)
		if err != nil {
			return 0, err
		}
		if err := l.WritePointer(mem, req+s.off, ptr); err != nil {
			return 0, err
		}
	}
	return req, nil
}

package main

import (
	"context"
	"fmt"

	"github.com/google/shlex"

	glideffi "github.com/wippyai/glide-ffi"
	"github.com/wippyai/glide-ffi/bridge"
	"github.com/wippyai/glide-ffi/buffer"
	"github.com/wippyai/glide-ffi/client"
	"github.com/wippyai/glide-ffi/command"
	"github.com/wippyai/glide-ffi/layout"
	"github.com/wippyai/glide-ffi/memory"
	"github.com/wippyai/glide-ffi/parameter"
	"github.com/wippyai/glide-ffi/value"
)

// session drives one client through the blocking entry point, the same
// path a foreign caller takes, with an in-process arena as caller memory.
type session struct {
	mem    *memory.Slice
	bridge *bridge.Bridge
	layout *layout.Layout
	handle bridge.Handle
}

func openSession(ctx context.Context, cfg client.Config) (*session, error) {
	mem := memory.NewSlice(64 << 10)
	b := bridge.New(glideffi.Boundary{Memory: mem, Allocator: mem, PointerSize: 8}, bridge.NewRegistry())

	res := b.CreateClient(ctx, cfg)
	if res.Code != bridge.Success {
		msg, _ := buffer.ReadString(mem, res.Error)
		b.FreeString(res.Error)
		return nil, fmt.Errorf("%s: %s", res.Code, msg)
	}
	return &session{mem: mem, bridge: b, layout: b.Layout(), handle: res.Handle}, nil
}

// exec runs one command line. Known command names are sent by request
// type, anything else as a custom command.
func (s *session) exec(words []string) (value.Value, error) {
	if len(words) == 0 {
		return value.Value{}, fmt.Errorf("empty command")
	}
	t, args := command.CustomCommand, words
	if spec, n, ok := command.ByName(words); ok {
		t, args = spec.Type, words[n:]
	}

	list := parameter.NewAllocationList()
	defer list.FreeAndRelease(s.mem)
	addr, err := parameter.LowerStrings(s.mem, s.mem, s.layout, args, list)
	if err != nil {
		return value.Value{}, err
	}

	res := s.bridge.CommandBlocking(s.handle, t, addr, uint32(len(args)))
	if !res.Success {
		msg, _ := buffer.ReadString(s.mem, res.Error)
		s.bridge.FreeString(res.Error)
		return value.Value{}, fmt.Errorf("%s", msg)
	}
	defer s.bridge.FreeValue(res.Value)
	return buffer.Read(s.mem, s.layout, res.Value)
}

func (s *session) close() {
	_ = s.bridge.FreeClientHandle(s.handle)
	s.bridge.Close()
}

// splitLine splits a command line with shell quoting rules: single and
// double quotes group words and a backslash escapes the next character.
func splitLine(line string) ([]string, error) {
	words, err := shlex.Split(line)
	if err != nil {
		// shlex only fails on input ending inside a quote or after a backslash
		return nil, fmt.Errorf("unterminated quote or escape")
	}
	return words, nil
}

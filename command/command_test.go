package command

import (
	"reflect"
	"testing"

	"github.com/wippyai/glide-ffi/errors"
	"github.com/wippyai/glide-ffi/parameter"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		t      RequestType
		name   string
		status bool
		set    bool
	}{
		{100, "DEL", false, false},
		{201, "SET", true, false},
		{200, "GET", false, false},
		{502, "SMEMBERS", false, true},
		{508, "SINTER", false, true},
		{503, "SCARD", false, false},
		{700, "PING", true, false},
		{708, "CLIENT GETNAME", false, false},
		{1403, "CLUSTER SHARDS", false, false},
	}
	for _, tt := range tests {
		s, ok := Lookup(tt.t)
		if !ok {
			t.Fatalf("request type %d not found", tt.t)
		}
		if s.String() != tt.name || s.Status != tt.status || s.Set != tt.set {
			t.Errorf("request type %d: expected %s (status=%v, set=%v), got %s (status=%v, set=%v)",
				tt.t, tt.name, tt.status, tt.set, s, s.Status, s.Set)
		}
	}
}

func TestResolve_Unknown(t *testing.T) {
	_, err := Resolve(99999)
	if errors.KindOf(err) != errors.KindUnknownCommand {
		t.Fatalf("expected unknown command, got %v", err)
	}
	if errors.Message(err) != "Unknown request type" {
		t.Errorf("unexpected message %q", errors.Message(err))
	}
}

func TestSpec_Args(t *testing.T) {
	s, _ := Lookup(701)
	got, err := s.Args([]parameter.Arg{parameter.String("k"), parameter.Int64(5)})
	if err != nil {
		t.Fatalf("Args failed: %v", err)
	}
	if want := []any{"ECHO", []byte("k"), int64(5)}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %#v, got %#v", want, got)
	}

	multi, _ := Lookup(709)
	got, err = multi.Args([]parameter.Arg{parameter.String("conn")})
	if err != nil {
		t.Fatalf("Args failed: %v", err)
	}
	if want := []any{"CLIENT", "SETNAME", []byte("conn")}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %#v, got %#v", want, got)
	}
}

func TestSpec_CustomArgs(t *testing.T) {
	s, _ := Lookup(CustomCommand)
	got, err := s.Args([]parameter.Arg{parameter.String("PING"), parameter.String("hi")})
	if err != nil {
		t.Fatalf("Args failed: %v", err)
	}
	if want := []any{[]byte("PING"), []byte("hi")}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %#v, got %#v", want, got)
	}

	if _, err := s.Args(nil); errors.KindOf(err) != errors.KindInvalidData {
		t.Errorf("expected invalid data for empty custom command, got %v", err)
	}
}

func TestByName(t *testing.T) {
	s, n, ok := ByName([]string{"client", "setname", "x"})
	if !ok || n != 2 || s.String() != "CLIENT SETNAME" {
		t.Errorf("expected CLIENT SETNAME consuming 2 words, got %s %d %v", s, n, ok)
	}
	s, n, ok = ByName([]string{"get", "key"})
	if !ok || n != 1 || s.Type != 200 {
		t.Errorf("expected GET consuming 1 word, got %s %d %v", s, n, ok)
	}
	if _, _, ok := ByName([]string{"nope"}); ok {
		t.Error("expected unknown command")
	}
}

func TestAll_SortedAndUnique(t *testing.T) {
	all := All()
	if all[0].Type != CustomCommand {
		t.Errorf("expected custom command first, got %s", all[0])
	}
	seen := map[string]bool{}
	for i := 1; i < len(all); i++ {
		if all[i].Type <= all[i-1].Type {
			t.Fatalf("not sorted at %d", i)
		}
		if seen[all[i].String()] {
			t.Errorf("duplicate name %s", all[i])
		}
		seen[all[i].String()] = true
	}
}

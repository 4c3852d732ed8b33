package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseDecode,
				Kind:   KindInvalidEnum,
				Path:   []string{"args", "2", "kind"},
				Type:   "EParameterKind",
				Detail: "invalid enum value 99",
			},
			contains: []string{"[decode]", "invalid_enum", "args.2.kind", "EParameterKind", "invalid enum value 99"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseEncode,
				Kind:  KindOverflow,
			},
			contains: []string{"[encode]", "overflow"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseConnect,
				Kind:   KindIO,
				Detail: "dial",
				Cause:  errors.New("connection refused"),
			},
			contains: []string{"[connect]", "io", "dial", "caused by", "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(PhaseCommand, KindConnection, cause, "send")

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestError_Is(t *testing.T) {
	err1 := &Error{Phase: PhaseDecode, Kind: KindEmpty}
	err2 := &Error{Phase: PhaseDecode, Kind: KindEmpty, Detail: "other"}
	err3 := &Error{Phase: PhaseDecode, Kind: KindInvalidUTF8}

	if !errors.Is(err1, err2) {
		t.Error("errors with same phase and kind should match")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different kinds should not match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("boom")
	err := New(PhaseDecode, KindInvalidData).
		Path("args", "0").
		Type("KeyParameterPair").
		Value(7).
		Cause(cause).
		Detail("nested %s", "kv").
		Build()

	if err.Phase != PhaseDecode || err.Kind != KindInvalidData {
		t.Fatalf("wrong phase/kind: %s/%s", err.Phase, err.Kind)
	}
	if strings.Join(err.Path, ".") != "args.0" {
		t.Errorf("wrong path: %v", err.Path)
	}
	if err.Type != "KeyParameterPair" {
		t.Errorf("wrong type: %s", err.Type)
	}
	if err.Value != 7 {
		t.Errorf("wrong value: %v", err.Value)
	}
	if err.Detail != "nested kv" {
		t.Errorf("wrong detail: %s", err.Detail)
	}
	if err.Cause != cause {
		t.Error("wrong cause")
	}
}

func TestUtf8OrEmpty(t *testing.T) {
	empty := Empty(PhaseDecode, []string{"host"})
	utf := InvalidUTF8(PhaseDecode, nil, []byte{0xff, 0xfe})

	if !IsEmpty(empty) || IsUtf8(empty) {
		t.Error("Empty misclassified")
	}
	if !IsUtf8(utf) || IsEmpty(utf) {
		t.Error("InvalidUTF8 misclassified")
	}
	raw, ok := utf.Value.([]byte)
	if !ok || len(raw) != 2 {
		t.Errorf("InvalidUTF8 should retain the offending bytes, got %v", utf.Value)
	}

	wrapped := fmt.Errorf("decode args: %w", empty)
	if !IsEmpty(wrapped) {
		t.Error("IsEmpty should look through wrapping")
	}
	if KindOf(wrapped) != KindEmpty {
		t.Errorf("KindOf = %q", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("KindOf of a plain error should be empty")
	}
}

func TestInvalidUTF8_PreviewTruncated(t *testing.T) {
	data := make([]byte, 100)
	for i := range data {
		data[i] = 0xff
	}
	err := InvalidUTF8(PhaseDecode, nil, data)
	if strings.Count(err.Detail, "ff") != 32 {
		t.Errorf("preview should be truncated to 32 bytes: %s", err.Detail)
	}
	if len(err.Value.([]byte)) != 100 {
		t.Error("value should keep every byte")
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{InvalidHandle(PhaseCommand, 0), "Null handle passed"},
		{InvalidHandle(PhaseCommand, 42), "Invalid handle passed"},
		{UnknownCommand(9999), "Unknown request type"},
		{Wrap(PhaseCommand, KindConnection, errors.New("EOF"), "send"), "send: EOF"},
		{&Error{Phase: PhaseCommand, Kind: KindIO, Cause: errors.New("reset")}, "reset"},
		{errors.New("plain"), "plain"},
	}
	for _, tt := range tests {
		if got := Message(tt.err); got != tt.want {
			t.Errorf("Message(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestPanic(t *testing.T) {
	err := Panic(PhaseCallback, "callback exploded")
	if err.Kind != KindPanic || err.Value != "callback exploded" {
		t.Fatalf("unexpected %+v", err)
	}
	if !strings.Contains(err.Error(), "callback exploded") {
		t.Errorf("message should include the panic value: %s", err.Error())
	}
}

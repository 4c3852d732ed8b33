// Package value is the reply model handed to callers: the Go side of the
// encoded Value struct.
package value

import (
	"bytes"
	"fmt"
	"math"
	"math/big"
)

// Kind is the tag written to the Value struct's kind field.
type Kind uint32

const (
	KindNil Kind = iota
	KindInt
	KindFloat
	KindBool
	KindBulkString
	KindSimpleString
	KindOkay
	KindArray
	KindMap
	KindSet
	KindError
	KindBigNumber
)

var kindNames = [...]string{
	"Nil", "Int", "Float", "Bool", "BulkString", "SimpleString", "Okay",
	"Array", "Map", "Set", "Error", "BigNumber",
}

func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint32(k))
}

func (k Kind) Valid() bool {
	return k <= KindBigNumber
}

// HasBytes reports whether values of this kind carry a byte payload.
func (k Kind) HasBytes() bool {
	switch k {
	case KindBulkString, KindSimpleString, KindError, KindBigNumber:
		return true
	}
	return false
}

// Value is one node of a reply tree. Only the fields matching Kind are set.
type Value struct {
	Bytes []byte
	Items []Value
	Pairs []Pair
	Int   int64
	Float float64
	Kind  Kind
	Bool  bool
	// WithNull appends a NUL after Bytes when encoded. The NUL is not
	// counted in the encoded length.
	WithNull bool
}

// Pair is one map entry.
type Pair struct {
	Key   Value
	Value Value
}

func Nil() Value                 { return Value{Kind: KindNil} }
func Okay() Value                { return Value{Kind: KindOkay} }
func Int(i int64) Value          { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value      { return Value{Kind: KindFloat, Float: f} }
func Bool(b bool) Value          { return Value{Kind: KindBool, Bool: b} }
func Bulk(b []byte) Value        { return Value{Kind: KindBulkString, Bytes: b} }
func Simple(s string) Value      { return Value{Kind: KindSimpleString, Bytes: []byte(s)} }
func Error(msg string) Value     { return Value{Kind: KindError, Bytes: []byte(msg)} }
func Array(items ...Value) Value { return Value{Kind: KindArray, Items: items} }
func Set(items ...Value) Value   { return Value{Kind: KindSet, Items: items} }
func Map(pairs ...Pair) Value    { return Value{Kind: KindMap, Pairs: pairs} }

// BigNumber stores n as decimal text.
func BigNumber(n *big.Int) Value {
	return Value{Kind: KindBigNumber, Bytes: []byte(n.String())}
}

// SimpleStringWithNull is a simple string whose encoding is also a valid C
// string. Error texts delivered through callbacks use it.
func SimpleStringWithNull(s string) Value {
	return Value{Kind: KindSimpleString, Bytes: []byte(s), WithNull: true}
}

// Status converts a status reply, folding "OK" into Okay.
func Status(s string) Value {
	if s == "OK" {
		return Okay()
	}
	return Simple(s)
}

// Equal compares two trees structurally. Float NaNs are equal.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		if math.IsNaN(a.Float) {
			return math.IsNaN(b.Float)
		}
		return a.Float == b.Float
	case KindBool:
		return a.Bool == b.Bool
	case KindBulkString, KindSimpleString, KindError, KindBigNumber:
		return bytes.Equal(a.Bytes, b.Bytes) && a.WithNull == b.WithNull
	case KindArray, KindSet:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.Pairs) != len(b.Pairs) {
			return false
		}
		for i := range a.Pairs {
			if !Equal(a.Pairs[i].Key, b.Pairs[i].Key) || !Equal(a.Pairs[i].Value, b.Pairs[i].Value) {
				return false
			}
		}
		return true
	}
	return true
}

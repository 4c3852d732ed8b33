package value

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/redis/go-redis/v9"
)

// FromReply converts a reply returned by the store client. A redis.Nil
// error is the nil reply; any other error is the caller's to handle.
//
// RESP3 maps come back unordered, so map entries are sorted by the text of
// their keys to keep encodings deterministic.
func FromReply(reply any) (Value, error) {
	switch r := reply.(type) {
	case nil:
		return Nil(), nil
	case string:
		return Bulk([]byte(r)), nil
	case []byte:
		return Bulk(append([]byte(nil), r...)), nil
	case int64:
		return Int(r), nil
	case int:
		return Int(int64(r)), nil
	case float64:
		return Float(r), nil
	case bool:
		return Bool(r), nil
	case *big.Int:
		return BigNumber(r), nil
	case redis.Error:
		if r == redis.Nil {
			return Nil(), nil
		}
		return Error(r.Error()), nil
	case []any:
		items := make([]Value, len(r))
		for i, item := range r {
			v, err := FromReply(item)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			items[i] = v
		}
		return Array(items...), nil
	case map[any]any:
		return fromMap(len(r), func(yield func(k, v any) error) error {
			for k, v := range r {
				if err := yield(k, v); err != nil {
					return err
				}
			}
			return nil
		})
	case map[string]any:
		return fromMap(len(r), func(yield func(k, v any) error) error {
			for k, v := range r {
				if err := yield(k, v); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return Value{}, fmt.Errorf("unsupported reply type %T", reply)
}

type sortablePair struct {
	sortKey string
	pair    Pair
}

func fromMap(n int, each func(yield func(k, v any) error) error) (Value, error) {
	entries := make([]sortablePair, 0, n)
	err := each(func(k, v any) error {
		key, err := FromReply(k)
		if err != nil {
			return fmt.Errorf("map key: %w", err)
		}
		val, err := FromReply(v)
		if err != nil {
			return fmt.Errorf("map value for %v: %w", k, err)
		}
		entries = append(entries, sortablePair{sortKey: fmt.Sprint(k), pair: Pair{Key: key, Value: val}})
		return nil
	})
	if err != nil {
		return Value{}, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].sortKey < entries[j].sortKey })

	pairs := make([]Pair, len(entries))
	for i, e := range entries {
		pairs[i] = e.pair
	}
	return Map(pairs...), nil
}

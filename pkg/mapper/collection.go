package mapper

import (
	"encoding/json"
	"strconv"

	"github.com/bardlex/coinrpc/pkg/errors"
)

// List maps a JSON array element by element. An empty array or null yields
// an empty, non-nil slice; the first element that fails aborts the mapping.
func List[T any](elem Func[T]) Func[[]T] {
	return func(op string, raw json.RawMessage) ([]T, error) {
		items, err := array(op, raw)
		if err != nil {
			return nil, err
		}

		out := make([]T, 0, len(items))
		for i, item := range items {
			v, err := elem(op, item)
			if err != nil {
				return nil, fieldError(op, "["+strconv.Itoa(i)+"]", item, err)
			}
			out = append(out, v)
		}
		return out, nil
	}
}

// TupleGroups maps an array of groups, each an array of tuples, each an
// array of loosely typed values, such as [[["addr", 0.5, "label"]]].
//
// The outer index is kept: group i of the result is group i of the reply,
// even when none of its tuples are materialized. Tuples shorter than minLen
// carry no usable data and are skipped.
func TupleGroups[T any](minLen int, build func(op string, tuple []json.RawMessage) (T, error)) Func[[][]T] {
	return func(op string, raw json.RawMessage) ([][]T, error) {
		groups, err := array(op, raw)
		if err != nil {
			return nil, err
		}

		out := make([][]T, len(groups))
		for i, group := range groups {
			tuples, err := array(op, group)
			if err != nil {
				return nil, fieldError(op, "["+strconv.Itoa(i)+"]", group, err)
			}

			entries := make([]T, 0, len(tuples))
			for j, t := range tuples {
				fields, err := array(op, t)
				if err != nil {
					return nil, fieldError(op, "["+strconv.Itoa(i)+"]["+strconv.Itoa(j)+"]", t, err)
				}
				if len(fields) < minLen {
					continue
				}
				entry, err := build(op, fields)
				if err != nil {
					return nil, err
				}
				entries = append(entries, entry)
			}
			out[i] = entries
		}
		return out, nil
	}
}

func array(op string, raw json.RawMessage) ([]json.RawMessage, error) {
	if isNull(raw) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.NewParseError(op, "result", raw, err)
	}
	return items, nil
}

package mapper

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"

	"github.com/bardlex/coinrpc/pkg/errors"
)

// Setter stores one property of a keyed entry.
type Setter[T any] func(op string, entry *T, raw json.RawMessage) error

// FieldTable lists every property name an entry may carry. A property that
// is missing from the table fails the whole mapping.
type FieldTable[T any] map[string]Setter[T]

// Field returns a setter that converts the property with conv and stores it
// in the field selected by ref.
func Field[T, V any](conv Func[V], ref func(*T) *V) Setter[T] {
	return func(op string, entry *T, raw json.RawMessage) error {
		v, err := conv(op, raw)
		if err != nil {
			return err
		}
		*ref(entry) = v
		return nil
	}
}

// Nested returns a setter for a property that is itself an object, walked
// with its own field table.
func Nested[T, N any](table FieldTable[N], ref func(*T) *N) Setter[T] {
	return func(op string, entry *T, raw json.RawMessage) error {
		return applyTable(op, raw, table, ref(entry))
	}
}

// Ignore returns a setter that accepts a known property without storing it.
func Ignore[T any]() Setter[T] {
	return func(string, *T, json.RawMessage) error { return nil }
}

// Entry is one keyed result value.
type Entry[T any] struct {
	Key   string
	Value T
}

// Keyed maps an object of the form {"key": {"prop": value, ...}, ...} into
// entries in the order the daemon sent them. init seeds each entry from its
// key before the properties are applied.
func Keyed[T any](table FieldTable[T], init func(key string) T) Func[[]Entry[T]] {
	return func(op string, raw json.RawMessage) ([]Entry[T], error) {
		out := make([]Entry[T], 0)
		if isNull(raw) {
			return out, nil
		}

		err := walkObject(op, raw, func(key string, body json.RawMessage) error {
			entry := init(key)
			if err := applyTable(op, body, table, &entry); err != nil {
				return keyError(op, key, err)
			}
			out = append(out, Entry[T]{Key: key, Value: entry})
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}
}

func applyTable[T any](op string, raw json.RawMessage, table FieldTable[T], entry *T) error {
	return walkObject(op, raw, func(property string, value json.RawMessage) error {
		set, ok := table[property]
		if !ok {
			return errors.NewUnknownFieldError(op, "", property)
		}
		if err := set(op, entry, value); err != nil {
			return propertyError(op, property, value, err)
		}
		return nil
	})
}

// propertyError prefixes the failing property onto the error's path.
func propertyError(op, property string, raw json.RawMessage, err error) error {
	var se *errors.ServiceError
	if !stderrors.As(err, &se) {
		return err
	}
	switch se.Type {
	case errors.ErrorTypeUnknownField:
		inner, _ := se.Context["property"].(string)
		return errors.NewUnknownFieldError(op, "", property+"."+inner)
	case errors.ErrorTypeParse:
		field, _ := se.Context["field"].(string)
		path := property
		if field != "" && field != "result" {
			path += "." + field
		}
		return errors.NewParseError(op, path, raw, stderrors.Unwrap(err))
	default:
		return err
	}
}

// keyError attaches the entry key to a property failure.
func keyError(op, key string, err error) error {
	var se *errors.ServiceError
	if !stderrors.As(err, &se) {
		return err
	}
	switch se.Type {
	case errors.ErrorTypeUnknownField:
		property, _ := se.Context["property"].(string)
		return errors.NewUnknownFieldError(op, key, property)
	default:
		return se.WithContext("key", key)
	}
}

var errDuplicateKey = stderrors.New("duplicate object key")

// walkObject calls fn for each member of a JSON object in document order.
// A key that appears twice fails the walk.
func walkObject(op string, raw json.RawMessage, fn func(key string, value json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return errors.NewParseError(op, "result", raw, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.NewParseError(op, "result", raw, nil)
	}

	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return errors.NewParseError(op, "result", raw, err)
		}
		key, ok := tok.(string)
		if !ok {
			return errors.NewParseError(op, "result", raw, nil)
		}
		if _, dup := seen[key]; dup {
			return errors.NewParseError(op, key, raw, errDuplicateKey)
		}
		seen[key] = struct{}{}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return errors.NewParseError(op, key, raw, err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return errors.NewParseError(op, "result", raw, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.NewParseError(op, "result", raw, nil)
	}
	return nil
}

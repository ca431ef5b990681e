package tradier

import (
	"bytes"
	"io"

	"github.com/bytedance/sonic"
)

func encodeJSON(w io.Writer, v any) error {
	return sonic.ConfigDefault.NewEncoder(w).Encode(v)
}

func decodeJSON(r io.Reader, v any) error {
	return sonic.ConfigDefault.NewDecoder(r).Decode(v)
}

// The API writes an empty collection as the string "null".
func isNull(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`"null"`))
}

// maybe is an object that may come back as null or "null".
type maybe[T any] struct {
	Value T
	Valid bool
}

func (m *maybe[T]) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*m = maybe[T]{}
		return nil
	}
	var v T
	if err := sonic.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = maybe[T]{Value: v, Valid: true}
	return nil
}

// oneOrMany is a list that the API collapses to a bare object when it has a
// single element.
type oneOrMany[T any] []T

func (m *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if isNull(data) {
		*m = nil
		return nil
	}
	if data[0] == '[' {
		var items []T
		if err := sonic.Unmarshal(data, &items); err != nil {
			return err
		}
		*m = items
		return nil
	}
	var item T
	if err := sonic.Unmarshal(data, &item); err != nil {
		return err
	}
	*m = oneOrMany[T]{item}
	return nil
}

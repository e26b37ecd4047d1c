package types

import (
	"bytes"
	"encoding/json"
)

// Optional is a request field that records whether it was sent. A field
// sent as null is Set with the zero Value; an omitted field is not Set.
type Optional[T any] struct {
	Set   bool
	Value T
}

// Some returns a Set field holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// UnmarshalJSON implements json.Unmarshaler. It is only called for keys
// present in the object, so reaching it marks the field as sent.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	var zero T
	o.Value = zero
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

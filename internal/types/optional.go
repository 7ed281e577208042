package types

import (
	"bytes"
	"encoding/json"
)

// Identifiers assigned by the content API.
type (
	PoolID      string
	StreamID    string
	DropID      string
	PlacementID string
)

// Optional holds an identifier that may not have been assigned yet. The zero
// value is unset. It encodes as JSON null when unset, and decodes both null
// and "" as unset.
type Optional[T ~string] struct {
	value T
	set   bool
}

// Some returns an Optional holding v. An empty v yields an unset Optional.
func Some[T ~string](v T) Optional[T] {
	if v == "" {
		return Optional[T]{}
	}
	return Optional[T]{value: v, set: true}
}

// None returns an unset Optional.
func None[T ~string]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is set.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether a value has been assigned.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// IsZero reports whether the Optional is unset. Used by omitzero.
func (o Optional[T]) IsZero() bool {
	return !o.set
}

// String returns the value, or "-" when unset.
func (o Optional[T]) String() string {
	if !o.set {
		return "-"
	}
	return string(o.value)
}

// MarshalJSON implements json.Marshaler.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(string(o.value))
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Optional[T]{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*o = Some(T(s))
	return nil
}

package entities

import "encoding/json"

// Known holds a value that may not have been determined. The zero value is
// unknown, which keeps "not read" apart from a real zero or false.
type Known[T any] struct {
	value T
	ok    bool
}

// Some returns a determined value.
func Some[T any](v T) Known[T] {
	return Known[T]{value: v, ok: true}
}

// Unknown returns an undetermined value.
func Unknown[T any]() Known[T] {
	return Known[T]{}
}

// Get returns the value and whether it is known.
func (k Known[T]) Get() (T, bool) {
	return k.value, k.ok
}

// IsKnown reports whether the value was determined
func (k Known[T]) IsKnown() bool {
	return k.ok
}

// OrElse returns the value, or fallback when unknown.
func (k Known[T]) OrElse(fallback T) T {
	if !k.ok {
		return fallback
	}
	return k.value
}

// MarshalJSON encodes unknown values as null.
func (k Known[T]) MarshalJSON() ([]byte, error) {
	if !k.ok {
		return []byte("null"), nil
	}
	return json.Marshal(k.value)
}

// UnmarshalJSON decodes null as unknown.
func (k *Known[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*k = Known[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*k = Some(v)
	return nil
}

// Package pointer bridges values and pointers, mostly for the optional
// fields of Kubernetes object specs.
package pointer

// Ref returns a pointer to t.
func Ref[T any](t T) *T {
	return &t
}

// Deref returns *ptr. It panics when ptr is nil.
func Deref[T any](ptr *T) T {
	return *ptr
}

// SafeDeref returns *val, or the zero value when val is nil.
func SafeDeref[T any](val *T) T {
	if val == nil {
		return *new(T)
	}
	return *val
}

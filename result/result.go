package result

import "errors"

type Kind uint8

const (
	KindEmpty Kind = iota
	KindOk
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindOk:
		return "ok"
	case KindEmpty:
		return "empty"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Of is the outcome of a lookup. The zero value is an empty result.
type Of[T any] struct {
	kind Kind
	v    *T
	err  error
}

func (r Of[T]) Kind() Kind {
	return r.kind
}

func (r Of[T]) IsOk() bool {
	return r.kind == KindOk
}

func (r Of[T]) IsEmpty() bool {
	return r.kind == KindEmpty
}

func (r Of[T]) IsFailed() bool {
	return r.kind == KindFailed
}

func (r Of[T]) Unwrap() *T {
	if r.kind != KindOk {
		panic("cannot get value of " + r.kind.String() + " result")
	}

	return r.v
}

func (r Of[T]) Err() error {
	return r.err
}

func Ok[T any](v *T) Of[T] {
	if nil == v {
		return Empty[T]()
	}

	return Of[T]{kind: KindOk, v: v, err: nil}
}

func Empty[T any]() Of[T] {
	return Of[T]{kind: KindEmpty, v: nil, err: nil}
}

func Err[T any](err error) Of[T] {
	if nil == err {
		err = errors.New("unspecified failure")
	}

	return Of[T]{kind: KindFailed, v: nil, err: err}
}

package ir

import "zcc/internal/cgtype"

// Global is one module-level data declaration: a name, type, and
// optional initializer tree.
type Global struct {
	Name string
	Type cgtype.Type
	Init Initializer // nil if uninitialized (zero-filled)
}

// Initializer is a global's compile-time-constant initial value.
type Initializer interface {
	isGlobalInit()
}

// ConstInit is a scalar integer constant.
type ConstInit struct {
	Value int64
}

func (ConstInit) isGlobalInit() {}

// AddrInit is the address of another global, plus a byte offset, used
// to lower `&other_global` and `&array[3]` as a static initializer.
type AddrInit struct {
	Target string
	Offset int
}

func (AddrInit) isGlobalInit() {}

// AggregateInit is an ordered list of member/element initializers for
// an array or struct global.
type AggregateInit struct {
	Elems []Initializer
}

func (AggregateInit) isGlobalInit() {}

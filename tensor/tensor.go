// Package tensor defines the Tensor value type and the Device
// contract every compute backend implements. A Tensor pairs a
// shape.Shape with a device-resident storage Handle; every operation
// on it dispatches through the owning Device.
package tensor

import (
	"github.com/born-ml/autograd/errs"
	"github.com/born-ml/autograd/shape"
)

// Tensor is a move-only value handle: exactly one live Tensor should
// refer to a given Handle at a time. Copying the struct is cheap and
// unrestricted by the Go type system, but sharing storage on purpose
// requires an explicit Device.Duplicate — copying a Tensor value and
// using both copies concurrently as if they owned independent storage
// is a bug the same way reusing a freed pointer is.
//
// The zero value is invalid: it has no storage and no Device.
type Tensor struct {
	sh  shape.Shape
	dev Device
	h   Handle
}

// New wraps a Handle allocated by dev for shape sh. Device
// implementations call this to build the Tensor they return from
// NewTensor and the value-producing kernels; client code normally
// obtains Tensors from a Device or a graph.Graph instead.
func New(sh shape.Shape, dev Device, h Handle) Tensor {
	return Tensor{sh: sh, dev: dev, h: h}
}

// Valid reports whether t is not the zero value, i.e. has both a
// Device and a storage Handle. It does not detect a Handle that has
// already been freed; the Device reports that as InvalidState when the
// Handle is next used.
func (t Tensor) Valid() bool {
	return t.dev != nil && t.h != nil
}

// Shape returns the Tensor's shape.
func (t Tensor) Shape() shape.Shape {
	return t.sh
}

// Device returns the Tensor's owning Device.
func (t Tensor) Device() Device {
	return t.dev
}

// Handle returns the opaque storage handle, for use by Device
// implementations dispatching their own kernels.
func (t Tensor) Handle() Handle {
	return t.h
}

func (t Tensor) checkValid() error {
	if !t.Valid() {
		return errs.New(errs.InvalidState, "tensor: operation on an invalid (default-constructed or freed) Tensor")
	}
	return nil
}

// SameDevice reports an InvalidState error if either a or b is
// invalid, and an InvalidArgument error if they are backed by
// different Devices.
func SameDevice(a, b Tensor) error {
	if err := a.checkValid(); err != nil {
		return err
	}
	if err := b.checkValid(); err != nil {
		return err
	}
	if a.dev != b.dev {
		return errs.New(errs.InvalidArgument, "tensor: operands belong to different Devices (%s vs %s)", a.dev.Name(), b.dev.Name())
	}
	return nil
}

// ToVector copies storage to a host-memory sequence, ordered
// column-major with batch as the outermost axis. Its length always
// equals t.Shape().TotalElements().
func (t Tensor) ToVector() ([]float32, error) {
	if err := t.checkValid(); err != nil {
		return nil, err
	}
	return t.dev.ToVector(t.h, t.sh)
}

// SetValues overwrites every element of t with k, dispatching to the
// owning Device's Reset kernel.
func (t Tensor) SetValues(k float32) error {
	if err := t.checkValid(); err != nil {
		return err
	}
	return t.dev.Reset(t.h, t.sh, k)
}

// SetValuesSlice overwrites t's storage with vals, which must have
// length t.Shape().TotalElements() and use the ToVector layout.
func (t Tensor) SetValuesSlice(vals []float32) error {
	if err := t.checkValid(); err != nil {
		return err
	}
	if uint32(len(vals)) != t.sh.TotalElements() {
		return errs.New(errs.InvalidArgument, "tensor: SetValuesSlice got %d values, shape %s needs %d", len(vals), t.sh, t.sh.TotalElements())
	}
	return t.dev.ResetValues(t.h, t.sh, vals)
}

// AddGradient adds other into t in place, with the broadcast
// semantics of Device.Add. Besides SetValues/SetValuesSlice, which
// overwrite t, it is the only operation Tensor exposes that mutates
// t's storage, matching the Device.AddGradient kernel contract.
func (t Tensor) AddGradient(other Tensor) error {
	if err := SameDevice(t, other); err != nil {
		return err
	}
	return t.dev.AddGradient(t, other)
}

// Free releases t's storage handle back to its Device. After Free,
// any further use of t's handle (including a second Free) returns an
// InvalidState error from the Device; t.Valid() still reports true,
// since t is a value copy. Freeing a zero-value Tensor is a no-op.
func (t Tensor) Free() error {
	if !t.Valid() {
		return nil
	}
	return t.dev.Free(t.h)
}

// Duplicate returns an independent copy of t's storage, the only
// sanctioned way to share a Tensor's value.
func (t Tensor) Duplicate() (Tensor, error) {
	if err := t.checkValid(); err != nil {
		return Tensor{}, err
	}
	return t.dev.Duplicate(t)
}

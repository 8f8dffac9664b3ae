// Package param implements Parameter, the named and persistent
// value/gradient Tensor pair that survives across Graphs, and
// Initializer, the strategy objects that write a Parameter's initial
// value.
package param

import (
	"github.com/born-ml/autograd/shape"
	"github.com/born-ml/autograd/tensor"
)

// Parameter is a named, persistent pair of a value Tensor and a
// gradient Tensor of identical shape. It is created once with an
// Initializer and persists across many Graphs; a Graph only borrows a
// non-owning reference to it (spec.md §9, "Parameter <-> Graph
// back-reference").
type Parameter struct {
	name  string
	value tensor.Tensor
	grad  tensor.Tensor
	aux   map[string]tensor.Tensor
}

// New allocates a value Tensor and a gradient Tensor of shape sh on
// device, applies init to the value, and zeroes the gradient.
func New(name string, sh shape.Shape, init Initializer, device tensor.Device) (*Parameter, error) {
	value, err := device.NewTensor(sh)
	if err != nil {
		return nil, err
	}
	if err := init.Apply(value); err != nil {
		value.Free()
		return nil, err
	}
	grad, err := device.NewTensor(sh)
	if err != nil {
		value.Free()
		return nil, err
	}
	if err := grad.SetValues(0); err != nil {
		value.Free()
		grad.Free()
		return nil, err
	}
	return &Parameter{name: name, value: value, grad: grad, aux: make(map[string]tensor.Tensor)}, nil
}

// Name returns the parameter's name, e.g. "layer1.weight".
func (p *Parameter) Name() string { return p.name }

// Value returns the parameter's value Tensor.
func (p *Parameter) Value() tensor.Tensor { return p.value }

// Grad returns the parameter's gradient Tensor.
func (p *Parameter) Grad() tensor.Tensor { return p.grad }

// ResetGradient zeroes the gradient Tensor.
func (p *Parameter) ResetGradient() error {
	return p.grad.SetValues(0)
}

// AddGradient accumulates g into the parameter's gradient Tensor via
// the owning Device's in-place add_gradient kernel.
func (p *Parameter) AddGradient(g tensor.Tensor) error {
	return p.grad.AddGradient(g)
}

// Aux returns the parameter's auxiliary Tensor map, used by
// optimizers to keep per-parameter state (momentum buffers, Adam
// moments) keyed uniquely per optimizer family, e.g.
// "optim.sgd.velocity", "optim.adam.m", "optim.adam.v".
func (p *Parameter) Aux() map[string]tensor.Tensor {
	return p.aux
}

// Free releases the parameter's value, gradient, and auxiliary
// Tensors.
func (p *Parameter) Free() {
	p.value.Free()
	p.grad.Free()
	for _, t := range p.aux {
		t.Free()
	}
}

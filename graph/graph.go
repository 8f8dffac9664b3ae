// Package graph implements the define-by-run computation graph and
// reverse-mode autodiff engine: a Graph accumulates vertices as
// client code invokes operator factories, Forward lazily computes
// and memoizes each vertex's value, and Backward drives reverse
// traversal, accumulating gradients into the referenced
// param.Parameters.
package graph

import (
	"github.com/born-ml/autograd/errs"
	"github.com/born-ml/autograd/param"
	"github.com/born-ml/autograd/shape"
	"github.com/born-ml/autograd/tensor"
)

// vertex is the tagged-variant record for one graph node: an operator
// kind, its operator-specific payload, ordered input indices, the
// eagerly inferred output Shape, and the memoized forward value.
// Fields unused by a given kind are simply left zero.
type vertex struct {
	kind   kind
	inputs []int
	shape  shape.Shape

	k      float32 // AddK/SubK/KSub/MulK/DivK/KDiv scalar, Dropout probability
	axis   int     // Sum/Slice/Concat/SoftmaxCrossEntropy axis
	offset uint32  // Slice offset

	offsets []uint32  // Concat: per-input start offset along axis
	values  []float32 // Input leaf payload
	labels  []uint32  // SoftmaxCrossEntropy label indices
	train   bool      // Dropout

	param *param.Parameter // Parameter-reference backref

	hasForward bool
	forward    tensor.Tensor

	hasAux bool      // Dropout keep-mask
	aux    tensor.Tensor
	cache  []float32 // SoftmaxCrossEntropy memoized softmax output
}

// Graph is single-use: built up by operator factories, evaluated with
// Forward/Backward, and discarded via Free. It owns every memoized
// forward Tensor and gradient accumulator it allocates; Parameters it
// references are borrowed, never owned (spec.md §9).
type Graph struct {
	dev      tensor.Device
	vertices []vertex
}

// New creates an empty Graph backed by dev.
func New(dev tensor.Device) *Graph {
	return &Graph{dev: dev}
}

// Device returns the Graph's owning Device.
func (g *Graph) Device() tensor.Device { return g.dev }

// Node is a lightweight handle identifying a vertex within a specific
// Graph. It carries no data of its own.
type Node struct {
	g   *Graph
	idx int
}

// Shape returns the node's eagerly inferred output Shape.
func (n Node) Shape() shape.Shape { return n.g.vertices[n.idx].shape }

func (g *Graph) push(v vertex) Node {
	g.vertices = append(g.vertices, v)
	return Node{g: g, idx: len(g.vertices) - 1}
}

func sameGraph(g *Graph, nodes ...Node) error {
	for _, n := range nodes {
		if n.g != g {
			return errs.New(errs.InvalidArgument, "graph: node belongs to a different Graph")
		}
	}
	return nil
}

// reachable returns a boolean mask over vertex indices marking every
// ancestor of root (root included). Because every input index of a
// vertex is strictly less than its own index (spec.md §3), ascending
// index order among the reachable set is already a valid topological
// order, and descending order a valid reverse-topological order — no
// separate post-order walk is needed for either traversal direction.
func (g *Graph) reachable(root int) []bool {
	vis := make([]bool, len(g.vertices))
	vis[root] = true
	stack := []int{root}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, in := range g.vertices[idx].inputs {
			if !vis[in] {
				vis[in] = true
				stack = append(stack, in)
			}
		}
	}
	return vis
}

// Forward returns the value Tensor at n, computing and memoizing every
// unevaluated ancestor along the way. Re-entering Forward on the same
// node is idempotent.
func (g *Graph) Forward(n Node) (tensor.Tensor, error) {
	if err := sameGraph(g, n); err != nil {
		return tensor.Tensor{}, err
	}
	vis := g.reachable(n.idx)
	for idx := 0; idx <= n.idx; idx++ {
		if !vis[idx] || g.vertices[idx].hasForward {
			continue
		}
		if err := g.evalForward(idx); err != nil {
			return tensor.Tensor{}, err
		}
	}
	return g.vertices[n.idx].forward, nil
}

// Backward requires n's shape to have elements-per-sample 1 (a scalar
// per batch entry). It forward-evaluates n if needed, seeds n's
// gradient with 1, then walks every ancestor of n in descending index
// order — a valid reverse-topological order — invoking each vertex's
// vector-Jacobian product and accumulating contributions into its
// inputs via add_gradient/add_gradient_offset. Parameter-reference
// vertices flush their accumulated gradient into the referenced
// Parameter. Each call re-seeds accumulators from zero; memoized
// forward values are untouched.
func (g *Graph) Backward(n Node) error {
	if err := sameGraph(g, n); err != nil {
		return err
	}
	sh := n.Shape()
	if sh.ElementsPerSample() != 1 {
		return errs.New(errs.InvalidArgument, "graph: Backward requires a scalar-per-sample loss node, got shape %s", sh)
	}
	if _, err := g.Forward(n); err != nil {
		return err
	}

	vis := g.reachable(n.idx)
	grads := make([]tensor.Tensor, len(g.vertices))
	hasGrad := make([]bool, len(g.vertices))
	defer func() {
		for idx, t := range grads {
			if hasGrad[idx] {
				t.Free()
			}
		}
	}()

	seed, err := g.dev.NewTensor(sh)
	if err != nil {
		return err
	}
	if err := seed.SetValues(1); err != nil {
		return err
	}
	grads[n.idx] = seed
	hasGrad[n.idx] = true

	getAcc := func(input int) (tensor.Tensor, error) {
		if hasGrad[input] {
			return grads[input], nil
		}
		acc, err := g.dev.NewTensor(g.vertices[input].shape)
		if err != nil {
			return tensor.Tensor{}, err
		}
		if err := acc.SetValues(0); err != nil {
			acc.Free()
			return tensor.Tensor{}, err
		}
		grads[input] = acc
		hasGrad[input] = true
		return acc, nil
	}

	for idx := n.idx; idx >= 0; idx-- {
		if !vis[idx] || !hasGrad[idx] {
			continue
		}
		if err := g.evalBackward(idx, grads[idx], getAcc); err != nil {
			return err
		}
		if v := &g.vertices[idx]; v.kind == kindParameter {
			if err := v.param.AddGradient(grads[idx]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Free releases every memoized forward Tensor and Dropout mask this
// Graph allocated. Gradient accumulators are not held here: Backward
// releases them before it returns. Parameters it referenced are
// untouched, since the Graph only borrows them.
func (g *Graph) Free() {
	for i := range g.vertices {
		v := &g.vertices[i]
		if v.hasForward {
			if v.kind != kindParameter {
				v.forward.Free()
			}
			v.hasForward = false
		}
		if v.hasAux {
			v.aux.Free()
			v.hasAux = false
		}
	}
}
